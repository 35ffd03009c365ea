package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Backend names for the durable store.
const (
	BackendMongo  = "mongo"
	BackendSheets = "sheets"
)

// Config is built once at process start and passed explicitly to every
// component constructor. Nothing reads the environment after Load returns.
type Config struct {
	Port      string `env:"PORT,      default=8080"`
	Env       string `env:"ENV,       default=development"`
	JWTSecret string `env:"JWT_SECRET"`
	LogLevel  string `env:"LOG_LEVEL, default=info"`

	// Backend selects the durable store: "mongo" (default) or "sheets"
	// for the legacy workbook deployment.
	Backend string `env:"STORE_BACKEND, default=mongo"`

	Mongo   MongoConfig
	Redis   RedisConfig
	Sheets  SheetsConfig
	SMTP    SMTPConfig
	Session SessionConfig
	Alloc   AllocationConfig
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=procurement_tracker"`
}

type RedisConfig struct {
	Addr string `env:"REDIS_ADDR, default=localhost:6379"`
	DB   int    `env:"REDIS_DB,   default=0"`
}

// SheetsConfig identifies the legacy tracking workbook. CredentialsFile is a
// service account key with spreadsheet scope.
type SheetsConfig struct {
	SpreadsheetID   string `env:"SHEETS_SPREADSHEET_ID"`
	CredentialsFile string `env:"SHEETS_CREDENTIALS_FILE"`
}

type SMTPConfig struct {
	Host     string `env:"SMTP_HOST"`
	Port     int    `env:"SMTP_PORT, default=587"`
	Username string `env:"SMTP_USER"`
	Password string `env:"SMTP_PASS"`
	From     string `env:"SMTP_FROM, default=procurement@onepwr.example"`
	// ApproverList receives submission notices.
	ApproverList string `env:"SMTP_APPROVER_LIST"`
}

type SessionConfig struct {
	// TTL is the session duration in both tiers.
	TTL time.Duration `env:"SESSION_TTL, default=6h"`
	// Retention is how long deactivated rows stay in the durable table.
	Retention time.Duration `env:"SESSION_RETENTION, default=24h"`
	// SweepInterval is the period of the cleanup job.
	SweepInterval time.Duration `env:"SESSION_SWEEP_INTERVAL, default=1h"`
}

type AllocationConfig struct {
	// ReservationTTL is how long an uncommitted identifier is held for a user.
	ReservationTTL time.Duration `env:"ALLOC_RESERVATION_TTL, default=1h"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load() *Config {
	var cfg Config
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return &cfg
}
