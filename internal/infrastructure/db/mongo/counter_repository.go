package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/onepwr/procurement-tracker/internal/core/domain"
)

const counterCollection = "counters"

// CounterRepository holds the authoritative per-month counter rows. One row
// per YYYYMM, created lazily, mutated in place, never deleted.
type CounterRepository struct {
	col *mongo.Collection
}

func NewCounterRepository(db *mongo.Database) *CounterRepository {
	return &CounterRepository{col: db.Collection(counterCollection)}
}

type mongoCounter struct {
	YearMonth   string    `bson:"year_month"`
	Counter     int       `bson:"counter"`
	LastUpdated time.Time `bson:"last_updated"`
}

// Get returns the counter row for yearMonth. A missing month yields a record
// with Counter == 0, not an error.
func (r *CounterRepository) Get(ctx context.Context, yearMonth string) (*domain.CounterRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var row mongoCounter
	err := r.col.FindOne(ctx, bson.M{"year_month": yearMonth}).Decode(&row)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return &domain.CounterRecord{YearMonth: yearMonth}, nil
		}
		return nil, fmt.Errorf("find counter: %w", err)
	}
	return &domain.CounterRecord{
		YearMonth:   row.YearMonth,
		Counter:     row.Counter,
		LastUpdated: row.LastUpdated,
	}, nil
}

// Raise moves the counter up to value if it is behind, creating the row when
// absent. $max keeps the write monotonic even under concurrent raises.
func (r *CounterRepository) Raise(ctx context.Context, yearMonth string, value int, now time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := r.col.UpdateOne(ctx,
		bson.M{"year_month": yearMonth},
		bson.M{
			"$max": bson.M{"counter": value},
			"$set": bson.M{"last_updated": now.UTC()},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("raise counter: %w", err)
	}
	return nil
}

// EnsureIndexes creates the unique month key index.
func (r *CounterRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := r.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "year_month", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}
