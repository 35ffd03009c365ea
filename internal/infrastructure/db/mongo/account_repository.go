package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/onepwr/procurement-tracker/internal/core/domain"
)

const accountCollection = "accounts"

// AccountRepository reads the user directory collection.
type AccountRepository struct {
	col *mongo.Collection
}

func NewAccountRepository(db *mongo.Database) *AccountRepository {
	return &AccountRepository{col: db.Collection(accountCollection)}
}

type mongoAccount struct {
	Username   string    `bson:"username"`
	Name       string    `bson:"name"`
	Email      string    `bson:"email"`
	Department string    `bson:"department"`
	Role       string    `bson:"role"`
	Credential string    `bson:"credential"`
	Active     bool      `bson:"active"`
	CreatedAt  time.Time `bson:"created_at"`
	UpdatedAt  time.Time `bson:"updated_at"`
}

// FindByUsername matches usernames case-insensitively, mirroring the legacy
// directory lookup.
func (r *AccountRepository) FindByUsername(ctx context.Context, username string) (*domain.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{"username": primitive.Regex{
		Pattern: "^" + regexp.QuoteMeta(username) + "$",
		Options: "i",
	}}

	var row mongoAccount
	if err := r.col.FindOne(ctx, filter).Decode(&row); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("find account: %w", err)
	}

	return &domain.Account{
		Username:   row.Username,
		Name:       row.Name,
		Email:      row.Email,
		Department: row.Department,
		Role:       row.Role,
		Credential: row.Credential,
		Active:     row.Active,
		CreatedAt:  row.CreatedAt,
		UpdatedAt:  row.UpdatedAt,
	}, nil
}
