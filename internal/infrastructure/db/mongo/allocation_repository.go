package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/onepwr/procurement-tracker/internal/core/domain"
)

const allocationCollection = "allocations"

// AllocationRepository is the append-only log of committed identifiers. The
// unique index on identifier is the last line of defence against duplicates.
type AllocationRepository struct {
	col *mongo.Collection
}

func NewAllocationRepository(db *mongo.Database) *AllocationRepository {
	return &AllocationRepository{col: db.Collection(allocationCollection)}
}

type mongoAllocation struct {
	Identifier string    `bson:"identifier"`
	Actor      string    `bson:"actor"`
	RecordedAt time.Time `bson:"recorded_at"`
}

func (r *AllocationRepository) Append(ctx context.Context, alloc *domain.Allocation) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := mongoAllocation{
		Identifier: string(alloc.Identifier),
		Actor:      alloc.Actor,
		RecordedAt: alloc.RecordedAt.UTC(),
	}
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrDuplicateIdentifier
		}
		return fmt.Errorf("insert allocation: %w", err)
	}
	return nil
}

func (r *AllocationRepository) Exists(ctx context.Context, id domain.Identifier) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	err := r.col.FindOne(ctx, bson.M{"identifier": string(id)}).Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("find allocation: %w", err)
	}
	return true, nil
}

// MaxCounter pattern-scans the committed identifiers for a month and returns
// the highest counter seen, 0 when the month is empty. Reconciliation only;
// allocation reads the counter row instead.
func (r *AllocationRepository) MaxCounter(ctx context.Context, yearMonth string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{"identifier": primitive.Regex{Pattern: "^PR-" + yearMonth + `-\d{3}$`}}
	cur, err := r.col.Find(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("scan allocations: %w", err)
	}
	defer cur.Close(ctx)

	max := 0
	for cur.Next(ctx) {
		var row mongoAllocation
		if err := cur.Decode(&row); err != nil {
			return 0, fmt.Errorf("decode allocation: %w", err)
		}
		if _, n, err := domain.ParseIdentifier(row.Identifier); err == nil && n > max {
			max = n
		}
	}
	if err := cur.Err(); err != nil {
		return 0, fmt.Errorf("scan allocations: %w", err)
	}
	return max, nil
}

// EnsureIndexes creates the unique identifier index.
func (r *AllocationRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := r.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "identifier", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}
