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
	"github.com/onepwr/procurement-tracker/internal/core/ports"
)

const requestCollection = "purchase_requests"

// RequestRepository persists purchase requests.
type RequestRepository struct {
	col *mongo.Collection
}

func NewRequestRepository(db *mongo.Database) *RequestRepository {
	return &RequestRepository{col: db.Collection(requestCollection)}
}

func (r *RequestRepository) Create(ctx context.Context, pr *domain.PurchaseRequest) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if _, err := r.col.InsertOne(ctx, pr); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrDuplicateIdentifier
		}
		return fmt.Errorf("insert request: %w", err)
	}
	return nil
}

// FindByNumber retrieves a request by PR number. A non-empty requestorEmail
// additionally scopes the lookup to that requestor.
func (r *RequestRepository) FindByNumber(ctx context.Context, prNumber string, requestorEmail string) (*domain.PurchaseRequest, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{"pr_number": prNumber}
	if requestorEmail != "" {
		filter["requestor.email"] = requestorEmail
	}

	var pr domain.PurchaseRequest
	if err := r.col.FindOne(ctx, filter).Decode(&pr); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrRequestNotFound
		}
		return nil, fmt.Errorf("find request: %w", err)
	}
	return &pr, nil
}

// List returns a page of requests matching filter and the total count.
func (r *RequestRepository) List(ctx context.Context, filter ports.ListRequestsFilter) ([]*domain.PurchaseRequest, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	q := bson.M{}
	if filter.RequestorEmail != "" {
		q["requestor.email"] = filter.RequestorEmail
	}
	if filter.Status != "" {
		q["status"] = filter.Status
	}
	if filter.Site != "" {
		q["site"] = filter.Site
	}

	total, err := r.col.CountDocuments(ctx, q)
	if err != nil {
		return nil, 0, fmt.Errorf("count requests: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "submitted_at", Value: -1}}).
		SetSkip(int64((filter.Page - 1) * filter.Limit)).
		SetLimit(int64(filter.Limit))

	cur, err := r.col.Find(ctx, q, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("list requests: %w", err)
	}
	defer cur.Close(ctx)

	var out []*domain.PurchaseRequest
	for cur.Next(ctx) {
		var pr domain.PurchaseRequest
		if err := cur.Decode(&pr); err != nil {
			return nil, 0, fmt.Errorf("decode request: %w", err)
		}
		out = append(out, &pr)
	}
	if err := cur.Err(); err != nil {
		return nil, 0, fmt.Errorf("list requests: %w", err)
	}
	return out, total, nil
}

// UpdateStatus atomically sets the status and appends a history entry.
func (r *RequestRepository) UpdateStatus(ctx context.Context, prNumber string, change domain.StatusChange) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.UpdateOne(ctx,
		bson.M{"pr_number": prNumber},
		bson.M{
			"$set":  bson.M{"status": string(change.Status)},
			"$push": bson.M{"status_history": change},
		},
	)
	if err != nil {
		return fmt.Errorf("update request status: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrRequestNotFound
	}
	return nil
}

// EnsureIndexes creates the request collection indexes.
func (r *RequestRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "pr_number", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "requestor.email", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}}},
	}
	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}
