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

const sessionCollection = "sessions"

// SessionRepository persists session rows in MongoDB. Rows are append-only:
// replacement and logout deactivate in place, and only the sweep physically
// deletes anything.
type SessionRepository struct {
	col *mongo.Collection
}

func NewSessionRepository(db *mongo.Database) *SessionRepository {
	return &SessionRepository{col: db.Collection(sessionCollection)}
}

// mongoSession is the stored row shape, decoded at the boundary.
type mongoSession struct {
	SessionID    string              `bson:"session_id"`
	User         domain.UserSnapshot `bson:"user"`
	Status       string              `bson:"status"`
	LastAccessed time.Time           `bson:"last_accessed"`
}

func (r *SessionRepository) Append(ctx context.Context, s *domain.Session) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := mongoSession{
		SessionID:    s.ID,
		User:         s.User,
		Status:       string(s.Status),
		LastAccessed: s.LastAccessed.UTC(),
	}
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// FindActive returns the active row for sessionID. Absent and deactivated
// rows are indistinguishable to the caller.
func (r *SessionRepository) FindActive(ctx context.Context, sessionID string) (*domain.Session, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var row mongoSession
	err := r.col.FindOne(ctx, bson.M{
		"session_id": sessionID,
		"status":     string(domain.SessionActive),
	}).Decode(&row)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrSessionInvalid
		}
		return nil, fmt.Errorf("find session: %w", err)
	}

	return &domain.Session{
		ID:           row.SessionID,
		User:         row.User,
		Status:       domain.ParseSessionStatus(row.Status),
		LastAccessed: row.LastAccessed,
	}, nil
}

// DeactivateByEmail flips every active row for the email in a single batch
// write. The match is case-insensitive to cover legacy rows.
func (r *SessionRepository) DeactivateByEmail(ctx context.Context, email string, now time.Time) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{
		"user.email": primitive.Regex{Pattern: "^" + regexp.QuoteMeta(email) + "$", Options: "i"},
		"status":     string(domain.SessionActive),
	}
	update := bson.M{"$set": bson.M{
		"status":        string(domain.SessionDeactivated),
		"last_accessed": now.UTC(),
	}}

	res, err := r.col.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, fmt.Errorf("deactivate sessions: %w", err)
	}
	return int(res.ModifiedCount), nil
}

// Deactivate marks one session inactive. Deactivating an absent or already
// inactive session is a no-op.
func (r *SessionRepository) Deactivate(ctx context.Context, sessionID string, now time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := r.col.UpdateOne(ctx,
		bson.M{"session_id": sessionID, "status": string(domain.SessionActive)},
		bson.M{"$set": bson.M{
			"status":        string(domain.SessionDeactivated),
			"last_accessed": now.UTC(),
		}},
	)
	if err != nil {
		return fmt.Errorf("deactivate session: %w", err)
	}
	return nil
}

func (r *SessionRepository) Touch(ctx context.Context, sessionID string, now time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := r.col.UpdateOne(ctx,
		bson.M{"session_id": sessionID},
		bson.M{"$set": bson.M{"last_accessed": now.UTC()}},
	)
	if err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	return nil
}

// SweepDeactivated deletes deactivated rows last touched before cutoff.
func (r *SessionRepository) SweepDeactivated(ctx context.Context, cutoff time.Time) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.DeleteMany(ctx, bson.M{
		"status":        string(domain.SessionDeactivated),
		"last_accessed": bson.M{"$lt": cutoff.UTC()},
	})
	if err != nil {
		return 0, fmt.Errorf("sweep sessions: %w", err)
	}
	return int(res.DeletedCount), nil
}

// EnsureIndexes creates the lookup indexes for the sessions collection.
func (r *SessionRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "session_id", Value: 1}}},
		{Keys: bson.D{{Key: "user.email", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "last_accessed", Value: 1}}},
	}
	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}
