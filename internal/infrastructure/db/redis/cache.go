package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/onepwr/procurement-tracker/internal/core/domain"
)

// Key layout:
//   sess:<session_id>        → JSON user snapshot, session TTL
//   resv:user:<email>        → reserved identifier, reservation TTL
//   resv:num:<identifier>    → owning email, reservation TTL
const (
	sessionKeyPrefix    = "sess:"
	reservationUserPrefix = "resv:user:"
	reservationNumPrefix  = "resv:num:"
)

// SessionCache is the ephemeral session tier. Entries expire after the
// session TTL independent of the durable row's state.
type SessionCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSessionCache(client *redis.Client, ttl time.Duration) *SessionCache {
	return &SessionCache{client: client, ttl: ttl}
}

// Get returns the cached snapshot, nil on miss.
func (c *SessionCache) Get(ctx context.Context, sessionID string) (*domain.UserSnapshot, error) {
	raw, err := c.client.Get(ctx, sessionKeyPrefix+sessionID).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("session cache get: %w", err)
	}
	var snap domain.UserSnapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		// A corrupt entry is dropped rather than served.
		_ = c.client.Del(ctx, sessionKeyPrefix+sessionID).Err()
		return nil, nil
	}
	return &snap, nil
}

func (c *SessionCache) Put(ctx context.Context, sessionID string, user domain.UserSnapshot) error {
	payload, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("session cache encode: %w", err)
	}
	return c.client.Set(ctx, sessionKeyPrefix+sessionID, payload, c.ttl).Err()
}

// Extend re-arms the TTL. Missing keys are not an error: the entry may have
// been evicted between Get and Extend.
func (c *SessionCache) Extend(ctx context.Context, sessionID string) error {
	return c.client.Expire(ctx, sessionKeyPrefix+sessionID, c.ttl).Err()
}

func (c *SessionCache) Remove(ctx context.Context, sessionID string) error {
	return c.client.Del(ctx, sessionKeyPrefix+sessionID).Err()
}

// ReservationCache holds uncommitted identifier reservations: one key per
// acting user and one per number, both expiring together.
type ReservationCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewReservationCache(client *redis.Client, ttl time.Duration) *ReservationCache {
	return &ReservationCache{client: client, ttl: ttl}
}

// GetActor returns the identifier currently held for an actor, "" on miss.
func (c *ReservationCache) GetActor(ctx context.Context, actorEmail string) (domain.Identifier, error) {
	raw, err := c.client.Get(ctx, reservationUserPrefix+normalizeEmail(actorEmail)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reservation get: %w", err)
	}
	return domain.Identifier(raw), nil
}

// PutActor stores both reservation keys in one round trip.
func (c *ReservationCache) PutActor(ctx context.Context, actorEmail string, id domain.Identifier) error {
	pipe := c.client.TxPipeline()
	pipe.Set(ctx, reservationUserPrefix+normalizeEmail(actorEmail), string(id), c.ttl)
	pipe.Set(ctx, reservationNumPrefix+string(id), normalizeEmail(actorEmail), c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("reservation put: %w", err)
	}
	return nil
}

// Reserved reports whether the number has a live reservation.
func (c *ReservationCache) Reserved(ctx context.Context, id domain.Identifier) (bool, error) {
	n, err := c.client.Exists(ctx, reservationNumPrefix+string(id)).Result()
	if err != nil {
		return false, fmt.Errorf("reservation check: %w", err)
	}
	return n > 0, nil
}

// Release drops the number key and, when the actor still holds this exact
// identifier, the actor key too.
func (c *ReservationCache) Release(ctx context.Context, actorEmail string, id domain.Identifier) error {
	if err := c.client.Del(ctx, reservationNumPrefix+string(id)).Err(); err != nil {
		return fmt.Errorf("reservation release: %w", err)
	}
	userKey := reservationUserPrefix + normalizeEmail(actorEmail)
	held, err := c.client.Get(ctx, userKey).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reservation release: %w", err)
	}
	if held == string(id) {
		return c.client.Del(ctx, userKey).Err()
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
