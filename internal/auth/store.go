package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

var ErrRefreshTokenInvalid = errors.New("refresh token invalid or expired")

// Grant is the room identity a refresh token renews.
type Grant struct {
	RoomID   string `json:"room_id"`
	Identity string `json:"identity"`
	Name     string `json:"name"`
}

type refreshRecord struct {
	SecretHash []byte `json:"secret_hash"`
	Grant      Grant  `json:"grant"`
}

// RefreshStore keeps refresh tokens in redis, hashed at rest. Tokens are
// "<id>.<secret>": the id locates the record, the secret is bcrypt-compared.
// Redeeming a token deletes it, so each refresh token works exactly once.
type RefreshStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRefreshStore creates a store with the given refresh token lifetime.
func NewRefreshStore(rdb *redis.Client, ttl time.Duration) *RefreshStore {
	return &RefreshStore{rdb: rdb, ttl: ttl}
}

func refreshKey(id string) string { return "meet:refresh:" + id }

// Issue creates and persists a new refresh token for a grant.
func (s *RefreshStore) Issue(ctx context.Context, grant Grant) (string, error) {
	id := uuid.New().String()
	secret := uuid.New().String()

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash refresh secret: %w", err)
	}
	record, err := json.Marshal(refreshRecord{SecretHash: hash, Grant: grant})
	if err != nil {
		return "", fmt.Errorf("marshal refresh record: %w", err)
	}
	if err := s.rdb.Set(ctx, refreshKey(id), record, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("store refresh token: %w", err)
	}
	return id + "." + secret, nil
}

// Redeem validates and consumes a refresh token, returning its grant. The
// caller is expected to Issue a replacement (rotation).
func (s *RefreshStore) Redeem(ctx context.Context, token string) (*Grant, error) {
	id, secret, ok := strings.Cut(token, ".")
	if !ok || id == "" || secret == "" {
		return nil, ErrRefreshTokenInvalid
	}

	raw, err := s.rdb.Get(ctx, refreshKey(id)).Bytes()
	if err == redis.Nil {
		return nil, ErrRefreshTokenInvalid
	}
	if err != nil {
		return nil, fmt.Errorf("load refresh token: %w", err)
	}

	var record refreshRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, fmt.Errorf("unmarshal refresh record: %w", err)
	}
	if bcrypt.CompareHashAndPassword(record.SecretHash, []byte(secret)) != nil {
		return nil, ErrRefreshTokenInvalid
	}

	// Single use: a redeemed token never works twice.
	if err := s.rdb.Del(ctx, refreshKey(id)).Err(); err != nil {
		return nil, fmt.Errorf("consume refresh token: %w", err)
	}
	return &record.Grant, nil
}
