package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "idemp:overtime:"

// ProvisionalLockTTL bounds how long an unfinished request holds its key.
const ProvisionalLockTTL = 60 * time.Second

var ErrNotFound = errors.New("idempotency entry not found")

// Entry is the stored state of one idempotent request.
type Entry struct {
	InProgress  bool      `json:"in_progress"`
	Code        int       `json:"code"`
	ContentType string    `json:"content_type,omitempty"`
	Body        []byte    `json:"body,omitempty"`
	BodySHA256  string    `json:"body_sha256"`
	CreatedAt   time.Time `json:"created_at"`
}

// Replayable reports whether the entry holds a finished response.
func (e Entry) Replayable() bool {
	return !e.InProgress && e.Code != 0
}

// Store keeps idempotency entries in Redis.
type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewStore(rdb *redis.Client, ttl time.Duration) *Store {
	return &Store{rdb: rdb, ttl: ttl}
}

// Reserve stores entry under key only if the key is free. It returns false when another
// request already owns the key.
func (s *Store) Reserve(ctx context.Context, key string, entry Entry) (bool, error) {
	payload, err := json.Marshal(entry)
	if err != nil {
		return false, fmt.Errorf("marshal idempotency entry: %w", err)
	}
	return s.rdb.SetNX(ctx, key, payload, ProvisionalLockTTL).Result()
}

func (s *Store) Load(ctx context.Context, key string) (Entry, error) {
	var e Entry
	v, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return e, ErrNotFound
		}
		return e, err
	}
	if err := json.Unmarshal(v, &e); err != nil {
		return e, fmt.Errorf("decode idempotency entry: %w", err)
	}
	return e, nil
}

// Complete overwrites the provisional entry with the final response for the configured TTL.
func (s *Store) Complete(ctx context.Context, key string, entry Entry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal idempotency entry: %w", err)
	}
	return s.rdb.Set(ctx, key, payload, s.ttl).Err()
}

// Release drops a key so the client may retry, used when the handler failed transiently.
func (s *Store) Release(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, key).Err()
}

// BuildKey scopes a client key to method, route and caller.
func BuildKey(method, route, userID, clientKey string) string {
	return keyPrefix + strings.ToLower(method) + ":" + route + ":" + userID + ":" + clientKey
}

func BodyHash(b []byte) string {
	s := sha256.Sum256(b)
	return hex.EncodeToString(s[:])
}

// ValidKey accepts 8 to 128 characters of letters, digits, '-' and '_'.
func ValidKey(k string) bool {
	if len(k) < 8 || len(k) > 128 {
		return false
	}
	for _, r := range k {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}
