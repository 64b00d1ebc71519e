package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/arkevia/authinfo"
	"github.com/arkevia/authinfo/wire"
)

var (
	// ErrSessionNotFound is returned by Load when no session exists for
	// the identifier (or it already expired out of Redis).
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionCorrupt is returned when a stored blob fails to decode.
	ErrSessionCorrupt = errors.New("session corrupt")
	// ErrRedisUnavailable wraps Redis transport failures.
	ErrRedisUnavailable = errors.New("redis unavailable")
)

const minTTL = time.Second

// Config configures a [Store].
type Config struct {
	// Prefix namespaces the Redis keys. Defaults to "authinfo".
	Prefix string
	// DefaultTTL bounds sessions whose snapshot has no expiration (None
	// and Unsafe levels). Defaults to 24h.
	DefaultTTL time.Duration
}

// Store persists snapshots in Redis. Safe for concurrent use.
type Store struct {
	rdb    *redis.Client
	codec  *wire.Codec
	prefix string
	ttl    time.Duration
}

// NewStore builds a store over rdb, encoding through codec.
func NewStore(rdb *redis.Client, codec *wire.Codec, cfg Config) *Store {
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "authinfo"
	}
	ttl := cfg.DefaultTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Store{rdb: rdb, codec: codec, prefix: prefix, ttl: ttl}
}

// NewSessionID returns a fresh opaque session identifier.
func NewSessionID() string { return uuid.NewString() }

func (s *Store) key(sessionID string) string {
	return s.prefix + ":session:" + sessionID
}

// Save writes the snapshot under sessionID. The Redis TTL follows the
// snapshot expiration when one is set, clamped to at least one second;
// otherwise the store default applies.
func (s *Store) Save(ctx context.Context, sessionID string, info *authinfo.AuthenticationInfo, now time.Time) error {
	blob, err := s.codec.EncodeInfo(info)
	if err != nil {
		return err
	}
	ttl := s.ttl
	if info != nil && !info.Expires().IsZero() {
		ttl = info.Expires().Sub(now.UTC())
		if ttl < minTTL {
			ttl = minTTL
		}
	}
	if err := s.rdb.Set(ctx, s.key(sessionID), blob, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrRedisUnavailable, err)
	}
	return nil
}

// Load reads and decodes the snapshot stored under sessionID.
func (s *Store) Load(ctx context.Context, sessionID string) (*authinfo.AuthenticationInfo, error) {
	blob, err := s.rdb.Get(ctx, s.key(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRedisUnavailable, err)
	}
	info, err := s.codec.DecodeInfo(blob)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSessionCorrupt, err)
	}
	return info, nil
}

// Delete removes the session. Deleting an absent session is not an error.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	if err := s.rdb.Del(ctx, s.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrRedisUnavailable, err)
	}
	return nil
}

// Touch extends the session TTL without rewriting the blob. Returns
// ErrSessionNotFound when the session no longer exists.
func (s *Store) Touch(ctx context.Context, sessionID string, ttl time.Duration) error {
	if ttl < minTTL {
		ttl = minTTL
	}
	ok, err := s.rdb.Expire(ctx, s.key(sessionID), ttl).Result()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRedisUnavailable, err)
	}
	if !ok {
		return ErrSessionNotFound
	}
	return nil
}
