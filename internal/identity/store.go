// Package identity persists user records and their unique login-key index in
// Redis.
//
// Layout:
//
//	user:{id}               hash of the record fields
//	user:index:{loginKey}   string holding {id}
//	users:all               set of every {id}
//
// A record and its index entry are created by one Lua script, so readers see
// either both or neither. All keys touched by the script must live on the same
// node; the store is meant for a single Redis instance or a primary/replica
// pair, not a sharded cluster.
package identity

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// createScript inserts the record only if neither the index entry nor the
// record key exist.
//
//	KEYS[1] index key, KEYS[2] record key, KEYS[3] users set
//	ARGV[1] id, ARGV[2:] record field/value pairs
var createScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
	return 0
end
if redis.call('EXISTS', KEYS[2]) == 1 then
	return -1
end
redis.call('HSET', KEYS[2], unpack(ARGV, 2))
redis.call('SET', KEYS[1], ARGV[1])
redis.call('SADD', KEYS[3], ARGV[1])
return 1
`)

const (
	createOK          = 1
	createKeyTaken    = 0
	createIDCollision = -1
)

// Options configures optional Store collaborators.
type Options struct {
	Logger *slog.Logger
	// OnDivergence is invoked whenever a lookup finds an index entry without a
	// matching record.
	OnDivergence func()
}

// Store is the Redis-backed identity store. It is safe for concurrent use.
type Store struct {
	client       *redis.Client
	logger       *slog.Logger
	onDivergence func()
	scanMembers  func(ctx context.Context, cursor uint64) ([]string, uint64, error)
}

// NewStore constructs a Store over an existing client. The client's lifetime
// is owned by the caller.
func NewStore(client *redis.Client, opts Options) *Store {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := &Store{client: client, logger: logger, onDivergence: opts.OnDivergence}
	s.scanMembers = func(ctx context.Context, cursor uint64) ([]string, uint64, error) {
		return client.SScan(ctx, allUsersKey, cursor, "", auditScanCount).Result()
	}
	return s
}

// Exists reports whether loginKey is already indexed.
func (s *Store) Exists(ctx context.Context, loginKey string) (bool, error) {
	n, err := s.client.Exists(ctx, indexKey(loginKey)).Result()
	if err != nil {
		return false, unavailable("exists", err)
	}
	return n == 1, nil
}

// Create atomically writes the record, its index entry and its users:all
// membership. The uniqueness check runs inside the same script, so concurrent
// callers racing on one login key get exactly one success; the rest receive
// ErrConflict.
func (s *Store) Create(ctx context.Context, rec UserRecord) error {
	if rec.ID == "" || rec.LoginKey == "" {
		return errors.New("identity: create: id and login key are required")
	}
	keys := []string{indexKey(rec.LoginKey), recordKey(rec.ID), allUsersKey}
	args := append([]any{rec.ID}, rec.fields()...)

	code, err := createScript.Run(ctx, s.client, keys, args...).Int()
	if err != nil {
		return unavailable("create", err)
	}
	switch code {
	case createOK:
		return nil
	case createKeyTaken:
		return ErrConflict
	case createIDCollision:
		return ErrIDCollision
	default:
		return fmt.Errorf("identity: create: unexpected script result %d", code)
	}
}

// FindByID loads the record stored under id.
func (s *Store) FindByID(ctx context.Context, id string) (UserRecord, error) {
	values, err := s.client.HGetAll(ctx, recordKey(id)).Result()
	if err != nil {
		return UserRecord{}, unavailable("find by id", err)
	}
	if len(values) == 0 {
		return UserRecord{}, ErrNotFound
	}
	return recordFromHash(values)
}

// FindByLoginKey resolves the index and loads the record. An index entry that
// points at a missing or mismatched record is logged and reported as
// ErrNotFound.
func (s *Store) FindByLoginKey(ctx context.Context, loginKey string) (UserRecord, error) {
	id, err := s.client.Get(ctx, indexKey(loginKey)).Result()
	if errors.Is(err, redis.Nil) {
		return UserRecord{}, ErrNotFound
	}
	if err != nil {
		return UserRecord{}, unavailable("find by login key", err)
	}

	rec, err := s.FindByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		s.divergence(ctx, loginKey, id, "record missing")
		return UserRecord{}, ErrNotFound
	}
	if err != nil {
		return UserRecord{}, err
	}
	if rec.LoginKey != loginKey {
		s.divergence(ctx, loginKey, id, "record login key mismatch")
		return UserRecord{}, ErrNotFound
	}
	return rec, nil
}

// Count returns the number of ids in users:all.
func (s *Store) Count(ctx context.Context) (int64, error) {
	n, err := s.client.SCard(ctx, allUsersKey).Result()
	if err != nil {
		return 0, unavailable("count", err)
	}
	return n, nil
}

// Ping checks connectivity to the backing store.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return unavailable("ping", err)
	}
	return nil
}

func (s *Store) divergence(ctx context.Context, loginKey, id, reason string) {
	// The login key is personal data; log the id only.
	s.logger.WarnContext(ctx, "identity index divergence",
		slog.String("user_id", id),
		slog.String("reason", reason),
		slog.Int("login_key_len", len(loginKey)),
	)
	if s.onDivergence != nil {
		s.onDivergence()
	}
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrUnavailable, op, err)
}
