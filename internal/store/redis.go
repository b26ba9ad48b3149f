package store

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
)

// Redis stores each record as a hash {version, data} under
// "<namespace>:<collection>/<id>". Conditional writes run inside a
// WATCH/MULTI optimistic transaction: if the key changes between the version
// read and the EXEC, go-redis reports TxFailedErr and the put surfaces
// ErrVersionConflict.
type Redis struct {
	rdb       *redis.Client
	namespace string
}

var _ Store = (*Redis)(nil)

// NewRedis creates and validates a go-redis backed store.
func NewRedis(redisURL, namespace string) (*Redis, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}
	if namespace == "" {
		namespace = "sellsmart"
	}
	return &Redis{rdb: rdb, namespace: namespace}, nil
}

// NewRedisWithClient wraps an existing client (shared with the import lock).
func NewRedisWithClient(rdb *redis.Client, namespace string) *Redis {
	if namespace == "" {
		namespace = "sellsmart"
	}
	return &Redis{rdb: rdb, namespace: namespace}
}

// Client exposes the underlying connection so callers can layer redislock on
// the same pool.
func (s *Redis) Client() *redis.Client { return s.rdb }

func (s *Redis) key(collection, id string) string {
	return s.namespace + ":" + collection + "/" + id
}

func (s *Redis) Get(ctx context.Context, collection, id string, out any) (int64, error) {
	vals, err := s.rdb.HMGet(ctx, s.key(collection, id), "version", "data").Result()
	if err != nil {
		return 0, err
	}
	if vals[0] == nil || vals[1] == nil {
		return 0, ErrNotFound
	}

	verStr, _ := vals[0].(string)
	version, err := strconv.ParseInt(verStr, 10, 64)
	if err != nil {
		return 0, err
	}
	data, _ := vals[1].(string)

	if err := json.Unmarshal([]byte(data), out); err != nil {
		return 0, err
	}
	return version, nil
}

func (s *Redis) Put(ctx context.Context, collection, id string, doc any, expectedVersion int64) (int64, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return 0, err
	}
	key := s.key(collection, id)
	next := expectedVersion + 1

	txf := func(tx *redis.Tx) error {
		current, err := tx.HGet(ctx, key, "version").Int64()
		switch {
		case errors.Is(err, redis.Nil):
			current = VersionNew
		case err != nil:
			return err
		}
		if current != expectedVersion {
			return ErrVersionConflict
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, "version", next, "data", data)
			return nil
		})
		return err
	}

	err = s.rdb.Watch(ctx, txf, key)
	if errors.Is(err, redis.TxFailedErr) {
		// key changed between WATCH and EXEC — same outcome as a stale version
		return 0, ErrVersionConflict
	}
	if err != nil {
		return 0, err
	}
	return next, nil
}

func (s *Redis) List(ctx context.Context, collection, prefix string, fn func(id string, raw json.RawMessage) error) error {
	keyPrefix := s.namespace + ":" + collection + "/"
	match := keyPrefix + escapeGlob(prefix) + "*"

	var keys []string
	iter := s.rdb.Scan(ctx, 0, match, 256).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	sort.Strings(keys)

	for _, key := range keys {
		data, err := s.rdb.HGet(ctx, key, "data").Result()
		if errors.Is(err, redis.Nil) {
			continue // deleted between SCAN and read
		}
		if err != nil {
			return err
		}
		if err := fn(strings.TrimPrefix(key, keyPrefix), json.RawMessage(data)); err != nil {
			return err
		}
	}
	return nil
}

func (s *Redis) Close(ctx context.Context) error { return s.rdb.Close() }

// escapeGlob quotes the characters SCAN MATCH treats specially.
func escapeGlob(s string) string {
	r := strings.NewReplacer(`*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`, `\`, `\\`)
	return r.Replace(s)
}
