package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hyperjump/ragpipe/internal/models"
)

// RedisOptions configures a RedisStore.
type RedisOptions struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
	// TTL expires artifacts; zero keeps them forever.
	TTL time.Duration
}

// RedisStore keeps chunk and embedding artifacts as JSON values under
// <prefix>:doc:<id>:chunks and <prefix>:doc:<id>:embeddings.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore connects and pings the server.
func NewRedisStore(ctx context.Context, opts RedisOptions) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return NewRedisStoreFromClient(rdb, opts.KeyPrefix, opts.TTL), nil
}

// NewRedisStoreFromClient wraps an existing client.
func NewRedisStoreFromClient(rdb *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = "ragpipe"
	}
	return &RedisStore{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (s *RedisStore) key(docID, kind string) string {
	return s.prefix + ":doc:" + docID + ":" + kind
}

func (s *RedisStore) set(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	return s.rdb.Set(ctx, key, data, s.ttl).Err()
}

// get decodes key into v and reports whether it existed.
func (s *RedisStore) get(ctx context.Context, key string, v any) (bool, error) {
	data, err := s.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("failed to unmarshal %s: %w", key, err)
	}
	return true, nil
}

func (s *RedisStore) SaveChunks(ctx context.Context, docID string, chunks []*models.Chunk) error {
	return s.set(ctx, s.key(docID, "chunks"), emptyIfNil(chunks))
}

func (s *RedisStore) LoadChunks(ctx context.Context, docID string) ([]*models.Chunk, error) {
	var chunks []*models.Chunk
	ok, err := s.get(ctx, s.key(docID, "chunks"), &chunks)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, notFound("load_chunks", docID, "chunks")
	}
	return emptyIfNil(chunks), nil
}

func (s *RedisStore) DeleteChunks(ctx context.Context, docID string) error {
	return s.rdb.Del(ctx, s.key(docID, "chunks"), s.key(docID, "embeddings")).Err()
}

func (s *RedisStore) SaveEmbeddings(ctx context.Context, docID string, embeddings [][]float32) error {
	if embeddings == nil {
		embeddings = [][]float32{}
	}
	return s.set(ctx, s.key(docID, "embeddings"), embeddings)
}

func (s *RedisStore) LoadEmbeddings(ctx context.Context, docID string) ([][]float32, error) {
	var out [][]float32
	ok, err := s.get(ctx, s.key(docID, "embeddings"), &out)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, notFound("load_embeddings", docID, "embeddings")
	}
	if out == nil {
		out = [][]float32{}
	}
	return out, nil
}

// ListDocuments scans for chunk keys under the prefix.
func (s *RedisStore) ListDocuments(ctx context.Context) ([]string, error) {
	head, tail := s.prefix+":doc:", ":chunks"
	ids := []string{}
	iter := s.rdb.Scan(ctx, 0, head+"*"+tail, 100).Iterator()
	for iter.Next(ctx) {
		ids = append(ids, strings.TrimSuffix(strings.TrimPrefix(iter.Val(), head), tail))
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
