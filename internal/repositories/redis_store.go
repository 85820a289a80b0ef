package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/desertthunder/xtrobe/internal/models"
	"github.com/desertthunder/xtrobe/internal/shared"
)

const maxWatchRetries = 5

// RedisDocumentStore implements [models.DocumentStore] and [models.BatchWriter] on Redis.
//
// Documents live at {prefix}:doc:{collection}:{id} as JSON; {prefix}:col:{collection} is a set of ids.
type RedisDocumentStore struct {
	client *redis.Client
	prefix string
}

type redisDocument struct {
	Fields    map[string]any `json:"fields"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// NewRedisDocumentStore connects to Redis and verifies the connection with PING.
func NewRedisDocumentStore(ctx context.Context, cfg shared.RedisConfig) (*RedisDocumentStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, unavailable("redis ping", err)
	}

	return NewRedisDocumentStoreWithClient(client, cfg.Prefix), nil
}

// NewRedisDocumentStoreWithClient wraps an existing client. An empty prefix defaults to "xtrobe".
func NewRedisDocumentStoreWithClient(client *redis.Client, prefix string) *RedisDocumentStore {
	if prefix == "" {
		prefix = "xtrobe"
	}
	return &RedisDocumentStore{client: client, prefix: prefix}
}

func (s *RedisDocumentStore) docKey(collection, id string) string {
	return fmt.Sprintf("%s:doc:%s:%s", s.prefix, collection, id)
}

func (s *RedisDocumentStore) colKey(collection string) string {
	return fmt.Sprintf("%s:col:%s", s.prefix, collection)
}

func (s *RedisDocumentStore) Get(ctx context.Context, collection, id string) (*models.Document, error) {
	data, err := s.client.Get(ctx, s.docKey(collection, id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, notFound(collection, id)
	}
	if err != nil {
		return nil, unavailable("get", err)
	}
	return decodeRedisDocument(collection, id, data)
}

func (s *RedisDocumentStore) Set(ctx context.Context, collection, id string, fields map[string]any, opts models.SetOptions) error {
	return s.SetAll(ctx, []models.Write{{Collection: collection, ID: id, Fields: fields, Options: opts}})
}

// SetAll writes every document in one MULTI/EXEC.
//
// Keys of merge writes are WATCHed; a concurrent change aborts the transaction and it is retried.
func (s *RedisDocumentStore) SetAll(ctx context.Context, writes []models.Write) error {
	if len(writes) == 0 {
		return nil
	}

	var watched []string
	for _, w := range writes {
		if w.Options.Merge {
			watched = append(watched, s.docKey(w.Collection, w.ID))
		}
	}

	txf := func(tx *redis.Tx) error {
		now := time.Now().UTC()
		values := make([][]byte, len(writes))
		for i, w := range writes {
			fields := w.Fields
			if w.Options.Merge {
				current, err := tx.Get(ctx, s.docKey(w.Collection, w.ID)).Bytes()
				switch {
				case errors.Is(err, redis.Nil):
				case err != nil:
					return unavailable("read for merge", err)
				default:
					existing, err := decodeRedisDocument(w.Collection, w.ID, current)
					if err != nil {
						return err
					}
					fields = mergeFields(existing.Fields, w.Fields)
				}
			}

			if fields == nil {
				fields = map[string]any{}
			}
			data, err := json.Marshal(redisDocument{Fields: fields, UpdatedAt: now})
			if err != nil {
				return fmt.Errorf("%w: fields are not JSON encodable: %v", shared.ErrInvalidInput, err)
			}
			values[i] = data
		}

		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for i, w := range writes {
				pipe.Set(ctx, s.docKey(w.Collection, w.ID), values[i], 0)
				pipe.SAdd(ctx, s.colKey(w.Collection), w.ID)
			}
			return nil
		})
		return err
	}

	for attempt := 0; attempt < maxWatchRetries; attempt++ {
		err := s.client.Watch(ctx, txf, watched...)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			if errors.Is(err, shared.ErrStoreUnavailable) || errors.Is(err, shared.ErrInvalidInput) {
				return err
			}
			return unavailable("set", err)
		}
		return nil
	}
	return unavailable("set", fmt.Errorf("transaction conflicted %d times", maxWatchRetries))
}

func (s *RedisDocumentStore) List(ctx context.Context, collection string) ([]*models.Document, error) {
	ids, err := s.client.SMembers(ctx, s.colKey(collection)).Result()
	if err != nil {
		return nil, unavailable("list", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	sort.Strings(ids)

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.docKey(collection, id)
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, unavailable("list", err)
	}

	docs := make([]*models.Document, 0, len(values))
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		doc, err := decodeRedisDocument(collection, ids[i], []byte(raw))
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// Close closes the Redis client.
func (s *RedisDocumentStore) Close() error {
	return s.client.Close()
}

func decodeRedisDocument(collection, id string, data []byte) (*models.Document, error) {
	var stored redisDocument
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("failed to decode document %s/%s: %w", collection, id, err)
	}
	if stored.Fields == nil {
		stored.Fields = map[string]any{}
	}
	return &models.Document{Collection: collection, ID: id, Fields: stored.Fields, UpdatedAt: stored.UpdatedAt}, nil
}
