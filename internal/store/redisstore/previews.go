// Package redisstore keeps import previews in Redis so that analyze and
// commit requests can land on different server instances.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/JonMunkholm/attendee-import/internal/core"
)

// DefaultKeyPrefix namespaces preview keys.
const DefaultKeyPrefix = "import:preview:"

// PreviewStore implements core.PreviewStore. Expiry is left to Redis.
type PreviewStore struct {
	client redis.UniversalClient
	ttl    time.Duration
	prefix string
}

// NewPreviewStore creates a store whose previews expire after ttl.
// An empty prefix selects DefaultKeyPrefix.
func NewPreviewStore(client redis.UniversalClient, prefix string, ttl time.Duration) *PreviewStore {
	if ttl <= 0 {
		ttl = core.DefaultPreviewTTL
	}
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &PreviewStore{client: client, ttl: ttl, prefix: prefix}
}

// Connect parses a redis:// URL and pings the server.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func (s *PreviewStore) key(id string) string {
	return s.prefix + id
}

func (s *PreviewStore) Save(ctx context.Context, a *core.Analysis) error {
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("encode preview: %w", err)
	}
	if err := s.client.Set(ctx, s.key(a.ID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("save preview: %w", err)
	}
	return nil
}

func (s *PreviewStore) Load(ctx context.Context, id string) (*core.Analysis, error) {
	data, err := s.client.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, core.ErrPreviewNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load preview: %w", err)
	}

	var a core.Analysis
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("decode preview: %w", err)
	}
	return &a, nil
}

func (s *PreviewStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, s.key(id)).Err(); err != nil {
		return fmt.Errorf("delete preview: %w", err)
	}
	return nil
}

var _ core.PreviewStore = (*PreviewStore)(nil)
