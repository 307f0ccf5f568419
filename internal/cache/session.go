package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"github.com/neexbeast/skycast/internal/weather"
)

const (
	DefaultNamespace = "weatherApp"

	lastSearchedKey = "lastSearchedQuery"
	lastSnapshotKey = "lastSnapshot"
	userKey         = "user"
)

// SessionCache persists the last searched query and its snapshot in Redis.
// Entries have no TTL: the session survives restarts until overwritten.
type SessionCache struct {
	client    *redis.Client
	namespace string
}

// NewSessionCache constructs a SessionCache. An empty namespace uses DefaultNamespace.
func NewSessionCache(client *redis.Client, namespace string) *SessionCache {
	namespace = strings.TrimSpace(namespace)
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return &SessionCache{client: client, namespace: namespace}
}

func (c *SessionCache) key(name string) string {
	return c.namespace + ":" + name
}

// Load reads the stored session. Missing keys yield empty fields, not errors.
func (c *SessionCache) Load(ctx context.Context) (weather.Session, error) {
	var session weather.Session

	vals, err := c.client.MGet(ctx, c.key(lastSearchedKey), c.key(lastSnapshotKey)).Result()
	if err != nil {
		return session, fmt.Errorf("session cache get: %w", err)
	}

	if s, ok := vals[0].(string); ok {
		session.LastSearchedQuery = s
	}

	if raw, ok := vals[1].(string); ok {
		var snap weather.Snapshot
		if err := json.Unmarshal([]byte(raw), &snap); err != nil {
			return session, fmt.Errorf("unmarshaling cached snapshot: %w", err)
		}
		session.LastSnapshot = &snap
	}

	return session, nil
}

// Save overwrites both the last searched query and the snapshot.
func (c *SessionCache) Save(ctx context.Context, query string, snap weather.Snapshot) error {
	b, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshaling snapshot for %s: %w", query, err)
	}

	_, err = c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, c.key(lastSearchedKey), query, 0)
		pipe.Set(ctx, c.key(lastSnapshotKey), b, 0)
		return nil
	})
	if err != nil {
		return fmt.Errorf("session cache set for %s: %w", query, err)
	}

	return nil
}

// Clear removes the stored session.
func (c *SessionCache) Clear(ctx context.Context) error {
	if err := c.client.Del(ctx, c.key(lastSearchedKey), c.key(lastSnapshotKey)).Err(); err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("session cache delete: %w", err)
	}
	return nil
}

// LoadIdentity returns the stored identity id, or "" when signed out.
func (c *SessionCache) LoadIdentity(ctx context.Context) (string, error) {
	id, err := c.client.Get(ctx, c.key(userKey)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("session cache get identity: %w", err)
	}
	return id, nil
}

// SaveIdentity stores id; an empty id removes the stored identity.
func (c *SessionCache) SaveIdentity(ctx context.Context, id string) error {
	var err error
	if id == "" {
		err = c.client.Del(ctx, c.key(userKey)).Err()
	} else {
		err = c.client.Set(ctx, c.key(userKey), id, 0).Err()
	}
	if err != nil {
		return fmt.Errorf("session cache set identity: %w", err)
	}
	return nil
}
