package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neexbeast/skycast/internal/cache"
	"github.com/neexbeast/skycast/internal/weather"
)

func newTestCache(t *testing.T, namespace string) (*cache.SessionCache, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return cache.NewSessionCache(client, namespace), mr
}

func sampleSnapshot() weather.Snapshot {
	return weather.Snapshot{
		Location:    "Paris",
		Country:     "FR",
		Temperature: 22,
		Description: "Clear Sky",
		Humidity:    60,
		WindSpeed:   13,
		Visibility:  10,
		Pressure:    1018,
		Icon:        "01d",
	}
}

func TestSessionCache_SaveAndLoad(t *testing.T) {
	c, _ := newTestCache(t, "")
	ctx := context.Background()

	require.NoError(t, c.Save(ctx, "Paris", sampleSnapshot()))

	got, err := c.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Paris", got.LastSearchedQuery)
	require.NotNil(t, got.LastSnapshot)
	assert.Equal(t, sampleSnapshot(), *got.LastSnapshot)
}

func TestSessionCache_Load_Empty(t *testing.T) {
	c, _ := newTestCache(t, "")

	got, err := c.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got.LastSearchedQuery)
	assert.Nil(t, got.LastSnapshot, "empty cache should return an empty session")
}

func TestSessionCache_KeysAreNamespaced(t *testing.T) {
	c, mr := newTestCache(t, "device-42")
	require.NoError(t, c.Save(context.Background(), "Oslo", sampleSnapshot()))

	v, err := mr.Get("device-42:lastSearchedQuery")
	require.NoError(t, err)
	assert.Equal(t, "Oslo", v)
	assert.True(t, mr.Exists("device-42:lastSnapshot"))
}

func TestSessionCache_DefaultNamespace(t *testing.T) {
	c, mr := newTestCache(t, "  ")
	require.NoError(t, c.Save(context.Background(), "Oslo", sampleSnapshot()))
	assert.True(t, mr.Exists(cache.DefaultNamespace+":lastSearchedQuery"))
}

func TestSessionCache_Overwrite(t *testing.T) {
	c, _ := newTestCache(t, "")
	ctx := context.Background()

	require.NoError(t, c.Save(ctx, "Paris", sampleSnapshot()))
	rome := sampleSnapshot()
	rome.Location = "Rome"
	rome.Country = "IT"
	require.NoError(t, c.Save(ctx, "Rome", rome))

	got, err := c.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Rome", got.LastSearchedQuery)
	assert.Equal(t, "IT", got.LastSnapshot.Country)
}

func TestSessionCache_NoExpiry(t *testing.T) {
	c, mr := newTestCache(t, "")
	ctx := context.Background()

	require.NoError(t, c.Save(ctx, "Paris", sampleSnapshot()))
	mr.FastForward(30 * 24 * time.Hour)

	got, err := c.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Paris", got.LastSearchedQuery, "session entries must not expire")
}

func TestSessionCache_CorruptSnapshot(t *testing.T) {
	c, mr := newTestCache(t, "")
	require.NoError(t, mr.Set(cache.DefaultNamespace+":lastSnapshot", "not-json"))

	_, err := c.Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshaling")
}

func TestSessionCache_Clear(t *testing.T) {
	c, _ := newTestCache(t, "")
	ctx := context.Background()

	require.NoError(t, c.Save(ctx, "Paris", sampleSnapshot()))
	require.NoError(t, c.Clear(ctx))

	got, err := c.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, got.LastSnapshot)
}

func TestSessionCache_RedisDown(t *testing.T) {
	c, mr := newTestCache(t, "")
	mr.Close()

	_, err := c.Load(context.Background())
	require.Error(t, err)
	require.Error(t, c.Save(context.Background(), "Paris", sampleSnapshot()))
}

func TestConnect_InvalidURL(t *testing.T) {
	_, err := cache.Connect(context.Background(), "not-a-url")
	require.Error(t, err)
}

func TestConnect_UnreachableServer(t *testing.T) {
	_, err := cache.Connect(context.Background(), "redis://localhost:19999")
	require.Error(t, err)
}

func TestSessionCache_Identity(t *testing.T) {
	c, mr := newTestCache(t, "")
	ctx := context.Background()

	id, err := c.LoadIdentity(ctx)
	require.NoError(t, err)
	assert.Empty(t, id)

	require.NoError(t, c.SaveIdentity(ctx, "u1"))
	id, err = c.LoadIdentity(ctx)
	require.NoError(t, err)
	assert.Equal(t, "u1", id)
	assert.True(t, mr.Exists("weatherApp:user"))

	require.NoError(t, c.SaveIdentity(ctx, ""))
	id, err = c.LoadIdentity(ctx)
	require.NoError(t, err)
	assert.Empty(t, id)
}

func TestSessionCache_ClearKeepsIdentity(t *testing.T) {
	c, _ := newTestCache(t, "")
	ctx := context.Background()

	require.NoError(t, c.SaveIdentity(ctx, "u1"))
	require.NoError(t, c.Save(ctx, "Paris", sampleSnapshot()))
	require.NoError(t, c.Clear(ctx))

	id, err := c.LoadIdentity(ctx)
	require.NoError(t, err)
	assert.Equal(t, "u1", id)
}
