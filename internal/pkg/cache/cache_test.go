package cache

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	key := "evt:" + uuid.NewString()

	_, ok, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	first, err := s.SetNX(ctx, key, "1", time.Minute)
	require.NoError(t, err)
	assert.True(t, first)

	second, err := s.SetNX(ctx, key, "2", time.Minute)
	require.NoError(t, err)
	assert.False(t, second)

	value, ok, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "1", value)

	require.NoError(t, s.Set(ctx, key, "3", time.Minute))
	value, _, _ = s.Get(ctx, key)
	assert.Equal(t, "3", value)

	require.NoError(t, s.Delete(ctx, key))
	_, ok, _ = s.Get(ctx, key)
	assert.False(t, ok)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestMemoryStore_Expiry(t *testing.T) {
	s := NewMemoryStore()
	now := time.Now()
	s.now = func() time.Time { return now }
	ctx := context.Background()

	ok, _ := s.SetNX(ctx, "k", "v", time.Second)
	assert.True(t, ok)

	now = now.Add(2 * time.Second)
	_, present, _ := s.Get(ctx, "k")
	assert.False(t, present)

	ok, _ = s.SetNX(ctx, "k", "v", time.Second)
	assert.True(t, ok)
}

func TestMemoryStore_ConcurrentSetNX(t *testing.T) {
	s := NewMemoryStore()
	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, _ := s.SetNX(context.Background(), "evt_1", "1", time.Minute)
			if ok {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}

	client, err := Connect(context.Background(), RedisConfig{Addr: addr})
	require.NoError(t, err)
	defer client.Close()

	exerciseStore(t, NewRedisStore(client, "scholarstream:test:"))
}
