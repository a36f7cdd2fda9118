package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/convo/pkg/adapters/redis"
	"github.com/aretw0/convo/pkg/domain"
	"github.com/aretw0/convo/pkg/ports"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisStore_Contract(t *testing.T) {
	_, client := newClient(t)
	ports.RunStateStoreContract(t, redis.NewFromClient(client))
}

func TestRedisStore_FromURL(t *testing.T) {
	mr := miniredis.RunT(t)
	store, err := redis.New("redis://" + mr.Addr() + "/0")
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Ping(context.Background()))

	_, err = redis.New("not a url")
	assert.Error(t, err)
}

func TestRedisStore_TTL_Expiration(t *testing.T) {
	mr, client := newClient(t)
	store := redis.NewFromClient(client, redis.WithTTL(1*time.Second))
	ctx := context.Background()
	sessionID := "session-ttl"

	state := domain.NewState(sessionID, "greet")
	state.Variables["foo"] = "bar"
	require.NoError(t, store.Save(ctx, sessionID, state))

	sessions, err := store.List(ctx)
	require.NoError(t, err)
	assert.Contains(t, sessions, sessionID)

	mr.FastForward(2 * time.Second)

	_, err = store.Load(ctx, sessionID)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	// Index pruning compares against the wall clock, not miniredis time.
	time.Sleep(1200 * time.Millisecond)

	sessions, err = store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestRedisStore_IndexPrunedAtExpiry(t *testing.T) {
	_, client := newClient(t)
	clock := time.Date(2026, 3, 1, 12, 0, 0, 400*int(time.Millisecond), time.UTC)
	store := redis.NewFromClient(client,
		redis.WithTTL(1500*time.Millisecond),
		redis.WithClock(func() time.Time { return clock }),
	)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "short", domain.NewState("short", "greet")))

	clock = clock.Add(1499 * time.Millisecond)
	sessions, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"short"}, sessions)

	// Sub-second precision: the entry must go as soon as the TTL elapses.
	clock = clock.Add(time.Millisecond)
	sessions, err = store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestRedisStore_Prefix(t *testing.T) {
	mr, client := newClient(t)
	store := redis.NewFromClient(client, redis.WithPrefix("custom:app:"))
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "my-session", domain.NewState("my-session", "greet")))

	assert.True(t, mr.Exists("custom:app:state:my-session"))
	assert.True(t, mr.Exists("custom:app:index"))

	list, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"my-session"}, list)
}
