package cache

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*Versioned, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewVersioned(client, "ledger", time.Minute), srv
}

func TestFetchJSONCachesUntilBump(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t)
	calls := 0
	loader := func(context.Context) (any, error) {
		calls++
		return map[string]int{"calls": calls}, nil
	}

	key, err := c.BuildKey(ctx, "budget", "line-1")
	require.NoError(t, err)
	var out map[string]int
	require.NoError(t, c.FetchJSON(ctx, key, &out, loader))
	require.NoError(t, c.FetchJSON(ctx, key, &out, loader))
	require.Equal(t, 1, calls)
	require.Equal(t, 1, out["calls"])

	require.NoError(t, c.LedgerChanged(ctx))
	key2, err := c.BuildKey(ctx, "budget", "line-1")
	require.NoError(t, err)
	require.NotEqual(t, key, key2)
	require.NoError(t, c.FetchJSON(ctx, key2, &out, loader))
	require.Equal(t, 2, calls)
}

func TestNilClientPassesThrough(t *testing.T) {
	c := NewVersioned(nil, "ledger", time.Minute)
	key, err := c.BuildKey(context.Background(), "a", "b")
	require.NoError(t, err)
	require.Equal(t, "a:b", key)
	var out string
	require.NoError(t, c.FetchJSON(context.Background(), key, &out, func(context.Context) (any, error) { return "x", nil }))
	require.Equal(t, "x", out)
	require.NoError(t, c.Bump(context.Background()))
}

func TestVersionInitialises(t *testing.T) {
	c, srv := newTestCache(t)
	ver, err := c.Version(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 1, ver)
	got, err := srv.Get("ledger:version")
	require.NoError(t, err)
	require.Equal(t, "1", got)
}

func TestFetchJSONSurvivesLeaderCancellation(t *testing.T) {
	c, _ := newTestCache(t)
	key, err := c.BuildKey(context.Background(), "budget", "line-2")
	require.NoError(t, err)

	var calls atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})
	loader := func(ctx context.Context) (any, error) {
		calls.Add(1)
		close(started)
		<-release
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return map[string]string{"actual": "125.5"}, nil
	}

	leaderCtx, cancel := context.WithCancel(context.Background())
	leaderErr := make(chan error, 1)
	go func() {
		var out map[string]string
		leaderErr <- c.FetchJSON(leaderCtx, key, &out, loader)
	}()
	<-started

	followerErr := make(chan error, 1)
	var follower map[string]string
	go func() {
		followerErr <- c.FetchJSON(context.Background(), key, &follower, loader)
	}()
	time.Sleep(20 * time.Millisecond)

	cancel()
	require.ErrorIs(t, <-leaderErr, context.Canceled)
	close(release)

	require.NoError(t, <-followerErr)
	require.Equal(t, "125.5", follower["actual"])
	require.EqualValues(t, 1, calls.Load())
}
