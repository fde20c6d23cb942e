package shipping

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborline/harborline/internal/platform/cache"
)

func TestDashboardCacheSharesConcurrentBuilds(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	dc := NewDashboardCache(cache.NewVersioned(client, "shipping:dashboard", time.Minute))

	var builds atomic.Int32
	release := make(chan struct{})
	build := func(context.Context) (DashboardResponse, error) {
		builds.Add(1)
		<-release
		return DashboardResponse{SummaryStats: SummaryStatsResponse{TotalShipments: 4}}, nil
	}

	var wg sync.WaitGroup
	results := make([]DashboardResponse, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, _, err := dc.Fetch(context.Background(), 1, build)
			assert.NoError(t, err)
			results[i] = resp
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), builds.Load())
	for _, r := range results {
		assert.Equal(t, 4, r.SummaryStats.TotalShipments)
	}
	assert.True(t, mr.Exists("shipping:dashboard:institute:1:1"))
}

func TestDashboardCacheInvalidate(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	dc := NewDashboardCache(cache.NewVersioned(client, "shipping:dashboard", time.Minute))

	calls := 0
	build := func(context.Context) (DashboardResponse, error) {
		calls++
		return DashboardResponse{SummaryStats: SummaryStatsResponse{TotalShipments: calls}}, nil
	}

	first, _, err := dc.Fetch(context.Background(), 1, build)
	require.NoError(t, err)
	again, _, err := dc.Fetch(context.Background(), 1, build)
	require.NoError(t, err)
	assert.Equal(t, first, again)

	require.NoError(t, dc.Invalidate(context.Background()))
	fresh, _, err := dc.Fetch(context.Background(), 1, build)
	require.NoError(t, err)
	assert.Equal(t, 2, fresh.SummaryStats.TotalShipments)

	// Institutes are cached independently.
	other, _, err := dc.Fetch(context.Background(), 2, build)
	require.NoError(t, err)
	assert.Equal(t, 3, other.SummaryStats.TotalShipments)
}

func TestDashboardCacheWithoutStore(t *testing.T) {
	dc := NewDashboardCache(nil)
	calls := 0
	build := func(context.Context) (DashboardResponse, error) {
		calls++
		return DashboardResponse{}, nil
	}
	for i := 0; i < 2; i++ {
		_, _, err := dc.Fetch(context.Background(), 1, build)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, calls)
	assert.NoError(t, dc.Invalidate(context.Background()))
}

func TestDashboardCacheHonoursContext(t *testing.T) {
	dc := NewDashboardCache(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	block := make(chan struct{})
	defer close(block)

	_, _, err := dc.Fetch(ctx, 1, func(context.Context) (DashboardResponse, error) {
		<-block
		return DashboardResponse{}, nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDashboardCacheLeaderCancelDoesNotFailFollowers(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	dc := NewDashboardCache(cache.NewVersioned(client, "shipping:dashboard", time.Minute))

	started := make(chan struct{})
	release := make(chan struct{})
	build := func(ctx context.Context) (DashboardResponse, error) {
		close(started)
		<-release
		if err := ctx.Err(); err != nil {
			return DashboardResponse{}, err
		}
		return DashboardResponse{SummaryStats: SummaryStatsResponse{TotalShipments: 7}}, nil
	}

	leaderCtx, cancelLeader := context.WithCancel(context.Background())
	leaderErr := make(chan error, 1)
	go func() {
		_, _, err := dc.Fetch(leaderCtx, 1, build)
		leaderErr <- err
	}()
	<-started

	type outcome struct {
		resp DashboardResponse
		err  error
	}
	follower := make(chan outcome, 1)
	go func() {
		resp, _, err := dc.Fetch(context.Background(), 1, build)
		follower <- outcome{resp, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancelLeader()
	assert.ErrorIs(t, <-leaderErr, context.Canceled)
	close(release)

	got := <-follower
	require.NoError(t, got.err)
	assert.Equal(t, 7, got.resp.SummaryStats.TotalShipments)
}
