package shipping

import (
	"context"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/harborline/harborline/internal/platform/cache"
)

// dashboardBuildTimeout bounds a shared build once it is detached from the
// caller that started it.
const dashboardBuildTimeout = 30 * time.Second

// DashboardCache memoises dashboard folds per institute. Concurrent misses
// for the same institute share one build.
type DashboardCache struct {
	store *cache.Versioned
	group singleflight.Group
}

// NewDashboardCache wraps a versioned store. A nil store disables caching but
// keeps build deduplication.
func NewDashboardCache(store *cache.Versioned) *DashboardCache {
	return &DashboardCache{store: store}
}

// Fetch returns the cached dashboard for the institute or builds it. shared
// reports whether the result came from another caller's in-flight build.
// The build outlives the caller that started it, so one caller giving up
// does not fail the others waiting on the same institute.
func (c *DashboardCache) Fetch(ctx context.Context, instituteID int64, build func(context.Context) (DashboardResponse, error)) (DashboardResponse, bool, error) {
	institute := strconv.FormatInt(instituteID, 10)
	ch := c.group.DoChan(institute, func() (interface{}, error) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), dashboardBuildTimeout)
		defer cancel()
		key, err := c.store.BuildKey(ctx, "institute", institute)
		if err != nil {
			return nil, err
		}
		var resp DashboardResponse
		err = c.store.FetchJSON(ctx, key, &resp, func(ctx context.Context) (interface{}, error) {
			return build(ctx)
		})
		return resp, err
	})
	select {
	case <-ctx.Done():
		return DashboardResponse{}, false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return DashboardResponse{}, res.Shared, res.Err
		}
		return res.Val.(DashboardResponse), res.Shared, nil
	}
}

// Invalidate orphans every cached dashboard.
func (c *DashboardCache) Invalidate(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.store.Bump(ctx)
}
