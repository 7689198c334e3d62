package folio

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// PublishResult reports one scheduled-publisher run.
type PublishResult struct {
	Published []PublishedRef
	// CacheInvalidated reports the best-effort post-commit side effect
	// separately from the publish outcome itself.
	CacheInvalidated bool
}

// Count returns how many posts the run published.
func (r *PublishResult) Count() int {
	return len(r.Published)
}

// PublishDue publishes every post whose scheduled time has elapsed as of
// now, then invalidates the post cache. The store flip is a single
// transaction and the due-post query excludes already-published posts, so
// redundant or concurrent invocations are no-ops. A persistence error
// aborts the whole run; unpublished due posts simply remain matched for
// the next invocation.
func (a *App) PublishDue(now time.Time) (*PublishResult, error) {
	published, err := a.Store.PublishDue(now)
	if err != nil {
		return nil, fmt.Errorf("folio: publish due posts: %w", err)
	}
	res := &PublishResult{Published: published}
	if len(published) > 0 {
		a.Cache.Invalidate()
		res.CacheInvalidated = true
	}
	return res, nil
}

// startPublishScheduler runs the publisher on the configured cron
// expression. SkipIfStillRunning keeps a slow run from stacking up behind
// itself; idempotence makes overlap harmless anyway.
func (a *App) startPublishScheduler(spec string) (*cron.Cron, error) {
	c := cron.New(cron.WithChain(
		cron.Recover(cron.DefaultLogger),
		cron.SkipIfStillRunning(cron.DefaultLogger),
	))
	_, err := c.AddFunc(spec, func() {
		res, err := a.PublishDue(a.now())
		if err != nil {
			a.Echo.Logger.Errorf("scheduled publish: %v", err)
			return
		}
		if res.Count() > 0 {
			a.Echo.Logger.Infof("scheduled publish: %d post(s) published", res.Count())
		}
	})
	if err != nil {
		return nil, fmt.Errorf("folio: publish schedule %q: %w", spec, err)
	}
	c.Start()
	return c, nil
}
