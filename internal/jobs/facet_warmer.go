// facet_warmer.go implements the FacetWarmer background job, which periodically
// recomputes category counts, tag counts, and catalog stats and rewrites the
// Redis facet cache. With the warmer running, facet endpoints serve cache hits
// in steady state and the expensive UNNEST queries run on a fixed schedule
// instead of on request traffic. The job is a no-op when Redis is disabled or
// the interval is non-positive, so it is always safe to start.
package jobs

import (
	"context"
	"log"
	"time"

	"github.com/clawhub/clawhub/internal/cache"
)

// FacetWarmer periodically refreshes the Redis facet cache.
type FacetWarmer struct {
	facets   *cache.FacetCache
	interval time.Duration
	tagLimit int
	stopChan chan struct{}
}

// NewFacetWarmer creates a new FacetWarmer.
// interval controls how often the refresh runs; tagLimit caps the cached tag set.
func NewFacetWarmer(facets *cache.FacetCache, interval time.Duration, tagLimit int) *FacetWarmer {
	if tagLimit <= 0 {
		tagLimit = 50
	}
	return &FacetWarmer{
		facets:   facets,
		interval: interval,
		tagLimit: tagLimit,
		stopChan: make(chan struct{}),
	}
}

// Start begins the background refresh loop.
// It runs an initial refresh immediately, then repeats on the configured interval.
// The loop exits when ctx is cancelled or Stop() is called.
func (w *FacetWarmer) Start(ctx context.Context) {
	if w.facets == nil {
		log.Println("Facet warmer: disabled (no cache configured)")
		return
	}
	if w.interval <= 0 {
		log.Println("Facet warmer: disabled (catalog.facet_warmer_interval not set)")
		return
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	log.Printf("Facet warmer started (refresh interval: %v, tag limit: %d)", w.interval, w.tagLimit)

	// Run once immediately on startup
	w.refresh(ctx)

	for {
		select {
		case <-ticker.C:
			w.refresh(ctx)
		case <-w.stopChan:
			log.Println("Facet warmer stopped")
			return
		case <-ctx.Done():
			log.Println("Facet warmer context cancelled")
			return
		}
	}
}

// Stop signals the background loop to exit.
func (w *FacetWarmer) Stop() {
	close(w.stopChan)
}

func (w *FacetWarmer) refresh(ctx context.Context) {
	start := time.Now()
	if err := w.facets.Refresh(ctx, w.tagLimit); err != nil {
		log.Printf("Facet warmer: refresh failed: %v", err)
		return
	}
	log.Printf("Facet warmer: refresh completed in %v", time.Since(start))
}
