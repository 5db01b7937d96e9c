package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/clawhub/clawhub/internal/cache"
)

// ---------------------------------------------------------------------------
// NewFacetWarmer — construction and tag limit defaulting
// ---------------------------------------------------------------------------

func TestNewFacetWarmer_DefaultTagLimit(t *testing.T) {
	w := NewFacetWarmer(nil, time.Minute, 0)
	if w == nil {
		t.Fatal("NewFacetWarmer returned nil")
	}
	if w.tagLimit != 50 {
		t.Errorf("tagLimit = %d, want 50", w.tagLimit)
	}
}

func TestNewFacetWarmer_NegativeTagLimit_Defaults50(t *testing.T) {
	w := NewFacetWarmer(nil, time.Minute, -5)
	if w.tagLimit != 50 {
		t.Errorf("tagLimit = %d, want 50", w.tagLimit)
	}
}

func TestNewFacetWarmer_CustomTagLimit(t *testing.T) {
	w := NewFacetWarmer(nil, time.Minute, 100)
	if w.tagLimit != 100 {
		t.Errorf("tagLimit = %d, want 100", w.tagLimit)
	}
}

// ---------------------------------------------------------------------------
// Start — disabled configurations return immediately
// ---------------------------------------------------------------------------

func TestFacetWarmer_Start_NilCache_ReturnsImmediately(t *testing.T) {
	w := NewFacetWarmer(nil, time.Minute, 50)

	done := make(chan struct{})
	go func() {
		w.Start(context.Background())
		close(done)
	}()

	select {
	case <-done:
		// returned without blocking
	case <-time.After(2 * time.Second):
		t.Fatal("Start() with nil cache did not return")
	}
}

func TestFacetWarmer_Start_NonPositiveInterval_ReturnsImmediately(t *testing.T) {
	// A zero-value FacetCache gets past the nil check; the interval check then
	// returns before any refresh runs.
	w := NewFacetWarmer(&cache.FacetCache{}, 0, 50)

	done := make(chan struct{})
	go func() {
		w.Start(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Start() with zero interval did not return")
	}
}

// ---------------------------------------------------------------------------
// Stop and context cancellation — unblock a running loop
// ---------------------------------------------------------------------------

func TestFacetWarmer_ContextCancel_StopsLoop(t *testing.T) {
	// A zero-value FacetCache has no Redis client, so the initial refresh is a
	// no-op and the loop parks in its select until the context is cancelled.
	w := NewFacetWarmer(&cache.FacetCache{}, time.Minute, 50)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Start() did not exit after context cancellation")
	}
}

func TestFacetWarmer_Stop_StopsLoop(t *testing.T) {
	w := NewFacetWarmer(&cache.FacetCache{}, time.Minute, 50)

	done := make(chan struct{})
	go func() {
		w.Start(context.Background())
		close(done)
	}()

	// Give the loop a moment to run its initial refresh and park in select.
	time.Sleep(50 * time.Millisecond)
	w.Stop()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Start() did not exit after Stop()")
	}
}
