package debounce

// Package debounce delays an action until the user has stopped issuing new
// requests, eg waiting after a time-range selector drag before fetching
// extended forecast data. Each Trigger supersedes any pending one: only the
// most recent request's action runs, checked against a monotonically
// incrementing generation counter at fire time.

import (
	"context"
	"sync"
	"time"
)

type Debouncer struct {
	lock       sync.Mutex
	generation int64
}

// Trigger schedules fn to run after delay, unless a newer Trigger (or Cancel)
// arrives first. fn runs on a background goroutine.
func (d *Debouncer) Trigger(ctx context.Context, delay time.Duration, fn func(ctx context.Context)) {
	d.lock.Lock()
	d.generation++
	gen := d.generation
	d.lock.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
		if !d.isCurrent(gen) {
			// A newer request superseded us while we slept
			return
		}
		fn(ctx)
	}()
}

// Cancel discards any pending trigger.
func (d *Debouncer) Cancel() {
	d.lock.Lock()
	d.generation++
	d.lock.Unlock()
}

func (d *Debouncer) isCurrent(gen int64) bool {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.generation == gen
}
