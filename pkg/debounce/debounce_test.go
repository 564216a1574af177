package debounce

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestOnlyNewestTriggerFires(t *testing.T) {
	d := Debouncer{}
	var fired atomic.Int64
	for i := 0; i < 5; i++ {
		n := int64(i)
		d.Trigger(context.Background(), 30*time.Millisecond, func(ctx context.Context) {
			fired.Store(n + 1)
		})
		time.Sleep(5 * time.Millisecond)
	}
	time.Sleep(100 * time.Millisecond)
	// Only the 5th trigger survived
	require.Equal(t, int64(5), fired.Load())
}

func TestCancelDiscardsPending(t *testing.T) {
	d := Debouncer{}
	var fired atomic.Bool
	d.Trigger(context.Background(), 20*time.Millisecond, func(ctx context.Context) {
		fired.Store(true)
	})
	d.Cancel()
	time.Sleep(60 * time.Millisecond)
	require.False(t, fired.Load())
}

func TestContextCancelStopsTrigger(t *testing.T) {
	d := Debouncer{}
	ctx, cancel := context.WithCancel(context.Background())
	var fired atomic.Bool
	d.Trigger(ctx, 20*time.Millisecond, func(ctx context.Context) {
		fired.Store(true)
	})
	cancel()
	time.Sleep(60 * time.Millisecond)
	require.False(t, fired.Load())
}
