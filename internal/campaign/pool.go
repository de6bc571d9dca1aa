package campaign

import (
	"context"
	"sync"
	"time"
)

// runPool runs worker on n goroutines pulling from one shared cursor and
// blocks until all of them return.
func runPool(n int, worker func()) {
	if n <= 0 {
		return
	}
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			worker()
		}()
	}
	wg.Wait()
}

// sleepCtx sleeps for d or until ctx is cancelled; returns false on cancel.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
