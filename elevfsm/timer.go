// timer.go
// Purpose: Simulated travel time between two adjacent floors.
package elevfsm

import (
	"context"
	"time"
)

// travel blocks for d, or until ctx is cancelled.
func travel(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
