// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package upload

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/gemini-file-search-tool/pkg/types"
)

// Poll backoff. Tests shrink the intervals to avoid real sleeps.
var (
	PollInitialInterval = 2 * time.Second
	PollMaxInterval     = 30 * time.Second
)

const pollGrowth = 1.5

// OperationGetter fetches the current state of an operation.
type OperationGetter interface {
	GetOperation(ctx context.Context, name string) (types.Operation, error)
}

// nextInterval grows an interval by the backoff factor, capped.
func nextInterval(cur time.Duration) time.Duration {
	next := time.Duration(float64(cur) * pollGrowth)
	if next > PollMaxInterval {
		return PollMaxInterval
	}
	return next
}

// Poll waits for op to finish, sleeping between status checks with
// exponential backoff. It returns early with ctx.Err() when ctx is done and
// with the fetch error when a status check fails.
func Poll(ctx context.Context, getter OperationGetter, op types.Operation, log *zap.Logger) (types.Operation, error) {
	if log == nil {
		log = zap.NewNop()
	}
	interval := PollInitialInterval
	for attempt := 1; !op.Done; attempt++ {
		log.Debug("polling operation",
			zap.String("operation", op.Name), zap.Int("attempt", attempt), zap.Duration("wait", interval))

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return op, ctx.Err()
		case <-timer.C:
		}

		next, err := getter.GetOperation(ctx, op.Name)
		if err != nil {
			return op, err
		}
		if next.Name == "" {
			next.Name = op.Name
		}
		op = next
		interval = nextInterval(interval)
	}
	return op, nil
}
