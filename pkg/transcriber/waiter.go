package transcriber

import (
	"context"
	"fmt"
	"time"

	"github.com/openmediakit/transcriber/pkg/utils"
)

// FileState is the backend-side lifecycle of uploaded media.
type FileState string

const (
	FileStatePending FileState = "pending"
	FileStateActive  FileState = "active"
	FileStateFailed  FileState = "failed"
)

// StatusFunc checks the backend state of an uploaded file handle.
type StatusFunc func(ctx context.Context, handle string) (FileState, error)

// Waiter polls an uploaded segment until it is usable by a generation
// request. A terminal "failed" state aborts immediately; exhausting the
// attempt budget is a timeout. Both abort the whole request.
type Waiter struct {
	Status      StatusFunc
	MaxAttempts int
	Interval    time.Duration

	// Some status endpoints are flaky. With Optimistic set the waiter
	// sleeps GracePeriod once and proceeds without checking, leaving any
	// "not ready" failure to the transcription retry path.
	Optimistic  bool
	GracePeriod time.Duration
}

// AwaitReady blocks until the handle is active, the backend reports
// failure, the attempt budget runs out, or ctx is cancelled.
func (w *Waiter) AwaitReady(ctx context.Context, handle string) error {
	if w.Optimistic {
		utils.Debug("status checks disabled, waiting grace period %s", w.GracePeriod)
		select {
		case <-time.After(w.GracePeriod):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	for attempt := 1; attempt <= w.MaxAttempts; attempt++ {
		state, err := w.Status(ctx, handle)
		if err != nil {
			return utils.NewError(utils.KindBackendTerminal,
				"file status check failed", err)
		}

		switch state {
		case FileStateActive:
			utils.Debug("file %s active after %d poll(s)", handle, attempt)
			return nil
		case FileStateFailed:
			// Terminal backend state, no further polling.
			return utils.NewError(utils.KindBackendTerminal,
				fmt.Sprintf("backend reported failed state for %s", handle), nil)
		}

		if attempt < w.MaxAttempts {
			select {
			case <-time.After(w.Interval):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	return utils.NewError(utils.KindTimeout,
		fmt.Sprintf("file %s not ready after %d polls", handle, w.MaxAttempts), nil)
}
