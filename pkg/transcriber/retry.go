package transcriber

import (
	"context"
	"fmt"
	"time"

	"github.com/openmediakit/transcriber/pkg/models"
	"github.com/openmediakit/transcriber/pkg/utils"
)

// Defaults for the bounded retry loop around a transcription call.
const (
	DefaultMaxAttempts = 10
	DefaultRetryDelay  = 15 * time.Second
)

// Retrier wraps a Backend with bounded retry. Only the transient
// "segment not yet ready" classification is retried; terminal errors
// short-circuit immediately without consuming further attempts.
type Retrier struct {
	MaxAttempts int
	Delay       time.Duration
}

// NewRetrier creates a retrier with the documented defaults.
func NewRetrier() *Retrier {
	return &Retrier{
		MaxAttempts: DefaultMaxAttempts,
		Delay:       DefaultRetryDelay,
	}
}

// Transcribe drives backend.Transcribe for one segment under the retry
// budget. Exhausting the budget surfaces a terminal error carrying the
// last observed error message.
func (r *Retrier) Transcribe(ctx context.Context, backend Backend, seg models.Segment, variant PromptVariant) (string, error) {
	var lastErr error

	for attempt := 1; attempt <= r.MaxAttempts; attempt++ {
		text, err := backend.Transcribe(ctx, seg, variant)
		if err == nil {
			return text, nil
		}

		if !utils.IsTransient(err) {
			return "", err
		}

		lastErr = err
		utils.Warn("segment %d not ready (attempt %d/%d): %v",
			seg.Index, attempt, r.MaxAttempts, err)

		if attempt < r.MaxAttempts {
			select {
			case <-time.After(r.Delay):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}
	}

	return "", utils.NewError(utils.KindTimeout,
		fmt.Sprintf("segment %d still not ready after %d attempts", seg.Index, r.MaxAttempts),
		lastErr)
}
