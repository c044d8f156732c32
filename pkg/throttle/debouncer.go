package throttle

import (
	"context"
	"time"

	"github.com/ha1tch/flow-toolkit/pkg/logging"
)

// Debouncer batches rapid events: a batch is flushed once the input has been
// quiet for quietPeriod, or maxWait after its first event, whichever comes
// first. Duplicate values within a batch are collapsed.
type Debouncer[T comparable] struct {
	input       <-chan T
	output      chan []T
	quietPeriod time.Duration
	maxWait     time.Duration
}

// NewDebouncer creates a debouncer reading from input.
func NewDebouncer[T comparable](input <-chan T, quietPeriod, maxWait time.Duration) *Debouncer[T] {
	return &Debouncer[T]{
		input:       input,
		output:      make(chan []T, 10),
		quietPeriod: quietPeriod,
		maxWait:     maxWait,
	}
}

// Start begins processing events with debouncing.
func (d *Debouncer[T]) Start(ctx context.Context) {
	go d.run(ctx)
}

// Output returns the channel of batches. It is closed when the input closes
// or the context ends.
func (d *Debouncer[T]) Output() <-chan []T {
	return d.output
}

func stopTimer(t *time.Timer) {
	if t != nil {
		t.Stop()
	}
}

func timerC(t *time.Timer) <-chan time.Time {
	if t == nil {
		return nil
	}
	return t.C
}

func (d *Debouncer[T]) run(ctx context.Context) {
	var (
		quiet *time.Timer
		limit *time.Timer
		batch []T
		seen  = make(map[T]bool)
	)

	flush := func() {
		stopTimer(quiet)
		stopTimer(limit)
		quiet, limit = nil, nil
		if len(batch) == 0 {
			return
		}
		logging.Debug("flushing debounced events", "count", len(batch))
		d.output <- batch
		batch = nil
		seen = make(map[T]bool)
	}

	defer close(d.output)
	for {
		select {
		case <-ctx.Done():
			flush()
			return

		case v, ok := <-d.input:
			if !ok {
				flush()
				return
			}
			if !seen[v] {
				seen[v] = true
				batch = append(batch, v)
			}
			stopTimer(quiet)
			quiet = time.NewTimer(d.quietPeriod)
			if limit == nil && d.maxWait > 0 {
				limit = time.NewTimer(d.maxWait)
			}

		case <-timerC(quiet):
			quiet = nil
			flush()

		case <-timerC(limit):
			limit = nil
			flush()
		}
	}
}
