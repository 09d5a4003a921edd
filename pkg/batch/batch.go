// Package batch runs one operation over many items concurrently. Every item
// is isolated: an error or panic in one never cancels or affects the others,
// and Run always waits for all of them.
package batch

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/glorpus-work/caskcat/internal/logger"
	"github.com/glorpus-work/caskcat/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Op is the per-item operation.
type Op[T any] func(ctx context.Context, item T) error

// Status is the final state of one item.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
)

// Outcome is the result for one item.
type Outcome[T any] struct {
	Item   T
	Status Status
	Err    error
}

// Options tune a Run.
type Options[T any] struct {
	// Guard, when set, is consulted before dispatching an item. Items it
	// rejects are skipped, not failed.
	Guard func(item T) bool
	// Limit caps concurrent operations. Zero or negative means unbounded.
	Limit int
	// Name labels an item in logs. Defaults to fmt's %v.
	Name func(item T) string
	// OnOutcome is called once per item as it settles. Calls are serialized.
	OnOutcome func(Outcome[T])
}

// Report aggregates a Run. Each slice keeps the input order.
type Report[T any] struct {
	Outcomes  []Outcome[T]
	Succeeded []T
	Failed    []Outcome[T]
	Skipped   []T
}

// OK reports whether no item failed.
func (r Report[T]) OK() bool { return len(r.Failed) == 0 }

// Run applies op to every item and returns once all have finished.
func Run[T any](ctx context.Context, items []T, op Op[T], opts Options[T]) Report[T] {
	outcomes := make([]Outcome[T], len(items))
	var mu sync.Mutex
	settle := func(i int, o Outcome[T]) {
		outcomes[i] = o
		if opts.OnOutcome == nil {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		opts.OnOutcome(o)
	}

	// No WithContext: a failed item must not cancel its siblings.
	var g errgroup.Group
	if opts.Limit > 0 {
		g.SetLimit(opts.Limit)
	}

	for i, item := range items {
		if opts.Guard != nil && !opts.Guard(item) {
			logger.Debug("Skipping batch item", logger.Fields{"item": nameOf(opts, item)})
			settle(i, Outcome[T]{Item: item, Status: StatusSkipped})
			continue
		}
		g.Go(func() error {
			err := runIsolated(ctx, op, item)
			if err != nil {
				logger.Error("Batch item failed", logger.Fields{"item": nameOf(opts, item), "error": err.Error()})
				settle(i, Outcome[T]{Item: item, Status: StatusFailed, Err: err})
				return nil
			}
			settle(i, Outcome[T]{Item: item, Status: StatusSucceeded})
			return nil
		})
	}
	_ = g.Wait()

	return newReport(outcomes)
}

func runIsolated[T any](ctx context.Context, op Op[T], item T) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Debugf("recovered panic: %v\n%s", r, debug.Stack())
			err = fmt.Errorf("%w: %v", errors.ErrItemPanicked, r)
		}
	}()
	return op(ctx, item)
}

func newReport[T any](outcomes []Outcome[T]) Report[T] {
	r := Report[T]{Outcomes: outcomes}
	for _, o := range outcomes {
		switch o.Status {
		case StatusSucceeded:
			r.Succeeded = append(r.Succeeded, o.Item)
		case StatusFailed:
			r.Failed = append(r.Failed, o)
		case StatusSkipped:
			r.Skipped = append(r.Skipped, o.Item)
		}
	}
	return r
}

func nameOf[T any](opts Options[T], item T) string {
	if opts.Name != nil {
		return opts.Name(item)
	}
	return fmt.Sprintf("%v", item)
}
