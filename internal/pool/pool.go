// Package pool bounds the number of CPU-heavy planning and simulation
// tasks running at once. Each task owns its inputs and outputs; the pool
// shares nothing between tasks beyond the slot semaphore.
package pool

import (
	"context"

	"github.com/HanzoRazer/luthiers-toolbox-sub009/internal/domain"
)

// Pool is a fixed-size execution gate. Run blocks until a slot frees or
// the caller's context expires; a task that never got a slot fails with
// the saturation error, not a timeout.
type Pool struct {
	slots chan struct{}
}

// New creates a Pool with the given number of slots. Sizes below 1 fall
// back to 4, matching the default worker count.
func New(size int) *Pool {
	if size < 1 {
		size = 4
	}
	return &Pool{slots: make(chan struct{}, size)}
}

// Size returns the slot count.
func (p *Pool) Size() int {
	return cap(p.slots)
}

// InFlight returns the number of currently occupied slots.
func (p *Pool) InFlight() int {
	return len(p.slots)
}

// Run executes task in the caller's goroutine once a slot is acquired.
// The slot is released when the task returns, even on panic unwind.
//
// A context that is already dead fails with the timeout error; only a
// request that actually waited on a full pool until its context expired
// fails with the saturation error.
func (p *Pool) Run(ctx context.Context, task func(context.Context) error) error {
	if ctx.Err() != nil {
		return domain.ErrOperationTimeout
	}

	select {
	case p.slots <- struct{}{}:
	default:
		select {
		case p.slots <- struct{}{}:
		case <-ctx.Done():
			return domain.ErrPoolSaturated
		}
	}
	defer func() { <-p.slots }()

	if err := ctx.Err(); err != nil {
		return domain.ErrOperationTimeout
	}
	return task(ctx)
}
