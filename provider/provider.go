// Package provider defines the pluggable instruction-execution interface
// the comparator drives: given machine-code bytes and an initial state,
// a provider produces the post-execution state or an ExecutionError.
//
// Providers must be pure and deterministic for equal inputs, and must
// return complete states: fields the instruction does not touch carry
// through from the input.
package provider

import (
	"context"
	"time"

	"github.com/gsoc2/circuitous/state"
)

// Provider executes machine code from an initial state.
type Provider interface {
	Execute(ctx context.Context, code []byte, in state.State) (state.State, error)
}

// Func adapts a function to the Provider interface.
type Func func(ctx context.Context, code []byte, in state.State) (state.State, error)

// Execute calls fn.
func (fn Func) Execute(ctx context.Context, code []byte, in state.State) (state.State, error) {
	return fn(ctx, code, in)
}

// Run invokes a provider under a wall-clock budget. A provider that
// overruns the budget is reported as a timeout ExecutionError; its
// goroutine is abandoned (providers hold no shared state).
func Run(ctx context.Context, p Provider, code []byte, in state.State, timeout time.Duration) (out state.State, err error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	type result struct {
		out state.State
		err error
	}
	done := make(chan result, 1)
	go func() {
		o, e := p.Execute(ctx, code, in)
		done <- result{out: o, err: e}
	}()

	select {
	case res := <-done:
		out, err = res.out, res.err
	case <-ctx.Done():
		err = &ExecutionError{Reason: "timeout", Err: ctx.Err()}
	}
	return
}
