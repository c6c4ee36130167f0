package provider

import (
	"github.com/gsoc2/circuitous/translate"
)

var f = translate.From

// ExecutionError signals that a provider could not produce a result state:
// decode failure, unsupported instruction, or timeout. It is fatal for the
// affected case only, and is reported distinctly from a semantic mismatch.
type ExecutionError struct {
	Reason string
	Err    error
}

func (err *ExecutionError) Error() string {
	if err.Err != nil {
		return f("execute: %v: %v", err.Reason, err.Err)
	}
	return f("execute: %v", err.Reason)
}

func (err *ExecutionError) Unwrap() error {
	return err.Err
}
