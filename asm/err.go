package asm

import (
	"errors"

	"github.com/gsoc2/circuitous/translate"
)

var f = translate.From

var (
	ErrMnemonic     = errors.New(f("unknown mnemonic"))
	ErrOperandCount = errors.New(f("wrong operand count"))
	ErrOperand      = errors.New(f("bad operand"))
	ErrWidth        = errors.New(f("operand width mismatch"))
	ErrImmediate    = errors.New(f("immediate out of range"))
)

// EncodingError names the assembly line that failed to encode. It aborts
// the whole suite build before any provider executes.
type EncodingError struct {
	Line string
	Err  error
}

func (err *EncodingError) Error() string {
	return f("encode '%v': %v", err.Line, err.Err)
}

func (err *EncodingError) Unwrap() error {
	return err.Err
}
