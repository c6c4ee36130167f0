package interp

import (
	"errors"

	"github.com/gsoc2/circuitous/translate"
)

var f = translate.From

var (
	ErrTruncated     = errors.New(f("truncated instruction"))
	ErrUnsupported   = errors.New(f("unsupported instruction"))
	ErrNotRegister   = errors.New(f("memory operands not modeled"))
	ErrRegisterUnset = errors.New(f("register value unset"))
	ErrFlagUnset     = errors.New(f("flag value unset"))
	ErrFlagUndefined = errors.New(f("consumed flag is undefined"))
)
