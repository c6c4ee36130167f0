package verify

import (
	"errors"

	"github.com/gsoc2/circuitous/translate"
)

var f = translate.From

var (
	ErrNoName       = errors.New(f("suite has no name"))
	ErrNoCode       = errors.New(f("suite has no instruction bytes"))
	ErrNoCases      = errors.New(f("suite has no cases"))
	ErrDuplicate    = errors.New(f("suite name already registered"))
	ErrConflict     = errors.New(f("delta designation conflict"))
	ErrNoProvider   = errors.New(f("runner needs a reference and a subject provider"))
	ErrStopped      = errors.New(f("run stopped on first failure"))
	ErrMissingState = errors.New(f("initial state has no instruction pointer"))
)
