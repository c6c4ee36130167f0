package defs

import (
	"fmt"
	"log"
	"os"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/gsoc2/circuitous/asm"
	"github.com/gsoc2/circuitous/state"
	"github.com/gsoc2/circuitous/verify"
)

// Loader executes definition files and registers the suites they build.
type Loader struct {
	Encoder asm.Encoder // encodes intel(...) blocks at load time
	Verbose bool        // If set, verbosely logs loaded files and suites.
}

// Load executes each file in order. Every suite a file creates with
// verify_test is validated and registered; the first error, including an
// encoding failure inside intel(...), aborts the load with nothing further
// registered.
func (l *Loader) Load(reg *verify.Registry, files ...string) (err error) {
	for _, file := range files {
		var src []byte
		if src, err = os.ReadFile(file); err != nil {
			return
		}
		if err = l.LoadSource(reg, file, src); err != nil {
			return
		}
	}
	return
}

// LoadSource executes one definition from in-memory source.
func (l *Loader) LoadSource(reg *verify.Registry, name string, src []byte) (err error) {
	if l.Encoder == nil {
		err = fmt.Errorf("%v: no encoder configured", name)
		return
	}

	var created []*verify.Suite

	predeclared := starlark.StringDict{
		"S":           starlark.NewBuiltin("S", makeState),
		"MS":          starlark.NewBuiltin("MS", makeDelta),
		"intel":       starlark.NewBuiltin("intel", l.intel),
		"verify_test": starlark.NewBuiltin("verify_test", func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
			var sname string
			if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &sname); err != nil {
				return nil, err
			}
			s := verify.New(sname)
			created = append(created, s)
			return suiteValue{s: s}, nil
		}),
	}

	thread := &starlark.Thread{Name: name}
	opts := &syntax.FileOptions{Set: true}
	if _, err = starlark.ExecFileOptions(opts, thread, name, src, predeclared); err != nil {
		return
	}

	for _, s := range created {
		if err = reg.Add(s); err != nil {
			return
		}
		if l.Verbose {
			log.Printf("defs: %v: registered %v (%d cases)", name, s.Name(), len(s.Cases()))
		}
	}
	return
}

// intel encodes a sequence of assembly lines to bytes while the definition
// loads. A bad mnemonic fails the load here, before any case executes.
func (l *Loader) intel(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var it starlark.Iterable
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &it); err != nil {
		return nil, err
	}
	lines, err := stringsOf(it)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", b.Name(), err)
	}
	code, err := l.Encoder.Encode(lines)
	if err != nil {
		return nil, err
	}
	return starlark.Bytes(code), nil
}

func makeState(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var ip starlark.Value
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &ip); err != nil {
		return nil, err
	}
	u, err := asUint64(ip)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", b.Name(), err)
	}
	return stateValue{s: state.New(u)}, nil
}

func makeDelta(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 0); err != nil {
		return nil, err
	}
	return deltaValue{d: state.MS()}, nil
}
