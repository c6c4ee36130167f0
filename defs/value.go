package defs

import (
	"fmt"
	"sort"

	"go.starlark.net/starlark"

	"github.com/gsoc2/circuitous/state"
	"github.com/gsoc2/circuitous/verify"
)

// stateValue exposes an immutable State to Starlark. Every register and
// flag name is a chainable setter; aflags(b) seeds all six flags at once.
type stateValue struct {
	s state.State
}

func (v stateValue) String() string        { return "S(" + v.s.String() + ")" }
func (v stateValue) Type() string          { return "state" }
func (v stateValue) Freeze()               {}
func (v stateValue) Truth() starlark.Bool  { return starlark.True }
func (v stateValue) Hash() (uint32, error) { return 0, fmt.Errorf("unhashable type: state") }

func (v stateValue) Attr(name string) (starlark.Value, error) {
	if r, ok := state.RegNamed(name); ok {
		return starlark.NewBuiltin(name, func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
			var val starlark.Value
			if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &val); err != nil {
				return nil, err
			}
			u, err := asUint64(val)
			if err != nil {
				return nil, fmt.Errorf("%v: %w", b.Name(), err)
			}
			return stateValue{s: v.s.With(r, u)}, nil
		}), nil
	}
	if fl, ok := state.FlagNamed(name); ok {
		return starlark.NewBuiltin(name, func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
			bit, err := unpackBit(b.Name(), args, kwargs)
			if err != nil {
				return nil, err
			}
			return stateValue{s: v.s.WithFlag(fl, bit)}, nil
		}), nil
	}
	if name == "aflags" {
		return starlark.NewBuiltin(name, func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
			bit, err := unpackBit(b.Name(), args, kwargs)
			if err != nil {
				return nil, err
			}
			return stateValue{s: v.s.WithAFlags(bit)}, nil
		}), nil
	}
	return nil, nil
}

func (v stateValue) AttrNames() []string {
	names := []string{"aflags"}
	for r := range state.Regs() {
		names = append(names, r.String())
	}
	for f := range state.Flags() {
		names = append(names, f.String())
	}
	sort.Strings(names)
	return names
}

// deltaValue exposes an expected Delta to Starlark. Register and flag
// names designate concrete expectations, uCF()..uOF() mark a flag
// undefined, and skipCF()/skipRAX() mark a field unspecified.
type deltaValue struct {
	d state.Delta
}

func (v deltaValue) String() string        { return "MS(" + v.d.String() + ")" }
func (v deltaValue) Type() string          { return "delta" }
func (v deltaValue) Freeze()               {}
func (v deltaValue) Truth() starlark.Bool  { return starlark.True }
func (v deltaValue) Hash() (uint32, error) { return 0, fmt.Errorf("unhashable type: delta") }

func (v deltaValue) Attr(name string) (starlark.Value, error) {
	if r, ok := state.RegNamed(name); ok {
		return starlark.NewBuiltin(name, func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
			var val starlark.Value
			if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &val); err != nil {
				return nil, err
			}
			u, err := asUint64(val)
			if err != nil {
				return nil, fmt.Errorf("%v: %w", b.Name(), err)
			}
			return deltaValue{d: v.d.Reg(r, u)}, nil
		}), nil
	}
	if fl, ok := state.FlagNamed(name); ok {
		return starlark.NewBuiltin(name, func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
			bit, err := unpackBit(b.Name(), args, kwargs)
			if err != nil {
				return nil, err
			}
			return deltaValue{d: v.d.Flag(fl, bit)}, nil
		}), nil
	}
	if len(name) > 1 && name[0] == 'u' {
		if fl, ok := state.FlagNamed(name[1:]); ok {
			return starlark.NewBuiltin(name, func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
				if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 0); err != nil {
					return nil, err
				}
				return deltaValue{d: v.d.U(fl)}, nil
			}), nil
		}
	}
	if len(name) > 4 && name[:4] == "skip" {
		field := name[4:]
		if fl, ok := state.FlagNamed(field); ok {
			return starlark.NewBuiltin(name, func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
				if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 0); err != nil {
					return nil, err
				}
				return deltaValue{d: v.d.SkipFlag(fl)}, nil
			}), nil
		}
		if r, ok := state.RegNamed(field); ok {
			return starlark.NewBuiltin(name, func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
				if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 0); err != nil {
					return nil, err
				}
				return deltaValue{d: v.d.SkipReg(r)}, nil
			}), nil
		}
	}
	return nil, nil
}

func (v deltaValue) AttrNames() []string {
	var names []string
	for r := range state.Regs() {
		names = append(names, r.String(), "skip"+r.String())
	}
	for f := range state.Flags() {
		names = append(names, f.String(), "u"+f.String(), "skip"+f.String())
	}
	sort.Strings(names)
	return names
}

// suiteValue exposes a suite under construction. Unlike states and deltas
// it is deliberately a mutable builder: the definition file accretes tags,
// bytes, and cases onto one suite and the loader registers it afterwards.
type suiteValue struct {
	s *verify.Suite
}

func (v suiteValue) String() string        { return "verify_test(" + v.s.Name() + ")" }
func (v suiteValue) Type() string          { return "suite" }
func (v suiteValue) Freeze()               {}
func (v suiteValue) Truth() starlark.Bool  { return starlark.True }
func (v suiteValue) Hash() (uint32, error) { return 0, fmt.Errorf("unhashable type: suite") }

func (v suiteValue) Attr(name string) (starlark.Value, error) {
	switch name {
	case "tags":
		return starlark.NewBuiltin(name, v.tags), nil
	case "bytes":
		return starlark.NewBuiltin(name, v.bytes), nil
	case "case":
		return starlark.NewBuiltin(name, v.case_), nil
	}
	return nil, nil
}

func (v suiteValue) AttrNames() []string {
	return []string{"bytes", "case", "tags"}
}

func (v suiteValue) tags(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var it starlark.Iterable
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &it); err != nil {
		return nil, err
	}
	tags, err := stringsOf(it)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", b.Name(), err)
	}
	v.s.Tag(tags...)
	return v, nil
}

func (v suiteValue) bytes(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var code starlark.Bytes
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &code); err != nil {
		return nil, err
	}
	v.s.Raw([]byte(code))
	return v, nil
}

func (v suiteValue) case_(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var (
		initial  starlark.Value
		delta    starlark.Value
		verdict  = true
		disputed = false
	)
	err := starlark.UnpackArgs(b.Name(), args, kwargs,
		"I", &initial, "DE?", &delta, "R?", &verdict, "disputed?", &disputed)
	if err != nil {
		return nil, err
	}

	sv, ok := initial.(stateValue)
	if !ok {
		return nil, fmt.Errorf("%v: I must be a state, got %v", b.Name(), initial.Type())
	}
	c := verify.Case{Initial: sv.s, Verdict: verdict, Disputed: disputed}
	if delta != nil {
		dv, ok := delta.(deltaValue)
		if !ok {
			return nil, fmt.Errorf("%v: DE must be a delta, got %v", b.Name(), delta.Type())
		}
		c.Expected = dv.d
	}
	v.s.Case(c)
	return v, nil
}

// asUint64 converts a Starlark int to a register value.
func asUint64(v starlark.Value) (u uint64, err error) {
	i, ok := v.(starlark.Int)
	if !ok {
		err = fmt.Errorf("want int, got %v", v.Type())
		return
	}
	u, ok = i.Uint64()
	if !ok {
		err = fmt.Errorf("value %v out of range", i)
	}
	return
}

// unpackBit unpacks a single 0/1 argument as a flag value.
func unpackBit(name string, args starlark.Tuple, kwargs []starlark.Tuple) (bit state.Bit, err error) {
	var n int
	if err = starlark.UnpackPositionalArgs(name, args, kwargs, 1, &n); err != nil {
		return
	}
	switch n {
	case 0:
		bit = state.Zero
	case 1:
		bit = state.One
	default:
		err = fmt.Errorf("%v: flag value must be 0 or 1, got %d", name, n)
	}
	return
}

// stringsOf collects an iterable of Starlark strings.
func stringsOf(it starlark.Iterable) (out []string, err error) {
	iter := it.Iterate()
	defer iter.Done()
	var v starlark.Value
	for iter.Next(&v) {
		s, ok := starlark.AsString(v)
		if !ok {
			err = fmt.Errorf("want string, got %v", v.Type())
			return
		}
		out = append(out, s)
	}
	return
}
