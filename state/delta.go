package state

import (
	"fmt"
	"iter"
	"maps"
	"slices"
	"strings"
)

// Kind classifies a Delta field designation.
type Kind int

const (
	Concrete    = Kind(0) // field must hold a specific value
	Undefined   = Kind(1) // providers may diverge on this field
	Unspecified = Kind(2) // field is not checked at all
)

// String returns the designation kind as text.
func (k Kind) String() string {
	switch k {
	case Concrete:
		return "concrete"
	case Undefined:
		return "undefined"
	case Unspecified:
		return "unspecified"
	}
	return "?"
}

// RegExpect is a register designation inside a Delta.
type RegExpect struct {
	Kind  Kind
	Value uint64 // valid for Concrete
}

// FlagExpect is a flag designation inside a Delta.
type FlagExpect struct {
	Kind Kind
	Bit  Bit // valid for Concrete
}

// Conflict records a designation that weakened an earlier concrete
// expectation. Overwriting is legal (last write wins) but is a common
// authoring error, so suite construction surfaces these.
type Conflict struct {
	Field string
	From  Kind
	To    Kind
}

// String renders the conflict for a build report.
func (c Conflict) String() string {
	return fmt.Sprintf("%v: %v overwritten by %v", c.Field, c.From, c.To)
}

// Delta (MS) is a sparse expected-change specification. The zero Delta
// constrains nothing; designations narrow it field by field. Setters
// return new values.
type Delta struct {
	regs      map[Reg]RegExpect
	flags     map[Flag]FlagExpect
	conflicts []Conflict
}

// MS creates an empty Delta.
func MS() Delta {
	return Delta{}
}

func (d Delta) clone() Delta {
	out := Delta{
		regs:      maps.Clone(d.regs),
		flags:     maps.Clone(d.flags),
		conflicts: slices.Clone(d.conflicts),
	}
	if out.regs == nil {
		out.regs = map[Reg]RegExpect{}
	}
	if out.flags == nil {
		out.flags = map[Flag]FlagExpect{}
	}
	return out
}

func (d *Delta) noteWeakened(field string, from, to Kind) {
	if from == Concrete && to != Concrete {
		d.conflicts = append(d.conflicts, Conflict{Field: field, From: from, To: to})
	}
}

// Reg returns a new Delta requiring a concrete register value.
func (d Delta) Reg(r Reg, v uint64) Delta {
	out := d.clone()
	out.regs[r] = RegExpect{Kind: Concrete, Value: v}
	return out
}

// Flag returns a new Delta requiring a concrete flag value.
func (d Delta) Flag(f Flag, b Bit) Delta {
	out := d.clone()
	out.flags[f] = FlagExpect{Kind: Concrete, Bit: b}
	return out
}

// U returns a new Delta marking a flag explicitly undefined: the providers
// are exempted from equality on this field, and only this field.
func (d Delta) U(f Flag) Delta {
	out := d.clone()
	if prev, ok := out.flags[f]; ok {
		out.noteWeakened(f.String(), prev.Kind, Undefined)
	}
	out.flags[f] = FlagExpect{Kind: Undefined}
	return out
}

// SkipFlag returns a new Delta marking a flag unspecified (not checked).
func (d Delta) SkipFlag(f Flag) Delta {
	out := d.clone()
	if prev, ok := out.flags[f]; ok {
		out.noteWeakened(f.String(), prev.Kind, Unspecified)
	}
	out.flags[f] = FlagExpect{Kind: Unspecified}
	return out
}

// SkipReg returns a new Delta marking a register unspecified (not checked).
func (d Delta) SkipReg(r Reg) Delta {
	out := d.clone()
	if prev, ok := out.regs[r]; ok {
		out.noteWeakened(r.String(), prev.Kind, Unspecified)
	}
	out.regs[r] = RegExpect{Kind: Unspecified}
	return out
}

// RegExpect returns the designation for a register, if any.
func (d Delta) RegExpect(r Reg) (e RegExpect, ok bool) {
	e, ok = d.regs[r]
	return
}

// FlagExpect returns the designation for a flag, if any.
func (d Delta) FlagExpect(f Flag) (e FlagExpect, ok bool) {
	e, ok = d.flags[f]
	return
}

// Conflicts returns the designation conflicts recorded during construction.
func (d Delta) Conflicts() []Conflict {
	return slices.Clone(d.conflicts)
}

// DesignatedRegs returns the registers with designations, in canonical order.
func (d Delta) DesignatedRegs() iter.Seq[Reg] {
	return func(yield func(Reg) bool) {
		for r := range Regs() {
			if _, ok := d.regs[r]; ok {
				if !yield(r) {
					return
				}
			}
		}
	}
}

// DesignatedFlags returns the flags with designations, in canonical order.
func (d Delta) DesignatedFlags() iter.Seq[Flag] {
	return func(yield func(Flag) bool) {
		for f := range Flags() {
			if _, ok := d.flags[f]; ok {
				if !yield(f) {
					return
				}
			}
		}
	}
}

// String renders the designations in canonical order.
func (d Delta) String() string {
	var parts []string
	for r := range d.DesignatedRegs() {
		e := d.regs[r]
		switch e.Kind {
		case Concrete:
			parts = append(parts, fmt.Sprintf("%v=%#x", r, e.Value))
		default:
			parts = append(parts, fmt.Sprintf("%v=%v", r, e.Kind))
		}
	}
	for f := range d.DesignatedFlags() {
		e := d.flags[f]
		switch e.Kind {
		case Concrete:
			parts = append(parts, fmt.Sprintf("%v=%v", f, e.Bit))
		default:
			parts = append(parts, fmt.Sprintf("%v=%v", f, e.Kind))
		}
	}
	if len(parts) == 0 {
		return "(unconstrained)"
	}
	return strings.Join(parts, " ")
}
