package state

import (
	"fmt"
	"iter"
	"maps"
	"slices"
	"strings"
)

// Reg identifies a general-purpose register or the instruction pointer.
type Reg int

const (
	RIP = Reg(0)
	RAX = Reg(1)
	RCX = Reg(2)
	RDX = Reg(3)
	RBX = Reg(4)
	RSP = Reg(5)
	RBP = Reg(6)
	RSI = Reg(7)
	RDI = Reg(8)
	R8  = Reg(9)
	R9  = Reg(10)
	R10 = Reg(11)
	R11 = Reg(12)
	R12 = Reg(13)
	R13 = Reg(14)
	R14 = Reg(15)
	R15 = Reg(16)
)

var regNames = map[Reg]string{
	RIP: "RIP",
	RAX: "RAX", RCX: "RCX", RDX: "RDX", RBX: "RBX",
	RSP: "RSP", RBP: "RBP", RSI: "RSI", RDI: "RDI",
	R8: "R8", R9: "R9", R10: "R10", R11: "R11",
	R12: "R12", R13: "R13", R14: "R14", R15: "R15",
}

// String returns the architectural register name.
func (r Reg) String() string {
	name, ok := regNames[r]
	if !ok {
		return fmt.Sprintf("reg(%d)", int(r))
	}
	return name
}

// RegNamed looks a register up by its architectural name.
func RegNamed(name string) (reg Reg, ok bool) {
	for r, n := range regNames {
		if n == name {
			return r, true
		}
	}
	return 0, false
}

// Regs returns all register identifiers in canonical order.
func Regs() iter.Seq[Reg] {
	return func(yield func(Reg) bool) {
		for r := RIP; r <= R15; r++ {
			if !yield(r) {
				return
			}
		}
	}
}

// Flag identifies an arithmetic flag.
type Flag int

const (
	CF = Flag(0) // carry
	PF = Flag(1) // parity
	AF = Flag(2) // auxiliary carry
	ZF = Flag(3) // zero
	SF = Flag(4) // sign
	OF = Flag(5) // overflow
)

var flagNames = map[Flag]string{
	CF: "CF", PF: "PF", AF: "AF", ZF: "ZF", SF: "SF", OF: "OF",
}

// String returns the architectural flag name.
func (f Flag) String() string {
	name, ok := flagNames[f]
	if !ok {
		return fmt.Sprintf("flag(%d)", int(f))
	}
	return name
}

// FlagNamed looks a flag up by its architectural name.
func FlagNamed(name string) (flag Flag, ok bool) {
	for f, n := range flagNames {
		if n == name {
			return f, true
		}
	}
	return 0, false
}

// Flags returns all flag identifiers in canonical order.
func Flags() iter.Seq[Flag] {
	return func(yield func(Flag) bool) {
		for f := CF; f <= OF; f++ {
			if !yield(f) {
				return
			}
		}
	}
}

// Bit is a tri-state flag value. Undef models an architecturally
// unspecified outcome and is a value, not an error.
type Bit uint8

const (
	Zero  = Bit(0)
	One   = Bit(1)
	Undef = Bit(2)
)

// String returns the flag value as text.
func (b Bit) String() string {
	switch b {
	case Zero:
		return "0"
	case One:
		return "1"
	case Undef:
		return "U"
	}
	return "?"
}

// Defined returns true unless the value is Undef.
func (b Bit) Defined() bool {
	return b != Undef
}

// BitOf converts the low bit of an integer to a Bit.
func BitOf(v uint64) Bit {
	if v&1 != 0 {
		return One
	}
	return Zero
}

// State is an immutable register and flag valuation. The zero State has
// every field unset; use New to construct one with an instruction pointer.
type State struct {
	regs  map[Reg]uint64
	flags map[Flag]Bit
}

// New creates a State with only the instruction pointer set.
func New(ip uint64) State {
	return State{regs: map[Reg]uint64{RIP: ip}}
}

// clone returns a deep copy; setters mutate the copy only.
func (s State) clone() State {
	out := State{
		regs:  maps.Clone(s.regs),
		flags: maps.Clone(s.flags),
	}
	if out.regs == nil {
		out.regs = map[Reg]uint64{}
	}
	if out.flags == nil {
		out.flags = map[Flag]Bit{}
	}
	return out
}

// With returns a new State with a register set. Last write wins.
func (s State) With(r Reg, v uint64) State {
	out := s.clone()
	out.regs[r] = v
	return out
}

// WithFlag returns a new State with a flag set. Last write wins.
func (s State) WithFlag(f Flag, b Bit) State {
	out := s.clone()
	out.flags[f] = b
	return out
}

// WithAFlags returns a new State with all six arithmetic flags set to the
// same value.
func (s State) WithAFlags(b Bit) State {
	out := s.clone()
	for f := range Flags() {
		out.flags[f] = b
	}
	return out
}

// Get returns a register value, and whether the register is set at all.
func (s State) Get(r Reg) (v uint64, ok bool) {
	v, ok = s.regs[r]
	return
}

// Flag returns a flag value, and whether the flag is set at all.
func (s State) Flag(f Flag) (b Bit, ok bool) {
	b, ok = s.flags[f]
	return
}

// Equal reports whether two states set the same fields to the same values.
func (s State) Equal(o State) bool {
	return maps.Equal(s.regs, o.regs) && maps.Equal(s.flags, o.flags)
}

// SetRegs returns the registers with explicit values, in canonical order.
func (s State) SetRegs() iter.Seq[Reg] {
	return func(yield func(Reg) bool) {
		for r := range Regs() {
			if _, ok := s.regs[r]; ok {
				if !yield(r) {
					return
				}
			}
		}
	}
}

// SetFlags returns the flags with explicit values, in canonical order.
func (s State) SetFlags() iter.Seq[Flag] {
	return func(yield func(Flag) bool) {
		for f := range Flags() {
			if _, ok := s.flags[f]; ok {
				if !yield(f) {
					return
				}
			}
		}
	}
}

// String renders the set fields in canonical order.
func (s State) String() string {
	var parts []string
	for r := range s.SetRegs() {
		parts = append(parts, fmt.Sprintf("%v=%#x", r, s.regs[r]))
	}
	var flags []string
	for f := range s.SetFlags() {
		flags = append(flags, fmt.Sprintf("%v=%v", f, s.flags[f]))
	}
	parts = slices.Concat(parts, flags)
	return strings.Join(parts, " ")
}
