package interp

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/gsoc2/circuitous/provider"
	"github.com/gsoc2/circuitous/state"
)

// Interp is the reference execution provider.
type Interp struct {
	Verbose bool // If set, verbosely logs each executed instruction.
}

// New creates a reference interpreter.
func New() *Interp {
	return &Interp{}
}

// Execute runs the byte sequence to completion, one instruction at a time,
// starting at the input state's RIP. The result state carries every input
// field through, updated by execution.
func (ip *Interp) Execute(ctx context.Context, code []byte, in state.State) (out state.State, err error) {
	m := newMachine(in)

	pc, ok := in.Get(state.RIP)
	if !ok {
		err = &provider.ExecutionError{Reason: "interp", Err: errors.Join(ErrRegisterUnset, fmt.Errorf("%v", state.RIP))}
		return
	}

	offset := 0
	for offset < len(code) {
		select {
		case <-ctx.Done():
			err = &provider.ExecutionError{Reason: "canceled", Err: ctx.Err()}
			return
		default:
		}

		var n int
		n, err = m.step(code[offset:])
		if err != nil {
			err = &provider.ExecutionError{Reason: "interp", Err: err}
			return
		}
		if ip.Verbose {
			log.Printf("interp: %#x: % x", pc, code[offset:offset+n])
		}
		offset += n
		pc += uint64(n)
	}

	m.regs[state.RIP] = pc
	out = m.state()
	return
}

// machine is the mutable working copy of one execution; it is scoped to a
// single Execute call.
type machine struct {
	regs  map[state.Reg]uint64
	flags map[state.Flag]state.Bit
}

func newMachine(in state.State) *machine {
	m := &machine{
		regs:  map[state.Reg]uint64{},
		flags: map[state.Flag]state.Bit{},
	}
	for r := range in.SetRegs() {
		m.regs[r], _ = in.Get(r)
	}
	for f := range in.SetFlags() {
		m.flags[f], _ = in.Flag(f)
	}
	return m
}

// state freezes the working copy back into an immutable State.
func (m *machine) state() state.State {
	out := state.New(m.regs[state.RIP])
	for r, v := range m.regs {
		out = out.With(r, v)
	}
	for f, b := range m.flags {
		out = out.WithFlag(f, b)
	}
	return out
}

func mask(w int) uint64 {
	if w == 64 {
		return ^uint64(0)
	}
	return (uint64(1) << w) - 1
}

func msb(v uint64, w int) uint64 {
	return (v >> (w - 1)) & 1
}

// hwReg maps a hardware register number to its identifier.
func hwReg(n int) state.Reg {
	return state.Reg(int(state.RAX) + n)
}

// read returns the low w bits of a register. Reading an unset register is
// an error: the harness never defaults a consumed field.
func (m *machine) read(n int, w int) (v uint64, err error) {
	full, ok := m.regs[hwReg(n)]
	if !ok {
		err = errors.Join(ErrRegisterUnset, fmt.Errorf("%v", hwReg(n)))
		return
	}
	v = full & mask(w)
	return
}

// write stores the low w bits of a register. 32-bit writes zero-extend;
// 8/16-bit writes merge with the prior value, which therefore must be set.
func (m *machine) write(n int, w int, v uint64) (err error) {
	reg := hwReg(n)
	switch w {
	case 64:
		m.regs[reg] = v
	case 32:
		m.regs[reg] = v & mask(32)
	default:
		full, ok := m.regs[reg]
		if !ok {
			err = errors.Join(ErrRegisterUnset, fmt.Errorf("%v", reg))
			return
		}
		m.regs[reg] = (full &^ mask(w)) | (v & mask(w))
	}
	return
}

// flagBit returns a consumed flag as 0 or 1. Unset and Undef values are
// errors: semantics depending on an undefined flag are not computable.
func (m *machine) flagBit(fl state.Flag) (v uint64, err error) {
	b, ok := m.flags[fl]
	if !ok {
		err = errors.Join(ErrFlagUnset, fmt.Errorf("%v", fl))
		return
	}
	if !b.Defined() {
		err = errors.Join(ErrFlagUndefined, fmt.Errorf("%v", fl))
		return
	}
	v = uint64(b)
	return
}

func (m *machine) setFlag(fl state.Flag, b state.Bit) {
	m.flags[fl] = b
}

// step decodes and executes a single instruction, returning its length.
func (m *machine) step(code []byte) (n int, err error) {
	var rex byte
	opsize16 := false

	i := 0
	for {
		if i >= len(code) {
			err = ErrTruncated
			return
		}
		b := code[i]
		if b == 0x66 {
			opsize16 = true
			i++
			continue
		}
		if b&0xf0 == 0x40 {
			rex = b
			i++
			continue
		}
		break
	}

	opcode := code[i]
	i++

	width := func(byteOp bool) int {
		switch {
		case byteOp:
			return 8
		case rex&0x08 != 0:
			return 64
		case opsize16:
			return 16
		default:
			return 32
		}
	}

	// modrm parses a register-direct modrm byte. Memory forms are outside
	// the model.
	modrm := func() (rm, reg int, err error) {
		if i >= len(code) {
			err = ErrTruncated
			return
		}
		b := code[i]
		i++
		if b>>6 != 3 {
			err = ErrNotRegister
			return
		}
		rm = int(b & 7)
		if rex&0x01 != 0 {
			rm |= 8
		}
		reg = int((b >> 3) & 7)
		if rex&0x04 != 0 {
			reg |= 8
		}
		// Without REX, r/m 4-7 in a byte op names the legacy high-byte
		// registers, which the model does not cover.
		return
	}

	immediate := func(size int) (v uint64, err error) {
		if i+size > len(code) {
			err = ErrTruncated
			return
		}
		for k := 0; k < size; k++ {
			v |= uint64(code[i+k]) << (8 * k)
		}
		i += size
		return
	}

	byteReg := func(n int) error {
		if rex == 0 && n >= 4 {
			return errors.Join(ErrUnsupported, fmt.Errorf("high-byte register"))
		}
		return nil
	}

	switch {
	case opcode == 0xd0 || opcode == 0xd1 || opcode == 0xd2 || opcode == 0xd3 ||
		opcode == 0xc0 || opcode == 0xc1:
		byteOp := opcode == 0xd0 || opcode == 0xd2 || opcode == 0xc0
		w := width(byteOp)
		var rm, ext int
		rm, ext, err = modrm()
		if err != nil {
			return
		}
		if byteOp {
			if err = byteReg(rm); err != nil {
				return
			}
		}

		var count uint64
		switch opcode {
		case 0xd0, 0xd1:
			count = 1
		case 0xd2, 0xd3:
			count, err = m.read(1, 8) // CL
			if err != nil {
				return
			}
		default:
			count, err = immediate(1)
			if err != nil {
				return
			}
		}

		err = m.shiftRotate(ext, w, rm, count)
		if err != nil {
			return
		}
		n = i
		return

	case opcode < 0x40 && opcode&0x06 == 0x00:
		// Classic ALU group, r/m,r direction (00, 01, 08, 09, ... 39).
		byteOp := opcode&1 == 0
		w := width(byteOp)
		var rm, reg int
		rm, reg, err = modrm()
		if err != nil {
			return
		}
		if byteOp {
			if err = errors.Join(byteReg(rm), byteReg(reg)); err != nil {
				return
			}
		}
		var src uint64
		src, err = m.read(reg, w)
		if err != nil {
			return
		}
		err = m.alu(int(opcode>>3), w, rm, src)
		if err != nil {
			return
		}
		n = i
		return

	case opcode == 0x80 || opcode == 0x81 || opcode == 0x83:
		byteOp := opcode == 0x80
		w := width(byteOp)
		var rm, ext int
		rm, ext, err = modrm()
		if err != nil {
			return
		}
		if byteOp {
			if err = byteReg(rm); err != nil {
				return
			}
		}
		var imm uint64
		switch {
		case opcode == 0x80:
			imm, err = immediate(1)
		case opcode == 0x83:
			imm, err = immediate(1)
			imm = signExtend(imm, 8) & mask(w)
		case w == 16:
			imm, err = immediate(2)
		default:
			imm, err = immediate(4)
			if w == 64 {
				imm = signExtend(imm, 32)
			}
		}
		if err != nil {
			return
		}
		err = m.alu(ext, w, rm, imm&mask(w))
		if err != nil {
			return
		}
		n = i
		return

	case opcode == 0x84 || opcode == 0x85:
		byteOp := opcode == 0x84
		w := width(byteOp)
		var rm, reg int
		rm, reg, err = modrm()
		if err != nil {
			return
		}
		if byteOp {
			if err = errors.Join(byteReg(rm), byteReg(reg)); err != nil {
				return
			}
		}
		var v1, v2 uint64
		if v1, err = m.read(rm, w); err != nil {
			return
		}
		if v2, err = m.read(reg, w); err != nil {
			return
		}
		m.logicFlags(v1&v2, w)
		n = i
		return

	case opcode == 0xf6 || opcode == 0xf7:
		byteOp := opcode == 0xf6
		w := width(byteOp)
		var rm, ext int
		rm, ext, err = modrm()
		if err != nil {
			return
		}
		if byteOp {
			if err = byteReg(rm); err != nil {
				return
			}
		}
		err = m.unaryF7(ext, w, rm, func(size int) (uint64, error) { return immediate(size) })
		if err != nil {
			return
		}
		n = i
		return

	case opcode == 0xfe || opcode == 0xff:
		byteOp := opcode == 0xfe
		w := width(byteOp)
		var rm, ext int
		rm, ext, err = modrm()
		if err != nil {
			return
		}
		if byteOp {
			if err = byteReg(rm); err != nil {
				return
			}
		}
		err = m.incDec(ext, w, rm)
		if err != nil {
			return
		}
		n = i
		return

	case opcode == 0x88 || opcode == 0x89:
		byteOp := opcode == 0x88
		w := width(byteOp)
		var rm, reg int
		rm, reg, err = modrm()
		if err != nil {
			return
		}
		if byteOp {
			if err = errors.Join(byteReg(rm), byteReg(reg)); err != nil {
				return
			}
		}
		var src uint64
		if src, err = m.read(reg, w); err != nil {
			return
		}
		if err = m.write(rm, w, src); err != nil {
			return
		}
		n = i
		return

	case opcode >= 0xb0 && opcode <= 0xb7:
		rm := int(opcode & 7)
		if rex&0x01 != 0 {
			rm |= 8
		}
		if err = byteReg(rm); err != nil {
			return
		}
		var imm uint64
		if imm, err = immediate(1); err != nil {
			return
		}
		if err = m.write(rm, 8, imm); err != nil {
			return
		}
		n = i
		return

	case opcode >= 0xb8 && opcode <= 0xbf:
		w := width(false)
		rm := int(opcode & 7)
		if rex&0x01 != 0 {
			rm |= 8
		}
		var imm uint64
		if imm, err = immediate(w / 8); err != nil {
			return
		}
		if err = m.write(rm, w, imm); err != nil {
			return
		}
		n = i
		return
	}

	err = errors.Join(ErrUnsupported, fmt.Errorf("opcode %#02x", opcode))
	return
}
