package interp

import (
	"errors"
	"fmt"
	"math/bits"

	"github.com/gsoc2/circuitous/state"
)

// signExtend sign-extends the low n bits of v to 64 bits.
func signExtend(v uint64, n uint) uint64 {
	shift := 64 - n
	return uint64(int64(v<<shift) >> shift)
}

// addW adds v1+v2+c in w bits and reports the carry out.
func addW(v1, v2, c uint64, w int) (r uint64, carry bool) {
	if w == 64 {
		var co uint64
		r, co = bits.Add64(v1, v2, c)
		carry = co != 0
		return
	}
	sum := v1 + v2 + c
	r = sum & mask(w)
	carry = sum > mask(w)
	return
}

// subW computes v1-v2-c in w bits and reports the borrow out.
func subW(v1, v2, c uint64, w int) (r uint64, borrow bool) {
	if w == 64 {
		var bo uint64
		r, bo = bits.Sub64(v1, v2, c)
		borrow = bo != 0
		return
	}
	total := v2 + c
	r = (v1 - total) & mask(w)
	borrow = v1 < total
	return
}

func boolBit(b bool) state.Bit {
	if b {
		return state.One
	}
	return state.Zero
}

// setSZP sets the sign, zero, and parity flags from a result.
func (m *machine) setSZP(r uint64, w int) {
	m.setFlag(state.SF, state.BitOf(msb(r, w)))
	m.setFlag(state.ZF, boolBit(r&mask(w) == 0))
	m.setFlag(state.PF, boolBit(bits.OnesCount8(uint8(r))%2 == 0))
}

// addFlags sets all six flags for an addition result.
func (m *machine) addFlags(r, v1, v2 uint64, w int, carry bool) {
	m.setFlag(state.CF, boolBit(carry))
	m.setFlag(state.OF, state.BitOf(msb(^(v1^v2)&(v1^r), w)))
	m.setFlag(state.AF, state.BitOf((v1^v2^r)>>4))
	m.setSZP(r, w)
}

// subFlags sets all six flags for a subtraction result.
func (m *machine) subFlags(r, v1, v2 uint64, w int, borrow bool) {
	m.setFlag(state.CF, boolBit(borrow))
	m.setFlag(state.OF, state.BitOf(msb((v1^v2)&(v1^r), w)))
	m.setFlag(state.AF, state.BitOf((v1^v2^r)>>4))
	m.setSZP(r, w)
}

// logicFlags sets the flags for a logical result: carry and overflow are
// cleared, auxiliary carry is architecturally undefined.
func (m *machine) logicFlags(r uint64, w int) {
	m.setFlag(state.CF, state.Zero)
	m.setFlag(state.OF, state.Zero)
	m.setFlag(state.AF, state.Undef)
	m.setSZP(r, w)
}

// alu executes one classic-group operation on a register destination.
// The index follows the opcode order: add or adc sbb and sub xor cmp.
func (m *machine) alu(idx int, w int, rm int, v2 uint64) (err error) {
	v1, err := m.read(rm, w)
	if err != nil {
		return
	}

	var r uint64
	writeback := true

	switch idx {
	case 0: // add
		var carry bool
		r, carry = addW(v1, v2, 0, w)
		m.addFlags(r, v1, v2, w, carry)
	case 1: // or
		r = v1 | v2
		m.logicFlags(r, w)
	case 2: // adc
		var c uint64
		if c, err = m.flagBit(state.CF); err != nil {
			return
		}
		var carry bool
		r, carry = addW(v1, v2, c, w)
		m.addFlags(r, v1, v2, w, carry)
	case 3: // sbb
		var c uint64
		if c, err = m.flagBit(state.CF); err != nil {
			return
		}
		var borrow bool
		r, borrow = subW(v1, v2, c, w)
		m.subFlags(r, v1, v2, w, borrow)
	case 4: // and
		r = v1 & v2
		m.logicFlags(r, w)
	case 5: // sub
		var borrow bool
		r, borrow = subW(v1, v2, 0, w)
		m.subFlags(r, v1, v2, w, borrow)
	case 6: // xor
		r = v1 ^ v2
		m.logicFlags(r, w)
	case 7: // cmp
		var borrow bool
		r, borrow = subW(v1, v2, 0, w)
		m.subFlags(r, v1, v2, w, borrow)
		writeback = false
	default:
		err = errors.Join(ErrUnsupported, fmt.Errorf("alu /%d", idx))
		return
	}

	if writeback {
		err = m.write(rm, w, r)
	}
	return
}

// unaryF7 executes the F6/F7 group: test-immediate, not, neg.
func (m *machine) unaryF7(ext int, w int, rm int, immediate func(int) (uint64, error)) (err error) {
	v1, err := m.read(rm, w)
	if err != nil {
		return
	}

	switch ext {
	case 0: // test imm
		size := 4
		switch w {
		case 8:
			size = 1
		case 16:
			size = 2
		}
		var imm uint64
		if imm, err = immediate(size); err != nil {
			return
		}
		if w == 64 {
			imm = signExtend(imm, 32)
		}
		m.logicFlags(v1&(imm&mask(w)), w)
	case 2: // not
		err = m.write(rm, w, ^v1&mask(w))
	case 3: // neg
		r, _ := subW(0, v1, 0, w)
		m.subFlags(r, 0, v1, w, v1 != 0)
		err = m.write(rm, w, r)
	default:
		err = errors.Join(ErrUnsupported, fmt.Errorf("f7 /%d", ext))
	}
	return
}

// incDec executes the FE/FF group. Carry is not affected.
func (m *machine) incDec(ext int, w int, rm int) (err error) {
	v1, err := m.read(rm, w)
	if err != nil {
		return
	}

	var r uint64
	switch ext {
	case 0: // inc
		r, _ = addW(v1, 1, 0, w)
		m.setFlag(state.OF, state.BitOf(msb(^(v1^1)&(v1^r), w)))
		m.setFlag(state.AF, state.BitOf((v1^1^r)>>4))
	case 1: // dec
		r, _ = subW(v1, 1, 0, w)
		m.setFlag(state.OF, state.BitOf(msb((v1^1)&(v1^r), w)))
		m.setFlag(state.AF, state.BitOf((v1^1^r)>>4))
	default:
		err = errors.Join(ErrUnsupported, fmt.Errorf("ff /%d", ext))
		return
	}
	m.setSZP(r, w)
	err = m.write(rm, w, r)
	return
}
