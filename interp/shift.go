package interp

import (
	"errors"
	"fmt"

	"github.com/gsoc2/circuitous/state"
)

// shiftRotate executes the D0-D3/C0-C1 group. The count is masked to 5 bits
// (6 for 64-bit operands) before anything else; a masked count of zero
// leaves the destination and every flag untouched.
//
// The undefined-flag rules are load-bearing here: OF is architecturally
// defined only for a count of one, the auxiliary carry is undefined after
// every shift, and CF is undefined when a plain shift count exceeds the
// operand width. Those fields come back as Undef, not as whatever bit the
// host hardware happens to produce.
func (m *machine) shiftRotate(ext int, w int, rm int, count uint64) (err error) {
	v, err := m.read(rm, w)
	if err != nil {
		return
	}

	cmask := uint64(31)
	if w == 64 {
		cmask = 63
	}
	c := count & cmask
	if c == 0 {
		return
	}

	uw := uint64(w)
	var r uint64

	switch ext {
	case 0: // rol
		e := c % uw
		r = ((v << e) | (v >> (uw - e))) & mask(w)
		m.setFlag(state.CF, state.BitOf(r))
		if c == 1 {
			m.setFlag(state.OF, state.BitOf(msb(r, w)^(r&1)))
		} else {
			m.setFlag(state.OF, state.Undef)
		}

	case 1: // ror
		e := c % uw
		r = ((v >> e) | (v << (uw - e))) & mask(w)
		m.setFlag(state.CF, state.BitOf(msb(r, w)))
		if c == 1 {
			m.setFlag(state.OF, state.BitOf(msb(r, w)^((r>>(w-2))&1)))
		} else {
			m.setFlag(state.OF, state.Undef)
		}

	case 2: // rcl
		var cf uint64
		if cf, err = m.flagBit(state.CF); err != nil {
			return
		}
		e := c
		switch w {
		case 8:
			e = c % 9
		case 16:
			e = c % 17
		}
		r = v
		newCF := cf
		if e != 0 {
			r = (v << e) | (cf << (e - 1))
			if e > 1 {
				r |= v >> (uw + 1 - e)
			}
			r &= mask(w)
			newCF = (v >> (uw - e)) & 1
		}
		m.setFlag(state.CF, state.BitOf(newCF))
		if c == 1 {
			m.setFlag(state.OF, state.BitOf(msb(r, w)^newCF))
		} else {
			m.setFlag(state.OF, state.Undef)
		}

	case 3: // rcr
		var cf uint64
		if cf, err = m.flagBit(state.CF); err != nil {
			return
		}
		// OF is computed from the pre-rotate sign bit and incoming carry.
		if c == 1 {
			m.setFlag(state.OF, state.BitOf(msb(v, w)^cf))
		} else {
			m.setFlag(state.OF, state.Undef)
		}
		e := c
		switch w {
		case 8:
			e = c % 9
		case 16:
			e = c % 17
		}
		r = v
		if e != 0 {
			r = (v >> e) | (cf << (uw - e))
			if e > 1 {
				r |= (v << (uw + 1 - e)) & mask(w)
			}
			newCF := (v >> (e - 1)) & 1
			m.setFlag(state.CF, state.BitOf(newCF))
		}

	case 4: // shl
		r = (v << c) & mask(w)
		if c <= uw {
			m.setFlag(state.CF, state.BitOf(v>>(uw-c)))
		} else {
			m.setFlag(state.CF, state.Undef)
		}
		if c == 1 {
			m.setFlag(state.OF, state.BitOf(msb(r, w)^msb(v, w)))
		} else {
			m.setFlag(state.OF, state.Undef)
		}
		m.setFlag(state.AF, state.Undef)
		m.setSZP(r, w)

	case 5: // shr
		r = v >> c
		if c <= uw {
			m.setFlag(state.CF, state.BitOf(v>>(c-1)))
		} else {
			m.setFlag(state.CF, state.Undef)
		}
		if c == 1 {
			m.setFlag(state.OF, state.BitOf(msb(v, w)))
		} else {
			m.setFlag(state.OF, state.Undef)
		}
		m.setFlag(state.AF, state.Undef)
		m.setSZP(r, w)

	case 7: // sar
		sign := msb(v, w)
		if c >= uw {
			r = 0
			if sign == 1 {
				r = mask(w)
			}
			m.setFlag(state.CF, state.BitOf(sign))
		} else {
			r = uint64(int64(signExtend(v, uint(w)))>>c) & mask(w)
			m.setFlag(state.CF, state.BitOf(v>>(c-1)))
		}
		if c == 1 {
			m.setFlag(state.OF, state.Zero)
		} else {
			m.setFlag(state.OF, state.Undef)
		}
		m.setFlag(state.AF, state.Undef)
		m.setSZP(r, w)

	default:
		err = errors.Join(ErrUnsupported, fmt.Errorf("shift /%d", ext))
		return
	}

	err = m.write(rm, w, r)
	return
}
