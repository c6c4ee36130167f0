package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeltaBuild(t *testing.T) {
	assert := assert.New(t)

	d := MS()
	_, ok := d.RegExpect(RAX)
	assert.False(ok, "the empty delta constrains nothing")
	_, ok = d.FlagExpect(OF)
	assert.False(ok)

	d2 := d.Reg(RAX, 0x10).U(OF).SkipFlag(AF)

	e, ok := d2.RegExpect(RAX)
	assert.True(ok)
	assert.Equal(Concrete, e.Kind)
	assert.Equal(uint64(0x10), e.Value)

	fe, ok := d2.FlagExpect(OF)
	assert.True(ok)
	assert.Equal(Undefined, fe.Kind)

	fe, ok = d2.FlagExpect(AF)
	assert.True(ok)
	assert.Equal(Unspecified, fe.Kind)

	// Value semantics.
	_, ok = d.RegExpect(RAX)
	assert.False(ok)
	assert.Empty(d2.Conflicts())
}

func TestDeltaLastWriteWins(t *testing.T) {
	assert := assert.New(t)

	d := MS().Flag(CF, Zero).Flag(CF, One)
	e, _ := d.FlagExpect(CF)
	assert.Equal(One, e.Bit)
	assert.Empty(d.Conflicts(), "re-designating concrete with concrete is not a conflict")

	d = MS().U(OF).Flag(OF, One)
	e, _ = d.FlagExpect(OF)
	assert.Equal(Concrete, e.Kind)
	assert.Empty(d.Conflicts(), "strengthening is not a conflict")
}

func TestDeltaWeakeningConflicts(t *testing.T) {
	assert := assert.New(t)

	// Overwriting a concrete expectation with a weaker designation still
	// takes effect, but is recorded: it is a common authoring error.
	d := MS().Flag(OF, One).U(OF)
	e, _ := d.FlagExpect(OF)
	assert.Equal(Undefined, e.Kind)

	conflicts := d.Conflicts()
	assert.Len(conflicts, 1)
	assert.Equal("OF", conflicts[0].Field)
	assert.Equal(Concrete, conflicts[0].From)
	assert.Equal(Undefined, conflicts[0].To)

	d = MS().Reg(RBX, 1).SkipReg(RBX)
	assert.Len(d.Conflicts(), 1)

	d = MS().Flag(ZF, Zero).SkipFlag(ZF)
	assert.Len(d.Conflicts(), 1)
}

func TestDeltaOrderIndependence(t *testing.T) {
	assert := assert.New(t)

	a := MS().Reg(RAX, 1).U(OF).Flag(CF, One)
	b := MS().Flag(CF, One).Reg(RAX, 1).U(OF)

	for r := range Regs() {
		ea, oka := a.RegExpect(r)
		eb, okb := b.RegExpect(r)
		assert.Equal(oka, okb, r.String())
		assert.Equal(ea, eb, r.String())
	}
	for f := range Flags() {
		ea, oka := a.FlagExpect(f)
		eb, okb := b.FlagExpect(f)
		assert.Equal(oka, okb, f.String())
		assert.Equal(ea, eb, f.String())
	}
}

func TestDeltaString(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("(unconstrained)", MS().String())
	d := MS().U(OF).Reg(RDX, 0xff).Flag(CF, One)
	assert.Equal("RDX=0xff CF=1 OF=undefined", d.String())
}
