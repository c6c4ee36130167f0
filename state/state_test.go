package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStateBuild(t *testing.T) {
	assert := assert.New(t)

	s := New(0x100)
	v, ok := s.Get(RIP)
	assert.True(ok)
	assert.Equal(uint64(0x100), v)

	_, ok = s.Get(RAX)
	assert.False(ok, "registers default to unset, not zero")
	_, ok = s.Flag(CF)
	assert.False(ok)

	s2 := s.With(RAX, 5).WithFlag(CF, One)
	v, ok = s2.Get(RAX)
	assert.True(ok)
	assert.Equal(uint64(5), v)
	b, ok := s2.Flag(CF)
	assert.True(ok)
	assert.Equal(One, b)

	// Value semantics: the original is untouched.
	_, ok = s.Get(RAX)
	assert.False(ok)

	// Last write wins.
	s3 := s2.With(RAX, 7)
	v, _ = s3.Get(RAX)
	assert.Equal(uint64(7), v)
	v, _ = s2.Get(RAX)
	assert.Equal(uint64(5), v)
}

func TestStateAFlags(t *testing.T) {
	assert := assert.New(t)

	s := New(0x100).WithAFlags(Zero)
	for f := range Flags() {
		b, ok := s.Flag(f)
		assert.True(ok, f.String())
		assert.Equal(Zero, b, f.String())
	}

	s = s.WithAFlags(One).WithFlag(OF, Undef)
	b, _ := s.Flag(CF)
	assert.Equal(One, b)
	b, _ = s.Flag(OF)
	assert.Equal(Undef, b)
}

func TestStateEqual(t *testing.T) {
	assert := assert.New(t)

	a := New(0x100).With(RAX, 1).WithFlag(ZF, One)
	b := New(0x100).WithFlag(ZF, One).With(RAX, 1)
	assert.True(a.Equal(b))

	assert.False(a.Equal(a.With(RAX, 2)))
	assert.False(a.Equal(a.With(RBX, 0)), "an unset field differs from a zero one")
	assert.False(a.Equal(a.WithFlag(ZF, Undef)))
}

func TestRegFlagNames(t *testing.T) {
	assert := assert.New(t)

	for r := range Regs() {
		got, ok := RegNamed(r.String())
		assert.True(ok, r.String())
		assert.Equal(r, got)
	}
	for f := range Flags() {
		got, ok := FlagNamed(f.String())
		assert.True(ok, f.String())
		assert.Equal(f, got)
	}

	_, ok := RegNamed("XMM0")
	assert.False(ok)
	_, ok = FlagNamed("TF")
	assert.False(ok)
}

func TestBit(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(Zero, BitOf(0))
	assert.Equal(One, BitOf(1))
	assert.Equal(One, BitOf(0xff))
	assert.Equal(Zero, BitOf(0xfe))

	assert.True(Zero.Defined())
	assert.True(One.Defined())
	assert.False(Undef.Defined())

	assert.Equal("0", Zero.String())
	assert.Equal("1", One.String())
	assert.Equal("U", Undef.String())
}

func TestStateString(t *testing.T) {
	assert := assert.New(t)

	s := New(0x100).With(RDX, 0x7fffffffffffffff).WithFlag(OF, Undef).WithFlag(CF, Zero)
	assert.Equal("RIP=0x100 RDX=0x7fffffffffffffff CF=0 OF=U", s.String())
}
