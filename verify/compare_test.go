package verify

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gsoc2/circuitous/state"
)

func TestCompareAgreement(t *testing.T) {
	assert := assert.New(t)

	ref := state.New(0x103).With(state.RAX, 5).WithAFlags(state.Zero)
	sub := state.New(0x103).With(state.RAX, 5).WithAFlags(state.Zero)

	assert.Empty(Compare(state.MS(), ref, sub))
}

func TestCompareRegisterDivergence(t *testing.T) {
	assert := assert.New(t)

	ref := state.New(0x103).With(state.RAX, 5)
	sub := state.New(0x103).With(state.RAX, 6)

	mismatches := Compare(state.MS(), ref, sub)
	assert.Len(mismatches, 1)
	assert.Equal("RAX", mismatches[0].Field)
	assert.Equal("0x5", mismatches[0].Reference)
	assert.Equal("0x6", mismatches[0].Subject)
}

func TestCompareConcreteRegister(t *testing.T) {
	assert := assert.New(t)

	ref := state.New(0x103).With(state.RAX, 5)
	sub := state.New(0x103).With(state.RAX, 5)

	assert.Empty(Compare(state.MS().Reg(state.RAX, 5), ref, sub))

	// The reference itself must match the concrete expectation.
	mismatches := Compare(state.MS().Reg(state.RAX, 9), ref, sub)
	assert.Len(mismatches, 1)
	assert.Equal("RAX", mismatches[0].Field)
	assert.Equal("0x9", mismatches[0].Expected)
}

func TestCompareUndefinedExemption(t *testing.T) {
	assert := assert.New(t)

	// The reference reports OF undefined, the subject holds a concrete bit:
	// an unsanctioned divergence fails the case.
	ref := state.New(0x103).WithAFlags(state.Zero).WithFlag(state.OF, state.Undef)
	sub := state.New(0x103).WithAFlags(state.Zero).WithFlag(state.OF, state.One)

	mismatches := Compare(state.MS(), ref, sub)
	assert.Len(mismatches, 1)
	assert.Equal("OF", mismatches[0].Field)

	// Marking OF undefined sanctions exactly that divergence.
	assert.Empty(Compare(state.MS().U(state.OF), ref, sub))
}

func TestCompareExemptionIsPerField(t *testing.T) {
	assert := assert.New(t)

	// Exempting OF never excuses a CF divergence.
	ref := state.New(0x103).WithAFlags(state.Zero).WithFlag(state.OF, state.Undef)
	sub := state.New(0x103).WithAFlags(state.Zero).
		WithFlag(state.OF, state.One).
		WithFlag(state.CF, state.One)

	mismatches := Compare(state.MS().U(state.OF), ref, sub)
	assert.Len(mismatches, 1)
	assert.Equal("CF", mismatches[0].Field)
}

func TestCompareOverSpecifiedExpectation(t *testing.T) {
	assert := assert.New(t)

	// Asserting a concrete OF where the architecture leaves it undefined is
	// a wrong expectation, and the comparator catches it.
	ref := state.New(0x103).WithAFlags(state.Zero).WithFlag(state.OF, state.Undef)
	sub := state.New(0x103).WithAFlags(state.Zero).WithFlag(state.OF, state.Zero)

	mismatches := Compare(state.MS().Flag(state.OF, state.Zero), ref, sub)
	assert.Len(mismatches, 1)
	assert.Equal("OF", mismatches[0].Field)
	assert.Equal("U", mismatches[0].Reference)
}

func TestCompareConcreteFlag(t *testing.T) {
	assert := assert.New(t)

	ref := state.New(0x103).WithAFlags(state.Zero).WithFlag(state.CF, state.One)
	sub := state.New(0x103).WithAFlags(state.Zero).WithFlag(state.CF, state.One)

	assert.Empty(Compare(state.MS().Flag(state.CF, state.One), ref, sub))

	mismatches := Compare(state.MS().Flag(state.CF, state.Zero), ref, sub)
	assert.Len(mismatches, 1)
	assert.Equal("CF", mismatches[0].Field)

	// The subject is held to the reference's value.
	sub2 := sub.WithFlag(state.CF, state.Zero)
	mismatches = Compare(state.MS().Flag(state.CF, state.One), ref, sub2)
	assert.Len(mismatches, 1)
	assert.Equal("CF", mismatches[0].Field)
}

func TestCompareUnspecifiedIgnored(t *testing.T) {
	assert := assert.New(t)

	ref := state.New(0x103).With(state.RAX, 5).WithAFlags(state.Zero).WithFlag(state.CF, state.One)
	sub := state.New(0x103).With(state.RAX, 9).WithAFlags(state.Zero).WithFlag(state.CF, state.Zero)

	d := state.MS().SkipReg(state.RAX).SkipFlag(state.CF)
	assert.Empty(Compare(d, ref, sub))
}

func TestCompareSubjectOnlyFieldsIgnored(t *testing.T) {
	assert := assert.New(t)

	// The subject materializes a full flags word; fields the reference
	// never produced are not checked.
	ref := state.New(0x103).With(state.RAX, 5)
	sub := state.New(0x103).With(state.RAX, 5).WithAFlags(state.Zero)

	assert.Empty(Compare(state.MS(), ref, sub))
}

func TestCompareCollectsEveryMismatch(t *testing.T) {
	assert := assert.New(t)

	ref := state.New(0x103).With(state.RAX, 1).With(state.RBX, 2).WithAFlags(state.Zero)
	sub := state.New(0x103).With(state.RAX, 9).With(state.RBX, 8).WithAFlags(state.One)

	mismatches := Compare(state.MS(), ref, sub)
	assert.Len(mismatches, 8, "two registers and six flags")
}
