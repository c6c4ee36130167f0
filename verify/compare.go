package verify

import (
	"fmt"

	"github.com/gsoc2/circuitous/state"
)

// Mismatch is one per-field reconciliation failure. Mismatches are
// collected, never thrown eagerly, so one evaluation reports every
// discrepancy in a case.
type Mismatch struct {
	Field     string
	Expected  string // the designation, or the implicit agreement rule
	Reference string
	Subject   string
}

// String renders the mismatch for the run report.
func (m Mismatch) String() string {
	return fmt.Sprintf("%v: expected %v, reference %v, subject %v",
		m.Field, m.Expected, m.Reference, m.Subject)
}

// Compare reconciles the two provider outcomes against an expected delta.
// An empty result means the case passes.
//
// Per field, the designation decides the check:
//
//   - Unspecified: the field is ignored entirely.
//   - Undefined: equality between the providers is waived for this field,
//     and only this field; both providers must still have produced a value
//     for it.
//   - Concrete: the reference must hold exactly the expected value. A
//     reference that reports the flag undefined fails here: the expectation
//     over-specified an architecturally unspecified outcome. The subject is
//     then held to the reference's value.
//   - No designation: the providers must agree, and neither may report the
//     field undefined; an undefined outcome is only acceptable where the
//     delta sanctions it.
func Compare(expected state.Delta, ref, sub state.State) (mismatches []Mismatch) {
	for r := range state.Regs() {
		mismatches = append(mismatches, compareReg(expected, ref, sub, r)...)
	}
	for fl := range state.Flags() {
		mismatches = append(mismatches, compareFlag(expected, ref, sub, fl)...)
	}
	return
}

func compareReg(expected state.Delta, ref, sub state.State, r state.Reg) (mismatches []Mismatch) {
	refV, refOK := ref.Get(r)
	subV, subOK := sub.Get(r)

	e, designated := expected.RegExpect(r)
	if designated && e.Kind == state.Unspecified {
		return
	}

	if designated && e.Kind == state.Concrete {
		want := fmt.Sprintf("%#x", e.Value)
		if !refOK || refV != e.Value {
			mismatches = append(mismatches, Mismatch{
				Field:     r.String(),
				Expected:  want,
				Reference: renderReg(refV, refOK),
				Subject:   renderReg(subV, subOK),
			})
			return
		}
		if !subOK || subV != e.Value {
			mismatches = append(mismatches, Mismatch{
				Field:     r.String(),
				Expected:  want,
				Reference: renderReg(refV, refOK),
				Subject:   renderReg(subV, subOK),
			})
		}
		return
	}

	// Undesignated (or, degenerately, designated undefined): the providers
	// must simply agree wherever the reference has a value.
	if !refOK {
		return
	}
	if !subOK || subV != refV {
		mismatches = append(mismatches, Mismatch{
			Field:     r.String(),
			Expected:  "agreement with reference",
			Reference: renderReg(refV, refOK),
			Subject:   renderReg(subV, subOK),
		})
	}
	return
}

func compareFlag(expected state.Delta, ref, sub state.State, fl state.Flag) (mismatches []Mismatch) {
	refB, refOK := ref.Flag(fl)
	subB, subOK := sub.Flag(fl)

	e, designated := expected.FlagExpect(fl)
	if designated && e.Kind == state.Unspecified {
		return
	}

	if designated && e.Kind == state.Undefined {
		// Equality is waived, the obligation to produce a value is not.
		if !refOK || !subOK {
			mismatches = append(mismatches, Mismatch{
				Field:     fl.String(),
				Expected:  "any value (undefined-exempt)",
				Reference: renderFlag(refB, refOK),
				Subject:   renderFlag(subB, subOK),
			})
		}
		return
	}

	if designated && e.Kind == state.Concrete {
		want := e.Bit.String()
		if !refOK || !refB.Defined() || refB != e.Bit {
			mismatches = append(mismatches, Mismatch{
				Field:     fl.String(),
				Expected:  want,
				Reference: renderFlag(refB, refOK),
				Subject:   renderFlag(subB, subOK),
			})
			return
		}
		if !subOK || subB != refB {
			mismatches = append(mismatches, Mismatch{
				Field:     fl.String(),
				Expected:  want,
				Reference: renderFlag(refB, refOK),
				Subject:   renderFlag(subB, subOK),
			})
		}
		return
	}

	// Undesignated: wherever the reference has a value, the providers must
	// agree on a defined one. An undefined outcome from either side needed
	// a sanction the delta never gave. Fields only the subject reports are
	// ignored; the reference defines the checked universe.
	if !refOK {
		return
	}
	if !subOK || !refB.Defined() || !subB.Defined() || refB != subB {
		mismatches = append(mismatches, Mismatch{
			Field:     fl.String(),
			Expected:  "defined agreement with reference",
			Reference: renderFlag(refB, refOK),
			Subject:   renderFlag(subB, subOK),
		})
	}
	return
}

func renderReg(v uint64, ok bool) string {
	if !ok {
		return "(unset)"
	}
	return fmt.Sprintf("%#x", v)
}

func renderFlag(b state.Bit, ok bool) string {
	if !ok {
		return "(unset)"
	}
	return b.String()
}
