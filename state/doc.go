// Package state models x86-64 processor state for differential
// instruction verification.
//
// A State is an immutable valuation of general-purpose registers and
// arithmetic flags. Registers default to an "unset" sentinel distinct from
// zero; flags are tri-state values {Zero, One, Undef} where Undef models an
// architecturally unspecified outcome as a first-class value.
//
// A Delta (MS) is a sparse expected-change specification: each field may be
// given a required concrete value, marked explicitly undefined, or marked
// unspecified. Both types use builder-style construction where every setter
// returns a new value, so suites can share a base state without aliasing.
package state
