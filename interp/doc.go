// Package interp is the built-in reference execution provider: a small
// x86-64 interpreter covering exactly the register-to-register subset the
// built-in encoder emits.
//
// Flag results follow the architectural rules, including the undefined
// cases: flags the architecture leaves unspecified (OF at rotate/shift
// counts other than 1, AF after shifts and logical ops, CF when a shift
// count exceeds the operand width) are returned as the first-class Undef
// value, never coerced to a concrete bit.
//
// Registers and flags an instruction reads must be set in the initial
// state; the interpreter never defaults a consumed field to zero.
package interp
