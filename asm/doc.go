// Package asm encodes Intel-syntax assembly lines into machine-code bytes
// for the verification harness.
//
// The harness treats encoding as a pure function: given the same lines, an
// Encoder must return the same concatenated bytes, with no side effects and
// no caching. An encoding failure is fatal at suite-build time and names
// the offending line.
//
// The built-in Intel encoder covers the register-to-register subset the
// reference interpreter executes: rotates and shifts, the classic ALU
// group, mov, and the single-operand inc/dec/neg/not forms, over the
// 8/16/32/64-bit general-purpose registers.
package asm
