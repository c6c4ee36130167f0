// Package defs loads declarative suite definitions written in Starlark.
//
// A definition file builds suites with a small vocabulary: S(ip) starts an
// initial state, MS() an expected delta, intel(lines) encodes assembly to
// bytes at load time, and verify_test(name) opens a suite to hang tags,
// bytes, and cases on. Encoding failures surface while the file loads,
// before any provider executes.
//
//	verify_test("rcl_rdx_cl").tags(["rcl", "min"]).bytes(intel(["rcl rdx, cl"])).case(
//	    I = S(0x100).RDX(0x7fffffffffffffff).RCX(63).aflags(0),
//	    DE = MS().uOF(),
//	    R = True,
//	)
package defs
