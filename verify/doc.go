// Package verify is the comparator and verdict engine: it runs each case's
// byte sequence under a reference provider and a subject provider from the
// same initial state, reconciles the outcomes against the case's expected
// delta under the undefined-flag policy, and checks the computed verdict
// against the one the author declared.
//
// Suites are built declaratively, registered by name, selected by tag, and
// evaluated on a worker pool; results are merged into a deterministic
// per-suite report.
package verify
