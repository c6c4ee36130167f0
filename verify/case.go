package verify

import (
	"errors"
	"fmt"
	"slices"

	"github.com/gsoc2/circuitous/asm"
	"github.com/gsoc2/circuitous/state"
)

// Case pairs an initial state with an expected delta and an expected
// verdict. A case with Verdict false is a negative test: the engine must
// find a real failure, and an accidental pass fails the suite.
//
// Disputed marks a case whose correct expectation is an open question; the
// runner reports it as skipped instead of asserting unverified behavior.
type Case struct {
	Initial  state.State
	Expected state.Delta
	Verdict  bool
	Disputed bool
}

// Suite is a named, taggable group of cases sharing one encoded byte
// sequence. Build it fluently; Check surfaces accumulated build errors.
type Suite struct {
	name  string
	tags  []string
	lines []string
	code  []byte
	cases []Case
	err   error
}

// New starts an empty suite.
func New(name string) *Suite {
	return &Suite{name: name}
}

// Name returns the suite name.
func (s *Suite) Name() string {
	return s.name
}

// Tag adds selection tags. Duplicates are dropped.
func (s *Suite) Tag(tags ...string) *Suite {
	for _, t := range tags {
		if !slices.Contains(s.tags, t) {
			s.tags = append(s.tags, t)
		}
	}
	return s
}

// Tags returns the suite's tags in attachment order.
func (s *Suite) Tags() []string {
	return slices.Clone(s.tags)
}

// Tagged reports whether the suite carries any of the given tags. An empty
// query matches every suite.
func (s *Suite) Tagged(tags ...string) bool {
	if len(tags) == 0 {
		return true
	}
	for _, t := range tags {
		if slices.Contains(s.tags, t) {
			return true
		}
	}
	return false
}

// Bytes encodes the assembly lines now and attaches the result. Encoding is
// a build-time step: a failure here is recorded and aborts the suite at
// Check, before any provider executes.
func (s *Suite) Bytes(enc asm.Encoder, lines ...string) *Suite {
	s.lines = slices.Clone(lines)
	code, err := enc.Encode(lines)
	if err != nil {
		s.err = errors.Join(s.err, err)
		return s
	}
	s.code = code
	return s
}

// Raw attaches pre-encoded instruction bytes directly.
func (s *Suite) Raw(code []byte) *Suite {
	s.code = slices.Clone(code)
	return s
}

// Case appends a verification case.
func (s *Suite) Case(c Case) *Suite {
	s.cases = append(s.cases, c)
	return s
}

// Code returns the encoded byte sequence.
func (s *Suite) Code() []byte {
	return slices.Clone(s.code)
}

// Lines returns the assembly source lines, if the suite was built from any.
func (s *Suite) Lines() []string {
	return slices.Clone(s.lines)
}

// Cases returns the cases in authoring order.
func (s *Suite) Cases() []Case {
	return slices.Clone(s.cases)
}

// Check validates the built suite: encoding must have succeeded, at least
// one case must exist, every initial state needs an instruction pointer,
// and no expected delta may have silently weakened a concrete designation.
func (s *Suite) Check() (err error) {
	err = s.err
	if s.name == "" {
		err = errors.Join(err, ErrNoName)
	}
	if s.err == nil && len(s.code) == 0 {
		err = errors.Join(err, fmt.Errorf("%v: %w", s.name, ErrNoCode))
	}
	if len(s.cases) == 0 {
		err = errors.Join(err, fmt.Errorf("%v: %w", s.name, ErrNoCases))
	}
	for i, c := range s.cases {
		if _, ok := c.Initial.Get(state.RIP); !ok {
			err = errors.Join(err, fmt.Errorf("%v case %d: %w", s.name, i, ErrMissingState))
		}
		for _, conflict := range c.Expected.Conflicts() {
			err = errors.Join(err, fmt.Errorf("%v case %d: %w: %v", s.name, i, ErrConflict, conflict))
		}
	}
	return
}
