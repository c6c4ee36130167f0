package verify

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/gsoc2/circuitous/provider"
	"github.com/gsoc2/circuitous/state"
)

// incRAX mimics executing the suite bytes: it bumps RAX and advances RIP.
func incRAX(_ context.Context, code []byte, in state.State) (state.State, error) {
	v, _ := in.Get(state.RAX)
	ip, _ := in.Get(state.RIP)
	return in.With(state.RAX, v+1).With(state.RIP, ip+uint64(len(code))), nil
}

// incRAXOff agrees with incRAX on everything except the RAX result.
func incRAXOff(_ context.Context, code []byte, in state.State) (state.State, error) {
	out, _ := incRAX(nil, code, in)
	v, _ := out.Get(state.RAX)
	return out.With(state.RAX, v+1), nil
}

func failing(_ context.Context, _ []byte, _ state.State) (state.State, error) {
	return state.State{}, &provider.ExecutionError{Reason: "decode"}
}

func runnerSuite(name string, cases ...Case) *Suite {
	s := New(name).Raw([]byte{0x90})
	for _, c := range cases {
		s.Case(c)
	}
	return s
}

func runSuites(t *testing.T, r *Runner, suites ...*Suite) *Report {
	t.Helper()
	reg := NewRegistry()
	for _, s := range suites {
		if err := reg.Add(s); err != nil {
			t.Fatalf("register %v: %v", s.Name(), err)
		}
	}
	report, err := r.Run(context.Background(), reg.Suites())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	return report
}

func TestRunnerAgreementPasses(t *testing.T) {
	assert := assert.New(t)

	r := &Runner{Reference: provider.Func(incRAX), Subject: provider.Func(incRAX)}
	report := runSuites(t, r, runnerSuite("inc",
		Case{Initial: state.New(0x100).With(state.RAX, 1), Verdict: true},
		Case{Initial: state.New(0x100).With(state.RAX, 41), Verdict: true},
	))

	assert.True(report.OK())
	passed, failed, skipped := report.Counts()
	assert.Equal(2, passed)
	assert.Equal(0, failed)
	assert.Equal(0, skipped)
}

func TestRunnerDivergenceFails(t *testing.T) {
	assert := assert.New(t)

	r := &Runner{Reference: provider.Func(incRAX), Subject: provider.Func(incRAXOff)}
	report := runSuites(t, r, runnerSuite("inc",
		Case{Initial: state.New(0x100).With(state.RAX, 1), Verdict: true},
	))

	assert.False(report.OK())
	cr := report.Suites[0].Cases[0]
	assert.False(cr.Verdict)
	assert.Len(cr.Mismatches, 1)
	assert.Equal("RAX", cr.Mismatches[0].Field)

	// The report names the diverging field.
	assert.Contains(report.String(), "RAX")
}

func TestRunnerNegativeTest(t *testing.T) {
	assert := assert.New(t)

	// The author asserts this case fails; a real failure is a pass.
	r := &Runner{Reference: provider.Func(incRAX), Subject: provider.Func(incRAXOff)}
	report := runSuites(t, r, runnerSuite("neg",
		Case{Initial: state.New(0x100).With(state.RAX, 1), Verdict: false},
	))
	assert.True(report.OK())

	// An accidental pass on a negative test is a suite failure.
	r = &Runner{Reference: provider.Func(incRAX), Subject: provider.Func(incRAX)}
	report = runSuites(t, r, runnerSuite("neg",
		Case{Initial: state.New(0x100).With(state.RAX, 1), Verdict: false},
	))
	assert.False(report.OK())
	assert.Contains(report.String(), "failure was expected")
}

func TestRunnerExecutionError(t *testing.T) {
	assert := assert.New(t)

	r := &Runner{Reference: provider.Func(incRAX), Subject: provider.Func(failing)}
	report := runSuites(t, r, runnerSuite("err",
		Case{Initial: state.New(0x100).With(state.RAX, 1), Verdict: true},
		Case{Initial: state.New(0x100).With(state.RAX, 2), Verdict: true},
	))

	assert.False(report.OK())
	cr := report.Suites[0].Cases[0]
	assert.NoError(cr.RefErr)
	assert.Error(cr.SubErr)
	var execErr *provider.ExecutionError
	assert.True(errors.As(cr.SubErr, &execErr))
	assert.Equal("decode", execErr.Reason)

	// Sibling cases still ran.
	assert.Len(report.Suites[0].Cases, 2)
}

func TestRunnerTimeout(t *testing.T) {
	assert := assert.New(t)

	hang := provider.Func(func(ctx context.Context, _ []byte, in state.State) (state.State, error) {
		select {
		case <-time.After(5 * time.Second):
		case <-ctx.Done():
		}
		return in, nil
	})

	r := &Runner{
		Reference: provider.Func(incRAX),
		Subject:   hang,
		Timeout:   10 * time.Millisecond,
	}
	report := runSuites(t, r, runnerSuite("hang",
		Case{Initial: state.New(0x100).With(state.RAX, 1), Verdict: true},
	))

	assert.False(report.OK())
	cr := report.Suites[0].Cases[0]
	var execErr *provider.ExecutionError
	assert.True(errors.As(cr.SubErr, &execErr))
	assert.Equal("timeout", execErr.Reason)
}

func TestRunnerDisputedSkipped(t *testing.T) {
	assert := assert.New(t)

	// A disputed case is reported, never executed, and never a failure.
	r := &Runner{Reference: provider.Func(failing), Subject: provider.Func(failing)}
	report := runSuites(t, r, runnerSuite("disputed",
		Case{Initial: state.New(0x100), Verdict: false, Disputed: true},
	))

	assert.True(report.OK())
	passed, failed, skipped := report.Counts()
	assert.Equal(0, passed)
	assert.Equal(0, failed)
	assert.Equal(1, skipped)
	assert.Contains(report.String(), "disputed")
}

func TestRunnerStopOnFailure(t *testing.T) {
	assert := assert.New(t)

	var cases []Case
	for i := range 32 {
		cases = append(cases, Case{Initial: state.New(0x100).With(state.RAX, uint64(i)), Verdict: true})
	}

	r := &Runner{
		Reference:     provider.Func(incRAX),
		Subject:       provider.Func(incRAXOff),
		Workers:       1,
		StopOnFailure: true,
	}
	report := runSuites(t, r, runnerSuite("stop", cases...))

	assert.False(report.OK())
	_, failed, _ := report.Counts()
	assert.Equal(1, failed, "remaining cases are cancelled after the first failure")
}

func TestRunnerDeterministicOrder(t *testing.T) {
	assert := assert.New(t)

	suites := []*Suite{
		runnerSuite("a",
			Case{Initial: state.New(0x100).With(state.RAX, 1), Verdict: true},
			Case{Initial: state.New(0x100).With(state.RAX, 2), Verdict: true}),
		runnerSuite("b",
			Case{Initial: state.New(0x100).With(state.RAX, 3), Verdict: true}),
	}

	r := &Runner{Reference: provider.Func(incRAX), Subject: provider.Func(incRAX), Workers: 4}
	report := runSuites(t, r, suites...)

	var got []string
	for cr := range report.Results() {
		got = append(got, cr.Suite)
	}
	assert.Equal([]string{"a", "a", "b"}, got)
	assert.Equal(0, report.Suites[0].Cases[0].Index)
	assert.Equal(1, report.Suites[0].Cases[1].Index)
}

func TestRunnerNeedsProviders(t *testing.T) {
	assert := assert.New(t)

	r := &Runner{}
	_, err := r.Run(context.Background(), NewRegistry().Suites())
	assert.ErrorIs(err, ErrNoProvider)
}

func TestReportRendering(t *testing.T) {
	assert := assert.New(t)

	r := &Runner{Reference: provider.Func(incRAX), Subject: provider.Func(incRAXOff)}
	report := runSuites(t, r, runnerSuite("render",
		Case{
			Initial:  state.New(0x100).With(state.RAX, 1),
			Expected: state.MS().U(state.OF),
			Verdict:  true,
		},
	))

	text := report.String()
	// Failing cases list the initial state and the expected delta.
	assert.Contains(text, "RIP=0x100 RAX=0x1")
	assert.Contains(text, "OF=undefined")
	assert.True(strings.Contains(text, "FAIL"))
	assert.Contains(text, "1 failed")
}
