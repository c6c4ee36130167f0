package verify

import (
	"fmt"
	"io"
	"iter"
	"strings"

	"github.com/gsoc2/circuitous/internal"
)

// CaseResult is the outcome of one case evaluation.
type CaseResult struct {
	Suite      string
	Index      int
	Case       Case
	Skipped    bool // disputed case, never executed
	Verdict    bool // computed pass/fail (valid unless Skipped)
	RefErr     error
	SubErr     error
	Mismatches []Mismatch
}

// OK reports whether the computed verdict matches the authored one.
// Skipped cases are never failures.
func (cr CaseResult) OK() bool {
	return cr.Skipped || cr.Verdict == cr.Case.Verdict
}

// SuiteResult groups the results of one suite, in case order.
type SuiteResult struct {
	Name  string
	Cases []CaseResult
}

// OK reports whether every case in the suite came out as authored.
func (sr SuiteResult) OK() bool {
	for _, cr := range sr.Cases {
		if !cr.OK() {
			return false
		}
	}
	return true
}

// Report is the aggregated outcome of a run, grouped per suite in
// registration order.
type Report struct {
	Suites []SuiteResult
}

// add files a result under its suite, keeping suite order stable.
func (r *Report) add(cr CaseResult) {
	for i := range r.Suites {
		if r.Suites[i].Name == cr.Suite {
			r.Suites[i].Cases = append(r.Suites[i].Cases, cr)
			return
		}
	}
	r.Suites = append(r.Suites, SuiteResult{Name: cr.Suite, Cases: []CaseResult{cr}})
}

// OK reports whether the whole run came out as authored.
func (r *Report) OK() bool {
	for _, sr := range r.Suites {
		if !sr.OK() {
			return false
		}
	}
	return true
}

// Counts returns the number of passed, failed, and skipped cases.
func (r *Report) Counts() (passed, failed, skipped int) {
	for cr := range r.Results() {
		switch {
		case cr.Skipped:
			skipped++
		case cr.OK():
			passed++
		default:
			failed++
		}
	}
	return
}

// Results returns every case result, suite by suite.
func (r *Report) Results() iter.Seq[CaseResult] {
	seqs := make([]iter.Seq[CaseResult], 0, len(r.Suites))
	for _, sr := range r.Suites {
		cases := sr.Cases
		seqs = append(seqs, func(yield func(CaseResult) bool) {
			for _, cr := range cases {
				if !yield(cr) {
					return
				}
			}
		})
	}
	return internal.IterSeqConcat(seqs...)
}

// Render writes the human-readable report: one line per case, with the
// initial state, the per-field discrepancies, and the erring provider
// spelled out for every case that did not come out as authored.
func (r *Report) Render(w io.Writer) {
	for _, sr := range r.Suites {
		fmt.Fprintf(w, "%v:\n", sr.Name)
		for _, cr := range sr.Cases {
			fmt.Fprintf(w, "  case %d: %v\n", cr.Index, cr.status())
			if cr.OK() && !cr.Skipped {
				continue
			}
			if cr.Skipped {
				continue
			}
			fmt.Fprintf(w, "    initial:  %v\n", cr.Case.Initial)
			fmt.Fprintf(w, "    expected: %v\n", cr.Case.Expected)
			if cr.RefErr != nil {
				fmt.Fprintf(w, "    reference provider: %v\n", cr.RefErr)
			}
			if cr.SubErr != nil {
				fmt.Fprintf(w, "    subject provider: %v\n", cr.SubErr)
			}
			for _, m := range cr.Mismatches {
				fmt.Fprintf(w, "    %v\n", m)
			}
		}
	}

	passed, failed, skipped := r.Counts()
	fmt.Fprintf(w, "%d passed, %d failed, %d skipped\n", passed, failed, skipped)
}

// String renders the report.
func (r *Report) String() string {
	var sb strings.Builder
	r.Render(&sb)
	return sb.String()
}

func (cr CaseResult) status() string {
	switch {
	case cr.Skipped:
		return "SKIP (disputed)"
	case cr.OK() && cr.Verdict:
		return "PASS"
	case cr.OK():
		return "PASS (expected failure)"
	case cr.Verdict:
		return "FAIL (passed, but failure was expected)"
	default:
		return "FAIL"
	}
}
