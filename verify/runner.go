package verify

import (
	"context"
	"errors"
	"iter"
	"log"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/gsoc2/circuitous/provider"
)

// Runner evaluates suites on a worker pool. Cases are pure functions of
// their inputs, so they parallelize freely; results are collected
// append-only and merged into a deterministic report afterwards.
type Runner struct {
	Reference provider.Provider
	Subject   provider.Provider

	Workers       int           // 0 means one per CPU
	Timeout       time.Duration // per provider invocation; 0 means none
	StopOnFailure bool          // cancel remaining cases after the first failure
	Verbose       bool          // log each evaluated case
}

// task is one scheduled case evaluation.
type task struct {
	suite  *Suite
	suiteN int
	index  int
	c      Case
}

// Run evaluates every case of every suite and returns the merged report.
// Cancellation, including stop-on-first-failure, is honored between cases,
// never mid-case. The error reports why a run ended early; a finished run
// with failing cases is not itself an error.
func (r *Runner) Run(ctx context.Context, suites iter.Seq[*Suite]) (report *Report, err error) {
	if r.Reference == nil || r.Subject == nil {
		err = ErrNoProvider
		return
	}

	var tasks []task
	suiteN := 0
	for s := range suites {
		for i, c := range s.Cases() {
			tasks = append(tasks, task{suite: s, suiteN: suiteN, index: i, c: c})
		}
		suiteN++
	}

	workers := r.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(tasks) && len(tasks) > 0 {
		workers = len(tasks)
	}

	runCtx := ctx
	var stop context.CancelCauseFunc
	if r.StopOnFailure {
		runCtx, stop = context.WithCancelCause(ctx)
		defer stop(nil)
	}

	ch := make(chan task, len(tasks))
	for _, t := range tasks {
		ch <- t
	}
	close(ch)

	var (
		mu      sync.Mutex
		results []CaseResult
		order   = map[string]int{}
	)

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range ch {
				select {
				case <-runCtx.Done():
					return
				default:
				}

				cr := r.evaluate(runCtx, t)
				if r.Verbose {
					log.Printf("verify: %v case %d: %v", cr.Suite, cr.Index, cr.status())
				}
				if stop != nil && !cr.OK() {
					stop(ErrStopped)
				}

				mu.Lock()
				order[cr.Suite] = t.suiteN
				results = append(results, cr)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	sort.SliceStable(results, func(i, j int) bool {
		if order[results[i].Suite] != order[results[j].Suite] {
			return order[results[i].Suite] < order[results[j].Suite]
		}
		return results[i].Index < results[j].Index
	})

	report = &Report{}
	for _, cr := range results {
		report.add(cr)
	}

	if err = context.Cause(runCtx); err != nil {
		if errors.Is(err, ErrStopped) {
			err = nil
		}
		return
	}
	return
}

// evaluate runs one case under both providers and reconciles the outcome.
func (r *Runner) evaluate(ctx context.Context, t task) (cr CaseResult) {
	cr = CaseResult{Suite: t.suite.Name(), Index: t.index, Case: t.c}
	if t.c.Disputed {
		cr.Skipped = true
		return
	}

	code := t.suite.Code()
	refOut, refErr := provider.Run(ctx, r.Reference, code, t.c.Initial, r.Timeout)
	subOut, subErr := provider.Run(ctx, r.Subject, code, t.c.Initial, r.Timeout)

	if refErr != nil || subErr != nil {
		cr.RefErr, cr.SubErr = refErr, subErr
		cr.Verdict = false
		return
	}

	cr.Mismatches = Compare(t.c.Expected, refOut, subOut)
	cr.Verdict = len(cr.Mismatches) == 0
	return
}
