package verify

import (
	"fmt"
	"iter"
)

// Registry holds registered suites in registration order. Registration
// validates each suite, so a bad build (an encoding failure, a conflicting
// delta) surfaces before anything runs.
type Registry struct {
	suites []*Suite
	byName map[string]*Suite
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: map[string]*Suite{}}
}

// Add validates and registers a suite. Duplicate names are rejected.
func (r *Registry) Add(s *Suite) (err error) {
	if err = s.Check(); err != nil {
		return
	}
	if _, ok := r.byName[s.Name()]; ok {
		err = fmt.Errorf("%v: %w", s.Name(), ErrDuplicate)
		return
	}
	r.byName[s.Name()] = s
	r.suites = append(r.suites, s)
	return
}

// Lookup returns a suite by name.
func (r *Registry) Lookup(name string) (s *Suite, ok bool) {
	s, ok = r.byName[name]
	return
}

// Len returns the number of registered suites.
func (r *Registry) Len() int {
	return len(r.suites)
}

// Suites returns every suite in registration order.
func (r *Registry) Suites() iter.Seq[*Suite] {
	return r.Select()
}

// Select returns the suites carrying any of the given tags, in registration
// order. No tags selects everything; selection never alters semantics.
func (r *Registry) Select(tags ...string) iter.Seq[*Suite] {
	return func(yield func(*Suite) bool) {
		for _, s := range r.suites {
			if !s.Tagged(tags...) {
				continue
			}
			if !yield(s) {
				return
			}
		}
	}
}
