// Package solver implements dependency resolution over registry records: a
// deterministic backtracking search assigning one version to every package
// reachable from the root requirements.
package solver

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/git-pkgs/hexpm/internal/registry"
	"github.com/git-pkgs/hexpm/version"
)

// Source is the read-only record view the solver works against. An index
// snapshot satisfies it, as does a live client-backed source.
type Source interface {
	FindPackage(name string) (*registry.Package, error)
	ReleasesSatisfying(name string, req version.Requirement, includeRetired bool) ([]*registry.Release, error)
}

// ErrCancelled is returned when the context is cancelled mid-search. It is
// distinct from Unsatisfiable: the caller may retry with more time.
var ErrCancelled = errors.New("resolution cancelled")

// Constraint is one active requirement on a package, together with the chain
// of dependency edges that introduced it. A chain starts at "root" or "lock"
// and lists "package version" edges from there.
type Constraint struct {
	Package     string
	Requirement version.Requirement
	Chain       []string

	// optional constraints only apply once the package is required
	// non-optionally by something else.
	optional bool
}

func (c Constraint) String() string {
	req := c.Requirement.String()
	if req == "" {
		req = "any"
	}
	return fmt.Sprintf("%s (via %s)", req, strings.Join(c.Chain, " -> "))
}

// Unsatisfiable reports that no assignment satisfies all requirements. It
// carries the conflicting constraints on the package the search died on, so
// callers can render a diagnostic.
type Unsatisfiable struct {
	Package     string
	Constraints []Constraint
}

func (e *Unsatisfiable) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "no version of %s satisfies all requirements:", e.Package)
	for _, c := range e.Constraints {
		fmt.Fprintf(&b, "\n  %s", c)
	}
	return b.String()
}

// IncompatibleLockError reports a root requirement that contradicts the
// existing lock before any searching happens.
type IncompatibleLockError struct {
	Package     string
	Requirement version.Requirement
	Version     version.Version
}

func (e *IncompatibleLockError) Error() string {
	return fmt.Sprintf("%s is specified with the requirement %q, but it is locked to %s, which is incompatible",
		e.Package, e.Requirement, e.Version)
}

// Selection is the resolved choice for one package.
type Selection struct {
	Version  version.Version
	Release  *registry.Release
	ChosenBy []Constraint
}

// state is one immutable-by-convention snapshot of the search: the tentative
// assignment and the active constraint set. Frames copy it before mutating,
// so backtracking is a plain restore.
type state struct {
	assigned    map[string]*registry.Release
	constraints map[string][]Constraint
}

func (s state) clone() state {
	n := state{
		assigned:    make(map[string]*registry.Release, len(s.assigned)),
		constraints: make(map[string][]Constraint, len(s.constraints)),
	}
	for k, v := range s.assigned {
		n.assigned[k] = v
	}
	for k, v := range s.constraints {
		n.constraints[k] = append([]Constraint(nil), v...)
	}
	return n
}

// frame is one decision on the search stack: the package it assigned, the
// candidates it had, the next one to try on backtrack, and the state snapshot
// taken before the assignment.
type frame struct {
	pkg        string
	candidates []*registry.Release
	next       int
	saved      state
}

type solver struct {
	src      Source
	locked   map[string]version.Version
	rootName map[string]bool // packages the root requirements name
	st       state
	frames   []frame
}

// Resolve computes a consistent version assignment for every package
// reachable from the root requirements. Locked versions are pinned: they
// resolve to exactly the locked version, retired or not, and a root
// requirement incompatible with its pin fails with IncompatibleLockError
// before the search starts. The result is deterministic for identical
// inputs.
func Resolve(ctx context.Context, src Source, requirements map[string]version.Requirement, locked map[string]version.Version) (map[string]Selection, error) {
	s := &solver{
		src:      src,
		locked:   locked,
		rootName: make(map[string]bool, len(requirements)),
		st: state{
			assigned:    make(map[string]*registry.Release),
			constraints: make(map[string][]Constraint),
		},
	}

	// The lock pins every locked package as a hard root-level requirement,
	// so re-resolution reproduces the lock instead of upgrading it.
	for _, name := range sortedKeys(locked) {
		s.addConstraint(Constraint{
			Package:     name,
			Requirement: version.Exact(locked[name]),
			Chain:       []string{"lock"},
		})
	}
	for _, name := range sortedKeys(requirements) {
		req := requirements[name]
		s.rootName[name] = true
		if lockedVersion, ok := locked[name]; ok {
			if !req.Match(lockedVersion) {
				return nil, &IncompatibleLockError{Package: name, Requirement: req, Version: lockedVersion}
			}
			// The pin already covers it.
			continue
		}
		s.addConstraint(Constraint{
			Package:     name,
			Requirement: req,
			Chain:       []string{"root"},
		})
	}

	if err := s.search(ctx); err != nil {
		return nil, err
	}

	out := make(map[string]Selection, len(s.st.assigned))
	for name, rel := range s.st.assigned {
		out[name] = Selection{
			Version:  rel.Version,
			Release:  rel,
			ChosenBy: append([]Constraint(nil), s.activeConstraints(name)...),
		}
	}
	return out, nil
}

func (s *solver) search(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrCancelled, err)
		}

		pkg, candidates, done, err := s.selectPackage()
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		if len(candidates) == 0 {
			if err := s.backtrack(pkg); err != nil {
				return err
			}
			continue
		}

		if conflict := s.assign(pkg, candidates, 0); conflict != "" {
			if err := s.backtrack(conflict); err != nil {
				return err
			}
		}
	}
}

// selectPackage picks the next unassigned package with at least one active
// constraint, fewest candidates first, name order breaking ties. done is
// true when every activated package is assigned.
func (s *solver) selectPackage() (pkg string, candidates []*registry.Release, done bool, err error) {
	best := ""
	var bestCandidates []*registry.Release
	for _, name := range sortedKeys(s.st.constraints) {
		if _, ok := s.st.assigned[name]; ok {
			continue
		}
		if !s.activated(name) {
			continue
		}
		c, err := s.candidatesFor(name)
		if err != nil {
			return "", nil, false, err
		}
		if best == "" || len(c) < len(bestCandidates) {
			best, bestCandidates = name, c
		}
	}
	if best == "" {
		return "", nil, true, nil
	}
	return best, bestCandidates, false, nil
}

// activated reports whether a package is required by anything non-optional.
// Packages with only optional constraints are not resolved.
func (s *solver) activated(name string) bool {
	for _, c := range s.st.constraints[name] {
		if !c.optional {
			return true
		}
	}
	return false
}

// activeConstraints returns the constraints that currently bind a package:
// all of them once it is activated, none otherwise.
func (s *solver) activeConstraints(name string) []Constraint {
	if !s.activated(name) {
		return nil
	}
	return s.st.constraints[name]
}

// candidatesFor intersects a package's releases with all of its binding
// constraints, keeping the source's order: newest first, pre-releases last.
// A locked package may resolve to its pinned retired release.
func (s *solver) candidatesFor(name string) ([]*registry.Release, error) {
	_, isLocked := s.locked[name]
	releases, err := s.src.ReleasesSatisfying(name, version.Requirement{}, isLocked)
	if err != nil {
		return nil, err
	}
	var out []*registry.Release
	for _, r := range releases {
		ok := true
		for _, c := range s.activeConstraints(name) {
			if !c.Requirement.Match(r.Version) {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, r)
		}
	}
	return out, nil
}

// assign commits the candidate at index next, pushes the decision frame, and
// propagates the release's dependencies as new constraints. It returns the
// name of an already-assigned package whose assignment the new constraints
// invalidated, or "" on success.
func (s *solver) assign(pkg string, candidates []*registry.Release, next int) (conflict string) {
	rel := candidates[next]
	s.frames = append(s.frames, frame{
		pkg:        pkg,
		candidates: candidates,
		next:       next + 1,
		saved:      s.st.clone(),
	})
	s.st.assigned[pkg] = rel

	chain := s.chainFor(pkg, rel)
	for _, dep := range rel.Dependencies {
		s.addConstraint(Constraint{
			Package:     dep.Package,
			Requirement: dep.Requirement,
			Chain:       chain,
			optional:    dep.Optional && !s.rootName[dep.Package],
		})
		// An already-assigned package consistent with the new
		// constraint is not re-expanded; this is what keeps cyclic
		// dependency graphs from looping. Only a narrowing that
		// invalidates the assignment forces backtracking.
		if assigned, ok := s.st.assigned[dep.Package]; ok {
			if !dep.Requirement.Match(assigned.Version) {
				return dep.Package
			}
		}
	}
	return ""
}

// chainFor extends the provenance chain of the first constraint that bound
// pkg with the edge being expanded.
func (s *solver) chainFor(pkg string, rel *registry.Release) []string {
	edge := pkg + " " + rel.Version.String()
	if cs := s.activeConstraints(pkg); len(cs) > 0 {
		return append(append([]string(nil), cs[0].Chain...), edge)
	}
	return []string{edge}
}

func (s *solver) addConstraint(c Constraint) {
	s.st.constraints[c.Package] = append(s.st.constraints[c.Package], c)
}

// backtrack undoes the most recent decision that contributed a constraint to
// the failing package and retries it with its next candidate. When a
// contributing decision is exhausted the failure propagates to it. With no
// contributing decision left the requirements are unsatisfiable.
func (s *solver) backtrack(failing string) error {
	unsat := &Unsatisfiable{
		Package:     failing,
		Constraints: append([]Constraint(nil), s.st.constraints[failing]...),
	}
	for {
		i := s.contributingFrame(failing)
		if i < 0 {
			return unsat
		}
		f := s.frames[i]
		s.frames = s.frames[:i]
		s.st = f.saved

		for next := f.next; next < len(f.candidates); next++ {
			if conflict := s.assign(f.pkg, f.candidates, next); conflict == "" {
				return nil
			}
			// The retried candidate broke another assigned package;
			// undo it and try the next one.
			last := s.frames[len(s.frames)-1]
			s.frames = s.frames[:len(s.frames)-1]
			s.st = last.saved
		}
		// Decision exhausted: it is now the failing one.
		failing = f.pkg
	}
}

// contributingFrame returns the index of the topmost decision whose package
// introduced one of the failing package's constraints, or -1.
func (s *solver) contributingFrame(failing string) int {
	origins := make(map[string]bool)
	for _, c := range s.st.constraints[failing] {
		if len(c.Chain) > 0 {
			last := c.Chain[len(c.Chain)-1]
			if sp := strings.IndexByte(last, ' '); sp > 0 {
				origins[last[:sp]] = true
			}
		}
	}
	for i := len(s.frames) - 1; i >= 0; i-- {
		if origins[s.frames[i].pkg] {
			return i
		}
	}
	return -1
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
