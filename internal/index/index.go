// Package index provides a read-only view over decoded registry records for
// resolution: lookup by package name, requirement-filtered release listing,
// and reconciliation of the two retirement encodings.
package index

import (
	"fmt"
	"sort"

	"github.com/git-pkgs/hexpm/internal/registry"
	"github.com/git-pkgs/hexpm/version"
)

// Index is an immutable snapshot of one repository's decoded records. It
// takes ownership of the records passed to New and never mutates them after
// construction, so a single Index may be shared by concurrent resolutions.
type Index struct {
	repository string
	packages   map[string]*registry.Package
	names      []string
	warnings   []string
}

// New builds an index for a repository from decoded package records. Release
// lists are normalized to the resolution order: newest first, with all
// pre-releases after all releases. Records naming a different repository are
// kept but noted as warnings.
func New(repository string, pkgs []*registry.Package) *Index {
	x := &Index{
		repository: repository,
		packages:   make(map[string]*registry.Package, len(pkgs)),
	}
	for _, p := range pkgs {
		if p.Repository != "" && p.Repository != repository {
			x.warnf("package %s names repository %s, index is for %s", p.Name, p.Repository, repository)
		}
		SortReleases(p.Releases)
		x.packages[p.Name] = p
		x.names = append(x.names, p.Name)
	}
	sort.Strings(x.names)
	return x
}

// SortReleases orders releases newest to oldest with pre-releases after all
// releases, so the first satisfying candidate is the one resolution should
// pick.
func SortReleases(releases []*registry.Release) {
	sort.SliceStable(releases, func(i, j int) bool {
		a, b := releases[i], releases[j]
		if a.Version.IsPre() != b.Version.IsPre() {
			return !a.Version.IsPre()
		}
		return version.Compare(a.Version, b.Version) > 0
	})
}

// Reconcile applies a Versions index record against the detailed package
// records. The compact retired list and the per-release retirement status
// encode the same fact; where they disagree the detailed reason wins and the
// disagreement is recorded as a warning, never an error.
func (x *Index) Reconcile(v *registry.Versions) {
	if v.Repository != "" && v.Repository != x.repository {
		x.warnf("versions record names repository %s, index is for %s", v.Repository, x.repository)
	}
	for _, entry := range v.Packages {
		pkg, ok := x.packages[entry.Name]
		if !ok {
			continue
		}
		for i, vs := range entry.Versions {
			parsed, err := version.Parse(vs)
			if err != nil {
				x.warnf("package %s: unparseable version %q in index", entry.Name, vs)
				continue
			}
			rel := pkg.Release(parsed)
			if rel == nil {
				if entry.IsRetired(i) {
					x.warnf("package %s: index retires %s but the package record has no such release", entry.Name, vs)
				}
				continue
			}
			switch {
			case entry.IsRetired(i) && rel.Retired == nil:
				// The compact list carries no reason.
				rel.Retired = &registry.RetirementStatus{Reason: registry.RetiredOther}
			case !entry.IsRetired(i) && rel.Retired != nil:
				x.warnf("package %s: release %s is retired (%s) but the index does not mark it", entry.Name, vs, rel.Retired.Reason)
			}
		}
	}
}

// Repository returns the repository name this index was built for.
func (x *Index) Repository() string {
	return x.repository
}

// Packages returns all indexed package names in sorted order.
func (x *Index) Packages() []string {
	return x.names
}

// Warnings returns the soft inconsistencies found while building and
// reconciling the index.
func (x *Index) Warnings() []string {
	return x.warnings
}

// FindPackage returns the record for a package name.
func (x *Index) FindPackage(name string) (*registry.Package, error) {
	p, ok := x.packages[name]
	if !ok {
		return nil, &registry.NotFoundError{Repository: x.repository, Name: name}
	}
	return p, nil
}

// ReleasesSatisfying returns the releases of a package matching a
// requirement, newest first with pre-releases last. Retired releases are
// excluded unless includeRetired is set (used when re-validating an existing
// lock).
func (x *Index) ReleasesSatisfying(name string, req version.Requirement, includeRetired bool) ([]*registry.Release, error) {
	p, err := x.FindPackage(name)
	if err != nil {
		return nil, err
	}
	var out []*registry.Release
	for _, r := range p.Releases {
		if r.IsRetired() && !includeRetired {
			continue
		}
		if req.Match(r.Version) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (x *Index) warnf(format string, args ...any) {
	x.warnings = append(x.warnings, fmt.Sprintf(format, args...))
}
