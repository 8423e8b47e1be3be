// Package lock provides the resolved package-to-version assignment persisted
// for reproducible builds, and the diffing used to summarize re-resolutions.
package lock

import (
	"fmt"
	"sort"

	"github.com/git-pkgs/purl"

	"github.com/git-pkgs/hexpm/internal/solver"
	"github.com/git-pkgs/hexpm/version"
)

// Entry pins one package. Provenance records the requirement chains that
// selected the version; it is informational and excluded from equality.
type Entry struct {
	Package       string
	Version       version.Version
	OuterChecksum []byte
	Provenance    []string
}

// PURL returns the entry as a package URL.
func (e Entry) PURL() string {
	return fmt.Sprintf("pkg:hex/%s@%s", e.Package, e.Version)
}

// ParseEntryPURL parses a "pkg:hex/name@version" package URL into an entry.
func ParseEntryPURL(s string) (Entry, error) {
	p, err := purl.Parse(s)
	if err != nil {
		return Entry{}, err
	}
	if p.Type != "hex" {
		return Entry{}, fmt.Errorf("not a hex purl: %s", s)
	}
	if p.Version == "" {
		return Entry{}, fmt.Errorf("purl has no version: %s", s)
	}
	v, err := version.Parse(p.Version)
	if err != nil {
		return Entry{}, err
	}
	return Entry{Package: p.Name, Version: v}, nil
}

// Model is the output artifact of a resolution. It is invalidated (rebuilt)
// whenever any root requirement changes.
type Model struct {
	entries map[string]Entry
}

// FromResolution builds a lock model from solver output.
func FromResolution(assignments map[string]solver.Selection) *Model {
	m := &Model{entries: make(map[string]Entry, len(assignments))}
	for name, sel := range assignments {
		e := Entry{
			Package: name,
			Version: sel.Version,
		}
		if sel.Release != nil {
			e.OuterChecksum = sel.Release.OuterChecksum
		}
		for _, c := range sel.ChosenBy {
			e.Provenance = append(e.Provenance, c.String())
		}
		m.entries[name] = e
	}
	return m
}

// Entries returns the lock entries sorted by package name.
func (m *Model) Entries() []Entry {
	out := make([]Entry, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Package < out[j].Package })
	return out
}

// Entry returns the entry for a package and whether it exists.
func (m *Model) Entry(name string) (Entry, bool) {
	e, ok := m.entries[name]
	return e, ok
}

// Versions returns the package-to-version pinning in the form Resolve takes
// as its locked argument.
func (m *Model) Versions() map[string]version.Version {
	out := make(map[string]version.Version, len(m.entries))
	for name, e := range m.entries {
		out[name] = e.Version
	}
	return out
}

// Equal reports structural equality over (package, version) pairs.
// Provenance and checksums do not participate.
func (m *Model) Equal(o *Model) bool {
	if len(m.entries) != len(o.entries) {
		return false
	}
	for name, e := range m.entries {
		oe, ok := o.entries[name]
		if !ok || !e.Version.Equal(oe.Version) {
			return false
		}
	}
	return true
}

// ChangeKind classifies one entry of a diff.
type ChangeKind string

const (
	Added      ChangeKind = "added"
	Removed    ChangeKind = "removed"
	Upgraded   ChangeKind = "upgraded"
	Downgraded ChangeKind = "downgraded"
)

// Change describes how one package differs between two lock models. From is
// zero for additions, To for removals.
type Change struct {
	Package string
	Kind    ChangeKind
	From    version.Version
	To      version.Version
}

func (c Change) String() string {
	switch c.Kind {
	case Added:
		return fmt.Sprintf("+ %s %s", c.Package, c.To)
	case Removed:
		return fmt.Sprintf("- %s %s", c.Package, c.From)
	default:
		return fmt.Sprintf("~ %s %s -> %s (%s)", c.Package, c.From, c.To, c.Kind)
	}
}

// Diff returns the packages that changed between two lock models, sorted by
// package name. Used to print upgrade and downgrade summaries.
func Diff(old, new *Model) []Change {
	var changes []Change
	for name, oe := range old.entries {
		ne, ok := new.entries[name]
		if !ok {
			changes = append(changes, Change{Package: name, Kind: Removed, From: oe.Version})
			continue
		}
		switch c := version.Compare(ne.Version, oe.Version); {
		case c > 0:
			changes = append(changes, Change{Package: name, Kind: Upgraded, From: oe.Version, To: ne.Version})
		case c < 0:
			changes = append(changes, Change{Package: name, Kind: Downgraded, From: oe.Version, To: ne.Version})
		}
	}
	for name, ne := range new.entries {
		if _, ok := old.entries[name]; !ok {
			changes = append(changes, Change{Package: name, Kind: Added, To: ne.Version})
		}
	}
	sort.Slice(changes, func(i, j int) bool { return changes[i].Package < changes[j].Package })
	return changes
}
