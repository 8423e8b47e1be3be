// Package registry provides the decoded Hex registry record types and the
// binary codec for them.
package registry

import (
	"fmt"

	"github.com/git-pkgs/hexpm/version"
)

// Package represents a package record from a repository: every published
// release of one package. A package belongs to exactly one repository.
type Package struct {
	Name       string
	Repository string
	Releases   []*Release // decode order, unique by version
}

// Release returns the release with the given version, or nil.
func (p *Package) Release(v version.Version) *Release {
	for _, r := range p.Releases {
		if r.Version.Equal(v) {
			return r
		}
	}
	return nil
}

// Release represents one published version of a package.
type Release struct {
	Version version.Version

	// InnerChecksum is the sha256 of the tarball contents.
	InnerChecksum []byte

	// OuterChecksum is the sha256 of the outer package tarball. Required
	// when encoding a record but may be absent on historical records, so
	// it is nil-able on decode.
	OuterChecksum []byte

	// Dependencies in record order.
	Dependencies []Dependency

	// Retired is set when the release has been retired. A retired release
	// is excluded from fresh resolution but stays resolvable when an
	// existing lock already pins it.
	Retired *RetirementStatus
}

// IsRetired reports whether the release carries a retirement status.
func (r *Release) IsRetired() bool {
	return r.Retired != nil
}

// Dependency represents one requirement edge of a release.
type Dependency struct {
	Package     string
	Requirement version.Requirement

	// Optional dependencies are resolved only when some other package
	// requires them non-optionally (or the root requires them).
	Optional bool

	// App is the OTP application name when it differs from the package
	// name. Nil when absent.
	App *string

	// Repository names the repository the dependency lives in when it is
	// not the release's own. Nil when absent.
	Repository *string
}

// RetirementReason encodes why a release was retired. Unknown values decoded
// from newer registries are preserved as-is rather than rejected.
type RetirementReason int32

const (
	RetiredOther      RetirementReason = 0
	RetiredInvalid    RetirementReason = 1
	RetiredSecurity   RetirementReason = 2
	RetiredDeprecated RetirementReason = 3
	RetiredRenamed    RetirementReason = 4
)

func (r RetirementReason) String() string {
	switch r {
	case RetiredOther:
		return "other"
	case RetiredInvalid:
		return "invalid"
	case RetiredSecurity:
		return "security"
	case RetiredDeprecated:
		return "deprecated"
	case RetiredRenamed:
		return "renamed"
	default:
		return fmt.Sprintf("reason(%d)", int32(r))
	}
}

// RetirementStatus carries the reason a release was retired and an optional
// human message.
type RetirementStatus struct {
	Reason  RetirementReason
	Message string
}

// Versions is the repository-wide version index: the name and version list of
// every package in one repository.
type Versions struct {
	Repository string
	Packages   []*VersionsPackage // unique by name
}

// Package returns the index entry with the given name, or nil.
func (v *Versions) Package(name string) *VersionsPackage {
	for _, p := range v.Packages {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// VersionsPackage is one package's entry in the version index. Versions keeps
// the registry's insertion order (release order). Retired holds zero-based
// indexes into Versions for releases retired at index-build time; it is a
// compact alternate encoding of the per-release RetirementStatus and the two
// are reconciled when both are available.
type VersionsPackage struct {
	Name     string
	Versions []string
	Retired  []int32
}

// IsRetired reports whether the version at index i is marked retired in the
// compact index.
func (p *VersionsPackage) IsRetired(i int) bool {
	for _, r := range p.Retired {
		if int(r) == i {
			return true
		}
	}
	return false
}
