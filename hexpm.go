// Package hexpm provides Hex registry record handling and dependency
// resolution: decoding the repository's signed binary records, parsing and
// matching version requirements, resolving a set of top-level requirements
// into a lockable package-to-version assignment, and diffing lock models.
//
// Basic usage against an in-memory record snapshot:
//
//	import (
//		"context"
//		"github.com/git-pkgs/hexpm"
//		"github.com/git-pkgs/hexpm/version"
//	)
//
//	idx := hexpm.NewIndex("hexpm", packages)
//	assignments, err := hexpm.Resolve(context.Background(), idx, map[string]version.Requirement{
//		"plug": version.MustParseRequirement("~> 1.14"),
//	}, nil)
//	if err != nil {
//		log.Fatal(err)
//	}
//	model := hexpm.NewLock(assignments)
//
// To resolve against a live repository, use the client subpackage:
//
//	c := client.Default()
//	src := c.NewSource(ctx)
//	assignments, err := hexpm.Resolve(ctx, src, requirements, locked)
package hexpm

import (
	"context"

	"github.com/git-pkgs/hexpm/internal/index"
	"github.com/git-pkgs/hexpm/internal/lock"
	"github.com/git-pkgs/hexpm/internal/registry"
	"github.com/git-pkgs/hexpm/internal/solver"
	"github.com/git-pkgs/hexpm/version"
)

// Re-export record types from internal/registry
type (
	// Package represents a package record: every published release of
	// one package. A package belongs to exactly one repository.
	Package = registry.Package

	// Release represents one published version of a package.
	Release = registry.Release

	// Dependency represents one requirement edge of a release.
	Dependency = registry.Dependency

	// RetirementStatus carries the reason a release was retired.
	RetirementStatus = registry.RetirementStatus

	// RetirementReason encodes why a release was retired. Unknown values
	// are preserved rather than rejected.
	RetirementReason = registry.RetirementReason

	// Versions is the repository-wide version index record.
	Versions = registry.Versions

	// VersionsPackage is one package's entry in the version index.
	VersionsPackage = registry.VersionsPackage

	// Signed is the envelope every repository record is served in.
	Signed = registry.Signed

	// Repo describes a named repository and its verification key.
	Repo = registry.Repo
)

// Re-export retirement reasons
const (
	RetiredOther      = registry.RetiredOther
	RetiredInvalid    = registry.RetiredInvalid
	RetiredSecurity   = registry.RetiredSecurity
	RetiredDeprecated = registry.RetiredDeprecated
	RetiredRenamed    = registry.RetiredRenamed
)

// DefaultRepository is the repository used when none is named.
const DefaultRepository = registry.DefaultRepository

// Re-export errors
var (
	// ErrNotFound is returned when a package or version is not found.
	ErrNotFound = registry.ErrNotFound

	// ErrCancelled is returned when a resolution is cancelled mid-search,
	// distinct from Unsatisfiable so callers can retry.
	ErrCancelled = solver.ErrCancelled
)

// Error types
type (
	NotFoundError         = registry.NotFoundError
	EncodingError         = registry.EncodingError
	SignatureError        = registry.SignatureError
	Unsatisfiable         = solver.Unsatisfiable
	IncompatibleLockError = solver.IncompatibleLockError
)

// Record codec

// DecodePackage decodes a package record.
func DecodePackage(b []byte) (*Package, error) { return registry.DecodePackage(b) }

// EncodePackage encodes a package record. Required fields must be set,
// including each release's outer checksum.
func EncodePackage(p *Package) ([]byte, error) { return registry.EncodePackage(p) }

// DecodeVersions decodes a repository version index record.
func DecodeVersions(b []byte) (*Versions, error) { return registry.DecodeVersions(b) }

// EncodeVersions encodes a repository version index record.
func EncodeVersions(v *Versions) ([]byte, error) { return registry.EncodeVersions(v) }

// DecodeSigned decodes a signed record envelope.
func DecodeSigned(b []byte) (*Signed, error) { return registry.DecodeSigned(b) }

// EncodeSigned encodes a signed record envelope.
func EncodeSigned(s *Signed) ([]byte, error) { return registry.EncodeSigned(s) }

// VerifyPayload checks a signed envelope against a PEM-encoded RSA public
// key and returns the payload.
func VerifyPayload(s *Signed, pemPublicKey []byte) ([]byte, error) {
	return registry.VerifyPayload(s, pemPublicKey)
}

// Repositories

// RegisterRepo adds or replaces a repository configuration.
func RegisterRepo(r Repo) { registry.RegisterRepo(r) }

// LookupRepo returns the configuration for a named repository. The empty
// name means DefaultRepository.
func LookupRepo(name string) (Repo, error) { return registry.LookupRepo(name) }

// Repositories returns the names of all registered repositories.
func Repositories() []string { return registry.Repositories() }

// Index

// Index is an immutable snapshot of one repository's decoded records, safe
// to share across concurrent resolutions.
type Index = index.Index

// NewIndex builds an index for a repository from decoded package records.
func NewIndex(repository string, pkgs []*Package) *Index {
	return index.New(repository, pkgs)
}

// SortReleases orders releases into resolution order: newest first, with all
// pre-releases after all releases.
func SortReleases(releases []*Release) { index.SortReleases(releases) }

// Resolution

type (
	// Source is the read-only record view resolution works against,
	// satisfied by *Index and by client.RecordSource.
	Source = solver.Source

	// Selection is the resolved choice for one package.
	Selection = solver.Selection

	// Constraint is one active requirement on a package with the chain of
	// dependency edges that introduced it.
	Constraint = solver.Constraint
)

// Resolve computes a consistent version assignment for every package
// reachable from the top-level requirements, or reports Unsatisfiable with a
// conflict explanation. Locked versions are pinned and resolve to exactly
// the locked version, retired or not.
func Resolve(ctx context.Context, src Source, requirements map[string]version.Requirement, locked map[string]version.Version) (map[string]Selection, error) {
	return solver.Resolve(ctx, src, requirements, locked)
}

// Lock model

type (
	// Lock is the resolved package-to-version assignment persisted for
	// reproducible builds.
	Lock = lock.Model

	// LockEntry pins one package in a lock.
	LockEntry = lock.Entry

	// LockChange describes how one package differs between two locks.
	LockChange = lock.Change

	// LockChangeKind classifies a lock diff entry.
	LockChangeKind = lock.ChangeKind
)

// Lock change kinds
const (
	LockAdded      = lock.Added
	LockRemoved    = lock.Removed
	LockUpgraded   = lock.Upgraded
	LockDowngraded = lock.Downgraded
)

// NewLock builds a lock model from resolution output.
func NewLock(assignments map[string]Selection) *Lock { return lock.FromResolution(assignments) }

// DiffLocks returns the packages that changed between two lock models,
// sorted by package name.
func DiffLocks(old, new *Lock) []LockChange { return lock.Diff(old, new) }

// ParseLockPURL parses a "pkg:hex/name@version" package URL into a lock
// entry.
func ParseLockPURL(s string) (LockEntry, error) { return lock.ParseEntryPURL(s) }
