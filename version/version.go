// Package version implements parsing, ordering, and requirement matching for
// Hex package versions, compatible with the Elixir Version module used by the
// registry itself.
//
// A version is three numeric segments MAJOR.MINOR.PATCH, optionally followed
// by a hyphen and dot-separated pre-release identifiers, optionally followed
// by a plus sign and build metadata:
//
//	"1.4.2"
//	"1.0.0-alpha.3"
//	"1.0.0-alpha.3+20130417140000.amd64"
//
// Ordering follows the registry's precedence rules: segments compare
// numerically, a pre-release sorts before the corresponding release, numeric
// pre-release identifiers sort before alphanumeric ones, and build metadata
// is ignored.
package version

import (
	"fmt"
	"strconv"
	"strings"
)

// Version is an immutable parsed version. Two versions parsed from different
// spellings of the same value ("1.0.0" and "1.0.0+build" differ only in
// Build) compare according to the documented precedence rules, never by their
// original text.
type Version struct {
	Major int
	Minor int
	Patch int
	Pre   []Identifier
	Build string // build metadata, empty if absent, ignored in ordering
}

// Identifier is a single pre-release identifier, either numeric or
// alphanumeric.
type Identifier struct {
	Str     string
	Num     int
	Numeric bool
}

// NumericID returns a numeric pre-release identifier.
func NumericID(n int) Identifier {
	return Identifier{Num: n, Numeric: true}
}

// AlphaID returns an alphanumeric pre-release identifier.
func AlphaID(s string) Identifier {
	return Identifier{Str: s}
}

func (i Identifier) String() string {
	if i.Numeric {
		return strconv.Itoa(i.Num)
	}
	return i.Str
}

// compareIdentifiers orders pre-release identifiers: numeric ones compare
// numerically, alphanumeric ones by ASCII order, and numeric identifiers
// always sort before alphanumeric ones.
func compareIdentifiers(a, b Identifier) int {
	switch {
	case a.Numeric && b.Numeric:
		return cmpInt(a.Num, b.Num)
	case a.Numeric:
		return -1
	case b.Numeric:
		return 1
	default:
		return strings.Compare(a.Str, b.Str)
	}
}

// ParseError reports a malformed version or requirement string. Bad holds the
// offending substring when it can be isolated.
type ParseError struct {
	Input string
	Bad   string
	Msg   string
}

func (e *ParseError) Error() string {
	if e.Bad != "" && e.Bad != e.Input {
		return fmt.Sprintf("parsing %q: %s at %q", e.Input, e.Msg, e.Bad)
	}
	return fmt.Sprintf("parsing %q: %s", e.Input, e.Msg)
}

// New returns a release version with no pre-release or build segments.
func New(major, minor, patch int) Version {
	return Version{Major: major, Minor: minor, Patch: patch}
}

// Parse parses a version string. Exactly three numeric segments are required;
// "1.0" is not a valid version (two-segment forms are accepted only as
// requirement operands, see ParseRequirement).
func Parse(input string) (Version, error) {
	v, twoSeg, err := parseOperand(input)
	if err != nil {
		return Version{}, err
	}
	if twoSeg {
		return Version{}, &ParseError{Input: input, Msg: "expected three numeric segments"}
	}
	return v, nil
}

// MustParse is like Parse but panics on error. Intended for tests and
// constants.
func MustParse(input string) Version {
	v, err := Parse(input)
	if err != nil {
		panic(err)
	}
	return v
}

// parseOperand parses a version allowing the patch segment to be omitted,
// which requirement operands may do. twoSeg reports whether it was.
func parseOperand(input string) (v Version, twoSeg bool, err error) {
	rest := input

	core := rest
	if i := strings.IndexAny(rest, "-+"); i >= 0 {
		core = rest[:i]
		rest = rest[i:]
	} else {
		rest = ""
	}

	segs := strings.Split(core, ".")
	switch len(segs) {
	case 2:
		twoSeg = true
	case 3:
	default:
		return Version{}, false, &ParseError{Input: input, Bad: core, Msg: "expected two or three numeric segments"}
	}
	nums := make([]int, 3)
	for i, s := range segs {
		n, numErr := parseSegment(s)
		if numErr != nil {
			return Version{}, false, &ParseError{Input: input, Bad: s, Msg: "invalid numeric segment"}
		}
		nums[i] = n
	}
	v = Version{Major: nums[0], Minor: nums[1], Patch: nums[2]}

	if strings.HasPrefix(rest, "-") {
		pre := rest[1:]
		if i := strings.IndexByte(pre, '+'); i >= 0 {
			rest = pre[i:]
			pre = pre[:i]
		} else {
			rest = ""
		}
		v.Pre, err = parsePre(input, pre)
		if err != nil {
			return Version{}, false, err
		}
	}

	if strings.HasPrefix(rest, "+") {
		build := rest[1:]
		if build == "" || !validIdentifiers(build) {
			return Version{}, false, &ParseError{Input: input, Bad: rest, Msg: "invalid build metadata"}
		}
		v.Build = build
		rest = ""
	}

	if rest != "" {
		return Version{}, false, &ParseError{Input: input, Bad: rest, Msg: "unexpected trailing input"}
	}
	return v, twoSeg, nil
}

func parseSegment(s string) (int, error) {
	if s == "" {
		return 0, fmt.Errorf("empty segment")
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("not a number")
		}
	}
	return strconv.Atoi(s)
}

func parsePre(input, pre string) ([]Identifier, error) {
	if pre == "" {
		return nil, &ParseError{Input: input, Msg: "empty pre-release"}
	}
	parts := strings.Split(pre, ".")
	ids := make([]Identifier, 0, len(parts))
	for _, p := range parts {
		if p == "" || !validIdentifierChars(p) {
			return nil, &ParseError{Input: input, Bad: p, Msg: "invalid pre-release identifier"}
		}
		if n, err := parseSegment(p); err == nil {
			ids = append(ids, NumericID(n))
		} else {
			ids = append(ids, AlphaID(p))
		}
	}
	return ids, nil
}

func validIdentifierChars(s string) bool {
	for _, r := range s {
		ok := r == '-' ||
			(r >= '0' && r <= '9') ||
			(r >= 'a' && r <= 'z') ||
			(r >= 'A' && r <= 'Z')
		if !ok {
			return false
		}
	}
	return true
}

func validIdentifiers(s string) bool {
	for _, part := range strings.Split(s, ".") {
		if part == "" || !validIdentifierChars(part) {
			return false
		}
	}
	return true
}

// IsPre reports whether the version has pre-release identifiers.
func (v Version) IsPre() bool {
	return len(v.Pre) > 0
}

// String formats the version canonically. Parse(v.String()) yields a version
// equal to v.
func (v Version) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d.%d.%d", v.Major, v.Minor, v.Patch)
	for i, id := range v.Pre {
		if i == 0 {
			b.WriteByte('-')
		} else {
			b.WriteByte('.')
		}
		b.WriteString(id.String())
	}
	if v.Build != "" {
		b.WriteByte('+')
		b.WriteString(v.Build)
	}
	return b.String()
}

// Compare returns -1, 0, or 1 ordering a against b. The order is total:
// segments compare numerically, a version with pre-release identifiers sorts
// before the same version without, and build metadata is ignored.
func Compare(a, b Version) int {
	if c := cmpInt(a.Major, b.Major); c != 0 {
		return c
	}
	if c := cmpInt(a.Minor, b.Minor); c != 0 {
		return c
	}
	if c := cmpInt(a.Patch, b.Patch); c != 0 {
		return c
	}
	return comparePre(a.Pre, b.Pre)
}

// comparePre orders pre-release identifier lists. An empty list is greater
// than any non-empty one (1.0.0-rc1 < 1.0.0); otherwise lists compare
// element-wise with the shorter prefix sorting first.
func comparePre(a, b []Identifier) int {
	switch {
	case len(a) == 0 && len(b) == 0:
		return 0
	case len(a) == 0:
		return 1
	case len(b) == 0:
		return -1
	}
	for i := 0; i < len(a) && i < len(b); i++ {
		if c := compareIdentifiers(a[i], b[i]); c != 0 {
			return c
		}
	}
	return cmpInt(len(a), len(b))
}

// Equal reports whether a and b are equal under Compare. Build metadata does
// not participate.
func (v Version) Equal(o Version) bool {
	return Compare(v, o) == 0
}

// bumpMinor returns the smallest release version above v's minor series.
func (v Version) bumpMinor() Version {
	return Version{Major: v.Major, Minor: v.Minor + 1}
}

// bumpMajor returns the smallest release version above v's major series.
func (v Version) bumpMajor() Version {
	return Version{Major: v.Major + 1}
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
