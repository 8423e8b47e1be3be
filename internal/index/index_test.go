package index

import (
	"errors"
	"strings"
	"testing"

	"github.com/git-pkgs/hexpm/internal/registry"
	"github.com/git-pkgs/hexpm/version"
)

func release(v string) *registry.Release {
	return &registry.Release{
		Version:       version.MustParse(v),
		InnerChecksum: []byte{1},
	}
}

func retiredRelease(v string, reason registry.RetirementReason) *registry.Release {
	r := release(v)
	r.Retired = &registry.RetirementStatus{Reason: reason}
	return r
}

func TestSortReleases(t *testing.T) {
	releases := []*registry.Release{
		release("1.0.0-rc.1"),
		release("0.9.0"),
		release("1.1.0"),
		release("2.0.0-beta.1"),
		release("1.0.0"),
	}
	SortReleases(releases)

	want := []string{"1.1.0", "1.0.0", "0.9.0", "2.0.0-beta.1", "1.0.0-rc.1"}
	for i, w := range want {
		if got := releases[i].Version.String(); got != w {
			t.Errorf("releases[%d] = %s, want %s", i, got, w)
		}
	}
}

func TestFindPackage(t *testing.T) {
	x := New("hexpm", []*registry.Package{
		{Name: "plug", Repository: "hexpm", Releases: []*registry.Release{release("1.0.0")}},
	})

	p, err := x.FindPackage("plug")
	if err != nil {
		t.Fatalf("FindPackage failed: %v", err)
	}
	if p.Name != "plug" {
		t.Errorf("name = %q", p.Name)
	}

	_, err = x.FindPackage("missing")
	var nf *registry.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("got %v, want NotFoundError", err)
	}
	if nf.Name != "missing" || nf.Repository != "hexpm" {
		t.Errorf("NotFoundError = %+v", nf)
	}
	if !errors.Is(err, registry.ErrNotFound) {
		t.Error("NotFoundError does not unwrap to ErrNotFound")
	}
}

func TestReleasesSatisfying(t *testing.T) {
	x := New("hexpm", []*registry.Package{
		{Name: "plug", Repository: "hexpm", Releases: []*registry.Release{
			release("1.0.0"),
			release("1.1.0"),
			retiredRelease("1.2.0", registry.RetiredSecurity),
			release("2.0.0"),
		}},
	})

	got, err := x.ReleasesSatisfying("plug", version.MustParseRequirement("~> 1.0"), false)
	if err != nil {
		t.Fatalf("ReleasesSatisfying failed: %v", err)
	}
	// 1.2.0 is retired and excluded; order is newest first.
	want := []string{"1.1.0", "1.0.0"}
	if len(got) != len(want) {
		t.Fatalf("got %d releases, want %d", len(got), len(want))
	}
	for i, w := range want {
		if got[i].Version.String() != w {
			t.Errorf("got[%d] = %s, want %s", i, got[i].Version, w)
		}
	}

	withRetired, err := x.ReleasesSatisfying("plug", version.MustParseRequirement("~> 1.0"), true)
	if err != nil {
		t.Fatal(err)
	}
	if len(withRetired) != 3 || withRetired[0].Version.String() != "1.2.0" {
		t.Errorf("includeRetired got %d releases", len(withRetired))
	}
}

func TestReconcileCompactRetirement(t *testing.T) {
	pkg := &registry.Package{
		Name:       "plug",
		Repository: "hexpm",
		Releases:   []*registry.Release{release("1.0.0"), release("1.1.0")},
	}
	x := New("hexpm", []*registry.Package{pkg})

	x.Reconcile(&registry.Versions{
		Repository: "hexpm",
		Packages: []*registry.VersionsPackage{
			{Name: "plug", Versions: []string{"1.0.0", "1.1.0"}, Retired: []int32{0}},
		},
	})

	r := pkg.Release(version.MustParse("1.0.0"))
	if r.Retired == nil || r.Retired.Reason != registry.RetiredOther {
		t.Errorf("compact retirement not applied: %+v", r.Retired)
	}
	if pkg.Release(version.MustParse("1.1.0")).Retired != nil {
		t.Error("unretired release gained a retirement")
	}
	if len(x.Warnings()) != 0 {
		t.Errorf("unexpected warnings: %v", x.Warnings())
	}
}

func TestReconcileDetailedReasonWins(t *testing.T) {
	pkg := &registry.Package{
		Name:       "plug",
		Repository: "hexpm",
		Releases:   []*registry.Release{retiredRelease("1.0.0", registry.RetiredSecurity)},
	}
	x := New("hexpm", []*registry.Package{pkg})

	x.Reconcile(&registry.Versions{
		Repository: "hexpm",
		Packages: []*registry.VersionsPackage{
			{Name: "plug", Versions: []string{"1.0.0"}, Retired: []int32{0}},
		},
	})

	r := pkg.Release(version.MustParse("1.0.0"))
	if r.Retired.Reason != registry.RetiredSecurity {
		t.Errorf("detailed reason was overwritten: %v", r.Retired.Reason)
	}
}

func TestReconcileWarnings(t *testing.T) {
	pkg := &registry.Package{
		Name:       "plug",
		Repository: "hexpm",
		Releases:   []*registry.Release{retiredRelease("1.0.0", registry.RetiredDeprecated)},
	}
	x := New("hexpm", []*registry.Package{pkg})

	x.Reconcile(&registry.Versions{
		Repository: "acme",
		Packages: []*registry.VersionsPackage{
			// 1.0.0 retired in detail but not in the index, bad version
			// string, retirement of a release the record lacks.
			{Name: "plug", Versions: []string{"1.0.0", "not-a-version", "9.9.9"}, Retired: []int32{2}},
			// Unknown packages are skipped silently.
			{Name: "elsewhere", Versions: []string{"1.0.0"}},
		},
	})

	warnings := x.Warnings()
	if len(warnings) != 4 {
		t.Fatalf("got %d warnings, want 4: %v", len(warnings), warnings)
	}
	wantSubstrings := []string{
		"names repository acme",
		"not-a-version",
		"no such release",
		"the index does not mark it",
	}
	for _, sub := range wantSubstrings {
		found := false
		for _, w := range warnings {
			if strings.Contains(w, sub) {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("no warning containing %q in %v", sub, warnings)
		}
	}
}

func TestNewWarnsOnForeignRepository(t *testing.T) {
	x := New("hexpm", []*registry.Package{
		{Name: "pkg", Repository: "acme", Releases: []*registry.Release{release("1.0.0")}},
	})
	if len(x.Warnings()) != 1 {
		t.Fatalf("warnings = %v", x.Warnings())
	}
	// The record is still indexed.
	if _, err := x.FindPackage("pkg"); err != nil {
		t.Errorf("foreign-repository package not indexed: %v", err)
	}
}

func TestPackagesSorted(t *testing.T) {
	x := New("hexpm", []*registry.Package{
		{Name: "zeta", Repository: "hexpm"},
		{Name: "alpha", Repository: "hexpm"},
	})
	got := x.Packages()
	if len(got) != 2 || got[0] != "alpha" || got[1] != "zeta" {
		t.Errorf("Packages() = %v", got)
	}
	if x.Repository() != "hexpm" {
		t.Errorf("Repository() = %q", x.Repository())
	}
}
