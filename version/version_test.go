package version

import (
	"sort"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		input string
		want  Version
	}{
		{"1.4.2", Version{Major: 1, Minor: 4, Patch: 2}},
		{"0.0.0", Version{}},
		{"10.20.30", Version{Major: 10, Minor: 20, Patch: 30}},
		{"1.0.0-alpha", Version{Major: 1, Pre: []Identifier{AlphaID("alpha")}}},
		{"1.0.0-alpha.3", Version{Major: 1, Pre: []Identifier{AlphaID("alpha"), NumericID(3)}}},
		{"1.0.0-0", Version{Major: 1, Pre: []Identifier{NumericID(0)}}},
		{"1.0.0+build", Version{Major: 1, Build: "build"}},
		{"1.0.0-rc.1+20130417140000.amd64", Version{
			Major: 1,
			Pre:   []Identifier{AlphaID("rc"), NumericID(1)},
			Build: "20130417140000.amd64",
		}},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := Parse(tt.input)
			if err != nil {
				t.Fatalf("Parse(%q) failed: %v", tt.input, err)
			}
			if Compare(got, tt.want) != 0 || got.Build != tt.want.Build {
				t.Errorf("Parse(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseRejects(t *testing.T) {
	bad := []string{
		"",
		"1",
		"1.0",         // two segments are requirement operands only
		"1.0.0.0",
		"1.a.0",
		"01x.0.0",
		"1.0.0-",
		"1.0.0-alpha..3",
		"1.0.0-alpha_3",
		"1.0.0+",
		"1.0.0+build..x",
		" 1.0.0",
		"v1.0.0",
	}
	for _, input := range bad {
		if _, err := Parse(input); err == nil {
			t.Errorf("Parse(%q) succeeded, want error", input)
		}
	}
}

func TestStringRoundTrip(t *testing.T) {
	inputs := []string{
		"0.0.1",
		"1.4.2",
		"1.0.0-alpha.3",
		"1.0.0-0.alpha",
		"2.0.0+build.42",
		"1.0.0-rc.1+exp.sha.5114f85",
	}
	for _, input := range inputs {
		v, err := Parse(input)
		if err != nil {
			t.Fatalf("Parse(%q) failed: %v", input, err)
		}
		if v.String() != input {
			t.Errorf("Parse(%q).String() = %q", input, v.String())
		}
		again, err := Parse(v.String())
		if err != nil {
			t.Fatalf("re-parsing %q failed: %v", v.String(), err)
		}
		if !v.Equal(again) {
			t.Errorf("round trip of %q changed the value", input)
		}
	}
}

func TestCompare(t *testing.T) {
	// Strictly ascending by the documented precedence rules.
	ascending := []string{
		"0.0.9",
		"0.1.0",
		"1.0.0-0",
		"1.0.0-alpha",
		"1.0.0-alpha.1",
		"1.0.0-alpha.beta",
		"1.0.0-beta",
		"1.0.0-beta.2",
		"1.0.0-beta.11",
		"1.0.0-rc.1",
		"1.0.0",
		"1.0.1",
		"1.9.0",
		"1.10.0",
		"2.0.0",
	}
	for i := 0; i < len(ascending); i++ {
		for j := 0; j < len(ascending); j++ {
			a, b := MustParse(ascending[i]), MustParse(ascending[j])
			want := 0
			if i < j {
				want = -1
			} else if i > j {
				want = 1
			}
			if got := Compare(a, b); got != want {
				t.Errorf("Compare(%s, %s) = %d, want %d", ascending[i], ascending[j], got, want)
			}
		}
	}
}

func TestCompareIgnoresBuild(t *testing.T) {
	a := MustParse("1.0.0+20130417140000")
	b := MustParse("1.0.0+other")
	c := MustParse("1.0.0")
	if Compare(a, b) != 0 || Compare(a, c) != 0 {
		t.Error("build metadata participated in ordering")
	}
	if !a.Equal(c) {
		t.Error("Equal distinguished versions by build metadata")
	}
}

func TestSortIsTotal(t *testing.T) {
	spellings := []string{
		"2.0.0", "1.0.0", "1.0.0-rc.1", "1.0.0-alpha", "0.9.0", "1.0.0-rc.1+build",
	}
	vs := make([]Version, len(spellings))
	for i, s := range spellings {
		vs[i] = MustParse(s)
	}
	sort.Slice(vs, func(i, j int) bool { return Compare(vs[i], vs[j]) < 0 })

	want := []string{"0.9.0", "1.0.0-alpha", "1.0.0-rc.1", "1.0.0-rc.1+build", "1.0.0", "2.0.0"}
	for i, w := range want {
		got := vs[i].String()
		if got != w && !(vs[i].Equal(MustParse(w))) {
			t.Fatalf("sorted[%d] = %s, want %s", i, got, w)
		}
	}
}

func TestIsPre(t *testing.T) {
	if MustParse("1.0.0").IsPre() {
		t.Error("1.0.0 reported as pre-release")
	}
	if !MustParse("1.0.0-rc.1").IsPre() {
		t.Error("1.0.0-rc.1 not reported as pre-release")
	}
}
