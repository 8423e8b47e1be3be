package version

import "testing"

func TestRequirementMatch(t *testing.T) {
	tests := []struct {
		req     string
		version string
		want    bool
	}{
		// bare version means ==
		{"1.0.0", "1.0.0", true},
		{"1.0.0", "1.0.1", false},

		{"== 1.0.0", "1.0.0", true},
		{"== 1.0.0", "1.0.0+build", true}, // build ignored
		{"!= 1.0.0", "1.0.0", false},
		{"!= 1.0.0", "1.0.1", true},

		{"> 1.0.0", "1.0.1", true},
		{"> 1.0.0", "1.0.0", false},
		{">= 1.0.0", "1.0.0", true},
		{"< 2.0.0", "1.9.9", true},
		{"< 2.0.0", "2.0.0", false},
		{"<= 2.0.0", "2.0.0", true},

		// pre-releases order below their release
		{"> 1.0.0-rc.1", "1.0.0", true},
		{"< 1.0.0", "1.0.0-rc.1", true},
		{">= 1.0.0", "1.0.0-rc.1", false},

		// approximate, three segments: pins the minor series
		{"~> 2.1.2", "2.1.2", true},
		{"~> 2.1.2", "2.1.9", true},
		{"~> 2.1.2", "2.2.0", false},
		{"~> 2.1.2", "2.1.1", false},
		{"~> 2.1.2", "2.2.0-rc.1", false},

		// approximate, two segments: pins the major series
		{"~> 2.1", "2.1.0", true},
		{"~> 2.1", "2.9.5", true},
		{"~> 2.1", "3.0.0", false},
		{"~> 2.1", "3.0.0-rc.1", false},
		{"~> 2.1", "2.0.9", false},

		// approximate with a pre-release operand
		{"~> 1.0.0-rc.1", "1.0.0-rc.1", true},
		{"~> 1.0.0-rc.1", "1.0.0-rc.2", true},
		{"~> 1.0.0-rc.1", "1.0.0", true},
		{"~> 1.0.0-rc.1", "1.1.0", false},

		// conjunction
		{"> 1.0.0 and < 2.0.0", "1.5.0", true},
		{"> 1.0.0 and < 2.0.0", "2.0.0", false},
		{"> 1.0.0 and < 2.0.0", "1.0.0", false},

		// or binds looser than and
		{"> 1.0.0 and < 2.0.0 or == 4.5.2", "4.5.2", true},
		{"> 1.0.0 and < 2.0.0 or == 4.5.2", "1.5.0", true},
		{"> 1.0.0 and < 2.0.0 or == 4.5.2", "3.0.0", false},
		{"== 1.0.0 or == 2.0.0 and > 3.0.0", "1.0.0", true},

		// operator glued to the operand
		{">=1.0.0", "1.2.0", true},
		{"~>2.1", "2.5.0", true},
	}
	for _, tt := range tests {
		t.Run(tt.req+"/"+tt.version, func(t *testing.T) {
			r, err := ParseRequirement(tt.req)
			if err != nil {
				t.Fatalf("ParseRequirement(%q) failed: %v", tt.req, err)
			}
			if got := r.Match(MustParse(tt.version)); got != tt.want {
				t.Errorf("(%q).Match(%s) = %v, want %v", tt.req, tt.version, got, tt.want)
			}
		})
	}
}

func TestRequirementMatchIsPure(t *testing.T) {
	r := MustParseRequirement("~> 1.2 and != 1.4.0")
	v := MustParse("1.3.7")
	first := r.Match(v)
	for i := 0; i < 100; i++ {
		if r.Match(v) != first {
			t.Fatal("Match changed its answer for identical inputs")
		}
	}
}

func TestZeroRequirementMatchesEverything(t *testing.T) {
	var r Requirement
	for _, s := range []string{"0.0.1", "1.0.0-rc.1", "99.0.0"} {
		if !r.Match(MustParse(s)) {
			t.Errorf("zero requirement rejected %s", s)
		}
	}
	if r.String() != "" {
		t.Errorf("zero requirement String() = %q", r.String())
	}
}

func TestParseRequirementRejects(t *testing.T) {
	bad := []string{
		"",
		"   ",
		"and",
		"1.0.0 and",
		"or 1.0.0",
		"1.0.0 and and 2.0.0",
		">=",
		">= x.y.z",
		"1.0.0.0",
	}
	for _, input := range bad {
		if _, err := ParseRequirement(input); err == nil {
			t.Errorf("ParseRequirement(%q) succeeded, want error", input)
		}
	}
}

func TestExact(t *testing.T) {
	v := MustParse("1.4.2")
	r := Exact(v)
	if !r.Match(v) {
		t.Error("Exact requirement rejected its own version")
	}
	if r.Match(MustParse("1.4.3")) {
		t.Error("Exact requirement matched a different version")
	}
	if r.String() != "== 1.4.2" {
		t.Errorf("Exact String() = %q", r.String())
	}
}

func TestRequirementStringNormalizesWhitespace(t *testing.T) {
	r := MustParseRequirement("  >   1.0.0   and   <  2.0.0  ")
	if r.String() != "> 1.0.0 and < 2.0.0" {
		t.Errorf("String() = %q", r.String())
	}
}
