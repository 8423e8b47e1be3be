package version

import (
	"strings"
)

// Requirement is an immutable predicate over versions, parsed from the
// registry's requirement grammar:
//
//	">= 1.0.0"
//	"~> 2.1"
//	"> 1.0.0 and < 2.0.0 or == 4.5.2"
//
// A clause is an operator (==, !=, >, >=, <, <=, ~>) applied to a version;
// a bare version means ==. Clauses joined with "and" must all hold, "and"
// groups joined with "or" are alternatives, and "or" binds looser than
// "and". A requirement with zero clauses matches every version.
//
// The approximate operator pins the leading segments: "~> 2.1.2" matches
// ">= 2.1.2 and < 2.2.0", and the two-segment form "~> 2.1" matches
// ">= 2.1.0 and < 3.0.0". Pre-releases of the excluded upper boundary do not
// match ("~> 2.1" rejects "3.0.0-rc.1").
type Requirement struct {
	spec string
	alts [][]clause
}

type operator int

const (
	opEQ operator = iota
	opNE
	opGT
	opGTE
	opLT
	opLTE
	opApprox
)

type clause struct {
	op      operator
	operand Version
	twoSeg  bool // operand omitted the patch segment
}

// ParseRequirement parses a requirement string.
func ParseRequirement(input string) (Requirement, error) {
	fields := strings.Fields(input)
	if len(fields) == 0 {
		return Requirement{}, &ParseError{Input: input, Msg: "empty requirement"}
	}

	var alts [][]clause
	var conj []clause
	expectClause := true

	for i := 0; i < len(fields); i++ {
		tok := fields[i]
		switch tok {
		case "and", "or":
			if expectClause {
				return Requirement{}, &ParseError{Input: input, Bad: tok, Msg: "expected a clause"}
			}
			if tok == "or" {
				alts = append(alts, conj)
				conj = nil
			}
			expectClause = true
		default:
			op, operand := splitOperator(tok)
			if operand == "" {
				// Operator and operand separated by whitespace.
				if i+1 >= len(fields) {
					return Requirement{}, &ParseError{Input: input, Bad: tok, Msg: "operator without a version"}
				}
				i++
				operand = fields[i]
			}
			v, twoSeg, err := parseOperand(operand)
			if err != nil {
				return Requirement{}, &ParseError{Input: input, Bad: operand, Msg: "invalid version operand"}
			}
			conj = append(conj, clause{op: op, operand: v, twoSeg: twoSeg})
			expectClause = false
		}
	}
	if expectClause {
		return Requirement{}, &ParseError{Input: input, Msg: "dangling combinator"}
	}
	alts = append(alts, conj)

	return Requirement{spec: strings.Join(fields, " "), alts: alts}, nil
}

// MustParseRequirement is like ParseRequirement but panics on error.
func MustParseRequirement(input string) Requirement {
	r, err := ParseRequirement(input)
	if err != nil {
		panic(err)
	}
	return r
}

// Exact returns a requirement matching only versions equal to v. Used to pin
// already-locked versions.
func Exact(v Version) Requirement {
	return Requirement{
		spec: "== " + v.String(),
		alts: [][]clause{{{op: opEQ, operand: v}}},
	}
}

// splitOperator separates a leading operator from a token. A token with no
// operator prefix is an == clause on a bare version.
func splitOperator(tok string) (operator, string) {
	for _, p := range []struct {
		text string
		op   operator
	}{
		{"==", opEQ},
		{"!=", opNE},
		{">=", opGTE},
		{"<=", opLTE},
		{"~>", opApprox},
		{">", opGT},
		{"<", opLT},
	} {
		if strings.HasPrefix(tok, p.text) {
			return p.op, tok[len(p.text):]
		}
	}
	return opEQ, tok
}

// Match reports whether v satisfies the requirement. It is pure: identical
// inputs always produce the same answer.
func (r Requirement) Match(v Version) bool {
	if len(r.alts) == 0 {
		return true
	}
	for _, conj := range r.alts {
		if matchAll(conj, v) {
			return true
		}
	}
	return false
}

func matchAll(conj []clause, v Version) bool {
	for _, c := range conj {
		if !c.match(v) {
			return false
		}
	}
	return true
}

func (c clause) match(v Version) bool {
	switch c.op {
	case opEQ:
		return Compare(v, c.operand) == 0
	case opNE:
		return Compare(v, c.operand) != 0
	case opGT:
		return Compare(v, c.operand) > 0
	case opGTE:
		return Compare(v, c.operand) >= 0
	case opLT:
		return Compare(v, c.operand) < 0
	case opLTE:
		return Compare(v, c.operand) <= 0
	case opApprox:
		if Compare(v, c.operand) < 0 {
			return false
		}
		upper := c.operand.bumpMinor()
		if c.twoSeg {
			upper = c.operand.bumpMajor()
		}
		// Lowest possible pre-release of the boundary, so boundary
		// pre-releases are excluded along with the boundary itself.
		upper.Pre = []Identifier{NumericID(0)}
		return Compare(v, upper) < 0
	}
	return false
}

// String returns the requirement as written, with whitespace normalized.
func (r Requirement) String() string {
	if len(r.alts) == 0 {
		return ""
	}
	return r.spec
}
