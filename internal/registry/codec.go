package registry

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/git-pkgs/hexpm/version"
)

// Record layout (registry v2):
//
//	Signed          payload=1 bytes, signature=2 bytes
//	Versions        packages=1 repeated message, repository=2 string
//	Versions entry  name=1 string, versions=2 repeated string,
//	                retired=3 packed int32
//	Package         releases=1 repeated message, name=2 string,
//	                repository=3 string
//	Release         version=1 string, inner_checksum=2 bytes,
//	                dependencies=3 repeated message,
//	                retired=4 optional message,
//	                outer_checksum=5 optional bytes
//	Retirement      reason=1 enum, message=2 optional string
//	Dependency      package=1 string, requirement=2 string,
//	                optional=3 optional bool, app=4 optional string,
//	                repository=5 optional string
//
// Required fields must be present when encoding; decoding tolerates absent
// optional fields (they stay nil/absent, not zero) and skips unknown fields.

// DecodeVersions decodes a repository version index record.
func DecodeVersions(b []byte) (*Versions, error) {
	v := &Versions{}
	seenRepo := false
	err := eachField(b, func(num protowire.Number, typ protowire.Type, val []byte) error {
		switch num {
		case 1:
			pkg, err := decodeVersionsPackage(val)
			if err != nil {
				return err
			}
			v.Packages = append(v.Packages, pkg)
		case 2:
			v.Repository = string(val)
			seenRepo = true
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("decoding versions record: %w", err)
	}
	if !seenRepo {
		return nil, fmt.Errorf("decoding versions record: required field repository is missing")
	}
	return v, nil
}

func decodeVersionsPackage(b []byte) (*VersionsPackage, error) {
	p := &VersionsPackage{}
	err := eachField(b, func(num protowire.Number, typ protowire.Type, val []byte) error {
		switch num {
		case 1:
			p.Name = string(val)
		case 2:
			p.Versions = append(p.Versions, string(val))
		case 3:
			// Packed on the wire, but unpacked varints are accepted
			// too, as the wire format requires.
			if typ == protowire.VarintType {
				n, err := consumeVarint(val)
				if err != nil {
					return err
				}
				p.Retired = append(p.Retired, int32(n))
				return nil
			}
			for len(val) > 0 {
				n, cnt := protowire.ConsumeVarint(val)
				if cnt < 0 {
					return protowire.ParseError(cnt)
				}
				p.Retired = append(p.Retired, int32(n))
				val = val[cnt:]
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if p.Name == "" {
		return nil, fmt.Errorf("versions entry: required field name is missing")
	}
	for _, idx := range p.Retired {
		if idx < 0 || int(idx) >= len(p.Versions) {
			return nil, fmt.Errorf("versions entry %s: retired index %d out of range", p.Name, idx)
		}
	}
	return p, nil
}

// DecodePackage decodes a package record.
func DecodePackage(b []byte) (*Package, error) {
	p := &Package{}
	err := eachField(b, func(num protowire.Number, typ protowire.Type, val []byte) error {
		switch num {
		case 1:
			rel, err := decodeRelease(val)
			if err != nil {
				return err
			}
			p.Releases = append(p.Releases, rel)
		case 2:
			p.Name = string(val)
		case 3:
			p.Repository = string(val)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("decoding package record: %w", err)
	}
	if p.Name == "" {
		return nil, fmt.Errorf("decoding package record: required field name is missing")
	}
	if p.Repository == "" {
		return nil, fmt.Errorf("decoding package record %s: required field repository is missing", p.Name)
	}
	return p, nil
}

func decodeRelease(b []byte) (*Release, error) {
	r := &Release{}
	seenVersion := false
	err := eachField(b, func(num protowire.Number, typ protowire.Type, val []byte) error {
		switch num {
		case 1:
			v, err := version.Parse(string(val))
			if err != nil {
				return err
			}
			r.Version = v
			seenVersion = true
		case 2:
			r.InnerChecksum = append([]byte(nil), val...)
		case 3:
			dep, err := decodeDependency(val)
			if err != nil {
				return err
			}
			r.Dependencies = append(r.Dependencies, dep)
		case 4:
			st, err := decodeRetirement(val)
			if err != nil {
				return err
			}
			r.Retired = st
		case 5:
			r.OuterChecksum = append([]byte(nil), val...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !seenVersion {
		return nil, fmt.Errorf("release: required field version is missing")
	}
	if r.InnerChecksum == nil {
		return nil, fmt.Errorf("release %s: required field inner_checksum is missing", r.Version)
	}
	return r, nil
}

func decodeRetirement(b []byte) (*RetirementStatus, error) {
	st := &RetirementStatus{}
	err := eachField(b, func(num protowire.Number, typ protowire.Type, val []byte) error {
		switch num {
		case 1:
			n, err := consumeVarint(val)
			if err != nil {
				return err
			}
			// Unknown reasons from newer registries keep their raw
			// value.
			st.Reason = RetirementReason(int32(n))
		case 2:
			st.Message = string(val)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return st, nil
}

func decodeDependency(b []byte) (Dependency, error) {
	d := Dependency{}
	seenReq := false
	err := eachField(b, func(num protowire.Number, typ protowire.Type, val []byte) error {
		switch num {
		case 1:
			d.Package = string(val)
		case 2:
			req, err := version.ParseRequirement(string(val))
			if err != nil {
				return err
			}
			d.Requirement = req
			seenReq = true
		case 3:
			n, err := consumeVarint(val)
			if err != nil {
				return err
			}
			d.Optional = n != 0
		case 4:
			s := string(val)
			d.App = &s
		case 5:
			s := string(val)
			d.Repository = &s
		}
		return nil
	})
	if err != nil {
		return Dependency{}, err
	}
	if d.Package == "" {
		return Dependency{}, fmt.Errorf("dependency: required field package is missing")
	}
	if !seenReq {
		return Dependency{}, fmt.Errorf("dependency %s: required field requirement is missing", d.Package)
	}
	return d, nil
}

// eachField walks the fields of a message, handing scalar payloads to fn.
// Varint fields are re-encoded as their raw varint bytes so fn can consume
// them uniformly; unknown wire types are skipped.
func eachField(b []byte, fn func(num protowire.Number, typ protowire.Type, val []byte) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]

		switch typ {
		case protowire.BytesType:
			val, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return protowire.ParseError(n)
			}
			if err := fn(num, typ, val); err != nil {
				return err
			}
			b = b[n:]
		case protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return protowire.ParseError(n)
			}
			if err := fn(num, typ, protowire.AppendVarint(nil, v)); err != nil {
				return err
			}
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return protowire.ParseError(n)
			}
			b = b[n:]
		}
	}
	return nil
}

func consumeVarint(b []byte) (uint64, error) {
	v, n := protowire.ConsumeVarint(b)
	if n < 0 {
		return 0, protowire.ParseError(n)
	}
	return v, nil
}

// EncodeVersions encodes a repository version index record. Required fields
// must be set.
func EncodeVersions(v *Versions) ([]byte, error) {
	if v.Repository == "" {
		return nil, &EncodingError{Record: "Versions", Field: "repository"}
	}
	var b []byte
	for _, p := range v.Packages {
		enc, err := encodeVersionsPackage(p)
		if err != nil {
			return nil, err
		}
		b = protowire.AppendTag(b, 1, protowire.BytesType)
		b = protowire.AppendBytes(b, enc)
	}
	b = protowire.AppendTag(b, 2, protowire.BytesType)
	b = protowire.AppendString(b, v.Repository)
	return b, nil
}

func encodeVersionsPackage(p *VersionsPackage) ([]byte, error) {
	if p.Name == "" {
		return nil, &EncodingError{Record: "Versions entry", Field: "name"}
	}
	for _, idx := range p.Retired {
		if idx < 0 || int(idx) >= len(p.Versions) {
			return nil, fmt.Errorf("encoding versions entry %s: retired index %d out of range", p.Name, idx)
		}
	}
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	b = protowire.AppendString(b, p.Name)
	for _, v := range p.Versions {
		b = protowire.AppendTag(b, 2, protowire.BytesType)
		b = protowire.AppendString(b, v)
	}
	if len(p.Retired) > 0 {
		var packed []byte
		for _, idx := range p.Retired {
			packed = protowire.AppendVarint(packed, uint64(uint32(idx)))
		}
		b = protowire.AppendTag(b, 3, protowire.BytesType)
		b = protowire.AppendBytes(b, packed)
	}
	return b, nil
}

// EncodePackage encodes a package record. Required fields must be set,
// including each release's outer checksum: records are only ever written by
// current tooling, the decode-side tolerance exists for historical records.
func EncodePackage(p *Package) ([]byte, error) {
	if p.Name == "" {
		return nil, &EncodingError{Record: "Package", Field: "name"}
	}
	if p.Repository == "" {
		return nil, &EncodingError{Record: "Package", Field: "repository"}
	}
	var b []byte
	for _, r := range p.Releases {
		enc, err := encodeRelease(r)
		if err != nil {
			return nil, err
		}
		b = protowire.AppendTag(b, 1, protowire.BytesType)
		b = protowire.AppendBytes(b, enc)
	}
	b = protowire.AppendTag(b, 2, protowire.BytesType)
	b = protowire.AppendString(b, p.Name)
	b = protowire.AppendTag(b, 3, protowire.BytesType)
	b = protowire.AppendString(b, p.Repository)
	return b, nil
}

func encodeRelease(r *Release) ([]byte, error) {
	if r.InnerChecksum == nil {
		return nil, &EncodingError{Record: "Release", Field: "inner_checksum"}
	}
	if r.OuterChecksum == nil {
		return nil, &EncodingError{Record: "Release", Field: "outer_checksum"}
	}
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	b = protowire.AppendString(b, r.Version.String())
	b = protowire.AppendTag(b, 2, protowire.BytesType)
	b = protowire.AppendBytes(b, r.InnerChecksum)
	for _, d := range r.Dependencies {
		enc, err := encodeDependency(d)
		if err != nil {
			return nil, err
		}
		b = protowire.AppendTag(b, 3, protowire.BytesType)
		b = protowire.AppendBytes(b, enc)
	}
	if r.Retired != nil {
		var st []byte
		st = protowire.AppendTag(st, 1, protowire.VarintType)
		st = protowire.AppendVarint(st, uint64(uint32(r.Retired.Reason)))
		if r.Retired.Message != "" {
			st = protowire.AppendTag(st, 2, protowire.BytesType)
			st = protowire.AppendString(st, r.Retired.Message)
		}
		b = protowire.AppendTag(b, 4, protowire.BytesType)
		b = protowire.AppendBytes(b, st)
	}
	b = protowire.AppendTag(b, 5, protowire.BytesType)
	b = protowire.AppendBytes(b, r.OuterChecksum)
	return b, nil
}

func encodeDependency(d Dependency) ([]byte, error) {
	if d.Package == "" {
		return nil, &EncodingError{Record: "Dependency", Field: "package"}
	}
	if d.Requirement.String() == "" {
		return nil, &EncodingError{Record: "Dependency", Field: "requirement"}
	}
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	b = protowire.AppendString(b, d.Package)
	b = protowire.AppendTag(b, 2, protowire.BytesType)
	b = protowire.AppendString(b, d.Requirement.String())
	if d.Optional {
		b = protowire.AppendTag(b, 3, protowire.VarintType)
		b = protowire.AppendVarint(b, 1)
	}
	if d.App != nil {
		b = protowire.AppendTag(b, 4, protowire.BytesType)
		b = protowire.AppendString(b, *d.App)
	}
	if d.Repository != nil {
		b = protowire.AppendTag(b, 5, protowire.BytesType)
		b = protowire.AppendString(b, *d.Repository)
	}
	return b, nil
}
