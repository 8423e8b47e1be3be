package registry

import (
	"crypto"
	"crypto/rsa"
	"crypto/sha512"
	"crypto/x509"
	"encoding/pem"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Signed is the envelope every repository record is served in. The signature
// is an RSA PKCS#1 v1.5 signature of the SHA-512 digest of the payload, made
// with the repository's private key.
type Signed struct {
	Payload   []byte
	Signature []byte
}

// DecodeSigned decodes a signed record envelope.
func DecodeSigned(b []byte) (*Signed, error) {
	s := &Signed{}
	err := eachField(b, func(num protowire.Number, typ protowire.Type, val []byte) error {
		switch num {
		case 1:
			s.Payload = append([]byte(nil), val...)
		case 2:
			s.Signature = append([]byte(nil), val...)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("decoding signed envelope: %w", err)
	}
	if s.Payload == nil {
		return nil, fmt.Errorf("decoding signed envelope: required field payload is missing")
	}
	if s.Signature == nil {
		return nil, fmt.Errorf("decoding signed envelope: required field signature is missing")
	}
	return s, nil
}

// EncodeSigned encodes a signed record envelope.
func EncodeSigned(s *Signed) ([]byte, error) {
	if s.Payload == nil {
		return nil, &EncodingError{Record: "Signed", Field: "payload"}
	}
	if s.Signature == nil {
		return nil, &EncodingError{Record: "Signed", Field: "signature"}
	}
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	b = protowire.AppendBytes(b, s.Payload)
	b = protowire.AppendTag(b, 2, protowire.BytesType)
	b = protowire.AppendBytes(b, s.Signature)
	return b, nil
}

// VerifyPayload checks the envelope's signature against a PEM-encoded RSA
// public key and returns the payload. With an empty key the payload is
// returned unverified.
func VerifyPayload(s *Signed, pemPublicKey []byte) ([]byte, error) {
	if len(pemPublicKey) == 0 {
		return s.Payload, nil
	}
	block, _ := pem.Decode(pemPublicKey)
	if block == nil {
		return nil, fmt.Errorf("repository public key is not valid PEM")
	}
	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parsing repository public key: %w", err)
	}
	rsaPub, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("repository public key is not an RSA key")
	}
	digest := sha512.Sum512(s.Payload)
	if err := rsa.VerifyPKCS1v15(rsaPub, crypto.SHA512, digest[:], s.Signature); err != nil {
		return nil, &SignatureError{}
	}
	return s.Payload, nil
}
