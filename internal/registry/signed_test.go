package registry

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha512"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"testing"
)

func signPayload(t *testing.T, payload []byte) (*Signed, []byte) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generating key: %v", err)
	}
	digest := sha512.Sum512(payload)
	sig, err := rsa.SignPKCS1v15(rand.Reader, key, crypto.SHA512, digest[:])
	if err != nil {
		t.Fatalf("signing: %v", err)
	}
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		t.Fatalf("marshaling public key: %v", err)
	}
	pemKey := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})
	return &Signed{Payload: payload, Signature: sig}, pemKey
}

func TestSignedRoundTrip(t *testing.T) {
	s := &Signed{Payload: []byte("payload"), Signature: []byte("sig")}
	enc, err := EncodeSigned(s)
	if err != nil {
		t.Fatalf("EncodeSigned failed: %v", err)
	}
	got, err := DecodeSigned(enc)
	if err != nil {
		t.Fatalf("DecodeSigned failed: %v", err)
	}
	if string(got.Payload) != "payload" || string(got.Signature) != "sig" {
		t.Errorf("decoded %+v", got)
	}
}

func TestDecodeSignedMissingFields(t *testing.T) {
	if _, err := DecodeSigned(nil); err == nil {
		t.Error("DecodeSigned accepted an empty envelope")
	}
	onlyPayload := field(nil, 1, []byte("p"))
	if _, err := DecodeSigned(onlyPayload); err == nil {
		t.Error("DecodeSigned accepted an envelope without a signature")
	}
	onlySignature := field(nil, 2, []byte("s"))
	if _, err := DecodeSigned(onlySignature); err == nil {
		t.Error("DecodeSigned accepted an envelope without a payload")
	}
}

func TestVerifyPayload(t *testing.T) {
	payload := []byte("registry record payload")
	s, pemKey := signPayload(t, payload)

	got, err := VerifyPayload(s, pemKey)
	if err != nil {
		t.Fatalf("VerifyPayload failed: %v", err)
	}
	if string(got) != string(payload) {
		t.Errorf("payload = %q", got)
	}
}

func TestVerifyPayloadTampered(t *testing.T) {
	s, pemKey := signPayload(t, []byte("original"))
	s.Payload = []byte("tampered")

	_, err := VerifyPayload(s, pemKey)
	var sigErr *SignatureError
	if !errors.As(err, &sigErr) {
		t.Fatalf("got %v, want SignatureError", err)
	}
}

func TestVerifyPayloadEmptyKeySkipsVerification(t *testing.T) {
	s := &Signed{Payload: []byte("unverified"), Signature: []byte("junk")}
	got, err := VerifyPayload(s, nil)
	if err != nil {
		t.Fatalf("VerifyPayload failed: %v", err)
	}
	if string(got) != "unverified" {
		t.Errorf("payload = %q", got)
	}
}

func TestVerifyPayloadBadKey(t *testing.T) {
	s := &Signed{Payload: []byte("p"), Signature: []byte("s")}
	if _, err := VerifyPayload(s, []byte("not pem")); err == nil {
		t.Error("VerifyPayload accepted a non-PEM key")
	}
}
