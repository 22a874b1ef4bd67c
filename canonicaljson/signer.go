package canonicaljson

import (
	"crypto/hmac"
	"crypto/sha256"
	"fmt"
	"hash"
)

// Signer produces and verifies HMAC signatures over the canonical
// encoding of a payload. The zero value is not usable; construct with
// NewSigner.
type Signer struct {
	key     []byte
	newHash func() hash.Hash
}

// NewSigner creates a Signer keyed with the given shared secret. A nil
// hash constructor defaults to SHA-256, matching the "sha256" algorithm
// identifier used throughout Atlas's wire contracts.
func NewSigner(key []byte, newHash func() hash.Hash) *Signer {
	if newHash == nil {
		newHash = sha256.New
	}
	return &Signer{key: key, newHash: newHash}
}

// Sign returns the URL-safe, unpadded base64 encoding of
// HMAC(key, canonical(payload)).
func (s *Signer) Sign(payload interface{}) (string, error) {
	canon, err := Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("canonicaljson: sign: %w", err)
	}
	mac := hmac.New(s.newHash, s.key)
	mac.Write(canon)
	return urlSafeNoPad.EncodeToString(mac.Sum(nil)), nil
}

// Verify reports whether sig is a valid signature of payload, comparing
// in constant time. It never panics: a malformed sig, or an unmarshalable
// payload, both verify false.
func (s *Signer) Verify(payload interface{}, sig string) bool {
	expected, err := s.Sign(payload)
	if err != nil {
		return false
	}
	return hmac.Equal([]byte(expected), []byte(sig))
}

// SignRecord returns a copy of record with its HMAC signature embedded
// under field. The signature is computed over record with any existing
// value at field removed first, so SignRecord is idempotent under
// re-signing.
func (s *Signer) SignRecord(record map[string]interface{}, field string) (map[string]interface{}, error) {
	stripped := withoutField(record, field)
	sig, err := s.Sign(stripped)
	if err != nil {
		return nil, err
	}
	out := withoutField(record, field)
	out[field] = sig
	return out, nil
}

// VerifyRecord reports whether record carries a valid signature under
// field. It strips field before recomputing the signature, and fails
// cleanly (false) when field is absent.
func (s *Signer) VerifyRecord(record map[string]interface{}, field string) bool {
	sigVal, ok := record[field]
	if !ok {
		return false
	}
	sig, ok := sigVal.(string)
	if !ok {
		return false
	}
	stripped := withoutField(record, field)
	return s.Verify(stripped, sig)
}

func withoutField(record map[string]interface{}, field string) map[string]interface{} {
	out := make(map[string]interface{}, len(record))
	for k, v := range record {
		if k == field {
			continue
		}
		out[k] = v
	}
	return out
}
