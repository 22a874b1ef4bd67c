// Package canonicaljson provides deterministic JSON byte-encoding and the
// fingerprint/HMAC primitives built on top of it. Object keys are sorted
// lexicographically, separators are compact, encoding is UTF-8, and
// NaN/Infinity float values are rejected — the same byte-level contract
// producers (scanners, recorders) and the graph store agree on for
// structural fingerprints and payload signatures.
package canonicaljson

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strings"
)

// ErrNonFiniteNumber is returned when a value contains NaN or +/-Infinity,
// which have no canonical JSON representation.
var ErrNonFiniteNumber = fmt.Errorf("canonicaljson: NaN/Infinity is not representable")

// Marshal produces the canonical byte encoding of v: object keys sorted,
// no insignificant whitespace, UTF-8 throughout. v may be any value
// encoding/json can marshal, or an already-decoded map[string]any /
// []any / scalar tree.
func Marshal(v interface{}) ([]byte, error) {
	normalized, err := normalize(v)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := encode(&buf, normalized); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// normalize round-trips v through encoding/json so struct types, pointers,
// plain Go numeric types, and already-decoded interface{} trees are all
// reduced to the same map[string]any / []any / json.Number / scalar shape
// before canonical encoding.
func normalize(v interface{}) (interface{}, error) {
	if v == nil {
		return nil, nil
	}
	if hasNonFiniteFloat(reflect.ValueOf(v)) {
		return nil, ErrNonFiniteNumber
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("canonicaljson: %w", err)
	}
	var out interface{}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("canonicaljson: %w", err)
	}
	return out, nil
}

// hasNonFiniteFloat walks v looking for a NaN or +/-Infinity float before
// handing the value to encoding/json, which rejects them with an opaque
// error that would otherwise be indistinguishable from any other
// marshaling failure.
func hasNonFiniteFloat(rv reflect.Value) bool {
	if !rv.IsValid() {
		return false
	}
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		return math.IsNaN(f) || math.IsInf(f, 0)
	case reflect.Interface, reflect.Ptr:
		if rv.IsNil() {
			return false
		}
		return hasNonFiniteFloat(rv.Elem())
	case reflect.Map:
		for _, k := range rv.MapKeys() {
			if hasNonFiniteFloat(rv.MapIndex(k)) {
				return true
			}
		}
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			if hasNonFiniteFloat(rv.Index(i)) {
				return true
			}
		}
	case reflect.Struct:
		for i := 0; i < rv.NumField(); i++ {
			if !rv.Field(i).CanInterface() {
				continue
			}
			if hasNonFiniteFloat(rv.Field(i)) {
				return true
			}
		}
	}
	return false
}

func encode(buf *bytes.Buffer, v interface{}) error {
	switch val := v.(type) {
	case nil:
		buf.WriteString("null")
	case bool:
		if val {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case json.Number:
		f, err := val.Float64()
		if err == nil && (math.IsNaN(f) || math.IsInf(f, 0)) {
			return ErrNonFiniteNumber
		}
		buf.WriteString(val.String())
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return ErrNonFiniteNumber
		}
		enc, err := json.Marshal(val)
		if err != nil {
			return fmt.Errorf("canonicaljson: %w", err)
		}
		buf.Write(enc)
	case string:
		enc, err := json.Marshal(val)
		if err != nil {
			return fmt.Errorf("canonicaljson: %w", err)
		}
		buf.Write(enc)
	case []interface{}:
		buf.WriteByte('[')
		for i, item := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encode(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case map[string]interface{}:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			keyEnc, err := json.Marshal(k)
			if err != nil {
				return fmt.Errorf("canonicaljson: %w", err)
			}
			buf.Write(keyEnc)
			buf.WriteByte(':')
			if err := encode(buf, val[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("canonicaljson: unsupported type %T", v)
	}
	return nil
}

// HashHex returns hex(SHA-256(Marshal(v))).
func HashHex(v interface{}) (string, error) {
	b, err := Marshal(v)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

// StructuralFingerprint hashes a decoded element tree, e.g. a UI's
// structural description, into the "structural" fingerprint contract.
func StructuralFingerprint(tree interface{}) (string, error) {
	return HashHex(tree)
}

// VisualFingerprint hashes raw screenshot bytes into the "visual"
// fingerprint contract.
func VisualFingerprint(raw []byte) string {
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// SemanticFingerprint hashes lower-cased, whitespace-collapsed, trimmed
// text into the "semantic" fingerprint contract.
func SemanticFingerprint(text string) string {
	collapsed := strings.Join(strings.Fields(strings.TrimSpace(text)), " ")
	sum := sha256.Sum256([]byte(strings.ToLower(collapsed)))
	return hex.EncodeToString(sum[:])
}

// urlSafeNoPad is the base64 encoding used for signatures: URL-safe,
// without '=' padding.
var urlSafeNoPad = base64.RawURLEncoding
