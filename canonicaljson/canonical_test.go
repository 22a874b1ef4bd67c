package canonicaljson

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshal_KeyOrderIndependent(t *testing.T) {
	a, err := Marshal(map[string]interface{}{"b": 2, "a": 1})
	require.NoError(t, err)
	b, err := Marshal(map[string]interface{}{"a": 1, "b": 2})
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
	assert.Equal(t, `{"a":1,"b":2}`, string(a))
}

func TestMarshal_NestedArraysAndObjects(t *testing.T) {
	a, err := Marshal(map[string]interface{}{"x": []interface{}{1, 2, 3}, "y": map[string]interface{}{"z": true}})
	require.NoError(t, err)
	assert.Equal(t, `{"x":[1,2,3],"y":{"z":true}}`, string(a))
}

func TestMarshal_RejectsNaNAndInfinity(t *testing.T) {
	_, err := Marshal(map[string]interface{}{"v": math.NaN()})
	assert.ErrorIs(t, err, ErrNonFiniteNumber)

	_, err = Marshal(map[string]interface{}{"v": math.Inf(1)})
	assert.ErrorIs(t, err, ErrNonFiniteNumber)
}

func TestSemanticFingerprint_NormalizesWhitespaceAndCase(t *testing.T) {
	a := SemanticFingerprint("  Hello   World  ")
	b := SemanticFingerprint("hello world")
	assert.Equal(t, a, b)
}

func TestVisualFingerprint_DifferentBytesDifferentHash(t *testing.T) {
	a := VisualFingerprint([]byte("one"))
	b := VisualFingerprint([]byte("two"))
	assert.NotEqual(t, a, b)
}

func TestSigner_VerifyRoundTrip(t *testing.T) {
	signer := NewSigner([]byte("shared-secret"), nil)
	payload := map[string]interface{}{"a": 1, "b": 2}

	sig, err := signer.Sign(payload)
	require.NoError(t, err)
	assert.True(t, signer.Verify(payload, sig))
}

func TestSigner_KeyOrderDoesNotChangeSignature(t *testing.T) {
	signer := NewSigner([]byte("shared-secret"), nil)
	sigA, err := signer.Sign(map[string]interface{}{"b": 2, "a": 1})
	require.NoError(t, err)
	sigB, err := signer.Sign(map[string]interface{}{"a": 1, "b": 2})
	require.NoError(t, err)
	assert.Equal(t, sigA, sigB)
}

func TestSigner_VerifyFailsOnTamperedPayload(t *testing.T) {
	signer := NewSigner([]byte("shared-secret"), nil)
	sig, err := signer.Sign(map[string]interface{}{"a": 1})
	require.NoError(t, err)
	assert.False(t, signer.Verify(map[string]interface{}{"a": 2}, sig))
}

func TestSigner_SignRecordAndVerifyRecord(t *testing.T) {
	signer := NewSigner([]byte("shared-secret"), nil)
	record := map[string]interface{}{"x": 1}

	signed, err := signer.SignRecord(record, "signature")
	require.NoError(t, err)
	assert.True(t, signer.VerifyRecord(signed, "signature"))

	delete(signed, "signature")
	resigned, err := signer.SignRecord(signed, "signature")
	require.NoError(t, err)
	assert.True(t, signer.VerifyRecord(resigned, "signature"))
	assert.Equal(t, signed["x"], resigned["x"])
}

func TestSigner_VerifyRecordFailsWhenFieldMissing(t *testing.T) {
	signer := NewSigner([]byte("shared-secret"), nil)
	assert.False(t, signer.VerifyRecord(map[string]interface{}{"x": 1}, "signature"))
}
