package atlasconfig

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_AppliesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "X-API-Key", cfg.Auth.AuthHeader)
	assert.Equal(t, "sha256", cfg.Auth.HMACAlgorithm)
	assert.Equal(t, 0, cfg.Store.MaxContexts)
}

func TestValidator_AccumulatesAllErrors(t *testing.T) {
	v := NewValidator()
	v.RequireString("Field.A", "")
	v.RequirePositiveInt("Field.B", -1)
	v.RequireOneOf("Field.C", "x", []string{"a", "b"})

	assert.False(t, v.IsValid())
	assert.Len(t, v.Errors(), 3)

	err := v.Validate()
	require.Error(t, err)
}

func TestValidator_PassesWhenSatisfied(t *testing.T) {
	v := NewValidator()
	v.RequireString("Field.A", "value")
	v.RequirePositiveInt("Field.B", 1)
	v.RequireOneOf("Field.C", "a", []string{"a", "b"})

	assert.True(t, v.IsValid())
	assert.NoError(t, v.Validate())
}
