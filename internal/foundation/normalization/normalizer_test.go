package normalization

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type backend string

const (
	backendMemory backend = "memory"
	backendSQLite backend = "sqlite"
)

func newBackendNormalizer() *EnumNormalizer[backend] {
	return NewEnumNormalizer("cache backend", map[string]backend{
		"memory": backendMemory,
		"sqlite": backendSQLite,
	}, backendMemory)
}

func TestNormalizeIgnoresCaseAndSpace(t *testing.T) {
	n := newBackendNormalizer()
	assert.Equal(t, backendSQLite, n.Normalize("  SQLite "))
	assert.Equal(t, backendMemory, n.Normalize("bogus"))
}

func TestNormalizeWithValidation(t *testing.T) {
	n := newBackendNormalizer()

	v, err := n.NormalizeWithValidation("")
	require.NoError(t, err)
	assert.Equal(t, backendMemory, v)

	_, err = n.NormalizeWithValidation("mongo")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid cache backend")
	assert.Contains(t, err.Error(), "[memory sqlite]")
}

func TestNormalizeWithWarning(t *testing.T) {
	n := newBackendNormalizer()

	res := n.NormalizeWithWarning("cache.backend", "SQLITE")
	assert.True(t, res.Changed)
	assert.Equal(t, backendSQLite, res.Value)
	assert.Contains(t, res.Warning, "cache.backend")

	res = n.NormalizeWithWarning("cache.backend", "memory")
	assert.False(t, res.Changed)
	assert.Empty(t, res.Warning)
}
