package identity

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStableIDDeterministic(t *testing.T) {
	a := StableID("ACT-101", "Registration", "Registration: Register online. Fee: $12.")
	b := StableID("ACT-101", "Registration", "Registration: Register online. Fee: $12.")
	assert.Equal(t, a, b)

	_, err := uuid.Parse(a)
	require.NoError(t, err)
	assert.Len(t, a, 36)
}

func TestStableIDChangesWithEachField(t *testing.T) {
	base := StableID("ACT-101", "Overview", "text")
	assert.NotEqual(t, base, StableID("ACT-102", "Overview", "text"))
	assert.NotEqual(t, base, StableID("ACT-101", "Location", "text"))
	assert.NotEqual(t, base, StableID("ACT-101", "Overview", "text."))
}

func TestStableIDFieldBoundaries(t *testing.T) {
	assert.NotEqual(t, StableID("ab", "c", "d"), StableID("a", "bc", "d"))
	assert.NotEqual(t, StableID("a", "b|c", "d"), StableID("a|b", "c", "d"))
}

func TestStableIDEmptyFields(t *testing.T) {
	assert.Equal(t, StableID("", "", ""), StableID("", "", ""))
	assert.NotEqual(t, StableID("", "", ""), StableID("", "", " "))
}
