package shared

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewID(t *testing.T) {
	id := NewID()
	assert.False(t, id.IsEmpty())
	assert.NotEqual(t, id, NewID())

	_, err := uuid.Parse(id.String())
	require.NoError(t, err)

	assert.True(t, ID("").IsEmpty())
}
