package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordHash(t *testing.T) {
	h, err := HashPassword("@Dmin123456")
	require.NoError(t, err)
	assert.NotEqual(t, "@Dmin123456", h)
	assert.True(t, CheckPassword("@Dmin123456", h))
	assert.False(t, CheckPassword("@dmin123456", h))
}

func TestNewID(t *testing.T) {
	a, b := NewID(), NewID()
	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
}
