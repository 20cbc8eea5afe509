package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddSubscriber(t *testing.T) {
	s := newTestStore(t)

	added, err := s.AddSubscriber("player1@example.com")
	require.NoError(t, err)
	assert.True(t, added)

	// Same address in different casing and with whitespace is a duplicate,
	// not an error.
	added, err = s.AddSubscriber("  PLAYER1@example.com ")
	require.NoError(t, err)
	assert.False(t, added)

	count, err := s.GetSubscriberCount()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
