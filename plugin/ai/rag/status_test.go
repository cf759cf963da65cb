package rag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRebuildStatus_Lifecycle(t *testing.T) {
	s := NewRebuildStatus()
	assert.Equal(t, RebuildNotStarted, s.State())

	require.True(t, s.Start())
	assert.Equal(t, RebuildInProgress, s.State())

	// A second start while running must be refused.
	assert.False(t, s.Start())

	s.Complete()
	assert.Equal(t, RebuildComplete, s.State())

	// Complete is idempotent and a finished rebuild may be restarted.
	s.Complete()
	assert.Equal(t, RebuildComplete, s.State())
	assert.True(t, s.Start())
}

func TestRebuildStatus_Reset(t *testing.T) {
	s := NewRebuildStatus()
	require.True(t, s.Start())
	s.Complete()

	s.Reset()
	assert.Equal(t, RebuildNotStarted, s.State())
	assert.True(t, s.Start())
}

func TestRebuildStatus_SubscribeReceivesTransitions(t *testing.T) {
	s := NewRebuildStatus()
	ch := s.Subscribe()

	require.True(t, s.Start())
	s.Complete()

	assert.Equal(t, RebuildInProgress, <-ch)
	assert.Equal(t, RebuildComplete, <-ch)
}

func TestRebuildStatus_SlowListenerDoesNotBlock(t *testing.T) {
	s := NewRebuildStatus()
	s.Subscribe() // never drained

	for i := 0; i < 10; i++ {
		require.True(t, s.Start())
		s.Complete()
	}
	assert.Equal(t, RebuildComplete, s.State())
}
