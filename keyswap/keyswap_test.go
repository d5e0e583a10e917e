package keyswap

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBeginRotationStagesNextKey(t *testing.T) {
	m := NewManager([]byte("k1"))
	next, err := m.BeginRotation("session-1", func() ([]byte, error) { return []byte("k2"), nil })
	require.NoError(t, err)
	require.Equal(t, []byte("k2"), next)
	require.Equal(t, []byte("k1"), m.Key())
}

func TestBeginRotationRejectsOverlap(t *testing.T) {
	m := NewManager([]byte("k1"))
	_, err := m.BeginRotation("session-1", func() ([]byte, error) { return []byte("k2"), nil })
	require.NoError(t, err)

	_, err = m.BeginRotation("session-1", func() ([]byte, error) { return []byte("k3"), nil })
	require.ErrorIs(t, err, ErrInFlight)
}

func TestStageReceivedRejectsOverlap(t *testing.T) {
	m := NewManager([]byte("k1"))
	require.NoError(t, m.StageReceived([]byte("k2")))
	err := m.StageReceived([]byte("k3"))
	require.ErrorIs(t, err, ErrInFlight)
}

func TestCommitSwapsKeyAndClearsNextKey(t *testing.T) {
	m := NewManager([]byte("k1"))
	require.NoError(t, m.StageReceived([]byte("k2")))
	m.Commit()
	require.Equal(t, []byte("k2"), m.Key())

	// After commit, a new rotation may be staged again.
	_, err := m.BeginRotation("session-1", func() ([]byte, error) { return []byte("k3"), nil })
	require.NoError(t, err)
}

func TestAbortDiscardsStagedKeyWithoutCommitting(t *testing.T) {
	m := NewManager([]byte("k1"))
	require.NoError(t, m.StageReceived([]byte("k2")))
	m.Abort()
	require.Equal(t, []byte("k1"), m.Key())

	require.NoError(t, m.StageReceived([]byte("k3")))
}
