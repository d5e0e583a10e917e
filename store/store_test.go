package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemorySaveLoadRemove(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	got, err := m.Load(ctx)
	require.NoError(t, err)
	require.Nil(t, got)

	snapshot := []byte(`{"bridge":"https://b.example","connected":true}`)
	require.NoError(t, m.Save(ctx, snapshot))

	got, err = m.Load(ctx)
	require.NoError(t, err)
	require.JSONEq(t, string(snapshot), string(got))

	require.NoError(t, m.Remove(ctx))
	got, err = m.Load(ctx)
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestMemoryLoadRejectsSnapshotMissingBridge(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	require.NoError(t, m.Save(ctx, []byte(`{"connected":true}`)))

	got, err := m.Load(ctx)
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestMemorySaveCopiesInputSlice(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	original := []byte(`{"bridge":"https://b.example"}`)
	require.NoError(t, m.Save(ctx, original))

	original[2] = 'X'

	got, err := m.Load(ctx)
	require.NoError(t, err)
	require.JSONEq(t, `{"bridge":"https://b.example"}`, string(got))
}
