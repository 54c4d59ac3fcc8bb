package state

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStoreAt(filepath.Join(t.TempDir(), "instance.json"))
}

func TestStore_WriteRead(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	want := Instance{
		PID:       1234,
		Port:      8080,
		URL:       "http://localhost:8080/",
		Dir:       "/srv/site",
		StartedAt: time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, s.Write(ctx, want))

	got, err := s.Read(ctx)
	require.NoError(t, err)

	assert.Equal(t, want.PID, got.PID)
	assert.Equal(t, want.Port, got.Port)
	assert.Equal(t, want.URL, got.URL)
	assert.Equal(t, want.Dir, got.Dir)
	assert.True(t, want.StartedAt.Equal(got.StartedAt))
}

func TestStore_ReadMissing(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Read(context.Background())
	require.ErrorIs(t, err, ErrNotFound)
}

func TestStore_ReadLenientTypes(t *testing.T) {
	s := newTestStore(t)

	// Port and pid as strings, as a hand-edited file might have them.
	raw := `{"pid": "4321", "port": "9090", "url": "http://localhost:9090/", "dir": "/tmp"}`
	require.NoError(t, os.WriteFile(s.Path(), []byte(raw), 0o600))

	got, err := s.Read(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4321, got.PID)
	assert.Equal(t, 9090, got.Port)
	assert.Equal(t, "http://localhost:9090/", got.URL)
	assert.True(t, got.StartedAt.IsZero())
}

func TestStore_ReadCorrupt(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, os.WriteFile(s.Path(), []byte("not json"), 0o600))

	_, err := s.Read(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode instance state")
}

func TestStore_WriteReplaces(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Write(ctx, Instance{PID: 1, Port: 8080}))
	require.NoError(t, s.Write(ctx, Instance{PID: 2, Port: 9090}))

	got, err := s.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, got.PID)
	assert.Equal(t, 9090, got.Port)
}

func TestStore_Remove(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Write(ctx, Instance{PID: 1, Port: 8080}))
	require.NoError(t, s.Remove(ctx))

	_, err := s.Read(ctx)
	require.ErrorIs(t, err, ErrNotFound)

	// Removing again is fine.
	require.NoError(t, s.Remove(ctx))
}
