package kvstore

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore() (*Store, afero.Fs) {
	fs := afero.NewMemMapFs()
	return NewWithFs(fs, "/state"), fs
}

func TestStore_SetGet(t *testing.T) {
	s, _ := newTestStore()

	type payload struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}

	require.NoError(t, s.Set("thing", payload{Name: "a", Count: 3}))

	var got payload
	require.NoError(t, s.Get("thing", &got))
	assert.Equal(t, payload{Name: "a", Count: 3}, got)
}

func TestStore_GetMissing(t *testing.T) {
	s, _ := newTestStore()

	var v string
	err := s.Get("nope", &v)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_GetCorrupt(t *testing.T) {
	s, fs := newTestStore()

	require.NoError(t, afero.WriteFile(fs, "/state/bad.json", []byte("{not json"), 0o600))

	var v map[string]any
	err := s.Get("bad", &v)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestStore_Remove(t *testing.T) {
	s, _ := newTestStore()

	require.NoError(t, s.Set("key", "value"))
	require.NoError(t, s.Remove("key"))

	var v string
	assert.ErrorIs(t, s.Get("key", &v), ErrNotFound)

	// Removing again is not an error.
	assert.NoError(t, s.Remove("key"))
}

func TestStore_Overwrite(t *testing.T) {
	s, _ := newTestStore()

	require.NoError(t, s.Set("key", "first"))
	require.NoError(t, s.Set("key", "second"))

	var v string
	require.NoError(t, s.Get("key", &v))
	assert.Equal(t, "second", v)
}
