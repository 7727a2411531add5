package auth

import (
	"encoding/base64"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentportal/portal/internal/kvstore"
)

func countingPrompter(creds Credentials, ok bool, calls *int) Prompter {
	return PrompterFunc(func() (Credentials, bool) {
		*calls++
		return creds, ok
	})
}

func TestStore_HeadersDerivesAndCaches(t *testing.T) {
	kv := kvstore.NewWithFs(afero.NewMemMapFs(), "/state")
	calls := 0
	s := NewStore(kv, countingPrompter(Credentials{Username: "alice", Password: "secret"}, true, &calls))

	headers, err := s.Headers()
	require.NoError(t, err)

	want := base64.StdEncoding.EncodeToString([]byte("alice:secret"))
	assert.Equal(t, "Basic "+want, headers["Authorization"])
	assert.Equal(t, "application/json", headers["Content-Type"])
	assert.Equal(t, 1, calls)

	// Second call uses the in-memory token, no reprompt.
	_, err = s.Headers()
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestStore_TokenSurvivesRestart(t *testing.T) {
	fs := afero.NewMemMapFs()
	kv := kvstore.NewWithFs(fs, "/state")

	calls := 0
	s := NewStore(kv, countingPrompter(Credentials{Username: "alice", Password: "secret"}, true, &calls))
	_, err := s.Token()
	require.NoError(t, err)
	require.Equal(t, 1, calls)

	// A fresh store over the same kv finds the persisted token.
	s2 := NewStore(kv, countingPrompter(Credentials{}, false, &calls))
	token, err := s2.Token()
	require.NoError(t, err)
	assert.Equal(t, DeriveToken(Credentials{Username: "alice", Password: "secret"}), token)
	assert.Equal(t, 1, calls)
}

func TestStore_Declined(t *testing.T) {
	kv := kvstore.NewWithFs(afero.NewMemMapFs(), "/state")
	calls := 0
	s := NewStore(kv, countingPrompter(Credentials{}, false, &calls))

	_, err := s.Headers()
	assert.ErrorIs(t, err, ErrNoCredentials)
}

func TestStore_ClearForcesReprompt(t *testing.T) {
	kv := kvstore.NewWithFs(afero.NewMemMapFs(), "/state")
	calls := 0
	s := NewStore(kv, countingPrompter(Credentials{Username: "bob", Password: "pw"}, true, &calls))

	_, err := s.Token()
	require.NoError(t, err)
	require.Equal(t, 1, calls)

	require.NoError(t, s.Clear())

	var stored string
	assert.ErrorIs(t, kv.Get(CredentialsKey, &stored), kvstore.ErrNotFound)

	_, err = s.Token()
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestStore_Username(t *testing.T) {
	kv := kvstore.NewWithFs(afero.NewMemMapFs(), "/state")
	s := NewStore(kv, PrompterFunc(func() (Credentials, bool) {
		return Credentials{Username: "carol", Password: "pw"}, true
	}))

	assert.Equal(t, "user", s.Username())

	_, err := s.Token()
	require.NoError(t, err)
	assert.Equal(t, "carol", s.Username())
}
