// Package auth manages the cached credential token used for backend requests.
//
// The token is Basic-auth material derived from a username/password pair. It
// is cached in memory and in the key/value store so a restart does not
// reprompt; a 401 from the backend clears it and forces reacquisition.
package auth

import (
	"encoding/base64"
	"errors"
	"fmt"
	"sync"

	"github.com/agentportal/portal/internal/kvstore"
	"github.com/agentportal/portal/internal/logging"
)

// CredentialsKey is the key/value store key holding the derived token.
const CredentialsKey = "auth_credentials"

// ErrNoCredentials is returned when no token is cached and the prompter
// declined to supply credentials.
var ErrNoCredentials = errors.New("no credentials available")

// Credentials is a username/password pair supplied by the user.
type Credentials struct {
	Username string
	Password string
}

// Prompter obtains credentials from the user. Returning ok=false means the
// user declined.
type Prompter interface {
	Prompt() (creds Credentials, ok bool)
}

// PrompterFunc adapts a function to the Prompter interface.
type PrompterFunc func() (Credentials, bool)

// Prompt implements Prompter.
func (f PrompterFunc) Prompt() (Credentials, bool) { return f() }

// Store caches the derived token and synthesizes request headers.
type Store struct {
	kv       *kvstore.Store
	prompter Prompter

	mu    sync.Mutex
	token string
}

// NewStore creates a credential store backed by kv, prompting through p when
// no token is cached.
func NewStore(kv *kvstore.Store, p Prompter) *Store {
	return &Store{kv: kv, prompter: p}
}

// Token returns the cached token, loading it from the key/value store or
// prompting for fresh credentials when necessary.
func (s *Store) Token() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != "" {
		return s.token, nil
	}

	var stored string
	if err := s.kv.Get(CredentialsKey, &stored); err == nil && stored != "" {
		s.token = stored
		return s.token, nil
	}

	creds, ok := s.prompter.Prompt()
	if !ok || creds.Username == "" || creds.Password == "" {
		return "", ErrNoCredentials
	}

	s.token = DeriveToken(creds)
	if err := s.kv.Set(CredentialsKey, s.token); err != nil {
		// Non-fatal: the token still works for this process.
		logging.Warn().Err(err).Msg("failed to persist credentials")
	}
	return s.token, nil
}

// Headers returns the request headers for backend calls.
func (s *Store) Headers() (map[string]string, error) {
	token, err := s.Token()
	if err != nil {
		return nil, err
	}
	return map[string]string{
		"Authorization": fmt.Sprintf("Basic %s", token),
		"Content-Type":  "application/json",
	}, nil
}

// Username reports the username encoded in the cached token, or "user" when
// none is available. Used for the prompt banner only.
func (s *Store) Username() string {
	s.mu.Lock()
	token := s.token
	s.mu.Unlock()

	if token == "" {
		if err := s.kv.Get(CredentialsKey, &token); err != nil {
			return "user"
		}
	}
	decoded, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return "user"
	}
	for i, b := range decoded {
		if b == ':' {
			if i == 0 {
				return "user"
			}
			return string(decoded[:i])
		}
	}
	return "user"
}

// Clear wipes the cached token. Called on authentication failure so the next
// Headers call reprompts.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = ""
	return s.kv.Remove(CredentialsKey)
}

// DeriveToken builds the Basic-auth token for a credential pair.
func DeriveToken(creds Credentials) string {
	return base64.StdEncoding.EncodeToString([]byte(creds.Username + ":" + creds.Password))
}
