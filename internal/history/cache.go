// Package history persists the visible chat transcript across restarts.
package history

import (
	"errors"

	"github.com/oklog/ulid/v2"

	"github.com/agentportal/portal/internal/kvstore"
	"github.com/agentportal/portal/internal/logging"
)

// HistoryKey is the key/value store key holding the transcript.
const HistoryKey = "chat_history"

// Role classifies who a transcript message is from.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleError     Role = "error"
)

// Message is one transcript entry. Content is literal text; it is never
// interpreted as markup.
type Message struct {
	ID      string `json:"id,omitempty"`
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// NewMessage creates a message with a fresh ULID.
func NewMessage(role Role, content string) Message {
	return Message{ID: ulid.Make().String(), Role: role, Content: content}
}

// Cache is the restart-safe transcript store for the active session.
type Cache struct {
	kv *kvstore.Store
}

// NewCache creates a transcript cache over the given key/value store.
func NewCache(kv *kvstore.Store) *Cache {
	return &Cache{kv: kv}
}

// Save persists the full transcript. Called after every mutation so the cache
// always matches what is rendered.
func (c *Cache) Save(messages []Message) error {
	return c.kv.Set(HistoryKey, messages)
}

// Load restores the last saved transcript. Missing or corrupt data yields an
// empty transcript, never an error.
func (c *Cache) Load() []Message {
	var messages []Message
	if err := c.kv.Get(HistoryKey, &messages); err != nil {
		if !errors.Is(err, kvstore.ErrNotFound) {
			logging.Warn().Err(err).Msg("discarding unreadable chat history")
		}
		return nil
	}
	return messages
}

// Clear removes the persisted transcript.
func (c *Cache) Clear() error {
	return c.kv.Remove(HistoryKey)
}
