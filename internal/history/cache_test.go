package history

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentportal/portal/internal/kvstore"
)

func newTestCache() (*Cache, *kvstore.Store) {
	kv := kvstore.NewWithFs(afero.NewMemMapFs(), "/state")
	return NewCache(kv), kv
}

func TestCache_RoundTrip(t *testing.T) {
	c, _ := newTestCache()

	messages := []Message{
		NewMessage(RoleUser, "hello"),
		NewMessage(RoleAssistant, "hi there"),
		NewMessage(RoleError, "Error: something broke"),
	}
	require.NoError(t, c.Save(messages))

	loaded := c.Load()
	assert.Equal(t, messages, loaded)

	// Load is idempotent.
	assert.Equal(t, messages, c.Load())
}

func TestCache_MarkupIsLiteral(t *testing.T) {
	c, _ := newTestCache()

	content := `<script>alert("x")</script> & "quotes" \ backslash ` + "`ticks`"
	messages := []Message{NewMessage(RoleAssistant, content)}
	require.NoError(t, c.Save(messages))

	loaded := c.Load()
	require.Len(t, loaded, 1)
	assert.Equal(t, content, loaded[0].Content)
}

func TestCache_EmptyWhenMissing(t *testing.T) {
	c, _ := newTestCache()
	assert.Empty(t, c.Load())
}

func TestCache_CorruptIsEmpty(t *testing.T) {
	c, kv := newTestCache()

	// A value of the wrong shape must not be fatal.
	require.NoError(t, kv.Set(HistoryKey, "definitely not a message list"))
	assert.Empty(t, c.Load())
}

func TestCache_Clear(t *testing.T) {
	c, _ := newTestCache()

	require.NoError(t, c.Save([]Message{NewMessage(RoleUser, "hello")}))
	require.NoError(t, c.Clear())
	assert.Empty(t, c.Load())
}

func TestNewMessage_AssignsIDs(t *testing.T) {
	a := NewMessage(RoleUser, "one")
	b := NewMessage(RoleUser, "two")

	assert.NotEmpty(t, a.ID)
	assert.NotEmpty(t, b.ID)
	assert.NotEqual(t, a.ID, b.ID)
}
