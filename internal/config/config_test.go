package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_RequiresURL(t *testing.T) {
	t.Setenv("PORTAL_API_URL", "")
	_, err := Load(t.TempDir(), Options{})
	assert.Error(t, err)
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(t.TempDir(), Options{APIURL: "http://localhost:8000"})
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8000", cfg.APIURL)
	assert.Equal(t, DefaultPollInterval, cfg.PollInterval)
	assert.Equal(t, DefaultProgressInterval, cfg.ProgressInterval)
	assert.Equal(t, DefaultSubmitTimeout, cfg.SubmitTimeout)
	assert.NotEmpty(t, cfg.StateDir)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORTAL_API_URL", "http://env:9000")
	t.Setenv("PORTAL_POLL_INTERVAL", "250ms")

	cfg, err := Load(t.TempDir(), Options{})
	require.NoError(t, err)

	assert.Equal(t, "http://env:9000", cfg.APIURL)
	assert.Equal(t, 250*time.Millisecond, cfg.PollInterval)
}

func TestLoad_FlagsWin(t *testing.T) {
	t.Setenv("PORTAL_API_URL", "http://env:9000")

	cfg, err := Load(t.TempDir(), Options{APIURL: "http://flag:7000"})
	require.NoError(t, err)
	assert.Equal(t, "http://flag:7000", cfg.APIURL)
}

func TestLoad_ProjectFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".portal"), 0o755))
	content := `{
  // project overrides
  "apiUrl": "http://file:8100",
  "submitTimeout": "30s"
}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".portal", "portal.json"), []byte(content), 0o644))

	cfg, err := Load(dir, Options{})
	require.NoError(t, err)
	assert.Equal(t, "http://file:8100", cfg.APIURL)
	assert.Equal(t, 30*time.Second, cfg.SubmitTimeout)
}

func TestLoad_BadInterval(t *testing.T) {
	_, err := Load(t.TempDir(), Options{APIURL: "http://x", PollInterval: "not-a-duration"})
	assert.Error(t, err)

	_, err = Load(t.TempDir(), Options{APIURL: "http://x", PollInterval: "-5s"})
	assert.Error(t, err)
}
