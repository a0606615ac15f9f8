package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefaults(t *testing.T) {
	cfg := Parse()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 2*time.Second, cfg.DebounceWindow.D())
	assert.Equal(t, 2*time.Second, cfg.GracePeriod.D())
	assert.Equal(t, 15*time.Second, cfg.ReturnWindow.D())
	assert.Equal(t, 200*time.Millisecond, cfg.VisibilityPollEvery.D())
	assert.NoError(t, cfg.Validate())
}

func TestParseEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("RETURN_WINDOW", "30s")
	t.Setenv("DEBOUNCE_WINDOW", "not-a-duration")

	cfg := Parse()
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 30*time.Second, cfg.ReturnWindow.D())
	// Unparseable values fall back to defaults.
	assert.Equal(t, 2*time.Second, cfg.DebounceWindow.D())
}

func TestLoadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "proctord.toml")
	body := `
port = "7070"
jwt_secret = "file-secret"
return_window = "20s"
debounce_window = "1500ms"
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "7070", cfg.Port)
	assert.Equal(t, "file-secret", cfg.JWTSecret)
	assert.Equal(t, 20*time.Second, cfg.ReturnWindow.D())
	assert.Equal(t, 1500*time.Millisecond, cfg.DebounceWindow.D())
	// Fields absent from the file keep defaults.
	assert.Equal(t, 2*time.Second, cfg.GracePeriod.D())
}

func TestLoadEnvBeatsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "proctord.toml")
	body := `
port = "7070"
debounce_window = "9s"
return_window = "90s"
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	t.Setenv("PORT", "6060")
	t.Setenv("DEBOUNCE_WINDOW", "3s")

	cfg, err := Load(path)
	require.NoError(t, err)
	// env > file > default, for every knob alike.
	assert.Equal(t, "6060", cfg.Port)
	assert.Equal(t, 3*time.Second, cfg.DebounceWindow.D())
	assert.Equal(t, 90*time.Second, cfg.ReturnWindow.D())
}

func TestLoadBadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "proctord.toml")
	require.NoError(t, os.WriteFile(path, []byte(`port = [1,`), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadMissingPathUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
}
