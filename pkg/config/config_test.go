package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "editor.yaml")
	data := `
corner_cutoff_multiplier: 1.5
corner_auto_accept: false
palette:
  - "#ff0000"
  - "#00ff00"
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1.5, cfg.CornerCutoffMultiplier)
	assert.False(t, cfg.CornerAutoAccept)
	assert.Equal(t, []string{"#ff0000", "#00ff00"}, cfg.Palette)
	// untouched keys keep their defaults
	assert.Equal(t, 30, cfg.ScriptTimeoutSeconds)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"negative multiplier", "corner_cutoff_multiplier: -2"},
		{"zero timeout", "script_timeout_seconds: 0"},
		{"bad level", "log_level: shout"},
		{"not yaml", ": : :"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "editor.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tc.data), 0o644))
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}
