package config

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/BurntSushi/toml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSeedsMissingFileFromTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, templateVersion, cfg.Inner.Version)
	assert.Equal(t, "Mai", cfg.Bot.Username)

	// The seeded file must parse back to the same values.
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var reparsed Config
	require.NoError(t, toml.Unmarshal(raw, &reparsed))
	assert.Equal(t, cfg.Bot.Username, reparsed.Bot.Username)
	assert.Equal(t, cfg.API.Port, reparsed.API.Port)
	assert.Equal(t, cfg.LLM.Temperature, reparsed.LLM.Temperature)
	assert.Equal(t, cfg.ThreatDetection.Range, reparsed.ThreatDetection.Range)
}

func TestRenderRoundTripsDefaults(t *testing.T) {
	text, err := Render(defaults())
	require.NoError(t, err)
	assert.Contains(t, text, "[threat_detection]")
	assert.Contains(t, text, "# 日志级别")

	var reparsed Config
	require.NoError(t, toml.Unmarshal([]byte(text), &reparsed))
	assert.Equal(t, defaults().Game, reparsedGameWithArgs(reparsed.Game))
}

// toml decodes the empty args array to a non-nil empty slice; normalize for
// the struct comparison.
func reparsedGameWithArgs(g GameConfig) GameConfig {
	if len(g.Args) == 0 {
		g.Args = nil
	}
	return g
}

func TestLoadMigratesOldVersionPreservingUserValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	old := `
[inner]
version = 1

[bot]
username = "Steve"

[api]
port = 9000
`
	require.NoError(t, os.WriteFile(path, []byte(old), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, templateVersion, cfg.Inner.Version)
	assert.Equal(t, "Steve", cfg.Bot.Username)
	assert.Equal(t, 9000, cfg.API.Port)
	// Keys absent from the old file pick up template defaults.
	assert.Equal(t, "stdio", cfg.Game.Transport)
	assert.Equal(t, float64(16), cfg.ThreatDetection.Range)

	// Backup written, file regenerated with comments and the user value.
	_, err = os.Stat(path + ".backup")
	require.NoError(t, err)
	regenerated, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(regenerated), `username = "Steve"`)
	assert.Contains(t, string(regenerated), "# 配置文件版本")
	assert.Contains(t, string(regenerated), fmt.Sprintf("version = %d", templateVersion))
}

func TestLoadCurrentVersionDoesNotRewrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	_, err := Load(path) // seed
	require.NoError(t, err)
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	_, err = Load(path)
	require.NoError(t, err)
	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	_, err = os.Stat(path + ".backup")
	assert.True(t, os.IsNotExist(err))
}

func TestLoadRejectsMalformedTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[bot\nusername ="), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	var loadErr *LoadError
	assert.ErrorAs(t, err, &loadErr)
	assert.ErrorIs(t, err, ErrInvalidTOML)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := defaults()
	cfg.Logging.Level = "LOUD"
	err := cfg.validate()
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "logging", verr.Section)

	cfg = defaults()
	cfg.Game.Transport = "http"
	cfg.Game.URL = ""
	err = cfg.validate()
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "game", verr.Section)

	cfg = defaults()
	cfg.API.HeartbeatTimeout = cfg.API.HeartbeatInterval
	err = cfg.validate()
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "api", verr.Section)
}

func TestEnabledFlagsDefaultTrue(t *testing.T) {
	var api APIConfig
	assert.True(t, api.IsEnabled())
	var td ThreatDetectionConfig
	assert.True(t, td.IsEnabled())

	disabled := false
	api.Enabled = &disabled
	assert.False(t, api.IsEnabled())
}
