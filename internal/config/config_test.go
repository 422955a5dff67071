package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func runWith(t *testing.T, args []string) Config {
	t.Helper()
	var got Config
	app := &cli.App{
		Flags: Flags(),
		Action: func(c *cli.Context) error {
			cfg, err := FromContext(c)
			if err != nil {
				return err
			}
			got = cfg
			return nil
		},
	}
	require.NoError(t, app.Run(append([]string{"statsaggd"}, args...)))
	return got
}

func TestDefaults(t *testing.T) {
	cfg := runWith(t, nil)
	assert.Equal(t, 8125, cfg.Port)
	assert.Equal(t, 10.0, cfg.FlushIntervalSecs)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 8126, cfg.AdminPort)
}

func TestFlagsOverrideDefaults(t *testing.T) {
	cfg := runWith(t, []string{"--port", "9000", "--console", "--log-level", "debug"})
	assert.Equal(t, 9000, cfg.Port)
	assert.True(t, cfg.Console)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestRepeatablePeersFlag(t *testing.T) {
	cfg := runWith(t, []string{"--peers", "nats://a:4222", "--peers", "nats://b:4222"})
	assert.Equal(t, []string{"nats://a:4222", "nats://b:4222"}, cfg.Peers)
}

func TestTomlOverlayFillsUnsetFlags(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "statsaggd.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
port = 9999
console = true
log_level = "warn"
`), 0o600))

	cfg := runWith(t, []string{"--config", path})
	assert.Equal(t, 9999, cfg.Port)
	assert.True(t, cfg.Console)
	assert.Equal(t, "warn", cfg.LogLevel)
}

// TestFlagBeatsTomlOverlay covers "flag beats file" precedence.
func TestFlagBeatsTomlOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "statsaggd.toml")
	require.NoError(t, os.WriteFile(path, []byte(`port = 9999`), 0o600))

	cfg := runWith(t, []string{"--config", path, "--port", "1234"})
	assert.Equal(t, 1234, cfg.Port)
}

func TestMissingConfigFileErrors(t *testing.T) {
	app := &cli.App{
		Flags: Flags(),
		Action: func(c *cli.Context) error {
			_, err := FromContext(c)
			return err
		},
	}
	err := app.Run([]string{"statsaggd", "--config", "/nonexistent/statsaggd.toml"})
	assert.Error(t, err)
}
