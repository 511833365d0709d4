package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_FlagOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "devtimer.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[output]
format = "markdown"
directory = "from-file"

[log]
level = "info"
`), 0644))

	t.Cleanup(func() {
		configPath, logLevel, outputDir, format, noColor = "", "", "", "", false
	})

	configPath = path
	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "markdown", cfg.Output.Format)
	assert.Equal(t, "from-file", cfg.Output.Directory)
	assert.True(t, cfg.Output.Color)

	logLevel, outputDir, format, noColor = "debug", "out", "json", true
	cfg, err = loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "out", cfg.Output.Directory)
	assert.Equal(t, "json", cfg.Output.Format)
	assert.False(t, cfg.Output.Color)
}

func TestCommands_Registered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["daily"])
	assert.True(t, names["projects"])
	assert.True(t, names["summary"])

	assert.NotNil(t, dailyCmd.Flags().ShorthandLookup("e"))
	assert.Error(t, dailyCmd.Args(dailyCmd, []string{"a", "b", "c"}))
}
