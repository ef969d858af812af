package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const yamlFixture = `
global:
  log_level: debug
listeners:
  - name: primary
    address: 127.0.0.1:9443
    backlog: 64
`

const tomlFixture = `
[global]
log_level = "info"

[[listeners]]
name = "primary"
address = "127.0.0.1:9443"
backlog = 64
`

func writeFixture(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfigYAML(t *testing.T) {
	path := writeFixture(t, "config.yaml", yamlFixture)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Global.LogLevel)
	require.Len(t, cfg.Listeners, 1)
	assert.Equal(t, "primary", cfg.Listeners[0].Name)
	assert.Equal(t, 64, cfg.Listeners[0].Backlog)
}

func TestLoadConfigTOML(t *testing.T) {
	path := writeFixture(t, "config.toml", tomlFixture)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.Global.LogLevel)
	require.Len(t, cfg.Listeners, 1)
	assert.Equal(t, "primary", cfg.Listeners[0].Name)
}

func TestLoadConfigDefaultsBacklogAndReadBufferSize(t *testing.T) {
	path := writeFixture(t, "config.yaml", `
global:
  log_level: info
listeners:
  - name: defaults
    address: 127.0.0.1:0
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Len(t, cfg.Listeners, 1)
	assert.Equal(t, 128, cfg.Listeners[0].Backlog)
	assert.Equal(t, 4096, cfg.Listeners[0].ReadBufferSize)
}

func TestLoadConfigRejectsMissingListeners(t *testing.T) {
	path := writeFixture(t, "config.yaml", "global:\n  log_level: info\n")
	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfigRejectsUnknownExtension(t *testing.T) {
	path := writeFixture(t, "config.json", "{}")
	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfigRejectsMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	assert.Error(t, err)
}
