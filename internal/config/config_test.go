package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mp4meta.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
defaults:
  log_level: debug
  no_color: true
metadata:
  make: Sony
  model: ILCE-7M4
  author: studio
`)
	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", c.Defaults.LogLevel)
	assert.True(t, c.Defaults.NoColor)
	assert.Equal(t, DefaultChunkSize, c.Defaults.ChunkSize, "unset fields keep defaults")
	assert.Equal(t, "Sony", c.Metadata.Make)
	assert.Equal(t, "ILCE-7M4", c.Metadata.Model)
	assert.Equal(t, "studio", c.Metadata.Author)
	assert.Empty(t, c.Metadata.Software)

	lvl, err := c.Level()
	require.NoError(t, err)
	assert.Equal(t, zerolog.DebugLevel, lvl)
}

func TestLoadOrDefaultMissingFile(t *testing.T) {
	c, err := LoadOrDefault(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), c)

	lvl, err := c.Level()
	require.NoError(t, err)
	assert.Equal(t, zerolog.WarnLevel, lvl)
}

func TestLoadRejects(t *testing.T) {
	cases := map[string]string{
		"syntax":     "defaults: [unclosed",
		"chunk size": "defaults:\n  chunk_size: 0\n",
		"negative":   "defaults:\n  chunk_size: -4\n",
		"log level":  "defaults:\n  log_level: loud\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadOrDefault(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFileIsError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
