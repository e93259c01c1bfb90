package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
encoding: Windows 1252
server:
  addr: ":9000"
  stream_limit: 5s
animation:
  default_ticks_per_second: 30
`), 0666))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, ".", cfg.Server.Root)
	assert.Equal(t, 5*time.Second, cfg.Server.StreamLimit)
	assert.Equal(t, 30.0, cfg.Server.StreamFPS)
	assert.Equal(t, 30.0, cfg.Animation.DefaultTicksPerSecond)
	assert.Equal(t, "RootNode", cfg.Export.RootName)
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  stream_fps: 0\n"), 0666))

	_, err := Load(path)
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidateStreamFPS(t *testing.T) {
	var tests = []struct {
		fps   float64
		valid bool
	}{
		{30, true},
		{MaxStreamFPS, true},
		{0, false},
		{-1, false},
		{MaxStreamFPS + 1, false},
		{2e9, false},
		{math.NaN(), false},
	}
	for _, test := range tests {
		cfg := Default()
		cfg.Server.StreamFPS = test.fps
		if test.valid {
			assert.NoError(t, cfg.Validate(), "fps %v", test.fps)
		} else {
			assert.Error(t, cfg.Validate(), "fps %v", test.fps)
		}
	}
}

func TestLoadEmptyPath(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestSetEncoding(t *testing.T) {
	defer SetEncoding(DefaultEncoding)

	require.NoError(t, SetEncoding("Windows 1252"))
	assert.Equal(t, charmap.Windows1252, GetEncoding())

	assert.Error(t, SetEncoding("no such encoding"))
	assert.Equal(t, charmap.Windows1252, GetEncoding())

	require.NoError(t, SetEncoding("utf-8"))
	assert.Equal(t, unicode.UTF8, GetEncoding())

	assert.Contains(t, ListEncodings(), "Windows 1252")
	assert.Equal(t, DefaultEncoding, ListEncodings()[0])
}
