package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, ":8080", cfg.Listen)
	assert.Equal(t, 2, cfg.FrameStride)
	assert.Len(t, cfg.Shelves, 2)
}

func TestLoad_PartialFileMergesOverDefaults(t *testing.T) {
	path := writeConfig(t, `{"listen": ":9090", "min_hits": 5}`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Listen)
	assert.Equal(t, 5, cfg.Tracker.MinHits)
	// Untouched fields keep their defaults.
	assert.Equal(t, "shelfwatch.db", cfg.DBPath)
	assert.Equal(t, 2, cfg.FrameStride)
	assert.Equal(t, 30, cfg.Tracker.MaxAge)
}

func TestLoad_ShelvesReplaceDefaults(t *testing.T) {
	path := writeConfig(t, `{
		"shelves": [
			{"id": "dairy", "box": {"x1": 0, "y1": 0, "x2": 400, "y2": 300}}
		]
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Len(t, cfg.Shelves, 1)
	assert.Equal(t, "dairy", cfg.Shelves[0].ID)
	assert.Equal(t, 400, cfg.Shelves[0].Box.X2)
}

func TestLoad_Failures(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
		assert.Error(t, err)
	})

	t.Run("wrong extension", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("{}"), 0o644))
		_, err := Load(path)
		assert.Error(t, err)
	})

	t.Run("malformed json", func(t *testing.T) {
		_, err := Load(writeConfig(t, `{"listen": `))
		assert.Error(t, err)
	})

	t.Run("validation failure", func(t *testing.T) {
		_, err := Load(writeConfig(t, `{"frame_stride": 0}`))
		assert.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"empty listen", func(c *Config) { c.Listen = "" }, true},
		{"zero stride", func(c *Config) { c.FrameStride = 0 }, true},
		{"no shelves", func(c *Config) { c.Shelves = nil }, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
