package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points os.UserConfigDir at a temp dir.
func isolate(t *testing.T) string {
	t.Helper()
	if runtime.GOOS != "linux" {
		t.Skip("config dir override relies on XDG_CONFIG_HOME")
	}
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	return dir
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, 12000000, cfg.BitRate)
	assert.Equal(t, 3000, cfg.SyncTimeoutMS)
	assert.Equal(t, 100, cfg.SettleMS)
}

func TestSaveLoad(t *testing.T) {
	dir := isolate(t)

	cfg := Default()
	cfg.Port = "/dev/ttyUSB3"
	cfg.BitRate = 115200
	cfg.Slot = 42
	require.NoError(t, cfg.Save())

	_, err := os.Stat(filepath.Join(dir, "xva1", "config.json"))
	require.NoError(t, err)

	got, err := Load()
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestLoadFillsMissingFields(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "xva1"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "xva1", "config.json"), []byte(`{"port":"COM4"}`), 0644))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "COM4", cfg.Port)
	assert.Equal(t, 12000000, cfg.BitRate)
	assert.Equal(t, 3000, cfg.SyncTimeoutMS)
}

func TestLoadRejectsBadValues(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "xva1"), 0755))
	path := filepath.Join(dir, "xva1", "config.json")

	require.NoError(t, os.WriteFile(path, []byte(`{"bit_rate":19200}`), 0644))
	_, err := Load()
	assert.ErrorContains(t, err, "unsupported bit rate 19200")

	require.NoError(t, os.WriteFile(path, []byte(`{"slot":128}`), 0644))
	_, err = Load()
	assert.ErrorContains(t, err, "slot 128")

	require.NoError(t, os.WriteFile(path, []byte(`{`), 0644))
	_, err = Load()
	assert.Error(t, err)
}
