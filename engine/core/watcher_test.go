package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigWatcherReloads(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "[clear_color]\ndelta = [6, 3, 1]\n")

	w, err := NewConfigWatcher(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })

	// other files in the directory are ignored
	writeFile(t, dir, "other.toml", "garbage")
	writeConfig(t, dir, "[clear_color]\ndelta = [1, 1, 1]\n")

	var got *Config
	require.Eventually(t, func() bool {
		cfg, ok := w.Poll()
		if ok {
			got = cfg
		}
		return got != nil && got.ClearColor.Delta == [3]uint8{1, 1, 1}
	}, 5*time.Second, 10*time.Millisecond)
}

func TestConfigWatcherIgnoresInvalidFile(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "")

	w, err := NewConfigWatcher(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })

	writeConfig(t, dir, "[renderer]\nmin_image_count = 0\n")
	time.Sleep(200 * time.Millisecond)
	_, ok := w.Poll()
	assert.False(t, ok)
}

func TestConfigWatcherCloseTwice(t *testing.T) {
	w, err := NewConfigWatcher(writeConfig(t, t.TempDir(), ""))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	assert.ErrorIs(t, w.Close(), ErrWatcherClosed)
}

func TestConfigWatcherPublishKeepsLatest(t *testing.T) {
	w := &ConfigWatcher{updates: make(chan *Config, 1)}
	first, second := DefaultConfig(), DefaultConfig()
	second.Application.Name = "latest"

	w.publish(first)
	w.publish(second)

	cfg, ok := w.Poll()
	require.True(t, ok)
	assert.Equal(t, "latest", cfg.Application.Name)
	_, ok = w.Poll()
	assert.False(t, ok)
}
