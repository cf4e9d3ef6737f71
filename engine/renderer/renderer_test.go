package renderer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/vkclear/engine/core"
	"github.com/spaghettifunk/vkclear/engine/renderer"
	"github.com/spaghettifunk/vkclear/engine/renderer/frame"
	"github.com/spaghettifunk/vkclear/engine/renderer/frame/frametest"
)

func newRenderer(d *frametest.Device) *renderer.Renderer {
	cfg := core.DefaultConfig()
	return renderer.New(d, cfg.Renderer, cfg.ClearColor)
}

func TestRendererDrawAndShutdown(t *testing.T) {
	d := frametest.NewDevice(3)
	r := newRenderer(d)
	require.NoError(t, r.Initialize())
	require.Equal(t, 3, r.Ring().Len())

	for i := 0; i < 4; i++ {
		info, err := r.DrawFrame()
		require.NoError(t, err)
		assert.Equal(t, i%3, info.Slot)
	}

	require.NoError(t, r.Shutdown())
	require.NoError(t, r.Shutdown())

	assert.Equal(t, 4, d.Count(frametest.OpSubmit))
	assert.Equal(t, 1, d.IdleWaits())
	assert.Equal(t, 6, d.Count(frametest.OpDestroy))
	assert.Equal(t, 3, d.Count(frametest.OpDestroyFence))
	assert.Empty(t, d.Violations)
}

func TestRendererUsesClearColorConfig(t *testing.T) {
	d := frametest.NewDevice(2)
	r := renderer.New(d, core.DefaultConfig().Renderer, core.ClearColorConfig{
		Start: [3]uint8{250, 0, 0},
		Delta: [3]uint8{10, 1, 2},
	})
	require.NoError(t, r.Initialize())
	t.Cleanup(func() { _ = r.Shutdown() })

	info, err := r.DrawFrame()
	require.NoError(t, err)
	assert.Equal(t, [3]uint8{4, 1, 2}, info.Color)

	r.SetClearDeltas([3]uint8{0, 0, 0})
	info, err = r.DrawFrame()
	require.NoError(t, err)
	assert.Equal(t, [3]uint8{4, 1, 2}, info.Color)
}

func TestRendererBackendFailure(t *testing.T) {
	d := frametest.NewDevice(3)
	d.FailAt(frametest.OpInitialize, 1, frame.ErrorInitializationFailed)
	r := newRenderer(d)

	err := r.Initialize()
	require.ErrorIs(t, err, frame.ErrSetupFailure)
	assert.Nil(t, r.Ring())
	assert.Zero(t, d.IdleWaits())

	require.NoError(t, r.Shutdown())
	assert.Zero(t, d.IdleWaits())
}

func TestRendererSlotFailureReleasesBackend(t *testing.T) {
	d := frametest.NewDevice(3)
	d.FailAt(frametest.OpCreateSemaphore, 3, frame.ErrorOutOfDeviceMemory)
	r := newRenderer(d)

	err := r.Initialize()
	require.ErrorIs(t, err, frame.ErrSetupFailure)
	assert.Equal(t, 1, d.IdleWaits())
	assert.Equal(t, 6, d.Count(frametest.OpDestroy))
	assert.Zero(t, d.Count(frametest.OpSubmit))
}

func TestRendererDrawBeforeInitialize(t *testing.T) {
	r := newRenderer(frametest.NewDevice(3))
	_, err := r.DrawFrame()
	require.ErrorIs(t, err, frame.ErrRingFailed)
}

func TestRendererInitializeTwice(t *testing.T) {
	r := newRenderer(frametest.NewDevice(1))
	require.NoError(t, r.Initialize())
	t.Cleanup(func() { _ = r.Shutdown() })
	require.Error(t, r.Initialize())
}

func TestRendererShutdownAfterFatalError(t *testing.T) {
	d := frametest.NewDevice(2)
	d.FailAt(frametest.OpPresent, 2, frame.ErrorSurfaceLost)
	r := newRenderer(d)
	require.NoError(t, r.Initialize())

	_, err := r.DrawFrame()
	require.NoError(t, err)
	_, err = r.DrawFrame()
	require.ErrorIs(t, err, frame.ErrPresentFailed)

	require.NoError(t, r.Shutdown())
	assert.Equal(t, 1, d.IdleWaits())
	assert.Equal(t, 0, d.Outstanding())
	assert.Empty(t, d.Violations)
}
