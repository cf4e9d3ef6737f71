package frame_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/vkclear/engine/renderer/frame"
)

func TestTeardownAddValidation(t *testing.T) {
	td := frame.NewTeardown()
	require.NoError(t, td.Add("a", nil))

	assert.Error(t, td.Add("a", nil))
	assert.Error(t, td.Add("b", nil, "missing"))
	assert.True(t, td.Has("a"))
	assert.False(t, td.Has("b"))

	require.NoError(t, td.Release(nil))
	assert.Error(t, td.Add("c", nil))
}

func TestTeardownReleasesDependentsFirst(t *testing.T) {
	td := frame.NewTeardown()
	var released []string
	add := func(name string, deps ...string) {
		require.NoError(t, td.Add(name, func() { released = append(released, name) }, deps...))
	}
	add(frame.ResourceInstance)
	add(frame.ResourceSurface, frame.ResourceInstance)
	add(frame.ResourceDevice, frame.ResourceInstance)
	add(frame.ResourceChain, frame.ResourceDevice, frame.ResourceSurface)
	add(frame.ResourceRenderPass, frame.ResourceDevice)
	add(frame.ResourceRenderTargets, frame.ResourceChain, frame.ResourceRenderPass)
	add(frame.ResourceFrameSlots, frame.ResourceDevice)

	want := []string{
		frame.ResourceFrameSlots,
		frame.ResourceRenderTargets,
		frame.ResourceRenderPass,
		frame.ResourceChain,
		frame.ResourceDevice,
		frame.ResourceSurface,
		frame.ResourceInstance,
	}
	assert.Equal(t, want, td.Order())

	require.NoError(t, td.Release(func() frame.Result { return frame.Success }))
	assert.Equal(t, want, released)
}

func TestTeardownWaitsIdleOnceBeforeReleasing(t *testing.T) {
	td := frame.NewTeardown()
	var events []string
	require.NoError(t, td.Add("device", func() { events = append(events, "device") }))
	require.NoError(t, td.Add("slots", func() { events = append(events, "slots") }, "device"))

	waitIdle := func() frame.Result {
		events = append(events, "wait-idle")
		return frame.Success
	}
	require.NoError(t, td.Release(waitIdle))
	require.NoError(t, td.Release(waitIdle))

	assert.Equal(t, []string{"wait-idle", "slots", "device"}, events)
}

func TestTeardownReleasesAfterFailedWait(t *testing.T) {
	td := frame.NewTeardown()
	released := false
	require.NoError(t, td.Add("device", func() { released = true }))

	err := td.Release(func() frame.Result { return frame.ErrorDeviceLost })
	assert.ErrorIs(t, err, frame.ErrDeviceLost)
	assert.True(t, released)
}

func TestTeardownSkipsReleaseWhenWaitFails(t *testing.T) {
	td := frame.NewTeardown()
	released := false
	require.NoError(t, td.Add("device", func() { released = true }))

	err := td.Release(func() frame.Result { return frame.ErrorOutOfHostMemory })
	require.ErrorIs(t, err, frame.ErrWaitIdleFailed)
	assert.NotErrorIs(t, err, frame.ErrDeviceLost)
	assert.Contains(t, err.Error(), "ERROR_OUT_OF_HOST_MEMORY")
	assert.False(t, released)

	// a second call neither waits nor releases
	waited := false
	require.NoError(t, td.Release(func() frame.Result { waited = true; return frame.Success }))
	assert.False(t, waited)
	assert.False(t, released)
}
