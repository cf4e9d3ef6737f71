package frame_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/vkclear/engine/renderer/frame"
	"github.com/spaghettifunk/vkclear/engine/renderer/frame/frametest"
)

func newRing(t *testing.T, images int, opts ...frame.Option) (*frame.Ring, *frametest.Device) {
	t.Helper()
	d := frametest.NewDevice(images)
	r, err := frame.NewRing(d, d, opts...)
	require.NoError(t, err)
	return r, d
}

func runTicks(t *testing.T, r *frame.Ring, n int) []frame.TickInfo {
	t.Helper()
	infos := make([]frame.TickInfo, 0, n)
	for i := 0; i < n; i++ {
		info, err := r.Tick()
		require.NoError(t, err, "tick %d", i)
		infos = append(infos, info)
	}
	return infos
}

func TestRingSlotsRoundRobin(t *testing.T) {
	for n := 1; n <= 5; n++ {
		t.Run(fmt.Sprintf("slots=%d", n), func(t *testing.T) {
			r, d := newRing(t, n)
			require.Equal(t, n, r.Len())

			for i, info := range runTicks(t, r, 3*n+1) {
				assert.Equal(t, uint64(i), info.Tick)
				assert.Equal(t, i%n, info.Slot)
			}
			assert.Empty(t, d.Violations)
		})
	}
}

func TestRingTenTicksOnThreeSlots(t *testing.T) {
	r, d := newRing(t, 3)

	infos := runTicks(t, r, 10)
	slots := make([]int, len(infos))
	for i, info := range infos {
		slots[i] = info.Slot
	}

	assert.Equal(t, []int{0, 1, 2, 0, 1, 2, 0, 1, 2, 0}, slots)
	assert.Equal(t, 10, d.Count(frametest.OpAcquire))
	assert.Equal(t, 10, d.Count(frametest.OpSubmit))
	assert.Equal(t, 10, d.Count(frametest.OpPresent))
	assert.Equal(t, uint64(10), d.Submitted)
	assert.Equal(t, uint64(10), r.Ticks())
	assert.Equal(t, 1, r.Current())
	assert.Equal(t, uint64(4), r.Slot(0).Submissions)
	assert.Equal(t, uint64(3), r.Slot(1).Submissions)
	assert.Equal(t, uint64(3), r.Slot(2).Submissions)
	assert.Empty(t, d.Violations)
}

func TestRingWaitsBeforeReusingSlot(t *testing.T) {
	r, d := newRing(t, 3)
	runTicks(t, r, 10)

	cycle := []frametest.Op{
		frametest.OpWaitFence,
		frametest.OpResetFence,
		frametest.OpResetCommands,
		frametest.OpAcquire,
		frametest.OpBeginCommands,
		frametest.OpBeginRenderPass,
		frametest.OpEndRenderPass,
		frametest.OpEndCommands,
		frametest.OpSubmit,
		frametest.OpPresent,
	}
	for slot, uses := range []int{4, 3, 3} {
		var want []frametest.Op
		for i := 0; i < uses; i++ {
			want = append(want, cycle...)
		}
		assert.Equal(t, want, frametest.Ops(d.ForSlot(slot)), "slot %d", slot)
	}
}

func TestRingBoundsWorkInFlight(t *testing.T) {
	for n := 1; n <= 4; n++ {
		t.Run(fmt.Sprintf("slots=%d", n), func(t *testing.T) {
			r, d := newRing(t, n)
			for i := 0; i < 4*n; i++ {
				_, err := r.Tick()
				require.NoError(t, err)
				assert.LessOrEqual(t, d.Outstanding(), n)
				assert.Equal(t, d.Submitted-d.Retired, uint64(d.Outstanding()))
			}
			assert.Less(t, d.MaxOutstandingAtWait, n)
			assert.Empty(t, d.Violations)
		})
	}
}

func TestRingSingleSlot(t *testing.T) {
	r, d := newRing(t, 1)

	for _, info := range runTicks(t, r, 5) {
		assert.Equal(t, 0, info.Slot)
		assert.Equal(t, uint32(0), info.Image)
	}
	assert.Equal(t, 5, d.Count(frametest.OpWaitFence))
	assert.Equal(t, 1, d.Outstanding())
	assert.Empty(t, d.Violations)
}

func TestRingRecordsIntoAcquiredImage(t *testing.T) {
	d := frametest.NewDevice(3)
	d.AcquireOrder = []uint32{2, 0, 1}
	r, err := frame.NewRing(d, d)
	require.NoError(t, err)

	infos := runTicks(t, r, 6)
	passes := d.Calls(frametest.OpBeginRenderPass)
	require.Len(t, passes, 6)
	for i, info := range infos {
		assert.Equal(t, d.AcquireOrder[i%3], info.Image)
		assert.Equal(t, int(info.Image), passes[i].Image, "tick %d", i)
		assert.Equal(t, info.Slot, passes[i].Object, "tick %d", i)
	}
	assert.Empty(t, d.Violations)
}

func TestRingRejectsImageOutsideChain(t *testing.T) {
	d := frametest.NewDevice(2)
	d.AcquireOrder = []uint32{2}
	r, err := frame.NewRing(d, d)
	require.NoError(t, err)

	_, err = r.Tick()
	require.ErrorIs(t, err, frame.ErrAcquireFailed)
	assert.Contains(t, err.Error(), "image index 2 out of range")
	assert.Zero(t, d.Count(frametest.OpBeginRenderPass))
	assert.Zero(t, d.Count(frametest.OpSubmit))
}

func TestRingClearColorProgression(t *testing.T) {
	r, d := newRing(t, 3)

	infos := runTicks(t, r, 50)
	assert.Equal(t, [3]uint8{6, 3, 1}, infos[0].Color)
	assert.Equal(t, [3]uint8{44, 150, 50}, infos[49].Color)
	assert.Equal(t, [3]uint8{44, 150, 50}, r.Color().Channels())

	passes := d.Calls(frametest.OpBeginRenderPass)
	assert.Equal(t, frame.ClearValue{44.0 / 256, 150.0 / 256, 50.0 / 256, 1}, passes[49].Clear)
}

func TestRingClearDeltasChangeBetweenTicks(t *testing.T) {
	r, _ := newRing(t, 2, frame.WithClearColor(frame.NewClearColor([3]uint8{10, 20, 30}, [3]uint8{1, 1, 1})))

	runTicks(t, r, 2)
	r.SetClearDeltas([3]uint8{0, 0, 5})
	infos := runTicks(t, r, 1)
	assert.Equal(t, [3]uint8{12, 22, 37}, infos[0].Color)
}

func TestRingToleratesSuboptimalAcquire(t *testing.T) {
	r, d := newRing(t, 2)
	d.FailAt(frametest.OpAcquire, 1, frame.Suboptimal)

	runTicks(t, r, 3)
	assert.NoError(t, r.Err())
}

func TestRingLatchesFatalError(t *testing.T) {
	r, d := newRing(t, 3)
	d.FailAt(frametest.OpSubmit, 2, frame.ErrorDeviceLost)

	_, err := r.Tick()
	require.NoError(t, err)

	_, err = r.Tick()
	require.Error(t, err)
	assert.ErrorIs(t, err, frame.ErrSubmitFailed)

	var ferr *frame.Error
	require.ErrorAs(t, err, &ferr)
	assert.Equal(t, frame.StageSubmit, ferr.Stage)
	assert.Equal(t, 1, ferr.Slot)
	assert.Equal(t, frame.ErrorDeviceLost, ferr.Result)
	assert.Equal(t, err, r.Err())

	waits := d.Count(frametest.OpWaitFence)
	_, err = r.Tick()
	assert.ErrorIs(t, err, frame.ErrRingFailed)
	assert.ErrorIs(t, err, frame.ErrSubmitFailed)
	assert.Equal(t, waits, d.Count(frametest.OpWaitFence))
	assert.Equal(t, 1, r.Current())
	assert.Equal(t, uint64(1), r.Ticks())
}

func TestRingErrorTaxonomy(t *testing.T) {
	tests := []struct {
		name  string
		op    frametest.Op
		res   frame.Result
		stage frame.Stage
		want  []error
	}{
		{"fence timeout", frametest.OpWaitFence, frame.Timeout, frame.StageWaitIdle, []error{frame.ErrSyncTimeout, frame.ErrDeviceLost}},
		{"fence device lost", frametest.OpWaitFence, frame.ErrorDeviceLost, frame.StageWaitIdle, []error{frame.ErrDeviceLost}},
		{"fence reset", frametest.OpResetFence, frame.ErrorOutOfDeviceMemory, frame.StageReset, []error{frame.ErrDeviceLost}},
		{"command reset", frametest.OpResetCommands, frame.ErrorOutOfHostMemory, frame.StageReset, []error{frame.ErrDeviceLost}},
		{"acquire out of date", frametest.OpAcquire, frame.ErrorOutOfDate, frame.StageAcquire, []error{frame.ErrAcquireFailed}},
		{"acquire surface lost", frametest.OpAcquire, frame.ErrorSurfaceLost, frame.StageAcquire, []error{frame.ErrSurfaceLost}},
		{"acquire timeout", frametest.OpAcquire, frame.Timeout, frame.StageAcquire, []error{frame.ErrSyncTimeout, frame.ErrDeviceLost}},
		{"begin recording", frametest.OpBeginCommands, frame.ErrorOutOfHostMemory, frame.StageRecord, []error{frame.ErrSubmitFailed}},
		{"end recording", frametest.OpEndCommands, frame.ErrorOutOfDeviceMemory, frame.StageRecord, []error{frame.ErrSubmitFailed}},
		{"submit", frametest.OpSubmit, frame.ErrorOutOfDeviceMemory, frame.StageSubmit, []error{frame.ErrSubmitFailed}},
		{"present queue", frametest.OpPresent, frame.ErrorOutOfDate, frame.StagePresent, []error{frame.ErrPresentFailed}},
		{"present chain suboptimal", frametest.OpPresentChain, frame.Suboptimal, frame.StagePresent, []error{frame.ErrPresentFailed}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, d := newRing(t, 2)
			d.FailAt(tt.op, 2, tt.res)

			_, err := r.Tick()
			require.NoError(t, err)
			_, err = r.Tick()
			require.Error(t, err)

			for _, want := range tt.want {
				assert.ErrorIs(t, err, want)
			}
			var ferr *frame.Error
			require.ErrorAs(t, err, &ferr)
			assert.Equal(t, tt.stage, ferr.Stage)
			assert.Equal(t, 1, ferr.Slot)
			assert.Equal(t, tt.res, ferr.Result)
		})
	}
}

func TestRingSubmitFailureIsNotDeviceLost(t *testing.T) {
	r, d := newRing(t, 2)
	d.FailAt(frametest.OpSubmit, 1, frame.ErrorOutOfHostMemory)

	_, err := r.Tick()
	assert.ErrorIs(t, err, frame.ErrSubmitFailed)
	assert.False(t, errors.Is(err, frame.ErrDeviceLost))
}

func TestNewRingWithoutImages(t *testing.T) {
	d := frametest.NewDevice(0)
	_, err := frame.NewRing(d, d)
	assert.ErrorIs(t, err, frame.ErrSetupFailure)
}

func TestNewRingCleansUpPartialSlots(t *testing.T) {
	d := frametest.NewDevice(2)
	// third semaphore is the acquire semaphore of slot 1
	d.FailAt(frametest.OpCreateSemaphore, 3, frame.ErrorOutOfHostMemory)

	_, err := frame.NewRing(d, d)
	require.ErrorIs(t, err, frame.ErrSetupFailure)
	assert.Contains(t, err.Error(), "acquire semaphore[1]")

	assert.Equal(t, 2, d.Count(frametest.OpDestroySemaphore))
	assert.Equal(t, 2, d.Count(frametest.OpDestroyFence))
	assert.Equal(t, 2, d.Count(frametest.OpDestroyCommandContext))
	assert.Equal(t, 0, d.Count(frametest.OpDestroyRenderTarget))
}

func TestRingTeardownAfterIdle(t *testing.T) {
	d := frametest.NewDevice(3)
	td := frame.NewTeardown()
	device, chain, err := d.Initialize(td)
	require.NoError(t, err)

	r, err := frame.NewRing(device, chain)
	require.NoError(t, err)
	require.NoError(t, r.Register(td))

	runTicks(t, r, 4)
	require.NoError(t, td.Release(device.WaitIdle))

	assert.Equal(t, 1, d.IdleWaits())
	assert.Equal(t, 0, d.Outstanding())
	assert.Empty(t, d.Violations)

	firstDestroy := -1
	idle := -1
	for i, c := range d.Trace {
		switch c.Op {
		case frametest.OpWaitIdle:
			idle = i
		case frametest.OpDestroy, frametest.OpDestroyFence, frametest.OpDestroySemaphore,
			frametest.OpDestroyCommandContext, frametest.OpDestroyRenderTarget:
			if firstDestroy < 0 {
				firstDestroy = i
			}
		}
	}
	require.GreaterOrEqual(t, idle, 0)
	assert.Less(t, idle, firstDestroy)

	var categories []string
	for _, c := range d.Calls(frametest.OpDestroy) {
		categories = append(categories, c.Name)
	}
	assert.Equal(t, []string{
		frame.ResourceRenderTargets,
		frame.ResourceRenderPass,
		frame.ResourceChain,
		frame.ResourceDevice,
		frame.ResourceSurface,
		frame.ResourceInstance,
	}, categories)
	assert.Equal(t, 3, d.Count(frametest.OpDestroyFence))
	assert.Equal(t, 6, d.Count(frametest.OpDestroySemaphore))
	assert.Equal(t, 3, d.Count(frametest.OpDestroyRenderTarget))

	_, err = r.Tick()
	assert.ErrorIs(t, err, frame.ErrRingFailed)
}

func TestRingTeardownKeepsObjectsWhenIdleFails(t *testing.T) {
	d := frametest.NewDevice(3)
	td := frame.NewTeardown()
	device, chain, err := d.Initialize(td)
	require.NoError(t, err)

	r, err := frame.NewRing(device, chain)
	require.NoError(t, err)
	require.NoError(t, r.Register(td))

	runTicks(t, r, 4)
	d.FailAt(frametest.OpWaitIdle, 1, frame.ErrorOutOfHostMemory)

	err = td.Release(device.WaitIdle)
	require.ErrorIs(t, err, frame.ErrWaitIdleFailed)
	assert.Contains(t, err.Error(), "ERROR_OUT_OF_HOST_MEMORY")

	assert.Equal(t, 1, d.IdleWaits())
	assert.Zero(t, d.Count(frametest.OpDestroy))
	assert.Zero(t, d.Count(frametest.OpDestroySemaphore))
	assert.Zero(t, d.Count(frametest.OpDestroyFence))
	assert.Empty(t, d.Violations)
}
