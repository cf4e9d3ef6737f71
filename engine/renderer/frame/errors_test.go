package frame_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spaghettifunk/vkclear/engine/renderer/frame"
)

func TestResultError(t *testing.T) {
	fallback := errors.New("fallback")
	tests := []struct {
		res  frame.Result
		want error
	}{
		{frame.Success, nil},
		{frame.Timeout, frame.ErrSyncTimeout},
		{frame.NotReady, frame.ErrSyncTimeout},
		{frame.ErrorDeviceLost, frame.ErrDeviceLost},
		{frame.ErrorSurfaceLost, frame.ErrSurfaceLost},
		{frame.ErrorFormatNotSupported, frame.ErrFormatUnsupported},
		{frame.ErrorOutOfDate, fallback},
		{frame.ErrorOutOfHostMemory, fallback},
	}
	for _, tt := range tests {
		t.Run(tt.res.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, frame.ResultError(tt.res, fallback))
		})
	}
}

func TestErrorMatchesSentinels(t *testing.T) {
	timeout := &frame.Error{Stage: frame.StageWaitIdle, Slot: 2, Result: frame.Timeout, Err: frame.ErrSyncTimeout}
	assert.ErrorIs(t, timeout, frame.ErrSyncTimeout)
	assert.ErrorIs(t, timeout, frame.ErrDeviceLost)
	assert.Contains(t, timeout.Error(), "stage=wait-idle")
	assert.Contains(t, timeout.Error(), "slot=2")
	assert.Contains(t, timeout.Error(), "TIMEOUT")

	present := &frame.Error{Stage: frame.StagePresent, Result: frame.ErrorOutOfDate, Err: frame.ErrPresentFailed}
	assert.ErrorIs(t, present, frame.ErrPresentFailed)
	assert.NotErrorIs(t, present, frame.ErrDeviceLost)
}

func TestResultString(t *testing.T) {
	assert.Equal(t, "SUBOPTIMAL", frame.Suboptimal.String())
	assert.Equal(t, "ERROR_UNKNOWN", frame.Result(99).String())
	assert.Equal(t, "stage(42)", frame.Stage(42).String())
}
