package frame

import (
	"errors"
	"fmt"
)

var (
	ErrSetupFailure      = errors.New("frame: setup failure")
	ErrDeviceLost        = errors.New("frame: device lost")
	ErrSurfaceLost       = errors.New("frame: surface lost")
	ErrFormatUnsupported = errors.New("frame: format unsupported")
	// ErrSyncTimeout is reported when a fence or acquire wait exceeds its
	// timeout. It also matches ErrDeviceLost.
	ErrSyncTimeout   = errors.New("frame: synchronization timeout")
	ErrAcquireFailed = errors.New("frame: acquire failed")
	ErrSubmitFailed  = errors.New("frame: submit failed")
	ErrPresentFailed = errors.New("frame: present failed")
	// ErrWaitIdleFailed is returned by Teardown.Release when the device could
	// not be drained for a reason other than loss.
	ErrWaitIdleFailed = errors.New("frame: device wait idle failed")
	// ErrRingFailed is returned by every Tick following a fatal error.
	ErrRingFailed = errors.New("frame: ring stopped after a fatal error")
)

// Stage is a step of the per-tick state machine.
type Stage uint8

const (
	StageWaitIdle Stage = iota
	StageReset
	StageAcquire
	StageRecord
	StageSubmit
	StagePresent
	StageAdvance
)

func (s Stage) String() string {
	switch s {
	case StageWaitIdle:
		return "wait-idle"
	case StageReset:
		return "reset"
	case StageAcquire:
		return "acquire"
	case StageRecord:
		return "record"
	case StageSubmit:
		return "submit"
	case StagePresent:
		return "present"
	case StageAdvance:
		return "advance"
	}
	return fmt.Sprintf("stage(%d)", uint8(s))
}

// Error describes a fatal failure of a device operation during a tick.
type Error struct {
	Stage  Stage
	Slot   int
	Result Result
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (stage=%s slot=%d result=%s)", e.Err, e.Stage, e.Slot, e.Result)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is lets a synchronization timeout be handled as a lost device.
func (e *Error) Is(target error) bool {
	return target == ErrDeviceLost && e.Err == ErrSyncTimeout
}

// ResultError maps a result to the sentinel it represents, or nil on success.
// fallback is used for results that carry no more specific meaning.
func ResultError(r Result, fallback error) error {
	switch r {
	case Success:
		return nil
	case Timeout, NotReady:
		return ErrSyncTimeout
	case ErrorDeviceLost:
		return ErrDeviceLost
	case ErrorSurfaceLost:
		return ErrSurfaceLost
	case ErrorFormatNotSupported:
		return ErrFormatUnsupported
	}
	return fallback
}

func newError(stage Stage, slot int, r Result, err error) *Error {
	return &Error{Stage: stage, Slot: slot, Result: r, Err: err}
}
