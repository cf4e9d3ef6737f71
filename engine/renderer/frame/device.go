// Package frame implements the frame-in-flight ring that drives rendering:
// a fixed set of per-slot command contexts, fences and semaphores reused in
// round-robin order so that the host never records into a command context the
// device still executes, and the device never presents an image before the
// work writing it has completed.
//
// The package talks to the GPU only through the interfaces below. The
// vulkan package provides the real implementation; frametest provides an
// instrumented fake.
package frame

// Result is the outcome of a single device operation.
type Result int32

const (
	Success Result = iota
	NotReady
	Timeout
	Suboptimal
	ErrorOutOfDate
	ErrorSurfaceLost
	ErrorDeviceLost
	ErrorOutOfHostMemory
	ErrorOutOfDeviceMemory
	ErrorFormatNotSupported
	ErrorInitializationFailed
	ErrorUnknown
)

var resultNames = [...]string{
	Success:                   "SUCCESS",
	NotReady:                  "NOT_READY",
	Timeout:                   "TIMEOUT",
	Suboptimal:                "SUBOPTIMAL",
	ErrorOutOfDate:            "ERROR_OUT_OF_DATE",
	ErrorSurfaceLost:          "ERROR_SURFACE_LOST",
	ErrorDeviceLost:           "ERROR_DEVICE_LOST",
	ErrorOutOfHostMemory:      "ERROR_OUT_OF_HOST_MEMORY",
	ErrorOutOfDeviceMemory:    "ERROR_OUT_OF_DEVICE_MEMORY",
	ErrorFormatNotSupported:   "ERROR_FORMAT_NOT_SUPPORTED",
	ErrorInitializationFailed: "ERROR_INITIALIZATION_FAILED",
	ErrorUnknown:              "ERROR_UNKNOWN",
}

func (r Result) String() string {
	if r >= 0 && int(r) < len(resultNames) {
		return resultNames[r]
	}
	return "ERROR_UNKNOWN"
}

// Fence is a host-observable completion signal.
type Fence interface {
	// Wait blocks until the fence is signaled or timeout nanoseconds elapse.
	Wait(timeout uint64) Result
	// Reset returns the fence to the unsignaled state.
	Reset() Result
	Destroy()
}

// Semaphore is a device-side wait/signal primitive.
type Semaphore interface {
	Destroy()
}

// RenderTarget is a framebuffer wrapping one presentable image and bound to
// the chain's render pass.
type RenderTarget interface {
	Destroy()
}

// ClearValue is an RGBA color in the [0, 1] range.
type ClearValue [4]float32

// CommandContext is a recording scope: one pool and one primary command buffer.
type CommandContext interface {
	// Reset discards previously recorded commands.
	Reset() Result
	// Begin starts a one-time-submit recording.
	Begin() Result
	BeginRenderPass(target RenderTarget, clear ClearValue)
	EndRenderPass()
	End() Result
	Destroy()
}

// Device is the logical device and its single graphics/present queue.
type Device interface {
	CreateFence(signaled bool) (Fence, error)
	CreateSemaphore() (Semaphore, error)
	CreateCommandContext() (CommandContext, error)
	// Submit queues the recorded commands. The submission waits on wait at the
	// color-attachment-output stage, signals signal and arms fence.
	Submit(commands CommandContext, wait Semaphore, signal Semaphore, fence Fence) Result
	// WaitIdle blocks until every queue of the device is idle.
	WaitIdle() Result
}

// Chain is the presentation chain: a fixed ring of presentable images.
type Chain interface {
	ImageCount() int
	// RenderTarget returns the target of the image at index. The chain owns it.
	RenderTarget(image uint32) RenderTarget
	// AcquireNextImage requests the next presentable image; signal is signaled
	// once the image may be written. The returned index is independent from
	// any slot index.
	AcquireNextImage(signal Semaphore, timeout uint64) (uint32, Result)
	// Present queues image for presentation after wait is signaled. It returns
	// the queue result and the per-swapchain result.
	Present(wait Semaphore, image uint32) (Result, Result)
}
