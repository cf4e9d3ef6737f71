package frame

import (
	"fmt"

	"github.com/spaghettifunk/vkclear/engine/core"
)

// Ring is the frame-in-flight state machine. Each Tick drives exactly one
// slot through wait, reset, acquire, record, submit and present, then
// advances to the next slot in round-robin order.
//
// A Ring is not safe for concurrent use; it is driven by a single host thread.
type Ring struct {
	device  Device
	chain   Chain
	slots   []*Slot
	current int
	timeout uint64
	color   ClearColor
	ticks   uint64

	// first fatal error; latched
	err       error
	destroyed bool
}

type Option func(*Ring)

// WithTimeout bounds fence and acquire waits, in nanoseconds.
func WithTimeout(timeout uint64) Option {
	return func(r *Ring) {
		r.timeout = timeout
	}
}

func WithClearColor(c ClearColor) Option {
	return func(r *Ring) {
		r.color = c
	}
}

// TickInfo describes a completed tick.
type TickInfo struct {
	// Zero-based tick number.
	Tick uint64
	Slot int
	// Index of the acquired presentable image.
	Image uint32
	Color [3]uint8
}

// NewRing eagerly creates one slot per presentable image of chain.
func NewRing(device Device, chain Chain, opts ...Option) (*Ring, error) {
	n := chain.ImageCount()
	if n < 1 {
		err := fmt.Errorf("%w: presentation chain has no images", ErrSetupFailure)
		core.LogError(err.Error())
		return nil, err
	}

	r := &Ring{
		device:  device,
		chain:   chain,
		slots:   make([]*Slot, 0, n),
		timeout: ^uint64(0),
		color:   NewClearColor([3]uint8{}, [3]uint8{6, 3, 1}),
	}
	for _, opt := range opts {
		opt(r)
	}

	for i := 0; i < n; i++ {
		s, err := newSlot(device, i)
		if err != nil {
			r.destroy()
			err = fmt.Errorf("%w: %w", ErrSetupFailure, err)
			core.LogError(err.Error())
			return nil, err
		}
		r.slots = append(r.slots, s)
	}

	core.LogDebug("Frame ring created with %d slots.", n)
	return r, nil
}

// Register hands the slot resources to t. They only depend on the device.
func (r *Ring) Register(t *Teardown) error {
	return t.Add(ResourceFrameSlots, r.destroy, ResourceDevice)
}

func (r *Ring) Len() int {
	return len(r.slots)
}

// Current returns the index of the slot the next tick will use.
func (r *Ring) Current() int {
	return r.current
}

func (r *Ring) Slot(i int) *Slot {
	return r.slots[i]
}

func (r *Ring) Ticks() uint64 {
	return r.ticks
}

func (r *Ring) Color() ClearColor {
	return r.color
}

// SetClearDeltas changes the per-tick color step from the next tick on.
func (r *Ring) SetClearDeltas(delta [3]uint8) {
	r.color.SetDeltas(delta)
}

// Err returns the fatal error that stopped the ring, if any.
func (r *Ring) Err() error {
	return r.err
}

// Tick runs one full cycle through the current slot. Every failure is fatal:
// the ring latches the error and refuses further ticks.
func (r *Ring) Tick() (TickInfo, error) {
	if r.destroyed {
		return TickInfo{}, fmt.Errorf("%w: ring destroyed", ErrRingFailed)
	}
	if r.err != nil {
		return TickInfo{}, fmt.Errorf("%w: %w", ErrRingFailed, r.err)
	}

	i := r.current
	s := r.slots[i]

	// Wait for the device to retire the previous submission through this slot.
	if res := s.Fence.Wait(r.timeout); res != Success {
		return TickInfo{}, r.fail(StageWaitIdle, i, res, ResultError(res, ErrDeviceLost))
	}

	// The slot's fence and command context are now safe to reuse.
	if res := s.Fence.Reset(); res != Success {
		return TickInfo{}, r.fail(StageReset, i, res, ResultError(res, ErrDeviceLost))
	}
	if res := s.Commands.Reset(); res != Success {
		return TickInfo{}, r.fail(StageReset, i, res, ResultError(res, ErrDeviceLost))
	}

	image, res := r.chain.AcquireNextImage(s.AcquireSemaphore, r.timeout)
	switch res {
	case Success:
	case Suboptimal:
		// The image is acquired and the semaphore will be signaled.
		core.LogWarn("acquired image %d from a suboptimal chain", image)
	default:
		return TickInfo{}, r.fail(StageAcquire, i, res, ResultError(res, ErrAcquireFailed))
	}
	if int(image) >= r.chain.ImageCount() {
		return TickInfo{}, r.fail(StageAcquire, i, ErrorUnknown, fmt.Errorf("%w: image index %d out of range", ErrAcquireFailed, image))
	}

	// Record a render pass whose only payload is the clear of the acquired image.
	r.color.Advance()
	if res := s.Commands.Begin(); res != Success {
		return TickInfo{}, r.fail(StageRecord, i, res, ErrSubmitFailed)
	}
	s.Commands.BeginRenderPass(r.chain.RenderTarget(image), r.color.Value())
	s.Commands.EndRenderPass()
	if res := s.Commands.End(); res != Success {
		return TickInfo{}, r.fail(StageRecord, i, res, ErrSubmitFailed)
	}

	if res := r.device.Submit(s.Commands, s.AcquireSemaphore, s.PresentSemaphore, s.Fence); res != Success {
		return TickInfo{}, r.fail(StageSubmit, i, res, ErrSubmitFailed)
	}
	s.Submissions++

	// Both the queue result and the per-swapchain result are only inspected
	// once the present call has returned them.
	queueResult, chainResult := r.chain.Present(s.PresentSemaphore, image)
	if queueResult != Success {
		return TickInfo{}, r.fail(StagePresent, i, queueResult, ErrPresentFailed)
	}
	if chainResult != Success {
		return TickInfo{}, r.fail(StagePresent, i, chainResult, ErrPresentFailed)
	}

	info := TickInfo{
		Tick:  r.ticks,
		Slot:  i,
		Image: image,
		Color: r.color.Channels(),
	}
	r.current = (r.current + 1) % len(r.slots)
	r.ticks++
	return info, nil
}

func (r *Ring) fail(stage Stage, slot int, res Result, err error) error {
	ferr := newError(stage, slot, res, err)
	r.err = ferr
	core.LogError("frame ring: %s", ferr)
	return ferr
}

// destroy releases every slot. The device must be idle.
func (r *Ring) destroy() {
	for _, s := range r.slots {
		s.destroy()
	}
	r.slots = nil
	r.destroyed = true
}
