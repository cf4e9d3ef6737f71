package frametest

import (
	"fmt"

	"github.com/spaghettifunk/vkclear/engine/renderer/frame"
)

type Fence struct {
	device    *Device
	id        int
	signaled  bool
	pending   bool
	destroyed bool
}

// Signaled reports whether the fence is currently signaled.
func (f *Fence) Signaled() bool {
	return f.signaled
}

// Pending reports whether a submission guarded by the fence is in flight.
func (f *Fence) Pending() bool {
	return f.pending
}

func (f *Fence) Wait(timeout uint64) frame.Result {
	d := f.device
	d.record(Call{Op: OpWaitFence, Object: f.id, Image: -1})
	if res := d.result(OpWaitFence); res != frame.Success {
		return res
	}
	switch {
	case f.pending:
		// the device finishes the submission while the host waits
		f.retire()
	case !f.signaled:
		d.violate("wait on fence %d that nothing will signal", f.id)
		return frame.Timeout
	}
	if n := d.Outstanding(); n > d.MaxOutstandingAtWait {
		d.MaxOutstandingAtWait = n
	}
	return frame.Success
}

func (f *Fence) Reset() frame.Result {
	d := f.device
	d.record(Call{Op: OpResetFence, Object: f.id, Image: -1})
	if res := d.result(OpResetFence); res != frame.Success {
		return res
	}
	if f.pending {
		d.violate("reset of fence %d while its submission is in flight", f.id)
	}
	f.signaled = false
	return frame.Success
}

func (f *Fence) Destroy() {
	f.device.record(Call{Op: OpDestroyFence, Object: f.id, Image: -1})
	f.device.checkIdle(describe(OpDestroyFence, f.id))
	f.destroyed = true
}

func (f *Fence) retire() {
	if !f.pending {
		return
	}
	f.pending = false
	f.signaled = true
	f.device.Retired++
}

type Semaphore struct {
	device   *Device
	id       int
	signaled bool
}

func (s *Semaphore) Destroy() {
	s.device.record(Call{Op: OpDestroySemaphore, Object: s.id, Image: -1})
	s.device.checkIdle(describe(OpDestroySemaphore, s.id))
}

type contextState int

const (
	contextInitial contextState = iota
	contextRecording
	contextRecorded
	contextPending
)

type CommandContext struct {
	device *Device
	id     int
	state  contextState
	// fence of the last submission
	fence *Fence
}

func (c *CommandContext) Reset() frame.Result {
	d := c.device
	d.record(Call{Op: OpResetCommands, Object: c.id, Image: -1})
	if res := d.result(OpResetCommands); res != frame.Success {
		return res
	}
	if c.fence != nil && c.fence.pending {
		d.violate("reset of command context %d while it is in flight", c.id)
	}
	c.state = contextInitial
	return frame.Success
}

func (c *CommandContext) Begin() frame.Result {
	d := c.device
	d.record(Call{Op: OpBeginCommands, Object: c.id, Image: -1})
	if res := d.result(OpBeginCommands); res != frame.Success {
		return res
	}
	if c.state != contextInitial {
		d.violate("begin of command context %d that was not reset", c.id)
	}
	c.state = contextRecording
	return frame.Success
}

func (c *CommandContext) BeginRenderPass(target frame.RenderTarget, clear frame.ClearValue) {
	rt := target.(*RenderTarget)
	c.device.record(Call{Op: OpBeginRenderPass, Object: c.id, Image: rt.image, Clear: clear})
	if c.state != contextRecording {
		c.device.violate("render pass on command context %d outside recording", c.id)
	}
	if rt.destroyed {
		c.device.violate("render pass on destroyed render target %d", rt.image)
	}
}

func (c *CommandContext) EndRenderPass() {
	c.device.record(Call{Op: OpEndRenderPass, Object: c.id, Image: -1})
}

func (c *CommandContext) End() frame.Result {
	d := c.device
	d.record(Call{Op: OpEndCommands, Object: c.id, Image: -1})
	if res := d.result(OpEndCommands); res != frame.Success {
		return res
	}
	c.state = contextRecorded
	return frame.Success
}

func (c *CommandContext) Destroy() {
	c.device.record(Call{Op: OpDestroyCommandContext, Object: c.id, Image: -1})
	c.device.checkIdle(describe(OpDestroyCommandContext, c.id))
}

type RenderTarget struct {
	device    *Device
	image     int
	destroyed bool
}

func (rt *RenderTarget) Destroy() {
	rt.device.record(Call{Op: OpDestroyRenderTarget, Object: -1, Image: rt.image})
	rt.destroyed = true
}

// ForSlot returns the calls touching the objects of slot i, assuming slots
// were created in order with no creation failures: command context i, fence i
// and semaphores 2i (acquire) and 2i+1 (present).
func (d *Device) ForSlot(i int) []Call {
	var out []Call
	for _, c := range d.Trace {
		switch c.Op {
		case OpWaitFence, OpResetFence, OpDestroyFence,
			OpResetCommands, OpBeginCommands, OpBeginRenderPass, OpEndRenderPass, OpEndCommands,
			OpSubmit, OpDestroyCommandContext:
			if c.Object == i {
				out = append(out, c)
			}
		case OpAcquire:
			if c.Object == 2*i {
				out = append(out, c)
			}
		case OpPresent:
			if c.Object == 2*i+1 {
				out = append(out, c)
			}
		}
	}
	return out
}

// Ops strips calls down to their operations.
func Ops(calls []Call) []Op {
	out := make([]Op, len(calls))
	for i, c := range calls {
		out[i] = c.Op
	}
	return out
}

func describe(op Op, id int) string {
	return fmt.Sprintf("%s %d", op, id)
}
