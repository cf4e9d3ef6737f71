// Package frametest provides an instrumented in-memory device and
// presentation chain for testing code built on package frame.
//
// Every call is appended to Device.Trace. The fake models just enough GPU
// behavior to detect misuse: fences track whether a submission is in flight,
// semaphores track whether they hold an unconsumed signal, and destroying
// anything while work is outstanding is reported in Device.Violations.
package frametest

import (
	"fmt"

	"github.com/spaghettifunk/vkclear/engine/renderer/frame"
)

type Op string

const (
	OpCreateFence          Op = "create-fence"
	OpCreateSemaphore      Op = "create-semaphore"
	OpCreateCommandContext Op = "create-command-context"
	OpWaitFence            Op = "wait-fence"
	OpResetFence           Op = "reset-fence"
	OpResetCommands        Op = "reset-commands"
	OpAcquire              Op = "acquire"
	OpBeginCommands        Op = "begin-commands"
	OpBeginRenderPass      Op = "begin-render-pass"
	OpEndRenderPass        Op = "end-render-pass"
	OpEndCommands          Op = "end-commands"
	OpSubmit               Op = "submit"
	OpPresent              Op = "present"
	// Failure injection key for the per-swapchain present result.
	OpPresentChain Op = "present-chain"
	OpWaitIdle     Op = "wait-idle"
	OpInitialize   Op = "initialize"

	OpDestroyFence          Op = "destroy-fence"
	OpDestroySemaphore      Op = "destroy-semaphore"
	OpDestroyCommandContext Op = "destroy-command-context"
	OpDestroyRenderTarget   Op = "destroy-render-target"
	// Release of a whole teardown category registered by Initialize.
	OpDestroy Op = "destroy"
)

// Call is one recorded device operation.
type Call struct {
	Op Op
	// Id of the fence, semaphore or command context involved, -1 otherwise.
	// Ids are assigned per kind in creation order.
	Object int
	// Image index for acquire, present and render pass calls, -1 otherwise.
	Image int
	// Clear value of a render pass.
	Clear frame.ClearValue
	// Category name for OpDestroy.
	Name string
}

type failure struct {
	n   int
	res frame.Result
}

// Device implements frame.Device and frame.Chain.
type Device struct {
	Images int
	// AcquireOrder, when set, is the cyclic sequence of image indices returned
	// by AcquireNextImage. The default is 0, 1, ..., Images-1.
	AcquireOrder []uint32

	Trace      []Call
	Violations []string

	Submitted uint64
	Retired   uint64
	// Highest number of in-flight submissions observed right after a fence wait.
	MaxOutstandingAtWait int

	fences     []*Fence
	semaphores []*Semaphore
	contexts   []*CommandContext
	targets    []*RenderTarget

	failures map[Op][]failure
	counts   map[Op]int

	acquires  int
	acquired  map[uint32]bool
	idleCalls int
}

var (
	_ frame.Device = (*Device)(nil)
	_ frame.Chain  = (*Device)(nil)
)

func NewDevice(images int) *Device {
	d := &Device{
		Images:   images,
		failures: make(map[Op][]failure),
		counts:   make(map[Op]int),
		acquired: make(map[uint32]bool),
	}
	for i := 0; i < images; i++ {
		d.targets = append(d.targets, &RenderTarget{device: d, image: i})
	}
	return d
}

// FailAt makes the n-th call (1-based) of op return res. For create
// operations any non-success result turns into an error.
func (d *Device) FailAt(op Op, n int, res frame.Result) {
	d.failures[op] = append(d.failures[op], failure{n: n, res: res})
}

func (d *Device) result(op Op) frame.Result {
	d.counts[op]++
	for _, f := range d.failures[op] {
		if f.n == d.counts[op] {
			return f.res
		}
	}
	return frame.Success
}

func (d *Device) record(c Call) {
	d.Trace = append(d.Trace, c)
}

func (d *Device) violate(format string, args ...interface{}) {
	d.Violations = append(d.Violations, fmt.Sprintf(format, args...))
}

// Outstanding returns the number of submissions the fake device has not
// retired yet.
func (d *Device) Outstanding() int {
	n := 0
	for _, f := range d.fences {
		if f.pending {
			n++
		}
	}
	return n
}

// IdleWaits returns how many times WaitIdle was called.
func (d *Device) IdleWaits() int {
	return d.idleCalls
}

// Count returns how many calls of op were recorded.
func (d *Device) Count(op Op) int {
	n := 0
	for _, c := range d.Trace {
		if c.Op == op {
			n++
		}
	}
	return n
}

// Calls returns the recorded calls of op in order.
func (d *Device) Calls(op Op) []Call {
	var out []Call
	for _, c := range d.Trace {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

// Fence returns the fake fence with the given id.
func (d *Device) Fence(id int) *Fence {
	return d.fences[id]
}

func (d *Device) CreateFence(signaled bool) (frame.Fence, error) {
	if res := d.result(OpCreateFence); res != frame.Success {
		return nil, fmt.Errorf("create fence: %s", res)
	}
	f := &Fence{device: d, id: len(d.fences), signaled: signaled}
	d.fences = append(d.fences, f)
	d.record(Call{Op: OpCreateFence, Object: f.id, Image: -1})
	return f, nil
}

func (d *Device) CreateSemaphore() (frame.Semaphore, error) {
	if res := d.result(OpCreateSemaphore); res != frame.Success {
		return nil, fmt.Errorf("create semaphore: %s", res)
	}
	s := &Semaphore{device: d, id: len(d.semaphores)}
	d.semaphores = append(d.semaphores, s)
	d.record(Call{Op: OpCreateSemaphore, Object: s.id, Image: -1})
	return s, nil
}

func (d *Device) CreateCommandContext() (frame.CommandContext, error) {
	if res := d.result(OpCreateCommandContext); res != frame.Success {
		return nil, fmt.Errorf("create command context: %s", res)
	}
	c := &CommandContext{device: d, id: len(d.contexts)}
	d.contexts = append(d.contexts, c)
	d.record(Call{Op: OpCreateCommandContext, Object: c.id, Image: -1})
	return c, nil
}

func (d *Device) Submit(commands frame.CommandContext, wait frame.Semaphore, signal frame.Semaphore, fence frame.Fence) frame.Result {
	c := commands.(*CommandContext)
	w := wait.(*Semaphore)
	s := signal.(*Semaphore)
	f := fence.(*Fence)
	d.record(Call{Op: OpSubmit, Object: c.id, Image: -1})
	if res := d.result(OpSubmit); res != frame.Success {
		return res
	}

	if c.state != contextRecorded {
		d.violate("submit of command context %d that is not recorded", c.id)
	}
	if !w.signaled {
		d.violate("submit waits on semaphore %d that nothing signals", w.id)
	}
	w.signaled = false
	if s.signaled {
		d.violate("submit signals semaphore %d that still holds a signal", s.id)
	}
	s.signaled = true
	if f.signaled || f.pending {
		d.violate("submit arms fence %d that is not reset", f.id)
	}
	f.pending = true
	c.state = contextPending
	c.fence = f
	d.Submitted++
	return frame.Success
}

func (d *Device) WaitIdle() frame.Result {
	d.idleCalls++
	d.record(Call{Op: OpWaitIdle, Object: -1, Image: -1})
	if res := d.result(OpWaitIdle); res != frame.Success {
		return res
	}
	for _, f := range d.fences {
		f.retire()
	}
	return frame.Success
}

func (d *Device) ImageCount() int {
	return d.Images
}

func (d *Device) RenderTarget(image uint32) frame.RenderTarget {
	return d.targets[image]
}

func (d *Device) AcquireNextImage(signal frame.Semaphore, timeout uint64) (uint32, frame.Result) {
	s := signal.(*Semaphore)
	var image uint32
	if len(d.AcquireOrder) > 0 {
		image = d.AcquireOrder[d.acquires%len(d.AcquireOrder)]
	} else {
		image = uint32(d.acquires % d.Images)
	}
	d.record(Call{Op: OpAcquire, Object: s.id, Image: int(image)})
	res := d.result(OpAcquire)
	if res != frame.Success && res != frame.Suboptimal {
		return 0, res
	}

	d.acquires++
	if s.signaled {
		d.violate("acquire signals semaphore %d that still holds a signal", s.id)
	}
	s.signaled = true
	if d.acquired[image] {
		d.violate("image %d acquired twice without being presented", image)
	}
	d.acquired[image] = true
	return image, res
}

func (d *Device) Present(wait frame.Semaphore, image uint32) (frame.Result, frame.Result) {
	w := wait.(*Semaphore)
	d.record(Call{Op: OpPresent, Object: w.id, Image: int(image)})
	if res := d.result(OpPresent); res != frame.Success {
		return res, res
	}
	if res := d.result(OpPresentChain); res != frame.Success {
		return frame.Success, res
	}
	if !w.signaled {
		d.violate("present waits on semaphore %d that nothing signals", w.id)
	}
	w.signaled = false
	if !d.acquired[image] {
		d.violate("present of image %d that was not acquired", image)
	}
	delete(d.acquired, image)
	return frame.Success, frame.Success
}

// Initialize lets the fake stand in for a rendering backend: it registers
// the categories a real backend owns with t and returns itself as device and
// chain.
func (d *Device) Initialize(t *frame.Teardown) (frame.Device, frame.Chain, error) {
	if res := d.result(OpInitialize); res != frame.Success {
		return nil, nil, fmt.Errorf("%w: backend initialize: %s", frame.ErrSetupFailure, res)
	}
	steps := []struct {
		name string
		deps []string
		fn   func()
	}{
		{frame.ResourceInstance, nil, nil},
		{frame.ResourceSurface, []string{frame.ResourceInstance}, nil},
		{frame.ResourceDevice, []string{frame.ResourceInstance}, nil},
		{frame.ResourceChain, []string{frame.ResourceDevice, frame.ResourceSurface}, nil},
		{frame.ResourceRenderPass, []string{frame.ResourceDevice}, nil},
		{frame.ResourceRenderTargets, []string{frame.ResourceChain, frame.ResourceRenderPass}, func() {
			for _, rt := range d.targets {
				rt.Destroy()
			}
		}},
	}
	for _, s := range steps {
		name, fn := s.name, s.fn
		if err := t.Add(name, func() {
			d.destroyed(name)
			if fn != nil {
				fn()
			}
		}, s.deps...); err != nil {
			return nil, nil, err
		}
	}
	return d, d, nil
}

func (d *Device) destroyed(name string) {
	d.record(Call{Op: OpDestroy, Object: -1, Image: -1, Name: name})
	d.checkIdle(string(OpDestroy) + " " + name)
}

func (d *Device) checkIdle(what string) {
	if d.idleCalls == 0 {
		d.violate("%s before any device idle wait", what)
	}
	if n := d.Outstanding(); n > 0 {
		d.violate("%s with %d submissions in flight", what, n)
	}
}
