package renderer

import (
	"errors"
	"fmt"

	"github.com/spaghettifunk/vkclear/engine/core"
	"github.com/spaghettifunk/vkclear/engine/renderer/frame"
)

// Backend builds the device-level objects and registers each of them with
// the teardown graph as soon as it exists.
type Backend interface {
	Initialize(t *frame.Teardown) (frame.Device, frame.Chain, error)
}

// Renderer owns the frame ring and the teardown graph of a backend.
type Renderer struct {
	backend Backend
	config  core.RendererConfig
	clear   core.ClearColorConfig

	teardown *frame.Teardown
	device   frame.Device
	ring     *frame.Ring
	shutdown bool
}

func New(backend Backend, config core.RendererConfig, clear core.ClearColorConfig) *Renderer {
	return &Renderer{
		backend: backend,
		config:  config,
		clear:   clear,
	}
}

// Initialize sets up the backend and one frame slot per presentable image.
// On failure everything created so far is released before returning.
func (r *Renderer) Initialize() error {
	if r.teardown != nil {
		return errors.New("renderer already initialized")
	}
	r.teardown = frame.NewTeardown()

	device, chain, err := r.backend.Initialize(r.teardown)
	if err != nil {
		// Nothing was submitted yet, there is nothing to wait for.
		_ = r.teardown.Release(nil)
		return err
	}
	r.device = device

	ring, err := frame.NewRing(device, chain,
		frame.WithTimeout(r.config.FenceTimeout()),
		frame.WithClearColor(frame.NewClearColor(r.clear.Start, r.clear.Delta)),
	)
	if err != nil {
		_ = r.teardown.Release(device.WaitIdle)
		return err
	}
	if err := ring.Register(r.teardown); err != nil {
		_ = r.teardown.Release(device.WaitIdle)
		return err
	}
	r.ring = ring

	core.LogInfo("Renderer initialized with %d frames in flight.", ring.Len())
	return nil
}

// DrawFrame runs one tick of the frame ring.
func (r *Renderer) DrawFrame() (frame.TickInfo, error) {
	if r.ring == nil {
		return frame.TickInfo{}, fmt.Errorf("%w: renderer not initialized", frame.ErrRingFailed)
	}
	return r.ring.Tick()
}

func (r *Renderer) SetClearDeltas(delta [3]uint8) {
	if r.ring != nil {
		r.ring.SetClearDeltas(delta)
	}
}

// Ring exposes the frame ring, nil before Initialize.
func (r *Renderer) Ring() *frame.Ring {
	return r.ring
}

// Shutdown waits for the device to go idle once and then destroys every
// object in dependency order. Subsequent calls do nothing.
func (r *Renderer) Shutdown() error {
	if r.shutdown || r.teardown == nil {
		return nil
	}
	r.shutdown = true

	var waitIdle func() frame.Result
	if r.device != nil {
		waitIdle = r.device.WaitIdle
	}
	if err := r.teardown.Release(waitIdle); err != nil {
		return err
	}
	core.LogInfo("Renderer shut down.")
	return nil
}
