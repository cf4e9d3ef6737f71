package platform

import (
	"errors"
	"runtime"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/vkclear/engine/core"
)

func init() {
	// GLFW event handling must run on the main OS thread
	runtime.LockOSThread()
}

// Platform is the surface provider: it owns the window, turns its input into
// engine events and creates the native surface for the renderer.
type Platform struct {
	Window *glfw.Window

	events *core.EventSystem
	input  *core.Input
}

func New(events *core.EventSystem, input *core.Input) *Platform {
	return &Platform{
		Window: nil,
		events: events,
		input:  input,
	}
}

func (p *Platform) Startup(applicationName string, x uint32, y uint32, width uint32, height uint32) error {
	if err := glfw.Init(); err != nil {
		core.LogError("failed to initialize glfw: %s", err)
		return err
	}
	if !glfw.VulkanSupported() {
		glfw.Terminate()
		err := errors.New("vulkan is not supported by the windowing system")
		core.LogError(err.Error())
		return err
	}

	glfw.WindowHint(glfw.Visible, glfw.False)
	glfw.WindowHint(glfw.Resizable, glfw.False)
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI) // Required for Vulkan.

	window, err := glfw.CreateWindow(int(width), int(height), applicationName, nil, nil)
	if err != nil {
		glfw.Terminate()
		core.LogError("failed to create window: %s", err)
		return err
	}
	p.Window = window

	p.Window.SetKeyCallback(p.keyCallback)
	p.Window.SetFramebufferSizeCallback(p.framebufferSizeCallback)
	p.Window.SetPos(int(x), int(y))
	p.Window.Show()

	core.LogInfo("Window `%s` created (%dx%d).", applicationName, width, height)
	return nil
}

func (p *Platform) Shutdown() error {
	if p.Window != nil {
		p.Window.Destroy()
		p.Window = nil
	}
	glfw.Terminate()
	return nil
}

// PumpMessages processes pending window events. It reports false once the
// window was asked to close.
func (p *Platform) PumpMessages() bool {
	glfw.PollEvents()
	return p.Window != nil && !p.Window.ShouldClose()
}

func (p *Platform) GetRequiredExtensionNames() []string {
	return p.Window.GetRequiredInstanceExtensions()
}

func (p *Platform) CreateWindowSurface(instance vk.Instance) (uintptr, error) {
	return p.Window.CreateWindowSurface(instance, nil)
}

func (p *Platform) FramebufferSize() (uint32, uint32) {
	w, h := p.Window.GetFramebufferSize()
	return uint32(w), uint32(h)
}

func (p *Platform) keyCallback(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
	code, ok := translateKey(key)
	if !ok {
		return
	}
	switch action {
	case glfw.Press:
		p.input.ProcessKey(code, true)
	case glfw.Release:
		p.input.ProcessKey(code, false)
	}
}

func (p *Platform) framebufferSizeCallback(w *glfw.Window, width, height int) {
	p.events.Push(core.EventContext{
		Type: core.EVENT_CODE_RESIZED,
		Data: &core.SystemEvent{
			WindowWidth:  uint32(width),
			WindowHeight: uint32(height),
		},
	})
}

func translateKey(key glfw.Key) (core.KeyCode, bool) {
	switch {
	case key >= glfw.KeyA && key <= glfw.KeyZ:
		return core.KEY_A + core.KeyCode(key-glfw.KeyA), true
	case key >= glfw.KeyF1 && key <= glfw.KeyF12:
		return core.KEY_F1 + core.KeyCode(key-glfw.KeyF1), true
	}
	switch key {
	case glfw.KeyEscape:
		return core.KEY_ESCAPE, true
	case glfw.KeySpace:
		return core.KEY_SPACE, true
	case glfw.KeyEnter:
		return core.KEY_ENTER, true
	case glfw.KeyBackspace:
		return core.KEY_BACKSPACE, true
	case glfw.KeyTab:
		return core.KEY_TAB, true
	case glfw.KeyPause:
		return core.KEY_PAUSE, true
	case glfw.KeyLeft:
		return core.KEY_LEFT, true
	case glfw.KeyUp:
		return core.KEY_UP, true
	case glfw.KeyRight:
		return core.KEY_RIGHT, true
	case glfw.KeyDown:
		return core.KEY_DOWN, true
	}
	return 0, false
}
