package engine

import (
	"errors"

	"github.com/spaghettifunk/vkclear/engine/core"
	"github.com/spaghettifunk/vkclear/engine/renderer/frame"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
	// Engine released everything it owned
	EngineStageStopped
)

// Platform is the window side of the loop. PumpMessages reports false once
// the window was asked to close.
type Platform interface {
	PumpMessages() bool
	Shutdown() error
}

// FrameRenderer runs one frame ring tick per DrawFrame.
type FrameRenderer interface {
	Initialize() error
	DrawFrame() (frame.TickInfo, error)
	SetClearDeltas(delta [3]uint8)
	Shutdown() error
}

// ConfigSource delivers reloaded configurations without blocking.
type ConfigSource interface {
	Poll() (*core.Config, bool)
	Close() error
}

// Engine is the render loop driver. It is the only place where the loop is
// asked to stop; the frame ring only stops on a fatal error.
type Engine struct {
	currentStage Stage
	config       *core.Config
	platform     Platform
	renderer     FrameRenderer
	events       *core.EventSystem
	input        *core.Input
	watcher      ConfigSource
	clock        *core.Clock
	metrics      *core.Metrics
	isRunning    bool
	width        uint32
	height       uint32
	lastTime     float64
}

func New(config *core.Config, events *core.EventSystem, input *core.Input, p Platform, r FrameRenderer) (*Engine, error) {
	if config == nil || events == nil || input == nil || p == nil || r == nil {
		err := errors.New("engine requires a config, an event system, an input, a platform and a renderer")
		core.LogError(err.Error())
		return nil, err
	}
	return &Engine{
		currentStage: EngineStageUninitialized,
		config:       config,
		platform:     p,
		renderer:     r,
		events:       events,
		input:        input,
		clock:        core.NewClock(),
		metrics:      core.NewMetrics(),
		width:        config.Application.StartWidth,
		height:       config.Application.StartHeight,
	}, nil
}

// SetConfigSource makes the engine apply reloaded clear color deltas at tick
// boundaries. The engine closes the source on shutdown.
func (e *Engine) SetConfigSource(source ConfigSource) {
	e.watcher = source
}

func (e *Engine) Stage() Stage {
	return e.currentStage
}

func (e *Engine) IsRunning() bool {
	return e.isRunning
}

func (e *Engine) Metrics() *core.Metrics {
	return e.metrics
}

func (e *Engine) Initialize() error {
	if e.currentStage != EngineStageUninitialized {
		return errors.New("engine already initialized")
	}
	e.currentStage = EngineStageInitializing

	// register some events
	e.events.Register(core.EVENT_CODE_APPLICATION_QUIT, e, e.onEvent)
	e.events.Register(core.EVENT_CODE_KEY_PRESSED, e, e.onKey)
	e.events.Register(core.EVENT_CODE_KEY_RELEASED, e, e.onKey)
	e.events.Register(core.EVENT_CODE_RESIZED, e, e.onResized)

	if err := e.renderer.Initialize(); err != nil {
		core.LogError("failed to initialize the renderer: %s", err)
		e.unregister()
		e.currentStage = EngineStageUninitialized
		return err
	}

	e.isRunning = true
	e.currentStage = EngineStageInitialized
	core.LogInfo("Engine initialized.")
	return nil
}

// Tick pumps the platform, dispatches the pending events and draws exactly one
// frame. A quit observed while pumping still lets this frame complete; it
// only stops the next tick.
func (e *Engine) Tick() error {
	if !e.isRunning {
		return nil
	}

	if !e.platform.PumpMessages() {
		e.events.Push(core.EventContext{Type: core.EVENT_CODE_APPLICATION_QUIT})
	}
	e.processEvents()
	e.applyConfigUpdates()

	e.clock.Update()
	currentTime := e.clock.Elapsed()
	delta := currentTime - e.lastTime

	if _, err := e.renderer.DrawFrame(); err != nil {
		core.LogError("DrawFrame failed, shutting down: %s", err)
		e.isRunning = false
		return err
	}

	if e.metrics.Update(delta) {
		core.LogDebug("FPS: %.0f, frame time: %.3fms", e.metrics.FPS(), e.metrics.FrameTime())
	}

	// NOTE: Input update/state copying should always be handled
	// after any input should be recorded; I.E. before this line.
	e.input.Update()

	e.lastTime = currentTime
	return nil
}

// Run ticks until a quit is requested or a tick fails, then shuts down. The
// first fatal error is returned.
func (e *Engine) Run() error {
	if e.currentStage != EngineStageInitialized {
		return errors.New("engine is not initialized")
	}
	e.currentStage = EngineStageRunning

	e.clock.Start()
	e.clock.Update()
	e.lastTime = e.clock.Elapsed()

	var runErr error
	for e.isRunning {
		if err := e.Tick(); err != nil {
			runErr = err
			break
		}
	}
	e.clock.Stop()

	if err := e.Shutdown(); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

// Shutdown drains the device, releases the renderer and closes the window.
// Calling it more than once has no effect.
func (e *Engine) Shutdown() error {
	if e.currentStage == EngineStageStopped || e.currentStage == EngineStageShuttingDown {
		return nil
	}
	e.currentStage = EngineStageShuttingDown
	e.isRunning = false

	var errs []error
	if err := e.renderer.Shutdown(); err != nil {
		errs = append(errs, err)
	}
	if e.watcher != nil {
		if err := e.watcher.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	e.unregister()
	if err := e.platform.Shutdown(); err != nil {
		errs = append(errs, err)
	}

	e.currentStage = EngineStageStopped
	core.LogInfo("Engine stopped after %d frames.", e.metrics.Frames())
	return errors.Join(errs...)
}

func (e *Engine) processEvents() {
	for {
		context, ok := e.events.Poll()
		if !ok {
			return
		}
		e.events.Fire(context.Type, nil, context)
		if !e.isRunning {
			if n := e.events.Flush(); n > 0 {
				core.LogDebug("dropped %d pending events", n)
			}
			return
		}
	}
}

func (e *Engine) applyConfigUpdates() {
	if e.watcher == nil {
		return
	}
	cfg, ok := e.watcher.Poll()
	if !ok {
		return
	}
	if cfg.ClearColor.Delta != e.config.ClearColor.Delta {
		core.LogInfo("Clear color deltas changed to %v", cfg.ClearColor.Delta)
		e.renderer.SetClearDeltas(cfg.ClearColor.Delta)
	}
	if level, err := core.ParseLogLevel(cfg.Log.Level); err == nil && cfg.Log.Level != e.config.Log.Level {
		core.SetLogLevel(level)
	}
	e.config = cfg
}

func (e *Engine) unregister() {
	e.events.Unregister(core.EVENT_CODE_APPLICATION_QUIT, e)
	e.events.Unregister(core.EVENT_CODE_KEY_PRESSED, e)
	e.events.Unregister(core.EVENT_CODE_KEY_RELEASED, e)
	e.events.Unregister(core.EVENT_CODE_RESIZED, e)
}

func (e *Engine) onEvent(code core.SystemEventCode, sender interface{}, listener interface{}, context core.EventContext) bool {
	switch code {
	case core.EVENT_CODE_APPLICATION_QUIT:
		core.LogInfo("EVENT_CODE_APPLICATION_QUIT received, shutting down.")
		e.isRunning = false
		return true
	}
	return false
}

func (e *Engine) onKey(code core.SystemEventCode, sender interface{}, listener interface{}, context core.EventContext) bool {
	ke, ok := context.Data.(*core.KeyEvent)
	if !ok {
		core.LogError("wrong event associated with the event type `%d`", code)
		return false
	}

	if code == core.EVENT_CODE_KEY_PRESSED {
		if ke.KeyCode == core.KEY_ESCAPE {
			// NOTE: Technically firing an event to itself, but there may be other listeners.
			e.events.Fire(core.EVENT_CODE_APPLICATION_QUIT, e, core.EventContext{})
			// Block anything else from processing this.
			return true
		}
		core.LogDebug("key 0x%02x pressed in window.", ke.KeyCode)
	} else {
		core.LogDebug("key 0x%02x released in window.", ke.KeyCode)
	}
	return false
}

func (e *Engine) onResized(code core.SystemEventCode, sender interface{}, listener interface{}, context core.EventContext) bool {
	se, ok := context.Data.(*core.SystemEvent)
	if !ok {
		core.LogError("wrong event associated with the event type `%d`", code)
		return false
	}

	// Check if different.
	if se.WindowWidth == e.width && se.WindowHeight == e.height {
		return false
	}
	e.width = se.WindowWidth
	e.height = se.WindowHeight
	core.LogWarn("Window resize to %dx%d ignored: %s", e.width, e.height, core.ErrResizeUnsupported)
	return true
}
