/*
vkclear opens a window and clears it with a slowly cycling color, driving a
ring of frames in flight over Vulkan.
*/
package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/spaghettifunk/vkclear/engine"
	"github.com/spaghettifunk/vkclear/engine/core"
	"github.com/spaghettifunk/vkclear/engine/platform"
	"github.com/spaghettifunk/vkclear/engine/renderer"
	"github.com/spaghettifunk/vkclear/engine/renderer/vulkan"
)

func main() {
	configPath := flag.String("config", "vkclear.toml", "path to the TOML configuration file")
	flag.Parse()

	cfg, err := core.LoadConfig(*configPath)
	if err != nil {
		core.LogFatal("failed to load config: %s", err)
	}
	level, _ := core.ParseLogLevel(cfg.Log.Level)
	core.SetLogLevel(level)

	session := core.NewSessionID()
	core.SetLogSession(session)
	core.LogInfo("Starting %s", cfg.Application.Name)

	events := core.NewEventSystem()
	input := core.NewInput(events)

	p := platform.New(events, input)
	app := cfg.Application
	if err := p.Startup(app.Name, app.StartPosX, app.StartPosY, app.StartWidth, app.StartHeight); err != nil {
		core.LogFatal("failed to start the platform: %s", err)
	}

	backend := vulkan.New(p, app.Name, cfg.Renderer)
	r := renderer.New(backend, cfg.Renderer, cfg.ClearColor)

	e, err := engine.New(cfg, events, input, p, r)
	if err != nil {
		_ = p.Shutdown()
		core.LogFatal(err.Error())
	}

	if cfg.Watch.Enabled {
		w, err := core.NewConfigWatcher(*configPath)
		if err != nil {
			core.LogWarn("config watcher disabled: %s", err)
		} else {
			e.SetConfigSource(w)
		}
	}

	if err := e.Initialize(); err != nil {
		_ = e.Shutdown()
		core.LogFatal("failed to initialize the engine: %s", err)
	}

	// signal channel to capture system calls
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)

	go func() {
		// the loop observes the quit at its next tick boundary
		<-sigCh
		events.Push(core.EventContext{Type: core.EVENT_CODE_APPLICATION_QUIT})
	}()

	// run engine
	if err := e.Run(); err != nil {
		core.LogFatal("engine stopped: %s", err)
	}
}
