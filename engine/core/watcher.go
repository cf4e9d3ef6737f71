package core

import (
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// ConfigWatcher reloads a config file whenever it is written and publishes
// the parsed result. Only the latest config is kept if the consumer lags.
type ConfigWatcher struct {
	path     string
	fsnotify *fsnotify.Watcher
	updates  chan *Config
	done     chan struct{}
	wg       sync.WaitGroup
	isClosed bool
}

func NewConfigWatcher(path string) (*ConfigWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	// Watch the directory: editors commonly replace the file instead of
	// writing it in place, which drops a watch set on the file itself.
	if err := fsWatch.Add(filepath.Dir(abs)); err != nil {
		fsWatch.Close()
		return nil, err
	}

	cw := &ConfigWatcher{
		path:     abs,
		fsnotify: fsWatch,
		updates:  make(chan *Config, 1),
		done:     make(chan struct{}),
	}

	cw.wg.Add(1)
	go cw.start()

	return cw, nil
}

// Updates returns the channel the reloaded configs are published on.
func (cw *ConfigWatcher) Updates() <-chan *Config {
	return cw.updates
}

// Poll returns the most recent reloaded config without blocking.
func (cw *ConfigWatcher) Poll() (*Config, bool) {
	select {
	case cfg := <-cw.updates:
		return cfg, true
	default:
		return nil, false
	}
}

func (cw *ConfigWatcher) Close() error {
	if cw.isClosed {
		return ErrWatcherClosed
	}
	cw.isClosed = true
	close(cw.done)
	err := cw.fsnotify.Close()
	cw.wg.Wait()
	return err
}

func (cw *ConfigWatcher) start() {
	defer cw.wg.Done()
	for {
		select {
		case <-cw.done:
			return
		case e, ok := <-cw.fsnotify.Events:
			if !ok {
				return
			}
			if filepath.Clean(e.Name) != cw.path {
				continue
			}
			if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
				continue
			}
			cfg, err := LoadConfig(cw.path)
			if err != nil {
				LogWarn("ignoring config change: %s", err)
				continue
			}
			LogInfo("config `%s` reloaded", cw.path)
			cw.publish(cfg)
		case err, ok := <-cw.fsnotify.Errors:
			if !ok {
				return
			}
			LogError("config watcher: %s", err)
		}
	}
}

func (cw *ConfigWatcher) publish(cfg *Config) {
	for {
		select {
		case cw.updates <- cfg:
			return
		default:
		}
		// drop the stale entry and retry
		select {
		case <-cw.updates:
		default:
		}
	}
}
