package core

import (
	"errors"
)

var (
	ErrInvalidConfig     = errors.New("invalid config")
	ErrWatcherClosed     = errors.New("config watcher already closed")
	ErrResizeUnsupported = errors.New("window resize is not supported")
)
