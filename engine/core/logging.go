package core

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

var once sync.Once

type logger struct {
	*log.Logger
}

var singleton *logger

func getLogger() *logger {
	once.Do(
		func() {
			l := log.NewWithOptions(os.Stderr, log.Options{
				ReportCaller:    true,
				ReportTimestamp: true,
				TimeFormat:      time.RFC3339,
				Prefix:          "vkclear",
				// the helpers below add one frame
				CallerOffset: 1,
			})
			l.SetLevel(log.DebugLevel)
			singleton = &logger{l}
		})
	return singleton
}

// LogLevel mirrors the levels accepted in the `[log]` section of the config.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// ParseLogLevel is case insensitive. An empty string means debug.
func ParseLogLevel(s string) (LogLevel, error) {
	switch LogLevel(strings.ToLower(s)) {
	case "", LogLevelDebug:
		return LogLevelDebug, nil
	case LogLevelInfo:
		return LogLevelInfo, nil
	case LogLevelWarn:
		return LogLevelWarn, nil
	case LogLevelError:
		return LogLevelError, nil
	}
	return "", fmt.Errorf("unknown log level `%s`", s)
}

func SetLogLevel(level LogLevel) {
	switch level {
	case LogLevelInfo:
		getLogger().SetLevel(log.InfoLevel)
	case LogLevelWarn:
		getLogger().SetLevel(log.WarnLevel)
	case LogLevelError:
		getLogger().SetLevel(log.ErrorLevel)
	default:
		getLogger().SetLevel(log.DebugLevel)
	}
}

// SetLogOutput redirects every subsequent log line to w.
func SetLogOutput(w io.Writer) {
	getLogger().SetOutput(w)
}

// SetLogSession tags every subsequent log line with the given session id.
func SetLogSession(id string) {
	l := getLogger()
	l.Logger = l.Logger.With("session", id)
}

func LogDebug(msg string, args ...interface{}) {
	getLogger().Debugf(msg, args...)
}

func LogInfo(msg string, args ...interface{}) {
	getLogger().Infof(msg, args...)
}

func LogWarn(msg string, args ...interface{}) {
	getLogger().Warnf(msg, args...)
}

func LogError(msg string, args ...interface{}) {
	getLogger().Errorf(msg, args...)
}

func LogFatal(msg string, args ...interface{}) {
	getLogger().Fatalf(msg, args...)
}
