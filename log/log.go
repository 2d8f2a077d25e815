// Copyright 2021 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

// Package log is a small leveled logging facade used by clrmeta to report
// anomalies it does not consider fatal. It exists as an in-repo
// subpackage, the way the library it was modeled on keeps its own logging
// facade rather than depending on a specific logging backend.
package log

import (
	"fmt"
	"log"
	"os"
)

// Level is a logging severity.
type Level int

// Severity levels, most to least verbose.
const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Logger is the minimal interface clrmeta logs through. Implement it to
// route messages into any backend; NewStdLogger wraps the standard
// library's log.Logger for the common case.
type Logger interface {
	Log(level Level, keyvals ...interface{}) error
}

// stdLogger adapts *log.Logger to Logger.
type stdLogger struct {
	l *log.Logger
}

// NewStdLogger returns a Logger that writes to os.Stderr via the standard
// library logger.
func NewStdLogger() Logger {
	return &stdLogger{l: log.New(os.Stderr, "", log.LstdFlags)}
}

func (s *stdLogger) Log(level Level, keyvals ...interface{}) error {
	msg := fmt.Sprintln(append([]interface{}{level.String()}, keyvals...)...)
	s.l.Print(msg)
	return nil
}

// FilterLevel is the minimum severity a Filter lets through.
type FilterLevel = Level

// Filter wraps a Logger and drops messages below a minimum level.
type Filter struct {
	logger Logger
	level  FilterLevel
}

// NewFilter wraps logger so Log calls below level are dropped.
func NewFilter(logger Logger, level FilterLevel) *Filter {
	return &Filter{logger: logger, level: level}
}

// Log implements Logger.
func (f *Filter) Log(level Level, keyvals ...interface{}) error {
	if level < f.level {
		return nil
	}
	return f.logger.Log(level, keyvals...)
}

// Helper wraps a Logger with printf-style convenience methods.
type Helper struct {
	logger Logger
}

// NewHelper returns a Helper over logger. A nil logger is valid and makes
// every call a no-op, so callers never need a nil check before logging.
func NewHelper(logger Logger) *Helper {
	return &Helper{logger: logger}
}

func (h *Helper) log(level Level, format string, args ...interface{}) {
	if h == nil || h.logger == nil {
		return
	}
	h.logger.Log(level, fmt.Sprintf(format, args...))
}

// Debugf logs at debug level.
func (h *Helper) Debugf(format string, args ...interface{}) { h.log(LevelDebug, format, args...) }

// Infof logs at info level.
func (h *Helper) Infof(format string, args ...interface{}) { h.log(LevelInfo, format, args...) }

// Warnf logs at warn level.
func (h *Helper) Warnf(format string, args ...interface{}) { h.log(LevelWarn, format, args...) }

// Errorf logs at error level.
func (h *Helper) Errorf(format string, args ...interface{}) { h.log(LevelError, format, args...) }
