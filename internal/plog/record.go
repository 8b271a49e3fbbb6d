// Copyright (c) 2024 - 2026 StoneGuard. All Rights Reserved.
// Please refer to our terms for more information:
// https://www.stoneguard.io/terms.html

package plog

import (
	"fmt"
	"sync"
)

// Record collects log lines in memory so that operations such as the
// configuration loading can report their diagnostics to the caller. It
// implements DebugLevelLogger and can therefore be passed anywhere a logger is
// expected.
type Record struct {
	mu     sync.Mutex
	lines  []string
	errors int
}

// NewRecord returns an empty log line recorder.
func NewRecord() *Record {
	return &Record{}
}

func (r *Record) append(level LogLevel, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, level.String()+": "+message)
}

// Lines returns a copy of the recorded log lines, in recording order.
func (r *Record) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	lines := make([]string, len(r.lines))
	copy(lines, r.lines)
	return lines
}

// Empty returns true when nothing was recorded.
func (r *Record) Empty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.lines) == 0
}

// HasErrors returns true when at least one error line was recorded.
func (r *Record) HasErrors() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.errors > 0
}

func (r *Record) Error(err error) {
	r.mu.Lock()
	r.errors++
	r.mu.Unlock()
	r.append(Error, err.Error())
}

func (r *Record) Info(v ...interface{}) {
	r.append(Info, fmt.Sprint(v...))
}

func (r *Record) Infof(format string, v ...interface{}) {
	r.append(Info, fmt.Sprintf(format, v...))
}

func (r *Record) Debug(v ...interface{}) {
	r.append(Debug, fmt.Sprint(v...))
}

func (r *Record) Debugf(format string, v ...interface{}) {
	r.append(Debug, fmt.Sprintf(format, v...))
}
