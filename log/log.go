// Package log is the logger handed to the record store and the shell.
//
// There is no package-level state: the verbose switch (the -x option)
// lives in a Logger value that callers pass around. All methods are
// safe to call on a nil *Logger.
package log

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/davecgh/go-spew/spew"
)

type Config struct {
	// if set, Logf() and Errorf() messages are also appended to daily
	// files in Dir/log and Dir/errors
	Dir string
	// if true, Verbosef() and VerboseDump() write to Err
	Verbose bool
	// defaults to os.Stdout
	Out io.Writer
	// defaults to os.Stderr
	Err io.Writer
}

type Logger struct {
	Verbose bool

	out       io.Writer
	err       io.Writer
	log       *DailyFile
	errorsLog *DailyFile
}

func New(config *Config) *Logger {
	if config == nil {
		config = &Config{}
	}
	l := &Logger{
		Verbose: config.Verbose,
		out:     config.Out,
		err:     config.Err,
	}
	if l.out == nil {
		l.out = os.Stdout
	}
	if l.err == nil {
		l.err = os.Stderr
	}
	if config.Dir != "" {
		l.log = NewDailyFile(filepath.Join(config.Dir, "log"))
		l.errorsLog = NewDailyFile(filepath.Join(config.Dir, "errors"))
	}
	return l
}

// Close closes daily log files
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	err1 := l.log.Close()
	err2 := l.errorsLog.Close()
	if err1 != nil {
		return err1
	}
	return err2
}

func (l *Logger) Logf(s string, args ...any) {
	if l == nil {
		return
	}
	if len(args) > 0 {
		s = fmt.Sprintf(s, args...)
	}
	fmt.Fprint(l.out, s)
	_ = l.log.WriteString(s)
}

// Verbosef writes a diagnostic trace line to stderr when verbose mode is on
func (l *Logger) Verbosef(s string, args ...any) {
	if l == nil || !l.Verbose {
		return
	}
	if len(args) > 0 {
		s = fmt.Sprintf(s, args...)
	}
	fmt.Fprint(l.err, s)
	_ = l.log.WriteString(s)
}

// VerboseDump writes a detailed dump of v when verbose mode is on
func (l *Logger) VerboseDump(label string, v any) {
	if l == nil || !l.Verbose {
		return
	}
	l.Verbosef("%s: %s", label, spew.Sdump(v))
}

func GetCallstackFrames(skip int) []string {
	var callers [32]uintptr
	n := runtime.Callers(skip+1, callers[:])
	frames := runtime.CallersFrames(callers[:n])
	var cs []string
	for {
		frame, more := frames.Next()
		if !more {
			break
		}
		s := frame.File + ":" + strconv.Itoa(frame.Line)
		cs = append(cs, s)
	}
	return cs
}

func GetCallstack(skip int) string {
	frames := GetCallstackFrames(skip + 1)
	return strings.Join(frames, "\n")
}

// Errorf logs an error message to stderr. In verbose mode the callstack
// is included
func (l *Logger) Errorf(s string, args ...any) {
	if l == nil {
		return
	}
	if len(args) > 0 {
		s = fmt.Sprintf(s, args...)
	}
	if !strings.HasSuffix(s, "\n") {
		s += "\n"
	}
	if l.Verbose {
		s = s + GetCallstack(1) + "\n"
	}
	fmt.Fprint(l.err, s)
	_ = l.errorsLog.WriteString(s)
}

// if err != nil, log and return true
// IfErrf(err) => logs err.Error()
// IfErrf(err, "error is: %v", err) => logs message formatted
func (l *Logger) IfErrf(err error, a ...any) bool {
	if err == nil {
		return false
	}
	if len(a) == 0 {
		l.Errorf("%s", err.Error())
		return true
	}
	s, ok := a[0].(string)
	if !ok {
		s = fmt.Sprintf("%s", a[0])
	}
	if len(a) > 1 {
		s = fmt.Sprintf(s, a[1:]...)
	}
	l.Errorf("%s", s)
	return true
}
