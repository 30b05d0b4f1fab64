// Package logging provides the colored, leveled console output shared by all
// logtime components.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/fatih/color"
)

// Color functions for different log levels
var (
	colorDebug    = color.New(color.FgCyan).SprintfFunc()
	colorVerbose  = color.New(color.FgBlue).SprintfFunc()
	colorInfo     = color.New(color.FgGreen).SprintfFunc()
	colorError    = color.New(color.FgRed, color.Bold).SprintfFunc()
	colorWarning  = color.New(color.FgYellow).SprintfFunc()
	colorSuccess  = color.New(color.FgGreen, color.Bold).SprintfFunc()
	colorCategory = color.New(color.FgMagenta).SprintfFunc()
)

// Logger writes diagnostics for one process. The zero value is not usable,
// use New.
type Logger struct {
	DebugMode   bool
	VerboseMode bool

	out *log.Logger
}

// New creates a logger writing to stderr.
func New(debug, verbose bool) *Logger {
	return NewWithWriter(os.Stderr, debug, verbose)
}

// NewWithWriter creates a logger writing to w.
func NewWithWriter(w io.Writer, debug, verbose bool) *Logger {
	flags := log.Ldate | log.Ltime
	prefix := ""
	if debug {
		prefix = "[logtime] "
	}
	return &Logger{
		DebugMode:   debug,
		VerboseMode: verbose,
		out:         log.New(w, prefix, flags),
	}
}

// Discard returns a logger that drops everything. Handy in tests.
func Discard() *Logger {
	return NewWithWriter(io.Discard, false, false)
}

// Output prints a diagnostic message tagged with a category, e.g.
// "issuesChecker" or "inactivity". Shown in verbose and debug mode only.
func (l *Logger) Output(category, format string, args ...interface{}) {
	if !l.VerboseMode && !l.DebugMode {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if category == "" {
		l.out.Print(colorVerbose("[VERBOSE] %s", msg))
		return
	}
	l.out.Print(colorVerbose("[VERBOSE] ") + colorCategory("%s: ", category) + msg)
}

// Debugf prints debug messages if debug mode is enabled
func (l *Logger) Debugf(format string, args ...interface{}) {
	if l.DebugMode {
		l.out.Print(colorDebug("[DEBUG] "+format, args...))
	}
}

// Verbosef prints verbose messages if verbose or debug mode is enabled
func (l *Logger) Verbosef(format string, args ...interface{}) {
	if l.VerboseMode || l.DebugMode {
		l.out.Print(colorVerbose("[VERBOSE] "+format, args...))
	}
}

// Infof prints info messages (always shown)
func (l *Logger) Infof(format string, args ...interface{}) {
	l.out.Print(colorInfo("[INFO] "+format, args...))
}

// Errorf prints error messages (always shown)
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.out.Print(colorError("[ERROR] "+format, args...))
}

// Warningf prints warning messages (always shown)
func (l *Logger) Warningf(format string, args ...interface{}) {
	l.out.Print(colorWarning("[WARNING] "+format, args...))
}

// Successf prints success messages (always shown)
func (l *Logger) Successf(format string, args ...interface{}) {
	l.out.Print(colorSuccess("[SUCCESS] "+format, args...))
}
