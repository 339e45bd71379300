// Package diag provides the kernel's diagnostic logger and the
// panic-into-diagnostic-screen recovery path described in spec.md §7.
//
// Unreachable states (the CPU decoder reaching an invalid register index,
// a boot-info magic mismatch) are programming-contract violations rather
// than recoverable conditions, so they are made loud: they panic, and the
// deferred Recover only paints a screen and re-logs before letting the
// process halt. A failed save write is not fatal: the frame driver's save
// phase discards the error, leaving any logging to its SaveWriter.
package diag

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Logger is the narrow logging surface the rest of the device model is
// written against, mirroring the teacher's pkg/log.Logger shape so tests
// can install a null logger instead of a real one.
type Logger interface {
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Debugf(format string, args ...interface{})
}

// Kernel is the process-wide logger. A kernel log has no ANSI terminal to
// render color into and no wall clock worth trusting before the timer is
// calibrated, so both are disabled the same way the teacher disables them
// for its MMU component logger.
var Kernel Logger = newLogrusLogger()

type logrusLogger struct {
	l *logrus.Logger
}

func newLogrusLogger() *logrusLogger {
	l := logrus.New()
	l.SetLevel(logrus.DebugLevel)
	l.Formatter = &logrus.TextFormatter{
		DisableColors:    true,
		DisableTimestamp: true,
		DisableSorting:   true,
	}
	return &logrusLogger{l: l}
}

func (g *logrusLogger) Infof(format string, args ...interface{})  { g.l.Infof(format, args...) }
func (g *logrusLogger) Errorf(format string, args ...interface{}) { g.l.Errorf(format, args...) }
func (g *logrusLogger) Debugf(format string, args ...interface{}) { g.l.Debugf(format, args...) }

// nullLogger discards everything; used by tests that don't want kernel
// diagnostics on stdout.
type nullLogger struct{}

func (nullLogger) Infof(string, ...interface{})  {}
func (nullLogger) Errorf(string, ...interface{}) {}
func (nullLogger) Debugf(string, ...interface{}) {}

// NewNullLogger returns a Logger that discards everything.
func NewNullLogger() Logger { return nullLogger{} }

// PanicScreen is implemented by whatever owns the framebuffer MMIO window
// (internal/framedriver in production, a fake in tests). Painting the
// screen is the last thing that happens before the kernel halts with
// interrupts disabled.
type PanicScreen interface {
	PaintPanic(message string)
}

// Recover is deferred by framedriver.Loop.RunFrame and by kernel.Run.
// It paints the diagnostic screen, logs the cause, and then halts the
// process - fatal paths never silently reset per spec.md §7.
func Recover(screen PanicScreen) {
	if r := recover(); r != nil {
		msg := formatPanic(r)
		if screen != nil {
			screen.PaintPanic(msg)
		}
		Kernel.Errorf("fatal: %s", msg)
		Halt()
	}
}

func formatPanic(r interface{}) string {
	if err, ok := r.(error); ok {
		return err.Error()
	}
	if s, ok := r.(string); ok {
		return s
	}
	return "unknown fatal condition"
}

// Halt stops the process after Recover has painted and logged a fatal
// condition. On the real hardware this is an infinite HLT loop with
// interrupts disabled; hosted, exiting is the closest equivalent
// available without a kernel halt instruction. Tests that need to
// exercise Recover without killing the test binary swap this out for
// the duration of the test and restore it afterward.
var Halt = func() {
	os.Exit(1)
}
