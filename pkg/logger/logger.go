// Package logger is the session engine's structured logging facade. It
// keeps the teacher's colored level-based API (Debug/Info/Warn/Error/
// Success/Fatal) but backs it with zap so that session internals emit
// structured fields (lane, seq, packet size) instead of bare strings.
package logger

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log levels, kept distinct from zap's own. LevelSuccess is listed last,
// so the package's own level check never filters Success; Success is
// written at zap's info level, so it is suppressed once SetLevel raises
// the minimum to LevelWarn or above.
const (
	LevelDebug = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelSuccess
)

const (
	ColorReset  = "\033[0m"
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorWhite  = "\033[37m"
	ColorCyan   = "\033[36m"
	ColorGray   = "\033[90m"
)

var base *zap.SugaredLogger
var level int

func init() {
	level = LevelInfo
	base = newSugared(zapcore.InfoLevel)
}

func newSugared(min zapcore.Level) *zap.SugaredLogger {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	encoder := zapcore.NewConsoleEncoder(cfg)
	core := zapcore.NewCore(encoder, zapcore.Lock(os.Stdout), min)
	return zap.New(core, zap.AddCallerSkip(1)).Sugar()
}

// SetLevel sets the minimum level that reaches stdout.
func SetLevel(l int) {
	level = l
	zapLevel := zapcore.InfoLevel
	switch l {
	case LevelDebug:
		zapLevel = zapcore.DebugLevel
	case LevelWarn:
		zapLevel = zapcore.WarnLevel
	case LevelError, LevelSuccess:
		zapLevel = zapcore.ErrorLevel
	}
	base = newSugared(zapLevel)
}

type Fields = []interface{}

type Named struct {
	s *zap.SugaredLogger
}

// With returns a child logger carrying the given structured key/value
// pairs on every subsequent call, e.g. logger.With("lane", 2).Info("sent").
func With(kv ...interface{}) *Named {
	return &Named{s: base.With(kv...)}
}

func (n *Named) Debug(msg string, kv ...interface{}) { n.s.Debugw(msg, kv...) }
func (n *Named) Info(msg string, kv ...interface{})  { n.s.Infow(msg, kv...) }
func (n *Named) Warn(msg string, kv ...interface{})  { n.s.Warnw(msg, kv...) }
func (n *Named) Error(msg string, kv ...interface{}) { n.s.Errorw(msg, kv...) }

// Debug logs a debug message.
func Debug(format string, args ...interface{}) {
	if level <= LevelDebug {
		base.Debugf(format, args...)
	}
}

// Info logs an informational message.
func Info(format string, args ...interface{}) {
	if level <= LevelInfo {
		base.Infof(format, args...)
	}
}

// Warn logs a warning message.
func Warn(format string, args ...interface{}) {
	if level <= LevelWarn {
		base.Warnf(format, args...)
	}
}

// Error logs an error message.
func Error(format string, args ...interface{}) {
	if level <= LevelError {
		base.Errorf(format, args...)
	}
}

// Success logs a notable positive outcome (connection established,
// session drained cleanly) at info level with a green prefix.
func Success(format string, args ...interface{}) {
	if level <= LevelSuccess {
		base.Infof(ColorGreen+format+ColorReset, args...)
	}
}

// Fatal logs and exits. Reserved for cmd/ entry points; the session
// engine itself never calls this, fatal session errors are returned as
// values, not process exits.
func Fatal(format string, args ...interface{}) {
	base.Errorf(format, args...)
	os.Exit(1)
}

// InfoCyan highlights a message, used by the demo CLI for peer addresses
// and other values worth visually separating from plain info lines.
func InfoCyan(format string, args ...interface{}) {
	if level <= LevelInfo {
		base.Infof(ColorCyan+format+ColorReset, args...)
	}
}

// Section prints a cosmetic section header for the demo CLI. Not part of
// the structured log stream.
func Section(title string) {
	border := "═══════════════════════════════════════════════════════════"
	fmt.Printf("\n%s╔%s╗%s\n", ColorCyan, border, ColorReset)
	fmt.Printf("%s║%s %-57s %s║%s\n", ColorCyan, ColorReset, title, ColorCyan, ColorReset)
	fmt.Printf("%s╚%s╝%s\n\n", ColorCyan, border, ColorReset)
}

// Banner prints the application banner for the demo CLI.
func Banner(title, version string) {
	banner := `
╔═══════════════════════════════════════════════════════════╗
║                                                           ║
║   ██╗      █████╗ ███╗   ██╗███████╗███╗   ██╗███████╗   ║
║   ██║     ██╔══██╗████╗  ██║██╔════╝████╗  ██║██╔════╝   ║
║   ██║     ███████║██╔██╗ ██║█████╗  ██╔██╗ ██║█████╗     ║
║   ██║     ██╔══██║██║╚██╗██║██╔══╝  ██║╚██╗██║██╔══╝     ║
║   ███████╗██║  ██║██║ ╚████║███████╗██║ ╚████║███████╗   ║
║   ╚══════╝╚═╝  ╚═╝╚═╝  ╚═══╝╚══════╝╚═╝  ╚═══╝╚══════╝   ║
║                                                           ║
║              %s%-37s%s║
║                    %sVersion %-7s%s                      ║
║                                                           ║
╚═══════════════════════════════════════════════════════════╝
`
	fmt.Printf(banner, ColorCyan, title, ColorReset, ColorGreen, version, ColorReset)
}
