package textsteg

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// OutputLevel controls how much progress output the operations print.
type OutputLevel uint8

const (
	OutputNone  OutputLevel = iota // Print nothing.
	OutputSteps                    // Print each major step of an operation.
	OutputInfo                     // Also print information about the image and payload.
	OutputDebug                    // Also print per-block channel values.
)

func (lvl OutputLevel) String() string {
	switch lvl {
	case OutputNone:
		return "none"
	case OutputSteps:
		return "steps"
	case OutputInfo:
		return "info"
	case OutputDebug:
		return "debug"
	default:
		return "<unknown>"
	}
}

// ParseOutputLevel parses the name of an output level, as returned by OutputLevel.String.
func ParseOutputLevel(str string) (OutputLevel, error) {
	switch strings.ToLower(str) {
	case "none", "":
		return OutputNone, nil
	case "steps":
		return OutputSteps, nil
	case "info":
		return OutputInfo, nil
	case "debug":
		return OutputDebug, nil
	default:
		return OutputNone, &InvalidFormatError{fmt.Sprintf("Unknown output level '%v'.", str)}
	}
}

var (
	outputMu sync.Mutex
	outputW  io.Writer = os.Stdout
)

// SetOutput redirects operation output, which goes to stdout by default. A nil w restores stdout.
func SetOutput(w io.Writer) {
	outputMu.Lock()
	defer outputMu.Unlock()
	if w == nil {
		w = os.Stdout
	}
	outputW = w
}

func printlnLvl(outputLevel, minLevel OutputLevel, a ...interface{}) {
	if outputLevel < minLevel {
		return
	}
	outputMu.Lock()
	defer outputMu.Unlock()
	_, _ = fmt.Fprintln(outputW, a...)
}

// Logger is the structured logging interface used by the service layers.
type Logger interface {
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
	Debug(msg string, keysAndValues ...any)
}

// NoopLogger discards everything.
type NoopLogger struct{}

func (NoopLogger) Info(_ string, _ ...any)  {}
func (NoopLogger) Warn(_ string, _ ...any)  {}
func (NoopLogger) Error(_ string, _ ...any) {}
func (NoopLogger) Debug(_ string, _ ...any) {}

// outputWriter writes through whatever SetOutput last installed.
type outputWriter struct{}

func (outputWriter) Write(p []byte) (int, error) {
	outputMu.Lock()
	defer outputMu.Unlock()
	return outputW.Write(p)
}

var consoleSlog = slog.New(slog.NewTextHandler(outputWriter{}, &slog.HandlerOptions{
	Level: slog.LevelDebug,
	ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
		// Operation output carries no timestamps
		if a.Key == slog.TimeKey && len(groups) == 0 {
			return slog.Attr{}
		}
		return a
	},
}))

// ConsoleLogger prints slog text lines through the same output as the operations, gated by an OutputLevel.
// Errors and warnings print at OutputSteps, info at OutputInfo, and debug at OutputDebug.
type ConsoleLogger struct {
	Level OutputLevel
}

// NewConsoleLogger returns a ConsoleLogger printing at the given level.
func NewConsoleLogger(level OutputLevel) *ConsoleLogger {
	return &ConsoleLogger{Level: level}
}

func (l *ConsoleLogger) Info(msg string, keysAndValues ...any) {
	l.log(OutputInfo, slog.LevelInfo, msg, keysAndValues)
}

func (l *ConsoleLogger) Warn(msg string, keysAndValues ...any) {
	l.log(OutputSteps, slog.LevelWarn, msg, keysAndValues)
}

func (l *ConsoleLogger) Error(msg string, keysAndValues ...any) {
	l.log(OutputSteps, slog.LevelError, msg, keysAndValues)
}

func (l *ConsoleLogger) Debug(msg string, keysAndValues ...any) {
	l.log(OutputDebug, slog.LevelDebug, msg, keysAndValues)
}

func (l *ConsoleLogger) log(minLevel OutputLevel, level slog.Level, msg string, keysAndValues []any) {
	if l.Level < minLevel {
		return
	}
	consoleSlog.Log(context.Background(), level, msg, keysAndValues...)
}
