package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger is an instance of zerolog.Logger
type Logger struct {
	zerolog.Logger
}

type LoggerType uint8

const (
	ConsoleLogger LoggerType = iota
	JSONLogger
)

var (
	Root    zerolog.Logger
	Ledger  zerolog.Logger
	Storage zerolog.Logger
	Network zerolog.Logger
	Indexer zerolog.Logger
	Relayer zerolog.Logger
)

// Options for Logger
type Options struct {
	// Enable Debug loglevel, default Info
	LogLevel zerolog.Level
	Type     LoggerType
	// Output defaults to stdout
	Output io.Writer
}

func ParseLogLevel(loglevel string) (zerolog.Level, error) {
	return zerolog.ParseLevel(loglevel)
}

// ParseLoggerType accepts "console" or "json".
func ParseLoggerType(s string) (LoggerType, error) {
	switch strings.ToLower(s) {
	case "", "console":
		return ConsoleLogger, nil
	case "json":
		return JSONLogger, nil
	}
	return 0, fmt.Errorf("unknown logger type %q", s)
}

func Init(opts Options) {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	switch opts.Type {
	case ConsoleLogger:
		Root = zerolog.New(newConsoleWriter(out)).Level(opts.LogLevel).
			With().Timestamp().Logger()
	default:
		Root = zerolog.New(out).Level(opts.LogLevel).
			With().Timestamp().Logger()
	}

	Ledger = Root.With().Str("component", "ledger").Logger()
	Storage = Root.With().Str("component", "storage").Logger()
	Network = Root.With().Str("component", "network").Logger()
	Indexer = Root.With().Str("component", "indexer").Logger()
	Relayer = Root.With().Str("component", "relayer").Logger()
}

func newConsoleWriter(out io.Writer) zerolog.ConsoleWriter {
	cw := zerolog.ConsoleWriter{Out: out, NoColor: true, TimeFormat: time.RFC3339}

	cw.FormatLevel = func(i interface{}) string {
		return strings.ToUpper(fmt.Sprintf("| %-6s|", i))
	}

	cw.FormatMessage = func(i interface{}) string {
		return fmt.Sprintf("message: \"%s\" |", i)
	}

	cw.FormatFieldName = func(i interface{}) string {
		return fmt.Sprintf("\"%s\": ", i)
	}

	cw.FormatFieldValue = func(i interface{}) string {
		return fmt.Sprintf("\"%s\" |", i)
	}

	cw.FormatErrFieldValue = func(i interface{}) string {
		return fmt.Sprintf(" %s |", i)
	}
	return cw
}
