// Package logging builds the process logger from configuration.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/term"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options controls logger construction.
type Options struct {
	Level      string // trace, debug, info, warn, error
	Format     string // console, json; empty picks console on a TTY
	File       string // optional rotating log file
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// Logger wraps the zerolog logger together with the file writer that must be
// closed on shutdown.
type Logger struct {
	zerolog.Logger
	file io.WriteCloser
}

// New creates a logger writing to stderr and, when File is set, to a
// rotating file. The global zerolog logger is set to the result.
func New(opts Options) *Logger {
	return newWithConsole(opts, os.Stderr)
}

func newWithConsole(opts Options, stderr io.Writer) *Logger {
	console := selectOutput(opts.Format, stderr)

	var (
		writer = console
		file   io.WriteCloser
	)
	if opts.File != "" {
		file = &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    orDefault(opts.MaxSizeMB, 50),
			MaxBackups: orDefault(opts.MaxBackups, 3),
			MaxAge:     orDefault(opts.MaxAgeDays, 28),
			Compress:   true,
		}
		writer = zerolog.MultiLevelWriter(console, file)
	}

	logger := zerolog.New(writer).Level(ParseLevel(opts.Level)).With().Timestamp().Logger()
	log.Logger = logger
	return &Logger{Logger: logger, file: file}
}

// Close flushes and closes the log file, if any.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

// ParseLevel maps a level name to a zerolog level, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

func selectOutput(format string, stderr io.Writer) io.Writer {
	switch strings.ToLower(format) {
	case "json":
		return stderr
	case "console":
		return consoleWriter(stderr, noColor())
	}
	if f, ok := stderr.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return consoleWriter(stderr, noColor())
	}
	return stderr
}

func consoleWriter(out io.Writer, noColor bool) io.Writer {
	return zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.TimeOnly,
		NoColor:    noColor,
	}
}

func noColor() bool {
	return os.Getenv("NO_COLOR") != ""
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
