/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package log provides structured logging for the bucketgrid packages.
// Messages are encoded by ssgreg/logf and written asynchronously to stdout, stderr or a rotated file.
package log

import (
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ssgreg/logf"
	"github.com/ssgreg/logftext"
	"gopkg.in/natefinch/lumberjack.v2"
)

// FieldLogger writes messages with structured fields.
type FieldLogger interface {
	With(fs ...Field) FieldLogger

	Debug(msg string, fs ...Field)
	Info(msg string, fs ...Field)
	Warn(msg string, fs ...Field)
	Error(msg string, fs ...Field)
}

// CloseFunc flushes buffered messages and stops writing.
type CloseFunc func()

// NewLogger creates a logger writing to the output from cfg.
// The returned CloseFunc must be called before the process exits, otherwise buffered messages are lost.
func NewLogger(cfg *Config) (FieldLogger, CloseFunc) {
	return newLogger(cfg, openOutput(cfg))
}

// NewDisabledLogger creates a logger that drops all messages.
func NewDisabledLogger() FieldLogger {
	return FromLogf(logf.NewDisabledLogger())
}

// FromLogf wraps logf.Logger into FieldLogger.
func FromLogf(l *logf.Logger) FieldLogger {
	return logfLogger{l}
}

// NewPrefixedLogger creates a logger that prepends prefix to the messages of delegate.
// It is used to tell apart messages of embedded libraries (e.g. "badger: ").
func NewPrefixedLogger(delegate FieldLogger, prefix string) FieldLogger {
	return prefixedLogger{delegate: delegate, prefix: prefix}
}

func newLogger(cfg *Config, w io.Writer) (FieldLogger, CloseFunc) {
	channel, closeChannel := logf.NewChannelWriter(logf.ChannelWriterConfig{
		Appender:          newAppender(cfg, w),
		EnableSyncOnError: true,
	})
	l := logf.NewLogger(logfLevel(cfg.Level), channel).With(logf.Int("pid", os.Getpid()))
	if cfg.AddCaller {
		// Skip the frame of logfLogger method.
		l = l.WithCaller().WithCallerSkip(1)
	}
	return logfLogger{l}, CloseFunc(closeChannel)
}

func openOutput(cfg *Config) io.Writer {
	switch cfg.Output {
	case OutputStderr:
		return os.Stderr
	case OutputFile:
		rotation := cfg.File.Rotation
		return &lumberjack.Logger{
			Filename:   expandFilePath(cfg.File.Path, time.Now()),
			MaxSize:    int(rotation.MaxSize >> 20),
			MaxBackups: rotation.MaxBackups,
			MaxAge:     rotation.MaxAgeDays,
			Compress:   rotation.Compress,
			LocalTime:  rotation.LocalTimeInNames,
		}
	default:
		return os.Stdout
	}
}

func newAppender(cfg *Config, w io.Writer) logf.Appender {
	var encodeErr logf.ErrorEncoder
	if cfg.Error.NoVerbose || cfg.Error.VerboseSuffix != "" {
		encodeErr = logf.NewErrorEncoder(logf.ErrorEncoderConfig{
			NoVerboseField:     cfg.Error.NoVerbose,
			VerboseFieldSuffix: cfg.Error.VerboseSuffix,
		})
	}
	if cfg.Format == FormatText {
		noColor := cfg.NoColor
		return logftext.NewAppender(w, logftext.EncoderConfig{
			NoColor:     &noColor,
			EncodeTime:  logf.RFC3339NanoTimeEncoder,
			EncodeError: encodeErr,
		})
	}
	return logf.NewWriteAppender(w, logf.NewJSONEncoder(logf.JSONEncoderConfig{
		FieldKeyTime: "time",
		EncodeTime:   logf.RFC3339NanoTimeEncoder,
		EncodeError:  encodeErr,
	}))
}

// expandFilePath replaces {{pid}} and {{starttime}} placeholders in the log file path.
func expandFilePath(path string, now time.Time) string {
	return strings.NewReplacer(
		"{{pid}}", strconv.Itoa(os.Getpid()),
		"{{starttime}}", now.Format("200601021504"),
	).Replace(path)
}

func logfLevel(level Level) logf.Level {
	switch level {
	case LevelDebug:
		return logf.LevelDebug
	case LevelWarn:
		return logf.LevelWarn
	case LevelError:
		return logf.LevelError
	default:
		return logf.LevelInfo
	}
}

type logfLogger struct {
	l *logf.Logger
}

func (l logfLogger) With(fs ...Field) FieldLogger { return logfLogger{l.l.With(fs...)} }
func (l logfLogger) Debug(msg string, fs ...Field) { l.l.Debug(msg, fs...) }
func (l logfLogger) Info(msg string, fs ...Field) { l.l.Info(msg, fs...) }
func (l logfLogger) Warn(msg string, fs ...Field) { l.l.Warn(msg, fs...) }
func (l logfLogger) Error(msg string, fs ...Field) { l.l.Error(msg, fs...) }

type prefixedLogger struct {
	delegate FieldLogger
	prefix   string
}

func (l prefixedLogger) With(fs ...Field) FieldLogger {
	return prefixedLogger{delegate: l.delegate.With(fs...), prefix: l.prefix}
}

func (l prefixedLogger) Debug(msg string, fs ...Field) { l.delegate.Debug(l.prefix+msg, fs...) }
func (l prefixedLogger) Info(msg string, fs ...Field) { l.delegate.Info(l.prefix+msg, fs...) }
func (l prefixedLogger) Warn(msg string, fs ...Field) { l.delegate.Warn(l.prefix+msg, fs...) }
func (l prefixedLogger) Error(msg string, fs ...Field) { l.delegate.Error(l.prefix+msg, fs...) }
