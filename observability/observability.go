// Package observability defines the structured logging hooks used across the
// module. Components accept a [Logger] and default to [NopLogger].
package observability

import (
	"fmt"
	"log"
	"strings"
)

// Logger is a leveled, structured logger.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	With(fields ...Field) Logger
}

// Field is a single key/value pair attached to a log entry.
type Field interface {
	Key() string
	Value() interface{}
}

type stringField struct{ key, val string }

func (f stringField) Key() string        { return f.key }
func (f stringField) Value() interface{} { return f.val }

type intField struct {
	key string
	val int
}

func (f intField) Key() string        { return f.key }
func (f intField) Value() interface{} { return f.val }

type int64Field struct {
	key string
	val int64
}

func (f int64Field) Key() string        { return f.key }
func (f int64Field) Value() interface{} { return f.val }

type boolField struct {
	key string
	val bool
}

func (f boolField) Key() string        { return f.key }
func (f boolField) Value() interface{} { return f.val }

type errorField struct {
	key string
	err error
}

func (f errorField) Key() string        { return f.key }
func (f errorField) Value() interface{} { return f.err }

func String(key, value string) Field      { return stringField{key, value} }
func Int(key string, value int) Field     { return intField{key, value} }
func Int64(key string, value int64) Field { return int64Field{key, value} }
func Bool(key string, value bool) Field   { return boolField{key, value} }
func Error(key string, err error) Field   { return errorField{key, err} }

// Err is shorthand for Error("error", err).
func Err(err error) Field { return errorField{"error", err} }

// NopLogger discards everything.
type NopLogger struct{}

func (NopLogger) Debug(string, ...Field) {}
func (NopLogger) Info(string, ...Field)  {}
func (NopLogger) Warn(string, ...Field)  {}
func (NopLogger) Error(string, ...Field) {}
func (NopLogger) With(...Field) Logger   { return NopLogger{} }

// OrNop returns l, or a NopLogger when l is nil.
func OrNop(l Logger) Logger {
	if l == nil {
		return NopLogger{}
	}
	return l
}

// Level orders log severities.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String returns the upper-case level tag used in log lines.
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
		return fmt.Sprintf("LEVEL(%d)", int(l))
	}
}

// StdLogger writes entries through a standard library *log.Logger as
// "LEVEL msg key=value ...".
type StdLogger struct {
	out    *log.Logger
	min    Level
	fields []Field
}

// NewStdLogger returns a Logger that drops entries below min.
// A nil out uses log.Default().
func NewStdLogger(out *log.Logger, min Level) *StdLogger {
	if out == nil {
		out = log.Default()
	}
	return &StdLogger{out: out, min: min}
}

func (l *StdLogger) Debug(msg string, fields ...Field) { l.emit(LevelDebug, msg, fields) }
func (l *StdLogger) Info(msg string, fields ...Field)  { l.emit(LevelInfo, msg, fields) }
func (l *StdLogger) Warn(msg string, fields ...Field)  { l.emit(LevelWarn, msg, fields) }
func (l *StdLogger) Error(msg string, fields ...Field) { l.emit(LevelError, msg, fields) }

// With returns a child logger that prepends fields to every entry.
func (l *StdLogger) With(fields ...Field) Logger {
	merged := make([]Field, 0, len(l.fields)+len(fields))
	merged = append(merged, l.fields...)
	merged = append(merged, fields...)
	return &StdLogger{out: l.out, min: l.min, fields: merged}
}

func (l *StdLogger) emit(level Level, msg string, fields []Field) {
	if level < l.min {
		return
	}
	var sb strings.Builder
	sb.WriteString(level.String())
	sb.WriteByte(' ')
	sb.WriteString(msg)
	for _, f := range l.fields {
		writeField(&sb, f)
	}
	for _, f := range fields {
		writeField(&sb, f)
	}
	l.out.Print(sb.String())
}

func writeField(sb *strings.Builder, f Field) {
	sb.WriteByte(' ')
	sb.WriteString(f.Key())
	sb.WriteByte('=')
	switch v := f.Value().(type) {
	case string:
		if strings.ContainsAny(v, " \t\"=") || v == "" {
			fmt.Fprintf(sb, "%q", v)
		} else {
			sb.WriteString(v)
		}
	case error:
		if v == nil {
			sb.WriteString("<nil>")
		} else {
			fmt.Fprintf(sb, "%q", v.Error())
		}
	default:
		fmt.Fprint(sb, v)
	}
}
