package talespin

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"
)

const writerTimeLayout = "2006-01-02 15:04:05"

type logLevel string

const (
	levelDebug logLevel = "DEBUG"
	levelInfo  logLevel = "INFO"
	levelWarn  logLevel = "WARN"
	levelError logLevel = "ERROR"
)

type field struct {
	key   string
	value any
}

// writerLogger prints one plain line per entry. Children made by WithField share the
// parent's writer and lock.
type writerLogger struct {
	out    *lockedWriter
	fields []field // sorted by key
	suffix string  // rendered fields, cached
}

type lockedWriter struct {
	sync.Mutex
	w io.Writer
}

// NewWriterLogger logs to w as "[time] LEVEL [k=v, ...]: message".
func NewWriterLogger(w io.Writer) Logger {
	return &writerLogger{out: &lockedWriter{w: w}}
}

func (l *writerLogger) WithField(key string, value any) Logger {
	fields := make([]field, 0, len(l.fields)+1)
	for _, f := range l.fields {
		if f.key != key {
			fields = append(fields, f)
		}
	}
	fields = append(fields, field{key: key, value: value})
	sort.Slice(fields, func(i, j int) bool { return fields[i].key < fields[j].key })

	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = fmt.Sprintf("%s=%v", f.key, f.value)
	}
	return &writerLogger{
		out:    l.out,
		fields: fields,
		suffix: " [" + strings.Join(parts, ", ") + "]",
	}
}

func (l *writerLogger) emit(level logLevel, msg string) {
	line := fmt.Sprintf("[%s] %s%s: %s\n",
		time.Now().Format(writerTimeLayout), level, l.suffix, strings.TrimRight(msg, "\n"))

	l.out.Lock()
	defer l.out.Unlock()
	_, _ = io.WriteString(l.out.w, line)
}

func (l *writerLogger) Debug(args ...any)            { l.emit(levelDebug, fmt.Sprint(args...)) }
func (l *writerLogger) Debugf(f string, args ...any) { l.emit(levelDebug, fmt.Sprintf(f, args...)) }
func (l *writerLogger) Debugln(args ...any)          { l.emit(levelDebug, fmt.Sprintln(args...)) }
func (l *writerLogger) Info(args ...any)             { l.emit(levelInfo, fmt.Sprint(args...)) }
func (l *writerLogger) Infof(f string, args ...any)  { l.emit(levelInfo, fmt.Sprintf(f, args...)) }
func (l *writerLogger) Infoln(args ...any)           { l.emit(levelInfo, fmt.Sprintln(args...)) }
func (l *writerLogger) Warn(args ...any)             { l.emit(levelWarn, fmt.Sprint(args...)) }
func (l *writerLogger) Warnf(f string, args ...any)  { l.emit(levelWarn, fmt.Sprintf(f, args...)) }
func (l *writerLogger) Warnln(args ...any)           { l.emit(levelWarn, fmt.Sprintln(args...)) }
func (l *writerLogger) Error(args ...any)            { l.emit(levelError, fmt.Sprint(args...)) }
func (l *writerLogger) Errorf(f string, args ...any) { l.emit(levelError, fmt.Sprintf(f, args...)) }
func (l *writerLogger) Errorln(args ...any)          { l.emit(levelError, fmt.Sprintln(args...)) }
