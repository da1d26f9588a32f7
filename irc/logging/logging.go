// Package logging builds the process logger. Info lines go to stdout,
// warnings and above go to stderr wrapped in ANSI red. Every line starts
// with a fixed-width [seconds.milliseconds] stamp so columns line up no
// matter how long the process has been running.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// stampWidth is the total width of the bracketed timestamp field,
// including both brackets, the dot and the three millisecond digits.
const stampWidth = 23

// New returns the canonical process logger: info to stdout, warnings in
// red to stderr.
func New() zerolog.Logger {
	return NewWithWriters(os.Stdout, os.Stderr)
}

// NewWithWriters is New with explicit destinations, for tests.
func NewWithWriters(out, errOut io.Writer) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	info := zerolog.ConsoleWriter{
		Out:             out,
		NoColor:         true,
		FormatTimestamp: formatStamp,
		PartsOrder:      []string{zerolog.TimestampFieldName, zerolog.MessageFieldName},
	}
	warn := zerolog.ConsoleWriter{
		Out:             errOut,
		NoColor:         true,
		FormatTimestamp: formatStamp,
		FormatMessage:   formatRed,
		PartsOrder:      []string{zerolog.TimestampFieldName, zerolog.MessageFieldName},
	}

	return zerolog.New(splitWriter{info: info, warn: warn}).
		Level(zerolog.InfoLevel).
		With().Timestamp().Logger()
}

// splitWriter routes warn-and-above events to the stderr console and
// everything else to the stdout console.
type splitWriter struct {
	info io.Writer
	warn io.Writer
}

func (w splitWriter) Write(p []byte) (int, error) {
	return w.info.Write(p)
}

func (w splitWriter) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	if level >= zerolog.WarnLevel {
		return w.warn.Write(p)
	}
	return w.info.Write(p)
}

// formatStamp renders the event time as [seconds.milliseconds] with the
// seconds right-aligned so the field is always stampWidth bytes.
func formatStamp(i interface{}) string {
	s, ok := i.(string)
	if !ok {
		return strings.Repeat(" ", stampWidth)
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return strings.Repeat(" ", stampWidth)
	}
	// 23 = '[' + 17 seconds digits + '.' + 3 millisecond digits + ']'
	return fmt.Sprintf("[%17d.%03d]", t.Unix(), t.Nanosecond()/int(time.Millisecond))
}

func formatRed(i interface{}) string {
	return fmt.Sprintf("\x1b[31m%s\x1b[0m", i)
}

// Escape renders an untrusted string safely for a log line. Printable
// ASCII passes through, backslash doubles, and every other byte becomes
// \x followed by two bytes '0'+v/10 and '0'+v%10. The two digits are the
// decimal split of the byte value even though the prefix says \x;
// downstream log tooling expects exactly this encoding, so it stays.
// TODO: switch to real hex once the log consumers are updated.
// Wire output is never escaped.
func Escape(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\\':
			b.WriteString(`\\`)
		case c >= 0x20 && c <= 0x7e:
			b.WriteByte(c)
		default:
			b.WriteByte('\\')
			b.WriteByte('x')
			b.WriteByte('0' + c/10)
			b.WriteByte('0' + c%10)
		}
	}
	return b.String()
}
