package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEscape(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "hello world", "hello world"},
		{"backslash", `a\b`, `a\\b`},
		{"newline", "a\nb", `a\x10b`},
		{"carriage return", "a\rb", `a\x13b`},
		{"nul", "\x00", `\x00`},
		{"escape byte", "\x1b[31m", `\x27[31m`},
		{"high byte", "\xff", `\x` + string([]byte{'0' + 25, '0' + 5})},
		{"printable bounds", "\x20\x7e", "\x20\x7e"},
		{"del", "\x7f", `\x` + string([]byte{'0' + 12, '0' + 7})},
		{"mixed", "ok\tgo", `ok\x09go`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Escape(tt.in))
		})
	}
}

func TestLoggerSplitsLevels(t *testing.T) {
	var out, errOut bytes.Buffer
	logger := NewWithWriters(&out, &errOut)

	logger.Info().Msg("server listening")
	logger.Warn().Msg("client misbehaving")

	assert.Contains(t, out.String(), "server listening")
	assert.NotContains(t, out.String(), "client misbehaving")

	assert.Contains(t, errOut.String(), "client misbehaving")
	assert.Contains(t, errOut.String(), "\x1b[31m")
	assert.Contains(t, errOut.String(), "\x1b[0m")
}

func TestLoggerStampWidth(t *testing.T) {
	var out, errOut bytes.Buffer
	logger := NewWithWriters(&out, &errOut)

	logger.Info().Msg("stamp check")

	line := strings.TrimRight(out.String(), "\n")
	require.True(t, strings.HasPrefix(line, "["))

	end := strings.IndexByte(line, ']')
	require.Greater(t, end, 0)
	stamp := line[:end+1]
	assert.Len(t, stamp, stampWidth)

	dot := strings.IndexByte(stamp, '.')
	require.Greater(t, dot, 0)
	// Three millisecond digits between the dot and the closing bracket.
	assert.Len(t, stamp[dot+1:end], 3)
}
