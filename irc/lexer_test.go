package irc

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLexerReadWord(t *testing.T) {
	l := newLexer([]byte("JOIN   #lobby trailing"))

	w, ok := l.readWord()
	require.True(t, ok)
	assert.Equal(t, "JOIN", string(w))

	w, ok = l.readWord()
	require.True(t, ok)
	assert.Equal(t, "#lobby", string(w))

	w, ok = l.readWord()
	require.True(t, ok)
	assert.Equal(t, "trailing", string(w))

	_, ok = l.readWord()
	assert.False(t, ok)
	assert.True(t, l.atEnd())
}

func TestLexerReadParam(t *testing.T) {
	l := newLexer([]byte("PRIVMSG #lobby :hello  world"))

	w, ok := l.readParam()
	require.True(t, ok)
	assert.Equal(t, "PRIVMSG", string(w))

	w, ok = l.readParam()
	require.True(t, ok)
	assert.Equal(t, "#lobby", string(w))

	w, ok = l.readParam()
	require.True(t, ok)
	assert.Equal(t, "hello  world", string(w))

	_, ok = l.readParam()
	assert.False(t, ok)
}

func TestLexerEmptyTrailing(t *testing.T) {
	l := newLexer([]byte("TOPIC #lobby :"))

	l.readWord()
	l.readWord()

	w, ok := l.readParam()
	require.True(t, ok)
	assert.Empty(t, string(w))
	assert.True(t, l.atEnd())
}

func TestLexerTrailingWithColon(t *testing.T) {
	l := newLexer([]byte(":body with : colon"))
	w, ok := l.readParam()
	require.True(t, ok)
	assert.Equal(t, "body with : colon", string(w))
}

func TestLexerReadListItem(t *testing.T) {
	l := newLexer([]byte("#a,#b,#c"))

	var items []string
	for {
		item, ok := l.readListItem()
		if !ok {
			break
		}
		items = append(items, string(item))
	}
	assert.Equal(t, []string{"#a", "#b", "#c"}, items)
}

func TestLexerReadListItemSingle(t *testing.T) {
	l := newLexer([]byte("#only"))
	item, ok := l.readListItem()
	require.True(t, ok)
	assert.Equal(t, "#only", string(item))

	_, ok = l.readListItem()
	assert.False(t, ok)
}

func TestLexerRest(t *testing.T) {
	l := newLexer([]byte("WHO #lobby extra bytes"))
	l.readWord()
	l.readWord()
	assert.Equal(t, " extra bytes", string(l.rest()))
}

func TestLexerAliasesInput(t *testing.T) {
	input := []byte("NICK alice")
	l := newLexer(input)
	l.readWord()
	w, _ := l.readWord()

	// The returned slice shares backing storage with the input.
	input[5] = 'A'
	assert.Equal(t, "Alice", string(w))
}

// Reading params and rejoining them recovers the original parameter
// sequence for whitespace-normalized messages.
func TestLexerParamRoundTrip(t *testing.T) {
	tests := []string{
		"NICK alice",
		"USER alice x x :Alice A",
		"PRIVMSG #a,#b :multi word text",
		"TOPIC #lobby",
	}
	for _, msg := range tests {
		l := newLexer([]byte(msg))
		var parts []string
		for {
			p, ok := l.readParam()
			if !ok {
				break
			}
			parts = append(parts, string(p))
		}
		joined := strings.Join(parts, " ")
		normalized := strings.ReplaceAll(msg, ":", "")
		assert.Equal(t, normalized, joined, "message %q", msg)
	}
}
