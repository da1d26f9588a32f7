package irc

import (
	"fmt"

	"github.com/irczt/irczt/irc/container"
)

type userKind int

const (
	kindClient userKind = iota
	kindLocalBot
)

// unknownIdentity is the conventional placeholder for identity fields
// that have not been supplied yet during registration.
const unknownIdentity = "*"

// maxNickLen caps nickname length in bytes.
const maxNickLen = 9

// User is the shared core of a connected client and a local bot:
// identity, channel membership and outbound delivery. Exactly one of
// client and bot is set, matching kind.
type User struct {
	server   *Server
	kind     userKind
	client   *Client
	bot      *LocalBot
	nick     string
	username string
	realname string
	channels *container.Map[string, *Channel]
}

func newUser(s *Server, kind userKind) *User {
	return &User{
		server:   s,
		kind:     kind,
		channels: container.NewMap[string, *Channel](),
	}
}

// Nickname returns the nickname, or "*" before NICK succeeds.
func (u *User) Nickname() string {
	if u.nick == "" {
		return unknownIdentity
	}
	return u.nick
}

// HasNickname reports whether NICK has succeeded.
func (u *User) HasNickname() bool {
	return u.nick != ""
}

// Username returns the username, or "*" before USER succeeds.
func (u *User) Username() string {
	if u.username == "" {
		return unknownIdentity
	}
	return u.username
}

// Realname returns the realname, or "*" before USER succeeds.
func (u *User) Realname() string {
	if u.realname == "" {
		return unknownIdentity
	}
	return u.realname
}

// registered reports whether both halves of the handshake completed.
func (u *User) registered() bool {
	return u.nick != "" && u.username != ""
}

// setNick updates the nickname and the server's nickname index. The new
// key is inserted before the old one is removed so a lookup never
// briefly misses the user. Channel member sets are keyed by nickname and
// are rekeyed in the same way.
func (u *User) setNick(nick string) {
	old := u.nick
	u.nick = nick
	u.server.nicks.Set(nick, u)
	if old != "" && old != nick {
		u.server.nicks.Delete(old)
	}
	u.channels.Ascend(func(_ string, ch *Channel) bool {
		ch.members.Set(nick, u)
		if old != "" && old != nick {
			ch.members.Delete(old)
		}
		return true
	})
}

// setUser records the identity supplied by USER. Username and realname
// always arrive together.
func (u *User) setUser(username, realname string) {
	u.username = username
	u.realname = realname
}

// sendRaw delivers one wire line to the user. Bots consume and discard.
func (u *User) sendRaw(line string) {
	if u.kind == kindClient {
		u.client.sendRaw(line)
	}
}

// sendNumeric sends a server-prefixed numeric reply addressed to this
// user, or to "*" while the nickname is unknown.
func (u *User) sendNumeric(code int, rest string) {
	u.sendRaw(fmt.Sprintf(":%s %03d %s %s", u.server.name(), code, u.Nickname(), rest))
}

// partChannel broadcasts the PART and drops the membership on both
// sides.
func (u *User) partChannel(ch *Channel, message string) {
	ch.part(u, message)
	u.channels.Delete(ch.name)
}

// quit announces the departure exactly once to every other user sharing
// at least one channel, then leaves all channels silently. A user in
// three shared channels sees one QUIT line, not three.
func (u *User) quit(reason string) {
	line := fmt.Sprintf(":%s QUIT :%s", u.Nickname(), reason)

	observers := container.NewMap[string, *User]()
	u.channels.Ascend(func(_ string, ch *Channel) bool {
		ch.members.Ascend(func(nick string, member *User) bool {
			if member != u {
				observers.Set(nick, member)
			}
			return true
		})
		return true
	})
	observers.Ascend(func(_ string, member *User) bool {
		member.sendRaw(line)
		return true
	})

	for _, name := range u.channels.Keys() {
		if ch, ok := u.channels.Get(name); ok {
			ch.quit(u)
		}
	}
	u.channels = container.NewMap[string, *Channel]()
}

// isValidNick checks the nickname grammar: an ASCII letter first, then
// letters, digits or -[]\`^{}, at most maxNickLen bytes. Stricter than
// RFC 2812, which also allows _ and |.
func isValidNick(nick string) bool {
	if len(nick) == 0 || len(nick) > maxNickLen {
		return false
	}
	if !isLetter(nick[0]) {
		return false
	}
	for i := 1; i < len(nick); i++ {
		c := nick[i]
		if isLetter(c) || c >= '0' && c <= '9' {
			continue
		}
		switch c {
		case '-', '[', ']', '\\', '`', '^', '{', '}':
		default:
			return false
		}
	}
	return true
}

func isLetter(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}
