package irc

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserIdentityDefaults(t *testing.T) {
	s := newUnitServer(t)
	u := newUser(s, kindClient)

	assert.Equal(t, "*", u.Nickname())
	assert.Equal(t, "*", u.Username())
	assert.Equal(t, "*", u.Realname())
	assert.False(t, u.HasNickname())
	assert.False(t, u.registered())

	u.setNick("alice")
	assert.Equal(t, "alice", u.Nickname())
	assert.True(t, u.HasNickname())
	assert.False(t, u.registered())

	u.setUser("alice", "Alice A")
	assert.Equal(t, "alice", u.Username())
	assert.Equal(t, "Alice A", u.Realname())
	assert.True(t, u.registered())
}

func TestIsValidNick(t *testing.T) {
	valid := []string{"a", "alice", "Alice", "a1", "a-b", "a[b]", "a\\b", "a`b", "a^b", "a{b}", "ninechars"}
	for _, nick := range valid {
		assert.True(t, isValidNick(nick), "nick %q", nick)
	}

	invalid := []string{"", "1abc", "-abc", "[abc", "tencharss!", "tennumber1x", "a_b", "a|b", "a b", "a.b", "a!b"}
	for _, nick := range invalid {
		assert.False(t, isValidNick(nick), "nick %q", nick)
	}
}

func TestSetNickMaintainsIndex(t *testing.T) {
	s := newUnitServer(t)
	u := newUser(s, kindClient)

	u.setNick("alice")
	got, ok := s.nicks.Get("alice")
	require.True(t, ok)
	assert.Same(t, u, got)

	u.setNick("alicia")
	_, ok = s.nicks.Get("alice")
	assert.False(t, ok)
	got, ok = s.nicks.Get("alicia")
	require.True(t, ok)
	assert.Same(t, u, got)
	assert.Equal(t, 1, s.nicks.Len())
}

func TestSetNickRekeysChannelMemberships(t *testing.T) {
	s := newUnitServer(t, "#a", "#b")
	c, _ := addUnitClient(t, s, "alice")
	require.NoError(t, c.processMessage([]byte("JOIN #a,#b")))

	c.user.setNick("alicia")

	for _, name := range []string{"#a", "#b"} {
		ch, _ := s.channels.Get(name)
		_, hasOld := ch.members.Get("alice")
		assert.False(t, hasOld, "channel %s still holds the old key", name)
		member, hasNew := ch.members.Get("alicia")
		require.True(t, hasNew)
		assert.Same(t, c.user, member)
	}
	checkMembershipInvariant(t, s)
}

// checkMembershipInvariant verifies that the user/channel graph is
// bidirectionally consistent.
func checkMembershipInvariant(t *testing.T, s *Server) {
	t.Helper()
	s.channels.Ascend(func(chName string, ch *Channel) bool {
		ch.members.Ascend(func(nick string, member *User) bool {
			got, ok := member.channels.Get(chName)
			assert.True(t, ok, "member %s of %s does not know the channel", nick, chName)
			assert.Same(t, ch, got)
			return true
		})
		return true
	})
	s.nicks.Ascend(func(nick string, u *User) bool {
		u.channels.Ascend(func(chName string, ch *Channel) bool {
			member, ok := ch.members.Get(nick)
			assert.True(t, ok, "channel %s does not hold its member %s", chName, nick)
			assert.Same(t, u, member)
			return true
		})
		return true
	})
}

func TestNicknameUniquenessAcrossUsers(t *testing.T) {
	s := newUnitServer(t)
	addUnitClient(t, s, "alice")

	intruder, fc := addUnitClient(t, s, "eve")
	require.NoError(t, intruder.processMessage([]byte("NICK alice")))

	lines := fc.lines()
	require.Len(t, lines, 1)
	assert.Equal(t, ":irc.test 433 eve alice :Nickname is already in use", lines[0])
	assert.Equal(t, "eve", intruder.user.nick)
	assert.Equal(t, 2, s.nicks.Len())
}

func TestQuitDeduplicatesAcrossSharedChannels(t *testing.T) {
	s := newUnitServer(t, "#a", "#b", "#c")

	alice, _ := addUnitClient(t, s, "alice")
	bob, bobConn := addUnitClient(t, s, "bob")
	carol, carolConn := addUnitClient(t, s, "carol")

	for _, c := range []*Client{alice, bob, carol} {
		require.NoError(t, c.processMessage([]byte("JOIN #a,#b,#c")))
	}
	bobConn.reset()
	carolConn.reset()

	alice.user.quit("bye")

	for name, fc := range map[string]*fakeConn{"bob": bobConn, "carol": carolConn} {
		quits := 0
		for _, line := range fc.lines() {
			if line == ":alice QUIT :bye" {
				quits++
			}
		}
		assert.Equal(t, 1, quits, "%s must see exactly one QUIT", name)
	}

	assert.Equal(t, 0, alice.user.channels.Len())
	for _, name := range []string{"#a", "#b", "#c"} {
		ch, _ := s.channels.Get(name)
		assert.False(t, ch.members.Has("alice"), "channel %s still holds the quitter", name)
		assert.Equal(t, 2, ch.members.Len())
	}
	checkMembershipInvariant(t, s)
}

func TestQuitWithNoChannelsIsHarmless(t *testing.T) {
	s := newUnitServer(t)
	alice, fc := addUnitClient(t, s, "alice")

	alice.user.quit("bye")
	assert.Empty(t, fc.lines())
}

func TestBotUserDiscardsDelivery(t *testing.T) {
	s := newUnitServer(t, "#a")
	bot := newUser(s, kindLocalBot)
	bot.setNick("robo")
	bot.setUser("robo", "robo")

	// Delivery to a bot is a no-op rather than a crash.
	bot.sendRaw(":alice PRIVMSG robo :hi")
	bot.sendNumeric(RPL_TOPIC, "#a :topic")
}

func TestManyUsersKeepIndexOrdered(t *testing.T) {
	s := newUnitServer(t)
	for i := 0; i < 10; i++ {
		addUnitClient(t, s, fmt.Sprintf("user%c", 'j'-i))
	}
	keys := s.nicks.Keys()
	for i := 1; i < len(keys); i++ {
		assert.Less(t, keys[i-1], keys[i])
	}
}
