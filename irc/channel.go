package irc

import (
	"fmt"

	"github.com/irczt/irczt/irc/container"
)

// Channel is a named room with an optional topic and an ordered member
// set. Channels come from the preset list at startup and are destroyed
// only at shutdown, after every member is gone.
type Channel struct {
	server  *Server
	name    string
	topic   string
	members *container.Map[string, *User]
}

func newChannel(s *Server, name string) *Channel {
	return &Channel{
		server:  s,
		name:    name,
		members: container.NewMap[string, *User](),
	}
}

// Name returns the immutable channel name.
func (ch *Channel) Name() string {
	return ch.name
}

// Topic returns the current topic, empty when none is set.
func (ch *Channel) Topic() string {
	return ch.topic
}

// broadcast sends one wire line to every member in member order.
func (ch *Channel) broadcast(line string) {
	ch.members.Ascend(func(_ string, member *User) bool {
		member.sendRaw(line)
		return true
	})
}

// join adds the user to the member set and plays the join sequence: the
// JOIN broadcast to every member including the joiner, the topic reply,
// one name reply per member, and the end-of-names marker. The caller has
// already recorded the channel in the user's channel set.
func (ch *Channel) join(u *User) {
	ch.members.Set(u.nick, u)
	ch.broadcast(fmt.Sprintf(":%s JOIN %s", u.Nickname(), ch.name))
	ch.sendTopic(u)
	ch.members.Ascend(func(nick string, _ *User) bool {
		u.sendNumeric(RPL_NAMREPLY, fmt.Sprintf("= %s :%s", ch.name, nick))
		return true
	})
	u.sendNumeric(RPL_ENDOFNAMES, fmt.Sprintf("%s :End of /NAMES list", ch.name))
}

// part broadcasts the departure to every member, the departing user
// included, then removes the membership.
func (ch *Channel) part(u *User, message string) {
	ch.broadcast(fmt.Sprintf(":%s PART %s :%s", u.Nickname(), ch.name, message))
	ch.remove(u)
}

// quit removes the membership with no notification of its own; the QUIT
// fan-out already happened once per observer in User.quit.
func (ch *Channel) quit(u *User) {
	ch.remove(u)
}

func (ch *Channel) remove(u *User) {
	if !ch.members.Delete(u.nick) {
		panic(fmt.Sprintf("channel %s: removing %s who is not a member", ch.name, u.Nickname()))
	}
}

// topicate sets or clears the topic when newTopic is non-nil and reports
// the result to every member; with nil it reports the current topic to
// the requester alone.
func (ch *Channel) topicate(u *User, newTopic *string) {
	if newTopic == nil {
		ch.sendTopic(u)
		return
	}
	ch.topic = *newTopic
	ch.members.Ascend(func(_ string, member *User) bool {
		ch.sendTopic(member)
		return true
	})
}

func (ch *Channel) sendTopic(to *User) {
	if ch.topic == "" {
		to.sendNumeric(RPL_NOTOPIC, fmt.Sprintf("%s :No topic is set", ch.name))
		return
	}
	to.sendNumeric(RPL_TOPIC, fmt.Sprintf("%s :%s", ch.name, ch.topic))
}

// sendPrivmsg fans the text out to every member except the sender.
func (ch *Channel) sendPrivmsg(sender *User, text string) {
	line := fmt.Sprintf(":%s PRIVMSG %s :%s", sender.Nickname(), ch.name, text)
	ch.members.Ascend(func(_ string, member *User) bool {
		if member != sender {
			member.sendRaw(line)
		}
		return true
	})
}

// destroy tears the channel down at shutdown. Every user has been
// destroyed by then, so a remaining member is a bookkeeping bug.
func (ch *Channel) destroy() {
	if n := ch.members.Len(); n != 0 {
		panic(fmt.Sprintf("channel %s destroyed with %d members", ch.name, n))
	}
}
