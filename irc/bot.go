package irc

import (
	"strings"

	"github.com/irczt/irczt/irc/config"
	"github.com/irczt/irczt/irc/logging"
)

// botMessageLimit bounds one composed bot message in bytes.
const botMessageLimit = 1024

// LocalBot is an in-process pseudo-user. It shares the User abstraction
// and channel discipline with real clients but never touches a socket:
// inbound lines addressed to it are discarded, and its own activity is
// driven by the server tick instead of input.
type LocalBot struct {
	user           *User
	channelsTarget int
	leaveRate      float64
	messageRate    float64
	messageLength  int
}

// spawnBot creates a bot with parameters drawn from the configured
// ranges, registers it and runs its first tick. An invalid or taken
// nickname skips the bot with a warning.
func (s *Server) spawnBot(nick string) {
	if !isValidNick(nick) {
		s.log.Warn().Msgf("Skipping bot with invalid nickname %s", logging.Escape(nick))
		return
	}
	if s.nicks.Has(nick) {
		s.log.Warn().Msgf("Skipping bot %s: nickname already in use", logging.Escape(nick))
		return
	}

	bots := &s.config.Bots
	b := &LocalBot{
		channelsTarget: s.intBetween(bots.ChannelsTarget),
		leaveRate:      s.floatBetween(bots.LeaveRate),
		messageRate:    s.floatBetween(bots.MessageRate),
		messageLength:  s.intBetween(bots.MessageLength),
	}
	b.user = newUser(s, kindLocalBot)
	b.user.bot = b
	b.user.setNick(nick)
	b.user.setUser(nick, nick)
	s.bots = append(s.bots, b)

	s.log.Info().Msgf("Spawned bot %s (channels=%d leave=%.2f message=%.2f length=%d)",
		nick, b.channelsTarget, b.leaveRate, b.messageRate, b.messageLength)
	b.tick()
}

func (s *Server) intBetween(r config.IntRange) int {
	if r.Max <= r.Min {
		return r.Min
	}
	return r.Min + s.rng.Intn(r.Max-r.Min+1)
}

func (s *Server) floatBetween(r config.FloatRange) float64 {
	return r.Min + s.rng.Float64()*(r.Max-r.Min)
}

// tick runs one round of bot activity: top up channel membership, maybe
// leave some channels, maybe chat in the rest.
func (b *LocalBot) tick() {
	b.joinChannels()
	b.leaveChannels()
	b.sendMessages()
}

// joinChannels tops membership up to the target. Walking the unjoined
// channels, the i-th is taken with probability need/remaining, which
// picks every subset of the right size with equal probability.
func (b *LocalBot) joinChannels() {
	s := b.user.server
	need := b.channelsTarget - b.user.channels.Len()
	if need <= 0 {
		return
	}

	var unjoined []*Channel
	s.channels.Ascend(func(name string, ch *Channel) bool {
		if !b.user.channels.Has(name) {
			unjoined = append(unjoined, ch)
		}
		return true
	})

	for i, ch := range unjoined {
		if need == 0 {
			break
		}
		remaining := len(unjoined) - i
		if s.rng.Intn(remaining) < need {
			b.user.channels.Set(ch.name, ch)
			ch.join(b.user)
			s.fireEvent(Event{Type: EventJoin, Nick: b.user.nick, Channel: ch.name})
			need--
		}
	}
}

// leaveChannels rolls the leave rate for every joined channel. The key
// snapshot keeps the walk safe while memberships are removed.
func (b *LocalBot) leaveChannels() {
	s := b.user.server
	for _, name := range b.user.channels.Keys() {
		if s.rng.Float64() >= b.leaveRate {
			continue
		}
		ch, ok := b.user.channels.Get(name)
		if !ok {
			continue
		}
		b.user.partChannel(ch, b.user.Nickname())
		s.fireEvent(Event{Type: EventPart, Nick: b.user.nick, Channel: name})
	}
}

// sendMessages rolls the message rate for every joined channel and chats
// there on success.
func (b *LocalBot) sendMessages() {
	s := b.user.server
	if len(s.config.Words) == 0 {
		return
	}
	b.user.channels.Ascend(func(name string, ch *Channel) bool {
		if s.rng.Float64() >= b.messageRate {
			return true
		}
		text := b.composeMessage(s.config.Words)
		if text == "" {
			return true
		}
		ch.sendPrivmsg(b.user, text)
		s.fireEvent(Event{Type: EventPrivmsg, Nick: b.user.nick, Target: name, Text: text})
		return true
	})
}

// composeMessage draws a word count uniformly from [1, 2*length-1] and
// concatenates that many random words, stopping early rather than exceed
// botMessageLimit.
func (b *LocalBot) composeMessage(words []string) string {
	s := b.user.server
	count := 1 + s.rng.Intn(2*b.messageLength-1)

	var sb strings.Builder
	for i := 0; i < count; i++ {
		word := words[s.rng.Intn(len(words))]
		need := len(word)
		if sb.Len() > 0 {
			need++
		}
		if sb.Len()+need > botMessageLimit {
			break
		}
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(word)
	}
	return sb.String()
}
