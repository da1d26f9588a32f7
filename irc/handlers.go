package irc

import (
	"fmt"
)

// handleNick validates and applies a nickname change. Repeating the
// current nickname is accepted without effect.
func (c *Client) handleNick(lex *lexer) error {
	nickBytes, ok := lex.readParam()
	if !ok {
		c.user.sendNumeric(ERR_NONICKNAMEGIVEN, ":No nickname given")
		return nil
	}
	c.acceptEndOfMessage(lex, "NICK")

	nick := string(nickBytes)
	if !isValidNick(nick) {
		c.user.sendNumeric(ERR_ERRONEUSNICKNAME, fmt.Sprintf("%s :Erroneous nickname", nick))
		return nil
	}
	if existing, found := c.user.server.nicks.Get(nick); found {
		if existing == c.user {
			return nil
		}
		c.user.sendNumeric(ERR_NICKNAMEINUSE, fmt.Sprintf("%s :Nickname is already in use", nick))
		return nil
	}

	c.user.setNick(nick)
	c.maybeCompleteRegistration()
	return nil
}

// handleUser records username and realname. The two middle parameters
// are accepted and discarded.
func (c *Client) handleUser(lex *lexer) error {
	if c.user.username != "" {
		c.user.sendNumeric(ERR_ALREADYREGISTRED, ":You may not reregister")
		return nil
	}

	username, ok := c.mandatoryParam(lex, "USER")
	if !ok {
		return nil
	}
	if _, ok := c.mandatoryParam(lex, "USER"); !ok {
		return nil
	}
	if _, ok := c.mandatoryParam(lex, "USER"); !ok {
		return nil
	}
	realname, ok := c.mandatoryParam(lex, "USER")
	if !ok {
		return nil
	}
	c.acceptEndOfMessage(lex, "USER")

	c.user.setUser(string(username), string(realname))
	c.maybeCompleteRegistration()
	return nil
}

// maybeCompleteRegistration fires the welcome burst once both NICK and
// USER have succeeded, in either order.
func (c *Client) maybeCompleteRegistration() {
	if c.registered || !c.user.registered() {
		return
	}
	c.registered = true

	s := c.user.server
	c.user.sendNumeric(RPL_LUSERCLIENT,
		fmt.Sprintf(":There are %d users and 0 invisible on 1 servers", s.nicks.Len()))
	c.user.sendNumeric(RPL_MOTDSTART, fmt.Sprintf(":- %s Message of the Day -", s.name()))
	c.user.sendNumeric(RPL_MOTD, fmt.Sprintf(":- Welcome to the %s IRC network!", s.name()))
	c.user.sendNumeric(RPL_ENDOFMOTD, ":End of /MOTD command.")
	c.user.sendRaw(fmt.Sprintf(":%s PRIVMSG %s :Welcome to %s",
		sentinelNick, c.user.Nickname(), s.name()))

	c.log.Info().Msgf("Client registered as %s", c.user.nick)
	s.fireEvent(Event{Type: EventRegistered, Nick: c.user.nick})
}

// handleQuit says goodbye, propagates the departure and tears the
// connection down.
func (c *Client) handleQuit(lex *lexer) error {
	message := c.optionalParam(lex, "Client quit")
	c.acceptEndOfMessage(lex, "QUIT")

	c.sendError(message)
	c.user.quit(message)
	return errQuit
}

// handleList replies with the channel directory, either the named
// channels (unknown names skipped silently) or all of them.
func (c *Client) handleList(lex *lexer) error {
	targets, hasTargets := lex.readParam()
	c.acceptEndOfMessage(lex, "LIST")

	s := c.user.server
	c.user.sendNumeric(RPL_LISTSTART, "Channel :Users  Name")
	if hasTargets {
		items := newLexer(targets)
		for {
			item, ok := items.readListItem()
			if !ok {
				break
			}
			if ch, found := s.channels.Get(string(item)); found {
				c.sendListEntry(ch)
			}
		}
	} else {
		s.channels.Ascend(func(_ string, ch *Channel) bool {
			c.sendListEntry(ch)
			return true
		})
	}
	c.user.sendNumeric(RPL_LISTEND, ":End of LIST")
	return nil
}

func (c *Client) sendListEntry(ch *Channel) {
	c.user.sendNumeric(RPL_LIST, fmt.Sprintf("%s %d :%s", ch.name, ch.members.Len(), ch.topic))
}

// handleJoin joins every channel in the comma-separated list. Joining a
// channel the user is already on is a silent no-op.
func (c *Client) handleJoin(lex *lexer) error {
	targets, ok := c.mandatoryParam(lex, "JOIN")
	if !ok {
		return nil
	}
	c.acceptEndOfMessage(lex, "JOIN")

	s := c.user.server
	items := newLexer(targets)
	for {
		item, ok := items.readListItem()
		if !ok {
			break
		}
		name := string(item)
		ch, found := s.channels.Get(name)
		if !found {
			c.user.sendNumeric(ERR_NOSUCHCHANNEL, fmt.Sprintf("%s :No such channel", name))
			continue
		}
		if c.user.channels.Has(name) {
			continue
		}
		c.user.channels.Set(name, ch)
		ch.join(c.user)
		s.fireEvent(Event{Type: EventJoin, Nick: c.user.nick, Channel: name})
	}
	return nil
}

// handlePart leaves every channel in the comma-separated list. The part
// message defaults to the user's own nickname.
func (c *Client) handlePart(lex *lexer) error {
	targets, ok := c.mandatoryParam(lex, "PART")
	if !ok {
		return nil
	}
	message := c.optionalParam(lex, c.user.Nickname())
	c.acceptEndOfMessage(lex, "PART")

	s := c.user.server
	items := newLexer(targets)
	for {
		item, ok := items.readListItem()
		if !ok {
			break
		}
		name := string(item)
		ch, found := s.channels.Get(name)
		if !found {
			c.user.sendNumeric(ERR_NOSUCHCHANNEL, fmt.Sprintf("%s :No such channel", name))
			continue
		}
		if !c.user.channels.Has(name) {
			c.user.sendNumeric(ERR_NOTONCHANNEL, fmt.Sprintf("%s :You're not on that channel", name))
			continue
		}
		c.user.partChannel(ch, message)
		s.fireEvent(Event{Type: EventPart, Nick: c.user.nick, Channel: name})
	}
	return nil
}

// handleWho lists the members of a channel. Any other target yields only
// the end-of-list marker.
func (c *Client) handleWho(lex *lexer) error {
	targetBytes, ok := c.mandatoryParam(lex, "WHO")
	if !ok {
		return nil
	}
	c.acceptEndOfMessage(lex, "WHO")

	s := c.user.server
	target := string(targetBytes)
	if ch, found := s.channels.Get(target); found {
		ch.members.Ascend(func(_ string, member *User) bool {
			c.user.sendNumeric(RPL_WHOREPLY, fmt.Sprintf("%s %s hidden %s %s H :0 %s",
				ch.name, member.Username(), s.name(), member.Nickname(), member.Realname()))
			return true
		})
	}
	c.user.sendNumeric(RPL_ENDOFWHO, fmt.Sprintf("%s :End of WHO list", target))
	return nil
}

// handleTopic queries, sets or clears a channel topic. An empty trailing
// argument clears it.
func (c *Client) handleTopic(lex *lexer) error {
	nameBytes, ok := c.mandatoryParam(lex, "TOPIC")
	if !ok {
		return nil
	}
	var newTopic *string
	if topicBytes, hasTopic := lex.readParam(); hasTopic {
		topic := string(topicBytes)
		newTopic = &topic
	}
	c.acceptEndOfMessage(lex, "TOPIC")

	name := string(nameBytes)
	ch, found := c.user.server.channels.Get(name)
	if !found {
		c.user.sendNumeric(ERR_NOSUCHCHANNEL, fmt.Sprintf("%s :No such channel", name))
		return nil
	}
	ch.topicate(c.user, newTopic)
	return nil
}

// handlePrivmsg routes the text to each comma-separated target, channel
// or nickname. Channel fan-out excludes the sender.
func (c *Client) handlePrivmsg(lex *lexer) error {
	targets, ok := c.mandatoryParam(lex, "PRIVMSG")
	if !ok {
		return nil
	}
	textBytes, ok := c.mandatoryParam(lex, "PRIVMSG")
	if !ok {
		return nil
	}
	c.acceptEndOfMessage(lex, "PRIVMSG")

	s := c.user.server
	text := string(textBytes)
	items := newLexer(targets)
	for {
		item, ok := items.readListItem()
		if !ok {
			break
		}
		name := string(item)
		if ch, found := s.channels.Get(name); found {
			ch.sendPrivmsg(c.user, text)
			s.fireEvent(Event{Type: EventPrivmsg, Nick: c.user.nick, Target: name, Text: text})
			continue
		}
		if target, found := s.nicks.Get(name); found {
			target.sendRaw(fmt.Sprintf(":%s PRIVMSG %s :%s", c.user.Nickname(), name, text))
			s.fireEvent(Event{Type: EventPrivmsg, Nick: c.user.nick, Target: name, Text: text})
			continue
		}
		c.user.sendNumeric(ERR_NOSUCHNICK, fmt.Sprintf("%s :No such nick/channel", name))
	}
	return nil
}
