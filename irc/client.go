package irc

import (
	"bufio"
	"errors"
	"fmt"
	"net"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/irczt/irczt/irc/logging"
)

// Client wraps a User with the TCP connection, its write buffer and the
// line reassembler. All fields are owned by the dispatcher goroutine
// except conn, which the reader goroutine reads from until it fails.
type Client struct {
	user       *User
	id         uint64
	conn       net.Conn
	writer     *bufio.Writer
	addr       string
	input      lineBuffer
	registered bool
	destroyed  bool
	log        zerolog.Logger
}

func newClient(s *Server, conn net.Conn, id uint64) *Client {
	c := &Client{
		user:   newUser(s, kindClient),
		id:     id,
		conn:   conn,
		writer: bufio.NewWriter(conn),
		addr:   conn.RemoteAddr().String(),
		log:    s.log.With().Str("conn", uuid.NewString()).Logger(),
	}
	c.user.client = c
	return c
}

// readLoop delivers raw reads to the dispatcher. It owns no client state
// and exits on the first read error, which includes the dispatcher
// closing the connection under us.
func (c *Client) readLoop(events chan<- event) {
	for {
		buf := make([]byte, maxMessageSize)
		n, err := c.conn.Read(buf)
		if n > 0 {
			events <- event{kind: eventInput, client: c, data: buf[:n]}
		}
		if err != nil {
			events <- event{kind: eventInput, client: c, err: err}
			return
		}
	}
}

// processInput feeds freshly read bytes through the reassembler and
// dispatches every completed message. Any returned error is terminal for
// the connection.
func (c *Client) processInput(data []byte) error {
	err := c.input.feed(data, c.processMessage)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, errMessageTooLong):
		c.sendError("Message is too long")
		return err
	case errors.Is(err, errLoneCarriageReturn):
		c.sendError("Malformed message")
		return err
	default:
		return err
	}
}

// processMessage tokenizes one message and runs the matching handler.
func (c *Client) processMessage(line []byte) error {
	c.log.Debug().Msgf("<= %s", logging.Escape(string(line)))
	c.user.server.stats.addMessageReceived()

	lex := newLexer(line)

	// The only prefix a client may use is its own nickname.
	if len(line) > 0 && line[0] == ':' {
		prefix, _ := lex.readWord()
		if string(prefix[1:]) != c.user.nick {
			c.sendError("Message prefix does not match the nickname")
			return errMalformedMessage
		}
	}

	cmd, ok := lex.readWord()
	if !ok {
		c.sendError("No command specified")
		return errMalformedMessage
	}
	command := string(cmd)

	if !c.registered {
		switch command {
		case "NICK", "USER", "QUIT":
		default:
			c.user.sendNumeric(ERR_NOTREGISTERED, ":You have not registered")
			return nil
		}
	}

	switch command {
	case "NICK":
		return c.handleNick(lex)
	case "USER":
		return c.handleUser(lex)
	case "QUIT":
		return c.handleQuit(lex)
	case "LIST":
		return c.handleList(lex)
	case "JOIN":
		return c.handleJoin(lex)
	case "PART":
		return c.handlePart(lex)
	case "WHO":
		return c.handleWho(lex)
	case "TOPIC":
		return c.handleTopic(lex)
	case "PRIVMSG":
		return c.handlePrivmsg(lex)
	default:
		c.user.sendNumeric(ERR_UNKNOWNCOMMAND, fmt.Sprintf("%s :Unknown command", command))
		return nil
	}
}

// mandatoryParam reads the next parameter, replying 461 when absent.
func (c *Client) mandatoryParam(lex *lexer, command string) ([]byte, bool) {
	p, ok := lex.readParam()
	if !ok {
		c.user.sendNumeric(ERR_NEEDMOREPARAMS, command+" :Not enough parameters")
	}
	return p, ok
}

// optionalParam reads the next parameter, substituting def when absent.
func (c *Client) optionalParam(lex *lexer, def string) string {
	if p, ok := lex.readParam(); ok {
		return string(p)
	}
	return def
}

// acceptEndOfMessage warns when parameters remain after a handler read
// everything it wanted.
func (c *Client) acceptEndOfMessage(lex *lexer, command string) {
	if !lex.atEnd() {
		c.log.Warn().Msgf("Extra bytes after %s parameters: %s",
			command, logging.Escape(string(lex.rest())))
	}
}

// sendRaw writes one wire line verbatim plus CRLF. Write failures are
// logged; the reader goroutine surfaces the dead peer shortly after.
func (c *Client) sendRaw(line string) {
	if c.destroyed {
		return
	}
	c.log.Debug().Msgf("=> %s", logging.Escape(line))
	if _, err := c.writer.WriteString(line + "\r\n"); err != nil {
		c.log.Warn().Msgf("Write failed: %v", err)
		return
	}
	if err := c.writer.Flush(); err != nil {
		c.log.Warn().Msgf("Write failed: %v", err)
		return
	}
	c.user.server.stats.addMessageSent()
}

// sendError sends an ERROR line to the client.
func (c *Client) sendError(message string) {
	c.sendRaw("ERROR :" + message)
}

// destroy closes the socket. The reader goroutine exits on the resulting
// read error; the dispatcher drops its events for destroyed clients.
func (c *Client) destroy() {
	if c.destroyed {
		return
	}
	c.destroyed = true
	c.conn.Close()
}
