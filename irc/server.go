package irc

import (
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"os"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/irczt/irczt/irc/config"
	"github.com/irczt/irczt/irc/container"
	"github.com/irczt/irczt/irc/hooks"
)

// sentinelNick is the fixed source of welcome private messages.
const sentinelNick = "irczt-connect"

// botTickInterval is how often every bot acts.
const botTickInterval = time.Second

type eventKind int

const (
	eventAccept eventKind = iota
	eventInput
	eventStdin
)

// event is one readiness notification delivered to the dispatcher.
type event struct {
	kind   eventKind
	conn   net.Conn // eventAccept
	client *Client  // eventInput
	data   []byte   // eventInput: freshly read bytes
	err    error    // eventInput: read error, terminal
}

// Server owns every client, bot and channel, plus the nickname and
// channel-name indexes. All of it is mutated only on the dispatcher
// goroutine inside Run; other goroutines interact through the event
// channel, the Stats mirror and the hook registry.
type Server struct {
	config   *config.Config
	log      zerolog.Logger
	listener net.Listener
	stdin    io.Reader
	events   chan event
	stopping atomic.Bool

	clients    *container.Map[uint64, *Client]
	bots       []*LocalBot
	nicks      *container.Map[string, *User]
	channels   *container.Map[string, *Channel]
	rng        *rand.Rand
	nextConnID uint64

	stats *Stats
	hooks *hooks.Registry[Event]
}

// NewServer builds a server from the configuration: preset channels are
// created immediately, bots are spawned by Start.
func NewServer(cfg *config.Config, logger zerolog.Logger) *Server {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	s := &Server{
		config:   cfg,
		log:      logger,
		stdin:    os.Stdin,
		events:   make(chan event, 128),
		clients:  container.NewMap[uint64, *Client](),
		nicks:    container.NewMap[string, *User](),
		channels: container.NewMap[string, *Channel](),
		rng:      rand.New(rand.NewSource(seed)),
		stats:    newStats(),
		hooks:    hooks.NewRegistry[Event](),
	}
	for _, name := range cfg.Channels {
		s.channels.Set(name, newChannel(s, name))
	}
	return s
}

// name returns the server name used as the prefix on server-originated
// wire lines.
func (s *Server) name() string {
	return s.config.Server.Name
}

// Stats returns the mirror of the server counters, safe to read from any
// goroutine.
func (s *Server) Stats() *Stats {
	return s.stats
}

// Hooks returns the lifecycle hook registry. Hooks run on the dispatcher
// goroutine; keep them fast and do not touch server state from them.
func (s *Server) Hooks() *hooks.Registry[Event] {
	return s.hooks
}

// Addr returns the bound listen address once Start has succeeded.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Start binds the listen socket and spawns the preset bots. It does not
// begin dispatching; call Run for that.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.config.Server.Listen)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Server.Listen, err)
	}
	s.listener = ln
	s.log.Info().Msgf("Listening on %s", ln.Addr())

	for _, nick := range s.config.Bots.Nicks {
		s.spawnBot(nick)
	}
	s.publishSnapshot()
	return nil
}

// Run is the dispatcher loop. It blocks until a byte (or EOF) arrives on
// stdin, then destroys everything in order: clients, bots, channels.
func (s *Server) Run() error {
	go s.acceptLoop()
	go s.watchStdin()

	ticker := time.NewTicker(botTickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			for _, b := range s.bots {
				b.tick()
			}
			s.publishSnapshot()
		case ev := <-s.events:
			switch ev.kind {
			case eventAccept:
				s.acceptClient(ev.conn)
			case eventStdin:
				s.log.Info().Msg("Exit request")
				s.shutdown()
				return nil
			case eventInput:
				s.processClientInput(ev)
			}
			s.publishSnapshot()
		}
	}
}

// acceptLoop feeds accepted connections to the dispatcher. It exits when
// the listener closes.
func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.stopping.Load() || errors.Is(err, net.ErrClosed) {
				return
			}
			s.log.Warn().Msgf("Accept failed: %v", err)
			continue
		}
		s.events <- event{kind: eventAccept, conn: conn}
	}
}

// watchStdin turns the first byte (or EOF) on stdin into an exit
// request.
func (s *Server) watchStdin() {
	buf := make([]byte, 1)
	_, _ = s.stdin.Read(buf)
	s.events <- event{kind: eventStdin}
}

// acceptClient takes ownership of a fresh connection: a Client joins the
// client set and its reader goroutine starts feeding the dispatcher.
func (s *Server) acceptClient(conn net.Conn) {
	id := s.nextConnID
	s.nextConnID++

	c := newClient(s, conn, id)
	s.clients.Set(id, c)
	s.stats.connOpened()
	c.log.Info().Msgf("New client connected from %s", c.addr)
	go c.readLoop(s.events)
}

// processClientInput runs freshly read bytes (or the read error) through
// the client. Any error is terminal: the client is removed and
// destroyed, never retried.
func (s *Server) processClientInput(ev event) {
	c := ev.client
	if c.destroyed {
		return
	}

	var err error
	if len(ev.data) > 0 {
		err = c.processInput(ev.data)
	}
	if err == nil && ev.err != nil {
		err = ev.err
	}
	if err == nil {
		return
	}

	switch {
	case errors.Is(err, errQuit):
		c.log.Info().Msg("Client quit")
	case errors.Is(err, io.EOF):
		c.log.Info().Msg("End of file from client")
		c.user.quit("Connection closed")
	case errors.Is(err, errMalformedMessage):
		c.log.Warn().Msgf("Closing client connection: %v", err)
		c.user.quit("Connection closed")
	default:
		c.log.Warn().Msgf("Client I/O failed: %v", err)
		c.user.quit("Connection closed")
	}

	nick := c.user.nick
	s.removeClient(c)
	if nick != "" {
		s.fireEvent(Event{Type: EventQuit, Nick: nick})
	}
}

// removeClient deregisters the client from every index and closes its
// socket. The user has already left its channels.
func (s *Server) removeClient(c *Client) {
	if c.user.HasNickname() {
		s.nicks.Delete(c.user.nick)
	}
	s.clients.Delete(c.id)
	c.destroy()
}

// shutdown destroys everything bottom-up: clients first, then bots (both
// release their channel memberships on the way out), then the empty
// channels.
func (s *Server) shutdown() {
	s.stopping.Store(true)
	s.listener.Close()

	// Unblock reader goroutines still sending events; they exit once
	// their connections close below.
	go func() {
		for range s.events {
		}
	}()

	for _, c := range s.clients.Values() {
		c.sendError("Server shutting down")
		c.user.quit("Server shutting down")
		s.removeClient(c)
	}

	for _, b := range s.bots {
		b.user.quit("Server shutting down")
		s.nicks.Delete(b.user.nick)
	}
	s.bots = nil

	for _, name := range s.channels.Keys() {
		if ch, ok := s.channels.Get(name); ok {
			ch.destroy()
			s.channels.Delete(name)
		}
	}

	s.log.Info().Msg("Server stopped")
}

// fireEvent runs the hook registry; hook failures are logged and never
// fatal.
func (s *Server) fireEvent(e Event) {
	for name, err := range s.hooks.Run(e) {
		s.log.Warn().Msgf("Hook %s failed: %v", name, err)
	}
}

// publishSnapshot refreshes the stats mirror from dispatcher-owned
// state.
func (s *Server) publishSnapshot() {
	infos := make([]ChannelInfo, 0, s.channels.Len())
	s.channels.Ascend(func(_ string, ch *Channel) bool {
		infos = append(infos, ChannelInfo{Name: ch.name, Members: ch.members.Len(), Topic: ch.topic})
		return true
	})
	s.stats.publish(s.clients.Len(), len(s.bots), s.nicks.Len(), infos)
}
