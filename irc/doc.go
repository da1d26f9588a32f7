/*
Package irc implements a single-process IRC server with local bots.

The server accepts TCP clients speaking a small, self-consistent slice of
RFC 1459/2812: NICK, USER, QUIT, LIST, JOIN, PART, WHO, TOPIC and PRIVMSG.
Channels are preset at startup; clients and in-process bots share one user
abstraction and one channel membership discipline.

# Concurrency

All mutable server state is owned by a single dispatcher goroutine. The
listener, a per-client reader and the stdin watcher feed it over one event
channel; bot ticks come from a one-second ticker in the same select. Every
handler runs to completion before the next event is taken, so messages on
one connection are processed in arrival order, broadcasts fan out in the
deterministic order of the ordered member index, and bot ticks never
interleave with a handler.

# Usage

	cfg, err := config.Load("irczt.yaml")
	if err != nil {
		logger.Fatal().Msgf("%v", err)
	}
	server := irc.NewServer(cfg, logger)
	if err := server.Start(); err != nil {
		logger.Fatal().Msgf("%v", err)
	}
	err = server.Run() // blocks until a byte (or EOF) arrives on stdin
*/
package irc
