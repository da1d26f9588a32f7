// Package admind is the optional HTTP admin surface: JSON stats and
// channel listings for operators, plus a Prometheus endpoint. It only
// reads the mirrors the IRC server publishes, never dispatcher-owned
// state, so it can run on its own goroutine.
package admind

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/irczt/irczt/irc"
)

// maxRecentEvents bounds the in-memory event feed.
const maxRecentEvents = 100

// Server is the admin HTTP server.
type Server struct {
	irc      *irc.Server
	listen   string
	log      zerolog.Logger
	echo     *echo.Echo
	registry *prometheus.Registry

	httpDuration *prometheus.HistogramVec
	httpRequests *prometheus.CounterVec

	mu     sync.Mutex
	events []EventRecord
}

// EventRecord is one lifecycle event as shown in the admin feed.
type EventRecord struct {
	Time    time.Time `json:"time"`
	Type    string    `json:"type"`
	Nick    string    `json:"nick"`
	Channel string    `json:"channel,omitempty"`
	Target  string    `json:"target,omitempty"`
}

// New wires an admin server to an IRC server: routes, metrics and the
// lifecycle hook feeding the event feed.
func New(ircServer *irc.Server, listen string, logger zerolog.Logger) *Server {
	a := &Server{
		irc:      ircServer,
		listen:   listen,
		log:      logger,
		registry: prometheus.NewRegistry(),
	}

	a.echo = echo.New()
	a.echo.HideBanner = true
	a.echo.HidePort = true
	a.registerCollectors()
	a.echo.Use(a.metricsMiddleware())
	a.route()

	ircServer.Hooks().Register("admind-event-feed", a.recordEvent)
	return a
}

func (a *Server) route() {
	a.echo.GET("/api/stats", a.handleStats)
	a.echo.GET("/api/channels", a.handleChannels)
	a.echo.GET("/api/events", a.handleEvents)
	a.echo.GET("/metrics", echo.WrapHandler(
		promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{})))
}

// Handler exposes the HTTP handler, mainly for tests.
func (a *Server) Handler() http.Handler {
	return a.echo
}

// Start serves until Shutdown. It always returns a non-nil error;
// http.ErrServerClosed means a clean stop.
func (a *Server) Start() error {
	a.log.Info().Msgf("Admin server listening on %s", a.listen)
	return a.echo.Start(a.listen)
}

// Shutdown stops the admin server gracefully.
func (a *Server) Shutdown(ctx context.Context) error {
	return a.echo.Shutdown(ctx)
}

func (a *Server) handleStats(c echo.Context) error {
	return c.JSON(http.StatusOK, a.irc.Stats().Snapshot())
}

func (a *Server) handleChannels(c echo.Context) error {
	return c.JSON(http.StatusOK, a.irc.Stats().Channels())
}

func (a *Server) handleEvents(c echo.Context) error {
	a.mu.Lock()
	out := make([]EventRecord, len(a.events))
	copy(out, a.events)
	a.mu.Unlock()
	return c.JSON(http.StatusOK, out)
}

// recordEvent is the hook keeping the event feed. It runs on the IRC
// dispatcher goroutine, so it only appends under the lock and returns.
func (a *Server) recordEvent(e irc.Event) error {
	rec := EventRecord{
		Time:    time.Now(),
		Type:    e.Type.String(),
		Nick:    e.Nick,
		Channel: e.Channel,
		Target:  e.Target,
	}
	a.mu.Lock()
	a.events = append(a.events, rec)
	if len(a.events) > maxRecentEvents {
		a.events = a.events[len(a.events)-maxRecentEvents:]
	}
	a.mu.Unlock()
	return nil
}
