package admind

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// registerCollectors exposes the IRC server mirrors as Prometheus
// metrics. Gauge and counter funcs read the Stats mirror on scrape, so
// there is nothing to keep in sync.
func (a *Server) registerCollectors() {
	factory := promauto.With(a.registry)

	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "irczt_clients",
		Help: "Currently connected clients.",
	}, func() float64 { return float64(a.irc.Stats().Snapshot().CurrentClients) })

	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "irczt_bots",
		Help: "Currently running local bots.",
	}, func() float64 { return float64(a.irc.Stats().Snapshot().CurrentBots) })

	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "irczt_channels",
		Help: "Channels on the server.",
	}, func() float64 { return float64(a.irc.Stats().Snapshot().CurrentChannels) })

	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "irczt_registered_nicks",
		Help: "Users currently holding a nickname.",
	}, func() float64 { return float64(a.irc.Stats().Snapshot().RegisteredNicks) })

	factory.NewCounterFunc(prometheus.CounterOpts{
		Name: "irczt_connections_total",
		Help: "Accepted client connections.",
	}, func() float64 { return float64(a.irc.Stats().Snapshot().Connections) })

	factory.NewCounterFunc(prometheus.CounterOpts{
		Name: "irczt_messages_received_total",
		Help: "IRC messages received from clients.",
	}, func() float64 { return float64(a.irc.Stats().Snapshot().MessagesReceived) })

	factory.NewCounterFunc(prometheus.CounterOpts{
		Name: "irczt_messages_sent_total",
		Help: "IRC messages written to clients.",
	}, func() float64 { return float64(a.irc.Stats().Snapshot().MessagesSent) })

	a.httpDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Admin HTTP request latency in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "code"})

	a.httpRequests = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Admin HTTP requests by status code.",
	}, []string{"method", "code"})
}

// metricsMiddleware records latency and status counts for every admin
// request.
func (a *Server) metricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			code := strconv.Itoa(c.Response().Status)
			method := c.Request().Method
			a.httpDuration.WithLabelValues(method, code).Observe(time.Since(start).Seconds())
			a.httpRequests.WithLabelValues(method, code).Inc()
			return err
		}
	}
}
