package irc

import (
	"sync"
	"time"
)

// ChannelInfo is a point-in-time view of one channel.
type ChannelInfo struct {
	Name    string `json:"name"`
	Members int    `json:"members"`
	Topic   string `json:"topic"`
}

// StatsSnapshot is a consistent copy of the server counters.
type StatsSnapshot struct {
	StartTime        time.Time     `json:"start_time"`
	Uptime           time.Duration `json:"uptime"`
	Connections      int64         `json:"connections"`
	CurrentClients   int           `json:"current_clients"`
	PeakClients      int           `json:"peak_clients"`
	CurrentBots      int           `json:"current_bots"`
	CurrentChannels  int           `json:"current_channels"`
	RegisteredNicks  int           `json:"registered_nicks"`
	MessagesReceived int64         `json:"messages_received"`
	MessagesSent     int64         `json:"messages_sent"`
}

// Stats mirrors dispatcher-owned state behind a lock so observers on
// other goroutines (the admin surface) can read it. The dispatcher only
// ever writes; everyone else only ever reads.
type Stats struct {
	mu               sync.RWMutex
	startTime        time.Time
	connections      int64
	currentClients   int
	peakClients      int
	currentBots      int
	currentChannels  int
	registeredNicks  int
	messagesReceived int64
	messagesSent     int64
	channels         []ChannelInfo
}

func newStats() *Stats {
	return &Stats{startTime: time.Now()}
}

func (st *Stats) connOpened() {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.connections++
}

func (st *Stats) addMessageReceived() {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.messagesReceived++
}

func (st *Stats) addMessageSent() {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.messagesSent++
}

// publish replaces the gauge values and the channel view in one step.
func (st *Stats) publish(clients, bots, nicks int, channels []ChannelInfo) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.currentClients = clients
	if clients > st.peakClients {
		st.peakClients = clients
	}
	st.currentBots = bots
	st.registeredNicks = nicks
	st.currentChannels = len(channels)
	st.channels = channels
}

// Snapshot returns a consistent copy of the counters.
func (st *Stats) Snapshot() StatsSnapshot {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return StatsSnapshot{
		StartTime:        st.startTime,
		Uptime:           time.Since(st.startTime),
		Connections:      st.connections,
		CurrentClients:   st.currentClients,
		PeakClients:      st.peakClients,
		CurrentBots:      st.currentBots,
		CurrentChannels:  st.currentChannels,
		RegisteredNicks:  st.registeredNicks,
		MessagesReceived: st.messagesReceived,
		MessagesSent:     st.messagesSent,
	}
}

// Channels returns the latest published channel view.
func (st *Stats) Channels() []ChannelInfo {
	st.mu.RLock()
	defer st.mu.RUnlock()
	out := make([]ChannelInfo, len(st.channels))
	copy(out, st.channels)
	return out
}
