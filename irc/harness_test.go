package irc

import (
	"bufio"
	"bytes"
	"io"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/irczt/irczt/irc/config"
)

// fakeConn captures writes for unit tests that drive handlers directly,
// without a dispatcher or real sockets.
type fakeConn struct {
	mu     sync.Mutex
	buf    bytes.Buffer
	closed bool
}

func (f *fakeConn) Read([]byte) (int, error) { return 0, io.EOF }

func (f *fakeConn) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.buf.Write(p)
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeConn) LocalAddr() net.Addr                { return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1)} }
func (f *fakeConn) RemoteAddr() net.Addr               { return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1)} }
func (f *fakeConn) SetDeadline(time.Time) error        { return nil }
func (f *fakeConn) SetReadDeadline(time.Time) error    { return nil }
func (f *fakeConn) SetWriteDeadline(time.Time) error   { return nil }

// lines returns every complete wire line captured so far.
func (f *fakeConn) lines() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	raw := f.buf.String()
	if raw == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(raw, "\r\n"), "\r\n")
}

func (f *fakeConn) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.buf.Reset()
}

// unitConfig is the base configuration for unit tests.
func unitConfig(channels ...string) *config.Config {
	cfg := config.Default()
	cfg.Server.Name = "irc.test"
	cfg.Server.Listen = "127.0.0.1:0"
	cfg.Bots.Nicks = nil
	cfg.Seed = 1
	if len(channels) > 0 {
		cfg.Channels = channels
	}
	return cfg
}

// newUnitServer builds a server for direct handler-level tests. It is
// never started; everything runs on the test goroutine.
func newUnitServer(t *testing.T, channels ...string) *Server {
	t.Helper()
	return NewServer(unitConfig(channels...), zerolog.Nop())
}

// addUnitClient attaches a fake-socket client and registers it.
func addUnitClient(t *testing.T, s *Server, nick string) (*Client, *fakeConn) {
	t.Helper()
	fc := &fakeConn{}
	c := newClient(s, fc, s.nextConnID)
	s.nextConnID++
	s.clients.Set(c.id, c)

	require.NoError(t, c.processMessage([]byte("NICK "+nick)))
	require.NoError(t, c.processMessage([]byte("USER "+nick+" x x :"+nick)))
	require.True(t, c.registered)
	fc.reset()
	return c, fc
}

// startTestServer runs a full server with a real listener and a piped
// stdin. The returned stop function requests shutdown and waits for Run
// to return.
func startTestServer(t *testing.T, cfg *config.Config) (*Server, func()) {
	t.Helper()
	s := NewServer(cfg, zerolog.Nop())

	stdinR, stdinW := io.Pipe()
	s.stdin = stdinR

	require.NoError(t, s.Start())

	done := make(chan error, 1)
	go func() { done <- s.Run() }()

	stopped := false
	stop := func() {
		if stopped {
			return
		}
		stopped = true
		_, _ = stdinW.Write([]byte{'\n'})
		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("server did not stop")
		}
	}
	t.Cleanup(stop)
	return s, stop
}

// testClient is a raw TCP client for integration tests.
type testClient struct {
	t      *testing.T
	conn   net.Conn
	reader *bufio.Reader
}

func dialTestServer(t *testing.T, s *Server) *testClient {
	t.Helper()
	conn, err := net.Dial("tcp", s.Addr().String())
	require.NoError(t, err)
	tc := &testClient{t: t, conn: conn, reader: bufio.NewReader(conn)}
	t.Cleanup(func() { conn.Close() })
	return tc
}

func (tc *testClient) send(line string) {
	tc.t.Helper()
	_, err := tc.conn.Write([]byte(line + "\r\n"))
	require.NoError(tc.t, err)
}

func (tc *testClient) sendRaw(data []byte) {
	tc.t.Helper()
	_, err := tc.conn.Write(data)
	require.NoError(tc.t, err)
}

// readLine returns the next line within a short deadline.
func (tc *testClient) readLine() string {
	tc.t.Helper()
	require.NoError(tc.t, tc.conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	line, err := tc.reader.ReadString('\n')
	require.NoError(tc.t, err, "waiting for a line from the server")
	return strings.TrimRight(line, "\r\n")
}

// expectLine asserts the next line is exactly want.
func (tc *testClient) expectLine(want string) {
	tc.t.Helper()
	require.Equal(tc.t, want, tc.readLine())
}

// expectContaining reads lines until one contains sub and returns it.
func (tc *testClient) expectContaining(sub string) string {
	tc.t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		line := tc.readLine()
		if strings.Contains(line, sub) {
			return line
		}
	}
	tc.t.Fatalf("no line containing %q", sub)
	return ""
}

// drain reads whatever arrives within d and returns it.
func (tc *testClient) drain(d time.Duration) []string {
	tc.t.Helper()
	var lines []string
	_ = tc.conn.SetReadDeadline(time.Now().Add(d))
	for {
		line, err := tc.reader.ReadString('\n')
		if line != "" {
			lines = append(lines, strings.TrimRight(line, "\r\n"))
		}
		if err != nil {
			return lines
		}
	}
}

// expectClosed asserts the server closes the connection.
func (tc *testClient) expectClosed() {
	tc.t.Helper()
	_ = tc.conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		_, err := tc.reader.ReadString('\n')
		if err == nil {
			continue
		}
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			tc.t.Fatal("connection still open")
		}
		return
	}
}

// register performs the NICK+USER handshake and consumes the welcome
// burst.
func (tc *testClient) register(nick string) {
	tc.t.Helper()
	tc.send("NICK " + nick)
	tc.send("USER " + nick + " x x :" + nick)
	tc.expectContaining("PRIVMSG " + nick + " :Welcome to")
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool, what string) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
