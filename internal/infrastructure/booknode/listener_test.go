package booknode_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/darkswap-network/darkswap-daemon/internal/core/ports"
	"github.com/darkswap-network/darkswap-daemon/internal/infrastructure/booknode"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

type chanSink struct {
	msgs chan string
}

func (s *chanSink) Enqueue(msg []byte) bool {
	s.msgs <- string(msg)
	return true
}

type reconnectCounter struct {
	ports.NopMetrics
	lock  sync.Mutex
	count int
}

func (m *reconnectCounter) WebsocketReconnected() {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.count++
}

func (m *reconnectCounter) reconnects() int {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.count
}

// wsServer serves one script per connection: it checks the auth message,
// writes the given notifications and then either closes or stays silent.
type wsServer struct {
	*httptest.Server
	lock     sync.Mutex
	conns    int
	tokens   []string
	scripts  [][]string
	keepOpen bool
}

func newWSServer(t *testing.T, keepOpen bool, scripts ...[]string) *wsServer {
	s := &wsServer{scripts: scripts, keepOpen: keepOpen}
	upgrader := websocket.Upgrader{}
	s.Server = httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			conn, err := upgrader.Upgrade(w, r, nil)
			if err != nil {
				return
			}
			defer conn.Close()

			_, buf, err := conn.ReadMessage()
			if err != nil {
				return
			}
			auth := map[string]string{}
			//nolint
			json.Unmarshal(buf, &auth)

			s.lock.Lock()
			idx := s.conns
			s.conns++
			s.tokens = append(s.tokens, auth["token"])
			s.lock.Unlock()

			if idx < len(s.scripts) {
				for _, msg := range s.scripts[idx] {
					if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
						return
					}
				}
			}
			if !s.keepOpen {
				return
			}
			// Wait for the client to give up on us.
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		},
	))
	t.Cleanup(s.Close)
	return s
}

func (s *wsServer) url() string {
	return "ws" + strings.TrimPrefix(s.URL, "http")
}

func (s *wsServer) connections() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.conns
}

func TestListenerReconnects(t *testing.T) {
	server := newWSServer(t, false,
		[]string{`{"eventType":1,"orderId":"a"}`},
		[]string{`{"eventType":2,"orderId":"b"}`, `{"eventType":3,"orderId":"c"}`},
	)
	sink := &chanSink{make(chan string, 10)}
	metrics := &reconnectCounter{}

	listener, err := booknode.NewListener(booknode.ListenerOpts{
		URL:               server.url(),
		APIKey:            apiKey,
		HeartbeatInterval: time.Second,
		ReconnectDelay:    10 * time.Millisecond,
	}, sink, metrics)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- listener.Start(ctx) }()

	received := make([]string, 0, 3)
	for len(received) < 3 {
		select {
		case msg := <-sink.msgs:
			received = append(received, msg)
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for notifications")
		}
	}
	cancel()
	require.NoError(t, <-done)

	require.Equal(t, []string{
		`{"eventType":1,"orderId":"a"}`,
		`{"eventType":2,"orderId":"b"}`,
		`{"eventType":3,"orderId":"c"}`,
	}, received)
	require.GreaterOrEqual(t, metrics.reconnects(), 1)

	server.lock.Lock()
	defer server.lock.Unlock()
	for _, token := range server.tokens {
		require.Equal(t, apiKey, token)
	}
}

func TestListenerHeartbeatTimeout(t *testing.T) {
	server := newWSServer(t, true)
	sink := &chanSink{make(chan string, 1)}

	listener, err := booknode.NewListener(booknode.ListenerOpts{
		URL:               server.url(),
		APIKey:            apiKey,
		HeartbeatInterval: 20 * time.Millisecond,
		ReconnectDelay:    10 * time.Millisecond,
	}, sink, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- listener.Start(ctx) }()

	require.Eventually(t, func() bool {
		return server.connections() >= 2
	}, 5*time.Second, 10*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
}

func TestNewListener(t *testing.T) {
	sink := &chanSink{}
	_, err := booknode.NewListener(booknode.ListenerOpts{}, sink, nil)
	require.Error(t, err)
	_, err = booknode.NewListener(booknode.ListenerOpts{URL: "ws://localhost"}, nil, nil)
	require.Error(t, err)
}
