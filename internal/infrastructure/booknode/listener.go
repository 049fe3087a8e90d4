package booknode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/darkswap-network/darkswap-daemon/internal/core/ports"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

const (
	defaultHeartbeatInterval = 30 * time.Second
	defaultReconnectDelay    = 10 * time.Second
	// missedHeartbeats is the number of heartbeat intervals without traffic
	// after which the connection is considered dead.
	missedHeartbeats = 3
	writeWait        = 5 * time.Second
)

var (
	// ErrHeartbeatTimeout is returned when the booknode stays silent for too
	// long.
	ErrHeartbeatTimeout = errors.New("booknode heartbeat timeout")
)

// Sink receives raw notifications in arrival order.
type Sink interface {
	Enqueue(msg []byte) bool
}

type ListenerOpts struct {
	URL               string
	APIKey            string
	HeartbeatInterval time.Duration
	ReconnectDelay    time.Duration
}

// Listener keeps a websocket open with the booknode and hands every
// notification to the sink, reconnecting whenever the stream drops.
type Listener struct {
	opts    ListenerOpts
	sink    Sink
	metrics ports.Metrics
	dialer  *websocket.Dialer
}

func NewListener(
	opts ListenerOpts, sink Sink, metrics ports.Metrics,
) (*Listener, error) {
	if len(opts.URL) <= 0 {
		return nil, fmt.Errorf("missing booknode websocket url")
	}
	if sink == nil {
		return nil, fmt.Errorf("missing notification sink")
	}
	if opts.HeartbeatInterval <= 0 {
		opts.HeartbeatInterval = defaultHeartbeatInterval
	}
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = defaultReconnectDelay
	}
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	return &Listener{
		opts:    opts,
		sink:    sink,
		metrics: metrics,
		dialer:  websocket.DefaultDialer,
	}, nil
}

// Start blocks until ctx is done.
func (l *Listener) Start(ctx context.Context) error {
	for {
		err := l.listen(ctx)
		if ctx.Err() != nil {
			return nil
		}
		log.WithError(err).Warnf(
			"booknode connection dropped, reconnecting in %s", l.opts.ReconnectDelay,
		)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(l.opts.ReconnectDelay):
		}
		l.metrics.WebsocketReconnected()
	}
}

func (l *Listener) listen(ctx context.Context) error {
	conn, err := l.connectAndAuthenticate(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()
	log.Info("connected to booknode")

	hb := newHeartbeat()
	conn.SetPingHandler(func(data string) error {
		hb.touch()
		err := conn.WriteControl(
			websocket.PongMessage, []byte(data), time.Now().Add(writeWait),
		)
		if errors.Is(err, websocket.ErrCloseSent) {
			return nil
		}
		return err
	})

	readErr := make(chan error, 1)
	go func() {
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				readErr <- err
				return
			}
			hb.touch()
			log.Debugf("received booknode notification %s", msg)
			if !l.sink.Enqueue(msg) {
				log.Warnf("notification dropped, processor is stopped: %s", msg)
			}
		}
	}()

	ticker := time.NewTicker(l.opts.HeartbeatInterval)
	defer ticker.Stop()
	timeout := missedHeartbeats * l.opts.HeartbeatInterval

	for {
		select {
		case <-ctx.Done():
			//nolint
			conn.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait),
			)
			return ctx.Err()
		case err := <-readErr:
			return err
		case <-ticker.C:
			if hb.since() >= timeout {
				return ErrHeartbeatTimeout
			}
		}
	}
}

func (l *Listener) connectAndAuthenticate(
	ctx context.Context,
) (*websocket.Conn, error) {
	conn, _, err := l.dialer.DialContext(ctx, l.opts.URL, nil)
	if err != nil {
		return nil, err
	}

	msg := map[string]string{
		"type":  "auth",
		"token": l.opts.APIKey,
	}
	buf, _ := json.Marshal(msg)
	if err := conn.WriteMessage(websocket.TextMessage, buf); err != nil {
		conn.Close()
		return nil, fmt.Errorf("cannot authenticate to booknode: %s", err)
	}
	return conn, nil
}

type heartbeat struct {
	lock     *sync.Mutex
	lastSeen time.Time
}

func newHeartbeat() *heartbeat {
	return &heartbeat{&sync.Mutex{}, time.Now()}
}

func (h *heartbeat) touch() {
	h.lock.Lock()
	defer h.lock.Unlock()
	h.lastSeen = time.Now()
}

func (h *heartbeat) since() time.Duration {
	h.lock.Lock()
	defer h.lock.Unlock()
	return time.Since(h.lastSeen)
}
