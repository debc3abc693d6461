package realtime

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	maxMessageSize = 1024 * 64
)

// WSRoomConfig tunes the signalling link
type WSRoomConfig struct {
	PingPeriod       time.Duration
	MaxReconnects    int
	ReconnectBackoff time.Duration
	HandshakeTimeout time.Duration
}

// DefaultWSRoomConfig returns the settings used in production
func DefaultWSRoomConfig() WSRoomConfig {
	return WSRoomConfig{
		PingPeriod:       5 * time.Second,
		MaxReconnects:    5,
		ReconnectBackoff: 500 * time.Millisecond,
		HandshakeTimeout: 10 * time.Second,
	}
}

// link is one live websocket connection
type link struct {
	conn *websocket.Conn
	stop chan struct{}
	once sync.Once
}

// WSRoom is a Room over the server's signalling websocket. Signal frames
// are read and dropped; media negotiation is not performed.
type WSRoom struct {
	cfg    WSRoomConfig
	dialer *websocket.Dialer

	mu      sync.Mutex
	current *link
	target  string
	subs    map[int]func(Event)
	nextSub int
}

// NewWSRoom creates a disconnected room
func NewWSRoom(cfg WSRoomConfig) *WSRoom {
	if cfg.PingPeriod <= 0 {
		cfg.PingPeriod = DefaultWSRoomConfig().PingPeriod
	}
	return &WSRoom{
		cfg:    cfg,
		dialer: &websocket.Dialer{HandshakeTimeout: cfg.HandshakeTimeout},
		subs:   make(map[int]func(Event)),
	}
}

// SignalURL builds the signalling address for serverURL and token
func SignalURL(serverURL, token string, opts MediaOptions) (string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return "", fmt.Errorf("invalid server url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported server url scheme %q", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/rtc"

	q := u.Query()
	q.Set("access_token", token)
	q.Set("auto_subscribe", "1")
	q.Set("adaptive_stream", boolParam(opts.AdaptiveStream))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func boolParam(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// Subscribe registers fn for room notifications
func (r *WSRoom) Subscribe(fn func(Event)) func() {
	r.mu.Lock()
	id := r.nextSub
	r.nextSub++
	r.subs[id] = fn
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.subs, id)
			r.mu.Unlock()
		})
	}
}

func (r *WSRoom) emit(ev Event) {
	r.mu.Lock()
	fns := make([]func(Event), 0, len(r.subs))
	for _, fn := range r.subs {
		fns = append(fns, fn)
	}
	r.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

// Connect dials the signalling endpoint. Any previous link is dropped
// without notification.
func (r *WSRoom) Connect(ctx context.Context, serverURL, token string, opts MediaOptions) error {
	target, err := SignalURL(serverURL, token, opts)
	if err != nil {
		return err
	}

	r.mu.Lock()
	old := r.current
	r.current = nil
	r.target = target
	r.mu.Unlock()
	if old != nil {
		old.close(false)
	}

	r.emit(Event{Kind: EventConnectionStateChanged, State: ConnectionConnecting})

	conn, _, err := r.dialer.DialContext(ctx, target, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to room: %w", err)
	}

	l := r.adopt(conn, target)
	if l == nil {
		return errors.New("room connection superseded")
	}
	r.emit(Event{Kind: EventConnectionStateChanged, State: ConnectionConnected})
	return nil
}

// adopt installs conn as the current link if target is still wanted
func (r *WSRoom) adopt(conn *websocket.Conn, target string) *link {
	r.mu.Lock()
	if r.target != target || r.current != nil {
		r.mu.Unlock()
		conn.Close()
		return nil
	}
	l := &link{conn: conn, stop: make(chan struct{})}
	r.current = l
	r.mu.Unlock()

	go r.readPump(l)
	go r.pingPump(l)
	return l
}

// Disconnect closes the link with a normal close frame
func (r *WSRoom) Disconnect() error {
	r.mu.Lock()
	l := r.current
	r.current = nil
	r.target = ""
	r.mu.Unlock()

	if l == nil {
		return nil
	}
	l.close(true)
	r.emit(Event{Kind: EventDisconnected, Reason: ReasonClientInitiated})
	return nil
}

func (l *link) close(graceful bool) {
	l.once.Do(func() {
		close(l.stop)
		if graceful {
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
			if err := l.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait)); err != nil {
				log.Printf("Error sending close frame: %v", err)
			}
		}
		l.conn.Close()
	})
}

func (r *WSRoom) readPump(l *link) {
	l.conn.SetReadLimit(maxMessageSize)
	l.conn.SetReadDeadline(time.Now().Add(pongWait))
	l.conn.SetPongHandler(func(string) error {
		return l.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := l.conn.ReadMessage(); err != nil {
			select {
			case <-l.stop:
				return
			default:
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				r.drop(l, ReasonServerShutdown)
				return
			}
			log.Printf("Room link lost: %v", err)
			r.redial(l)
			return
		}
	}
}

func (r *WSRoom) pingPump(l *link) {
	ticker := time.NewTicker(r.cfg.PingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			if err := l.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

// drop ends the session after the server closed l
func (r *WSRoom) drop(l *link, reason DisconnectReason) {
	r.mu.Lock()
	if r.current != l {
		r.mu.Unlock()
		return
	}
	r.current = nil
	r.target = ""
	r.mu.Unlock()
	l.close(false)

	r.emit(Event{Kind: EventDisconnected, Reason: reason})
}

// redial reconnects after l failed, unless the room moved on meanwhile
func (r *WSRoom) redial(l *link) {
	r.mu.Lock()
	if r.current != l {
		r.mu.Unlock()
		return
	}
	r.current = nil
	target := r.target
	r.mu.Unlock()
	l.close(false)

	r.emit(Event{Kind: EventReconnecting})

	for attempt := 1; attempt <= r.cfg.MaxReconnects; attempt++ {
		time.Sleep(r.cfg.ReconnectBackoff * time.Duration(attempt))

		r.mu.Lock()
		wanted := r.target == target && r.current == nil
		r.mu.Unlock()
		if !wanted {
			return
		}

		conn, _, err := r.dialer.Dial(target, nil)
		if err != nil {
			log.Printf("Room reconnect attempt %d failed: %v", attempt, err)
			continue
		}
		if r.adopt(conn, target) != nil {
			r.emit(Event{Kind: EventReconnected})
		}
		return
	}

	r.mu.Lock()
	wanted := r.target == target
	if wanted {
		r.target = ""
	}
	r.mu.Unlock()
	if wanted {
		r.emit(Event{Kind: EventDisconnected, Reason: ReasonConnectionLost})
	}
}
