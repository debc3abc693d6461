package realtime

import (
	"context"
	"log"
	"net/url"
	"strconv"
	"sync"
	"time"
)

// State is the controller's view of the session
type State string

const (
	StateInitializing        State = "initializing"
	StateAcquiringCredential State = "acquiring_credential"
	StateConnecting          State = "connecting"
	StateConnected           State = "connected"
	StateReconnecting        State = "reconnecting"
	StateError               State = "error"
	StateDisconnected        State = "disconnected"
)

// DefaultRoom is joined when the request names none
const DefaultRoom = "language-learning-room"

// User-facing messages
const (
	MsgNotConfigured  = "LiveKit WebSocket URL not configured. Please set LIVEKIT_WS_URL."
	MsgConnectionLost = "Connection lost. Please try reconnecting."
)

// Snapshot is a point-in-time copy of the controller's state
type Snapshot struct {
	State    State  `json:"state"`
	Error    string `json:"error,omitempty"`
	Loading  bool   `json:"loading"`
	Room     string `json:"room"`
	Identity string `json:"identity"`
}

// Connected reports whether the room link is up
func (s Snapshot) Connected() bool {
	return s.State == StateConnected
}

// CanRetry reports whether Retry would start a new attempt
func (s Snapshot) CanRetry() bool {
	return s.State == StateError || s.State == StateDisconnected
}

// Controller runs one real-time session for one page visit.
//
// Each credential attempt carries a generation; a resolution or notification
// from an older generation, or arriving after Exit, is dropped.
type Controller struct {
	serverURL string
	tokens    TokenFetcher
	room      Room
	media     MediaOptions
	now       func() time.Time

	// ctx scopes background attempts; Exit cancels it
	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	state       State
	errMsg      string
	loading     bool
	roomName    string
	identity    string
	generation  uint64
	closed      bool
	engaged     bool // Connect has been called on room
	unsubscribe func()
}

// NewController creates a controller in the Initializing state. An empty
// serverURL makes every attempt fail with a configuration message.
func NewController(serverURL string, tokens TokenFetcher, room Room, media MediaOptions) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		ctx:       ctx,
		cancel:    cancel,
		serverURL: serverURL,
		tokens:    tokens,
		room:      room,
		media:     media,
		now:       time.Now,
		state:     StateInitializing,
		loading:   true,
	}
}

// Enter starts a session for the room and identity named in query, falling
// back to the default room and a time-based identity. It returns once the
// attempt has resolved. A later Enter supersedes an earlier one.
func (c *Controller) Enter(ctx context.Context, query url.Values) {
	if gen, ok := c.enter(query); ok {
		c.attempt(ctx, gen)
	}
}

// Start is Enter with the attempt run in the background on a context that
// Exit cancels. On return the controller is Acquiring-Credential, or Error
// when no server URL is configured.
func (c *Controller) Start(query url.Values) {
	if gen, ok := c.enter(query); ok {
		go c.attempt(c.ctx, gen)
	}
}

// Retry starts a new attempt from Error or Disconnected. It reports whether
// an attempt was started.
func (c *Controller) Retry(ctx context.Context) bool {
	gen, ok := c.retry()
	if ok {
		c.attempt(ctx, gen)
	}
	return ok
}

// Restart is Retry with the attempt run in the background, like Start
func (c *Controller) Restart() bool {
	gen, ok := c.retry()
	if ok {
		go c.attempt(c.ctx, gen)
	}
	return ok
}

func (c *Controller) enter(query url.Values) (uint64, bool) {
	room := query.Get("room")
	if room == "" {
		room = DefaultRoom
	}
	identity := query.Get("identity")
	if identity == "" {
		identity = "user-" + strconv.FormatInt(c.now().UnixMilli(), 10)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return 0, false
	}
	c.roomName = room
	c.identity = identity
	return c.beginLocked(), true
}

func (c *Controller) retry() (uint64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || (c.state != StateError && c.state != StateDisconnected) {
		return 0, false
	}
	return c.beginLocked(), true
}

// beginLocked opens a new generation and releases the previous attempt's
// subscription
func (c *Controller) beginLocked() uint64 {
	c.generation++
	c.releaseLocked()
	c.errMsg = ""
	if c.serverURL == "" {
		c.setErrorLocked(MsgNotConfigured)
	} else {
		c.state = StateAcquiringCredential
		c.loading = true
	}
	return c.generation
}

func (c *Controller) attempt(ctx context.Context, gen uint64) {
	c.mu.Lock()
	if c.state == StateError || !c.currentLocked(gen) {
		c.mu.Unlock()
		return
	}
	room, identity := c.roomName, c.identity
	c.mu.Unlock()

	token, err := c.tokens.Fetch(ctx, room, identity)

	c.mu.Lock()
	if !c.currentLocked(gen) {
		c.mu.Unlock()
		return
	}
	if err != nil {
		log.Printf("Token fetch error: %v", err)
		c.setErrorLocked(err.Error())
		c.mu.Unlock()
		return
	}
	c.unsubscribe = c.room.Subscribe(func(ev Event) { c.handle(gen, ev) })
	c.engaged = true
	c.state = StateConnecting
	c.mu.Unlock()

	err = c.room.Connect(ctx, c.serverURL, token, c.media)

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.currentLocked(gen) {
		return
	}
	if err != nil {
		log.Printf("Room connect error: %v", err)
		c.releaseLocked()
		c.setErrorLocked(err.Error())
	}
}

func (c *Controller) handle(gen uint64, ev Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.currentLocked(gen) {
		return
	}

	switch ev.Kind {
	case EventConnectionStateChanged:
		if ev.State == ConnectionConnected {
			c.state = StateConnected
			c.errMsg = ""
			c.loading = false
		}
	case EventDisconnected:
		if ev.Reason == ReasonClientInitiated {
			c.state = StateDisconnected
			c.loading = false
			return
		}
		c.setErrorLocked(MsgConnectionLost)
	case EventReconnecting:
		c.state = StateReconnecting
		c.errMsg = ""
		c.loading = true
	case EventReconnected:
		c.state = StateConnected
		c.errMsg = ""
		c.loading = false
	}
}

// Exit tears the session down. Afterwards nothing changes the controller's
// state again. Calling Exit more than once is harmless.
func (c *Controller) Exit() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.cancel()
	c.generation++
	c.releaseLocked()
	engaged := c.engaged
	c.state = StateDisconnected
	c.loading = false
	c.mu.Unlock()

	if engaged {
		if err := c.room.Disconnect(); err != nil {
			log.Printf("Error disconnecting room: %v", err)
		}
	}
}

// Snapshot returns the current state
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		State:    c.state,
		Error:    c.errMsg,
		Loading:  c.loading,
		Room:     c.roomName,
		Identity: c.identity,
	}
}

func (c *Controller) currentLocked(gen uint64) bool {
	return !c.closed && gen == c.generation
}

func (c *Controller) releaseLocked() {
	if c.unsubscribe != nil {
		c.unsubscribe()
		c.unsubscribe = nil
	}
}

func (c *Controller) setErrorLocked(msg string) {
	c.state = StateError
	c.errMsg = msg
	c.loading = false
}
