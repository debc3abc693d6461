package realtime

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRoom struct {
	mu           sync.Mutex
	connectErr   error
	connects     []string
	disconnects  int
	subs         map[int]func(Event)
	next         int
	unsubscribed int
	// emitOnConnect is delivered from inside Connect
	emitOnConnect []Event
}

func newFakeRoom() *fakeRoom {
	return &fakeRoom{subs: make(map[int]func(Event))}
}

func (f *fakeRoom) Connect(ctx context.Context, serverURL, token string, opts MediaOptions) error {
	f.mu.Lock()
	f.connects = append(f.connects, token)
	err := f.connectErr
	events := f.emitOnConnect
	f.mu.Unlock()

	for _, ev := range events {
		f.Emit(ev)
	}
	return err
}

func (f *fakeRoom) Disconnect() error {
	f.mu.Lock()
	f.disconnects++
	f.mu.Unlock()
	f.Emit(Event{Kind: EventDisconnected, Reason: ReasonClientInitiated})
	return nil
}

func (f *fakeRoom) Subscribe(fn func(Event)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.next
	f.next++
	f.subs[id] = fn
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		if _, ok := f.subs[id]; ok {
			delete(f.subs, id)
			f.unsubscribed++
		}
	}
}

// Emit delivers ev to every handler, including ones already released, so
// tests can play a late notification
func (f *fakeRoom) Emit(ev Event) {
	f.mu.Lock()
	fns := make([]func(Event), 0, len(f.subs))
	for _, fn := range f.subs {
		fns = append(fns, fn)
	}
	f.mu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}

func (f *fakeRoom) touched() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.connects) > 0 || f.disconnects > 0 || f.next > 0
}

func (f *fakeRoom) subscriberCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

type fakeTokens struct {
	mu       sync.Mutex
	token    string
	err      error
	calls    []string
	release  chan struct{} // when set, the first Fetch waits on it
	released bool
}

func (f *fakeTokens) Fetch(ctx context.Context, room, identity string) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, room+"|"+identity)
	wait := f.release
	first := !f.released
	f.released = true
	token, err := f.token, f.err
	f.mu.Unlock()

	if wait != nil && first {
		<-wait
		return "stale-token", nil
	}
	return token, err
}

func (f *fakeTokens) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

var connectedOnConnect = []Event{{Kind: EventConnectionStateChanged, State: ConnectionConnected}}

func TestEnterDefaults(t *testing.T) {
	tokens := &fakeTokens{token: "tok"}
	room := newFakeRoom()
	room.emitOnConnect = connectedOnConnect
	c := NewController("wss://rtc.example.com", tokens, room, DefaultMediaOptions())
	c.now = func() time.Time { return time.UnixMilli(1700000000000) }

	assert.Equal(t, StateInitializing, c.Snapshot().State)
	c.Enter(context.Background(), url.Values{})

	snap := c.Snapshot()
	assert.Equal(t, StateConnected, snap.State)
	assert.False(t, snap.Loading)
	assert.Empty(t, snap.Error)
	assert.Equal(t, DefaultRoom, snap.Room)
	assert.Equal(t, "user-1700000000000", snap.Identity)
	assert.Equal(t, []string{DefaultRoom + "|user-1700000000000"}, tokens.calls)
	assert.Equal(t, []string{"tok"}, room.connects)
}

func TestEnterUsesQuery(t *testing.T) {
	tokens := &fakeTokens{token: "tok"}
	room := newFakeRoom()
	c := NewController("wss://rtc.example.com", tokens, room, DefaultMediaOptions())

	c.Enter(context.Background(), url.Values{"room": {"spanish-1"}, "identity": {"emma"}})
	snap := c.Snapshot()
	assert.Equal(t, StateConnecting, snap.State, "waits for the room's notification")
	assert.True(t, snap.Loading)
	assert.Equal(t, "spanish-1", snap.Room)
	assert.Equal(t, "emma", snap.Identity)
}

func TestEnterNotConfigured(t *testing.T) {
	tokens := &fakeTokens{token: "tok"}
	room := newFakeRoom()
	c := NewController("", tokens, room, DefaultMediaOptions())

	c.Enter(context.Background(), url.Values{})
	snap := c.Snapshot()
	assert.Equal(t, StateError, snap.State)
	assert.Equal(t, MsgNotConfigured, snap.Error)
	assert.False(t, snap.Loading)
	assert.Zero(t, tokens.callCount(), "no fetch without server address")
	assert.False(t, room.touched())
}

func TestCredentialFailureNeverTouchesRoom(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "status", err: &FetchError{StatusCode: 500, Message: "HTTP error! status: 500"}, want: "HTTP error! status: 500"},
		{name: "error field", err: &FetchError{StatusCode: 200, Message: "room is full"}, want: "room is full"},
		{name: "missing token", err: &FetchError{StatusCode: 200, Message: "No token received from server"}, want: "No token received from server"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			room := newFakeRoom()
			c := NewController("wss://rtc.example.com", &fakeTokens{err: tt.err}, room, DefaultMediaOptions())

			c.Enter(context.Background(), url.Values{})
			snap := c.Snapshot()
			assert.Equal(t, StateError, snap.State)
			assert.Equal(t, tt.want, snap.Error)
			assert.False(t, room.touched())

			c.Exit()
			assert.False(t, room.touched(), "exit after credential failure leaves the room alone")
		})
	}
}

func TestConnectErrorReleasesSubscription(t *testing.T) {
	room := newFakeRoom()
	room.connectErr = errors.New("dial refused")
	c := NewController("wss://rtc.example.com", &fakeTokens{token: "tok"}, room, DefaultMediaOptions())

	c.Enter(context.Background(), url.Values{})
	snap := c.Snapshot()
	assert.Equal(t, StateError, snap.State)
	assert.Contains(t, snap.Error, "dial refused")
	assert.Zero(t, room.subscriberCount())
	assert.Equal(t, 1, room.unsubscribed)
}

func TestNotifications(t *testing.T) {
	room := newFakeRoom()
	c := NewController("wss://rtc.example.com", &fakeTokens{token: "tok"}, room, DefaultMediaOptions())
	c.Enter(context.Background(), url.Values{})

	steps := []struct {
		ev          Event
		wantState   State
		wantLoading bool
		wantErr     string
	}{
		{Event{Kind: EventConnectionStateChanged, State: ConnectionConnected}, StateConnected, false, ""},
		{Event{Kind: EventReconnecting}, StateReconnecting, true, ""},
		{Event{Kind: EventReconnected}, StateConnected, false, ""},
		{Event{Kind: EventDisconnected, Reason: ReasonConnectionLost}, StateError, false, MsgConnectionLost},
		{Event{Kind: EventConnectionStateChanged, State: ConnectionConnected}, StateConnected, false, ""},
		{Event{Kind: EventDisconnected, Reason: ReasonClientInitiated}, StateDisconnected, false, ""},
	}

	for _, step := range steps {
		room.Emit(step.ev)
		snap := c.Snapshot()
		assert.Equal(t, step.wantState, snap.State, "after %s", step.ev.Kind)
		assert.Equal(t, step.wantLoading, snap.Loading, "loading after %s", step.ev.Kind)
		assert.Equal(t, step.wantErr, snap.Error, "error after %s", step.ev.Kind)
	}
}

func TestRetry(t *testing.T) {
	tokens := &fakeTokens{err: &FetchError{StatusCode: 503, Message: "HTTP error! status: 503"}}
	room := newFakeRoom()
	room.emitOnConnect = connectedOnConnect
	c := NewController("wss://rtc.example.com", tokens, room, DefaultMediaOptions())

	assert.False(t, c.Retry(context.Background()), "no retry before an attempt failed")

	c.Enter(context.Background(), url.Values{"identity": {"emma"}})
	require.Equal(t, StateError, c.Snapshot().State)

	tokens.mu.Lock()
	tokens.err, tokens.token = nil, "tok-2"
	tokens.mu.Unlock()

	require.True(t, c.Retry(context.Background()))
	snap := c.Snapshot()
	assert.Equal(t, StateConnected, snap.State)
	assert.Equal(t, "emma", snap.Identity, "retry keeps the identity")
	assert.Equal(t, 2, tokens.callCount())

	assert.False(t, c.Retry(context.Background()), "no retry while connected")
}

func TestStaleAttemptIsDiscarded(t *testing.T) {
	tokens := &fakeTokens{token: "fresh-token", release: make(chan struct{})}
	room := newFakeRoom()
	room.emitOnConnect = connectedOnConnect
	c := NewController("wss://rtc.example.com", tokens, room, DefaultMediaOptions())

	done := make(chan struct{})
	go func() {
		c.Enter(context.Background(), url.Values{"identity": {"first"}})
		close(done)
	}()
	require.Eventually(t, func() bool { return tokens.callCount() == 1 }, time.Second, 5*time.Millisecond)

	c.Enter(context.Background(), url.Values{"identity": {"second"}})
	require.Equal(t, StateConnected, c.Snapshot().State)

	close(tokens.release)
	<-done

	snap := c.Snapshot()
	assert.Equal(t, StateConnected, snap.State)
	assert.Equal(t, "second", snap.Identity)
	assert.Equal(t, []string{"fresh-token"}, room.connects, "stale credential never reaches the room")
}

func TestExit(t *testing.T) {
	room := newFakeRoom()
	room.emitOnConnect = connectedOnConnect
	c := NewController("wss://rtc.example.com", &fakeTokens{token: "tok"}, room, DefaultMediaOptions())
	c.Enter(context.Background(), url.Values{})
	require.Equal(t, StateConnected, c.Snapshot().State)

	c.Exit()
	assert.Equal(t, StateDisconnected, c.Snapshot().State)
	assert.Equal(t, 1, room.disconnects)
	assert.Zero(t, room.subscriberCount())

	c.Exit()
	assert.Equal(t, 1, room.disconnects, "exit is idempotent")

	// nothing moves the controller after exit
	c.handle(c.generation, Event{Kind: EventConnectionStateChanged, State: ConnectionConnected})
	c.Enter(context.Background(), url.Values{})
	assert.False(t, c.Retry(context.Background()))
	assert.Equal(t, StateDisconnected, c.Snapshot().State)
	assert.Len(t, room.connects, 1)
}

func TestCredentialResolvingAfterExit(t *testing.T) {
	tokens := &fakeTokens{release: make(chan struct{})}
	room := newFakeRoom()
	c := NewController("wss://rtc.example.com", tokens, room, DefaultMediaOptions())

	done := make(chan struct{})
	go func() {
		c.Enter(context.Background(), url.Values{})
		close(done)
	}()
	require.Eventually(t, func() bool { return tokens.callCount() == 1 }, time.Second, 5*time.Millisecond)

	c.Exit()
	close(tokens.release)
	<-done

	assert.Equal(t, StateDisconnected, c.Snapshot().State)
	assert.False(t, room.touched())
}

// ctxTokens blocks until the attempt's context ends
type ctxTokens struct {
	started chan struct{}
	ended   chan error
}

func (f *ctxTokens) Fetch(ctx context.Context, room, identity string) (string, error) {
	close(f.started)
	<-ctx.Done()
	f.ended <- ctx.Err()
	return "", ctx.Err()
}

func TestStartRunsInBackground(t *testing.T) {
	tokens := &ctxTokens{started: make(chan struct{}), ended: make(chan error, 1)}
	room := newFakeRoom()
	c := NewController("wss://rtc.example.com", tokens, room, DefaultMediaOptions())

	c.Start(url.Values{"room": {"lesson-1"}})
	snap := c.Snapshot()
	assert.Equal(t, StateAcquiringCredential, snap.State)
	assert.True(t, snap.Loading)
	assert.Equal(t, "lesson-1", snap.Room)

	<-tokens.started
	c.Exit()

	select {
	case err := <-tokens.ended:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("exit did not cancel the credential fetch")
	}
	assert.Equal(t, StateDisconnected, c.Snapshot().State)
	assert.False(t, room.touched())
}

func TestRestartRunsInBackground(t *testing.T) {
	tokens := &fakeTokens{err: errors.New("HTTP error! status: 500")}
	room := newFakeRoom()
	room.emitOnConnect = connectedOnConnect
	c := NewController("wss://rtc.example.com", tokens, room, DefaultMediaOptions())

	assert.False(t, c.Restart(), "nothing to restart before the first attempt")

	c.Enter(context.Background(), url.Values{})
	require.Equal(t, StateError, c.Snapshot().State)

	tokens.mu.Lock()
	tokens.token, tokens.err = "tok", nil
	tokens.mu.Unlock()

	require.True(t, c.Restart())
	require.Eventually(t, func() bool { return c.Snapshot().State == StateConnected }, time.Second, 5*time.Millisecond)
}
