package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	twitch "github.com/gempir/go-twitch-irc/v4"

	"github.com/onnwee/tunequiz/catalog"
	"github.com/onnwee/tunequiz/game"
)

const testCSV = `title,artist,youtube_url,genre,hint,start_time
"[Dynamite, 다이너마이트]",BTS,https://youtu.be/gdZLi9oWNZg,K-pop,,0
Butter,BTS,https://youtu.be/WMweEpGlu_U,K-pop,,0
`

func testEngine(t *testing.T) *game.Engine {
	t.Helper()
	c, err := catalog.LoadReader(strings.NewReader(testCSV))
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	return game.New(c, game.Options{})
}

type staticTokens struct {
	mu    sync.Mutex
	token string
}

func (s *staticTokens) Token() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, s.token != ""
}

// fakeClient is a scripted IRC client. Connect blocks until the test pushes an
// error into release (or Disconnect is called).
type fakeClient struct {
	mu        sync.Mutex
	onConnect func()
	onPrivMsg func(twitch.PrivateMessage)
	joined    []string
	said      []string
	release   chan error
}

func newFakeClient() *fakeClient {
	return &fakeClient{release: make(chan error, 1)}
}

func (f *fakeClient) OnConnect(cb func()) { f.onConnect = cb }

func (f *fakeClient) OnPrivateMessage(cb func(twitch.PrivateMessage)) { f.onPrivMsg = cb }

func (f *fakeClient) Join(channels ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.joined = append(f.joined, channels...)
}

func (f *fakeClient) Say(channel, text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.said = append(f.said, text)
}

func (f *fakeClient) Connect() error {
	if f.onConnect != nil {
		f.onConnect()
	}
	return <-f.release
}

func (f *fakeClient) Disconnect() error {
	select {
	case f.release <- errors.New("client called Disconnect"):
	default:
	}
	return nil
}

func (f *fakeClient) sent() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.said))
	copy(out, f.said)
	return out
}

func (f *fakeClient) deliver(user, text string) {
	f.onPrivMsg(twitch.PrivateMessage{
		User:    twitch.User{Name: user, DisplayName: user},
		Message: text,
	})
}

// newTestBridge wires a bridge with millisecond backoff and a channel of fake
// clients, one per connection attempt.
func newTestBridge(t *testing.T, e *game.Engine, tokens TokenSource) (*Bridge, chan *fakeClient) {
	t.Helper()
	b := New(e, "quizchannel", "quizbot", tokens)
	b.backoffBase = time.Millisecond
	b.backoffMax = 5 * time.Millisecond
	b.tokenPoll = time.Millisecond
	clients := make(chan *fakeClient, 8)
	b.newClient = func(username, token string) ircClient {
		if !strings.HasPrefix(token, "oauth:") {
			t.Errorf("token not prefixed: %q", token)
		}
		c := newFakeClient()
		clients <- c
		return c
	}
	return b, clients
}

func waitForClient(t *testing.T, clients chan *fakeClient) *fakeClient {
	t.Helper()
	select {
	case c := <-clients:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("no connection attempt")
		return nil
	}
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestBridgeConfirmsCorrectAnswer(t *testing.T) {
	e := testEngine(t)
	if err := e.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	b, clients := newTestBridge(t, e, &staticTokens{token: "abc"})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go b.Run(ctx)

	c := waitForClient(t, clients)
	waitFor(t, func() bool { return b.Status().Connected }, "bridge never connected")

	c.deliver("alice", "DYNAMITE ")
	waitFor(t, func() bool { return len(c.sent()) == 1 }, "no confirmation sent")
	if got := c.sent()[0]; got != "🎉 alice correct! (Dynamite)" {
		t.Errorf("confirmation = %q", got)
	}

	// Wrong answer and duplicate: no further sends.
	c.deliver("bob", "butterfly")
	c.deliver("alice", "dynamite")
	time.Sleep(20 * time.Millisecond)
	if got := c.sent(); len(got) != 1 {
		t.Errorf("unexpected sends: %v", got)
	}

	// Third distinct winner closes the round by quorum; the confirmation for
	// the closing answer still belongs to this round and is sent.
	c.deliver("bob", "dynamite")
	c.deliver("carol", "다이너마이트")
	waitFor(t, func() bool { return len(c.sent()) == 3 }, "quorum confirmations missing")

	// Round closed: further answers are not confirmed.
	c.deliver("dave", "dynamite")
	time.Sleep(20 * time.Millisecond)
	if got := c.sent(); len(got) != 3 {
		t.Errorf("send after round close: %v", got)
	}
}

func TestBridgeReconnectsWithBackoff(t *testing.T) {
	e := testEngine(t)
	if err := e.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	tokens := &staticTokens{token: "abc"}
	b, clients := newTestBridge(t, e, tokens)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go b.Run(ctx)

	first := waitForClient(t, clients)
	waitFor(t, func() bool { return b.Status().Connected }, "first connect")

	first.deliver("alice", "dynamite")
	waitFor(t, func() bool { return len(first.sent()) == 1 }, "confirmation before drop")

	// Force a disconnect; connected flips false while the token stays present.
	first.release <- errors.New("read tcp: connection reset by peer")
	waitFor(t, func() bool {
		st := b.Status()
		return !st.Connected && st.HasToken
	}, "status after drop")

	second := waitForClient(t, clients)
	waitFor(t, func() bool { return b.Status().Connected }, "reconnect")

	// The same physical message replayed after reconnect must not score again.
	second.deliver("alice", "dynamite")
	time.Sleep(20 * time.Millisecond)
	results := e.Results()
	if len(results) != 1 || results[0].Score != 3 {
		t.Errorf("score after replay = %+v", results)
	}
	if len(second.sent()) != 0 {
		t.Errorf("duplicate confirmation after reconnect: %v", second.sent())
	}
}

func TestBridgeWaitsForToken(t *testing.T) {
	e := testEngine(t)
	tokens := &staticTokens{}
	b, clients := newTestBridge(t, e, tokens)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go b.Run(ctx)

	if st := b.Status(); st.HasToken || st.Connected {
		t.Fatalf("status without token = %+v", st)
	}
	select {
	case <-clients:
		t.Fatal("connection attempted without token")
	case <-time.After(20 * time.Millisecond):
	}

	tokens.mu.Lock()
	tokens.token = "fresh"
	tokens.mu.Unlock()
	waitForClient(t, clients)
	waitFor(t, func() bool { return b.Status().Connected }, "connect after token arrived")
}

func TestBridgeDisabledWithoutChannel(t *testing.T) {
	e := testEngine(t)
	b := New(e, "", "", &staticTokens{token: "abc"})
	done := make(chan struct{})
	go func() {
		b.Run(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return for unconfigured bridge")
	}
}

func TestBackoffCapped(t *testing.T) {
	b := New(testEngine(t), "c", "u", &staticTokens{})
	b.backoffBase = time.Second
	b.backoffMax = 30 * time.Second
	for attempt := 1; attempt <= 64; attempt++ {
		if got := b.backoffFor(attempt); got > b.backoffMax {
			t.Fatalf("backoffFor(%d) = %v exceeds cap", attempt, got)
		}
	}
	if got := b.backoffFor(1); got < b.backoffBase {
		t.Fatalf("backoffFor(1) = %v below base", got)
	}
}
