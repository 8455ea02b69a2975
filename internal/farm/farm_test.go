package farm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"hourfarm/internal/catalog"
	"hourfarm/internal/platform"
	"hourfarm/internal/store"

	"github.com/jonboulle/clockwork"
)

// fakeConn records every command issued over the session and lets tests
// inject protocol events. Disconnect only marks the flag; tests own the
// event channel lifetime.
type fakeConn struct {
	mu           sync.Mutex
	events       chan platform.Event
	declarations [][]uint32
	visibilities []platform.Visibility
	owned        []platform.OwnedTitle
	ownedErr     error
	disconnected bool
}

func newFakeConn() *fakeConn {
	return &fakeConn{events: make(chan platform.Event, 32)}
}

func (f *fakeConn) Events() <-chan platform.Event { return f.events }

func (f *fakeConn) Disconnect() {
	f.mu.Lock()
	f.disconnected = true
	f.mu.Unlock()
}

func (f *fakeConn) DeclareActivity(titleIDs []uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.declarations = append(f.declarations, append([]uint32(nil), titleIDs...))
	return nil
}

func (f *fakeConn) SetVisibility(v platform.Visibility) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.visibilities = append(f.visibilities, v)
	return nil
}

func (f *fakeConn) RequestOwnedTitles(context.Context) ([]platform.OwnedTitle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ownedErr != nil {
		return nil, f.ownedErr
	}
	return append([]platform.OwnedTitle(nil), f.owned...), nil
}

func (f *fakeConn) emit(ev platform.Event) { f.events <- ev }

func (f *fakeConn) declareCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.declarations)
}

func (f *fakeConn) lastDeclared() []uint32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.declarations) == 0 {
		return nil
	}
	return f.declarations[len(f.declarations)-1]
}

func (f *fakeConn) lastVisibility() (platform.Visibility, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.visibilities) == 0 {
		return platform.VisibilityOnline, false
	}
	return f.visibilities[len(f.visibilities)-1], true
}

func (f *fakeConn) isDisconnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.disconnected
}

type fakeDialer struct {
	mu    sync.Mutex
	err   error
	opts  []platform.ConnectOptions
	conns []*fakeConn
}

func (d *fakeDialer) Dial(opts platform.ConnectOptions) (platform.Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.opts = append(d.opts, opts)
	if d.err != nil {
		return nil, d.err
	}
	c := newFakeConn()
	d.conns = append(d.conns, c)
	return c, nil
}

func (d *fakeDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.opts)
}

func (d *fakeDialer) conn(i int) *fakeConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	if i < 0 || i >= len(d.conns) {
		return nil
	}
	return d.conns[i]
}

func (d *fakeDialer) lastOpts() platform.ConnectOptions {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.opts) == 0 {
		return platform.ConnectOptions{}
	}
	return d.opts[len(d.opts)-1]
}

// newTestCoordinator wires a coordinator against a temp-dir store and a
// stub catalog that always falls back to placeholder names.
func newTestCoordinator(t *testing.T, dialer platform.Dialer, clk clockwork.Clock) (*Coordinator, *store.Store) {
	t.Helper()
	st, err := store.New(t.TempDir())
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	t.Cleanup(srv.Close)
	cat := catalog.New(srv.URL, time.Second)
	return NewCoordinator(st, cat, dialer, clk, 30*time.Second), st
}

// waitFor polls cond until it holds or the deadline passes. Session events
// are handled on background goroutines, so observable state trails the
// injected event by a scheduling hop.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func mustSnap(t *testing.T, c *Coordinator, accountID string) Snapshot {
	t.Helper()
	for _, s := range c.Accounts() {
		if s.Account.AccountID == accountID {
			return s
		}
	}
	t.Fatalf("account %q not in roster", accountID)
	return Snapshot{}
}

func hasAccount(c *Coordinator, accountID string) bool {
	for _, s := range c.Accounts() {
		if s.Account.AccountID == accountID {
			return true
		}
	}
	return false
}

// addAuthenticated registers the account, waits for the dial and drives the
// session to authenticated.
func addAuthenticated(t *testing.T, c *Coordinator, d *fakeDialer, acc store.Account) *fakeConn {
	t.Helper()
	prev := d.dialCount()
	if _, err := c.AddAccount(acc, "hunter2"); err != nil {
		t.Fatalf("AddAccount(%s): %v", acc.AccountID, err)
	}
	waitFor(t, "dial", func() bool { return d.conn(prev) != nil })
	conn := d.conn(prev)
	conn.emit(platform.AuthenticatedEvent{})
	waitFor(t, "authenticated", func() bool { return !mustSnap(t, c, acc.AccountID).Connecting })
	return conn
}
