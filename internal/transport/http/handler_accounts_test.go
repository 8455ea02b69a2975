package httptransport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"hourfarm/internal/app/accounts"
	"hourfarm/internal/catalog"
	"hourfarm/internal/config"
	"hourfarm/internal/farm"
	"hourfarm/internal/platform"
	"hourfarm/internal/store"
)

type stubConn struct {
	mu       sync.Mutex
	events   chan platform.Event
	declared []uint32
}

func (s *stubConn) Events() <-chan platform.Event { return s.events }
func (s *stubConn) Disconnect()                   {}

func (s *stubConn) DeclareActivity(titleIDs []uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.declared = append([]uint32(nil), titleIDs...)
	return nil
}

func (s *stubConn) SetVisibility(platform.Visibility) error { return nil }

func (s *stubConn) RequestOwnedTitles(context.Context) ([]platform.OwnedTitle, error) {
	return []platform.OwnedTitle{{TitleID: 10, Name: "Ten"}}, nil
}

type stubDialer struct {
	mu    sync.Mutex
	conns []*stubConn
}

func (d *stubDialer) Dial(platform.ConnectOptions) (platform.Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	c := &stubConn{events: make(chan platform.Event, 8)}
	d.conns = append(d.conns, c)
	return c, nil
}

func (d *stubDialer) conn(i int) *stubConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	if i >= len(d.conns) {
		return nil
	}
	return d.conns[i]
}

func newTestServer(t *testing.T) (*httptest.Server, *stubDialer) {
	t.Helper()
	return newTestServerWithConfig(t, config.ServerConfig{})
}

func newTestServerWithConfig(t *testing.T, cfg config.ServerConfig) (*httptest.Server, *stubDialer) {
	t.Helper()
	st, err := store.New(t.TempDir())
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	catSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	t.Cleanup(catSrv.Close)

	dialer := &stubDialer{}
	coord := farm.NewCoordinator(st, catalog.New(catSrv.URL, time.Second), dialer, nil, 30*time.Second)
	srv := httptest.NewServer(NewRouter(accounts.NewService(coord), cfg))
	t.Cleanup(srv.Close)
	return srv, dialer
}

func doJSON(t *testing.T, method, url string, body any) (int, map[string]any) {
	t.Helper()
	var buf io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		buf = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, url, buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	var out map[string]any
	if len(raw) > 0 && json.Valid(raw) {
		_ = json.Unmarshal(raw, &out)
	}
	return resp.StatusCode, out
}

func waitForHTTP(t *testing.T, what string, cond func() bool) {
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

func TestAccountLifecycleOverHTTP(t *testing.T) {
	srv, dialer := newTestServer(t)

	status, body := doJSON(t, http.MethodPost, srv.URL+"/accounts", map[string]any{
		"accountId":   "alice",
		"password":    "hunter2",
		"displayName": "Alice",
		"titles":      []map[string]any{{"titleId": 10}},
	})
	if status != http.StatusCreated {
		t.Fatalf("add: status %d body %v", status, body)
	}
	if body["accountId"] != "alice" || body["isConnecting"] != true {
		t.Fatalf("add response: %v", body)
	}

	status, body = doJSON(t, http.MethodPost, srv.URL+"/accounts", map[string]any{
		"accountId": "alice", "password": "other",
	})
	if status != http.StatusConflict || body["error"] != "account_exists" {
		t.Fatalf("duplicate add: status %d body %v", status, body)
	}

	status, body = doJSON(t, http.MethodPost, srv.URL+"/accounts/alice/toggle-farm", nil)
	if status != http.StatusConflict || body["error"] != "not_authenticated" {
		t.Fatalf("premature toggle: status %d body %v", status, body)
	}

	waitForHTTP(t, "dial", func() bool { return dialer.conn(0) != nil })
	conn := dialer.conn(0)
	conn.events <- platform.AuthenticatedEvent{}
	waitForHTTP(t, "authenticated", func() bool {
		_, list := doJSON(t, http.MethodGet, srv.URL+"/accounts", nil)
		items := list["items"].([]any)
		return len(items) == 1 && items[0].(map[string]any)["isConnecting"] == false
	})

	status, body = doJSON(t, http.MethodPost, srv.URL+"/accounts/alice/toggle-farm", nil)
	if status != http.StatusOK || body["isFarming"] != true {
		t.Fatalf("toggle on: status %d body %v", status, body)
	}
	conn.mu.Lock()
	declared := append([]uint32(nil), conn.declared...)
	conn.mu.Unlock()
	if len(declared) != 1 || declared[0] != 10 {
		t.Fatalf("declared titles: %v", declared)
	}

	status, body = doJSON(t, http.MethodPost, srv.URL+"/accounts/alice/fetch-library", nil)
	if status != http.StatusOK || body["count"] != float64(1) {
		t.Fatalf("fetch-library: status %d body %v", status, body)
	}

	status, body = doJSON(t, http.MethodPost, srv.URL+"/accounts/alice/toggle-offline", nil)
	if status != http.StatusOK || body["isFarmingOffline"] != true {
		t.Fatalf("toggle-offline: status %d body %v", status, body)
	}

	status, body = doJSON(t, http.MethodDelete, srv.URL+"/accounts/alice", nil)
	if status != http.StatusOK {
		t.Fatalf("remove: status %d body %v", status, body)
	}
	_, list := doJSON(t, http.MethodGet, srv.URL+"/accounts", nil)
	if items := list["items"].([]any); len(items) != 0 {
		t.Fatalf("roster after remove: %v", items)
	}
}

func TestErrorCodes(t *testing.T) {
	srv, _ := newTestServer(t)

	cases := []struct {
		name       string
		method     string
		path       string
		body       any
		wantStatus int
		wantCode   string
	}{
		{"add without password", http.MethodPost, "/accounts",
			map[string]any{"accountId": "x"}, http.StatusBadRequest, "invalid_request"},
		{"remove unknown", http.MethodDelete, "/accounts/ghost", nil,
			http.StatusNotFound, "account_not_found"},
		{"toggle unknown", http.MethodPost, "/accounts/ghost/toggle-farm", nil,
			http.StatusNotFound, "account_not_found"},
		{"farm-mode unknown", http.MethodPost, "/accounts/ghost/farm-mode",
			map[string]any{"mode": "goal"}, http.StatusNotFound, "account_not_found"},
		{"two-factor unknown", http.MethodPost, "/accounts/ghost/two-factor",
			map[string]any{"code": "12345"}, http.StatusNotFound, "account_not_found"},
		{"relogin unknown", http.MethodPost, "/accounts/ghost/relogin",
			map[string]any{"password": "pw"}, http.StatusNotFound, "account_not_found"},
		{"fetch-library unknown", http.MethodPost, "/accounts/ghost/fetch-library", nil,
			http.StatusNotFound, "account_not_found"},
	}
	for _, tc := range cases {
		status, body := doJSON(t, tc.method, srv.URL+tc.path, tc.body)
		if status != tc.wantStatus || body["error"] != tc.wantCode {
			t.Fatalf("%s: status %d body %v, want %d %s", tc.name, status, body, tc.wantStatus, tc.wantCode)
		}
	}
}

func TestTwoFactorOverHTTP(t *testing.T) {
	srv, dialer := newTestServer(t)

	status, _ := doJSON(t, http.MethodPost, srv.URL+"/accounts", map[string]any{
		"accountId": "alice", "password": "hunter2",
	})
	if status != http.StatusCreated {
		t.Fatalf("add: status %d", status)
	}
	waitForHTTP(t, "dial", func() bool { return dialer.conn(0) != nil })

	codes := make(chan string, 1)
	dialer.conn(0).events <- platform.TwoFactorRequiredEvent{
		Domain:  "gaming.example",
		Respond: func(code string) { codes <- code },
	}
	waitForHTTP(t, "challenge", func() bool {
		_, list := doJSON(t, http.MethodGet, srv.URL+"/accounts", nil)
		items := list["items"].([]any)
		return len(items) == 1 && items[0].(map[string]any)["needsTwoFactor"] == true
	})

	status, body := doJSON(t, http.MethodPost, srv.URL+"/accounts/alice/two-factor",
		map[string]any{"code": ""})
	if status != http.StatusBadRequest || body["error"] != "invalid_request" {
		t.Fatalf("empty code: status %d body %v", status, body)
	}

	status, _ = doJSON(t, http.MethodPost, srv.URL+"/accounts/alice/two-factor",
		map[string]any{"code": "12345"})
	if status != http.StatusOK {
		t.Fatalf("submit code: status %d", status)
	}
	select {
	case got := <-codes:
		if got != "12345" {
			t.Fatalf("delivered code %q", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("code never reached the session")
	}

	status, body = doJSON(t, http.MethodPost, srv.URL+"/accounts/alice/two-factor",
		map[string]any{"code": "12345"})
	if status != http.StatusBadRequest || body["error"] != "no_active_challenge" {
		t.Fatalf("second submit: status %d body %v", status, body)
	}
}

func TestHealthAndRouteSurface(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	raw, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || string(raw) != "OK" {
		t.Fatalf("health: %d %q", resp.StatusCode, raw)
	}

	resp, err = http.Get(srv.URL + "/debug/vars")
	if err != nil {
		t.Fatalf("GET /debug/vars: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("debug vars: %d", resp.StatusCode)
	}
}

func TestMalformedJSONBody(t *testing.T) {
	srv, _ := newTestServer(t)

	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/accounts", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest || body["error"] != "invalid_request" {
		t.Fatalf("malformed body: %d %v", resp.StatusCode, body)
	}
	if fmt.Sprint(body["message"]) == "" {
		t.Fatalf("error envelope should carry a message")
	}
}
