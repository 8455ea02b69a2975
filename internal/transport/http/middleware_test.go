package httptransport

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"hourfarm/internal/config"
)

func TestParseMaybeJSON(t *testing.T) {
	cases := []struct {
		name string
		in   []byte
		want any
	}{
		{"empty", nil, ""},
		{"object", []byte(`{"ok":true}`), map[string]any{"ok": true}},
		{"plain text", []byte("not json"), "not json"},
	}
	for _, tc := range cases {
		got := parseMaybeJSON(tc.in)
		if !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("%s: got %#v, want %#v", tc.name, got, tc.want)
		}
	}
}

func TestBodyCaptureRestoresRequestBody(t *testing.T) {
	var seen []byte
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = io.ReadAll(r.Body)
		_, _ = w.Write([]byte(`{"echoed":true}`))
	})
	// Same stacking order as the router: the capture attaches attrs to the
	// request logger's entry.
	handler := APILogMiddleware()(BodyCaptureMiddleware(16)(inner))

	payload := []byte(`{"accountId":"alice","password":"hunter2"}`)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/accounts", bytes.NewReader(payload)))

	// The downstream handler must see the full body even when the capture
	// window is smaller than the payload.
	if !bytes.Equal(seen, payload) {
		t.Fatalf("handler saw %q, want %q", seen, payload)
	}
	if rec.Body.String() != `{"echoed":true}` {
		t.Fatalf("response body: %q", rec.Body.String())
	}
}

func TestBodyCaptureEnabledEndToEnd(t *testing.T) {
	srv, _ := newTestServerWithConfig(t, config.ServerConfig{
		LogHTTPBodies:   true,
		LogBodyMaxBytes: 64,
	})

	status, body := doJSON(t, http.MethodPost, srv.URL+"/accounts", map[string]any{
		"accountId": "alice",
		"password":  "hunter2",
	})
	if status != http.StatusCreated || body["accountId"] != "alice" {
		t.Fatalf("add with capture enabled: status %d body %v", status, body)
	}
	status, body = doJSON(t, http.MethodGet, srv.URL+"/accounts", nil)
	if status != http.StatusOK || len(body["items"].([]any)) != 1 {
		t.Fatalf("list with capture enabled: status %d body %v", status, body)
	}
}
