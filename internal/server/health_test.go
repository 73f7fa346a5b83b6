package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type fakePinger struct {
	name string
	err  error
}

func (f *fakePinger) Name() string                 { return f.name }
func (f *fakePinger) Ping(_ context.Context) error { return f.err }

func probeReady(t *testing.T, pingers ...Pinger) (*httptest.ResponseRecorder, readyResponse) {
	t.Helper()

	s := newChatTestServer(&fakeAnswerer{response: "ok"}, nil)
	s.pingers = pingers

	w := httptest.NewRecorder()
	s.handleReady(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	var resp readyResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode readiness body: %v", err)
	}
	return w, resp
}

func TestHandleHealth(t *testing.T) {
	t.Parallel()

	s := newChatTestServer(&fakeAnswerer{response: "ok"}, nil)
	w := httptest.NewRecorder()
	s.handleHealth(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %q, want \"ok\"", body["status"])
	}
}

func TestHandleReady_NoPingers(t *testing.T) {
	t.Parallel()

	w, resp := probeReady(t)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !resp.Ready || len(resp.Checks) != 0 {
		t.Errorf("got ready=%v checks=%d, want ready with no checks", resp.Ready, len(resp.Checks))
	}
}

func TestHandleReady_AllHealthy(t *testing.T) {
	t.Parallel()

	w, resp := probeReady(t,
		&fakePinger{name: "gemini"},
		&fakePinger{name: "smtp"},
	)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !resp.Ready {
		t.Error("ready = false, want true")
	}
	if len(resp.Checks) != 2 {
		t.Fatalf("len(checks) = %d, want 2", len(resp.Checks))
	}
	for _, c := range resp.Checks {
		if !c.OK || c.Error != "" {
			t.Errorf("check %q: ok=%v error=%q, want healthy", c.Name, c.OK, c.Error)
		}
	}
}

func TestHandleReady_OneFailing(t *testing.T) {
	t.Parallel()

	w, resp := probeReady(t,
		&fakePinger{name: "gemini"},
		&fakePinger{name: "smtp", err: errors.New("connection refused")},
	)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", w.Code)
	}
	if resp.Ready {
		t.Error("ready = true, want false")
	}

	found := false
	for _, c := range resp.Checks {
		if c.Name != "smtp" {
			continue
		}
		found = true
		if c.OK {
			t.Error("smtp check reported ok despite failing ping")
		}
		if c.Error == "" {
			t.Error("smtp check has empty error")
		}
	}
	if !found {
		t.Fatal("smtp check missing from response")
	}
}

func TestHandleReady_AllFailing(t *testing.T) {
	t.Parallel()

	w, resp := probeReady(t,
		&fakePinger{name: "gemini", err: errors.New("timeout")},
		&fakePinger{name: "smtp", err: errors.New("connection refused")},
	)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", w.Code)
	}
	if resp.Ready {
		t.Error("ready = true, want false")
	}
	for _, c := range resp.Checks {
		if c.OK {
			t.Errorf("check %q reported ok despite failing ping", c.Name)
		}
	}
}

func TestHandleReady_ContentType(t *testing.T) {
	t.Parallel()

	w, _ := probeReady(t, &fakePinger{name: "gemini", err: errors.New("down")})
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
}
