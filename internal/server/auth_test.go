package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAuthMiddleware(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name          string
		apiKey        string
		authorization string
		wantCode      int
		wantChallenge bool
	}{
		{
			name:          "disabled passes everything through",
			apiKey:        "",
			authorization: "",
			wantCode:      http.StatusOK,
		},
		{
			name:          "missing header rejected",
			apiKey:        "secret",
			authorization: "",
			wantCode:      http.StatusUnauthorized,
			wantChallenge: true,
		},
		{
			name:          "wrong token rejected",
			apiKey:        "secret",
			authorization: "Bearer wrong-token",
			wantCode:      http.StatusUnauthorized,
			wantChallenge: true,
		},
		{
			name:          "correct token accepted",
			apiKey:        "secret",
			authorization: "Bearer secret",
			wantCode:      http.StatusOK,
		},
		{
			name:          "lowercase scheme accepted",
			apiKey:        "secret",
			authorization: "bearer secret",
			wantCode:      http.StatusOK,
		},
		{
			name:          "basic auth rejected",
			apiKey:        "secret",
			authorization: "Basic dXNlcjpwYXNz",
			wantCode:      http.StatusUnauthorized,
			wantChallenge: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			h := authMiddleware(tc.apiKey, okHandler)
			req := httptest.NewRequest(http.MethodPost, "/chat", nil)
			if tc.authorization != "" {
				req.Header.Set("Authorization", tc.authorization)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			if w.Code != tc.wantCode {
				t.Fatalf("status = %d, want %d", w.Code, tc.wantCode)
			}
			if tc.wantChallenge && w.Header().Get("WWW-Authenticate") == "" {
				t.Error("401 response missing WWW-Authenticate challenge")
			}
		})
	}
}

func TestBearerToken(t *testing.T) {
	t.Parallel()

	cases := []struct {
		header string
		want   string
	}{
		{"Bearer mytoken", "mytoken"},
		{"bearer mytoken", "mytoken"},
		{"BEARER mytoken", "mytoken"},
		{"Bearer  spaced ", "spaced"},
		{"Basic dXNlcjpwYXNz", ""},
		{"", ""},
		{"Bearer", ""},
		{"token only", ""},
	}

	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		if got := bearerToken(req); got != tc.want {
			t.Errorf("bearerToken(%q) = %q, want %q", tc.header, got, tc.want)
		}
	}
}
