package server

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/quillhaven/sitechat/internal/logging"
)

// authMiddleware enforces Bearer authentication on the wrapped handler when
// apiKey is non-empty. An empty key returns next unchanged: a public site
// runs without auth, and the server logs that choice once at startup rather
// than per request.
//
// Protected routes require:
//
//	Authorization: Bearer <apiKey>
//
// Rejections are 401 with a WWW-Authenticate challenge. Presented token
// values never reach the logs, only the fact that one was present.
func authMiddleware(apiKey string, next http.Handler) http.Handler {
	if apiKey == "" {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log := logging.FromContext(r.Context())

		token := bearerToken(r)
		if token == "" {
			log.Warn("auth: missing Authorization header",
				slog.String("path", r.URL.Path),
			)
			w.Header().Set("WWW-Authenticate", `Bearer realm="sitechat"`)
			http.Error(w, "authorization required", http.StatusUnauthorized)
			return
		}

		if token != apiKey {
			log.Warn("auth: invalid token",
				slog.String("path", r.URL.Path),
				slog.Bool("token_present", true),
			)
			w.Header().Set("WWW-Authenticate", `Bearer realm="sitechat" error="invalid_token"`)
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// bearerToken extracts the token from an "Authorization: Bearer <token>"
// header. The scheme comparison is case-insensitive per RFC 7235. Absent or
// malformed headers yield an empty string.
func bearerToken(r *http.Request) string {
	hdr := r.Header.Get("Authorization")
	if hdr == "" {
		return ""
	}
	scheme, token, ok := strings.Cut(hdr, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
