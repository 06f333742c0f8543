package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"mediadeck/internal/auth"
)

// ClientIDHeader carries the selection-memory session id in both directions.
const ClientIDHeader = "X-Client-ID"

const maxClientIDLength = 128

// Re-export from auth package for handlers outside this tree.
var (
	GetClientID = auth.GetClientID
	IsNewClient = auth.IsNewClient
)

// ClientSessionMiddleware identifies the caller's session. A valid
// X-Client-ID header is reused; otherwise a new id is issued and echoed back
// so the client can keep it for subsequent requests.
func ClientSessionMiddleware() mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			clientID := strings.TrimSpace(r.Header.Get(ClientIDHeader))
			issued := false
			if !validClientID(clientID) {
				clientID = uuid.NewString()
				issued = true
			}
			w.Header().Set(ClientIDHeader, clientID)

			ctx := context.WithValue(r.Context(), auth.ContextKeyClientID, clientID)
			ctx = context.WithValue(ctx, auth.ContextKeyNewClient, issued)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// validClientID accepts opaque ids made of URL-safe characters.
func validClientID(id string) bool {
	if id == "" || len(id) > maxClientIDLength {
		return false
	}
	for _, c := range id {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_', c == '.':
		default:
			return false
		}
	}
	return true
}
