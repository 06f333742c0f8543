package auth

import "net/http"

// ContextKey is the type used for context keys
type ContextKey string

const (
	// ContextKeyClientID is the key for the client session ID in the context
	ContextKeyClientID ContextKey = "clientID"
	// ContextKeyNewClient marks requests whose session ID was issued by the server
	ContextKeyNewClient ContextKey = "newClient"
)

// GetClientID retrieves the client session ID from the request context.
func GetClientID(r *http.Request) string {
	if id, ok := r.Context().Value(ContextKeyClientID).(string); ok {
		return id
	}
	return ""
}

// IsNewClient reports whether the session ID was issued for this request.
func IsNewClient(r *http.Request) bool {
	if issued, ok := r.Context().Value(ContextKeyNewClient).(bool); ok {
		return issued
	}
	return false
}
