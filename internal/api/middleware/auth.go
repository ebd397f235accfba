package middleware

import (
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/kiranshivaraju/gitverified/internal/api/response"
)

// WebhookAuth guards the ATS webhook with a shared bearer token whose bcrypt
// hash is configured. With no hash configured every request passes.
type WebhookAuth struct {
	tokenHash []byte
}

// NewWebhookAuth creates a new WebhookAuth middleware.
func NewWebhookAuth(tokenHash string) *WebhookAuth {
	return &WebhookAuth{tokenHash: []byte(tokenHash)}
}

// Enabled reports whether a token hash is configured.
func (a *WebhookAuth) Enabled() bool {
	return len(a.tokenHash) > 0
}

func (a *WebhookAuth) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.Enabled() {
			next.ServeHTTP(w, r)
			return
		}

		token := extractBearerToken(r)
		if token == "" {
			response.Error(w, http.StatusUnauthorized,
				"INVALID_TOKEN", "Missing or invalid Authorization header", "", nil)
			return
		}

		if bcrypt.CompareHashAndPassword(a.tokenHash, []byte(token)) != nil {
			response.Error(w, http.StatusUnauthorized,
				"INVALID_TOKEN", "Invalid webhook token", "", nil)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
