package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/rohits-web03/radiologix/internal/common"
	"github.com/rohits-web03/radiologix/internal/credentials"
	"github.com/rohits-web03/radiologix/internal/utils"
)

type contextKey string

const identityKey contextKey = "identity"

// TokenCookie is the cookie login sets and Auth falls back to.
const TokenCookie = "token"

// Verifier resolves a bearer token to the identity it was issued for.
type Verifier interface {
	Verify(ctx context.Context, token string) (*credentials.Identity, error)
}

// Auth rejects requests without a valid token and stores the caller's
// identity in the request context.
func Auth(verifier Verifier, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			token := tokenFromRequest(r)
			if token == "" {
				log.Debug("authentication failed", "kind", "missing", "path", r.URL.Path)
				Unauthorized(w)
				return
			}

			identity, err := verifier.Verify(r.Context(), token)
			if err != nil {
				if kind := common.AuthFailureKind(err); kind != "" {
					log.Info("authentication failed", "kind", kind, "path", r.URL.Path)
					Unauthorized(w)
					return
				}
				log.Error("resolve token subject", "err", err)
				utils.JSONResponse(w, http.StatusInternalServerError, utils.Payload{
					Success: false,
					Message: "Internal server error",
				})
				return
			}

			ctx := context.WithValue(r.Context(), identityKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IdentityFrom returns the identity Auth stored in ctx.
func IdentityFrom(ctx context.Context) (*credentials.Identity, bool) {
	id, ok := ctx.Value(identityKey).(*credentials.Identity)
	return id, ok && id != nil
}

// WithIdentity is the inverse of IdentityFrom, for handlers tested without
// the middleware.
func WithIdentity(ctx context.Context, id *credentials.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// Unauthorized writes the single response every token failure maps to.
func Unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	utils.JSONResponse(w, http.StatusUnauthorized, utils.Payload{
		Success: false,
		Message: "Could not validate credentials",
	})
}

func tokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if c, err := r.Cookie(TokenCookie); err == nil {
		return c.Value
	}
	return ""
}
