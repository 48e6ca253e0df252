package session

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-checkout/internal/common"
)

// Authenticate resolves the bearer token into a session id and stores it on
// the request context. Requests without a valid token are rejected with 401.
func Authenticate(tokens Tokens) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := common.BearerToken(r)
			if !ok {
				common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing session token", nil)
				return
			}
			id, err := tokens.Parse(raw)
			if err != nil {
				common.WriteError(w, err)
				return
			}
			ctx := common.WithSessionID(r.Context(), id)
			zerolog.Ctx(ctx).UpdateContext(func(c zerolog.Context) zerolog.Context {
				return c.Str("session_id", id)
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
