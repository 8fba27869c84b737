package rest

import (
	"net/http"
	"strings"

	"github.com/dmitrijs2005/storeauth/internal/common"
	"github.com/dmitrijs2005/storeauth/internal/server/auth"
	"github.com/gorilla/mux"
)

// RequireSession resolves the caller's session from the bearer access token
// and the optional X-Refresh-Token header. Renewed tokens are written to the
// response headers before the wrapped handler runs.
func (s *Server) RequireSession() mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			accessToken := bearerToken(r)
			refreshToken := r.Header.Get(common.HTTPRefreshTokenHeader)

			sess, err := s.resolver.Resolve(r.Context(), accessToken, refreshToken)
			if err != nil {
				if ae, ok := auth.AsAuthError(err); ok {
					writeError(w, ae.Status, string(ae.Kind), ae.Message)
					return
				}
				s.logger.Error(r.Context(), "session resolution failed", "path", r.URL.Path, "error", err)
				writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
				return
			}

			if sess.AccessRenewed {
				w.Header().Set(common.HTTPAccessTokenHeader, sess.AccessToken)
			}
			if sess.RefreshRotated {
				w.Header().Set(common.HTTPRefreshTokenHeader, sess.RefreshToken)
			}

			next.ServeHTTP(w, r.WithContext(auth.ContextWithSession(r.Context(), sess)))
		})
	}
}

// bearerToken returns "" when the header is absent or not a bearer
// credential; the resolver reports that as a missing token.
func bearerToken(r *http.Request) string {
	scheme, token, ok := strings.Cut(r.Header.Get(common.HTTPAuthorizationHeader), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
