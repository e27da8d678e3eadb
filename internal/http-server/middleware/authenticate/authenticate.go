package authenticate

import (
	"log/slog"
	"net/http"
	"strings"

	"beatwise/lib/api/cont"
	"beatwise/lib/api/response"
	"beatwise/lib/sl"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

type Authenticate interface {
	AuthenticateAdmin(token string) bool
}

// New guards admin routes with the configured bearer token.
func New(log *slog.Logger, auth Authenticate) func(next http.Handler) http.Handler {
	mod := sl.Module("middleware.authenticate")
	log.With(mod).Info("authenticate middleware initialized")

	return func(next http.Handler) http.Handler {

		fn := func(w http.ResponseWriter, r *http.Request) {
			logger := log.With(
				mod,
				slog.String("path", r.URL.Path),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			header := r.Header.Get("Authorization")
			if len(header) == 0 {
				logger.Warn("authorization header not found")
				authFailed(w, r, "Authorization header not found")
				return
			}
			token := ""
			if scheme, value, ok := strings.Cut(header, " "); ok && strings.EqualFold(scheme, "Bearer") {
				token = strings.TrimSpace(value)
			}
			if len(token) == 0 {
				logger.Warn("token not found")
				authFailed(w, r, "Token not found")
				return
			}
			logger = logger.With(sl.Secret("token", token))

			if auth == nil {
				authFailed(w, r, "Unauthorized: authentication not enabled")
				return
			}
			if !auth.AuthenticateAdmin(token) {
				logger.Warn("admin token rejected")
				authFailed(w, r, "Unauthorized: invalid token")
				return
			}

			ctx := cont.PutAdmin(r.Context(), "admin")
			next.ServeHTTP(w, r.WithContext(ctx))
		}

		return http.HandlerFunc(fn)
	}
}

func authFailed(w http.ResponseWriter, r *http.Request, message string) {
	render.Status(r, http.StatusUnauthorized)
	render.JSON(w, r, response.Error(message))
}
