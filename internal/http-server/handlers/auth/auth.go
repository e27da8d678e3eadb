package auth

import (
	"context"
	"log/slog"
	"net/http"

	"beatwise/impl/auth"
	"beatwise/internal/http-server/handlers/errors"
	"beatwise/lib/api/response"
	"beatwise/lib/sl"
	"beatwise/lib/validate"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

type Core interface {
	AuthMessage(wallet string) (*auth.Message, error)
	Authenticate(ctx context.Context, wallet, message, signature string) (*auth.Session, error)
}

type WalletRequest struct {
	WalletAddress string `json:"wallet_address" validate:"required,wallet"`
	Message       string `json:"message" validate:"required"`
	Signature     string `json:"signature" validate:"required"`
}

func (w *WalletRequest) Bind(_ *http.Request) error {
	return validate.Struct(w)
}

// Message returns the text to sign for ?wallet=
func Message(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.auth")
		wallet := r.URL.Query().Get("wallet")

		logger := log.With(
			mod,
			sl.Wallet(wallet),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		if handler == nil {
			errors.Unavailable(w, r, logger, "Auth")
			return
		}

		msg, err := handler.AuthMessage(wallet)
		if err != nil {
			errors.Render(w, r, logger, err)
			return
		}

		render.JSON(w, r, response.Ok(msg))
	}
}

func Wallet(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.auth")

		logger := log.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		if handler == nil {
			errors.Unavailable(w, r, logger, "Auth")
			return
		}

		var req WalletRequest
		if err := render.Bind(r, &req); err != nil {
			errors.BadRequest(w, r, logger, err)
			return
		}
		logger = logger.With(sl.Wallet(req.WalletAddress))

		session, err := handler.Authenticate(r.Context(), req.WalletAddress, req.Message, req.Signature)
		if err != nil {
			errors.Render(w, r, logger, err)
			return
		}
		logger.With(slog.Bool("new", session.IsNewUser)).Debug("wallet authenticated")

		render.JSON(w, r, response.Ok(session))
	}
}
