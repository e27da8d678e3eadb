package account

import (
	"context"
	"log/slog"
	"net/http"

	"beatwise/entity"
	"beatwise/internal/http-server/handlers/errors"
	"beatwise/lib/api/response"
	"beatwise/lib/sl"
	"beatwise/lib/validate"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

type Core interface {
	Account(ctx context.Context, wallet string) (*entity.AccountView, error)
	LinkIdentity(ctx context.Context, wallet string, platform entity.Platform, identity entity.Identity) (*entity.AccountView, error)
}

type IdentityRequest struct {
	entity.Identity
}

func (i *IdentityRequest) Bind(_ *http.Request) error {
	return validate.Struct(i.Identity)
}

func Get(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.account")
		wallet := chi.URLParam(r, "wallet")

		logger := log.With(
			mod,
			sl.Wallet(wallet),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		if handler == nil {
			errors.Unavailable(w, r, logger, "Account")
			return
		}

		acc, err := handler.Account(r.Context(), wallet)
		if err != nil {
			errors.Render(w, r, logger, err)
			return
		}

		render.JSON(w, r, response.Ok(acc))
	}
}

// LinkIdentity receives a platform profile after the OAuth or widget
// callback for {platform}.
func LinkIdentity(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.account")
		wallet := chi.URLParam(r, "wallet")
		platform := entity.Platform(chi.URLParam(r, "platform"))

		logger := log.With(
			mod,
			sl.Wallet(wallet),
			slog.String("platform", string(platform)),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		if handler == nil {
			errors.Unavailable(w, r, logger, "Account")
			return
		}

		var req IdentityRequest
		if err := render.Bind(r, &req); err != nil {
			errors.BadRequest(w, r, logger, err)
			return
		}

		acc, err := handler.LinkIdentity(r.Context(), wallet, platform, req.Identity)
		if err != nil {
			errors.Render(w, r, logger, err)
			return
		}
		logger.Debug("identity linked")

		render.JSON(w, r, response.Ok(acc))
	}
}
