package referral

import (
	"context"
	"log/slog"
	"net/http"

	"beatwise/impl/referral"
	"beatwise/internal/http-server/handlers/errors"
	"beatwise/lib/api/response"
	"beatwise/lib/sl"
	"beatwise/lib/validate"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

type Core interface {
	ApplyReferral(ctx context.Context, wallet, code string) (*referral.Result, error)
	ReferralInfo(ctx context.Context, wallet string) (*referral.Info, error)
}

type ApplyRequest struct {
	Code string `json:"code" validate:"required"`
}

func (a *ApplyRequest) Bind(_ *http.Request) error {
	return validate.Struct(a)
}

func Apply(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.referral")
		wallet := chi.URLParam(r, "wallet")

		logger := log.With(
			mod,
			sl.Wallet(wallet),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		if handler == nil {
			errors.Unavailable(w, r, logger, "Referral")
			return
		}

		var req ApplyRequest
		if err := render.Bind(r, &req); err != nil {
			errors.BadRequest(w, r, logger, err)
			return
		}

		result, err := handler.ApplyReferral(r.Context(), wallet, req.Code)
		if err != nil {
			errors.Render(w, r, logger, err)
			return
		}

		render.JSON(w, r, response.Ok(result))
	}
}

func Info(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.referral")
		wallet := chi.URLParam(r, "wallet")

		logger := log.With(
			mod,
			sl.Wallet(wallet),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		if handler == nil {
			errors.Unavailable(w, r, logger, "Referral")
			return
		}

		info, err := handler.ReferralInfo(r.Context(), wallet)
		if err != nil {
			errors.Render(w, r, logger, err)
			return
		}

		render.JSON(w, r, response.Ok(info))
	}
}
