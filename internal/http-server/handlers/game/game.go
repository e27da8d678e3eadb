package game

import (
	"context"
	"log/slog"
	"net/http"

	"beatwise/impl/ledger"
	"beatwise/impl/quota"
	"beatwise/internal/http-server/handlers/errors"
	"beatwise/lib/api/response"
	"beatwise/lib/sl"
	"beatwise/lib/validate"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

type Core interface {
	CanPlay(ctx context.Context, wallet string) (*quota.Status, error)
	RecordPlay(ctx context.Context, wallet string) (*quota.Status, error)
	RecordGameResult(ctx context.Context, wallet string, points int64) (*ledger.GameResult, error)
}

type ResultRequest struct {
	Points int64 `json:"points" validate:"required,gt=0"`
}

func (g *ResultRequest) Bind(_ *http.Request) error {
	return validate.Struct(g)
}

func requestLogger(log *slog.Logger, r *http.Request) (*slog.Logger, string) {
	wallet := chi.URLParam(r, "wallet")
	return log.With(
		sl.Module("http.handlers.game"),
		sl.Wallet(wallet),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	), wallet
}

func Quota(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger, wallet := requestLogger(log, r)
		if handler == nil {
			errors.Unavailable(w, r, logger, "Game")
			return
		}

		status, err := handler.CanPlay(r.Context(), wallet)
		if err != nil {
			errors.Render(w, r, logger, err)
			return
		}

		render.JSON(w, r, response.Ok(status))
	}
}

func Play(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger, wallet := requestLogger(log, r)
		if handler == nil {
			errors.Unavailable(w, r, logger, "Game")
			return
		}

		status, err := handler.RecordPlay(r.Context(), wallet)
		if err != nil {
			errors.Render(w, r, logger, err)
			return
		}

		render.JSON(w, r, response.Ok(status))
	}
}

func Result(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger, wallet := requestLogger(log, r)
		if handler == nil {
			errors.Unavailable(w, r, logger, "Game")
			return
		}

		var req ResultRequest
		if err := render.Bind(r, &req); err != nil {
			errors.BadRequest(w, r, logger, err)
			return
		}

		result, err := handler.RecordGameResult(r.Context(), wallet, req.Points)
		if err != nil {
			errors.Render(w, r, logger, err)
			return
		}

		render.JSON(w, r, response.Ok(result))
	}
}
