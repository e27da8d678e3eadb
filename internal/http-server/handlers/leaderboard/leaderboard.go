package leaderboard

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"beatwise/entity"
	"beatwise/impl/ranking"
	"beatwise/internal/http-server/handlers/errors"
	"beatwise/lib/api/response"
	"beatwise/lib/sl"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

type Core interface {
	TopN(ctx context.Context, scope entity.Scope, page, size int) (*ranking.Page, error)
	Rank(ctx context.Context, wallet string, scope entity.Scope) (*ranking.Position, error)
}

// intParam reads an integer query value; absent means def.
func intParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, entity.Errorf(entity.KindInvalidPage, "%s must be an integer", name)
	}
	return v, nil
}

// Top serves /leaderboard/{scope}?page=&limit=
func Top(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.leaderboard")

		logger := log.With(
			mod,
			slog.String("scope", chi.URLParam(r, "scope")),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		if handler == nil {
			errors.Unavailable(w, r, logger, "Leaderboard")
			return
		}

		scope, err := entity.ParseScope(chi.URLParam(r, "scope"))
		if err != nil {
			errors.Render(w, r, logger, err)
			return
		}
		page, err := intParam(r, "page", ranking.DefaultPage)
		if err != nil {
			errors.Render(w, r, logger, err)
			return
		}
		size, err := intParam(r, "limit", ranking.DefaultPageSize)
		if err != nil {
			errors.Render(w, r, logger, err)
			return
		}

		result, err := handler.TopN(r.Context(), scope, page, size)
		if err != nil {
			errors.Render(w, r, logger, err)
			return
		}

		render.JSON(w, r, response.Ok(result))
	}
}

func Rank(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.leaderboard")
		wallet := chi.URLParam(r, "wallet")

		logger := log.With(
			mod,
			sl.Wallet(wallet),
			slog.String("scope", chi.URLParam(r, "scope")),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		if handler == nil {
			errors.Unavailable(w, r, logger, "Leaderboard")
			return
		}

		scope, err := entity.ParseScope(chi.URLParam(r, "scope"))
		if err != nil {
			errors.Render(w, r, logger, err)
			return
		}

		position, err := handler.Rank(r.Context(), wallet, scope)
		if err != nil {
			errors.Render(w, r, logger, err)
			return
		}

		render.JSON(w, r, response.Ok(position))
	}
}
