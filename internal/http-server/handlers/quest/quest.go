package quest

import (
	"context"
	"log/slog"
	"net/http"

	"beatwise/entity"
	"beatwise/impl/quest"
	"beatwise/internal/http-server/handlers/errors"
	"beatwise/lib/api/response"
	"beatwise/lib/sl"
	"beatwise/lib/validate"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

type Core interface {
	Tasks(ctx context.Context, wallet string) ([]entity.TaskState, error)
	CompleteSocialTask(ctx context.Context, wallet string, kind entity.TaskKind, platformUserID string, identity *entity.Identity) (*quest.Completion, error)
}

// CompleteRequest carries the platform user the task is verified for.
// Identity is optional profile data to store with it.
type CompleteRequest struct {
	PlatformUserID string           `json:"platform_user_id" validate:"required"`
	Identity       *entity.Identity `json:"identity,omitempty"`
}

func (c *CompleteRequest) Bind(_ *http.Request) error {
	if c.Identity != nil && c.Identity.ID == "" {
		c.Identity.ID = c.PlatformUserID
	}
	return validate.Struct(c)
}

func List(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.quest")
		wallet := chi.URLParam(r, "wallet")

		logger := log.With(
			mod,
			sl.Wallet(wallet),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		if handler == nil {
			errors.Unavailable(w, r, logger, "Quest")
			return
		}

		tasks, err := handler.Tasks(r.Context(), wallet)
		if err != nil {
			errors.Render(w, r, logger, err)
			return
		}

		render.JSON(w, r, response.Ok(tasks))
	}
}

func Complete(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.quest")
		wallet := chi.URLParam(r, "wallet")
		task := entity.TaskKind(chi.URLParam(r, "task"))

		logger := log.With(
			mod,
			sl.Wallet(wallet),
			slog.String("task", string(task)),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		if handler == nil {
			errors.Unavailable(w, r, logger, "Quest")
			return
		}

		var req CompleteRequest
		if err := render.Bind(r, &req); err != nil {
			errors.BadRequest(w, r, logger, err)
			return
		}

		result, err := handler.CompleteSocialTask(r.Context(), wallet, task, req.PlatformUserID, req.Identity)
		if err != nil {
			errors.Render(w, r, logger, err)
			return
		}
		logger.With(slog.Int64("reward", result.Reward)).Debug("task completed")

		render.JSON(w, r, response.Ok(result))
	}
}
