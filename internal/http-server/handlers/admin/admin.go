package admin

import (
	"context"
	"log/slog"
	"net/http"

	"beatwise/entity"
	"beatwise/impl/ledger"
	"beatwise/internal/http-server/handlers/errors"
	"beatwise/lib/api/cont"
	"beatwise/lib/api/response"
	"beatwise/lib/sl"
	"beatwise/lib/validate"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

type Core interface {
	Credit(ctx context.Context, wallet string, category entity.Category, amount int64) (int64, error)
	ResetGamePoints(ctx context.Context, wallet string) (*ledger.GameReset, error)
}

type CreditRequest struct {
	WalletAddress string          `json:"wallet_address" validate:"required,wallet"`
	Category      entity.Category `json:"category" validate:"required"`
	Amount        int64           `json:"amount" validate:"required"`
}

func (c *CreditRequest) Bind(_ *http.Request) error {
	return validate.Struct(c)
}

type CreditResult struct {
	WalletAddress string          `json:"wallet_address"`
	Category      entity.Category `json:"category"`
	Amount        int64           `json:"amount"`
	TotalPoints   int64           `json:"total_points"`
}

func Credit(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.admin")

		logger := log.With(
			mod,
			slog.String("admin", cont.GetAdmin(r.Context())),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		if handler == nil {
			errors.Unavailable(w, r, logger, "Admin")
			return
		}

		var req CreditRequest
		if err := render.Bind(r, &req); err != nil {
			errors.BadRequest(w, r, logger, err)
			return
		}
		logger = logger.With(
			sl.Wallet(req.WalletAddress),
			slog.String("category", string(req.Category)),
			slog.Int64("amount", req.Amount),
		)

		total, err := handler.Credit(r.Context(), req.WalletAddress, req.Category, req.Amount)
		if err != nil {
			errors.Render(w, r, logger, err)
			return
		}
		logger.Info("admin credit")

		render.JSON(w, r, response.Ok(CreditResult{
			WalletAddress: entity.NormalizeWallet(req.WalletAddress),
			Category:      req.Category,
			Amount:        req.Amount,
			TotalPoints:   total,
		}))
	}
}

func ResetGame(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.admin")
		wallet := chi.URLParam(r, "wallet")

		logger := log.With(
			mod,
			sl.Wallet(wallet),
			slog.String("admin", cont.GetAdmin(r.Context())),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		if handler == nil {
			errors.Unavailable(w, r, logger, "Admin")
			return
		}

		reset, err := handler.ResetGamePoints(r.Context(), wallet)
		if err != nil {
			errors.Render(w, r, logger, err)
			return
		}
		logger.With(slog.Int64("previous", reset.PreviousGamePoints)).Info("admin game reset")

		render.JSON(w, r, response.Ok(reset))
	}
}
