package ledger

import (
	"context"
	"log/slog"

	"beatwise/entity"
	"beatwise/lib/sl"
)

type GameResult struct {
	WalletAddress      string `json:"wallet_address"`
	PointsAdded        int64  `json:"points_added"`
	PreviousGamePoints int64  `json:"previous_game_points"`
	GamePoints         int64  `json:"game_points"`
	TotalPoints        int64  `json:"total_points"`
	HighScore          int64  `json:"high_score"`
	PreviousHighScore  int64  `json:"previous_high_score"`
	IsNewHighScore     bool   `json:"is_new_high_score"`
}

// RecordGameResult credits the points of a finished game and raises the
// high score when the result beats it.
func (l *Ledger) RecordGameResult(ctx context.Context, wallet string, points int64) (*GameResult, error) {
	if err := checkCredit(entity.CategoryGame, points); err != nil {
		return nil, err
	}
	var result GameResult
	acc, err := l.Mutate(ctx, wallet, func(acc *entity.Account) error {
		result = GameResult{
			PreviousGamePoints: acc.GamePoints,
			PreviousHighScore:  acc.HighScore,
		}
		if err := ApplyCredit(acc, entity.CategoryGame, points); err != nil {
			return err
		}
		if points > acc.HighScore {
			acc.HighScore = points
			result.IsNewHighScore = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	l.Credited(entity.CategoryGame, points)

	result.WalletAddress = acc.WalletAddress
	result.PointsAdded = points
	result.GamePoints = acc.GamePoints
	result.TotalPoints = acc.TotalPoints()
	result.HighScore = acc.HighScore

	logger := l.log.With(sl.Wallet(acc.WalletAddress), slog.Int64("points", points))
	if result.IsNewHighScore {
		logger.Info("new high score")
	}
	logger.Debug("game result recorded")
	return &result, nil
}

type GameReset struct {
	WalletAddress      string `json:"wallet_address"`
	PreviousGamePoints int64  `json:"previous_game_points"`
	GamePoints         int64  `json:"game_points"`
	HighScore          int64  `json:"high_score"`
	TotalPoints        int64  `json:"total_points"`
}

// ResetGamePoints zeroes game points; the high score is kept.
func (l *Ledger) ResetGamePoints(ctx context.Context, wallet string) (*GameReset, error) {
	var previous int64
	acc, err := l.Mutate(ctx, wallet, func(acc *entity.Account) error {
		previous = acc.GamePoints
		acc.GamePoints = 0
		return nil
	})
	if err != nil {
		return nil, err
	}
	l.log.With(
		sl.Wallet(acc.WalletAddress),
		slog.Int64("previous", previous),
	).Info("game points reset")
	return &GameReset{
		WalletAddress:      acc.WalletAddress,
		PreviousGamePoints: previous,
		GamePoints:         acc.GamePoints,
		HighScore:          acc.HighScore,
		TotalPoints:        acc.TotalPoints(),
	}, nil
}
