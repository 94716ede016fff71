package notifier

import (
	"context"

	"wishdraw-backend/internal/common/logger"
	"wishdraw-backend/internal/features/giveaway/models"
)

// Notifier delivers draw results to the presentation collaborator. The core
// never formats human-readable text; it hands over the ordered winner list
// plus the giveaway metadata and lets the collaborator render it.
type Notifier interface {
	DeliverResults(ctx context.Context, giveaway *models.Giveaway, results []models.WinnerResult) error
}

// LogNotifier is the default sink used when no chat-platform collaborator is
// attached. It never fails, so draws finalize on the first attempt.
type LogNotifier struct{}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) DeliverResults(_ context.Context, giveaway *models.Giveaway, results []models.WinnerResult) error {
	winners := make([]int64, 0, len(results))
	for _, result := range results {
		winners = append(winners, result.ParticipantID)
	}
	logger.Info().
		Str("giveaway_id", giveaway.ID).
		Str("prize", giveaway.Prize).
		Ints64("winners", winners).
		Msg("Draw results")
	return nil
}
