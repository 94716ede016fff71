package repository

import (
	"context"
	"errors"
	"time"

	"wishdraw-backend/internal/features/giveaway/models"
)

var (
	ErrGiveawayNotFound = errors.New("giveaway not found")
	// ErrAlreadyClaimed is the expected outcome for the losing worker when
	// two ticks race on the same giveaway. Not an error condition.
	ErrAlreadyClaimed = errors.New("giveaway already claimed")
	ErrNotClaimed     = errors.New("giveaway is not claimed")
	ErrNotOpen        = errors.New("giveaway is not open")
)

// GiveawayRepository is the storage contract for giveaways, entries and the
// per-giveaway winner log. Claim/Release/Finalize form the draw state
// machine; Claim is the single concurrency-control point and must be an
// atomic "set claimed if and only if still open".
type GiveawayRepository interface {
	Create(ctx context.Context, giveaway *models.Giveaway) error
	GetByID(ctx context.Context, id string) (*models.Giveaway, error)

	// GetDueGiveaways returns ids of open giveaways whose deadline is at or
	// before now.
	GetDueGiveaways(ctx context.Context, now time.Time) ([]string, error)

	// Claim transitions open -> claimed. Returns ErrAlreadyClaimed when the
	// giveaway is in any other state.
	Claim(ctx context.Context, id string, now time.Time) error
	// Release reverts claimed -> open so the next tick retries the draw.
	// Only valid before winners are recorded.
	Release(ctx context.Context, id string, now time.Time) error
	// Finalize transitions claimed -> finalized and drops the giveaway from
	// the due index. Once winners are delivered a failed finalize leaves the
	// giveaway claimed rather than reverting: re-running the draw would pick
	// a second set of winners.
	Finalize(ctx context.Context, id string, now time.Time) error
	// Cancel transitions open -> cancelled. A claimed draw always runs to
	// completion or explicit revert.
	Cancel(ctx context.Context, id string, now time.Time) error

	// UpsertEntry stores a submission; a resubmission by the same
	// participant replaces name, tokens and timestamp in place.
	UpsertEntry(ctx context.Context, entry *models.Entry) error
	GetEntries(ctx context.Context, giveawayID string) ([]*models.Entry, error)
	CountEntries(ctx context.Context, giveawayID string) (int64, error)

	// AppendWinners appends to the per-giveaway winner log. The log is
	// append-only; reroll consults it to never re-pick a prior winner.
	AppendWinners(ctx context.Context, giveawayID string, records []models.WinnerRecord) error
	GetWinners(ctx context.Context, giveawayID string) ([]models.WinnerRecord, error)
}
