package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"wishdraw-backend/internal/features/giveaway/models"
	"wishdraw-backend/internal/features/giveaway/repository"
	"wishdraw-backend/internal/features/winhistory"
	"wishdraw-backend/internal/utils/random"
)

// RerollService re-runs selection against the remaining pool of a finalized
// giveaway. Sponsor matching is not reapplied: the per-sponsor allocation
// already happened once, so a reroll is a uniform draw over entrants minus
// the per-giveaway winner log minus the win-history filter.
type RerollService struct {
	repo   repository.GiveawayRepository
	filter *winhistory.Filter
	ledger winhistory.Ledger
}

func NewRerollService(repo repository.GiveawayRepository, filter *winhistory.Filter, ledger winhistory.Ledger) *RerollService {
	return &RerollService{repo: repo, filter: filter, ledger: ledger}
}

func (s *RerollService) Reroll(ctx context.Context, giveawayID string, count int) ([]models.WinnerResult, error) {
	if count < 1 {
		return nil, ErrInvalidReroll
	}

	giveaway, err := s.repo.GetByID(ctx, giveawayID)
	if errors.Is(err, repository.ErrGiveawayNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if giveaway.Status != models.GiveawayStatusFinalized {
		return nil, ErrNotFinalized
	}

	entries, err := s.repo.GetEntries(ctx, giveawayID)
	if err != nil {
		return nil, fmt.Errorf("failed to get entries: %w", err)
	}

	priorWinners, err := s.repo.GetWinners(ctx, giveawayID)
	if err != nil {
		return nil, fmt.Errorf("failed to get winner log: %w", err)
	}
	won := make(map[int64]struct{}, len(priorWinners))
	for _, record := range priorWinners {
		won[record.ParticipantID] = struct{}{}
	}

	now := time.Now()
	pool := make([]*models.Entry, 0, len(entries))
	for _, entry := range entries {
		if _, alreadyWon := won[entry.ParticipantID]; alreadyWon {
			continue
		}
		eligible, err := s.filter.Eligible(ctx, entry.ParticipantID, now)
		if err != nil {
			return nil, fmt.Errorf("failed to apply win-history filter: %w", err)
		}
		if eligible {
			pool = append(pool, entry)
		}
	}
	if len(pool) == 0 {
		return nil, ErrEmptyPool
	}

	picks, err := random.Pick(pool, count)
	if err != nil {
		return nil, err
	}

	results := make([]models.WinnerResult, 0, len(picks))
	records := make([]models.WinnerRecord, 0, len(picks))
	for i, entry := range picks {
		results = append(results, models.WinnerResult{
			ParticipantID: entry.ParticipantID,
			DisplayName:   entry.DisplayName,
		})
		records = append(records, models.WinnerRecord{
			GiveawayID:    giveawayID,
			ParticipantID: entry.ParticipantID,
			Place:         len(priorWinners) + i + 1,
			WonAt:         now,
		})
	}

	// Appending to the winner log before returning is what makes repeated
	// rerolls safe: the next invocation excludes these picks.
	if err := s.repo.AppendWinners(ctx, giveawayID, records); err != nil {
		return nil, fmt.Errorf("failed to append winner log: %w", err)
	}
	for _, result := range results {
		if err := s.ledger.RecordWin(ctx, result.ParticipantID, now); err != nil {
			return nil, fmt.Errorf("failed to record win for %d: %w", result.ParticipantID, err)
		}
	}

	return results, nil
}
