package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"wishdraw-backend/internal/common/logger"
	"wishdraw-backend/internal/features/giveaway/models"
	"wishdraw-backend/internal/features/giveaway/repository"
	sponsorservice "wishdraw-backend/internal/features/sponsor/service"
	"wishdraw-backend/internal/features/winhistory"
	"wishdraw-backend/internal/notifier"
)

// DrawService is the scheduler that detects due giveaways, claims each one
// atomically and runs the draw. A giveaway may be processed concurrently with
// others but never concurrently with itself: the open->claimed transition in
// the repository is the sole concurrency-control point, and the in-process
// guard below only avoids wasted claim attempts from overlapping ticks.
type DrawService struct {
	ctx        context.Context
	cancel     context.CancelFunc
	repo       repository.GiveawayRepository
	filter     *winhistory.Filter
	ledger     winhistory.Ledger
	attributor sponsorservice.Attributor
	notifier   notifier.Notifier

	tickInterval time.Duration
	strict       bool
	processing   sync.Map
	semaphore    chan struct{}
	wg           sync.WaitGroup
}

type DrawConfig struct {
	TickInterval       time.Duration
	MaxConcurrentDraws int
	Strict             bool
}

func NewDrawService(
	repo repository.GiveawayRepository,
	filter *winhistory.Filter,
	ledger winhistory.Ledger,
	attributor sponsorservice.Attributor,
	results notifier.Notifier,
	cfg DrawConfig,
) *DrawService {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = DefaultTickInterval
	}
	if cfg.MaxConcurrentDraws <= 0 {
		cfg.MaxConcurrentDraws = DefaultMaxConcurrentDraws
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &DrawService{
		ctx:          ctx,
		cancel:       cancel,
		repo:         repo,
		filter:       filter,
		ledger:       ledger,
		attributor:   attributor,
		notifier:     results,
		tickInterval: cfg.TickInterval,
		strict:       cfg.Strict,
		semaphore:    make(chan struct{}, cfg.MaxConcurrentDraws),
	}
}

func (s *DrawService) Start() {
	logger.Info().Dur("tick", s.tickInterval).Bool("strict", s.strict).Msg("Starting draw service")
	s.wg.Add(1)

	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.tickInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if err := s.ProcessDueGiveaways(); err != nil {
					logger.Error().Err(err).Msg("Error processing due giveaways")
				}
			case <-s.ctx.Done():
				return
			}
		}
	}()
}

func (s *DrawService) Stop() {
	logger.Info().Msg("Stopping draw service")
	s.cancel()
	s.wg.Wait()
	logger.Info().Msg("Draw service stopped")
}

// ProcessDueGiveaways scans for due giveaways and dispatches each to a
// bounded worker. Exported so an administrator can force a scan outside the
// periodic tick.
func (s *DrawService) ProcessDueGiveaways() error {
	due, err := s.repo.GetDueGiveaways(s.ctx, time.Now())
	if err != nil {
		return fmt.Errorf("failed to get due giveaways: %w", err)
	}

	for _, giveawayID := range due {
		if _, exists := s.processing.LoadOrStore(giveawayID, true); exists {
			continue
		}

		s.wg.Add(1)
		go func(id string) {
			defer s.wg.Done()
			defer s.processing.Delete(id)

			select {
			case s.semaphore <- struct{}{}:
				defer func() { <-s.semaphore }()
			case <-s.ctx.Done():
				return
			}

			if err := s.processGiveaway(id); err != nil {
				logger.Error().Str("giveaway_id", id).Err(err).Msg("Failed to process giveaway")
			}
		}(giveawayID)
	}

	return nil
}

func (s *DrawService) processGiveaway(giveawayID string) error {
	ctx, cancel := context.WithTimeout(s.ctx, ProcessingTimeout)
	defer cancel()

	now := time.Now()
	if err := s.repo.Claim(ctx, giveawayID, now); err != nil {
		if errors.Is(err, repository.ErrAlreadyClaimed) {
			// Another worker owns this draw; expected under concurrent ticks.
			return nil
		}
		return fmt.Errorf("failed to claim giveaway: %w", err)
	}

	results, err := s.runDraw(ctx, giveawayID, now)
	if err != nil {
		// Never leave a giveaway stuck in claimed: revert so the next tick
		// retries the whole draw. The draw may have failed precisely because
		// ctx is done (shutdown, processing timeout), so the revert runs on
		// its own detached deadline.
		releaseCtx, releaseCancel := context.WithTimeout(context.Background(), TransitionTimeout)
		defer releaseCancel()
		if releaseErr := s.repo.Release(releaseCtx, giveawayID, time.Now()); releaseErr != nil {
			logger.Error().Str("giveaway_id", giveawayID).Err(releaseErr).Msg("Failed to release claim")
		}
		return err
	}

	// Winners are delivered and recorded at this point, so a failed finalize
	// must not revert to open: a retried draw would pick a second set of
	// winners. The transition gets the same detached deadline as the revert
	// so a cancelled draw context cannot strand the giveaway.
	finalizeCtx, finalizeCancel := context.WithTimeout(context.Background(), TransitionTimeout)
	defer finalizeCancel()
	if err := s.repo.Finalize(finalizeCtx, giveawayID, time.Now()); err != nil {
		return fmt.Errorf("failed to finalize giveaway: %w", err)
	}

	logger.Info().Str("giveaway_id", giveawayID).Int("winners", len(results)).Msg("Giveaway finalized")
	return nil
}

// runDraw executes the allocation pipeline for an already-claimed giveaway.
// Any error aborts the attempt before finalization.
func (s *DrawService) runDraw(ctx context.Context, giveawayID string, now time.Time) ([]models.WinnerResult, error) {
	giveaway, err := s.repo.GetByID(ctx, giveawayID)
	if err != nil {
		return nil, fmt.Errorf("failed to get giveaway: %w", err)
	}

	entries, err := s.repo.GetEntries(ctx, giveawayID)
	if err != nil {
		return nil, fmt.Errorf("failed to get entries: %w", err)
	}

	candidates, err := s.filterCandidates(ctx, entries, now)
	if err != nil {
		return nil, err
	}

	var results []models.WinnerResult
	if len(candidates) > 0 {
		attribution := map[string]string{}
		if len(giveaway.Sponsors) > 0 {
			attribution, err = s.attributor.Attribute(ctx, collectTokens(candidates))
			if err != nil {
				return nil, fmt.Errorf("failed to attribute tokens: %w", err)
			}
		}

		results, err = allocateWinners(giveaway, candidates, attribution, s.strict)
		if err != nil {
			return nil, fmt.Errorf("failed to allocate winners: %w", err)
		}
	}

	// Delivery happens before the winner log and ledger are touched: a
	// failed delivery reverts the claim, and a retried draw must not see
	// winners from the aborted attempt.
	if err := s.notifier.DeliverResults(ctx, giveaway, results); err != nil {
		return nil, fmt.Errorf("failed to deliver results: %w", err)
	}

	if err := s.recordWinners(ctx, giveawayID, results, now); err != nil {
		return nil, err
	}
	return results, nil
}

func (s *DrawService) filterCandidates(ctx context.Context, entries []*models.Entry, now time.Time) ([]*models.Entry, error) {
	byParticipant := make(map[int64]*models.Entry, len(entries))
	ids := make([]int64, 0, len(entries))
	for _, entry := range entries {
		byParticipant[entry.ParticipantID] = entry
		ids = append(ids, entry.ParticipantID)
	}

	eligible, err := s.filter.Apply(ctx, ids, now)
	if err != nil {
		return nil, fmt.Errorf("failed to apply win-history filter: %w", err)
	}

	candidates := make([]*models.Entry, 0, len(eligible))
	for _, id := range eligible {
		candidates = append(candidates, byParticipant[id])
	}
	return candidates, nil
}

func (s *DrawService) recordWinners(ctx context.Context, giveawayID string, results []models.WinnerResult, now time.Time) error {
	if len(results) == 0 {
		return nil
	}

	records := make([]models.WinnerRecord, 0, len(results))
	for i, result := range results {
		records = append(records, models.WinnerRecord{
			GiveawayID:    giveawayID,
			ParticipantID: result.ParticipantID,
			MatchedToken:  result.MatchedToken,
			Place:         i + 1,
			WonAt:         now,
		})
	}
	if err := s.repo.AppendWinners(ctx, giveawayID, records); err != nil {
		return fmt.Errorf("failed to append winner log: %w", err)
	}

	for _, result := range results {
		if err := s.ledger.RecordWin(ctx, result.ParticipantID, now); err != nil {
			return fmt.Errorf("failed to record win for %d: %w", result.ParticipantID, err)
		}
	}
	return nil
}
