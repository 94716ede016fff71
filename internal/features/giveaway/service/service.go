package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	apperrors "wishdraw-backend/internal/common/errors"
	"wishdraw-backend/internal/common/logger"
	"wishdraw-backend/internal/features/eligibility"
	"wishdraw-backend/internal/features/giveaway/models"
	"wishdraw-backend/internal/features/giveaway/repository"
	sponsormodels "wishdraw-backend/internal/features/sponsor/models"
	sponsorrepo "wishdraw-backend/internal/features/sponsor/repository"
	sponsorservice "wishdraw-backend/internal/features/sponsor/service"
)

// GiveawayService is the administrative and participant-facing surface of
// the core: creation, entry submission, cancellation and pure reads.
type GiveawayService interface {
	Create(ctx context.Context, creatorID int64, input *models.GiveawayCreate) (*models.Giveaway, error)
	GetByID(ctx context.Context, id string) (*models.Giveaway, error)
	Cancel(ctx context.Context, id string) error
	SubmitEntry(ctx context.Context, giveawayID string, input *models.EntrySubmit) (*models.SubmitOutcome, error)
	EntrantCount(ctx context.Context, giveawayID string) (int64, error)
	Winners(ctx context.Context, giveawayID string) ([]models.WinnerRecord, error)
	Sponsors(ctx context.Context) ([]sponsormodels.Sponsor, error)
}

type giveawayService struct {
	repo       repository.GiveawayRepository
	sponsors   sponsorrepo.SponsorRepository
	attributor sponsorservice.Attributor
	minTokens  int
}

func NewGiveawayService(
	repo repository.GiveawayRepository,
	sponsors sponsorrepo.SponsorRepository,
	attributor sponsorservice.Attributor,
	minTokens int,
) GiveawayService {
	if minTokens < 1 {
		minTokens = 1
	}
	return &giveawayService{
		repo:       repo,
		sponsors:   sponsors,
		attributor: attributor,
		minTokens:  minTokens,
	}
}

func (s *giveawayService) Create(ctx context.Context, creatorID int64, input *models.GiveawayCreate) (*models.Giveaway, error) {
	duration, err := models.ParseDuration(input.Duration)
	if err != nil {
		return nil, apperrors.NewValidationError("duration", err.Error())
	}
	if input.WinnersCount < 1 {
		return nil, apperrors.NewValidationError("winners_count", "must be greater than 0")
	}

	// Surface a broken policy at creation time, but keep the giveaway
	// creatable: the draw fails open on the same parse error.
	if _, err := eligibility.Parse(input.Policy); err != nil {
		logger.Warn().Str("mode", string(input.Policy.Mode)).Err(err).
			Msg("Giveaway created with unparsable policy; it will be treated as unconstrained")
	}

	now := time.Now()
	giveaway := &models.Giveaway{
		ID:           uuid.New().String(),
		ChannelRef:   input.ChannelRef,
		Prize:        input.Prize,
		Description:  input.Description,
		WinnersCount: input.WinnersCount,
		EndsAt:       now.Add(duration),
		Sponsors:     dedupeSponsors(input.Sponsors),
		Policy:       input.Policy,
		Status:       models.GiveawayStatusOpen,
		CreatedBy:    creatorID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Create(ctx, giveaway); err != nil {
		return nil, apperrors.NewStorageError("create giveaway", err)
	}

	for _, sponsorID := range giveaway.Sponsors {
		if err := s.sponsors.Upsert(ctx, sponsormodels.Sponsor{ID: sponsorID}); err != nil {
			logger.Warn().Str("sponsor_id", sponsorID).Err(err).Msg("Failed to record sponsor")
		}
	}

	return giveaway, nil
}

func (s *giveawayService) GetByID(ctx context.Context, id string) (*models.Giveaway, error) {
	giveaway, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrGiveawayNotFound) {
		return nil, ErrNotFound
	}
	return giveaway, err
}

func (s *giveawayService) Cancel(ctx context.Context, id string) error {
	err := s.repo.Cancel(ctx, id, time.Now())
	switch {
	case errors.Is(err, repository.ErrGiveawayNotFound):
		return ErrNotFound
	case errors.Is(err, repository.ErrNotOpen):
		// Once claimed, the draw runs to completion or explicit revert.
		return ErrNotOpen
	}
	return err
}

// SubmitEntry verifies a submission and records it with upsert semantics: a
// resubmission by the same participant is a correction, not a duplicate.
// Rejected submissions are answered synchronously and never persisted.
func (s *giveawayService) SubmitEntry(ctx context.Context, giveawayID string, input *models.EntrySubmit) (*models.SubmitOutcome, error) {
	giveaway, err := s.GetByID(ctx, giveawayID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if err := giveaway.AcceptsEntries(now); err != nil {
		return &models.SubmitOutcome{Accepted: false, Reason: err.Error()}, nil
	}

	name := models.NormalizeDisplayName(input.DisplayName)
	if name == "" {
		return nil, apperrors.NewValidationError("display_name", "missing or unrecognized name")
	}

	tokens := models.ParseTokens(input.RawTokens)
	if len(tokens) == 0 {
		return nil, apperrors.NewValidationError("tokens", "at least one token is required")
	}
	if len(tokens) < s.minTokens {
		return &models.SubmitOutcome{
			Accepted: false,
			Reason:   fmt.Sprintf("at least %d tokens are required", s.minTokens),
		}, nil
	}

	policy, err := eligibility.Parse(giveaway.Policy)
	if err != nil {
		// Deliberate operator-safety choice: a policy nobody can parse must
		// not lock everyone out.
		logger.Warn().Str("giveaway_id", giveawayID).Err(err).
			Msg("Unparsable eligibility policy, failing open")
		policy = eligibility.None()
	}

	if policy.Mode() != eligibility.ModeNone && len(giveaway.Sponsors) > 0 {
		attribution, err := s.attributor.Attribute(ctx, tokens)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeResolutionFailure, "failed to attribute tokens")
		}
		counts := sponsorservice.CountBySponsor(attribution)
		if !policy.IsEligible(counts, giveaway.Sponsors) {
			return &models.SubmitOutcome{
				Accepted: false,
				Reason:   "submitted tokens do not satisfy the sponsor policy",
			}, nil
		}
	}

	entry := &models.Entry{
		GiveawayID:    giveawayID,
		ParticipantID: input.ParticipantID,
		DisplayName:   name,
		Tokens:        tokens,
		SubmittedAt:   now,
	}
	if err := s.repo.UpsertEntry(ctx, entry); err != nil {
		return nil, apperrors.NewStorageError("upsert entry", err)
	}

	return &models.SubmitOutcome{Accepted: true}, nil
}

func (s *giveawayService) EntrantCount(ctx context.Context, giveawayID string) (int64, error) {
	return s.repo.CountEntries(ctx, giveawayID)
}

func (s *giveawayService) Winners(ctx context.Context, giveawayID string) ([]models.WinnerRecord, error) {
	if _, err := s.GetByID(ctx, giveawayID); err != nil {
		return nil, err
	}
	return s.repo.GetWinners(ctx, giveawayID)
}

func (s *giveawayService) Sponsors(ctx context.Context) ([]sponsormodels.Sponsor, error) {
	return s.sponsors.List(ctx)
}

func dedupeSponsors(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
