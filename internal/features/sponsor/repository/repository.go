package repository

import (
	"context"

	"wishdraw-backend/internal/features/sponsor/models"
)

// SponsorRepository stores known sponsors and their optional labels.
// Sponsors are created either by an administrator configuring a giveaway's
// allow-list or lazily when the resolver first attributes a token.
type SponsorRepository interface {
	// Upsert records a sponsor id. An empty label never overwrites an
	// existing one.
	Upsert(ctx context.Context, sponsor models.Sponsor) error
	SetLabel(ctx context.Context, id, label string) error
	List(ctx context.Context) ([]models.Sponsor, error)
}
