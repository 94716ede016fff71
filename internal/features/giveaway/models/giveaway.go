package models

import (
	"errors"
	"time"

	"wishdraw-backend/internal/features/eligibility"
)

var (
	ErrGiveawayEnded   = errors.New("giveaway has ended")
	ErrGiveawayNotOpen = errors.New("giveaway is not open")
)

// GiveawayStatus represents the lifecycle state of a giveaway.
type GiveawayStatus string

const (
	GiveawayStatusOpen      GiveawayStatus = "open"      // accepting entries
	GiveawayStatusClaimed   GiveawayStatus = "claimed"   // a worker is running the draw
	GiveawayStatusFinalized GiveawayStatus = "finalized" // winners selected and delivered
	GiveawayStatusCancelled GiveawayStatus = "cancelled" // cancelled before the deadline
)

// Giveaway represents a timed giveaway. The hosting channel reference is
// opaque to the core; only the presentation collaborator interprets it.
type Giveaway struct {
	ID           string           `json:"id"`
	ChannelRef   string           `json:"channel_ref,omitempty"`
	Prize        string           `json:"prize"`
	Description  string           `json:"description,omitempty"`
	WinnersCount int              `json:"winners_count"`
	EndsAt       time.Time        `json:"ends_at"`
	Sponsors     []string         `json:"sponsors"` // ordered allow-list; empty = unconstrained
	Policy       eligibility.Spec `json:"policy"`
	Status       GiveawayStatus   `json:"status"`
	CreatedBy    int64            `json:"created_by"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// HasEnded reports whether the deadline has passed.
func (g *Giveaway) HasEnded(now time.Time) bool {
	return !now.Before(g.EndsAt)
}

// AcceptsEntries reports whether a submission may be recorded.
func (g *Giveaway) AcceptsEntries(now time.Time) error {
	if g.Status != GiveawayStatusOpen {
		return ErrGiveawayNotOpen
	}
	if g.HasEnded(now) {
		return ErrGiveawayEnded
	}
	return nil
}

// Entry is a per-giveaway submission, keyed by (giveaway id, participant id).
// A resubmission replaces name, tokens and timestamp.
type Entry struct {
	GiveawayID    string    `json:"giveaway_id"`
	ParticipantID int64     `json:"participant_id"`
	DisplayName   string    `json:"display_name"`
	Tokens        []string  `json:"tokens"`
	SubmittedAt   time.Time `json:"submitted_at"`
}

// WinnerRecord is one row of the append-only per-giveaway winner log.
// Distinct from the global win-history ledger: it only exists so reroll can
// exclude prior winners of this specific giveaway.
type WinnerRecord struct {
	GiveawayID    string    `json:"giveaway_id"`
	ParticipantID int64     `json:"participant_id"`
	MatchedToken  string    `json:"matched_token,omitempty"` // empty for pool-fallback winners
	Place         int       `json:"place"`
	WonAt         time.Time `json:"won_at"`
}

// WinnerResult is one ordered draw outcome handed to the notifier.
type WinnerResult struct {
	ParticipantID int64  `json:"participant_id"`
	DisplayName   string `json:"display_name,omitempty"`
	MatchedToken  string `json:"matched_token,omitempty"`
}

// GiveawayCreate carries the administrative creation request.
type GiveawayCreate struct {
	CreatedBy    int64            `json:"created_by"`
	Prize        string           `json:"prize" binding:"required,min=1,max=200"`
	Description  string           `json:"description" binding:"max=1000"`
	ChannelRef   string           `json:"channel_ref"`
	Duration     string           `json:"duration" binding:"required"` // compact format, e.g. 30m, 2h, 1d, 1w
	WinnersCount int              `json:"winners_count" binding:"required,min=1"`
	Sponsors     []string         `json:"sponsors"`
	Policy       eligibility.Spec `json:"policy"`
}

// EntrySubmit carries a participant submission from the presentation layer.
type EntrySubmit struct {
	ParticipantID int64  `json:"participant_id" binding:"required"`
	DisplayName   string `json:"display_name" binding:"required,max=64"`
	RawTokens     string `json:"tokens" binding:"required,max=1000"`
}

// SubmitOutcome is the synchronous answer to an entry submission.
type SubmitOutcome struct {
	Accepted bool   `json:"accepted"`
	Reason   string `json:"reason,omitempty"`
}
