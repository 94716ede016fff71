package winhistory

import (
	"context"
	"fmt"
	"time"
)

// Mode selects which win-history constraint is enforced. The two modes are
// mutually exclusive, chosen by configuration.
type Mode string

const (
	// ModeLifetime excludes anyone who has ever won.
	ModeLifetime Mode = "lifetime"
	// ModeCooldown excludes anyone whose last win is inside the window.
	ModeCooldown Mode = "cooldown"
)

// Ledger records each participant's most recent win. Records are created
// lazily; a participant with no record has never won.
type Ledger interface {
	LastWin(ctx context.Context, participantID int64) (*time.Time, error)
	RecordWin(ctx context.Context, participantID int64, at time.Time) error
}

// Filter applies the configured win-history constraint to candidate pools.
// The draw engine and the reroll engine share one instance so the two paths
// can never diverge.
type Filter struct {
	ledger   Ledger
	mode     Mode
	cooldown time.Duration
}

func NewFilter(ledger Ledger, mode Mode, cooldownDays int) (*Filter, error) {
	switch mode {
	case ModeLifetime, ModeCooldown:
	default:
		return nil, fmt.Errorf("unknown win-history mode: %s", mode)
	}
	return &Filter{
		ledger:   ledger,
		mode:     mode,
		cooldown: time.Duration(cooldownDays) * 24 * time.Hour,
	}, nil
}

// Eligible reports whether a participant passes the win-history constraint.
func (f *Filter) Eligible(ctx context.Context, participantID int64, now time.Time) (bool, error) {
	lastWin, err := f.ledger.LastWin(ctx, participantID)
	if err != nil {
		return false, err
	}
	if lastWin == nil {
		return true, nil
	}
	if f.mode == ModeLifetime {
		return false, nil
	}
	return lastWin.Before(now.Add(-f.cooldown)), nil
}

// Apply returns the subset of ids that pass the constraint, order preserved.
func (f *Filter) Apply(ctx context.Context, ids []int64, now time.Time) ([]int64, error) {
	eligible := make([]int64, 0, len(ids))
	for _, id := range ids {
		ok, err := f.Eligible(ctx, id, now)
		if err != nil {
			return nil, err
		}
		if ok {
			eligible = append(eligible, id)
		}
	}
	return eligible, nil
}
