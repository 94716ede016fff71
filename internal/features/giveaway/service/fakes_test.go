package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"wishdraw-backend/internal/features/giveaway/models"
	"wishdraw-backend/internal/features/giveaway/repository"
	sponsormodels "wishdraw-backend/internal/features/sponsor/models"
	"wishdraw-backend/internal/features/winhistory"
)

// memRepo is an in-memory GiveawayRepository with the same transition
// semantics as the redis implementation, including a mutex-serialized Claim
// so concurrency tests observe exactly one winner.
type memRepo struct {
	mu        sync.Mutex
	giveaways map[string]*models.Giveaway
	entries   map[string]map[int64]*models.Entry
	winners   map[string][]models.WinnerRecord
}

func newMemRepo() *memRepo {
	return &memRepo{
		giveaways: make(map[string]*models.Giveaway),
		entries:   make(map[string]map[int64]*models.Entry),
		winners:   make(map[string][]models.WinnerRecord),
	}
}

func (r *memRepo) Create(ctx context.Context, giveaway *models.Giveaway) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *giveaway
	r.giveaways[giveaway.ID] = &copied
	return nil
}

func (r *memRepo) GetByID(ctx context.Context, id string) (*models.Giveaway, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.giveaways[id]
	if !ok {
		return nil, repository.ErrGiveawayNotFound
	}
	copied := *g
	return &copied, nil
}

func (r *memRepo) GetDueGiveaways(ctx context.Context, now time.Time) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var due []string
	for id, g := range r.giveaways {
		if g.Status == models.GiveawayStatusOpen && !now.Before(g.EndsAt) {
			due = append(due, id)
		}
	}
	return due, nil
}

func (r *memRepo) transition(id string, from, to models.GiveawayStatus, now time.Time, conflictErr error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.giveaways[id]
	if !ok {
		return repository.ErrGiveawayNotFound
	}
	if g.Status != from {
		return conflictErr
	}
	g.Status = to
	g.UpdatedAt = now
	return nil
}

func (r *memRepo) Claim(ctx context.Context, id string, now time.Time) error {
	return r.transition(id, models.GiveawayStatusOpen, models.GiveawayStatusClaimed, now, repository.ErrAlreadyClaimed)
}

func (r *memRepo) Release(ctx context.Context, id string, now time.Time) error {
	return r.transition(id, models.GiveawayStatusClaimed, models.GiveawayStatusOpen, now, repository.ErrNotClaimed)
}

func (r *memRepo) Finalize(ctx context.Context, id string, now time.Time) error {
	return r.transition(id, models.GiveawayStatusClaimed, models.GiveawayStatusFinalized, now, repository.ErrNotClaimed)
}

func (r *memRepo) Cancel(ctx context.Context, id string, now time.Time) error {
	return r.transition(id, models.GiveawayStatusOpen, models.GiveawayStatusCancelled, now, repository.ErrNotOpen)
}

func (r *memRepo) UpsertEntry(ctx context.Context, entry *models.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	byParticipant, ok := r.entries[entry.GiveawayID]
	if !ok {
		byParticipant = make(map[int64]*models.Entry)
		r.entries[entry.GiveawayID] = byParticipant
	}
	copied := *entry
	byParticipant[entry.ParticipantID] = &copied
	return nil
}

func (r *memRepo) GetEntries(ctx context.Context, giveawayID string) ([]*models.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Entry
	for _, entry := range r.entries[giveawayID] {
		copied := *entry
		out = append(out, &copied)
	}
	return out, nil
}

func (r *memRepo) CountEntries(ctx context.Context, giveawayID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.entries[giveawayID])), nil
}

func (r *memRepo) AppendWinners(ctx context.Context, giveawayID string, records []models.WinnerRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.winners[giveawayID] = append(r.winners[giveawayID], records...)
	return nil
}

func (r *memRepo) GetWinners(ctx context.Context, giveawayID string) ([]models.WinnerRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.WinnerRecord(nil), r.winners[giveawayID]...), nil
}

func (r *memRepo) status(id string) models.GiveawayStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.giveaways[id].Status
}

// ctxBoundRepo rejects state transitions once their context is done,
// matching the real redis client's behavior.
type ctxBoundRepo struct {
	*memRepo
}

func (r *ctxBoundRepo) Release(ctx context.Context, id string, now time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.memRepo.Release(ctx, id, now)
}

func (r *ctxBoundRepo) Finalize(ctx context.Context, id string, now time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.memRepo.Finalize(ctx, id, now)
}

// blockedNotifier hangs until the delivery context ends, simulating a slow
// downstream during shutdown.
type blockedNotifier struct{}

func (blockedNotifier) DeliverResults(ctx context.Context, giveaway *models.Giveaway, results []models.WinnerResult) error {
	<-ctx.Done()
	return ctx.Err()
}

// memLedger is an in-memory win-history ledger.
type memLedger struct {
	mu   sync.Mutex
	wins map[int64]time.Time
}

func newMemLedger() *memLedger {
	return &memLedger{wins: make(map[int64]time.Time)}
}

func (l *memLedger) LastWin(ctx context.Context, participantID int64) (*time.Time, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	at, ok := l.wins[participantID]
	if !ok {
		return nil, nil
	}
	return &at, nil
}

func (l *memLedger) RecordWin(ctx context.Context, participantID int64, at time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.wins[participantID] = at
	return nil
}

// staticAttributor answers from a fixed token -> sponsor table.
type staticAttributor struct {
	table map[string]string
	err   error
}

func (a *staticAttributor) Attribute(ctx context.Context, tokens []string) (map[string]string, error) {
	if a.err != nil {
		return nil, a.err
	}
	out := make(map[string]string)
	for _, token := range tokens {
		if sponsorID, ok := a.table[token]; ok {
			out[token] = sponsorID
		}
	}
	return out, nil
}

// recordingNotifier captures delivered results and can fail a set number of
// times before succeeding.
type recordingNotifier struct {
	mu        sync.Mutex
	failures  int
	delivered [][]models.WinnerResult
}

func (n *recordingNotifier) DeliverResults(ctx context.Context, giveaway *models.Giveaway, results []models.WinnerResult) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.failures > 0 {
		n.failures--
		return errors.New("delivery failed")
	}
	n.delivered = append(n.delivered, results)
	return nil
}

func (n *recordingNotifier) deliveries() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.delivered)
}

// memSponsorRepo is an in-memory sponsor registry.
type memSponsorRepo struct {
	mu       sync.Mutex
	sponsors map[string]string
}

func newMemSponsorRepo() *memSponsorRepo {
	return &memSponsorRepo{sponsors: make(map[string]string)}
}

func (f *memSponsorRepo) Upsert(ctx context.Context, sponsor sponsormodels.Sponsor) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.sponsors[sponsor.ID]; !ok || sponsor.Label != "" {
		f.sponsors[sponsor.ID] = sponsor.Label
	}
	return nil
}

func (f *memSponsorRepo) SetLabel(ctx context.Context, id, label string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sponsors[id] = label
	return nil
}

func (f *memSponsorRepo) List(ctx context.Context) ([]sponsormodels.Sponsor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]sponsormodels.Sponsor, 0, len(f.sponsors))
	for id, label := range f.sponsors {
		out = append(out, sponsormodels.Sponsor{ID: id, Label: label})
	}
	return out, nil
}

func newCooldownFilter(ledger winhistory.Ledger, days int) *winhistory.Filter {
	filter, err := winhistory.NewFilter(ledger, winhistory.ModeCooldown, days)
	if err != nil {
		panic(err)
	}
	return filter
}
