package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wishdraw-backend/internal/features/giveaway/models"
)

func seedGiveaway(t *testing.T, repo *memRepo, g *models.Giveaway) {
	t.Helper()
	if g.ID == "" {
		g.ID = "g1"
	}
	if g.Status == "" {
		g.Status = models.GiveawayStatusOpen
	}
	if g.EndsAt.IsZero() {
		g.EndsAt = time.Now().Add(-time.Minute)
	}
	if g.WinnersCount == 0 {
		g.WinnersCount = 1
	}
	require.NoError(t, repo.Create(context.Background(), g))
}

func seedEntries(t *testing.T, repo *memRepo, giveawayID string, entries ...*models.Entry) {
	t.Helper()
	for _, e := range entries {
		e.GiveawayID = giveawayID
		require.NoError(t, repo.UpsertEntry(context.Background(), e))
	}
}

func newTestDrawService(repo *memRepo, ledger *memLedger, attributor *staticAttributor, results *recordingNotifier) *DrawService {
	return NewDrawService(repo, newCooldownFilter(ledger, 7), ledger, attributor, results, DrawConfig{})
}

func TestProcessGiveawayFinalizesAndRecords(t *testing.T) {
	repo := newMemRepo()
	ledger := newMemLedger()
	results := &recordingNotifier{}
	svc := newTestDrawService(repo, ledger, &staticAttributor{}, results)

	seedGiveaway(t, repo, &models.Giveaway{ID: "g1", WinnersCount: 2})
	seedEntries(t, repo, "g1", entry(1, "11111"), entry(2, "22222"), entry(3, "33333"))

	require.NoError(t, svc.processGiveaway("g1"))

	assert.Equal(t, models.GiveawayStatusFinalized, repo.status("g1"))
	assert.Equal(t, 1, results.deliveries())

	winners, err := repo.GetWinners(context.Background(), "g1")
	require.NoError(t, err)
	require.Len(t, winners, 2)
	assert.Equal(t, 1, winners[0].Place)
	assert.Equal(t, 2, winners[1].Place)

	// Each winner lands in the global ledger.
	for _, w := range winners {
		last, err := ledger.LastWin(context.Background(), w.ParticipantID)
		require.NoError(t, err)
		assert.NotNil(t, last)
	}
}

func TestProcessGiveawayNoEntrantsStillFinalizes(t *testing.T) {
	repo := newMemRepo()
	results := &recordingNotifier{}
	svc := newTestDrawService(repo, newMemLedger(), &staticAttributor{}, results)

	seedGiveaway(t, repo, &models.Giveaway{ID: "g1"})

	require.NoError(t, svc.processGiveaway("g1"))

	assert.Equal(t, models.GiveawayStatusFinalized, repo.status("g1"))
	assert.Equal(t, 1, results.deliveries(), "an empty result is still announced")

	winners, err := repo.GetWinners(context.Background(), "g1")
	require.NoError(t, err)
	assert.Empty(t, winners)
}

func TestProcessGiveawayDeliveryFailureReleasesClaim(t *testing.T) {
	repo := newMemRepo()
	ledger := newMemLedger()
	results := &recordingNotifier{failures: 1}
	svc := newTestDrawService(repo, ledger, &staticAttributor{}, results)

	seedGiveaway(t, repo, &models.Giveaway{ID: "g1"})
	seedEntries(t, repo, "g1", entry(1, "11111"))

	require.Error(t, svc.processGiveaway("g1"))
	assert.Equal(t, models.GiveawayStatusOpen, repo.status("g1"), "failed draw reverts to open")

	winners, err := repo.GetWinners(context.Background(), "g1")
	require.NoError(t, err)
	assert.Empty(t, winners, "nothing is recorded before a successful delivery")

	last, err := ledger.LastWin(context.Background(), 1)
	require.NoError(t, err)
	assert.Nil(t, last)

	// The next attempt succeeds end to end.
	require.NoError(t, svc.processGiveaway("g1"))
	assert.Equal(t, models.GiveawayStatusFinalized, repo.status("g1"))
	assert.Equal(t, 1, results.deliveries())
}

func TestProcessGiveawayShutdownMidDrawReleasesClaim(t *testing.T) {
	base := newMemRepo()
	repo := &ctxBoundRepo{memRepo: base}
	ledger := newMemLedger()
	svc := NewDrawService(repo, newCooldownFilter(ledger, 7), ledger, &staticAttributor{}, blockedNotifier{}, DrawConfig{})

	seedGiveaway(t, base, &models.Giveaway{ID: "g1"})
	seedEntries(t, base, "g1", entry(1, "11111"))

	done := make(chan error, 1)
	go func() { done <- svc.processGiveaway("g1") }()

	require.Eventually(t, func() bool {
		return base.status("g1") == models.GiveawayStatusClaimed
	}, time.Second, 5*time.Millisecond)

	// Graceful shutdown cancels the draw context while delivery is in
	// flight. The revert must still land even though that context is dead.
	svc.cancel()

	select {
	case err := <-done:
		require.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("draw did not return after cancellation")
	}

	assert.Equal(t, models.GiveawayStatusOpen, base.status("g1"),
		"a draw aborted by shutdown reverts instead of staying claimed")
}

func TestProcessGiveawayConcurrentClaims(t *testing.T) {
	repo := newMemRepo()
	results := &recordingNotifier{}
	svc := newTestDrawService(repo, newMemLedger(), &staticAttributor{}, results)

	seedGiveaway(t, repo, &models.Giveaway{ID: "g1"})
	seedEntries(t, repo, "g1", entry(1, "11111"), entry(2, "22222"))

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// The losing workers see ErrAlreadyClaimed and return nil.
			assert.NoError(t, svc.processGiveaway("g1"))
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, results.deliveries(), "exactly one worker may run the draw")
	winners, err := repo.GetWinners(context.Background(), "g1")
	require.NoError(t, err)
	assert.Len(t, winners, 1)
}

func TestProcessGiveawayWinHistoryExcludesRecentWinner(t *testing.T) {
	repo := newMemRepo()
	ledger := newMemLedger()
	results := &recordingNotifier{}
	svc := newTestDrawService(repo, ledger, &staticAttributor{}, results)

	require.NoError(t, ledger.RecordWin(context.Background(), 1, time.Now().Add(-24*time.Hour)))

	seedGiveaway(t, repo, &models.Giveaway{ID: "g1"})
	seedEntries(t, repo, "g1", entry(1, "11111"), entry(2, "22222"))

	require.NoError(t, svc.processGiveaway("g1"))

	winners, err := repo.GetWinners(context.Background(), "g1")
	require.NoError(t, err)
	require.Len(t, winners, 1)
	assert.Equal(t, int64(2), winners[0].ParticipantID, "cooldown excludes the recent winner")
}

func TestProcessGiveawaySponsorAllocation(t *testing.T) {
	repo := newMemRepo()
	results := &recordingNotifier{}
	attributor := &staticAttributor{table: map[string]string{"11111": "100", "22222": "200"}}
	svc := newTestDrawService(repo, newMemLedger(), attributor, results)

	seedGiveaway(t, repo, &models.Giveaway{
		ID:           "g1",
		WinnersCount: 2,
		Sponsors:     []string{"100", "200"},
	})
	seedEntries(t, repo, "g1", entry(1, "11111"), entry(2, "22222"), entry(3, "99999"))

	require.NoError(t, svc.processGiveaway("g1"))

	winners, err := repo.GetWinners(context.Background(), "g1")
	require.NoError(t, err)
	require.Len(t, winners, 2)
	assert.Equal(t, int64(1), winners[0].ParticipantID)
	assert.Equal(t, "11111", winners[0].MatchedToken)
	assert.Equal(t, int64(2), winners[1].ParticipantID)
	assert.Equal(t, "22222", winners[1].MatchedToken)
}

func TestProcessDueGiveawaysSkipsInFlight(t *testing.T) {
	repo := newMemRepo()
	results := &recordingNotifier{}
	svc := newTestDrawService(repo, newMemLedger(), &staticAttributor{}, results)

	seedGiveaway(t, repo, &models.Giveaway{ID: "g1"})
	seedEntries(t, repo, "g1", entry(1, "11111"))

	require.NoError(t, svc.ProcessDueGiveaways())
	require.NoError(t, svc.ProcessDueGiveaways())
	svc.wg.Wait()

	assert.Equal(t, 1, results.deliveries())
	assert.Equal(t, models.GiveawayStatusFinalized, repo.status("g1"))
}
