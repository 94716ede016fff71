package service

import (
	"wishdraw-backend/internal/features/giveaway/models"
	"wishdraw-backend/internal/utils/random"
)

// allocateWinners runs the per-sponsor fair allocation over an already
// win-history-filtered candidate pool.
//
// With a non-empty sponsor allow-list, each sponsor in list order gets one
// winner: the remaining candidates are shuffled and scanned for the first one
// holding a token attributed to that sponsor. In lenient mode any slots still
// empty afterwards (or the whole target when no sponsors are configured) are
// filled uniformly at random from the remaining pool. Strict mode reports
// fewer winners instead.
//
// Selection is a uniform shuffle with no weighting by entry count or
// timestamp, so submitting early or often confers no advantage.
func allocateWinners(giveaway *models.Giveaway, candidates []*models.Entry, attribution map[string]string, strict bool) ([]models.WinnerResult, error) {
	target := giveaway.WinnersCount
	if target < 1 {
		target = 1
	}

	results := make([]models.WinnerResult, 0, target)
	remaining := make([]*models.Entry, len(candidates))
	copy(remaining, candidates)

	if len(giveaway.Sponsors) > 0 {
		for _, sponsorID := range giveaway.Sponsors {
			if len(results) >= target {
				break
			}
			if err := random.Shuffle(remaining); err != nil {
				return nil, err
			}

			matchIdx, matchedToken := -1, ""
			for i, entry := range remaining {
				if token, ok := tokenForSponsor(entry, attribution, sponsorID); ok {
					matchIdx, matchedToken = i, token
					break
				}
			}
			if matchIdx < 0 {
				continue
			}

			winner := remaining[matchIdx]
			results = append(results, models.WinnerResult{
				ParticipantID: winner.ParticipantID,
				DisplayName:   winner.DisplayName,
				MatchedToken:  matchedToken,
			})
			remaining = append(remaining[:matchIdx], remaining[matchIdx+1:]...)
		}

		if strict {
			return results, nil
		}
	}

	// Pool fallback: fill remaining slots without a sponsor constraint.
	if len(results) < target && len(remaining) > 0 {
		fill, err := random.Pick(remaining, target-len(results))
		if err != nil {
			return nil, err
		}
		for _, entry := range fill {
			results = append(results, models.WinnerResult{
				ParticipantID: entry.ParticipantID,
				DisplayName:   entry.DisplayName,
			})
		}
	}

	return results, nil
}

// tokenForSponsor returns the first of the entry's tokens attributed to the
// sponsor, preserving the participant's submission order.
func tokenForSponsor(entry *models.Entry, attribution map[string]string, sponsorID string) (string, bool) {
	for _, token := range entry.Tokens {
		if attribution[token] == sponsorID {
			return token, true
		}
	}
	return "", false
}

// collectTokens gathers the distinct tokens across a candidate pool so they
// can be attributed in one bounded fan-out.
func collectTokens(entries []*models.Entry) []string {
	seen := make(map[string]struct{})
	var tokens []string
	for _, entry := range entries {
		for _, token := range entry.Tokens {
			if _, ok := seen[token]; ok {
				continue
			}
			seen[token] = struct{}{}
			tokens = append(tokens, token)
		}
	}
	return tokens
}
