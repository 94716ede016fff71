package eligibility

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Mode selects how per-sponsor token counts are checked against the
// giveaway's sponsor allow-list.
type Mode string

const (
	ModeNone Mode = "NONE" // sponsor constraint disabled
	ModeAny  Mode = "ANY"  // at least one allowed sponsor meets the threshold
	ModeEach Mode = "EACH" // every allowed sponsor meets the threshold
	ModeMap  Mode = "MAP"  // per-sponsor minimums
)

// Spec is the stored, unvalidated policy definition as configured by an
// administrator. Parse turns it into an evaluable Policy.
type Spec struct {
	Mode      Mode   `json:"mode"`
	Threshold int    `json:"threshold,omitempty"`
	MapJSON   string `json:"map_json,omitempty"`
}

// Policy is a parsed, evaluable eligibility rule.
type Policy struct {
	mode      Mode
	threshold int
	minimums  map[string]int
}

// None returns the always-eligible policy. It is the fail-open fallback for
// unparsable specs.
func None() Policy {
	return Policy{mode: ModeNone}
}

// Parse validates a policy spec. A malformed MAP definition or unknown mode
// is returned as an error so the caller can decide to fail open explicitly
// rather than silently swallowing the problem.
func Parse(spec Spec) (Policy, error) {
	mode := Mode(strings.ToUpper(string(spec.Mode)))
	if mode == "" {
		mode = ModeNone
	}

	switch mode {
	case ModeNone:
		return Policy{mode: ModeNone}, nil

	case ModeAny, ModeEach:
		threshold := spec.Threshold
		if threshold < 1 {
			threshold = 1
		}
		return Policy{mode: mode, threshold: threshold}, nil

	case ModeMap:
		minimums := make(map[string]int)
		raw := strings.TrimSpace(spec.MapJSON)
		if raw != "" {
			if err := json.Unmarshal([]byte(raw), &minimums); err != nil {
				return Policy{}, fmt.Errorf("invalid map definition: %w", err)
			}
		}
		for sponsorID, min := range minimums {
			if min < 1 {
				minimums[sponsorID] = 1
			}
		}
		return Policy{mode: ModeMap, minimums: minimums}, nil

	default:
		return Policy{}, fmt.Errorf("unknown policy mode: %s", spec.Mode)
	}
}

// Mode returns the policy's mode.
func (p Policy) Mode() Mode {
	return p.mode
}

// IsEligible evaluates per-sponsor token counts against the policy and the
// giveaway's sponsor allow-list. An empty allow-list disables the sponsor
// constraint regardless of mode.
func (p Policy) IsEligible(counts map[string]int, allowed []string) bool {
	if p.mode == ModeNone || len(allowed) == 0 {
		return true
	}

	switch p.mode {
	case ModeAny:
		for _, sponsorID := range allowed {
			if counts[sponsorID] >= p.threshold {
				return true
			}
		}
		return false

	case ModeEach:
		for _, sponsorID := range allowed {
			if counts[sponsorID] < p.threshold {
				return false
			}
		}
		return true

	case ModeMap:
		// Sponsors absent from the map are unconstrained; an empty map
		// means eligible.
		for sponsorID, min := range p.minimums {
			if counts[sponsorID] < min {
				return false
			}
		}
		return true
	}

	return true
}
