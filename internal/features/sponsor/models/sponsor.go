package models

import "time"

// Sponsor is an allow-listed beneficiary a giveaway can be configured to
// support. Labels are optional and resolved lazily.
type Sponsor struct {
	ID    string `json:"id"`
	Label string `json:"label,omitempty"`
}

// Resolution is a cached token->sponsor attribution. An empty SponsorID is a
// definitive "no sponsor found" result, kept under a shorter TTL than
// successful resolutions.
type Resolution struct {
	SponsorID  string    `json:"sponsor_id"`
	ResolvedAt time.Time `json:"resolved_at"`
}

// Found reports whether the resolution attributes the token to a sponsor.
func (r *Resolution) Found() bool {
	return r != nil && r.SponsorID != ""
}
