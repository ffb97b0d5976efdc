package fetch

import "github.com/poiesic/noirfetch/core"

// HitFilter accepts or rejects raw hits before their full document body is
// fetched, so a rejected hit never costs the second network round-trip.
//
// Each threshold applies only when it is set and non-negative; a negative
// threshold disables that filter. A hit with an unknown spam or page rank
// is never rejected by the corresponding filter.
type HitFilter struct {
	ScoreThreshold    *float64 // hits scoring below this floor are dropped
	SpamRankThreshold *float64 // hits with a spam rank above this ceiling are dropped
	PageRankThreshold *float64 // hits with a page rank above this ceiling are dropped
}

// Accept reports whether the hit passes every configured filter.
func (f HitFilter) Accept(hit core.RawHit) bool {
	if f.ScoreThreshold != nil && *f.ScoreThreshold >= 0 {
		if hit.Score < *f.ScoreThreshold {
			return false
		}
	}
	if f.SpamRankThreshold != nil && *f.SpamRankThreshold >= 0 {
		if hit.SpamRank != nil && *hit.SpamRank > *f.SpamRankThreshold {
			return false
		}
	}
	if f.PageRankThreshold != nil && *f.PageRankThreshold >= 0 {
		if hit.PageRank != nil && *hit.PageRank > *f.PageRankThreshold {
			return false
		}
	}
	return true
}
