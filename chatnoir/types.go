package chatnoir

import (
	"encoding/json"

	"github.com/poiesic/noirfetch/core"
)

// SearchRequest describes one search call. Size defaults to
// DefaultResultsPerPage when zero; Slop only applies to phrase searches and
// may be 0, 1, or 2.
type SearchRequest struct {
	Query string
	From  int
	Size  int
	Slop  int
}

// searchResponse mirrors the ChatNoir search API response body. The API
// reports application-level failures as an "error" member instead of a
// non-200 status.
type searchResponse struct {
	Error   json.RawMessage `json:"error,omitempty"`
	Meta    responseMeta    `json:"meta"`
	Results []apiHit        `json:"results"`
}

type responseMeta struct {
	QueryTime    int      `json:"query_time"`
	TotalResults int      `json:"total_results"`
	Indices      []string `json:"indices"`
}

// apiHit is one result entry as returned by the API. Page rank and spam
// rank are null for documents the index has no signal for.
type apiHit struct {
	Score          float64  `json:"score"`
	UUID           string   `json:"uuid"`
	Index          string   `json:"index"`
	TrecID         string   `json:"trec_id"`
	TargetHostname string   `json:"target_hostname"`
	TargetURI      string   `json:"target_uri"`
	PageRank       *float64 `json:"page_rank"`
	SpamRank       *float64 `json:"spam_rank"`
	Title          string   `json:"title"`
	Snippet        string   `json:"snippet"`
}

func (h apiHit) toRawHit() core.RawHit {
	return core.RawHit{
		UUID:     h.UUID,
		TrecID:   h.TrecID,
		Score:    h.Score,
		PageRank: h.PageRank,
		SpamRank: h.SpamRank,
		Snippet:  h.Snippet,
	}
}
