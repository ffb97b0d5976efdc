package core

// Query is a single query variant issued against the search service.
// Queries are produced by the query-expansion stage and are immutable here.
type Query struct {
	Text         string
	PhraseSearch bool // phrase search matches fixed phrases instead of free text
}

// RawHit is one entry of a search response before the full document body has
// been retrieved. It is consumed by the hit filter and never persisted.
type RawHit struct {
	UUID     string
	TrecID   string
	Score    float64
	PageRank *float64 // nil when the index has no page rank for this document
	SpamRank *float64 // nil when the index has no spam rank for this document
	Snippet  string
}

// ResultRecord combines a hit's metadata with its fetched full text. It is
// the unit persisted by the result cache.
type ResultRecord struct {
	UUID     string
	TrecID   string
	Text     *string // nil when the full-document fetch never succeeded
	PageRank *float64
	SpamRank *float64
	Score    float64
	Snippet  string
	Cleaned  bool // owned by the document-cleaning stage, preserved verbatim
}

// Document wraps a ResultRecord with scoring fields owned by downstream
// ranking stages. The fetch stage only populates Result; every other field
// stays zero-valued until a later stage fills it in.
type Document struct {
	Result          *ResultRecord
	Rank            int
	SimpleTermScore int
	ClassifierScore float64
	Scores          map[string]float64
	CombinedScore   float64
}

// NewDocument creates a Document around a fetched result record.
func NewDocument(result *ResultRecord) *Document {
	return &Document{
		Result: result,
		Scores: make(map[string]float64),
	}
}

// ProcessingObject pairs one query variant with the documents retrieved for
// it, keyed by document UUID.
type ProcessingObject struct {
	Query     Query
	Documents map[string]*Document
}

// NewProcessingObject creates a ProcessingObject with an empty document map.
func NewProcessingObject(query Query) *ProcessingObject {
	return &ProcessingObject{
		Query:     query,
		Documents: make(map[string]*Document),
	}
}

// Topic groups the query variants expanded from one original topic query.
// ResultDocs holds the documents a downstream fusion stage selects for the
// topic; the fetch stage never touches it.
type Topic struct {
	TopicQuery        string
	TopicNumber       int
	Version           string
	ResultDocs        []*Document
	ProcessingObjects []*ProcessingObject
}

// NewTopic creates a Topic for the given original query and number.
func NewTopic(topicQuery string, topicNumber int) *Topic {
	return &Topic{
		TopicQuery:  topicQuery,
		TopicNumber: topicNumber,
		Version:     "v0",
	}
}

// String returns a pointer to the given string value.
func String(v string) *string { return &v }

// Float64 returns a pointer to the given float64 value.
func Float64(v float64) *float64 { return &v }
