package cache

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/poiesic/noirfetch/core"
)

// Order selects the score ordering of Lookup results.
type Order int

const (
	// AscendingScore returns the lowest-scored records first. This is the
	// ordering the fetch stage has always handed to its consumers; callers
	// that want best-first must ask for DescendingScore explicitly rather
	// than reverse on their own.
	AscendingScore Order = iota
	// DescendingScore returns the highest-scored records first.
	DescendingScore
)

// Cache is the in-memory two-level result index: query text to the ordered
// set of document UUIDs observed for it, and UUID to the cached record.
//
// All methods are safe for concurrent use. Merge calls are serialized so the
// UUID-set union cannot lose updates under concurrent fetch completion;
// lookups proceed under a shared read lock.
type Cache struct {
	mu      sync.RWMutex
	queries map[string][]string
	records map[string]*core.ResultRecord
	logger  *slog.Logger
}

// New creates an empty cache.
func New() *Cache {
	return &Cache{
		queries: make(map[string][]string),
		records: make(map[string]*core.ResultRecord),
		logger:  slog.Default().With("component", "result-cache"),
	}
}

// Merge upserts the records into the UUID index (last write wins on UUID
// collision) and unions their UUIDs into the query's entry. A query that is
// already cached accumulates new UUIDs instead of being replaced; this only
// happens when the number of retrieved documents per query changes between
// runs.
func (c *Cache) Merge(queryText string, records []*core.ResultRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()

	uuids := c.queries[queryText]
	seen := make(map[string]struct{}, len(uuids))
	for _, uuid := range uuids {
		seen[uuid] = struct{}{}
	}

	for _, record := range records {
		c.records[record.UUID] = record
		if _, ok := seen[record.UUID]; ok {
			continue
		}
		seen[record.UUID] = struct{}{}
		uuids = append(uuids, record.UUID)
	}

	c.queries[queryText] = uuids
}

// Lookup returns up to topN cached records for the exact query text, sorted
// by score in the requested order. The boolean is false if the query text
// was never cached; a cached query with zero records reports true.
// A negative topN returns every cached record.
func (c *Cache) Lookup(queryText string, topN int, order Order) ([]*core.ResultRecord, bool) {
	c.mu.RLock()
	uuids, ok := c.queries[queryText]
	if !ok {
		c.mu.RUnlock()
		c.logger.Debug("query not cached", "query", queryText)
		return nil, false
	}

	records := make([]*core.ResultRecord, 0, len(uuids))
	for _, uuid := range uuids {
		if record, ok := c.records[uuid]; ok {
			records = append(records, record)
		}
	}
	c.mu.RUnlock()

	sort.SliceStable(records, func(i, j int) bool {
		if order == DescendingScore {
			return records[i].Score > records[j].Score
		}
		return records[i].Score < records[j].Score
	})

	if topN >= 0 && len(records) > topN {
		records = records[:topN]
	}

	c.logger.Debug("cache returned documents", "query", queryText, "records", len(records))
	return records, true
}

// Size returns the number of cached queries and records.
func (c *Cache) Size() (queries, records int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.queries), len(c.records)
}

// setEntry installs one query entry and its records without union logic.
// Only the store uses it, while rebuilding a cache from disk.
func (c *Cache) setEntry(queryText string, uuids []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queries[queryText] = uuids
}

// setRecord installs one record without merge logic. Only the store uses it.
func (c *Cache) setRecord(record *core.ResultRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records[record.UUID] = record
}

// snapshot copies both indexes for persistence so the writer does not hold
// the lock for the duration of the disk write.
func (c *Cache) snapshot() (map[string][]string, map[string]*core.ResultRecord) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	queries := make(map[string][]string, len(c.queries))
	for text, uuids := range c.queries {
		queries[text] = append([]string(nil), uuids...)
	}
	records := make(map[string]*core.ResultRecord, len(c.records))
	for uuid, record := range c.records {
		records[uuid] = record
	}
	return queries, records
}
