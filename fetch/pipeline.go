package fetch

import (
	"context"
	"log/slog"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/noirfetch/cache"
	"github.com/poiesic/noirfetch/chatnoir"
	"github.com/poiesic/noirfetch/core"
)

// DefaultFetchBudget caps concurrent document fetches for a whole batch.
const DefaultFetchBudget = 30

// DefaultDocsPerQuery is the number of documents requested per query.
const DefaultDocsPerQuery = 100

// SearchClient is the remote search surface the pipeline drives.
type SearchClient interface {
	SimpleSearch(ctx context.Context, req chatnoir.SearchRequest) ([]core.RawHit, error)
	PhraseSearch(ctx context.Context, req chatnoir.SearchRequest) ([]core.RawHit, error)
	FetchDocument(ctx context.Context, uuid string) (string, error)
}

var _ SearchClient = (*chatnoir.Client)(nil)

// Pipeline fetches, filters, and caches search results for every query
// variant of a topic. Queries run concurrently with each other, and the
// per-hit document fetches of all queries share one worker pool sized to
// the connection budget.
type Pipeline struct {
	client       SearchClient
	cache        *cache.Cache
	store        *cache.Store
	filter       HitFilter
	docsPerQuery int
	fetchPool    *ants.Pool
	logger       *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithCache enables caching. Lookups and merges go through c; store may be
// nil, in which case the cache is purely in-memory and nothing is persisted
// at checkpoints.
func WithCache(c *cache.Cache, store *cache.Store) Option {
	return func(p *Pipeline) error {
		p.cache = c
		p.store = store
		return nil
	}
}

// WithFilter sets the hit filter. The zero filter accepts everything.
func WithFilter(filter HitFilter) Option {
	return func(p *Pipeline) error {
		p.filter = filter
		return nil
	}
}

// WithDocsPerQuery sets how many documents are requested per query.
// Default is DefaultDocsPerQuery.
func WithDocsPerQuery(docs int) Option {
	return func(p *Pipeline) error {
		if docs < 1 {
			docs = 1
		}
		p.docsPerQuery = docs
		return nil
	}
}

// WithFetchBudget resizes the shared document-fetch pool.
// Default is DefaultFetchBudget.
func WithFetchBudget(budget int) Option {
	return func(p *Pipeline) error {
		if budget < 1 {
			budget = 1
		}
		if p.fetchPool != nil {
			p.fetchPool.Release()
		}
		pool, err := ants.NewPool(budget)
		if err != nil {
			return err
		}
		p.fetchPool = pool
		return nil
	}
}

// WithLogger sets a custom logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates a fetch pipeline around the given search client.
// Caching is disabled unless WithCache is provided.
func NewPipeline(client SearchClient, opts ...Option) (*Pipeline, error) {
	if client == nil {
		return nil, ErrClientRequired
	}

	pool, err := ants.NewPool(DefaultFetchBudget)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		client:       client,
		docsPerQuery: DefaultDocsPerQuery,
		fetchPool:    pool,
		logger:       slog.Default().With("component", "fetch-pipeline"),
	}

	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}

	return p, nil
}

// Process fetches documents for every processing object of the topic. All
// outcomes are gathered: a failed query or document fetch reduces the
// number of results and never aborts the batch. After every query settles,
// documents whose full text was not retrieved are pruned, and the cache is
// persisted so a crash in a later stage keeps the fetched data.
func (p *Pipeline) Process(ctx context.Context, topic *core.Topic) error {
	var wg sync.WaitGroup
	for _, obj := range topic.ProcessingObjects {
		wg.Add(1)
		go func(obj *core.ProcessingObject) {
			defer wg.Done()
			p.processObject(ctx, obj)
		}(obj)
	}
	wg.Wait()

	p.prune(topic)

	return p.checkpoint()
}

// processObject resolves one query: from the cache when possible, from the
// network otherwise.
func (p *Pipeline) processObject(ctx context.Context, obj *core.ProcessingObject) {
	if err := obj.Query.Validate(); err != nil {
		p.logger.Error("skipping invalid query", "err", err)
		return
	}

	if p.cache != nil {
		if records, ok := p.cache.Lookup(obj.Query.Text, p.docsPerQuery, cache.AscendingScore); ok {
			p.logger.Info("using cached results",
				"query", obj.Query.Text, "records", len(records))
			// Cached records are shared, not copied; nothing downstream of
			// the fetch stage mutates them.
			for _, record := range records {
				obj.Documents[record.UUID] = core.NewDocument(record)
			}
			return
		}
	}

	p.logger.Info("querying", "query", obj.Query.Text)
	req := chatnoir.SearchRequest{Query: obj.Query.Text, Size: p.docsPerQuery}
	var (
		hits []core.RawHit
		err  error
	)
	if obj.Query.PhraseSearch {
		hits, err = p.client.PhraseSearch(ctx, req)
	} else {
		hits, err = p.client.SimpleSearch(ctx, req)
	}
	if err != nil {
		// Already logged by the client; the query yields zero documents.
		p.logger.Debug("search returned no data, skipping query",
			"query", obj.Query.Text, "err", err)
		return
	}

	var (
		mu      sync.Mutex
		fetchWG sync.WaitGroup
	)
	for _, hit := range hits {
		if !p.filter.Accept(hit) {
			continue
		}
		hit := hit
		fetchWG.Add(1)
		submitErr := p.fetchPool.Submit(func() {
			defer fetchWG.Done()
			record := p.fetchRecord(ctx, hit)
			mu.Lock()
			obj.Documents[record.UUID] = core.NewDocument(record)
			mu.Unlock()
		})
		if submitErr != nil {
			fetchWG.Done()
			p.logger.Error("error submitting document fetch",
				"uuid", hit.UUID, "err", submitErr)
		}
	}
	fetchWG.Wait()

	if p.cache != nil {
		records := make([]*core.ResultRecord, 0, len(obj.Documents))
		for _, doc := range obj.Documents {
			records = append(records, doc.Result)
		}
		p.cache.Merge(obj.Query.Text, records)
	}
}

// fetchRecord assembles the result record for one accepted hit. A failed
// body fetch leaves Text nil; pruning removes such records from the batch
// later, after the whole topic has settled.
func (p *Pipeline) fetchRecord(ctx context.Context, hit core.RawHit) *core.ResultRecord {
	record := &core.ResultRecord{
		UUID:     hit.UUID,
		TrecID:   hit.TrecID,
		PageRank: hit.PageRank,
		SpamRank: hit.SpamRank,
		Score:    hit.Score,
		Snippet:  hit.Snippet,
	}

	text, err := p.client.FetchDocument(ctx, hit.UUID)
	if err != nil {
		return record
	}
	record.Text = &text
	return record
}

// prune drops every document whose full text never arrived. A record
// without text is useless to every downstream stage and must not be
// observed by them.
func (p *Pipeline) prune(topic *core.Topic) {
	for _, obj := range topic.ProcessingObjects {
		for uuid, doc := range obj.Documents {
			if doc.Result == nil || doc.Result.Text == nil {
				delete(obj.Documents, uuid)
				p.logger.Warn("deleting document, full text was not retrieved", "uuid", uuid)
			}
		}
	}
}

// checkpoint persists the cache if both a cache and a store are configured.
func (p *Pipeline) checkpoint() error {
	if p.cache == nil || p.store == nil {
		return nil
	}
	if err := p.store.Save(p.cache); err != nil {
		p.logger.Error("error persisting result cache", "err", err)
		return err
	}
	return nil
}

// Release releases the worker pool. The pipeline should not be used after
// calling Release.
func (p *Pipeline) Release() {
	if p.fetchPool != nil {
		p.fetchPool.Release()
	}
}

// Close persists the cache a final time and releases the worker pool.
func (p *Pipeline) Close() error {
	err := p.checkpoint()
	p.Release()
	return err
}
