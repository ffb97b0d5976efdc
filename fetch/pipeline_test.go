package fetch

import (
	"context"
	"sync"
	"testing"

	"github.com/poiesic/noirfetch/cache"
	"github.com/poiesic/noirfetch/chatnoir"
	"github.com/poiesic/noirfetch/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClient is a test double for the ChatNoir client. Fetches succeed for
// uuids present in texts and fail for every other uuid.
type fakeClient struct {
	mu           sync.Mutex
	searchCalls  int
	phraseCalls  int
	fetchedUUIDs []string

	hits      []core.RawHit
	searchErr error
	texts     map[string]string
}

func (f *fakeClient) SimpleSearch(_ context.Context, _ chatnoir.SearchRequest) ([]core.RawHit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searchCalls++
	return f.hits, f.searchErr
}

func (f *fakeClient) PhraseSearch(_ context.Context, _ chatnoir.SearchRequest) ([]core.RawHit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.phraseCalls++
	return f.hits, f.searchErr
}

func (f *fakeClient) FetchDocument(_ context.Context, uuid string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetchedUUIDs = append(f.fetchedUUIDs, uuid)
	text, ok := f.texts[uuid]
	if !ok {
		return "", chatnoir.ErrRetriesExhausted
	}
	return text, nil
}

func singleQueryTopic(text string, phrase bool) *core.Topic {
	topic := core.NewTopic(text, 1)
	topic.ProcessingObjects = []*core.ProcessingObject{
		core.NewProcessingObject(core.Query{Text: text, PhraseSearch: phrase}),
	}
	return topic
}

func TestNewPipelineRequiresClient(t *testing.T) {
	_, err := NewPipeline(nil)
	assert.ErrorIs(t, err, ErrClientRequired)
}

func TestProcessPrunesFailedFetches(t *testing.T) {
	client := &fakeClient{
		hits: []core.RawHit{
			{UUID: "uuid-1", Score: 0.9},
			{UUID: "uuid-2", Score: 0.4},
		},
		texts: map[string]string{"uuid-1": "body one"},
	}

	p, err := NewPipeline(client)
	require.NoError(t, err)
	defer p.Release()

	topic := singleQueryTopic("climate policy", false)
	require.NoError(t, p.Process(context.Background(), topic))

	docs := topic.ProcessingObjects[0].Documents
	require.Len(t, docs, 1, "the document whose fetch failed must be pruned")

	doc, ok := docs["uuid-1"]
	require.True(t, ok)
	require.NotNil(t, doc.Result.Text)
	assert.Equal(t, "body one", *doc.Result.Text)
	assert.Equal(t, 0.9, doc.Result.Score)
}

func TestProcessSkipsFailedQuery(t *testing.T) {
	client := &fakeClient{searchErr: chatnoir.ErrRetriesExhausted}

	p, err := NewPipeline(client)
	require.NoError(t, err)
	defer p.Release()

	topic := singleQueryTopic("unreachable query", false)
	require.NoError(t, p.Process(context.Background(), topic),
		"a failed query must not fail the batch")
	assert.Empty(t, topic.ProcessingObjects[0].Documents)
}

func TestProcessUsesPhraseSearch(t *testing.T) {
	client := &fakeClient{texts: map[string]string{}}

	p, err := NewPipeline(client)
	require.NoError(t, err)
	defer p.Release()

	topic := singleQueryTopic("exact phrase", true)
	require.NoError(t, p.Process(context.Background(), topic))

	assert.Equal(t, 1, client.phraseCalls)
	assert.Equal(t, 0, client.searchCalls)
}

func TestFilterShortCircuitsDocumentFetch(t *testing.T) {
	client := &fakeClient{
		hits: []core.RawHit{
			{UUID: "uuid-keep", Score: 0.9},
			{UUID: "uuid-drop", Score: 0.1},
		},
		texts: map[string]string{"uuid-keep": "kept body"},
	}

	p, err := NewPipeline(client,
		WithFilter(HitFilter{ScoreThreshold: core.Float64(0.5)}))
	require.NoError(t, err)
	defer p.Release()

	topic := singleQueryTopic("q", false)
	require.NoError(t, p.Process(context.Background(), topic))

	assert.Equal(t, []string{"uuid-keep"}, client.fetchedUUIDs,
		"rejected hits must never cost a document fetch")
	assert.Len(t, topic.ProcessingObjects[0].Documents, 1)
}

func TestProcessCacheHitSkipsNetwork(t *testing.T) {
	client := &fakeClient{
		hits: []core.RawHit{
			{UUID: "uuid-1", Score: 0.9},
			{UUID: "uuid-2", Score: 0.4},
		},
		texts: map[string]string{
			"uuid-1": "body one",
			"uuid-2": "body two",
		},
	}
	c := cache.New()

	p, err := NewPipeline(client, WithCache(c, nil))
	require.NoError(t, err)
	defer p.Release()

	first := singleQueryTopic("climate policy", false)
	require.NoError(t, p.Process(context.Background(), first))
	require.Len(t, first.ProcessingObjects[0].Documents, 2)
	require.Equal(t, 1, client.searchCalls)

	// A second pipeline requesting fewer documents for the same query must
	// be served entirely from the cache.
	p2, err := NewPipeline(client, WithCache(c, nil), WithDocsPerQuery(1))
	require.NoError(t, err)
	defer p2.Release()

	second := singleQueryTopic("climate policy", false)
	require.NoError(t, p2.Process(context.Background(), second))

	assert.Equal(t, 1, client.searchCalls, "cache hit must not re-hit the network")

	docs := second.ProcessingObjects[0].Documents
	require.Len(t, docs, 1)
	doc, ok := docs["uuid-2"]
	require.True(t, ok, "ascending score order keeps the lowest-scored record for top 1")
	require.NotNil(t, doc.Result.Text)

	for uuid := range docs {
		_, inFirst := first.ProcessingObjects[0].Documents[uuid]
		assert.True(t, inFirst, "cached subset must come from the first call's records")
	}
}

func TestProcessMergesBeforePruning(t *testing.T) {
	client := &fakeClient{
		hits: []core.RawHit{
			{UUID: "uuid-ok", Score: 1.0},
			{UUID: "uuid-lost", Score: 2.0},
		},
		texts: map[string]string{"uuid-ok": "body"},
	}
	c := cache.New()

	p, err := NewPipeline(client, WithCache(c, nil))
	require.NoError(t, err)
	defer p.Release()

	topic := singleQueryTopic("q", false)
	require.NoError(t, p.Process(context.Background(), topic))

	// Pruning applies to the batch, not the cache: the textless record is
	// still cached exactly as fetched.
	records, ok := c.Lookup("q", -1, cache.AscendingScore)
	require.True(t, ok)
	assert.Len(t, records, 2)
	assert.Len(t, topic.ProcessingObjects[0].Documents, 1)
}

func TestProcessManyQueriesGatherAllOutcomes(t *testing.T) {
	client := &fakeClient{
		hits:  []core.RawHit{{UUID: "uuid-1", Score: 0.5}},
		texts: map[string]string{"uuid-1": "body"},
	}

	p, err := NewPipeline(client, WithFetchBudget(4))
	require.NoError(t, err)
	defer p.Release()

	topic := core.NewTopic("topic", 7)
	for _, text := range []string{"variant one", "variant two", "variant three", ""} {
		topic.ProcessingObjects = append(topic.ProcessingObjects,
			core.NewProcessingObject(core.Query{Text: text}))
	}

	require.NoError(t, p.Process(context.Background(), topic))

	// The empty query is skipped by validation, every other variant lands.
	for i, obj := range topic.ProcessingObjects[:3] {
		assert.Len(t, obj.Documents, 1, "variant %d", i)
	}
	assert.Empty(t, topic.ProcessingObjects[3].Documents)
	assert.Equal(t, 3, client.searchCalls)
}

func TestCloseChecksPointsCache(t *testing.T) {
	client := &fakeClient{texts: map[string]string{}}
	c := cache.New()
	store, err := cache.NewMemoryStore()
	require.NoError(t, err)
	defer store.Close()

	p, err := NewPipeline(client, WithCache(c, store))
	require.NoError(t, err)

	c.Merge("q", []*core.ResultRecord{{UUID: "uuid-1", Score: 1, Text: core.String("b")}})
	require.NoError(t, p.Close())

	loaded, err := store.Load()
	require.NoError(t, err)
	queries, records := loaded.Size()
	assert.Equal(t, 1, queries)
	assert.Equal(t, 1, records)
}
