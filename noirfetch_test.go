package noirfetch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/poiesic/noirfetch/chatnoir"
	"github.com/poiesic/noirfetch/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeChatNoir serves the search endpoint and the document cache endpoint.
// Document uuid-2 is permanently unavailable.
func fakeChatNoir(t *testing.T, searchCalls *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/_search":
			searchCalls.Add(1)
			fmt.Fprint(w, `{
				"meta": {"total_results": 2},
				"results": [
					{"score": 0.9, "uuid": "uuid-1", "trec_id": "trec-1", "spam_rank": null, "page_rank": null, "snippet": "s1"},
					{"score": 0.4, "uuid": "uuid-2", "trec_id": "trec-2", "spam_rank": null, "page_rank": null, "snippet": "s2"}
				]
			}`)
		case "/cache":
			if r.URL.Query().Get("uuid") == "uuid-1" {
				fmt.Fprint(w, "full text of document one")
				return
			}
			w.WriteHeader(http.StatusNotFound)
		default:
			t.Errorf("unexpected request path %q", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func topicFor(text string) *core.Topic {
	topic := core.NewTopic(text, 1)
	topic.ProcessingObjects = []*core.ProcessingObject{
		core.NewProcessingObject(core.Query{Text: text}),
	}
	return topic
}

func TestFetcherEndToEnd(t *testing.T) {
	var searchCalls atomic.Int32
	server := fakeChatNoir(t, &searchCalls)
	defer server.Close()

	cacheDir := t.TempDir()
	newFetcher := func() *Fetcher {
		f, err := New("test-key", cacheDir,
			WithClientOptions(
				chatnoir.WithBaseURL(server.URL),
				chatnoir.WithRetries(1),
			))
		require.NoError(t, err)
		return f
	}

	// First run goes to the network; the unfetchable document is pruned.
	fetcher := newFetcher()
	topic := topicFor("climate policy")
	require.NoError(t, fetcher.Process(context.Background(), topic))

	docs := topic.ProcessingObjects[0].Documents
	require.Len(t, docs, 1)
	doc := docs["uuid-1"]
	require.NotNil(t, doc)
	require.NotNil(t, doc.Result.Text)
	assert.Equal(t, "full text of document one", *doc.Result.Text)
	assert.Equal(t, int32(1), searchCalls.Load())

	require.NoError(t, fetcher.Close())

	// Second run in a fresh process must be served from the persisted
	// cache without touching the network.
	fetcher = newFetcher()
	defer fetcher.Close()

	topic = topicFor("climate policy")
	require.NoError(t, fetcher.Process(context.Background(), topic))

	docs = topic.ProcessingObjects[0].Documents
	require.Len(t, docs, 1, "cached textless records are pruned from the batch too")
	require.Contains(t, docs, "uuid-1")
	assert.Equal(t, int32(1), searchCalls.Load(), "cache hit must not re-hit the network")
}

func TestFetcherCacheDisabled(t *testing.T) {
	var searchCalls atomic.Int32
	server := fakeChatNoir(t, &searchCalls)
	defer server.Close()

	fetcher, err := New("test-key", "",
		WithCacheDisabled(),
		WithClientOptions(
			chatnoir.WithBaseURL(server.URL),
			chatnoir.WithRetries(1),
		))
	require.NoError(t, err)
	defer fetcher.Close()

	for i := 0; i < 2; i++ {
		topic := topicFor("climate policy")
		require.NoError(t, fetcher.Process(context.Background(), topic))
		require.Len(t, topic.ProcessingObjects[0].Documents, 1)
	}
	assert.Equal(t, int32(2), searchCalls.Load(), "without a cache every run hits the network")
}

func TestNewRequiresAPIKey(t *testing.T) {
	_, err := New("", "", WithCacheDisabled())
	assert.ErrorIs(t, err, chatnoir.ErrMissingAPIKey)
}
