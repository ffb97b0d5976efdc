package chatnoir

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/poiesic/noirfetch/core"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the public ChatNoir endpoint.
	DefaultBaseURL = "https://www.chatnoir.eu"

	// DefaultIndex is the ClueWeb12 index.
	DefaultIndex = "cw12"

	// DefaultResultsPerPage is the number of results requested per search
	// when the request does not say otherwise.
	DefaultResultsPerPage = 100

	// DefaultRetries is the per-call retry budget.
	DefaultRetries = 4

	// DefaultAttemptTimeout bounds a single request attempt. Generous on
	// purpose: a stuck connection must not hold a retry slot forever, but
	// the bound must not change how many retries a slow call consumes.
	DefaultAttemptTimeout = 5 * time.Minute

	// DefaultMaxConns caps concurrent connections to the service host.
	DefaultMaxConns = 30

	searchPath  = "/api/v1/_search"
	phrasesPath = "/api/v1/_phrases"
	cachePath   = "/cache"
)

// Client issues search and full-document requests against the ChatNoir API.
//
// Retry counters are call-scoped; the client itself holds no per-call state
// and is safe for concurrent use.
type Client struct {
	apiKey         string
	baseURL        string
	index          string
	retries        int
	attemptTimeout time.Duration
	maxConns       int
	httpClient     *http.Client
	limiter        *rate.Limiter
	logger         *slog.Logger
}

// Option configures a Client.
type Option func(*Client) error

// WithBaseURL sets the API base URL. Default is DefaultBaseURL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) error {
		c.baseURL = strings.TrimSuffix(baseURL, "/")
		return nil
	}
}

// WithIndex selects the index searched and fetched from.
// Default is DefaultIndex.
func WithIndex(index string) Option {
	return func(c *Client) error {
		c.index = index
		return nil
	}
}

// WithRetries sets the retry budget per call. Values below 1 are clamped
// to 1 (a single attempt).
func WithRetries(retries int) Option {
	return func(c *Client) error {
		if retries < 1 {
			retries = 1
		}
		c.retries = retries
		return nil
	}
}

// WithAttemptTimeout bounds each individual request attempt.
// Default is DefaultAttemptTimeout.
func WithAttemptTimeout(timeout time.Duration) Option {
	return func(c *Client) error {
		c.attemptTimeout = timeout
		return nil
	}
}

// WithMaxConns caps concurrent connections to the service host.
// Default is DefaultMaxConns.
func WithMaxConns(maxConns int) Option {
	return func(c *Client) error {
		if maxConns < 1 {
			maxConns = 1
		}
		c.maxConns = maxConns
		return nil
	}
}

// WithRateLimit throttles request attempts. The default limiter is
// unlimited; set a finite limit for API politeness on large batches.
func WithRateLimit(limit rate.Limit, burst int) Option {
	return func(c *Client) error {
		c.limiter = rate.NewLimiter(limit, burst)
		return nil
	}
}

// WithHTTPClient replaces the HTTP client, bypassing the transport the
// constructor would otherwise build from the connection settings.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) error {
		c.httpClient = httpClient
		return nil
	}
}

// WithLogger sets a custom logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) error {
		if logger == nil {
			logger = slog.Default()
		}
		c.logger = logger
		return nil
	}
}

// NewClient creates a ChatNoir API client.
func NewClient(apiKey string, opts ...Option) (*Client, error) {
	if len(apiKey) == 0 {
		return nil, ErrMissingAPIKey
	}

	c := &Client{
		apiKey:         apiKey,
		baseURL:        DefaultBaseURL,
		index:          DefaultIndex,
		retries:        DefaultRetries,
		attemptTimeout: DefaultAttemptTimeout,
		maxConns:       DefaultMaxConns,
		limiter:        rate.NewLimiter(rate.Inf, 1),
		logger:         slog.Default().With("component", "chatnoir-client"),
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	if c.httpClient == nil {
		c.httpClient = &http.Client{
			Timeout: c.attemptTimeout,
			Transport: &http.Transport{
				MaxConnsPerHost:     c.maxConns,
				MaxIdleConns:        c.maxConns,
				MaxIdleConnsPerHost: c.maxConns,
			},
		}
	}

	return c, nil
}

// SimpleSearch issues a free-text search. The query may contain ChatNoir
// operators like AND and OR.
func (c *Client) SimpleSearch(ctx context.Context, req SearchRequest) ([]core.RawHit, error) {
	form := c.searchForm(req)
	return c.search(ctx, searchPath, req.Query, form)
}

// PhraseSearch issues a phrase search matching fixed phrases; req.Slop
// controls how far apart the phrase terms may be (0, 1, or 2).
func (c *Client) PhraseSearch(ctx context.Context, req SearchRequest) ([]core.RawHit, error) {
	form := c.searchForm(req)
	form.Set("slop", strconv.Itoa(req.Slop))
	return c.search(ctx, phrasesPath, req.Query, form)
}

func (c *Client) searchForm(req SearchRequest) url.Values {
	size := req.Size
	if size <= 0 {
		size = DefaultResultsPerPage
	}
	return url.Values{
		"apikey": {c.apiKey},
		"query":  {req.Query},
		"index":  {c.index},
		"from":   {strconv.Itoa(req.From)},
		"size":   {strconv.Itoa(size)},
		"pretty": {"true"},
	}
}

// search runs the shared retry loop for both search endpoints. Any non-200
// status or transport error consumes one retry immediately; an error
// indicator inside a 200 response is returned without retrying.
func (c *Client) search(ctx context.Context, path, queryText string, form url.Values) ([]core.RawHit, error) {
	retries := c.retries
	for {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		c.logger.Debug("requesting search", "path", path, "query", queryText)
		status, body, err := c.post(ctx, path, form)
		if err != nil || status != http.StatusOK {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			retries--
			if retries <= 0 {
				c.logger.Warn("could not retrieve documents for query",
					"query", queryText, "status", status, "err", err)
				return nil, ErrRetriesExhausted
			}
			c.logger.Debug("retrying query", "query", queryText, "retriesLeft", retries)
			continue
		}

		var resp searchResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, fmt.Errorf("decode search response: %w", err)
		}
		if len(resp.Error) > 0 {
			c.logger.Warn("search returned an error response", "query", queryText)
			return nil, ErrErrorResponse
		}

		hits := make([]core.RawHit, 0, len(resp.Results))
		for _, hit := range resp.Results {
			hits = append(hits, hit.toRawHit())
		}
		return hits, nil
	}
}

// FetchDocument retrieves the full plain-text rendering of a document from
// the cache endpoint. A blank UUID is rejected before any network call.
func (c *Client) FetchDocument(ctx context.Context, uuid string) (string, error) {
	if strings.TrimSpace(uuid) == "" {
		c.logger.Error("cannot retrieve document, no uuid specified")
		return "", ErrEmptyUUID
	}

	query := url.Values{"uuid": {uuid}, "index": {c.index}}
	// raw and plain are bare flags the endpoint expects without values.
	target := c.baseURL + cachePath + "?" + query.Encode() + "&raw&plain"

	retries := c.retries
	for {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", err
		}

		c.logger.Debug("requesting full document", "uuid", uuid)
		status, body, err := c.get(ctx, target)
		if err != nil || status != http.StatusOK {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			retries--
			if retries <= 0 {
				c.logger.Warn("could not retrieve document",
					"uuid", uuid, "status", status, "err", err)
				return "", ErrRetriesExhausted
			}
			c.logger.Debug("retrying document request", "uuid", uuid, "retriesLeft", retries)
			continue
		}

		c.logger.Debug("received document response", "uuid", uuid)
		return string(body), nil
	}
}

func (c *Client) post(ctx context.Context, path string, form url.Values) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req)
}

func (c *Client) get(ctx context.Context, target string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return 0, nil, err
	}
	return c.do(req)
}

func (c *Client) do(req *http.Request) (int, []byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, body, nil
}
