// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package noirfetch retrieves, filters, and caches ChatNoir search results
// for batches of query variants. The Fetcher type wires the durable result
// cache, the API client, and the fetch pipeline together; the subpackages
// remain usable on their own.
package noirfetch

import (
	"context"
	"log/slog"

	"github.com/poiesic/noirfetch/cache"
	"github.com/poiesic/noirfetch/chatnoir"
	"github.com/poiesic/noirfetch/core"
	"github.com/poiesic/noirfetch/fetch"
)

// Fetcher owns the cache store, the ChatNoir client, and the fetch
// pipeline for one run.
type Fetcher struct {
	store    *cache.Store
	pipeline *fetch.Pipeline
	logger   *slog.Logger
}

// Option configures a Fetcher.
type Option func(*fetcherOptions)

type fetcherOptions struct {
	cacheEnabled bool
	clientOpts   []chatnoir.Option
	pipelineOpts []fetch.Option
}

// WithCacheDisabled turns result caching off; every query goes to the
// network and nothing is persisted.
func WithCacheDisabled() Option {
	return func(o *fetcherOptions) {
		o.cacheEnabled = false
	}
}

// WithClientOptions forwards options to the ChatNoir client.
func WithClientOptions(opts ...chatnoir.Option) Option {
	return func(o *fetcherOptions) {
		o.clientOpts = append(o.clientOpts, opts...)
	}
}

// WithPipelineOptions forwards options to the fetch pipeline.
func WithPipelineOptions(opts ...fetch.Option) Option {
	return func(o *fetcherOptions) {
		o.pipelineOpts = append(o.pipelineOpts, opts...)
	}
}

// New creates a Fetcher. cachePath is the cache store directory, used only
// when caching is enabled. A cache that cannot be loaded is replaced by a
// fresh one; the run proceeds as if nothing were cached.
func New(apiKey, cachePath string, opts ...Option) (*Fetcher, error) {
	options := &fetcherOptions{cacheEnabled: true}
	for _, opt := range opts {
		opt(options)
	}

	logger := slog.Default()

	client, err := chatnoir.NewClient(apiKey, options.clientOpts...)
	if err != nil {
		return nil, err
	}

	pipelineOpts := options.pipelineOpts
	var store *cache.Store
	if options.cacheEnabled {
		store, err = cache.OpenStore(cachePath, false)
		if err != nil {
			return nil, err
		}

		results, err := store.Load()
		if err != nil {
			logger.Warn("could not load result cache, starting fresh", "err", err)
			results = cache.New()
		}
		pipelineOpts = append(pipelineOpts, fetch.WithCache(results, store))
	}

	pipeline, err := fetch.NewPipeline(client, pipelineOpts...)
	if err != nil {
		if store != nil {
			store.Close()
		}
		return nil, err
	}

	return &Fetcher{
		store:    store,
		pipeline: pipeline,
		logger:   logger,
	}, nil
}

// Process fetches documents for every query variant of the topic and
// checkpoints the cache afterwards.
func (f *Fetcher) Process(ctx context.Context, topic *core.Topic) error {
	return f.pipeline.Process(ctx, topic)
}

// Close persists the cache a final time and releases all resources.
func (f *Fetcher) Close() error {
	err := f.pipeline.Close()
	if f.store != nil {
		if closeErr := f.store.Close(); err == nil {
			err = closeErr
		}
	}
	return err
}
