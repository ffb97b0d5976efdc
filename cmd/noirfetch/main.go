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


package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/poiesic/noirfetch"
	"github.com/poiesic/noirfetch/chatnoir"
	"github.com/poiesic/noirfetch/core"
	"github.com/poiesic/noirfetch/fetch"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "noirfetch",
		Usage: "Fetch and cache ChatNoir search results for topic queries",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "fetch",
				Usage:     "Fetch documents for the given query variants",
				ArgsUsage: "QUERY [QUERY...]",
				Action:    fetchCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "api-key",
						Usage:   "ChatNoir API key",
						EnvVars: []string{"CHATNOIR_API_KEY"},
					},
					&cli.StringFlag{
						Name:  "cache",
						Usage: "Path to the result cache directory",
						Value: "./chatnoir_cache",
					},
					&cli.BoolFlag{
						Name:  "no-cache",
						Usage: "Disable the result cache entirely",
					},
					&cli.StringFlag{
						Name:  "index",
						Usage: "Index to search",
						Value: chatnoir.DefaultIndex,
					},
					&cli.IntFlag{
						Name:  "docs-per-query",
						Usage: "Number of documents retrieved per query",
						Value: fetch.DefaultDocsPerQuery,
					},
					&cli.IntFlag{
						Name:  "retries",
						Usage: "Retry budget per API call",
						Value: chatnoir.DefaultRetries,
					},
					&cli.IntFlag{
						Name:  "fetch-budget",
						Usage: "Maximum concurrent document fetches",
						Value: fetch.DefaultFetchBudget,
					},
					&cli.Float64Flag{
						Name:  "score-threshold",
						Usage: "Drop hits scoring below this value (negative disables)",
						Value: -1,
					},
					&cli.Float64Flag{
						Name:  "spam-threshold",
						Usage: "Drop hits with a spam rank above this value (negative disables)",
						Value: -1,
					},
					&cli.Float64Flag{
						Name:  "page-rank-threshold",
						Usage: "Drop hits with a page rank above this value (negative disables)",
						Value: -1,
					},
					&cli.BoolFlag{
						Name:  "phrase",
						Usage: "Issue phrase searches instead of simple searches",
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func fetchCommand(c *cli.Context) error {
	if c.NArg() == 0 {
		return cli.Exit("at least one query argument is required", 1)
	}

	filter := fetch.HitFilter{
		ScoreThreshold:    core.Float64(c.Float64("score-threshold")),
		SpamRankThreshold: core.Float64(c.Float64("spam-threshold")),
		PageRankThreshold: core.Float64(c.Float64("page-rank-threshold")),
	}

	opts := []noirfetch.Option{
		noirfetch.WithClientOptions(
			chatnoir.WithIndex(c.String("index")),
			chatnoir.WithRetries(c.Int("retries")),
		),
		noirfetch.WithPipelineOptions(
			fetch.WithFilter(filter),
			fetch.WithDocsPerQuery(c.Int("docs-per-query")),
			fetch.WithFetchBudget(c.Int("fetch-budget")),
		),
	}
	if c.Bool("no-cache") {
		opts = append(opts, noirfetch.WithCacheDisabled())
	}

	fetcher, err := noirfetch.New(c.String("api-key"), c.String("cache"), opts...)
	if err != nil {
		return err
	}
	defer fetcher.Close()

	queries := c.Args().Slice()
	topic := core.NewTopic(strings.Join(queries, "; "), 1)
	for _, text := range queries {
		topic.ProcessingObjects = append(topic.ProcessingObjects,
			core.NewProcessingObject(core.Query{
				Text:         text,
				PhraseSearch: c.Bool("phrase"),
			}))
	}

	if err := fetcher.Process(context.Background(), topic); err != nil {
		return err
	}

	for _, obj := range topic.ProcessingObjects {
		fmt.Printf("%q: %d documents\n", obj.Query.Text, len(obj.Documents))
		for uuid, doc := range obj.Documents {
			fmt.Printf("  %s score=%.3f trec_id=%s\n", uuid, doc.Result.Score, doc.Result.TrecID)
		}
	}
	return nil
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
