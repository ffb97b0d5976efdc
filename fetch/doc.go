// Package fetch provides the pipeline stage that retrieves search results
// for a topic's query variants.
//
// For each query the pipeline consults the result cache first; on a miss it
// issues the search, filters raw hits by the configured thresholds, fetches
// every surviving document body concurrently, and merges the assembled
// records back into the cache. All per-hit fetches share one worker pool so
// a whole batch never exceeds the connection budget. Failures are gathered,
// never propagated: a flaky query or document reduces the quantity of
// results, not the correctness of the rest of the batch.
package fetch
