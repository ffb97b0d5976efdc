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


// Package cache provides the persistent result cache for fetched search
// results.
//
// The cache is a two-level index: query text maps to the set of document
// UUIDs observed for that query, and each UUID maps to its cached
// ResultRecord. A record may be shared by any number of queries. Repeated
// merges for the same query accumulate UUIDs instead of replacing them, so
// a later run that requests more results per query extends the cached set.
//
// The Store type persists a Cache to a BadgerDB directory. Values are
// written as individually versioned MUS records: a value that fails to
// decode costs exactly one entry, and a missing or unreadable store yields
// a fresh, empty cache. The cache is a performance optimization, not a
// source of truth, so corruption is never fatal.
package cache
