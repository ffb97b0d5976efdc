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


// Package chatnoir provides a client for the ChatNoir search API
// (https://www.chatnoir.eu/doc/api/).
//
// The client supports simple search, phrase search, and full-document
// retrieval from the document cache endpoint. Every call applies the same
// bounded retry policy: any non-200 status or transport error consumes one
// retry, with no backoff, and an exhausted budget surfaces as
// ErrRetriesExhausted rather than partial data. Callers are expected to
// treat that as "no data for this call" and keep going.
package chatnoir
