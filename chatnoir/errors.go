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


package chatnoir

import "errors"

var (
	// ErrMissingAPIKey is returned when no API key is provided.
	ErrMissingAPIKey = errors.New("chatnoir api key required")

	// ErrRetriesExhausted indicates the retry budget for a call ran out.
	// Callers observe it as absence of data, not as a batch failure.
	ErrRetriesExhausted = errors.New("retries exhausted")

	// ErrErrorResponse indicates a 200 response whose body carries an
	// application-level error indicator. It is not retried.
	ErrErrorResponse = errors.New("api returned an error response")

	// ErrEmptyUUID indicates a document fetch with a blank UUID. It is
	// rejected before any network call.
	ErrEmptyUUID = errors.New("document uuid required")
)
