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


package retrieval

import (
	"errors"
	"fmt"
)

var (
	// ErrVectorSearcherRequired is returned when no vector searcher is provided.
	ErrVectorSearcherRequired = errors.New("vector searcher required")

	// ErrTextSearcherRequired is returned when no text searcher is provided.
	ErrTextSearcherRequired = errors.New("text searcher required")

	// ErrAIProviderRequired is returned when an AI provider is not provided.
	ErrAIProviderRequired = errors.New("AI provider required")

	// ErrInvalidQuery indicates a malformed query. It is never retried.
	ErrInvalidQuery = errors.New("invalid query")

	// ErrProvider indicates the embedding provider failed.
	ErrProvider = errors.New("embedding provider failure")

	// ErrStore indicates the segment store stayed unavailable after retries.
	ErrStore = errors.New("segment store failure")
)

// ProviderError carries the cause of an embedding failure.
// errors.Is(err, ErrProvider) holds for every ProviderError.
type ProviderError struct {
	Err error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %v", ErrProvider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

func (e *ProviderError) Is(target error) bool { return target == ErrProvider }

// StoreError carries the cause of a store failure and the attempts made.
// errors.Is(err, ErrStore) holds for every StoreError.
type StoreError struct {
	Op       string
	Attempts int
	Err      error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %s failed after %d attempt(s): %v", ErrStore, e.Op, e.Attempts, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func (e *StoreError) Is(target error) bool { return target == ErrStore }

// errorKind labels err for the retrieval error counter.
func errorKind(err error) string {
	switch {
	case errors.Is(err, ErrInvalidQuery):
		return "invalid_query"
	case errors.Is(err, ErrProvider):
		return "provider"
	case errors.Is(err, ErrStore):
		return "store"
	default:
		return "other"
	}
}
