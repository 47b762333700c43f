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


package core

import (
	"fmt"
	"strings"
)

// ValidateDocument validates a SourceDocument before extraction.
//
// Validation rules:
//   - Title must not be blank
//   - Organization must not be blank
//   - End, when set, must not precede Start
//
// NOT validated:
//   - ID (derived by Key when empty)
//   - Body, Summary, Skills, Outcomes (any may be empty)
func ValidateDocument(doc *SourceDocument) error {
	if doc == nil {
		return fmt.Errorf("%w: document is nil", ErrInvalidDocument)
	}

	if strings.TrimSpace(doc.Title) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrMissingTitle)
	}

	if strings.TrimSpace(doc.Organization) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrMissingOrganization)
	}

	if !doc.Start.IsZero() && !doc.End.IsZero() && doc.End.Before(doc.Start) {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrInvalidDateRange)
	}

	return nil
}

// ValidateSegment validates an EvidenceSegment before it is persisted.
// minTokens and maxTokens are the inclusive token bounds every stored segment must satisfy.
//
// NOT validated:
//   - Vector (empty until the embedding step runs)
//   - ID (derived from content on upsert)
func ValidateSegment(seg *EvidenceSegment, minTokens, maxTokens int) error {
	if seg == nil {
		return fmt.Errorf("%w: segment is nil", ErrInvalidSegment)
	}

	if strings.TrimSpace(seg.Content) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidSegment, ErrEmptyContent)
	}

	if seg.DocumentID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidSegment, ErrMissingDocumentID)
	}

	if seg.TokenCount < minTokens || seg.TokenCount > maxTokens {
		return fmt.Errorf("%w: %w: %d not in [%d, %d]", ErrInvalidSegment, ErrTokenBudget, seg.TokenCount, minTokens, maxTokens)
	}

	return nil
}
