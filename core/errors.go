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

import "errors"

// Domain validation errors
var (
	// ErrInvalidDocument indicates a SourceDocument failed validation.
	ErrInvalidDocument = errors.New("invalid source document")

	// ErrMissingTitle indicates the document has no title.
	ErrMissingTitle = errors.New("document title is required")

	// ErrMissingOrganization indicates the document has no organization.
	ErrMissingOrganization = errors.New("document organization is required")

	// ErrInvalidDateRange indicates an end date that precedes the start date.
	ErrInvalidDateRange = errors.New("end date precedes start date")

	// ErrInvalidSegment indicates an EvidenceSegment failed validation.
	ErrInvalidSegment = errors.New("invalid evidence segment")

	// ErrEmptyContent indicates the Content field is empty.
	ErrEmptyContent = errors.New("content cannot be empty")

	// ErrMissingDocumentID indicates a segment without a parent document.
	ErrMissingDocumentID = errors.New("document id is required")

	// ErrTokenBudget indicates a segment token count outside the configured bounds.
	ErrTokenBudget = errors.New("token count outside budget")
)
