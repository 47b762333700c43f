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


package storage

import (
	"fmt"

	"github.com/poiesic/vitae/core"
)

// MarshalID serializes an ID to bytes.
func MarshalID(id core.ID) []byte {
	buf := make([]byte, core.IDMUS.Size(id))
	core.IDMUS.Marshal(id, buf)
	return buf
}

// UnmarshalID deserializes an ID from bytes.
func UnmarshalID(data []byte) (core.ID, error) {
	id, _, err := core.IDMUS.Unmarshal(data)
	return id, err
}

// MarshalSegment serializes an EvidenceSegment to bytes.
func MarshalSegment(seg *core.EvidenceSegment) []byte {
	buf := make([]byte, core.EvidenceSegmentMUS.Size(*seg))
	core.EvidenceSegmentMUS.Marshal(*seg, buf)
	return buf
}

// UnmarshalSegment deserializes an EvidenceSegment from bytes.
func UnmarshalSegment(data []byte) (*core.EvidenceSegment, error) {
	seg, _, err := core.EvidenceSegmentMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return &seg, nil
}

// MarshalDocumentState serializes a DocumentState to bytes.
func MarshalDocumentState(state *core.DocumentState) []byte {
	buf := make([]byte, core.DocumentStateMUS.Size(*state))
	core.DocumentStateMUS.Marshal(*state, buf)
	return buf
}

// UnmarshalDocumentState deserializes a DocumentState from bytes.
func UnmarshalDocumentState(data []byte) (*core.DocumentState, error) {
	state, _, err := core.DocumentStateMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return &state, nil
}
