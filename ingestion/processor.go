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


package ingestion

import (
	"context"
	"fmt"

	"github.com/poiesic/vitae/config"
	"github.com/poiesic/vitae/core"
)

// processor is an internal interface for the stages a document's segments
// pass through before they are stored.
type processor interface {
	// process enriches or checks segments in place.
	process(ctx context.Context, segments []*core.EvidenceSegment) error
}

// validationProcessor rejects segments that break the token budget or lack
// the fields storage relies on.
type validationProcessor struct {
	limits config.Budget
}

var _ processor = (*validationProcessor)(nil)

func (vp *validationProcessor) process(_ context.Context, segments []*core.EvidenceSegment) error {
	for i, seg := range segments {
		if err := core.ValidateSegment(seg, vp.limits.TargetMin, vp.limits.HardCap); err != nil {
			return fmt.Errorf("segment %d: %w", i, err)
		}
	}
	return nil
}
