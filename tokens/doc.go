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


// Package tokens measures text in model tokens and splits it at natural
// boundaries.
//
// A single Counter is shared system wide so that budgets, chunking and
// extraction all agree on what a token is. TiktokenCounter uses a BPE
// encoding when it can be loaded; EstimateCounter (one token per four
// characters) is the deterministic fallback and the counter used in tests.
//
// Budget applies the configured TargetMin/TargetMax/HardCap bounds.
// Splitter breaks text into sentence or bullet spans and packs them into
// chunks no larger than TargetMax.
package tokens
