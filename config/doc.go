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


// Package config holds the versioned tuning values of vitae.
//
// Segment token bounds, ranking weights, retrieval thresholds, timeouts and
// retry settings are all defined here so a ranking change is a reviewed
// config change rather than an edit scattered across packages.
//
// # Usage
//
//	cfg := config.DefaultConfig()
//	cfg, err := config.Load("vitae.yaml")
//	err = cfg.ApplyEnv(os.LookupEnv)
//
// A config file only needs the fields it changes:
//
//	version: 1
//	budget:
//	  target_min: 60
//	weights:
//	  similarity: 0.85
//	  recency: 0.10
//	  metadata: 0.05
package config
