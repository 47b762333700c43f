// Package ingestion provides pipeline orchestration for turning source
// documents into stored evidence segments.
//
// The Pipeline type manages the ingestion workflow for documents, including:
//   - Skipping documents whose content hash matches the stored state
//   - Extracting budgeted evidence segments
//   - Generating document embeddings with bounded retries
//   - Replacing the previous segments of each changed document
//
// Documents are processed concurrently using a worker pool. A failure affects
// only its own document; the Report lists the outcome of every document.
package ingestion
