// Package reembed recomputes the vectors of every stored evidence segment,
// typically after switching to a new or updated embedding model.
//
// Segments are visited in batches, embedded as documents with bounded
// exponential-backoff retries, normalized for cosine similarity and written
// back in place. Content, IDs and token counts are untouched.
package reembed
