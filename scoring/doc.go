// Package scoring ranks retrieval candidates.
//
// A candidate's final score is a weighted sum of three components:
//
//	final = similarity×Weights.Similarity + recency×Weights.Recency + boost×Weights.Metadata
//
// Recency decays linearly from 1 at the segment's end date to 0 after the
// recency window; ongoing entries get a fixed value. The metadata boost grows
// with each requested skill or tag the segment carries, up to a cap. Filters
// never remove candidates here; they only raise the boost.
package scoring
