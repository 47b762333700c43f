// Package extraction turns source documents into evidence segments.
//
// An Extractor asks an EvidenceStrategy to group a document's spans by evidence
// kind, packs each group into token-bounded chunks, prefixes every chunk with a
// header naming the organization, title and tenure, and then grows, merges or
// drops undersized chunks so that each surviving segment lies within the
// configured budget. Segments whose final text was already produced in the same
// Run are discarded.
package extraction
