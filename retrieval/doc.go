// Package retrieval answers natural-language questions with ranked evidence
// segments.
//
// A Retriever expands the query, embeds it, chooses an adaptive similarity
// threshold and searches the vector store. Only when the vector search returns
// nothing does it fall back to a keyword search; the two paths are never mixed
// within one call. Candidates are validated, scored by a scoring.Engine,
// truncated to the requested limit and enriched for presentation.
//
// Basic usage:
//
//	r, err := retrieval.NewRetriever(repo, repo, provider,
//	    retrieval.WithConfig(cfg),
//	    retrieval.WithVocabularySource(repo),
//	)
//	if err != nil {
//	    return err
//	}
//	result, err := r.Retrieve(ctx, retrieval.Query{Text: "Go microservices at scale"})
//
// An empty result is not an error: Result.Guidance then explains what to try.
// Embedding failures surface as ErrProvider, store failures as ErrStore after
// bounded retries behind a circuit breaker.
package retrieval
