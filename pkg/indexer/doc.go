// Package indexer provides modular indexing components for the hybrid
// code-search engine.
//
// This package follows Black Box Design principles (Eskil Steenberg):
//   - Clean interfaces that hide implementation details
//   - Replaceable components (swap backends without code changes)
//   - Single responsibility per module
//
// # Architecture
//
// The indexer package separates indexing concerns from the search engine:
//
//	┌──────────────────┐
//	│   Orchestrator   │  (orchestrates search)
//	└────────┬─────────┘
//	         │
//	┌────────▼─────────┐
//	│     Indexer       │  ← This package
//	│   (interface)     │
//	└────────┬─────────┘
//	         │
//	    ┌────┴────┐
//	    │         │
//	┌───▼───┐ ┌───▼────┐
//	│Keyword│ │ Vector │
//	└───────┘ └────────┘
//
// # Usage
//
// Create a keyword indexer:
//
//	idx, _ := keywordindex.New(path, keywordindex.DefaultBoostWeights())
//	ki, err := indexer.NewKeywordIndexer(indexer.WithIndex(idx))
//	if err != nil {
//	    return err
//	}
//	defer ki.Close()
//
//	err = ki.Index(ctx, chunks)
//
// # Thread Safety
//
// All Indexer implementations are safe for concurrent use. Multiple
// goroutines may call Index, DeleteByFile, etc. simultaneously.
package indexer
