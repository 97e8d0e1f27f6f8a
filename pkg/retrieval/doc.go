// Package retrieval is the public facade over the hybrid code-search
// engine: a [Service] wires the keyword index, vector store, graph
// adapter, chunk producer, and embedder into the [orchestrator.Orchestrator]
// pipeline, and exposes IndexFile/DeleteFile/Search/Close as the single entry point
// embedding applications use.
//
// # Architecture
//
//	┌─────────────┐
//	│   Service    │  ← This package
//	└──────┬──────┘
//	       │
//	┌──────┴───────────────────────┐
//	│                              │
//	┌────▼────┐  ┌────────▼────────┐  ┌──▼──┐
//	│ indexer │  │  orchestrator    │  │graph│
//	└─────────┘  └──────────────────┘  └─────┘
//
// # Usage
//
//	cfg := config.NewConfig()
//	svc, err := retrieval.New(cfg, retrieval.Options{})
//	if err != nil {
//	    return err
//	}
//	defer svc.Close()
//
//	chunks, _ := svc.IndexFile(ctx, "main.go", src)
//	resp, _ := svc.Search(ctx, orchestrator.Request{Query: "implements:Handler", Limit: 10})
package retrieval
