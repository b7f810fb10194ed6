// Package folio provides the core building blocks for document retrieval
// pipelines in Go: text chunking, a two-tier keyed result cache, and batch
// coordination against a vector index.
//
// # Quick Start
//
//	embedding := openai.New(apiKey, "text-embedding-3-small")
//	index := sqlite.Open("folio.db")
//
//	store, _ := cache.NewFSStore(cacheDir)
//	embCache, _ := cache.NewEmbeddingCache(cache.WithStore(store))
//
//	ingestor := ingest.NewIngestor(index, embedding,
//		ingest.WithEmbeddingCache(embCache),
//		ingest.WithExtractor(ingest.TypePDF, pdf.NewExtractor()))
//	retriever := folio.NewRetriever(index, embedding,
//		folio.WithQueryCache(embCache))
//	engine := folio.NewEngine(index, ingestor, retriever)
//
//	result, err := engine.Ingest(ctx, data, "paper.pdf")
//	matches, err := engine.Ask(ctx, "what is the conclusion?", 5)
//
// # Core Interfaces
//
// The root package defines the contracts that all components implement:
//
//   - [Index]: vector index backend (add, search, count)
//   - [EmbeddingProvider]: text-to-vector embedding
//   - [Retriever]: query-side search with result-count normalization
//
// Chunking strategies live in the ingest package ([ingest.SemanticChunker],
// [ingest.RecursiveChunker]); the generic keyed cache and its embedding
// specialization live in the cache package.
//
// # Included Implementations
//
// Indexes: store/sqlite (embedded, zero-config), store/postgres (pgvector).
// Cache tiers: cache (filesystem), cache/sqlitecache, cache/rediscache.
// Embedding: provider/openai (any OpenAI-compatible embeddings API).
//
// See the cmd/folio directory for a complete command-line application.
package folio
