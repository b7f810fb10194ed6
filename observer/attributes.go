package observer

import "go.opentelemetry.io/otel/attribute"

// Attribute keys for pipeline observability spans and metrics.
var (
	AttrEmbedProvider   = attribute.Key("embedding.provider")
	AttrEmbedModel      = attribute.Key("embedding.model")
	AttrEmbedTextCount  = attribute.Key("embedding.text_count")
	AttrEmbedDimensions = attribute.Key("embedding.dimensions")

	AttrCacheOp   = attribute.Key("cache.op")
	AttrCacheTier = attribute.Key("cache.tier")

	AttrIndexBackend = attribute.Key("index.backend")
	AttrIndexOp      = attribute.Key("index.op")
	AttrIndexChunks  = attribute.Key("index.chunks")
	AttrIndexTopK    = attribute.Key("index.top_k")
	AttrIndexResults = attribute.Key("index.results")

	AttrChunkStrategy = attribute.Key("chunking.strategy")
	AttrChunkCount    = attribute.Key("chunking.chunks")

	AttrStatus = attribute.Key("status")
)
