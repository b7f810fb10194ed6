package folio

import "fmt"

// DefaultBatchSize is the maximum number of chunks per index insertion
// batch when the caller does not specify one.
const DefaultBatchSize = 100

// Batch is an ordered grouping of parallel slices prepared for a single
// index insertion. IDs, Texts, and Metas always have equal length, at most
// the configured batch size. It is purely a transport grouping with no
// independent lifecycle.
type Batch struct {
	IDs   []string
	Texts []string
	Metas []ChunkMeta
}

// Len returns the number of chunks in the batch.
func (b Batch) Len() int { return len(b.Texts) }

// PrepareBatches assigns deterministic identifiers and positional metadata
// to each chunk text and partitions the result into batches of at most
// batchSize. The identifier for chunk i is "{sourceID}_chunk_{i}", stable
// across runs for the same source and chunking configuration. The final
// batch may be shorter; batchSize <= 0 falls back to DefaultBatchSize.
func PrepareBatches(chunks []string, sourceID string, batchSize int) []Batch {
	if len(chunks) == 0 {
		return nil
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	ids := make([]string, len(chunks))
	metas := make([]ChunkMeta, len(chunks))
	for i, text := range chunks {
		ids[i] = fmt.Sprintf("%s_chunk_%d", sourceID, i)
		metas[i] = ChunkMeta{
			Source:     sourceID,
			ChunkIndex: i,
			Length:     len(text),
		}
	}

	batches := make([]Batch, 0, (len(chunks)+batchSize-1)/batchSize)
	for start := 0; start < len(chunks); start += batchSize {
		end := start + batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batches = append(batches, Batch{
			IDs:   ids[start:end],
			Texts: chunks[start:end],
			Metas: metas[start:end],
		})
	}
	return batches
}

// NormalizeResultCount clamps a requested result count to the current
// index size, so callers never ask the index for more results than exist.
// Never returns a negative count.
func NormalizeResultCount(requested, indexSize int) int {
	if requested < 0 {
		return 0
	}
	if indexSize < 0 {
		indexSize = 0
	}
	if requested > indexSize {
		return indexSize
	}
	return requested
}
