// Package sqlite implements folio.Index using pure-Go SQLite with
// in-process brute-force vector search. Zero CGO required.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/foliolabs/folio"

	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

// Option configures a SQLite Index.
type Option func(*Index)

// WithLogger sets a structured logger for the index. When set, the
// index emits debug logs for every operation including timing, row
// counts, and key parameters. If not set, no logs are emitted.
func WithLogger(l *slog.Logger) Option {
	return func(ix *Index) {
		if l != nil {
			ix.logger = l
		}
	}
}

// Index implements folio.Index backed by a local SQLite file.
// Embeddings are stored as JSON text and vector search is done
// in-process using brute-force cosine similarity, which is fine for
// the collection sizes a single-file index is meant for.
type Index struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ folio.Index = (*Index)(nil)

// nopLogger is a logger that discards all output.
var nopLogger = slog.New(discardHandler{})

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }

// Open creates an Index using a local SQLite file at dbPath.
// It opens a single shared connection pool with SetMaxOpenConns(1) so
// that all goroutines serialize through one connection, eliminating
// SQLITE_BUSY errors caused by concurrent writers opening independent
// connections.
func Open(dbPath string, opts ...Option) *Index {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		// sql.Open only fails when the driver is not registered; with
		// the blank import above that never happens.
		panic(fmt.Sprintf("sqlite: open driver: %v", err))
	}
	db.SetMaxOpenConns(1)
	ix := &Index{db: db, logger: nopLogger}
	for _, o := range opts {
		o(ix)
	}
	ix.logger.Debug("sqlite: index opened", "path", dbPath)
	return ix
}

// Init creates all required tables. Safe to call multiple times.
func (ix *Index) Init(ctx context.Context) error {
	start := time.Now()
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			source TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS chunks (
			id TEXT PRIMARY KEY,
			document_id TEXT NOT NULL,
			content TEXT NOT NULL,
			chunk_index INTEGER NOT NULL,
			embedding TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_chunks_document ON chunks(document_id)`,
		`CREATE INDEX IF NOT EXISTS idx_documents_created ON documents(created_at)`,
	}
	for _, ddl := range stmts {
		if _, err := ix.db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	ix.logger.Debug("sqlite: init completed", "duration", time.Since(start))
	return nil
}

// Add stores a document and all its chunks in a single transaction.
// Existing rows with the same IDs are replaced, so re-ingesting a
// document is idempotent.
func (ix *Index) Add(ctx context.Context, doc folio.Document, chunks []folio.Chunk) error {
	start := time.Now()
	ix.logger.Debug("sqlite: add document", "id", doc.ID, "source", doc.Source, "chunks", len(chunks))

	tx, err := ix.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO documents (id, title, source, content, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		doc.ID, doc.Title, doc.Source, doc.Content, doc.CreatedAt,
	)
	if err != nil {
		ix.logger.Error("sqlite: insert document failed", "id", doc.ID, "error", err)
		return fmt.Errorf("insert document: %w", err)
	}

	for _, chunk := range chunks {
		var embJSON *string
		if len(chunk.Embedding) > 0 {
			v := serializeEmbedding(chunk.Embedding)
			embJSON = &v
		}
		_, err = tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO chunks (id, document_id, content, chunk_index, embedding)
			 VALUES (?, ?, ?, ?, ?)`,
			chunk.ID, chunk.DocumentID, chunk.Content, chunk.ChunkIndex, embJSON,
		)
		if err != nil {
			ix.logger.Error("sqlite: insert chunk failed", "chunk_id", chunk.ID, "doc_id", doc.ID, "error", err)
			return fmt.Errorf("insert chunk: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		ix.logger.Error("sqlite: add document commit failed", "id", doc.ID, "error", err)
		return fmt.Errorf("commit tx: %w", err)
	}
	ix.logger.Debug("sqlite: add document ok", "id", doc.ID, "chunks", len(chunks), "duration", time.Since(start))
	return nil
}

// Search performs brute-force cosine similarity search over all
// embedded chunks. Scores are clamped to [0, 1].
func (ix *Index) Search(ctx context.Context, embedding []float32, topK int) ([]folio.ScoredChunk, error) {
	start := time.Now()
	ix.logger.Debug("sqlite: search", "top_k", topK, "embedding_dim", len(embedding))

	rows, err := ix.db.QueryContext(ctx,
		`SELECT id, document_id, content, chunk_index, embedding
		 FROM chunks WHERE embedding IS NOT NULL`,
	)
	if err != nil {
		ix.logger.Error("sqlite: search failed", "error", err, "duration", time.Since(start))
		return nil, fmt.Errorf("search chunks: %w", err)
	}
	defer rows.Close()

	var results []folio.ScoredChunk
	scanned := 0
	for rows.Next() {
		var c folio.Chunk
		var embJSON string
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.Content, &c.ChunkIndex, &embJSON); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		scanned++
		stored, err := deserializeEmbedding(embJSON)
		if err != nil {
			continue
		}
		results = append(results, folio.ScoredChunk{
			Chunk: c,
			Score: clampScore(cosineSimilarity(embedding, stored)),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chunks: %w", err)
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > topK {
		results = results[:topK]
	}
	ix.logger.Debug("sqlite: search ok", "scanned", scanned, "returned", len(results), "duration", time.Since(start))
	return results, nil
}

// Count returns the number of indexed chunks.
func (ix *Index) Count(ctx context.Context) (int, error) {
	var n int
	err := ix.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count chunks: %w", err)
	}
	return n, nil
}

// Documents returns documents ordered by creation time, newest first.
// A non-positive limit returns all documents.
func (ix *Index) Documents(ctx context.Context, limit int) ([]folio.Document, error) {
	start := time.Now()
	ix.logger.Debug("sqlite: list documents", "limit", limit)

	query := `SELECT id, title, source, content, created_at
		FROM documents ORDER BY created_at DESC, id DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := ix.db.QueryContext(ctx, query, args...)
	if err != nil {
		ix.logger.Error("sqlite: list documents failed", "error", err)
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []folio.Document
	for rows.Next() {
		var d folio.Document
		if err := rows.Scan(&d.ID, &d.Title, &d.Source, &d.Content, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, d)
	}
	ix.logger.Debug("sqlite: list documents ok", "count", len(docs), "duration", time.Since(start))
	return docs, rows.Err()
}

// ChunkCount returns the number of chunks stored for one document.
func (ix *Index) ChunkCount(ctx context.Context, documentID string) (int, error) {
	var n int
	err := ix.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM chunks WHERE document_id = ?`, documentID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count document chunks: %w", err)
	}
	return n, nil
}

// DeleteDocument removes a document and its chunks.
func (ix *Index) DeleteDocument(ctx context.Context, id string) error {
	start := time.Now()
	ix.logger.Debug("sqlite: delete document", "id", id)

	tx, err := ix.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE document_id = ?`, id); err != nil {
		return fmt.Errorf("delete document chunks: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if err := tx.Commit(); err != nil {
		ix.logger.Error("sqlite: delete document commit failed", "id", id, "error", err)
		return err
	}
	ix.logger.Debug("sqlite: delete document ok", "id", id, "duration", time.Since(start))
	return nil
}

// Clear removes every document and chunk.
func (ix *Index) Clear(ctx context.Context) error {
	start := time.Now()
	tx, err := ix.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks`); err != nil {
		return fmt.Errorf("clear chunks: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM documents`); err != nil {
		return fmt.Errorf("clear documents: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	ix.logger.Debug("sqlite: cleared", "duration", time.Since(start))
	return nil
}

// Close closes the underlying database connection.
func (ix *Index) Close() error {
	ix.logger.Debug("sqlite: closing index")
	err := ix.db.Close()
	if err != nil {
		ix.logger.Error("sqlite: close failed", "error", err)
	}
	return err
}

// --- Vector math ---

// cosineSimilarity computes the cosine similarity between two vectors.
// Mismatched or empty vectors score zero.
func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom == 0 {
		return 0
	}
	return float32(dot / denom)
}

func clampScore(s float32) float32 {
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}

// serializeEmbedding converts []float32 to a JSON array string.
func serializeEmbedding(embedding []float32) string {
	data, _ := json.Marshal(embedding)
	return string(data)
}

// deserializeEmbedding parses a JSON array string back to []float32.
func deserializeEmbedding(s string) ([]float32, error) {
	var v []float32
	err := json.Unmarshal([]byte(s), &v)
	return v, err
}
