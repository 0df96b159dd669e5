package retrieval

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"

	"campaignforge/internal/embedding"
)

// SQLiteIndex stores documents and their embeddings in a SQLite database and
// ranks them with the sqlite-vec vec_distance_cosine function. Add always
// works; Search requires the vec extension and reports an error without it,
// which callers treat as "no context available".
type SQLiteIndex struct {
	db     *sql.DB
	engine embedding.Engine
}

// Open opens (creating if needed) the index at path. Use ":memory:" for an
// ephemeral index in tests.
func Open(path string, engine embedding.Engine) (*SQLiteIndex, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open index database: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS documents (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			content TEXT NOT NULL,
			source TEXT NOT NULL,
			row INTEGER NOT NULL,
			category TEXT NOT NULL,
			embedding BLOB NOT NULL,
			UNIQUE(source, row)
		)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create documents table: %w", err)
	}

	return &SQLiteIndex{db: db, engine: engine}, nil
}

func (ix *SQLiteIndex) Close() error { return ix.db.Close() }

// Count returns the number of indexed documents.
func (ix *SQLiteIndex) Count(ctx context.Context) (int, error) {
	var n int
	err := ix.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&n)
	return n, err
}

// Add embeds and inserts documents. A document whose (source, row) identity
// is already indexed is skipped, so re-indexing the same corpus is idempotent.
// Returns the number of documents actually inserted.
func (ix *SQLiteIndex) Add(ctx context.Context, docs []Document) (int, error) {
	if len(docs) == 0 {
		return 0, nil
	}

	var fresh []Document
	for _, d := range docs {
		var exists int
		err := ix.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM documents WHERE source = ? AND row = ?`,
			d.Source, d.Row).Scan(&exists)
		if err != nil {
			return 0, fmt.Errorf("failed to check document existence: %w", err)
		}
		if exists == 0 {
			fresh = append(fresh, d)
		}
	}
	if len(fresh) == 0 {
		return 0, nil
	}

	texts := make([]string, len(fresh))
	for i, d := range fresh {
		texts[i] = d.Content
	}
	vectors, err := ix.engine.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("failed to embed documents: %w", err)
	}
	if len(vectors) != len(fresh) {
		return 0, fmt.Errorf("embedding count mismatch: got %d, want %d", len(vectors), len(fresh))
	}

	tx, err := ix.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO documents (content, source, row, category, embedding)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for i, d := range fresh {
		blob, err := encodeFloat32(vectors[i])
		if err != nil {
			return 0, fmt.Errorf("failed to encode embedding: %w", err)
		}
		res, err := stmt.ExecContext(ctx, d.Content, d.Source, d.Row, d.Category, blob)
		if err != nil {
			return 0, fmt.Errorf("failed to insert document: %w", err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit insert: %w", err)
	}

	log.Debug().Int("inserted", inserted).Int("offered", len(docs)).Msg("indexed documents")
	return inserted, nil
}

// Search embeds the query and returns the k nearest documents by cosine
// distance. Without the sqlite-vec extension compiled in, the distance
// function is missing and the query errors.
func (ix *SQLiteIndex) Search(ctx context.Context, query string, k int) ([]Document, error) {
	if k <= 0 {
		return nil, nil
	}

	qvec, err := ix.engine.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	blob, err := encodeFloat32(qvec)
	if err != nil {
		return nil, fmt.Errorf("failed to encode query embedding: %w", err)
	}

	rows, err := ix.db.QueryContext(ctx, `
		SELECT content, source, row, category
		FROM documents
		ORDER BY vec_distance_cosine(embedding, ?)
		LIMIT ?`, blob, k)
	if err != nil {
		return nil, fmt.Errorf("similarity search failed: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var d Document
		if err := rows.Scan(&d.Content, &d.Source, &d.Row, &d.Category); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func encodeFloat32(vec []float32) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := binary.Write(buf, binary.LittleEndian, vec); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
