package vectorstore

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// PgVectorStore persists chunks in Postgres with pgvector embeddings.
// Similarity ranking runs against an HNSW index on the embedding column.
type PgVectorStore struct {
	db *pgxpool.Pool
}

func NewPgVectorStore(db *pgxpool.Pool) *PgVectorStore {
	return &PgVectorStore{db: db}
}

func (s *PgVectorStore) PutChunks(ctx context.Context, documentID uuid.UUID, chunks []Chunk) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	// Replace semantics: a re-ingestion must never leave old chunks
	// coexisting with new ones.
	if _, err := tx.Exec(ctx,
		"DELETE FROM document_chunks WHERE document_id = $1", documentID,
	); err != nil {
		return fmt.Errorf("delete prior chunks: %w", err)
	}

	for _, c := range chunks {
		id := c.ID
		if id == uuid.Nil {
			id = uuid.New()
		}

		_, err := tx.Exec(ctx,
			`INSERT INTO document_chunks (id, document_id, owner_id, chunk_index, total_chunks, content, embedding, token_count)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			id, documentID, c.OwnerID, c.ChunkIndex, c.TotalChunks, c.Content, pgvector.NewVector(c.Embedding), c.TokenCount,
		)
		if err != nil {
			return fmt.Errorf("insert chunk %d: %w", c.ChunkIndex, err)
		}
	}

	return tx.Commit(ctx)
}

func (s *PgVectorStore) Search(ctx context.Context, query []float32, opts SearchOptions) ([]SearchResult, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	embedding := pgvector.NewVector(query)

	ownerClause := "owner_id IS NULL"
	args := []any{embedding, opts.MaxResults}
	if opts.OwnerID != nil {
		ownerClause = "owner_id = $3"
		args = append(args, *opts.OwnerID)
	}

	rows, err := s.db.Query(ctx,
		fmt.Sprintf(`SELECT id, document_id, content, chunk_index,
		        1 - (embedding <=> $1) AS score
		 FROM document_chunks
		 WHERE %s
		 ORDER BY embedding <=> $1
		 LIMIT $2`, ownerClause),
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.ChunkID, &r.DocumentID, &r.Content, &r.ChunkIndex, &r.Score); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		if r.Score <= opts.Threshold {
			continue
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

func (s *PgVectorStore) DeleteForDocument(ctx context.Context, documentID uuid.UUID) error {
	_, err := s.db.Exec(ctx, "DELETE FROM document_chunks WHERE document_id = $1", documentID)
	return err
}
