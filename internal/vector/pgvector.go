package vector

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"github.com/alan-mat/askdoc/internal/api"
)

// PgStore keeps documents in postgres with one pgvector column per
// row. Ranking uses the cosine distance operator so results come back
// nearest-first straight from the database.
type PgStore struct {
	pool *pgxpool.Pool
}

func NewPgStore(ctx context.Context, dsn string) (*PgStore, error) {
	conf, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}

	conf.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, conf)
	if err != nil {
		return nil, err
	}

	return &PgStore{pool: pool}, nil
}

func (s *PgStore) CollectionExists(ctx context.Context, collectionName string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, "SELECT to_regclass($1) IS NOT NULL", collectionName).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

func (s *PgStore) CreateCollection(ctx context.Context, collection Collection) error {
	if _, err := s.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return err
	}

	stmt := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id uuid PRIMARY KEY,
			title text NOT NULL,
			content text NOT NULL,
			embedding vector(%d) NOT NULL
		)
	`, pgx.Identifier{collection.Name}.Sanitize(), collection.Dimensions)

	_, err := s.pool.Exec(ctx, stmt)
	return err
}

func (s *PgStore) Upsert(ctx context.Context, collectionName string, records []*Record) error {
	stmt := fmt.Sprintf(`
		INSERT INTO %s (id, title, content, embedding)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET title = EXCLUDED.title, content = EXCLUDED.content, embedding = EXCLUDED.embedding
	`, pgx.Identifier{collectionName}.Sanitize())

	for _, r := range records {
		vec := pgvector.NewVector(r.Embedding)
		if _, err := s.pool.Exec(ctx, stmt, r.ID, r.Title, r.Content, vec); err != nil {
			return fmt.Errorf("failed to upsert record '%s': %w", r.ID, err)
		}
	}

	return nil
}

func (s *PgStore) Query(ctx context.Context, params *QueryParams) ([]*api.Document, error) {
	stmt := fmt.Sprintf(`
		SELECT id, title, content, embedding <=> $1 AS distance
		FROM %s
		ORDER BY embedding <=> $1
		LIMIT $2
	`, pgx.Identifier{params.collection}.Sanitize())

	limit := params.limit
	if limit == 0 {
		limit = 10
	}

	vec := pgvector.NewVector(params.query)
	rows, err := s.pool.Query(ctx, stmt, vec, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*api.Document
	for rows.Next() {
		var d api.Document
		if err := rows.Scan(&d.ID, &d.Title, &d.Content, &d.Score); err != nil {
			return nil, err
		}
		docs = append(docs, &d)
	}

	return docs, rows.Err()
}

func (s *PgStore) Close() error {
	s.pool.Close()
	return nil
}
