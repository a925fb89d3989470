// Package pgvector stores chunk vectors in Postgres with the pgvector
// extension, using bun for query building. Filters translate into WHERE
// clauses and similarity into the cosine distance operator.
package pgvector

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"docqa/internal/models"
	"docqa/internal/vectorstore"
)

type Config struct {
	URL   string
	Key   string
	Debug bool
}

type Store struct {
	db *bun.DB
}

type chunkRow struct {
	bun.BaseModel `bun:"table:documents,alias:d"`
	ID            string    `bun:"id,pk,type:uuid"`
	Text          string    `bun:"text,notnull"`
	DocName       string    `bun:"doc_name,notnull"`
	DocType       string    `bun:"doc_type,notnull"`
	Page          string    `bun:"page,notnull"`
	ChunkIndex    int       `bun:"chunk_index,notnull"`
	UploadedAt    time.Time `bun:"uploaded_at,notnull"`
	Embedding     string    `bun:"embedding"`
	Score         float32   `bun:"score,scanonly"`
}

func Connect(cfg Config) *Store {
	dsn := cfg.URL + "?sslmode=disable"
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn), pgdriver.WithPassword(cfg.Key)))
	db := bun.NewDB(sqldb, pgdialect.New())
	if cfg.Debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return &Store{db: db}
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Ensure(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("%w: invalid vector dimension %d", models.ErrConfiguration, dimension)
	}
	if _, err := s.db.ExecContext(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("%w: create vector extension: %v", models.ErrIndexTransport, err)
	}
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS documents (
		id uuid PRIMARY KEY,
		text text NOT NULL,
		doc_name text NOT NULL,
		doc_type text NOT NULL,
		page text NOT NULL,
		chunk_index int NOT NULL,
		uploaded_at timestamptz NOT NULL,
		embedding vector(%d) NOT NULL
	)`, dimension)
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("%w: create documents table: %v", models.ErrIndexTransport, err)
	}
	// atttypmod carries the declared dimension for vector columns.
	var typmod int
	err := s.db.QueryRowContext(ctx,
		"SELECT atttypmod FROM pg_attribute WHERE attrelid = 'documents'::regclass AND attname = 'embedding'",
	).Scan(&typmod)
	if err != nil {
		return fmt.Errorf("%w: inspect embedding column: %v", models.ErrIndexTransport, err)
	}
	if typmod != dimension {
		return fmt.Errorf("%w: documents table has vector dimension %d, embedder produces %d",
			models.ErrConfiguration, typmod, dimension)
	}
	return nil
}

func (s *Store) Upsert(ctx context.Context, points []vectorstore.Point) error {
	if len(points) == 0 {
		return nil
	}
	rows := make([]chunkRow, len(points))
	for i, p := range points {
		rows[i] = chunkRow{
			ID:         p.ID,
			Text:       p.Text,
			DocName:    p.Meta.DocName,
			DocType:    p.Meta.DocType,
			Page:       p.Meta.Page,
			ChunkIndex: p.Meta.ChunkIndex,
			UploadedAt: p.Meta.UploadedAt,
			Embedding:  vectorLiteral(p.Vector),
		}
	}
	_, err := s.db.NewInsert().
		Model(&rows).
		On("CONFLICT (id) DO UPDATE").
		Set("text = EXCLUDED.text").
		Set("doc_name = EXCLUDED.doc_name").
		Set("doc_type = EXCLUDED.doc_type").
		Set("page = EXCLUDED.page").
		Set("chunk_index = EXCLUDED.chunk_index").
		Set("uploaded_at = EXCLUDED.uploaded_at").
		Set("embedding = EXCLUDED.embedding").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("%w: insert chunks: %v", models.ErrIndexTransport, err)
	}
	return nil
}

func (s *Store) Search(ctx context.Context, vector []float32, limit int, scoreThreshold float32, filter *vectorstore.Filter) ([]vectorstore.ScoredPoint, error) {
	if limit <= 0 {
		limit = models.DefaultTopK
	}
	ok, err := s.tableExists(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	lit := vectorLiteral(vector)
	var rows []chunkRow
	q := s.db.NewSelect().
		Model(&rows).
		ColumnExpr("d.id, d.text, d.doc_name, d.doc_type, d.page, d.chunk_index, d.uploaded_at").
		ColumnExpr("1 - (d.embedding <=> ?::vector) AS score", lit).
		Where("1 - (d.embedding <=> ?::vector) >= ?", lit, scoreThreshold).
		OrderExpr("d.embedding <=> ?::vector", lit).
		Limit(limit)
	q = applyFilter(q, filter)
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("%w: search chunks: %v", models.ErrIndexTransport, err)
	}
	hits := make([]vectorstore.ScoredPoint, len(rows))
	for i, r := range rows {
		hits[i] = vectorstore.ScoredPoint{
			ID:   r.ID,
			Text: r.Text,
			Meta: vectorstore.Metadata{
				DocName:    r.DocName,
				DocType:    r.DocType,
				Page:       r.Page,
				ChunkIndex: r.ChunkIndex,
				UploadedAt: r.UploadedAt,
			},
			Score: r.Score,
		}
	}
	return hits, nil
}

func (s *Store) DistinctValues(ctx context.Context, field string) ([]string, error) {
	col, ok := columnFor(field)
	if !ok {
		return nil, fmt.Errorf("%w: unknown metadata field %q", models.ErrConfiguration, field)
	}
	exists, err := s.tableExists(ctx)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil
	}
	var values []string
	err = s.db.NewSelect().
		Model((*chunkRow)(nil)).
		ColumnExpr("DISTINCT d.?", bun.Ident(col)).
		Scan(ctx, &values)
	if err != nil {
		return nil, fmt.Errorf("%w: list distinct %s: %v", models.ErrIndexTransport, col, err)
	}
	return values, nil
}

func (s *Store) Drop(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DROP TABLE IF EXISTS documents"); err != nil {
		return fmt.Errorf("%w: drop documents table: %v", models.ErrIndexTransport, err)
	}
	return nil
}

func (s *Store) tableExists(ctx context.Context) (bool, error) {
	var reg sql.NullString
	if err := s.db.QueryRowContext(ctx, "SELECT to_regclass('documents')").Scan(&reg); err != nil {
		return false, fmt.Errorf("%w: check documents table: %v", models.ErrIndexTransport, err)
	}
	return reg.Valid, nil
}

func applyFilter(q *bun.SelectQuery, filter *vectorstore.Filter) *bun.SelectQuery {
	if filter == nil {
		return q
	}
	for _, c := range filter.Must {
		if c.Range != nil {
			if c.Range.GTE != nil {
				q = q.Where("d.uploaded_at >= ?", *c.Range.GTE)
			}
			if c.Range.LTE != nil {
				q = q.Where("d.uploaded_at <= ?", *c.Range.LTE)
			}
			continue
		}
		if col, ok := columnFor(c.Key); ok {
			q = q.Where("d.? = ?", bun.Ident(col), c.Match)
		}
	}
	for _, c := range filter.MustNot {
		if col, ok := columnFor(c.Key); ok {
			q = q.Where("d.? <> ?", bun.Ident(col), c.Match)
		}
	}
	return q
}

func columnFor(field string) (string, bool) {
	switch field {
	case vectorstore.FieldDocName, vectorstore.FieldDocType, vectorstore.FieldPage,
		vectorstore.FieldChunkIndex, vectorstore.FieldUploadedAt:
		return field, true
	}
	return "", false
}

func vectorLiteral(vector []float32) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, v := range vector {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(v), 'f', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}
