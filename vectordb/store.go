// Package vectordb persists paragraph embeddings and whole-section text in a
// sqlite-vec backed store and supports nearest-neighbor search over purpose
// paragraphs.
package vectordb

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"sort"

	"github.com/viant/sqlite-vec/engine"
	"github.com/viant/sqlite-vec/vec"
	"github.com/viant/sqlite-vec/vector"

	"policyaudit/db/sqliteutil"
	"policyaudit/embeddings"
	"policyaudit/schema"
)

const (
	// ParagraphTable is the vec virtual table over purpose paragraph vectors.
	ParagraphTable = "policy_purpose"
	// SectionTable holds whole-section policy/procedure text.
	SectionTable = "policy_procedure"

	paragraphShadow = "_vec_" + ParagraphTable
	defaultDataset  = "policy"
	defaultBatch    = 64
	busyTimeoutMS   = 5000
)

// Match is one ranked search hit: a paragraph record with its similarity
// score, higher is better.
type Match struct {
	schema.ParagraphRecord
	Score float32 `json:"score"`
}

// Store is the sqlite-vec backed paragraph/section store.
type Store struct {
	db            *sql.DB
	dsn           string
	embedBatch    int
	ensureSchema  bool
	openedLocally bool
}

// Option configures the store.
type Option func(*Store)

// WithDB sets an existing *sql.DB to use.
func WithDB(db *sql.DB) Option {
	return func(s *Store) { s.db = db }
}

// WithDSN sets the SQLite DSN to open (e.g. /path/to/db.sqlite).
func WithDSN(dsn string) Option {
	return func(s *Store) { s.dsn = dsn }
}

// WithEmbedBatchSize sets the embedding batch size for AddParagraphs.
func WithEmbedBatchSize(size int) Option {
	return func(s *Store) {
		if size > 0 {
			s.embedBatch = size
		}
	}
}

// WithEnsureSchema controls whether tables are created automatically.
func WithEnsureSchema(enabled bool) Option {
	return func(s *Store) { s.ensureSchema = enabled }
}

// NewStore opens and initializes the store.
func NewStore(opts ...Option) (*Store, error) {
	s := &Store{embedBatch: defaultBatch, ensureSchema: true}
	for _, opt := range opts {
		opt(s)
	}
	if s.db == nil {
		if s.dsn == "" {
			return nil, fmt.Errorf("vectordb: dsn required")
		}
		db, err := engine.Open(sqliteutil.EnsurePragmas(s.dsn, busyTimeoutMS))
		if err != nil {
			return nil, err
		}
		s.db = db
		s.db.SetMaxOpenConns(4)
		s.db.SetMaxIdleConns(4)
		s.openedLocally = true
	}
	if err := vec.Register(s.db); err != nil {
		return nil, err
	}
	if s.ensureSchema {
		if err := s.ensureSchemaDDL(context.Background()); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Close closes the underlying DB if the store opened it.
func (s *Store) Close() error {
	if s.openedLocally && s.db != nil {
		return s.db.Close()
	}
	return nil
}

// DB exposes the underlying sql.DB.
func (s *Store) DB() *sql.DB { return s.db }

// AddParagraphs embeds and inserts paragraph records. Vectors are computed in
// batches with the given embedder; input order is preserved and ids are
// derived from (file_name, section, paragraph_id).
func (s *Store) AddParagraphs(ctx context.Context, records []schema.ParagraphRecord, embedder embeddings.Embedder) ([]string, error) {
	if len(records) == 0 {
		return nil, nil
	}
	if embedder == nil {
		return nil, fmt.Errorf("vectordb: embedder is required")
	}
	vecs, err := s.embedRecords(ctx, embedder, records)
	if err != nil {
		return nil, err
	}
	stmt, err := s.db.PrepareContext(ctx, fmt.Sprintf(`INSERT INTO %s(dataset_id, id, file_name, section, paragraph_id, content, embedding, archived)
VALUES(?,?,?,?,?,?,?,0)
ON CONFLICT(dataset_id, id) DO UPDATE SET
	content=excluded.content,
	embedding=excluded.embedding,
	archived=0`, paragraphShadow))
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	ids := make([]string, len(records))
	for i, r := range records {
		id := paragraphID(r)
		ids[i] = id
		blob, err := vector.EncodeEmbedding(vecs[i])
		if err != nil {
			return nil, err
		}
		if _, err := stmt.ExecContext(ctx, defaultDataset, id, r.FileName, r.Section, r.ParagraphID, r.Content, blob); err != nil {
			return nil, err
		}
	}
	return ids, nil
}

// AddSections inserts whole-section text records.
func (s *Store) AddSections(ctx context.Context, records []schema.SectionRecord) error {
	stmt, err := s.db.PrepareContext(ctx,
		`INSERT INTO `+SectionTable+`(file_name, section, content) VALUES(?,?,?)
ON CONFLICT(file_name, section) DO UPDATE SET content=excluded.content`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range records {
		if _, err := stmt.ExecContext(ctx, r.FileName, r.Section, r.Content); err != nil {
			return err
		}
	}
	return nil
}

// SearchPurpose returns the topK most similar purpose paragraphs, best-first.
// When the vec MATCH path is unavailable it degrades to a linear cosine scan
// over the shadow table.
func (s *Store) SearchPurpose(ctx context.Context, queryVec []float32, topK int) ([]Match, error) {
	if topK <= 0 {
		topK = 3
	}
	blob, err := vector.EncodeEmbedding(queryVec)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`SELECT d.file_name, d.section, d.paragraph_id, d.content, v.match_score
FROM %s v
JOIN %s d ON d.dataset_id = v.dataset_id AND d.id = v.doc_id
WHERE v.dataset_id = ?
  AND v.doc_id MATCH ?
  AND d.archived = 0
  AND d.section = ?
ORDER BY v.match_score DESC, d.file_name
LIMIT ?`, ParagraphTable, paragraphShadow)

	out, err := s.matchSearch(ctx, query, blob, topK)
	if err != nil || len(out) == 0 {
		// vec module unavailable, MATCH unsupported on this build, or the
		// virtual table is not populated; the scan reads the shadow directly.
		return s.scanSearch(ctx, queryVec, topK)
	}
	return out, nil
}

func (s *Store) matchSearch(ctx context.Context, query string, blob []byte, topK int) ([]Match, error) {
	rows, err := s.db.QueryContext(ctx, query, defaultDataset, blob, schema.SectionPurpose, topK)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Match
	for rows.Next() {
		var m Match
		if err := rows.Scan(&m.FileName, &m.Section, &m.ParagraphID, &m.Content, &m.Score); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// scanSearch is the fallback nearest-neighbor path: decode every stored
// purpose embedding and rank by cosine similarity in process.
func (s *Store) scanSearch(ctx context.Context, queryVec []float32, topK int) ([]Match, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(
		`SELECT file_name, section, paragraph_id, content, embedding FROM %s
WHERE dataset_id = ? AND archived = 0 AND section = ?`, paragraphShadow),
		defaultDataset, schema.SectionPurpose)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hits []Match
	for rows.Next() {
		var m Match
		var emb []byte
		if err := rows.Scan(&m.FileName, &m.Section, &m.ParagraphID, &m.Content, &emb); err != nil {
			return nil, err
		}
		stored, err := vector.DecodeEmbedding(emb)
		if err != nil {
			continue
		}
		m.Score = cosine(queryVec, stored)
		hits = append(hits, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].FileName < hits[j].FileName
	})
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

// SectionsByFile fetches the whole-section records stored for a document.
func (s *Store) SectionsByFile(ctx context.Context, fileName string) ([]schema.SectionRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT file_name, section, content FROM `+SectionTable+` WHERE file_name = ? ORDER BY section`, fileName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []schema.SectionRecord
	for rows.Next() {
		var r schema.SectionRecord
		if err := rows.Scan(&r.FileName, &r.Section, &r.Content); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Count returns the number of live rows in the named table.
func (s *Store) Count(ctx context.Context, table string) (int, error) {
	var query string
	switch table {
	case ParagraphTable:
		query = `SELECT COUNT(*) FROM ` + paragraphShadow + ` WHERE archived = 0`
	case SectionTable:
		query = `SELECT COUNT(*) FROM ` + SectionTable
	default:
		return 0, fmt.Errorf("vectordb: unknown table %q", table)
	}
	var n int
	if err := s.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// Clear deletes all rows from the named table.
func (s *Store) Clear(ctx context.Context, table string) error {
	switch table {
	case ParagraphTable:
		_, err := s.db.ExecContext(ctx, `DELETE FROM `+paragraphShadow)
		return err
	case SectionTable:
		_, err := s.db.ExecContext(ctx, `DELETE FROM `+SectionTable)
		return err
	default:
		return fmt.Errorf("vectordb: unknown table %q", table)
	}
}

func (s *Store) ensureSchemaDDL(ctx context.Context) error {
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			dataset_id   TEXT NOT NULL,
			id           TEXT NOT NULL,
			file_name    TEXT NOT NULL,
			section      TEXT NOT NULL,
			paragraph_id INTEGER NOT NULL,
			content      TEXT,
			embedding    BLOB,
			archived     INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (dataset_id, id)
		);`, paragraphShadow),
		fmt.Sprintf(`CREATE VIRTUAL TABLE IF NOT EXISTS %s USING vec(doc_id);`, ParagraphTable),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_section ON %s(dataset_id, section);`, ParagraphTable, paragraphShadow),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			file_name TEXT NOT NULL,
			section   TEXT NOT NULL,
			content   TEXT,
			PRIMARY KEY (file_name, section)
		);`, SectionTable),
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) embedRecords(ctx context.Context, embedder embeddings.Embedder, records []schema.ParagraphRecord) ([][]float32, error) {
	batchSize := s.embedBatch
	if batchSize <= 0 {
		batchSize = defaultBatch
	}
	out := make([][]float32, 0, len(records))
	for i := 0; i < len(records); i += batchSize {
		end := i + batchSize
		if end > len(records) {
			end = len(records)
		}
		batch := records[i:end]
		texts := make([]string, len(batch))
		for j := range batch {
			texts[j] = batch[j].Content
		}
		vecs, err := embedder.EmbedDocuments(ctx, texts)
		if err != nil {
			return nil, err
		}
		if len(vecs) != len(texts) {
			return nil, fmt.Errorf("embedder returned %d vectors for %d paragraphs", len(vecs), len(texts))
		}
		out = append(out, vecs...)
	}
	return out, nil
}

func paragraphID(r schema.ParagraphRecord) string {
	return fmt.Sprintf("%s#%s#%d", r.FileName, r.Section, r.ParagraphID)
}

func cosine(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
