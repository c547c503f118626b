package retrieval

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"

	_ "modernc.org/sqlite"
)

// SQLiteRepository persists records in a local SQLite database. Vectors
// are stored as little-endian float32 BLOBs.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository opens (creating if needed) the database at path.
func NewSQLiteRepository(path string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open embedding database: %w", err)
	}

	repo := &SQLiteRepository{db: db}
	if err := repo.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize embedding schema: %w", err)
	}
	return repo, nil
}

func (r *SQLiteRepository) initSchema() error {
	_, err := r.db.Exec(`
		CREATE TABLE IF NOT EXISTS embeddings (
			id TEXT PRIMARY KEY,
			content TEXT NOT NULL,
			vector BLOB NOT NULL,
			kind TEXT NOT NULL,
			title TEXT,
			slug TEXT,
			parent_ids TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_embeddings_kind ON embeddings(kind);
	`)
	return err
}

// Close closes the underlying database.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

// List loads every persisted record.
func (r *SQLiteRepository) List(ctx context.Context) ([]*Record, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, content, vector, kind, title, slug, parent_ids
		FROM embeddings
	`)
	if err != nil {
		return nil, fmt.Errorf("list embeddings: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func scanRecord(rows *sql.Rows) (*Record, error) {
	var rec Record
	var vecBytes []byte
	var title, slug, parentIDs sql.NullString

	if err := rows.Scan(&rec.ID, &rec.Content, &vecBytes,
		&rec.Metadata.Kind, &title, &slug, &parentIDs); err != nil {
		return nil, fmt.Errorf("scan embedding row: %w", err)
	}

	rec.Vector = decodeVector(vecBytes)
	rec.Metadata.Title = title.String
	rec.Metadata.Slug = slug.String
	if parentIDs.Valid && parentIDs.String != "" {
		if err := json.Unmarshal([]byte(parentIDs.String), &rec.Metadata.ParentIDs); err != nil {
			return nil, fmt.Errorf("parse parent ids for %s: %w", rec.ID, err)
		}
	}
	return &rec, nil
}

// Upsert inserts or fully replaces records by id.
func (r *SQLiteRepository) Upsert(ctx context.Context, records []*Record) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO embeddings (id, content, vector, kind, title, slug, parent_ids)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		parentIDs, _ := json.Marshal(rec.Metadata.ParentIDs)
		_, err := stmt.ExecContext(ctx, rec.ID, rec.Content, encodeVector(rec.Vector),
			string(rec.Metadata.Kind), rec.Metadata.Title, rec.Metadata.Slug, string(parentIDs))
		if err != nil {
			return fmt.Errorf("upsert embedding %s: %w", rec.ID, err)
		}
	}
	return tx.Commit()
}

func encodeVector(vec []float32) []byte {
	buf := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

func decodeVector(buf []byte) []float32 {
	vec := make([]float32, len(buf)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return vec
}
