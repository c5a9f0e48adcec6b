package commitstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"certledger/internal/commitment"
	"certledger/pkg/platform/sentinel"
)

// PostgresStore persists commitment entries in PostgreSQL via database/sql
// (pgx driver).
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore wraps an open database handle.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the commitment_entries table when missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS commitment_entries (
    certificate_id  TEXT PRIMARY KEY,
    subject_id      TEXT NOT NULL,
    subject_name    TEXT NOT NULL,
    salt            BYTEA NOT NULL,
    commitment_hash TEXT NOT NULL,
    expires_at      TIMESTAMPTZ,
    tx_id           TEXT NOT NULL,
    block_seq       BIGINT NOT NULL,
    saved_at        TIMESTAMPTZ NOT NULL DEFAULT now()
)`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("ensure commitment_entries schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Save(ctx context.Context, entry Entry) error {
	if entry.SavedAt.IsZero() {
		entry.SavedAt = time.Now().UTC()
	}
	var expiresAt sql.NullTime
	if !entry.ExpiresAt.IsZero() {
		expiresAt = sql.NullTime{Time: entry.ExpiresAt, Valid: true}
	}
	const q = `
INSERT INTO commitment_entries
    (certificate_id, subject_id, subject_name, salt, commitment_hash, expires_at, tx_id, block_seq, saved_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (certificate_id) DO NOTHING`
	result, err := s.db.ExecContext(ctx, q,
		entry.CertificateID,
		entry.SubjectID,
		entry.SubjectName,
		entry.Salt,
		entry.CommitmentHash.String(),
		expiresAt,
		entry.TxID,
		entry.BlockSeq,
		entry.SavedAt,
	)
	if err != nil {
		return fmt.Errorf("save commitment entry: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("save commitment entry: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrConflict
	}
	return nil
}

func (s *PostgresStore) LoadAll(ctx context.Context) ([]Entry, error) {
	const q = `
SELECT certificate_id, subject_id, subject_name, salt, commitment_hash, expires_at, tx_id, block_seq, saved_at
FROM commitment_entries
ORDER BY saved_at`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("load commitment entries: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		entry, err := scanEntry(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load commitment entries: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) FindByID(ctx context.Context, certificateID string) (Entry, error) {
	const q = `
SELECT certificate_id, subject_id, subject_name, salt, commitment_hash, expires_at, tx_id, block_seq, saved_at
FROM commitment_entries
WHERE certificate_id = $1`
	row := s.db.QueryRowContext(ctx, q, certificateID)
	entry, err := scanEntry(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, sentinel.ErrNotFound
		}
		return Entry{}, err
	}
	return entry, nil
}

func scanEntry(scan func(dest ...any) error) (Entry, error) {
	var (
		entry     Entry
		hashText  string
		expiresAt sql.NullTime
	)
	err := scan(
		&entry.CertificateID,
		&entry.SubjectID,
		&entry.SubjectName,
		&entry.Salt,
		&hashText,
		&expiresAt,
		&entry.TxID,
		&entry.BlockSeq,
		&entry.SavedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, err
		}
		return Entry{}, fmt.Errorf("scan commitment entry: %w", err)
	}
	hash, err := commitment.ParseHash(hashText)
	if err != nil {
		return Entry{}, fmt.Errorf("scan commitment entry: %w", err)
	}
	entry.CommitmentHash = hash
	if expiresAt.Valid {
		entry.ExpiresAt = expiresAt.Time
	}
	return entry, nil
}
