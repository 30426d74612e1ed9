package announcements

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store persists the singleton announcement document as a JSONB column on
// a fixed-id row.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Load fetches the document. A missing row is not an error: it returns
// (nil, nil) and the banner fails closed.
func (s *Store) Load(ctx context.Context) (*Document, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `
		SELECT doc FROM announcement_settings WHERE id = 1
	`).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load announcement: %w", err)
	}

	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode announcement: %w", err)
	}
	return &doc, nil
}

// Save upserts the document. The first admin save creates the row; every
// later save replaces it in place.
func (s *Store) Save(ctx context.Context, doc *Document, updatedBy uuid.UUID) error {
	if err := doc.Validate(); err != nil {
		return err
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode announcement: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO announcement_settings (id, doc, updated_by, updated_at)
		VALUES (1, $1, $2, NOW())
		ON CONFLICT (id) DO UPDATE
		SET doc = EXCLUDED.doc, updated_by = EXCLUDED.updated_by, updated_at = NOW()
	`, raw, updatedBy)
	if err != nil {
		return fmt.Errorf("failed to save announcement: %w", err)
	}

	return nil
}
