package store

import (
	"context"
	"fmt"

	"github.com/ioehub/campus-attendance/internal/dbx"
	"github.com/ioehub/campus-attendance/internal/device/models"
)

// RosterRepository persists the cached roster of identities.
type RosterRepository struct {
	db dbx.DBTX
}

func NewRosterRepository(db dbx.DBTX) *RosterRepository {
	return &RosterRepository{db: db}
}

// UpsertIdentities applies pulled roster changes with replace-by-id
// semantics. An identity seen twice overwrites itself rather than
// duplicating a row.
func (r *RosterRepository) UpsertIdentities(ctx context.Context, identities []models.Identity) error {
	query := `
		INSERT INTO identities (id, name, embeddings) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, embeddings = excluded.embeddings
	`
	for _, identity := range identities {
		embeddings, err := models.EncodeEmbeddings(identity.Embeddings)
		if err != nil {
			return fmt.Errorf("identity %d: %w", identity.ID, err)
		}
		if _, err := r.db.ExecContext(ctx, query, identity.ID, identity.Name, embeddings); err != nil {
			return fmt.Errorf("failed to upsert identity %d: %w", identity.ID, err)
		}
	}
	return nil
}

// All returns every cached identity. Rows with malformed embeddings are
// returned with an empty embedding set rather than failing the whole load;
// such an identity simply cannot be matched.
func (r *RosterRepository) All(ctx context.Context) ([]models.Identity, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, embeddings FROM identities ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to select identities: %w", err)
	}
	defer rows.Close()

	var result []models.Identity
	for rows.Next() {
		var item models.Identity
		var raw string
		if err := rows.Scan(&item.ID, &item.Name, &raw); err != nil {
			return nil, err
		}
		embeddings, err := models.DecodeEmbeddings(raw)
		if err != nil {
			embeddings = nil
		}
		item.Embeddings = embeddings
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
