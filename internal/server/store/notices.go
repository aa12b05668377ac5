package store

import (
	"context"
	"fmt"

	"github.com/ioehub/campus-attendance/internal/dbx"
	"github.com/ioehub/campus-attendance/internal/server/models"
)

// NoticeRepository implements notice storage over a dbx.DBTX.
type NoticeRepository struct {
	db dbx.DBTX
}

func NewNoticeRepository(db dbx.DBTX) *NoticeRepository {
	return &NoticeRepository{db: db}
}

// Create inserts a notice and returns its id.
func (r *NoticeRepository) Create(ctx context.Context, notice *models.Notice) (int64, error) {
	query := `
		INSERT INTO notices (title, body, department, year)
		VALUES ($1, $2, $3, $4)
		RETURNING id;
	`
	var id int64
	err := r.db.QueryRowContext(ctx, query,
		notice.Title, notice.Body, notice.Department, notice.Year).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert notice: %w", err)
	}
	return id, nil
}

// List returns the notices for a department, newest first. Year 0 matches
// department-wide notices only; a concrete year additionally includes the
// notices targeted at it.
func (r *NoticeRepository) List(ctx context.Context, department string, year int) ([]models.Notice, error) {
	query := `
		SELECT id, title, body, department, year, created_at
		FROM notices
		WHERE department = $1 AND (year = 0 OR year = $2)
		ORDER BY created_at DESC, id DESC;
	`
	rows, err := r.db.QueryContext(ctx, query, department, year)
	if err != nil {
		return nil, fmt.Errorf("failed to select notices: %w", err)
	}
	defer rows.Close()

	var result []models.Notice
	for rows.Next() {
		var item models.Notice
		if err := rows.Scan(
			&item.ID, &item.Title, &item.Body, &item.Department, &item.Year, &item.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
