package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ioehub/campus-attendance/internal/dbx"
	"github.com/ioehub/campus-attendance/internal/server/models"
)

// ErrStudentNotFound is returned when an operation targets a student id that
// does not exist.
var ErrStudentNotFound = errors.New("student not found")

// barDepartment follows a five-year course; every other department runs four.
const (
	barDepartment      = "BAR"
	barCourseYears     = 5
	defaultCourseYears = 4
)

// StudentRepository implements roster storage over a dbx.DBTX.
type StudentRepository struct {
	db dbx.DBTX
}

func NewStudentRepository(db dbx.DBTX) *StudentRepository {
	return &StudentRepository{db: db}
}

// Create inserts a new student with no embeddings yet and returns its id.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) (int64, error) {
	query := `
		INSERT INTO students (name, department, admission_year, embeddings)
		VALUES ($1, $2, $3, '[]')
		RETURNING id;
	`
	var id int64
	err := r.db.QueryRowContext(ctx, query,
		student.Name, student.Department, student.AdmissionYear).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert student: %w", err)
	}
	return id, nil
}

// AppendEmbedding adds one face embedding to the student and bumps
// last_updated so devices pick the change up on their next pull.
func (r *StudentRepository) AppendEmbedding(ctx context.Context, id int64, embedding []float64) error {
	encoded, err := models.EncodeEmbeddings([][]float64{embedding})
	if err != nil {
		return err
	}

	query := `
		UPDATE students
		SET embeddings = embeddings || $2::jsonb, last_updated = now()
		WHERE id = $1;
	`
	res, err := r.db.ExecContext(ctx, query, id, encoded)
	if err != nil {
		return fmt.Errorf("failed to append embedding: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return ErrStudentNotFound
	}
	return nil
}

// UpdatedSince returns every student whose roster data or embeddings changed
// after the given time. A zero since returns the full roster.
func (r *StudentRepository) UpdatedSince(ctx context.Context, since time.Time) ([]models.Student, error) {
	query := `
		SELECT id, name, department, admission_year, embeddings, last_updated
		FROM students
		WHERE last_updated > $1
		ORDER BY id;
	`
	rows, err := r.db.QueryContext(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("failed to select students: %w", err)
	}
	defer rows.Close()

	var result []models.Student
	for rows.Next() {
		var item models.Student
		var encoded []byte
		if err := rows.Scan(
			&item.ID, &item.Name, &item.Department, &item.AdmissionYear,
			&encoded, &item.LastUpdated,
		); err != nil {
			return nil, err
		}
		embeddings, err := models.DecodeEmbeddings(encoded)
		if err != nil {
			return nil, fmt.Errorf("student %d: %w", item.ID, err)
		}
		item.Embeddings = embeddings
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// DeleteGraduated removes every student whose course has run its full
// duration by currentYear. Attendance rows follow via the cascade.
func (r *StudentRepository) DeleteGraduated(ctx context.Context, currentYear int) (int64, error) {
	query := `
		DELETE FROM students
		WHERE $1 >= admission_year + CASE WHEN department = $2 THEN $3 ELSE $4 END;
	`
	res, err := r.db.ExecContext(ctx, query,
		currentYear, barDepartment, barCourseYears, defaultCourseYears)
	if err != nil {
		return 0, fmt.Errorf("failed to delete graduated students: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected error: %w", err)
	}
	return n, nil
}
