package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/longtq2501/Tutor-Pro-sub000/internal/models"
)

// StudentRepository reads the student directory. Students are owned by another
// service; this side never writes them.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// GetByID returns a student or sql.ErrNoRows.
func (r *StudentRepository) GetByID(ctx context.Context, id string) (*models.Student, error) {
	const query = `SELECT id, name, price_per_hour, active, created_at, updated_at FROM students WHERE id = $1`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// ExistsByID reports whether a student exists.
func (r *StudentRepository) ExistsByID(ctx context.Context, id string) (bool, error) {
	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM students WHERE id = $1)`, id); err != nil {
		return false, fmt.Errorf("check student exists: %w", err)
	}
	return exists, nil
}

// FindActive returns active students ordered by name.
func (r *StudentRepository) FindActive(ctx context.Context) ([]models.Student, error) {
	const query = `SELECT id, name, price_per_hour, active, created_at, updated_at FROM students WHERE active = TRUE ORDER BY name`
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query); err != nil {
		return nil, fmt.Errorf("list active students: %w", err)
	}
	return students, nil
}
