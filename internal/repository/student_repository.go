package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/studyroom-reservation/internal/model"
)

// StudentRepo persists students, unique by (name, class_number).
type StudentRepo struct{ db *sql.DB }

func NewStudentRepo(db *sql.DB) *StudentRepo { return &StudentRepo{db: db} }

// FindStudent looks a student up by exact name and class.
func (r *StudentRepo) FindStudent(ctx context.Context, name, classNumber string) (model.Student, error) {
	var s model.Student
	err := r.db.QueryRowContext(ctx,
		"SELECT id, name, class_number, created_at FROM students WHERE name=? AND class_number=? LIMIT 1",
		name, classNumber).Scan(&s.ID, &s.Name, &s.ClassNumber, dbTime{&s.CreatedAt})
	if errors.Is(err, sql.ErrNoRows) {
		return model.Student{}, ErrNotFound
	}
	return s, err
}

// CreateStudent inserts a student and returns the stored row.
func (r *StudentRepo) CreateStudent(ctx context.Context, name, classNumber string) (model.Student, error) {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO students (name, class_number) VALUES (?, ?)", name, classNumber)
	if err != nil {
		if isDuplicate(err) {
			return model.Student{}, ErrDuplicate
		}
		return model.Student{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Student{}, err
	}
	var s model.Student
	err = r.db.QueryRowContext(ctx,
		"SELECT id, name, class_number, created_at FROM students WHERE id=?", id).
		Scan(&s.ID, &s.Name, &s.ClassNumber, dbTime{&s.CreatedAt})
	return s, err
}
