package booking

import (
	"context"
	"errors"

	"github.com/iliyamo/studyroom-reservation/internal/model"
)

// Registry resolves (name, class) pairs to students, creating them on
// first use.
type Registry struct {
	store Store
}

// NewRegistry returns a Registry backed by store.
func NewRegistry(store Store) *Registry { return &Registry{store: store} }

// Resolve looks the student up by exact match and inserts it when
// missing.  When a concurrent caller wins the insert, the store's unique
// key rejects ours and the winner's row is returned.
func (r *Registry) Resolve(ctx context.Context, name, classNumber string) (model.Student, error) {
	s, err := r.store.FindStudent(ctx, name, classNumber)
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return model.Student{}, storageError("find student", err)
	}

	s, err = r.store.CreateStudent(ctx, name, classNumber)
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, ErrDuplicate) {
		return model.Student{}, storageError("create student", err)
	}
	s, err = r.store.FindStudent(ctx, name, classNumber)
	if err != nil {
		return model.Student{}, storageError("re-read student", err)
	}
	return s, nil
}
