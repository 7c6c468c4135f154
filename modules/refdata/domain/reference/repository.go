package reference

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("reference not found")

type Filter struct {
	Status string
	Kind   string
	Limit  int
}

type Repository interface {
	Create(ctx context.Context, r *Reference) (*Reference, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Reference, error)
	GetByName(ctx context.Context, name string) (*Reference, error)
	List(ctx context.Context, f Filter) ([]*Reference, error)
	Update(ctx context.Context, r *Reference) (*Reference, error)

	// SetBaseline atomically points the reference at its newly approved
	// change and activates it. Callers run it in the same transaction as
	// the change request decision stamp.
	SetBaseline(ctx context.Context, id uuid.UUID, changeID uuid.UUID) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
}
