package repository

import (
	"context"
	"time"

	"pmchat-backend/internal/project/domain"
	"pmchat-backend/pkg/docstore"
)

type docstoreEmployeeRepository struct {
	store docstore.Store
}

// NewEmployeeRepository creates a new document-store backed EmployeeRepository
func NewEmployeeRepository(store docstore.Store) EmployeeRepository {
	return &docstoreEmployeeRepository{store: store}
}

func (r *docstoreEmployeeRepository) NewID() string {
	return r.store.NewID(domain.EmployeeCollection)
}

func (r *docstoreEmployeeRepository) Create(ctx context.Context, employee *domain.Employee) error {
	if employee.Skills == nil {
		employee.Skills = []string{}
	}
	return r.store.Set(ctx, domain.EmployeeCollection, employee.ID, employee)
}

func (r *docstoreEmployeeRepository) FindByID(ctx context.Context, id string) (*domain.Employee, error) {
	snap, err := r.store.Get(ctx, domain.EmployeeCollection, id)
	if err != nil {
		if docstore.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	var e domain.Employee
	if err := snap.DataTo(&e); err != nil {
		return nil, err
	}
	e.ID = snap.ID()
	return &e, nil
}

func (r *docstoreEmployeeRepository) FindAll(ctx context.Context) ([]*domain.Employee, error) {
	snaps, err := r.store.List(ctx, domain.EmployeeCollection)
	if err != nil {
		return nil, err
	}
	employees := make([]*domain.Employee, 0, len(snaps))
	for _, snap := range snaps {
		var e domain.Employee
		if err := snap.DataTo(&e); err != nil {
			return nil, err
		}
		e.ID = snap.ID()
		employees = append(employees, &e)
	}
	return employees, nil
}

func (r *docstoreEmployeeRepository) Update(ctx context.Context, id string, fields map[string]interface{}) error {
	fields["updatedAt"] = time.Now()
	return r.store.Update(ctx, domain.EmployeeCollection, id, fields)
}

func (r *docstoreEmployeeRepository) Delete(ctx context.Context, id string) error {
	return r.store.Delete(ctx, domain.EmployeeCollection, id)
}
