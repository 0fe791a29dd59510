package usecase

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"pmchat-backend/internal/project/domain"
	"pmchat-backend/internal/project/repository"
	taskdomain "pmchat-backend/internal/task/domain"
	"pmchat-backend/pkg/apperror"
	"pmchat-backend/pkg/docstore"
)

type employeeUsecase struct {
	employeeRepo repository.EmployeeRepository
}

func NewEmployeeUsecase(employeeRepo repository.EmployeeRepository) EmployeeUsecase {
	return &employeeUsecase{employeeRepo: employeeRepo}
}

func (u *employeeUsecase) CreateEmployee(ctx context.Context, req CreateEmployeeRequest) (*domain.Employee, error) {
	const op = "employee.Create"
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperror.Validation(op, "name is required")
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return nil, apperror.Validation(op, "invalid email %q", req.Email)
	}
	if !taskdomain.ValidRole(taskdomain.Role(req.Role)) {
		return nil, apperror.Validation(op, "invalid role %q", req.Role)
	}

	now := time.Now()
	employee := &domain.Employee{
		ID:        u.employeeRepo.NewID(),
		Name:      name,
		Email:     req.Email,
		Role:      req.Role,
		Skills:    req.Skills,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := u.employeeRepo.Create(ctx, employee); err != nil {
		return nil, apperror.Store(op, err)
	}
	return employee, nil
}

func (u *employeeUsecase) GetEmployee(ctx context.Context, id string) (*domain.Employee, error) {
	const op = "employee.Get"
	employee, err := u.employeeRepo.FindByID(ctx, id)
	if err != nil {
		return nil, apperror.Store(op, err)
	}
	if employee == nil {
		return nil, apperror.NotFound(op, "employee %s not found", id)
	}
	return employee, nil
}

func (u *employeeUsecase) ListEmployees(ctx context.Context) ([]*domain.Employee, error) {
	employees, err := u.employeeRepo.FindAll(ctx)
	if err != nil {
		return nil, apperror.Store("employee.List", err)
	}
	return employees, nil
}

func (u *employeeUsecase) UpdateEmployee(ctx context.Context, id string, req EmployeeUpdateRequest) (*domain.Employee, error) {
	const op = "employee.Update"
	fields := make(map[string]interface{})
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, apperror.Validation(op, "name cannot be empty")
		}
		fields["name"] = name
	}
	if req.Email != nil {
		if _, err := mail.ParseAddress(*req.Email); err != nil {
			return nil, apperror.Validation(op, "invalid email %q", *req.Email)
		}
		fields["email"] = *req.Email
	}
	if req.Role != nil {
		if !taskdomain.ValidRole(taskdomain.Role(*req.Role)) {
			return nil, apperror.Validation(op, "invalid role %q", *req.Role)
		}
		fields["role"] = *req.Role
	}
	if req.Skills != nil {
		skills := *req.Skills
		if skills == nil {
			skills = []string{}
		}
		fields["skills"] = skills
	}
	if len(fields) == 0 {
		return u.GetEmployee(ctx, id)
	}

	if err := u.employeeRepo.Update(ctx, id, fields); err != nil {
		if docstore.IsNotFound(err) {
			return nil, apperror.NotFound(op, "employee %s not found", id)
		}
		return nil, apperror.Store(op, err)
	}
	return u.GetEmployee(ctx, id)
}

func (u *employeeUsecase) DeleteEmployee(ctx context.Context, id string) error {
	if _, err := u.GetEmployee(ctx, id); err != nil {
		return err
	}
	return apperror.Store("employee.Delete", u.employeeRepo.Delete(ctx, id))
}
