package department

import (
	"context"

	"github.com/google/uuid"

	"github.com/statbureau/datahub/core"
)

var ErrNotFound = core.NewNotFoundError("department")

type (
	Repository interface {
		CreateDepartment(ctx context.Context, dept Department, exec ...core.DBExecutor) (Department, error)
		UpdateDepartment(ctx context.Context, dept Department, exec ...core.DBExecutor) (Department, error)
		GetDepartment(ctx context.Context, id string, exec ...core.DBExecutor) (Department, error)
		// QueryDepartments returns departments ordered by name.
		QueryDepartments(ctx context.Context, filter QueryFilter, exec ...core.DBExecutor) ([]Department, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(ctx context.Context, nd NewDepartment) (Department, error) {
	now := core.Now()
	return svc.repo.CreateDepartment(ctx, Department{
		ID:          uuid.NewString(),
		Name:        nd.Name,
		Description: nd.Description,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}

func (svc *Service) Get(ctx context.Context, id string) (Department, error) {
	return svc.repo.GetDepartment(ctx, id)
}

func (svc *Service) List(ctx context.Context, filter QueryFilter) ([]Department, error) {
	filter.Search = core.CleanString(filter.Search)
	return svc.repo.QueryDepartments(ctx, filter)
}

func (svc *Service) Update(ctx context.Context, id string, ud UpdateDepartment) (Department, error) {
	dept, err := svc.repo.GetDepartment(ctx, id)
	if err != nil {
		return Department{}, err
	}
	dept.Name = ud.Name
	if ud.Description != nil {
		dept.Description = *ud.Description
	}
	dept.UpdatedAt = core.Now()
	return svc.repo.UpdateDepartment(ctx, dept)
}

// Deactivate soft deletes a department; its forms and data banks remain readable.
func (svc *Service) Deactivate(ctx context.Context, id string) error {
	dept, err := svc.repo.GetDepartment(ctx, id)
	if err != nil {
		return err
	}
	if !dept.IsActive {
		return nil
	}
	dept.IsActive = false
	dept.UpdatedAt = core.Now()
	_, err = svc.repo.UpdateDepartment(ctx, dept)
	return err
}
