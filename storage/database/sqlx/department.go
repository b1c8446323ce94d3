package sqlxrepos

import (
	"context"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/statbureau/datahub/core"
	"github.com/statbureau/datahub/core/department"
)

var (
	errDuplicateDepartment = errors.New("a department with this name already exists")

	departmentColumns = []string{"id", "name", "description", "is_active", "created_at", "updated_at"}
)

type departmentRow struct {
	ID          string    `db:"id"`
	Name        string    `db:"name"`
	Description string    `db:"description"`
	IsActive    bool      `db:"is_active"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

type departmentRepository struct {
	base
}

var _ department.Repository = (*departmentRepository)(nil)

func NewDepartmentRepository(exec core.DBExecutor) department.Repository {
	return &departmentRepository{base{exec: exec}}
}

func (repo departmentRepository) unboil(row departmentRow) department.Department {
	return department.Department{
		ID:          row.ID,
		Name:        row.Name,
		Description: row.Description,
		IsActive:    row.IsActive,
		CreatedAt:   row.CreatedAt.UTC(),
		UpdatedAt:   row.UpdatedAt.UTC(),
	}
}

func (repo departmentRepository) trapErr(err error, msg string) error {
	err = trapErr(err, department.ErrNotFound, msg)
	if core.IsDuplicate(err) {
		return core.NewDuplicateError(errDuplicateDepartment, "name")
	}
	return err
}

func (repo departmentRepository) CreateDepartment(ctx context.Context, dept department.Department, exec ...core.DBExecutor) (department.Department, error) {
	q := builder().Insert(tableDepartments).Columns(departmentColumns...).Values(
		dept.ID, dept.Name, dept.Description, dept.IsActive, dept.CreatedAt.UTC(), dept.UpdatedAt.UTC(),
	)
	if _, err := execute(ctx, repo.getExec(exec), q); err != nil {
		return department.Department{}, repo.trapErr(err, "inserting department")
	}
	return dept, nil
}

func (repo departmentRepository) UpdateDepartment(ctx context.Context, dept department.Department, exec ...core.DBExecutor) (department.Department, error) {
	q := builder().Update(tableDepartments).SetMap(map[string]interface{}{
		"name":        dept.Name,
		"description": dept.Description,
		"is_active":   dept.IsActive,
		"updated_at":  dept.UpdatedAt.UTC(),
	}).Where(squirrel.Eq{"id": dept.ID})

	n, err := execute(ctx, repo.getExec(exec), q)
	if err != nil {
		return department.Department{}, repo.trapErr(err, "updating department")
	}
	if n == 0 {
		return department.Department{}, department.ErrNotFound
	}
	return dept, nil
}

func (repo departmentRepository) GetDepartment(ctx context.Context, id string, exec ...core.DBExecutor) (department.Department, error) {
	if _, err := uuid.Parse(id); err != nil {
		return department.Department{}, department.ErrNotFound
	}
	q := builder().Select(departmentColumns...).From(tableDepartments).Where(squirrel.Eq{"id": id})

	var row departmentRow
	if err := get(ctx, repo.getExec(exec), &row, q); err != nil {
		return department.Department{}, repo.trapErr(err, "finding department")
	}
	return repo.unboil(row), nil
}

func (repo departmentRepository) QueryDepartments(ctx context.Context, filter department.QueryFilter, exec ...core.DBExecutor) ([]department.Department, error) {
	q := builder().Select(departmentColumns...).From(tableDepartments).OrderBy("name ASC")
	if !filter.IncludeInactive {
		q = q.Where(squirrel.Eq{"is_active": true})
	}
	if filter.Search != "" {
		q = q.Where(squirrel.ILike{"name": "%" + filter.Search + "%"})
	}

	var rows []departmentRow
	if err := selectAll(ctx, repo.getExec(exec), &rows, q); err != nil {
		return nil, errors.Wrap(err, "querying departments")
	}
	depts := make([]department.Department, 0, len(rows))
	for _, row := range rows {
		depts = append(depts, repo.unboil(row))
	}
	return depts, nil
}
