package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/statbureau/datahub/core"
	"github.com/statbureau/datahub/core/department"
)

var errDuplicateDepartment = errors.New("a department with this name already exists")

type departmentRepository struct {
	db *departmentTable
}

var _ department.Repository = (*departmentRepository)(nil)

func NewDepartmentRepository(db *DB) department.Repository {
	return &departmentRepository{db: db.department}
}

func (repo *departmentRepository) nameTaken(dept department.Department) bool {
	if !dept.IsActive {
		return false
	}
	for _, d := range repo.db.table {
		if d.ID != dept.ID && d.IsActive && strings.EqualFold(d.Name, dept.Name) {
			return true
		}
	}
	return false
}

func (repo *departmentRepository) CreateDepartment(ctx context.Context, dept department.Department, exec ...core.DBExecutor) (department.Department, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if repo.nameTaken(dept) {
		return department.Department{}, core.NewDuplicateError(errDuplicateDepartment, "name")
	}
	repo.db.table[dept.ID] = dept
	return dept, nil
}

func (repo *departmentRepository) UpdateDepartment(ctx context.Context, dept department.Department, exec ...core.DBExecutor) (department.Department, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[dept.ID]; !ok {
		return department.Department{}, department.ErrNotFound
	}
	if repo.nameTaken(dept) {
		return department.Department{}, core.NewDuplicateError(errDuplicateDepartment, "name")
	}
	repo.db.table[dept.ID] = dept
	return dept, nil
}

func (repo *departmentRepository) GetDepartment(ctx context.Context, id string, exec ...core.DBExecutor) (department.Department, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if dept, ok := repo.db.table[id]; ok {
		return dept, nil
	}
	return department.Department{}, department.ErrNotFound
}

func (repo *departmentRepository) QueryDepartments(ctx context.Context, filter department.QueryFilter, exec ...core.DBExecutor) ([]department.Department, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	search := strings.ToLower(filter.Search)
	depts := make([]department.Department, 0, len(repo.db.table))
	for _, d := range repo.db.table {
		if !filter.IncludeInactive && !d.IsActive {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(d.Name), search) {
			continue
		}
		depts = append(depts, d)
	}
	sort.Slice(depts, func(i, j int) bool { return depts[i].Name < depts[j].Name })
	return depts, nil
}
