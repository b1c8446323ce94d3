package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/statbureau/datahub/core"
	"github.com/statbureau/datahub/core/form"
)

type formRepository struct {
	db *formTable
}

var _ form.Repository = (*formRepository)(nil)

func NewFormRepository(db *DB) form.Repository {
	return &formRepository{db: db.form}
}

func (repo *formRepository) CreateForm(ctx context.Context, f form.Form, exec ...core.DBExecutor) (form.Form, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.table[f.ID] = f
	return f, nil
}

func (repo *formRepository) UpdateForm(ctx context.Context, f form.Form, exec ...core.DBExecutor) (form.Form, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.table[f.ID]
	if !ok {
		return form.Form{}, form.ErrNotFound
	}
	f.Version = orig.Version // only changed through BumpVersion
	repo.db.table[f.ID] = f
	return f, nil
}

func (repo *formRepository) GetForm(ctx context.Context, id string, exec ...core.DBExecutor) (form.Form, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if f, ok := repo.db.table[id]; ok {
		return f, nil
	}
	return form.Form{}, form.ErrNotFound
}

func (repo *formRepository) QueryForms(ctx context.Context, filter form.QueryFilter, exec ...core.DBExecutor) ([]form.Form, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	search := strings.ToLower(filter.Search)
	forms := make([]form.Form, 0, len(repo.db.table))
	for _, f := range repo.db.table {
		if !filter.IncludeInactive && !f.IsActive {
			continue
		}
		if filter.DepartmentID != "" && f.DepartmentID != filter.DepartmentID {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(f.Name), search) {
			continue
		}
		forms = append(forms, f)
	}
	sort.Slice(forms, func(i, j int) bool { return forms[i].Name < forms[j].Name })
	return forms, nil
}

func (repo *formRepository) BumpVersion(ctx context.Context, formID string, expected int, exec ...core.DBExecutor) (int, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	f, ok := repo.db.table[formID]
	if !ok {
		return 0, form.ErrNotFound
	}
	if f.Version != expected {
		return 0, form.ErrVersionConflict
	}
	f.Version++
	f.UpdatedAt = core.Now()
	repo.db.table[formID] = f
	return f.Version, nil
}

func (repo *formRepository) DeleteFields(ctx context.Context, formID string, exec ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	delete(repo.db.groups, formID)
	delete(repo.db.fields, formID)
	return nil
}

func (repo *formRepository) InsertGroups(ctx context.Context, groups []form.FieldGroup, exec ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, g := range groups {
		repo.db.groups[g.FormID] = append(repo.db.groups[g.FormID], g)
	}
	return nil
}

func (repo *formRepository) InsertFields(ctx context.Context, rows []form.FieldRow, exec ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, r := range rows {
		for _, existing := range repo.db.fields[r.FormID] {
			if existing.Key == r.Key {
				return core.NewDuplicateError(nil, "field_key")
			}
		}
		repo.db.fields[r.FormID] = append(repo.db.fields[r.FormID], r)
	}
	return nil
}

func (repo *formRepository) QueryGroups(ctx context.Context, formID string, exec ...core.DBExecutor) ([]form.FieldGroup, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	return append([]form.FieldGroup{}, repo.db.groups[formID]...), nil
}

func (repo *formRepository) QueryFields(ctx context.Context, formID string, exec ...core.DBExecutor) ([]form.FieldRow, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	return append([]form.FieldRow{}, repo.db.fields[formID]...), nil
}
