package form

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/statbureau/datahub/core"
	"github.com/statbureau/datahub/core/department"
)

var (
	// errors
	ErrNotFound        = core.NewNotFoundError("form")
	ErrVersionConflict = errors.New("the form was modified by someone else, reload it and try again")
	errInactive        = errors.New("form is inactive")
)

type (
	Repository interface {
		CreateForm(ctx context.Context, form Form, exec ...core.DBExecutor) (Form, error)
		UpdateForm(ctx context.Context, form Form, exec ...core.DBExecutor) (Form, error)
		GetForm(ctx context.Context, id string, exec ...core.DBExecutor) (Form, error)
		// QueryForms returns forms ordered by name.
		QueryForms(ctx context.Context, filter QueryFilter, exec ...core.DBExecutor) ([]Form, error)
		// BumpVersion increments the form version when it still equals expected and returns
		// the new version. A mismatch yields ErrVersionConflict.
		BumpVersion(ctx context.Context, formID string, expected int, exec ...core.DBExecutor) (int, error)

		DeleteFields(ctx context.Context, formID string, exec ...core.DBExecutor) error
		InsertGroups(ctx context.Context, groups []FieldGroup, exec ...core.DBExecutor) error
		InsertFields(ctx context.Context, rows []FieldRow, exec ...core.DBExecutor) error
		QueryGroups(ctx context.Context, formID string, exec ...core.DBExecutor) ([]FieldGroup, error)
		QueryFields(ctx context.Context, formID string, exec ...core.DBExecutor) ([]FieldRow, error)
	}

	Service struct {
		repo     Repository
		deptRepo department.Repository
		tx       core.Transactor
	}
)

func NewService(repo Repository, deptRepo department.Repository, tx core.Transactor) *Service {
	return &Service{repo: repo, deptRepo: deptRepo, tx: tx}
}

func (svc *Service) checkDepartment(ctx context.Context, id string) error {
	dept, err := svc.deptRepo.GetDepartment(ctx, id)
	if err != nil {
		if core.IsNotFound(err) {
			return core.NewValidationError(nil, core.FieldError{Field: "department_id", Error: "unknown department"})
		}
		return err
	}
	if !dept.IsActive {
		return core.NewValidationError(nil, core.FieldError{Field: "department_id", Error: "department is inactive"})
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, nf NewForm, createdBy *string) (Form, error) {
	if err := svc.checkDepartment(ctx, nf.DepartmentID); err != nil {
		return Form{}, err
	}
	now := core.Now()
	return svc.repo.CreateForm(ctx, Form{
		ID:           uuid.NewString(),
		Name:         nf.Name,
		Description:  nf.Description,
		DepartmentID: nf.DepartmentID,
		CreatedBy:    createdBy,
		Version:      1,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
}

func (svc *Service) Get(ctx context.Context, id string) (Form, error) {
	return svc.repo.GetForm(ctx, id)
}

func (svc *Service) List(ctx context.Context, filter QueryFilter) ([]Form, error) {
	filter.Clean()
	return svc.repo.QueryForms(ctx, filter)
}

func (svc *Service) Update(ctx context.Context, id string, uf UpdateForm) (Form, error) {
	form, err := svc.repo.GetForm(ctx, id)
	if err != nil {
		return Form{}, err
	}
	if uf.DepartmentID != form.DepartmentID {
		if err = svc.checkDepartment(ctx, uf.DepartmentID); err != nil {
			return Form{}, err
		}
	}
	form.Name = uf.Name
	if uf.Description != nil {
		form.Description = *uf.Description
	}
	form.DepartmentID = uf.DepartmentID
	form.UpdatedAt = core.Now()
	return svc.repo.UpdateForm(ctx, form)
}

// Deactivate soft deletes a form; existing submissions keep their definition.
func (svc *Service) Deactivate(ctx context.Context, id string) error {
	form, err := svc.repo.GetForm(ctx, id)
	if err != nil {
		return err
	}
	if !form.IsActive {
		return nil
	}
	form.IsActive = false
	form.UpdatedAt = core.Now()
	_, err = svc.repo.UpdateForm(ctx, form)
	return err
}

// GetDefinition returns the field tree of a form.
func (svc *Service) GetDefinition(ctx context.Context, formID string) (Definition, error) {
	form, err := svc.repo.GetForm(ctx, formID)
	if err != nil {
		return Definition{}, err
	}
	groups, err := svc.repo.QueryGroups(ctx, formID)
	if err != nil {
		return Definition{}, errors.Wrap(err, "querying field groups")
	}
	rows, err := svc.repo.QueryFields(ctx, formID)
	if err != nil {
		return Definition{}, errors.Wrap(err, "querying fields")
	}
	return Build(form, groups, rows), nil
}

// DefineFields replaces the field set of a form in a single transaction.
// The form version is bumped; a stale ExpectedVersion leaves the definition untouched.
func (svc *Service) DefineFields(ctx context.Context, formID string, df DefineFields) (Definition, error) {
	form, err := svc.repo.GetForm(ctx, formID)
	if err != nil {
		return Definition{}, err
	}
	if !form.IsActive {
		return Definition{}, core.NewStateError(errInactive)
	}
	expected := form.Version
	if df.ExpectedVersion != nil {
		expected = *df.ExpectedVersion
	}

	groups, rows := Flatten(formID, df.Groups, df.Fields)
	err = svc.tx.WithinTx(ctx, func(exec core.DBExecutor) error {
		version, err := svc.repo.BumpVersion(ctx, formID, expected, exec)
		if err != nil {
			return err
		}
		form.Version = version
		if err = svc.repo.DeleteFields(ctx, formID, exec); err != nil {
			return errors.Wrap(err, "deleting fields")
		}
		if err = svc.repo.InsertGroups(ctx, groups, exec); err != nil {
			return errors.Wrap(err, "inserting field groups")
		}
		if err = svc.repo.InsertFields(ctx, rows, exec); err != nil {
			return errors.Wrap(err, "inserting fields")
		}
		return nil
	})
	if err != nil {
		if errors.Cause(err) == ErrVersionConflict {
			return Definition{}, core.NewStateError(ErrVersionConflict)
		}
		return Definition{}, err
	}
	return Build(form, groups, rows), nil
}
