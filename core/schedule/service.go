package schedule

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/statbureau/datahub/core"
	"github.com/statbureau/datahub/core/form"
)

var (
	// errors
	ErrNotFound             = core.NewNotFoundError("schedule")
	ErrScheduleFormNotFound = core.NewNotFoundError("schedule form")
	ErrDuplicateAttachment  = errors.New("this form is already attached to the schedule")
)

type (
	Repository interface {
		CreateSchedule(ctx context.Context, sch Schedule, exec ...core.DBExecutor) (Schedule, error)
		UpdateSchedule(ctx context.Context, sch Schedule, exec ...core.DBExecutor) (Schedule, error)
		GetSchedule(ctx context.Context, id string, exec ...core.DBExecutor) (Schedule, error)
		// QuerySchedules returns schedules ordered by start date, most recent first.
		QuerySchedules(ctx context.Context, filter QueryFilter, exec ...core.DBExecutor) ([]Schedule, error)

		CreateScheduleForm(ctx context.Context, sf ScheduleForm, exec ...core.DBExecutor) (ScheduleForm, error)
		UpdateScheduleForm(ctx context.Context, sf ScheduleForm, exec ...core.DBExecutor) (ScheduleForm, error)
		DeleteScheduleForm(ctx context.Context, id string, exec ...core.DBExecutor) error
		GetScheduleForm(ctx context.Context, id string, exec ...core.DBExecutor) (ScheduleForm, error)
		// QueryScheduleForms returns the forms attached to a schedule ordered by form name.
		QueryScheduleForms(ctx context.Context, scheduleID string, exec ...core.DBExecutor) ([]ScheduleForm, error)
	}

	Service struct {
		repo     Repository
		formRepo form.Repository
	}
)

func NewService(repo Repository, formRepo form.Repository) *Service {
	return &Service{repo: repo, formRepo: formRepo}
}

func (svc *Service) Create(ctx context.Context, ns NewSchedule, createdBy *string) (Schedule, error) {
	now := core.Now()
	return svc.repo.CreateSchedule(ctx, Schedule{
		ID:           uuid.NewString(),
		Name:         ns.Name,
		Description:  ns.Description,
		StartDate:    ns.StartDate.Time,
		EndDate:      ns.EndDate.Time,
		Status:       StatusOpen,
		DepartmentID: ns.DepartmentID,
		CreatedBy:    createdBy,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
}

func (svc *Service) Get(ctx context.Context, id string) (Schedule, error) {
	return svc.repo.GetSchedule(ctx, id)
}

func (svc *Service) List(ctx context.Context, filter QueryFilter) ([]Schedule, error) {
	filter.Clean()
	return svc.repo.QuerySchedules(ctx, filter)
}

func (svc *Service) Update(ctx context.Context, id string, us UpdateSchedule) (Schedule, error) {
	sch, err := svc.repo.GetSchedule(ctx, id)
	if err != nil {
		return Schedule{}, err
	}
	if !Editable(sch.Status) {
		return Schedule{}, core.NewStateError(errors.Errorf("a %s schedule cannot be modified", sch.Status))
	}
	sch.Name = us.Name
	if us.Description != nil {
		sch.Description = *us.Description
	}
	if us.StartDate != nil {
		sch.StartDate = us.StartDate.Time
	}
	if us.EndDate != nil {
		sch.EndDate = us.EndDate.Time
	}
	if err = validateDates(core.Date{Time: sch.StartDate}, core.Date{Time: sch.EndDate}); err != nil {
		return Schedule{}, err
	}
	sch.DepartmentID = us.DepartmentID
	sch.UpdatedAt = core.Now()
	return svc.repo.UpdateSchedule(ctx, sch)
}

// Transition moves a schedule along its lifecycle: open -> collection -> published,
// or to cancelled from any non terminal status.
func (svc *Service) Transition(ctx context.Context, id string, to Status) (Schedule, error) {
	sch, err := svc.repo.GetSchedule(ctx, id)
	if err != nil {
		return Schedule{}, err
	}
	if sch.Status == to {
		return sch, nil
	}
	if !sch.Status.CanTransition(to) {
		return Schedule{}, core.NewStateError(errors.Errorf("cannot move schedule from %s to %s", sch.Status, to))
	}
	sch.Status = to
	sch.UpdatedAt = core.Now()
	return svc.repo.UpdateSchedule(ctx, sch)
}

// ListForms returns the forms attached to a schedule, sorted by form name.
func (svc *Service) ListForms(ctx context.Context, scheduleID string) ([]ScheduleForm, error) {
	if _, err := svc.repo.GetSchedule(ctx, scheduleID); err != nil {
		return nil, err
	}
	return svc.repo.QueryScheduleForms(ctx, scheduleID)
}

// ListAvailableForms returns the active forms not yet attached to a schedule, sorted by name.
func (svc *Service) ListAvailableForms(ctx context.Context, scheduleID string) ([]form.Form, error) {
	attached, err := svc.ListForms(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	forms, err := svc.formRepo.QueryForms(ctx, form.QueryFilter{})
	if err != nil {
		return nil, errors.Wrap(err, "querying forms")
	}

	attachedIDs := make(map[string]struct{}, len(attached))
	for _, sf := range attached {
		attachedIDs[sf.FormID] = struct{}{}
	}
	available := make([]form.Form, 0, len(forms))
	for _, f := range forms {
		if _, ok := attachedIDs[f.ID]; !ok {
			available = append(available, f)
		}
	}
	sort.SliceStable(available, func(i, j int) bool { return available[i].Name < available[j].Name })
	return available, nil
}

// GetAttachment returns the attachment of formID to scheduleID.
func (svc *Service) GetAttachment(ctx context.Context, scheduleID, formID string) (ScheduleForm, error) {
	sfs, err := svc.repo.QueryScheduleForms(ctx, scheduleID)
	if err != nil {
		return ScheduleForm{}, err
	}
	for _, sf := range sfs {
		if sf.FormID == formID {
			return sf, nil
		}
	}
	return ScheduleForm{}, ErrScheduleFormNotFound
}

func (svc *Service) AttachForm(ctx context.Context, af AttachForm) (ScheduleForm, error) {
	sch, err := svc.editableSchedule(ctx, af.ScheduleID)
	if err != nil {
		return ScheduleForm{}, err
	}
	frm, err := svc.formRepo.GetForm(ctx, af.FormID)
	if err != nil {
		if core.IsNotFound(err) {
			return ScheduleForm{}, core.NewValidationError(nil, core.FieldError{Field: "form_id", Error: "unknown form"})
		}
		return ScheduleForm{}, err
	}
	if !frm.IsActive {
		return ScheduleForm{}, core.NewValidationError(nil, core.FieldError{Field: "form_id", Error: "form is inactive"})
	}
	if _, err = svc.GetAttachment(ctx, sch.ID, frm.ID); err == nil {
		return ScheduleForm{}, core.NewDuplicateError(ErrDuplicateAttachment, "form_id")
	} else if !core.IsNotFound(err) {
		return ScheduleForm{}, err
	}

	dueDate, err := checkDueDate(sch, af.DueDate)
	if err != nil {
		return ScheduleForm{}, err
	}
	sf, err := svc.repo.CreateScheduleForm(ctx, ScheduleForm{
		ID:         uuid.NewString(),
		ScheduleID: sch.ID,
		FormID:     frm.ID,
		FormName:   frm.Name,
		IsRequired: *af.IsRequired,
		DueDate:    dueDate,
		CreatedAt:  core.Now(),
	})
	if err != nil {
		if core.IsDuplicate(err) {
			return ScheduleForm{}, core.NewDuplicateError(ErrDuplicateAttachment, "form_id")
		}
		return ScheduleForm{}, err
	}
	return sf, nil
}

func (svc *Service) UpdateAttachment(ctx context.Context, id string, usf UpdateScheduleForm) (ScheduleForm, error) {
	sf, err := svc.repo.GetScheduleForm(ctx, id)
	if err != nil {
		return ScheduleForm{}, err
	}
	sch, err := svc.editableSchedule(ctx, sf.ScheduleID)
	if err != nil {
		return ScheduleForm{}, err
	}
	if usf.IsRequired != nil {
		sf.IsRequired = *usf.IsRequired
	}
	if usf.DueDate != nil {
		if sf.DueDate, err = checkDueDate(sch, usf.DueDate); err != nil {
			return ScheduleForm{}, err
		}
	}
	return svc.repo.UpdateScheduleForm(ctx, sf)
}

func (svc *Service) DetachForm(ctx context.Context, id string) error {
	sf, err := svc.repo.GetScheduleForm(ctx, id)
	if err != nil {
		return err
	}
	if _, err = svc.editableSchedule(ctx, sf.ScheduleID); err != nil {
		return err
	}
	return svc.repo.DeleteScheduleForm(ctx, id)
}

func (svc *Service) editableSchedule(ctx context.Context, id string) (Schedule, error) {
	sch, err := svc.repo.GetSchedule(ctx, id)
	if err != nil {
		if core.IsNotFound(err) {
			return Schedule{}, core.NewValidationError(nil, core.FieldError{Field: "schedule_id", Error: "unknown schedule"})
		}
		return Schedule{}, err
	}
	if !Editable(sch.Status) {
		return Schedule{}, core.NewStateError(fmt.Errorf("forms of a %s schedule cannot be changed", sch.Status))
	}
	return sch, nil
}

// checkDueDate returns the due date to store; a zero date clears it.
func checkDueDate(sch Schedule, due *core.Date) (*time.Time, error) {
	if due == nil || due.IsZero() {
		return nil, nil
	}
	if due.Before(sch.StartDate) || due.After(sch.EndDate) {
		return nil, core.NewValidationError(nil, core.FieldError{
			Field: "due_date",
			Error: "due date must fall within the schedule dates",
		})
	}
	t := due.Time
	return &t, nil
}
