package schedule

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/statbureau/datahub/core"
)

type Status string

// Statuses
const (
	StatusOpen       Status = "open"
	StatusCollection Status = "collection"
	StatusPublished  Status = "published"
	StatusCancelled  Status = "cancelled"
)

var transitions = map[Status][]Status{
	StatusOpen:       {StatusCollection, StatusCancelled},
	StatusCollection: {StatusPublished, StatusCancelled},
}

func (s Status) Valid() bool {
	switch s {
	case StatusOpen, StatusCollection, StatusPublished, StatusCancelled:
		return true
	}
	return false
}

// CanTransition reports whether a schedule may move from s to next.
func (s Status) CanTransition(next Status) bool {
	for _, st := range transitions[s] {
		if st == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no transition leaves s.
func (s Status) IsTerminal() bool { return len(transitions[s]) == 0 }

// CanSubmit reports whether data entry users may submit forms of a schedule in status s.
// Forms are visible but read-only in every other status.
func CanSubmit(s Status) bool { return s == StatusCollection }

// Editable reports whether the schedule and its attached forms may still change.
func Editable(s Status) bool { return s == StatusOpen || s == StatusCollection }

// Schedule is a time boxed data collection campaign.
type Schedule struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	StartDate    time.Time `json:"start_date"`
	EndDate      time.Time `json:"end_date"`
	Status       Status    `json:"status"`
	DepartmentID *string   `json:"department_id"`
	CreatedBy    *string   `json:"created_by"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ScheduleForm attaches a form to a schedule.
type ScheduleForm struct {
	ID         string     `json:"id"`
	ScheduleID string     `json:"schedule_id"`
	FormID     string     `json:"form_id"`
	FormName   string     `json:"form_name,omitempty"` // joined
	IsRequired bool       `json:"is_required"`
	DueDate    *time.Time `json:"due_date"`
	CreatedAt  time.Time  `json:"created_at"`
}

type NewSchedule struct {
	Name         string    `json:"name" validate:"required,notblank,max=200"`
	Description  string    `json:"description"`
	StartDate    core.Date `json:"start_date"`
	EndDate      core.Date `json:"end_date"`
	DepartmentID *string   `json:"department_id" validate:"omitempty,uuid"`
}

func (ns *NewSchedule) Validate(validate *validator.Validate) error {
	ns.Name = core.CleanString(ns.Name)
	ns.Description = core.CleanString(ns.Description)
	ns.DepartmentID = core.CleanStringPtr(ns.DepartmentID)
	if err := validate.Struct(ns); err != nil {
		return err
	}
	return validateDates(ns.StartDate, ns.EndDate)
}

type UpdateSchedule struct {
	Name         string     `json:"name" validate:"required,notblank,max=200"`
	Description  *string    `json:"description"`
	StartDate    *core.Date `json:"start_date"`
	EndDate      *core.Date `json:"end_date"`
	DepartmentID *string    `json:"department_id" validate:"omitempty,uuid"`
}

func (us *UpdateSchedule) Validate(orig Schedule, validate *validator.Validate) error {
	if name := core.CleanString(us.Name); name != "" {
		us.Name = name
	} else {
		us.Name = orig.Name
	}
	if us.Description == nil {
		us.Description = &orig.Description
	}
	if us.StartDate == nil || us.StartDate.IsZero() {
		us.StartDate = &core.Date{Time: orig.StartDate}
	}
	if us.EndDate == nil || us.EndDate.IsZero() {
		us.EndDate = &core.Date{Time: orig.EndDate}
	}
	if us.DepartmentID == nil {
		us.DepartmentID = orig.DepartmentID
	} else {
		us.DepartmentID = core.CleanStringPtr(us.DepartmentID)
	}
	if err := validate.Struct(us); err != nil {
		return err
	}
	return validateDates(*us.StartDate, *us.EndDate)
}

func validateDates(start, end core.Date) error {
	var flds []core.FieldError
	if start.IsZero() {
		flds = append(flds, core.FieldError{Field: "start_date", Error: "this field is required"})
	}
	if end.IsZero() {
		flds = append(flds, core.FieldError{Field: "end_date", Error: "this field is required"})
	}
	if len(flds) > 0 {
		return core.NewValidationError(nil, flds...)
	}
	if !end.After(start.Time) {
		return core.NewValidationError(nil, core.FieldError{Field: "end_date", Error: "end date must be after start date"})
	}
	return nil
}

type ChangeStatus struct {
	Status Status `json:"status" validate:"required,schedulestatus"`
}

func (cs ChangeStatus) Validate(validate *validator.Validate) error { return validate.Struct(cs) }

type AttachForm struct {
	ScheduleID string     `json:"schedule_id" validate:"required,uuid"`
	FormID     string     `json:"form_id" validate:"required,uuid"`
	IsRequired *bool      `json:"is_required"`
	DueDate    *core.Date `json:"due_date"`
}

func (af *AttachForm) Validate(validate *validator.Validate) error {
	af.ScheduleID = core.CleanString(af.ScheduleID)
	af.FormID = core.CleanString(af.FormID)
	if af.IsRequired == nil {
		required := true
		af.IsRequired = &required
	}
	if af.DueDate != nil && af.DueDate.IsZero() {
		af.DueDate = nil
	}
	return validate.Struct(af)
}

type UpdateScheduleForm struct {
	IsRequired *bool      `json:"is_required"`
	DueDate    *core.Date `json:"due_date"`
}

type QueryFilter struct {
	Status       Status `query:"status"`
	DepartmentID string `query:"department_id"`
}

func (qf *QueryFilter) Clean() {
	qf.DepartmentID = core.CleanString(qf.DepartmentID)
	if !qf.Status.Valid() {
		qf.Status = ""
	}
}
