package submission

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/statbureau/datahub/core"
	"github.com/statbureau/datahub/core/form"
)

// Submission is one user's answers to one form within one schedule.
// It is immutable once created.
type Submission struct {
	ID          string                     `json:"id"`
	FormID      string                     `json:"form_id"`
	ScheduleID  string                     `json:"schedule_id"`
	SubmittedBy string                     `json:"submitted_by"`
	SubmittedAt time.Time                  `json:"submitted_at"`
	Data        form.Values                `json:"data"`
	Aggregates  map[string]decimal.Decimal `json:"aggregates,omitempty"` // computed
}

// NewSubmission is the draft a user submits; Data is keyed by field key.
type NewSubmission struct {
	ScheduleID string      `json:"schedule_id" validate:"required,uuid"`
	FormID     string      `json:"form_id" validate:"required,uuid"`
	Data       form.Values `json:"data"`
}

func (ns *NewSubmission) Validate(validate *validator.Validate) error {
	ns.ScheduleID = core.CleanString(ns.ScheduleID)
	ns.FormID = core.CleanString(ns.FormID)
	if ns.Data == nil {
		ns.Data = form.Values{}
	}
	return validate.Struct(ns)
}

type QueryFilter struct {
	ScheduleID  string `query:"schedule_id"`
	FormID      string `query:"form_id"`
	SubmittedBy string `query:"submitted_by"`
}

func (qf *QueryFilter) Clean() {
	qf.ScheduleID = core.CleanString(qf.ScheduleID)
	qf.FormID = core.CleanString(qf.FormID)
	qf.SubmittedBy = core.CleanString(qf.SubmittedBy)
}
