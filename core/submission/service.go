package submission

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/statbureau/datahub/core"
	"github.com/statbureau/datahub/core/form"
	"github.com/statbureau/datahub/core/schedule"
)

var (
	// errors
	ErrNotFound      = core.NewNotFoundError("submission")
	ErrAlreadyExists = errors.New("this form was already submitted for this schedule")
)

const (
	errNotAttached     = "form is not attached to this schedule"
	errUnknownSchedule = "unknown schedule"
)

type (
	Repository interface {
		CreateSubmission(ctx context.Context, sub Submission, exec ...core.DBExecutor) (Submission, error)
		GetSubmission(ctx context.Context, id string, exec ...core.DBExecutor) (Submission, error)
		// QuerySubmissions returns submissions ordered by submission time, most recent first.
		QuerySubmissions(ctx context.Context, filter QueryFilter, exec ...core.DBExecutor) ([]Submission, error)
		// CountSubmissions returns the number of submissions matching filter per form id.
		CountSubmissions(ctx context.Context, filter QueryFilter, exec ...core.DBExecutor) (map[string]int, error)
	}

	Service struct {
		repo     Repository
		schedSvc *schedule.Service
		formSvc  *form.Service
		options  form.OptionsLookup
	}
)

func NewService(repo Repository, schedSvc *schedule.Service, formSvc *form.Service, options form.OptionsLookup) *Service {
	return &Service{repo: repo, schedSvc: schedSvc, formSvc: formSvc, options: options}
}

// Submit records a user's answers. The schedule must be collecting data, the form must be
// attached to it and the user must not have submitted it already.
func (svc *Service) Submit(ctx context.Context, ns NewSubmission, userID string) (Submission, error) {
	sch, err := svc.schedSvc.Get(ctx, ns.ScheduleID)
	if err != nil {
		if core.IsNotFound(err) {
			return Submission{}, core.NewValidationError(nil, core.FieldError{Field: "schedule_id", Error: errUnknownSchedule})
		}
		return Submission{}, err
	}
	if !schedule.CanSubmit(sch.Status) {
		return Submission{}, core.NewStateError(fmt.Errorf(
			"submissions are only accepted while the schedule is in %s, it is %s", schedule.StatusCollection, sch.Status,
		))
	}
	if _, err = svc.schedSvc.GetAttachment(ctx, sch.ID, ns.FormID); err != nil {
		if core.IsNotFound(err) {
			return Submission{}, core.NewValidationError(nil, core.FieldError{Field: "form_id", Error: errNotAttached})
		}
		return Submission{}, err
	}

	existing, err := svc.repo.QuerySubmissions(ctx, QueryFilter{ScheduleID: sch.ID, FormID: ns.FormID, SubmittedBy: userID})
	if err != nil {
		return Submission{}, errors.Wrap(err, "checking existing submissions")
	}
	if len(existing) > 0 {
		return Submission{}, core.NewDuplicateError(ErrAlreadyExists, "form_id")
	}

	def, err := svc.formSvc.GetDefinition(ctx, ns.FormID)
	if err != nil {
		return Submission{}, err
	}
	data, err := form.ValidateDraft(ctx, def, ns.Data, svc.options)
	if err != nil {
		return Submission{}, err
	}

	sub, err := svc.repo.CreateSubmission(ctx, Submission{
		ID:          uuid.NewString(),
		FormID:      ns.FormID,
		ScheduleID:  sch.ID,
		SubmittedBy: userID,
		SubmittedAt: core.Now(),
		Data:        data,
	})
	if err != nil {
		if core.IsDuplicate(err) {
			return Submission{}, core.NewDuplicateError(ErrAlreadyExists, "form_id")
		}
		return Submission{}, err
	}
	sub.Aggregates = form.Aggregate(def, sub.Data)
	return sub, nil
}

func (svc *Service) Get(ctx context.Context, id string) (Submission, error) {
	sub, err := svc.repo.GetSubmission(ctx, id)
	if err != nil {
		return Submission{}, err
	}
	def, err := svc.formSvc.GetDefinition(ctx, sub.FormID)
	if err != nil {
		return Submission{}, err
	}
	sub.Aggregates = form.Aggregate(def, sub.Data)
	return sub, nil
}

// List returns the submissions matching filter with their aggregates computed.
func (svc *Service) List(ctx context.Context, filter QueryFilter) ([]Submission, error) {
	filter.Clean()
	subs, err := svc.repo.QuerySubmissions(ctx, filter)
	if err != nil {
		return nil, err
	}
	defs := make(map[string]form.Definition)
	for i := range subs {
		def, ok := defs[subs[i].FormID]
		if !ok {
			if def, err = svc.formSvc.GetDefinition(ctx, subs[i].FormID); err != nil {
				return nil, err
			}
			defs[subs[i].FormID] = def
		}
		subs[i].Aggregates = form.Aggregate(def, subs[i].Data)
	}
	return subs, nil
}

// CountByForm returns the number of submissions matching filter per form id.
func (svc *Service) CountByForm(ctx context.Context, filter QueryFilter) (map[string]int, error) {
	filter.Clean()
	return svc.repo.CountSubmissions(ctx, filter)
}
