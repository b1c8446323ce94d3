// Package report computes collection progress, SDG indicator progress and submission exports.
package report

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/statbureau/datahub/core/form"
	"github.com/statbureau/datahub/core/schedule"
	"github.com/statbureau/datahub/core/submission"
	"github.com/statbureau/datahub/core/user"
)

var hundred = decimal.NewFromInt(100)

type (
	FormProgress struct {
		FormID      string     `json:"form_id"`
		FormName    string     `json:"form_name"`
		IsRequired  bool       `json:"is_required"`
		DueDate     *time.Time `json:"due_date"`
		Submissions int        `json:"submissions"`
	}

	ScheduleProgress struct {
		ScheduleID           string          `json:"schedule_id"`
		Status               schedule.Status `json:"status"`
		Forms                []FormProgress  `json:"forms"`
		TotalForms           int             `json:"total_forms"`
		RequiredForms        int             `json:"required_forms"`
		FormsWithSubmissions int             `json:"forms_with_submissions"`
		TotalSubmissions     int             `json:"total_submissions"`
		CompletionPct        decimal.Decimal `json:"completion_pct"`
	}

	UserFormStatus struct {
		FormID     string `json:"form_id"`
		FormName   string `json:"form_name"`
		IsRequired bool   `json:"is_required"`
		Submitted  bool   `json:"submitted"`
	}

	UserProgress struct {
		ScheduleID string           `json:"schedule_id"`
		UserID     string           `json:"user_id"`
		Completed  int              `json:"completed"`
		Total      int              `json:"total"`
		Summary    string           `json:"summary"`
		Forms      []UserFormStatus `json:"forms"`
	}
)

type Service struct {
	schedSvc *schedule.Service
	formSvc  *form.Service
	subSvc   *submission.Service
	userSvc  user.ServiceInterface
}

func NewService(schedSvc *schedule.Service, formSvc *form.Service, subSvc *submission.Service, userSvc user.ServiceInterface) *Service {
	return &Service{schedSvc: schedSvc, formSvc: formSvc, subSvc: subSvc, userSvc: userSvc}
}

// load fetches the attached forms and the submission counts per form of a schedule concurrently.
func (svc *Service) load(ctx context.Context, scheduleID string, filter submission.QueryFilter) ([]schedule.ScheduleForm, map[string]int, error) {
	var (
		sfs    []schedule.ScheduleForm
		counts map[string]int
	)
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		sfs, err = svc.schedSvc.ListForms(egCtx, scheduleID)
		return err
	})
	eg.Go(func() error {
		var err error
		filter.ScheduleID = scheduleID
		counts, err = svc.subSvc.CountByForm(egCtx, filter)
		return errors.Wrap(err, "counting submissions")
	})
	if err := eg.Wait(); err != nil {
		return nil, nil, err
	}
	return sfs, counts, nil
}

// ScheduleProgress counts submissions per attached form. Completion is the share of
// attached forms with at least one submission, rounded to one decimal place.
func (svc *Service) ScheduleProgress(ctx context.Context, scheduleID string) (ScheduleProgress, error) {
	sch, err := svc.schedSvc.Get(ctx, scheduleID)
	if err != nil {
		return ScheduleProgress{}, err
	}
	sfs, counts, err := svc.load(ctx, scheduleID, submission.QueryFilter{})
	if err != nil {
		return ScheduleProgress{}, err
	}

	prog := ScheduleProgress{
		ScheduleID:    sch.ID,
		Status:        sch.Status,
		Forms:         make([]FormProgress, 0, len(sfs)),
		TotalForms:    len(sfs),
		CompletionPct: decimal.Zero,
	}
	for _, n := range counts {
		prog.TotalSubmissions += n
	}
	for _, sf := range sfs {
		n := counts[sf.FormID]
		prog.Forms = append(prog.Forms, FormProgress{
			FormID:      sf.FormID,
			FormName:    sf.FormName,
			IsRequired:  sf.IsRequired,
			DueDate:     sf.DueDate,
			Submissions: n,
		})
		if sf.IsRequired {
			prog.RequiredForms++
		}
		if n > 0 {
			prog.FormsWithSubmissions++
		}
	}
	prog.CompletionPct = Percentage(prog.FormsWithSubmissions, prog.TotalForms)
	return prog, nil
}

// UserProgress reports which attached forms a user already submitted: "N of M forms completed".
func (svc *Service) UserProgress(ctx context.Context, scheduleID, userID string) (UserProgress, error) {
	if _, err := svc.schedSvc.Get(ctx, scheduleID); err != nil {
		return UserProgress{}, err
	}
	sfs, counts, err := svc.load(ctx, scheduleID, submission.QueryFilter{SubmittedBy: userID})
	if err != nil {
		return UserProgress{}, err
	}

	prog := UserProgress{
		ScheduleID: scheduleID,
		UserID:     userID,
		Total:      len(sfs),
		Forms:      make([]UserFormStatus, 0, len(sfs)),
	}
	for _, sf := range sfs {
		done := counts[sf.FormID] > 0
		if done {
			prog.Completed++
		}
		prog.Forms = append(prog.Forms, UserFormStatus{
			FormID:     sf.FormID,
			FormName:   sf.FormName,
			IsRequired: sf.IsRequired,
			Submitted:  done,
		})
	}
	prog.Summary = fmt.Sprintf("%d of %d forms completed", prog.Completed, prog.Total)
	return prog, nil
}

// Percentage returns part/total as a percentage rounded to one decimal place; zero when total is zero.
func Percentage(part, total int) decimal.Decimal {
	if total <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(part)).Mul(hundred).Div(decimal.NewFromInt(int64(total))).Round(1)
}
