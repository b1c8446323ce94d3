package client

import (
	"context"
	"io"
	"mime"
	"net/http"
	"net/url"

	"github.com/pkg/errors"

	"github.com/statbureau/datahub/core/alert"
	"github.com/statbureau/datahub/core/department"
	"github.com/statbureau/datahub/core/form"
	"github.com/statbureau/datahub/core/refdata"
	"github.com/statbureau/datahub/core/report"
	"github.com/statbureau/datahub/core/schedule"
	"github.com/statbureau/datahub/core/submission"
)

// ScheduleView is a schedule with its dashboard badge.
type ScheduleView struct {
	schedule.Schedule
	Badge    alert.Badge `json:"badge"`
	DaysLeft int         `json:"days_left"`
}

// Export is a downloaded submissions workbook.
type Export struct {
	Filename string
	Content  []byte
}

func (c *Client) Departments(ctx context.Context, search string) ([]department.Department, error) {
	var depts []department.Department
	q := url.Values{}
	if search != "" {
		q.Set("search", search)
	}
	err := c.do(ctx, http.MethodGet, "/api/departments", q, nil, &depts)
	return depts, err
}

func (c *Client) DataBanks(ctx context.Context) ([]refdata.DataBank, error) {
	var banks []refdata.DataBank
	err := c.do(ctx, http.MethodGet, "/api/data-banks", nil, nil, &banks)
	return banks, err
}

// Options returns the active entries of the named data bank, as select options.
func (c *Client) Options(ctx context.Context, bankName string) ([]refdata.Option, error) {
	var opts []refdata.Option
	err := c.do(ctx, http.MethodGet, "/api/data-banks/options/"+url.PathEscape(bankName), nil, nil, &opts)
	return opts, err
}

func (c *Client) BulkAddEntries(ctx context.Context, bankID, raw string) (refdata.BulkResult, error) {
	var res refdata.BulkResult
	path := "/api/data-banks/" + url.PathEscape(bankID) + "/entries/bulk"
	err := c.do(ctx, http.MethodPost, path, nil, refdata.BulkEntries{Raw: raw}, &res)
	return res, err
}

func (c *Client) Forms(ctx context.Context, filter form.QueryFilter) ([]form.Form, error) {
	var forms []form.Form
	q := url.Values{}
	if filter.DepartmentID != "" {
		q.Set("department_id", filter.DepartmentID)
	}
	if filter.Search != "" {
		q.Set("search", filter.Search)
	}
	err := c.do(ctx, http.MethodGet, "/api/forms", q, nil, &forms)
	return forms, err
}

func (c *Client) FormDefinition(ctx context.Context, formID string) (form.Definition, error) {
	var def form.Definition
	err := c.do(ctx, http.MethodGet, "/api/forms/"+url.PathEscape(formID)+"/fields", nil, nil, &def)
	return def, err
}

func (c *Client) DefineFields(ctx context.Context, formID string, df form.DefineFields) (form.Definition, error) {
	var def form.Definition
	err := c.do(ctx, http.MethodPut, "/api/forms/"+url.PathEscape(formID)+"/fields", nil, df, &def)
	return def, err
}

func (c *Client) Schedules(ctx context.Context, filter schedule.QueryFilter) ([]ScheduleView, error) {
	var views []ScheduleView
	q := url.Values{}
	if filter.Status != "" {
		q.Set("status", string(filter.Status))
	}
	if filter.DepartmentID != "" {
		q.Set("department_id", filter.DepartmentID)
	}
	err := c.do(ctx, http.MethodGet, "/api/schedules", q, nil, &views)
	return views, err
}

func (c *Client) ScheduleForms(ctx context.Context, scheduleID string) ([]schedule.ScheduleForm, error) {
	var sfs []schedule.ScheduleForm
	err := c.do(ctx, http.MethodGet, "/api/schedules/"+url.PathEscape(scheduleID)+"/forms", nil, nil, &sfs)
	return sfs, err
}

func (c *Client) ChangeStatus(ctx context.Context, scheduleID string, status schedule.Status) (ScheduleView, error) {
	var view ScheduleView
	path := "/api/schedules/" + url.PathEscape(scheduleID) + "/status"
	err := c.do(ctx, http.MethodPost, path, nil, schedule.ChangeStatus{Status: status}, &view)
	return view, err
}

func (c *Client) AttachForm(ctx context.Context, af schedule.AttachForm) (schedule.ScheduleForm, error) {
	var sf schedule.ScheduleForm
	err := c.do(ctx, http.MethodPost, "/api/schedule-forms", nil, af, &sf)
	return sf, err
}

func (c *Client) Submit(ctx context.Context, ns submission.NewSubmission) (submission.Submission, error) {
	var sub submission.Submission
	err := c.do(ctx, http.MethodPost, "/api/form-submissions", nil, ns, &sub)
	return sub, err
}

func (c *Client) Submissions(ctx context.Context, filter submission.QueryFilter) ([]submission.Submission, error) {
	var subs []submission.Submission
	q := url.Values{}
	if filter.ScheduleID != "" {
		q.Set("schedule_id", filter.ScheduleID)
	}
	if filter.FormID != "" {
		q.Set("form_id", filter.FormID)
	}
	if filter.SubmittedBy != "" {
		q.Set("submitted_by", filter.SubmittedBy)
	}
	err := c.do(ctx, http.MethodGet, "/api/form-submissions", q, nil, &subs)
	return subs, err
}

// ExportSubmissions downloads the submissions of a form within a schedule as an xlsx workbook.
func (c *Client) ExportSubmissions(ctx context.Context, scheduleID, formID string) (Export, error) {
	q := url.Values{"schedule_id": {scheduleID}, "form_id": {formID}}
	req, err := c.newRequest(ctx, http.MethodGet, "/api/form-submissions/export", q, nil)
	if err != nil {
		return Export{}, err
	}
	resp, err := c.send(req)
	if err != nil {
		return Export{}, err
	}
	defer resp.Body.Close()

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return Export{}, errors.Wrap(err, "reading export")
	}
	exp := Export{Content: content}
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil {
		exp.Filename = params["filename"]
	}
	return exp, nil
}

// UserProgress returns the progress of the signed in user. Admins and department users get
// the progress of userID instead.
func (c *Client) UserProgress(ctx context.Context, scheduleID, userID string) (report.UserProgress, error) {
	var progress report.UserProgress
	q := url.Values{}
	if userID != "" {
		q.Set("user_id", userID)
	}
	err := c.do(ctx, http.MethodGet, "/api/schedules/"+url.PathEscape(scheduleID)+"/progress", q, nil, &progress)
	return progress, err
}

func (c *Client) ScheduleProgress(ctx context.Context, scheduleID string) (report.ScheduleProgress, error) {
	var progress report.ScheduleProgress
	err := c.do(ctx, http.MethodGet, "/api/schedules/"+url.PathEscape(scheduleID)+"/progress", nil, nil, &progress)
	return progress, err
}

func (c *Client) Alerts(ctx context.Context) ([]alert.Alert, error) {
	var alerts []alert.Alert
	err := c.do(ctx, http.MethodGet, "/api/alerts", nil, nil, &alerts)
	return alerts, err
}

func (c *Client) Indicators(ctx context.Context) ([]report.Indicator, error) {
	var indicators []report.Indicator
	err := c.do(ctx, http.MethodGet, "/api/sdg/indicators", nil, nil, &indicators)
	return indicators, err
}
