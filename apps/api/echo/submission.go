package echoapi

import (
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/statbureau/datahub/core"
	"github.com/statbureau/datahub/core/report"
	"github.com/statbureau/datahub/core/submission"
	"github.com/statbureau/datahub/core/user"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type submissionApi struct {
	svc       *submission.Service
	reportSvc *report.Service
	logger    core.Logger
	validate  *validator.Validate
	metrics   *metrics
}

func registerSubmissionAPI(g *echo.Group, session echo.MiddlewareFunc, deps ServerDeps, m *metrics) {
	api := &submissionApi{
		svc:       deps.SubmissionSvc,
		reportSvc: deps.ReportSvc,
		logger:    deps.Logger,
		validate:  deps.Validate,
		metrics:   m,
	}

	sg := g.Group("/form-submissions", session)
	sg.GET("", api.query)
	sg.POST("", api.submit)
	sg.GET("/export", api.export, roleMiddleware(user.RoleAdmin, user.RoleDepartmentUser))
	sg.GET("/:id", api.retrieve)
}

func (api *submissionApi) query(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	filter := submission.QueryFilter{
		ScheduleID:  ctx.QueryParam("schedule_id"),
		FormID:      ctx.QueryParam("form_id"),
		SubmittedBy: ctx.QueryParam("submitted_by"),
	}
	// data entry users only ever see their own submissions
	if usr.IsDataEntryUser() {
		filter.SubmittedBy = usr.ID
	}

	subs, err := api.svc.List(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying submissions")
	}
	if subs == nil {
		subs = []submission.Submission{}
	}
	return ctx.JSON(http.StatusOK, subs)
}

func (api *submissionApi) submit(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	var data submission.NewSubmission
	if err = bindBody(ctx, &data, "NewSubmission"); err != nil {
		return err
	}
	if err = data.Validate(api.validate); err != nil {
		api.metrics.submission(err)
		return err
	}

	sub, err := api.svc.Submit(ctx.Request().Context(), data, usr.ID)
	api.metrics.submission(err)
	if err != nil {
		return errors.Wrap(err, "submitting form")
	}
	return ctx.JSON(http.StatusCreated, sub)
}

func (api *submissionApi) retrieve(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	sub, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding submission")
	}
	if usr.IsDataEntryUser() && sub.SubmittedBy != usr.ID {
		return errHttpNotFound
	}
	return ctx.JSON(http.StatusOK, sub)
}

func (api *submissionApi) export(ctx echo.Context) error {
	scheduleID, formID := ctx.QueryParam("schedule_id"), ctx.QueryParam("form_id")
	var flds []core.FieldError
	if scheduleID == "" {
		flds = append(flds, core.FieldError{Field: "schedule_id", Error: "this field is required"})
	}
	if formID == "" {
		flds = append(flds, core.FieldError{Field: "form_id", Error: "this field is required"})
	}
	if len(flds) > 0 {
		return core.NewValidationError(nil, flds...)
	}

	f, filename, err := api.reportSvc.ExportSubmissions(ctx.Request().Context(), scheduleID, formID)
	if err != nil {
		return errors.Wrap(err, "exporting submissions")
	}
	defer func() {
		if err := f.Close(); err != nil {
			api.logger.Warn("closing export workbook", err)
		}
	}()

	buf, err := f.WriteToBuffer()
	if err != nil {
		return errors.Wrap(err, "writing export workbook")
	}
	ctx.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return ctx.Blob(http.StatusOK, xlsxContentType, buf.Bytes())
}
