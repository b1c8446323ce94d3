package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/statbureau/datahub/core"
	"github.com/statbureau/datahub/core/alert"
	"github.com/statbureau/datahub/core/form"
	"github.com/statbureau/datahub/core/schedule"
)

type scheduleApi struct {
	svc      *schedule.Service
	validate *validator.Validate
}

// ScheduleView is a schedule as listed on dashboards, with its status badge.
type ScheduleView struct {
	schedule.Schedule
	Badge    alert.Badge `json:"badge"`
	DaysLeft int         `json:"days_left"`
}

func newScheduleView(sch schedule.Schedule) ScheduleView {
	return ScheduleView{
		Schedule: sch,
		Badge:    alert.StatusBadge(sch.Status),
		DaysLeft: alert.DaysUntilEnd(sch.EndDate, core.Today().Time),
	}
}

func registerScheduleAPI(g *echo.Group, session echo.MiddlewareFunc, deps ServerDeps) {
	api := &scheduleApi{svc: deps.ScheduleSvc, validate: deps.Validate}
	admin := adminMiddleware()

	sg := g.Group("/schedules", session)
	sg.GET("", api.query)
	sg.POST("", api.create, admin)
	sg.GET("/:id", api.retrieve)
	sg.PUT("/:id", api.update, admin)
	sg.POST("/:id/status", api.changeStatus, admin)
	sg.GET("/:id/forms", api.queryForms)
	sg.GET("/:id/available-forms", api.queryAvailableForms, admin)

	fg := g.Group("/schedule-forms", session, admin)
	fg.POST("", api.attachForm)
	fg.PUT("/:id", api.updateAttachment)
	fg.DELETE("/:id", api.detachForm)
}

func (api *scheduleApi) query(ctx echo.Context) error {
	filter := schedule.QueryFilter{
		Status:       schedule.Status(ctx.QueryParam("status")),
		DepartmentID: ctx.QueryParam("department_id"),
	}
	filter.Clean()

	schedules, err := api.svc.List(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying schedules")
	}
	views := make([]ScheduleView, 0, len(schedules))
	for _, sch := range schedules {
		views = append(views, newScheduleView(sch))
	}
	return ctx.JSON(http.StatusOK, views)
}

func (api *scheduleApi) create(ctx echo.Context) error {
	var data schedule.NewSchedule
	if err := bindBody(ctx, &data, "NewSchedule"); err != nil {
		return err
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}

	sch, err := api.svc.Create(ctx.Request().Context(), data, &usr.ID)
	if err != nil {
		return errors.Wrap(err, "creating schedule")
	}
	return ctx.JSON(http.StatusCreated, newScheduleView(sch))
}

func (api *scheduleApi) retrieve(ctx echo.Context) error {
	sch, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding schedule")
	}
	return ctx.JSON(http.StatusOK, newScheduleView(sch))
}

func (api *scheduleApi) update(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	sch, err := api.svc.Get(reqCtx, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding schedule")
	}

	var data schedule.UpdateSchedule
	if err = bindBody(ctx, &data, "UpdateSchedule"); err != nil {
		return err
	}
	if err = data.Validate(sch, api.validate); err != nil {
		return err
	}

	sch, err = api.svc.Update(reqCtx, sch.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating schedule")
	}
	return ctx.JSON(http.StatusOK, newScheduleView(sch))
}

func (api *scheduleApi) changeStatus(ctx echo.Context) error {
	var data schedule.ChangeStatus
	if err := bindBody(ctx, &data, "ChangeStatus"); err != nil {
		return err
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	sch, err := api.svc.Transition(ctx.Request().Context(), ctx.Param("id"), data.Status)
	if err != nil {
		return errors.Wrap(err, "changing schedule status")
	}
	return ctx.JSON(http.StatusOK, newScheduleView(sch))
}

func (api *scheduleApi) queryForms(ctx echo.Context) error {
	sfs, err := api.svc.ListForms(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying schedule forms")
	}
	if sfs == nil {
		sfs = []schedule.ScheduleForm{}
	}
	return ctx.JSON(http.StatusOK, sfs)
}

func (api *scheduleApi) queryAvailableForms(ctx echo.Context) error {
	forms, err := api.svc.ListAvailableForms(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying available forms")
	}
	if forms == nil {
		forms = []form.Form{}
	}
	return ctx.JSON(http.StatusOK, forms)
}

// Schedule forms

func (api *scheduleApi) attachForm(ctx echo.Context) error {
	var data schedule.AttachForm
	if err := bindBody(ctx, &data, "AttachForm"); err != nil {
		return err
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	sf, err := api.svc.AttachForm(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "attaching form")
	}
	return ctx.JSON(http.StatusCreated, sf)
}

func (api *scheduleApi) updateAttachment(ctx echo.Context) error {
	var data schedule.UpdateScheduleForm
	if err := bindBody(ctx, &data, "UpdateScheduleForm"); err != nil {
		return err
	}

	sf, err := api.svc.UpdateAttachment(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating schedule form")
	}
	return ctx.JSON(http.StatusOK, sf)
}

func (api *scheduleApi) detachForm(ctx echo.Context) error {
	if err := api.svc.DetachForm(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "detaching form")
	}
	return ctx.NoContent(http.StatusNoContent)
}
