package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/statbureau/datahub/core"
	"github.com/statbureau/datahub/core/alert"
	"github.com/statbureau/datahub/core/report"
	"github.com/statbureau/datahub/core/schedule"
)

type reportApi struct {
	svc      *report.Service
	schedSvc *schedule.Service
}

func registerReportAPI(g *echo.Group, session echo.MiddlewareFunc, deps ServerDeps) {
	api := &reportApi{svc: deps.ReportSvc, schedSvc: deps.ScheduleSvc}

	g.GET("/schedules/:id/progress", api.progress, session)
	g.GET("/alerts", api.alerts, session)
	g.GET("/sdg/indicators", api.indicators, session)
}

// progress returns the collection progress of a schedule. Data entry users always get their own.
func (api *reportApi) progress(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	reqCtx := ctx.Request().Context()
	scheduleID := ctx.Param("id")

	userID := ctx.QueryParam("user_id")
	if usr.IsDataEntryUser() {
		userID = usr.ID
	}
	if userID != "" {
		progress, err := api.svc.UserProgress(reqCtx, scheduleID, userID)
		if err != nil {
			return errors.Wrap(err, "computing user progress")
		}
		return ctx.JSON(http.StatusOK, progress)
	}

	progress, err := api.svc.ScheduleProgress(reqCtx, scheduleID)
	if err != nil {
		return errors.Wrap(err, "computing schedule progress")
	}
	return ctx.JSON(http.StatusOK, progress)
}

func (api *reportApi) alerts(ctx echo.Context) error {
	schedules, err := api.schedSvc.List(ctx.Request().Context(), schedule.QueryFilter{})
	if err != nil {
		return errors.Wrap(err, "querying schedules")
	}
	alerts := alert.Derive(schedules, core.Today().Time)
	if alerts == nil {
		alerts = []alert.Alert{}
	}
	return ctx.JSON(http.StatusOK, alerts)
}

func (api *reportApi) indicators(ctx echo.Context) error {
	indicators, err := report.Indicators()
	if err != nil {
		return errors.Wrap(err, "loading SDG indicators")
	}
	return ctx.JSON(http.StatusOK, indicators)
}
