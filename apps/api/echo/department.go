package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/statbureau/datahub/core/department"
)

type departmentApi struct {
	svc      *department.Service
	validate *validator.Validate
}

func registerDepartmentAPI(g *echo.Group, session echo.MiddlewareFunc, deps ServerDeps) {
	api := &departmentApi{svc: deps.DepartmentSvc, validate: deps.Validate}
	admin := adminMiddleware()

	dg := g.Group("/departments", session)
	dg.GET("", api.query)
	dg.GET("/:id", api.retrieve)
	dg.POST("", api.create, admin)
	dg.PUT("/:id", api.update, admin)
	dg.DELETE("/:id", api.deactivate, admin)
}

func (api *departmentApi) query(ctx echo.Context) error {
	filter := department.QueryFilter{
		Search:          ctx.QueryParam("search"),
		IncludeInactive: queryBool(ctx, "include_inactive"),
	}
	depts, err := api.svc.List(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying departments")
	}
	if depts == nil {
		depts = []department.Department{}
	}
	return ctx.JSON(http.StatusOK, depts)
}

func (api *departmentApi) retrieve(ctx echo.Context) error {
	dept, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding department")
	}
	return ctx.JSON(http.StatusOK, dept)
}

func (api *departmentApi) create(ctx echo.Context) error {
	var data department.NewDepartment
	if err := bindBody(ctx, &data, "NewDepartment"); err != nil {
		return err
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	dept, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating department")
	}
	return ctx.JSON(http.StatusCreated, dept)
}

func (api *departmentApi) update(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	dept, err := api.svc.Get(reqCtx, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding department")
	}

	var data department.UpdateDepartment
	if err = bindBody(ctx, &data, "UpdateDepartment"); err != nil {
		return err
	}
	if err = data.Validate(dept, api.validate); err != nil {
		return err
	}

	dept, err = api.svc.Update(reqCtx, dept.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating department")
	}
	return ctx.JSON(http.StatusOK, dept)
}

func (api *departmentApi) deactivate(ctx echo.Context) error {
	if err := api.svc.Deactivate(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deactivating department")
	}
	return ctx.NoContent(http.StatusNoContent)
}
