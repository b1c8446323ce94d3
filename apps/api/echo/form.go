package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/statbureau/datahub/core/form"
)

type formApi struct {
	svc      *form.Service
	validate *validator.Validate
}

func registerFormAPI(g *echo.Group, session echo.MiddlewareFunc, deps ServerDeps) {
	api := &formApi{svc: deps.FormSvc, validate: deps.Validate}
	admin := adminMiddleware()

	fg := g.Group("/forms", session)
	fg.GET("", api.query)
	fg.POST("", api.create, admin)
	fg.GET("/field-types", api.queryFieldTypes)
	fg.GET("/:id", api.retrieve)
	fg.PUT("/:id", api.update, admin)
	fg.DELETE("/:id", api.deactivate, admin)
	fg.GET("/:id/fields", api.definition)
	fg.PUT("/:id/fields", api.defineFields, admin)
}

func (api *formApi) query(ctx echo.Context) error {
	filter := form.QueryFilter{
		DepartmentID:    ctx.QueryParam("department_id"),
		Search:          ctx.QueryParam("search"),
		IncludeInactive: queryBool(ctx, "include_inactive"),
	}
	filter.Clean()

	forms, err := api.svc.List(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying forms")
	}
	if forms == nil {
		forms = []form.Form{}
	}
	return ctx.JSON(http.StatusOK, forms)
}

func (api *formApi) queryFieldTypes(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, form.FieldTypes)
}

func (api *formApi) create(ctx echo.Context) error {
	var data form.NewForm
	if err := bindBody(ctx, &data, "NewForm"); err != nil {
		return err
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}

	frm, err := api.svc.Create(ctx.Request().Context(), data, &usr.ID)
	if err != nil {
		return errors.Wrap(err, "creating form")
	}
	return ctx.JSON(http.StatusCreated, frm)
}

func (api *formApi) retrieve(ctx echo.Context) error {
	frm, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding form")
	}
	return ctx.JSON(http.StatusOK, frm)
}

func (api *formApi) update(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	frm, err := api.svc.Get(reqCtx, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding form")
	}

	var data form.UpdateForm
	if err = bindBody(ctx, &data, "UpdateForm"); err != nil {
		return err
	}
	if err = data.Validate(frm, api.validate); err != nil {
		return err
	}

	frm, err = api.svc.Update(reqCtx, frm.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating form")
	}
	return ctx.JSON(http.StatusOK, frm)
}

func (api *formApi) deactivate(ctx echo.Context) error {
	if err := api.svc.Deactivate(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deactivating form")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *formApi) definition(ctx echo.Context) error {
	def, err := api.svc.GetDefinition(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "loading form definition")
	}
	return ctx.JSON(http.StatusOK, def)
}

func (api *formApi) defineFields(ctx echo.Context) error {
	var data form.DefineFields
	if err := bindBody(ctx, &data, "DefineFields"); err != nil {
		return err
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	def, err := api.svc.DefineFields(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "defining form fields")
	}
	return ctx.JSON(http.StatusOK, def)
}
