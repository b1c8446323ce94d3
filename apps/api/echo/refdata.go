package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/statbureau/datahub/core/refdata"
)

type refdataApi struct {
	svc      *refdata.Service
	validate *validator.Validate
	metrics  *metrics
}

func registerRefdataAPI(g *echo.Group, session echo.MiddlewareFunc, deps ServerDeps, m *metrics) {
	api := &refdataApi{svc: deps.RefdataSvc, validate: deps.Validate, metrics: m}
	admin := adminMiddleware()

	bg := g.Group("/data-banks", session)
	bg.GET("", api.querySets)
	bg.POST("", api.createSet, admin)
	bg.GET("/options/:name", api.options)
	bg.GET("/:id", api.retrieveSet)
	bg.PUT("/:id", api.updateSet, admin)
	bg.DELETE("/:id", api.deactivateSet, admin)
	bg.GET("/:id/entries", api.queryEntries)
	bg.POST("/:id/entries", api.addEntry, admin)
	bg.POST("/:id/entries/bulk", api.bulkAddEntries, admin)

	eg := g.Group("/data-bank-entries", session, admin)
	eg.GET("/:id", api.retrieveEntry)
	eg.PUT("/:id", api.updateEntry)
	eg.DELETE("/:id", api.deactivateEntry)
}

// Data banks

func (api *refdataApi) querySets(ctx echo.Context) error {
	filter := refdata.SetFilter{
		DepartmentID:    ctx.QueryParam("department_id"),
		IncludeInactive: queryBool(ctx, "include_inactive"),
	}
	sets, err := api.svc.ListSets(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying data banks")
	}
	if sets == nil {
		sets = []refdata.DataBank{}
	}
	return ctx.JSON(http.StatusOK, sets)
}

func (api *refdataApi) createSet(ctx echo.Context) error {
	var data refdata.NewDataBank
	if err := bindBody(ctx, &data, "NewDataBank"); err != nil {
		return err
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}

	set, err := api.svc.CreateSet(ctx.Request().Context(), data, &usr.ID)
	if err != nil {
		return errors.Wrap(err, "creating data bank")
	}
	return ctx.JSON(http.StatusCreated, set)
}

func (api *refdataApi) retrieveSet(ctx echo.Context) error {
	set, err := api.svc.GetSet(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding data bank")
	}
	return ctx.JSON(http.StatusOK, set)
}

func (api *refdataApi) updateSet(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	set, err := api.svc.GetSet(reqCtx, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding data bank")
	}

	var data refdata.UpdateDataBank
	if err = bindBody(ctx, &data, "UpdateDataBank"); err != nil {
		return err
	}
	if err = data.Validate(set, api.validate); err != nil {
		return err
	}

	set, err = api.svc.UpdateSet(reqCtx, set.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating data bank")
	}
	return ctx.JSON(http.StatusOK, set)
}

func (api *refdataApi) deactivateSet(ctx echo.Context) error {
	if err := api.svc.DeactivateSet(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deactivating data bank")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *refdataApi) options(ctx echo.Context) error {
	opts, err := api.svc.Options(ctx.Request().Context(), ctx.Param("name"))
	if err != nil {
		return errors.Wrap(err, "loading options")
	}
	if opts == nil {
		opts = []refdata.Option{}
	}
	return ctx.JSON(http.StatusOK, opts)
}

// Entries

func (api *refdataApi) queryEntries(ctx echo.Context) error {
	filter := refdata.EntryFilter{
		Order:           ctx.QueryParam("order"),
		IncludeInactive: queryBool(ctx, "include_inactive"),
	}
	filter.Clean()

	entries, err := api.svc.ListEntries(ctx.Request().Context(), ctx.Param("id"), filter)
	if err != nil {
		return errors.Wrap(err, "querying entries")
	}
	if entries == nil {
		entries = []refdata.Entry{}
	}
	return ctx.JSON(http.StatusOK, entries)
}

func (api *refdataApi) addEntry(ctx echo.Context) error {
	var data refdata.NewEntry
	if err := bindBody(ctx, &data, "NewEntry"); err != nil {
		return err
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}

	entry, err := api.svc.AddEntry(ctx.Request().Context(), ctx.Param("id"), data, &usr.ID)
	if err != nil {
		return errors.Wrap(err, "adding entry")
	}
	return ctx.JSON(http.StatusCreated, entry)
}

func (api *refdataApi) bulkAddEntries(ctx echo.Context) error {
	var data refdata.BulkEntries
	if err := bindBody(ctx, &data, "BulkEntries"); err != nil {
		return err
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}

	res, err := api.svc.BulkAddEntries(ctx.Request().Context(), ctx.Param("id"), data.Raw, &usr.ID)
	if err != nil {
		return errors.Wrap(err, "importing entries")
	}
	api.metrics.bulkImport(len(res.Inserted), len(res.Skipped))
	if res.Inserted == nil {
		res.Inserted = []refdata.Entry{}
	}
	if res.Skipped == nil {
		res.Skipped = []string{}
	}
	return ctx.JSON(http.StatusCreated, res)
}

func (api *refdataApi) retrieveEntry(ctx echo.Context) error {
	entry, err := api.svc.GetEntry(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding entry")
	}
	return ctx.JSON(http.StatusOK, entry)
}

func (api *refdataApi) updateEntry(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	entry, err := api.svc.GetEntry(reqCtx, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding entry")
	}

	var data refdata.UpdateEntry
	if err = bindBody(ctx, &data, "UpdateEntry"); err != nil {
		return err
	}
	if err = data.Validate(entry, api.validate); err != nil {
		return err
	}

	entry, err = api.svc.UpdateEntry(reqCtx, entry.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating entry")
	}
	return ctx.JSON(http.StatusOK, entry)
}

func (api *refdataApi) deactivateEntry(ctx echo.Context) error {
	if err := api.svc.DeactivateEntry(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deactivating entry")
	}
	return ctx.NoContent(http.StatusNoContent)
}
