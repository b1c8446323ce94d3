package echoapi

import (
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/statbureau/datahub/core"
)

var orderingParam = "ordering"

type Ordering struct {
	Orderings []core.DBOrdering
}

// Bind reads `?ordering=field,-other`; a leading "-" sorts descending.
func (ord *Ordering) Bind(ctx echo.Context) {
	val := ctx.QueryParam(orderingParam)
	if val == "" {
		return
	}
	for _, field := range strings.Split(val, ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		if field == "" {
			continue
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

// bindBody binds the JSON body only; path and query parameters are read explicitly.
func bindBody(ctx echo.Context, dest interface{}, name string) error {
	if err := (&echo.DefaultBinder{}).BindBody(ctx, dest); err != nil {
		var httpErr *echo.HTTPError
		if errors.As(err, &httpErr) {
			return core.NewValidationError(errors.Errorf("invalid %s payload", name))
		}
		return errors.Wrapf(err, "binding to %s", name)
	}
	return nil
}

// optionalBool parses an optional boolean query parameter; invalid values are ignored.
func optionalBool(ctx echo.Context, name string) *bool {
	val := ctx.QueryParam(name)
	if val == "" {
		return nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return nil
	}
	return &b
}

func queryBool(ctx echo.Context, name string) bool {
	b := optionalBool(ctx, name)
	return b != nil && *b
}

type SuccessResponse struct {
	Success string `json:"success"`
}
