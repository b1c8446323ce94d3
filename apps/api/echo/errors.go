package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/statbureau/datahub/core"
	"github.com/statbureau/datahub/core/user"
)

var (
	errUnauthorized         = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errAuthenticationFailed = echo.NewHTTPError(http.StatusBadRequest, "invalid email or password")
	errAccountDeactivated   = echo.NewHTTPError(http.StatusForbidden, "account deactivated")
	errSignupDisabled       = echo.NewHTTPError(http.StatusForbidden, "sign up is disabled")
	errHttpForbidden        = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errHttpNotFound         = echo.NewHTTPError(http.StatusNotFound, "not found")
)

// statusOf returns the status code the error handler answers err with.
func statusOf(err error) int {
	var (
		httpErr *echo.HTTPError
		dupErr  *core.DuplicateError
		stErr   *core.StateError
		nfErr   *core.NotFoundError
		valErr  *core.ValidationError
		vErrs   validator.ValidationErrors
	)
	switch {
	case errors.As(err, &httpErr):
		return httpErr.Code
	case errors.As(err, &vErrs), errors.As(err, &valErr):
		return http.StatusBadRequest
	case errors.As(err, &dupErr), errors.As(err, &stErr):
		return http.StatusConflict
	case errors.As(err, &nfErr):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func fieldMessages(flds []core.FieldError) map[string]string {
	msgs := make(map[string]string, len(flds))
	for _, f := range flds {
		msgs[f.Field] = f.Error
	}
	return msgs
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		code := statusOf(err)
		var message interface{}

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
				origErr = herr
				code = herr.Code
			}
			message = origErr.Message
		case validator.ValidationErrors:
			valErr := core.TranslateValidationErrors(origErr, translator).(*core.ValidationError)
			message = fieldMessages(valErr.Fields)
		case *core.ValidationError:
			if len(origErr.Fields) > 0 {
				message = fieldMessages(origErr.Fields)
			} else {
				message = origErr.Error()
			}
		case *core.DuplicateError:
			if origErr.Field != "" {
				message = map[string]string{origErr.Field: origErr.Error()}
			} else {
				message = origErr.Error()
			}
		case *core.StateError, *core.NotFoundError:
			message = origErr.Error()
		default: // any other error is a server error
			code = http.StatusInternalServerError
			msg := http.StatusText(http.StatusInternalServerError)
			message = msg

			if usr, ok := ctx.Get(contextUserKey).(user.User); ok {
				logger.Error(msg, errors.Wrap(err, msg), usr)
			} else {
				logger.Error(msg, errors.Wrap(err, msg))
			}

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		if ctx.Echo().Debug && code == http.StatusInternalServerError {
			message = err.Error()
		}
		if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
