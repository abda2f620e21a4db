package handlers

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"classtrack/core"
	"classtrack/core/attendance"
	"classtrack/core/student"
	"classtrack/core/user"
)

// NewAppHTTPErrorHandler maps application errors to HTTP responses.
// Unknown errors are logged, answered with a 500 and, when they signal an
// unrecoverable storage failure, trigger a graceful shutdown.
func NewAppHTTPErrorHandler(logger core.Logger, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		if ctx.Response().Committed {
			return
		}

		var (
			code = http.StatusInternalServerError
			body interface{}
		)

		switch cause := errors.Cause(err).(type) {
		case *echo.HTTPError:
			code = cause.Code
			body = echo.Map{"error": cause.Message}
		case validator.ValidationErrors:
			code = http.StatusBadRequest
			flds := make(echo.Map, len(cause))
			for _, fldErr := range cause {
				flds[fldErr.Field()] = fldErr.Translate(core.Translator)
			}
			body = echo.Map{"error": "validation error", "fields": flds}
		case *core.ValidationError:
			code = http.StatusBadRequest
			flds := make(echo.Map, len(cause.Fields))
			for _, fld := range cause.Fields {
				flds[fld.Field] = fld.Error
			}
			body = echo.Map{"error": cause.Error(), "fields": flds}
		default:
			switch cause {
			case attendance.ErrDuplicateEntry:
				code = http.StatusConflict
				body = echo.Map{"error": cause.Error()}
			case attendance.ErrInvalidDate, attendance.ErrInvalidStatus:
				code = http.StatusBadRequest
				body = echo.Map{"error": cause.Error()}
			case student.ErrRollNoExists, user.ErrUsernameExists:
				code = http.StatusConflict
				body = echo.Map{"error": cause.Error()}
			case attendance.ErrNotFound, student.ErrNotFound, user.ErrNotFound:
				code = http.StatusNotFound
				body = echo.Map{"error": cause.Error()}
			default:
				logger.Error("unhandled API error", err)
				body = echo.Map{"error": http.StatusText(code)}
			}
		}

		var respErr error
		if ctx.Request().Method == http.MethodHead {
			respErr = ctx.NoContent(code)
		} else {
			respErr = ctx.JSON(code, body)
		}
		if respErr != nil {
			logger.Error("writing error response", respErr)
		}

		if core.IsShutdown(err) {
			signalShutdown()
		}
	}
}
