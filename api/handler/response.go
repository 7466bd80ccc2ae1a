package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"vividly/api/middleware"
	"vividly/internal/entity"
	"vividly/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

var (
	errUnauthorized = errors.New("unauthorized")
	errInvalidID    = errors.New("invalid id")
)

func decodeJSON(c echo.Context, target any) error {
	decoder := json.NewDecoder(c.Request().Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(target)
}

// decodeOptionalJSON accepts an empty body and leaves target untouched.
func decodeOptionalJSON(c echo.Context, target any) error {
	if c.Request().ContentLength == 0 {
		return nil
	}
	err := decodeJSON(c, target)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func validate(v *validator.Validate, payload any) error {
	if v == nil {
		return nil
	}
	return v.Struct(payload)
}

func bind(c echo.Context, v *validator.Validate, target any) error {
	if err := decodeJSON(c, target); err != nil {
		return err
	}
	return validate(v, target)
}

func writeError(c echo.Context, status int, err error) error {
	return c.JSON(status, map[string]string{"message": err.Error()})
}

// writeServiceError maps a service failure to its HTTP status. Server-side
// failures are returned to echo so the request logger records the cause;
// the client only sees the failure's public message.
func writeServiceError(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrGeneratorUnavailable):
		status = http.StatusServiceUnavailable
	case errors.Is(err, service.ErrGenerationFailed):
		status = http.StatusBadGateway
	default:
		switch service.KindOf(err) {
		case service.KindValidation:
			status = http.StatusBadRequest
		case service.KindAuthentication:
			status = http.StatusUnauthorized
		case service.KindAuthorization:
			status = http.StatusForbidden
		case service.KindNotFound:
			status = http.StatusNotFound
		}
	}

	message := "internal server error"
	var failure *service.Failure
	if errors.As(err, &failure) {
		message = failure.Message
	}
	if status >= http.StatusInternalServerError {
		return echo.NewHTTPError(status, message).SetInternal(err)
	}
	return writeError(c, status, errors.New(message))
}

func currentUser(c echo.Context) (*entity.User, bool) {
	return middleware.UserFromContext(c)
}

func parseID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, errInvalidID
	}
	return id, nil
}

func parseSkipLimit(c echo.Context) (int, int) {
	skip, _ := strconv.Atoi(c.QueryParam("skip"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if skip < 0 {
		skip = 0
	}
	if limit < 0 {
		limit = 0
	}
	return skip, limit
}

func queryInt(c echo.Context, name string) int {
	value, _ := strconv.Atoi(c.QueryParam(name))
	return value
}

func stringPtr(value string) *string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return &value
}

func clientIP(c echo.Context) *string {
	return stringPtr(c.RealIP())
}

func userAgent(c echo.Context) *string {
	return stringPtr(c.Request().UserAgent())
}
