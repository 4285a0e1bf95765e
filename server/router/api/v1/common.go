package v1

import (
	stderrors "errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	serviceerrors "github.com/a8ns/storefront/internal/errors"
)

// toHTTPError maps a coded service error to its HTTP status. Errors without a
// code surface as 500 with a generic message; the cause stays internal.
func toHTTPError(err error) *echo.HTTPError {
	var svcErr *serviceerrors.ServiceError
	if !stderrors.As(err, &svcErr) {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error").SetInternal(err)
	}

	status := http.StatusInternalServerError
	switch svcErr.Code {
	case serviceerrors.ErrCodeInvalidMethod,
		serviceerrors.ErrCodeInvalidArgument,
		serviceerrors.ErrCodeQuerySyntax,
		serviceerrors.ErrCodeFeatureDisabled:
		status = http.StatusBadRequest
	case serviceerrors.ErrCodeUnauthorized:
		status = http.StatusUnauthorized
	case serviceerrors.ErrCodeNotFound:
		status = http.StatusNotFound
	case serviceerrors.ErrCodeTimeout:
		status = http.StatusGatewayTimeout
	}
	return echo.NewHTTPError(status, svcErr.Message).SetInternal(err)
}

// parseID parses the :id path parameter.
func parseID(c echo.Context) (int32, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 32)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "Invalid id parameter").SetInternal(err)
	}
	return int32(id), nil
}

// parsePagination parses the skip/limit query parameters with the
// conventional defaults (skip 0, limit 100).
func parsePagination(c echo.Context) (int, int, error) {
	skip, err := parseIntParam(c, "skip", 0)
	if err != nil {
		return 0, 0, err
	}
	limit, err := parseIntParam(c, "limit", 100)
	if err != nil {
		return 0, 0, err
	}
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 {
		limit = 100
	}
	return skip, limit, nil
}

func parseIntParam(c echo.Context, name string, defaultValue int) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return defaultValue, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "Invalid "+name+" parameter").SetInternal(err)
	}
	return value, nil
}

// parseInt32Param parses an optional int32 query parameter, nil when absent.
func parseInt32Param(c echo.Context, name string) (*int32, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, nil
	}
	value, err := strconv.ParseInt(raw, 10, 32)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "Invalid "+name+" parameter").SetInternal(err)
	}
	v := int32(value)
	return &v, nil
}

// parseBoolParam parses an optional bool query parameter, nil when absent.
func parseBoolParam(c echo.Context, name string) (*bool, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "Invalid "+name+" parameter").SetInternal(err)
	}
	return &value, nil
}

// parseFloatParam parses an optional float query parameter, nil when absent.
func parseFloatParam(c echo.Context, name string) (*float64, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "Invalid "+name+" parameter").SetInternal(err)
	}
	return &value, nil
}
