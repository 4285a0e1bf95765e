package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/a8ns/storefront/store"
)

type Color struct {
	ID   int32  `json:"id"`
	Name string `json:"name"`
	Code string `json:"code"`
}

type CreateColorRequest struct {
	Name string `json:"name"`
	Code string `json:"code"`
}

func (s *APIV1Service) registerColorRoutes(g *echo.Group) {
	g.GET("/colors", s.listColors)
	g.POST("/colors", s.createColor, s.requireSuperuser)
	g.DELETE("/colors/:id", s.deleteColor, s.requireSuperuser)
}

// listColors handles GET /api/v1/colors.
func (s *APIV1Service) listColors(c echo.Context) error {
	ctx := c.Request().Context()

	colors, err := s.Store.ListColors(ctx, &store.FindColor{})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to list colors").SetInternal(err)
	}
	result := make([]*Color, 0, len(colors))
	for _, color := range colors {
		result = append(result, convertColorFromStore(color))
	}
	return c.JSON(http.StatusOK, result)
}

// createColor handles POST /api/v1/colors.
func (s *APIV1Service) createColor(c echo.Context) error {
	ctx := c.Request().Context()

	req := &CreateColorRequest{}
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Malformed create color request").SetInternal(err)
	}
	if req.Name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Color name is required")
	}

	color, err := s.Store.CreateColor(ctx, &store.Color{Name: req.Name, Code: req.Code})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to create color").SetInternal(err)
	}
	return c.JSON(http.StatusOK, convertColorFromStore(color))
}

// deleteColor handles DELETE /api/v1/colors/:id.
func (s *APIV1Service) deleteColor(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := parseID(c)
	if err != nil {
		return err
	}
	colors, err := s.Store.ListColors(ctx, &store.FindColor{ID: &id})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to find color").SetInternal(err)
	}
	if len(colors) == 0 {
		return echo.NewHTTPError(http.StatusNotFound, "Color not found")
	}

	if err := s.Store.DeleteColor(ctx, &store.DeleteColor{ID: id}); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to delete color").SetInternal(err)
	}
	return c.JSON(http.StatusOK, convertColorFromStore(colors[0]))
}

func convertColorFromStore(color *store.Color) *Color {
	return &Color{
		ID:   color.ID,
		Name: color.Name,
		Code: color.Code,
	}
}
