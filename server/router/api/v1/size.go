package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/a8ns/storefront/store"
)

type Size struct {
	ID   int32  `json:"id"`
	Name string `json:"name"`
}

type CreateSizeRequest struct {
	Name string `json:"name"`
}

func (s *APIV1Service) registerSizeRoutes(g *echo.Group) {
	g.GET("/sizes", s.listSizes)
	g.POST("/sizes", s.createSize, s.requireSuperuser)
	g.DELETE("/sizes/:id", s.deleteSize, s.requireSuperuser)
}

// listSizes handles GET /api/v1/sizes.
func (s *APIV1Service) listSizes(c echo.Context) error {
	ctx := c.Request().Context()

	sizes, err := s.Store.ListSizes(ctx, &store.FindSize{})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to list sizes").SetInternal(err)
	}
	result := make([]*Size, 0, len(sizes))
	for _, size := range sizes {
		result = append(result, convertSizeFromStore(size))
	}
	return c.JSON(http.StatusOK, result)
}

// createSize handles POST /api/v1/sizes.
func (s *APIV1Service) createSize(c echo.Context) error {
	ctx := c.Request().Context()

	req := &CreateSizeRequest{}
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Malformed create size request").SetInternal(err)
	}
	if req.Name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Size name is required")
	}

	size, err := s.Store.CreateSize(ctx, &store.Size{Name: req.Name})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to create size").SetInternal(err)
	}
	return c.JSON(http.StatusOK, convertSizeFromStore(size))
}

// deleteSize handles DELETE /api/v1/sizes/:id.
func (s *APIV1Service) deleteSize(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := parseID(c)
	if err != nil {
		return err
	}
	sizes, err := s.Store.ListSizes(ctx, &store.FindSize{ID: &id})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to find size").SetInternal(err)
	}
	if len(sizes) == 0 {
		return echo.NewHTTPError(http.StatusNotFound, "Size not found")
	}

	if err := s.Store.DeleteSize(ctx, &store.DeleteSize{ID: id}); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to delete size").SetInternal(err)
	}
	return c.JSON(http.StatusOK, convertSizeFromStore(sizes[0]))
}

func convertSizeFromStore(size *store.Size) *Size {
	return &Size{
		ID:   size.ID,
		Name: size.Name,
	}
}
