package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/a8ns/storefront/store"
)

type Category struct {
	ID           int32  `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	ParentID     *int32 `json:"parent_id"`
	ProductCount int64  `json:"product_count"`
	CreatedTs    int64  `json:"created_ts"`
	UpdatedTs    int64  `json:"updated_ts"`
}

type CreateCategoryRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	ParentID    *int32 `json:"parent_id"`
}

type UpdateCategoryRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	ParentID    *int32  `json:"parent_id"`
}

func (s *APIV1Service) registerCategoryRoutes(g *echo.Group) {
	g.GET("/categories", s.listCategories)
	g.GET("/categories/:id", s.getCategory)
	g.POST("/categories", s.createCategory, s.requireSuperuser)
	g.PUT("/categories/:id", s.updateCategory, s.requireSuperuser)
	g.DELETE("/categories/:id", s.deleteCategory, s.requireSuperuser)
}

// listCategories handles GET /api/v1/categories.
func (s *APIV1Service) listCategories(c echo.Context) error {
	ctx := c.Request().Context()

	skip, limit, err := parsePagination(c)
	if err != nil {
		return err
	}
	find := &store.FindCategory{Limit: &limit, Offset: &skip}
	parentID, err := parseInt32Param(c, "parent_id")
	if err != nil {
		return err
	}
	find.ParentID = parentID

	categories, err := s.Store.ListCategories(ctx, find)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to list categories").SetInternal(err)
	}
	result := make([]*Category, 0, len(categories))
	for _, category := range categories {
		result = append(result, convertCategoryFromStore(category))
	}
	return c.JSON(http.StatusOK, result)
}

// getCategory handles GET /api/v1/categories/:id.
func (s *APIV1Service) getCategory(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := parseID(c)
	if err != nil {
		return err
	}
	category, err := s.Store.GetCategory(ctx, id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to find category").SetInternal(err)
	}
	if category == nil {
		return echo.NewHTTPError(http.StatusNotFound, "Category not found")
	}
	return c.JSON(http.StatusOK, convertCategoryFromStore(category))
}

// createCategory handles POST /api/v1/categories.
func (s *APIV1Service) createCategory(c echo.Context) error {
	ctx := c.Request().Context()

	req := &CreateCategoryRequest{}
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Malformed create category request").SetInternal(err)
	}
	if req.Name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Category name is required")
	}

	category, err := s.Store.CreateCategory(ctx, &store.Category{
		Name:        req.Name,
		Description: req.Description,
		ParentID:    req.ParentID,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to create category").SetInternal(err)
	}
	return c.JSON(http.StatusOK, convertCategoryFromStore(category))
}

// updateCategory handles PUT /api/v1/categories/:id.
func (s *APIV1Service) updateCategory(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := parseID(c)
	if err != nil {
		return err
	}
	category, err := s.Store.GetCategory(ctx, id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to find category").SetInternal(err)
	}
	if category == nil {
		return echo.NewHTTPError(http.StatusNotFound, "Category not found")
	}

	req := &UpdateCategoryRequest{}
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Malformed update category request").SetInternal(err)
	}

	updated, err := s.Store.UpdateCategory(ctx, &store.UpdateCategory{
		ID:          id,
		Name:        req.Name,
		Description: req.Description,
		ParentID:    req.ParentID,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to update category").SetInternal(err)
	}
	return c.JSON(http.StatusOK, convertCategoryFromStore(updated))
}

// deleteCategory handles DELETE /api/v1/categories/:id.
func (s *APIV1Service) deleteCategory(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := parseID(c)
	if err != nil {
		return err
	}
	category, err := s.Store.GetCategory(ctx, id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to find category").SetInternal(err)
	}
	if category == nil {
		return echo.NewHTTPError(http.StatusNotFound, "Category not found")
	}

	if err := s.Store.DeleteCategory(ctx, &store.DeleteCategory{ID: id}); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to delete category").SetInternal(err)
	}
	return c.JSON(http.StatusOK, convertCategoryFromStore(category))
}

func convertCategoryFromStore(category *store.Category) *Category {
	return &Category{
		ID:           category.ID,
		Name:         category.Name,
		Description:  category.Description,
		ParentID:     category.ParentID,
		ProductCount: category.ProductCount,
		CreatedTs:    category.CreatedTs,
		UpdatedTs:    category.UpdatedTs,
	}
}
