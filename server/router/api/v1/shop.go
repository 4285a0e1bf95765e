package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/a8ns/storefront/store"
)

type Shop struct {
	ID          int32   `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Address     string  `json:"address"`
	City        string  `json:"city"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Phone       string  `json:"phone"`
	Email       string  `json:"email"`
	IsActive    bool    `json:"is_active"`
	CreatedTs   int64   `json:"created_ts"`
	UpdatedTs   int64   `json:"updated_ts"`
}

type CreateShopRequest struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Address     string  `json:"address"`
	City        string  `json:"city"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Phone       string  `json:"phone"`
	Email       string  `json:"email"`
	IsActive    *bool   `json:"is_active"`
}

type UpdateShopRequest struct {
	Title       *string  `json:"title"`
	Description *string  `json:"description"`
	Address     *string  `json:"address"`
	City        *string  `json:"city"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
	Phone       *string  `json:"phone"`
	Email       *string  `json:"email"`
	IsActive    *bool    `json:"is_active"`
}

func (s *APIV1Service) registerShopRoutes(g *echo.Group) {
	g.GET("/shops", s.listShops)
	g.GET("/shops/:id", s.getShop)
	g.POST("/shops", s.createShop, s.requireSuperuser)
	g.PUT("/shops/:id", s.updateShop, s.requireSuperuser)
	g.DELETE("/shops/:id", s.deleteShop, s.requireSuperuser)
}

// listShops handles GET /api/v1/shops.
func (s *APIV1Service) listShops(c echo.Context) error {
	ctx := c.Request().Context()

	skip, limit, err := parsePagination(c)
	if err != nil {
		return err
	}
	find := &store.FindShop{Limit: &limit, Offset: &skip}
	if city := c.QueryParam("city"); city != "" {
		find.City = &city
	}
	isActive, err := parseBoolParam(c, "is_active")
	if err != nil {
		return err
	}
	find.IsActive = isActive

	shops, err := s.Store.ListShops(ctx, find)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to list shops").SetInternal(err)
	}
	result := make([]*Shop, 0, len(shops))
	for _, shop := range shops {
		result = append(result, convertShopFromStore(shop))
	}
	return c.JSON(http.StatusOK, result)
}

// getShop handles GET /api/v1/shops/:id.
func (s *APIV1Service) getShop(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := parseID(c)
	if err != nil {
		return err
	}
	shop, err := s.Store.GetShop(ctx, &store.FindShop{ID: &id})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to find shop").SetInternal(err)
	}
	if shop == nil {
		return echo.NewHTTPError(http.StatusNotFound, "Shop not found")
	}
	return c.JSON(http.StatusOK, convertShopFromStore(shop))
}

// createShop handles POST /api/v1/shops.
func (s *APIV1Service) createShop(c echo.Context) error {
	ctx := c.Request().Context()

	req := &CreateShopRequest{}
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Malformed create shop request").SetInternal(err)
	}
	if req.Title == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Shop title is required")
	}

	create := &store.Shop{
		Title:       req.Title,
		Description: req.Description,
		Address:     req.Address,
		City:        req.City,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
		Phone:       req.Phone,
		Email:       req.Email,
		IsActive:    true,
	}
	if req.IsActive != nil {
		create.IsActive = *req.IsActive
	}

	shop, err := s.Store.CreateShop(ctx, create)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to create shop").SetInternal(err)
	}
	return c.JSON(http.StatusOK, convertShopFromStore(shop))
}

// updateShop handles PUT /api/v1/shops/:id.
func (s *APIV1Service) updateShop(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := parseID(c)
	if err != nil {
		return err
	}
	shop, err := s.Store.GetShop(ctx, &store.FindShop{ID: &id})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to find shop").SetInternal(err)
	}
	if shop == nil {
		return echo.NewHTTPError(http.StatusNotFound, "Shop not found")
	}

	req := &UpdateShopRequest{}
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Malformed update shop request").SetInternal(err)
	}

	update := &store.UpdateShop{
		ID:          id,
		Title:       req.Title,
		Description: req.Description,
		Address:     req.Address,
		City:        req.City,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
		Phone:       req.Phone,
		Email:       req.Email,
		IsActive:    req.IsActive,
	}
	updated, err := s.Store.UpdateShop(ctx, update)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to update shop").SetInternal(err)
	}
	return c.JSON(http.StatusOK, convertShopFromStore(updated))
}

// deleteShop handles DELETE /api/v1/shops/:id.
func (s *APIV1Service) deleteShop(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := parseID(c)
	if err != nil {
		return err
	}
	shop, err := s.Store.GetShop(ctx, &store.FindShop{ID: &id})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to find shop").SetInternal(err)
	}
	if shop == nil {
		return echo.NewHTTPError(http.StatusNotFound, "Shop not found")
	}

	if err := s.Store.DeleteShop(ctx, &store.DeleteShop{ID: id}); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to delete shop").SetInternal(err)
	}
	return c.JSON(http.StatusOK, convertShopFromStore(shop))
}

func convertShopFromStore(shop *store.Shop) *Shop {
	return &Shop{
		ID:          shop.ID,
		Title:       shop.Title,
		Description: shop.Description,
		Address:     shop.Address,
		City:        shop.City,
		Latitude:    shop.Latitude,
		Longitude:   shop.Longitude,
		Phone:       shop.Phone,
		Email:       shop.Email,
		IsActive:    shop.IsActive,
		CreatedTs:   shop.CreatedTs,
		UpdatedTs:   shop.UpdatedTs,
	}
}
