package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/a8ns/storefront/store"
)

type Inventory struct {
	ID               int32  `json:"id"`
	ProductID        int32  `json:"product_id"`
	ColorID          *int32 `json:"color_id"`
	SizeID           *int32 `json:"size_id"`
	Amount           int32  `json:"amount"`
	ShortDescription string `json:"short_description"`
}

type CreateInventoryRequest struct {
	ProductID        int32  `json:"product_id"`
	ColorID          *int32 `json:"color_id"`
	SizeID           *int32 `json:"size_id"`
	Amount           int32  `json:"amount"`
	ShortDescription string `json:"short_description"`
}

type UpdateInventoryRequest struct {
	ColorID          *int32  `json:"color_id"`
	SizeID           *int32  `json:"size_id"`
	Amount           *int32  `json:"amount"`
	ShortDescription *string `json:"short_description"`
}

func (s *APIV1Service) registerInventoryRoutes(g *echo.Group) {
	g.GET("/inventory", s.listInventory)
	g.GET("/inventory/:id", s.getInventory)
	g.POST("/inventory", s.createInventory, s.requireSuperuser)
	g.PUT("/inventory/:id", s.updateInventory, s.requireSuperuser)
	g.DELETE("/inventory/:id", s.deleteInventory, s.requireSuperuser)
}

// listInventory handles GET /api/v1/inventory.
func (s *APIV1Service) listInventory(c echo.Context) error {
	ctx := c.Request().Context()

	skip, limit, err := parsePagination(c)
	if err != nil {
		return err
	}
	find := &store.FindInventory{Limit: &limit, Offset: &skip}
	if find.ProductID, err = parseInt32Param(c, "product_id"); err != nil {
		return err
	}
	if find.ColorID, err = parseInt32Param(c, "color_id"); err != nil {
		return err
	}
	if find.SizeID, err = parseInt32Param(c, "size_id"); err != nil {
		return err
	}

	inventories, err := s.Store.ListInventory(ctx, find)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to list inventory").SetInternal(err)
	}
	result := make([]*Inventory, 0, len(inventories))
	for _, inventory := range inventories {
		result = append(result, convertInventoryFromStore(inventory))
	}
	return c.JSON(http.StatusOK, result)
}

// getInventory handles GET /api/v1/inventory/:id.
func (s *APIV1Service) getInventory(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := parseID(c)
	if err != nil {
		return err
	}
	inventory, err := s.Store.GetInventory(ctx, id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to find inventory item").SetInternal(err)
	}
	if inventory == nil {
		return echo.NewHTTPError(http.StatusNotFound, "Inventory item not found")
	}
	return c.JSON(http.StatusOK, convertInventoryFromStore(inventory))
}

// createInventory handles POST /api/v1/inventory.
func (s *APIV1Service) createInventory(c echo.Context) error {
	ctx := c.Request().Context()

	req := &CreateInventoryRequest{}
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Malformed create inventory request").SetInternal(err)
	}
	if req.ProductID == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "Inventory product_id is required")
	}

	inventory, err := s.Store.CreateInventory(ctx, &store.Inventory{
		ProductID:        req.ProductID,
		ColorID:          req.ColorID,
		SizeID:           req.SizeID,
		Amount:           req.Amount,
		ShortDescription: req.ShortDescription,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to create inventory item").SetInternal(err)
	}
	return c.JSON(http.StatusOK, convertInventoryFromStore(inventory))
}

// updateInventory handles PUT /api/v1/inventory/:id.
func (s *APIV1Service) updateInventory(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := parseID(c)
	if err != nil {
		return err
	}
	inventory, err := s.Store.GetInventory(ctx, id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to find inventory item").SetInternal(err)
	}
	if inventory == nil {
		return echo.NewHTTPError(http.StatusNotFound, "Inventory item not found")
	}

	req := &UpdateInventoryRequest{}
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Malformed update inventory request").SetInternal(err)
	}
	if req.ColorID == nil && req.SizeID == nil && req.Amount == nil && req.ShortDescription == nil {
		return c.JSON(http.StatusOK, convertInventoryFromStore(inventory))
	}

	updated, err := s.Store.UpdateInventory(ctx, &store.UpdateInventory{
		ID:               id,
		ColorID:          req.ColorID,
		SizeID:           req.SizeID,
		Amount:           req.Amount,
		ShortDescription: req.ShortDescription,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to update inventory item").SetInternal(err)
	}
	return c.JSON(http.StatusOK, convertInventoryFromStore(updated))
}

// deleteInventory handles DELETE /api/v1/inventory/:id.
func (s *APIV1Service) deleteInventory(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := parseID(c)
	if err != nil {
		return err
	}
	inventory, err := s.Store.GetInventory(ctx, id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to find inventory item").SetInternal(err)
	}
	if inventory == nil {
		return echo.NewHTTPError(http.StatusNotFound, "Inventory item not found")
	}

	if err := s.Store.DeleteInventory(ctx, &store.DeleteInventory{ID: id}); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to delete inventory item").SetInternal(err)
	}
	return c.JSON(http.StatusOK, convertInventoryFromStore(inventory))
}

func convertInventoryFromStore(inventory *store.Inventory) *Inventory {
	return &Inventory{
		ID:               inventory.ID,
		ProductID:        inventory.ProductID,
		ColorID:          inventory.ColorID,
		SizeID:           inventory.SizeID,
		Amount:           inventory.Amount,
		ShortDescription: inventory.ShortDescription,
	}
}
