package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/lithammer/shortuuid/v4"

	"github.com/a8ns/storefront/store"
)

type Product struct {
	ID            int32    `json:"id"`
	UID           string   `json:"uid"`
	ShopID        int32    `json:"shop_id"`
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	Price         float64  `json:"price"`
	Brand         string   `json:"brand"`
	ArticleNumber string   `json:"article_number"`
	Barcode       string   `json:"barcode"`
	ImageURL      string   `json:"image_url"`
	InStock       bool     `json:"in_stock"`
	StockQuantity int32    `json:"stock_quantity"`
	CategoryID    *int32   `json:"category_id"`
	CategoryName  string   `json:"category_name"`
	Tags          []string `json:"tags"`
	IsActive      bool     `json:"is_active"`
	CreatedTs     int64    `json:"created_ts"`
	UpdatedTs     int64    `json:"updated_ts"`
}

type CreateProductRequest struct {
	ShopID        int32    `json:"shop_id"`
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	Price         float64  `json:"price"`
	Brand         string   `json:"brand"`
	ArticleNumber string   `json:"article_number"`
	Barcode       string   `json:"barcode"`
	ImageURL      string   `json:"image_url"`
	InStock       *bool    `json:"in_stock"`
	StockQuantity int32    `json:"stock_quantity"`
	CategoryID    *int32   `json:"category_id"`
	Tags          []string `json:"tags"`
	IsActive      *bool    `json:"is_active"`
}

type UpdateProductRequest struct {
	Title         *string  `json:"title"`
	Description   *string  `json:"description"`
	Price         *float64 `json:"price"`
	Brand         *string  `json:"brand"`
	ArticleNumber *string  `json:"article_number"`
	Barcode       *string  `json:"barcode"`
	ImageURL      *string  `json:"image_url"`
	InStock       *bool    `json:"in_stock"`
	StockQuantity *int32   `json:"stock_quantity"`
	CategoryID    *int32   `json:"category_id"`
	Tags          []string `json:"tags"`
	IsActive      *bool    `json:"is_active"`
}

func (s *APIV1Service) registerProductRoutes(g *echo.Group) {
	g.GET("/products", s.listProducts)
	g.GET("/products/:id", s.getProduct)
	g.POST("/products", s.createProduct, s.requireSuperuser)
	g.PUT("/products/:id", s.updateProduct, s.requireSuperuser)
	g.DELETE("/products/:id", s.deleteProduct, s.requireSuperuser)
}

// listProducts handles GET /api/v1/products.
func (s *APIV1Service) listProducts(c echo.Context) error {
	ctx := c.Request().Context()

	skip, limit, err := parsePagination(c)
	if err != nil {
		return err
	}
	find := &store.FindProduct{Limit: &limit, Offset: &skip}
	if find.ShopID, err = parseInt32Param(c, "shop_id"); err != nil {
		return err
	}
	if find.CategoryID, err = parseInt32Param(c, "category_id"); err != nil {
		return err
	}
	if brand := c.QueryParam("brand"); brand != "" {
		find.Brand = &brand
	}
	if find.InStock, err = parseBoolParam(c, "in_stock"); err != nil {
		return err
	}
	if find.IsActive, err = parseBoolParam(c, "is_active"); err != nil {
		return err
	}

	products, err := s.Store.ListProducts(ctx, find)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to list products").SetInternal(err)
	}
	result := make([]*Product, 0, len(products))
	for _, product := range products {
		result = append(result, convertProductFromStore(product))
	}
	return c.JSON(http.StatusOK, result)
}

// getProduct handles GET /api/v1/products/:id.
func (s *APIV1Service) getProduct(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := parseID(c)
	if err != nil {
		return err
	}
	product, err := s.Store.GetProduct(ctx, id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to find product").SetInternal(err)
	}
	if product == nil {
		return echo.NewHTTPError(http.StatusNotFound, "Product not found")
	}
	return c.JSON(http.StatusOK, convertProductFromStore(product))
}

// createProduct handles POST /api/v1/products.
func (s *APIV1Service) createProduct(c echo.Context) error {
	ctx := c.Request().Context()

	req := &CreateProductRequest{}
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Malformed create product request").SetInternal(err)
	}
	if req.Title == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Product title is required")
	}
	if req.ShopID == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "Product shop_id is required")
	}

	create := &store.Product{
		UID:           shortuuid.New(),
		ShopID:        req.ShopID,
		Title:         req.Title,
		Description:   req.Description,
		Price:         req.Price,
		Brand:         req.Brand,
		ArticleNumber: req.ArticleNumber,
		Barcode:       req.Barcode,
		ImageURL:      req.ImageURL,
		InStock:       true,
		StockQuantity: req.StockQuantity,
		CategoryID:    req.CategoryID,
		Tags:          req.Tags,
		IsActive:      true,
	}
	if req.InStock != nil {
		create.InStock = *req.InStock
	}
	if req.IsActive != nil {
		create.IsActive = *req.IsActive
	}

	product, err := s.Store.CreateProduct(ctx, create)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to create product").SetInternal(err)
	}
	return c.JSON(http.StatusOK, convertProductFromStore(product))
}

// updateProduct handles PUT /api/v1/products/:id.
func (s *APIV1Service) updateProduct(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := parseID(c)
	if err != nil {
		return err
	}
	product, err := s.Store.GetProduct(ctx, id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to find product").SetInternal(err)
	}
	if product == nil {
		return echo.NewHTTPError(http.StatusNotFound, "Product not found")
	}

	req := &UpdateProductRequest{}
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Malformed update product request").SetInternal(err)
	}

	updated, err := s.Store.UpdateProduct(ctx, &store.UpdateProduct{
		ID:            id,
		Title:         req.Title,
		Description:   req.Description,
		Price:         req.Price,
		Brand:         req.Brand,
		ArticleNumber: req.ArticleNumber,
		Barcode:       req.Barcode,
		ImageURL:      req.ImageURL,
		InStock:       req.InStock,
		StockQuantity: req.StockQuantity,
		CategoryID:    req.CategoryID,
		Tags:          req.Tags,
		IsActive:      req.IsActive,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to update product").SetInternal(err)
	}
	return c.JSON(http.StatusOK, convertProductFromStore(updated))
}

// deleteProduct handles DELETE /api/v1/products/:id.
func (s *APIV1Service) deleteProduct(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := parseID(c)
	if err != nil {
		return err
	}
	product, err := s.Store.GetProduct(ctx, id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to find product").SetInternal(err)
	}
	if product == nil {
		return echo.NewHTTPError(http.StatusNotFound, "Product not found")
	}

	if err := s.Store.DeleteProduct(ctx, &store.DeleteProduct{ID: id}); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to delete product").SetInternal(err)
	}
	return c.JSON(http.StatusOK, convertProductFromStore(product))
}

func convertProductFromStore(product *store.Product) *Product {
	tags := product.Tags
	if tags == nil {
		tags = []string{}
	}
	return &Product{
		ID:            product.ID,
		UID:           product.UID,
		ShopID:        product.ShopID,
		Title:         product.Title,
		Description:   product.Description,
		Price:         product.Price,
		Brand:         product.Brand,
		ArticleNumber: product.ArticleNumber,
		Barcode:       product.Barcode,
		ImageURL:      product.ImageURL,
		InStock:       product.InStock,
		StockQuantity: product.StockQuantity,
		CategoryID:    product.CategoryID,
		CategoryName:  product.CategoryName,
		Tags:          tags,
		IsActive:      product.IsActive,
		CreatedTs:     product.CreatedTs,
		UpdatedTs:     product.UpdatedTs,
	}
}
