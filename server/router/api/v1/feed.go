package v1

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/feeds"
	"github.com/labstack/echo/v4"
	"github.com/yuin/goldmark"

	"github.com/a8ns/storefront/store"
)

const maxFeedItemCount = 100

func (s *APIV1Service) registerFeedRoutes(e *echo.Echo) {
	e.GET("/feed/products.rss", s.productsFeed)
}

// productsFeed handles GET /feed/products.rss. It lists the latest active
// products, optionally restricted to one shop.
func (s *APIV1Service) productsFeed(c echo.Context) error {
	ctx := c.Request().Context()

	limit, err := parseIntParam(c, "limit", maxFeedItemCount)
	if err != nil {
		return err
	}
	if limit <= 0 || limit > maxFeedItemCount {
		limit = maxFeedItemCount
	}

	isActive := true
	find := &store.FindProduct{IsActive: &isActive, Limit: &limit}

	feedTitle := "Storefront - New Products"
	shopID, err := parseInt32Param(c, "shop_id")
	if err != nil {
		return err
	}
	if shopID != nil {
		shop, err := s.Store.GetShop(ctx, &store.FindShop{ID: shopID})
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "Failed to find shop").SetInternal(err)
		}
		if shop == nil {
			return echo.NewHTTPError(http.StatusNotFound, "Shop not found")
		}
		find.ShopID = shopID
		feedTitle = fmt.Sprintf("%s - New Products", shop.Title)
	}

	products, err := s.Store.ListProducts(ctx, find)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to list products").SetInternal(err)
	}

	baseURL := s.Profile.InstanceURL
	if baseURL == "" {
		baseURL = c.Scheme() + "://" + c.Request().Host
	}
	rss, err := generateRSSFromProductList(products, baseURL, feedTitle)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to generate rss").SetInternal(err)
	}
	c.Response().Header().Set(echo.HeaderContentType, "text/xml")
	return c.String(http.StatusOK, rss)
}

func generateRSSFromProductList(products []*store.Product, baseURL string, title string) (string, error) {
	feed := &feeds.Feed{
		Title:       title,
		Link:        &feeds.Link{Href: baseURL},
		Description: "Latest products",
		Created:     time.Now(),
	}

	itemCount := len(products)
	if itemCount > maxFeedItemCount {
		itemCount = maxFeedItemCount
	}
	feed.Items = make([]*feeds.Item, itemCount)
	for i := 0; i < itemCount; i++ {
		product := products[i]
		description, err := getRSSItemDescription(product.Description)
		if err != nil {
			return "", err
		}
		feed.Items[i] = &feeds.Item{
			Title:       product.Title,
			Link:        &feeds.Link{Href: baseURL + "/products/" + product.UID},
			Description: description,
			Id:          baseURL + "/products/" + product.UID,
			Created:     time.Unix(product.CreatedTs, 0),
		}
	}
	return feed.ToRss()
}

// getRSSItemDescription renders the markdown product description to HTML.
func getRSSItemDescription(content string) (string, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(content), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
