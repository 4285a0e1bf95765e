package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/a8ns/storefront/internal/profile"
	"github.com/a8ns/storefront/internal/security"
	"github.com/a8ns/storefront/server/runner/backfill"
	"github.com/a8ns/storefront/server/search"
	"github.com/a8ns/storefront/store"
)

// fakeDriver is an in-memory store.Driver covering the slices of the
// interface the handlers exercise. Anything else panics through the embedded
// nil Driver, which is exactly what a test should do when a handler starts
// calling something unexpected.
type fakeDriver struct {
	store.Driver

	mu          sync.Mutex
	nextID      int32
	users       map[int32]*store.User
	shops       map[int32]*store.Shop
	products    map[int32]*store.Product
	categories  map[int32]*store.Category
	colors      map[int32]*store.Color
	sizes       map[int32]*store.Size
	inventories map[int32]*store.Inventory

	searchProductsFunc   func(ctx context.Context, opts *store.SearchOptions) ([]*store.ProductWithScore, error)
	searchCategoriesFunc func(ctx context.Context, opts *store.SearchOptions) ([]*store.CategoryWithScore, error)
	lastSearchOptions    *store.SearchOptions
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{
		users:       map[int32]*store.User{},
		shops:       map[int32]*store.Shop{},
		products:    map[int32]*store.Product{},
		categories:  map[int32]*store.Category{},
		colors:      map[int32]*store.Color{},
		sizes:       map[int32]*store.Size{},
		inventories: map[int32]*store.Inventory{},
	}
}

// allocID must be called with mu held.
func (f *fakeDriver) allocID() int32 {
	f.nextID++
	return f.nextID
}

func (f *fakeDriver) addUser(email, password string, superuser bool) *store.User {
	hash, err := security.HashPassword(password)
	if err != nil {
		panic(err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	user := &store.User{
		ID:             f.allocID(),
		Email:          email,
		HashedPassword: hash,
		FullName:       "Test User",
		IsActive:       true,
		IsSuperuser:    superuser,
		CreatedTs:      time.Now().Unix(),
		UpdatedTs:      time.Now().Unix(),
	}
	f.users[user.ID] = user
	return user
}

func (f *fakeDriver) ListUsers(_ context.Context, find *store.FindUser) ([]*store.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	list := []*store.User{}
	for _, user := range f.users {
		if find.ID != nil && user.ID != *find.ID {
			continue
		}
		if find.Email != nil && user.Email != *find.Email {
			continue
		}
		list = append(list, user)
	}
	return list, nil
}

func (f *fakeDriver) CreateUser(_ context.Context, create *store.User) (*store.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	create.ID = f.allocID()
	now := time.Now().Unix()
	if create.CreatedTs == 0 {
		create.CreatedTs = now
		create.UpdatedTs = now
	}
	f.users[create.ID] = create
	return create, nil
}

func (f *fakeDriver) CreateShop(_ context.Context, create *store.Shop) (*store.Shop, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	create.ID = f.allocID()
	now := time.Now().Unix()
	if create.CreatedTs == 0 {
		create.CreatedTs = now
		create.UpdatedTs = now
	}
	f.shops[create.ID] = create
	return create, nil
}

func (f *fakeDriver) ListShops(_ context.Context, find *store.FindShop) ([]*store.Shop, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	list := []*store.Shop{}
	for _, shop := range f.shops {
		if find.ID != nil && shop.ID != *find.ID {
			continue
		}
		if find.City != nil && shop.City != *find.City {
			continue
		}
		if find.IsActive != nil && shop.IsActive != *find.IsActive {
			continue
		}
		list = append(list, shop)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return paginate(list, find.Offset, find.Limit), nil
}

func (f *fakeDriver) UpdateShop(_ context.Context, update *store.UpdateShop) (*store.Shop, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	shop := f.shops[update.ID]
	if shop == nil {
		return nil, errNotFound
	}
	if update.Title != nil {
		shop.Title = *update.Title
	}
	if update.Description != nil {
		shop.Description = *update.Description
	}
	if update.Address != nil {
		shop.Address = *update.Address
	}
	if update.City != nil {
		shop.City = *update.City
	}
	if update.Latitude != nil {
		shop.Latitude = *update.Latitude
	}
	if update.Longitude != nil {
		shop.Longitude = *update.Longitude
	}
	if update.Phone != nil {
		shop.Phone = *update.Phone
	}
	if update.Email != nil {
		shop.Email = *update.Email
	}
	if update.IsActive != nil {
		shop.IsActive = *update.IsActive
	}
	shop.UpdatedTs = time.Now().Unix()
	return shop, nil
}

func (f *fakeDriver) DeleteShop(_ context.Context, del *store.DeleteShop) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.shops[del.ID] == nil {
		return errNotFound
	}
	delete(f.shops, del.ID)
	return nil
}

func (f *fakeDriver) CreateProduct(_ context.Context, create *store.Product) (*store.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	create.ID = f.allocID()
	now := time.Now().Unix()
	if create.CreatedTs == 0 {
		create.CreatedTs = now
		create.UpdatedTs = now
	}
	if create.CategoryID != nil {
		if category := f.categories[*create.CategoryID]; category != nil {
			create.CategoryName = category.Name
		}
	}
	f.products[create.ID] = create
	return create, nil
}

func (f *fakeDriver) ListProducts(_ context.Context, find *store.FindProduct) ([]*store.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	list := []*store.Product{}
	for _, product := range f.products {
		if find.ID != nil && product.ID != *find.ID {
			continue
		}
		if find.UID != nil && product.UID != *find.UID {
			continue
		}
		if find.ShopID != nil && product.ShopID != *find.ShopID {
			continue
		}
		if find.CategoryID != nil && (product.CategoryID == nil || *product.CategoryID != *find.CategoryID) {
			continue
		}
		if find.Brand != nil && product.Brand != *find.Brand {
			continue
		}
		if find.InStock != nil && product.InStock != *find.InStock {
			continue
		}
		if find.IsActive != nil && product.IsActive != *find.IsActive {
			continue
		}
		list = append(list, product)
	}
	// Newest first, like the real driver.
	sort.Slice(list, func(i, j int) bool {
		if list[i].CreatedTs != list[j].CreatedTs {
			return list[i].CreatedTs > list[j].CreatedTs
		}
		return list[i].ID > list[j].ID
	})
	return paginate(list, find.Offset, find.Limit), nil
}

func (f *fakeDriver) UpdateProduct(_ context.Context, update *store.UpdateProduct) (*store.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	product := f.products[update.ID]
	if product == nil {
		return nil, errNotFound
	}
	if update.Title != nil {
		product.Title = *update.Title
	}
	if update.Description != nil {
		product.Description = *update.Description
	}
	if update.Price != nil {
		product.Price = *update.Price
	}
	if update.Brand != nil {
		product.Brand = *update.Brand
	}
	if update.ArticleNumber != nil {
		product.ArticleNumber = *update.ArticleNumber
	}
	if update.Barcode != nil {
		product.Barcode = *update.Barcode
	}
	if update.ImageURL != nil {
		product.ImageURL = *update.ImageURL
	}
	if update.InStock != nil {
		product.InStock = *update.InStock
	}
	if update.StockQuantity != nil {
		product.StockQuantity = *update.StockQuantity
	}
	if update.CategoryID != nil {
		product.CategoryID = update.CategoryID
		if category := f.categories[*update.CategoryID]; category != nil {
			product.CategoryName = category.Name
		}
	}
	if update.Tags != nil {
		product.Tags = update.Tags
	}
	if update.IsActive != nil {
		product.IsActive = *update.IsActive
	}
	product.UpdatedTs = time.Now().Unix()
	return product, nil
}

func (f *fakeDriver) DeleteProduct(_ context.Context, del *store.DeleteProduct) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.products[del.ID] == nil {
		return errNotFound
	}
	delete(f.products, del.ID)
	return nil
}

func (f *fakeDriver) CreateCategory(_ context.Context, create *store.Category) (*store.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	create.ID = f.allocID()
	now := time.Now().Unix()
	if create.CreatedTs == 0 {
		create.CreatedTs = now
		create.UpdatedTs = now
	}
	f.categories[create.ID] = create
	return create, nil
}

func (f *fakeDriver) ListCategories(_ context.Context, find *store.FindCategory) ([]*store.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	list := []*store.Category{}
	for _, category := range f.categories {
		if find.ID != nil && category.ID != *find.ID {
			continue
		}
		if find.ParentID != nil && (category.ParentID == nil || *category.ParentID != *find.ParentID) {
			continue
		}
		if find.Name != nil && category.Name != *find.Name {
			continue
		}
		list = append(list, category)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return paginate(list, find.Offset, find.Limit), nil
}

func (f *fakeDriver) UpdateCategory(_ context.Context, update *store.UpdateCategory) (*store.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	category := f.categories[update.ID]
	if category == nil {
		return nil, errNotFound
	}
	if update.Name != nil {
		category.Name = *update.Name
	}
	if update.Description != nil {
		category.Description = *update.Description
	}
	if update.ParentID != nil {
		category.ParentID = update.ParentID
	}
	category.UpdatedTs = time.Now().Unix()
	return category, nil
}

func (f *fakeDriver) DeleteCategory(_ context.Context, del *store.DeleteCategory) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.categories[del.ID] == nil {
		return errNotFound
	}
	delete(f.categories, del.ID)
	return nil
}

func (f *fakeDriver) CreateColor(_ context.Context, create *store.Color) (*store.Color, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	create.ID = f.allocID()
	f.colors[create.ID] = create
	return create, nil
}

func (f *fakeDriver) ListColors(_ context.Context, find *store.FindColor) ([]*store.Color, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	list := []*store.Color{}
	for _, color := range f.colors {
		if find.ID != nil && color.ID != *find.ID {
			continue
		}
		if find.Name != nil && color.Name != *find.Name {
			continue
		}
		list = append(list, color)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

func (f *fakeDriver) DeleteColor(_ context.Context, del *store.DeleteColor) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.colors[del.ID] == nil {
		return errNotFound
	}
	delete(f.colors, del.ID)
	return nil
}

func (f *fakeDriver) CreateSize(_ context.Context, create *store.Size) (*store.Size, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	create.ID = f.allocID()
	f.sizes[create.ID] = create
	return create, nil
}

func (f *fakeDriver) ListSizes(_ context.Context, find *store.FindSize) ([]*store.Size, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	list := []*store.Size{}
	for _, size := range f.sizes {
		if find.ID != nil && size.ID != *find.ID {
			continue
		}
		if find.Name != nil && size.Name != *find.Name {
			continue
		}
		list = append(list, size)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

func (f *fakeDriver) DeleteSize(_ context.Context, del *store.DeleteSize) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sizes[del.ID] == nil {
		return errNotFound
	}
	delete(f.sizes, del.ID)
	return nil
}

func (f *fakeDriver) CreateInventory(_ context.Context, create *store.Inventory) (*store.Inventory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	create.ID = f.allocID()
	f.inventories[create.ID] = create
	return create, nil
}

func (f *fakeDriver) ListInventory(_ context.Context, find *store.FindInventory) ([]*store.Inventory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	list := []*store.Inventory{}
	for _, inventory := range f.inventories {
		if find.ID != nil && inventory.ID != *find.ID {
			continue
		}
		if find.ProductID != nil && inventory.ProductID != *find.ProductID {
			continue
		}
		if find.ColorID != nil && (inventory.ColorID == nil || *inventory.ColorID != *find.ColorID) {
			continue
		}
		if find.SizeID != nil && (inventory.SizeID == nil || *inventory.SizeID != *find.SizeID) {
			continue
		}
		list = append(list, inventory)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return paginate(list, find.Offset, find.Limit), nil
}

func (f *fakeDriver) UpdateInventory(_ context.Context, update *store.UpdateInventory) (*store.Inventory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	inventory := f.inventories[update.ID]
	if inventory == nil {
		return nil, errNotFound
	}
	if update.ColorID != nil {
		inventory.ColorID = update.ColorID
	}
	if update.SizeID != nil {
		inventory.SizeID = update.SizeID
	}
	if update.Amount != nil {
		inventory.Amount = *update.Amount
	}
	if update.ShortDescription != nil {
		inventory.ShortDescription = *update.ShortDescription
	}
	return inventory, nil
}

func (f *fakeDriver) DeleteInventory(_ context.Context, del *store.DeleteInventory) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.inventories[del.ID] == nil {
		return errNotFound
	}
	delete(f.inventories, del.ID)
	return nil
}

func (f *fakeDriver) SearchProducts(ctx context.Context, opts *store.SearchOptions) ([]*store.ProductWithScore, error) {
	f.mu.Lock()
	f.lastSearchOptions = opts
	fn := f.searchProductsFunc
	f.mu.Unlock()
	if fn == nil {
		return []*store.ProductWithScore{}, nil
	}
	return fn(ctx, opts)
}

func (f *fakeDriver) SearchCategories(ctx context.Context, opts *store.SearchOptions) ([]*store.CategoryWithScore, error) {
	f.mu.Lock()
	f.lastSearchOptions = opts
	fn := f.searchCategoriesFunc
	f.mu.Unlock()
	if fn == nil {
		return []*store.CategoryWithScore{}, nil
	}
	return fn(ctx, opts)
}

var errNotFound = &notFoundError{}

type notFoundError struct{}

func (*notFoundError) Error() string { return "not found" }

func paginate[T any](list []T, offset, limit *int) []T {
	if offset != nil {
		if *offset >= len(list) {
			return []T{}
		}
		list = list[*offset:]
	}
	if limit != nil && *limit < len(list) {
		list = list[:*limit]
	}
	return list
}

// fakeBackfillRunner substitutes the embedding backfill runner behind the
// admin endpoints.
type fakeBackfillRunner struct {
	statusFunc   func(ctx context.Context, entity backfill.Entity) (*backfill.Report, error)
	runOnceFunc  func(ctx context.Context, entity backfill.Entity, batchSize int) (*backfill.BatchResult, error)
	runOnceCalls atomic.Int32
}

func (f *fakeBackfillRunner) Status(ctx context.Context, entity backfill.Entity) (*backfill.Report, error) {
	if f.statusFunc == nil {
		return &backfill.Report{EntityType: entity, Status: backfill.StatusCompleted}, nil
	}
	return f.statusFunc(ctx, entity)
}

func (f *fakeBackfillRunner) RunOnce(ctx context.Context, entity backfill.Entity, batchSize int) (*backfill.BatchResult, error) {
	f.runOnceCalls.Add(1)
	if f.runOnceFunc == nil {
		return &backfill.BatchResult{}, nil
	}
	return f.runOnceFunc(ctx, entity, batchSize)
}

func testProfile() *profile.Profile {
	return &profile.Profile{
		Mode:                "dev",
		Driver:              "postgres",
		DSN:                 "postgresql://fake",
		Version:             "0.1.0-test",
		JWTSecret:           "test-secret",
		AccessTokenExpiry:   time.Hour,
		EmbeddingModel:      "text-embedding-3-small",
		EmbeddingDimensions: 8,
		EmbeddingBatchSize:  50,
		EmbeddingTimeout:    30 * time.Second,
		TextWeight:          0.4,
		VectorWeight:        0.6,
		SearchDefaultLimit:  20,
		SearchMaxLimit:      100,
		RateLimitRPS:        1000,
		RateLimitBurst:      1000,
	}
}

// newTestService builds the API service over an in-memory driver with vector
// search disabled. Tests flip features on through the public surface.
func newTestService(t *testing.T) (*APIV1Service, *fakeDriver, *echo.Echo) {
	t.Helper()

	driver := newFakeDriver()
	p := testProfile()
	st := store.New(driver, p)

	settings, err := search.NewSettingsFromProfile(p)
	require.NoError(t, err)
	searchService := search.NewService(st, settings)

	svc := NewAPIV1Service(p.JWTSecret, p, st, searchService, backfill.NewRunner(st, settings))
	e := echo.New()
	svc.RegisterRoutes(e)
	return svc, driver, e
}

// superuserToken seeds a superuser and mints a token for it.
func superuserToken(t *testing.T, svc *APIV1Service, driver *fakeDriver) string {
	t.Helper()
	user := driver.addUser("admin@example.com", "password123", true)
	token, err := security.GenerateAccessToken(user.ID, svc.Secret, time.Hour)
	require.NoError(t, err)
	return token
}

// doRequest runs one request through the full echo routing stack.
func doRequest(t *testing.T, e *echo.Echo, method, target string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}
