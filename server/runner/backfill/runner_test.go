package backfill

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	serviceerrors "github.com/a8ns/storefront/internal/errors"
	"github.com/a8ns/storefront/internal/profile"
	"github.com/a8ns/storefront/plugin/embedding"
	"github.com/a8ns/storefront/server/search"
	"github.com/a8ns/storefront/store"
)

// mockProvider is a mock embedding.Service.
type mockProvider struct {
	embedFunc  func(ctx context.Context, text string) ([]float32, error)
	dimensions int
	callCount  atomic.Int32
	shouldFail bool
}

func newMockProvider(dimensions int) *mockProvider {
	return &mockProvider{dimensions: dimensions}
}

func (m *mockProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	m.callCount.Add(1)
	if m.shouldFail {
		return nil, serviceerrors.EmbeddingProvider("embedding service error", nil)
	}
	if m.embedFunc != nil {
		return m.embedFunc(ctx, text)
	}
	vector := make([]float32, m.dimensions)
	for i := range vector {
		vector[i] = 0.1
	}
	return vector, nil
}

func (m *mockProvider) Dimensions() int {
	return m.dimensions
}

// fakeSettings satisfies searchSettings without a real provider behind it.
type fakeSettings struct {
	enabled  bool
	provider *mockProvider
	snapshot search.Snapshot
}

func (f *fakeSettings) Enabled() bool {
	return f.enabled
}

func (f *fakeSettings) Provider() embedding.Service {
	if !f.enabled {
		return nil
	}
	return f.provider
}

func (f *fakeSettings) Snapshot() search.Snapshot {
	return f.snapshot
}

// fakeDriver overrides just the store.Driver methods the runner exercises.
// Calling anything else panics, which is what we want in a test.
type fakeDriver struct {
	store.Driver

	mu                sync.Mutex
	products          map[int32]*store.Product
	maxProductID      int32
	written           map[int32][]float32
	categories        map[int32]*store.Category
	maxCategoryID     int32
	categoriesWritten map[int32][]float32

	// scanOverride, when set, is returned by ListProductsWithoutEmbedding
	// verbatim to simulate a scan that went stale.
	scanOverride []*store.Product

	listLimit atomic.Int32
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{
		products:          map[int32]*store.Product{},
		written:           map[int32][]float32{},
		categories:        map[int32]*store.Category{},
		categoriesWritten: map[int32][]float32{},
	}
}

func (d *fakeDriver) addProduct(product *store.Product) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.products[product.ID] = product
	if product.ID > d.maxProductID {
		d.maxProductID = product.ID
	}
}

func (d *fakeDriver) addCategory(category *store.Category) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.categories[category.ID] = category
	if category.ID > d.maxCategoryID {
		d.maxCategoryID = category.ID
	}
}

func (d *fakeDriver) ListProductsWithoutEmbedding(_ context.Context, limit int) ([]*store.Product, error) {
	d.listLimit.Store(int32(limit))
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.scanOverride != nil {
		return d.scanOverride, nil
	}
	list := []*store.Product{}
	for id := int32(1); id <= d.maxProductID && len(list) < limit; id++ {
		if product, ok := d.products[id]; ok && !product.HasEmbedding {
			copied := *product
			list = append(list, &copied)
		}
	}
	return list, nil
}

func (d *fakeDriver) ListProducts(_ context.Context, find *store.FindProduct) ([]*store.Product, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if find.ID != nil {
		if product, ok := d.products[*find.ID]; ok {
			copied := *product
			return []*store.Product{&copied}, nil
		}
	}
	return []*store.Product{}, nil
}

func (d *fakeDriver) UpdateProductEmbedding(_ context.Context, id int32, embedding []float32) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.written[id] = embedding
	d.products[id].HasEmbedding = true
	return nil
}

func (d *fakeDriver) CountProductsWithoutEmbedding(_ context.Context) (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var count int64
	for _, product := range d.products {
		if !product.HasEmbedding {
			count++
		}
	}
	return count, nil
}

func (d *fakeDriver) CountProducts(_ context.Context) (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(len(d.products)), nil
}

func (d *fakeDriver) ListCategoriesWithoutEmbedding(_ context.Context, limit int) ([]*store.Category, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	list := []*store.Category{}
	for id := int32(1); id <= d.maxCategoryID && len(list) < limit; id++ {
		if category, ok := d.categories[id]; ok && !category.HasEmbedding {
			copied := *category
			list = append(list, &copied)
		}
	}
	return list, nil
}

func (d *fakeDriver) ListCategories(_ context.Context, find *store.FindCategory) ([]*store.Category, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if find.ID != nil {
		if category, ok := d.categories[*find.ID]; ok {
			copied := *category
			return []*store.Category{&copied}, nil
		}
	}
	return []*store.Category{}, nil
}

func (d *fakeDriver) UpdateCategoryEmbedding(_ context.Context, id int32, embedding []float32) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.categoriesWritten[id] = embedding
	d.categories[id].HasEmbedding = true
	return nil
}

func (d *fakeDriver) CountCategoriesWithoutEmbedding(_ context.Context) (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var count int64
	for _, category := range d.categories {
		if !category.HasEmbedding {
			count++
		}
	}
	return count, nil
}

func (d *fakeDriver) CountCategories(_ context.Context) (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(len(d.categories)), nil
}

func newTestRunner(driver *fakeDriver, provider *mockProvider) *Runner {
	settings := &fakeSettings{
		provider: provider,
		snapshot: search.Snapshot{BatchSize: 50, Timeout: 30 * time.Second},
	}
	if provider != nil {
		settings.enabled = true
	}
	return &Runner{
		store:    store.New(driver, &profile.Profile{Driver: "postgres"}),
		settings: settings,
	}
}

// TestParseEntity tests entity_type validation.
func TestParseEntity(t *testing.T) {
	tests := []struct {
		raw     string
		want    Entity
		wantErr bool
	}{
		{"", EntityProducts, false},
		{"products", EntityProducts, false},
		{"categories", EntityCategories, false},
		{"shops", "", true},
		{"Products", "", true},
	}

	for _, tt := range tests {
		t.Run("entity "+tt.raw, func(t *testing.T) {
			got, err := ParseEntity(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				assert.True(t, serviceerrors.IsCode(err, serviceerrors.ErrCodeInvalidArgument))
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

// TestRunOnceDisabled tests that a disabled feature refuses to backfill.
func TestRunOnceDisabled(t *testing.T) {
	runner := newTestRunner(newFakeDriver(), nil)

	_, err := runner.RunOnce(context.Background(), EntityProducts, 10)
	assert.Error(t, err)
	assert.True(t, serviceerrors.IsCode(err, serviceerrors.ErrCodeFeatureDisabled))
}

// TestRunOnceProducts tests a clean product batch.
func TestRunOnceProducts(t *testing.T) {
	driver := newFakeDriver()
	driver.addProduct(&store.Product{ID: 1, Title: "trail shoes", Brand: "acme"})
	driver.addProduct(&store.Product{ID: 2, Title: "road shoes"})
	driver.addProduct(&store.Product{ID: 3, Title: "sandals"})

	provider := newMockProvider(8)
	runner := newTestRunner(driver, provider)

	result, err := runner.RunOnce(context.Background(), EntityProducts, 10)
	require.NoError(t, err)

	assert.Equal(t, 3, result.Processed)
	assert.Equal(t, 0, result.Failed)
	assert.Equal(t, int64(0), result.Remaining)
	assert.Equal(t, int32(3), provider.callCount.Load())
	assert.Len(t, driver.written, 3)
	assert.Len(t, driver.written[1], 8)
}

// TestRunOnceBatchSizeLimit tests that only one batch is processed per call
// and no chaining happens.
func TestRunOnceBatchSizeLimit(t *testing.T) {
	driver := newFakeDriver()
	for id := int32(1); id <= 5; id++ {
		driver.addProduct(&store.Product{ID: id, Title: "product"})
	}

	provider := newMockProvider(8)
	runner := newTestRunner(driver, provider)

	result, err := runner.RunOnce(context.Background(), EntityProducts, 2)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Processed)
	assert.Equal(t, int64(3), result.Remaining)
	assert.Equal(t, int32(2), provider.callCount.Load())
}

// TestRunOnceDefaultBatchSize tests that batch sizes <= 0 fall back to the
// configured default.
func TestRunOnceDefaultBatchSize(t *testing.T) {
	driver := newFakeDriver()
	provider := newMockProvider(8)
	runner := newTestRunner(driver, provider)

	_, err := runner.RunOnce(context.Background(), EntityProducts, 0)
	require.NoError(t, err)
	assert.Equal(t, int32(50), driver.listLimit.Load())
}

// TestRunOnceSkipsConcurrentlyEmbedded tests the fresh re-read guard: a row
// embedded between the scan and the worker pass is neither processed nor
// failed.
func TestRunOnceSkipsConcurrentlyEmbedded(t *testing.T) {
	driver := newFakeDriver()
	driver.addProduct(&store.Product{ID: 1, Title: "shoes", HasEmbedding: true})
	// The scan returns a stale row that predates the concurrent embed.
	driver.scanOverride = []*store.Product{{ID: 1, Title: "shoes"}}

	provider := newMockProvider(8)
	provider.embedFunc = func(_ context.Context, _ string) ([]float32, error) {
		t.Error("provider must not be called for an already-embedded row")
		return make([]float32, 8), nil
	}
	runner := newTestRunner(driver, provider)

	result, err := runner.RunOnce(context.Background(), EntityProducts, 10)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Processed)
	assert.Equal(t, 0, result.Failed)
	assert.Empty(t, driver.written)
}

// TestRunOnceSkipsDeletedRow tests that a row deleted between the scan and
// the worker pass is skipped quietly.
func TestRunOnceSkipsDeletedRow(t *testing.T) {
	driver := newFakeDriver()
	driver.scanOverride = []*store.Product{{ID: 7, Title: "gone"}}

	provider := newMockProvider(8)
	runner := newTestRunner(driver, provider)

	result, err := runner.RunOnce(context.Background(), EntityProducts, 10)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Processed)
	assert.Equal(t, 0, result.Failed)
	assert.Equal(t, int32(0), provider.callCount.Load())
}

// TestRunOncePerItemFailureIsolation tests that one failing item does not
// abort the rest of the batch.
func TestRunOncePerItemFailureIsolation(t *testing.T) {
	driver := newFakeDriver()
	driver.addProduct(&store.Product{ID: 1, Title: "good one"})
	driver.addProduct(&store.Product{ID: 2, Title: "bad apple"})
	driver.addProduct(&store.Product{ID: 3, Title: "good two"})

	provider := newMockProvider(8)
	provider.embedFunc = func(_ context.Context, text string) ([]float32, error) {
		if text == "bad apple" {
			return nil, serviceerrors.EmbeddingProvider("embedding service error", nil)
		}
		return make([]float32, 8), nil
	}
	runner := newTestRunner(driver, provider)

	result, err := runner.RunOnce(context.Background(), EntityProducts, 10)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Processed)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, int64(1), result.Remaining)
	assert.Len(t, driver.written, 2)
}

// TestRunOnceEmbedsSearchText tests that the provider receives the composed
// searchable text, not just the title.
func TestRunOnceEmbedsSearchText(t *testing.T) {
	driver := newFakeDriver()
	driver.addProduct(&store.Product{
		ID:           1,
		Title:        "trail shoes",
		Description:  "grippy",
		Brand:        "acme",
		Tags:         []string{"outdoor", "running"},
		CategoryName: "footwear",
	})

	var captured atomic.Value
	provider := newMockProvider(8)
	provider.embedFunc = func(_ context.Context, text string) ([]float32, error) {
		captured.Store(text)
		return make([]float32, 8), nil
	}
	runner := newTestRunner(driver, provider)

	_, err := runner.RunOnce(context.Background(), EntityProducts, 10)
	require.NoError(t, err)
	assert.Equal(t, "trail shoes grippy acme outdoor running footwear", captured.Load())
}

// TestRunOnceCategories tests the category path.
func TestRunOnceCategories(t *testing.T) {
	driver := newFakeDriver()
	driver.addCategory(&store.Category{ID: 1, Name: "shoes", Description: "footwear"})
	driver.addCategory(&store.Category{ID: 2, Name: "shirts"})

	provider := newMockProvider(8)
	runner := newTestRunner(driver, provider)

	result, err := runner.RunOnce(context.Background(), EntityCategories, 10)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Processed)
	assert.Equal(t, 0, result.Failed)
	assert.Len(t, driver.categoriesWritten, 2)
	assert.Empty(t, driver.written)
}

// TestRunOnceCancelledContext tests that cancellation stops scheduling new
// items instead of hanging.
func TestRunOnceCancelledContext(t *testing.T) {
	driver := newFakeDriver()
	for id := int32(1); id <= 10; id++ {
		driver.addProduct(&store.Product{ID: id, Title: "product"})
	}

	provider := newMockProvider(8)
	runner := newTestRunner(driver, provider)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := runner.RunOnce(ctx, EntityProducts, 10)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Processed)
}

// TestStatus tests the derived status snapshot.
func TestStatus(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		runner := newTestRunner(newFakeDriver(), nil)

		report, err := runner.Status(context.Background(), EntityProducts)
		require.NoError(t, err)
		assert.Equal(t, StatusDisabled, report.Status)
		assert.Equal(t, int64(0), report.Processed)
		assert.Equal(t, int64(0), report.TotalRemaining)
	})

	t.Run("in progress", func(t *testing.T) {
		driver := newFakeDriver()
		driver.addProduct(&store.Product{ID: 1, HasEmbedding: true})
		driver.addProduct(&store.Product{ID: 2})
		driver.addProduct(&store.Product{ID: 3})

		runner := newTestRunner(driver, newMockProvider(8))

		report, err := runner.Status(context.Background(), EntityProducts)
		require.NoError(t, err)
		assert.Equal(t, StatusInProgress, report.Status)
		assert.Equal(t, int64(1), report.Processed)
		assert.Equal(t, int64(2), report.TotalRemaining)
		assert.Equal(t, EntityProducts, report.EntityType)
		assert.False(t, report.LastUpdated.IsZero())
	})

	t.Run("completed", func(t *testing.T) {
		driver := newFakeDriver()
		driver.addProduct(&store.Product{ID: 1, HasEmbedding: true})

		runner := newTestRunner(driver, newMockProvider(8))

		report, err := runner.Status(context.Background(), EntityProducts)
		require.NoError(t, err)
		assert.Equal(t, StatusCompleted, report.Status)
		assert.Equal(t, int64(1), report.Processed)
		assert.Equal(t, int64(0), report.TotalRemaining)
	})

	t.Run("categories counted separately", func(t *testing.T) {
		driver := newFakeDriver()
		driver.addProduct(&store.Product{ID: 1})
		driver.addCategory(&store.Category{ID: 1, HasEmbedding: true})

		runner := newTestRunner(driver, newMockProvider(8))

		report, err := runner.Status(context.Background(), EntityCategories)
		require.NoError(t, err)
		assert.Equal(t, StatusCompleted, report.Status)
		assert.Equal(t, EntityCategories, report.EntityType)
	})
}
