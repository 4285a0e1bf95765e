package profile

import (
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Profile is the configuration to start the main server.
type Profile struct {
	// Mode can be "prod" or "dev" or "demo"
	Mode string
	// Addr is the binding address for the server
	Addr string
	// Port is the binding port for the server
	Port int
	// Driver is the database driver (postgres)
	Driver string
	// DSN points to where storefront stores its data
	DSN string
	// Version is the current version of the server
	Version string
	// InstanceURL is the public URL of this instance, used in feed links
	InstanceURL string
	// CORSOrigins is a comma-separated allow list; empty means allow all
	CORSOrigins string

	// Auth configuration
	JWTSecret         string        // STOREFRONT_JWT_SECRET
	AccessTokenExpiry time.Duration // STOREFRONT_ACCESS_TOKEN_EXPIRY (default: 72h)
	AdminEmail        string        // STOREFRONT_ADMIN_EMAIL, seeded at startup
	AdminPassword     string        // STOREFRONT_ADMIN_PASSWORD

	// Search and embedding configuration
	VectorSearchEnabled bool          // STOREFRONT_VECTOR_SEARCH_ENABLED
	OpenAIAPIKey        string        // STOREFRONT_OPENAI_API_KEY
	OpenAIBaseURL       string        // STOREFRONT_OPENAI_BASE_URL (default: https://api.openai.com/v1)
	EmbeddingModel      string        // STOREFRONT_EMBEDDING_MODEL (default: text-embedding-3-small)
	EmbeddingDimensions int           // STOREFRONT_EMBEDDING_DIMENSIONS (default: 1536)
	EmbeddingBatchSize  int           // STOREFRONT_EMBEDDING_BATCH_SIZE (default: 50)
	EmbeddingTimeout    time.Duration // STOREFRONT_EMBEDDING_TIMEOUT (default: 30s)
	TextWeight          float64       // STOREFRONT_SEARCH_TEXT_WEIGHT (default: 0.4)
	VectorWeight        float64       // STOREFRONT_SEARCH_VECTOR_WEIGHT (default: 0.6)
	SearchDefaultLimit  int           // STOREFRONT_SEARCH_DEFAULT_LIMIT (default: 20)
	SearchMaxLimit      int           // STOREFRONT_SEARCH_MAX_LIMIT (default: 100)

	// Rate limiting for the search surface
	RateLimitRPS   float64 // STOREFRONT_RATE_LIMIT_RPS (default: 10)
	RateLimitBurst int     // STOREFRONT_RATE_LIMIT_BURST (default: 20)
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsVectorSearchCapable returns true if vector search is enabled and a
// provider key is configured. The runtime enable path can still turn the
// feature on later with a key supplied through the admin endpoint.
func (p *Profile) IsVectorSearchCapable() bool {
	return p.VectorSearchEnabled && p.OpenAIAPIKey != ""
}

// AllowedOrigins splits the configured CORS origin list.
func (p *Profile) AllowedOrigins() []string {
	if p.CORSOrigins == "" {
		return []string{"*"}
	}
	parts := strings.Split(p.CORSOrigins, ",")
	origins := make([]string, 0, len(parts))
	for _, part := range parts {
		if origin := strings.TrimSpace(part); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}

func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "dev"
	}

	if p.Driver != "postgres" {
		return errors.Errorf("unsupported database driver %q, only postgres is supported", p.Driver)
	}
	if p.DSN == "" {
		return errors.New("database DSN is required")
	}

	if p.Mode == "prod" && p.JWTSecret == "" {
		return errors.New("JWT secret is required in prod mode")
	}
	if p.JWTSecret == "" {
		// Dev convenience only; tokens do not survive a restart with a random secret.
		p.JWTSecret = "storefront-dev-secret"
	}
	if p.AccessTokenExpiry <= 0 {
		p.AccessTokenExpiry = 72 * time.Hour
	}

	if p.EmbeddingDimensions <= 0 {
		return errors.Errorf("embedding dimensions must be positive, got %d", p.EmbeddingDimensions)
	}
	if p.EmbeddingBatchSize <= 0 {
		p.EmbeddingBatchSize = 50
	}
	if p.EmbeddingTimeout <= 0 {
		p.EmbeddingTimeout = 30 * time.Second
	}
	if p.TextWeight < 0 || p.VectorWeight < 0 {
		return errors.New("search weights must be non-negative")
	}
	if p.SearchDefaultLimit <= 0 {
		p.SearchDefaultLimit = 20
	}
	if p.SearchMaxLimit <= 0 {
		p.SearchMaxLimit = 100
	}
	if p.SearchMaxLimit < p.SearchDefaultLimit {
		p.SearchMaxLimit = p.SearchDefaultLimit
	}

	return nil
}
