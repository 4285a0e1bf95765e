package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/a8ns/storefront/internal/observability"
	"github.com/a8ns/storefront/internal/profile"
	"github.com/a8ns/storefront/internal/security"
	"github.com/a8ns/storefront/internal/version"
	"github.com/a8ns/storefront/server"
	"github.com/a8ns/storefront/server/runner/backfill"
	"github.com/a8ns/storefront/server/search"
	"github.com/a8ns/storefront/store"
	"github.com/a8ns/storefront/store/db"
)

var rootCmd = &cobra.Command{
	Use:   "storefront",
	Short: "A storefront backend with text, vector and hybrid product search.",
	Run: func(_ *cobra.Command, _ []string) {
		instanceProfile := &profile.Profile{
			Mode:        viper.GetString("mode"),
			Addr:        viper.GetString("addr"),
			Port:        viper.GetInt("port"),
			Driver:      viper.GetString("driver"),
			DSN:         viper.GetString("dsn"),
			Version:     version.GetCurrentVersion(viper.GetString("mode")),
			InstanceURL: viper.GetString("instance-url"),
			CORSOrigins: viper.GetString("cors-origins"),

			JWTSecret:         viper.GetString("jwt-secret"),
			AccessTokenExpiry: viper.GetDuration("access-token-expiry"),
			AdminEmail:        viper.GetString("admin-email"),
			AdminPassword:     viper.GetString("admin-password"),

			VectorSearchEnabled: viper.GetBool("vector-search-enabled"),
			OpenAIAPIKey:        viper.GetString("openai-api-key"),
			OpenAIBaseURL:       viper.GetString("openai-base-url"),
			EmbeddingModel:      viper.GetString("embedding-model"),
			EmbeddingDimensions: viper.GetInt("embedding-dimensions"),
			EmbeddingBatchSize:  viper.GetInt("embedding-batch-size"),
			EmbeddingTimeout:    viper.GetDuration("embedding-timeout"),
			TextWeight:          viper.GetFloat64("search-text-weight"),
			VectorWeight:        viper.GetFloat64("search-vector-weight"),
			SearchDefaultLimit:  viper.GetInt("search-default-limit"),
			SearchMaxLimit:      viper.GetInt("search-max-limit"),

			RateLimitRPS:   viper.GetFloat64("rate-limit-rps"),
			RateLimitBurst: viper.GetInt("rate-limit-burst"),
		}
		if err := instanceProfile.Validate(); err != nil {
			fmt.Printf("invalid configuration: %v\n", err)
			os.Exit(1)
		}
		observability.Init(instanceProfile.IsDev())

		ctx, cancel := context.WithCancel(context.Background())
		dbDriver, err := db.NewDBDriver(instanceProfile)
		if err != nil {
			cancel()
			slog.Error("failed to create db driver", slog.String("error", err.Error()))
			return
		}

		storeInstance := store.New(dbDriver, instanceProfile)
		if err := storeInstance.Migrate(ctx); err != nil {
			cancel()
			slog.Error("failed to migrate", slog.String("error", err.Error()))
			return
		}

		if err := ensureAdminUser(ctx, storeInstance, instanceProfile); err != nil {
			cancel()
			slog.Error("failed to ensure admin user", slog.String("error", err.Error()))
			return
		}

		searchSettings, err := search.NewSettingsFromProfile(instanceProfile)
		if err != nil {
			cancel()
			slog.Error("failed to initialize search settings", slog.String("error", err.Error()))
			return
		}
		searchService := search.NewService(storeInstance, searchSettings)
		backfillRunner := backfill.NewRunner(storeInstance, searchSettings)

		s, err := server.NewServer(ctx, instanceProfile, storeInstance, searchService, backfillRunner)
		if err != nil {
			cancel()
			slog.Error("failed to create server", slog.String("error", err.Error()))
			return
		}

		c := make(chan os.Signal, 1)
		// SIGTERM is the graceful shutdown signal sent by most supervisors,
		// e.g. Kubernetes and systemd.
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		go func() {
			sig := <-c
			slog.Info(fmt.Sprintf("received signal %s, shutting down", sig))
			s.Shutdown(ctx)
			cancel()
		}()

		printGreetings(instanceProfile)

		if err := s.Start(ctx); err != nil {
			if err != http.ErrServerClosed {
				slog.Error("failed to start server", slog.String("error", err.Error()))
				cancel()
			}
		}

		// Wait for the shutdown goroutine to finish.
		<-ctx.Done()
	},
}

func init() {
	viper.SetDefault("mode", "dev")
	viper.SetDefault("addr", "")
	viper.SetDefault("port", 8081)
	viper.SetDefault("driver", "postgres")
	viper.SetDefault("access-token-expiry", "72h")
	viper.SetDefault("openai-base-url", "https://api.openai.com/v1")
	viper.SetDefault("embedding-model", "text-embedding-3-small")
	viper.SetDefault("embedding-dimensions", 1536)
	viper.SetDefault("embedding-batch-size", 50)
	viper.SetDefault("embedding-timeout", "30s")
	viper.SetDefault("search-text-weight", 0.4)
	viper.SetDefault("search-vector-weight", 0.6)
	viper.SetDefault("search-default-limit", 20)
	viper.SetDefault("search-max-limit", 100)
	viper.SetDefault("rate-limit-rps", 10.0)
	viper.SetDefault("rate-limit-burst", 20)

	rootCmd.PersistentFlags().String("mode", "dev", `mode of server, can be "prod" or "dev" or "demo"`)
	rootCmd.PersistentFlags().String("addr", "", "address of server")
	rootCmd.PersistentFlags().Int("port", 8081, "port of server")
	rootCmd.PersistentFlags().String("driver", "postgres", "database driver")
	rootCmd.PersistentFlags().String("dsn", "", "database source name (aka. DSN)")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		panic(err)
	}
	viper.SetEnvPrefix("storefront")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

// ensureAdminUser seeds the superuser account configured in the profile so a
// fresh deployment can log in and manage the catalog.
func ensureAdminUser(ctx context.Context, s *store.Store, p *profile.Profile) error {
	if p.AdminEmail == "" || p.AdminPassword == "" {
		return nil
	}

	existing, err := s.GetUser(ctx, &store.FindUser{Email: &p.AdminEmail})
	if err != nil {
		return errors.Wrap(err, "failed to look up admin user")
	}
	if existing != nil {
		return nil
	}

	hashedPassword, err := security.HashPassword(p.AdminPassword)
	if err != nil {
		return errors.Wrap(err, "failed to hash admin password")
	}
	if _, err := s.CreateUser(ctx, &store.User{
		Email:          p.AdminEmail,
		HashedPassword: hashedPassword,
		FullName:       "Administrator",
		IsActive:       true,
		IsSuperuser:    true,
	}); err != nil {
		return errors.Wrap(err, "failed to create admin user")
	}
	slog.Info("admin user created", slog.String("email", p.AdminEmail))
	return nil
}

func printGreetings(p *profile.Profile) {
	if p.IsDev() {
		fmt.Println("development mode is enabled")
		fmt.Println("DSN:", p.DSN)
	}
	fmt.Printf("storefront %s has been started on %s:%d\n", p.Version, p.Addr, p.Port)
}

func main() {
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		panic(err)
	}
}
