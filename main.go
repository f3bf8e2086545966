package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"growthTrackerAPI/internal/config"
	"growthTrackerAPI/internal/database"
	"growthTrackerAPI/services"
)

var rootCmd = &cobra.Command{
	Use:   "growthTrackerAPI",
	Short: "Spiritual growth tracker API",
	Long: `growthTrackerAPI serves the challenge catalog, onboarding wizard, daily task
tracking and dimension progress. Without a subcommand it starts the HTTP server.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveCmd.RunE(cmd, args)
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx, cfg)
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDatabase(func(ctx context.Context, cfg *config.Config, db *database.Database) error {
			if err := database.Migrate(db.DB); err != nil {
				return err
			}
			log.Println("Schema is up to date")
			return nil
		})
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load the reference dimensions and predefined challenges",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDatabase(func(ctx context.Context, cfg *config.Config, db *database.Database) error {
			if err := database.Migrate(db.DB); err != nil {
				return err
			}
			catalog := services.NewCatalogService(db.DB, nil)
			result, err := services.NewSeedService(db.DB, catalog).SeedAll(ctx)
			if err != nil {
				return err
			}
			log.Printf("Seeded %d dimensions and %d challenges (%d new)", result.Dimensions, result.Challenges, result.Created)
			return nil
		})
	},
}

// withDatabase runs fn against a freshly opened database for one-shot commands.
func withDatabase(fn func(context.Context, *config.Config, *database.Database) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	db, err := database.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	return fn(ctx, cfg, db)
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
