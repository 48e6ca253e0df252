// Command seeder migrates the products table and loads a catalog into it.
//
//	seeder [-file catalog.json] [-skip-migrate]
//
// Without -file the demo catalog is written.
package main

import (
	"context"
	"flag"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/noah-isme/toko-checkout/internal/app"
	"github.com/noah-isme/toko-checkout/internal/catalog"
	"github.com/noah-isme/toko-checkout/internal/obs"
)

func main() {
	file := flag.String("file", "", "catalog JSON file (array or {\"data\": [...]} envelope)")
	skipMigrate := flag.Bool("skip-migrate", false, "do not run migrations first")
	dsn := flag.String("database-url", "", "overrides DATABASE_URL")
	flag.Parse()

	_ = godotenv.Load()
	logger := obs.NewLogger("console", "info").With().Str("component", "seeder").Logger()

	databaseURL := *dsn
	if databaseURL == "" {
		databaseURL = envOrDefault("DATABASE_URL", "")
	}
	if databaseURL == "" {
		logger.Fatal().Msg("DATABASE_URL is not set")
	}

	if !*skipMigrate {
		if err := catalog.Migrate(databaseURL); err != nil {
			logger.Fatal().Err(err).Msg("run migrations")
		}
		logger.Info().Msg("migrations applied")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	var src catalog.Source = catalog.StaticSource{}
	if *file != "" {
		src = catalog.FileSource{Path: *file}
	}
	products, err := src.Load(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("load catalog")
	}

	pool, err := app.NewPool(ctx, databaseURL, "toko-seeder")
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer pool.Close()

	if err := (catalog.PGSource{DB: pool}).Replace(ctx, products); err != nil {
		logger.Fatal().Err(err).Msg("seed catalog")
	}
	logger.Info().Int("products", len(products)).Msg("catalog seeded")
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}
