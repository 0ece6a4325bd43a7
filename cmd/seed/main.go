// Command seed loads a JSON or CSV dataset file into the configured database
// backend (DATABASE_URL or SQLITE_PATH), replacing what is stored there.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"go.uber.org/zap"

	"github.com/octobees/place-intelligence/internal/config"
	"github.com/octobees/place-intelligence/internal/entity"
	"github.com/octobees/place-intelligence/internal/repository"
	"github.com/octobees/place-intelligence/internal/service/catalog"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := config.InitLogger(cfg.Log)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync()

	file := flag.String("file", cfg.Dataset.Path, "dataset file (.json or .csv)")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	src, err := repository.NewFileSource(*file)
	if err != nil {
		logger.Fatal("unsupported dataset file", zap.Error(err))
	}
	places, err := src.LoadPlaces(ctx)
	if err != nil {
		logger.Fatal("failed to read dataset", zap.String("file", *file), zap.Error(err))
	}

	// Normalise identifiers and drop unnamed or duplicate records before storing.
	cat := catalog.New(places)
	normalised := make([]entity.Place, 0, cat.Len())
	for _, entry := range cat.Entries() {
		normalised = append(normalised, entry.Place)
	}
	if cat.Skipped() > 0 {
		logger.Warn("dataset records skipped", zap.Int("skipped", cat.Skipped()))
	}

	store, closeStore, err := repository.OpenStore(ctx, cfg.Dataset)
	if err != nil {
		logger.Fatal("failed to open dataset store", zap.Error(err))
	}
	defer closeStore()

	n, err := store.ReplacePlaces(ctx, normalised)
	if err != nil {
		logger.Fatal("failed to store dataset", zap.Error(err))
	}
	logger.Info("dataset seeded", zap.String("file", *file), zap.Int("places", n))
}
