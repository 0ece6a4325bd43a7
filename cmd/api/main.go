package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"golang.org/x/text/language"

	"github.com/octobees/place-intelligence/internal/config"
	"github.com/octobees/place-intelligence/internal/handler"
	middlewarepkg "github.com/octobees/place-intelligence/internal/middleware"
	"github.com/octobees/place-intelligence/internal/repository"
	"github.com/octobees/place-intelligence/internal/router"
	"github.com/octobees/place-intelligence/internal/service"
	"github.com/octobees/place-intelligence/internal/service/catalog"
	"github.com/octobees/place-intelligence/internal/service/detail"
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

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	source, closeSource, err := repository.OpenSource(ctx, cfg.Dataset)
	if err != nil {
		logger.Fatal("failed to open dataset", zap.Error(err))
	}
	defer closeSource()

	places, err := source.LoadPlaces(ctx)
	if err != nil {
		logger.Fatal("failed to load dataset", zap.Error(err))
	}

	locale, err := language.Parse(cfg.Locale)
	if err != nil {
		logger.Warn("unknown locale, using English", zap.String("locale", cfg.Locale))
		locale = language.English
	}

	cat := catalog.New(places, catalog.WithLocale(locale))
	logger.Info("catalog loaded",
		zap.Int("places", cat.Len()),
		zap.Int("skipped", cat.Skipped()),
	)

	details := detail.NewAggregator(
		detail.WithHalfStarThreshold(cfg.HalfStarThreshold),
		detail.WithPhoneRegion(cfg.PhoneRegion),
		detail.WithLocale(locale),
	)
	placesService := service.NewPlacesService(cat, details,
		service.WithBatchSize(cfg.BatchSize),
		service.WithSessionTTL(cfg.SessionTTL),
		service.WithLogger(logger),
	)

	runCtx, stopRun := context.WithCancel(context.Background())
	defer stopRun()
	go placesService.RunSweeper(runCtx, cfg.SweepInterval)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middlewarepkg.RequestID())
	e.Use(middlewarepkg.Logging(logger))
	e.Use(echoMiddleware.Recover())

	router.Register(e, cfg, router.Handlers{
		Places:   handler.NewPlacesHandler(placesService),
		Sessions: handler.NewSessionsHandler(placesService),
		Live:     handler.NewLiveHandler(placesService, cfg.SearchDebounce, logger),
	})

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("port", cfg.Port))
		serverErr <- e.Start(":" + cfg.Port)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
		return
	}

	stopRun()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}
