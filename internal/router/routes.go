package router

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/octobees/place-intelligence/internal/config"
	"github.com/octobees/place-intelligence/internal/handler"
	middlewarepkg "github.com/octobees/place-intelligence/internal/middleware"
)

// Handlers aggregates HTTP handlers used by the router.
type Handlers struct {
	Places   *handler.PlacesHandler
	Sessions *handler.SessionsHandler
	Live     *handler.LiveHandler
}

// Register wires all HTTP routes for the API.
func Register(e *echo.Echo, cfg *config.Config, handlers Handlers) {
	e.Use(middlewarepkg.RateLimiter(cfg.RateLimitQuery,
		"/places",
		"/map/markers",
		"/sessions",
		"/sessions/:id/query",
		"/sessions/:id/next",
	))

	e.GET("/healthz", func(c echo.Context) error {
		return handler.Success(c, http.StatusOK, "service healthy", map[string]any{"status": "ok"})
	})

	e.GET("/stats", handlers.Places.Stats)
	e.GET("/places", handlers.Places.List)
	e.GET("/places/:id", handlers.Places.Detail)
	e.GET("/map/markers", handlers.Places.Map)

	sessions := e.Group("/sessions")
	sessions.POST("", handlers.Sessions.Create)
	sessions.PUT("/:id/query", handlers.Sessions.UpdateQuery)
	sessions.POST("/:id/next", handlers.Sessions.Next)
	sessions.DELETE("/:id", handlers.Sessions.Close)
	sessions.POST("/:id/resources", handlers.Sessions.RegisterResource)
	sessions.POST("/:id/resources/:rid/visible", handlers.Sessions.SignalResource)
	sessions.DELETE("/:id/resources/:rid", handlers.Sessions.UnregisterResource)

	if handlers.Live != nil {
		sessions.GET("/:id/live", handlers.Live.Serve)
	}
}
