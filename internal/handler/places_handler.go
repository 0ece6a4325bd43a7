package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/octobees/place-intelligence/internal/dto"
	"github.com/octobees/place-intelligence/internal/service"
)

// PlacesHandler exposes the stateless catalogue endpoints.
type PlacesHandler struct {
	service *service.PlacesService
}

// NewPlacesHandler creates a new handler instance.
func NewPlacesHandler(service *service.PlacesService) *PlacesHandler {
	return &PlacesHandler{service: service}
}

// List handles GET /places requests.
func (h *PlacesHandler) List(c echo.Context) error {
	state, err := queryFromParams(c)
	if err != nil {
		return respondError(c, err, "failed to list places")
	}

	page := h.service.List(dto.ListFilter{
		Query:   state,
		Page:    parseIntDefault(c.QueryParam("page"), 1),
		PerPage: parseIntDefault(c.QueryParam("per_page"), 20),
	})
	return Success(c, http.StatusOK, "places retrieved", page)
}

// Detail handles GET /places/:id requests.
func (h *PlacesHandler) Detail(c echo.Context) error {
	view, err := h.service.Detail(c.Param("id"))
	if err != nil {
		return respondError(c, err, "failed to load place")
	}
	return Success(c, http.StatusOK, "place retrieved", view)
}

// Map handles GET /map/markers requests.
func (h *PlacesHandler) Map(c echo.Context) error {
	state, err := queryFromParams(c)
	if err != nil {
		return respondError(c, err, "failed to build map")
	}

	var clip *dto.Bounds
	if raw := strings.TrimSpace(c.QueryParam("bounds")); raw != "" {
		b, err := parseBounds(raw)
		if err != nil {
			return Error(c, http.StatusBadRequest, err.Error())
		}
		clip = &b
	}

	return Success(c, http.StatusOK, "markers retrieved", h.service.Map(state, clip))
}

// Stats handles GET /stats requests.
func (h *PlacesHandler) Stats(c echo.Context) error {
	return Success(c, http.StatusOK, "stats retrieved", h.service.Stats())
}

func queryFromParams(c echo.Context) (dto.QueryState, error) {
	req := dto.QueryRequest{
		Q:        c.QueryParam("q"),
		Category: c.QueryParam("category"),
		Sort:     c.QueryParam("sort"),
	}

	if minRatingStr := strings.TrimSpace(c.QueryParam("min_rating")); minRatingStr != "" {
		minRating, err := strconv.ParseFloat(minRatingStr, 64)
		if err != nil {
			return dto.QueryState{}, service.QueryValidationError{Message: "invalid min_rating"}
		}
		req.MinRating = minRating
	}

	if requireStr := strings.TrimSpace(c.QueryParam("require_reviews")); requireStr != "" {
		requireReviews, err := strconv.ParseBool(requireStr)
		if err != nil {
			return dto.QueryState{}, service.QueryValidationError{Message: "invalid require_reviews"}
		}
		req.RequireReviews = requireReviews
	}

	return service.ParseQuery(req)
}

func parseBounds(raw string) (dto.Bounds, error) {
	parts := strings.Split(raw, ",")
	if len(parts) != 4 {
		return dto.Bounds{}, errors.New("bounds must be minLat,minLng,maxLat,maxLng")
	}

	values := make([]float64, 4)
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return dto.Bounds{}, errors.New("bounds must contain numbers")
		}
		values[i] = v
	}

	b := dto.Bounds{MinLat: values[0], MinLng: values[1], MaxLat: values[2], MaxLng: values[3]}
	if b.MinLat > b.MaxLat || b.MinLng > b.MaxLng {
		return dto.Bounds{}, errors.New("bounds minimum exceeds maximum")
	}
	if b.MinLat < -90 || b.MaxLat > 90 || b.MinLng < -180 || b.MaxLng > 180 {
		return dto.Bounds{}, errors.New("bounds outside the valid coordinate range")
	}
	return b, nil
}

func respondError(c echo.Context, err error, fallback string) error {
	var verr service.QueryValidationError
	switch {
	case errors.As(err, &verr):
		return Error(c, http.StatusBadRequest, verr.Message)
	case errors.Is(err, service.ErrSessionNotFound),
		errors.Is(err, service.ErrPlaceNotFound),
		errors.Is(err, service.ErrResourceNotFound):
		return Error(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrStaleGeneration),
		errors.Is(err, service.ErrPlaceNotInView):
		return Error(c, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrNoPhoto):
		return Error(c, http.StatusUnprocessableEntity, err.Error())
	default:
		zap.L().Error(fallback, zap.Error(err))
		return Error(c, http.StatusInternalServerError, fallback)
	}
}

func parseIntDefault(input string, fallback int) int {
	if input == "" {
		return fallback
	}
	if value, err := strconv.Atoi(input); err == nil {
		return value
	}
	return fallback
}
