package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/octobees/place-intelligence/internal/dto"
	middlewarepkg "github.com/octobees/place-intelligence/internal/middleware"
	"github.com/octobees/place-intelligence/internal/service"
)

// SessionsHandler exposes browsing sessions and their deferred resources.
type SessionsHandler struct {
	service *service.PlacesService
}

// NewSessionsHandler creates a new handler instance.
func NewSessionsHandler(service *service.PlacesService) *SessionsHandler {
	return &SessionsHandler{service: service}
}

// Create handles POST /sessions requests. The body is an optional query.
func (h *SessionsHandler) Create(c echo.Context) error {
	var req dto.QueryRequest
	if err := c.Bind(&req); err != nil {
		return Error(c, http.StatusBadRequest, "invalid payload")
	}
	state, err := service.ParseQuery(req)
	if err != nil {
		return respondError(c, err, "failed to create session")
	}

	view := h.service.CreateSession(state)
	c.Set(middlewarepkg.ContextKeySessionID, view.SessionID)
	return Success(c, http.StatusCreated, "session created", view)
}

// UpdateQuery handles PUT /sessions/:id/query requests.
func (h *SessionsHandler) UpdateQuery(c echo.Context) error {
	id := h.sessionID(c)
	var req dto.QueryRequest
	if err := c.Bind(&req); err != nil {
		return Error(c, http.StatusBadRequest, "invalid payload")
	}
	state, err := service.ParseQuery(req)
	if err != nil {
		return respondError(c, err, "failed to update query")
	}

	view, err := h.service.UpdateQuery(id, state)
	if err != nil {
		return respondError(c, err, "failed to update query")
	}
	return Success(c, http.StatusOK, "query updated", view)
}

// Next handles POST /sessions/:id/next requests.
func (h *SessionsHandler) Next(c echo.Context) error {
	id := h.sessionID(c)
	var req dto.NextBatchRequest
	if err := c.Bind(&req); err != nil {
		return Error(c, http.StatusBadRequest, "invalid payload")
	}

	view, err := h.service.NextBatch(id, req.Generation)
	if err != nil {
		return respondError(c, err, "failed to load next batch")
	}
	return Success(c, http.StatusOK, "batch retrieved", view)
}

// Close handles DELETE /sessions/:id requests.
func (h *SessionsHandler) Close(c echo.Context) error {
	if err := h.service.CloseSession(h.sessionID(c)); err != nil {
		return respondError(c, err, "failed to close session")
	}
	return Success(c, http.StatusOK, "session closed", nil)
}

// RegisterResource handles POST /sessions/:id/resources requests.
func (h *SessionsHandler) RegisterResource(c echo.Context) error {
	id := h.sessionID(c)
	var req dto.RegisterResourceRequest
	if err := c.Bind(&req); err != nil {
		return Error(c, http.StatusBadRequest, "invalid payload")
	}
	if req.PlaceID == "" {
		return Error(c, http.StatusBadRequest, "place_id is required")
	}

	handle, err := h.service.RegisterResource(id, req.PlaceID)
	if err != nil {
		return respondError(c, err, "failed to register resource")
	}
	return Success(c, http.StatusCreated, "resource registered", handle)
}

// SignalResource handles POST /sessions/:id/resources/:rid/visible requests.
func (h *SessionsHandler) SignalResource(c echo.Context) error {
	res, err := h.service.SignalResource(h.sessionID(c), c.Param("rid"))
	if err != nil {
		return respondError(c, err, "failed to resolve resource")
	}
	return Success(c, http.StatusOK, "resource resolved", res)
}

// UnregisterResource handles DELETE /sessions/:id/resources/:rid requests.
func (h *SessionsHandler) UnregisterResource(c echo.Context) error {
	if err := h.service.UnregisterResource(h.sessionID(c), c.Param("rid")); err != nil {
		return respondError(c, err, "failed to withdraw resource")
	}
	return Success(c, http.StatusOK, "resource withdrawn", nil)
}

func (h *SessionsHandler) sessionID(c echo.Context) string {
	id := c.Param("id")
	c.Set(middlewarepkg.ContextKeySessionID, id)
	return id
}
