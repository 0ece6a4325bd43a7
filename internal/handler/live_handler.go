package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/octobees/place-intelligence/internal/dto"
	middlewarepkg "github.com/octobees/place-intelligence/internal/middleware"
	"github.com/octobees/place-intelligence/internal/service"
)

const (
	liveWriteTimeout = 10 * time.Second
	liveOutboxSize   = 32
)

// Inbound and outbound live message types.
const (
	LiveQuery      = "query"
	LiveMore       = "more"
	LiveRegister   = "register"
	LiveVisible    = "visible"
	LiveHidden     = "hidden"
	LiveBatch      = "batch"
	LiveRegistered = "registered"
	LiveResource   = "resource"
	LiveError      = "error"
)

// LiveMessage is the envelope exchanged over the live websocket.
type LiveMessage struct {
	Type       string                `json:"type"`
	Query      *dto.QueryRequest     `json:"query,omitempty"`
	Generation uint64                `json:"generation,omitempty"`
	PlaceID    string                `json:"place_id,omitempty"`
	ResourceID string                `json:"resource_id,omitempty"`
	Batch      *dto.BatchView        `json:"batch,omitempty"`
	Handle     *dto.ResourceHandle   `json:"handle,omitempty"`
	Resource   *dto.ResolvedResource `json:"resource,omitempty"`
	Error      string                `json:"error,omitempty"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// LiveHandler drives a session over a websocket: query edits are debounced,
// batches and resolved resources are pushed as they become available.
type LiveHandler struct {
	service  *service.PlacesService
	debounce time.Duration
	logger   *zap.Logger
}

// NewLiveHandler creates a new handler instance.
func NewLiveHandler(service *service.PlacesService, debounce time.Duration, logger *zap.Logger) *LiveHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LiveHandler{service: service, debounce: debounce, logger: logger}
}

// Serve handles GET /sessions/:id/live requests.
func (h *LiveHandler) Serve(c echo.Context) error {
	id := c.Param("id")
	c.Set(middlewarepkg.ContextKeySessionID, id)

	session, err := h.service.Session(id)
	if err != nil {
		return respondError(c, err, "failed to open live session")
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.String("session_id", id), zap.Error(err))
		return nil
	}
	defer conn.Close()

	g, ctx := errgroup.WithContext(c.Request().Context())
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	outbox := make(chan LiveMessage, liveOutboxSize)
	send := func(msg LiveMessage) {
		select {
		case outbox <- msg:
		case <-ctx.Done():
		}
	}

	stop := session.Listen(func(res dto.ResolvedResource) {
		send(LiveMessage{Type: LiveResource, Resource: &res})
	})
	defer stop()

	debouncer := service.NewDebouncer(h.debounce)
	defer debouncer.Stop()

	g.Go(func() error {
		defer conn.Close()
		for {
			select {
			case <-ctx.Done():
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
					time.Now().Add(time.Second))
				return nil
			case msg := <-outbox:
				_ = conn.SetWriteDeadline(time.Now().Add(liveWriteTimeout))
				if err := conn.WriteJSON(msg); err != nil {
					return err
				}
			}
		}
	})

	g.Go(func() error {
		defer cancel()
		for {
			var msg LiveMessage
			if err := conn.ReadJSON(&msg); err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) && ctx.Err() == nil {
					h.logger.Debug("live read ended", zap.String("session_id", id), zap.Error(err))
				}
				return nil
			}
			h.dispatch(id, msg, debouncer, send)
		}
	})

	if err := g.Wait(); err != nil {
		h.logger.Debug("live write ended", zap.String("session_id", id), zap.Error(err))
	}
	return nil
}

func (h *LiveHandler) dispatch(id string, msg LiveMessage, debouncer *service.Debouncer, send func(LiveMessage)) {
	fail := func(err error) {
		send(LiveMessage{Type: LiveError, Error: err.Error()})
	}

	switch msg.Type {
	case LiveQuery:
		var req dto.QueryRequest
		if msg.Query != nil {
			req = *msg.Query
		}
		state, err := service.ParseQuery(req)
		if err != nil {
			fail(err)
			return
		}
		debouncer.Trigger(func() {
			view, err := h.service.UpdateQuery(id, state)
			if err != nil {
				fail(err)
				return
			}
			send(LiveMessage{Type: LiveBatch, Batch: &view})
		})
	case LiveMore:
		view, err := h.service.NextBatch(id, msg.Generation)
		if err != nil {
			fail(err)
			return
		}
		send(LiveMessage{Type: LiveBatch, Batch: &view})
	case LiveRegister:
		handle, err := h.service.RegisterResource(id, msg.PlaceID)
		if err != nil {
			fail(err)
			return
		}
		send(LiveMessage{Type: LiveRegistered, PlaceID: msg.PlaceID, Handle: &handle})
	case LiveVisible:
		if _, err := h.service.SignalResource(id, msg.ResourceID); err != nil {
			fail(err)
		}
	case LiveHidden:
		if err := h.service.UnregisterResource(id, msg.ResourceID); err != nil {
			fail(err)
		}
	default:
		send(LiveMessage{Type: LiveError, Error: "unsupported message type " + msg.Type})
	}
}
