package api

import (
	"context"

	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/jenezis/harmonizer/internal/middleware"
	"github.com/jenezis/harmonizer/internal/ws"
)

// EventsHandler upgrades GET /api/v1/events to a WebSocket subscribed to
// taxonomy events.
type EventsHandler struct {
	appCtx  context.Context
	hub     *ws.Hub
	origins []string
	log     *logrus.Logger
}

// NewEventsHandler creates an EventsHandler. Connections are closed when
// appCtx is cancelled. origins are the allowed browser Origin host patterns.
func NewEventsHandler(appCtx context.Context, hub *ws.Hub, origins []string, log *logrus.Logger) *EventsHandler {
	return &EventsHandler{appCtx: appCtx, hub: hub, origins: origins, log: log}
}

// Subscribe handles GET /api/v1/events.
func (h *EventsHandler) Subscribe(c *gin.Context) {
	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		OriginPatterns:       h.origins,
		CompressionMode:      websocket.CompressionContextTakeover,
		CompressionThreshold: 128,
	})
	if err != nil {
		middleware.Entry(c, h.log).WithError(err).Warn("websocket accept failed")

		return
	}

	client := ws.NewClient(h.hub, conn, c.ClientIP())
	h.hub.Register(client)

	ctx, cancel := context.WithCancel(h.appCtx)
	defer cancel()
	stop := context.AfterFunc(c.Request.Context(), cancel)
	defer stop()

	go client.WritePump(ctx)
	client.ReadPump(ctx)
}
