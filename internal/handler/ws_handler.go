package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/sevahub/sevahub-backend/internal/config"
	"github.com/sevahub/sevahub-backend/internal/middleware"
	"github.com/sevahub/sevahub-backend/internal/model"
	"github.com/sevahub/sevahub-backend/internal/service"
	ws "github.com/sevahub/sevahub-backend/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams live notifications to students and admins.
type WSHandler struct {
	rdb                 *redis.Client
	notificationService *service.NotificationService
	log                 zerolog.Logger
	upgrader            websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(rdb *redis.Client, notificationService *service.NotificationService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		rdb:                 rdb,
		notificationService: notificationService,
		log:                 log.With().Str("component", "ws_handler").Logger(),
		upgrader:            buildUpgrader(allowedOrigins),
	}
}

// NotificationStream godoc
// WS /ws/v1/notifications?token=...
// Joins the caller's personal room plus the broadcast room and forwards every
// published notification. Clients may send ping and mark_read actions.
func (h *WSHandler) NotificationStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	recipientType := model.RecipientStudent
	if claims.TokenType == service.TokenTypeAdmin {
		recipientType = model.RecipientAdmin
	}
	userID := claims.UserID

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	// The request context ends once the handler returns; the socket outlives
	// the HTTP exchange, so it gets its own.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pubsub := h.rdb.Subscribe(ctx,
		config.CacheKey.UserNotificationChannel(string(recipientType), userID),
		config.CacheKey.BroadcastNotificationChannel(),
	)
	defer pubsub.Close()
	rooms := pubsub.Channel()

	wsLog := h.log.With().
		Str("recipient_type", string(recipientType)).
		Int("user_id", userID).
		Logger()
	wsLog.Info().Msg("Client connected")

	conn.SetPongHandler(ws.ExtendReadDeadline(conn))

	// Only this goroutine writes to the connection; the reader hands raw
	// frames over the channel.
	frames := make(chan []byte)
	go h.readLoop(ctx, cancel, conn, wsLog, frames)

	ping := time.NewTicker(ws.PingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			wsLog.Debug().Msg("Connection closed")
			return

		case msg, ok := <-rooms:
			if !ok {
				return
			}
			if err := ws.WriteRaw(conn, []byte(msg.Payload)); err != nil {
				wsLog.Debug().Err(err).Msg("Forward failed")
				return
			}

		case frame := <-frames:
			if err := h.handleFrame(ctx, conn, recipientType, userID, frame); err != nil {
				wsLog.Debug().Err(err).Msg("Reply failed")
				return
			}

		case <-ping.C:
			if err := ws.WritePing(conn); err != nil {
				return
			}
		}
	}
}

func (h *WSHandler) readLoop(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, wsLog zerolog.Logger, frames chan<- []byte) {
	defer cancel()
	for {
		var raw json.RawMessage
		if err := ws.ReadJSON(conn, &raw); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			}
			return
		}
		select {
		case frames <- raw:
		case <-ctx.Done():
			return
		}
	}
}

func (h *WSHandler) handleFrame(ctx context.Context, conn *websocket.Conn, recipientType model.RecipientType, userID int, frame []byte) error {
	var env ws.RequestEnvelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return ws.WriteError(conn, "malformed message")
	}

	switch env.Action {
	case ws.ActionPing:
		return ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong})

	case ws.ActionMarkRead:
		var req ws.MarkReadRequest
		if err := json.Unmarshal(frame, &req); err != nil {
			return ws.WriteError(conn, "malformed mark_read")
		}
		if err := h.notificationService.MarkRead(ctx, recipientType, userID, req.ID); err != nil {
			h.log.Error().Err(err).Int("user_id", userID).Msg("Mark read failed")
			return ws.WriteError(conn, "mark read failed")
		}
		return ws.WriteTyped(conn, ws.SuccessResponse{Event: ws.EventSuccess, Status: "read"})

	default:
		return ws.WriteError(conn, "unknown action: "+string(env.Action))
	}
}
