package websocket

import "github.com/sevahub/sevahub-backend/internal/model"

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionPing     Action = "ping"
	ActionMarkRead Action = "mark_read"
)

// RequestEnvelope is used to peek at the action before full parsing.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

// MarkReadRequest marks one notification read, or all of them when ID is nil.
type MarkReadRequest struct {
	Action Action `json:"action"`
	ID     *int64 `json:"id"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError        Event = "error"
	EventSuccess      Event = "success"
	EventNotification Event = "notification"
	EventPong         Event = "pong"
)

// NotificationMessage is the payload published to a room and forwarded to sockets as-is.
type NotificationMessage struct {
	Event        Event              `json:"event"`
	Notification model.Notification `json:"notification"`
}

type SuccessResponse struct {
	Event  Event  `json:"event"`
	Status string `json:"status"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
