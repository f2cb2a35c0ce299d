package comm

import "encoding/json"

// NotifyTopic carries notification events from the API service to the
// socket service.
const NotifyTopic = "socket.notify"

// WSMessage is the envelope for socket traffic in both directions.
type WSMessage struct {
	Type     string          `json:"type"` // e.g. "notification"
	Data     json.RawMessage `json:"data"`
	SocketId string          `json:"socketid,omitempty"`
}

// SenderData is the display projection of the user that caused an
// event.
type SenderData struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar,omitempty"`
}

// NotificationEvent travels over NATS and is delivered to every open
// connection of the recipient.
type NotificationEvent struct {
	RecipientID string                 `json:"recipient_id"`
	Type        string                 `json:"type"`
	Message     string                 `json:"message"`
	Sender      SenderData             `json:"sender"`
	Data        map[string]interface{} `json:"data,omitempty"`
}
