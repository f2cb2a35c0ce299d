package broker

import (
	"encoding/json"

	"github.com/gorilla/websocket"
	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"

	"github.com/tavolo/tabletop-services/internal/comm"
)

// Broker consumes notification events from the API service and fans
// them out to every open connection of the recipient.
type Broker struct {
	Conn          *nats.Conn
	GetConnection func(string) (*websocket.Conn, bool)
	UserSockets   func(string) []string
}

func NewBroker(conn *nats.Conn, fncGetConnection func(string) (*websocket.Conn, bool), fncUserSockets func(string) []string) *Broker {
	return &Broker{
		Conn:          conn,
		GetConnection: fncGetConnection,
		UserSockets:   fncUserSockets,
	}
}

func (b *Broker) Subscribe(topic string) (*nats.Subscription, error) {
	sub, err := b.Conn.Subscribe(topic, b.handleMessages)
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// handleMessages receives a notification event from the api service
func (b *Broker) handleMessages(msgNats *nats.Msg) {
	event := &comm.NotificationEvent{}
	if err := json.Unmarshal(msgNats.Data, event); err != nil {
		log.Errorf("Error %s", err)
		return
	}

	if event.RecipientID == "" {
		log.Error("notification event without recipient")
		return
	}

	b.deliver(event, msgNats.Data)
}

// deliver pushes the event to each socket the recipient holds. A write
// failure on one socket never blocks the others.
func (b *Broker) deliver(event *comm.NotificationEvent, payload []byte) {
	sockets := b.UserSockets(event.RecipientID)
	if len(sockets) == 0 {
		log.Debugf("no open sockets for user %s, notification stays stored", event.RecipientID)
		return
	}

	for _, socketId := range sockets {
		conn, ok := b.GetConnection(socketId)
		if !ok {
			continue
		}
		m := comm.WSMessage{
			Type:     "notification",
			Data:     json.RawMessage(payload),
			SocketId: socketId,
		}
		if err := conn.WriteJSON(m); err != nil {
			log.Errorf("Failed to push notification to socket %s: %v", socketId, err)
		}
	}
}
