package broker

import (
	"encoding/json"

	"github.com/nats-io/nats.go"

	"github.com/tavolo/tabletop-services/internal/apisvc/models"
	"github.com/tavolo/tabletop-services/internal/comm"
	log "github.com/sirupsen/logrus"
)

// Broker publishes domain events for the socket service to deliver.
// Delivery is best effort; a publish failure never fails the request
// that produced the event.
type Broker struct {
	Conn *nats.Conn
}

func NewBroker(nc *nats.Conn) *Broker {
	return &Broker{Conn: nc}
}

// PublishNotification pushes a stored notification towards the
// recipient's open connections.
func (b *Broker) PublishNotification(n *models.Notification, sender models.UserRef) {
	event := comm.NotificationEvent{
		RecipientID: n.Recipient.Hex(),
		Type:        n.Type,
		Message:     n.Message,
		Sender: comm.SenderData{
			ID:       sender.ID.Hex(),
			Username: sender.Username,
			Avatar:   sender.Avatar,
		},
		Data: n.Data,
	}

	bytes, err := json.Marshal(event)
	if err != nil {
		log.Errorf("Failed to marshal notification event: %v", err)
		return
	}

	if err := b.Conn.Publish(comm.NotifyTopic, bytes); err != nil {
		log.Errorf("Error publishing to topic %s: %s", comm.NotifyTopic, err)
	}
}
