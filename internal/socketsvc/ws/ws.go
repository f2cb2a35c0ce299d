package ws

import (
	"sync"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/tavolo/tabletop-services/internal/comm"
)

// Ws tracks open socket connections. A user can hold several sockets at
// once (multiple tabs or devices), so connections are keyed by socketId
// and mapped back to the owning user separately.
type Ws struct {
	connMap sync.Map // socketId -> *websocket.Conn
	userMap sync.Map // socketId -> user id (hex)
}

func NewWs() *Ws {
	return &Ws{}
}

// handle socket message from web clients
func (s *Ws) SocketMessage(socketId string, message *comm.WSMessage) {
	switch message.Type {
	case "ping":
		s.handlePing(socketId)
	default:
		log.Warnf("unknown event received: %s", message.Type)
	}
}

func (s *Ws) handlePing(socketId string) {
	conn, ok := s.GetConnection(socketId)
	if !ok {
		return
	}
	if err := conn.WriteJSON(comm.WSMessage{Type: "pong", SocketId: socketId}); err != nil {
		log.Errorf("Failed to send pong to socket %s: %v", socketId, err)
	}
}

func (s *Ws) StoreConnection(socketId string, conn *websocket.Conn) {
	s.connMap.Store(socketId, conn)
}

// BindUser associates a socket with its authenticated user.
func (s *Ws) BindUser(socketId string, userID string) {
	s.userMap.Store(socketId, userID)
}

func (s *Ws) GetConnection(socketId string) (*websocket.Conn, bool) {
	conn, ok := s.connMap.Load(socketId)
	if !ok {
		return nil, false
	}
	return conn.(*websocket.Conn), true
}

// UserSockets returns every open socket id for a user.
func (s *Ws) UserSockets(userID string) []string {
	var sockets []string
	s.userMap.Range(func(key, value interface{}) bool {
		if value.(string) == userID {
			sockets = append(sockets, key.(string))
		}
		return true
	})
	return sockets
}

func (s *Ws) HandleDisconnect(socketId string) {
	s.connMap.Delete(socketId)
	s.userMap.Delete(socketId)
}
