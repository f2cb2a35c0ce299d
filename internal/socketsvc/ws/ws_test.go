package ws

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUserSocketsTracksMultipleConnections(t *testing.T) {
	s := NewWs()

	s.BindUser("sock-1", "user-a")
	s.BindUser("sock-2", "user-a")
	s.BindUser("sock-3", "user-b")

	sockets := s.UserSockets("user-a")
	assert.ElementsMatch(t, []string{"sock-1", "sock-2"}, sockets)

	assert.Empty(t, s.UserSockets("user-c"))
}

func TestHandleDisconnectRemovesBindings(t *testing.T) {
	s := NewWs()

	s.BindUser("sock-1", "user-a")
	s.HandleDisconnect("sock-1")

	assert.Empty(t, s.UserSockets("user-a"))
	_, ok := s.GetConnection("sock-1")
	assert.False(t, ok)
}
