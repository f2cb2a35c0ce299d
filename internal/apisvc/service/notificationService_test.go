package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/tavolo/tabletop-services/internal/apisvc/models"
)

func TestNotificationsPageWithUnreadCount(t *testing.T) {
	ctx := context.Background()
	store := newFakeNotificationStore()
	userStore := newFakeUserStore()
	svc := NewNotificationService(store, userStore)

	sender := seedUser(t, userStore, "bob", "bob@example.com")
	recipient := primitive.NewObjectID()

	for i := 0; i < 3; i++ {
		_, err := svc.Create(ctx, &models.Notification{
			Recipient: recipient,
			Sender:    sender.ID,
			Type:      models.NotificationFriendRequest,
			Message:   "bob sent you a friend request",
		})
		require.NoError(t, err)
	}

	page, err := svc.GetUserNotifications(ctx, recipient, 1, 2)
	require.NoError(t, err)
	assert.Len(t, page.Notifications, 2)
	assert.Equal(t, int64(3), page.UnreadCount)
	require.NotNil(t, page.Notifications[0].SenderUser)
	assert.Equal(t, "bob", page.Notifications[0].SenderUser.Username)
}

func TestMarkAsReadScopedToRecipient(t *testing.T) {
	ctx := context.Background()
	store := newFakeNotificationStore()
	svc := NewNotificationService(store, newFakeUserStore())

	recipient := primitive.NewObjectID()
	n, err := svc.Create(ctx, &models.Notification{
		Recipient: recipient,
		Sender:    primitive.NewObjectID(),
		Type:      models.NotificationMatchAdded,
		Message:   "a match was added",
	})
	require.NoError(t, err)

	_, err = svc.MarkAsRead(ctx, n.ID, primitive.NewObjectID())
	assert.True(t, models.IsNotFound(err))

	read, err := svc.MarkAsRead(ctx, n.ID, recipient)
	require.NoError(t, err)
	assert.True(t, read.IsRead)
}

func TestMarkAllAsRead(t *testing.T) {
	ctx := context.Background()
	store := newFakeNotificationStore()
	svc := NewNotificationService(store, newFakeUserStore())

	recipient := primitive.NewObjectID()
	for i := 0; i < 2; i++ {
		_, err := svc.Create(ctx, &models.Notification{
			Recipient: recipient,
			Sender:    primitive.NewObjectID(),
			Type:      models.NotificationMatchAdded,
			Message:   "a match was added",
		})
		require.NoError(t, err)
	}

	count, err := svc.MarkAllAsRead(ctx, recipient)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	count, err = svc.MarkAllAsRead(ctx, recipient)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}
