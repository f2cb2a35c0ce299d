package service

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/tavolo/tabletop-services/internal/apisvc/models"
)

type NotificationService struct {
	store     NotificationStore
	userStore UserStore
}

func NewNotificationService(store NotificationStore, userStore UserStore) *NotificationService {
	return &NotificationService{store: store, userStore: userStore}
}

func (s *NotificationService) Create(ctx context.Context, n *models.Notification) (*models.Notification, error) {
	now := time.Now()
	n.CreatedAt = now
	n.UpdatedAt = now
	if err := s.store.Insert(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

type NotificationPage struct {
	Notifications []models.NotificationView `json:"notifications"`
	UnreadCount   int64                     `json:"unreadCount"`
}

// GetUserNotifications returns a page of notifications with senders
// expanded plus the recipient's unread count.
func (s *NotificationService) GetUserNotifications(ctx context.Context, recipient primitive.ObjectID, page, limit int64) (*NotificationPage, error) {
	notifications, err := s.store.ListByRecipient(ctx, recipient, page, limit)
	if err != nil {
		return nil, err
	}

	var senderIDs []primitive.ObjectID
	for i := range notifications {
		senderIDs = append(senderIDs, notifications[i].Sender)
	}
	refs := map[primitive.ObjectID]models.UserRef{}
	if len(senderIDs) > 0 {
		if refs, err = s.userStore.Refs(ctx, senderIDs); err != nil {
			return nil, err
		}
	}

	views := make([]models.NotificationView, 0, len(notifications))
	for _, n := range notifications {
		v := models.NotificationView{Notification: n}
		if ref, ok := refs[n.Sender]; ok {
			r := ref
			v.SenderUser = &r
		}
		views = append(views, v)
	}

	unread, err := s.store.CountUnread(ctx, recipient)
	if err != nil {
		return nil, err
	}

	return &NotificationPage{Notifications: views, UnreadCount: unread}, nil
}

func (s *NotificationService) MarkAsRead(ctx context.Context, id, recipient primitive.ObjectID) (*models.Notification, error) {
	return s.store.MarkRead(ctx, id, recipient)
}

func (s *NotificationService) MarkAllAsRead(ctx context.Context, recipient primitive.ObjectID) (int64, error) {
	return s.store.MarkAllRead(ctx, recipient)
}
