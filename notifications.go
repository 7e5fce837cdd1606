package hinsell

import (
	"context"
	"net/http"
	"time"
)

const notificationsBasePath = "/v1/notifications"

// NotificationChannel is the transport a notification goes out on.
type NotificationChannel string

const (
	NotificationChannelEmail NotificationChannel = "email"
	NotificationChannelSMS   NotificationChannel = "sms"
	NotificationChannelInApp NotificationChannel = "in_app"
)

// Notification is a message sent to a recipient over one channel.
type Notification struct {
	ID        string              `json:"id" validate:"required,uuid"`
	Recipient string              `json:"recipient" validate:"required"`
	Channel   NotificationChannel `json:"channel" validate:"required,oneof=email sms in_app"`
	Subject   string              `json:"subject,omitempty"`
	Body      string              `json:"body" validate:"required"`
	Read      bool                `json:"read"`
	SentAt    *time.Time          `json:"sent_at,omitempty"`
	CreatedAt time.Time           `json:"created_at"`
}

type SendNotificationParams struct {
	Recipient string              `json:"recipient" validate:"required,max=320"`
	Channel   NotificationChannel `json:"channel" validate:"required,oneof=email sms in_app"`
	Subject   string              `json:"subject,omitempty" validate:"max=255"`
	Body      string              `json:"body" validate:"required,max=10000"`
}

// NotificationsService exposes the /v1/notifications resource group.
type NotificationsService struct {
	client *Client
}

func (s *NotificationsService) List(ctx context.Context, params ListParams) (*Page[Notification], error) {
	out := &Page[Notification]{}
	if err := s.client.call(ctx, http.MethodGet, notificationsBasePath, params.Values(), nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *NotificationsService) Get(ctx context.Context, id string) (*Notification, error) {
	out := &Notification{}
	if err := s.client.call(ctx, http.MethodGet, notificationsBasePath+"/"+id, nil, nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Send queues a notification for delivery.
func (s *NotificationsService) Send(ctx context.Context, params SendNotificationParams) (*Notification, error) {
	out := &Notification{}
	if err := s.client.call(ctx, http.MethodPost, notificationsBasePath, nil, params, out); err != nil {
		return nil, err
	}
	return out, nil
}

// MarkRead flags an in-app notification as read.
func (s *NotificationsService) MarkRead(ctx context.Context, id string) (*Notification, error) {
	out := &Notification{}
	if err := s.client.call(ctx, http.MethodPost, notificationsBasePath+"/"+id+"/read", nil, nil, out); err != nil {
		return nil, err
	}
	return out, nil
}
