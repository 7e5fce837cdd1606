package hinsell

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

const webhookEndpointsBasePath = "/v1/webhooks/endpoints"

// WebhookEndpoint is a registered delivery target for event notifications.
type WebhookEndpoint struct {
	ID         string    `json:"id" validate:"required,uuid"`
	URL        string    `json:"url" validate:"required,url"`
	EventTypes []string  `json:"event_types" validate:"required,min=1"`
	// Secret is only populated on Create and RotateSecret responses.
	Secret    string    `json:"secret,omitempty"`
	Disabled  bool      `json:"disabled"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// WebhookDelivery is one attempt at delivering an event to an endpoint.
type WebhookDelivery struct {
	ID           string          `json:"id" validate:"required,uuid"`
	EndpointID   string          `json:"endpoint_id" validate:"required,uuid"`
	EventType    string          `json:"event_type" validate:"required"`
	Payload      json.RawMessage `json:"payload,omitempty"`
	StatusCode   int             `json:"status_code"`
	Succeeded    bool            `json:"succeeded"`
	AttemptCount int             `json:"attempt_count" validate:"gte=1"`
	DeliveredAt  *time.Time      `json:"delivered_at,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

type CreateWebhookEndpointParams struct {
	URL        string   `json:"url" validate:"required,url"`
	EventTypes []string `json:"event_types" validate:"required,min=1,dive,required"`
}

type UpdateWebhookEndpointParams struct {
	URL        *string  `json:"url,omitempty" validate:"omitempty,url"`
	EventTypes []string `json:"event_types,omitempty" validate:"omitempty,min=1,dive,required"`
	Disabled   *bool    `json:"disabled,omitempty"`
}

// WebhooksService exposes the /v1/webhooks resource group.
type WebhooksService struct {
	client *Client
}

func (s *WebhooksService) List(ctx context.Context, params ListParams) (*Page[WebhookEndpoint], error) {
	out := &Page[WebhookEndpoint]{}
	if err := s.client.call(ctx, http.MethodGet, webhookEndpointsBasePath, params.Values(), nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *WebhooksService) Get(ctx context.Context, id string) (*WebhookEndpoint, error) {
	out := &WebhookEndpoint{}
	if err := s.client.call(ctx, http.MethodGet, webhookEndpointsBasePath+"/"+id, nil, nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *WebhooksService) Create(ctx context.Context, params CreateWebhookEndpointParams) (*WebhookEndpoint, error) {
	out := &WebhookEndpoint{}
	if err := s.client.call(ctx, http.MethodPost, webhookEndpointsBasePath, nil, params, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *WebhooksService) Update(ctx context.Context, id string, params UpdateWebhookEndpointParams) (*WebhookEndpoint, error) {
	out := &WebhookEndpoint{}
	if err := s.client.call(ctx, http.MethodPatch, webhookEndpointsBasePath+"/"+id, nil, params, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *WebhooksService) Delete(ctx context.Context, id string) error {
	return s.client.call(ctx, http.MethodDelete, webhookEndpointsBasePath+"/"+id, nil, nil, nil)
}

// RotateSecret replaces the signing secret; the old secret stays valid for a
// short grace period so in-flight deliveries still verify.
func (s *WebhooksService) RotateSecret(ctx context.Context, id string) (*WebhookEndpoint, error) {
	out := &WebhookEndpoint{}
	if err := s.client.call(ctx, http.MethodPost, webhookEndpointsBasePath+"/"+id+"/rotate-secret", nil, nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Deliveries lists delivery attempts for an endpoint, newest first.
func (s *WebhooksService) Deliveries(ctx context.Context, id string, params ListParams) (*Page[WebhookDelivery], error) {
	out := &Page[WebhookDelivery]{}
	if err := s.client.call(ctx, http.MethodGet, webhookEndpointsBasePath+"/"+id+"/deliveries", params.Values(), nil, out); err != nil {
		return nil, err
	}
	return out, nil
}
