package hinsell

import (
	"context"
	"net/http"
	"time"
)

const campaignsBasePath = "/v1/campaigns"

// CampaignStatus is the lifecycle state of a campaign.
type CampaignStatus string

const (
	CampaignStatusDraft    CampaignStatus = "draft"
	CampaignStatusActive   CampaignStatus = "active"
	CampaignStatusPaused   CampaignStatus = "paused"
	CampaignStatusFinished CampaignStatus = "finished"
)

// Campaign is a marketing campaign record.
type Campaign struct {
	ID          string         `json:"id" validate:"required,uuid"`
	Name        string         `json:"name" validate:"required"`
	Status      CampaignStatus `json:"status" validate:"required,oneof=draft active paused finished"`
	Audience    string         `json:"audience,omitempty"`
	BudgetCents int64          `json:"budget_cents" validate:"gte=0"`
	StartsAt    *time.Time     `json:"starts_at,omitempty"`
	EndsAt      *time.Time     `json:"ends_at,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

type CreateCampaignParams struct {
	Name        string     `json:"name" validate:"required,max=255"`
	Audience    string     `json:"audience,omitempty" validate:"max=255"`
	BudgetCents int64      `json:"budget_cents" validate:"gte=0"`
	StartsAt    *time.Time `json:"starts_at,omitempty"`
	EndsAt      *time.Time `json:"ends_at,omitempty"`
}

type UpdateCampaignParams struct {
	Name        *string    `json:"name,omitempty" validate:"omitempty,max=255"`
	Audience    *string    `json:"audience,omitempty" validate:"omitempty,max=255"`
	BudgetCents *int64     `json:"budget_cents,omitempty" validate:"omitempty,gte=0"`
	StartsAt    *time.Time `json:"starts_at,omitempty"`
	EndsAt      *time.Time `json:"ends_at,omitempty"`
}

// CampaignsService exposes the /v1/campaigns resource group.
type CampaignsService struct {
	client *Client
}

func (s *CampaignsService) List(ctx context.Context, params ListParams) (*Page[Campaign], error) {
	out := &Page[Campaign]{}
	if err := s.client.call(ctx, http.MethodGet, campaignsBasePath, params.Values(), nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *CampaignsService) Get(ctx context.Context, id string) (*Campaign, error) {
	out := &Campaign{}
	if err := s.client.call(ctx, http.MethodGet, campaignsBasePath+"/"+id, nil, nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *CampaignsService) Create(ctx context.Context, params CreateCampaignParams) (*Campaign, error) {
	out := &Campaign{}
	if err := s.client.call(ctx, http.MethodPost, campaignsBasePath, nil, params, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *CampaignsService) Update(ctx context.Context, id string, params UpdateCampaignParams) (*Campaign, error) {
	out := &Campaign{}
	if err := s.client.call(ctx, http.MethodPatch, campaignsBasePath+"/"+id, nil, params, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Launch moves a draft or paused campaign to active.
func (s *CampaignsService) Launch(ctx context.Context, id string) (*Campaign, error) {
	out := &Campaign{}
	if err := s.client.call(ctx, http.MethodPost, campaignsBasePath+"/"+id+"/launch", nil, nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Pause suspends an active campaign.
func (s *CampaignsService) Pause(ctx context.Context, id string) (*Campaign, error) {
	out := &Campaign{}
	if err := s.client.call(ctx, http.MethodPost, campaignsBasePath+"/"+id+"/pause", nil, nil, out); err != nil {
		return nil, err
	}
	return out, nil
}
