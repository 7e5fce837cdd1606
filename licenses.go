package hinsell

import (
	"context"
	"net/http"
	"time"
)

const licensesBasePath = "/v1/licenses"

// LicenseStatus is the lifecycle state of a license.
type LicenseStatus string

const (
	LicenseStatusPending LicenseStatus = "pending"
	LicenseStatusActive  LicenseStatus = "active"
	LicenseStatusExpired LicenseStatus = "expired"
	LicenseStatusRevoked LicenseStatus = "revoked"
)

// License is a product license record.
type License struct {
	ID          string        `json:"id" validate:"required,uuid"`
	Key         string        `json:"key" validate:"required"`
	ProductCode string        `json:"product_code" validate:"required"`
	AccountID   string        `json:"account_id" validate:"required,uuid"`
	Status      LicenseStatus `json:"status" validate:"required,oneof=pending active expired revoked"`
	Seats       int           `json:"seats" validate:"gte=1"`
	SeatsUsed   int           `json:"seats_used" validate:"gte=0"`
	ExpiresAt   *time.Time    `json:"expires_at,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// IssueLicenseParams is the request body for Issue.
type IssueLicenseParams struct {
	ProductCode string     `json:"product_code" validate:"required,max=64"`
	AccountID   string     `json:"account_id" validate:"required,uuid"`
	Seats       int        `json:"seats" validate:"required,gte=1,lte=10000"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

// ActivateLicenseParams binds an activation key to a device.
type ActivateLicenseParams struct {
	ActivationKey string `json:"activation_key" validate:"required,min=16"`
	DeviceID      string `json:"device_id" validate:"required,max=128"`
}

// RevokeLicenseParams is the request body for Revoke.
type RevokeLicenseParams struct {
	Reason string `json:"reason" validate:"required,max=255"`
}

// LicensesService exposes the /v1/licenses resource group.
type LicensesService struct {
	client *Client
}

func (s *LicensesService) List(ctx context.Context, params ListParams) (*Page[License], error) {
	out := &Page[License]{}
	if err := s.client.call(ctx, http.MethodGet, licensesBasePath, params.Values(), nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *LicensesService) Get(ctx context.Context, id string) (*License, error) {
	out := &License{}
	if err := s.client.call(ctx, http.MethodGet, licensesBasePath+"/"+id, nil, nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Issue creates a new license for an account.
func (s *LicensesService) Issue(ctx context.Context, params IssueLicenseParams) (*License, error) {
	out := &License{}
	if err := s.client.call(ctx, http.MethodPost, licensesBasePath, nil, params, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Activate consumes an activation key, binding a seat to a device.
func (s *LicensesService) Activate(ctx context.Context, id string, params ActivateLicenseParams) (*License, error) {
	out := &License{}
	if err := s.client.call(ctx, http.MethodPost, licensesBasePath+"/"+id+"/activate", nil, params, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Revoke permanently invalidates a license.
func (s *LicensesService) Revoke(ctx context.Context, id string, params RevokeLicenseParams) (*License, error) {
	out := &License{}
	if err := s.client.call(ctx, http.MethodPost, licensesBasePath+"/"+id+"/revoke", nil, params, out); err != nil {
		return nil, err
	}
	return out, nil
}
