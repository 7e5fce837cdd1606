package hinsell

import (
	"context"
	"net/http"
	"time"
)

const accountsBasePath = "/v1/accounts"

// AccountType classifies a ledger account.
type AccountType string

const (
	AccountTypeAsset     AccountType = "asset"
	AccountTypeLiability AccountType = "liability"
	AccountTypeEquity    AccountType = "equity"
	AccountTypeRevenue   AccountType = "revenue"
	AccountTypeExpense   AccountType = "expense"
)

// Account is a ledger account record.
type Account struct {
	ID        string      `json:"id" validate:"required,uuid"`
	Code      string      `json:"code" validate:"required"`
	Name      string      `json:"name" validate:"required"`
	Type      AccountType `json:"type" validate:"required,oneof=asset liability equity revenue expense"`
	Currency  string      `json:"currency" validate:"required,len=3"`
	Balance   int64       `json:"balance"`
	Archived  bool        `json:"archived"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// CreateAccountParams is the request body for Create.
type CreateAccountParams struct {
	Code     string      `json:"code" validate:"required,max=32"`
	Name     string      `json:"name" validate:"required,max=255"`
	Type     AccountType `json:"type" validate:"required,oneof=asset liability equity revenue expense"`
	Currency string      `json:"currency" validate:"required,len=3"`
}

// UpdateAccountParams is the request body for Update. Nil fields are left
// untouched by the backend.
type UpdateAccountParams struct {
	Name     *string `json:"name,omitempty" validate:"omitempty,max=255"`
	Archived *bool   `json:"archived,omitempty"`
}

// AccountsService exposes the /v1/accounts resource group.
type AccountsService struct {
	client *Client
}

// List returns one page of accounts.
func (s *AccountsService) List(ctx context.Context, params ListParams) (*Page[Account], error) {
	out := &Page[Account]{}
	if err := s.client.call(ctx, http.MethodGet, accountsBasePath, params.Values(), nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Get fetches a single account by ID.
func (s *AccountsService) Get(ctx context.Context, id string) (*Account, error) {
	out := &Account{}
	if err := s.client.call(ctx, http.MethodGet, accountsBasePath+"/"+id, nil, nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Create opens a new ledger account.
func (s *AccountsService) Create(ctx context.Context, params CreateAccountParams) (*Account, error) {
	out := &Account{}
	if err := s.client.call(ctx, http.MethodPost, accountsBasePath, nil, params, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Update applies a partial update to an account.
func (s *AccountsService) Update(ctx context.Context, id string, params UpdateAccountParams) (*Account, error) {
	out := &Account{}
	if err := s.client.call(ctx, http.MethodPatch, accountsBasePath+"/"+id, nil, params, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes an account. Accounts with postings are archived instead by
// the backend.
func (s *AccountsService) Delete(ctx context.Context, id string) error {
	return s.client.call(ctx, http.MethodDelete, accountsBasePath+"/"+id, nil, nil, nil)
}
