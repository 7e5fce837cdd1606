package hinsell

import (
	"context"
	"net/http"
	"time"
)

const itemsBasePath = "/v1/items"

// Item is an inventory item record.
type Item struct {
	ID          string    `json:"id" validate:"required,uuid"`
	SKU         string    `json:"sku" validate:"required"`
	Name        string    `json:"name" validate:"required"`
	Description string    `json:"description,omitempty"`
	UnitPrice   int64     `json:"unit_price" validate:"gte=0"`
	Currency    string    `json:"currency" validate:"required,len=3"`
	Quantity    int64     `json:"quantity"`
	ReorderAt   int64     `json:"reorder_at"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type CreateItemParams struct {
	SKU         string `json:"sku" validate:"required,max=64"`
	Name        string `json:"name" validate:"required,max=255"`
	Description string `json:"description,omitempty" validate:"max=2048"`
	UnitPrice   int64  `json:"unit_price" validate:"gte=0"`
	Currency    string `json:"currency" validate:"required,len=3"`
	Quantity    int64  `json:"quantity" validate:"gte=0"`
	ReorderAt   int64  `json:"reorder_at" validate:"gte=0"`
}

type UpdateItemParams struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,max=255"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=2048"`
	UnitPrice   *int64  `json:"unit_price,omitempty" validate:"omitempty,gte=0"`
	ReorderAt   *int64  `json:"reorder_at,omitempty" validate:"omitempty,gte=0"`
	Active      *bool   `json:"active,omitempty"`
}

// AdjustStockParams moves the on-hand quantity by Delta with an audit reason.
type AdjustStockParams struct {
	Delta  int64  `json:"delta" validate:"required"`
	Reason string `json:"reason" validate:"required,max=255"`
}

// ItemsService exposes the /v1/items resource group.
type ItemsService struct {
	client *Client
}

func (s *ItemsService) List(ctx context.Context, params ListParams) (*Page[Item], error) {
	out := &Page[Item]{}
	if err := s.client.call(ctx, http.MethodGet, itemsBasePath, params.Values(), nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *ItemsService) Get(ctx context.Context, id string) (*Item, error) {
	out := &Item{}
	if err := s.client.call(ctx, http.MethodGet, itemsBasePath+"/"+id, nil, nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *ItemsService) Create(ctx context.Context, params CreateItemParams) (*Item, error) {
	out := &Item{}
	if err := s.client.call(ctx, http.MethodPost, itemsBasePath, nil, params, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *ItemsService) Update(ctx context.Context, id string, params UpdateItemParams) (*Item, error) {
	out := &Item{}
	if err := s.client.call(ctx, http.MethodPatch, itemsBasePath+"/"+id, nil, params, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *ItemsService) Delete(ctx context.Context, id string) error {
	return s.client.call(ctx, http.MethodDelete, itemsBasePath+"/"+id, nil, nil, nil)
}

// AdjustStock applies a signed quantity delta to an item's stock level.
func (s *ItemsService) AdjustStock(ctx context.Context, id string, params AdjustStockParams) (*Item, error) {
	out := &Item{}
	if err := s.client.call(ctx, http.MethodPost, itemsBasePath+"/"+id+"/adjust-stock", nil, params, out); err != nil {
		return nil, err
	}
	return out, nil
}
