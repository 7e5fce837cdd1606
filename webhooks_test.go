package hinsell

import (
	"context"
	"net/http"
	"testing"
)

const testEndpointID = "1a2b3c4d-5e6f-4a8b-9c0d-1e2f3a4b5c6d"

const endpointJSON = `{
	"id": "` + testEndpointID + `",
	"url": "https://hooks.example.com/hinsell",
	"event_types": ["item.updated", "license.revoked"],
	"disabled": false
}`

func TestWebhooksCreateReturnsSecret(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/webhooks/endpoints" {
			t.Errorf("Unexpected request %s %s", r.Method, r.URL.Path)
		}
		writeJSON(t, w, http.StatusCreated, `{
			"id": "`+testEndpointID+`",
			"url": "https://hooks.example.com/hinsell",
			"event_types": ["item.updated"],
			"secret": "whsec_abc123"
		}`)
	}))

	endpoint, err := client.Webhooks.Create(context.Background(), CreateWebhookEndpointParams{
		URL:        "https://hooks.example.com/hinsell",
		EventTypes: []string{"item.updated"},
	})
	if err != nil {
		t.Fatalf("Create() returned error: %v", err)
	}
	if endpoint.Secret != "whsec_abc123" {
		t.Errorf("Expected secret on create, got %q", endpoint.Secret)
	}
}

func TestWebhooksCreateRejectsBadURL(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("Expected request to never reach the server")
	}))

	_, err := client.Webhooks.Create(context.Background(), CreateWebhookEndpointParams{
		URL:        "not a url",
		EventTypes: []string{"item.updated"},
	})
	if err == nil {
		t.Fatal("Expected validation error for malformed URL")
	}
}

func TestWebhooksCreateRequiresEventTypes(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("Expected request to never reach the server")
	}))

	_, err := client.Webhooks.Create(context.Background(), CreateWebhookEndpointParams{
		URL: "https://hooks.example.com/hinsell",
	})
	if err == nil {
		t.Fatal("Expected validation error for missing event types")
	}
}

func TestWebhooksGetAndUpdate(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodPatch:
			if r.URL.Path != "/v1/webhooks/endpoints/"+testEndpointID {
				t.Errorf("Unexpected path %s", r.URL.Path)
			}
			writeJSON(t, w, http.StatusOK, endpointJSON)
		default:
			t.Errorf("Unexpected method %s", r.Method)
		}
	}))

	if _, err := client.Webhooks.Get(context.Background(), testEndpointID); err != nil {
		t.Fatalf("Get() returned error: %v", err)
	}

	disabled := true
	if _, err := client.Webhooks.Update(context.Background(), testEndpointID, UpdateWebhookEndpointParams{Disabled: &disabled}); err != nil {
		t.Fatalf("Update() returned error: %v", err)
	}
}

func TestWebhooksRotateSecret(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/webhooks/endpoints/"+testEndpointID+"/rotate-secret" {
			t.Errorf("Unexpected request %s %s", r.Method, r.URL.Path)
		}
		writeJSON(t, w, http.StatusOK, `{
			"id": "`+testEndpointID+`",
			"url": "https://hooks.example.com/hinsell",
			"event_types": ["item.updated"],
			"secret": "whsec_rotated"
		}`)
	}))

	endpoint, err := client.Webhooks.RotateSecret(context.Background(), testEndpointID)
	if err != nil {
		t.Fatalf("RotateSecret() returned error: %v", err)
	}
	if endpoint.Secret != "whsec_rotated" {
		t.Errorf("Expected rotated secret, got %q", endpoint.Secret)
	}
}

func TestWebhooksDeliveries(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/v1/webhooks/endpoints/"+testEndpointID+"/deliveries" {
			t.Errorf("Unexpected request %s %s", r.Method, r.URL.Path)
		}
		writeJSON(t, w, http.StatusOK, `{
			"data": [{
				"id": "7c8d9e0f-1a2b-4c3d-8e4f-5a6b7c8d9e0f",
				"endpoint_id": "`+testEndpointID+`",
				"event_type": "license.revoked",
				"status_code": 200,
				"succeeded": true,
				"attempt_count": 1
			}],
			"next_cursor": "",
			"has_more": false
		}`)
	}))

	page, err := client.Webhooks.Deliveries(context.Background(), testEndpointID, ListParams{})
	if err != nil {
		t.Fatalf("Deliveries() returned error: %v", err)
	}
	if len(page.Data) != 1 || !page.Data[0].Succeeded {
		t.Errorf("Unexpected deliveries page %+v", page)
	}
}

func TestWebhooksDelete(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete || r.URL.Path != "/v1/webhooks/endpoints/"+testEndpointID {
			t.Errorf("Unexpected request %s %s", r.Method, r.URL.Path)
		}
		w.WriteHeader(http.StatusNoContent)
	}))

	if err := client.Webhooks.Delete(context.Background(), testEndpointID); err != nil {
		t.Fatalf("Delete() returned error: %v", err)
	}
}
