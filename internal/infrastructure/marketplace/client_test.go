package marketplace

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/wms-ledger/internal/application/ports"
)

func TestClient_PushInventory_OK(t *testing.T) {
	var got inventoryPayload
	var apiKey, method, path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method, path = r.Method, r.URL.Path
		apiKey = r.Header.Get("X-API-Key")
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", "secreto", nil)
	err := c.PushInventory(context.Background(), ports.InventoryPushRequest{ClientID: "c1", SKUID: "sku-1", OnHand: 42})
	require.NoError(t, err)

	assert.Equal(t, http.MethodPut, method)
	assert.Equal(t, inventoryPath, path)
	assert.Equal(t, "secreto", apiKey)
	assert.Equal(t, inventoryPayload{ClientID: "c1", SKUID: "sku-1", OnHand: 42}, got)
}

func TestClient_PushInventory_ErrorNo2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", nil)
	err := c.PushInventory(context.Background(), ports.InventoryPushRequest{ClientID: "c1", SKUID: "sku-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
	assert.Contains(t, err.Error(), "rate limited")
}

func TestClient_PushInventory_ContextoCancelado(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewClient(srv.URL, "", nil)
	err := c.PushInventory(ctx, ports.InventoryPushRequest{ClientID: "c1", SKUID: "sku-1"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClient_ModoSimulado(t *testing.T) {
	c := NewClient("", "", nil)
	assert.True(t, c.Simulated())
	assert.NoError(t, c.PushInventory(context.Background(), ports.InventoryPushRequest{ClientID: "c1", SKUID: "sku-1", OnHand: 1}))
}
