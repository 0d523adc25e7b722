package ports

import "context"

// InventoryPushRequest contrato de push hacia el inventario externo del marketplace.
type InventoryPushRequest struct {
	ClientID string `json:"client_id"`
	SKUID    string `json:"sku_id"`
	OnHand   int    `json:"on_hand"`
}

// InventoryPusher puerto de salida hacia la API de inventario del marketplace.
// Cualquier respuesta no exitosa o error de transporte se devuelve como error.
type InventoryPusher interface {
	PushInventory(ctx context.Context, req InventoryPushRequest) error
}
