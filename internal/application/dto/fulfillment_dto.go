package dto

// OutboundRequest salida por venta. Trigger distingue el webhook del marketplace de la acción manual.
type OutboundRequest struct {
	ClientID   string                `json:"client_id,omitempty"`
	OrderRef   string                `json:"order_ref"`
	SourceType string                `json:"source_type,omitempty"` // por defecto "shopify_fulfillment"
	Trigger    string                `json:"trigger,omitempty"`     // webhook | manual
	LocationID string                `json:"location_id"`
	Lines      []OutboundLineRequest `json:"lines"`
}

// OutboundLineRequest unidades vendidas de un SKU.
type OutboundLineRequest struct {
	SKUID    string `json:"sku_id"`
	Quantity int    `json:"quantity"`
}

// OutboundResponse resultado por línea; las líneas ya aplicadas se reportan como skipped.
type OutboundResponse struct {
	OrderRef string               `json:"order_ref"`
	Lines    []OutboundLineResult `json:"lines"`
}

// Estados de una línea de salida.
const (
	OutboundApplied = "applied"
	OutboundSkipped = "skipped"
)

// OutboundLineResult resultado de una línea de salida.
type OutboundLineResult struct {
	SKUID        string `json:"sku_id"`
	Status       string `json:"status"`
	EntryID      string `json:"entry_id,omitempty"`
	SyncEnqueued bool   `json:"sync_enqueued"`
}
