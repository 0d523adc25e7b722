package dto

import "time"

// AppendEntryRequest contrato de escritura del ledger para colaboradores (facturación, despacho).
type AppendEntryRequest struct {
	ClientID        string     `json:"client_id,omitempty"`
	SKUID           string     `json:"sku_id"`
	LocationID      string     `json:"location_id"`
	QtyDelta        int        `json:"qty_delta"`
	TransactionType string     `json:"transaction_type"`
	SourceType      string     `json:"source_type"`
	SourceRef       string     `json:"source_ref"`
	ReasonCode      string     `json:"reason_code,omitempty"`
	LotNumber       string     `json:"lot_number,omitempty"`
	ExpiryDate      *time.Time `json:"expiry_date,omitempty"`
	Notes           string     `json:"notes,omitempty"`
}

// AppendEntryResponse resultado de un append; Applied=false si la guarda de idempotencia lo omitió.
type AppendEntryResponse struct {
	Applied bool                 `json:"applied"`
	Entry   *LedgerEntryResponse `json:"entry,omitempty"`
}

// LedgerEntryResponse entrada del ledger.
type LedgerEntryResponse struct {
	ID              string     `json:"id"`
	ClientID        string     `json:"client_id"`
	SKUID           string     `json:"sku_id"`
	LocationID      string     `json:"location_id"`
	QtyDelta        int        `json:"qty_delta"`
	TransactionType string     `json:"transaction_type"`
	SourceType      string     `json:"source_type"`
	SourceRef       string     `json:"source_ref"`
	ASNLineID       string     `json:"asn_line_id,omitempty"`
	Bucket          string     `json:"bucket,omitempty"`
	BucketUnits     int        `json:"bucket_units,omitempty"`
	LotNumber       string     `json:"lot_number,omitempty"`
	ExpiryDate      *time.Time `json:"expiry_date,omitempty"`
	ReasonCode      string     `json:"reason_code,omitempty"`
	Notes           string     `json:"notes,omitempty"`
	CommitID        string     `json:"commit_id,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	CreatedBy       string     `json:"created_by"`
}

// OnHandResponse stock disponible por (sku, ubicación).
type OnHandResponse struct {
	ClientID   string `json:"client_id"`
	SKUID      string `json:"sku_id"`
	LocationID string `json:"location_id,omitempty"`
	Quantity   int    `json:"quantity"`
}

// SKUStockResponse stock de un SKU desglosado por ubicación.
type SKUStockResponse struct {
	SKUID     string           `json:"sku_id"`
	Total     int              `json:"total"`
	Locations []OnHandResponse `json:"locations"`
}

// DuplicateDecrementResponse grupo de salidas por venta repetidas (reporte de conciliación).
type DuplicateDecrementResponse struct {
	SourceType string `json:"source_type"`
	SourceRef  string `json:"source_ref"`
	SKUID      string `json:"sku_id"`
	Entries    int    `json:"entries"`
	TotalDelta int    `json:"total_delta"`
}
