package dto

import "time"

// SyncWarningResponse advertencia de sincronización pendiente de conciliación manual.
type SyncWarningResponse struct {
	ID            string     `json:"id"`
	ClientID      string     `json:"client_id"`
	SKUID         string     `json:"sku_id"`
	OrderRef      string     `json:"order_ref"`
	Attempts      int        `json:"attempts"`
	LastError     string     `json:"last_error"`
	Message       string     `json:"message"`
	CreatedAt     time.Time  `json:"created_at"`
	LastAttemptAt time.Time  `json:"last_attempt_at"`
	ResolvedAt    *time.Time `json:"resolved_at,omitempty"`
}

// SyncResultResponse resultado de un push síncrono (re-push manual o barrido).
type SyncResultResponse struct {
	ClientID string `json:"client_id"`
	SKUID    string `json:"sku_id"`
	OnHand   int    `json:"on_hand"`
	Success  bool   `json:"success"`
	Attempts int    `json:"attempts"`
	Error    string `json:"error,omitempty"`
}
