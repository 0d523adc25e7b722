package entity

import "time"

// SyncWarning advertencia durable: el stock quedó asentado pero el sistema externo no se actualizó.
// Hay a lo sumo una abierta por (cliente, SKU); cada fallo posterior acumula Attempts sobre ella.
type SyncWarning struct {
	ID            string
	ClientID      string
	SKUID         string
	OrderRef      string
	Attempts      int
	LastError     string
	Message       string
	CreatedAt     time.Time
	LastAttemptAt time.Time
	ResolvedAt    *time.Time
}

// IsOpen indica si la advertencia sigue pendiente de conciliación manual.
func (w *SyncWarning) IsOpen() bool {
	return w.ResolvedAt == nil
}
