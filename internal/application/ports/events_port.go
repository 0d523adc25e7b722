package ports

import (
	"context"
	"time"
)

// Tipos de evento publicados por el núcleo.
const (
	EventLedgerCommitted = "ledger.committed"
	EventSyncFailed      = "sync.failed"
)

// Event mensaje publicado tras un cambio durable. Key se usa como clave de partición.
type Event struct {
	Type       string            `json:"type"`
	Key        string            `json:"key"`
	ClientID   string            `json:"client_id"`
	OccurredAt time.Time         `json:"occurred_at"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Entries    int               `json:"entries,omitempty"`
}

// EventPublisher puerto de salida para el stream de eventos del ledger.
// Publicar es best-effort: un fallo aquí nunca revierte lo ya asentado.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}

// NopPublisher descarta los eventos (sin brokers configurados).
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
