package repository

import (
	"context"

	"github.com/jhoicas/wms-ledger/internal/domain/entity"
)

// SyncWarningRepository persistencia de advertencias de sincronización fallida.
type SyncWarningRepository interface {
	Create(ctx context.Context, w *entity.SyncWarning) error
	// RecordFailure crea la advertencia abierta del SKU o, si ya existe, le suma los intentos y
	// actualiza last_error, order_ref y last_attempt_at. Devuelve la advertencia resultante.
	RecordFailure(ctx context.Context, w *entity.SyncWarning) (*entity.SyncWarning, error)
	// ListOpen advertencias abiertas, primero las de intento más antiguo.
	ListOpen(ctx context.Context, clientID string, limit int) ([]*entity.SyncWarning, error)
	GetByID(ctx context.Context, id string) (*entity.SyncWarning, error)
	// ResolveBySKU marca como resueltas las advertencias abiertas del SKU tras un push exitoso.
	ResolveBySKU(ctx context.Context, clientID, skuID string) (int, error)
}
