package repository

import (
	"context"

	"github.com/jhoicas/wms-ledger/internal/domain/entity"
)

// LedgerRepository puerto del ledger de inventario: solo inserción y lectura.
// No expone Update ni Delete; las correcciones son entradas nuevas.
type LedgerRepository interface {
	// Append inserta una entrada. Devuelve ErrAlreadyApplied si viola la restricción única
	// de descuentos por venta (source_type, source_ref, sku_id).
	Append(ctx context.Context, entry *entity.LedgerEntry) error
	AppendBatch(ctx context.Context, entries []entity.LedgerEntry) error

	// ExistsSaleDecrement busca una salida por venta previa para el mismo origen y SKU.
	ExistsSaleDecrement(ctx context.Context, sourceType, sourceRef, skuID string) (bool, error)
	// LedgeredBuckets devuelve por línea y condición las unidades ya asentadas para un ASN.
	LedgeredBuckets(ctx context.Context, asnID string) (map[string]map[entity.ConditionBucket]int, error)

	ListBySource(ctx context.Context, sourceType, sourceRef string) ([]*entity.LedgerEntry, error)
	OnHand(ctx context.Context, clientID, skuID, locationID string) (int, error)
	OnHandBySKU(ctx context.Context, clientID, skuID string) ([]entity.OnHand, error)
	DuplicateSaleDecrements(ctx context.Context, clientID string) ([]entity.DuplicateDecrement, error)
}
