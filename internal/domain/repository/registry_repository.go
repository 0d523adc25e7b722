package repository

import (
	"context"

	"github.com/jhoicas/wms-ledger/internal/domain/entity"
)

// RegistryRepository lectura de datos de referencia SKU/ubicación (no los administra el núcleo).
type RegistryRepository interface {
	// FindSKUByBarcode resuelve un código escaneado a un SKU del cliente. nil si no existe.
	FindSKUByBarcode(ctx context.Context, clientID, barcode string) (*entity.SKU, error)
	GetSKU(ctx context.Context, id string) (*entity.SKU, error)
	GetLocation(ctx context.Context, id string) (*entity.Location, error)
}
