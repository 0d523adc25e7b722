package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/wms-ledger/internal/domain/entity"
	"github.com/jhoicas/wms-ledger/internal/domain/repository"
)

var _ repository.RegistryRepository = (*RegistryRepo)(nil)

// RegistryRepo lectura de SKUs y ubicaciones.
type RegistryRepo struct {
	q Querier
}

// NewRegistryRepository construye el adaptador de datos de referencia.
func NewRegistryRepository(q Querier) *RegistryRepo {
	return &RegistryRepo{q: q}
}

const skuColumns = `id, client_id, code, name, COALESCE(barcode, ''), created_at, updated_at`

// FindSKUByBarcode busca por código de barras dentro del catálogo del cliente. nil si no existe.
func (r *RegistryRepo) FindSKUByBarcode(ctx context.Context, clientID, barcode string) (*entity.SKU, error) {
	return r.getSKU(ctx, `SELECT `+skuColumns+` FROM skus WHERE client_id = $1 AND barcode = $2 LIMIT 1`, clientID, barcode)
}

// GetSKU obtiene un SKU por ID. nil si no existe.
func (r *RegistryRepo) GetSKU(ctx context.Context, id string) (*entity.SKU, error) {
	return r.getSKU(ctx, `SELECT `+skuColumns+` FROM skus WHERE id = $1`, id)
}

func (r *RegistryRepo) getSKU(ctx context.Context, query string, args ...any) (*entity.SKU, error) {
	var s entity.SKU
	err := r.q.QueryRow(ctx, query, args...).Scan(
		&s.ID, &s.ClientID, &s.Code, &s.Name, &s.Barcode, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get sku: %w", err)
	}
	return &s, nil
}

// GetLocation obtiene una ubicación por ID. nil si no existe.
func (r *RegistryRepo) GetLocation(ctx context.Context, id string) (*entity.Location, error) {
	var l entity.Location
	err := r.q.QueryRow(ctx, `
		SELECT id, code, name, created_at, updated_at
		FROM locations WHERE id = $1`, id).Scan(&l.ID, &l.Code, &l.Name, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get location: %w", err)
	}
	return &l, nil
}
