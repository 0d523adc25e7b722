package repository

import (
	"context"

	"github.com/jhoicas/wms-ledger/internal/domain/entity"
)

// ASNFilter filtros para listar ASNs.
type ASNFilter struct {
	ClientID string
	Status   entity.ASNStatus
	Limit    int
	Offset   int
}

// ASNRepository puerto de persistencia del agregado ASN (cabecera + líneas).
type ASNRepository interface {
	Create(ctx context.Context, header *entity.ASNHeader, lines []*entity.ASNLine) error
	GetByID(ctx context.Context, id string) (*entity.ASNHeader, error)
	// GetForUpdate bloquea la cabecera (SELECT FOR UPDATE) dentro de la transacción en curso.
	GetForUpdate(ctx context.Context, id string) (*entity.ASNHeader, error)
	List(ctx context.Context, filter ASNFilter) ([]*entity.ASNHeader, error)
	UpdateHeader(ctx context.Context, header *entity.ASNHeader) error

	ListLines(ctx context.Context, asnID string) ([]*entity.ASNLine, error)
	// ListLinesForUpdate como ListLines pero bloquea las filas hasta el fin de la transacción.
	ListLinesForUpdate(ctx context.Context, asnID string) ([]*entity.ASNLine, error)
	UpdateLine(ctx context.Context, line *entity.ASNLine) error
	// IncrementNormal suma 1 a normal_units y received_units de una línea de un ASN abierto.
	// Devuelve ErrASNClosed si la cabecera ya tiene closed_at. Espera a que termine un commit en curso.
	IncrementNormal(ctx context.Context, asnID, lineID string) (*entity.ASNLine, error)
}
