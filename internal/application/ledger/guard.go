package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/jhoicas/wms-ledger/internal/domain"
	"github.com/jhoicas/wms-ledger/internal/domain/entity"
	"github.com/jhoicas/wms-ledger/internal/domain/repository"
)

// ApplySaleDecrement escribe una salida por venta solo si no existe otra del mismo
// (source_type, source_ref, sku_id). La consulta previa evita el insert en el caso común;
// la autoridad es el índice único parcial: si dos triggers corren a la vez, el segundo
// recibe ErrAlreadyApplied y se reporta como omitido (applied=false), no como error.
func ApplySaleDecrement(ctx context.Context, repo repository.LedgerRepository, e *entity.LedgerEntry) (bool, error) {
	if !e.TransactionType.IsSaleDecrement() {
		return false, fmt.Errorf("tipo %s no es una salida por venta: %w", e.TransactionType, domain.ErrInvalidInput)
	}
	exists, err := repo.ExistsSaleDecrement(ctx, e.SourceType, e.SourceRef, e.SKUID)
	if err != nil {
		return false, fmt.Errorf("consultar salida previa: %w", err)
	}
	if exists {
		return false, nil
	}
	if err := repo.Append(ctx, e); err != nil {
		if errors.Is(err, domain.ErrAlreadyApplied) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
