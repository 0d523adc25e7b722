package receiving

import (
	"context"

	"github.com/jhoicas/wms-ledger/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción de BD, pasando repositorios atados a esa tx.
// Un commit de recepción (entradas del ledger + líneas + cabecera) se confirma completo o no se confirma.
type TxRunner interface {
	Run(ctx context.Context, fn func(
		asnRepo repository.ASNRepository,
		ledgerRepo repository.LedgerRepository,
	) error) error
}
