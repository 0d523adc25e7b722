package repository

import (
	"context"

	"github.com/jhoicas/wms-ledger/internal/domain/entity"
)

// DecisionRepository lectura de decisiones sobre unidades dañadas/faltantes (flujo externo).
type DecisionRepository interface {
	ListByASN(ctx context.Context, asnID string) ([]entity.DamagedItemDecision, error)
}
