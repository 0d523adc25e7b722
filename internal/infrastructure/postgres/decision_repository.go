package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/wms-ledger/internal/domain/entity"
	"github.com/jhoicas/wms-ledger/internal/domain/repository"
)

var _ repository.DecisionRepository = (*DecisionRepo)(nil)

// DecisionRepo lectura de decisiones sobre unidades dañadas/faltantes.
type DecisionRepo struct {
	q Querier
}

// NewDecisionRepository construye el adaptador.
func NewDecisionRepository(q Querier) *DecisionRepo {
	return &DecisionRepo{q: q}
}

// ListByASN decisiones registradas para un ASN.
func (r *DecisionRepo) ListByASN(ctx context.Context, asnID string) ([]entity.DamagedItemDecision, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, asn_id, COALESCE(asn_line_id::text, ''), discrepancy_type, decision, quantity,
		       COALESCE(photo_ref, ''), decided_by, decided_at
		FROM damaged_item_decisions
		WHERE asn_id = $1
		ORDER BY decided_at`, asnID)
	if err != nil {
		return nil, fmt.Errorf("list decisions: %w", err)
	}
	defer rows.Close()

	var list []entity.DamagedItemDecision
	for rows.Next() {
		var d entity.DamagedItemDecision
		if err := rows.Scan(
			&d.ID, &d.ASNID, &d.ASNLineID, &d.DiscrepancyType, &d.Decision, &d.Quantity,
			&d.PhotoRef, &d.DecidedBy, &d.DecidedAt,
		); err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}
		list = append(list, d)
	}
	return list, rows.Err()
}
