package receiving_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/wms-ledger/internal/domain/entity"
	"github.com/jhoicas/wms-ledger/internal/domain/receiving"
)

func TestDisplayLabel(t *testing.T) {
	damagedReturned := entity.DamagedItemDecision{DiscrepancyType: entity.DiscrepancyDamaged, Decision: entity.DecisionReturnToInventory}
	damagedClaim := entity.DamagedItemDecision{DiscrepancyType: entity.DiscrepancyDamaged, Decision: entity.DecisionClaim}
	missing := entity.DamagedItemDecision{DiscrepancyType: entity.DiscrepancyMissing, Decision: entity.DecisionClaim}

	cases := []struct {
		name      string
		status    entity.ASNStatus
		decisions []entity.DamagedItemDecision
		want      string
	}{
		{"closed sin decisiones", entity.ASNStatusClosed, nil, "closed"},
		{"closed con dañado devuelto", entity.ASNStatusClosed, []entity.DamagedItemDecision{damagedReturned}, "closed"},
		{"closed con reclamo de dañado", entity.ASNStatusClosed, []entity.DamagedItemDecision{damagedReturned, damagedClaim}, entity.DisplayClosedWithDiscrepancy},
		{"closed con faltante", entity.ASNStatusClosed, []entity.DamagedItemDecision{missing}, entity.DisplayClosedWithDiscrepancy},
		{"issue no se refina", entity.ASNStatusIssue, []entity.DamagedItemDecision{missing}, "issue"},
		{"receiving no se refina", entity.ASNStatusReceiving, []entity.DamagedItemDecision{damagedClaim}, "receiving"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, receiving.DisplayLabel(tc.status, tc.decisions))
		})
	}
}

func TestComputeVariance(t *testing.T) {
	lines := []*entity.ASNLine{
		line("a", 100, 85, 15, 0, 0),
		line("b", 40, 50, 0, 0, 0),
		line("c", 0, 3, 0, 0, 0),
	}
	out := receiving.ComputeVariance(lines)
	require.Len(t, out, 3)

	assert.Equal(t, 0, out[0].Variance)
	assert.Equal(t, 15, out[0].DiscrepancyUnits)
	assert.True(t, out[0].VariancePct.Equal(decimal.Zero))

	assert.Equal(t, 10, out[1].Variance)
	assert.True(t, out[1].OverReceipt)
	assert.True(t, out[1].VariancePct.Equal(decimal.NewFromInt(25)), "got %s", out[1].VariancePct)

	assert.True(t, out[2].OverReceipt)
	assert.True(t, out[2].VariancePct.IsZero(), "sin esperado no hay porcentaje")
}
