package receiving

import (
	"github.com/shopspring/decimal"

	"github.com/jhoicas/wms-ledger/internal/domain/entity"
)

// LineVariance diferencia entre lo esperado y lo recibido en una línea.
type LineVariance struct {
	LineID           string
	SKUID            string
	ExpectedUnits    int
	ReceivedUnits    int
	Variance         int             // recibido - esperado; positivo = sobre-recepción
	VariancePct      decimal.Decimal // Variance / Expected * 100, 2 decimales
	DiscrepancyUnits int
	OverReceipt      bool
}

// ComputeVariance calcula la varianza por línea. La sobre-recepción no es un error:
// se reporta como varianza positiva para los reportes posteriores.
func ComputeVariance(lines []*entity.ASNLine) []LineVariance {
	hundred := decimal.NewFromInt(100)
	out := make([]LineVariance, 0, len(lines))
	for _, l := range lines {
		received := l.AccountedUnits()
		v := LineVariance{
			LineID:           l.ID,
			SKUID:            l.SKUID,
			ExpectedUnits:    l.ExpectedUnits,
			ReceivedUnits:    received,
			Variance:         received - l.ExpectedUnits,
			DiscrepancyUnits: l.DiscrepancyUnits(),
			OverReceipt:      received > l.ExpectedUnits,
		}
		if l.ExpectedUnits > 0 {
			v.VariancePct = decimal.NewFromInt(int64(v.Variance)).
				Div(decimal.NewFromInt(int64(l.ExpectedUnits))).
				Mul(hundred).
				Round(2)
		}
		out = append(out, v)
	}
	return out
}
