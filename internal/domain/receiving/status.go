package receiving

import (
	"time"

	"github.com/jhoicas/wms-ledger/internal/domain"
	"github.com/jhoicas/wms-ledger/internal/domain/entity"
)

// Totals agregados de un ASN usados para clasificar la sesión.
type Totals struct {
	Expected    int
	Accounted   int
	Normal      int
	Discrepancy int
}

// ComputeTotals suma esperados y contadores de todas las líneas.
func ComputeTotals(lines []*entity.ASNLine) Totals {
	var t Totals
	for _, l := range lines {
		t.Expected += l.ExpectedUnits
		t.Accounted += l.AccountedUnits()
		t.Normal += l.NormalUnits
		t.Discrepancy += l.DiscrepancyUnits()
	}
	return t
}

// Complete indica si todo lo esperado quedó contabilizado (la sobre-recepción cuenta como completa).
func (t Totals) Complete() bool {
	return t.Accounted >= t.Expected
}

// DeriveStatus clasifica la sesión:
//   - contabilizado < esperado           → receiving (pausada, reanudable)
//   - completo y sin unidades en discrepancia → closed
//   - completo con discrepancias         → issue
func DeriveStatus(t Totals) entity.ASNStatus {
	if !t.Complete() {
		return entity.ASNStatusReceiving
	}
	if t.Discrepancy == 0 {
		return entity.ASNStatusClosed
	}
	return entity.ASNStatusIssue
}

// CanTransition valida el grafo de estados del ASN.
// not_received solo avanza a receiving; closed/issue solo vuelven a receiving (reapertura).
func CanTransition(from, to entity.ASNStatus) bool {
	switch from {
	case entity.ASNStatusNotReceived:
		return to == entity.ASNStatusReceiving
	case entity.ASNStatusReceiving:
		return to == entity.ASNStatusReceiving || to == entity.ASNStatusClosed || to == entity.ASNStatusIssue
	case entity.ASNStatusClosed, entity.ASNStatusIssue:
		return to == entity.ASNStatusReceiving
	}
	return false
}

// Transition aplica el nuevo estado sobre la cabecera y ajusta closed_at.
// received_at lo fija el primer commit, no la transición.
func Transition(h *entity.ASNHeader, to entity.ASNStatus, now time.Time) error {
	if !CanTransition(h.Status, to) {
		return domain.ErrInvalidTransition
	}
	if to.IsTerminal() {
		h.ClosedAt = &now
	} else {
		h.ClosedAt = nil
	}
	h.Status = to
	h.UpdatedAt = now
	return nil
}
