package receiving

import "github.com/jhoicas/wms-ledger/internal/domain/entity"

// DisplayLabel etiqueta de visualización de un ASN. Función pura: se recalcula en cada lectura
// y nunca modifica el estado almacenado.
// Un ASN closed se muestra como closed_with_discrepancy si alguna decisión registra faltantes,
// o daños con una decisión distinta de devolver a inventario vendible.
func DisplayLabel(status entity.ASNStatus, decisions []entity.DamagedItemDecision) string {
	if status != entity.ASNStatusClosed {
		return string(status)
	}
	for _, d := range decisions {
		switch d.DiscrepancyType {
		case entity.DiscrepancyMissing:
			return entity.DisplayClosedWithDiscrepancy
		case entity.DiscrepancyDamaged:
			if d.Decision != entity.DecisionReturnToInventory {
				return entity.DisplayClosedWithDiscrepancy
			}
		}
	}
	return string(status)
}
