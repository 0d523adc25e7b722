package entity

import "time"

// Tipos de discrepancia registrados por el flujo de decisiones.
const (
	DiscrepancyDamaged = "damaged"
	DiscrepancyMissing = "missing"
)

// Decisiones humanas sobre unidades dañadas o faltantes.
const (
	DecisionReturnToInventory = "return_to_inventory"
	DecisionDiscard           = "discard"
	DecisionClaim             = "claim"
)

// DamagedItemDecision disposición humana de unidades con discrepancia.
// La administra un flujo externo; el núcleo solo la lee.
type DamagedItemDecision struct {
	ID              string
	ASNID           string
	ASNLineID       string
	DiscrepancyType string
	Decision        string
	Quantity        int
	PhotoRef        string // referencia a la foto de QC; el archivo vive fuera del núcleo
	DecidedBy       string
	DecidedAt       time.Time
}
