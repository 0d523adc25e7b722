package entity

import "time"

// TransactionType tipo de movimiento del ledger de inventario.
type TransactionType string

const (
	TransactionReceipt    TransactionType = "RECEIPT"    // entrada por recepción (ASN)
	TransactionOutbound   TransactionType = "OUTBOUND"   // salida genérica
	TransactionAdjustment TransactionType = "ADJUSTMENT" // ajuste o trazabilidad de condición
	// Subtipos de salida por venta: comparten la guarda de idempotencia.
	TransactionOutboundSale        TransactionType = "OUTBOUND_SALE"        // disparado por webhook
	TransactionOutboundFulfillment TransactionType = "OUTBOUND_FULFILLMENT" // acción manual de despacho
)

// SaleDecrementTypes subtipos que descuentan stock por una venta.
var SaleDecrementTypes = []TransactionType{TransactionOutboundSale, TransactionOutboundFulfillment}

// IsValid indica si el tipo pertenece al enum.
func (t TransactionType) IsValid() bool {
	switch t {
	case TransactionReceipt, TransactionOutbound, TransactionAdjustment,
		TransactionOutboundSale, TransactionOutboundFulfillment:
		return true
	default:
		return false
	}
}

// IsSaleDecrement indica si el tipo es un subtipo de descuento por venta.
func (t TransactionType) IsSaleDecrement() bool {
	return t == TransactionOutboundSale || t == TransactionOutboundFulfillment
}

// IsOutbound indica si el tipo representa una salida.
func (t TransactionType) IsOutbound() bool {
	return t == TransactionOutbound || t.IsSaleDecrement()
}

// Códigos de motivo.
const (
	ReasonDamage     = "damage"
	ReasonOther      = "other"
	ReasonCorrection = "correction"
)

// ConditionBucket condición de las unidades recibidas.
type ConditionBucket string

const (
	BucketNormal      ConditionBucket = "normal"
	BucketDamaged     ConditionBucket = "damaged"
	BucketMissing     ConditionBucket = "missing"
	BucketQuarantined ConditionBucket = "quarantined"
)

// Buckets orden canónico de emisión.
var Buckets = []ConditionBucket{BucketNormal, BucketDamaged, BucketMissing, BucketQuarantined}

// Tipos de origen conocidos.
const (
	SourceASN = "asn"
)

// LedgerEntry registro inmutable de un evento que afecta stock.
// Nunca se actualiza ni se elimina; el stock disponible es la suma de QtyDelta.
type LedgerEntry struct {
	ID              string
	ClientID        string
	SKUID           string
	LocationID      string
	QtyDelta        int // con signo; solo stock vendible lleva delta distinto de cero
	TransactionType TransactionType
	SourceType      string
	SourceRef       string
	ASNLineID       string          // vacío fuera de recepción
	Bucket          ConditionBucket // vacío fuera de recepción
	BucketUnits     int             // unidades de la condición asentadas por esta entrada
	LotNumber       string
	ExpiryDate      *time.Time
	ReasonCode      string
	Notes           string
	CommitID        string // agrupa las entradas de un mismo commit
	CreatedAt       time.Time
	CreatedBy       string
}

// OnHand stock disponible agregado por (sku, ubicación).
type OnHand struct {
	ClientID   string
	SKUID      string
	LocationID string
	Quantity   int
}

// DuplicateDecrement grupo de salidas por venta repetidas para el mismo pedido y SKU.
type DuplicateDecrement struct {
	SourceType string
	SourceRef  string
	SKUID      string
	Entries    int
	TotalDelta int
}
