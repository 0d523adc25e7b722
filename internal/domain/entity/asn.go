package entity

import "time"

// ASNStatus estado almacenado de un ASN (Advance Ship Notice).
type ASNStatus string

// Estados del ASN expuestos a colaboradores (facturación, tableros del cliente).
const (
	ASNStatusNotReceived ASNStatus = "not_received" // inicial
	ASNStatusReceiving   ASNStatus = "receiving"    // sesión abierta o pausada
	ASNStatusClosed      ASNStatus = "closed"       // completo sin discrepancias
	ASNStatusIssue       ASNStatus = "issue"        // completo con al menos una discrepancia
)

// DisplayClosedWithDiscrepancy etiqueta derivada de solo lectura; nunca se persiste.
const DisplayClosedWithDiscrepancy = "closed_with_discrepancy"

// IsValid indica si el valor pertenece al enum.
func (s ASNStatus) IsValid() bool {
	switch s {
	case ASNStatusNotReceived, ASNStatusReceiving, ASNStatusClosed, ASNStatusIssue:
		return true
	default:
		return false
	}
}

// IsTerminal indica si el ASN quedó cerrado (closed o issue).
func (s ASNStatus) IsTerminal() bool {
	return s == ASNStatusClosed || s == ASNStatusIssue
}

// ASNHeader cabecera de un envío entrante esperado.
type ASNHeader struct {
	ID                string
	ClientID          string
	ASNNumber         string
	Carrier           string
	TrackingNumber    string
	LocationID        string // ubicación de recepción donde se asienta el stock
	ExpectedArrivalAt *time.Time
	Status            ASNStatus
	ReceivedAt        *time.Time // primer commit
	ClosedAt          *time.Time // solo closed/issue
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// IsClosed indica si la cabecera está cerrada (closed_at definido).
func (h *ASNHeader) IsClosed() bool {
	return h.ClosedAt != nil
}

// ASNLine cantidad esperada de un SKU dentro de un ASN, con sus contadores por condición.
type ASNLine struct {
	ID               string
	ASNID            string
	SKUID            string
	ExpectedUnits    int
	ReceivedUnits    int
	NormalUnits      int
	DamagedUnits     int
	MissingUnits     int
	QuarantinedUnits int
	LotNumber        string
	ExpiryDate       *time.Time
	Notes            string
	UpdatedAt        time.Time
}

// AccountedUnits suma de los cuatro contadores de condición.
func (l *ASNLine) AccountedUnits() int {
	return l.NormalUnits + l.DamagedUnits + l.MissingUnits + l.QuarantinedUnits
}

// DiscrepancyUnits unidades no normales (dañadas, faltantes o en cuarentena).
func (l *ASNLine) DiscrepancyUnits() int {
	return l.DamagedUnits + l.MissingUnits + l.QuarantinedUnits
}

// Bucket devuelve el contador de la condición indicada.
func (l *ASNLine) Bucket(b ConditionBucket) int {
	switch b {
	case BucketNormal:
		return l.NormalUnits
	case BucketDamaged:
		return l.DamagedUnits
	case BucketMissing:
		return l.MissingUnits
	case BucketQuarantined:
		return l.QuarantinedUnits
	}
	return 0
}
