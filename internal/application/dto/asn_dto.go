package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateASNRequest body para POST /api/asns.
// ClientID solo se toma del body cuando el token no trae cliente (personal de bodega).
type CreateASNRequest struct {
	ClientID          string                 `json:"client_id,omitempty"`
	ASNNumber         string                 `json:"asn_number"`
	Carrier           string                 `json:"carrier"`
	TrackingNumber    string                 `json:"tracking_number"`
	LocationID        string                 `json:"location_id"`
	ExpectedArrivalAt *time.Time             `json:"expected_arrival_at,omitempty"`
	Lines             []CreateASNLineRequest `json:"lines"`
}

// CreateASNLineRequest línea del manifiesto esperado.
type CreateASNLineRequest struct {
	SKUID         string     `json:"sku_id"`
	ExpectedUnits int        `json:"expected_units"`
	LotNumber     string     `json:"lot_number,omitempty"`
	ExpiryDate    *time.Time `json:"expiry_date,omitempty"`
	Notes         string     `json:"notes,omitempty"`
}

// ASNResponse cabecera con líneas y etiqueta derivada.
type ASNResponse struct {
	ID                string            `json:"id"`
	ClientID          string            `json:"client_id"`
	ASNNumber         string            `json:"asn_number"`
	Carrier           string            `json:"carrier"`
	TrackingNumber    string            `json:"tracking_number"`
	LocationID        string            `json:"location_id"`
	ExpectedArrivalAt *time.Time        `json:"expected_arrival_at,omitempty"`
	Status            string            `json:"status"`
	DisplayStatus     string            `json:"display_status"` // recalculado en cada lectura
	ReceivedAt        *time.Time        `json:"received_at,omitempty"`
	ClosedAt          *time.Time        `json:"closed_at,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
	Lines             []ASNLineResponse `json:"lines,omitempty"`
}

// ASNLineResponse línea con contadores por condición.
type ASNLineResponse struct {
	ID               string     `json:"id"`
	SKUID            string     `json:"sku_id"`
	ExpectedUnits    int        `json:"expected_units"`
	ReceivedUnits    int        `json:"received_units"`
	NormalUnits      int        `json:"normal_units"`
	DamagedUnits     int        `json:"damaged_units"`
	MissingUnits     int        `json:"missing_units"`
	QuarantinedUnits int        `json:"quarantined_units"`
	LotNumber        string     `json:"lot_number,omitempty"`
	ExpiryDate       *time.Time `json:"expiry_date,omitempty"`
	Notes            string     `json:"notes,omitempty"`
}

// ASNListResponse listado paginado de cabeceras.
type ASNListResponse struct {
	Items []ASNResponse `json:"items"`
	Page  PageResponse  `json:"page"`
}

// ScanRequest body para POST /api/asns/:id/scan.
type ScanRequest struct {
	Barcode string `json:"barcode"`
	Context string `json:"context,omitempty"` // p. ej. "receiving"
}

// ScanResponse contrato de búsqueda de código de barras más el evento transitorio para la UI.
type ScanResponse struct {
	Found        bool             `json:"found"`
	MatchedTable string           `json:"matched_table,omitempty"`
	MatchedID    string           `json:"matched_id,omitempty"`
	Event        string           `json:"event"` // scan.success | scan.not_found
	Line         *ASNLineResponse `json:"line,omitempty"`
}

// CommitRequest body para POST /api/asns/:id/commit. Los contadores son acumulados por línea;
// las líneas omitidas conservan lo que ya tenían (p. ej. lo escaneado).
type CommitRequest struct {
	Lines []CommitLineRequest `json:"lines"`
}

// CommitLineRequest contadores acumulados de una línea.
type CommitLineRequest struct {
	LineID           string     `json:"line_id"`
	NormalUnits      int        `json:"normal_units"`
	DamagedUnits     int        `json:"damaged_units"`
	MissingUnits     int        `json:"missing_units"`
	QuarantinedUnits int        `json:"quarantined_units"`
	LotNumber        *string    `json:"lot_number,omitempty"`
	ExpiryDate       *time.Time `json:"expiry_date,omitempty"`
	Notes            *string    `json:"notes,omitempty"`
}

// CommitResponse resultado de una reconciliación.
type CommitResponse struct {
	ASNID            string                `json:"asn_id"`
	CommitID         string                `json:"commit_id"`
	PreviousStatus   string                `json:"previous_status"`
	Status           string                `json:"status"`
	TotalExpected    int                   `json:"total_expected"`
	TotalAccounted   int                   `json:"total_accounted"`
	DiscrepancyUnits int                   `json:"discrepancy_units"`
	Entries          []LedgerEntryResponse `json:"entries"`
}

// VarianceResponse reporte de varianza esperado vs. recibido.
type VarianceResponse struct {
	ASNID         string                 `json:"asn_id"`
	TotalExpected int                    `json:"total_expected"`
	TotalReceived int                    `json:"total_received"`
	TotalVariance int                    `json:"total_variance"`
	Lines         []LineVarianceResponse `json:"lines"`
}

// LineVarianceResponse varianza de una línea; positiva = sobre-recepción.
type LineVarianceResponse struct {
	LineID           string          `json:"line_id"`
	SKUID            string          `json:"sku_id"`
	ExpectedUnits    int             `json:"expected_units"`
	ReceivedUnits    int             `json:"received_units"`
	Variance         int             `json:"variance"`
	VariancePct      decimal.Decimal `json:"variance_pct"`
	DiscrepancyUnits int             `json:"discrepancy_units"`
	OverReceipt      bool            `json:"over_receipt"`
}
