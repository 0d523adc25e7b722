package receiving

import (
	"time"

	"github.com/jhoicas/wms-ledger/internal/domain"
	"github.com/jhoicas/wms-ledger/internal/domain/entity"
)

// DefaultMaxUnitsPerLine tope sano por contador cuando la configuración no define uno.
const DefaultMaxUnitsPerLine = 100000

// Ledgered unidades ya asentadas en el ledger por línea y condición.
type Ledgered map[string]map[entity.ConditionBucket]int

// Add acumula unidades asentadas para una línea y condición.
func (l Ledgered) Add(lineID string, b entity.ConditionBucket, units int) {
	m, ok := l[lineID]
	if !ok {
		m = make(map[entity.ConditionBucket]int, len(entity.Buckets))
		l[lineID] = m
	}
	m[b] += units
}

// Units devuelve lo asentado para una línea y condición (0 si no hay entradas).
func (l Ledgered) Units(lineID string, b entity.ConditionBucket) int {
	if m, ok := l[lineID]; ok {
		return m[b]
	}
	return 0
}

// ValidateLines rechaza el commit completo si algún contador es negativo o supera el tope.
// Se ejecuta antes de escribir cualquier entrada del ledger.
func ValidateLines(lines []*entity.ASNLine, maxUnits int) error {
	if maxUnits <= 0 {
		maxUnits = DefaultMaxUnitsPerLine
	}
	for _, l := range lines {
		if l.ExpectedUnits < 0 {
			return &domain.ValidationError{LineID: l.ID, Field: "expected_units", Reason: "debe ser >= 0"}
		}
		counters := []struct {
			field string
			value int
		}{
			{"normal_units", l.NormalUnits},
			{"damaged_units", l.DamagedUnits},
			{"missing_units", l.MissingUnits},
			{"quarantined_units", l.QuarantinedUnits},
		}
		for _, c := range counters {
			if c.value < 0 {
				return &domain.ValidationError{LineID: l.ID, Field: c.field, Reason: "debe ser >= 0"}
			}
			if c.value > maxUnits {
				return &domain.ValidationError{LineID: l.ID, Field: c.field, Reason: "supera el máximo por línea"}
			}
		}
		if l.AccountedUnits() > maxUnits {
			return &domain.ValidationError{LineID: l.ID, Field: "received_units", Reason: "supera el máximo por línea"}
		}
	}
	return nil
}

// PlanInput datos para planificar las entradas de un commit.
type PlanInput struct {
	Header   *entity.ASNHeader
	Lines    []*entity.ASNLine
	Ledgered Ledgered
	CommitID string
	Actor    string
	Now      time.Time
}

// PlanEntries calcula las entradas del ledger que produce un commit.
// Solo se emite la diferencia entre el contador acumulado y lo ya asentado por línea y condición,
// de modo que repetir el commit con los mismos datos no genera entradas nuevas.
func PlanEntries(in PlanInput) []entity.LedgerEntry {
	var entries []entity.LedgerEntry
	for _, line := range in.Lines {
		for _, bucket := range entity.Buckets {
			diff := line.Bucket(bucket) - in.Ledgered.Units(line.ID, bucket)
			if diff == 0 {
				continue
			}
			entries = append(entries, bucketEntry(in, line, bucket, diff))
		}
	}
	return entries
}

func bucketEntry(in PlanInput, line *entity.ASNLine, bucket entity.ConditionBucket, diff int) entity.LedgerEntry {
	e := entity.LedgerEntry{
		ClientID:    in.Header.ClientID,
		SKUID:       line.SKUID,
		LocationID:  in.Header.LocationID,
		SourceType:  entity.SourceASN,
		SourceRef:   in.Header.ID,
		ASNLineID:   line.ID,
		Bucket:      bucket,
		BucketUnits: diff,
		LotNumber:   line.LotNumber,
		ExpiryDate:  line.ExpiryDate,
		CommitID:    in.CommitID,
		CreatedAt:   in.Now,
		CreatedBy:   in.Actor,
	}
	switch bucket {
	case entity.BucketNormal:
		// Única condición que mueve stock vendible.
		e.TransactionType = entity.TransactionReceipt
		e.QtyDelta = diff
	case entity.BucketDamaged:
		e.TransactionType = entity.TransactionAdjustment
		e.ReasonCode = entity.ReasonDamage
	case entity.BucketMissing:
		e.TransactionType = entity.TransactionAdjustment
		e.ReasonCode = entity.ReasonOther
		e.Notes = "missing"
	case entity.BucketQuarantined:
		e.TransactionType = entity.TransactionAdjustment
		e.ReasonCode = entity.ReasonOther
		e.Notes = "quarantine"
	}
	if diff < 0 {
		e.ReasonCode = entity.ReasonCorrection
		if e.Notes == "" {
			e.Notes = string(bucket)
		}
		e.Notes += " correction"
	}
	return e
}

// Outcome resultado de reconciliar un ASN en memoria.
type Outcome struct {
	Totals  Totals
	Status  entity.ASNStatus
	Entries []entity.LedgerEntry
}

// Reconcile valida, clasifica y planifica un commit sin efectos secundarios.
func Reconcile(in PlanInput, maxUnits int) (*Outcome, error) {
	if err := ValidateLines(in.Lines, maxUnits); err != nil {
		return nil, err
	}
	for _, l := range in.Lines {
		l.ReceivedUnits = l.AccountedUnits()
	}
	totals := ComputeTotals(in.Lines)
	return &Outcome{
		Totals:  totals,
		Status:  DeriveStatus(totals),
		Entries: PlanEntries(in),
	}, nil
}
