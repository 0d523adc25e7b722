package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/wms-ledger/internal/domain"
	"github.com/jhoicas/wms-ledger/internal/domain/entity"
	"github.com/jhoicas/wms-ledger/internal/domain/repository"
)

var _ repository.LedgerRepository = (*LedgerRepo)(nil)

// LedgerRepo ledger de inventario de solo inserción (usable con pool o tx).
// No hay UPDATE ni DELETE: además la tabla tiene un trigger que los rechaza.
type LedgerRepo struct {
	q Querier
}

// NewLedgerRepository construye el adaptador. Pasar pool o tx (Querier).
func NewLedgerRepository(q Querier) *LedgerRepo {
	return &LedgerRepo{q: q}
}

const ledgerColumns = `id, client_id, sku_id, location_id, qty_delta, transaction_type, source_type, source_ref,
	asn_line_id, bucket, bucket_units, lot_number, expiry_date, reason_code, notes, commit_id, created_at, created_by`

const insertLedgerSQL = `INSERT INTO inventory_ledger (` + ledgerColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`

const saleDecrementTypes = `('OUTBOUND_SALE', 'OUTBOUND_FULFILLMENT')`

func insertArgs(e *entity.LedgerEntry) []any {
	return []any{
		e.ID, e.ClientID, e.SKUID, e.LocationID, e.QtyDelta, string(e.TransactionType), e.SourceType, e.SourceRef,
		nullIfEmpty(e.ASNLineID), nullIfEmpty(string(e.Bucket)), e.BucketUnits, nullIfEmpty(e.LotNumber), e.ExpiryDate,
		nullIfEmpty(e.ReasonCode), e.Notes, nullIfEmpty(e.CommitID), e.CreatedAt, e.CreatedBy,
	}
}

// mapInsertError traduce la violación del índice de ventas a ErrAlreadyApplied.
func mapInsertError(err error) error {
	if isUniqueViolation(err) {
		if isConstraint(err, saleDecrementIndex) {
			return domain.ErrAlreadyApplied
		}
		return domain.ErrDuplicate
	}
	return fmt.Errorf("insert ledger entry: %w", err)
}

// Append inserta una entrada.
func (r *LedgerRepo) Append(ctx context.Context, e *entity.LedgerEntry) error {
	if _, err := r.q.Exec(ctx, insertLedgerSQL, insertArgs(e)...); err != nil {
		return mapInsertError(err)
	}
	return nil
}

// AppendBatch inserta varias entradas en un solo viaje.
func (r *LedgerRepo) AppendBatch(ctx context.Context, entries []entity.LedgerEntry) error {
	if len(entries) == 0 {
		return nil
	}
	b := &pgx.Batch{}
	for i := range entries {
		b.Queue(insertLedgerSQL, insertArgs(&entries[i])...)
	}
	br := r.q.SendBatch(ctx, b)
	defer br.Close()
	for range entries {
		if _, err := br.Exec(); err != nil {
			return mapInsertError(err)
		}
	}
	return nil
}

// ExistsSaleDecrement consulta previa de la guarda de idempotencia.
func (r *LedgerRepo) ExistsSaleDecrement(ctx context.Context, sourceType, sourceRef, skuID string) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM inventory_ledger
			WHERE source_type = $1 AND source_ref = $2 AND sku_id = $3
			  AND transaction_type IN `+saleDecrementTypes+`
		)`, sourceType, sourceRef, skuID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("exists sale decrement: %w", err)
	}
	return exists, nil
}

// LedgeredBuckets unidades ya asentadas por línea y condición para un ASN.
func (r *LedgerRepo) LedgeredBuckets(ctx context.Context, asnID string) (map[string]map[entity.ConditionBucket]int, error) {
	rows, err := r.q.Query(ctx, `
		SELECT asn_line_id, bucket, COALESCE(SUM(bucket_units), 0)
		FROM inventory_ledger
		WHERE source_type = $1 AND source_ref = $2 AND asn_line_id IS NOT NULL AND bucket IS NOT NULL
		GROUP BY asn_line_id, bucket`, entity.SourceASN, asnID)
	if err != nil {
		return nil, fmt.Errorf("ledgered buckets: %w", err)
	}
	defer rows.Close()

	out := make(map[string]map[entity.ConditionBucket]int)
	for rows.Next() {
		var lineID, bucket string
		var units int
		if err := rows.Scan(&lineID, &bucket, &units); err != nil {
			return nil, fmt.Errorf("scan ledgered bucket: %w", err)
		}
		if out[lineID] == nil {
			out[lineID] = make(map[entity.ConditionBucket]int, len(entity.Buckets))
		}
		out[lineID][entity.ConditionBucket(bucket)] = units
	}
	return out, rows.Err()
}

// ListBySource entradas de un origen en orden de escritura.
func (r *LedgerRepo) ListBySource(ctx context.Context, sourceType, sourceRef string) ([]*entity.LedgerEntry, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+ledgerColumns+`
		FROM inventory_ledger
		WHERE source_type = $1 AND source_ref = $2
		ORDER BY created_at, id`, sourceType, sourceRef)
	if err != nil {
		return nil, fmt.Errorf("list ledger by source: %w", err)
	}
	defer rows.Close()

	var list []*entity.LedgerEntry
	for rows.Next() {
		e, err := scanLedgerEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		list = append(list, e)
	}
	return list, rows.Err()
}

// OnHand suma de deltas para (cliente, sku, ubicación).
func (r *LedgerRepo) OnHand(ctx context.Context, clientID, skuID, locationID string) (int, error) {
	var qty int
	err := r.q.QueryRow(ctx, `
		SELECT COALESCE(SUM(qty_delta), 0)
		FROM inventory_ledger
		WHERE client_id = $1 AND sku_id = $2 AND location_id = $3`, clientID, skuID, locationID).Scan(&qty)
	if err != nil {
		return 0, fmt.Errorf("on hand: %w", err)
	}
	return qty, nil
}

// OnHandBySKU stock por ubicación de un SKU.
func (r *LedgerRepo) OnHandBySKU(ctx context.Context, clientID, skuID string) ([]entity.OnHand, error) {
	rows, err := r.q.Query(ctx, `
		SELECT location_id, COALESCE(SUM(qty_delta), 0)
		FROM inventory_ledger
		WHERE client_id = $1 AND sku_id = $2
		GROUP BY location_id
		ORDER BY location_id`, clientID, skuID)
	if err != nil {
		return nil, fmt.Errorf("on hand by sku: %w", err)
	}
	defer rows.Close()

	var list []entity.OnHand
	for rows.Next() {
		oh := entity.OnHand{ClientID: clientID, SKUID: skuID}
		if err := rows.Scan(&oh.LocationID, &oh.Quantity); err != nil {
			return nil, fmt.Errorf("scan on hand: %w", err)
		}
		list = append(list, oh)
	}
	return list, rows.Err()
}

// DuplicateSaleDecrements grupos con más de una salida por venta. clientID vacío = todos.
func (r *LedgerRepo) DuplicateSaleDecrements(ctx context.Context, clientID string) ([]entity.DuplicateDecrement, error) {
	rows, err := r.q.Query(ctx, `
		SELECT source_type, source_ref, sku_id, COUNT(*), COALESCE(SUM(qty_delta), 0)
		FROM inventory_ledger
		WHERE transaction_type IN `+saleDecrementTypes+`
		  AND ($1 = '' OR client_id = $1)
		GROUP BY source_type, source_ref, sku_id
		HAVING COUNT(*) > 1
		ORDER BY source_type, source_ref, sku_id`, clientID)
	if err != nil {
		return nil, fmt.Errorf("duplicate sale decrements: %w", err)
	}
	defer rows.Close()

	var list []entity.DuplicateDecrement
	for rows.Next() {
		var d entity.DuplicateDecrement
		if err := rows.Scan(&d.SourceType, &d.SourceRef, &d.SKUID, &d.Entries, &d.TotalDelta); err != nil {
			return nil, fmt.Errorf("scan duplicate: %w", err)
		}
		list = append(list, d)
	}
	return list, rows.Err()
}

func scanLedgerEntry(row pgx.Row) (*entity.LedgerEntry, error) {
	var e entity.LedgerEntry
	var txType string
	var lineID, bucket, lot, reason, commitID *string
	err := row.Scan(
		&e.ID, &e.ClientID, &e.SKUID, &e.LocationID, &e.QtyDelta, &txType, &e.SourceType, &e.SourceRef,
		&lineID, &bucket, &e.BucketUnits, &lot, &e.ExpiryDate, &reason, &e.Notes, &commitID, &e.CreatedAt, &e.CreatedBy,
	)
	if err != nil {
		return nil, err
	}
	e.TransactionType = entity.TransactionType(txType)
	e.ASNLineID = deref(lineID)
	e.Bucket = entity.ConditionBucket(deref(bucket))
	e.LotNumber = deref(lot)
	e.ReasonCode = deref(reason)
	e.CommitID = deref(commitID)
	return &e, nil
}
