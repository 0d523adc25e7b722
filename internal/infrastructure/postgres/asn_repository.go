package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/wms-ledger/internal/domain"
	"github.com/jhoicas/wms-ledger/internal/domain/entity"
	"github.com/jhoicas/wms-ledger/internal/domain/repository"
)

var _ repository.ASNRepository = (*ASNRepo)(nil)

// ASNRepo implementación del agregado ASN sobre PostgreSQL (usable con pool o tx).
type ASNRepo struct {
	q Querier
}

// NewASNRepository construye el adaptador. Pasar pool o tx (Querier).
func NewASNRepository(q Querier) *ASNRepo {
	return &ASNRepo{q: q}
}

const asnHeaderColumns = `id, client_id, asn_number, carrier, tracking_number, location_id,
	expected_arrival_at, status, received_at, closed_at, created_at, updated_at`

const asnLineColumns = `id, asn_id, sku_id, expected_units, received_units, normal_units, damaged_units,
	missing_units, quarantined_units, lot_number, expiry_date, notes, updated_at`

// Create persiste cabecera y líneas en un único batch (transacción implícita).
func (r *ASNRepo) Create(ctx context.Context, h *entity.ASNHeader, lines []*entity.ASNLine) error {
	b := &pgx.Batch{}
	b.Queue(`
		INSERT INTO asn_headers (`+asnHeaderColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		h.ID, h.ClientID, h.ASNNumber, h.Carrier, h.TrackingNumber, h.LocationID,
		h.ExpectedArrivalAt, string(h.Status), h.ReceivedAt, h.ClosedAt, h.CreatedAt, h.UpdatedAt,
	)
	for _, l := range lines {
		b.Queue(`
			INSERT INTO asn_lines (`+asnLineColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
			l.ID, h.ID, l.SKUID, l.ExpectedUnits, l.ReceivedUnits, l.NormalUnits, l.DamagedUnits,
			l.MissingUnits, l.QuarantinedUnits, nullIfEmpty(l.LotNumber), l.ExpiryDate, l.Notes, l.UpdatedAt,
		)
	}

	br := r.q.SendBatch(ctx, b)
	defer br.Close()
	for i := 0; i < b.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			if isUniqueViolation(err) {
				return domain.ErrDuplicate
			}
			return fmt.Errorf("create asn: %w", err)
		}
	}
	return nil
}

// GetByID obtiene la cabecera por ID. nil si no existe.
func (r *ASNRepo) GetByID(ctx context.Context, id string) (*entity.ASNHeader, error) {
	return r.getHeader(ctx, `SELECT `+asnHeaderColumns+` FROM asn_headers WHERE id = $1`, id)
}

// GetForUpdate obtiene y bloquea la cabecera hasta el fin de la transacción.
func (r *ASNRepo) GetForUpdate(ctx context.Context, id string) (*entity.ASNHeader, error) {
	return r.getHeader(ctx, `SELECT `+asnHeaderColumns+` FROM asn_headers WHERE id = $1 FOR UPDATE`, id)
}

func (r *ASNRepo) getHeader(ctx context.Context, query, id string) (*entity.ASNHeader, error) {
	h, err := scanHeader(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get asn: %w", err)
	}
	return h, nil
}

// List lista cabeceras por cliente y estado, más recientes primero.
func (r *ASNRepo) List(ctx context.Context, f repository.ASNFilter) ([]*entity.ASNHeader, error) {
	var conds []string
	var args []any
	if f.ClientID != "" {
		args = append(args, f.ClientID)
		conds = append(conds, fmt.Sprintf("client_id = $%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, string(f.Status))
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	query := `SELECT ` + asnHeaderColumns + ` FROM asn_headers`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	args = append(args, f.Limit, f.Offset)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list asn: %w", err)
	}
	defer rows.Close()

	var list []*entity.ASNHeader
	for rows.Next() {
		h, err := scanHeader(rows)
		if err != nil {
			return nil, fmt.Errorf("scan asn: %w", err)
		}
		list = append(list, h)
	}
	return list, rows.Err()
}

// UpdateHeader persiste estado y marcas de tiempo de la cabecera.
func (r *ASNRepo) UpdateHeader(ctx context.Context, h *entity.ASNHeader) error {
	cmd, err := r.q.Exec(ctx, `
		UPDATE asn_headers
		SET status = $2, received_at = $3, closed_at = $4, updated_at = $5
		WHERE id = $1`,
		h.ID, string(h.Status), h.ReceivedAt, h.ClosedAt, h.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update asn: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListLines líneas del ASN en el orden del manifiesto.
func (r *ASNRepo) ListLines(ctx context.Context, asnID string) ([]*entity.ASNLine, error) {
	return r.listLines(ctx, `SELECT `+asnLineColumns+` FROM asn_lines WHERE asn_id = $1 ORDER BY position`, asnID)
}

// ListLinesForUpdate bloquea las líneas (FOR UPDATE): un escaneo concurrente espera al commit.
func (r *ASNRepo) ListLinesForUpdate(ctx context.Context, asnID string) ([]*entity.ASNLine, error) {
	return r.listLines(ctx, `SELECT `+asnLineColumns+` FROM asn_lines WHERE asn_id = $1 ORDER BY position FOR UPDATE`, asnID)
}

func (r *ASNRepo) listLines(ctx context.Context, query, asnID string) ([]*entity.ASNLine, error) {
	rows, err := r.q.Query(ctx, query, asnID)
	if err != nil {
		return nil, fmt.Errorf("list asn lines: %w", err)
	}
	defer rows.Close()

	var list []*entity.ASNLine
	for rows.Next() {
		l, err := scanLine(rows)
		if err != nil {
			return nil, fmt.Errorf("scan asn line: %w", err)
		}
		list = append(list, l)
	}
	return list, rows.Err()
}

// UpdateLine persiste los contadores de una línea.
func (r *ASNRepo) UpdateLine(ctx context.Context, l *entity.ASNLine) error {
	cmd, err := r.q.Exec(ctx, `
		UPDATE asn_lines
		SET received_units = $2, normal_units = $3, damaged_units = $4, missing_units = $5,
		    quarantined_units = $6, lot_number = $7, expiry_date = $8, notes = $9, updated_at = $10
		WHERE id = $1`,
		l.ID, l.ReceivedUnits, l.NormalUnits, l.DamagedUnits, l.MissingUnits,
		l.QuarantinedUnits, nullIfEmpty(l.LotNumber), l.ExpiryDate, l.Notes, l.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update asn line: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// IncrementNormal suma una unidad escaneada en un único UPDATE atómico, solo si el ASN sigue abierto.
// El FOR SHARE sobre la cabecera choca con el FOR UPDATE del commit: el escaneo espera y vuelve a
// leer closed_at con la versión confirmada.
func (r *ASNRepo) IncrementNormal(ctx context.Context, asnID, lineID string) (*entity.ASNLine, error) {
	l, err := scanLine(r.q.QueryRow(ctx, `
		UPDATE asn_lines AS l
		SET normal_units = l.normal_units + 1,
		    received_units = l.received_units + 1,
		    updated_at = $3
		WHERE l.id = $2 AND l.asn_id = $1
		  AND EXISTS (SELECT 1 FROM asn_headers AS h WHERE h.id = $1 AND h.closed_at IS NULL FOR SHARE)
		RETURNING l.id, l.asn_id, l.sku_id, l.expected_units, l.received_units, l.normal_units, l.damaged_units,
		          l.missing_units, l.quarantined_units, l.lot_number, l.expiry_date, l.notes, l.updated_at`,
		asnID, lineID, time.Now(),
	))
	if err == nil {
		return l, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("increment asn line: %w", err)
	}

	var closed bool
	err = r.q.QueryRow(ctx, `SELECT closed_at IS NOT NULL FROM asn_headers WHERE id = $1`, asnID).Scan(&closed)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return nil, domain.ErrNotFound
	case err != nil:
		return nil, fmt.Errorf("check asn: %w", err)
	case closed:
		return nil, domain.ErrASNClosed
	}
	return nil, domain.ErrNotFound
}

func scanHeader(row pgx.Row) (*entity.ASNHeader, error) {
	var h entity.ASNHeader
	var status string
	err := row.Scan(
		&h.ID, &h.ClientID, &h.ASNNumber, &h.Carrier, &h.TrackingNumber, &h.LocationID,
		&h.ExpectedArrivalAt, &status, &h.ReceivedAt, &h.ClosedAt, &h.CreatedAt, &h.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	h.Status = entity.ASNStatus(status)
	return &h, nil
}

func scanLine(row pgx.Row) (*entity.ASNLine, error) {
	var l entity.ASNLine
	var lot *string
	err := row.Scan(
		&l.ID, &l.ASNID, &l.SKUID, &l.ExpectedUnits, &l.ReceivedUnits, &l.NormalUnits, &l.DamagedUnits,
		&l.MissingUnits, &l.QuarantinedUnits, &lot, &l.ExpiryDate, &l.Notes, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	l.LotNumber = deref(lot)
	return &l, nil
}
