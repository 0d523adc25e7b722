package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/wms-ledger/internal/domain"
	"github.com/jhoicas/wms-ledger/internal/domain/entity"
	"github.com/jhoicas/wms-ledger/internal/domain/repository"
)

var _ repository.SyncWarningRepository = (*SyncWarningRepo)(nil)

// SyncWarningRepo advertencias durables de sincronización externa.
type SyncWarningRepo struct {
	q Querier
}

// NewSyncWarningRepository construye el adaptador.
func NewSyncWarningRepository(q Querier) *SyncWarningRepo {
	return &SyncWarningRepo{q: q}
}

const syncWarningColumns = `id, client_id, sku_id, order_ref, attempts, last_error, message, created_at, last_attempt_at, resolved_at`

// Create persiste una advertencia. Falla con ErrDuplicate si el SKU ya tiene una abierta.
func (r *SyncWarningRepo) Create(ctx context.Context, w *entity.SyncWarning) error {
	prepareWarning(w)
	_, err := r.q.Exec(ctx, `
		INSERT INTO sync_warnings (`+syncWarningColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		w.ID, w.ClientID, w.SKUID, w.OrderRef, w.Attempts, w.LastError, w.Message, w.CreatedAt, w.LastAttemptAt, w.ResolvedAt,
	)
	if err != nil {
		if isConstraint(err, openWarningIndex) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("create sync warning: %w", err)
	}
	return nil
}

// RecordFailure inserta o acumula sobre la advertencia abierta del SKU en una sola sentencia.
func (r *SyncWarningRepo) RecordFailure(ctx context.Context, w *entity.SyncWarning) (*entity.SyncWarning, error) {
	prepareWarning(w)
	out, err := scanSyncWarning(r.q.QueryRow(ctx, `
		INSERT INTO sync_warnings (`+syncWarningColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NULL)
		ON CONFLICT (client_id, sku_id) WHERE resolved_at IS NULL
		DO UPDATE SET attempts = sync_warnings.attempts + EXCLUDED.attempts,
		              last_error = EXCLUDED.last_error,
		              order_ref = EXCLUDED.order_ref,
		              last_attempt_at = EXCLUDED.last_attempt_at
		RETURNING `+syncWarningColumns,
		w.ID, w.ClientID, w.SKUID, w.OrderRef, w.Attempts, w.LastError, w.Message, w.CreatedAt, w.LastAttemptAt,
	))
	if err != nil {
		return nil, fmt.Errorf("record sync failure: %w", err)
	}
	return out, nil
}

func prepareWarning(w *entity.SyncWarning) {
	if w.ID == "" {
		w.ID = uuid.New().String()
	}
	if w.LastAttemptAt.IsZero() {
		w.LastAttemptAt = w.CreatedAt
	}
}

// ListOpen advertencias sin resolver, primero las de intento más antiguo. clientID vacío = todas.
func (r *SyncWarningRepo) ListOpen(ctx context.Context, clientID string, limit int) ([]*entity.SyncWarning, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+syncWarningColumns+`
		FROM sync_warnings
		WHERE resolved_at IS NULL AND ($1 = '' OR client_id = $1)
		ORDER BY last_attempt_at, created_at
		LIMIT $2`, clientID, limit)
	if err != nil {
		return nil, fmt.Errorf("list sync warnings: %w", err)
	}
	defer rows.Close()

	var list []*entity.SyncWarning
	for rows.Next() {
		w, err := scanSyncWarning(rows)
		if err != nil {
			return nil, fmt.Errorf("scan sync warning: %w", err)
		}
		list = append(list, w)
	}
	return list, rows.Err()
}

// GetByID obtiene una advertencia. nil si no existe.
func (r *SyncWarningRepo) GetByID(ctx context.Context, id string) (*entity.SyncWarning, error) {
	w, err := scanSyncWarning(r.q.QueryRow(ctx, `SELECT `+syncWarningColumns+` FROM sync_warnings WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get sync warning: %w", err)
	}
	return w, nil
}

// ResolveBySKU marca como resueltas las advertencias abiertas del SKU.
func (r *SyncWarningRepo) ResolveBySKU(ctx context.Context, clientID, skuID string) (int, error) {
	cmd, err := r.q.Exec(ctx, `
		UPDATE sync_warnings SET resolved_at = $3
		WHERE client_id = $1 AND sku_id = $2 AND resolved_at IS NULL`, clientID, skuID, time.Now())
	if err != nil {
		return 0, fmt.Errorf("resolve sync warnings: %w", err)
	}
	return int(cmd.RowsAffected()), nil
}

func scanSyncWarning(row pgx.Row) (*entity.SyncWarning, error) {
	var w entity.SyncWarning
	err := row.Scan(
		&w.ID, &w.ClientID, &w.SKUID, &w.OrderRef, &w.Attempts, &w.LastError, &w.Message, &w.CreatedAt, &w.LastAttemptAt, &w.ResolvedAt,
	)
	if err != nil {
		return nil, err
	}
	return &w, nil
}
