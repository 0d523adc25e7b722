package stocksync

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/jhoicas/wms-ledger/internal/application/dto"
	"github.com/jhoicas/wms-ledger/internal/application/ports"
	"github.com/jhoicas/wms-ledger/internal/domain"
	"github.com/jhoicas/wms-ledger/internal/domain/entity"
	"github.com/jhoicas/wms-ledger/internal/domain/repository"
	"github.com/jhoicas/wms-ledger/pkg/logger"
	"github.com/jhoicas/wms-ledger/pkg/telemetry"
)

var _ ports.SyncScheduler = (*Coordinator)(nil)

// Config política de reintentos del push.
type Config struct {
	MaxAttempts int
	BackoffUnit time.Duration // espera antes del intento n+1 = n * BackoffUnit
	Timeout     time.Duration // tope de un trabajo asíncrono, incluidas las esperas
}

// Coordinator empuja el stock disponible de un SKU al inventario del marketplace.
//
// El push corre fuera del request (Enqueue) con su propio context y timeout: la salida ya está
// asentada y un fallo externo nunca la revierte. Agotados los intentos queda una advertencia
// durable (sync_warnings), un log WARN y el evento sync.failed.
type Coordinator struct {
	ledgerRepo  repository.LedgerRepository
	warningRepo repository.SyncWarningRepository
	pusher      ports.InventoryPusher
	events      ports.EventPublisher
	log         *logger.Logger
	cfg         Config

	wait  func(ctx context.Context, d time.Duration) error
	now   func() time.Time
	wg    sync.WaitGroup
	locks keyLocks
}

// NewCoordinator construye el coordinador. Valores de cfg en cero toman 3 intentos, 2s y 30s.
func NewCoordinator(
	ledgerRepo repository.LedgerRepository,
	warningRepo repository.SyncWarningRepository,
	pusher ports.InventoryPusher,
	events ports.EventPublisher,
	log *logger.Logger,
	cfg Config,
) *Coordinator {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.BackoffUnit <= 0 {
		cfg.BackoffUnit = 2 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if events == nil {
		events = ports.NopPublisher{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Coordinator{
		ledgerRepo:  ledgerRepo,
		warningRepo: warningRepo,
		pusher:      pusher,
		events:      events,
		log:         log.Component("stocksync"),
		cfg:         cfg,
		wait:        sleepCtx,
		now:         time.Now,
	}
}

// Enqueue dispara el push en una goroutine independiente y retorna de inmediato.
func (c *Coordinator) Enqueue(clientID, skuID, orderRef string) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), c.cfg.Timeout)
		defer cancel()
		if _, err := c.Push(ctx, clientID, skuID, orderRef); err != nil {
			c.log.Error().Err(err).Str("sku_id", skuID).Str("order_ref", orderRef).Msg("push de stock no completado")
		}
	}()
}

// Wait bloquea hasta que terminen los trabajos encolados (apagado ordenado).
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

// Push intenta el push hasta MaxAttempts veces con espera lineal entre intentos.
// Un push agotado no es un error de la llamada: se reporta con Success=false y queda la advertencia.
// Solo devuelve error si no se pudo persistir la advertencia.
//
// Los push de un mismo (cliente, SKU) se ejecutan de a uno: el siguiente recalcula el stock después
// de que el anterior terminó, así un snapshot viejo nunca pisa a uno nuevo.
func (c *Coordinator) Push(ctx context.Context, clientID, skuID, orderRef string) (*dto.SyncResultResponse, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "stocksync.Push")
	defer span.End()
	span.SetAttributes(attribute.String("sku.id", skuID), attribute.String("order.ref", orderRef))

	res := &dto.SyncResultResponse{ClientID: clientID, SKUID: skuID}
	unlock, err := c.locks.acquire(ctx, clientID+"|"+skuID)
	if err != nil {
		lastErr := fmt.Errorf("esperando push previo del SKU: %w", err)
		res.Error = lastErr.Error()
		span.RecordError(lastErr)
		span.SetStatus(codes.Error, "sin turno")
		if err := c.escalate(ctx, clientID, skuID, orderRef, 0, lastErr); err != nil {
			return res, err
		}
		return res, nil
	}
	defer unlock()

	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		res.Attempts = attempt
		onHand, err := c.attempt(ctx, clientID, skuID, attempt)
		if err == nil {
			res.OnHand = onHand
			res.Success = true
			c.resolve(ctx, clientID, skuID)
			span.SetAttributes(attribute.Int("sync.attempts", attempt))
			return res, nil
		}
		lastErr = err
		c.log.Debug().Err(err).Int("attempt", attempt).Str("sku_id", skuID).Msg("push de stock fallido")

		if attempt == c.cfg.MaxAttempts {
			break
		}
		if werr := c.wait(ctx, time.Duration(attempt)*c.cfg.BackoffUnit); werr != nil {
			lastErr = fmt.Errorf("%v (espera interrumpida: %w)", lastErr, werr)
			break
		}
	}

	res.Error = lastErr.Error()
	span.RecordError(lastErr)
	span.SetStatus(codes.Error, "reintentos agotados")
	if err := c.escalate(ctx, clientID, skuID, orderRef, res.Attempts, lastErr); err != nil {
		return res, err
	}
	return res, nil
}

// attempt un intento: recalcula el stock desde el ledger y lo empuja.
func (c *Coordinator) attempt(ctx context.Context, clientID, skuID string, n int) (int, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "stocksync.attempt")
	defer span.End()
	span.SetAttributes(attribute.Int("sync.attempt", n))

	rows, err := c.ledgerRepo.OnHandBySKU(ctx, clientID, skuID)
	if err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("calcular stock: %w", err)
	}
	onHand := 0
	for _, r := range rows {
		onHand += r.Quantity
	}
	if err := c.pusher.PushInventory(ctx, ports.InventoryPushRequest{ClientID: clientID, SKUID: skuID, OnHand: onHand}); err != nil {
		span.RecordError(err)
		return 0, err
	}
	return onHand, nil
}

// escalate deja la advertencia durable. Usa un context propio: el del trabajo pudo haber expirado.
// Si el SKU ya tenía una abierta se acumulan los intentos sobre ella en vez de crear otra.
func (c *Coordinator) escalate(ctx context.Context, clientID, skuID, orderRef string, attempts int, cause error) error {
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	now := c.now()
	w, err := c.warningRepo.RecordFailure(pctx, &entity.SyncWarning{
		ID:            uuid.New().String(),
		ClientID:      clientID,
		SKUID:         skuID,
		OrderRef:      orderRef,
		Attempts:      attempts,
		LastError:     cause.Error(),
		Message:       fmt.Sprintf("el stock del SKU %s quedó asentado (pedido %s) pero no se pudo actualizar el inventario externo; requiere conciliación manual", skuID, orderRef),
		CreatedAt:     now,
		LastAttemptAt: now,
	})
	if err != nil {
		return fmt.Errorf("persistir advertencia de sincronización: %w", err)
	}
	c.log.Warn().
		Str("client_id", clientID).
		Str("sku_id", skuID).
		Str("order_ref", orderRef).
		Str("warning_id", w.ID).
		Int("attempts", attempts).
		Int("total_attempts", w.Attempts).
		Err(cause).
		Msg("sincronización externa agotada; requiere conciliación manual")

	ev := ports.Event{
		Type:       ports.EventSyncFailed,
		Key:        clientID + ":" + skuID,
		ClientID:   clientID,
		OccurredAt: now,
		Attributes: map[string]string{"sku_id": skuID, "order_ref": orderRef, "warning_id": w.ID},
	}
	if err := c.events.Publish(pctx, ev); err != nil {
		c.log.Warn().Err(err).Str("sku_id", skuID).Msg("no se pudo publicar sync.failed")
	}
	return nil
}

func (c *Coordinator) resolve(ctx context.Context, clientID, skuID string) {
	n, err := c.warningRepo.ResolveBySKU(ctx, clientID, skuID)
	if err != nil {
		c.log.Warn().Err(err).Str("sku_id", skuID).Msg("no se pudieron resolver advertencias")
		return
	}
	if n > 0 {
		c.log.Info().Int("resolved", n).Str("sku_id", skuID).Msg("advertencias de sincronización resueltas")
	}
}

// ListWarnings advertencias abiertas. clientID vacío = todas.
func (c *Coordinator) ListWarnings(ctx context.Context, clientID string, page dto.PageRequest) ([]dto.SyncWarningResponse, error) {
	page.DefaultPage()
	ws, err := c.warningRepo.ListOpen(ctx, clientID, page.Limit)
	if err != nil {
		return nil, err
	}
	out := make([]dto.SyncWarningResponse, 0, len(ws))
	for _, w := range ws {
		out = append(out, toWarningResponse(w))
	}
	return out, nil
}

// Repush reintenta de forma síncrona el push de una advertencia.
func (c *Coordinator) Repush(ctx context.Context, clientID, warningID string) (*dto.SyncResultResponse, error) {
	w, err := c.warningRepo.GetByID(ctx, warningID)
	if err != nil {
		return nil, err
	}
	if w == nil {
		return nil, domain.ErrNotFound
	}
	if clientID != "" && w.ClientID != clientID {
		return nil, domain.ErrForbidden
	}
	if !w.IsOpen() {
		return nil, fmt.Errorf("advertencia ya resuelta: %w", domain.ErrConflict)
	}
	return c.Push(ctx, w.ClientID, w.SKUID, w.OrderRef)
}

// Sweep reintenta una vez por SKU las advertencias abiertas de intento más antiguo. Devuelve cuántos
// SKUs quedaron sincronizados. Un SKU que vuelve a fallar acumula intentos en su advertencia y pasa
// al final de la cola, así que un SKU caído no acapara el lote.
func (c *Coordinator) Sweep(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		limit = 100
	}
	ws, err := c.warningRepo.ListOpen(ctx, "", limit)
	if err != nil {
		return 0, err
	}
	seen := make(map[string]bool, len(ws))
	synced := 0
	for _, w := range ws {
		key := w.ClientID + "|" + w.SKUID
		if seen[key] {
			continue
		}
		seen[key] = true
		if ctx.Err() != nil {
			return synced, ctx.Err()
		}
		res, err := c.Push(ctx, w.ClientID, w.SKUID, w.OrderRef)
		if err != nil {
			return synced, err
		}
		if res.Success {
			synced++
		}
	}
	c.log.Info().Int("open", len(ws)).Int("synced", synced).Msg("barrido de sincronización")
	return synced, nil
}

func toWarningResponse(w *entity.SyncWarning) dto.SyncWarningResponse {
	return dto.SyncWarningResponse{
		ID:            w.ID,
		ClientID:      w.ClientID,
		SKUID:         w.SKUID,
		OrderRef:      w.OrderRef,
		Attempts:      w.Attempts,
		LastError:     w.LastError,
		Message:       w.Message,
		CreatedAt:     w.CreatedAt,
		LastAttemptAt: w.LastAttemptAt,
		ResolvedAt:    w.ResolvedAt,
	}
}

// sleepCtx espera d o hasta que se cancele ctx.
func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
