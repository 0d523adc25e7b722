package fulfillment

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/jhoicas/wms-ledger/internal/application/dto"
	"github.com/jhoicas/wms-ledger/internal/application/ledger"
	"github.com/jhoicas/wms-ledger/internal/application/ports"
	"github.com/jhoicas/wms-ledger/internal/domain"
	"github.com/jhoicas/wms-ledger/internal/domain/entity"
	"github.com/jhoicas/wms-ledger/internal/domain/repository"
	"github.com/jhoicas/wms-ledger/pkg/logger"
	"github.com/jhoicas/wms-ledger/pkg/telemetry"
)

// Disparadores de una salida por venta.
const (
	TriggerWebhook = "webhook"
	TriggerManual  = "manual"
)

// DefaultSourceType origen por defecto de los pedidos del marketplace.
const DefaultSourceType = "shopify_fulfillment"

// UseCase descuenta stock por ventas. El webhook del marketplace y la acción manual de despacho
// pueden llegar para el mismo pedido: solo el primero escribe.
type UseCase struct {
	ledgerRepo repository.LedgerRepository
	sync       ports.SyncScheduler
	events     ports.EventPublisher
	log        *logger.Logger
	now        func() time.Time
}

// NewUseCase construye el caso de uso. sync puede ser nil (sin push externo).
func NewUseCase(ledgerRepo repository.LedgerRepository, sync ports.SyncScheduler, events ports.EventPublisher, log *logger.Logger) *UseCase {
	if events == nil {
		events = ports.NopPublisher{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &UseCase{ledgerRepo: ledgerRepo, sync: sync, events: events, log: log.Component("fulfillment"), now: time.Now}
}

// Outbound registra la salida de cada línea del pedido pasando por la guarda de idempotencia.
// Tras cada escritura exitosa encola el push del stock; el push nunca bloquea esta llamada.
func (uc *UseCase) Outbound(ctx context.Context, clientID, actor string, in dto.OutboundRequest) (*dto.OutboundResponse, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "fulfillment.Outbound")
	defer span.End()

	txType, err := validate(clientID, in)
	if err != nil {
		span.SetStatus(codes.Error, "validación")
		return nil, err
	}
	sourceType := in.SourceType
	if sourceType == "" {
		sourceType = DefaultSourceType
	}
	span.SetAttributes(
		attribute.String("order.ref", in.OrderRef),
		attribute.String("ledger.transaction_type", string(txType)),
	)

	resp := &dto.OutboundResponse{OrderRef: in.OrderRef, Lines: make([]dto.OutboundLineResult, 0, len(in.Lines))}
	applied := 0
	for _, l := range in.Lines {
		entry := &entity.LedgerEntry{
			ID:              uuid.New().String(),
			ClientID:        clientID,
			SKUID:           l.SKUID,
			LocationID:      in.LocationID,
			QtyDelta:        -l.Quantity,
			TransactionType: txType,
			SourceType:      sourceType,
			SourceRef:       in.OrderRef,
			CreatedAt:       uc.now(),
			CreatedBy:       actor,
		}
		ok, err := ledger.ApplySaleDecrement(ctx, uc.ledgerRepo, entry)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		if !ok {
			uc.log.Info().
				Str("order_ref", in.OrderRef).
				Str("sku_id", l.SKUID).
				Str("trigger", in.Trigger).
				Msg("salida ya aplicada por otro disparador, se omite")
			resp.Lines = append(resp.Lines, dto.OutboundLineResult{SKUID: l.SKUID, Status: dto.OutboundSkipped})
			continue
		}

		applied++
		res := dto.OutboundLineResult{SKUID: l.SKUID, Status: dto.OutboundApplied, EntryID: entry.ID}
		if uc.sync != nil {
			uc.sync.Enqueue(clientID, l.SKUID, in.OrderRef)
			res.SyncEnqueued = true
		}
		resp.Lines = append(resp.Lines, res)
	}

	if applied > 0 {
		ev := ports.Event{
			Type:       ports.EventLedgerCommitted,
			Key:        sourceType + ":" + in.OrderRef,
			ClientID:   clientID,
			OccurredAt: uc.now(),
			Entries:    applied,
			Attributes: map[string]string{"transaction_type": string(txType), "trigger": in.Trigger},
		}
		if err := uc.events.Publish(ctx, ev); err != nil {
			uc.log.Warn().Err(err).Str("order_ref", in.OrderRef).Msg("no se pudo publicar ledger.committed")
		}
	}
	span.SetAttributes(attribute.Int("ledger.entries", applied))
	return resp, nil
}

// validate revisa el pedido completo antes de escribir y devuelve el subtipo según el disparador.
func validate(clientID string, in dto.OutboundRequest) (entity.TransactionType, error) {
	switch {
	case clientID == "":
		return "", &domain.ValidationError{Field: "client_id", Reason: "requerido"}
	case in.OrderRef == "":
		return "", &domain.ValidationError{Field: "order_ref", Reason: "requerido"}
	case in.LocationID == "":
		return "", &domain.ValidationError{Field: "location_id", Reason: "requerido"}
	case len(in.Lines) == 0:
		return "", &domain.ValidationError{Field: "lines", Reason: "el pedido no tiene líneas"}
	case in.SourceType == entity.SourceASN:
		return "", &domain.ValidationError{Field: "source_type", Reason: "reservado para la reconciliación de recepción"}
	}

	var txType entity.TransactionType
	switch in.Trigger {
	case TriggerWebhook:
		txType = entity.TransactionOutboundSale
	case TriggerManual, "":
		txType = entity.TransactionOutboundFulfillment
	default:
		return "", &domain.ValidationError{Field: "trigger", Reason: "debe ser webhook o manual"}
	}

	seen := make(map[string]bool, len(in.Lines))
	for _, l := range in.Lines {
		if l.SKUID == "" {
			return "", &domain.ValidationError{Field: "sku_id", Reason: "requerido"}
		}
		if seen[l.SKUID] {
			return "", &domain.ValidationError{LineID: l.SKUID, Field: "sku_id", Reason: "SKU repetido en el pedido"}
		}
		seen[l.SKUID] = true
		if l.Quantity <= 0 {
			return "", &domain.ValidationError{LineID: l.SKUID, Field: "quantity", Reason: "debe ser > 0"}
		}
	}
	return txType, nil
}
