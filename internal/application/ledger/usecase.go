package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/wms-ledger/internal/application/dto"
	"github.com/jhoicas/wms-ledger/internal/application/ports"
	"github.com/jhoicas/wms-ledger/internal/domain"
	"github.com/jhoicas/wms-ledger/internal/domain/entity"
	"github.com/jhoicas/wms-ledger/internal/domain/repository"
	"github.com/jhoicas/wms-ledger/pkg/logger"
)

// UseCase contrato de escritura y lectura del ledger para colaboradores externos.
type UseCase struct {
	repo   repository.LedgerRepository
	sync   ports.SyncScheduler
	events ports.EventPublisher
	log    *logger.Logger
	now    func() time.Time
}

// NewUseCase construye el caso de uso. sync y events pueden ser nil.
func NewUseCase(repo repository.LedgerRepository, sync ports.SyncScheduler, events ports.EventPublisher, log *logger.Logger) *UseCase {
	if events == nil {
		events = ports.NopPublisher{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &UseCase{repo: repo, sync: sync, events: events, log: log.Component("ledger"), now: time.Now}
}

var validReasons = map[string]bool{
	entity.ReasonDamage:     true,
	entity.ReasonOther:      true,
	entity.ReasonCorrection: true,
}

// Append inserta una entrada validada. Las salidas por venta pasan por la guarda de idempotencia.
func (uc *UseCase) Append(ctx context.Context, clientID, actor string, in dto.AppendEntryRequest) (*dto.AppendEntryResponse, error) {
	entry, err := uc.buildEntry(clientID, actor, in)
	if err != nil {
		return nil, err
	}

	applied := true
	if entry.TransactionType.IsSaleDecrement() {
		applied, err = ApplySaleDecrement(ctx, uc.repo, entry)
	} else {
		err = uc.repo.Append(ctx, entry)
	}
	if err != nil {
		return nil, err
	}
	if !applied {
		uc.log.Info().
			Str("source_ref", entry.SourceRef).
			Str("sku_id", entry.SKUID).
			Msg("salida por venta ya aplicada, se omite")
		return &dto.AppendEntryResponse{Applied: false}, nil
	}

	uc.afterWrite(ctx, entry)
	resp := ToEntryResponse(entry)
	return &dto.AppendEntryResponse{Applied: true, Entry: &resp}, nil
}

func (uc *UseCase) buildEntry(clientID, actor string, in dto.AppendEntryRequest) (*entity.LedgerEntry, error) {
	tt := entity.TransactionType(strings.ToUpper(strings.TrimSpace(in.TransactionType)))
	switch {
	case clientID == "":
		return nil, &domain.ValidationError{Field: "client_id", Reason: "requerido"}
	case in.SKUID == "":
		return nil, &domain.ValidationError{Field: "sku_id", Reason: "requerido"}
	case in.LocationID == "":
		return nil, &domain.ValidationError{Field: "location_id", Reason: "requerido"}
	case in.SourceType == "" || in.SourceRef == "":
		return nil, &domain.ValidationError{Field: "source", Reason: "source_type y source_ref son requeridos"}
	case in.SourceType == entity.SourceASN:
		return nil, &domain.ValidationError{Field: "source_type", Reason: "reservado para la reconciliación de recepción"}
	case !tt.IsValid():
		return nil, &domain.ValidationError{Field: "transaction_type", Reason: "tipo desconocido"}
	case in.ReasonCode != "" && !validReasons[in.ReasonCode]:
		return nil, &domain.ValidationError{Field: "reason_code", Reason: "código desconocido"}
	}

	switch {
	case tt == entity.TransactionReceipt && in.QtyDelta <= 0:
		return nil, &domain.ValidationError{Field: "qty_delta", Reason: "una entrada debe ser positiva"}
	case tt.IsOutbound() && in.QtyDelta >= 0:
		return nil, &domain.ValidationError{Field: "qty_delta", Reason: "una salida debe ser negativa"}
	case tt == entity.TransactionAdjustment && in.ReasonCode == "":
		return nil, &domain.ValidationError{Field: "reason_code", Reason: "requerido en ajustes"}
	}

	return &entity.LedgerEntry{
		ID:              uuid.New().String(),
		ClientID:        clientID,
		SKUID:           in.SKUID,
		LocationID:      in.LocationID,
		QtyDelta:        in.QtyDelta,
		TransactionType: tt,
		SourceType:      in.SourceType,
		SourceRef:       in.SourceRef,
		LotNumber:       in.LotNumber,
		ExpiryDate:      in.ExpiryDate,
		ReasonCode:      in.ReasonCode,
		Notes:           in.Notes,
		CreatedAt:       uc.now(),
		CreatedBy:       actor,
	}, nil
}

// afterWrite publica el evento y, si la entrada es una salida, encola el push del stock.
func (uc *UseCase) afterWrite(ctx context.Context, e *entity.LedgerEntry) {
	ev := ports.Event{
		Type:       ports.EventLedgerCommitted,
		Key:        e.SourceType + ":" + e.SourceRef,
		ClientID:   e.ClientID,
		OccurredAt: e.CreatedAt,
		Entries:    1,
		Attributes: map[string]string{
			"transaction_type": string(e.TransactionType),
			"sku_id":           e.SKUID,
		},
	}
	if err := uc.events.Publish(ctx, ev); err != nil {
		uc.log.Warn().Err(err).Str("source_ref", e.SourceRef).Msg("no se pudo publicar ledger.committed")
	}
	if e.TransactionType.IsOutbound() && uc.sync != nil {
		uc.sync.Enqueue(e.ClientID, e.SKUID, e.SourceRef)
	}
}

// OnHand stock disponible de un SKU en una ubicación.
func (uc *UseCase) OnHand(ctx context.Context, clientID, skuID, locationID string) (*dto.OnHandResponse, error) {
	if clientID == "" || skuID == "" || locationID == "" {
		return nil, domain.ErrInvalidInput
	}
	qty, err := uc.repo.OnHand(ctx, clientID, skuID, locationID)
	if err != nil {
		return nil, err
	}
	return &dto.OnHandResponse{ClientID: clientID, SKUID: skuID, LocationID: locationID, Quantity: qty}, nil
}

// StockBySKU stock de un SKU en todas sus ubicaciones.
func (uc *UseCase) StockBySKU(ctx context.Context, clientID, skuID string) (*dto.SKUStockResponse, error) {
	if clientID == "" || skuID == "" {
		return nil, domain.ErrInvalidInput
	}
	rows, err := uc.repo.OnHandBySKU(ctx, clientID, skuID)
	if err != nil {
		return nil, err
	}
	out := &dto.SKUStockResponse{SKUID: skuID, Locations: make([]dto.OnHandResponse, 0, len(rows))}
	for _, r := range rows {
		out.Total += r.Quantity
		out.Locations = append(out.Locations, dto.OnHandResponse{
			ClientID: r.ClientID, SKUID: r.SKUID, LocationID: r.LocationID, Quantity: r.Quantity,
		})
	}
	return out, nil
}

// EntriesBySource entradas de un origen (p. ej. "asn" + id). clientID vacío = sin filtro.
func (uc *UseCase) EntriesBySource(ctx context.Context, clientID, sourceType, sourceRef string) ([]dto.LedgerEntryResponse, error) {
	if sourceType == "" || sourceRef == "" {
		return nil, domain.ErrInvalidInput
	}
	entries, err := uc.repo.ListBySource(ctx, sourceType, sourceRef)
	if err != nil {
		return nil, fmt.Errorf("listar entradas: %w", err)
	}
	out := make([]dto.LedgerEntryResponse, 0, len(entries))
	for _, e := range entries {
		if clientID != "" && e.ClientID != clientID {
			continue
		}
		out = append(out, ToEntryResponse(e))
	}
	return out, nil
}

// Duplicates reporte de salidas por venta repetidas. Solo informa: nunca revierte entradas.
func (uc *UseCase) Duplicates(ctx context.Context, clientID string) ([]dto.DuplicateDecrementResponse, error) {
	groups, err := uc.repo.DuplicateSaleDecrements(ctx, clientID)
	if err != nil {
		return nil, err
	}
	out := make([]dto.DuplicateDecrementResponse, 0, len(groups))
	for _, g := range groups {
		out = append(out, dto.DuplicateDecrementResponse{
			SourceType: g.SourceType,
			SourceRef:  g.SourceRef,
			SKUID:      g.SKUID,
			Entries:    g.Entries,
			TotalDelta: g.TotalDelta,
		})
	}
	if len(out) > 0 {
		uc.log.Warn().Int("groups", len(out)).Str("client_id", clientID).Msg("salidas por venta duplicadas detectadas")
	}
	return out, nil
}

// ToEntryResponse mapea una entrada del ledger a su DTO.
func ToEntryResponse(e *entity.LedgerEntry) dto.LedgerEntryResponse {
	return dto.LedgerEntryResponse{
		ID:              e.ID,
		ClientID:        e.ClientID,
		SKUID:           e.SKUID,
		LocationID:      e.LocationID,
		QtyDelta:        e.QtyDelta,
		TransactionType: string(e.TransactionType),
		SourceType:      e.SourceType,
		SourceRef:       e.SourceRef,
		ASNLineID:       e.ASNLineID,
		Bucket:          string(e.Bucket),
		BucketUnits:     e.BucketUnits,
		LotNumber:       e.LotNumber,
		ExpiryDate:      e.ExpiryDate,
		ReasonCode:      e.ReasonCode,
		Notes:           e.Notes,
		CommitID:        e.CommitID,
		CreatedAt:       e.CreatedAt,
		CreatedBy:       e.CreatedBy,
	}
}
