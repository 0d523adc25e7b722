package receiving

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/wms-ledger/internal/application/dto"
	"github.com/jhoicas/wms-ledger/internal/application/ports"
	"github.com/jhoicas/wms-ledger/internal/domain"
	"github.com/jhoicas/wms-ledger/internal/domain/entity"
	domrecv "github.com/jhoicas/wms-ledger/internal/domain/receiving"
	"github.com/jhoicas/wms-ledger/internal/domain/repository"
	"github.com/jhoicas/wms-ledger/pkg/logger"
)

// UseCase sesión de recepción de un ASN: alta, escaneo, commits, reapertura y consultas.
type UseCase struct {
	txRunner     TxRunner
	asnRepo      repository.ASNRepository
	registryRepo repository.RegistryRepository
	decisionRepo repository.DecisionRepository
	events       ports.EventPublisher
	log          *logger.Logger
	maxUnits     int
	now          func() time.Time
}

// NewUseCase construye el caso de uso. maxUnits <= 0 usa el tope por defecto.
func NewUseCase(
	txRunner TxRunner,
	asnRepo repository.ASNRepository,
	registryRepo repository.RegistryRepository,
	decisionRepo repository.DecisionRepository,
	events ports.EventPublisher,
	log *logger.Logger,
	maxUnits int,
) *UseCase {
	if events == nil {
		events = ports.NopPublisher{}
	}
	if log == nil {
		log = logger.Nop()
	}
	if maxUnits <= 0 {
		maxUnits = domrecv.DefaultMaxUnitsPerLine
	}
	return &UseCase{
		txRunner:     txRunner,
		asnRepo:      asnRepo,
		registryRepo: registryRepo,
		decisionRepo: decisionRepo,
		events:       events,
		log:          log.Component("receiving"),
		maxUnits:     maxUnits,
		now:          time.Now,
	}
}

// Create registra un ASN programado con su manifiesto esperado. Estado inicial: not_received.
func (uc *UseCase) Create(ctx context.Context, clientID string, in dto.CreateASNRequest) (*dto.ASNResponse, error) {
	if clientID == "" {
		clientID = in.ClientID
	}
	switch {
	case clientID == "":
		return nil, &domain.ValidationError{Field: "client_id", Reason: "requerido"}
	case strings.TrimSpace(in.ASNNumber) == "":
		return nil, &domain.ValidationError{Field: "asn_number", Reason: "requerido"}
	case in.LocationID == "":
		return nil, &domain.ValidationError{Field: "location_id", Reason: "requerido"}
	case len(in.Lines) == 0:
		return nil, &domain.ValidationError{Field: "lines", Reason: "el manifiesto no tiene líneas"}
	}
	loc, err := uc.registryRepo.GetLocation(ctx, in.LocationID)
	if err != nil {
		return nil, err
	}
	if loc == nil {
		return nil, domain.ErrNotFound
	}

	now := uc.now()
	header := &entity.ASNHeader{
		ID:                uuid.New().String(),
		ClientID:          clientID,
		ASNNumber:         strings.TrimSpace(in.ASNNumber),
		Carrier:           in.Carrier,
		TrackingNumber:    in.TrackingNumber,
		LocationID:        in.LocationID,
		ExpectedArrivalAt: in.ExpectedArrivalAt,
		Status:            entity.ASNStatusNotReceived,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	lines := make([]*entity.ASNLine, 0, len(in.Lines))
	for i, l := range in.Lines {
		lineID := uuid.New().String()
		if l.SKUID == "" {
			return nil, &domain.ValidationError{LineID: lineRef(i), Field: "sku_id", Reason: "requerido"}
		}
		if l.ExpectedUnits < 0 || l.ExpectedUnits > uc.maxUnits {
			return nil, &domain.ValidationError{LineID: lineRef(i), Field: "expected_units", Reason: "fuera de rango"}
		}
		sku, err := uc.registryRepo.GetSKU(ctx, l.SKUID)
		if err != nil {
			return nil, err
		}
		if sku == nil || sku.ClientID != clientID {
			return nil, &domain.ValidationError{LineID: lineRef(i), Field: "sku_id", Reason: "SKU desconocido para el cliente"}
		}
		lines = append(lines, &entity.ASNLine{
			ID:            lineID,
			ASNID:         header.ID,
			SKUID:         l.SKUID,
			ExpectedUnits: l.ExpectedUnits,
			LotNumber:     l.LotNumber,
			ExpiryDate:    l.ExpiryDate,
			Notes:         l.Notes,
			UpdatedAt:     now,
		})
	}

	if err := uc.asnRepo.Create(ctx, header, lines); err != nil {
		return nil, err
	}
	uc.log.Info().Str("asn_id", header.ID).Str("asn_number", header.ASNNumber).Int("lines", len(lines)).Msg("ASN creado")
	return toASNResponse(header, lines, string(header.Status)), nil
}

// Get devuelve el ASN con sus líneas y la etiqueta derivada display_status.
func (uc *UseCase) Get(ctx context.Context, clientID, asnID string) (*dto.ASNResponse, error) {
	header, err := uc.loadHeader(ctx, clientID, asnID)
	if err != nil {
		return nil, err
	}
	lines, err := uc.asnRepo.ListLines(ctx, asnID)
	if err != nil {
		return nil, err
	}
	label, err := uc.displayLabel(ctx, header)
	if err != nil {
		return nil, err
	}
	return toASNResponse(header, lines, label), nil
}

// List lista cabeceras con paginación. La etiqueta derivada se calcula por ASN.
func (uc *UseCase) List(ctx context.Context, clientID, status string, page dto.PageRequest) (*dto.ASNListResponse, error) {
	page.DefaultPage()
	filter := repository.ASNFilter{ClientID: clientID, Limit: page.Limit, Offset: page.Offset}
	if status != "" {
		filter.Status = entity.ASNStatus(status)
		if !filter.Status.IsValid() {
			return nil, &domain.ValidationError{Field: "status", Reason: "estado desconocido"}
		}
	}
	headers, err := uc.asnRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	items := make([]dto.ASNResponse, 0, len(headers))
	for _, h := range headers {
		label, err := uc.displayLabel(ctx, h)
		if err != nil {
			return nil, err
		}
		items = append(items, *toASNResponse(h, nil, label))
	}
	return &dto.ASNListResponse{
		Items: items,
		Page:  page.Response(),
	}, nil
}

// Variance reporte esperado vs. recibido por línea.
func (uc *UseCase) Variance(ctx context.Context, clientID, asnID string) (*dto.VarianceResponse, error) {
	if _, err := uc.loadHeader(ctx, clientID, asnID); err != nil {
		return nil, err
	}
	lines, err := uc.asnRepo.ListLines(ctx, asnID)
	if err != nil {
		return nil, err
	}
	out := &dto.VarianceResponse{ASNID: asnID, Lines: make([]dto.LineVarianceResponse, 0, len(lines))}
	for _, v := range domrecv.ComputeVariance(lines) {
		out.TotalExpected += v.ExpectedUnits
		out.TotalReceived += v.ReceivedUnits
		out.Lines = append(out.Lines, dto.LineVarianceResponse{
			LineID:           v.LineID,
			SKUID:            v.SKUID,
			ExpectedUnits:    v.ExpectedUnits,
			ReceivedUnits:    v.ReceivedUnits,
			Variance:         v.Variance,
			VariancePct:      v.VariancePct,
			DiscrepancyUnits: v.DiscrepancyUnits,
			OverReceipt:      v.OverReceipt,
		})
	}
	out.TotalVariance = out.TotalReceived - out.TotalExpected
	return out, nil
}

// loadHeader obtiene la cabecera y verifica que pertenezca al cliente (clientID vacío = personal de bodega).
func (uc *UseCase) loadHeader(ctx context.Context, clientID, asnID string) (*entity.ASNHeader, error) {
	header, err := uc.asnRepo.GetByID(ctx, asnID)
	if err != nil {
		return nil, err
	}
	return checkOwner(header, clientID)
}

func checkOwner(header *entity.ASNHeader, clientID string) (*entity.ASNHeader, error) {
	if header == nil {
		return nil, domain.ErrNotFound
	}
	if clientID != "" && header.ClientID != clientID {
		return nil, domain.ErrForbidden
	}
	return header, nil
}

func (uc *UseCase) displayLabel(ctx context.Context, h *entity.ASNHeader) (string, error) {
	if h.Status != entity.ASNStatusClosed {
		return string(h.Status), nil
	}
	decisions, err := uc.decisionRepo.ListByASN(ctx, h.ID)
	if err != nil {
		return "", err
	}
	return domrecv.DisplayLabel(h.Status, decisions), nil
}

func lineRef(i int) string {
	return "#" + strconv.Itoa(i+1)
}

func toASNResponse(h *entity.ASNHeader, lines []*entity.ASNLine, label string) *dto.ASNResponse {
	resp := &dto.ASNResponse{
		ID:                h.ID,
		ClientID:          h.ClientID,
		ASNNumber:         h.ASNNumber,
		Carrier:           h.Carrier,
		TrackingNumber:    h.TrackingNumber,
		LocationID:        h.LocationID,
		ExpectedArrivalAt: h.ExpectedArrivalAt,
		Status:            string(h.Status),
		DisplayStatus:     label,
		ReceivedAt:        h.ReceivedAt,
		ClosedAt:          h.ClosedAt,
		CreatedAt:         h.CreatedAt,
		UpdatedAt:         h.UpdatedAt,
	}
	for _, l := range lines {
		resp.Lines = append(resp.Lines, toLineResponse(l))
	}
	return resp
}

func toLineResponse(l *entity.ASNLine) dto.ASNLineResponse {
	return dto.ASNLineResponse{
		ID:               l.ID,
		SKUID:            l.SKUID,
		ExpectedUnits:    l.ExpectedUnits,
		ReceivedUnits:    l.ReceivedUnits,
		NormalUnits:      l.NormalUnits,
		DamagedUnits:     l.DamagedUnits,
		MissingUnits:     l.MissingUnits,
		QuarantinedUnits: l.QuarantinedUnits,
		LotNumber:        l.LotNumber,
		ExpiryDate:       l.ExpiryDate,
		Notes:            l.Notes,
	}
}
