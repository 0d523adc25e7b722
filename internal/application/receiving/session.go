package receiving

import (
	"context"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/jhoicas/wms-ledger/internal/application/dto"
	"github.com/jhoicas/wms-ledger/internal/application/ledger"
	"github.com/jhoicas/wms-ledger/internal/application/ports"
	"github.com/jhoicas/wms-ledger/internal/domain"
	"github.com/jhoicas/wms-ledger/internal/domain/entity"
	domrecv "github.com/jhoicas/wms-ledger/internal/domain/receiving"
	"github.com/jhoicas/wms-ledger/internal/domain/repository"
	"github.com/jhoicas/wms-ledger/pkg/telemetry"
)

// CommitInput contadores acumulados por línea enviados por el operador.
type CommitInput struct {
	ClientID string
	Actor    string
	ASNID    string
	Lines    []dto.CommitLineRequest
}

// StartReceiving abre la sesión (not_received → receiving). Idempotente si ya está en receiving.
func (uc *UseCase) StartReceiving(ctx context.Context, clientID, asnID string) (*dto.ASNResponse, error) {
	var out *entity.ASNHeader
	err := uc.txRunner.Run(ctx, func(asnRepo repository.ASNRepository, _ repository.LedgerRepository) error {
		h, err := lockHeader(ctx, asnRepo, clientID, asnID)
		if err != nil {
			return err
		}
		if h.IsClosed() {
			return domain.ErrASNClosed
		}
		out = h
		if h.Status != entity.ASNStatusNotReceived {
			return nil
		}
		if err := domrecv.Transition(h, entity.ASNStatusReceiving, uc.now()); err != nil {
			return err
		}
		return asnRepo.UpdateHeader(ctx, h)
	})
	if err != nil {
		return nil, err
	}
	return toASNResponse(out, nil, string(out.Status)), nil
}

// openSession pasa a receiving un ASN que se empezó a escanear sin StartReceiving explícito.
func (uc *UseCase) openSession(ctx context.Context, header *entity.ASNHeader) error {
	_, err := uc.StartReceiving(ctx, "", header.ID)
	return err
}

// Commit reconcilia el ASN: valida todas las líneas, asienta en el ledger solo lo nuevo desde el
// último commit, actualiza contadores y transiciona la cabecera, todo en una única transacción.
// Un ASN cerrado rechaza el commit con ErrASNClosed; primero debe reabrirse.
func (uc *UseCase) Commit(ctx context.Context, in CommitInput) (*dto.CommitResponse, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "receiving.Commit")
	defer span.End()
	span.SetAttributes(attribute.String("asn.id", in.ASNID), attribute.Int("commit.lines", len(in.Lines)))

	if err := uc.prevalidate(in.Lines); err != nil {
		span.SetStatus(codes.Error, "validación")
		return nil, err
	}

	commitID := uuid.New().String()
	var (
		header  *entity.ASNHeader
		prev    entity.ASNStatus
		outcome *domrecv.Outcome
	)
	err := uc.txRunner.Run(ctx, func(asnRepo repository.ASNRepository, ledgerRepo repository.LedgerRepository) error {
		h, err := lockHeader(ctx, asnRepo, in.ClientID, in.ASNID)
		if err != nil {
			return err
		}
		if h.IsClosed() {
			return domain.ErrASNClosed
		}
		prev = h.Status
		now := uc.now()

		// El primer commit pasa por receiving aunque ya contabilice todo.
		if h.Status == entity.ASNStatusNotReceived {
			if err := domrecv.Transition(h, entity.ASNStatusReceiving, now); err != nil {
				return err
			}
		}

		lines, err := asnRepo.ListLinesForUpdate(ctx, h.ID)
		if err != nil {
			return err
		}
		read := make(map[string]entity.ASNLine, len(lines))
		for _, l := range lines {
			read[l.ID] = *l
		}
		if err := mergeCounters(lines, in.Lines); err != nil {
			return err
		}

		ledgered, err := ledgerRepo.LedgeredBuckets(ctx, h.ID)
		if err != nil {
			return err
		}
		outcome, err = domrecv.Reconcile(domrecv.PlanInput{
			Header:   h,
			Lines:    lines,
			Ledgered: domrecv.Ledgered(ledgered),
			CommitID: commitID,
			Actor:    in.Actor,
			Now:      now,
		}, uc.maxUnits)
		if err != nil {
			return err
		}

		for i := range outcome.Entries {
			outcome.Entries[i].ID = uuid.New().String()
		}
		if len(outcome.Entries) > 0 {
			if err := ledgerRepo.AppendBatch(ctx, outcome.Entries); err != nil {
				return err
			}
		}
		// Solo se reescriben las líneas que cambiaron; las omitidas conservan sus escaneos.
		for _, l := range lines {
			if *l == read[l.ID] {
				continue
			}
			l.UpdatedAt = now
			if err := asnRepo.UpdateLine(ctx, l); err != nil {
				return err
			}
		}

		if h.ReceivedAt == nil {
			h.ReceivedAt = &now
		}
		if err := domrecv.Transition(h, outcome.Status, now); err != nil {
			return err
		}
		if err := asnRepo.UpdateHeader(ctx, h); err != nil {
			return err
		}
		header = h
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(
		attribute.String("asn.status", string(outcome.Status)),
		attribute.Int("ledger.entries", len(outcome.Entries)),
	)
	uc.log.Info().
		Str("asn_id", header.ID).
		Str("commit_id", commitID).
		Str("from", string(prev)).
		Str("to", string(outcome.Status)).
		Int("entries", len(outcome.Entries)).
		Msg("commit de recepción")

	if len(outcome.Entries) > 0 {
		uc.publishCommitted(ctx, header, commitID, outcome)
	}

	resp := &dto.CommitResponse{
		ASNID:            header.ID,
		CommitID:         commitID,
		PreviousStatus:   string(prev),
		Status:           string(outcome.Status),
		TotalExpected:    outcome.Totals.Expected,
		TotalAccounted:   outcome.Totals.Accounted,
		DiscrepancyUnits: outcome.Totals.Discrepancy,
		Entries:          make([]dto.LedgerEntryResponse, 0, len(outcome.Entries)),
	}
	for i := range outcome.Entries {
		resp.Entries = append(resp.Entries, ledger.ToEntryResponse(&outcome.Entries[i]))
	}
	return resp, nil
}

// Reopen reabre un ASN cerrado (closed/issue → receiving) y limpia closed_at.
// No toca el ledger: los commits posteriores solo asientan lo nuevo.
// Dos reaperturas concurrentes se resuelven por última escritura; reabrir uno ya abierto no hace nada.
func (uc *UseCase) Reopen(ctx context.Context, clientID, actor, asnID string) (*dto.ASNResponse, error) {
	var out *entity.ASNHeader
	var reopened bool
	err := uc.txRunner.Run(ctx, func(asnRepo repository.ASNRepository, _ repository.LedgerRepository) error {
		h, err := lockHeader(ctx, asnRepo, clientID, asnID)
		if err != nil {
			return err
		}
		out = h
		switch h.Status {
		case entity.ASNStatusReceiving:
			return nil
		case entity.ASNStatusNotReceived:
			return domain.ErrInvalidTransition
		}
		if err := domrecv.Transition(h, entity.ASNStatusReceiving, uc.now()); err != nil {
			return err
		}
		reopened = true
		return asnRepo.UpdateHeader(ctx, h)
	})
	if err != nil {
		return nil, err
	}
	if reopened {
		uc.log.Info().Str("asn_id", asnID).Str("actor", actor).Msg("ASN reabierto")
	}
	return toASNResponse(out, nil, string(out.Status)), nil
}

func lockHeader(ctx context.Context, asnRepo repository.ASNRepository, clientID, asnID string) (*entity.ASNHeader, error) {
	h, err := asnRepo.GetForUpdate(ctx, asnID)
	if err != nil {
		return nil, err
	}
	return checkOwner(h, clientID)
}

// prevalidate rechaza el commit antes de abrir la transacción: líneas repetidas o contadores fuera de rango.
func (uc *UseCase) prevalidate(in []dto.CommitLineRequest) error {
	seen := make(map[string]bool, len(in))
	probe := make([]*entity.ASNLine, 0, len(in))
	for _, l := range in {
		if l.LineID == "" {
			return &domain.ValidationError{Field: "line_id", Reason: "requerido"}
		}
		if seen[l.LineID] {
			return &domain.ValidationError{LineID: l.LineID, Field: "line_id", Reason: "línea repetida en el commit"}
		}
		seen[l.LineID] = true
		probe = append(probe, &entity.ASNLine{
			ID:               l.LineID,
			NormalUnits:      l.NormalUnits,
			DamagedUnits:     l.DamagedUnits,
			MissingUnits:     l.MissingUnits,
			QuarantinedUnits: l.QuarantinedUnits,
		})
	}
	return domrecv.ValidateLines(probe, uc.maxUnits)
}

// mergeCounters aplica los contadores acumulados del request sobre las líneas almacenadas.
// Las líneas que no vienen en el request conservan sus contadores.
func mergeCounters(lines []*entity.ASNLine, in []dto.CommitLineRequest) error {
	byID := make(map[string]*entity.ASNLine, len(lines))
	for _, l := range lines {
		byID[l.ID] = l
	}
	for _, req := range in {
		l, ok := byID[req.LineID]
		if !ok {
			return &domain.ValidationError{LineID: req.LineID, Field: "line_id", Reason: "la línea no pertenece al ASN"}
		}
		l.NormalUnits = req.NormalUnits
		l.DamagedUnits = req.DamagedUnits
		l.MissingUnits = req.MissingUnits
		l.QuarantinedUnits = req.QuarantinedUnits
		if req.LotNumber != nil {
			l.LotNumber = *req.LotNumber
		}
		if req.ExpiryDate != nil {
			l.ExpiryDate = req.ExpiryDate
		}
		if req.Notes != nil {
			l.Notes = *req.Notes
		}
	}
	return nil
}

func (uc *UseCase) publishCommitted(ctx context.Context, h *entity.ASNHeader, commitID string, o *domrecv.Outcome) {
	ev := ports.Event{
		Type:       ports.EventLedgerCommitted,
		Key:        entity.SourceASN + ":" + h.ID,
		ClientID:   h.ClientID,
		OccurredAt: h.UpdatedAt,
		Entries:    len(o.Entries),
		Attributes: map[string]string{
			"commit_id":  commitID,
			"asn_number": h.ASNNumber,
			"status":     string(o.Status),
		},
	}
	if err := uc.events.Publish(ctx, ev); err != nil {
		uc.log.Warn().Err(err).Str("asn_id", h.ID).Msgf("no se pudo publicar %s", ev.Type)
	}
}
