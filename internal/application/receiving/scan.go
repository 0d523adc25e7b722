package receiving

import (
	"context"
	"strings"

	"github.com/jhoicas/wms-ledger/internal/application/dto"
	"github.com/jhoicas/wms-ledger/internal/domain"
	"github.com/jhoicas/wms-ledger/internal/domain/entity"
)

// Eventos transitorios devueltos a la UI de escaneo. No se persisten ni se publican.
const (
	ScanEventSuccess  = "scan.success"
	ScanEventNotFound = "scan.not_found"
)

// MatchedTableASNLines tabla reportada en el contrato de búsqueda cuando el código coincide con una línea.
const MatchedTableASNLines = "asn_lines"

// Scan resuelve un código escaneado contra las líneas del ASN activo y suma 1 a normal/received.
// Un código sin coincidencia no es un error: devuelve found=false y la sesión sigue.
// El escaneo nunca escribe en el ledger; lo contado es provisional hasta el commit.
func (uc *UseCase) Scan(ctx context.Context, clientID, asnID string, in dto.ScanRequest) (*dto.ScanResponse, error) {
	barcode := strings.TrimSpace(in.Barcode)
	if barcode == "" {
		return nil, &domain.ValidationError{Field: "barcode", Reason: "requerido"}
	}
	header, err := uc.loadHeader(ctx, clientID, asnID)
	if err != nil {
		return nil, err
	}
	if header.IsClosed() {
		return nil, domain.ErrASNClosed
	}

	notFound := &dto.ScanResponse{Found: false, Event: ScanEventNotFound}

	sku, err := uc.registryRepo.FindSKUByBarcode(ctx, header.ClientID, barcode)
	if err != nil {
		return nil, err
	}
	if sku == nil {
		uc.log.Debug().Str("asn_id", asnID).Str("barcode", barcode).Msg("código sin SKU registrado")
		return notFound, nil
	}

	lines, err := uc.asnRepo.ListLines(ctx, asnID)
	if err != nil {
		return nil, err
	}
	line := pickLine(lines, sku.ID)
	if line == nil {
		uc.log.Debug().Str("asn_id", asnID).Str("sku_id", sku.ID).Msg("SKU no esperado en el ASN")
		return notFound, nil
	}

	updated, err := uc.asnRepo.IncrementNormal(ctx, asnID, line.ID)
	if err != nil {
		return nil, err
	}
	if header.Status == entity.ASNStatusNotReceived {
		if err := uc.openSession(ctx, header); err != nil {
			return nil, err
		}
	}

	lineResp := toLineResponse(updated)
	return &dto.ScanResponse{
		Found:        true,
		MatchedTable: MatchedTableASNLines,
		MatchedID:    updated.ID,
		Event:        ScanEventSuccess,
		Line:         &lineResp,
	}, nil
}

// pickLine elige la línea del SKU; si hay varias, la primera que aún no completa lo esperado.
func pickLine(lines []*entity.ASNLine, skuID string) *entity.ASNLine {
	var first *entity.ASNLine
	for _, l := range lines {
		if l.SKUID != skuID {
			continue
		}
		if l.ReceivedUnits < l.ExpectedUnits {
			return l
		}
		if first == nil {
			first = l
		}
	}
	return first
}
