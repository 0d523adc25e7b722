package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/wms-ledger/internal/application/dto"
	"github.com/jhoicas/wms-ledger/internal/application/ledger"
	"github.com/jhoicas/wms-ledger/pkg/logger"
)

// LedgerHandler entradas manuales y consultas de stock derivado del ledger.
type LedgerHandler struct {
	uc  *ledger.UseCase
	log *logger.Logger
}

func NewLedgerHandler(uc *ledger.UseCase, log *logger.Logger) *LedgerHandler {
	return &LedgerHandler{uc: uc, log: log}
}

// Append godoc
// @Summary      Registrar movimiento en el ledger
// @Tags         ledger
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.AppendEntryRequest  true  "Movimiento"
// @Success      201   {object}  dto.AppendEntryResponse
// @Success      200   {object}  dto.AppendEntryResponse  "salida ya aplicada (applied=false)"
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/ledger/entries [post]
func (h *LedgerHandler) Append(c *fiber.Ctx) error {
	var in dto.AppendEntryRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	clientID, err := resolveClient(c, in.ClientID)
	if err != nil {
		return respondError(c, h.log, err)
	}
	out, err := h.uc.Append(c.Context(), clientID, GetUserID(c), in)
	if err != nil {
		return respondError(c, h.log, err)
	}
	if !out.Applied {
		return c.JSON(out)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// Entries entradas de un origen. GET /api/ledger/entries?source_type=asn&source_ref=<id>
func (h *LedgerHandler) Entries(c *fiber.Ctx) error {
	out, err := h.uc.EntriesBySource(c.Context(), GetClientID(c), c.Query("source_type"), c.Query("source_ref"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"total": len(out), "entries": out})
}

// OnHand stock de un SKU en una ubicación.
// GET /api/ledger/on-hand?sku_id=&location_id=&client_id=
func (h *LedgerHandler) OnHand(c *fiber.Ctx) error {
	clientID, err := resolveClient(c, c.Query("client_id"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	out, err := h.uc.OnHand(c.Context(), clientID, c.Query("sku_id"), c.Query("location_id"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(out)
}

// Stock stock de un SKU por ubicación. GET /api/ledger/stock/:sku_id
func (h *LedgerHandler) Stock(c *fiber.Ctx) error {
	clientID, err := resolveClient(c, c.Query("client_id"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	out, err := h.uc.StockBySKU(c.Context(), clientID, c.Params("sku_id"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(out)
}

// Duplicates reporte de salidas por venta repetidas. GET /api/ledger/duplicates
func (h *LedgerHandler) Duplicates(c *fiber.Ctx) error {
	clientID, err := resolveClient(c, c.Query("client_id"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	out, err := h.uc.Duplicates(c.Context(), clientID)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"total": len(out), "duplicates": out})
}
