package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/wms-ledger/internal/application/dto"
	"github.com/jhoicas/wms-ledger/internal/application/receiving"
	"github.com/jhoicas/wms-ledger/pkg/logger"
)

// ASNHandler maneja las peticiones HTTP de ASNs y la sesión de recepción (protegido).
type ASNHandler struct {
	uc  *receiving.UseCase
	log *logger.Logger
}

// NewASNHandler construye el handler.
func NewASNHandler(uc *receiving.UseCase, log *logger.Logger) *ASNHandler {
	return &ASNHandler{uc: uc, log: log}
}

// Create godoc
// @Summary      Registrar ASN
// @Tags         asns
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateASNRequest  true  "Cabecera y manifiesto esperado"
// @Success      201   {object}  dto.ASNResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/asns [post]
func (h *ASNHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateASNRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	clientID, err := resolveClient(c, in.ClientID)
	if err != nil {
		return respondError(c, h.log, err)
	}
	out, err := h.uc.Create(c.Context(), clientID, in)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// List godoc
// @Summary      Listar ASNs
// @Tags         asns
// @Security     Bearer
// @Produce      json
// @Param        status     query  string  false  "not_received | receiving | closed"
// @Param        client_id  query  string  false  "Solo personal de bodega"
// @Success      200  {object}  dto.ASNListResponse
// @Router       /api/asns [get]
func (h *ASNHandler) List(c *fiber.Ctx) error {
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return invalidBody(c)
	}
	clientID, err := resolveClient(c, c.Query("client_id"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	out, err := h.uc.List(c.Context(), clientID, c.Query("status"), page)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(out)
}

// GetByID devuelve el ASN con sus líneas y display_status.
// GET /api/asns/:id
func (h *ASNHandler) GetByID(c *fiber.Ctx) error {
	out, err := h.uc.Get(c.Context(), GetClientID(c), c.Params("id"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(out)
}

// Start abre la sesión de recepción (not_received -> receiving). Idempotente.
// POST /api/asns/:id/start
func (h *ASNHandler) Start(c *fiber.Ctx) error {
	out, err := h.uc.StartReceiving(c.Context(), GetClientID(c), c.Params("id"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(out)
}

// Scan godoc
// @Summary      Escanear código de barras
// @Description  Suma una unidad normal a la línea del SKU. No escribe en el ledger.
// @Tags         asns
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string           true  "ID del ASN"
// @Param        body  body  dto.ScanRequest  true  "barcode"
// @Success      200   {object}  dto.ScanResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/asns/{id}/scan [post]
func (h *ASNHandler) Scan(c *fiber.Ctx) error {
	var in dto.ScanRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	out, err := h.uc.Scan(c.Context(), GetClientID(c), c.Params("id"), in)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(out)
}

// Commit godoc
// @Summary      Confirmar conteos de recepción
// @Description  Reconciliación atómica: contadores, entradas del ledger y estado en una sola transacción.
// @Tags         asns
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string             true  "ID del ASN"
// @Param        body  body  dto.CommitRequest  true  "Conteos acumulados por línea"
// @Success      200   {object}  dto.CommitResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/asns/{id}/commit [post]
func (h *ASNHandler) Commit(c *fiber.Ctx) error {
	var in dto.CommitRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	out, err := h.uc.Commit(c.Context(), receiving.CommitInput{
		ClientID: GetClientID(c),
		Actor:    GetUserID(c),
		ASNID:    c.Params("id"),
		Lines:    in.Lines,
	})
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(out)
}

// Reopen vuelve un ASN cerrado a receiving (solo admin).
// POST /api/asns/:id/reopen
func (h *ASNHandler) Reopen(c *fiber.Ctx) error {
	out, err := h.uc.Reopen(c.Context(), GetClientID(c), GetUserID(c), c.Params("id"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(out)
}

// Variance reporte esperado vs recibido por línea.
// GET /api/asns/:id/variance
func (h *ASNHandler) Variance(c *fiber.Ctx) error {
	out, err := h.uc.Variance(c.Context(), GetClientID(c), c.Params("id"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(out)
}
