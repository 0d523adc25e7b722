package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/wms-ledger/internal/application/dto"
	"github.com/jhoicas/wms-ledger/internal/application/stocksync"
	"github.com/jhoicas/wms-ledger/pkg/logger"
)

// SyncHandler advertencias de sincronización con el marketplace.
type SyncHandler struct {
	coord *stocksync.Coordinator
	log   *logger.Logger
}

func NewSyncHandler(coord *stocksync.Coordinator, log *logger.Logger) *SyncHandler {
	return &SyncHandler{coord: coord, log: log}
}

// ListWarnings advertencias abiertas. GET /api/sync/warnings
func (h *SyncHandler) ListWarnings(c *fiber.Ctx) error {
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return invalidBody(c)
	}
	clientID, err := resolveClient(c, c.Query("client_id"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	out, err := h.coord.ListWarnings(c.Context(), clientID, page)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"total": len(out), "warnings": out})
}

// Repush reintenta de forma síncrona el push de una advertencia.
// POST /api/sync/warnings/:id/repush
func (h *SyncHandler) Repush(c *fiber.Ctx) error {
	out, err := h.coord.Repush(c.Context(), GetClientID(c), c.Params("id"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	if !out.Success {
		return c.Status(fiber.StatusBadGateway).JSON(out)
	}
	return c.JSON(out)
}
