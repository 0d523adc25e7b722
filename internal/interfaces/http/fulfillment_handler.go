package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/wms-ledger/internal/application/dto"
	"github.com/jhoicas/wms-ledger/internal/application/fulfillment"
	"github.com/jhoicas/wms-ledger/pkg/logger"
)

// FulfillmentHandler salidas de pedidos (webhook del marketplace o despacho manual).
type FulfillmentHandler struct {
	uc  *fulfillment.UseCase
	log *logger.Logger
}

func NewFulfillmentHandler(uc *fulfillment.UseCase, log *logger.Logger) *FulfillmentHandler {
	return &FulfillmentHandler{uc: uc, log: log}
}

// Outbound godoc
// @Summary      Registrar salida de un pedido
// @Description  Cada SKU del pedido se descuenta una sola vez sin importar el disparador.
// @Tags         fulfillment
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.OutboundRequest  true  "order_ref, trigger (webhook|manual), lines"
// @Success      200   {object}  dto.OutboundResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/fulfillment/outbound [post]
func (h *FulfillmentHandler) Outbound(c *fiber.Ctx) error {
	var in dto.OutboundRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	clientID, err := resolveClient(c, in.ClientID)
	if err != nil {
		return respondError(c, h.log, err)
	}
	out, err := h.uc.Outbound(c.Context(), clientID, GetUserID(c), in)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(out)
}
