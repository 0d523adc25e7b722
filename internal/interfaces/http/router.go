package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/wms-ledger/internal/application/fulfillment"
	"github.com/jhoicas/wms-ledger/internal/application/ledger"
	"github.com/jhoicas/wms-ledger/internal/application/receiving"
	"github.com/jhoicas/wms-ledger/internal/application/stocksync"
	"github.com/jhoicas/wms-ledger/pkg/jwt"
	"github.com/jhoicas/wms-ledger/pkg/logger"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	ReceivingUC   *receiving.UseCase
	LedgerUC      *ledger.UseCase
	FulfillmentUC *fulfillment.UseCase
	SyncCoord     *stocksync.Coordinator
	JWTSecret     string
	Log           *logger.Logger
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}
	log = log.Component("http")

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api", AuthMiddleware(deps.JWTSecret))
	staff := RequireRole(jwt.RoleAdmin, jwt.RoleOperator)
	anyRole := RequireRole(jwt.RoleAdmin, jwt.RoleOperator, jwt.RoleService)
	adminOnly := RequireRole(jwt.RoleAdmin)

	// ASNs y sesión de recepción
	asns := api.Group("/asns")
	asnHandler := NewASNHandler(deps.ReceivingUC, log)
	asns.Post("/", anyRole, asnHandler.Create)
	asns.Get("/", anyRole, asnHandler.List)
	asns.Get("/:id", anyRole, asnHandler.GetByID)
	asns.Get("/:id/variance", anyRole, asnHandler.Variance)
	asns.Post("/:id/start", staff, asnHandler.Start)
	asns.Post("/:id/scan", staff, asnHandler.Scan)
	asns.Post("/:id/commit", staff, asnHandler.Commit)
	asns.Post("/:id/reopen", adminOnly, asnHandler.Reopen)

	// Ledger
	ledgerGroup := api.Group("/ledger")
	ledgerHandler := NewLedgerHandler(deps.LedgerUC, log)
	ledgerGroup.Post("/entries", RequireRole(jwt.RoleAdmin, jwt.RoleService), ledgerHandler.Append)
	ledgerGroup.Get("/entries", anyRole, ledgerHandler.Entries)
	ledgerGroup.Get("/on-hand", anyRole, ledgerHandler.OnHand)
	ledgerGroup.Get("/stock/:sku_id", anyRole, ledgerHandler.Stock)
	ledgerGroup.Get("/duplicates", adminOnly, ledgerHandler.Duplicates)

	// Fulfillment (webhook del marketplace o despacho manual)
	fulfillmentHandler := NewFulfillmentHandler(deps.FulfillmentUC, log)
	api.Post("/fulfillment/outbound", anyRole, fulfillmentHandler.Outbound)

	// Sincronización de inventario
	syncGroup := api.Group("/sync")
	syncHandler := NewSyncHandler(deps.SyncCoord, log)
	syncGroup.Get("/warnings", staff, syncHandler.ListWarnings)
	syncGroup.Post("/warnings/:id/repush", adminOnly, syncHandler.Repush)
}
