package marketplace

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/jhoicas/wms-ledger/internal/application/ports"
	"github.com/jhoicas/wms-ledger/pkg/logger"
)

// inventoryPath endpoint de actualización de existencias.
const inventoryPath = "/v1/inventory"

// Client implementa InventoryPusher contra la API REST de inventario del marketplace.
// Con BaseURL vacío opera en modo simulado: solo registra el push.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	log        *logger.Logger
}

var _ ports.InventoryPusher = (*Client)(nil)

// NewClient construye el cliente con un timeout de red de 10 s por intento.
func NewClient(baseURL, apiKey string, log *logger.Logger) *Client {
	if log == nil {
		log = logger.Nop()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		log:        log.Component("marketplace"),
	}
}

// Simulated indica si el cliente no tiene endpoint configurado.
func (c *Client) Simulated() bool {
	return c.baseURL == ""
}

type inventoryPayload struct {
	ClientID string `json:"client_id"`
	SKUID    string `json:"sku_id"`
	OnHand   int    `json:"available"`
}

// PushInventory envía el nivel absoluto de existencias del SKU.
// Cualquier respuesta fuera de 2xx se devuelve como error para que el coordinador reintente.
func (c *Client) PushInventory(ctx context.Context, req ports.InventoryPushRequest) error {
	if c.Simulated() {
		c.log.Info().
			Str("client_id", req.ClientID).
			Str("sku_id", req.SKUID).
			Int("on_hand", req.OnHand).
			Msg("push de inventario simulado")
		return nil
	}

	payload, err := json.Marshal(inventoryPayload{ClientID: req.ClientID, SKUID: req.SKUID, OnHand: req.OnHand})
	if err != nil {
		return fmt.Errorf("marketplace: serializar payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+inventoryPath, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("marketplace: crear request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("X-API-Key", c.apiKey)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(httpReq.Header))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("marketplace: timeout o cancelación: %w", ctx.Err())
		}
		return fmt.Errorf("marketplace: llamada HTTP fallida: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("marketplace: %d %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}
