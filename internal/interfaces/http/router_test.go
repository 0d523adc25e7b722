package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/wms-ledger/internal/application/apptest"
	"github.com/jhoicas/wms-ledger/internal/application/dto"
	"github.com/jhoicas/wms-ledger/internal/application/fulfillment"
	"github.com/jhoicas/wms-ledger/internal/application/ledger"
	"github.com/jhoicas/wms-ledger/internal/application/receiving"
	"github.com/jhoicas/wms-ledger/internal/application/stocksync"
	"github.com/jhoicas/wms-ledger/internal/domain/entity"
	apphttp "github.com/jhoicas/wms-ledger/internal/interfaces/http"
	pkgjwt "github.com/jhoicas/wms-ledger/pkg/jwt"
)

const (
	apiASN  = "asn-1"
	apiLine = "line-1"
	apiSKU  = "sku-1"
	apiLoc  = "loc-dock"
)

type apiFixture struct {
	app   *fiber.App
	store *apptest.Store
	sched *apptest.Scheduler
}

func newAPI(t *testing.T) *apiFixture {
	t.Helper()
	store := apptest.NewStore()
	store.AddLocation(entity.Location{ID: apiLoc, Code: "DOCK-1"})
	store.AddSKU(entity.SKU{ID: apiSKU, ClientID: testClientID, Code: "CAM-01", Barcode: "7701"})
	store.SeedASN(
		entity.ASNHeader{ID: apiASN, ClientID: testClientID, ASNNumber: "ASN-0001", LocationID: apiLoc, Status: entity.ASNStatusNotReceived},
		entity.ASNLine{ID: apiLine, SKUID: apiSKU, ExpectedUnits: 100},
	)

	pub := &apptest.Publisher{}
	sched := &apptest.Scheduler{}
	coord := stocksync.NewCoordinator(store.Ledger(), store.Warnings(), &apptest.Pusher{}, pub, nil,
		stocksync.Config{MaxAttempts: 1, BackoffUnit: time.Millisecond, Timeout: time.Second})

	app := fiber.New()
	apphttp.Router(app, apphttp.RouterDeps{
		ReceivingUC:   receiving.NewUseCase(store, store.ASNs(), store.Registry(), store.Decisions(), pub, nil, 0),
		LedgerUC:      ledger.NewUseCase(store.Ledger(), sched, pub, nil),
		FulfillmentUC: fulfillment.NewUseCase(store.Ledger(), sched, pub, nil),
		SyncCoord:     coord,
		JWTSecret:     testJWTSecret,
	})
	return &apiFixture{app: app, store: store, sched: sched}
}

func (f *apiFixture) call(t *testing.T, method, path, auth string, body interface{}) (*http.Response, []byte) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	var out bytes.Buffer
	_, _ = out.ReadFrom(resp.Body)
	return resp, out.Bytes()
}

// ─── Recepción ───────────────────────────────────────────────────────────────

func TestAPI_ScanCommitCierraYRechazaNuevoCommit(t *testing.T) {
	f := newAPI(t)
	op := tokenFor(t, pkgjwt.RoleOperator, "")

	resp, body := f.call(t, http.MethodPost, "/api/asns/"+apiASN+"/scan", op, dto.ScanRequest{Barcode: "7701"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var scan dto.ScanResponse
	require.NoError(t, json.Unmarshal(body, &scan))
	assert.True(t, scan.Found)
	assert.Equal(t, entity.ASNStatusReceiving, f.store.Header(apiASN).Status)

	commit := dto.CommitRequest{Lines: []dto.CommitLineRequest{{LineID: apiLine, NormalUnits: 100}}}
	resp, body = f.call(t, http.MethodPost, "/api/asns/"+apiASN+"/commit", op, commit)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var res dto.CommitResponse
	require.NoError(t, json.Unmarshal(body, &res))
	assert.Equal(t, "closed", res.Status)
	assert.Equal(t, 100, res.TotalAccounted)

	resp, body = f.call(t, http.MethodPost, "/api/asns/"+apiASN+"/commit", op, commit)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Contains(t, string(body), "ASN_CLOSED")
}

func TestAPI_ReaperturaSoloAdmin(t *testing.T) {
	f := newAPI(t)
	op := tokenFor(t, pkgjwt.RoleOperator, "")
	commit := dto.CommitRequest{Lines: []dto.CommitLineRequest{{LineID: apiLine, NormalUnits: 100}}}
	resp, _ := f.call(t, http.MethodPost, "/api/asns/"+apiASN+"/commit", op, commit)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = f.call(t, http.MethodPost, "/api/asns/"+apiASN+"/reopen", op, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, body := f.call(t, http.MethodPost, "/api/asns/"+apiASN+"/reopen", tokenFor(t, pkgjwt.RoleAdmin, ""), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Equal(t, entity.ASNStatusReceiving, f.store.Header(apiASN).Status)
}

func TestAPI_CommitInvalidoDevuelve400ConLinea(t *testing.T) {
	f := newAPI(t)
	commit := dto.CommitRequest{Lines: []dto.CommitLineRequest{{LineID: apiLine, NormalUnits: -1}}}
	resp, body := f.call(t, http.MethodPost, "/api/asns/"+apiASN+"/commit", tokenFor(t, pkgjwt.RoleOperator, ""), commit)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), "VALIDATION")
	assert.Contains(t, string(body), apiLine)
	assert.Empty(t, f.store.Entries())
}

func TestAPI_ClienteAjenoRecibe403(t *testing.T) {
	f := newAPI(t)
	resp, _ := f.call(t, http.MethodGet, "/api/asns/"+apiASN, tokenFor(t, pkgjwt.RoleService, "client-2"), nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = f.call(t, http.MethodGet, "/api/asns/no-existe", tokenFor(t, pkgjwt.RoleService, testClientID), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPI_ServicioNoPuedeEscanear(t *testing.T) {
	f := newAPI(t)
	resp, _ := f.call(t, http.MethodPost, "/api/asns/"+apiASN+"/scan", tokenFor(t, pkgjwt.RoleService, testClientID), dto.ScanRequest{Barcode: "7701"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

// ─── Fulfillment y ledger ────────────────────────────────────────────────────

func TestAPI_OutboundRepetidoSeOmite(t *testing.T) {
	f := newAPI(t)
	svc := tokenFor(t, pkgjwt.RoleService, testClientID)
	in := dto.OutboundRequest{
		OrderRef: "#1001", Trigger: fulfillment.TriggerWebhook, LocationID: apiLoc,
		Lines: []dto.OutboundLineRequest{{SKUID: apiSKU, Quantity: 2}},
	}

	resp, body := f.call(t, http.MethodPost, "/api/fulfillment/outbound", svc, in)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var first dto.OutboundResponse
	require.NoError(t, json.Unmarshal(body, &first))
	assert.Equal(t, dto.OutboundApplied, first.Lines[0].Status)

	in.Trigger = fulfillment.TriggerManual
	resp, body = f.call(t, http.MethodPost, "/api/fulfillment/outbound", tokenFor(t, pkgjwt.RoleOperator, ""), dto.OutboundRequest{
		ClientID: testClientID, OrderRef: in.OrderRef, Trigger: in.Trigger, LocationID: apiLoc, Lines: in.Lines,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var second dto.OutboundResponse
	require.NoError(t, json.Unmarshal(body, &second))
	assert.Equal(t, dto.OutboundSkipped, second.Lines[0].Status)

	assert.Len(t, f.store.Entries(), 1)
	assert.Len(t, f.sched.Enqueued(), 1)
}

func TestAPI_AppendYOnHand(t *testing.T) {
	f := newAPI(t)
	svc := tokenFor(t, pkgjwt.RoleService, testClientID)

	resp, body := f.call(t, http.MethodPost, "/api/ledger/entries", svc, dto.AppendEntryRequest{
		SKUID: apiSKU, LocationID: apiLoc, QtyDelta: 7, TransactionType: "receipt",
		SourceType: "manual", SourceRef: "conteo-1",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	resp, body = f.call(t, http.MethodGet, "/api/ledger/on-hand?sku_id="+apiSKU+"&location_id="+apiLoc, svc, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var oh dto.OnHandResponse
	require.NoError(t, json.Unmarshal(body, &oh))
	assert.Equal(t, 7, oh.Quantity)
}

func TestAPI_ClienteDistintoEnCuerpoRecibe403(t *testing.T) {
	f := newAPI(t)
	resp, _ := f.call(t, http.MethodPost, "/api/ledger/entries", tokenFor(t, pkgjwt.RoleService, testClientID), dto.AppendEntryRequest{
		ClientID: "client-2", SKUID: apiSKU, LocationID: apiLoc, QtyDelta: 1, TransactionType: "RECEIPT",
		SourceType: "manual", SourceRef: "x",
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Empty(t, f.store.Entries())
}

// ─── Sincronización ──────────────────────────────────────────────────────────

func TestAPI_RepushResuelveAdvertencia(t *testing.T) {
	f := newAPI(t)
	w := &entity.SyncWarning{ClientID: testClientID, SKUID: apiSKU, OrderRef: "#1001", Attempts: 3, LastError: "503"}
	require.NoError(t, f.store.Warnings().Create(context.Background(), w))

	resp, body := f.call(t, http.MethodGet, "/api/sync/warnings", tokenFor(t, pkgjwt.RoleOperator, ""), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), w.ID)

	resp, body = f.call(t, http.MethodPost, "/api/sync/warnings/"+w.ID+"/repush", tokenFor(t, pkgjwt.RoleAdmin, ""), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Empty(t, f.store.OpenWarnings())

	resp, _ = f.call(t, http.MethodPost, "/api/sync/warnings/"+w.ID+"/repush", tokenFor(t, pkgjwt.RoleAdmin, ""), nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestAPI_HealthPublico(t *testing.T) {
	f := newAPI(t)
	resp, _ := f.call(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
