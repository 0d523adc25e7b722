package receiving

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/wms-ledger/internal/application/apptest"
	"github.com/jhoicas/wms-ledger/internal/application/dto"
	"github.com/jhoicas/wms-ledger/internal/domain"
	"github.com/jhoicas/wms-ledger/internal/domain/entity"
	"github.com/jhoicas/wms-ledger/internal/domain/repository"
)

const (
	testClient   = "client-1"
	testASN      = "asn-1"
	testLine     = "line-1"
	testSKU      = "sku-1"
	testLocation = "loc-dock"
)

type fixture struct {
	store *apptest.Store
	pub   *apptest.Publisher
	uc    *UseCase
}

// newFixture ASN con una línea de 100 unidades esperadas del SKU "sku-1" (código 7701).
func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := apptest.NewStore()
	store.AddLocation(entity.Location{ID: testLocation, Code: "DOCK-1"})
	store.AddSKU(entity.SKU{ID: testSKU, ClientID: testClient, Code: "CAM-01", Barcode: "7701"})
	store.SeedASN(
		entity.ASNHeader{ID: testASN, ClientID: testClient, ASNNumber: "ASN-0001", LocationID: testLocation, Status: entity.ASNStatusNotReceived},
		entity.ASNLine{ID: testLine, SKUID: testSKU, ExpectedUnits: 100},
	)
	pub := &apptest.Publisher{}
	uc := NewUseCase(store, store.ASNs(), store.Registry(), store.Decisions(), pub, nil, 0)
	clock := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	uc.now = func() time.Time { clock = clock.Add(time.Minute); return clock }
	return &fixture{store: store, pub: pub, uc: uc}
}

func (f *fixture) commit(t *testing.T, lines ...dto.CommitLineRequest) (*dto.CommitResponse, error) {
	t.Helper()
	return f.uc.Commit(context.Background(), CommitInput{ClientID: testClient, Actor: "op-1", ASNID: testASN, Lines: lines})
}

func line(normal, damaged, missing, quarantined int) dto.CommitLineRequest {
	return dto.CommitLineRequest{LineID: testLine, NormalUnits: normal, DamagedUnits: damaged, MissingUnits: missing, QuarantinedUnits: quarantined}
}

func receiptTotal(entries []entity.LedgerEntry) int {
	total := 0
	for _, e := range entries {
		if e.TransactionType == entity.TransactionReceipt {
			total += e.QtyDelta
		}
	}
	return total
}

// ─── Commit ──────────────────────────────────────────────────────────────────

func TestCommit_EscenarioIncremental(t *testing.T) {
	f := newFixture(t)

	res, err := f.commit(t, line(60, 0, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, "not_received", res.PreviousStatus)
	assert.Equal(t, "receiving", res.Status)
	require.Len(t, res.Entries, 1)
	assert.Equal(t, "RECEIPT", res.Entries[0].TransactionType)
	assert.Equal(t, 60, res.Entries[0].QtyDelta)

	h := f.store.Header(testASN)
	require.NotNil(t, h.ReceivedAt)
	firstReceived := *h.ReceivedAt
	assert.Nil(t, h.ClosedAt)

	res, err = f.commit(t, line(85, 15, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, "issue", res.Status)
	assert.Equal(t, 100, res.TotalAccounted)
	assert.Equal(t, 15, res.DiscrepancyUnits)
	require.Len(t, res.Entries, 2)
	assert.Equal(t, 25, res.Entries[0].QtyDelta)
	assert.Equal(t, "ADJUSTMENT", res.Entries[1].TransactionType)
	assert.Equal(t, 0, res.Entries[1].QtyDelta)
	assert.Equal(t, "damage", res.Entries[1].ReasonCode)
	assert.Equal(t, 15, res.Entries[1].BucketUnits)

	h = f.store.Header(testASN)
	assert.Equal(t, entity.ASNStatusIssue, h.Status)
	require.NotNil(t, h.ClosedAt)
	assert.Equal(t, firstReceived, *h.ReceivedAt, "received_at solo lo fija el primer commit")

	l := f.store.Line(testLine)
	assert.Equal(t, l.NormalUnits+l.DamagedUnits+l.MissingUnits+l.QuarantinedUnits, l.ReceivedUnits)
	assert.Equal(t, 85, receiptTotal(f.store.Entries()))
	assert.Len(t, f.store.Entries(), 3)
	assert.Len(t, f.pub.Events(), 2)
}

func TestCommit_CompletoSinDiscrepanciaCierra(t *testing.T) {
	f := newFixture(t)

	res, err := f.commit(t, line(100, 0, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, "closed", res.Status)
	h := f.store.Header(testASN)
	assert.NotNil(t, h.ClosedAt)
	assert.NotNil(t, h.ReceivedAt)
}

func TestCommit_SobreRecepcionAceptada(t *testing.T) {
	f := newFixture(t)

	res, err := f.commit(t, line(120, 0, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, "closed", res.Status)
	assert.Equal(t, 120, receiptTotal(f.store.Entries()))

	v, err := f.uc.Variance(context.Background(), testClient, testASN)
	require.NoError(t, err)
	require.Len(t, v.Lines, 1)
	assert.Equal(t, 20, v.Lines[0].Variance)
	assert.True(t, v.Lines[0].OverReceipt)
	assert.Equal(t, "20", v.Lines[0].VariancePct.String())
}

func TestCommit_ASNCerradoRechazaSinEntradasNuevas(t *testing.T) {
	f := newFixture(t)
	_, err := f.commit(t, line(100, 0, 0, 0))
	require.NoError(t, err)
	before := len(f.store.Entries())

	_, err = f.commit(t, line(100, 0, 0, 0))
	assert.ErrorIs(t, err, domain.ErrASNClosed)
	assert.Len(t, f.store.Entries(), before)
}

func TestCommit_ValidacionTodoONada(t *testing.T) {
	f := newFixture(t)
	f.store.SeedASN(
		entity.ASNHeader{ID: "asn-2", ClientID: testClient, ASNNumber: "ASN-0002", LocationID: testLocation, Status: entity.ASNStatusReceiving},
		entity.ASNLine{ID: "line-a", SKUID: testSKU, ExpectedUnits: 10},
		entity.ASNLine{ID: "line-b", SKUID: testSKU, ExpectedUnits: 10},
	)

	_, err := f.uc.Commit(context.Background(), CommitInput{
		ClientID: testClient, ASNID: "asn-2",
		Lines: []dto.CommitLineRequest{
			{LineID: "line-a", NormalUnits: 10},
			{LineID: "line-b", NormalUnits: 5, DamagedUnits: -1},
		},
	})
	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "line-b", verr.LineID)
	assert.Equal(t, "damaged_units", verr.Field)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	assert.Empty(t, f.store.Entries())
	assert.Equal(t, 0, f.store.Line("line-a").NormalUnits)
}

func TestCommit_LineaAjenaAlASN(t *testing.T) {
	f := newFixture(t)
	_, err := f.commit(t, dto.CommitLineRequest{LineID: "otra", NormalUnits: 1})
	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "line_id", verr.Field)
	assert.Empty(t, f.store.Entries())
	assert.Equal(t, entity.ASNStatusNotReceived, f.store.Header(testASN).Status, "la transacción revierte la apertura implícita")
}

func TestCommit_FalloDeEscrituraRevierteTodo(t *testing.T) {
	f := newFixture(t)
	f.store.FailAppend = errors.New("conexión perdida")

	_, err := f.commit(t, line(60, 0, 0, 0))
	require.Error(t, err)
	assert.Empty(t, f.store.Entries())
	assert.Equal(t, 0, f.store.Line(testLine).NormalUnits)
	assert.Nil(t, f.store.Header(testASN).ReceivedAt)
	assert.Empty(t, f.pub.Events())
}

func TestCommit_LineasOmitidasConservanLoEscaneado(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 3; i++ {
		_, err := f.uc.Scan(context.Background(), testClient, testASN, dto.ScanRequest{Barcode: "7701"})
		require.NoError(t, err)
	}
	assert.Empty(t, f.store.Entries(), "escanear no escribe en el ledger")

	res, err := f.commit(t)
	require.NoError(t, err)
	require.Len(t, res.Entries, 1)
	assert.Equal(t, 3, res.Entries[0].QtyDelta)
}

// escaneoTrasLectura TxRunner que registra un escaneo justo después de que el commit lee las líneas.
type escaneoTrasLectura struct {
	store *apptest.Store
	done  bool
	err   error
}

func (r *escaneoTrasLectura) Run(ctx context.Context, fn func(repository.ASNRepository, repository.LedgerRepository) error) error {
	return r.store.Run(ctx, func(asnRepo repository.ASNRepository, ledgerRepo repository.LedgerRepository) error {
		return fn(lineasConEscaneo{ASNRepository: asnRepo, after: func() {
			if r.done {
				return
			}
			r.done = true
			_, r.err = r.store.ASNs().IncrementNormal(ctx, testASN, testLine)
		}}, ledgerRepo)
	})
}

type lineasConEscaneo struct {
	repository.ASNRepository
	after func()
}

func (r lineasConEscaneo) ListLinesForUpdate(ctx context.Context, asnID string) ([]*entity.ASNLine, error) {
	lines, err := r.ASNRepository.ListLinesForUpdate(ctx, asnID)
	if err == nil {
		r.after()
	}
	return lines, err
}

func TestCommit_EscaneoConcurrenteNoSePierde(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 5; i++ {
		_, err := f.uc.Scan(context.Background(), testClient, testASN, dto.ScanRequest{Barcode: "7701"})
		require.NoError(t, err)
	}
	tx := &escaneoTrasLectura{store: f.store}
	uc := NewUseCase(tx, f.store.ASNs(), f.store.Registry(), f.store.Decisions(), f.pub, nil, 0)
	uc.now = f.uc.now

	res, err := uc.Commit(context.Background(), CommitInput{ClientID: testClient, Actor: "op-1", ASNID: testASN})
	require.NoError(t, err)
	require.True(t, tx.done)
	require.NoError(t, tx.err)
	require.Len(t, res.Entries, 1)
	assert.Equal(t, 5, res.Entries[0].QtyDelta)
	assert.Equal(t, 6, f.store.Line(testLine).NormalUnits, "el escaneo confirmado durante el commit se conserva")
	assert.Equal(t, 6, f.store.Line(testLine).ReceivedUnits)

	res, err = f.commit(t)
	require.NoError(t, err)
	require.Len(t, res.Entries, 1)
	assert.Equal(t, 1, res.Entries[0].QtyDelta)
	assert.Equal(t, 6, receiptTotal(f.store.Entries()))
}

// ─── Reapertura ──────────────────────────────────────────────────────────────

func TestReopen_CommitPosteriorEsIncremental(t *testing.T) {
	f := newFixture(t)
	_, err := f.commit(t, line(100, 0, 0, 0))
	require.NoError(t, err)

	resp, err := f.uc.Reopen(context.Background(), testClient, "admin-1", testASN)
	require.NoError(t, err)
	assert.Equal(t, "receiving", resp.Status)
	assert.Nil(t, f.store.Header(testASN).ClosedAt)
	assert.Len(t, f.store.Entries(), 1, "reabrir no toca el ledger")

	// El operador mueve 5 unidades de normal a dañado.
	res, err := f.commit(t, line(95, 5, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, "issue", res.Status)
	require.Len(t, res.Entries, 2)
	assert.Equal(t, -5, res.Entries[0].QtyDelta)
	assert.Equal(t, "correction", res.Entries[0].ReasonCode)
	assert.Equal(t, "damage", res.Entries[1].ReasonCode)
	assert.Equal(t, 95, receiptTotal(f.store.Entries()))

	// Reabrir y repetir el mismo commit no genera entradas.
	_, err = f.uc.Reopen(context.Background(), testClient, "admin-1", testASN)
	require.NoError(t, err)
	res, err = f.commit(t, line(95, 5, 0, 0))
	require.NoError(t, err)
	assert.Empty(t, res.Entries)
	assert.Len(t, f.store.Entries(), 3)
}

func TestReopen_NoRecibidoEsTransicionInvalida(t *testing.T) {
	f := newFixture(t)
	_, err := f.uc.Reopen(context.Background(), testClient, "admin-1", testASN)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestReopen_YaAbiertoNoHaceNada(t *testing.T) {
	f := newFixture(t)
	_, err := f.uc.StartReceiving(context.Background(), testClient, testASN)
	require.NoError(t, err)

	resp, err := f.uc.Reopen(context.Background(), testClient, "admin-1", testASN)
	require.NoError(t, err)
	assert.Equal(t, "receiving", resp.Status)
}

// ─── Escaneo ─────────────────────────────────────────────────────────────────

func TestScan_CoincidenciaIncrementaNormal(t *testing.T) {
	f := newFixture(t)

	res, err := f.uc.Scan(context.Background(), testClient, testASN, dto.ScanRequest{Barcode: " 7701 "})
	require.NoError(t, err)
	assert.True(t, res.Found)
	assert.Equal(t, "asn_lines", res.MatchedTable)
	assert.Equal(t, testLine, res.MatchedID)
	assert.Equal(t, ScanEventSuccess, res.Event)
	assert.Equal(t, 1, res.Line.NormalUnits)
	assert.Equal(t, 1, res.Line.ReceivedUnits)
	assert.Equal(t, entity.ASNStatusReceiving, f.store.Header(testASN).Status)
}

func TestScan_SinCoincidenciaNoEsError(t *testing.T) {
	f := newFixture(t)
	f.store.AddSKU(entity.SKU{ID: "sku-x", ClientID: testClient, Barcode: "9999"})

	for _, code := range []string{"0000", "9999"} {
		res, err := f.uc.Scan(context.Background(), testClient, testASN, dto.ScanRequest{Barcode: code})
		require.NoError(t, err)
		assert.False(t, res.Found, code)
		assert.Equal(t, ScanEventNotFound, res.Event)
	}
	assert.Equal(t, 0, f.store.Line(testLine).ReceivedUnits)
	assert.Equal(t, entity.ASNStatusNotReceived, f.store.Header(testASN).Status)
}

func TestScan_ASNCerrado(t *testing.T) {
	f := newFixture(t)
	_, err := f.commit(t, line(100, 0, 0, 0))
	require.NoError(t, err)

	_, err = f.uc.Scan(context.Background(), testClient, testASN, dto.ScanRequest{Barcode: "7701"})
	assert.ErrorIs(t, err, domain.ErrASNClosed)
}

func TestScan_OtroClienteProhibido(t *testing.T) {
	f := newFixture(t)
	_, err := f.uc.Scan(context.Background(), "client-2", testASN, dto.ScanRequest{Barcode: "7701"})
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestPickLine_PrefiereLineaIncompleta(t *testing.T) {
	lines := []*entity.ASNLine{
		{ID: "a", SKUID: "s", ExpectedUnits: 5, ReceivedUnits: 5},
		{ID: "b", SKUID: "s", ExpectedUnits: 5, ReceivedUnits: 2},
	}
	assert.Equal(t, "b", pickLine(lines, "s").ID)
	lines[1].ReceivedUnits = 5
	assert.Equal(t, "a", pickLine(lines, "s").ID)
	assert.Nil(t, pickLine(lines, "otro"))
}

// ─── Consultas ───────────────────────────────────────────────────────────────

func TestGet_EtiquetaDerivadaNoCambiaEstado(t *testing.T) {
	f := newFixture(t)
	_, err := f.commit(t, line(100, 0, 0, 0))
	require.NoError(t, err)

	got, err := f.uc.Get(context.Background(), testClient, testASN)
	require.NoError(t, err)
	assert.Equal(t, "closed", got.DisplayStatus)

	f.store.AddDecision(entity.DamagedItemDecision{ID: "d1", ASNID: testASN, DiscrepancyType: entity.DiscrepancyDamaged, Decision: entity.DecisionDiscard})
	got, err = f.uc.Get(context.Background(), testClient, testASN)
	require.NoError(t, err)
	assert.Equal(t, "closed", got.Status)
	assert.Equal(t, "closed_with_discrepancy", got.DisplayStatus)
	assert.Equal(t, entity.ASNStatusClosed, f.store.Header(testASN).Status)
}

func TestCreate_ValidaManifiesto(t *testing.T) {
	f := newFixture(t)

	resp, err := f.uc.Create(context.Background(), testClient, dto.CreateASNRequest{
		ASNNumber: "ASN-0100", LocationID: testLocation,
		Lines: []dto.CreateASNLineRequest{{SKUID: testSKU, ExpectedUnits: 40}},
	})
	require.NoError(t, err)
	assert.Equal(t, "not_received", resp.Status)
	require.Len(t, resp.Lines, 1)

	_, err = f.uc.Create(context.Background(), testClient, dto.CreateASNRequest{
		ASNNumber: "ASN-0101", LocationID: testLocation,
		Lines: []dto.CreateASNLineRequest{{SKUID: "desconocido", ExpectedUnits: 1}},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.uc.Create(context.Background(), testClient, dto.CreateASNRequest{
		ASNNumber: "ASN-0100", LocationID: testLocation,
		Lines: []dto.CreateASNLineRequest{{SKUID: testSKU, ExpectedUnits: 1}},
	})
	assert.ErrorIs(t, err, domain.ErrDuplicate)
}

func TestList_FiltraPorEstado(t *testing.T) {
	f := newFixture(t)
	got, err := f.uc.List(context.Background(), testClient, "not_received", dto.PageRequest{})
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, 20, got.Page.Limit)

	_, err = f.uc.List(context.Background(), testClient, "abierto", dto.PageRequest{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestStartReceiving_Idempotente(t *testing.T) {
	f := newFixture(t)

	first, err := f.uc.StartReceiving(context.Background(), testClient, testASN)
	require.NoError(t, err)
	assert.Equal(t, "receiving", first.Status)
	updated := f.store.Header(testASN).UpdatedAt

	again, err := f.uc.StartReceiving(context.Background(), testClient, testASN)
	require.NoError(t, err)
	assert.Equal(t, "receiving", again.Status)
	assert.Equal(t, updated, f.store.Header(testASN).UpdatedAt)
	assert.Empty(t, f.store.Entries())
}

func TestStartReceiving_ASNCerrado(t *testing.T) {
	f := newFixture(t)
	_, err := f.commit(t, line(100, 0, 0, 0))
	require.NoError(t, err)

	_, err = f.uc.StartReceiving(context.Background(), testClient, testASN)
	assert.ErrorIs(t, err, domain.ErrASNClosed)
}
