package stocksync

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/wms-ledger/internal/application/apptest"
	"github.com/jhoicas/wms-ledger/internal/application/dto"
	"github.com/jhoicas/wms-ledger/internal/application/ports"
	"github.com/jhoicas/wms-ledger/internal/domain"
	"github.com/jhoicas/wms-ledger/internal/domain/entity"
)

type harness struct {
	store  *apptest.Store
	pusher *apptest.Pusher
	pub    *apptest.Publisher
	waits  []time.Duration
	coord  *Coordinator
}

func newHarness(failFirst int) *harness {
	h := &harness{store: apptest.NewStore(), pusher: &apptest.Pusher{FailFirst: failFirst}, pub: &apptest.Publisher{}}
	h.store.InjectEntry(entity.LedgerEntry{ClientID: "c", SKUID: "s", LocationID: "a", QtyDelta: 10, TransactionType: entity.TransactionReceipt})
	h.store.InjectEntry(entity.LedgerEntry{ClientID: "c", SKUID: "s", LocationID: "b", QtyDelta: 5, TransactionType: entity.TransactionReceipt})
	h.store.InjectEntry(entity.LedgerEntry{ClientID: "c", SKUID: "s", LocationID: "a", QtyDelta: -3, TransactionType: entity.TransactionOutboundSale, SourceRef: "#1"})

	h.coord = NewCoordinator(h.store.Ledger(), h.store.Warnings(), h.pusher, h.pub, nil, Config{MaxAttempts: 3, BackoffUnit: 2 * time.Second, Timeout: time.Minute})
	h.coord.wait = func(_ context.Context, d time.Duration) error {
		h.waits = append(h.waits, d)
		return nil
	}
	return h
}

func TestPush_FallaDosVecesLuegoExito(t *testing.T) {
	h := newHarness(2)

	res, err := h.coord.Push(context.Background(), "c", "s", "#1")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 3, res.Attempts)
	assert.Equal(t, 3, h.pusher.Calls())
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, h.waits)

	pushed := h.pusher.Pushed()
	require.Len(t, pushed, 1)
	assert.Equal(t, ports.InventoryPushRequest{ClientID: "c", SKUID: "s", OnHand: 12}, pushed[0])
	assert.Empty(t, h.store.OpenWarnings())
}

func TestPush_AgotadoDejaAdvertenciaDurable(t *testing.T) {
	h := newHarness(-1)

	res, err := h.coord.Push(context.Background(), "c", "s", "#1")
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, 3, h.pusher.Calls())
	assert.Contains(t, res.Error, "503")

	warnings := h.store.OpenWarnings()
	require.Len(t, warnings, 1)
	assert.Equal(t, "s", warnings[0].SKUID)
	assert.Equal(t, "#1", warnings[0].OrderRef)
	assert.Equal(t, 3, warnings[0].Attempts)
	assert.Len(t, h.store.Entries(), 3, "el ledger no se toca")

	events := h.pub.Events()
	require.Len(t, events, 1)
	assert.Equal(t, ports.EventSyncFailed, events[0].Type)
}

func TestPush_EsperaCanceladaCorta(t *testing.T) {
	h := newHarness(-1)
	h.coord.wait = sleepCtx
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := h.coord.Push(ctx, "c", "s", "#1")
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, 1, h.pusher.Calls())
	assert.Len(t, h.store.OpenWarnings(), 1, "la advertencia se persiste aunque el trabajo expire")
}

func TestEnqueue_NoBloqueaYTermina(t *testing.T) {
	h := newHarness(1)

	h.coord.Enqueue("c", "s", "#1")
	h.coord.Wait()

	assert.Equal(t, 2, h.pusher.Calls())
	assert.Empty(t, h.store.OpenWarnings())
}

func TestRepush_ResuelveAdvertencia(t *testing.T) {
	h := newHarness(-1)
	_, err := h.coord.Push(context.Background(), "c", "s", "#1")
	require.NoError(t, err)
	warnings, err := h.coord.ListWarnings(context.Background(), "c", dto.PageRequest{})
	require.NoError(t, err)
	require.Len(t, warnings, 1)

	h.pusher.FailFirst = 0
	res, err := h.coord.Repush(context.Background(), "c", warnings[0].ID)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Empty(t, h.store.OpenWarnings())

	_, err = h.coord.Repush(context.Background(), "c", warnings[0].ID)
	assert.ErrorIs(t, err, domain.ErrConflict)
	_, err = h.coord.Repush(context.Background(), "otro", warnings[0].ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestSweep_UnPushPorSKU(t *testing.T) {
	h := newHarness(-1)
	_, _ = h.coord.Push(context.Background(), "c", "s", "#1")
	_, _ = h.coord.Push(context.Background(), "c", "s", "#2")
	open := h.store.OpenWarnings()
	require.Len(t, open, 1, "los fallos repetidos acumulan sobre la misma advertencia")
	assert.Equal(t, 6, open[0].Attempts)
	assert.Equal(t, "#2", open[0].OrderRef)

	h.pusher.FailFirst = 0
	synced, err := h.coord.Sweep(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 1, synced)
	assert.Empty(t, h.store.OpenWarnings())
}

func TestNewSweeper_ProgramacionInvalida(t *testing.T) {
	h := newHarness(0)
	_, err := NewSweeper(h.coord, nil, "cada rato", time.Minute)
	assert.Error(t, err)

	s, err := NewSweeper(h.coord, nil, "@every 1h", time.Minute)
	require.NoError(t, err)
	s.Start()
	s.Stop()
}

// skuPusher falla siempre para los SKUs en down y registra la concurrencia por SKU.
type skuPusher struct {
	mu       sync.Mutex
	down     map[string]bool
	calls    map[string]int
	inFlight int
	maxIn    int
	pushed   []ports.InventoryPushRequest
	started  chan struct{}
	release  chan struct{}
}

func (p *skuPusher) PushInventory(_ context.Context, req ports.InventoryPushRequest) error {
	p.mu.Lock()
	p.calls[req.SKUID]++
	p.inFlight++
	if p.inFlight > p.maxIn {
		p.maxIn = p.inFlight
	}
	down := p.down[req.SKUID]
	started, release := p.started, p.release
	p.started = nil
	p.mu.Unlock()

	if started != nil {
		close(started)
		<-release
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.inFlight--
	if down {
		return errors.New("marketplace: 503")
	}
	p.pushed = append(p.pushed, req)
	return nil
}

func (p *skuPusher) setDown(sku string, down bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.down[sku] = down
}

func (p *skuPusher) callsFor(sku string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[sku]
}

func newSKUHarness(p *skuPusher) (*apptest.Store, *Coordinator) {
	store := apptest.NewStore()
	for _, sku := range []string{"a", "b"} {
		store.InjectEntry(entity.LedgerEntry{ClientID: "c", SKUID: sku, LocationID: "l", QtyDelta: 10, TransactionType: entity.TransactionReceipt})
	}
	coord := NewCoordinator(store.Ledger(), store.Warnings(), p, nil, nil, Config{MaxAttempts: 3, BackoffUnit: time.Second, Timeout: time.Minute})
	coord.wait = func(context.Context, time.Duration) error { return nil }
	return store, coord
}

func TestSweep_SKUCaidoNoAcaparaElLote(t *testing.T) {
	p := &skuPusher{down: map[string]bool{"a": true}, calls: map[string]int{}}
	store, coord := newSKUHarness(p)
	ctx := context.Background()

	_, err := coord.Push(ctx, "c", "a", "#1")
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err := coord.Sweep(ctx, 1)
		require.NoError(t, err)
	}
	require.Len(t, store.OpenWarnings(), 1)

	p.setDown("b", true)
	_, err = coord.Push(ctx, "c", "b", "#2")
	require.NoError(t, err)
	require.Len(t, store.OpenWarnings(), 2)
	p.setDown("b", false)

	synced := 0
	for i := 0; i < 2; i++ {
		n, err := coord.Sweep(ctx, 1)
		require.NoError(t, err)
		synced += n
	}
	assert.Equal(t, 1, synced, "el SKU recuperable se reintenta aunque otro siga caído")
	assert.Equal(t, 4, p.callsFor("b"))

	open := store.OpenWarnings()
	require.Len(t, open, 1)
	assert.Equal(t, "a", open[0].SKUID)
	assert.Equal(t, 15, open[0].Attempts)
}

func TestEnqueue_MismoSKUSeSerializa(t *testing.T) {
	p := &skuPusher{
		down:    map[string]bool{},
		calls:   map[string]int{},
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	store, coord := newSKUHarness(p)
	started := p.started

	coord.Enqueue("c", "a", "#1")
	<-started
	store.InjectEntry(entity.LedgerEntry{ClientID: "c", SKUID: "a", LocationID: "l", QtyDelta: -4, TransactionType: entity.TransactionOutboundSale, SourceRef: "#2"})
	coord.Enqueue("c", "a", "#2")

	assert.Never(t, func() bool { return p.callsFor("a") > 1 }, 50*time.Millisecond, 5*time.Millisecond)
	close(p.release)
	coord.Wait()

	p.mu.Lock()
	defer p.mu.Unlock()
	assert.Equal(t, 1, p.maxIn)
	require.Len(t, p.pushed, 2)
	assert.Equal(t, 10, p.pushed[0].OnHand)
	assert.Equal(t, 6, p.pushed[1].OnHand, "el último push refleja el stock más reciente")
	assert.Zero(t, coord.locks.len())
}

func TestKeyLocks_CanceladoMientrasEspera(t *testing.T) {
	var k keyLocks
	unlock, err := k.acquire(context.Background(), "c|a")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = k.acquire(ctx, "c|a")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	other, err := k.acquire(context.Background(), "c|b")
	require.NoError(t, err)
	other()

	unlock()
	assert.Zero(t, k.len())
}
