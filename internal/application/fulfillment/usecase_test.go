package fulfillment

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/wms-ledger/internal/application/apptest"
	"github.com/jhoicas/wms-ledger/internal/application/dto"
	"github.com/jhoicas/wms-ledger/internal/domain"
	"github.com/jhoicas/wms-ledger/internal/domain/entity"
)

func order(trigger string) dto.OutboundRequest {
	return dto.OutboundRequest{
		OrderRef:   "#1001",
		Trigger:    trigger,
		LocationID: "loc-1",
		Lines:      []dto.OutboundLineRequest{{SKUID: "sku-1", Quantity: 2}, {SKUID: "sku-2", Quantity: 1}},
	}
}

func TestOutbound_WebhookYManualSoloDescuentaUnaVez(t *testing.T) {
	store := apptest.NewStore()
	sched := &apptest.Scheduler{}
	uc := NewUseCase(store.Ledger(), sched, nil, nil)

	res, err := uc.Outbound(context.Background(), "client-1", "webhook", order(TriggerWebhook))
	require.NoError(t, err)
	require.Len(t, res.Lines, 2)
	assert.Equal(t, dto.OutboundApplied, res.Lines[0].Status)
	assert.True(t, res.Lines[0].SyncEnqueued)

	res, err = uc.Outbound(context.Background(), "client-1", "op-7", order(TriggerManual))
	require.NoError(t, err)
	assert.Equal(t, dto.OutboundSkipped, res.Lines[0].Status)
	assert.Equal(t, dto.OutboundSkipped, res.Lines[1].Status)

	entries := store.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, entity.TransactionOutboundSale, entries[0].TransactionType)
	assert.Equal(t, -2, entries[0].QtyDelta)
	assert.Equal(t, DefaultSourceType, entries[0].SourceType)
	assert.Len(t, sched.Enqueued(), 2)
}

func TestOutbound_ConcurrentesUnaEntradaPorSKU(t *testing.T) {
	store := apptest.NewStore()
	uc := NewUseCase(store.Ledger(), nil, nil, nil)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		trigger := TriggerWebhook
		if i%2 == 0 {
			trigger = TriggerManual
		}
		wg.Add(1)
		go func(trigger string) {
			defer wg.Done()
			_, err := uc.Outbound(context.Background(), "client-1", "actor", order(trigger))
			assert.NoError(t, err)
		}(trigger)
	}
	wg.Wait()

	assert.Len(t, store.Entries(), 2)
}

func TestOutbound_Validacion(t *testing.T) {
	uc := NewUseCase(apptest.NewStore().Ledger(), nil, nil, nil)

	bad := order(TriggerManual)
	bad.Lines[1].Quantity = 0
	_, err := uc.Outbound(context.Background(), "client-1", "op", bad)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	bad = order("email")
	_, err = uc.Outbound(context.Background(), "client-1", "op", bad)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	bad = order(TriggerManual)
	bad.Lines = append(bad.Lines, dto.OutboundLineRequest{SKUID: "sku-1", Quantity: 1})
	_, err = uc.Outbound(context.Background(), "client-1", "op", bad)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = uc.Outbound(context.Background(), "", "op", order(TriggerManual))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
