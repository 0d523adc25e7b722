package apptest

import (
	"context"
	"errors"
	"sync"

	"github.com/jhoicas/wms-ledger/internal/application/ports"
)

// Publisher registra los eventos publicados.
type Publisher struct {
	mu     sync.Mutex
	events []ports.Event
	Err    error
}

func (p *Publisher) Publish(_ context.Context, ev ports.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return p.Err
	}
	p.events = append(p.events, ev)
	return nil
}

// Events copia de los eventos publicados.
func (p *Publisher) Events() []ports.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]ports.Event(nil), p.events...)
}

// ErrPushFailed error devuelto por Pusher en los intentos fallidos.
var ErrPushFailed = errors.New("marketplace: 503 service unavailable")

// Pusher falla las primeras FailFirst llamadas y luego responde con éxito.
// FailFirst < 0 falla siempre.
type Pusher struct {
	mu        sync.Mutex
	FailFirst int
	calls     int
	pushed    []ports.InventoryPushRequest
}

func (p *Pusher) PushInventory(_ context.Context, req ports.InventoryPushRequest) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.FailFirst < 0 || p.calls <= p.FailFirst {
		return ErrPushFailed
	}
	p.pushed = append(p.pushed, req)
	return nil
}

// Calls número total de llamadas recibidas.
func (p *Pusher) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// Pushed pushes exitosos.
func (p *Pusher) Pushed() []ports.InventoryPushRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]ports.InventoryPushRequest(nil), p.pushed...)
}

// Scheduler registra los SKUs encolados para sincronizar.
type Scheduler struct {
	mu   sync.Mutex
	Jobs []string
}

func (s *Scheduler) Enqueue(clientID, skuID, orderRef string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Jobs = append(s.Jobs, clientID+"|"+skuID+"|"+orderRef)
}

// Enqueued copia de los trabajos encolados.
func (s *Scheduler) Enqueued() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.Jobs...)
}
