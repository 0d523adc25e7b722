// Package apptest provee un almacén en memoria que implementa los puertos de repositorio
// y el TxRunner de recepción, para pruebas de casos de uso y handlers.
package apptest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/wms-ledger/internal/domain"
	"github.com/jhoicas/wms-ledger/internal/domain/entity"
	"github.com/jhoicas/wms-ledger/internal/domain/repository"
)

// Store estado en memoria. Run serializa las transacciones y restaura el estado si fn falla.
type Store struct {
	mu   sync.Mutex
	txMu sync.Mutex

	headers   map[string]entity.ASNHeader
	lines     map[string]entity.ASNLine
	lineOrder []string
	entries   []entity.LedgerEntry
	skus      map[string]entity.SKU
	locations map[string]entity.Location
	decisions []entity.DamagedItemDecision
	warnings  map[string]entity.SyncWarning
	warnOrder []string

	// BarcodeLookups cuenta las llamadas a FindSKUByBarcode.
	BarcodeLookups int
	// FailAppend si no es nil, AppendBatch lo devuelve (simula un fallo a mitad de commit).
	FailAppend error
}

// NewStore crea un almacén vacío.
func NewStore() *Store {
	return &Store{
		headers:   map[string]entity.ASNHeader{},
		lines:     map[string]entity.ASNLine{},
		skus:      map[string]entity.SKU{},
		locations: map[string]entity.Location{},
		warnings:  map[string]entity.SyncWarning{},
	}
}

// ASNs puerto ASNRepository.
func (s *Store) ASNs() repository.ASNRepository { return asnRepo{s} }

// Ledger puerto LedgerRepository.
func (s *Store) Ledger() repository.LedgerRepository { return ledgerRepo{s} }

// Registry puerto RegistryRepository.
func (s *Store) Registry() repository.RegistryRepository { return registryRepo{s} }

// Decisions puerto DecisionRepository.
func (s *Store) Decisions() repository.DecisionRepository { return decisionRepo{s} }

// Warnings puerto SyncWarningRepository.
func (s *Store) Warnings() repository.SyncWarningRepository { return warningRepo{s} }

// Run implementa el TxRunner de recepción.
func (s *Store) Run(ctx context.Context, fn func(repository.ASNRepository, repository.LedgerRepository) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	snap := s.snapshot()
	if err := fn(asnRepo{s}, ledgerRepo{s}); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

type snapshot struct {
	headers   map[string]entity.ASNHeader
	lines     map[string]entity.ASNLine
	lineOrder []string
	entries   []entity.LedgerEntry
}

func (s *Store) snapshot() snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := snapshot{
		headers:   make(map[string]entity.ASNHeader, len(s.headers)),
		lines:     make(map[string]entity.ASNLine, len(s.lines)),
		lineOrder: append([]string(nil), s.lineOrder...),
		entries:   append([]entity.LedgerEntry(nil), s.entries...),
	}
	for k, v := range s.headers {
		snap.headers[k] = v
	}
	for k, v := range s.lines {
		snap.lines[k] = v
	}
	return snap
}

func (s *Store) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.headers = snap.headers
	s.lines = snap.lines
	s.lineOrder = snap.lineOrder
	s.entries = snap.entries
}

// ─── Datos de prueba ──────────────────────────────────────────────────────────

// AddSKU registra un SKU en el catálogo de referencia.
func (s *Store) AddSKU(sku entity.SKU) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.skus[sku.ID] = sku
}

// AddLocation registra una ubicación.
func (s *Store) AddLocation(loc entity.Location) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locations[loc.ID] = loc
}

// AddDecision registra una decisión del flujo externo.
func (s *Store) AddDecision(d entity.DamagedItemDecision) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.decisions = append(s.decisions, d)
}

// SeedASN inserta cabecera y líneas sin validaciones.
func (s *Store) SeedASN(h entity.ASNHeader, lines ...entity.ASNLine) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.headers[h.ID] = h
	for _, l := range lines {
		l.ASNID = h.ID
		s.lines[l.ID] = l
		s.lineOrder = append(s.lineOrder, l.ID)
	}
}

// Header copia actual de la cabecera.
func (s *Store) Header(id string) entity.ASNHeader {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.headers[id]
}

// Line copia actual de la línea.
func (s *Store) Line(id string) entity.ASNLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lines[id]
}

// Entries copia de todas las entradas del ledger en orden de inserción.
func (s *Store) Entries() []entity.LedgerEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]entity.LedgerEntry(nil), s.entries...)
}

// OpenWarnings advertencias sin resolver.
func (s *Store) OpenWarnings() []entity.SyncWarning {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []entity.SyncWarning
	for _, id := range s.warnOrder {
		if w := s.warnings[id]; w.ResolvedAt == nil {
			out = append(out, w)
		}
	}
	return out
}

// ─── ASNRepository ────────────────────────────────────────────────────────────

type asnRepo struct{ s *Store }

func (r asnRepo) Create(_ context.Context, h *entity.ASNHeader, lines []*entity.ASNLine) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.headers {
		if existing.ClientID == h.ClientID && existing.ASNNumber == h.ASNNumber {
			return domain.ErrDuplicate
		}
	}
	r.s.headers[h.ID] = *h
	for _, l := range lines {
		r.s.lines[l.ID] = *l
		r.s.lineOrder = append(r.s.lineOrder, l.ID)
	}
	return nil
}

func (r asnRepo) GetByID(_ context.Context, id string) (*entity.ASNHeader, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	h, ok := r.s.headers[id]
	if !ok {
		return nil, nil
	}
	return &h, nil
}

func (r asnRepo) GetForUpdate(ctx context.Context, id string) (*entity.ASNHeader, error) {
	return r.GetByID(ctx, id)
}

func (r asnRepo) List(_ context.Context, f repository.ASNFilter) ([]*entity.ASNHeader, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.ASNHeader
	for _, h := range r.s.headers {
		if f.ClientID != "" && h.ClientID != f.ClientID {
			continue
		}
		if f.Status != "" && h.Status != f.Status {
			continue
		}
		h := h
		out = append(out, &h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ASNNumber < out[j].ASNNumber })
	if f.Offset >= len(out) {
		return nil, nil
	}
	out = out[f.Offset:]
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (r asnRepo) UpdateHeader(_ context.Context, h *entity.ASNHeader) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.headers[h.ID]; !ok {
		return domain.ErrNotFound
	}
	r.s.headers[h.ID] = *h
	return nil
}

func (r asnRepo) ListLines(_ context.Context, asnID string) ([]*entity.ASNLine, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.ASNLine
	for _, id := range r.s.lineOrder {
		if l := r.s.lines[id]; l.ASNID == asnID {
			out = append(out, &l)
		}
	}
	return out, nil
}

func (r asnRepo) ListLinesForUpdate(ctx context.Context, asnID string) ([]*entity.ASNLine, error) {
	return r.ListLines(ctx, asnID)
}

func (r asnRepo) UpdateLine(_ context.Context, l *entity.ASNLine) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.lines[l.ID]; !ok {
		return domain.ErrNotFound
	}
	r.s.lines[l.ID] = *l
	return nil
}

func (r asnRepo) IncrementNormal(_ context.Context, asnID, lineID string) (*entity.ASNLine, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	h, ok := r.s.headers[asnID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if h.ClosedAt != nil {
		return nil, domain.ErrASNClosed
	}
	l, ok := r.s.lines[lineID]
	if !ok || l.ASNID != asnID {
		return nil, domain.ErrNotFound
	}
	l.NormalUnits++
	l.ReceivedUnits++
	r.s.lines[lineID] = l
	return &l, nil
}

// ─── LedgerRepository ─────────────────────────────────────────────────────────

type ledgerRepo struct{ s *Store }

func saleKey(e entity.LedgerEntry) string {
	return e.SourceType + "|" + e.SourceRef + "|" + e.SKUID
}

func (r ledgerRepo) Append(_ context.Context, e *entity.LedgerEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if e.TransactionType.IsSaleDecrement() {
		for _, x := range r.s.entries {
			if x.TransactionType.IsSaleDecrement() && saleKey(x) == saleKey(*e) {
				return domain.ErrAlreadyApplied
			}
		}
	}
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	r.s.entries = append(r.s.entries, *e)
	return nil
}

func (r ledgerRepo) AppendBatch(ctx context.Context, entries []entity.LedgerEntry) error {
	if r.s.FailAppend != nil {
		return r.s.FailAppend
	}
	for i := range entries {
		if err := r.Append(ctx, &entries[i]); err != nil {
			return err
		}
	}
	return nil
}

func (r ledgerRepo) ExistsSaleDecrement(_ context.Context, sourceType, sourceRef, skuID string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, x := range r.s.entries {
		if x.TransactionType.IsSaleDecrement() && x.SourceType == sourceType && x.SourceRef == sourceRef && x.SKUID == skuID {
			return true, nil
		}
	}
	return false, nil
}

func (r ledgerRepo) LedgeredBuckets(_ context.Context, asnID string) (map[string]map[entity.ConditionBucket]int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := map[string]map[entity.ConditionBucket]int{}
	for _, x := range r.s.entries {
		if x.SourceType != entity.SourceASN || x.SourceRef != asnID || x.ASNLineID == "" {
			continue
		}
		if out[x.ASNLineID] == nil {
			out[x.ASNLineID] = map[entity.ConditionBucket]int{}
		}
		out[x.ASNLineID][x.Bucket] += x.BucketUnits
	}
	return out, nil
}

func (r ledgerRepo) ListBySource(_ context.Context, sourceType, sourceRef string) ([]*entity.LedgerEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.LedgerEntry
	for _, x := range r.s.entries {
		if x.SourceType == sourceType && x.SourceRef == sourceRef {
			x := x
			out = append(out, &x)
		}
	}
	return out, nil
}

func (r ledgerRepo) OnHand(_ context.Context, clientID, skuID, locationID string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	total := 0
	for _, x := range r.s.entries {
		if x.ClientID == clientID && x.SKUID == skuID && x.LocationID == locationID {
			total += x.QtyDelta
		}
	}
	return total, nil
}

func (r ledgerRepo) OnHandBySKU(_ context.Context, clientID, skuID string) ([]entity.OnHand, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	byLoc := map[string]int{}
	for _, x := range r.s.entries {
		if x.ClientID == clientID && x.SKUID == skuID {
			byLoc[x.LocationID] += x.QtyDelta
		}
	}
	out := make([]entity.OnHand, 0, len(byLoc))
	for loc, q := range byLoc {
		out = append(out, entity.OnHand{ClientID: clientID, SKUID: skuID, LocationID: loc, Quantity: q})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LocationID < out[j].LocationID })
	return out, nil
}

func (r ledgerRepo) DuplicateSaleDecrements(_ context.Context, clientID string) ([]entity.DuplicateDecrement, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	groups := map[string]*entity.DuplicateDecrement{}
	var keys []string
	for _, x := range r.s.entries {
		if !x.TransactionType.IsSaleDecrement() || (clientID != "" && x.ClientID != clientID) {
			continue
		}
		k := saleKey(x)
		g, ok := groups[k]
		if !ok {
			g = &entity.DuplicateDecrement{SourceType: x.SourceType, SourceRef: x.SourceRef, SKUID: x.SKUID}
			groups[k] = g
			keys = append(keys, k)
		}
		g.Entries++
		g.TotalDelta += x.QtyDelta
	}
	var out []entity.DuplicateDecrement
	for _, k := range keys {
		if g := groups[k]; g.Entries > 1 {
			out = append(out, *g)
		}
	}
	return out, nil
}

// InjectEntry inserta una entrada saltando la restricción única (simula una guarda que falló abierta).
func (s *Store) InjectEntry(e entity.LedgerEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, e)
}

// ─── RegistryRepository / DecisionRepository ─────────────────────────────────

type registryRepo struct{ s *Store }

func (r registryRepo) FindSKUByBarcode(_ context.Context, clientID, barcode string) (*entity.SKU, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.BarcodeLookups++
	for _, sku := range r.s.skus {
		if sku.ClientID == clientID && sku.Barcode == barcode {
			sku := sku
			return &sku, nil
		}
	}
	return nil, nil
}

func (r registryRepo) GetSKU(_ context.Context, id string) (*entity.SKU, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sku, ok := r.s.skus[id]
	if !ok {
		return nil, nil
	}
	return &sku, nil
}

func (r registryRepo) GetLocation(_ context.Context, id string) (*entity.Location, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	loc, ok := r.s.locations[id]
	if !ok {
		return nil, nil
	}
	return &loc, nil
}

type decisionRepo struct{ s *Store }

func (r decisionRepo) ListByASN(_ context.Context, asnID string) ([]entity.DamagedItemDecision, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []entity.DamagedItemDecision
	for _, d := range r.s.decisions {
		if d.ASNID == asnID {
			out = append(out, d)
		}
	}
	return out, nil
}

// ─── SyncWarningRepository ───────────────────────────────────────────────────

type warningRepo struct{ s *Store }

func (r warningRepo) Create(_ context.Context, w *entity.SyncWarning) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if w.ResolvedAt == nil && r.openFor(w.ClientID, w.SKUID) != "" {
		return domain.ErrDuplicate
	}
	r.insert(w)
	return nil
}

// RecordFailure acumula sobre la advertencia abierta y la mueve al final de la cola,
// como el ORDER BY last_attempt_at de Postgres.
func (r warningRepo) RecordFailure(_ context.Context, w *entity.SyncWarning) (*entity.SyncWarning, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	id := r.openFor(w.ClientID, w.SKUID)
	if id == "" {
		r.insert(w)
		out := r.s.warnings[w.ID]
		return &out, nil
	}
	cur := r.s.warnings[id]
	cur.Attempts += w.Attempts
	cur.LastError = w.LastError
	cur.OrderRef = w.OrderRef
	cur.LastAttemptAt = w.LastAttemptAt
	if cur.LastAttemptAt.IsZero() {
		cur.LastAttemptAt = w.CreatedAt
	}
	r.s.warnings[id] = cur
	for i, wid := range r.s.warnOrder {
		if wid == id {
			r.s.warnOrder = append(r.s.warnOrder[:i], r.s.warnOrder[i+1:]...)
			break
		}
	}
	r.s.warnOrder = append(r.s.warnOrder, id)
	return &cur, nil
}

func (r warningRepo) insert(w *entity.SyncWarning) {
	if w.ID == "" {
		w.ID = uuid.New().String()
	}
	if w.LastAttemptAt.IsZero() {
		w.LastAttemptAt = w.CreatedAt
	}
	r.s.warnings[w.ID] = *w
	r.s.warnOrder = append(r.s.warnOrder, w.ID)
}

func (r warningRepo) openFor(clientID, skuID string) string {
	for _, id := range r.s.warnOrder {
		if w := r.s.warnings[id]; w.ResolvedAt == nil && w.ClientID == clientID && w.SKUID == skuID {
			return id
		}
	}
	return ""
}

func (r warningRepo) ListOpen(_ context.Context, clientID string, limit int) ([]*entity.SyncWarning, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.SyncWarning
	for _, id := range r.s.warnOrder {
		w := r.s.warnings[id]
		if w.ResolvedAt != nil || (clientID != "" && w.ClientID != clientID) {
			continue
		}
		out = append(out, &w)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r warningRepo) GetByID(_ context.Context, id string) (*entity.SyncWarning, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	w, ok := r.s.warnings[id]
	if !ok {
		return nil, nil
	}
	return &w, nil
}

func (r warningRepo) ResolveBySKU(_ context.Context, clientID, skuID string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for id, w := range r.s.warnings {
		if w.ResolvedAt == nil && w.ClientID == clientID && w.SKUID == skuID {
			now := time.Now()
			w.ResolvedAt = &now
			r.s.warnings[id] = w
			n++
		}
	}
	return n, nil
}
