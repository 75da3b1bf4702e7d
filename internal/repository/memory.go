package repository

import (
	"context"
	"maps"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/PharmaUz/Uz-Pharma-Bot/internal/domain"
)

type stockKey struct{ pharmacyID, drugID int64 }

type cartKey struct{ userID, drugID int64 }

// memoryState всё содержимое хранилища; копируется при входе в транзакцию
type memoryState struct {
	nextDrugID     int64
	nextPharmacyID int64
	nextCartID     int64
	nextOrderID    int64
	nextItemID     int64

	drugs      map[int64]domain.Drug
	pharmacies map[int64]domain.Pharmacy
	stock      map[stockKey]domain.PharmacyStock
	carts      map[int64]domain.CartItem
	cartIndex  map[cartKey]int64
	orders     map[int64]domain.Order
	pickup     map[string]int64
}

func (s memoryState) clone() memoryState {
	c := s
	c.drugs = maps.Clone(s.drugs)
	c.pharmacies = maps.Clone(s.pharmacies)
	c.stock = maps.Clone(s.stock)
	c.carts = maps.Clone(s.carts)
	c.cartIndex = maps.Clone(s.cartIndex)
	c.orders = make(map[int64]domain.Order, len(s.orders))
	for id, o := range s.orders {
		o.Items = slices.Clone(o.Items)
		c.orders[id] = o
	}
	c.pickup = maps.Clone(s.pickup)
	return c
}

// MemoryStore объединённое in-memory хранилище и простой генератор ID
type MemoryStore struct {
	mu sync.RWMutex
	memoryState
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{memoryState: memoryState{
		nextDrugID:     1,
		nextPharmacyID: 1,
		nextCartID:     1,
		nextOrderID:    1,
		nextItemID:     1,
		drugs:          make(map[int64]domain.Drug),
		pharmacies:     make(map[int64]domain.Pharmacy),
		stock:          make(map[stockKey]domain.PharmacyStock),
		carts:          make(map[int64]domain.CartItem),
		cartIndex:      make(map[cartKey]int64),
		orders:         make(map[int64]domain.Order),
		pickup:         make(map[string]int64),
	}}
}

// Repositories все репозитории поверх одного MemoryStore
func (m *MemoryStore) Repositories() Repositories {
	return Repositories{
		Drugs:      &MemoryDrugs{store: m},
		Pharmacies: &MemoryPharmacies{store: m},
		Stock:      &MemoryStock{store: m},
		Carts:      &MemoryCarts{store: m},
		Orders:     &MemoryOrders{store: m},
		Tx:         NewMemoryTx(m),
	}
}

// transaction-aware locking helpers
type txKey struct{}

func isTx(ctx context.Context) bool {
	v := ctx.Value(txKey{})
	if v == nil {
		return false
	}
	b, ok := v.(bool)
	return ok && b
}

func (m *MemoryStore) rlock(ctx context.Context) {
	if !isTx(ctx) {
		m.mu.RLock()
	}
}
func (m *MemoryStore) runlock(ctx context.Context) {
	if !isTx(ctx) {
		m.mu.RUnlock()
	}
}
func (m *MemoryStore) wlock(ctx context.Context) {
	if !isTx(ctx) {
		m.mu.Lock()
	}
}
func (m *MemoryStore) wunlock(ctx context.Context) {
	if !isTx(ctx) {
		m.mu.Unlock()
	}
}

func now() time.Time { return time.Now().UTC() }

// DrugRepository implementation
type MemoryDrugs struct{ store *MemoryStore }

var _ DrugRepository = (*MemoryDrugs)(nil)

func (r *MemoryDrugs) Save(ctx context.Context, d *domain.Drug) error {
	m := r.store
	m.wlock(ctx)
	defer m.wunlock(ctx)
	if d.ID == 0 {
		d.ID = m.nextDrugID
	}
	if d.ID >= m.nextDrugID {
		m.nextDrugID = d.ID + 1
	}
	m.drugs[d.ID] = *d
	return nil
}

func (r *MemoryDrugs) GetByID(ctx context.Context, id int64) (*domain.Drug, error) {
	m := r.store
	m.rlock(ctx)
	defer m.runlock(ctx)
	d, ok := m.drugs[id]
	if !ok {
		return nil, ErrNotFound
	}
	// return copy
	cp := d
	return &cp, nil
}

func (r *MemoryDrugs) UpdatePrice(ctx context.Context, id int64, price int64) error {
	m := r.store
	m.wlock(ctx)
	defer m.wunlock(ctx)
	d, ok := m.drugs[id]
	if !ok {
		return ErrNotFound
	}
	d.Price = &price
	m.drugs[id] = d
	return nil
}

func (r *MemoryDrugs) Search(ctx context.Context, f DrugFilter) ([]domain.Drug, error) {
	m := r.store
	m.rlock(ctx)
	defer m.runlock(ctx)
	out := make([]domain.Drug, 0)
	for _, d := range m.drugs {
		if matchesDrug(d, f.Query) {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > f.limit() {
		out = out[:f.limit()]
	}
	return out, nil
}

// PharmacyRepository implementation
type MemoryPharmacies struct{ store *MemoryStore }

var _ PharmacyRepository = (*MemoryPharmacies)(nil)

func (r *MemoryPharmacies) Save(ctx context.Context, p *domain.Pharmacy) error {
	m := r.store
	m.wlock(ctx)
	defer m.wunlock(ctx)
	if p.ID == 0 {
		p.ID = m.nextPharmacyID
	}
	if p.ID >= m.nextPharmacyID {
		m.nextPharmacyID = p.ID + 1
	}
	m.pharmacies[p.ID] = *p
	return nil
}

func (r *MemoryPharmacies) GetByID(ctx context.Context, id int64) (*domain.Pharmacy, error) {
	m := r.store
	m.rlock(ctx)
	defer m.runlock(ctx)
	p, ok := m.pharmacies[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := p
	return &cp, nil
}

func (r *MemoryPharmacies) ListActive(ctx context.Context) ([]domain.Pharmacy, error) {
	m := r.store
	m.rlock(ctx)
	defer m.runlock(ctx)
	out := make([]domain.Pharmacy, 0, len(m.pharmacies))
	for _, p := range m.pharmacies {
		if p.Active {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// StockRepository implementation
type MemoryStock struct{ store *MemoryStore }

var _ StockRepository = (*MemoryStock)(nil)

func (r *MemoryStock) Upsert(ctx context.Context, s domain.PharmacyStock) error {
	m := r.store
	m.wlock(ctx)
	defer m.wunlock(ctx)
	m.stock[stockKey{s.PharmacyID, s.DrugID}] = s
	return nil
}

func (r *MemoryStock) Get(ctx context.Context, pharmacyID, drugID int64) (*domain.PharmacyStock, error) {
	m := r.store
	m.rlock(ctx)
	defer m.runlock(ctx)
	s, ok := m.stock[stockKey{pharmacyID, drugID}]
	if !ok {
		return nil, ErrNotFound
	}
	return &s, nil
}

func (r *MemoryStock) ListAvailable(ctx context.Context, drugIDs []int64) ([]domain.PharmacyStock, error) {
	m := r.store
	m.rlock(ctx)
	defer m.runlock(ctx)
	want := make(map[int64]struct{}, len(drugIDs))
	for _, id := range drugIDs {
		want[id] = struct{}{}
	}
	out := make([]domain.PharmacyStock, 0)
	for k, s := range m.stock {
		if _, ok := want[k.drugID]; ok && s.Residual > 0 {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PharmacyID != out[j].PharmacyID {
			return out[i].PharmacyID < out[j].PharmacyID
		}
		return out[i].DrugID < out[j].DrugID
	})
	return out, nil
}

func (r *MemoryStock) Decrement(ctx context.Context, pharmacyID, drugID, qty int64) (bool, error) {
	m := r.store
	m.wlock(ctx)
	defer m.wunlock(ctx)
	k := stockKey{pharmacyID, drugID}
	s, ok := m.stock[k]
	if !ok || s.Residual < qty {
		return false, nil
	}
	s.Residual -= qty
	m.stock[k] = s
	return true, nil
}

func (r *MemoryStock) Increment(ctx context.Context, pharmacyID, drugID, qty int64) error {
	m := r.store
	m.wlock(ctx)
	defer m.wunlock(ctx)
	k := stockKey{pharmacyID, drugID}
	s, ok := m.stock[k]
	if !ok {
		return ErrNotFound
	}
	s.Residual += qty
	m.stock[k] = s
	return nil
}

// CartRepository implementation
type MemoryCarts struct{ store *MemoryStore }

var _ CartRepository = (*MemoryCarts)(nil)

func (r *MemoryCarts) Add(ctx context.Context, userID, drugID int64) (*domain.CartItem, error) {
	m := r.store
	m.wlock(ctx)
	defer m.wunlock(ctx)
	if _, ok := m.drugs[drugID]; !ok {
		return nil, ErrNotFound
	}
	ts := now()
	if id, ok := m.cartIndex[cartKey{userID, drugID}]; ok {
		it := m.carts[id]
		it.Quantity++
		it.UpdatedAt = ts
		m.carts[id] = it
		return &it, nil
	}
	it := domain.CartItem{
		ID:        m.nextCartID,
		UserID:    userID,
		DrugID:    drugID,
		Quantity:  1,
		CreatedAt: ts,
		UpdatedAt: ts,
	}
	m.nextCartID++
	m.carts[it.ID] = it
	m.cartIndex[cartKey{userID, drugID}] = it.ID
	return &it, nil
}

func (r *MemoryCarts) GetByID(ctx context.Context, id int64) (*domain.CartItem, error) {
	m := r.store
	m.rlock(ctx)
	defer m.runlock(ctx)
	it, ok := m.carts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &it, nil
}

func (r *MemoryCarts) AdjustQuantity(ctx context.Context, id, userID, delta int64) (*domain.CartItem, error) {
	m := r.store
	m.wlock(ctx)
	defer m.wunlock(ctx)
	it, ok := m.carts[id]
	if !ok || it.UserID != userID {
		return nil, ErrNotFound
	}
	if it.Quantity+delta < 1 {
		delete(m.carts, id)
		delete(m.cartIndex, cartKey{it.UserID, it.DrugID})
		return nil, nil
	}
	it.Quantity += delta
	it.UpdatedAt = now()
	m.carts[id] = it
	return &it, nil
}

func (r *MemoryCarts) Delete(ctx context.Context, id int64) error {
	m := r.store
	m.wlock(ctx)
	defer m.wunlock(ctx)
	it, ok := m.carts[id]
	if !ok {
		return ErrNotFound
	}
	delete(m.carts, id)
	delete(m.cartIndex, cartKey{it.UserID, it.DrugID})
	return nil
}

func (r *MemoryCarts) ListLines(ctx context.Context, userID int64) ([]domain.CartLine, error) {
	m := r.store
	m.rlock(ctx)
	defer m.runlock(ctx)
	out := make([]domain.CartLine, 0)
	for _, it := range m.carts {
		if it.UserID != userID {
			continue
		}
		d, ok := m.drugs[it.DrugID]
		if !ok {
			continue
		}
		out = append(out, domain.CartLine{Item: it, Drug: d})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Item.ID < out[j].Item.ID })
	return out, nil
}

// LockLines: внутри транзакции хранилище уже занято на запись
func (r *MemoryCarts) LockLines(ctx context.Context, userID int64) ([]domain.CartLine, error) {
	return r.ListLines(ctx, userID)
}

func (r *MemoryCarts) Clear(ctx context.Context, userID int64) (int64, error) {
	m := r.store
	m.wlock(ctx)
	defer m.wunlock(ctx)
	var n int64
	for id, it := range m.carts {
		if it.UserID == userID {
			delete(m.carts, id)
			delete(m.cartIndex, cartKey{it.UserID, it.DrugID})
			n++
		}
	}
	return n, nil
}

// OrderRepository implementation on wrapper type
type MemoryOrders struct{ store *MemoryStore }

func NewMemoryOrders(store *MemoryStore) *MemoryOrders { return &MemoryOrders{store: store} }

var _ OrderRepository = (*MemoryOrders)(nil)

func (mo *MemoryOrders) Create(ctx context.Context, o *domain.Order) error {
	mo.store.wlock(ctx)
	defer mo.store.wunlock(ctx)
	if _, taken := mo.store.pickup[o.PickupCode]; taken {
		return ErrDuplicate
	}
	o.ID = mo.store.nextOrderID
	mo.store.nextOrderID++
	o.CreatedAt = now()
	o.UpdatedAt = o.CreatedAt
	for i := range o.Items {
		o.Items[i].ID = mo.store.nextItemID
		o.Items[i].OrderID = o.ID
		mo.store.nextItemID++
	}
	cp := *o
	cp.Items = slices.Clone(o.Items)
	mo.store.orders[o.ID] = cp
	mo.store.pickup[o.PickupCode] = o.ID
	return nil
}

func (mo *MemoryOrders) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	mo.store.rlock(ctx)
	defer mo.store.runlock(ctx)
	o, ok := mo.store.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := o
	cp.Items = slices.Clone(o.Items)
	return &cp, nil
}

func (mo *MemoryOrders) GetByPickupCode(ctx context.Context, code string) (*domain.Order, error) {
	mo.store.rlock(ctx)
	id, ok := mo.store.pickup[code]
	mo.store.runlock(ctx)
	if !ok {
		return nil, ErrNotFound
	}
	return mo.GetByID(ctx, id)
}

func (mo *MemoryOrders) UpdateStatus(ctx context.Context, o *domain.Order) error {
	mo.store.wlock(ctx)
	defer mo.store.wunlock(ctx)
	cur, ok := mo.store.orders[o.ID]
	if !ok {
		return ErrNotFound
	}
	o.UpdatedAt = now()
	cur.Status = o.Status
	cur.PaymentStatus = o.PaymentStatus
	cur.CompletedAt = o.CompletedAt
	cur.UpdatedAt = o.UpdatedAt
	mo.store.orders[o.ID] = cur
	return nil
}

func (mo *MemoryOrders) ListByUser(ctx context.Context, userID int64, limit int) ([]domain.Order, error) {
	return mo.list(ctx, limit, func(o domain.Order) bool { return o.UserID == userID })
}

func (mo *MemoryOrders) ListByPharmacy(ctx context.Context, pharmacyID int64, status domain.OrderStatus, limit int) ([]domain.Order, error) {
	return mo.list(ctx, limit, func(o domain.Order) bool {
		return o.PharmacyID != nil && *o.PharmacyID == pharmacyID && (status == "" || o.Status == status)
	})
}

func (mo *MemoryOrders) PharmacyStats(ctx context.Context, pharmacyID int64) (*domain.PharmacyStats, error) {
	mo.store.rlock(ctx)
	defer mo.store.runlock(ctx)
	st := &domain.PharmacyStats{PharmacyID: pharmacyID}
	for _, o := range mo.store.orders {
		if o.PharmacyID != nil && *o.PharmacyID == pharmacyID {
			st.Add(o)
		}
	}
	return st, nil
}

// list новые заказы первыми
func (mo *MemoryOrders) list(ctx context.Context, limit int, keep func(domain.Order) bool) ([]domain.Order, error) {
	mo.store.rlock(ctx)
	defer mo.store.runlock(ctx)
	out := make([]domain.Order, 0)
	for _, o := range mo.store.orders {
		if keep(o) {
			o.Items = slices.Clone(o.Items)
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Tx manager using write lock to emulate transaction boundary
type MemoryTx struct{ store *MemoryStore }

func NewMemoryTx(store *MemoryStore) *MemoryTx { return &MemoryTx{store: store} }

func (tx *MemoryTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if isTx(ctx) {
		// nested call joins the outer transaction
		return fn(ctx)
	}
	// Для in-memory используем блокировку записи и помечаем контекст, чтобы репозитории пропускали внутренние локи.
	// При ошибке состояние откатывается к копии, снятой на входе.
	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()
	saved := tx.store.memoryState.clone()
	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		tx.store.memoryState = saved
		return err
	}
	return nil
}
