package service

import (
	"context"
	"testing"
	"time"

	"github.com/PharmaUz/Uz-Pharma-Bot/internal/domain"
	"github.com/PharmaUz/Uz-Pharma-Bot/internal/geo"
	"github.com/PharmaUz/Uz-Pharma-Bot/internal/notify"
	"github.com/PharmaUz/Uz-Pharma-Bot/internal/repository"
	"github.com/PharmaUz/Uz-Pharma-Bot/internal/session"
)

func ptr[T any](v T) *T { return &v }

const (
	drugA     = int64(1)
	drugB     = int64(2)
	pharmacy1 = int64(1)
	pharmacy2 = int64(2)
	buyer     = int64(7)
	operator  = "@p2_operator"
)

// user location of the example scenario; P2 sits 1.2 km north of it
var userAt = geo.Point{Lat: 41.30, Lon: 69.24}

type fixture struct {
	repos    repository.Repositories
	catalog  *CatalogService
	carts    *CartService
	matcher  *Matcher
	orders   *OrderService
	checkout *CheckoutService
}

func newFixture(t *testing.T, n notify.Notifier, opts OrderOptions) *fixture {
	t.Helper()
	if n == nil {
		n = notify.NewLogNotifier()
	}
	repos := repository.NewMemoryStore().Repositories()
	f := &fixture{
		repos:   repos,
		catalog: NewCatalogService(repos.Drugs),
		carts:   NewCartService(repos.Carts, repos.Drugs),
		matcher: NewMatcher(repos.Pharmacies, repos.Stock, MatcherOptions{Limit: 3, Fallback: geo.Point{Lat: 41.2995, Lon: 69.2401}}),
		orders:  NewOrderService(repos, n, opts),
	}
	f.checkout = NewCheckoutService(f.carts, f.matcher, f.orders, session.New[Checkout](100, time.Minute))
	return f
}

func (f *fixture) mustDrug(t *testing.T, d domain.Drug) {
	t.Helper()
	if err := f.repos.Drugs.Save(context.Background(), &d); err != nil {
		t.Fatalf("save drug: %v", err)
	}
}

func (f *fixture) mustPharmacy(t *testing.T, p domain.Pharmacy) {
	t.Helper()
	if err := f.repos.Pharmacies.Save(context.Background(), &p); err != nil {
		t.Fatalf("save pharmacy: %v", err)
	}
}

func (f *fixture) mustStock(t *testing.T, pharmacyID, drugID, residual int64) {
	t.Helper()
	err := f.repos.Stock.Upsert(context.Background(), domain.PharmacyStock{PharmacyID: pharmacyID, DrugID: drugID, Residual: residual})
	if err != nil {
		t.Fatalf("upsert stock: %v", err)
	}
}

func (f *fixture) mustAdd(t *testing.T, userID, drugID int64, times int) {
	t.Helper()
	for i := 0; i < times; i++ {
		if _, err := f.carts.Add(context.Background(), userID, drugID); err != nil {
			t.Fatalf("add to cart: %v", err)
		}
	}
}

func (f *fixture) residual(t *testing.T, pharmacyID, drugID int64) int64 {
	t.Helper()
	s, err := f.repos.Stock.Get(context.Background(), pharmacyID, drugID)
	if err != nil {
		t.Fatalf("get stock: %v", err)
	}
	return s.Residual
}

// seedScenario: A @5000, B @3000; P1 has A but no B, P2 has both.
func (f *fixture) seedScenario(t *testing.T) {
	t.Helper()
	f.mustDrug(t, domain.Drug{ID: drugA, Name: "Drug A", Price: ptr(int64(5000))})
	f.mustDrug(t, domain.Drug{ID: drugB, Name: "Drug B", Price: ptr(int64(3000))})
	f.mustPharmacy(t, domain.Pharmacy{ID: pharmacy1, Name: "P1", Active: true,
		Latitude: ptr(41.30), Longitude: ptr(69.24)})
	f.mustPharmacy(t, domain.Pharmacy{ID: pharmacy2, Name: "P2", Active: true, OperatorContact: operator,
		Latitude: ptr(41.3108), Longitude: ptr(69.24)})
	f.mustStock(t, pharmacy1, drugA, 5)
	f.mustStock(t, pharmacy1, drugB, 0)
	f.mustStock(t, pharmacy2, drugA, 10)
	f.mustStock(t, pharmacy2, drugB, 4)
}

// scenarioCart: A x2, B x1
func (f *fixture) scenarioCart(t *testing.T, userID int64) domain.CartSnapshot {
	t.Helper()
	f.mustAdd(t, userID, drugA, 2)
	f.mustAdd(t, userID, drugB, 1)
	snap, err := f.carts.Snapshot(context.Background(), userID)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	return snap
}
