package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/PharmaUz/Uz-Pharma-Bot/internal/domain"
	"github.com/PharmaUz/Uz-Pharma-Bot/internal/geo"
	"github.com/PharmaUz/Uz-Pharma-Bot/internal/notify"
	"github.com/PharmaUz/Uz-Pharma-Bot/internal/repository"
	"github.com/PharmaUz/Uz-Pharma-Bot/internal/service"
	"github.com/PharmaUz/Uz-Pharma-Bot/internal/session"
)

const (
	buyer = int64(7)
	other = int64(8)
)

func ptr[T any](v T) *T { return &v }

// setupServer: drug 1 @5000, drug 2 @3000; pharmacy 1 lacks drug 2,
// pharmacy 2 (1.2 km north of the buyer) has both.
func setupServer(t *testing.T) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()
	repos := repository.NewMemoryStore().Repositories()

	for _, d := range []domain.Drug{
		{ID: 1, Name: "Paracetamol", Category: "analgesic", Price: ptr(int64(5000))},
		{ID: 2, Name: "Ibuprofen", Category: "analgesic", Price: ptr(int64(3000))},
	} {
		if err := repos.Drugs.Save(ctx, &d); err != nil {
			t.Fatal(err)
		}
	}
	for _, p := range []domain.Pharmacy{
		{ID: 1, Name: "P1", Active: true, Latitude: ptr(41.30), Longitude: ptr(69.24)},
		{ID: 2, Name: "P2", Active: true, Latitude: ptr(41.3108), Longitude: ptr(69.24), OperatorContact: "@p2"},
	} {
		if err := repos.Pharmacies.Save(ctx, &p); err != nil {
			t.Fatal(err)
		}
	}
	for _, st := range []domain.PharmacyStock{
		{PharmacyID: 1, DrugID: 1, Residual: 5},
		{PharmacyID: 1, DrugID: 2, Residual: 0},
		{PharmacyID: 2, DrugID: 1, Residual: 10},
		{PharmacyID: 2, DrugID: 2, Residual: 4},
	} {
		if err := repos.Stock.Upsert(ctx, st); err != nil {
			t.Fatal(err)
		}
	}

	carts := service.NewCartService(repos.Carts, repos.Drugs)
	matcher := service.NewMatcher(repos.Pharmacies, repos.Stock, service.MatcherOptions{Limit: 3, Fallback: geo.Point{Lat: 41.2995, Lon: 69.2401}})
	orders := service.NewOrderService(repos, notify.NewLogNotifier(), service.OrderOptions{})
	return NewServer(Services{
		Catalog:  service.NewCatalogService(repos.Drugs),
		Carts:    carts,
		Checkout: service.NewCheckoutService(carts, matcher, orders, session.New[service.Checkout](16, time.Minute)),
		Orders:   orders,
	})
}

// doJSON sends body as JSON; user 0 means no identity header.
func doJSON(t *testing.T, s *Server, user int64, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != 0 {
		req.Header.Set(userIDHeader, strconv.FormatInt(user, 10))
	}
	w := httptest.NewRecorder()
	s.Engine().ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return v
}

func TestDrugEndpoints(t *testing.T) {
	s := setupServer(t)

	w := doJSON(t, s, 0, http.MethodGet, "/api/v1/drugs?q=PARA", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("search code %v", w.Code)
	}
	if got := decode[[]domain.Drug](t, w); len(got) != 1 || got[0].ID != 1 {
		t.Fatalf("search result %+v", got)
	}
	w = doJSON(t, s, 0, http.MethodGet, "/api/v1/drugs?q=analgesic&limit=1", nil)
	if got := decode[[]domain.Drug](t, w); len(got) != 1 {
		t.Fatalf("limit not applied: %+v", got)
	}
	if w = doJSON(t, s, 0, http.MethodGet, "/api/v1/drugs?limit=-1", nil); w.Code != http.StatusBadRequest {
		t.Fatalf("bad limit code %v", w.Code)
	}
	if w = doJSON(t, s, 0, http.MethodGet, "/api/v1/drugs/2", nil); w.Code != http.StatusOK {
		t.Fatalf("get code %v", w.Code)
	}
	if w = doJSON(t, s, 0, http.MethodGet, "/api/v1/drugs/99", nil); w.Code != http.StatusNotFound {
		t.Fatalf("missing drug code %v", w.Code)
	}
	if w = doJSON(t, s, 0, http.MethodGet, "/api/v1/drugs/abc", nil); w.Code != http.StatusBadRequest {
		t.Fatalf("bad id code %v", w.Code)
	}
}

func TestIdentityRequired(t *testing.T) {
	s := setupServer(t)
	if w := doJSON(t, s, 0, http.MethodGet, "/api/v1/cart", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("no header code %v", w.Code)
	}
	if w := doJSON(t, s, -3, http.MethodGet, "/api/v1/orders", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("negative id code %v", w.Code)
	}
	if w := doJSON(t, s, 0, http.MethodGet, "/healthz", nil); w.Code != http.StatusOK {
		t.Fatalf("healthz code %v", w.Code)
	}
}

func TestCartFlow(t *testing.T) {
	s := setupServer(t)

	w := doJSON(t, s, buyer, http.MethodPost, "/api/v1/cart/items", map[string]any{"drug_id": 1})
	if w.Code != http.StatusCreated {
		t.Fatalf("add code %v", w.Code)
	}
	w = doJSON(t, s, buyer, http.MethodPost, "/api/v1/cart/items", map[string]any{"drug_id": 1})
	item := decode[domain.CartItem](t, w)
	if item.Quantity != 2 {
		t.Fatalf("repeated add must merge, got qty %d", item.Quantity)
	}
	if w = doJSON(t, s, buyer, http.MethodPost, "/api/v1/cart/items", map[string]any{"drug_id": 99}); w.Code != http.StatusNotFound {
		t.Fatalf("unknown drug code %v", w.Code)
	}
	if w = doJSON(t, s, buyer, http.MethodPost, "/api/v1/cart/items", map[string]any{}); w.Code != http.StatusBadRequest {
		t.Fatalf("missing drug_id code %v", w.Code)
	}

	path := "/api/v1/cart/items/" + strconv.FormatInt(item.ID, 10)
	if w = doJSON(t, s, other, http.MethodPost, path+"/increase", nil); w.Code != http.StatusNotFound {
		t.Fatalf("foreign item code %v", w.Code)
	}
	w = doJSON(t, s, buyer, http.MethodPost, path+"/increase", nil)
	if got := decode[domain.CartItem](t, w); got.Quantity != 3 {
		t.Fatalf("increase qty %d", got.Quantity)
	}

	w = doJSON(t, s, buyer, http.MethodGet, "/api/v1/cart", nil)
	snap := decode[domain.CartSnapshot](t, w)
	if len(snap.Lines) != 1 || snap.Total != 15000 {
		t.Fatalf("snapshot %+v", snap)
	}

	for i := 0; i < 2; i++ {
		if w = doJSON(t, s, buyer, http.MethodPost, path+"/decrease", nil); w.Code != http.StatusOK {
			t.Fatalf("decrease code %v", w.Code)
		}
	}
	if w = doJSON(t, s, buyer, http.MethodPost, path+"/decrease", nil); w.Code != http.StatusNoContent {
		t.Fatalf("last unit must remove the row, code %v", w.Code)
	}
	if w = doJSON(t, s, buyer, http.MethodDelete, path, nil); w.Code != http.StatusNotFound {
		t.Fatalf("removed item code %v", w.Code)
	}

	doJSON(t, s, buyer, http.MethodPost, "/api/v1/cart/items", map[string]any{"drug_id": 2})
	w = doJSON(t, s, buyer, http.MethodDelete, "/api/v1/cart", nil)
	if got := decode[map[string]int64](t, w); got["removed"] != 1 {
		t.Fatalf("clear %+v", got)
	}
	w = doJSON(t, s, buyer, http.MethodGet, "/api/v1/cart", nil)
	if snap := decode[domain.CartSnapshot](t, w); len(snap.Lines) != 0 || snap.Total != 0 {
		t.Fatalf("cart not empty: %+v", snap)
	}
}

func fillScenarioCart(t *testing.T, s *Server, user int64) {
	t.Helper()
	for _, id := range []int64{1, 1, 2} {
		if w := doJSON(t, s, user, http.MethodPost, "/api/v1/cart/items", map[string]any{"drug_id": id}); w.Code != http.StatusCreated {
			t.Fatalf("add code %v", w.Code)
		}
	}
}

func placeOrder(t *testing.T, s *Server, user int64) domain.Order {
	t.Helper()
	fillScenarioCart(t, s, user)
	w := doJSON(t, s, user, http.MethodPost, "/api/v1/checkout/pharmacies", map[string]any{
		"delivery_type": "pickup", "latitude": 41.30, "longitude": 69.24,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("find code %v", w.Code)
	}
	w = doJSON(t, s, user, http.MethodPost, "/api/v1/checkout/confirm", map[string]any{"pharmacy_id": 2})
	if w.Code != http.StatusCreated {
		t.Fatalf("confirm code %v: %s", w.Code, w.Body.String())
	}
	return decode[domain.Order](t, w)
}

func TestCheckoutFlow(t *testing.T) {
	s := setupServer(t)
	fillScenarioCart(t, s, buyer)

	w := doJSON(t, s, buyer, http.MethodPost, "/api/v1/checkout/pharmacies", map[string]any{
		"delivery_type": "pickup", "latitude": 41.30, "longitude": 69.24,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("find code %v", w.Code)
	}
	found := decode[findPharmaciesResp](t, w)
	if !found.Covered || len(found.Candidates) != 1 || found.Candidates[0].Pharmacy.ID != 2 {
		t.Fatalf("candidates %+v", found)
	}
	if d := found.Candidates[0].DistanceKm; d < 1.1 || d > 1.3 {
		t.Fatalf("distance %v", d)
	}
	if found.Snapshot.Total != 13000 {
		t.Fatalf("snapshot total %d", found.Snapshot.Total)
	}

	if w = doJSON(t, s, buyer, http.MethodPost, "/api/v1/checkout/confirm", map[string]any{"pharmacy_id": 1}); w.Code != http.StatusBadRequest {
		t.Fatalf("not offered pharmacy code %v", w.Code)
	}
	w = doJSON(t, s, buyer, http.MethodPost, "/api/v1/checkout/confirm", map[string]any{"pharmacy_id": 2})
	if w.Code != http.StatusCreated {
		t.Fatalf("confirm code %v", w.Code)
	}
	o := decode[domain.Order](t, w)
	if o.PickupCode == "" || o.TotalAmount != 13000 || o.Status != domain.OrderStatusPending || len(o.Items) != 2 {
		t.Fatalf("order %+v", o)
	}

	w = doJSON(t, s, buyer, http.MethodGet, "/api/v1/cart", nil)
	if snap := decode[domain.CartSnapshot](t, w); len(snap.Lines) != 0 {
		t.Fatalf("cart must be cleared: %+v", snap)
	}
	if w = doJSON(t, s, buyer, http.MethodPost, "/api/v1/checkout/confirm", map[string]any{"pharmacy_id": 2}); w.Code != http.StatusConflict {
		t.Fatalf("second confirm code %v", w.Code)
	}

	w = doJSON(t, s, buyer, http.MethodGet, "/api/v1/orders", nil)
	if got := decode[[]domain.Order](t, w); len(got) != 1 || got[0].ID != o.ID {
		t.Fatalf("orders %+v", got)
	}
	path := "/api/v1/orders/" + strconv.FormatInt(o.ID, 10)
	if w = doJSON(t, s, buyer, http.MethodGet, path, nil); w.Code != http.StatusOK {
		t.Fatalf("get order code %v", w.Code)
	}
	if w = doJSON(t, s, other, http.MethodGet, path, nil); w.Code != http.StatusNotFound {
		t.Fatalf("foreign order code %v", w.Code)
	}
}

func TestCheckoutRejections(t *testing.T) {
	s := setupServer(t)
	at := map[string]any{"latitude": 41.30, "longitude": 69.24}

	if w := doJSON(t, s, buyer, http.MethodPost, "/api/v1/checkout/pharmacies", at); w.Code != http.StatusConflict {
		t.Fatalf("empty cart code %v", w.Code)
	}

	for i := 0; i < 5; i++ {
		doJSON(t, s, buyer, http.MethodPost, "/api/v1/cart/items", map[string]any{"drug_id": 2})
	}
	w := doJSON(t, s, buyer, http.MethodPost, "/api/v1/checkout/pharmacies", at)
	if w.Code != http.StatusOK {
		t.Fatalf("no coverage code %v", w.Code)
	}
	found := decode[findPharmaciesResp](t, w)
	if found.Covered || found.Candidates == nil || len(found.Candidates) != 0 {
		t.Fatalf("expected empty coverage, got %+v", found)
	}
	if w = doJSON(t, s, buyer, http.MethodPost, "/api/v1/checkout/confirm", map[string]any{"pharmacy_id": 2}); w.Code != http.StatusConflict {
		t.Fatalf("confirm without coverage code %v", w.Code)
	}

	w = doJSON(t, s, buyer, http.MethodPost, "/api/v1/checkout/pharmacies", map[string]any{
		"delivery_type": "delivery", "latitude": 41.30, "longitude": 69.24,
	})
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("delivery code %v", w.Code)
	}
	if w = doJSON(t, s, buyer, http.MethodPost, "/api/v1/checkout/pharmacies", map[string]any{"latitude": 41.30}); w.Code != http.StatusBadRequest {
		t.Fatalf("missing longitude code %v", w.Code)
	}
	if w = doJSON(t, s, buyer, http.MethodPost, "/api/v1/checkout/pharmacies", map[string]any{"latitude": 141.0, "longitude": 0}); w.Code != http.StatusBadRequest {
		t.Fatalf("bad latitude code %v", w.Code)
	}
}

func TestOrderLifecycle(t *testing.T) {
	s := setupServer(t)
	o := placeOrder(t, s, buyer)
	path := "/api/v1/orders/" + strconv.FormatInt(o.ID, 10)

	if w := doJSON(t, s, buyer, http.MethodPost, path+"/status", map[string]any{"status": "ready"}); w.Code != http.StatusConflict {
		t.Fatalf("skip step code %v", w.Code)
	}
	if w := doJSON(t, s, buyer, http.MethodPost, path+"/status", map[string]any{"status": "shipped"}); w.Code != http.StatusBadRequest {
		t.Fatalf("unknown status code %v", w.Code)
	}
	for _, st := range []string{"confirmed", "ready"} {
		if w := doJSON(t, s, buyer, http.MethodPost, path+"/status", map[string]any{"status": st}); w.Code != http.StatusOK {
			t.Fatalf("to %s code %v", st, w.Code)
		}
	}

	code := map[string]any{"code": o.PickupCode}
	if w := doJSON(t, s, buyer, http.MethodPost, "/api/v1/pharmacies/1/pickup", code); w.Code != http.StatusNotFound {
		t.Fatalf("wrong pharmacy code %v", w.Code)
	}
	w := doJSON(t, s, buyer, http.MethodPost, "/api/v1/pharmacies/2/pickup", code)
	if w.Code != http.StatusOK {
		t.Fatalf("pickup code %v", w.Code)
	}
	if got := decode[domain.Order](t, w); got.Status != domain.OrderStatusCompleted || got.PaymentStatus != domain.PaymentPaid {
		t.Fatalf("picked up order %+v", got)
	}
	if w = doJSON(t, s, buyer, http.MethodPost, "/api/v1/pharmacies/2/pickup", code); w.Code != http.StatusConflict {
		t.Fatalf("second pickup code %v", w.Code)
	}
	if w = doJSON(t, s, buyer, http.MethodPost, path+"/cancel", nil); w.Code != http.StatusConflict {
		t.Fatalf("cancel completed code %v", w.Code)
	}

	w = doJSON(t, s, buyer, http.MethodGet, "/api/v1/pharmacies/2/orders", nil)
	if got := decode[[]domain.Order](t, w); len(got) != 1 {
		t.Fatalf("pharmacy orders %+v", got)
	}
	if w = doJSON(t, s, buyer, http.MethodGet, "/api/v1/pharmacies/42/orders", nil); w.Code != http.StatusNotFound {
		t.Fatalf("unknown pharmacy code %v", w.Code)
	}
	w = doJSON(t, s, buyer, http.MethodGet, "/api/v1/pharmacies/2/orders?status=completed", nil)
	if got := decode[[]domain.Order](t, w); len(got) != 1 || got[0].ID != o.ID {
		t.Fatalf("completed orders %+v", got)
	}
	w = doJSON(t, s, buyer, http.MethodGet, "/api/v1/pharmacies/2/orders?status=ready", nil)
	if got := decode[[]domain.Order](t, w); len(got) != 0 {
		t.Fatalf("ready orders %+v", got)
	}
	if w = doJSON(t, s, buyer, http.MethodGet, "/api/v1/pharmacies/2/orders?status=shipped", nil); w.Code != http.StatusBadRequest {
		t.Fatalf("unknown status filter code %v", w.Code)
	}

	placeOrder(t, s, other)
	w = doJSON(t, s, buyer, http.MethodGet, "/api/v1/pharmacies/2/stats", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("stats code %v", w.Code)
	}
	st := decode[domain.PharmacyStats](t, w)
	if st.Total != 2 || st.Completed != 1 || st.Pending != 1 || st.Revenue != 13000 {
		t.Fatalf("stats %+v", st)
	}
	if w = doJSON(t, s, buyer, http.MethodGet, "/api/v1/pharmacies/42/stats", nil); w.Code != http.StatusNotFound {
		t.Fatalf("unknown pharmacy stats code %v", w.Code)
	}
}

func TestBuyerCancel(t *testing.T) {
	s := setupServer(t)
	o := placeOrder(t, s, buyer)
	path := "/api/v1/orders/" + strconv.FormatInt(o.ID, 10) + "/cancel"

	if w := doJSON(t, s, other, http.MethodPost, path, nil); w.Code != http.StatusNotFound {
		t.Fatalf("foreign cancel code %v", w.Code)
	}
	w := doJSON(t, s, buyer, http.MethodPost, path, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("cancel code %v", w.Code)
	}
	if got := decode[domain.Order](t, w); got.Status != domain.OrderStatusCancelled {
		t.Fatalf("status %s", got.Status)
	}

	second := placeOrder(t, s, other)
	if second.ID == o.ID {
		t.Fatalf("expected a new order")
	}
}
