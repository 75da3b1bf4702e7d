package service

import (
	"context"
	"slices"
	"time"

	"github.com/PharmaUz/Uz-Pharma-Bot/internal/domain"
	"github.com/PharmaUz/Uz-Pharma-Bot/internal/geo"
	"github.com/PharmaUz/Uz-Pharma-Bot/internal/session"
)

// Checkout незавершённый выбор аптеки пользователем
type Checkout struct {
	DeliveryMode domain.DeliveryMode `json:"delivery_mode"`
	Location     geo.Point           `json:"location"`
	Snapshot     domain.CartSnapshot `json:"snapshot"`
	Candidates   []Match             `json:"candidates"`
	CreatedAt    time.Time           `json:"created_at"`
}

// Covered есть ли хотя бы одна аптека с полным набором
func (c Checkout) Covered() bool { return len(c.Candidates) > 0 }

// CheckoutService связывает корзину, подбор аптек и оформление заказа.
// Состояние между шагами живёт в session.Store с TTL.
type CheckoutService struct {
	carts    *CartService
	matcher  *Matcher
	orders   *OrderService
	sessions *session.Store[Checkout]
}

func NewCheckoutService(carts *CartService, matcher *Matcher, orders *OrderService, sessions *session.Store[Checkout]) *CheckoutService {
	return &CheckoutService{carts: carts, matcher: matcher, orders: orders, sessions: sessions}
}

// Begin фиксирует снимок корзины и подбирает аптеки. Отсутствие покрытия
// возвращается как Checkout без кандидатов, сессия при этом не сохраняется.
func (s *CheckoutService) Begin(ctx context.Context, userID int64, deliveryType string, at geo.Point) (*Checkout, error) {
	mode, err := ParseDeliveryMode(deliveryType)
	if err != nil {
		return nil, err
	}
	snap, err := s.carts.Snapshot(ctx, userID)
	if err != nil {
		return nil, err
	}
	if snap.Empty() {
		return nil, ErrEmptyCart
	}
	candidates, err := s.matcher.Find(ctx, snap.Requirements(), at)
	if err != nil {
		return nil, err
	}
	c := Checkout{
		DeliveryMode: mode,
		Location:     at,
		Snapshot:     snap,
		Candidates:   candidates,
		CreatedAt:    time.Now().UTC(),
	}
	if c.Covered() {
		s.sessions.Put(userID, c)
	} else {
		s.sessions.Delete(userID)
	}
	return &c, nil
}

// Pending текущий выбор аптеки, если он ещё не истёк
func (s *CheckoutService) Pending(userID int64) (*Checkout, bool) {
	c, ok := s.sessions.Get(userID)
	if !ok {
		return nil, false
	}
	return &c, true
}

// Confirm оформляет заказ в одной из предложенных аптек. После ошибки
// сессия остаётся, чтобы пользователь мог повторить.
func (s *CheckoutService) Confirm(ctx context.Context, userID, pharmacyID int64) (*domain.Order, error) {
	c, ok := s.sessions.Get(userID)
	if !ok {
		return nil, ErrNoCheckout
	}
	offered := slices.ContainsFunc(c.Candidates, func(m Match) bool { return m.Pharmacy.ID == pharmacyID })
	if !offered {
		return nil, ErrInvalidInput
	}
	o, err := s.orders.Finalize(ctx, FinalizeRequest{UserID: userID, PharmacyID: pharmacyID, Snapshot: c.Snapshot})
	if err != nil {
		return nil, err
	}
	s.sessions.Delete(userID)
	return o, nil
}

// Abandon сбрасывает выбор аптеки
func (s *CheckoutService) Abandon(userID int64) { s.sessions.Delete(userID) }
