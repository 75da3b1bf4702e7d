package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/PharmaUz/Uz-Pharma-Bot/internal/config"
	"github.com/PharmaUz/Uz-Pharma-Bot/internal/domain"
	"github.com/PharmaUz/Uz-Pharma-Bot/internal/notify"
	"github.com/PharmaUz/Uz-Pharma-Bot/internal/repository"
)

const (
	DefaultOrderListLimit = 10
	defaultNotifyTimeout  = 5 * time.Second
)

// CodeGenerator выдаёт новый pickup code на каждую попытку оформления
type CodeGenerator func() (string, error)

// RandomPickupCode prefix + "-" + 5 цифр из [10000, 99999]
func RandomPickupCode(prefix string) CodeGenerator {
	span := big.NewInt(90000)
	return func() (string, error) {
		n, err := rand.Int(rand.Reader, span)
		if err != nil {
			return "", fmt.Errorf("generate pickup code: %w", err)
		}
		return fmt.Sprintf("%s-%d", prefix, 10000+n.Int64()), nil
	}
}

type OrderOptions struct {
	// StockPolicy config.StockPolicyAbort или config.StockPolicyBackorder
	StockPolicy        string
	PickupCodePrefix   string
	PickupCodeAttempts int
	NotifyTimeout      time.Duration
	Codes              CodeGenerator
}

func OrderOptionsFromConfig(cfg config.Config) OrderOptions {
	return OrderOptions{
		StockPolicy:        cfg.StockPolicy,
		PickupCodePrefix:   cfg.PickupCodePrefix,
		PickupCodeAttempts: cfg.PickupCodeAttempts,
		NotifyTimeout:      cfg.NotifyTimeout,
	}
}

// OrderService оформление заказа из корзины и дальнейший жизненный цикл
type OrderService struct {
	pharmacies repository.PharmacyRepository
	stock      repository.StockRepository
	carts      repository.CartRepository
	orders     repository.OrderRepository
	tx         repository.TxManager
	notifier   notify.Notifier
	opts       OrderOptions
}

func NewOrderService(repos repository.Repositories, notifier notify.Notifier, opts OrderOptions) *OrderService {
	if opts.StockPolicy == "" {
		opts.StockPolicy = config.StockPolicyAbort
	}
	if opts.PickupCodePrefix == "" {
		opts.PickupCodePrefix = "PX"
	}
	if opts.PickupCodeAttempts <= 0 {
		opts.PickupCodeAttempts = 1
	}
	if opts.NotifyTimeout <= 0 {
		opts.NotifyTimeout = defaultNotifyTimeout
	}
	if opts.Codes == nil {
		opts.Codes = RandomPickupCode(opts.PickupCodePrefix)
	}
	return &OrderService{
		pharmacies: repos.Pharmacies,
		stock:      repos.Stock,
		carts:      repos.Carts,
		orders:     repos.Orders,
		tx:         repos.Tx,
		notifier:   notifier,
		opts:       opts,
	}
}

// ParseDeliveryMode принимает только самовывоз; пустое значение означает pickup
func ParseDeliveryMode(s string) (domain.DeliveryMode, error) {
	switch domain.DeliveryMode(s) {
	case "", domain.DeliveryPickup:
		return domain.DeliveryPickup, nil
	case domain.DeliveryCourier:
		return "", ErrDeliveryUnsupported
	default:
		return "", ErrInvalidInput
	}
}

type FinalizeRequest struct {
	UserID     int64
	PharmacyID int64
	// Snapshot корзина на момент выбора аптеки
	Snapshot domain.CartSnapshot
}

// Finalize в одной транзакции списывает остатки, создаёт заказ с позициями
// и очищает корзину. Уведомления отправляются после commit, их ошибки только логируются.
func (s *OrderService) Finalize(ctx context.Context, req FinalizeRequest) (*domain.Order, error) {
	if req.UserID <= 0 || req.PharmacyID <= 0 {
		return nil, ErrInvalidInput
	}
	pharmacy, err := s.pharmacies.GetByID(ctx, req.PharmacyID)
	if err != nil {
		return nil, storageError(err)
	}
	if !pharmacy.Active {
		return nil, ErrNotFound
	}

	var order *domain.Order
	for attempt := 1; ; attempt++ {
		code, err := s.opts.Codes()
		if err != nil {
			return nil, storageError(err)
		}
		order, err = s.finalizeOnce(ctx, req, code)
		if err == nil {
			break
		}
		if errors.Is(err, repository.ErrDuplicate) && attempt < s.opts.PickupCodeAttempts {
			log.Warn().Str("pickup_code", code).Int("attempt", attempt).Msg("Pickup code collision, retrying")
			continue
		}
		if isBusinessError(err) {
			return nil, err
		}
		log.Error().Err(err).Int64("user_id", req.UserID).Int64("pharmacy_id", req.PharmacyID).Msg("Order finalize failed")
		return nil, storageError(err)
	}

	log.Info().
		Int64("order_id", order.ID).
		Int64("user_id", order.UserID).
		Int64("pharmacy_id", pharmacy.ID).
		Int64("total", order.TotalAmount).
		Str("pickup_code", order.PickupCode).
		Msg("Order created")
	s.notifyCreated(ctx, *order, *pharmacy)
	return order, nil
}

func (s *OrderService) finalizeOnce(ctx context.Context, req FinalizeRequest, code string) (*domain.Order, error) {
	var created *domain.Order
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		// корзину могли очистить или изменить после выбора аптеки
		lines, err := s.carts.LockLines(ctx, req.UserID)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return ErrEmptyCart
		}
		current := domain.NewCartSnapshot(req.UserID, lines)
		if !current.SameLines(req.Snapshot) {
			return ErrCartChanged
		}

		items := make([]domain.OrderItem, 0, len(lines))
		for _, l := range lines {
			it := domain.OrderItem{DrugID: l.Item.DrugID, Quantity: l.Item.Quantity, Price: l.Drug.UnitPrice()}
			ok, err := s.stock.Decrement(ctx, req.PharmacyID, it.DrugID, it.Quantity)
			if err != nil {
				return err
			}
			if !ok {
				log.Warn().
					Int64("pharmacy_id", req.PharmacyID).
					Int64("drug_id", it.DrugID).
					Int64("requested", it.Quantity).
					Str("policy", s.opts.StockPolicy).
					Msg("Insufficient stock")
				if s.opts.StockPolicy != config.StockPolicyBackorder {
					return &StockShortageError{PharmacyID: req.PharmacyID, DrugID: it.DrugID, Requested: it.Quantity}
				}
				it.Backordered = true
			}
			items = append(items, it)
		}

		pharmacyID := req.PharmacyID
		o := domain.Order{
			UserID:        req.UserID,
			PharmacyID:    &pharmacyID,
			TotalAmount:   current.Total,
			DeliveryMode:  domain.DeliveryPickup,
			PickupCode:    code,
			Status:        domain.OrderStatusPending,
			PaymentStatus: domain.PaymentUnpaid,
			Items:         items,
		}
		if err := s.orders.Create(ctx, &o); err != nil {
			return err
		}
		cleared, err := s.carts.Clear(ctx, req.UserID)
		if err != nil {
			return err
		}
		if cleared != int64(len(lines)) {
			return ErrCartChanged
		}
		created = &o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *OrderService) notifyCreated(ctx context.Context, o domain.Order, ph domain.Pharmacy) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.NotifyTimeout)
	defer cancel()

	send := func(recipient string, kind notify.Kind) {
		if err := s.notifier.Notify(ctx, recipient, notify.OrderCreated(kind, o, ph)); err != nil {
			log.Error().Err(err).
				Int64("order_id", o.ID).
				Str("recipient", recipient).
				Str("kind", string(kind)).
				Msg("Notification failed")
		}
	}
	send(notify.BuyerRecipient(o.UserID), notify.KindOrderCreatedBuyer)
	if ph.OperatorContact != "" {
		send(ph.OperatorContact, notify.KindOrderCreatedPharmacy)
	}
}

// Get заказ покупателя; чужой заказ неотличим от отсутствующего
func (s *OrderService) Get(ctx context.Context, userID, orderID int64) (*domain.Order, error) {
	if userID <= 0 || orderID <= 0 {
		return nil, ErrInvalidInput
	}
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID {
		return nil, ErrNotFound
	}
	return o, nil
}

func (s *OrderService) ListForUser(ctx context.Context, userID int64, limit int) ([]domain.Order, error) {
	if userID <= 0 || limit < 0 {
		return nil, ErrInvalidInput
	}
	if limit == 0 {
		limit = DefaultOrderListLimit
	}
	return s.orders.ListByUser(ctx, userID, limit)
}

// ListForPharmacy последние заказы аптеки для экрана оператора;
// пустой status означает все статусы
func (s *OrderService) ListForPharmacy(ctx context.Context, pharmacyID int64, status domain.OrderStatus, limit int) ([]domain.Order, error) {
	if pharmacyID <= 0 || limit < 0 || (status != "" && !status.Valid()) {
		return nil, ErrInvalidInput
	}
	if limit == 0 {
		limit = DefaultOrderListLimit
	}
	if _, err := s.pharmacies.GetByID(ctx, pharmacyID); err != nil {
		return nil, err
	}
	return s.orders.ListByPharmacy(ctx, pharmacyID, status, limit)
}

// PharmacyStats количество заказов по статусам и выручка по завершённым
func (s *OrderService) PharmacyStats(ctx context.Context, pharmacyID int64) (*domain.PharmacyStats, error) {
	if pharmacyID <= 0 {
		return nil, ErrInvalidInput
	}
	if _, err := s.pharmacies.GetByID(ctx, pharmacyID); err != nil {
		return nil, err
	}
	return s.orders.PharmacyStats(ctx, pharmacyID)
}

// Transition переводит заказ в следующий статус. Отмена возвращает списанные остатки.
func (s *OrderService) Transition(ctx context.Context, orderID int64, next domain.OrderStatus) (*domain.Order, error) {
	if orderID <= 0 || !next.Valid() {
		return nil, ErrInvalidInput
	}
	var updated *domain.Order
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		o, err := s.orders.GetByID(ctx, orderID)
		if err != nil {
			return err
		}
		if err := s.apply(ctx, o, next); err != nil {
			return err
		}
		updated = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Cancel отмена заказа самим покупателем
func (s *OrderService) Cancel(ctx context.Context, userID, orderID int64) (*domain.Order, error) {
	if _, err := s.Get(ctx, userID, orderID); err != nil {
		return nil, err
	}
	return s.Transition(ctx, orderID, domain.OrderStatusCancelled)
}

// RedeemPickup выдача заказа по коду на кассе аптеки; код одноразовый
func (s *OrderService) RedeemPickup(ctx context.Context, pharmacyID int64, code string) (*domain.Order, error) {
	if pharmacyID <= 0 || code == "" {
		return nil, ErrInvalidInput
	}
	var redeemed *domain.Order
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		o, err := s.orders.GetByPickupCode(ctx, code)
		if err != nil {
			return err
		}
		if o.PharmacyID == nil || *o.PharmacyID != pharmacyID {
			return ErrNotFound
		}
		if o.Status != domain.OrderStatusReady {
			return ErrInvalidState
		}
		if err := s.apply(ctx, o, domain.OrderStatusCompleted); err != nil {
			return err
		}
		redeemed = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Info().Int64("order_id", redeemed.ID).Int64("pharmacy_id", pharmacyID).Msg("Order picked up")
	return redeemed, nil
}

// apply вызывается только внутри транзакции
func (s *OrderService) apply(ctx context.Context, o *domain.Order, next domain.OrderStatus) error {
	if !o.Status.CanTransitionTo(next) {
		return ErrInvalidState
	}
	switch next {
	case domain.OrderStatusCancelled:
		if o.PharmacyID != nil {
			for _, it := range o.Items {
				if it.Backordered {
					continue
				}
				if err := s.stock.Increment(ctx, *o.PharmacyID, it.DrugID, it.Quantity); err != nil {
					return err
				}
			}
		}
		if o.PaymentStatus == domain.PaymentPaid {
			o.PaymentStatus = domain.PaymentRefunded
		}
	case domain.OrderStatusCompleted:
		ts := time.Now().UTC()
		o.CompletedAt = &ts
		o.PaymentStatus = domain.PaymentPaid
	}
	o.Status = next
	return s.orders.UpdateStatus(ctx, o)
}
