package domain

import "time"

// Drug позиция каталога. Цена в минимальных единицах валюты.
type Drug struct {
	ID                   int64  `json:"id" db:"id" yaml:"id"`
	Name                 string `json:"name" db:"name" yaml:"name"`
	Manufacturer         string `json:"manufacturer,omitempty" db:"manufacturer" yaml:"manufacturer"`
	DosageForm           string `json:"dosage_form,omitempty" db:"dosage_form" yaml:"dosage_form"`
	Strength             string `json:"strength,omitempty" db:"strength" yaml:"strength"`
	Price                *int64 `json:"price" db:"price" yaml:"price"`
	PrescriptionRequired bool   `json:"prescription_required" db:"prescription_required" yaml:"prescription_required"`
	Category             string `json:"category,omitempty" db:"category" yaml:"category"`
	ImageURL             string `json:"image_url,omitempty" db:"image_url" yaml:"image_url"`
	ThumbnailURL         string `json:"thumbnail_url,omitempty" db:"thumbnail_url" yaml:"thumbnail_url"`
}

// UnitPrice цена за единицу, отсутствующая цена считается нулевой
func (d Drug) UnitPrice() int64 {
	if d.Price == nil {
		return 0
	}
	return *d.Price
}

// Pharmacy аптека, в которой забирают заказ
type Pharmacy struct {
	ID              int64    `json:"id" db:"id" yaml:"id"`
	Name            string   `json:"name" db:"name" yaml:"name"`
	Address         string   `json:"address,omitempty" db:"address" yaml:"address"`
	Phone           string   `json:"phone,omitempty" db:"phone" yaml:"phone"`
	Latitude        *float64 `json:"latitude" db:"latitude" yaml:"latitude"`
	Longitude       *float64 `json:"longitude" db:"longitude" yaml:"longitude"`
	Active          bool     `json:"active" db:"active" yaml:"active"`
	OperatorContact string   `json:"-" db:"operator_contact" yaml:"operator_contact"`
}

// PharmacyStock остаток препарата в конкретной аптеке
type PharmacyStock struct {
	PharmacyID int64 `json:"pharmacy_id" db:"pharmacy_id" yaml:"pharmacy_id"`
	DrugID     int64 `json:"drug_id" db:"drug_id" yaml:"drug_id"`
	Price      int64 `json:"price" db:"price" yaml:"price"`
	Residual   int64 `json:"residual" db:"residual" yaml:"residual"`
}

// CartItem строка корзины, одна на пару (user, drug)
type CartItem struct {
	ID        int64     `json:"id" db:"id"`
	UserID    int64     `json:"user_id" db:"user_id"`
	DrugID    int64     `json:"drug_id" db:"drug_id"`
	Quantity  int64     `json:"quantity" db:"quantity"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// CartLine строка корзины вместе с препаратом
type CartLine struct {
	Item CartItem `json:"item"`
	Drug Drug     `json:"drug"`
}

// Subtotal quantity × текущая цена препарата
func (l CartLine) Subtotal() int64 {
	return l.Item.Quantity * l.Drug.UnitPrice()
}

// CartSnapshot зафиксированное состояние корзины
type CartSnapshot struct {
	UserID int64      `json:"user_id"`
	Lines  []CartLine `json:"lines"`
	Total  int64      `json:"total"`
}

// NewCartSnapshot считает итог по текущим ценам
func NewCartSnapshot(userID int64, lines []CartLine) CartSnapshot {
	s := CartSnapshot{UserID: userID, Lines: lines}
	for _, l := range lines {
		s.Total += l.Subtotal()
	}
	return s
}

func (s CartSnapshot) Empty() bool { return len(s.Lines) == 0 }

// Requirements drug_id -> требуемое количество
func (s CartSnapshot) Requirements() map[int64]int64 {
	out := make(map[int64]int64, len(s.Lines))
	for _, l := range s.Lines {
		out[l.Item.DrugID] += l.Item.Quantity
	}
	return out
}

// SameLines сравнивает состав двух снимков без учёта цен
func (s CartSnapshot) SameLines(other CartSnapshot) bool {
	a, b := s.Requirements(), other.Requirements()
	if len(a) != len(b) {
		return false
	}
	for id, q := range a {
		if b[id] != q {
			return false
		}
	}
	return true
}

// DeliveryMode способ получения заказа
type DeliveryMode string

const (
	DeliveryPickup  DeliveryMode = "pickup"
	DeliveryCourier DeliveryMode = "delivery"
)

// OrderStatus тип статуса заказа
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusReady     OrderStatus = "ready"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

var statusRank = map[OrderStatus]int{
	OrderStatusPending:   0,
	OrderStatusConfirmed: 1,
	OrderStatusReady:     2,
	OrderStatusCompleted: 3,
}

func (s OrderStatus) Valid() bool {
	_, ok := statusRank[s]
	return ok || s == OrderStatusCancelled
}

// Terminal completed и cancelled больше не меняются
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

// CanTransitionTo только на один шаг вперёд, либо отмена из нетерминального статуса
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if s.Terminal() || !next.Valid() {
		return false
	}
	if next == OrderStatusCancelled {
		return true
	}
	return statusRank[next] == statusRank[s]+1
}

// PaymentStatus статус оплаты
type PaymentStatus string

const (
	PaymentUnpaid   PaymentStatus = "unpaid"
	PaymentPaid     PaymentStatus = "paid"
	PaymentRefunded PaymentStatus = "refunded"
)

// OrderItem позиция в заказе, цена зафиксирована на момент оформления
type OrderItem struct {
	ID          int64 `json:"id" db:"id"`
	OrderID     int64 `json:"order_id" db:"order_id"`
	DrugID      int64 `json:"drug_id" db:"drug_id"`
	Quantity    int64 `json:"quantity" db:"quantity"`
	Price       int64 `json:"price" db:"price"`
	Backordered bool  `json:"backordered" db:"backordered"`
}

// Order сущность заказа
type Order struct {
	ID            int64         `json:"id" db:"id"`
	UserID        int64         `json:"user_id" db:"user_id"`
	PharmacyID    *int64        `json:"pharmacy_id" db:"pharmacy_id"`
	TotalAmount   int64         `json:"total_amount" db:"total_amount"`
	DeliveryMode  DeliveryMode  `json:"delivery_mode" db:"delivery_mode"`
	PickupCode    string        `json:"pickup_code" db:"pickup_code"`
	Status        OrderStatus   `json:"status" db:"status"`
	PaymentStatus PaymentStatus `json:"payment_status" db:"payment_status"`
	Items         []OrderItem   `json:"items" db:"-"`
	CreatedAt     time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at" db:"updated_at"`
	CompletedAt   *time.Time    `json:"completed_at,omitempty" db:"completed_at"`
}

// ItemsTotal сумма price × quantity по позициям
func (o Order) ItemsTotal() int64 {
	var sum int64
	for _, it := range o.Items {
		sum += it.Price * it.Quantity
	}
	return sum
}

// PharmacyStats сводка по заказам аптеки для экрана оператора
type PharmacyStats struct {
	PharmacyID int64 `json:"pharmacy_id" db:"pharmacy_id"`
	Total      int64 `json:"total" db:"total"`
	Pending    int64 `json:"pending" db:"pending"`
	Confirmed  int64 `json:"confirmed" db:"confirmed"`
	Ready      int64 `json:"ready" db:"ready"`
	Completed  int64 `json:"completed" db:"completed"`
	Cancelled  int64 `json:"cancelled" db:"cancelled"`
	// Revenue сумма завершённых заказов
	Revenue int64 `json:"revenue" db:"revenue"`
}

// Add учитывает заказ в сводке
func (s *PharmacyStats) Add(o Order) {
	s.Total++
	switch o.Status {
	case OrderStatusPending:
		s.Pending++
	case OrderStatusConfirmed:
		s.Confirmed++
	case OrderStatusReady:
		s.Ready++
	case OrderStatusCompleted:
		s.Completed++
		s.Revenue += o.TotalAmount
	case OrderStatusCancelled:
		s.Cancelled++
	}
}
