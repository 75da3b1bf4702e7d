package notify

//go:generate mockgen -source=notifier.go -destination=mocks/notifier.go -package=mocks

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/PharmaUz/Uz-Pharma-Bot/internal/domain"
)

// Kind тип уведомления, совпадает с суффиксом routing key
type Kind string

const (
	KindOrderCreatedBuyer    Kind = "order.created.buyer"
	KindOrderCreatedPharmacy Kind = "order.created.pharmacy"
)

// Notifier доставка уведомления получателю. Ошибка доставки не должна влиять на заказ.
type Notifier interface {
	Notify(ctx context.Context, recipient string, msg Message) error
}

type MessageItem struct {
	DrugID      int64 `json:"drug_id"`
	Quantity    int64 `json:"quantity"`
	Price       int64 `json:"price"`
	Backordered bool  `json:"backordered,omitempty"`
}

// Message payload, одинаковый для покупателя и оператора аптеки
type Message struct {
	ID              string        `json:"id"`
	Kind            Kind          `json:"kind"`
	OrderID         int64         `json:"order_id"`
	PickupCode      string        `json:"pickup_code"`
	PharmacyID      int64         `json:"pharmacy_id"`
	PharmacyName    string        `json:"pharmacy_name"`
	PharmacyAddress string        `json:"pharmacy_address,omitempty"`
	PharmacyPhone   string        `json:"pharmacy_phone,omitempty"`
	Total           int64         `json:"total"`
	Items           []MessageItem `json:"items"`
	CreatedAt       time.Time     `json:"created_at"`
}

// OrderCreated собирает уведомление о новом заказе
func OrderCreated(kind Kind, o domain.Order, ph domain.Pharmacy) Message {
	items := make([]MessageItem, len(o.Items))
	for i, it := range o.Items {
		items[i] = MessageItem{DrugID: it.DrugID, Quantity: it.Quantity, Price: it.Price, Backordered: it.Backordered}
	}
	return Message{
		ID:              uuid.NewString(),
		Kind:            kind,
		OrderID:         o.ID,
		PickupCode:      o.PickupCode,
		PharmacyID:      ph.ID,
		PharmacyName:    ph.Name,
		PharmacyAddress: ph.Address,
		PharmacyPhone:   ph.Phone,
		Total:           o.TotalAmount,
		Items:           items,
		CreatedAt:       o.CreatedAt,
	}
}

// BuyerRecipient адрес покупателя в чате
func BuyerRecipient(userID int64) string { return strconv.FormatInt(userID, 10) }
