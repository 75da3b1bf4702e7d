package notify

import (
	"context"

	"github.com/rs/zerolog/log"
)

// LogNotifier пишет уведомления в лог вместо доставки
type LogNotifier struct{}

func NewLogNotifier() *LogNotifier { return &LogNotifier{} }

func (LogNotifier) Notify(ctx context.Context, recipient string, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	log.Info().
		Str("recipient", recipient).
		Str("kind", string(msg.Kind)).
		Str("message_id", msg.ID).
		Int64("order_id", msg.OrderID).
		Str("pickup_code", msg.PickupCode).
		Int64("pharmacy_id", msg.PharmacyID).
		Int64("total", msg.Total).
		Int("items", len(msg.Items)).
		Msg("Notification")
	return nil
}
