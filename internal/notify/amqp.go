package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/streadway/amqp"
)

// AMQPConfig параметры exchange для исходящих уведомлений
type AMQPConfig struct {
	URL          string
	ExchangeName string
	ExchangeType string
	RoutingKey   string
}

// publisher часть *amqp.Channel, нужная notifier
type publisher interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPNotifier публикует уведомления в RabbitMQ с publisher confirms
type AMQPNotifier struct {
	cfg      AMQPConfig
	conn     *amqp.Connection
	ch       publisher
	confirms <-chan amqp.Confirmation

	// publish и ожидание подтверждения сериализуются: confirms приходят по порядку
	mu sync.Mutex
	// seq delivery tag последней публикации; в confirm mode брокер нумерует с 1
	seq uint64
}

// confirmsBuffer вмещает подтверждения, опоздавшие после таймаута;
// их вычитывает следующий Notify
const confirmsBuffer = 64

func DialAMQP(cfg AMQPConfig) (*AMQPNotifier, error) {
	log.Info().Str("url", cfg.URL).Msg("Attempting to connect to RabbitMQ")
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open producer channel: %w", err)
	}
	if err := ch.Confirm(false); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("producer channel could not be put into confirm mode: %w", err)
	}
	confirms := ch.NotifyPublish(make(chan amqp.Confirmation, confirmsBuffer))

	err = ch.ExchangeDeclare(
		cfg.ExchangeName, // name
		cfg.ExchangeType, // type
		true,             // durable
		false,            // auto-deleted
		false,            // internal
		false,            // no-wait
		nil,              // arguments
	)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", cfg.ExchangeName, err)
	}
	log.Info().Str("exchange", cfg.ExchangeName).Str("type", cfg.ExchangeType).Msg("Notification exchange declared")

	n := newAMQPNotifier(cfg, ch, confirms)
	n.conn = conn
	return n, nil
}

func newAMQPNotifier(cfg AMQPConfig, ch publisher, confirms <-chan amqp.Confirmation) *AMQPNotifier {
	return &AMQPNotifier{cfg: cfg, ch: ch, confirms: confirms}
}

func (n *AMQPNotifier) Notify(ctx context.Context, recipient string, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	err = n.ch.Publish(
		n.cfg.ExchangeName, // exchange
		n.cfg.RoutingKey,   // routing key
		false,              // mandatory
		false,              // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    msg.ID,
			Type:         string(msg.Kind),
			Timestamp:    time.Now(),
			Headers:      amqp.Table{"recipient": recipient},
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}

	n.seq++
	tag := n.seq

	for {
		select {
		case confirm, ok := <-n.confirms:
			if !ok {
				return errors.New("confirm channel closed")
			}
			if confirm.DeliveryTag < tag {
				log.Debug().Uint64("tag", confirm.DeliveryTag).Uint64("expected", tag).Msg("Dropping late confirmation")
				continue
			}
			if !confirm.Ack {
				return errors.New("message published but not confirmed by broker")
			}
			log.Debug().Uint64("tag", confirm.DeliveryTag).Str("message_id", msg.ID).Msg("Notification published and confirmed")
			return nil
		case <-ctx.Done():
			return fmt.Errorf("publish confirmation: %w", ctx.Err())
		}
	}
}

func (n *AMQPNotifier) Close() error {
	var errs []error
	if n.ch != nil {
		errs = append(errs, n.ch.Close())
	}
	if n.conn != nil && !n.conn.IsClosed() {
		errs = append(errs, n.conn.Close())
	}
	return errors.Join(errs...)
}
