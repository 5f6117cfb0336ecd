package events

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"presenca-bot/internal/attendance"
)

const RoutingKeyProofSubmitted = "proof.submitted"

type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Rabbit publishes attendance events to a topic exchange.
type Rabbit struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	pub      publisher
	exchange string
	log      zerolog.Logger
}

var _ attendance.Notifier = (*Rabbit)(nil)

func NewRabbit(url, exchange string, log zerolog.Logger) (*Rabbit, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		log.Error().Err(err).Msg("failed to connect to RabbitMQ")
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		log.Error().Err(err).Msg("failed to open RabbitMQ channel")
		return nil, err
	}

	if err := ch.ExchangeDeclare(
		exchange,
		"topic",
		true,
		false,
		false,
		false,
		nil,
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		log.Error().Err(err).Msg("failed to declare exchange")
		return nil, err
	}

	log.Info().Str("exchange", exchange).Msg("RabbitMQ initialized")

	return &Rabbit{conn: conn, channel: ch, pub: ch, exchange: exchange, log: log}, nil
}

func (r *Rabbit) Close() {
	if r.channel != nil {
		_ = r.channel.Close()
	}
	if r.conn != nil {
		_ = r.conn.Close()
	}
	r.log.Info().Msg("RabbitMQ connection closed")
}

type proofSubmittedMessage struct {
	Name        string    `json:"name"`
	Phone       string    `json:"phone"`
	Type        string    `json:"type"`
	Status      string    `json:"status"`
	FileName    string    `json:"file_name"`
	BlobID      string    `json:"blob_id"`
	SubmittedAt time.Time `json:"submitted_at"`
}

func (r *Rabbit) ProofSubmitted(ctx context.Context, ev attendance.ProofSubmitted) error {
	body, err := json.Marshal(proofSubmittedMessage{
		Name:        ev.Participant.Name,
		Phone:       ev.Participant.Phone,
		Type:        string(ev.Participant.Type),
		Status:      string(ev.Participant.Status),
		FileName:    ev.FileName,
		BlobID:      ev.BlobID,
		SubmittedAt: ev.SubmittedAt.UTC(),
	})
	if err != nil {
		return err
	}

	err = r.pub.PublishWithContext(ctx,
		r.exchange,
		RoutingKeyProofSubmitted,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
			Timestamp:    ev.SubmittedAt,
		},
	)
	if err != nil {
		r.log.Error().Err(err).Str("routing_key", RoutingKeyProofSubmitted).Msg("failed to publish message to RabbitMQ")
		return err
	}
	r.log.Debug().Str("exchange", r.exchange).Str("file", ev.FileName).Msg("message published")
	return nil
}
