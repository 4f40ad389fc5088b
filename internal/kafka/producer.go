package kafka

import (
	"context"
	"encoding/json"
	"time"

	"ms-payments/internal/logger"

	"github.com/segmentio/kafka-go"
)

// Payment lifecycle event types.
const (
	EventChargeSucceeded     = "payment.charge_succeeded"
	EventRefundSucceeded     = "payment.refund_succeeded"
	EventRefundFailed        = "payment.refund_failed"
	EventAccountDeauthorized = "payment.account_deauthorized"
)

// PaymentEvent is the payload streamed for every payment lifecycle change.
type PaymentEvent struct {
	Type           string    `json:"type"`
	ChargeID       string    `json:"charge_id,omitempty"`
	ReservationID  string    `json:"reservation_id,omitempty"`
	AccountID      string    `json:"account_id,omitempty"`
	OrganizationID string    `json:"organization_id,omitempty"`
	Amount         *int64    `json:"amount,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

type Producer struct {
	Writer *kafka.Writer
	Log    *logger.Logger
}

func NewProducer(brokers []string, topic string, log *logger.Logger) *Producer {
	writer := kafka.NewWriter(kafka.WriterConfig{
		Brokers: brokers,
		Topic:   topic,
	})
	return &Producer{Writer: writer, Log: log}
}

func (p *Producer) publish(key string, event PaymentEvent) error {
	event.Timestamp = time.Now().UTC()
	msgBytes, err := json.Marshal(event)
	if err != nil {
		return err
	}

	p.Log.LogKafka("PUBLISH", p.Writer.Topic, event.Type+" "+key)

	return p.Writer.WriteMessages(context.Background(),
		kafka.Message{
			Key:   []byte(key),
			Value: msgBytes,
		},
	)
}

// PublishChargeSucceeded streams a successful charge event.
func (p *Producer) PublishChargeSucceeded(chargeID, reservationID string, amount int64) error {
	return p.publish(chargeID, PaymentEvent{
		Type:          EventChargeSucceeded,
		ChargeID:      chargeID,
		ReservationID: reservationID,
		Amount:        &amount,
	})
}

// PublishRefundOutcome streams the outcome of a refund attempt. A nil
// amount marks a full refund.
func (p *Producer) PublishRefundOutcome(chargeID string, amount *int64, succeeded bool) error {
	eventType := EventRefundSucceeded
	if !succeeded {
		eventType = EventRefundFailed
	}
	return p.publish(chargeID, PaymentEvent{
		Type:     eventType,
		ChargeID: chargeID,
		Amount:   amount,
	})
}

// PublishAccountDeauthorized streams a credential revocation event.
func (p *Producer) PublishAccountDeauthorized(accountID, organizationID string) error {
	return p.publish(accountID, PaymentEvent{
		Type:           EventAccountDeauthorized,
		AccountID:      accountID,
		OrganizationID: organizationID,
	})
}

func (p *Producer) Close() error {
	return p.Writer.Close()
}
