package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// BookingEvent is the JSON payload published on every booking transition.
type BookingEvent struct {
	Type          string  `json:"type"`
	BookingID     int64   `json:"booking_id"`
	FlightID      int64   `json:"flight_id"`
	SeatLabel     string  `json:"seat_label"`
	PNR           string  `json:"pnr,omitempty"`
	Email         string  `json:"email"`
	Status        string  `json:"status"`
	PaymentStatus string  `json:"payment_status"`
	Price         float64 `json:"price"`
	PaymentRef    string  `json:"payment_ref,omitempty"`
}

type Producer struct {
	writer *kafka.Writer
}

func NewProducer(brokers []string) *Producer {
	return &Producer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Balancer:     &kafka.LeastBytes{},
			BatchTimeout: 50 * time.Millisecond,
			RequiredAcks: kafka.RequireOne,
		},
	}
}

func (p *Producer) Publish(ctx context.Context, topic, key string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	message := kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: data,
		Time:  time.Now(),
	}
	if err := p.writer.WriteMessages(ctx, message); err != nil {
		return fmt.Errorf("failed to write message to kafka: %w", err)
	}
	return nil
}

func (p *Producer) Close() error {
	if p.writer != nil {
		return p.writer.Close()
	}
	return nil
}
