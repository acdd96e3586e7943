package email

import (
	"context"
	"fmt"

	"github.com/avelinag/skyfare/internal/kafka"
)

type Sender struct{}

func NewSender() *Sender {
	return &Sender{}
}

func (s *Sender) Send(ctx context.Context, event kafka.BookingEvent) error {
	fmt.Printf("send email about %s for booking %d (flight %d, seat %s, pnr %s)\n",
		event.Type, event.BookingID, event.FlightID, event.SeatLabel, event.PNR)
	return nil
}
