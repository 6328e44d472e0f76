package services

import (
	"context"
	"log"
	"ticketing/src/lib"
)

// Sweeper holds the periodic jobs. Each run is safe to repeat.
type Sweeper struct {
	refunds *RefundEngine
	tickets *TicketStore
	days    int
}

func (s *Sweeper) AutoCompleteRefunds(ctx context.Context) (int, error) {
	n, err := s.refunds.AutoCompleteStale(ctx, s.days)
	if err != nil {
		log.Printf("[sweeper] refund auto-complete failed: %s\n", err.Error())
		return n, err
	}
	lib.SweepRows.WithLabelValues("refunds").Add(float64(n))
	return n, nil
}

func (s *Sweeper) ExpireReservations(ctx context.Context) (int, error) {
	n, err := s.tickets.ExpireReservations(ctx)
	if err != nil {
		log.Printf("[sweeper] reservation expiry failed: %s\n", err.Error())
		return n, err
	}
	if n > 0 {
		log.Printf("[sweeper] released %d expired reservations\n", n)
	}
	lib.SweepRows.WithLabelValues("reservations").Add(float64(n))
	return n, nil
}
