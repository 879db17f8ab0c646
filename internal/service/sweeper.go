package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/stylelane/orders-service/internal/repository"
)

// Sweeper reclaims reservations whose CreateOrder call died between the
// stock decrement and the order persist. A held reservation older than
// the grace window can no longer be bound to an order and is released.
type Sweeper struct {
	reservations repository.ReservationRepository
	ledger       repository.InventoryLedger
	interval     time.Duration
	grace        time.Duration
	log          *zap.Logger

	stop chan struct{}
	wg   sync.WaitGroup
}

func NewSweeper(
	reservations repository.ReservationRepository,
	ledger repository.InventoryLedger,
	interval, grace time.Duration,
	log *zap.Logger,
) *Sweeper {
	return &Sweeper{
		reservations: reservations,
		ledger:       ledger,
		interval:     interval,
		grace:        grace,
		log:          log,
		stop:         make(chan struct{}),
	}
}

func (s *Sweeper) Start() {
	s.wg.Add(1)
	go s.loop()
}

func (s *Sweeper) loop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Sweep(context.Background())
		case <-s.stop:
			return
		}
	}
}

// Sweep releases all abandoned reservations and returns how many it
// reclaimed.
func (s *Sweeper) Sweep(ctx context.Context) int {
	cutoff := time.Now().UTC().Add(-s.grace)
	abandoned, err := s.reservations.ListAbandoned(ctx, cutoff)
	if err != nil {
		s.log.Error("abandoned reservation lookup failed", zap.Error(err))
		return 0
	}

	released := 0
	for _, res := range abandoned {
		if err := s.ledger.Release(ctx, res.Ref(), res.Quantity); err != nil {
			s.log.Error("abandoned reservation release failed",
				zap.String("reservation_id", res.ID.String()), zap.Error(err))
			continue
		}
		if err := s.reservations.MarkReleased(ctx, res.ID); err != nil {
			s.log.Error("reservation status update failed",
				zap.String("reservation_id", res.ID.String()), zap.Error(err))
			continue
		}
		released++
	}

	if released > 0 {
		s.log.Info("abandoned reservations released", zap.Int("count", released))
	}
	return released
}

func (s *Sweeper) Close() {
	close(s.stop)
	s.wg.Wait()
}
