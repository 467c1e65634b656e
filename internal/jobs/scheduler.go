// Package jobs runs the background work the request path defers: publishing
// e-invoices that were requested at payment time but not issued immediately.
package jobs

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// EinvoiceSweeper is implemented by service.EinvoicePublisher.
type EinvoiceSweeper interface {
	PublishPending(ctx context.Context) error
}

// Scheduler owns the periodic jobs. Jobs run in singleton mode so a slow
// sweep never overlaps the next tick.
type Scheduler struct {
	scheduler gocron.Scheduler
}

func NewScheduler(sweeper EinvoiceSweeper, sweepInterval time.Duration) (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	_, err = s.NewJob(
		gocron.DurationJob(sweepInterval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), sweepInterval)
			defer cancel()
			if err := sweeper.PublishPending(ctx); err != nil {
				log.Printf("ERROR: e-invoice sweep: %v", err)
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithName("einvoice-sweep"),
	)
	if err != nil {
		return nil, fmt.Errorf("register e-invoice sweep: %w", err)
	}

	return &Scheduler{scheduler: s}, nil
}

func (s *Scheduler) Start() {
	s.scheduler.Start()
	log.Println("background scheduler started")
}

func (s *Scheduler) Stop() {
	if err := s.scheduler.Shutdown(); err != nil {
		log.Printf("WARN: scheduler shutdown: %v", err)
	}
}
