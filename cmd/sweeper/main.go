// cmd/sweeper/main.go
//
// Background jobs: the staleness sweep (default every 5 minutes) and the
// schedule reconciliation pass (default hourly). Runs both once at startup
// so a freshly deployed sweeper catches up immediately.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/leadloop/outreach-backend/internal/clock"
	"github.com/leadloop/outreach-backend/internal/config"
	"github.com/leadloop/outreach-backend/internal/db"
	"github.com/leadloop/outreach-backend/internal/logger"
	"github.com/leadloop/outreach-backend/internal/repository"
	"github.com/leadloop/outreach-backend/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Get().WithError(err).Fatal("could not load configuration")
	}
	logger.Init(cfg)
	log := logger.Get()

	conn, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.WithError(err).Fatal("could not connect to database")
	}
	defer conn.Close()

	svc := &service.OutreachService{
		ContactRepo: &repository.ContactRepository{DB: conn},
		TouchRepo:   &repository.TouchRepository{DB: conn},
		LeadRepo:    &repository.LeadRepository{DB: conn},
		AuditRepo:   &repository.AuditRepository{DB: conn},
		Clock:       clock.System(),
		Log:         log,
		Config:      service.ConfigFromApp(cfg),
	}

	runSweep := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Minute)
		defer cancel()
		removed, err := svc.SweepStaleContacts(ctx)
		if err != nil {
			log.WithError(err).Error("staleness sweep failed")
			return
		}
		log.WithField("removed", len(removed)).Debug("staleness sweep completed")
	}

	runReconcile := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		created, err := svc.ReconcileSchedules(ctx)
		if err != nil {
			log.WithError(err).Error("schedule reconciliation failed")
			return
		}
		log.WithField("created", created).Debug("schedule reconciliation completed")
	}

	runSweep()
	runReconcile()

	c := cron.New()
	if _, err := c.AddFunc(cfg.CronSpecSweep, runSweep); err != nil {
		log.WithError(err).Fatal("could not register sweep job")
	}
	if _, err := c.AddFunc(cfg.CronSpecReconcile, runReconcile); err != nil {
		log.WithError(err).Fatal("could not register reconcile job")
	}
	c.Start()
	log.WithFields(map[string]any{
		"sweep":     cfg.CronSpecSweep,
		"reconcile": cfg.CronSpecReconcile,
	}).Info("sweeper running")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down sweeper")
	<-c.Stop().Done()
	log.Info("sweeper stopped")
}
