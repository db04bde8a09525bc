// internal/service/outreach_service.go
package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/leadloop/outreach-backend/internal/clock"
	"github.com/leadloop/outreach-backend/internal/config"
	"github.com/leadloop/outreach-backend/internal/model"
	"github.com/leadloop/outreach-backend/internal/queue"
	"github.com/leadloop/outreach-backend/internal/repository"
)

// Config holds the cadence knobs of the follow-up state machine.
type Config struct {
	// SequenceLength is the number of touches scheduled per acknowledgment.
	SequenceLength int
	// TouchInterval separates consecutive touches.
	TouchInterval time.Duration
	// FirstTouchOffset shifts the whole sequence relative to the
	// acknowledgment instant. Zero means touch #1 is due immediately.
	FirstTouchOffset time.Duration
	// QueueWindow is how long after acknowledgment touches stay visible.
	QueueWindow time.Duration
	// StaleAfter is how long after the last contact a silent contact is
	// auto-removed.
	StaleAfter time.Duration
}

func DefaultConfig() Config {
	return Config{
		SequenceLength: 3,
		TouchInterval:  24 * time.Hour,
		QueueWindow:    72 * time.Hour,
		StaleAfter:     72 * time.Hour,
	}
}

// ConfigFromApp converts the env-level configuration.
func ConfigFromApp(cfg *config.AppConfig) Config {
	return Config{
		SequenceLength:   cfg.SequenceLength,
		TouchInterval:    time.Duration(cfg.TouchIntervalHours) * time.Hour,
		FirstTouchOffset: time.Duration(cfg.FirstTouchOffsetHours) * time.Hour,
		QueueWindow:      time.Duration(cfg.QueueWindowHours) * time.Hour,
		StaleAfter:       time.Duration(cfg.StaleAfterHours) * time.Hour,
	}
}

// OutreachService owns the follow-up queue state machine: scheduling,
// evaluation, staleness sweep, response resolution and touch fulfillment.
// It has no background goroutines of its own; callers (HTTP handlers, cron
// jobs) drive it and supply "now" through the injected clock.
type OutreachService struct {
	ContactRepo  repository.ContactRepositoryInterface
	TouchRepo    repository.TouchRepositoryInterface
	LeadRepo     repository.LeadRepositoryInterface
	AuditRepo    repository.AuditRepositoryInterface
	TemplateRepo repository.TemplateRepositoryInterface
	Queue        queue.Queue
	Clock        clock.Clock
	Log          *logrus.Logger
	Config       Config
}

func (s *OutreachService) cfg() Config {
	c := s.Config
	if c.SequenceLength == 0 {
		c.SequenceLength = 3
	}
	if c.TouchInterval == 0 {
		c.TouchInterval = 24 * time.Hour
	}
	if c.QueueWindow == 0 {
		c.QueueWindow = 72 * time.Hour
	}
	if c.StaleAfter == 0 {
		c.StaleAfter = 72 * time.Hour
	}
	return c
}

func (s *OutreachService) now() time.Time {
	if s.Clock != nil {
		return s.Clock.Now()
	}
	return time.Now().UTC()
}

func (s *OutreachService) logger() *logrus.Logger {
	if s.Log != nil {
		return s.Log
	}
	return logrus.StandardLogger()
}

// audit appends one event; a failed append fails the surrounding operation
// so that mutations without an audit trail never report success.
func (s *OutreachService) audit(ctx context.Context, contactID, companyID, actorID, kind string, details map[string]any) error {
	return s.AuditRepo.Append(ctx, &model.AuditEvent{
		ContactID: contactID,
		CompanyID: companyID,
		ActorID:   actorID,
		Kind:      kind,
		Timestamp: s.now(),
		Details:   details,
	})
}

func (s *OutreachService) publishRefresh(contactID string) {
	if s.Queue == nil {
		return
	}
	if err := s.Queue.Publish(queue.TopicQueueRefresh, contactID); err != nil {
		s.logger().WithError(err).WithField("contact_id", contactID).
			Warn("failed to publish queue refresh")
	}
}
