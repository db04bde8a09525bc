// cmd/worker/main.go
package main

import (
	"context"
	"encoding/json"

	"github.com/streadway/amqp"

	"github.com/leadloop/outreach-backend/internal/clock"
	"github.com/leadloop/outreach-backend/internal/config"
	"github.com/leadloop/outreach-backend/internal/db"
	"github.com/leadloop/outreach-backend/internal/logger"
	"github.com/leadloop/outreach-backend/internal/repository"
	"github.com/leadloop/outreach-backend/internal/service"
)

type queueJob struct {
	TouchID string `json:"touch_id"`
}

const maxDeliveryAttempts = 3

// retryCount reads the x-retry-count header. AMQP decodes numeric header
// values as int32 or int64 depending on the publisher, so every integer
// width is accepted; anything else counts as a first attempt.
func retryCount(headers amqp.Table) int {
	switch v := headers["x-retry-count"].(type) {
	case int:
		return v
	case int8:
		return int(v)
	case int16:
		return int(v)
	case int32:
		return int(v)
	case int64:
		return int(v)
	}
	return 0
}

// republish re-enqueues a failed delivery with the retry counter bumped. A
// plain Nack would requeue the original message with its original headers
// and the counter would never advance.
func republish(ch *amqp.Channel, queueName string, d amqp.Delivery) error {
	return ch.Publish("", queueName, false, false, amqp.Publishing{
		ContentType: "application/json",
		Headers:     amqp.Table{"x-retry-count": int32(retryCount(d.Headers) + 1)},
		Body:        d.Body,
	})
}

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
		ContactRepo:  &repository.ContactRepository{DB: conn},
		TouchRepo:    &repository.TouchRepository{DB: conn},
		LeadRepo:     &repository.LeadRepository{DB: conn},
		AuditRepo:    &repository.AuditRepository{DB: conn},
		TemplateRepo: &repository.TemplateRepository{DB: conn},
		Clock:        clock.System(),
		Log:          log,
		Config:       service.ConfigFromApp(cfg),
	}

	// Delivery is a structured log line; swap for email or a Slack webhook
	// without touching the consume loop.
	notifier := service.NewNotifier(svc, nil, func(r service.Reminder) error {
		log.WithFields(map[string]any{
			"touch_id":     r.TouchID,
			"contact":      r.ContactName,
			"company":      r.CompanyName,
			"followup_day": r.FollowupDay,
		}).Info(r.Message)
		return nil
	})

	amqpConn, err := amqp.Dial(cfg.AMQPURL)
	if err != nil {
		log.WithError(err).Fatal("could not connect to RabbitMQ")
	}
	defer amqpConn.Close()

	ch, err := amqpConn.Channel()
	if err != nil {
		log.WithError(err).Fatal("could not open channel")
	}
	defer ch.Close()

	q, err := ch.QueueDeclare(
		"followup_events", // name
		true,              // durable
		false,             // delete when unused
		false,             // exclusive
		false,             // no-wait
		nil,               // arguments
	)
	if err != nil {
		log.WithError(err).Fatal("could not declare queue")
	}

	msgs, err := ch.Consume(
		q.Name,
		"",
		false, // autoAck = false for reliability
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		log.WithError(err).Fatal("could not register consumer")
	}

	forever := make(chan bool)

	go func() {
		for d := range msgs {
			var job queueJob
			if err := json.Unmarshal(d.Body, &job); err != nil {
				log.WithError(err).Warn("invalid job payload")
				d.Ack(false)
				continue
			}

			if err := notifier.Process(context.Background(), job.TouchID); err != nil {
				attempt := retryCount(d.Headers)
				log.WithError(err).WithFields(map[string]any{
					"touch_id": job.TouchID,
					"attempt":  attempt,
				}).Error("failed to process follow-up event")
				if attempt+1 < maxDeliveryAttempts {
					if pubErr := republish(ch, q.Name, d); pubErr != nil {
						log.WithError(pubErr).Error("could not requeue follow-up event")
						d.Nack(false, true)
						continue
					}
				} else {
					log.WithField("touch_id", job.TouchID).Error("dropping follow-up event after repeated failures")
				}
			}

			d.Ack(false)
		}
	}()

	log.Info("worker running, waiting for follow-up events")
	<-forever
}
