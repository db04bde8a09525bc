package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Topics published by the core services.
const (
	// TopicQueueRefresh fires after every queue-affecting mutation; the
	// payload is the contact id. Subscribers re-evaluate their view, the
	// same role the realtime channel played in the original UI.
	TopicQueueRefresh = "queue_refresh"
	// TopicFollowupSent carries the id of a touch that was just marked sent.
	TopicFollowupSent = "followup_sent"
)

// Queue interface
type Queue interface {
	Publish(topic string, payload any) error
	Subscribe(topic string, handler func(payload any) error) error
}

// InMemoryQueue is an in-process pub/sub queue with retry
type InMemoryQueue struct {
	mu       sync.Mutex
	handlers map[string][]func(payload any) error
}

// NewInMemoryQueue creates a new queue
func NewInMemoryQueue() *InMemoryQueue {
	return &InMemoryQueue{
		handlers: make(map[string][]func(payload any) error),
	}
}

// JobPayload wraps a message payload with retry info
type JobPayload struct {
	Payload    any
	RetryCount int
	MaxRetries int
}

// Publish sends a message to all subscribers. Unlike the amqp path there is
// no durability; a topic with no subscribers is not an error.
func (q *InMemoryQueue) Publish(topic string, payload any) error {
	q.mu.Lock()
	handlers := q.handlers[topic]
	q.mu.Unlock()

	job := JobPayload{
		Payload:    payload,
		RetryCount: 0,
		MaxRetries: 3,
	}

	for _, handler := range handlers {
		go q.processJob(topic, handler, job)
	}

	return nil
}

// processJob handles retries and errors
func (q *InMemoryQueue) processJob(topic string, handler func(payload any) error, job JobPayload) {
	for job.RetryCount <= job.MaxRetries {
		err := handler(job.Payload)
		if err == nil {
			return // ACK
		}

		job.RetryCount++
		if job.RetryCount > job.MaxRetries {
			logrus.WithFields(logrus.Fields{
				"topic":   topic,
				"payload": fmt.Sprintf("%v", job.Payload),
			}).Warnf("job permanently failed after %d attempts", job.MaxRetries)
			return // No requeue
		}

		// Backoff before retry
		time.Sleep(time.Duration(job.RetryCount*500) * time.Millisecond)
	}
}

// Subscribe adds a handler for a topic
func (q *InMemoryQueue) Subscribe(topic string, handler func(payload any) error) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.handlers[topic] = append(q.handlers[topic], handler)
	return nil
}

// StartQueueRefreshSubscriber logs the current due count whenever the queue
// changes. dueCount is injected to avoid a dependency on the service layer.
func StartQueueRefreshSubscriber(q Queue, dueCount func(ctx context.Context) (int, error), log *logrus.Logger) {
	err := q.Subscribe(TopicQueueRefresh, func(payload any) error {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		n, err := dueCount(ctx)
		if err != nil {
			return err
		}
		log.WithFields(logrus.Fields{
			"contact_id": payload,
			"due_now":    n,
		}).Debug("follow-up queue refreshed")
		return nil
	})
	if err != nil {
		log.WithError(err).Warn("failed to start queue refresh subscriber")
	}
}
