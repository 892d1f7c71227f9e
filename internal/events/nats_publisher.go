package events

import (
	"encoding/json"
	"fmt"
	"log"

	"quiz-backend/internal/clients"
	"quiz-backend/internal/metrics"

	"github.com/sirupsen/logrus"
)

// NATSPublisher publishes quiz events to JetStream subjects of the form
// quiz.<network>.<contract>.<event>, e.g.
// quiz.base-sepolia.QuizEscrow.ResultRecorded. Publishing is best-effort:
// a delivery failure is logged and counted but never fails the settlement
// operation that produced the event.
type NATSPublisher struct {
	client  *clients.NATSClient
	network string
}

// NewNATSPublisher creates a publisher for one network.
func NewNATSPublisher(client *clients.NATSClient, network string) *NATSPublisher {
	return &NATSPublisher{client: client, network: network}
}

// Publish implements Publisher.
func (p *NATSPublisher) Publish(event QuizEvent) {
	if p == nil || p.client == nil {
		return
	}

	data, err := json.Marshal(event)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"event_type": event.Type,
			"error":      err.Error(),
		}).Error("Failed to marshal quiz event")
		metrics.NATSPublishFailures.WithLabelValues(event.Type).Inc()
		return
	}

	subject := fmt.Sprintf("quiz.%s.%s.%s", p.network, event.Contract, event.Type)
	if err := p.client.Publish(subject, data); err != nil {
		logrus.WithFields(logrus.Fields{
			"subject":    subject,
			"event_type": event.Type,
			"error":      err.Error(),
		}).Error("Failed to publish quiz event")
		metrics.NATSPublishFailures.WithLabelValues(event.Type).Inc()
		return
	}

	metrics.NATSEventsPublished.WithLabelValues(event.Type).Inc()
	log.Printf("📤 Published %s to %s", event.Type, subject)
}

// MultiPublisher fans one event out to several sinks (NATS plus the
// WebSocket push service).
type MultiPublisher struct {
	sinks []Publisher
}

// NewMultiPublisher creates a fan-out publisher. Nil sinks are skipped.
func NewMultiPublisher(sinks ...Publisher) *MultiPublisher {
	filtered := make([]Publisher, 0, len(sinks))
	for _, sink := range sinks {
		if sink != nil {
			filtered = append(filtered, sink)
		}
	}
	return &MultiPublisher{sinks: filtered}
}

// Publish implements Publisher.
func (p *MultiPublisher) Publish(event QuizEvent) {
	for _, sink := range p.sinks {
		sink.Publish(event)
	}
}
