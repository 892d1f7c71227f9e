package clients

import (
	"fmt"
	"log"
	"time"

	"quiz-backend/internal/config"
	"quiz-backend/internal/metrics"

	"github.com/nats-io/nats.go"
)

// NATSClient wraps a JetStream connection used to publish quiz events.
type NATSClient struct {
	conn       *nats.Conn
	js         nats.JetStreamContext
	streamName string
}

// NewNATSClient connects to the NATS server and ensures the event stream
// exists.
func NewNATSClient(url, streamName string) (*NATSClient, error) {
	var connectTimeout time.Duration = 10 * time.Second
	if config.AppConfig != nil && config.AppConfig.NATS.Timeout > 0 {
		connectTimeout = time.Duration(config.AppConfig.NATS.Timeout) * time.Second
		log.Printf("🔌 Using configured NATS timeout: %v", connectTimeout)
	}

	conn, err := nats.Connect(url,
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(5*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Printf("⚠️ NATS disconnected: %v", err)
			metrics.NATSConnectionStatus.Set(0)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Printf("✅ NATS reconnected")
			metrics.NATSConnectionStatus.Set(1)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	client := &NATSClient{
		conn:       conn,
		js:         js,
		streamName: streamName,
	}

	if err := client.ensureStream(); err != nil {
		conn.Close()
		return nil, err
	}

	metrics.NATSConnectionStatus.Set(1)
	return client, nil
}

// ensureStream creates the quiz event stream if it does not exist yet.
func (c *NATSClient) ensureStream() error {
	_, err := c.js.StreamInfo(c.streamName)
	if err == nil {
		log.Printf("📋 Stream %s already exists", c.streamName)
		return nil
	}

	streamConfig := &nats.StreamConfig{
		Name: c.streamName,
		Subjects: []string{
			"quiz.*.MotherFactory.*",
			"quiz.*.QuizHandler.*",
			"quiz.*.QuizEscrow.*",
			// Match all quiz events (fallback)
			"quiz.*.*.*",
		},
		Retention: nats.LimitsPolicy,
		MaxAge:    24 * time.Hour,
		Storage:   nats.FileStorage,
	}

	_, err = c.js.AddStream(streamConfig)
	if err != nil {
		return fmt.Errorf("failed to create stream %s: %w", c.streamName, err)
	}

	log.Printf("✅ Stream %s created", c.streamName)
	return nil
}

// Publish sends a message to a subject through JetStream.
func (c *NATSClient) Publish(subject string, data []byte) error {
	_, err := c.js.Publish(subject, data)
	return err
}

// Close drains and closes the connection.
func (c *NATSClient) Close() {
	if c.conn != nil {
		c.conn.Close()
	}
	metrics.NATSConnectionStatus.Set(0)
}
