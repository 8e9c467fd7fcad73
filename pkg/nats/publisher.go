package nats

import (
	"encoding/json"

	"ai-gateway-be/internal/pkg/logger"
	"ai-gateway-be/pkg/events"

	"github.com/nats-io/nats.go"
)

const (
	streamName     = "EVENTS"
	subjectPattern = "events.>"
	subjectPrefix  = "events."
)

// Publisher emits pipeline telemetry events to a NATS JetStream stream.
// Publishing is best-effort: a failed publish is logged and dropped, never
// surfaced to the caller.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
	log  logger.ILogger
}

func NewPublisher(url string, log logger.ILogger) (*Publisher, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, err
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, err
	}

	// Idempotent: AddStream on an existing stream with the same config is a
	// no-op on the server side.
	if _, err := js.AddStream(&nats.StreamConfig{
		Name:     streamName,
		Subjects: []string{subjectPattern},
		Storage:  nats.FileStorage,
	}); err != nil && err != nats.ErrStreamNameAlreadyInUse {
		conn.Close()
		return nil, err
	}

	return &Publisher{conn: conn, js: js, log: log}, nil
}

func (p *Publisher) Emit(event events.Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		p.log.Warn("NatsPublisher", "failed to marshal event", map[string]interface{}{
			"event_type": event.EventType(),
			"error":      err.Error(),
		})
		return
	}

	subject := subjectPrefix + event.EventType()
	if _, err := p.js.PublishAsync(subject, payload); err != nil {
		p.log.Warn("NatsPublisher", "failed to publish event", map[string]interface{}{
			"subject": subject,
			"error":   err.Error(),
		})
	}
}

func (p *Publisher) Close() {
	p.conn.Close()
}
