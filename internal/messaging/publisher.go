package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/clipflow/clipflow-orchestration-service/internal/domain/port"
	"go.uber.org/zap"
)

// Publisher serializes payloads to JSON and sends them through the
// transport. Transport failures are wrapped with the target queue name.
type Publisher struct {
	transport port.Transport
	logger    *zap.Logger
}

func NewPublisher(transport port.Transport, logger *zap.Logger) *Publisher {
	return &Publisher{transport: transport, logger: logger}
}

func (p *Publisher) Publish(ctx context.Context, queue string, payload any) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload for %s: %w", queue, err)
	}

	id, err := p.transport.Send(ctx, queue, body)
	if err != nil {
		return "", fmt.Errorf("publish message to %s: %w", queue, err)
	}

	p.logger.Debug("message published", zap.String("queue", queue), zap.String("message_id", id))
	return id, nil
}
