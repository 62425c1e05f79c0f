package rabbitmq

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/clipflow/clipflow-orchestration-service/internal/domain/port"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// getInterval paces the basic.Get calls that emulate a long-poll receive.
const getInterval = 250 * time.Millisecond

type TransportConfig struct {
	URL string
	// Queues are declared durable at startup.
	Queues []string
}

// Transport implements port.Transport over RabbitMQ. Received messages are
// left unacked and tracked under a synthetic receipt handle; Delete acks
// them, and a visibility timer nacks them back onto the queue when the
// handle is never deleted.
type Transport struct {
	conn   *amqp.Connection
	ch     *amqp.Channel
	logger *zap.Logger

	mu      sync.Mutex
	pending map[string]*pendingDelivery
	// counts tracks deliveries per message id. A visibility-expiry nack
	// requeues without touching x-death, so the broker headers alone
	// undercount redeliveries.
	counts map[string]int
}

type pendingDelivery struct {
	tag   uint64
	msgID string
	timer *time.Timer
}

func NewTransport(cfg TransportConfig, logger *zap.Logger) (*Transport, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	for _, q := range cfg.Queues {
		if _, err := ch.QueueDeclare(q, true, false, false, false, nil); err != nil {
			ch.Close()
			conn.Close()
			return nil, fmt.Errorf("declare queue %s: %w", q, err)
		}
	}

	return &Transport{
		conn:    conn,
		ch:      ch,
		logger:  logger,
		pending: make(map[string]*pendingDelivery),
		counts:  make(map[string]int),
	}, nil
}

func (t *Transport) Send(ctx context.Context, queue string, body []byte) (string, error) {
	return t.publish(ctx, queue, body, nil)
}

func (t *Transport) SendWithHeaders(ctx context.Context, queue string, body []byte, headers map[string]any) (string, error) {
	return t.publish(ctx, queue, body, amqp.Table(headers))
}

func (t *Transport) publish(ctx context.Context, queue string, body []byte, headers amqp.Table) (string, error) {
	id := uuid.NewString()

	t.mu.Lock()
	defer t.mu.Unlock()
	err := t.ch.PublishWithContext(ctx,
		"",
		queue,
		false, false,
		amqp.Publishing{
			ContentType:  "application/json",
			MessageId:    id,
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			Headers:      headers,
		},
	)
	if err != nil {
		return "", fmt.Errorf("send to %s: %w", queue, err)
	}
	return id, nil
}

// Receive drains up to max messages, blocking up to wait for the first one
// to arrive. Each returned delivery stays invisible for the visibility
// window, then is requeued unless deleted first.
func (t *Transport) Receive(ctx context.Context, queue string, max int, wait, visibility time.Duration) ([]port.Delivery, error) {
	deadline := time.Now().Add(wait)
	var out []port.Delivery

	for {
		for len(out) < max {
			msg, ok, err := t.get(queue)
			if err != nil {
				return nil, fmt.Errorf("receive from %s: %w", queue, err)
			}
			if !ok {
				break
			}
			out = append(out, t.track(msg, visibility))
		}

		if len(out) > 0 || !time.Now().Before(deadline) {
			return out, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(getInterval):
		}
	}
}

func (t *Transport) Delete(ctx context.Context, queue, receiptHandle string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	p, ok := t.pending[receiptHandle]
	if !ok {
		return fmt.Errorf("unknown or expired receipt handle for %s", queue)
	}
	p.timer.Stop()
	delete(t.pending, receiptHandle)
	if p.msgID != "" {
		delete(t.counts, p.msgID)
	}

	if err := t.ch.Ack(p.tag, false); err != nil {
		return fmt.Errorf("ack message on %s: %w", queue, err)
	}
	return nil
}

func (t *Transport) Close() error {
	t.mu.Lock()
	for handle, p := range t.pending {
		p.timer.Stop()
		delete(t.pending, handle)
	}
	clear(t.counts)
	t.mu.Unlock()

	if t.ch != nil {
		t.ch.Close()
	}
	if t.conn != nil {
		return t.conn.Close()
	}
	return nil
}

func (t *Transport) get(queue string) (amqp.Delivery, bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ch.Get(queue, false)
}

func (t *Transport) track(msg amqp.Delivery, visibility time.Duration) port.Delivery {
	handle := uuid.NewString()

	t.mu.Lock()
	count := t.bumpCountLocked(msg)
	t.pending[handle] = &pendingDelivery{
		tag:   msg.DeliveryTag,
		msgID: msg.MessageId,
		timer: time.AfterFunc(visibility, func() { t.expire(handle) }),
	}
	t.mu.Unlock()

	id := msg.MessageId
	if id == "" {
		id = handle
	}
	return port.Delivery{
		ID:            id,
		ReceiptHandle: handle,
		Body:          msg.Body,
		ReceiveCount:  count,
	}
}

// bumpCountLocked increments the local delivery count for the message,
// taking the broker-derived count as a floor in case another transport
// instance saw the message first. Caller holds t.mu.
func (t *Transport) bumpCountLocked(msg amqp.Delivery) int {
	floor := brokerReceiveCount(msg)
	id := msg.MessageId
	if id == "" {
		return floor
	}
	count := t.counts[id] + 1
	if floor > count {
		count = floor
	}
	t.counts[id] = count
	return count
}

// expire requeues a delivery whose visibility window ran out without a
// Delete, making it visible to consumers again.
func (t *Transport) expire(handle string) {
	t.mu.Lock()
	p, ok := t.pending[handle]
	if ok {
		delete(t.pending, handle)
	}
	t.mu.Unlock()
	if !ok {
		return
	}

	if err := t.ch.Nack(p.tag, false, true); err != nil {
		t.logger.Error("failed to requeue expired delivery", zap.Error(err))
	}
}

func brokerReceiveCount(msg amqp.Delivery) int {
	if msg.Headers != nil {
		if xDeath, ok := msg.Headers["x-death"]; ok {
			if deaths, ok := xDeath.([]interface{}); ok && len(deaths) > 0 {
				return len(deaths) + 1
			}
		}
	}
	if msg.Redelivered {
		return 2
	}
	return 1
}
