package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/clipflow/clipflow-orchestration-service/internal/domain/port"
	"github.com/clipflow/clipflow-orchestration-service/internal/infra/metrics"
	"go.uber.org/zap"
)

type ConsumerState int

const (
	StateStopped ConsumerState = iota
	StateRunning
)

type ConsumerConfig struct {
	// MaxMessages bounds how many messages one poll cycle may receive.
	MaxMessages int
	// WaitTime is the long-poll bound of a single receive call.
	WaitTime time.Duration
	// Visibility is how long a received message stays hidden from other
	// consumers before the broker redelivers it.
	Visibility time.Duration
	// PollBackoff is slept after a transport-level receive failure.
	PollBackoff time.Duration
	// MaxReceives dead-letters a message after this many deliveries.
	MaxReceives int
	// DLQ is the dead-letter queue. Empty disables dead-lettering and
	// exhausted messages are dropped with an error log.
	DLQ string
}

func (c *ConsumerConfig) applyDefaults() {
	if c.MaxMessages <= 0 {
		c.MaxMessages = 10
	}
	if c.WaitTime <= 0 {
		c.WaitTime = 20 * time.Second
	}
	if c.Visibility <= 0 {
		c.Visibility = 30 * time.Second
	}
	if c.PollBackoff <= 0 {
		c.PollBackoff = 5 * time.Second
	}
	if c.MaxReceives <= 0 {
		c.MaxReceives = 5
	}
}

// queueState carries the running flag plus a generation counter, bumped on
// every start. A loop only keeps its claim on the queue while its own
// generation is current, so a stale loop from before a restart exits on its
// next check instead of polling alongside the new one.
type queueState struct {
	state ConsumerState
	gen   uint64
}

// Consumer supervises one polling loop per logical queue. Each loop
// long-polls the transport, dispatches the received batch concurrently to
// the handler and acknowledges per the outcome: delete on success, delete
// plus dead-letter on terminal failures or exhausted receive counts, leave
// for redelivery otherwise.
type Consumer struct {
	transport port.Transport
	cfg       ConsumerConfig
	logger    *zap.Logger

	mu     sync.Mutex
	states map[string]*queueState
	wg     sync.WaitGroup
}

func NewConsumer(transport port.Transport, cfg ConsumerConfig, logger *zap.Logger) *Consumer {
	cfg.applyDefaults()
	return &Consumer{
		transport: transport,
		cfg:       cfg,
		logger:    logger,
		states:    make(map[string]*queueState),
	}
}

// StartConsuming begins an independent polling loop for the queue. It
// fails if a loop for that queue is already running. Restarting a stopped
// queue bumps the generation, which retires any previous loop still
// draining an in-flight poll.
func (c *Consumer) StartConsuming(ctx context.Context, queue string, handler port.MessageHandler) error {
	c.mu.Lock()
	st := c.states[queue]
	if st == nil {
		st = &queueState{}
		c.states[queue] = st
	}
	if st.state == StateRunning {
		c.mu.Unlock()
		return fmt.Errorf("consumer for queue %s is already running", queue)
	}
	st.state = StateRunning
	st.gen++
	gen := st.gen
	c.mu.Unlock()

	c.wg.Add(1)
	go c.consumeLoop(ctx, queue, gen, handler)
	return nil
}

// Stop flags the queue's loop to halt before its next poll cycle. In-flight
// handler invocations are not interrupted.
func (c *Consumer) Stop(queue string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if st, ok := c.states[queue]; ok {
		st.state = StateStopped
	}
}

// StopAll flags every running loop to halt.
func (c *Consumer) StopAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, st := range c.states {
		st.state = StateStopped
	}
}

// Wait blocks until all polling loops have exited.
func (c *Consumer) Wait() {
	c.wg.Wait()
}

func (c *Consumer) running(queue string, gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.states[queue]
	return ok && st.state == StateRunning && st.gen == gen
}

// release marks the queue stopped on loop exit, unless a newer generation
// already took it over.
func (c *Consumer) release(queue string, gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if st, ok := c.states[queue]; ok && st.gen == gen {
		st.state = StateStopped
	}
}

func (c *Consumer) consumeLoop(ctx context.Context, queue string, gen uint64, handler port.MessageHandler) {
	defer c.wg.Done()
	defer c.release(queue, gen)

	log := c.logger.With(zap.String("queue", queue))
	log.Info("consumer started")
	metrics.ActiveConsumers.Inc()
	defer metrics.ActiveConsumers.Dec()

	for c.running(queue, gen) {
		if ctx.Err() != nil {
			break
		}

		deliveries, err := c.transport.Receive(ctx, queue, c.cfg.MaxMessages, c.cfg.WaitTime, c.cfg.Visibility)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			metrics.PollErrorsTotal.WithLabelValues(queue).Inc()
			log.Warn("poll failed, backing off", zap.Error(err), zap.Duration("backoff", c.cfg.PollBackoff))
			select {
			case <-time.After(c.cfg.PollBackoff):
			case <-ctx.Done():
			}
			continue
		}
		if len(deliveries) == 0 {
			continue
		}

		var batch sync.WaitGroup
		for _, d := range deliveries {
			batch.Add(1)
			go func(d port.Delivery) {
				defer batch.Done()
				c.processDelivery(ctx, queue, d, handler, log)
			}(d)
		}
		batch.Wait()
	}

	log.Info("consumer stopped")
}

func (c *Consumer) processDelivery(ctx context.Context, queue string, d port.Delivery, handler port.MessageHandler, log *zap.Logger) {
	log = log.With(zap.String("message_id", d.ID))

	body, err := normalizeBody(d.Body)
	if err != nil {
		log.Error("message body is not valid JSON, dead-lettering", zap.Error(err))
		c.deadLetter(ctx, queue, d, "malformed body: "+err.Error(), log)
		c.ack(ctx, queue, d, log)
		metrics.MessagesConsumedTotal.WithLabelValues(queue, "malformed").Inc()
		return
	}

	env := port.Envelope{
		ID:            d.ID,
		ReceiptHandle: d.ReceiptHandle,
		Body:          body,
		ReceiveCount:  d.ReceiveCount,
	}

	start := time.Now()
	err = handler.Handle(ctx, env)
	metrics.HandleDuration.WithLabelValues(queue).Observe(time.Since(start).Seconds())

	switch {
	case err == nil:
		c.ack(ctx, queue, d, log)
		metrics.MessagesConsumedTotal.WithLabelValues(queue, "ok").Inc()

	case IsTerminal(err):
		log.Error("terminal handler failure, dead-lettering", zap.Error(err))
		c.deadLetter(ctx, queue, d, err.Error(), log)
		c.ack(ctx, queue, d, log)
		metrics.MessagesConsumedTotal.WithLabelValues(queue, "dead_letter").Inc()

	case d.ReceiveCount >= c.cfg.MaxReceives:
		log.Error("receive count exhausted, dead-lettering",
			zap.Error(err),
			zap.Int("receive_count", d.ReceiveCount),
			zap.Int("max_receives", c.cfg.MaxReceives),
		)
		c.deadLetter(ctx, queue, d, fmt.Sprintf("max receives exceeded: %s", err), log)
		c.ack(ctx, queue, d, log)
		metrics.MessagesConsumedTotal.WithLabelValues(queue, "dead_letter").Inc()

	default:
		// Left undeleted on purpose: the broker redelivers it once the
		// visibility window expires.
		log.Warn("handler failed, leaving message for redelivery",
			zap.Error(err),
			zap.Int("receive_count", d.ReceiveCount),
		)
		metrics.MessagesConsumedTotal.WithLabelValues(queue, "retry").Inc()
	}
}

func (c *Consumer) ack(ctx context.Context, queue string, d port.Delivery, log *zap.Logger) {
	if err := c.transport.Delete(ctx, queue, d.ReceiptHandle); err != nil {
		log.Error("failed to delete message", zap.Error(err))
	}
}

func (c *Consumer) deadLetter(ctx context.Context, queue string, d port.Delivery, reason string, log *zap.Logger) {
	if c.cfg.DLQ == "" {
		log.Error("no dead-letter queue configured, dropping message", zap.String("reason", reason))
		return
	}
	headers := map[string]any{
		"x-dlq-reason":   reason,
		"x-origin-queue": queue,
	}
	if _, err := c.transport.SendWithHeaders(ctx, c.cfg.DLQ, d.Body, headers); err != nil {
		log.Error("failed to dead-letter message",
			zap.String("dlq", c.cfg.DLQ),
			zap.String("reason", reason),
			zap.Error(err),
		)
		return
	}
	log.Info("message dead-lettered", zap.String("dlq", c.cfg.DLQ), zap.String("reason", reason))
}

// normalizeBody unwraps a double-JSON-encoded payload, a transport artifact
// where the body arrives as a JSON string containing JSON.
func normalizeBody(raw []byte) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty message body")
	}

	if trimmed[0] == '"' {
		var inner string
		if err := json.Unmarshal(trimmed, &inner); err != nil {
			return nil, fmt.Errorf("decode outer string: %w", err)
		}
		trimmed = bytes.TrimSpace([]byte(inner))
	}

	if !json.Valid(trimmed) {
		return nil, fmt.Errorf("invalid JSON body")
	}
	return json.RawMessage(trimmed), nil
}
