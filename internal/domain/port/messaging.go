package port

import (
	"context"
	"encoding/json"
	"time"
)

// Envelope is the consumer's transport-agnostic representation of one
// delivered queue message.
type Envelope struct {
	ID            string
	ReceiptHandle string
	Body          json.RawMessage
	ReceiveCount  int
}

type MessageHandler interface {
	Handle(ctx context.Context, msg Envelope) error
}

type MessageHandlerFunc func(ctx context.Context, msg Envelope) error

func (f MessageHandlerFunc) Handle(ctx context.Context, msg Envelope) error {
	return f(ctx, msg)
}

// Delivery is one raw message handed back by the transport.
type Delivery struct {
	ID            string
	ReceiptHandle string
	Body          []byte
	ReceiveCount  int
}

// Transport exposes the broker's send/receive/delete primitives. Receive
// blocks up to wait for at most max messages; a received delivery stays
// invisible to other consumers of the queue for the visibility window.
// Deleting it inside that window acknowledges it for good, otherwise it is
// redelivered.
type Transport interface {
	Send(ctx context.Context, queue string, body []byte) (string, error)
	// SendWithHeaders sends like Send with broker-level headers attached,
	// used to carry the dead-letter reason alongside the original body.
	SendWithHeaders(ctx context.Context, queue string, body []byte, headers map[string]any) (string, error)
	Receive(ctx context.Context, queue string, max int, wait, visibility time.Duration) ([]Delivery, error)
	Delete(ctx context.Context, queue string, receiptHandle string) error
}

// Publisher serializes a payload and sends it to a named queue, returning
// the broker-assigned message id (empty when the broker supplies none).
type Publisher interface {
	Publish(ctx context.Context, queue string, payload any) (string, error)
}
