package usecase

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/clipflow/clipflow-orchestration-service/internal/domain/entity"
	"github.com/clipflow/clipflow-orchestration-service/internal/domain/port"
	"github.com/clipflow/clipflow-orchestration-service/internal/messaging"
	"github.com/clipflow/clipflow-orchestration-service/internal/objectkey"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// MediaEventHandler turns storage-created notifications into video jobs.
// Records in a batch are processed independently: a failing record is
// logged and does not block the ones after it, and the batch itself never
// fails on per-record errors.
type MediaEventHandler struct {
	process *ProcessMediaFileHandler
	logger  *zap.Logger
}

func NewMediaEventHandler(process *ProcessMediaFileHandler, logger *zap.Logger) *MediaEventHandler {
	return &MediaEventHandler{process: process, logger: logger}
}

func (h *MediaEventHandler) Handle(ctx context.Context, msg port.Envelope) error {
	tracer := otel.Tracer("usecase")
	ctx, span := tracer.Start(ctx, "MediaEventHandler.Handle")
	defer span.End()

	body, err := unwrapEventBody(msg.Body)
	if err != nil {
		h.logger.Error("undecodable storage event", zap.String("message_id", msg.ID), zap.Error(err))
		return messaging.Terminal(fmt.Errorf("decode storage event: %w", err))
	}
	if len(body.Records) == 0 {
		h.logger.Warn("storage event without records", zap.String("message_id", msg.ID))
		return nil
	}

	span.SetAttributes(attribute.Int("event.records", len(body.Records)))

	for _, record := range body.Records {
		if err := h.processRecord(ctx, record); err != nil {
			h.logger.Error("failed to process storage record",
				zap.String("object_key", record.S3.Object.Key),
				zap.Error(err),
			)
		}
	}
	return nil
}

func (h *MediaEventHandler) processRecord(ctx context.Context, record entity.StorageEventRecord) error {
	key := record.S3.Object.Key

	info := objectkey.ExtractFileInfo(key)
	if info.OwnerID == "" {
		h.logger.Warn("could not extract owner id from object key, skipping record",
			zap.String("object_key", key),
		)
		return nil
	}

	_, err := h.process.Handle(ctx, ProcessMediaFileCommand{
		UserID:         info.OwnerID,
		SourceFileKey:  key,
		SourceFileName: info.FileName,
	})
	return err
}

// unwrapEventBody tolerates one level of transport nesting, where the
// records payload arrives as a JSON string under an outer Body field.
func unwrapEventBody(raw json.RawMessage) (*entity.StorageEventBody, error) {
	var outer struct {
		Body string `json:"Body"`
	}
	if err := json.Unmarshal(raw, &outer); err == nil && outer.Body != "" {
		raw = json.RawMessage(outer.Body)
	}

	var body entity.StorageEventBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, err
	}
	return &body, nil
}
