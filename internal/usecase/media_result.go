package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"path"

	"github.com/clipflow/clipflow-orchestration-service/internal/domain/entity"
	"github.com/clipflow/clipflow-orchestration-service/internal/domain/port"
	"github.com/clipflow/clipflow-orchestration-service/internal/infra/metrics"
	"github.com/clipflow/clipflow-orchestration-service/internal/messaging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// MediaResultHandler consumes worker outcome reports and maps them onto
// the video state machine: SUCCESS completes the job, FAILED and
// NO_FRAMES_EXTRACTED fail it.
type MediaResultHandler struct {
	update *UpdateVideoStatusHandler
	logger *zap.Logger
}

func NewMediaResultHandler(update *UpdateVideoStatusHandler, logger *zap.Logger) *MediaResultHandler {
	return &MediaResultHandler{update: update, logger: logger}
}

func (h *MediaResultHandler) Handle(ctx context.Context, msg port.Envelope) error {
	tracer := otel.Tracer("usecase")
	ctx, span := tracer.Start(ctx, "MediaResultHandler.Handle")
	defer span.End()

	var result entity.ResultMessage
	if err := json.Unmarshal(msg.Body, &result); err != nil {
		h.logger.Error("undecodable result message", zap.String("message_id", msg.ID), zap.Error(err))
		return messaging.Terminal(fmt.Errorf("decode result message: %w", err))
	}
	if result.VideoID == "" {
		h.logger.Warn("result message without video id, ignoring", zap.String("message_id", msg.ID))
		return nil
	}

	span.SetAttributes(
		attribute.String("video.id", result.VideoID),
		attribute.String("result.status", string(result.Status)),
	)

	cmd := UpdateVideoStatusCommand{
		VideoID:       result.VideoID,
		Status:        mapResultStatus(result.Status),
		ResultFileKey: result.ResultPath,
	}
	if result.ResultPath != "" {
		cmd.ResultFileName = path.Base(result.ResultPath)
	}

	if err := h.update.Handle(ctx, cmd); err != nil {
		h.logger.Error("failed to apply media result",
			zap.String("video_id", result.VideoID),
			zap.Error(err),
		)
		return fmt.Errorf("apply result for video %s: %w", result.VideoID, err)
	}

	metrics.ResultsProcessedTotal.WithLabelValues(string(result.Status)).Inc()
	return nil
}

func mapResultStatus(s entity.ResultStatus) entity.VideoStatus {
	if s == entity.ResultStatusSuccess {
		return entity.VideoStatusCompleted
	}
	return entity.VideoStatusFailed
}
