package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/clipflow/clipflow-orchestration-service/internal/domain/entity"
	"github.com/clipflow/clipflow-orchestration-service/internal/domain/port"
	"go.uber.org/zap"
)

type UpdateVideoStatusCommand struct {
	VideoID        string
	Status         entity.VideoStatus
	ResultFileKey  string
	ResultFileName string
}

// UpdateVideoStatusHandler applies a worker outcome to the stored video.
// An unknown video id and a video already in a terminal status are both
// ignored with a warning, so stale or duplicate results are never retried.
type UpdateVideoStatusHandler struct {
	repo   port.VideoRepository
	logger *zap.Logger
}

func NewUpdateVideoStatusHandler(repo port.VideoRepository, logger *zap.Logger) *UpdateVideoStatusHandler {
	return &UpdateVideoStatusHandler{repo: repo, logger: logger}
}

func (h *UpdateVideoStatusHandler) Handle(ctx context.Context, cmd UpdateVideoStatusCommand) error {
	video, err := h.repo.FindByID(ctx, cmd.VideoID)
	if errors.Is(err, port.ErrVideoNotFound) {
		h.logger.Warn("result references unknown video, ignoring", zap.String("video_id", cmd.VideoID))
		return nil
	}
	if err != nil {
		return fmt.Errorf("find video %s: %w", cmd.VideoID, err)
	}

	if video.Status.IsTerminal() {
		h.logger.Warn("video already in terminal status, ignoring late result",
			zap.String("video_id", video.ID),
			zap.String("current_status", string(video.Status)),
			zap.String("incoming_status", string(cmd.Status)),
		)
		return nil
	}

	update := port.VideoUpdate{Status: &cmd.Status}
	if cmd.ResultFileKey != "" {
		update.ResultFileKey = &cmd.ResultFileKey
	}
	if cmd.ResultFileName != "" {
		update.ResultFileName = &cmd.ResultFileName
	}

	if _, err := h.repo.Update(ctx, cmd.VideoID, update); err != nil {
		return fmt.Errorf("update video %s: %w", cmd.VideoID, err)
	}

	h.logger.Info("video status updated",
		zap.String("video_id", cmd.VideoID),
		zap.String("status", string(cmd.Status)),
	)
	return nil
}
