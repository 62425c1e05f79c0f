package usecase

import (
	"context"
	"fmt"

	"github.com/clipflow/clipflow-orchestration-service/internal/domain/entity"
	"github.com/clipflow/clipflow-orchestration-service/internal/domain/port"
	"github.com/clipflow/clipflow-orchestration-service/internal/infra/metrics"
	"go.uber.org/zap"
)

type ProcessMediaFileCommand struct {
	UserID         string
	SourceFileKey  string
	SourceFileName string
}

// ProcessMediaFileHandler creates the job record for an uploaded file and
// dispatches the process command to the worker's input queue.
type ProcessMediaFileHandler struct {
	repo         port.VideoRepository
	publisher    port.Publisher
	processQueue string
	logger       *zap.Logger
}

func NewProcessMediaFileHandler(repo port.VideoRepository, publisher port.Publisher, processQueue string, logger *zap.Logger) *ProcessMediaFileHandler {
	return &ProcessMediaFileHandler{
		repo:         repo,
		publisher:    publisher,
		processQueue: processQueue,
		logger:       logger,
	}
}

// Handle persists a new PENDING video and publishes the full row as the
// process command. A failure in either step propagates to the caller so
// the triggering message stays eligible for redelivery.
func (h *ProcessMediaFileHandler) Handle(ctx context.Context, cmd ProcessMediaFileCommand) (*entity.Video, error) {
	video := entity.NewVideo(cmd.UserID, cmd.SourceFileKey, cmd.SourceFileName)

	if err := h.repo.Create(ctx, video); err != nil {
		return nil, fmt.Errorf("create video record: %w", err)
	}
	metrics.VideosCreatedTotal.Inc()

	h.logger.Info("video created",
		zap.String("video_id", video.ID),
		zap.String("user_id", video.UserID),
		zap.String("source_file_key", video.SourceFileKey),
	)

	if _, err := h.publisher.Publish(ctx, h.processQueue, video); err != nil {
		return nil, fmt.Errorf("dispatch process command for video %s: %w", video.ID, err)
	}

	return video, nil
}
