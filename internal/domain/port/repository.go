package port

import (
	"context"
	"errors"

	"github.com/clipflow/clipflow-orchestration-service/internal/domain/entity"
)

// ErrVideoNotFound is returned by lookups and updates that reference an
// unknown video id.
var ErrVideoNotFound = errors.New("video not found")

// VideoUpdate carries the fields a partial update may change. Nil fields
// are left untouched. ID and CreatedAt are not updatable.
type VideoUpdate struct {
	Status         *entity.VideoStatus
	ResultFileKey  *string
	ResultFileName *string
	Description    *string
}

type VideoRepository interface {
	Create(ctx context.Context, video *entity.Video) error
	FindByID(ctx context.Context, id string) (*entity.Video, error)
	FindByUserID(ctx context.Context, userID string) ([]entity.Video, error)
	FindByStatus(ctx context.Context, status entity.VideoStatus) ([]entity.Video, error)
	FindAll(ctx context.Context) ([]entity.Video, error)
	// Update merges the provided fields into the stored record, refreshes
	// UpdatedAt and returns the updated video, or ErrVideoNotFound.
	Update(ctx context.Context, id string, update VideoUpdate) (*entity.Video, error)
}
