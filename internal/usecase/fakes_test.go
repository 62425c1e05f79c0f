package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/clipflow/clipflow-orchestration-service/internal/domain/entity"
	"github.com/clipflow/clipflow-orchestration-service/internal/domain/port"
)

type recordedUpdate struct {
	id     string
	update port.VideoUpdate
}

type fakeVideoRepo struct {
	mu            sync.Mutex
	videos        map[string]*entity.Video
	failCreateKey string
	findErr       error
	updateErr     error
	creates       []entity.Video
	updates       []recordedUpdate
}

func newFakeVideoRepo() *fakeVideoRepo {
	return &fakeVideoRepo{videos: make(map[string]*entity.Video)}
}

func (r *fakeVideoRepo) Create(_ context.Context, video *entity.Video) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failCreateKey != "" && video.SourceFileKey == r.failCreateKey {
		return errors.New("insert failed")
	}
	copied := *video
	r.videos[video.ID] = &copied
	r.creates = append(r.creates, copied)
	return nil
}

func (r *fakeVideoRepo) FindByID(_ context.Context, id string) (*entity.Video, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	video, ok := r.videos[id]
	if !ok {
		return nil, port.ErrVideoNotFound
	}
	copied := *video
	return &copied, nil
}

func (r *fakeVideoRepo) FindByUserID(_ context.Context, userID string) ([]entity.Video, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.Video
	for _, v := range r.videos {
		if v.UserID == userID {
			out = append(out, *v)
		}
	}
	return out, nil
}

func (r *fakeVideoRepo) FindByStatus(_ context.Context, status entity.VideoStatus) ([]entity.Video, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.Video
	for _, v := range r.videos {
		if v.Status == status {
			out = append(out, *v)
		}
	}
	return out, nil
}

func (r *fakeVideoRepo) FindAll(context.Context) ([]entity.Video, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.Video
	for _, v := range r.videos {
		out = append(out, *v)
	}
	return out, nil
}

func (r *fakeVideoRepo) Update(_ context.Context, id string, update port.VideoUpdate) (*entity.Video, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return nil, r.updateErr
	}
	video, ok := r.videos[id]
	if !ok {
		return nil, port.ErrVideoNotFound
	}
	if update.Status != nil {
		video.Status = *update.Status
	}
	if update.ResultFileKey != nil {
		video.ResultFileKey = *update.ResultFileKey
	}
	if update.ResultFileName != nil {
		video.ResultFileName = *update.ResultFileName
	}
	if update.Description != nil {
		video.Description = *update.Description
	}
	video.UpdatedAt = time.Now().UTC()
	r.updates = append(r.updates, recordedUpdate{id: id, update: update})
	copied := *video
	return &copied, nil
}

func (r *fakeVideoRepo) recordedCreates() []entity.Video {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]entity.Video(nil), r.creates...)
}

func (r *fakeVideoRepo) recordedUpdates() []recordedUpdate {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]recordedUpdate(nil), r.updates...)
}

func (r *fakeVideoRepo) put(video *entity.Video) {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *video
	r.videos[video.ID] = &copied
}

type publishedMessage struct {
	queue   string
	payload any
}

type fakePublisher struct {
	mu        sync.Mutex
	err       error
	published []publishedMessage
}

func (p *fakePublisher) Publish(_ context.Context, queue string, payload any) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return "", p.err
	}
	p.published = append(p.published, publishedMessage{queue: queue, payload: payload})
	return "msg-id", nil
}

func (p *fakePublisher) messages() []publishedMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]publishedMessage(nil), p.published...)
}
