package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/clipflow/clipflow-orchestration-service/internal/domain/entity"
	"github.com/clipflow/clipflow-orchestration-service/internal/domain/port"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubRepo struct {
	videos []entity.Video
}

func (s *stubRepo) Create(context.Context, *entity.Video) error { return nil }

func (s *stubRepo) FindByID(_ context.Context, id string) (*entity.Video, error) {
	for _, v := range s.videos {
		if v.ID == id {
			return &v, nil
		}
	}
	return nil, port.ErrVideoNotFound
}

func (s *stubRepo) FindByUserID(_ context.Context, userID string) ([]entity.Video, error) {
	var out []entity.Video
	for _, v := range s.videos {
		if v.UserID == userID {
			out = append(out, v)
		}
	}
	return out, nil
}

func (s *stubRepo) FindByStatus(_ context.Context, status entity.VideoStatus) ([]entity.Video, error) {
	var out []entity.Video
	for _, v := range s.videos {
		if v.Status == status {
			out = append(out, v)
		}
	}
	return out, nil
}

func (s *stubRepo) FindAll(context.Context) ([]entity.Video, error) {
	return s.videos, nil
}

func (s *stubRepo) Update(_ context.Context, id string, _ port.VideoUpdate) (*entity.Video, error) {
	return nil, port.ErrVideoNotFound
}

type stubStorage struct{}

func (stubStorage) UploadSignedURL(_ context.Context, fileName, _ string, _ time.Duration) (string, error) {
	return "https://minio.local/upload/" + fileName, nil
}

func (stubStorage) DownloadSignedURL(_ context.Context, fileName string, _ time.Duration) (string, error) {
	return "https://minio.local/download/" + fileName, nil
}

func testServer(videos ...entity.Video) http.Handler {
	srv := NewServer(&stubRepo{videos: videos}, stubStorage{}, 15*time.Minute, zap.NewNop())
	return srv.Handler()
}

func TestGetVideo(t *testing.T) {
	video := entity.NewVideo("user-1", "sources/clip.mp4", "clip.mp4")
	handler := testServer(*video)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/videos/"+video.ID, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var got entity.Video
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, video.ID, got.ID)
	assert.Equal(t, entity.VideoStatusPending, got.Status)
}

func TestGetVideoNotFound(t *testing.T) {
	handler := testServer()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/videos/unknown-id", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListVideosByStatus(t *testing.T) {
	pending := entity.NewVideo("user-1", "sources/a.mp4", "a.mp4")
	done := entity.NewVideo("user-1", "sources/b.mp4", "b.mp4")
	done.Status = entity.VideoStatusCompleted
	handler := testServer(*pending, *done)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/videos/status/COMPLETED", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var got []entity.Video
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, done.ID, got[0].ID)
}

func TestListVideosByStatusRejectsUnknownStatus(t *testing.T) {
	handler := testServer()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/videos/status/WAITING", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListUserVideos(t *testing.T) {
	mine := entity.NewVideo("user-1", "sources/a.mp4", "a.mp4")
	theirs := entity.NewVideo("user-2", "sources/b.mp4", "b.mp4")
	handler := testServer(*mine, *theirs)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users/user-1/videos", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var got []entity.Video
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, mine.ID, got[0].ID)
}

func TestSignUpload(t *testing.T) {
	handler := testServer()

	body := strings.NewReader(`{"fileName":"clip.mp4","contentType":"video/mp4"}`)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/uploads/sign", body))
	require.Equal(t, http.StatusOK, rec.Code)

	var got signedURLResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "https://minio.local/upload/clip.mp4", got.URL)
	assert.Equal(t, int((15 * time.Minute).Seconds()), got.ExpiresIn)
}

func TestSignUploadRequiresFileName(t *testing.T) {
	handler := testServer()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/uploads/sign", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSignDownload(t *testing.T) {
	handler := testServer()

	rec := httptest.NewRecorder()
	target := fmt.Sprintf("/downloads/sign?fileName=%s", "clip.mp4")
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var got signedURLResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "https://minio.local/download/clip.mp4", got.URL)
}
