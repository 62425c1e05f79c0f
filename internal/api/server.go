package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/clipflow/clipflow-orchestration-service/internal/domain/entity"
	"github.com/clipflow/clipflow-orchestration-service/internal/domain/port"
	"go.uber.org/zap"
)

// Server exposes the read-side of the job store plus presigned upload and
// download URLs. All state transitions stay on the queue-driven path.
type Server struct {
	repo            port.VideoRepository
	storage         port.FileStorage
	signedURLExpiry time.Duration
	logger          *zap.Logger
}

func NewServer(repo port.VideoRepository, storage port.FileStorage, signedURLExpiry time.Duration, logger *zap.Logger) *Server {
	return &Server{
		repo:            repo,
		storage:         storage,
		signedURLExpiry: signedURLExpiry,
		logger:          logger,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /videos", s.listVideos)
	mux.HandleFunc("GET /videos/{id}", s.getVideo)
	mux.HandleFunc("GET /videos/status/{status}", s.listVideosByStatus)
	mux.HandleFunc("GET /users/{userId}/videos", s.listUserVideos)
	mux.HandleFunc("POST /uploads/sign", s.signUpload)
	mux.HandleFunc("GET /downloads/sign", s.signDownload)
	return mux
}

// Start serves the API in the background and returns the server for
// shutdown.
func (s *Server) Start(port int) *http.Server {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: s.Handler(),
	}

	go func() {
		s.logger.Info("api server starting", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("api server error", zap.Error(err))
		}
	}()

	return srv
}

func (s *Server) listVideos(w http.ResponseWriter, r *http.Request) {
	videos, err := s.repo.FindAll(r.Context())
	if err != nil {
		s.internalError(w, "list videos", err)
		return
	}
	s.writeJSON(w, http.StatusOK, videos)
}

func (s *Server) getVideo(w http.ResponseWriter, r *http.Request) {
	video, err := s.repo.FindByID(r.Context(), r.PathValue("id"))
	if errors.Is(err, port.ErrVideoNotFound) {
		s.writeError(w, http.StatusNotFound, "video not found")
		return
	}
	if err != nil {
		s.internalError(w, "get video", err)
		return
	}
	s.writeJSON(w, http.StatusOK, video)
}

func (s *Server) listVideosByStatus(w http.ResponseWriter, r *http.Request) {
	status, ok := entity.ParseVideoStatus(r.PathValue("status"))
	if !ok {
		s.writeError(w, http.StatusBadRequest, "unknown status")
		return
	}

	videos, err := s.repo.FindByStatus(r.Context(), status)
	if err != nil {
		s.internalError(w, "list videos by status", err)
		return
	}
	s.writeJSON(w, http.StatusOK, videos)
}

func (s *Server) listUserVideos(w http.ResponseWriter, r *http.Request) {
	videos, err := s.repo.FindByUserID(r.Context(), r.PathValue("userId"))
	if err != nil {
		s.internalError(w, "list user videos", err)
		return
	}
	s.writeJSON(w, http.StatusOK, videos)
}

type signUploadRequest struct {
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType"`
}

type signedURLResponse struct {
	URL       string `json:"url"`
	ExpiresIn int    `json:"expiresInSeconds"`
}

func (s *Server) signUpload(w http.ResponseWriter, r *http.Request) {
	var req signUploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.FileName == "" {
		s.writeError(w, http.StatusBadRequest, "fileName is required")
		return
	}
	if req.ContentType == "" {
		req.ContentType = "application/octet-stream"
	}

	url, err := s.storage.UploadSignedURL(r.Context(), req.FileName, req.ContentType, s.signedURLExpiry)
	if err != nil {
		s.internalError(w, "sign upload", err)
		return
	}
	s.writeJSON(w, http.StatusOK, signedURLResponse{URL: url, ExpiresIn: int(s.signedURLExpiry.Seconds())})
}

func (s *Server) signDownload(w http.ResponseWriter, r *http.Request) {
	fileName := r.URL.Query().Get("fileName")
	if fileName == "" {
		s.writeError(w, http.StatusBadRequest, "fileName is required")
		return
	}

	url, err := s.storage.DownloadSignedURL(r.Context(), fileName, s.signedURLExpiry)
	if err != nil {
		s.internalError(w, "sign download", err)
		return
	}
	s.writeJSON(w, http.StatusOK, signedURLResponse{URL: url, ExpiresIn: int(s.signedURLExpiry.Seconds())})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func (s *Server) internalError(w http.ResponseWriter, op string, err error) {
	s.logger.Error("request failed", zap.String("op", op), zap.Error(err))
	s.writeError(w, http.StatusInternalServerError, "internal error")
}
