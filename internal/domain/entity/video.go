package entity

import (
	"time"

	"github.com/google/uuid"
)

type VideoStatus string

const (
	VideoStatusPending    VideoStatus = "PENDING"
	VideoStatusProcessing VideoStatus = "PROCESSING"
	VideoStatusCompleted  VideoStatus = "COMPLETED"
	VideoStatusFailed     VideoStatus = "FAILED"
)

// ParseVideoStatus validates a status string coming from an external
// surface (API path segments, result messages).
func ParseVideoStatus(s string) (VideoStatus, bool) {
	switch VideoStatus(s) {
	case VideoStatusPending, VideoStatusProcessing, VideoStatusCompleted, VideoStatusFailed:
		return VideoStatus(s), true
	}
	return "", false
}

// IsTerminal reports whether no further transition is defined out of the
// status. Results arriving for a terminal video are ignored.
func (s VideoStatus) IsTerminal() bool {
	return s == VideoStatusCompleted || s == VideoStatusFailed
}

// Video is the persisted job record, tracked from the upload notification
// through the worker's result. ID and CreatedAt never change after
// creation; Status only moves forward (PENDING to COMPLETED or FAILED).
//
// PROCESSING is declared for repository filters and the read API but no
// transition in this service produces it; the external worker owns the
// "started" signal and none is consumed here.
type Video struct {
	ID             string      `json:"id"`
	UserID         string      `json:"userId"`
	SourceFileKey  string      `json:"sourceFileKey"`
	SourceFileName string      `json:"sourceFileName"`
	ResultFileKey  string      `json:"resultFileKey,omitempty"`
	ResultFileName string      `json:"resultFileName,omitempty"`
	Description    string      `json:"description,omitempty"`
	Status         VideoStatus `json:"status"`
	CreatedAt      time.Time   `json:"createdAt"`
	UpdatedAt      time.Time   `json:"updatedAt"`
}

func NewVideo(userID, sourceFileKey, sourceFileName string) *Video {
	now := time.Now().UTC()
	return &Video{
		ID:             uuid.NewString(),
		UserID:         userID,
		SourceFileKey:  sourceFileKey,
		SourceFileName: sourceFileName,
		Status:         VideoStatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}
