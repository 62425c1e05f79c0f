package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/clipflow/clipflow-orchestration-service/internal/domain/entity"
	"github.com/clipflow/clipflow-orchestration-service/internal/domain/port"
	"github.com/clipflow/clipflow-orchestration-service/internal/messaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newEventHandler(repo *fakeVideoRepo, publisher *fakePublisher) *MediaEventHandler {
	process := NewProcessMediaFileHandler(repo, publisher, "media.process", zap.NewNop())
	return NewMediaEventHandler(process, zap.NewNop())
}

func eventEnvelope(t *testing.T, keys ...string) port.Envelope {
	t.Helper()
	body := entity.StorageEventBody{}
	for _, key := range keys {
		body.Records = append(body.Records, entity.StorageEventRecord{
			EventName: "s3:ObjectCreated:Put",
			EventTime: "2024-05-01T10:00:00Z",
			S3: entity.StorageS3Detail{
				Bucket: entity.StorageBucket{Name: "media"},
				Object: entity.StorageObject{Key: key, Size: 1024},
			},
		})
	}
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	return port.Envelope{ID: "msg-1", ReceiptHandle: "rh-1", Body: raw, ReceiveCount: 1}
}

func TestMediaEventCreatesJobAndDispatchesCommand(t *testing.T) {
	repo := newFakeVideoRepo()
	publisher := &fakePublisher{}
	handler := newEventHandler(repo, publisher)

	key := "sources/123e4567-e89b-12d3-a456-426614174000-clip.mp4"
	err := handler.Handle(context.Background(), eventEnvelope(t, key))
	require.NoError(t, err)

	creates := repo.recordedCreates()
	require.Len(t, creates, 1)
	assert.Equal(t, "123e4567-e89b-12d3-a456-426614174000", creates[0].UserID)
	assert.Equal(t, key, creates[0].SourceFileKey)
	assert.Equal(t, "123e4567-e89b-12d3-a456-426614174000-clip.mp4", creates[0].SourceFileName)
	assert.Equal(t, entity.VideoStatusPending, creates[0].Status)

	msgs := publisher.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "media.process", msgs[0].queue)
	published, ok := msgs[0].payload.(*entity.Video)
	require.True(t, ok)
	assert.Equal(t, creates[0].ID, published.ID)
}

func TestMediaEventSkipsRecordWithoutOwnerID(t *testing.T) {
	repo := newFakeVideoRepo()
	publisher := &fakePublisher{}
	handler := newEventHandler(repo, publisher)

	err := handler.Handle(context.Background(), eventEnvelope(t, "sources/just-a-clip.mp4"))
	require.NoError(t, err)

	assert.Empty(t, repo.recordedCreates())
	assert.Empty(t, publisher.messages())
}

func TestMediaEventContinuesBatchAfterRecordFailure(t *testing.T) {
	repo := newFakeVideoRepo()
	publisher := &fakePublisher{}
	handler := newEventHandler(repo, publisher)

	keys := []string{
		"sources/123e4567-e89b-12d3-a456-426614174001-one.mp4",
		"sources/123e4567-e89b-12d3-a456-426614174002-two.mp4",
		"sources/123e4567-e89b-12d3-a456-426614174003-three.mp4",
	}
	repo.failCreateKey = keys[1]

	err := handler.Handle(context.Background(), eventEnvelope(t, keys...))
	require.NoError(t, err)

	creates := repo.recordedCreates()
	require.Len(t, creates, 2)
	assert.Equal(t, keys[0], creates[0].SourceFileKey)
	assert.Equal(t, keys[2], creates[1].SourceFileKey)
	assert.Len(t, publisher.messages(), 2)
}

func TestMediaEventUnwrapsNestedBody(t *testing.T) {
	repo := newFakeVideoRepo()
	publisher := &fakePublisher{}
	handler := newEventHandler(repo, publisher)

	inner := eventEnvelope(t, "sources/123e4567-e89b-12d3-a456-426614174000-clip.mp4").Body
	outer, err := json.Marshal(map[string]string{"Body": string(inner)})
	require.NoError(t, err)

	err = handler.Handle(context.Background(), port.Envelope{ID: "msg-1", Body: outer, ReceiveCount: 1})
	require.NoError(t, err)
	assert.Len(t, repo.recordedCreates(), 1)
}

func TestMediaEventUndecodableBodyIsTerminal(t *testing.T) {
	handler := newEventHandler(newFakeVideoRepo(), &fakePublisher{})

	err := handler.Handle(context.Background(), port.Envelope{ID: "msg-1", Body: json.RawMessage(`[1,2]`)})
	require.Error(t, err)
	assert.True(t, messaging.IsTerminal(err))
}

func TestMediaEventWithoutRecordsIsAcknowledged(t *testing.T) {
	handler := newEventHandler(newFakeVideoRepo(), &fakePublisher{})

	err := handler.Handle(context.Background(), port.Envelope{ID: "msg-1", Body: json.RawMessage(`{"Records":[]}`)})
	require.NoError(t, err)
}

func TestMediaEventBatchOrderIndependence(t *testing.T) {
	// Records are processed in order within one envelope; the failing one
	// never short-circuits the rest regardless of position.
	for failIdx := 0; failIdx < 3; failIdx++ {
		t.Run(fmt.Sprintf("fail_record_%d", failIdx), func(t *testing.T) {
			repo := newFakeVideoRepo()
			publisher := &fakePublisher{}
			handler := newEventHandler(repo, publisher)

			keys := []string{
				"sources/123e4567-e89b-12d3-a456-426614174001-a.mp4",
				"sources/123e4567-e89b-12d3-a456-426614174002-b.mp4",
				"sources/123e4567-e89b-12d3-a456-426614174003-c.mp4",
			}
			repo.failCreateKey = keys[failIdx]

			require.NoError(t, handler.Handle(context.Background(), eventEnvelope(t, keys...)))
			assert.Len(t, repo.recordedCreates(), 2)
			assert.Len(t, publisher.messages(), 2)
		})
	}
}
