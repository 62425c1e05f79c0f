package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/clipflow/clipflow-orchestration-service/internal/domain/entity"
	"github.com/clipflow/clipflow-orchestration-service/internal/domain/port"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const videoColumns = `id, user_id, source_file_key, source_file_name,
	result_file_key, result_file_name, description, status, created_at, updated_at`

type VideoRepository struct {
	pool *pgxpool.Pool
}

func NewVideoRepository(pool *pgxpool.Pool) *VideoRepository {
	return &VideoRepository{pool: pool}
}

func (r *VideoRepository) Create(ctx context.Context, video *entity.Video) error {
	query := `
		INSERT INTO videos (` + videoColumns + `)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`

	_, err := r.pool.Exec(ctx, query,
		video.ID, video.UserID, video.SourceFileKey, video.SourceFileName,
		video.ResultFileKey, video.ResultFileName, video.Description,
		string(video.Status), video.CreatedAt, video.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert video: %w", err)
	}
	return nil
}

func (r *VideoRepository) FindByID(ctx context.Context, id string) (*entity.Video, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+videoColumns+` FROM videos WHERE id=$1`, id)
	video, err := scanVideo(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, port.ErrVideoNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find video by id: %w", err)
	}
	return video, nil
}

func (r *VideoRepository) FindByUserID(ctx context.Context, userID string) ([]entity.Video, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+videoColumns+` FROM videos WHERE user_id=$1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("find videos by user: %w", err)
	}
	return collectVideos(rows)
}

func (r *VideoRepository) FindByStatus(ctx context.Context, status entity.VideoStatus) ([]entity.Video, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+videoColumns+` FROM videos WHERE status=$1 ORDER BY created_at DESC`, string(status))
	if err != nil {
		return nil, fmt.Errorf("find videos by status: %w", err)
	}
	return collectVideos(rows)
}

func (r *VideoRepository) FindAll(ctx context.Context) ([]entity.Video, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+videoColumns+` FROM videos ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("find all videos: %w", err)
	}
	return collectVideos(rows)
}

// Update merges only the provided fields and refreshes updated_at. ID and
// created_at are never part of the SET clause.
func (r *VideoRepository) Update(ctx context.Context, id string, update port.VideoUpdate) (*entity.Video, error) {
	args := []any{id, time.Now().UTC()}
	sets := []string{"updated_at=$2"}

	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s=$%d", column, len(args)))
	}
	if update.Status != nil {
		add("status", string(*update.Status))
	}
	if update.ResultFileKey != nil {
		add("result_file_key", *update.ResultFileKey)
	}
	if update.ResultFileName != nil {
		add("result_file_name", *update.ResultFileName)
	}
	if update.Description != nil {
		add("description", *update.Description)
	}

	query := `UPDATE videos SET ` + strings.Join(sets, ", ") +
		` WHERE id=$1 RETURNING ` + videoColumns

	row := r.pool.QueryRow(ctx, query, args...)
	video, err := scanVideo(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, port.ErrVideoNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update video: %w", err)
	}
	return video, nil
}

func scanVideo(row pgx.Row) (*entity.Video, error) {
	video := &entity.Video{}
	var status string
	err := row.Scan(
		&video.ID, &video.UserID, &video.SourceFileKey, &video.SourceFileName,
		&video.ResultFileKey, &video.ResultFileName, &video.Description,
		&status, &video.CreatedAt, &video.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	video.Status = entity.VideoStatus(status)
	return video, nil
}

func collectVideos(rows pgx.Rows) ([]entity.Video, error) {
	defer rows.Close()

	var videos []entity.Video
	for rows.Next() {
		video, err := scanVideo(rows)
		if err != nil {
			return nil, fmt.Errorf("scan video: %w", err)
		}
		videos = append(videos, *video)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate videos: %w", err)
	}
	return videos, nil
}
