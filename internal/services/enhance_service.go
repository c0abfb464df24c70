package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"shopfront/internal/caching"
	"shopfront/internal/models"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const (
	enhanceGuardKey  = "enhance:inflight"
	enhanceGuardTTL  = 10 * time.Minute
	enhanceRunTTL    = time.Hour
	previewSrcPrefix = "previews/src"
)

var (
	ErrTooFewImages = errors.New("at least two images are required for enhancement")
	ErrRunInFlight  = errors.New("an enhancement run is already in progress")
	ErrRunNotFound  = errors.New("enhancement run not found")
)

// TypeEnhancePreview is the asynq task type for one preview run. The worker
// side lives in internal/jobs.
const TypeEnhancePreview = "enhance:preview"

// EnhanceSource points the worker at one staged source object.
type EnhanceSource struct {
	Name      string `json:"name"`
	ObjectKey string `json:"object_key"`
}

// EnhancePreviewPayload is the task payload for TypeEnhancePreview.
type EnhancePreviewPayload struct {
	RunID   uuid.UUID       `json:"run_id"`
	Sources []EnhanceSource `json:"sources"`
}

// NewEnhancePreviewTask wraps the payload into an asynq task.
func NewEnhancePreviewTask(payload EnhancePreviewPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal enhancement payload: %w", err)
	}
	return asynq.NewTask(TypeEnhancePreview, data, asynq.MaxRetry(1)), nil
}

// EnhanceInput is one source image for a preview run.
type EnhanceInput struct {
	Name        string
	ContentType string
	Content     []byte
}

type EnhanceService interface {
	StartRun(ctx context.Context, inputs []EnhanceInput) (uuid.UUID, error)
	GetRun(ctx context.Context, runID uuid.UUID) (*models.EnhancementRun, error)
}

// TaskEnqueuer is the slice of the asynq client this service needs.
type TaskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

type enhanceService struct {
	storage StorageService
	cache   caching.CacheService
	queue   TaskEnqueuer
}

func NewEnhanceService(storage StorageService, cache caching.CacheService, queue TaskEnqueuer) EnhanceService {
	return &enhanceService{
		storage: storage,
		cache:   cache,
		queue:   queue,
	}
}

func runKey(runID uuid.UUID) string {
	return fmt.Sprintf("enhance:run:%s", runID.String())
}

// StartRun uploads the source images and enqueues one preview task. Only a
// single run may be outstanding at a time; the guard key expires on its own
// if a worker dies mid-run.
func (s *enhanceService) StartRun(ctx context.Context, inputs []EnhanceInput) (uuid.UUID, error) {
	if len(inputs) < 2 {
		return uuid.Nil, ErrTooFewImages
	}

	acquired, err := s.cache.SetNX(ctx, enhanceGuardKey, "1", enhanceGuardTTL)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to acquire enhancement guard: %w", err)
	}
	if !acquired {
		return uuid.Nil, ErrRunInFlight
	}

	runID := uuid.New()
	payload := EnhancePreviewPayload{RunID: runID}

	if err := s.storage.EnsureBucketExists(ctx, imageBucket); err != nil {
		s.releaseGuard(ctx)
		return uuid.Nil, fmt.Errorf("failed to ensure bucket exists: %w", err)
	}

	for i, input := range inputs {
		key := fmt.Sprintf("%s/%s/%02d%s", previewSrcPrefix, runID.String(), i, filepath.Ext(input.Name))
		if err := s.storage.Upload(ctx, imageBucket, key, input.ContentType, bytes.NewReader(input.Content), int64(len(input.Content))); err != nil {
			s.releaseGuard(ctx)
			return uuid.Nil, fmt.Errorf("failed to stage enhancement source %s: %w", input.Name, err)
		}
		payload.Sources = append(payload.Sources, EnhanceSource{
			Name:      input.Name,
			ObjectKey: key,
		})
	}

	run := &models.EnhancementRun{ID: runID, Status: models.EnhancementStatusProcessing}
	if err := s.storeRun(ctx, run); err != nil {
		s.releaseGuard(ctx)
		return uuid.Nil, err
	}

	task, err := NewEnhancePreviewTask(payload)
	if err != nil {
		s.releaseGuard(ctx)
		return uuid.Nil, err
	}
	if _, err := s.queue.EnqueueContext(ctx, task); err != nil {
		s.releaseGuard(ctx)
		return uuid.Nil, fmt.Errorf("failed to enqueue enhancement run: %w", err)
	}

	return runID, nil
}

func (s *enhanceService) GetRun(ctx context.Context, runID uuid.UUID) (*models.EnhancementRun, error) {
	data, err := s.cache.GetString(ctx, runKey(runID))
	if errors.Is(err, caching.ErrCacheMiss) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, err
	}

	run := &models.EnhancementRun{}
	if err := json.Unmarshal([]byte(data), run); err != nil {
		return nil, fmt.Errorf("failed to unmarshal enhancement run: %w", err)
	}
	return run, nil
}

func (s *enhanceService) storeRun(ctx context.Context, run *models.EnhancementRun) error {
	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("failed to marshal enhancement run: %w", err)
	}
	return s.cache.SetString(ctx, runKey(run.ID), string(data), enhanceRunTTL)
}

func (s *enhanceService) releaseGuard(ctx context.Context) {
	_ = s.cache.Delete(ctx, enhanceGuardKey)
}
