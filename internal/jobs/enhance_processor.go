package jobs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"shopfront/internal/caching"
	"shopfront/internal/enhance"
	"shopfront/internal/models"
	"shopfront/internal/services"

	"github.com/hibiken/asynq"
)

const (
	imageBucket      = "product-images"
	previewOutPrefix = "previews/out"
	previewURLExpiry = 24 * time.Hour
	enhanceGuardKey  = "enhance:inflight"
	enhanceRunTTL    = time.Hour
)

// EnhanceProcessor consumes enhancement preview tasks. It runs under an
// asynq server configured with concurrency 1, so at most one run is
// processed at a time.
type EnhanceProcessor struct {
	storage services.StorageService
	cache   caching.CacheService
}

func NewEnhanceProcessor(storage services.StorageService, cache caching.CacheService) *EnhanceProcessor {
	return &EnhanceProcessor{
		storage: storage,
		cache:   cache,
	}
}

// ProcessTask generates one preview variant per source image. Individual
// sources are best effort: a source that fails to decode is skipped rather
// than failing the run; the run fails only when nothing could be produced.
func (p *EnhanceProcessor) ProcessTask(ctx context.Context, task *asynq.Task) error {
	defer func() {
		if err := p.cache.Delete(ctx, enhanceGuardKey); err != nil {
			log.Printf("enhance: failed to release run guard: %v", err)
		}
	}()

	var payload services.EnhancePreviewPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal enhancement payload: %w", err)
	}

	run := &models.EnhancementRun{ID: payload.RunID, Status: models.EnhancementStatusDone}

	for i, source := range payload.Sources {
		data, err := p.storage.Download(ctx, imageBucket, source.ObjectKey)
		if err != nil {
			log.Printf("enhance: failed to download %s: %v", source.ObjectKey, err)
			continue
		}

		variant, err := enhance.Variant(bytes.NewReader(data))
		if err != nil {
			log.Printf("enhance: skipping %s: %v", source.Name, err)
			continue
		}

		outKey := fmt.Sprintf("%s/%s/%02d.jpg", previewOutPrefix, payload.RunID.String(), i)
		if err := p.storage.Upload(ctx, imageBucket, outKey, "image/jpeg", bytes.NewReader(variant), int64(len(variant))); err != nil {
			log.Printf("enhance: failed to upload preview for %s: %v", source.Name, err)
			continue
		}

		url, err := p.storage.GetPresignedURL(ctx, imageBucket, outKey, previewURLExpiry)
		if err != nil {
			log.Printf("enhance: failed to presign preview for %s: %v", source.Name, err)
			continue
		}

		run.Previews = append(run.Previews, models.EnhancementPreview{
			SourceName: source.Name,
			URL:        url,
		})
	}

	if len(run.Previews) == 0 {
		run.Status = models.EnhancementStatusFailed
		run.Error = "no previews could be produced"
	}

	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("failed to marshal enhancement run: %w", err)
	}
	return p.cache.SetString(ctx, fmt.Sprintf("enhance:run:%s", payload.RunID.String()), string(data), enhanceRunTTL)
}
