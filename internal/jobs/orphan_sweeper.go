package jobs

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"shopfront/internal/repositories"
	"shopfront/internal/services"
)

const (
	stagingPrefix = "staging/"
	previewPrefix = "previews/"
)

// OrphanSweeper reclaims storage objects the pipeline left behind: staged
// uploads whose session was abandoned before commit, and expired preview
// variants. Committed objects are recognized by their recorded image_url
// and are never touched.
type OrphanSweeper struct {
	storage       services.StorageService
	imageRepo     repositories.ProductImageRepository
	publicBaseURL string
	maxAge        time.Duration
}

func NewOrphanSweeper(storage services.StorageService, imageRepo repositories.ProductImageRepository, publicBaseURL string, maxAge time.Duration) *OrphanSweeper {
	if maxAge <= 0 {
		maxAge = 24 * time.Hour
	}
	return &OrphanSweeper{
		storage:       storage,
		imageRepo:     imageRepo,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		maxAge:        maxAge,
	}
}

// Sweep removes unreferenced staging objects and stale previews older than
// the cutoff. Deletions are best effort; a failed delete is retried on the
// next sweep.
func (s *OrphanSweeper) Sweep(ctx context.Context) error {
	cutoff := time.Now().Add(-s.maxAge)

	staged, err := s.storage.ListPrefix(ctx, imageBucket, stagingPrefix)
	if err != nil {
		return fmt.Errorf("failed to list staging objects: %w", err)
	}

	removed := 0
	for _, obj := range staged {
		if obj.LastModified.After(cutoff) {
			continue
		}

		url := fmt.Sprintf("%s/%s/%s", s.publicBaseURL, imageBucket, obj.Key)
		referenced, err := s.imageRepo.ExistsByImageURL(ctx, url)
		if err != nil {
			log.Printf("sweeper: failed to check reference for %s: %v", obj.Key, err)
			continue
		}
		if referenced {
			continue
		}

		if err := s.storage.Delete(ctx, imageBucket, obj.Key); err != nil {
			log.Printf("sweeper: failed to delete orphan %s: %v", obj.Key, err)
			continue
		}
		removed++
	}

	previews, err := s.storage.ListPrefix(ctx, imageBucket, previewPrefix)
	if err != nil {
		return fmt.Errorf("failed to list preview objects: %w", err)
	}
	for _, obj := range previews {
		if obj.LastModified.After(cutoff) {
			continue
		}
		if err := s.storage.Delete(ctx, imageBucket, obj.Key); err != nil {
			log.Printf("sweeper: failed to delete preview %s: %v", obj.Key, err)
			continue
		}
		removed++
	}

	if removed > 0 {
		log.Printf("sweeper: removed %d orphaned objects", removed)
	}
	return nil
}
