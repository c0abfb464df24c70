package pipeline

import (
	"context"
	"fmt"
	"log"

	"shopfront/internal/models"

	"github.com/google/uuid"
)

// Commit persists the accumulated assets for the target product, one
// creation request per asset in accumulation order. Requests are
// independent: a failure at position k leaves records 1..k-1 committed and
// keeps the remaining assets queued, so re-invoking Commit appends rather
// than replaces. Orders continue from the committed prefix, which keeps
// display_order dense across retries.
func (s *Session) Commit(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.productID == uuid.Nil {
		s.bannerError = ErrMissingProduct.Error()
		return ErrMissingProduct
	}
	if len(s.assets) == 0 {
		return ErrNothingToCommit
	}

	for len(s.assets) > 0 {
		asset := s.assets[0]
		altText := asset.Resource.AltText()
		record := &models.ProductImage{
			ProductID:    s.productID,
			ImageURL:     asset.URL,
			AltText:      &altText,
			IsPrimary:    s.persisted == 0,
			DisplayOrder: s.persisted,
		}

		if _, err := s.committer.CreateProductImage(ctx, record); err != nil {
			log.Printf("pipeline: commit failed at order %d (%s): %v", s.persisted, asset.Resource.Name, err)
			s.bannerError = err.Error()
			return fmt.Errorf("commit failed for %s: %w", asset.Resource.Name, err)
		}

		s.persisted++
		s.assets = s.assets[1:]
		s.markCommittedLocked(asset)
	}

	// Full success: the staging batch is spent, the session resets to its
	// empty state and a fresh carousel fetch will see the new records.
	s.resetLocked()
	return nil
}

func (s *Session) markCommittedLocked(asset UploadedAsset) {
	for _, c := range s.candidates {
		if c.State == StateUploaded && c.Resource.Name == asset.Resource.Name {
			c.State = StateCommitted
			return
		}
	}
}

// Abandon discards all in-memory pipeline state. Uploaded-but-uncommitted
// objects are deleted best effort when a cleaner is configured; otherwise
// the server-side sweeper reclaims them.
func (s *Session) Abandon(ctx context.Context) {
	s.mu.Lock()
	orphans := append([]UploadedAsset(nil), s.assets...)
	s.resetLocked()
	s.mu.Unlock()

	if s.cleaner == nil {
		return
	}
	for _, asset := range orphans {
		if err := s.cleaner.DeleteStagedObject(ctx, asset.URL); err != nil {
			log.Printf("pipeline: failed to clean staged object %s: %v", asset.URL, err)
		}
	}
}
