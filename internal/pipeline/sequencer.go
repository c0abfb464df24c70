package pipeline

import (
	"context"
	"fmt"
	"log"
)

// ConfirmUpload uploads exactly the gated candidate. On success the
// candidate becomes Uploaded, its durable URL joins the accumulated assets,
// and the gate re-arms with the next pending candidate, which again waits
// for operator confirmation. On failure the candidate returns to Pending
// with the error recorded inline, so earlier successes are kept and the
// candidate can be retried or abandoned.
//
// The lock is held across the network call: a second upload cannot start
// while one is pending.
func (s *Session) ConfirmUpload(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active < 0 {
		return ErrNoActiveVerification
	}

	candidate := s.candidates[s.active]
	url, err := s.uploader.Upload(ctx, s.folder, candidate.Resource)
	if err != nil {
		log.Printf("pipeline: upload failed for %q: %v", candidate.Resource.Name, err)
		candidate.State = StatePending
		candidate.LastError = err.Error()
		s.active = -1
		return fmt.Errorf("upload failed for %s: %w", candidate.Resource.Name, err)
	}

	candidate.State = StateUploaded
	candidate.LastError = ""
	s.assets = append(s.assets, UploadedAsset{
		Resource: candidate.Resource,
		URL:      url,
	})
	s.active = -1

	// Re-arm with the next pending candidate if any; the gate closes when
	// the batch is exhausted and the assets are ready for commit.
	if s.pendingCountLocked() > 0 {
		return s.armLocked()
	}
	return nil
}
