package pipeline

import (
	"context"
	"errors"
	"sync"

	"shopfront/internal/models"

	"github.com/google/uuid"
)

var (
	ErrNoPendingCandidates   = errors.New("no pending candidates")
	ErrVerificationActive    = errors.New("a verification is already in progress")
	ErrNoActiveVerification  = errors.New("no candidate is under verification")
	ErrMissingProduct        = errors.New("no target product selected")
	ErrNothingToCommit       = errors.New("no uploaded assets to commit")
	ErrNotEnoughCandidates   = errors.New("at least two pending images are required")
	ErrEnhancementInFlight   = errors.New("an enhancement run is already in progress")
	ErrEnhancerNotConfigured = errors.New("enhancement is not available for this session")
)

// Uploader pushes one resource to durable storage and returns its URL.
type Uploader interface {
	Upload(ctx context.Context, folder string, res Resource) (string, error)
}

// Committer persists one ordered, primary-flagged image record.
type Committer interface {
	CreateProductImage(ctx context.Context, image *models.ProductImage) (*models.ProductImage, error)
}

// StagingCleaner removes an uploaded-but-uncommitted object. Optional; when
// absent, abandoned objects are left for the server-side sweeper.
type StagingCleaner interface {
	DeleteStagedObject(ctx context.Context, url string) error
}

// Enhancer produces non-persisted preview variants for a set of resources.
type Enhancer interface {
	Enhance(ctx context.Context, resources []Resource) ([]Preview, error)
}

// Preview is one best-effort enhancement result. It never enters the
// product image records.
type Preview struct {
	SourceName string `json:"source_name"`
	URL        string `json:"url"`
}

// Session owns the staging batch for one target product, from intake through
// commit. All state is in memory; closing the session without committing
// discards it.
//
// The mutex is the serialization point: at most one candidate is Verifying,
// and at most one ingestion-path network call is in flight, because both are
// performed under the lock. The enhancement run is the one exception and is
// guarded separately.
type Session struct {
	mu sync.Mutex

	productID   uuid.UUID
	productName string
	folder      string

	candidates []*ImageCandidate
	active     int // index of the Verifying candidate, -1 when the gate is empty
	assets     []UploadedAsset
	persisted  int // records already committed from this batch, offsets retry orders

	bannerError string

	enhancing  bool
	previews   []Preview
	enhanceErr error

	uploader  Uploader
	committer Committer
	cleaner   StagingCleaner
	enhancer  Enhancer
}

// Option configures optional session collaborators.
type Option func(*Session)

// WithStagingCleaner enables best-effort cleanup of uploaded objects when
// the session is abandoned.
func WithStagingCleaner(c StagingCleaner) Option {
	return func(s *Session) { s.cleaner = c }
}

// WithEnhancer enables the preview side path.
func WithEnhancer(e Enhancer) Option {
	return func(s *Session) { s.enhancer = e }
}

func NewSession(productID uuid.UUID, productName string, uploader Uploader, committer Committer, opts ...Option) *Session {
	s := &Session{
		productID:   productID,
		productName: productName,
		folder:      uuid.New().String(),
		active:      -1,
		uploader:    uploader,
		committer:   committer,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ProductID returns the commit target.
func (s *Session) ProductID() uuid.UUID {
	return s.productID
}

// ProductName returns the display name of the commit target.
func (s *Session) ProductName() string {
	return s.productName
}

// Candidates returns a snapshot of all candidates in intake order.
func (s *Session) Candidates() []ImageCandidate {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ImageCandidate, len(s.candidates))
	for i, c := range s.candidates {
		out[i] = *c
	}
	return out
}

// PendingCount returns the number of candidates still awaiting verification.
func (s *Session) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pendingCountLocked()
}

func (s *Session) pendingCountLocked() int {
	n := 0
	for _, c := range s.candidates {
		if c.State == StatePending {
			n++
		}
	}
	return n
}

// Gated returns the candidate currently under verification, or nil.
func (s *Session) Gated() *ImageCandidate {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active < 0 {
		return nil
	}
	snapshot := *s.candidates[s.active]
	return &snapshot
}

// Assets returns a snapshot of the accumulated uploaded assets.
func (s *Session) Assets() []UploadedAsset {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]UploadedAsset(nil), s.assets...)
}

// BannerError returns the terminal error banner, empty when clear.
func (s *Session) BannerError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bannerError
}

func (s *Session) resetLocked() {
	s.candidates = nil
	s.active = -1
	s.assets = nil
	s.persisted = 0
	s.bannerError = ""
	s.previews = nil
	s.enhanceErr = nil
}
