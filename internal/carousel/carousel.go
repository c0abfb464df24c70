// Package carousel implements the paged viewer over a product's persisted
// image records: fetch, bounded navigation, and confirmed deletion with
// position re-derivation.
package carousel

import (
	"context"
	"errors"
	"sync"

	"shopfront/internal/models"

	"github.com/google/uuid"
)

// State tags the carousel's lifecycle.
type State int

const (
	StateLoading State = iota
	StateReady
	StateEmpty
	StateError
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateEmpty:
		return "empty"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

var (
	ErrNotReady         = errors.New("carousel is not ready")
	ErrNoDeleteRequest  = errors.New("no deletion awaiting confirmation")
	ErrDeleteInProgress = errors.New("a deletion is awaiting confirmation")
)

// Source is the persistence boundary the carousel reads through. It shares
// no in-memory state with the ingestion pipeline.
type Source interface {
	FetchImages(ctx context.Context, productID uuid.UUID, limit, offset int) ([]*models.ProductImage, error)
	DeleteImage(ctx context.Context, imageID uuid.UUID) error
}

const fetchLimit = 100

// Carousel holds the viewer state for one product. Slots are an indexed
// array; the current position is an index into it, clamped on every
// mutation.
type Carousel struct {
	mu sync.Mutex

	productID uuid.UUID
	source    Source

	state   State
	images  []*models.ProductImage
	current int
	lastErr error

	// pendingDelete is the index whose deletion awaits confirmation, -1
	// when the dialog is closed. deleteErr is surfaced inside the dialog.
	pendingDelete int
	deleteErr     error
}

func New(productID uuid.UUID, source Source) *Carousel {
	return &Carousel{
		productID:     productID,
		source:        source,
		state:         StateLoading,
		pendingDelete: -1,
	}
}

// Load fetches the full ordered record set for the product and derives the
// initial state.
func (c *Carousel) Load(ctx context.Context) error {
	c.mu.Lock()
	c.state = StateLoading
	c.mu.Unlock()

	images, err := c.source.FetchImages(ctx, c.productID, fetchLimit, 0)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.state = StateError
		c.lastErr = err
		return err
	}

	c.images = images
	c.current = 0
	c.pendingDelete = -1
	c.deleteErr = nil
	if len(images) == 0 {
		c.state = StateEmpty
	} else {
		c.state = StateReady
	}
	return nil
}

// State returns the current lifecycle state.
func (c *Carousel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Err returns the fetch error when the carousel is in the error state.
func (c *Carousel) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Len returns the number of loaded records.
func (c *Carousel) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.images)
}

// Current returns the record at the current position.
func (c *Carousel) Current() (*models.ProductImage, int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateReady {
		return nil, 0, ErrNotReady
	}
	return c.images[c.current], c.current, nil
}

// Next advances the position. At the upper bound it is a no-op; there is no
// wraparound.
func (c *Carousel) Next() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateReady && c.current < len(c.images)-1 {
		c.current++
	}
	return c.current
}

// Prev moves the position back, stopping at zero.
func (c *Carousel) Prev() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateReady && c.current > 0 {
		c.current--
	}
	return c.current
}

// RequestDelete opens the confirmation dialog for the current record.
func (c *Carousel) RequestDelete() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateReady {
		return ErrNotReady
	}
	if c.pendingDelete >= 0 {
		return ErrDeleteInProgress
	}
	c.pendingDelete = c.current
	c.deleteErr = nil
	return nil
}

// CancelDelete closes the confirmation dialog without issuing a request.
func (c *Carousel) CancelDelete() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pendingDelete = -1
	c.deleteErr = nil
}

// DeletePending reports whether a deletion awaits confirmation, and any
// error from a previous failed attempt.
func (c *Carousel) DeletePending() (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pendingDelete >= 0, c.deleteErr
}

// ConfirmDelete issues the delete request for the record whose confirmation
// dialog is open. On success the record leaves the local list and the
// position is clamped to min(current, len-2), or the carousel goes Empty.
// On failure the dialog stays open with the error recorded and the list is
// unchanged.
func (c *Carousel) ConfirmDelete(ctx context.Context) error {
	c.mu.Lock()
	if c.pendingDelete < 0 {
		c.mu.Unlock()
		return ErrNoDeleteRequest
	}
	idx := c.pendingDelete
	target := c.images[idx]
	c.mu.Unlock()

	err := c.source.DeleteImage(ctx, target.ID)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.deleteErr = err
		return err
	}

	c.images = append(c.images[:idx], c.images[idx+1:]...)
	c.pendingDelete = -1
	c.deleteErr = nil

	if len(c.images) == 0 {
		c.state = StateEmpty
		c.current = 0
		return nil
	}
	if c.current > len(c.images)-1 {
		c.current = len(c.images) - 1
	}
	return nil
}
