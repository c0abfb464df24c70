package carousel

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"shopfront/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockSource struct {
	mock.Mock
}

func (m *MockSource) FetchImages(ctx context.Context, productID uuid.UUID, limit, offset int) ([]*models.ProductImage, error) {
	args := m.Called(ctx, productID, limit, offset)
	if images, ok := args.Get(0).([]*models.ProductImage); ok {
		return images, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSource) DeleteImage(ctx context.Context, imageID uuid.UUID) error {
	args := m.Called(ctx, imageID)
	return args.Error(0)
}

func imageRecords(productID uuid.UUID, n int) []*models.ProductImage {
	records := make([]*models.ProductImage, 0, n)
	for i := 0; i < n; i++ {
		records = append(records, &models.ProductImage{
			ID:           uuid.New(),
			ProductID:    productID,
			ImageURL:     fmt.Sprintf("http://minio/product-images/staging/x/%d.jpg", i),
			IsPrimary:    i == 0,
			DisplayOrder: i,
		})
	}
	return records
}

func loadedCarousel(t *testing.T, source *MockSource, records []*models.ProductImage) *Carousel {
	t.Helper()
	productID := uuid.New()
	if len(records) > 0 {
		productID = records[0].ProductID
	}
	source.On("FetchImages", mock.Anything, productID, fetchLimit, 0).Return(records, nil).Once()
	c := New(productID, source)
	require.NoError(t, c.Load(context.Background()))
	return c
}

func TestLoad_EmptyProduct(t *testing.T) {
	source := &MockSource{}
	c := loadedCarousel(t, source, nil)

	assert.Equal(t, StateEmpty, c.State())
	_, _, err := c.Current()
	assert.ErrorIs(t, err, ErrNotReady)
}

func TestLoad_FetchFailure(t *testing.T) {
	source := &MockSource{}
	productID := uuid.New()
	source.On("FetchImages", mock.Anything, productID, fetchLimit, 0).Return(nil, errors.New("connection refused")).Once()

	c := New(productID, source)
	err := c.Load(context.Background())

	require.Error(t, err)
	assert.Equal(t, StateError, c.State())
	assert.ErrorContains(t, c.Err(), "connection refused")
}

func TestLoad_StartsAtFirstRecord(t *testing.T) {
	source := &MockSource{}
	records := imageRecords(uuid.New(), 3)
	c := loadedCarousel(t, source, records)

	assert.Equal(t, StateReady, c.State())
	current, idx, err := c.Current()
	require.NoError(t, err)
	assert.Equal(t, 0, idx)
	assert.Equal(t, records[0].ID, current.ID)
}

func TestNavigation_ClampsAtBothEnds(t *testing.T) {
	source := &MockSource{}
	c := loadedCarousel(t, source, imageRecords(uuid.New(), 3))

	assert.Equal(t, 0, c.Prev())
	assert.Equal(t, 1, c.Next())
	assert.Equal(t, 2, c.Next())
	assert.Equal(t, 2, c.Next())
	assert.Equal(t, 1, c.Prev())
	assert.Equal(t, 0, c.Prev())
	assert.Equal(t, 0, c.Prev())
}

func TestRequestDelete_RequiresReadyState(t *testing.T) {
	source := &MockSource{}
	c := loadedCarousel(t, source, nil)

	assert.ErrorIs(t, c.RequestDelete(), ErrNotReady)
}

func TestConfirmDelete_WithoutRequest(t *testing.T) {
	source := &MockSource{}
	c := loadedCarousel(t, source, imageRecords(uuid.New(), 2))

	assert.ErrorIs(t, c.ConfirmDelete(context.Background()), ErrNoDeleteRequest)
}

func TestCancelDelete_ClosesDialogWithoutRequest(t *testing.T) {
	source := &MockSource{}
	c := loadedCarousel(t, source, imageRecords(uuid.New(), 2))

	require.NoError(t, c.RequestDelete())
	c.CancelDelete()

	pending, _ := c.DeletePending()
	assert.False(t, pending)
	assert.Equal(t, 2, c.Len())
	source.AssertNotCalled(t, "DeleteImage")
}

func TestConfirmDelete_RemovesRecordAndClampsPosition(t *testing.T) {
	source := &MockSource{}
	records := imageRecords(uuid.New(), 3)
	c := loadedCarousel(t, source, records)

	// Viewing the last record; deleting it moves the position to the new
	// last record.
	c.Next()
	c.Next()
	source.On("DeleteImage", mock.Anything, records[2].ID).Return(nil).Once()

	require.NoError(t, c.RequestDelete())
	require.NoError(t, c.ConfirmDelete(context.Background()))

	assert.Equal(t, 2, c.Len())
	current, idx, err := c.Current()
	require.NoError(t, err)
	assert.Equal(t, 1, idx)
	assert.Equal(t, records[1].ID, current.ID)
	pending, _ := c.DeletePending()
	assert.False(t, pending)
}

func TestConfirmDelete_MiddleRecordKeepsPosition(t *testing.T) {
	source := &MockSource{}
	records := imageRecords(uuid.New(), 3)
	c := loadedCarousel(t, source, records)

	c.Next()
	source.On("DeleteImage", mock.Anything, records[1].ID).Return(nil).Once()

	require.NoError(t, c.RequestDelete())
	require.NoError(t, c.ConfirmDelete(context.Background()))

	current, idx, err := c.Current()
	require.NoError(t, err)
	assert.Equal(t, 1, idx)
	assert.Equal(t, records[2].ID, current.ID)
}

func TestConfirmDelete_LastRemainingRecordGoesEmpty(t *testing.T) {
	source := &MockSource{}
	records := imageRecords(uuid.New(), 1)
	c := loadedCarousel(t, source, records)

	source.On("DeleteImage", mock.Anything, records[0].ID).Return(nil).Once()

	require.NoError(t, c.RequestDelete())
	require.NoError(t, c.ConfirmDelete(context.Background()))

	assert.Equal(t, StateEmpty, c.State())
	assert.Equal(t, 0, c.Len())
}

func TestConfirmDelete_FailureKeepsDialogAndList(t *testing.T) {
	source := &MockSource{}
	records := imageRecords(uuid.New(), 2)
	c := loadedCarousel(t, source, records)

	source.On("DeleteImage", mock.Anything, records[0].ID).Return(errors.New("image not found")).Once()

	require.NoError(t, c.RequestDelete())
	err := c.ConfirmDelete(context.Background())

	require.Error(t, err)
	assert.Equal(t, 2, c.Len())
	pending, deleteErr := c.DeletePending()
	assert.True(t, pending)
	assert.ErrorContains(t, deleteErr, "image not found")

	// A second delete request cannot open while the dialog is up.
	assert.ErrorIs(t, c.RequestDelete(), ErrDeleteInProgress)

	// Retrying the confirmation succeeds and closes the dialog.
	source.On("DeleteImage", mock.Anything, records[0].ID).Return(nil).Once()
	require.NoError(t, c.ConfirmDelete(context.Background()))
	assert.Equal(t, 1, c.Len())
	pending, _ = c.DeletePending()
	assert.False(t, pending)
}
