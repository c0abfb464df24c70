package jobs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"testing"
	"time"

	"shopfront/internal/models"
	"shopfront/internal/services"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockCache struct {
	mock.Mock
}

func (m *MockCache) GetProductImages(ctx context.Context, productID uuid.UUID) ([]*models.ProductImage, error) {
	args := m.Called(ctx, productID)
	if images, ok := args.Get(0).([]*models.ProductImage); ok {
		return images, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCache) SetProductImages(ctx context.Context, productID uuid.UUID, images []*models.ProductImage, ttl time.Duration) error {
	args := m.Called(ctx, productID, images, ttl)
	return args.Error(0)
}

func (m *MockCache) InvalidateProductImages(ctx context.Context, productID uuid.UUID) error {
	args := m.Called(ctx, productID)
	return args.Error(0)
}

func (m *MockCache) SetString(ctx context.Context, key, value string, ttl time.Duration) error {
	args := m.Called(ctx, key, value, ttl)
	return args.Error(0)
}

func (m *MockCache) GetString(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func (m *MockCache) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, key, value, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockCache) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockCache) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func sourceImageBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 32, 32))
	for x := 0; x < 32; x++ {
		for y := 0; y < 32; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 8), G: uint8(y * 8), B: 96, A: 255})
		}
	}
	buf := &bytes.Buffer{}
	require.NoError(t, imaging.Encode(buf, img, imaging.PNG))
	return buf.Bytes()
}

func enhanceTask(t *testing.T, runID uuid.UUID, sources ...services.EnhanceSource) *asynq.Task {
	t.Helper()
	task, err := services.NewEnhancePreviewTask(services.EnhancePreviewPayload{
		RunID:   runID,
		Sources: sources,
	})
	require.NoError(t, err)
	return task
}

func storedRun(t *testing.T, cache *MockCache, runID uuid.UUID) *models.EnhancementRun {
	t.Helper()
	for _, call := range cache.Calls {
		if call.Method != "SetString" {
			continue
		}
		if call.Arguments.String(1) != "enhance:run:"+runID.String() {
			continue
		}
		run := &models.EnhancementRun{}
		require.NoError(t, json.Unmarshal([]byte(call.Arguments.String(2)), run))
		return run
	}
	t.Fatalf("run %s was never stored", runID)
	return nil
}

func TestProcessTask_ProducesPreviewPerSource(t *testing.T) {
	storage := new(MockStorage)
	cache := new(MockCache)
	processor := NewEnhanceProcessor(storage, cache)
	runID := uuid.New()

	source := sourceImageBytes(t)
	storage.On("Download", mock.Anything, "product-images", "previews/src/run/00.png").Return(source, nil)
	storage.On("Download", mock.Anything, "product-images", "previews/src/run/01.png").Return(source, nil)
	storage.On("Upload", mock.Anything, "product-images", "previews/out/"+runID.String()+"/00.jpg", "image/jpeg", mock.Anything, mock.Anything).Return(nil)
	storage.On("Upload", mock.Anything, "product-images", "previews/out/"+runID.String()+"/01.jpg", "image/jpeg", mock.Anything, mock.Anything).Return(nil)
	storage.On("GetPresignedURL", mock.Anything, "product-images", mock.Anything, 24*time.Hour).Return("http://minio/signed", nil)
	cache.On("SetString", mock.Anything, "enhance:run:"+runID.String(), mock.Anything, time.Hour).Return(nil)
	cache.On("Delete", mock.Anything, "enhance:inflight").Return(nil)

	err := processor.ProcessTask(context.Background(), enhanceTask(t, runID,
		services.EnhanceSource{Name: "a.jpg", ObjectKey: "previews/src/run/00.png"},
		services.EnhanceSource{Name: "b.jpg", ObjectKey: "previews/src/run/01.png"},
	))

	require.NoError(t, err)
	run := storedRun(t, cache, runID)
	assert.Equal(t, models.EnhancementStatusDone, run.Status)
	require.Len(t, run.Previews, 2)
	assert.Equal(t, "a.jpg", run.Previews[0].SourceName)
	cache.AssertCalled(t, "Delete", mock.Anything, "enhance:inflight")
}

func TestProcessTask_SkipsUndecodableSources(t *testing.T) {
	storage := new(MockStorage)
	cache := new(MockCache)
	processor := NewEnhanceProcessor(storage, cache)
	runID := uuid.New()

	storage.On("Download", mock.Anything, "product-images", "previews/src/run/00.bin").Return([]byte("not an image"), nil)
	storage.On("Download", mock.Anything, "product-images", "previews/src/run/01.png").Return(sourceImageBytes(t), nil)
	storage.On("Upload", mock.Anything, "product-images", mock.Anything, "image/jpeg", mock.Anything, mock.Anything).Return(nil)
	storage.On("GetPresignedURL", mock.Anything, "product-images", mock.Anything, 24*time.Hour).Return("http://minio/signed", nil)
	cache.On("SetString", mock.Anything, mock.Anything, mock.Anything, time.Hour).Return(nil)
	cache.On("Delete", mock.Anything, "enhance:inflight").Return(nil)

	err := processor.ProcessTask(context.Background(), enhanceTask(t, runID,
		services.EnhanceSource{Name: "broken.bin", ObjectKey: "previews/src/run/00.bin"},
		services.EnhanceSource{Name: "good.jpg", ObjectKey: "previews/src/run/01.png"},
	))

	require.NoError(t, err)
	run := storedRun(t, cache, runID)
	assert.Equal(t, models.EnhancementStatusDone, run.Status)
	require.Len(t, run.Previews, 1)
	assert.Equal(t, "good.jpg", run.Previews[0].SourceName)
}

func TestProcessTask_AllSourcesFailMarksRunFailed(t *testing.T) {
	storage := new(MockStorage)
	cache := new(MockCache)
	processor := NewEnhanceProcessor(storage, cache)
	runID := uuid.New()

	storage.On("Download", mock.Anything, "product-images", mock.Anything).Return(nil, errors.New("object missing"))
	cache.On("SetString", mock.Anything, mock.Anything, mock.Anything, time.Hour).Return(nil)
	cache.On("Delete", mock.Anything, "enhance:inflight").Return(nil)

	err := processor.ProcessTask(context.Background(), enhanceTask(t, runID,
		services.EnhanceSource{Name: "a.jpg", ObjectKey: "previews/src/run/00.png"},
		services.EnhanceSource{Name: "b.jpg", ObjectKey: "previews/src/run/01.png"},
	))

	require.NoError(t, err)
	run := storedRun(t, cache, runID)
	assert.Equal(t, models.EnhancementStatusFailed, run.Status)
	assert.NotEmpty(t, run.Error)
	assert.Empty(t, run.Previews)
	storage.AssertNotCalled(t, "Upload")
}

func TestProcessTask_ReleasesGuardOnBadPayload(t *testing.T) {
	storage := new(MockStorage)
	cache := new(MockCache)
	processor := NewEnhanceProcessor(storage, cache)

	cache.On("Delete", mock.Anything, "enhance:inflight").Return(nil)

	err := processor.ProcessTask(context.Background(), asynq.NewTask(services.TypeEnhancePreview, []byte("not json")))

	assert.Error(t, err)
	cache.AssertCalled(t, "Delete", mock.Anything, "enhance:inflight")
}
