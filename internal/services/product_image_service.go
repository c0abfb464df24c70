package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"strings"
	"time"

	"shopfront/internal/caching"
	"shopfront/internal/models"
	"shopfront/internal/repositories"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const (
	imageBucket      = "product-images"
	stagingPrefix    = "staging"
	imageListTTL     = 5 * time.Minute
	defaultListLimit = 100
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrImageNotFound   = errors.New("image not found")
	ErrNotStaged       = errors.New("object is not an unreferenced staging object")
)

// StagedUpload is the result of pushing one binary into the staging area of
// the bucket. URL is the durable reference the client hands back at commit
// time as ProductImage.ImageURL.
type StagedUpload struct {
	ObjectKey string `json:"object_key"`
	URL       string `json:"url"`
}

type ProductImageService interface {
	StageUpload(ctx context.Context, folder, filename, contentType string, reader io.Reader, size int64) (*StagedUpload, error)
	DeleteStagedObject(ctx context.Context, url string) error
	CreateImage(ctx context.Context, image *models.ProductImage) error
	ListImages(ctx context.Context, productID uuid.UUID, limit, offset int) ([]*models.ProductImage, error)
	GetImageURL(ctx context.Context, imageID uuid.UUID, expiry time.Duration) (string, error)
	DeleteImage(ctx context.Context, imageID uuid.UUID) error
}

type productImageService struct {
	imageRepo     repositories.ProductImageRepository
	productRepo   repositories.ProductRepository
	storage       StorageService
	cache         caching.CacheService
	publicBaseURL string
}

func NewProductImageService(imageRepo repositories.ProductImageRepository, productRepo repositories.ProductRepository, storage StorageService, cache caching.CacheService, publicBaseURL string) ProductImageService {
	return &productImageService{
		imageRepo:     imageRepo,
		productRepo:   productRepo,
		storage:       storage,
		cache:         cache,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
	}
}

// objectURL builds the durable reference stored in product_images.image_url.
func (s *productImageService) objectURL(objectKey string) string {
	return fmt.Sprintf("%s/%s/%s", s.publicBaseURL, imageBucket, objectKey)
}

// objectKeyFromURL is the inverse of objectURL for keys this service issued.
func (s *productImageService) objectKeyFromURL(imageURL string) string {
	return strings.TrimPrefix(imageURL, s.publicBaseURL+"/"+imageBucket+"/")
}

func (s *productImageService) StageUpload(ctx context.Context, folder, filename, contentType string, reader io.Reader, size int64) (*StagedUpload, error) {
	if folder == "" {
		folder = "uploads"
	}

	fileExt := filepath.Ext(filename)
	objectKey := fmt.Sprintf("%s/%s/%s%s", stagingPrefix, folder, uuid.New().String(), fileExt)

	if err := s.storage.EnsureBucketExists(ctx, imageBucket); err != nil {
		return nil, fmt.Errorf("failed to ensure bucket exists: %w", err)
	}

	if err := s.storage.Upload(ctx, imageBucket, objectKey, contentType, reader, size); err != nil {
		return nil, fmt.Errorf("failed to upload image to storage: %w", err)
	}

	return &StagedUpload{
		ObjectKey: objectKey,
		URL:       s.objectURL(objectKey),
	}, nil
}

// DeleteStagedObject removes one uploaded-but-uncommitted object. Objects
// outside the staging prefix, or already referenced by a committed record,
// are refused.
func (s *productImageService) DeleteStagedObject(ctx context.Context, url string) error {
	objectKey := s.objectKeyFromURL(url)
	if objectKey == url || !strings.HasPrefix(objectKey, stagingPrefix+"/") {
		return ErrNotStaged
	}

	referenced, err := s.imageRepo.ExistsByImageURL(ctx, url)
	if err != nil {
		return fmt.Errorf("failed to check object reference: %w", err)
	}
	if referenced {
		return ErrNotStaged
	}

	return s.storage.Delete(ctx, imageBucket, objectKey)
}

func (s *productImageService) CreateImage(ctx context.Context, image *models.ProductImage) error {
	if image.ProductID == uuid.Nil {
		return errors.New("product_id is required")
	}
	if strings.TrimSpace(image.ImageURL) == "" {
		return errors.New("image_url is required")
	}
	if image.DisplayOrder < 0 {
		return errors.New("display_order cannot be negative")
	}

	if _, err := s.productRepo.GetByID(ctx, image.ProductID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrProductNotFound
		}
		return fmt.Errorf("failed to resolve product: %w", err)
	}

	image.ID = uuid.New()
	if err := s.imageRepo.Create(ctx, image); err != nil {
		return err
	}

	// The carousel re-reads through the cache; drop the stale list.
	if cacheErr := s.cache.InvalidateProductImages(ctx, image.ProductID); cacheErr != nil {
		log.Printf("Failed to invalidate image cache for product %s: %v", image.ProductID.String(), cacheErr)
	}
	return nil
}

func (s *productImageService) ListImages(ctx context.Context, productID uuid.UUID, limit, offset int) ([]*models.ProductImage, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if offset < 0 {
		offset = 0
	}

	// Only the first page is cached; it is what the carousel renders.
	cacheable := offset == 0 && limit == defaultListLimit
	if cacheable {
		if images, err := s.cache.GetProductImages(ctx, productID); err == nil {
			return images, nil
		} else if !errors.Is(err, caching.ErrCacheMiss) {
			log.Printf("Image cache error for product %s: %v", productID.String(), err)
		}
	}

	images, err := s.imageRepo.ListByProductID(ctx, productID, limit, offset)
	if err != nil {
		return nil, err
	}

	if cacheable {
		if cacheErr := s.cache.SetProductImages(ctx, productID, images, imageListTTL); cacheErr != nil {
			log.Printf("Failed to cache images for product %s: %v", productID.String(), cacheErr)
		}
	}
	return images, nil
}

func (s *productImageService) GetImageURL(ctx context.Context, imageID uuid.UUID, expiry time.Duration) (string, error) {
	image, err := s.imageRepo.GetByID(ctx, imageID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrImageNotFound
		}
		return "", fmt.Errorf("failed to load image: %w", err)
	}

	url, err := s.storage.GetPresignedURL(ctx, imageBucket, s.objectKeyFromURL(image.ImageURL), expiry)
	if err != nil {
		return "", fmt.Errorf("failed to generate image URL: %w", err)
	}
	return url, nil
}

func (s *productImageService) DeleteImage(ctx context.Context, imageID uuid.UUID) error {
	image, err := s.imageRepo.GetByID(ctx, imageID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrImageNotFound
		}
		return fmt.Errorf("failed to load image: %w", err)
	}

	// Storage delete is best effort; the database row is authoritative.
	if err := s.storage.Delete(ctx, imageBucket, s.objectKeyFromURL(image.ImageURL)); err != nil {
		log.Printf("Warning: failed to delete object for image %s: %v", imageID.String(), err)
	}

	if err := s.imageRepo.Delete(ctx, imageID); err != nil {
		return err
	}

	if cacheErr := s.cache.InvalidateProductImages(ctx, image.ProductID); cacheErr != nil {
		log.Printf("Failed to invalidate image cache for product %s: %v", image.ProductID.String(), cacheErr)
	}
	return nil
}
