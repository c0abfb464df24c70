package caching

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"shopfront/internal/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type CacheService interface {
	// Product image list caching. The carousel always re-reads through this
	// boundary; commit and delete invalidate it.
	GetProductImages(ctx context.Context, productID uuid.UUID) ([]*models.ProductImage, error)
	SetProductImages(ctx context.Context, productID uuid.UUID, images []*models.ProductImage, ttl time.Duration) error
	InvalidateProductImages(ctx context.Context, productID uuid.UUID) error

	// Generic string operations, used for the enhancement run guard and
	// preview result storage.
	SetString(ctx context.Context, key, value string, ttl time.Duration) error
	GetString(ctx context.Context, key string) (string, error)
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, key string) error

	Ping(ctx context.Context) error
}

// ErrCacheMiss is returned when a key is absent. Callers treat it as a
// signal to fall through to the database, never as a failure.
var ErrCacheMiss = errors.New("cache miss")

type redisCacheService struct {
	client *redis.Client
}

func NewRedisCacheService(addr, password string, db int) CacheService {
	parsedAddr := addr
	if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
		if hostPort := strings.TrimPrefix(strings.TrimPrefix(addr, "redis://"), "rediss://"); hostPort != addr {
			parsedAddr = hostPort
		}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     parsedAddr,
		Password: password,
		DB:       db,
	})

	if pingErr := client.Ping(context.Background()).Err(); pingErr != nil {
		log.Printf("WARN: Redis ping failed on initialization: %v (address: %s)", pingErr, parsedAddr)
	}

	return &redisCacheService{client: client}
}

func productImagesKey(productID uuid.UUID) string {
	return fmt.Sprintf("product_images:%s", productID.String())
}

func (s *redisCacheService) GetProductImages(ctx context.Context, productID uuid.UUID) ([]*models.ProductImage, error) {
	data, err := s.client.Get(ctx, productImagesKey(productID)).Result()
	if err == redis.Nil {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, err
	}

	var images []*models.ProductImage
	if err := json.Unmarshal([]byte(data), &images); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached product images: %w", err)
	}
	return images, nil
}

func (s *redisCacheService) SetProductImages(ctx context.Context, productID uuid.UUID, images []*models.ProductImage, ttl time.Duration) error {
	data, err := json.Marshal(images)
	if err != nil {
		return fmt.Errorf("failed to marshal product images: %w", err)
	}
	return s.client.Set(ctx, productImagesKey(productID), data, ttl).Err()
}

func (s *redisCacheService) InvalidateProductImages(ctx context.Context, productID uuid.UUID) error {
	return s.client.Del(ctx, productImagesKey(productID)).Err()
}

func (s *redisCacheService) SetString(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl).Err()
}

func (s *redisCacheService) GetString(ctx context.Context, key string) (string, error) {
	val, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", ErrCacheMiss
	}
	return val, err
}

func (s *redisCacheService) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	return s.client.SetNX(ctx, key, value, ttl).Result()
}

func (s *redisCacheService) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}

func (s *redisCacheService) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
