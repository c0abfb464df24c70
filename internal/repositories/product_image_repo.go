package repositories

import (
	"context"

	"shopfront/internal/models"

	"github.com/google/uuid"
)

type ProductImageRepository interface {
	Create(ctx context.Context, image *models.ProductImage) error
	ListByProductID(ctx context.Context, productID uuid.UUID, limit, offset int) ([]*models.ProductImage, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.ProductImage, error)
	Delete(ctx context.Context, id uuid.UUID) error
	CountByProductID(ctx context.Context, productID uuid.UUID) (int, error)
	ExistsByImageURL(ctx context.Context, imageURL string) (bool, error)
}

type productImageRepo struct {
	db DB
}

func NewProductImageRepo(db DB) ProductImageRepository {
	return &productImageRepo{db: db}
}

func (r *productImageRepo) Create(ctx context.Context, image *models.ProductImage) error {
	query := `
		INSERT INTO product_images (id, product_id, image_url, alt_text, is_primary, display_order, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
	`
	if image.ID == uuid.Nil {
		image.ID = uuid.New()
	}
	_, err := r.db.Exec(ctx, query, image.ID, image.ProductID, image.ImageURL, image.AltText, image.IsPrimary, image.DisplayOrder)
	return err
}

func (r *productImageRepo) ListByProductID(ctx context.Context, productID uuid.UUID, limit, offset int) ([]*models.ProductImage, error) {
	query := `
		SELECT id, product_id, image_url, alt_text, is_primary, display_order, created_at
		FROM product_images
		WHERE product_id = $1
		ORDER BY display_order ASC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, productID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var images []*models.ProductImage
	for rows.Next() {
		image := &models.ProductImage{}
		if err := rows.Scan(&image.ID, &image.ProductID, &image.ImageURL, &image.AltText, &image.IsPrimary, &image.DisplayOrder, &image.CreatedAt); err != nil {
			return nil, err
		}
		images = append(images, image)
	}
	return images, rows.Err()
}

func (r *productImageRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.ProductImage, error) {
	query := `
		SELECT id, product_id, image_url, alt_text, is_primary, display_order, created_at
		FROM product_images
		WHERE id = $1
	`
	image := &models.ProductImage{}
	err := r.db.QueryRow(ctx, query, id).Scan(&image.ID, &image.ProductID, &image.ImageURL, &image.AltText, &image.IsPrimary, &image.DisplayOrder, &image.CreatedAt)
	if err != nil {
		return nil, err
	}
	return image, nil
}

func (r *productImageRepo) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM product_images WHERE id = $1`
	_, err := r.db.Exec(ctx, query, id)
	return err
}

func (r *productImageRepo) CountByProductID(ctx context.Context, productID uuid.UUID) (int, error) {
	query := `SELECT COUNT(*) FROM product_images WHERE product_id = $1`
	var count int
	err := r.db.QueryRow(ctx, query, productID).Scan(&count)
	return count, err
}

func (r *productImageRepo) ExistsByImageURL(ctx context.Context, imageURL string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM product_images WHERE image_url = $1)`
	var exists bool
	err := r.db.QueryRow(ctx, query, imageURL).Scan(&exists)
	return exists, err
}
