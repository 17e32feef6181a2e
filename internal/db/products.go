package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Tamilarasan-gessdemn/green-backend/internal/models"
)

// ProductStore reads catalog records. The order flow never mutates products.
type ProductStore struct {
	pool *pgxpool.Pool
}

func NewProductStore(pool *pgxpool.Pool) *ProductStore {
	return &ProductStore{pool: pool}
}

func (s *ProductStore) GetByID(ctx context.Context, productID string) (*models.Product, error) {
	query := `
		SELECT id, name, description, category, price, weight, dimensions, availability, image, created_at, updated_at
		FROM products WHERE id = $1
	`

	var (
		product        models.Product
		dimensionsJSON []byte
		createdAt      pgtype.Timestamptz
		updatedAt      pgtype.Timestamptz
	)
	err := s.pool.QueryRow(ctx, query, productID).Scan(
		&product.ID, &product.Name, &product.Description, &product.Category,
		&product.Price, &product.Weight, &dimensionsJSON, &product.Availability,
		&product.Image, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if dimensionsJSON != nil {
		if err := json.Unmarshal(dimensionsJSON, &product.Dimensions); err != nil {
			return nil, fmt.Errorf("failed to decode product dimensions: %w", err)
		}
	}
	product.CreatedAt = createdAt.Time
	product.UpdatedAt = updatedAt.Time
	return &product, nil
}
