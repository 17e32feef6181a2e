package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Tamilarasan-gessdemn/green-backend/internal/models"
)

// ErrCartRevisionConflict is returned when a conditional cart write observes a
// revision other than the one it read, meaning a concurrent mutation won.
var ErrCartRevisionConflict = errors.New("cart revision conflict")

type CartStore struct {
	pool *pgxpool.Pool
}

func NewCartStore(pool *pgxpool.Pool) *CartStore {
	return &CartStore{pool: pool}
}

// GetOrCreate returns the user's cart, creating an empty one on first access.
// The user_id unique constraint makes concurrent first accesses converge on a
// single row.
func (s *CartStore) GetOrCreate(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	cart, err := s.getByUser(ctx, userID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	query := `
		INSERT INTO carts (user_id, items, total_amount, revision)
		VALUES ($1, '[]'::jsonb, 0, 0)
		ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
		RETURNING id, user_id, items, total_amount, revision, created_at, updated_at
	`
	return s.scanCart(s.pool.QueryRow(ctx, query, userID))
}

// GetByUser returns the user's cart or pgx.ErrNoRows.
func (s *CartStore) GetByUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	return s.getByUser(ctx, userID)
}

func (s *CartStore) getByUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	query := `
		SELECT id, user_id, items, total_amount, revision, created_at, updated_at
		FROM carts WHERE user_id = $1
	`
	return s.scanCart(s.pool.QueryRow(ctx, query, userID))
}

// Save writes the cart's items and cached total, guarded on the revision the
// caller read. On success the revision is bumped and reflected on the model.
func (s *CartStore) Save(ctx context.Context, cart *models.Cart) error {
	itemsJSON, err := json.Marshal(cart.Items)
	if err != nil {
		return fmt.Errorf("failed to encode cart items: %w", err)
	}

	query := `
		UPDATE carts
		SET items = $1, total_amount = $2, revision = revision + 1, updated_at = NOW()
		WHERE user_id = $3 AND revision = $4
	`
	cmdTag, err := s.pool.Exec(ctx, query, itemsJSON, cart.TotalAmount, cart.UserID, cart.Revision)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrCartRevisionConflict
	}
	cart.Revision++
	return nil
}

// Clear empties the cart if its revision still matches the one observed at
// read time. A conflict means a concurrent mutation slipped in between the
// placement's cart read and this clear.
func (s *CartStore) Clear(ctx context.Context, userID uuid.UUID, revision int64) error {
	query := `
		UPDATE carts
		SET items = '[]'::jsonb, total_amount = 0, revision = revision + 1, updated_at = NOW()
		WHERE user_id = $1 AND revision = $2
	`
	cmdTag, err := s.pool.Exec(ctx, query, userID, revision)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrCartRevisionConflict
	}
	return nil
}

func (s *CartStore) scanCart(row orderRow) (*models.Cart, error) {
	var (
		cart      models.Cart
		itemsJSON []byte
		createdAt pgtype.Timestamptz
		updatedAt pgtype.Timestamptz
	)

	err := row.Scan(&cart.ID, &cart.UserID, &itemsJSON, &cart.TotalAmount, &cart.Revision, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(itemsJSON, &cart.Items); err != nil {
		return nil, fmt.Errorf("failed to decode cart items: %w", err)
	}
	cart.CreatedAt = createdAt.Time
	cart.UpdatedAt = updatedAt.Time
	return &cart, nil
}
