package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/givewidget/givewidget/internal/models"
)

// PromoRepository defines the interface for promo code data operations.
type PromoRepository interface {
	GetByCode(ctx context.Context, code string) (*models.PromoCode, error)
	// ConsumeUse increments current_uses if the cap allows it. Returns false
	// when the code is exhausted. The conditional UPDATE makes concurrent
	// redemptions safe without a transaction.
	ConsumeUse(ctx context.Context, id uuid.UUID) (bool, error)
}

type promoRepo struct {
	pool *pgxpool.Pool
}

// NewPromoRepository creates a new promo code repository.
func NewPromoRepository(pool *pgxpool.Pool) PromoRepository {
	return &promoRepo{pool: pool}
}

// GetByCode retrieves a promo code. Lookup is case-insensitive.
func (r *promoRepo) GetByCode(ctx context.Context, code string) (*models.PromoCode, error) {
	query := `
		SELECT id, code, discount_type, discount_value, applies_to, max_uses,
			current_uses, valid_from, valid_until, is_active, created_at
		FROM promo_codes
		WHERE LOWER(code) = $1`

	var p models.PromoCode
	err := r.pool.QueryRow(ctx, query, strings.ToLower(strings.TrimSpace(code))).Scan(
		&p.ID,
		&p.Code,
		&p.DiscountType,
		&p.DiscountValue,
		&p.AppliesTo,
		&p.MaxUses,
		&p.CurrentUses,
		&p.ValidFrom,
		&p.ValidUntil,
		&p.IsActive,
		&p.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ConsumeUse increments usage under the cap, compare-and-swap style.
func (r *promoRepo) ConsumeUse(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `
		UPDATE promo_codes
		SET current_uses = current_uses + 1
		WHERE id = $1 AND (max_uses IS NULL OR current_uses < max_uses)`

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return false, err
	}
	return result.RowsAffected() > 0, nil
}

// Compile-time check to ensure promoRepo implements PromoRepository.
var _ PromoRepository = (*promoRepo)(nil)
