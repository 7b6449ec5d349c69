package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/azizikri/coupon-registry/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// CouponRepository persists coupons. Lookups report absence through the
// boolean result rather than an error.
type CouponRepository interface {
	Save(ctx context.Context, coupon domain.Coupon) (domain.Coupon, error)
	FindByID(ctx context.Context, id uuid.UUID) (domain.Coupon, bool, error)
	FindAll(ctx context.Context) ([]domain.Coupon, error)
	FindByCode(ctx context.Context, code string) (domain.Coupon, bool, error)
}

const pgUniqueViolationCode = "23505"

const selectCoupon = `SELECT id, code, description, discount_value::text, expiration_date, published, created_at, deleted_at FROM coupons`

type store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) CouponRepository {
	return &store{pool: pool}
}

func (s *store) Save(ctx context.Context, coupon domain.Coupon) (domain.Coupon, error) {
	snap := coupon.Snapshot()
	row := s.pool.QueryRow(ctx, `
		INSERT INTO coupons (id, code, description, discount_value, expiration_date, published, created_at, deleted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			description = EXCLUDED.description,
			discount_value = EXCLUDED.discount_value,
			expiration_date = EXCLUDED.expiration_date,
			published = EXCLUDED.published,
			deleted_at = EXCLUDED.deleted_at
		RETURNING id, code, description, discount_value::text, expiration_date, published, created_at, deleted_at`,
		snap.ID,
		snap.Code,
		snap.Description,
		snap.DiscountValue.String(),
		snap.ExpirationDate,
		snap.Published,
		snap.CreatedAt,
		snap.DeletedAt,
	)

	saved, err := scanCoupon(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolationCode {
			return domain.Coupon{}, duplicateCodeError(snap.Code)
		}
		return domain.Coupon{}, fmt.Errorf("save coupon: %w", err)
	}
	return saved, nil
}

func (s *store) FindByID(ctx context.Context, id uuid.UUID) (domain.Coupon, bool, error) {
	coupon, err := scanCoupon(s.pool.QueryRow(ctx, selectCoupon+` WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Coupon{}, false, nil
		}
		return domain.Coupon{}, false, fmt.Errorf("find coupon by id: %w", err)
	}
	return coupon, true, nil
}

func (s *store) FindAll(ctx context.Context) ([]domain.Coupon, error) {
	rows, err := s.pool.Query(ctx, selectCoupon+` ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list coupons: %w", err)
	}
	defer rows.Close()

	coupons := make([]domain.Coupon, 0)
	for rows.Next() {
		coupon, err := scanCoupon(rows)
		if err != nil {
			return nil, fmt.Errorf("scan coupon: %w", err)
		}
		coupons = append(coupons, coupon)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate coupons: %w", err)
	}
	return coupons, nil
}

// FindByCode prefers the active coupon for a code and otherwise returns the
// most recently created deleted one.
func (s *store) FindByCode(ctx context.Context, code string) (domain.Coupon, bool, error) {
	coupon, err := scanCoupon(s.pool.QueryRow(ctx,
		selectCoupon+` WHERE code = $1 ORDER BY (deleted_at IS NULL) DESC, created_at DESC LIMIT 1`,
		code,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Coupon{}, false, nil
		}
		return domain.Coupon{}, false, fmt.Errorf("find coupon by code: %w", err)
	}
	return coupon, true, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCoupon(row rowScanner) (domain.Coupon, error) {
	var (
		snap     domain.Snapshot
		discount string
		deleted  *time.Time
	)
	if err := row.Scan(
		&snap.ID,
		&snap.Code,
		&snap.Description,
		&discount,
		&snap.ExpirationDate,
		&snap.Published,
		&snap.CreatedAt,
		&deleted,
	); err != nil {
		return domain.Coupon{}, err
	}

	value, err := decimal.NewFromString(discount)
	if err != nil {
		return domain.Coupon{}, fmt.Errorf("parse discount value %q: %w", discount, err)
	}
	snap.DiscountValue = value
	snap.DeletedAt = deleted
	return domain.Reconstruct(snap), nil
}

func duplicateCodeError(code string) error {
	return domain.NewError(domain.KindDuplicateCode, fmt.Sprintf("active coupon with code '%s' already exists", code))
}
