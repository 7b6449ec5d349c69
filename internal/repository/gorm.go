package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/azizikri/coupon-registry/internal/domain"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// couponRecord is the row layout of the coupons table for GORM.
type couponRecord struct {
	ID             uuid.UUID       `gorm:"type:varchar(36);primaryKey"`
	Code           string          `gorm:"type:varchar(6);not null;index:idx_coupons_code;uniqueIndex:idx_coupons_active_code,where:deleted_at IS NULL"`
	Description    string          `gorm:"type:text;not null"`
	DiscountValue  decimal.Decimal `gorm:"type:numeric(10,2);not null"`
	ExpirationDate time.Time       `gorm:"not null"`
	Published      bool            `gorm:"not null;default:false"`
	CreatedAt      time.Time       `gorm:"not null"`
	DeletedAt      *time.Time
}

func (couponRecord) TableName() string {
	return "coupons"
}

func toRecord(c domain.Coupon) couponRecord {
	s := c.Snapshot()
	return couponRecord{
		ID:             s.ID,
		Code:           s.Code,
		Description:    s.Description,
		DiscountValue:  s.DiscountValue,
		ExpirationDate: s.ExpirationDate,
		Published:      s.Published,
		CreatedAt:      s.CreatedAt,
		DeletedAt:      s.DeletedAt,
	}
}

func (r couponRecord) toDomain() domain.Coupon {
	return domain.Reconstruct(domain.Snapshot{
		ID:             r.ID,
		Code:           r.Code,
		Description:    r.Description,
		DiscountValue:  r.DiscountValue,
		ExpirationDate: r.ExpirationDate,
		Published:      r.Published,
		CreatedAt:      r.CreatedAt,
		DeletedAt:      r.DeletedAt,
	})
}

// OpenSQLite opens an embedded SQLite database. The pool is capped at one
// connection so that ":memory:" databases are shared by every query.
func OpenSQLite(dsn string) (*gorm.DB, error) {
	trimmed := strings.TrimSpace(dsn)
	if trimmed == "" {
		return nil, errors.New("sqlite: empty dsn")
	}

	conn, err := gorm.Open(sqlite.Open(trimmed), &gorm.Config{
		Logger: logger.New(log.StandardLogger(), logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("sqlite: open sql: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}

	return conn, nil
}

// Migrate creates or updates the coupons table and its indexes.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&couponRecord{}); err != nil {
		return fmt.Errorf("migrate coupons: %w", err)
	}
	return nil
}

type gormStore struct {
	db *gorm.DB
}

func NewGorm(db *gorm.DB) CouponRepository {
	return &gormStore{db: db}
}

func (s *gormStore) Save(ctx context.Context, coupon domain.Coupon) (domain.Coupon, error) {
	rec := toRecord(coupon)
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"description", "discount_value", "expiration_date", "published", "deleted_at"}),
		}).
		Create(&rec).Error
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Coupon{}, duplicateCodeError(rec.Code)
		}
		return domain.Coupon{}, fmt.Errorf("save coupon: %w", err)
	}
	return rec.toDomain(), nil
}

func (s *gormStore) FindByID(ctx context.Context, id uuid.UUID) (domain.Coupon, bool, error) {
	var rec couponRecord
	err := s.db.WithContext(ctx).Where("id = ?", id).Take(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Coupon{}, false, nil
		}
		return domain.Coupon{}, false, fmt.Errorf("find coupon by id: %w", err)
	}
	return rec.toDomain(), true, nil
}

func (s *gormStore) FindAll(ctx context.Context) ([]domain.Coupon, error) {
	var recs []couponRecord
	if err := s.db.WithContext(ctx).Order("created_at ASC").Order("id ASC").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("list coupons: %w", err)
	}

	coupons := make([]domain.Coupon, 0, len(recs))
	for _, rec := range recs {
		coupons = append(coupons, rec.toDomain())
	}
	return coupons, nil
}

func (s *gormStore) FindByCode(ctx context.Context, code string) (domain.Coupon, bool, error) {
	var rec couponRecord
	err := s.db.WithContext(ctx).
		Where("code = ?", code).
		Order("CASE WHEN deleted_at IS NULL THEN 0 ELSE 1 END").
		Order("created_at DESC").
		Take(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Coupon{}, false, nil
		}
		return domain.Coupon{}, false, fmt.Errorf("find coupon by code: %w", err)
	}
	return rec.toDomain(), true, nil
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "duplicate key")
}
