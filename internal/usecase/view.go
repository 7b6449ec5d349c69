package usecase

import (
	"time"

	"github.com/azizikri/coupon-registry/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CouponView is the read-only representation handed back to callers.
type CouponView struct {
	ID             uuid.UUID       `json:"id"`
	Code           string          `json:"code"`
	Description    string          `json:"description"`
	DiscountValue  decimal.Decimal `json:"discount_value"`
	ExpirationDate time.Time       `json:"expiration_date"`
	Published      bool            `json:"published"`
	CreatedAt      time.Time       `json:"created_at"`
	DeletedAt      *time.Time      `json:"deleted_at"`
}

func NewCouponView(c domain.Coupon) CouponView {
	return CouponView{
		ID:             c.ID(),
		Code:           c.Code(),
		Description:    c.Description(),
		DiscountValue:  c.DiscountValue(),
		ExpirationDate: c.ExpirationDate(),
		Published:      c.Published(),
		CreatedAt:      c.CreatedAt(),
		DeletedAt:      c.DeletedAt(),
	}
}
