package usecase

import (
	"context"

	"github.com/google/uuid"
)

// CouponGateway is what transports call to reach the coupon use cases,
// either in-process or over the message bus.
type CouponGateway interface {
	CreateCoupon(ctx context.Context, in CreateCouponInput) (CouponView, error)
	DeleteCoupon(ctx context.Context, id uuid.UUID) (CouponView, bool, error)
	ListCoupons(ctx context.Context) ([]CouponView, error)
}
