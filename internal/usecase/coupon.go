package usecase

import (
	"context"

	"github.com/azizikri/coupon-registry/internal/repository"
	"github.com/google/uuid"
)

// CouponService bundles the coupon use cases behind CouponGateway.
type CouponService struct {
	create *CreateCouponUseCase
	delete *DeleteCouponUseCase
	list   *ListCouponsUseCase
}

func NewCouponService(repo repository.CouponRepository) *CouponService {
	return &CouponService{
		create: NewCreateCouponUseCase(repo),
		delete: NewDeleteCouponUseCase(repo),
		list:   NewListCouponsUseCase(repo),
	}
}

func (s *CouponService) CreateCoupon(ctx context.Context, in CreateCouponInput) (CouponView, error) {
	return s.create.Execute(ctx, in)
}

func (s *CouponService) DeleteCoupon(ctx context.Context, id uuid.UUID) (CouponView, bool, error) {
	return s.delete.Execute(ctx, id)
}

func (s *CouponService) ListCoupons(ctx context.Context) ([]CouponView, error) {
	return s.list.Execute(ctx)
}

var _ CouponGateway = (*CouponService)(nil)
