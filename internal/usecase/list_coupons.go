package usecase

import (
	"context"

	"github.com/azizikri/coupon-registry/internal/repository"
)

type ListCouponsUseCase struct {
	repo repository.CouponRepository
}

func NewListCouponsUseCase(repo repository.CouponRepository) *ListCouponsUseCase {
	return &ListCouponsUseCase{repo: repo}
}

// Execute returns every coupon, deleted ones included, in repository order.
func (uc *ListCouponsUseCase) Execute(ctx context.Context) ([]CouponView, error) {
	coupons, err := uc.repo.FindAll(ctx)
	if err != nil {
		return nil, err
	}

	views := make([]CouponView, 0, len(coupons))
	for _, c := range coupons {
		views = append(views, NewCouponView(c))
	}
	return views, nil
}
