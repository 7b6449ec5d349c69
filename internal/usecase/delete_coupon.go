package usecase

import (
	"context"

	"github.com/azizikri/coupon-registry/internal/repository"
	"github.com/google/uuid"
)

type DeleteCouponUseCase struct {
	repo repository.CouponRepository
}

func NewDeleteCouponUseCase(repo repository.CouponRepository) *DeleteCouponUseCase {
	return &DeleteCouponUseCase{repo: repo}
}

// Execute soft-deletes the coupon with the given id. An unknown id yields
// found == false and no error; a coupon that is already deleted yields
// domain.ErrAlreadyDeleted.
func (uc *DeleteCouponUseCase) Execute(ctx context.Context, id uuid.UUID) (CouponView, bool, error) {
	coupon, found, err := uc.repo.FindByID(ctx, id)
	if err != nil || !found {
		return CouponView{}, false, err
	}

	deleted, err := coupon.Delete()
	if err != nil {
		return CouponView{}, false, err
	}

	saved, err := uc.repo.Save(ctx, deleted)
	if err != nil {
		return CouponView{}, false, err
	}
	return NewCouponView(saved), true, nil
}
