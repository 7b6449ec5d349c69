package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/azizikri/coupon-registry/internal/domain"
	"github.com/azizikri/coupon-registry/internal/repository"
	"github.com/shopspring/decimal"
)

type CreateCouponInput struct {
	Code           string
	Description    string
	DiscountValue  decimal.Decimal
	ExpirationDate time.Time
	Published      bool
}

type CreateCouponUseCase struct {
	repo repository.CouponRepository
}

func NewCreateCouponUseCase(repo repository.CouponRepository) *CreateCouponUseCase {
	return &CreateCouponUseCase{repo: repo}
}

// Execute creates a coupon unless another active coupon already holds the
// same canonical code. Soft-deleted coupons do not block reuse of a code.
//
// The lookup and the save are not atomic. Two concurrent requests for the
// same code can both pass the lookup; the repository's unique index on
// active codes rejects the second save with domain.ErrDuplicateCode.
func (uc *CreateCouponUseCase) Execute(ctx context.Context, in CreateCouponInput) (CouponView, error) {
	code := domain.SanitizeCode(in.Code)

	existing, found, err := uc.repo.FindByCode(ctx, code)
	if err != nil {
		return CouponView{}, err
	}
	if found && !existing.IsDeleted() {
		return CouponView{}, domain.NewError(domain.KindDuplicateCode, fmt.Sprintf("active coupon with code '%s' already exists", code))
	}

	coupon, err := domain.NewCoupon(in.Code, in.Description, in.DiscountValue, in.ExpirationDate, in.Published)
	if err != nil {
		return CouponView{}, err
	}

	saved, err := uc.repo.Save(ctx, coupon)
	if err != nil {
		return CouponView{}, err
	}
	return NewCouponView(saved), nil
}
