package kafka

import (
	"context"

	"github.com/azizikri/coupon-registry/internal/metrics"
	"github.com/azizikri/coupon-registry/internal/usecase"
	"github.com/google/uuid"
)

// DirectGateway serves coupon operations in process and counts each one.
// It fronts the HTTP handler when event-driven mode is off and backs the
// Consumer when it is on.
type DirectGateway struct {
	service usecase.CouponGateway
	metrics *metrics.Recorder
}

func NewDirectGateway(service usecase.CouponGateway, recorder *metrics.Recorder) *DirectGateway {
	return &DirectGateway{service: service, metrics: recorder}
}

func (g *DirectGateway) CreateCoupon(ctx context.Context, in usecase.CreateCouponInput) (usecase.CouponView, error) {
	view, err := g.service.CreateCoupon(ctx, in)
	g.metrics.ObserveErr(metrics.OpCreate, err)
	return view, err
}

func (g *DirectGateway) DeleteCoupon(ctx context.Context, id uuid.UUID) (usecase.CouponView, bool, error) {
	view, found, err := g.service.DeleteCoupon(ctx, id)
	if err == nil && !found {
		g.metrics.Observe(metrics.OpDelete, metrics.OutcomeNotFound)
	} else {
		g.metrics.ObserveErr(metrics.OpDelete, err)
	}
	return view, found, err
}

func (g *DirectGateway) ListCoupons(ctx context.Context) ([]usecase.CouponView, error) {
	views, err := g.service.ListCoupons(ctx)
	g.metrics.ObserveErr(metrics.OpList, err)
	return views, err
}

var _ usecase.CouponGateway = (*DirectGateway)(nil)
