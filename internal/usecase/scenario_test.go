package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/azizikri/coupon-registry/internal/domain"
	"github.com/azizikri/coupon-registry/internal/repository"
	"github.com/shopspring/decimal"
)

func newSQLiteService(t *testing.T) *CouponService {
	t.Helper()
	conn, err := repository.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if err := repository.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewCouponService(repository.NewGorm(conn))
}

func TestScenario_CreateThenDeleteTwice(t *testing.T) {
	svc := newSQLiteService(t)
	ctx := context.Background()

	created, err := svc.CreateCoupon(ctx, CreateCouponInput{
		Code:           "SAVE10",
		Description:    "Save 10 dollars",
		DiscountValue:  decimal.RequireFromString("10.00"),
		ExpirationDate: time.Now().Add(10 * 24 * time.Hour),
		Published:      true,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.DeletedAt != nil {
		t.Fatal("expected new coupon to be active")
	}

	deleted, found, err := svc.DeleteCoupon(ctx, created.ID)
	if err != nil || !found {
		t.Fatalf("delete: found=%v err=%v", found, err)
	}
	if deleted.DeletedAt == nil {
		t.Fatal("expected deletedAt to be set")
	}

	_, _, err = svc.DeleteCoupon(ctx, created.ID)
	if !errors.Is(err, domain.ErrAlreadyDeleted) {
		t.Fatalf("expected ErrAlreadyDeleted, got %v", err)
	}
}

func TestScenario_DuplicateOnlyAmongActive(t *testing.T) {
	svc := newSQLiteService(t)
	ctx := context.Background()

	first, err := svc.CreateCoupon(ctx, validInput("ABC123"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.CreateCoupon(ctx, validInput("abc-123")); !errors.Is(err, domain.ErrDuplicateCode) {
		t.Fatalf("expected ErrDuplicateCode, got %v", err)
	}

	if _, _, err := svc.DeleteCoupon(ctx, first.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	second, err := svc.CreateCoupon(ctx, validInput("ABC123"))
	if err != nil {
		t.Fatalf("expected recreate after soft delete to succeed, got %v", err)
	}
	if second.ID == first.ID {
		t.Fatal("expected a new coupon id")
	}
}

func TestScenario_ListIncludesDeleted(t *testing.T) {
	svc := newSQLiteService(t)
	ctx := context.Background()

	a, err := svc.CreateCoupon(ctx, validInput("AAA111"))
	if err != nil {
		t.Fatalf("create a: %v", err)
	}
	b, err := svc.CreateCoupon(ctx, validInput("BBB222"))
	if err != nil {
		t.Fatalf("create b: %v", err)
	}
	if _, _, err := svc.DeleteCoupon(ctx, b.ID); err != nil {
		t.Fatalf("delete b: %v", err)
	}

	views, err := svc.ListCoupons(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("expected 2 coupons, got %d", len(views))
	}
	for _, v := range views {
		switch v.ID {
		case a.ID:
			if v.DeletedAt != nil {
				t.Fatal("expected first coupon to be active")
			}
		case b.ID:
			if v.DeletedAt == nil {
				t.Fatal("expected second coupon to be deleted")
			}
		default:
			t.Fatalf("unexpected coupon %s", v.ID)
		}
	}
}
