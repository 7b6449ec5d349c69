package http

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/azizikri/coupon-registry/internal/delivery/kafka"
	"github.com/azizikri/coupon-registry/internal/metrics"
	"github.com/azizikri/coupon-registry/internal/repository"
	"github.com/azizikri/coupon-registry/internal/usecase"
	"github.com/prometheus/client_golang/prometheus"
)

func newSQLiteRouter(t *testing.T) http.Handler {
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
	service := usecase.NewCouponService(repository.NewGorm(conn))
	return newRouter(kafka.NewDirectGateway(service, metrics.NewRecorder(prometheus.NewRegistry())))
}

func TestEndToEnd_CouponLifecycle(t *testing.T) {
	h := newSQLiteRouter(t)

	rec := do(t, h, http.MethodPost, "/api/v1/coupons", createBody)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created usecase.CouponView
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.Code != "SAVE10" {
		t.Fatalf("expected sanitized code SAVE10, got %s", created.Code)
	}

	if rec := do(t, h, http.MethodPost, "/api/v1/coupons", createBody); rec.Code != http.StatusConflict {
		t.Fatalf("duplicate: expected 409, got %d", rec.Code)
	}

	path := "/api/v1/coupons/" + created.ID.String()
	if rec := do(t, h, http.MethodDelete, path, ""); rec.Code != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d", rec.Code)
	}
	if rec := do(t, h, http.MethodDelete, path, ""); rec.Code != http.StatusConflict {
		t.Fatalf("second delete: expected 409, got %d", rec.Code)
	}

	if rec := do(t, h, http.MethodPost, "/api/v1/coupons", createBody); rec.Code != http.StatusCreated {
		t.Fatalf("recreate: expected 201, got %d", rec.Code)
	}

	rec = do(t, h, http.MethodGet, "/api/v1/coupons", "")
	var views []usecase.CouponView
	if err := json.NewDecoder(rec.Body).Decode(&views); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("expected deleted and active coupon, got %d", len(views))
	}
}
