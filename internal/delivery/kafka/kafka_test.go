package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/azizikri/coupon-registry/internal/config"
	"github.com/azizikri/coupon-registry/internal/domain"
	"github.com/azizikri/coupon-registry/internal/metrics"
	"github.com/azizikri/coupon-registry/internal/usecase"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/twmb/franz-go/pkg/kgo"
)

type mockGateway struct {
	createFn func(ctx context.Context, in usecase.CreateCouponInput) (usecase.CouponView, error)
	deleteFn func(ctx context.Context, id uuid.UUID) (usecase.CouponView, bool, error)
	listFn   func(ctx context.Context) ([]usecase.CouponView, error)
}

func (m *mockGateway) CreateCoupon(ctx context.Context, in usecase.CreateCouponInput) (usecase.CouponView, error) {
	return m.createFn(ctx, in)
}

func (m *mockGateway) DeleteCoupon(ctx context.Context, id uuid.UUID) (usecase.CouponView, bool, error) {
	return m.deleteFn(ctx, id)
}

func (m *mockGateway) ListCoupons(ctx context.Context) ([]usecase.CouponView, error) {
	return m.listFn(ctx)
}

func TestHandleCreate_Success(t *testing.T) {
	expiration := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	discount := decimal.RequireFromString("10.00")

	var got usecase.CreateCouponInput
	c := NewConsumer(&config.Config{}, nil, &mockGateway{
		createFn: func(ctx context.Context, in usecase.CreateCouponInput) (usecase.CouponView, error) {
			got = in
			return usecase.CouponView{ID: uuid.New(), Code: "SAVE10"}, nil
		},
	})

	resp := c.handle(context.Background(), TopicCreateRequest, RequestPayload{
		CorrelationID:  "corr-1",
		Code:           "save-10",
		Description:    "Save 10",
		DiscountValue:  &discount,
		ExpirationDate: &expiration,
		Published:      true,
	})
	if resp == nil || resp.Status != StatusSuccess {
		t.Fatalf("expected success response, got %+v", resp)
	}
	if resp.CorrelationID != "corr-1" || resp.Coupon == nil || resp.Coupon.Code != "SAVE10" {
		t.Fatalf("unexpected response %+v", resp)
	}
	if got.Code != "save-10" || !got.DiscountValue.Equal(discount) || !got.ExpirationDate.Equal(expiration) || !got.Published {
		t.Fatalf("request not forwarded as input: %+v", got)
	}
}

func TestHandleCreate_DomainError(t *testing.T) {
	c := NewConsumer(&config.Config{}, nil, &mockGateway{
		createFn: func(ctx context.Context, in usecase.CreateCouponInput) (usecase.CouponView, error) {
			return usecase.CouponView{}, domain.NewError(domain.KindDuplicateCode, "active coupon with code 'ABC123' already exists")
		},
	})

	resp := c.handle(context.Background(), TopicCreateRequest, RequestPayload{CorrelationID: "corr-2"})
	if resp.Status != StatusError || resp.ErrorCode != ErrCodeDuplicateCode {
		t.Fatalf("expected duplicate code error, got %+v", resp)
	}
	if resp.ErrorMessage != "active coupon with code 'ABC123' already exists" {
		t.Fatalf("unexpected message %q", resp.ErrorMessage)
	}
}

func TestHandleDelete(t *testing.T) {
	known := uuid.New()
	c := NewConsumer(&config.Config{}, nil, &mockGateway{
		deleteFn: func(ctx context.Context, id uuid.UUID) (usecase.CouponView, bool, error) {
			if id != known {
				return usecase.CouponView{}, false, nil
			}
			now := time.Now()
			return usecase.CouponView{ID: id, DeletedAt: &now}, true, nil
		},
	})

	resp := c.handle(context.Background(), TopicDeleteRequest, RequestPayload{ID: "not-a-uuid"})
	if resp.Status != StatusError || resp.ErrorCode != ErrCodeInvalidRequest {
		t.Fatalf("expected invalid request, got %+v", resp)
	}

	resp = c.handle(context.Background(), TopicDeleteRequest, RequestPayload{ID: uuid.NewString()})
	if resp.Status != StatusSuccess || resp.Found || resp.Coupon != nil {
		t.Fatalf("expected empty success, got %+v", resp)
	}

	resp = c.handle(context.Background(), TopicDeleteRequest, RequestPayload{ID: known.String()})
	if resp.Status != StatusSuccess || !resp.Found || resp.Coupon == nil || resp.Coupon.DeletedAt == nil {
		t.Fatalf("expected deleted coupon, got %+v", resp)
	}
}

func TestHandleList(t *testing.T) {
	c := NewConsumer(&config.Config{}, nil, &mockGateway{
		listFn: func(ctx context.Context) ([]usecase.CouponView, error) {
			return []usecase.CouponView{{Code: "AAA111"}, {Code: "BBB222"}}, nil
		},
	})

	resp := c.handle(context.Background(), TopicListRequest, RequestPayload{})
	if resp.Status != StatusSuccess || len(resp.Coupons) != 2 || resp.Coupons[1].Code != "BBB222" {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestHandleInternalError(t *testing.T) {
	c := NewConsumer(&config.Config{}, nil, &mockGateway{
		listFn: func(ctx context.Context) ([]usecase.CouponView, error) {
			return nil, errors.New("connection refused")
		},
	})

	resp := c.handle(context.Background(), TopicListRequest, RequestPayload{})
	if resp.ErrorCode != ErrCodeInternalError {
		t.Fatalf("expected internal error, got %+v", resp)
	}
}

func TestHandleUnknownTopic(t *testing.T) {
	c := NewConsumer(&config.Config{}, nil, &mockGateway{})
	if resp := c.handle(context.Background(), "coupon.other.req", RequestPayload{}); resp != nil {
		t.Fatalf("expected nil response, got %+v", resp)
	}
}

func TestErrorCodesRoundTrip(t *testing.T) {
	sentinels := []error{
		domain.ErrInvalidCode,
		domain.ErrInvalidDiscount,
		domain.ErrInvalidExpiration,
		domain.ErrInvalidDescription,
		domain.ErrDuplicateCode,
		domain.ErrAlreadyDeleted,
	}
	for _, sentinel := range sentinels {
		code := errorCode(sentinel)
		if code == ErrCodeInternalError {
			t.Fatalf("%v mapped to internal error", sentinel)
		}
		mapped := mapError(code, sentinel.Error())
		if !errors.Is(mapped, sentinel) {
			t.Fatalf("code %s did not map back to %v", code, sentinel)
		}
		if mapped.Error() != sentinel.Error() {
			t.Fatalf("expected message %q, got %q", sentinel.Error(), mapped.Error())
		}
	}

	if err := mapError(ErrCodeInternalError, "boom"); domain.KindOf(err) != domain.KindUnknown || err.Error() != "boom" {
		t.Fatalf("unexpected internal error mapping %v", err)
	}
}

func TestHandleResponse_DeliversToPending(t *testing.T) {
	g := NewGateway(&config.Config{KafkaInstanceID: "node-1"}, nil)
	ch := make(chan *ResponsePayload, 1)
	g.pendingResp.Store("corr-1", ch)

	payload, _ := json.Marshal(ResponsePayload{CorrelationID: "corr-1", Status: StatusSuccess, Found: true})
	g.HandleResponse(payload)
	g.HandleResponse([]byte("{not json"))
	g.HandleResponse([]byte(`{"correlation_id":"other"}`))

	select {
	case resp := <-ch:
		if !resp.Found || resp.Status != StatusSuccess {
			t.Fatalf("unexpected response %+v", resp)
		}
	default:
		t.Fatal("expected response to be delivered")
	}
}

func TestGateway_NewRequestUsesInstanceReplyTopic(t *testing.T) {
	g := NewGateway(&config.Config{KafkaInstanceID: "node-1"}, nil)
	req := g.newRequest()
	if req.ReplyTo != "coupon.reply.node-1" {
		t.Fatalf("unexpected reply topic %s", req.ReplyTo)
	}
	if _, err := uuid.Parse(req.CorrelationID); err != nil {
		t.Fatalf("expected uuid correlation id, got %s", req.CorrelationID)
	}
	if req.SchemaVersion != SchemaVersion {
		t.Fatalf("unexpected schema version %d", req.SchemaVersion)
	}
}

func TestGateway_AwaitHonoursContext(t *testing.T) {
	g := NewGateway(&config.Config{}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := g.await(ctx, make(chan *ResponsePayload)); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled, got %v", err)
	}
}

func TestRetryHeaders(t *testing.T) {
	nextAt := time.Now().Add(time.Second).UTC()
	record := &kgo.Record{
		Topic: TopicCreateRetry,
		Headers: []kgo.RecordHeader{
			{Key: RetryHeaderNextAt, Value: []byte(nextAt.Format(time.RFC3339Nano))},
			{Key: RetryHeaderAttempt, Value: []byte(strconv.Itoa(2))},
		},
	}

	got, ok := retryNextAt(record)
	if !ok || !got.Equal(nextAt) {
		t.Fatalf("expected next at %v, got %v (ok=%v)", nextAt, got, ok)
	}
	if attempt := retryAttempt(record); attempt != 2 {
		t.Fatalf("expected attempt 2, got %d", attempt)
	}
	if attempt := retryAttempt(&kgo.Record{}); attempt != 0 {
		t.Fatalf("expected first delivery, got %d", attempt)
	}
	if _, ok := retryNextAt(&kgo.Record{Headers: []kgo.RecordHeader{{Key: RetryHeaderNextAt, Value: []byte("soon")}}}); ok {
		t.Fatal("expected malformed header to be ignored")
	}
}

func TestTopicNames(t *testing.T) {
	if got := retryTopicFor(TopicDeleteRequest); got != TopicDeleteRetry {
		t.Fatalf("expected %s, got %s", TopicDeleteRetry, got)
	}
	if got := requestTopicFor(TopicListRetry); got != TopicListRequest {
		t.Fatalf("expected %s, got %s", TopicListRequest, got)
	}
	if got := requestTopicFor(TopicCreateRequest); got != TopicCreateRequest {
		t.Fatalf("expected %s, got %s", TopicCreateRequest, got)
	}

	topics := Topics(&config.Config{KafkaInstanceID: "node-1"})
	if len(topics) != 10 {
		t.Fatalf("expected 10 topics, got %d: %v", len(topics), topics)
	}
	if topics[len(topics)-1] != "coupon.reply.node-1" {
		t.Fatalf("expected reply topic last, got %s", topics[len(topics)-1])
	}
}

func TestDirectGateway_RecordsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec := metrics.NewRecorder(reg)
	g := NewDirectGateway(&mockGateway{
		createFn: func(ctx context.Context, in usecase.CreateCouponInput) (usecase.CouponView, error) {
			return usecase.CouponView{}, domain.ErrInvalidCode
		},
		deleteFn: func(ctx context.Context, id uuid.UUID) (usecase.CouponView, bool, error) {
			return usecase.CouponView{}, false, nil
		},
		listFn: func(ctx context.Context) ([]usecase.CouponView, error) {
			return []usecase.CouponView{}, nil
		},
	}, rec)

	ctx := context.Background()
	if _, err := g.CreateCoupon(ctx, usecase.CreateCouponInput{}); !errors.Is(err, domain.ErrInvalidCode) {
		t.Fatalf("expected ErrInvalidCode, got %v", err)
	}
	if _, found, err := g.DeleteCoupon(ctx, uuid.New()); err != nil || found {
		t.Fatalf("expected not found, got found=%v err=%v", found, err)
	}
	if _, err := g.ListCoupons(ctx); err != nil {
		t.Fatalf("list: %v", err)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	seen := map[string]float64{}
	for _, family := range families {
		for _, m := range family.GetMetric() {
			labels := map[string]string{}
			for _, l := range m.GetLabel() {
				labels[l.GetName()] = l.GetValue()
			}
			seen[labels["operation"]+"/"+labels["outcome"]] = m.GetCounter().GetValue()
		}
	}
	for _, key := range []string{"create/invalid_code", "delete/not_found", "list/success"} {
		if seen[key] != 1 {
			t.Fatalf("expected %s to be counted once, got %v", key, seen)
		}
	}
}
