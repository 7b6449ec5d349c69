package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/azizikri/coupon-registry/internal/config"
	"github.com/azizikri/coupon-registry/internal/domain"
	"github.com/azizikri/coupon-registry/internal/usecase"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/twmb/franz-go/pkg/kgo"
)

var ErrRequestTimeout = errors.New("timeout waiting for response")

// Gateway implements usecase.CouponGateway over Kafka request/reply.
// Replies are delivered to it through HandleResponse.
type Gateway struct {
	client      *kgo.Client
	cfg         *config.Config
	pendingResp sync.Map
}

func NewGateway(cfg *config.Config, client *kgo.Client) *Gateway {
	return &Gateway{
		client: client,
		cfg:    cfg,
	}
}

func (g *Gateway) CreateCoupon(ctx context.Context, in usecase.CreateCouponInput) (usecase.CouponView, error) {
	req := g.newRequest()
	req.Code = in.Code
	req.Description = in.Description
	req.DiscountValue = &in.DiscountValue
	req.ExpirationDate = &in.ExpirationDate
	req.Published = in.Published

	resp, err := g.requestReply(ctx, TopicCreateRequest, []byte(domain.SanitizeCode(in.Code)), req)
	if err != nil {
		return usecase.CouponView{}, err
	}
	if resp.Status == StatusError {
		return usecase.CouponView{}, mapError(resp.ErrorCode, resp.ErrorMessage)
	}
	if resp.Coupon == nil {
		return usecase.CouponView{}, errors.New("create reply carried no coupon")
	}
	return *resp.Coupon, nil
}

func (g *Gateway) DeleteCoupon(ctx context.Context, id uuid.UUID) (usecase.CouponView, bool, error) {
	req := g.newRequest()
	req.ID = id.String()

	resp, err := g.requestReply(ctx, TopicDeleteRequest, []byte(req.ID), req)
	if err != nil {
		return usecase.CouponView{}, false, err
	}
	if resp.Status == StatusError {
		return usecase.CouponView{}, false, mapError(resp.ErrorCode, resp.ErrorMessage)
	}
	if !resp.Found || resp.Coupon == nil {
		return usecase.CouponView{}, false, nil
	}
	return *resp.Coupon, true, nil
}

func (g *Gateway) ListCoupons(ctx context.Context) ([]usecase.CouponView, error) {
	resp, err := g.requestReply(ctx, TopicListRequest, nil, g.newRequest())
	if err != nil {
		return nil, err
	}
	if resp.Status == StatusError {
		return nil, mapError(resp.ErrorCode, resp.ErrorMessage)
	}
	if resp.Coupons == nil {
		return []usecase.CouponView{}, nil
	}
	return resp.Coupons, nil
}

func (g *Gateway) newRequest() RequestPayload {
	return RequestPayload{
		SchemaVersion: SchemaVersion,
		CorrelationID: uuid.New().String(),
		ReplyTo:       ReplyTopic(g.cfg.KafkaInstanceID),
	}
}

func (g *Gateway) requestReply(ctx context.Context, topic string, key []byte, req RequestPayload) (*ResponsePayload, error) {
	respChan := make(chan *ResponsePayload, 1)
	g.pendingResp.Store(req.CorrelationID, respChan)
	defer g.pendingResp.Delete(req.CorrelationID)

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	record := &kgo.Record{
		Topic: topic,
		Key:   key,
		Value: payload,
	}

	if err := g.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return nil, fmt.Errorf("produce %s: %w", topic, err)
	}

	return g.await(ctx, respChan)
}

func (g *Gateway) await(ctx context.Context, respChan <-chan *ResponsePayload) (*ResponsePayload, error) {
	timer := time.NewTimer(RequestTimeout)
	defer timer.Stop()

	select {
	case resp := <-respChan:
		return resp, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, ErrRequestTimeout
	}
}

func (g *Gateway) HandleResponse(payload []byte) {
	var resp ResponsePayload
	if err := json.Unmarshal(payload, &resp); err != nil {
		log.WithError(err).Warn("failed to decode response payload")
		return
	}

	if ch, ok := g.pendingResp.Load(resp.CorrelationID); ok {
		select {
		case ch.(chan *ResponsePayload) <- &resp:
		default:
		}
		return
	}

	log.WithField("correlation_id", resp.CorrelationID).Debug("no pending request for response")
}

// mapError turns a reply error code back into the domain error of the same
// kind so callers can keep using errors.Is.
func mapError(code, message string) error {
	switch code {
	case ErrCodeInvalidCode:
		return domain.NewError(domain.KindInvalidCode, message)
	case ErrCodeInvalidDiscount:
		return domain.NewError(domain.KindInvalidDiscount, message)
	case ErrCodeInvalidExpiration:
		return domain.NewError(domain.KindInvalidExpiration, message)
	case ErrCodeInvalidDescription:
		return domain.NewError(domain.KindInvalidDescription, message)
	case ErrCodeDuplicateCode:
		return domain.NewError(domain.KindDuplicateCode, message)
	case ErrCodeAlreadyDeleted:
		return domain.NewError(domain.KindAlreadyDeleted, message)
	default:
		return errors.New(message)
	}
}

var _ usecase.CouponGateway = (*Gateway)(nil)
