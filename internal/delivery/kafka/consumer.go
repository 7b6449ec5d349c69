package kafka

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/azizikri/coupon-registry/internal/config"
	"github.com/azizikri/coupon-registry/internal/domain"
	"github.com/azizikri/coupon-registry/internal/usecase"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/twmb/franz-go/pkg/kgo"
)

// Consumer serves coupon requests arriving on the request topics and
// replies on the topic named by each request.
type Consumer struct {
	client  *kgo.Client
	cfg     *config.Config
	service usecase.CouponGateway
	ready   chan struct{}
}

func NewConsumer(cfg *config.Config, client *kgo.Client, service usecase.CouponGateway) *Consumer {
	return &Consumer{
		client:  client,
		cfg:     cfg,
		service: service,
		ready:   make(chan struct{}),
	}
}

func (c *Consumer) Start(ctx context.Context) {
	close(c.ready)
	for {
		fetches := c.client.PollFetches(ctx)
		if fetches.IsClientClosed() || ctx.Err() != nil {
			return
		}
		if errs := fetches.Errors(); len(errs) > 0 {
			log.WithField("errors", errs).Warn("consumer poll errors")
		}

		iter := fetches.RecordIter()
		for !iter.Done() {
			record := iter.Next()
			c.processRecord(ctx, record)
		}

		if err := c.client.CommitRecords(ctx, fetches.Records()...); err != nil {
			log.WithError(err).Error("failed to commit records")
		}
	}
}

// StartRetry moves records from the retry topics back onto their request
// topics once their x-next-at time has passed.
func (c *Consumer) StartRetry(ctx context.Context) {
	for {
		fetches := c.client.PollFetches(ctx)
		if fetches.IsClientClosed() || ctx.Err() != nil {
			return
		}
		iter := fetches.RecordIter()
		for !iter.Done() {
			record := iter.Next()

			if nextAt, ok := retryNextAt(record); ok && time.Now().Before(nextAt) {
				select {
				case <-time.After(time.Until(nextAt)):
				case <-ctx.Done():
					return
				}
			}

			newRecord := &kgo.Record{
				Topic:   requestTopicFor(record.Topic),
				Key:     record.Key,
				Value:   record.Value,
				Headers: record.Headers,
			}
			if err := c.client.ProduceSync(ctx, newRecord).FirstErr(); err != nil {
				log.WithError(err).WithField("topic", newRecord.Topic).Error("failed to requeue retry record")
			}
		}
		if err := c.client.CommitRecords(ctx, fetches.Records()...); err != nil {
			log.WithError(err).Error("failed to commit retry records")
		}
	}
}

func (c *Consumer) Ready() <-chan struct{} {
	return c.ready
}

func (c *Consumer) processRecord(ctx context.Context, record *kgo.Record) {
	var req RequestPayload
	if err := json.Unmarshal(record.Value, &req); err != nil {
		c.sendError(ctx, record, ErrCodeInvalidRequest, "invalid request payload")
		return
	}

	resp := c.handle(ctx, record.Topic, req)
	if resp == nil {
		log.WithField("topic", record.Topic).Warn("no handler for topic")
		return
	}

	if resp.Status == StatusError && resp.ErrorCode == ErrCodeInternalError {
		if attempt := retryAttempt(record); attempt < MaxAttempts {
			c.scheduleRetry(ctx, record, attempt+1)
			return
		}
		c.sendDLQ(ctx, record, resp.ErrorMessage)
	}

	c.sendResponse(ctx, req.ReplyTo, resp)
}

// handle runs the operation bound to topic. It returns nil for unknown topics.
func (c *Consumer) handle(ctx context.Context, topic string, req RequestPayload) *ResponsePayload {
	switch topic {
	case TopicCreateRequest:
		view, err := c.service.CreateCoupon(ctx, req.createInput())
		if err != nil {
			return errorResponse(req.CorrelationID, errorCode(err), err.Error())
		}
		resp := successResponse(req.CorrelationID)
		resp.Coupon = &view
		return resp

	case TopicDeleteRequest:
		id, err := uuid.Parse(req.ID)
		if err != nil {
			return errorResponse(req.CorrelationID, ErrCodeInvalidRequest, "invalid coupon id")
		}
		view, found, err := c.service.DeleteCoupon(ctx, id)
		if err != nil {
			return errorResponse(req.CorrelationID, errorCode(err), err.Error())
		}
		resp := successResponse(req.CorrelationID)
		if found {
			resp.Coupon = &view
			resp.Found = true
		}
		return resp

	case TopicListRequest:
		views, err := c.service.ListCoupons(ctx)
		if err != nil {
			return errorResponse(req.CorrelationID, errorCode(err), err.Error())
		}
		resp := successResponse(req.CorrelationID)
		resp.Coupons = views
		return resp
	}
	return nil
}

func (c *Consumer) sendResponse(ctx context.Context, topic string, resp *ResponsePayload) {
	if topic == "" {
		return
	}
	payload, _ := json.Marshal(resp)
	record := &kgo.Record{
		Topic: topic,
		Value: payload,
	}
	if err := c.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		log.WithError(err).WithField("topic", topic).Error("failed to send response")
	}
}

func (c *Consumer) sendError(ctx context.Context, record *kgo.Record, code, message string) {
	var req RequestPayload
	_ = json.Unmarshal(record.Value, &req)

	c.sendResponse(ctx, req.ReplyTo, errorResponse(req.CorrelationID, code, message))
	c.sendDLQ(ctx, record, message)
}

func (c *Consumer) sendDLQ(ctx context.Context, record *kgo.Record, message string) {
	dlqRecord := &kgo.Record{
		Topic: requestTopicFor(record.Topic) + TopicDLQSuffix,
		Key:   record.Key,
		Value: record.Value,
		Headers: []kgo.RecordHeader{
			{Key: ErrorHeaderKey, Value: []byte(message)},
		},
	}
	if err := c.client.ProduceSync(ctx, dlqRecord).FirstErr(); err != nil {
		log.WithError(err).WithField("topic", dlqRecord.Topic).Error("failed to send record to dlq")
	}
}

func (c *Consumer) scheduleRetry(ctx context.Context, record *kgo.Record, attempt int) {
	nextAt := time.Now().Add(RetryBackoff).UTC().Format(time.RFC3339Nano)
	retryRecord := &kgo.Record{
		Topic: retryTopicFor(record.Topic),
		Key:   record.Key,
		Value: record.Value,
		Headers: []kgo.RecordHeader{
			{Key: RetryHeaderNextAt, Value: []byte(nextAt)},
			{Key: RetryHeaderAttempt, Value: []byte(strconv.Itoa(attempt))},
		},
	}
	if err := c.client.ProduceSync(ctx, retryRecord).FirstErr(); err != nil {
		log.WithError(err).WithField("topic", retryRecord.Topic).Error("failed to schedule retry")
	}
}

func requestTopicFor(topic string) string {
	switch {
	case strings.HasSuffix(topic, TopicRetrySuffix):
		return strings.TrimSuffix(topic, TopicRetrySuffix) + TopicRequestSuffix
	default:
		return topic
	}
}

func retryTopicFor(topic string) string {
	return strings.TrimSuffix(topic, TopicRequestSuffix) + TopicRetrySuffix
}

func retryNextAt(record *kgo.Record) (time.Time, bool) {
	for _, header := range record.Headers {
		if header.Key != RetryHeaderNextAt {
			continue
		}
		nextAt, err := time.Parse(time.RFC3339Nano, string(header.Value))
		if err != nil {
			return time.Time{}, false
		}
		return nextAt, true
	}

	return time.Time{}, false
}

// retryAttempt reports how many times record has been retried; zero for a
// first delivery.
func retryAttempt(record *kgo.Record) int {
	for _, header := range record.Headers {
		if header.Key != RetryHeaderAttempt {
			continue
		}
		attempt, err := strconv.Atoi(string(header.Value))
		if err != nil || attempt < 0 {
			return 0
		}
		return attempt
	}
	return 0
}

func successResponse(correlationID string) *ResponsePayload {
	return &ResponsePayload{
		SchemaVersion: SchemaVersion,
		CorrelationID: correlationID,
		Status:        StatusSuccess,
	}
}

func errorResponse(correlationID, code, message string) *ResponsePayload {
	return &ResponsePayload{
		SchemaVersion: SchemaVersion,
		CorrelationID: correlationID,
		Status:        StatusError,
		ErrorCode:     code,
		ErrorMessage:  message,
	}
}

func errorCode(err error) string {
	switch domain.KindOf(err) {
	case domain.KindInvalidCode:
		return ErrCodeInvalidCode
	case domain.KindInvalidDiscount:
		return ErrCodeInvalidDiscount
	case domain.KindInvalidExpiration:
		return ErrCodeInvalidExpiration
	case domain.KindInvalidDescription:
		return ErrCodeInvalidDescription
	case domain.KindDuplicateCode:
		return ErrCodeDuplicateCode
	case domain.KindAlreadyDeleted:
		return ErrCodeAlreadyDeleted
	default:
		return ErrCodeInternalError
	}
}
