package kafka

import (
	"time"

	"github.com/azizikri/coupon-registry/internal/usecase"
	"github.com/shopspring/decimal"
)

const SchemaVersion = 1

const (
	StatusSuccess = "SUCCESS"
	StatusError   = "ERROR"
)

const (
	ErrCodeInvalidCode        = "INVALID_CODE"
	ErrCodeInvalidDiscount    = "INVALID_DISCOUNT"
	ErrCodeInvalidExpiration  = "INVALID_EXPIRATION"
	ErrCodeInvalidDescription = "INVALID_DESCRIPTION"
	ErrCodeDuplicateCode      = "DUPLICATE_CODE"
	ErrCodeAlreadyDeleted     = "ALREADY_DELETED"
	ErrCodeInvalidRequest     = "INVALID_REQUEST"
	ErrCodeInternalError      = "INTERNAL_ERROR"
)

type RequestPayload struct {
	SchemaVersion  int              `json:"schema_version"`
	CorrelationID  string           `json:"correlation_id"`
	ReplyTo        string           `json:"reply_to"`
	Code           string           `json:"code,omitempty"`
	Description    string           `json:"description,omitempty"`
	DiscountValue  *decimal.Decimal `json:"discount_value,omitempty"`
	ExpirationDate *time.Time       `json:"expiration_date,omitempty"`
	Published      bool             `json:"published,omitempty"`
	ID             string           `json:"id,omitempty"`
}

type ResponsePayload struct {
	SchemaVersion int                  `json:"schema_version"`
	CorrelationID string               `json:"correlation_id"`
	Status        string               `json:"status"`
	ErrorCode     string               `json:"error_code,omitempty"`
	ErrorMessage  string               `json:"error_message,omitempty"`
	Coupon        *usecase.CouponView  `json:"coupon,omitempty"`
	Coupons       []usecase.CouponView `json:"coupons,omitempty"`
	Found         bool                 `json:"found,omitempty"`
}

func (r RequestPayload) createInput() usecase.CreateCouponInput {
	in := usecase.CreateCouponInput{
		Code:        r.Code,
		Description: r.Description,
		Published:   r.Published,
	}
	if r.DiscountValue != nil {
		in.DiscountValue = *r.DiscountValue
	}
	if r.ExpirationDate != nil {
		in.ExpirationDate = *r.ExpirationDate
	}
	return in
}
