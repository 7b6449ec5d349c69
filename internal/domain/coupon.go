package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const CodeLength = 6

var MinDiscount = decimal.RequireFromString("0.5")

// now is swapped in tests to pin the clock.
var now = func() time.Time { return time.Now().UTC() }

// Coupon is an immutable promotional coupon. Values are obtained from
// NewCoupon or Reconstruct; state changes return a new value.
type Coupon struct {
	id             uuid.UUID
	code           string
	description    string
	discountValue  decimal.Decimal
	expirationDate time.Time
	published      bool
	createdAt      time.Time
	deletedAt      *time.Time
}

// Snapshot is the flat form of a Coupon used to move it in and out of
// storage.
type Snapshot struct {
	ID             uuid.UUID
	Code           string
	Description    string
	DiscountValue  decimal.Decimal
	ExpirationDate time.Time
	Published      bool
	CreatedAt      time.Time
	DeletedAt      *time.Time
}

// NewCoupon validates the input and creates an active coupon with a fresh id.
// The code is reduced to its canonical form before it is checked.
func NewCoupon(rawCode, description string, discountValue decimal.Decimal, expirationDate time.Time, published bool) (Coupon, error) {
	code := SanitizeCode(rawCode)
	if err := validateCode(code); err != nil {
		return Coupon{}, err
	}
	if err := validateDiscountValue(discountValue); err != nil {
		return Coupon{}, err
	}
	current := now()
	if err := validateExpirationDate(expirationDate, current); err != nil {
		return Coupon{}, err
	}
	if strings.TrimSpace(description) == "" {
		return Coupon{}, ErrInvalidDescription
	}

	return Coupon{
		id:             uuid.New(),
		code:           code,
		description:    description,
		discountValue:  discountValue,
		expirationDate: expirationDate,
		published:      published,
		createdAt:      current,
	}, nil
}

// Reconstruct rebuilds a coupon from stored state without validating it.
func Reconstruct(s Snapshot) Coupon {
	var deletedAt *time.Time
	if s.DeletedAt != nil {
		t := *s.DeletedAt
		deletedAt = &t
	}
	return Coupon{
		id:             s.ID,
		code:           s.Code,
		description:    s.Description,
		discountValue:  s.DiscountValue,
		expirationDate: s.ExpirationDate,
		published:      s.Published,
		createdAt:      s.CreatedAt,
		deletedAt:      deletedAt,
	}
}

// Delete soft-deletes the coupon. Deleting twice is an error.
func (c Coupon) Delete() (Coupon, error) {
	if c.IsDeleted() {
		return Coupon{}, NewError(KindAlreadyDeleted, fmt.Sprintf("coupon with code %s has already been deleted", c.code))
	}
	deletedAt := now()
	c.deletedAt = &deletedAt
	return c, nil
}

func (c Coupon) IsDeleted() bool {
	return c.deletedAt != nil
}

func (c Coupon) ID() uuid.UUID                  { return c.id }
func (c Coupon) Code() string                   { return c.code }
func (c Coupon) Description() string            { return c.description }
func (c Coupon) DiscountValue() decimal.Decimal { return c.discountValue }
func (c Coupon) ExpirationDate() time.Time      { return c.expirationDate }
func (c Coupon) Published() bool                { return c.published }
func (c Coupon) CreatedAt() time.Time           { return c.createdAt }

// DeletedAt returns a copy of the deletion time, or nil while active.
func (c Coupon) DeletedAt() *time.Time {
	if c.deletedAt == nil {
		return nil
	}
	t := *c.deletedAt
	return &t
}

func (c Coupon) Snapshot() Snapshot {
	return Snapshot{
		ID:             c.id,
		Code:           c.code,
		Description:    c.description,
		DiscountValue:  c.discountValue,
		ExpirationDate: c.expirationDate,
		Published:      c.published,
		CreatedAt:      c.createdAt,
		DeletedAt:      c.DeletedAt(),
	}
}

// SanitizeCode drops every character outside [A-Za-z0-9] and upper-cases
// the rest. It is idempotent.
func SanitizeCode(code string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r >= 'a' && r <= 'z':
			return r - 'a' + 'A'
		default:
			return -1
		}
	}, code)
}

func validateCode(code string) error {
	if len(code) != CodeLength {
		return ErrInvalidCode
	}
	return nil
}

func validateDiscountValue(v decimal.Decimal) error {
	if v.LessThan(MinDiscount) {
		return ErrInvalidDiscount
	}
	return nil
}

func validateExpirationDate(expirationDate, current time.Time) error {
	if expirationDate.IsZero() || !expirationDate.After(current) {
		return ErrInvalidExpiration
	}
	return nil
}
