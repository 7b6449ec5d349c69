package domain

import "errors"

// Kind identifies a class of business rule violation.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindInvalidCode
	KindInvalidDiscount
	KindInvalidExpiration
	KindInvalidDescription
	KindDuplicateCode
	KindAlreadyDeleted
)

func (k Kind) String() string {
	switch k {
	case KindInvalidCode:
		return "invalid_code"
	case KindInvalidDiscount:
		return "invalid_discount"
	case KindInvalidExpiration:
		return "invalid_expiration"
	case KindInvalidDescription:
		return "invalid_description"
	case KindDuplicateCode:
		return "duplicate_code"
	case KindAlreadyDeleted:
		return "already_deleted"
	default:
		return "unknown"
	}
}

// Error is the single error type raised by coupon rules. Two errors are
// equal under errors.Is when their kinds match, so the sentinels below can
// be used regardless of the message carried.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrInvalidCode        = &Error{Kind: KindInvalidCode, Message: "coupon code must have exactly 6 alphanumeric characters"}
	ErrInvalidDiscount    = &Error{Kind: KindInvalidDiscount, Message: "discount value must be at least 0.5"}
	ErrInvalidExpiration  = &Error{Kind: KindInvalidExpiration, Message: "expiration date must be in the future"}
	ErrInvalidDescription = &Error{Kind: KindInvalidDescription, Message: "description is mandatory"}
	ErrDuplicateCode      = &Error{Kind: KindDuplicateCode, Message: "active coupon with this code already exists"}
	ErrAlreadyDeleted     = &Error{Kind: KindAlreadyDeleted, Message: "coupon has already been deleted"}
)

// NewError builds an error of the given kind with a specific message.
func NewError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// KindOf reports the kind of the first *Error in err's chain, or
// KindUnknown when there is none.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindUnknown
}

// IsValidation reports whether err is a rejection of caller input
// (as opposed to a conflict with existing state).
func IsValidation(err error) bool {
	switch KindOf(err) {
	case KindInvalidCode, KindInvalidDiscount, KindInvalidExpiration, KindInvalidDescription:
		return true
	}
	return false
}

// IsConflict reports whether err is a conflict with existing coupon state.
func IsConflict(err error) bool {
	switch KindOf(err) {
	case KindDuplicateCode, KindAlreadyDeleted:
		return true
	}
	return false
}
