package entity

import (
	"errors"
	"fmt"
)

// ErrorKind is the stable identifier of a failure reported to callers.
type ErrorKind string

const (
	KindNotFound           ErrorKind = "not_found"
	KindInvalidAmount      ErrorKind = "invalid_amount"
	KindInvalidCategory    ErrorKind = "invalid_category"
	KindInvalidScope       ErrorKind = "invalid_scope"
	KindInvalidPage        ErrorKind = "invalid_page"
	KindUnknownTask        ErrorKind = "unknown_task"
	KindAlreadyCompleted   ErrorKind = "already_completed"
	KindPrerequisiteNotMet ErrorKind = "prerequisite_not_met"
	KindVerificationFailed ErrorKind = "verification_failed"
	KindQuotaExceeded      ErrorKind = "quota_exceeded"
	KindAlreadyReferred    ErrorKind = "already_referred"
	KindInvalidCode        ErrorKind = "invalid_code"
	KindSelfReferral       ErrorKind = "self_referral"
	KindReferralIncomplete ErrorKind = "referral_incomplete"
	KindInvalidPlatform    ErrorKind = "invalid_platform"
	KindInvalidRequest     ErrorKind = "invalid_request"
	KindInvalidAddress     ErrorKind = "invalid_address"
	KindInvalidSignature   ErrorKind = "invalid_signature"
	KindVersionConflict    ErrorKind = "version_conflict"
	KindDuplicate          ErrorKind = "duplicate"
	KindConflict           ErrorKind = "conflict"
)

// Error carries a kind for matching and a message for humans.
// Two errors match with errors.Is when their kinds are equal.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

func Errorf(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

var (
	ErrNotFound           = &Error{Kind: KindNotFound, Message: "not found"}
	ErrInvalidAmount      = &Error{Kind: KindInvalidAmount, Message: "amount must be a positive integer"}
	ErrInvalidCategory    = &Error{Kind: KindInvalidCategory, Message: "invalid point category"}
	ErrInvalidScope       = &Error{Kind: KindInvalidScope, Message: "invalid scope"}
	ErrInvalidPage        = &Error{Kind: KindInvalidPage, Message: "invalid page"}
	ErrUnknownTask        = &Error{Kind: KindUnknownTask, Message: "unknown task"}
	ErrAlreadyCompleted   = &Error{Kind: KindAlreadyCompleted, Message: "task already completed"}
	ErrPrerequisiteNotMet = &Error{Kind: KindPrerequisiteNotMet, Message: "prerequisite task not completed"}
	ErrVerificationFailed = &Error{Kind: KindVerificationFailed, Message: "verification failed"}
	ErrQuotaExceeded      = &Error{Kind: KindQuotaExceeded, Message: "daily game limit reached"}
	ErrAlreadyReferred    = &Error{Kind: KindAlreadyReferred, Message: "account already referred"}
	ErrInvalidCode        = &Error{Kind: KindInvalidCode, Message: "invalid referral code"}
	ErrSelfReferral       = &Error{Kind: KindSelfReferral, Message: "cannot use your own referral code"}
	ErrReferralIncomplete = &Error{Kind: KindReferralIncomplete, Message: "referral partially applied, retry to finish"}
	ErrInvalidPlatform    = &Error{Kind: KindInvalidPlatform, Message: "unsupported platform"}
	ErrInvalidRequest     = &Error{Kind: KindInvalidRequest, Message: "invalid request"}
	ErrInvalidAddress     = &Error{Kind: KindInvalidAddress, Message: "invalid wallet address"}
	ErrInvalidSignature   = &Error{Kind: KindInvalidSignature, Message: "signature does not match wallet address"}
	ErrVersionConflict    = &Error{Kind: KindVersionConflict, Message: "document version conflict"}
	ErrDuplicate          = &Error{Kind: KindDuplicate, Message: "duplicate key"}
	ErrConflict           = &Error{Kind: KindConflict, Message: "concurrent update, try again"}
)

// KindOf returns the kind of the first *Error in the chain, or "".
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
