package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorCode string

const (
	ErrCodeNotFound      ErrorCode = "NOT_FOUND"
	ErrCodeUnauthorized  ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden     ErrorCode = "FORBIDDEN"
	ErrCodeBadRequest    ErrorCode = "BAD_REQUEST"
	ErrCodeConflict      ErrorCode = "CONFLICT"
	ErrCodeInvalidState  ErrorCode = "INVALID_STATE"
	ErrCodeInternal      ErrorCode = "INTERNAL_ERROR"
	ErrCodeValidation    ErrorCode = "VALIDATION_ERROR"
	ErrCodeDatabaseError ErrorCode = "DATABASE_ERROR"
)

// AppError типизированная ошибка с устойчивым кодом и описанием.
type AppError struct {
	Code       ErrorCode
	Message    string
	HTTPStatus int
	Cause      error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is сравнивает ошибки по коду и сообщению. Копия предопределённой ошибки
// совпадает с оригиналом.
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
	}
}

func Newf(code ErrorCode, format string, args ...any) *AppError {
	return New(code, fmt.Sprintf(format, args...))
}

func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
		Cause:      err,
	}
}

func codeToHTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeForbidden:
		return http.StatusForbidden
	case ErrCodeBadRequest, ErrCodeValidation:
		return http.StatusBadRequest
	case ErrCodeConflict:
		return http.StatusConflict
	case ErrCodeInvalidState:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// CodeOf возвращает код ошибки или пустую строку для нетипизированных ошибок.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

func IsNotFound(err error) bool {
	return CodeOf(err) == ErrCodeNotFound
}

func IsForbidden(err error) bool {
	return CodeOf(err) == ErrCodeForbidden
}

func IsConflict(err error) bool {
	return CodeOf(err) == ErrCodeConflict
}

func IsInvalidState(err error) bool {
	return CodeOf(err) == ErrCodeInvalidState
}

func IsValidation(err error) bool {
	return CodeOf(err) == ErrCodeValidation
}

var (
	ErrDisputeNotFound     = New(ErrCodeNotFound, "dispute not found")
	ErrOrderNotFound       = New(ErrCodeNotFound, "order not found")
	ErrProposalNotFound    = New(ErrCodeNotFound, "proposal not found")
	ErrEvidenceNotFound    = New(ErrCodeNotFound, "evidence not found")
	ErrArbitrationNotFound = New(ErrCodeNotFound, "arbitration not found")

	ErrActiveDisputeExists  = New(ErrCodeConflict, "order already has a dispute")
	ErrPendingProposal      = New(ErrCodeConflict, "pending proposal exists")
	ErrProposalAnswered     = New(ErrCodeConflict, "proposal already answered")
	ErrArbitrationExists    = New(ErrCodeConflict, "arbitration record already exists")
	ErrEvidenceEvaluated    = New(ErrCodeConflict, "evidence already evaluated")
	ErrArbitratorAssigned   = New(ErrCodeConflict, "arbitrator already assigned")
	ErrAlreadyExecuted      = New(ErrCodeConflict, "arbitration already executed")
	ErrEvaluatedUndeletable = New(ErrCodeConflict, "evaluated evidence cannot be deleted")
	ErrEvidenceFileAttached = New(ErrCodeConflict, "file is already attached to evidence")

	ErrNotParticipant = New(ErrCodeForbidden, "not a participant")
	ErrNotUploader    = New(ErrCodeForbidden, "only the uploader can delete evidence")
	ErrNotCounterpart = New(ErrCodeForbidden, "only the counterpart can respond to a proposal")
	ErrNotArbitrator  = New(ErrCodeForbidden, "not the assigned arbitrator")

	ErrUnauthorized = New(ErrCodeUnauthorized, "требуется авторизация")
)
