package apperror

import (
	"net/http"

	goerrors "github.com/goliatone/go-errors"
)

const (
	CodeValidation               = "VALIDATION_ERROR"
	CodeRequestNotFound          = "REQUEST_NOT_FOUND"
	CodeGrantNotFound            = "GRANT_NOT_FOUND"
	CodePaymentNotFound          = "PAYMENT_NOT_FOUND"
	CodeRequestDeleted           = "REQUEST_DELETED"
	CodeRequestNotDeleted        = "REQUEST_NOT_DELETED"
	CodeDuplicateActiveGrant     = "DUPLICATE_ACTIVE_GRANT"
	CodeGrantPreviouslyRejected  = "GRANT_PREVIOUSLY_REJECTED"
	CodeGrantNotAwaitingPayment  = "GRANT_NOT_AWAITING_PAYMENT"
	CodeConcurrentWriteConflict  = "CONCURRENT_WRITE_CONFLICT"
	CodeInvalidPricingConfig     = "INVALID_PRICING_CONFIG"
	CodePaymentAttemptsExhausted = "PAYMENT_ATTEMPTS_EXHAUSTED"
	CodePaymentProviderError     = "PAYMENT_PROVIDER_ERROR"
	CodeChargeInFlight           = "CHARGE_IN_FLIGHT"
	CodeInvalidSignature         = "INVALID_SIGNATURE"
	CodeUnauthorized             = "UNAUTHORIZED"
	CodeForbidden                = "FORBIDDEN"
	CodeInvariantViolation       = "INVARIANT_VIOLATION"
	CodeInternal                 = "INTERNAL_ERROR"
)

func newError(message string, category goerrors.Category, code int, textCode string, metadata map[string]any) *goerrors.Error {
	err := goerrors.New(message, category).
		WithCode(code).
		WithTextCode(textCode)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func wrapError(source error, message string, category goerrors.Category, code int, textCode string, metadata map[string]any) *goerrors.Error {
	if source == nil {
		return newError(message, category, code, textCode, metadata)
	}
	err := goerrors.Wrap(source, category, message).
		WithCode(code).
		WithTextCode(textCode)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func Validation(message string, metadata map[string]any) error {
	return newError(message, goerrors.CategoryValidation, http.StatusBadRequest, CodeValidation, metadata)
}

func RequestNotFound(requestId string) error {
	return newError("pre-market request not found", goerrors.CategoryNotFound, http.StatusNotFound, CodeRequestNotFound,
		map[string]any{"request_id": requestId})
}

func GrantNotFound(grantId string) error {
	return newError("grant access not found", goerrors.CategoryNotFound, http.StatusNotFound, CodeGrantNotFound,
		map[string]any{"grant_id": grantId})
}

func PaymentNotFound(reference string) error {
	return newError("payment not found", goerrors.CategoryNotFound, http.StatusNotFound, CodePaymentNotFound,
		map[string]any{"reference": reference})
}

func RequestDeleted(requestId string) error {
	return newError("pre-market request is deleted", goerrors.CategoryConflict, http.StatusConflict, CodeRequestDeleted,
		map[string]any{"request_id": requestId})
}

func RequestNotDeleted(requestId string) error {
	return newError("pre-market request is not deleted", goerrors.CategoryConflict, http.StatusConflict, CodeRequestNotDeleted,
		map[string]any{"request_id": requestId})
}

func DuplicateActiveGrant(requestId, agentId string) error {
	return newError("agent already holds an active grant for this request", goerrors.CategoryConflict, http.StatusConflict,
		CodeDuplicateActiveGrant, map[string]any{"request_id": requestId, "agent_id": agentId})
}

func GrantPreviouslyRejected(requestId, agentId string) error {
	return newError("a previous grant for this request was rejected", goerrors.CategoryConflict, http.StatusConflict,
		CodeGrantPreviouslyRejected, map[string]any{"request_id": requestId, "agent_id": agentId})
}

func GrantNotAwaitingPayment(grantId, status string) error {
	return newError("grant is not awaiting payment", goerrors.CategoryConflict, http.StatusConflict,
		CodeGrantNotAwaitingPayment, map[string]any{"grant_id": grantId, "status": status})
}

func ConcurrentWriteConflict(source error, entity string) error {
	return wrapError(source, "concurrent write conflict, retry later", goerrors.CategoryConflict, http.StatusConflict,
		CodeConcurrentWriteConflict, map[string]any{"entity": entity})
}

func InvalidPricingConfig(message string, metadata map[string]any) error {
	return newError(message, goerrors.CategoryInternal, http.StatusInternalServerError, CodeInvalidPricingConfig, metadata)
}

func PaymentAttemptsExhausted(paymentId string, attempts int) error {
	return newError("payment attempts exhausted", goerrors.CategoryConflict, http.StatusUnprocessableEntity,
		CodePaymentAttemptsExhausted, map[string]any{"payment_id": paymentId, "attempts": attempts})
}

func PaymentProviderError(source error, reference string) error {
	return wrapError(source, "payment provider rejected the charge", goerrors.CategoryExternal, http.StatusBadGateway,
		CodePaymentProviderError, map[string]any{"reference": reference})
}

func ChargeInFlight(paymentId string) error {
	return newError("a charge is already awaiting confirmation", goerrors.CategoryConflict, http.StatusConflict,
		CodeChargeInFlight, map[string]any{"payment_id": paymentId})
}

func InvalidSignature() error {
	return newError("invalid notification signature", goerrors.CategoryAuth, http.StatusForbidden, CodeInvalidSignature, nil)
}

func Unauthorized(message string) error {
	return newError(message, goerrors.CategoryAuth, http.StatusUnauthorized, CodeUnauthorized, nil)
}

func Forbidden(message string) error {
	return newError(message, goerrors.CategoryAuthz, http.StatusForbidden, CodeForbidden, nil)
}

// InvariantViolation reports an illegal lifecycle transition. It is a
// programming error and must never be swallowed.
func InvariantViolation(message string, metadata map[string]any) error {
	return newError(message, goerrors.CategoryInternal, http.StatusInternalServerError, CodeInvariantViolation, metadata)
}

func Internal(source error, message string) error {
	return wrapError(source, message, goerrors.CategoryInternal, http.StatusInternalServerError, CodeInternal, nil)
}

// From returns the rich error carried by err, if any.
func From(err error) (*goerrors.Error, bool) {
	var rich *goerrors.Error
	if err == nil || !goerrors.As(err, &rich) {
		return nil, false
	}
	return rich, true
}

// Is reports whether err carries the given text code.
func Is(err error, textCode string) bool {
	rich, ok := From(err)
	return ok && rich.TextCode == textCode
}
