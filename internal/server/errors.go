package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	customerdomain "github.com/loyaltyworks/tally/internal/customer/domain"
	ledgerdomain "github.com/loyaltyworks/tally/internal/ledger/domain"
	programdomain "github.com/loyaltyworks/tally/internal/program/domain"
	voucherdomain "github.com/loyaltyworks/tally/internal/voucher/domain"
)

// apiError is the wire shape for every non-2xx response.
type apiError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func (e *apiError) Error() string { return e.Code }

var (
	ErrNotFound = &apiError{
		Status:  http.StatusNotFound,
		Code:    "not_found",
		Message: "resource not found",
	}
	ErrUnauthorized = &apiError{
		Status:  http.StatusUnauthorized,
		Code:    "unauthorized",
		Message: "missing or invalid credentials",
	}
	ErrTooManyRequests = &apiError{
		Status:  http.StatusTooManyRequests,
		Code:    "too_many_requests",
		Message: "rate limit exceeded, retry later",
	}
)

func invalidRequestError() *apiError {
	return &apiError{
		Status:  http.StatusBadRequest,
		Code:    "invalid_request",
		Message: "request body could not be parsed",
	}
}

func newValidationError(field, code, message string) *apiError {
	return &apiError{
		Status:  http.StatusBadRequest,
		Code:    code,
		Message: message,
		Field:   field,
	}
}

// AbortWithError maps domain errors onto HTTP responses. Unrecognized
// errors surface as opaque 500s; the details go to the log, not the wire.
func AbortWithError(c *gin.Context, err error) {
	var apiErr *apiError
	if errors.As(err, &apiErr) {
		c.AbortWithStatusJSON(apiErr.Status, gin.H{"error": apiErr})
		return
	}

	if status, code := classifyDomainError(err); status != 0 {
		c.AbortWithStatusJSON(status, gin.H{"error": apiError{
			Status:  status,
			Code:    code,
			Message: code,
		}})
		return
	}

	_ = c.Error(err)
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": apiError{
		Status:  http.StatusInternalServerError,
		Code:    "internal_error",
		Message: "internal error",
	}})
}

func classifyDomainError(err error) (int, string) {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound),
		errors.Is(err, voucherdomain.ErrVoucherNotFound),
		errors.Is(err, voucherdomain.ErrRewardNotFound):
		return http.StatusNotFound, unwrapCode(err)

	case errors.Is(err, ledgerdomain.ErrInsufficientPoints),
		errors.Is(err, voucherdomain.ErrInsufficientBalance),
		errors.Is(err, customerdomain.ErrPhoneTaken),
		errors.Is(err, programdomain.ErrNotConfigured):
		return http.StatusConflict, unwrapCode(err)

	case errors.Is(err, ledgerdomain.ErrInvalidUser),
		errors.Is(err, ledgerdomain.ErrInvalidCurrency),
		errors.Is(err, ledgerdomain.ErrInvalidReference),
		errors.Is(err, ledgerdomain.ErrInvalidDelta),
		errors.Is(err, ledgerdomain.ErrActorRequired),
		errors.Is(err, ledgerdomain.ErrReasonRequired),
		errors.Is(err, voucherdomain.ErrInvalidUser),
		errors.Is(err, voucherdomain.ErrInvalidCode),
		errors.Is(err, voucherdomain.ErrInvalidReward),
		errors.Is(err, voucherdomain.ErrRewardInactive),
		errors.Is(err, voucherdomain.ErrRedeemerRequired),
		errors.Is(err, voucherdomain.ErrActorRequired),
		errors.Is(err, customerdomain.ErrInvalidName),
		errors.Is(err, customerdomain.ErrInvalidPhone),
		errors.Is(err, programdomain.ErrInvalidUnitCost),
		errors.Is(err, programdomain.ErrInvalidInflation),
		errors.Is(err, programdomain.ErrInvalidTrigger),
		errors.Is(err, programdomain.ErrInvalidDailyCap),
		errors.Is(err, programdomain.ErrInvalidStampMin),
		errors.Is(err, programdomain.ErrActorRequired):
		return http.StatusBadRequest, unwrapCode(err)
	}
	return 0, ""
}

func unwrapCode(err error) string {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "not_found"
	}
	return err.Error()
}
