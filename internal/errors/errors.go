package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

const (
	CodeRecordNotFound       = "RECORD_NOT_FOUND"
	CodeCreateFailed         = "CREATE_FAILED"
	CodeUpdateFailed         = "UPDATE_FAILED"
	CodeDeleteFailed         = "DELETE_FAILED"
	CodeListFailed           = "LIST_FAILED"
	CodeQueryFailed          = "QUERY_FAILED"
	CodeCountFailed          = "COUNT_FAILED"
	CodeBulkCreateFailed     = "BULK_CREATE_FAILED"
	CodeTransactionFailed    = "TRANSACTION_FAILED"
	CodeUsernameExists       = "USERNAME_EXISTS"
	CodeEmailExists          = "EMAIL_EXISTS"
	CodeTagExists            = "TAG_EXISTS"
	CodeCollaboratorExists   = "COLLABORATOR_EXISTS"
	CodePasswordTooShort     = "PASSWORD_TOO_SHORT"
	CodeInvalidOldPassword   = "INVALID_OLD_PASSWORD"
	CodeAccountDisabled      = "ACCOUNT_DISABLED"
	CodeInvalidCredentials   = "INVALID_CREDENTIALS"
	CodeRegistrationDisabled = "REGISTRATION_DISABLED"
	CodeModelUnavailable     = "MODEL_UNAVAILABLE"
	CodeInvalidState         = "INVALID_STATE"
	CodeValidationFailed     = "VALIDATION_FAILED"
	CodeInvalidRequest       = "INVALID_REQUEST"
	CodeUnauthorized         = "UNAUTHORIZED"
	CodeForbidden            = "FORBIDDEN"
	CodeInternal             = "INTERNAL_ERROR"
)

// statusByCode maps service codes to the HTTP status the error handler uses.
var statusByCode = map[string]int{
	CodeRecordNotFound:       http.StatusNotFound,
	CodeUsernameExists:       http.StatusConflict,
	CodeEmailExists:          http.StatusConflict,
	CodeTagExists:            http.StatusConflict,
	CodeCollaboratorExists:   http.StatusConflict,
	CodePasswordTooShort:     http.StatusBadRequest,
	CodeInvalidOldPassword:   http.StatusBadRequest,
	CodeValidationFailed:     http.StatusBadRequest,
	CodeInvalidRequest:       http.StatusBadRequest,
	CodeInvalidState:         http.StatusConflict,
	CodeAccountDisabled:      http.StatusForbidden,
	CodeRegistrationDisabled: http.StatusForbidden,
	CodeForbidden:            http.StatusForbidden,
	CodeInvalidCredentials:   http.StatusUnauthorized,
	CodeUnauthorized:         http.StatusUnauthorized,
	CodeModelUnavailable:     http.StatusServiceUnavailable,
}

// APIError carries a service code and a message safe to show to clients.
// Internal holds the underlying cause and is only logged.
type APIError struct {
	Status   int    `json:"-"`
	Code     string `json:"error"`
	Message  string `json:"message"`
	Internal error  `json:"-"`
}

func (e *APIError) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Internal)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Internal
}

// New builds an error for code, deriving the HTTP status from the code.
func New(code, message string, internal error) *APIError {
	status, ok := statusByCode[code]
	if !ok {
		status = http.StatusInternalServerError
	}
	return &APIError{Status: status, Code: code, Message: message, Internal: internal}
}

func NotFound(message string, err error) *APIError {
	return New(CodeRecordNotFound, message, err)
}

func BadRequest(message string, err error) *APIError {
	return New(CodeInvalidRequest, message, err)
}

func Unauthorized(message string, err error) *APIError {
	return New(CodeUnauthorized, message, err)
}

func Forbidden(message string, err error) *APIError {
	return New(CodeForbidden, message, err)
}

func Internal(err error) *APIError {
	return New(CodeInternal, "Internal server error", err)
}

// HasCode reports whether err is an APIError carrying code.
func HasCode(err error, code string) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == code
}

// Wrap passes an existing APIError through unchanged and classifies any
// other error under code.
func Wrap(err error, code, message string) error {
	if err == nil {
		return nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return err
	}
	return New(code, message, err)
}

// NewValidationError reports request binding or struct validation failures
// as VALIDATION_FAILED with one "field failed tag" entry per field.
func NewValidationError(err error) *APIError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return New(CodeValidationFailed, err.Error(), err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %s", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return New(CodeValidationFailed, strings.Join(msgs, "; "), err)
}
