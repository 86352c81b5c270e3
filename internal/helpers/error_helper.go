package helpers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Machine-readable error codes sent alongside the user notice.
const (
	CodeValidation           = "validation_failed"
	CodeNotFound             = "not_found"
	CodeUpstreamUnavailable  = "upstream_unavailable"
	CodeInvalidCredentials   = "invalid_credentials"
	CodeRegistrationConflict = "registration_conflict"
	CodeAuthRequired         = "auth_required"
	CodeTicketCreationFailed = "ticket_creation_failed"
	CodePayloadTooLarge      = "payment_payload_too_large"
	CodeConflict             = "conflict"
	CodeForbidden            = "forbidden"
	CodeInternal             = "internal_error"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func HTTPStatusText(code int) string {
	return http.StatusText(code)
}

func RespondWithError(c *gin.Context, statusCode int, code string, customMessage string) {
	c.AbortWithStatusJSON(statusCode, ErrorResponse{
		Error:   HTTPStatusText(statusCode),
		Code:    code,
		Message: customMessage,
	})
}
