package response

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/vibecode-backend/internal/platform/apierr"
)

// ErrorEnvelope is the body of every failed request.
type ErrorEnvelope struct {
	Error   apierr.Kind `json:"error"`
	Message string      `json:"message"`
}

// RespondError writes err with the status of its kind. Errors without a kind
// are reported as internal_error.
func RespondError(c *gin.Context, err error) {
	kind := apierr.KindOf(err)
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.AbortWithStatusJSON(apierr.Status(kind), ErrorEnvelope{Error: kind, Message: msg})
}

// RespondInvalid reports a malformed request body or query.
func RespondInvalid(c *gin.Context, err error) {
	RespondError(c, apierr.New(apierr.KindValidation, err))
}
