package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/harentsoaR/wellness-api/internal/apperrors"
)

// RespondError aborts the request with the structured error body
// {"error": message, "code": code}. Internal causes are attached to the gin
// context for the access log and never shown to the client.
func RespondError(c *gin.Context, err error) {
	appErr := apperrors.From(err)
	message := appErr.Message
	if appErr.Kind == apperrors.KindInternal {
		_ = c.Error(err)
		message = "internal server error"
	}
	c.AbortWithStatusJSON(apperrors.HTTPStatus(appErr.Kind), gin.H{
		"error": message,
		"code":  appErr.Code,
	})
}
