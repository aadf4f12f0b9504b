package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

// RespondFile writes a generated project file verbatim. Previews always
// reflect the latest revision, so nothing may be cached.
func RespondFile(c *gin.Context, contentType, body string) {
	c.Header("Cache-Control", "no-store")
	c.Header("X-Content-Type-Options", "nosniff")
	c.Data(http.StatusOK, contentType, []byte(body))
}
