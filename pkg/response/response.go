package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	appErrors "github.com/sardorbek21324/Kairos-team/pkg/errors"
)

// Envelope represents the common response contract of the lead endpoint.
type Envelope struct {
	OK     bool   `json:"ok"`
	Error  string `json:"error,omitempty"`
	Detail string `json:"detail,omitempty"`
}

// OK sends the success acknowledgement.
func OK(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, Envelope{OK: true})
}

// Error sends an error response converting the error to the common structure.
func Error(c *gin.Context, err error) {
	appErr := appErrors.FromError(err)
	c.Header("Cache-Control", "no-store")
	c.JSON(appErr.Status, Envelope{OK: false, Error: appErr.Code, Detail: appErr.Message})
}
