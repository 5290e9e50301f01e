package httputil

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hxuan190/swap-engine/internal/common"
)

type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Code    string      `json:"code,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    data,
	})
}

// Accepted acknowledges work that completes in the background.
func Accepted(c *gin.Context, data interface{}) {
	c.JSON(http.StatusAccepted, Response{
		Success: true,
		Data:    data,
	})
}

func Error(c *gin.Context, status int, err string) {
	c.JSON(status, Response{
		Success: false,
		Error:   err,
	})
}

// HttpError writes he with its status and machine-readable code.
func HttpError(c *gin.Context, he *common.HttpError) {
	c.JSON(he.StatusCode, Response{
		Success: false,
		Code:    he.Code,
		Error:   he.Message,
	})
}

func BadRequest(c *gin.Context, err string) {
	HttpError(c, common.HTTPErrorBadRequest(err))
}

func NotFound(c *gin.Context, err string) {
	HttpError(c, common.HTTPErrorNotFound(err))
}

func InternalError(c *gin.Context, err string) {
	HttpError(c, common.HTTPErrorInternalError(err))
}
