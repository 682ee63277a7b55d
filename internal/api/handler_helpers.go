package api

import (
	"github.com/gin-gonic/gin"
	"github.com/yama-lei/plantodo/internal"
	"github.com/yama-lei/plantodo/internal/response"
)

func currentUser(c *gin.Context) *internal.User {
	return c.MustGet("user").(*internal.User)
}

func HandleError(c *gin.Context, logger internal.Logger, err error, msg string) {
	requestID := c.GetString(requestIDKey)
	logger.Errorf("[request_id=%s] %s: %v", requestID, msg, err)
	status, resp := response.FromError(err)
	c.JSON(status, resp)
}

func HandleSuccess(c *gin.Context, logger internal.Logger, data interface{}, meta map[string]any) {
	requestID := c.GetString(requestIDKey)
	logger.Infof("[request_id=%s] Success", requestID)
	c.JSON(200, response.Success(data, meta))
}
