package middleware

import (
	"github.com/gin-gonic/gin"
)

// BindJSON binds and validates a JSON body, writing a 400 on failure
func BindJSON(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		HandleValidationError(c, err)
		return false
	}
	return true
}

// BindForm binds and validates multipart or urlencoded form fields, writing a 400 on failure.
// A body over the size cap surfaces as 413.
func BindForm(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBind(obj); err != nil {
		if isBodyTooLarge(err) {
			HandleAPIError(c, errRequestTooLarge)
			return false
		}
		HandleValidationError(c, err)
		return false
	}
	return true
}
