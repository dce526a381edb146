package utils

import (
	"github.com/gin-gonic/gin"
)

// JSONResponse sends a structured JSON response
func JSONResponse(c *gin.Context, status int, data any, message string) {
	c.JSON(status, gin.H{
		"status":  status,
		"message": message,
		"data":    data,
	})
}

// JSONError sends a structured error response
func JSONError(c *gin.Context, status int, err error, message string) {
	c.JSON(status, gin.H{
		"status":  status,
		"message": message,
		"error":   err.Error(),
	})
}

// JSONRejection sends a structured error response for rejected bids,
// carrying the auction's current price so the client can resubmit without
// an extra read round-trip.
func JSONRejection(c *gin.Context, status int, err error, message string, currentPrice, minIncrement float64) {
	c.JSON(status, gin.H{
		"status":        status,
		"message":       message,
		"error":         err.Error(),
		"current_price": currentPrice,
		"min_increment": minIncrement,
	})
}
