package utils

import "github.com/gin-gonic/gin"

func JSONSuccess(c *gin.Context, code int, data interface{}) {
	c.JSON(code, gin.H{"success": true, "data": data})
}

// JSONFailure writes a failure body with a machine readable reason plus
// optional extra payload (e.g. per-field messages or the last confirmed state).
func JSONFailure(c *gin.Context, code int, reason, message string, extra gin.H) {
	body := gin.H{"success": false, "error": reason, "message": message}
	for k, v := range extra {
		body[k] = v
	}
	c.JSON(code, body)
}
