// Package web has small helpers shared by the REST handlers.
package web

import (
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"chaters/tools/errs"
)

// Fail writes the error as {"error": "..."} with the given status.
// CodeError details take precedence over the generic message so
// validation feedback reaches the client.
func Fail(c *gin.Context, status int, err error) {
	var ce *errs.CodeError
	if errors.As(err, &ce) {
		msg := ce.Msg
		if ce.Detail != "" {
			msg = ce.Detail
		}
		c.AbortWithStatusJSON(status, gin.H{"error": msg})
		return
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}
