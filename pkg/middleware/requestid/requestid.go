// Package requestid tags every request with a correlation id so the log
// lines of one request can be pulled together. An inbound X-Request-ID from
// an upstream proxy is trusted and echoed back; otherwise a fresh id is
// minted here.
package requestid

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Header is the correlation header read from the request and set on the
// response.
const Header = "X-Request-ID"

const contextKey = "request_id"

// Middleware ensures the request carries a correlation id and echoes it on
// the response.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(Header)
		if id == "" {
			id = uuid.NewString()
		}

		c.Set(contextKey, id)
		c.Writer.Header().Set(Header, id)

		c.Next()
	}
}

// Value reads the correlation id stored by Middleware. Outside the
// middleware it returns the empty string.
func Value(c *gin.Context) string {
	v, _ := c.Get(contextKey)
	id, _ := v.(string)
	return id
}
