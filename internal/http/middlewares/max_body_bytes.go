package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// MaxBodyBytes caps JSON request bodies. Multipart uploads carry files and
// get a much larger ceiling; the upload handler checks per-file size.
func MaxBodyBytes(max int64) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		limit := max

		ct := strings.ToLower(ctx.GetHeader("Content-Type"))
		if strings.HasPrefix(ct, "multipart/form-data") {
			limit = 32 << 20
		}

		ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, limit)

		ctx.Next()
	}
}
