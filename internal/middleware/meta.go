package middleware

import "github.com/gin-gonic/gin"

const (
	responseMetaKey = "response_meta"
	cacheHitKey     = "cache_hit"
)

// SetCacheHit records whether the statistics in the response came from cache.
func SetCacheHit(c *gin.Context, hit bool) {
	ResponseMeta(c)[cacheHitKey] = hit
}

// ResponseMeta returns the metadata map attached to the request, creating it on
// first use.
func ResponseMeta(c *gin.Context) map[string]interface{} {
	if meta, exists := c.Get(responseMetaKey); exists {
		if typed, ok := meta.(map[string]interface{}); ok {
			return typed
		}
	}
	meta := make(map[string]interface{})
	c.Set(responseMetaKey, meta)
	return meta
}
