package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academic-results-api/internal/middleware"
	"github.com/noah-isme/academic-results-api/internal/models"
	"github.com/noah-isme/academic-results-api/pkg/middleware/requestid"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	return middleware.Claims(c)
}

func responseMeta(c *gin.Context) map[string]interface{} {
	meta := middleware.ExtractMeta(c)
	if id := requestid.Value(c); id != "" {
		if meta == nil {
			meta = make(map[string]interface{})
		}
		meta["request_id"] = id
	}
	return meta
}
