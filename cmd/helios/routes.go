package main

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers the /v1/helios/* demo endpoints of SPEC_FULL
// §6.1 with the given router group, mirroring
// services/trace.RegisterRoutes's (rg *gin.RouterGroup, handlers) shape.
func RegisterRoutes(rg *gin.RouterGroup, h *Handlers) {
	helios := rg.Group("/helios")
	{
		helios.POST("/compile", h.HandleCompile)
		helios.POST("/match", h.HandleMatch)
		helios.GET("/explain", h.HandleExplain)
		helios.GET("/health", h.HandleHealth)
		helios.GET("/ready", h.HandleReady)
	}
}
