package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) GetPricing(c *gin.Context) {
	cfg, err := s.pricing.GetCurrentPricing(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": cfg, "version": s.pricing.Version()})
}

// SavePricing overlays the request body on the current configuration, so
// omitted fields keep their value.
func (s *Server) SavePricing(c *gin.Context) {
	ctx := c.Request.Context()
	cfg, err := s.pricing.GetCurrentPricing(ctx)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if err := c.ShouldBindJSON(&cfg); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	saved, err := s.pricing.SavePricing(ctx, cfg, actorFrom(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": saved, "version": s.pricing.Version()})
}

func (s *Server) RestorePricing(c *gin.Context) {
	restored, err := s.pricing.RestoreDefaults(c.Request.Context(), actorFrom(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": restored, "version": s.pricing.Version()})
}
