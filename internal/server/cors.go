package server

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/frontdesk/internal/config"
)

// CORSMiddleware lets the desk screen call the API from its own origin.
func CORSMiddleware(cfg config.Config) gin.HandlerFunc {
	origins := cfg.CORSAllowedOrigins
	if len(origins) == 0 {
		origins = []string{
			"http://localhost:3000",
			"http://127.0.0.1:3000",
		}
	}

	return cors.New(cors.Config{
		AllowOrigins: origins,
		AllowMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders: []string{
			"Accept",
			"Content-Type",
			"Origin",
			HeaderActor,
			HeaderActorRole,
			"X-Correlation-ID",
			"X-Request-ID",
		},
		ExposeHeaders:    []string{"Content-Length", "Content-Type", "Content-Disposition", "X-Request-Id", "X-Correlation-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
}
