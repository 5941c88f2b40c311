package server

import (
	"strings"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/frontdesk/internal/audit/domain"
	"github.com/smallbiznis/frontdesk/internal/authorization"
	obslogger "github.com/smallbiznis/frontdesk/internal/observability/logger"
	"github.com/smallbiznis/frontdesk/pkg/telemetry/correlation"
	"go.uber.org/zap"
)

const (
	HeaderActor     = "X-Actor"
	HeaderActorRole = "X-Actor-Role"

	contextActorKey = "actor"
)

// ActorContext reads the desk operator from request headers. A missing role
// means the default desk role. Both headers are taken as sent: the API only
// serves trusted front-desk terminals and does no authentication, so a
// client that can reach it can claim any role.
func ActorContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		role := strings.TrimSpace(c.GetHeader(HeaderActorRole))
		if role == "" {
			role = authorization.RoleDesk
		}
		actor := auditdomain.Actor{
			Name:          strings.TrimSpace(c.GetHeader(HeaderActor)),
			Role:          role,
			CorrelationID: correlation.ExtractCorrelationID(c.Request.Context()),
		}.Normalize()

		c.Set(contextActorKey, actor)
		c.Next()
	}
}

func actorFrom(c *gin.Context) auditdomain.Actor {
	if v, ok := c.Get(contextActorKey); ok {
		if actor, ok := v.(auditdomain.Actor); ok {
			return actor
		}
	}
	return auditdomain.Actor{Role: authorization.RoleDesk}.Normalize()
}

func (s *Server) RequireAction(object, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := actorFrom(c)
		if err := s.authz.Authorize(c.Request.Context(), actor, object, action); err != nil {
			obslogger.WithActor(obslogger.WithContext(c.Request.Context(), s.log), actor.Name).
				Debug("request denied", zap.String("action", action), zap.Error(err))
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}
