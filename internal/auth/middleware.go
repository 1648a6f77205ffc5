package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/StepTenInc/bpoc-mono-ecosystem-turbo-sub015/internal/onboarding"
	"github.com/gin-gonic/gin"
)

// ContextKeyActor gin 上下文中保存 Actor 的 key
const ContextKeyActor = "actor"

// IdentityResolver 由调用方 token 解析出 Actor
type IdentityResolver interface {
	Resolve(ctx context.Context, token string) (onboarding.Actor, error)
}

// BearerToken 从 Authorization 头提取 token
func BearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		return header[7:]
	}
	return header
}

// SetActor 保存 Actor 到上下文
func SetActor(c *gin.Context, actor onboarding.Actor) {
	c.Set(ContextKeyActor, actor)
	c.Set("user_id", actor.ID)
}

// ActorFromContext 读取中间件保存的 Actor
func ActorFromContext(c *gin.Context) (onboarding.Actor, bool) {
	v, ok := c.Get(ContextKeyActor)
	if !ok {
		return onboarding.Actor{}, false
	}
	actor, ok := v.(onboarding.Actor)
	return actor, ok
}

// AuthMiddleware 认证中间件，失败时返回 401
func AuthMiddleware(resolver IdentityResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := BearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":    401,
				"message": "missing authorization header",
			})
			return
		}

		actor, err := resolver.Resolve(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":    401,
				"message": "invalid token",
			})
			return
		}

		SetActor(c, actor)
		c.Next()
	}
}

// RequireRoles 限制角色，失败时返回 403
func RequireRoles(roles ...onboarding.Role) gin.HandlerFunc {
	allowed := make(map[onboarding.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(c *gin.Context) {
		actor, ok := ActorFromContext(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": 401, "message": "unauthorized"})
			return
		}
		if !allowed[actor.Role] {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"code": 403, "message": "forbidden"})
			return
		}
		c.Next()
	}
}
