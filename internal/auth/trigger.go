package auth

import (
	"net/http"

	"github.com/StepTenInc/bpoc-mono-ecosystem-turbo-sub015/internal/onboarding"
	"github.com/StepTenInc/bpoc-mono-ecosystem-turbo-sub015/internal/utils"
	"github.com/gin-gonic/gin"
)

// TriggerSecretHeader 调度器携带共享密钥的请求头
const TriggerSecretHeader = "X-Trigger-Secret"

// TriggerSecretMiddleware 校验调度器共享密钥，通过后以系统身份继续
// 未配置哈希时拒绝所有请求
func TriggerSecretMiddleware(secretHash string) gin.HandlerFunc {
	return func(c *gin.Context) {
		secret := c.GetHeader(TriggerSecretHeader)
		if secret == "" {
			secret = BearerToken(c)
		}
		if secret == "" || !utils.VerifySecret(secret, secretHash) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":    401,
				"message": "invalid trigger secret",
			})
			return
		}

		SetActor(c, onboarding.SystemActor)
		c.Next()
	}
}
