package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/StepTenInc/bpoc-mono-ecosystem-turbo-sub015/internal/auth"
	"github.com/StepTenInc/bpoc-mono-ecosystem-turbo-sub015/internal/repository"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// NotificationController 当前用户的站内通知
type NotificationController struct {
	repo repository.NotificationRepository
}

// NewNotificationController 创建通知控制器
func NewNotificationController(repo repository.NotificationRepository) *NotificationController {
	return &NotificationController{repo: repo}
}

// List 查询当前用户的通知，unread=true 时只返回未读
func (h *NotificationController) List(c *gin.Context) {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		Error(c, http.StatusUnauthorized, "unauthorized", "")
		return
	}
	unreadOnly, _ := strconv.ParseBool(c.Query("unread"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if limit > 200 {
		limit = 200
	}

	items, err := h.repo.FindByRecipient(c.Request.Context(), actor.ID, unreadOnly, limit)
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, items)
}

// MarkRead 标记已读
func (h *NotificationController) MarkRead(c *gin.Context) {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		Error(c, http.StatusUnauthorized, "unauthorized", "")
		return
	}
	err := h.repo.MarkRead(c.Request.Context(), c.Param("id"), actor.ID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		Error(c, http.StatusNotFound, "notification not found", "")
		return
	}
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, gin.H{"id": c.Param("id"), "read": true})
}
