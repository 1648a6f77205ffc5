package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/StepTenInc/bpoc-mono-ecosystem-turbo-sub015/internal/auth"
	"github.com/StepTenInc/bpoc-mono-ecosystem-turbo-sub015/internal/onboarding"
	"github.com/StepTenInc/bpoc-mono-ecosystem-turbo-sub015/internal/service"
	"github.com/StepTenInc/bpoc-mono-ecosystem-turbo-sub015/internal/storage"
	"github.com/StepTenInc/bpoc-mono-ecosystem-turbo-sub015/internal/utils"
	"github.com/gin-gonic/gin"
)

// CreateRecordRequest 创建入职记录请求
type CreateRecordRequest struct {
	CandidateID      string                        `json:"candidateId" binding:"required"`
	JobApplicationID string                        `json:"jobApplicationId" binding:"required"`
	AgencyID         string                        `json:"agencyId" binding:"required"`
	Position         string                        `json:"position"`
	StartDate        *time.Time                    `json:"startDate"`
	Prefill          map[string]onboarding.Payload `json:"prefill"`
}

// SubmitSectionRequest 提交 section 请求
type SubmitSectionRequest struct {
	Data onboarding.Payload `json:"data"`
}

// ReviewSectionRequest 审核请求
type ReviewSectionRequest struct {
	Decision onboarding.Decision `json:"decision" binding:"required"`
	Feedback string              `json:"feedback"`
}

// ReopenSectionRequest 重开请求
type ReopenSectionRequest struct {
	Reason string `json:"reason"`
}

// UploadURLRequest 申请上传地址请求
type UploadURLRequest struct {
	Filename string `json:"filename" binding:"required"`
}

// OnboardingController 入职流程控制器
type OnboardingController struct {
	coordinator *service.Coordinator
	query       *service.QueryService
	documents   storage.DocumentStore // 可为 nil
}

// NewOnboardingController 创建入职流程控制器
func NewOnboardingController(coordinator *service.Coordinator, query *service.QueryService, documents storage.DocumentStore) *OnboardingController {
	return &OnboardingController{coordinator: coordinator, query: query, documents: documents}
}

// actor 读取已认证的调用方
func (h *OnboardingController) actor(c *gin.Context) (onboarding.Actor, bool) {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		Error(c, http.StatusUnauthorized, "unauthorized", "")
	}
	return actor, ok
}

// recordID 校验路径中的记录 ID
func (h *OnboardingController) recordID(c *gin.Context) (string, bool) {
	id := c.Param("id")
	if err := utils.ValidateID(id); err != nil {
		Error(c, http.StatusBadRequest, "invalid record ID", err.Error())
		return "", false
	}
	return id, true
}

func (h *OnboardingController) section(c *gin.Context) (onboarding.Section, bool) {
	section, err := onboarding.ParseSection(c.Param("section"))
	if err != nil {
		Error(c, http.StatusBadRequest, "unknown section", err.Error())
		return 0, false
	}
	return section, true
}

// Create 创建入职记录
func (h *OnboardingController) Create(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req CreateRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	prefill := make(map[onboarding.Section]onboarding.Payload, len(req.Prefill))
	for key, payload := range req.Prefill {
		section, err := onboarding.ParseSection(key)
		if err != nil {
			Error(c, http.StatusBadRequest, "unknown prefill section", err.Error())
			return
		}
		prefill[section] = payload
	}

	rec, err := h.coordinator.CreateRecord(c.Request.Context(), actor, service.CreateRecordRequest{
		CandidateID:      req.CandidateID,
		JobApplicationID: req.JobApplicationID,
		AgencyID:         req.AgencyID,
		Position:         req.Position,
		StartDate:        req.StartDate,
		Prefill:          prefill,
	})
	if err != nil {
		HandleError(c, err)
		return
	}

	view, err := h.query.GetRecord(c.Request.Context(), actor, rec.ID)
	if err != nil {
		HandleError(c, err)
		return
	}
	Created(c, view)
}

// List 按角色范围分页查询
func (h *OnboardingController) List(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	q := service.ListQuery{
		AgencyID: c.Query("agency_id"),
		SortBy:   c.Query("sort_by"),
		Order:    c.Query("order"),
	}
	q.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	q.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if q.PageSize > 100 {
		q.PageSize = 100
	}
	if raw := c.Query("is_complete"); raw != "" {
		complete, err := strconv.ParseBool(raw)
		if err != nil {
			Error(c, http.StatusBadRequest, "invalid is_complete", err.Error())
			return
		}
		q.IsComplete = &complete
	}

	result, err := h.query.ListRecords(c.Request.Context(), actor, q)
	if err != nil {
		HandleError(c, err)
		return
	}
	Paginated(c, result.Items, NewPaginationInfo(result.Page, result.PageSize, result.Total))
}

// Mine 候选人自己的记录
func (h *OnboardingController) Mine(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	views, err := h.query.MyRecords(c.Request.Context(), actor)
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, views)
}

// Get 获取记录详情
func (h *OnboardingController) Get(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.recordID(c)
	if !ok {
		return
	}
	view, err := h.query.GetRecord(c.Request.Context(), actor, id)
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, view)
}

// Activity 活动日志
func (h *OnboardingController) Activity(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.recordID(c)
	if !ok {
		return
	}
	events, err := h.query.ListActivity(c.Request.Context(), actor, id)
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, events)
}

// Submit 候选人提交 section
func (h *OnboardingController) Submit(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.recordID(c)
	if !ok {
		return
	}
	section, ok := h.section(c)
	if !ok {
		return
	}
	var req SubmitSectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	if _, err := h.coordinator.SubmitSection(c.Request.Context(), actor, id, section, req.Data); err != nil {
		HandleError(c, err)
		return
	}
	h.respondRecord(c, actor, id)
}

// Review 审核 section
func (h *OnboardingController) Review(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.recordID(c)
	if !ok {
		return
	}
	section, ok := h.section(c)
	if !ok {
		return
	}
	var req ReviewSectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	if _, err := h.coordinator.ReviewSection(c.Request.Context(), actor, id, section, req.Decision, req.Feedback); err != nil {
		HandleError(c, err)
		return
	}
	h.respondRecord(c, actor, id)
}

// Reopen 管理员重开 section
func (h *OnboardingController) Reopen(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.recordID(c)
	if !ok {
		return
	}
	section, ok := h.section(c)
	if !ok {
		return
	}
	var req ReopenSectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	if _, err := h.coordinator.ReopenSection(c.Request.Context(), actor, id, section, req.Reason); err != nil {
		HandleError(c, err)
		return
	}
	h.respondRecord(c, actor, id)
}

// UploadURL 为候选人生成文档上传地址，只有上传类 section 可用
func (h *OnboardingController) UploadURL(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.recordID(c)
	if !ok {
		return
	}
	section, ok := h.section(c)
	if !ok {
		return
	}
	if section.Kind() != onboarding.KindUpload && section.Kind() != onboarding.KindSign {
		Error(c, http.StatusBadRequest, "section does not accept documents", section.Key())
		return
	}
	var req UploadURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	if actor.Role != onboarding.RoleCandidate {
		HandleError(c, onboarding.ErrUnauthorized)
		return
	}
	if _, err := h.query.GetRecord(c.Request.Context(), actor, id); err != nil {
		HandleError(c, err)
		return
	}
	if h.documents == nil {
		HandleError(c, storage.ErrNotConfigured)
		return
	}

	ticket, err := h.documents.PresignUpload(c.Request.Context(), storage.ObjectKey(id, section.Key(), req.Filename))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, ticket)
}

// SignContract 候选人签署合同
func (h *OnboardingController) SignContract(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.recordID(c)
	if !ok {
		return
	}
	if _, err := h.coordinator.SignContract(c.Request.Context(), actor, id); err != nil {
		HandleError(c, err)
		return
	}
	h.respondRecord(c, actor, id)
}

// ConfirmEmployment 候选人确认入职
func (h *OnboardingController) ConfirmEmployment(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.recordID(c)
	if !ok {
		return
	}
	if _, err := h.coordinator.ConfirmEmploymentStart(c.Request.Context(), actor, id); err != nil {
		HandleError(c, err)
		return
	}
	h.respondRecord(c, actor, id)
}

// respondRecord 写操作成功后按调用方视角返回最新记录
func (h *OnboardingController) respondRecord(c *gin.Context, actor onboarding.Actor, id string) {
	view, err := h.query.GetRecord(c.Request.Context(), actor, id)
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, view)
}
