package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/StepTenInc/bpoc-mono-ecosystem-turbo-sub015/internal/api"
	"github.com/StepTenInc/bpoc-mono-ecosystem-turbo-sub015/internal/auth"
	"github.com/StepTenInc/bpoc-mono-ecosystem-turbo-sub015/internal/config"
	"github.com/StepTenInc/bpoc-mono-ecosystem-turbo-sub015/internal/database"
	"github.com/StepTenInc/bpoc-mono-ecosystem-turbo-sub015/internal/notification"
	"github.com/StepTenInc/bpoc-mono-ecosystem-turbo-sub015/internal/onboarding"
	"github.com/StepTenInc/bpoc-mono-ecosystem-turbo-sub015/internal/repository"
	"github.com/StepTenInc/bpoc-mono-ecosystem-turbo-sub015/internal/service"
	"github.com/StepTenInc/bpoc-mono-ecosystem-turbo-sub015/internal/storage"
	"github.com/StepTenInc/bpoc-mono-ecosystem-turbo-sub015/internal/utils"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const triggerSecret = "scan-trigger-secret"

// tokenResolver 以 token 直接映射 Actor
type tokenResolver map[string]onboarding.Actor

func (r tokenResolver) Resolve(_ context.Context, token string) (onboarding.Actor, error) {
	actor, ok := r[token]
	if !ok {
		return onboarding.Actor{}, onboarding.ErrUnauthorized
	}
	return actor, nil
}

// fakeDocuments 固定返回上传地址
type fakeDocuments struct{}

func (fakeDocuments) PresignUpload(_ context.Context, objectKey string) (*storage.UploadTicket, error) {
	return &storage.UploadTicket{
		UploadURL: "https://storage.example.com/" + objectKey,
		ObjectKey: objectKey,
		ExpiresAt: time.Now().Add(15 * time.Minute),
	}, nil
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Detail  string          `json:"detail"`
	Data    json.RawMessage `json:"data"`
}

type testServer struct {
	router *gin.Engine
}

func newTestServer(t *testing.T, documents storage.DocumentStore) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.Connect(config.DatabaseConfig{Driver: "sqlite", SQLitePath: ":memory:", MaxOpenConns: 1, MaxIdleConns: 1})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	hash, err := utils.HashSecret(triggerSecret)
	require.NoError(t, err)
	cfg := &config.Config{
		CORS:     config.CORSConfig{AllowedOrigins: []string{"https://app.example.com"}},
		Security: config.SecurityConfig{ScanTriggerSecretHash: hash},
	}

	codec, err := utils.NewPayloadCodec("")
	require.NoError(t, err)
	directory := repository.NewReviewerDirectory(db)
	require.NoError(t, directory.Add(context.Background(), "agency-1", "recruiter-1"))

	records := repository.NewOnboardingRepository(db)
	activities := repository.NewActivityEventRepository(db)
	notifications := repository.NewNotificationRepository(db)
	notifier := notification.NewMulti(logger).Add("in_app", notification.NewStoreNotifier(notifications))
	dispatcher := service.NewDispatcher(notifier, directory)
	reviewers := auth.NewReviewerAuthorizer(directory, nil, logger)

	coordinator := service.NewCoordinator(service.CoordinatorDeps{
		Records:    records,
		Audit:      service.NewAuditTrailWriter(activities),
		Dispatcher: dispatcher,
		Reviewers:  reviewers,
		Codec:      codec,
		Hooks:      service.NewHookRunner(service.HookRunnerConfig{}, logger),
		Logger:     logger,
	})
	query := service.NewQueryService(records, activities, reviewers, codec, logger)
	scanner := service.NewDeadlineScanner(records, dispatcher, 72*time.Hour, 2, logger)

	router := api.SetupRoutes(api.RouterDeps{
		Config: cfg,
		Logger: logger,
		Resolver: tokenResolver{
			"candidate": {ID: "cand-1", Role: onboarding.RoleCandidate},
			"stranger":  {ID: "cand-2", Role: onboarding.RoleCandidate},
			"recruiter": {ID: "recruiter-1", Role: onboarding.RoleRecruiter, AgencyID: "agency-1"},
			"admin":     {ID: "admin-1", Role: onboarding.RoleAdmin},
		},
		Onboarding:    api.NewOnboardingController(coordinator, query, documents),
		Scan:          api.NewScanController(scanner),
		Stats:         api.NewStatsController(service.NewStatisticsService(db)),
		Notifications: api.NewNotificationController(notifications),
		Health:        api.NewHealthController(db, nil),
	})
	return &testServer{router: router}
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	var env envelope
	_ = json.Unmarshal(rec.Body.Bytes(), &env)
	return rec, env
}

func (s *testServer) createRecord(t *testing.T, applicationID string, start *time.Time) service.RecordView {
	t.Helper()
	rec, env := s.do(t, http.MethodPost, "/api/v1/onboarding", "admin", map[string]interface{}{
		"candidateId":      "cand-1",
		"jobApplicationId": applicationID,
		"agencyId":         "agency-1",
		"position":         "Customer Support Associate",
		"startDate":        start,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var view service.RecordView
	require.NoError(t, json.Unmarshal(env.Data, &view))
	return view
}

func decodeView(t *testing.T, env envelope) service.RecordView {
	t.Helper()
	var view service.RecordView
	require.NoError(t, json.Unmarshal(env.Data, &view))
	return view
}

// TestAuthRequired 未认证和角色限制
func TestAuthRequired(t *testing.T) {
	srv := newTestServer(t, nil)

	rec, _ := srv.do(t, http.MethodGet, "/api/v1/onboarding", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = srv.do(t, http.MethodGet, "/api/v1/onboarding", "forged", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = srv.do(t, http.MethodPost, "/api/v1/onboarding", "candidate", map[string]string{
		"candidateId": "cand-1", "jobApplicationId": "app-1", "agencyId": "agency-1",
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = srv.do(t, http.MethodGet, "/api/v1/onboarding/stats", "recruiter", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

// TestOnboardingFlow 从创建到确认入职
func TestOnboardingFlow(t *testing.T) {
	srv := newTestServer(t, nil)
	view := srv.createRecord(t, "app-1", nil)
	assert.Equal(t, 0, view.CompletionPercent)
	require.Len(t, view.Sections, onboarding.SectionCount)

	rec, _ := srv.do(t, http.MethodPost, "/api/v1/onboarding", "admin", map[string]string{
		"candidateId": "cand-1", "jobApplicationId": "app-1", "agencyId": "agency-1",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	base := "/api/v1/onboarding/" + view.ID

	rec, env := srv.do(t, http.MethodPost, base+"/sections/resume/submit", "candidate", map[string]interface{}{
		"data": map[string]interface{}{"documents": []string{"onboarding/" + view.ID + "/resume/cv.pdf"}},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 13, decodeView(t, env).CompletionPercent)

	rec, _ = srv.do(t, http.MethodPost, base+"/sections/resume/submit", "stranger", map[string]interface{}{
		"data": map[string]interface{}{"documents": []string{"x.pdf"}},
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = srv.do(t, http.MethodPost, base+"/sections/gov_id/submit", "candidate", map[string]interface{}{"data": map[string]interface{}{}})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec, _ = srv.do(t, http.MethodPost, base+"/sections/passport/submit", "candidate", map[string]interface{}{"data": map[string]interface{}{}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = srv.do(t, http.MethodPost, base+"/sections/resume/review", "recruiter", map[string]string{"decision": "REJECTED"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec, _ = srv.do(t, http.MethodPost, base+"/sections/resume/review", "recruiter", map[string]string{
		"decision": "REJECTED", "feedback": "please upload a PDF",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, env = srv.do(t, http.MethodGet, base, "candidate", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resume := decodeView(t, env).Sections[onboarding.SectionResume]
	assert.Equal(t, onboarding.StatusRejected, resume.Status)
	assert.Equal(t, "please upload a PDF", resume.Feedback)

	rec, _ = srv.do(t, http.MethodPost, base+"/sections/education/review", "recruiter", map[string]string{"decision": "APPROVED"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, _ = srv.do(t, http.MethodPost, base+"/contract/sign", "candidate", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, env = srv.do(t, http.MethodPost, base+"/contract/sign", "candidate", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "already confirmed", env.Message)

	rec, _ = srv.do(t, http.MethodPost, base+"/employment/confirm", "candidate", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec, _ = srv.do(t, http.MethodPost, base+"/sections/resume/reopen", "admin", map[string]string{"reason": "wrong candidate file"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, env = srv.do(t, http.MethodGet, base+"/activity", "recruiter", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var events []service.ActivityView
	require.NoError(t, json.Unmarshal(env.Data, &events))
	assert.Len(t, events, 5)

	rec, _ = srv.do(t, http.MethodGet, base+"/activity", "candidate", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = srv.do(t, http.MethodGet, "/api/v1/onboarding/missing", "admin", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec, _ = srv.do(t, http.MethodGet, "/api/v1/onboarding/bad%20id", "admin", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// TestListAndMine 列表分页
func TestListAndMine(t *testing.T) {
	srv := newTestServer(t, nil)
	for i := 1; i <= 3; i++ {
		srv.createRecord(t, fmt.Sprintf("app-%d", i), nil)
	}

	rec, env := srv.do(t, http.MethodGet, "/api/v1/onboarding?page=1&page_size=2", "recruiter", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var page struct {
		Data       []service.RecordView `json:"data"`
		Pagination api.PaginationInfo   `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Len(t, page.Data, 2)
	assert.Equal(t, int64(3), page.Pagination.Total)
	assert.Equal(t, 2, page.Pagination.TotalPage)
	assert.Equal(t, 0, env.Code)

	rec, _ = srv.do(t, http.MethodGet, "/api/v1/onboarding?is_complete=maybe", "admin", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, env = srv.do(t, http.MethodGet, "/api/v1/onboarding/me", "candidate", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var mine []service.RecordView
	require.NoError(t, json.Unmarshal(env.Data, &mine))
	assert.Len(t, mine, 3)

	rec, env = srv.do(t, http.MethodGet, "/api/v1/onboarding/stats", "admin", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var stats service.OnboardingStatistics
	require.NoError(t, json.Unmarshal(env.Data, &stats))
	assert.Equal(t, int64(3), stats.TotalRecords)
}

// TestUploadURL 上传地址
func TestUploadURL(t *testing.T) {
	srv := newTestServer(t, fakeDocuments{})
	view := srv.createRecord(t, "app-1", nil)
	path := "/api/v1/onboarding/" + view.ID + "/sections/medical/upload-url"

	rec, env := srv.do(t, http.MethodPost, path, "candidate", map[string]string{"filename": "../../medical cert.pdf"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var ticket storage.UploadTicket
	require.NoError(t, json.Unmarshal(env.Data, &ticket))
	assert.Contains(t, ticket.ObjectKey, "onboarding/"+view.ID+"/medical/")
	assert.NotContains(t, ticket.ObjectKey, "..")

	rec, _ = srv.do(t, http.MethodPost, path, "stranger", map[string]string{"filename": "x.pdf"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = srv.do(t, http.MethodPost, "/api/v1/onboarding/"+view.ID+"/sections/personal_info/upload-url", "candidate", map[string]string{"filename": "x.pdf"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	noStorage := newTestServer(t, nil)
	view = noStorage.createRecord(t, "app-1", nil)
	rec, _ = noStorage.do(t, http.MethodPost, "/api/v1/onboarding/"+view.ID+"/sections/medical/upload-url", "candidate", map[string]string{"filename": "x.pdf"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

// TestDeadlineScanTrigger 扫描触发需要共享密钥
func TestDeadlineScanTrigger(t *testing.T) {
	srv := newTestServer(t, nil)
	start := time.Now().Add(20 * time.Hour)
	srv.createRecord(t, "app-1", &start)

	rec, _ := srv.do(t, http.MethodPost, "/api/v1/internal/deadline-scan", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec, _ = srv.do(t, http.MethodPost, "/api/v1/internal/deadline-scan", "admin", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, env := srv.do(t, http.MethodPost, "/api/v1/internal/deadline-scan", triggerSecret, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var result service.ScanResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, 1, result.Matched)
	assert.Equal(t, 1, result.Dispatched)

	rec, env = srv.do(t, http.MethodGet, "/api/v1/notifications?unread=true", "candidate", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var items []map[string]interface{}
	require.NoError(t, json.Unmarshal(env.Data, &items))
	require.Len(t, items, 2)
	types := []interface{}{items[0]["type"], items[1]["type"]}
	assert.ElementsMatch(t, []interface{}{"onboarding_started", "onboarding_deadline"}, types)

	id := items[0]["id"].(string)
	rec, _ = srv.do(t, http.MethodPost, "/api/v1/notifications/"+id+"/read", "stranger", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec, _ = srv.do(t, http.MethodPost, "/api/v1/notifications/"+id+"/read", "candidate", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, env = srv.do(t, http.MethodGet, "/api/v1/notifications?unread=true", "candidate", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(env.Data, &items))
	assert.Len(t, items, 1)
}

// TestMiddlewares 健康检查、请求 ID、CORS
func TestMiddlewares(t *testing.T) {
	srv := newTestServer(t, nil)

	rec, _ := srv.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(api.RequestIDHeader))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/onboarding", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set(api.RequestIDHeader, "req-123")
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "req-123", w.Header().Get(api.RequestIDHeader))

	req = httptest.NewRequest(http.MethodOptions, "/api/v1/onboarding", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))

	rec, _ = srv.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

// TestStatusFor 领域错误映射
func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{onboarding.ErrUnauthorized, http.StatusForbidden},
		{fmt.Errorf("wrap: %w", onboarding.ErrRecordNotFound), http.StatusNotFound},
		{&onboarding.TransitionError{From: onboarding.StatusPending, To: onboarding.StatusApproved}, http.StatusConflict},
		{onboarding.ErrConcurrentModification, http.StatusConflict},
		{onboarding.ErrAlreadyConfirmed, http.StatusConflict},
		{onboarding.ErrAlreadyExists, http.StatusConflict},
		{fmt.Errorf("%w: feedback required", onboarding.ErrValidation), http.StatusUnprocessableEntity},
		{storage.ErrNotConfigured, http.StatusServiceUnavailable},
		{errors.New("db down"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		got, _ := api.StatusFor(tt.err)
		assert.Equal(t, tt.want, got, tt.err.Error())
	}
}

// TestCheckSLA SLA 判断
func TestCheckSLA(t *testing.T) {
	cfg := api.DefaultSLAConfig()
	assert.True(t, api.CheckSLA("query", 100*time.Millisecond, cfg))
	assert.False(t, api.CheckSLA("query", time.Second, cfg))
	assert.True(t, api.CheckSLA("transition", time.Second, cfg))
	assert.True(t, api.CheckSLA("unknown", time.Hour, cfg))
}
