package service_test

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/StepTenInc/bpoc-mono-ecosystem-turbo-sub015/internal/auth"
	"github.com/StepTenInc/bpoc-mono-ecosystem-turbo-sub015/internal/config"
	"github.com/StepTenInc/bpoc-mono-ecosystem-turbo-sub015/internal/database"
	"github.com/StepTenInc/bpoc-mono-ecosystem-turbo-sub015/internal/model"
	"github.com/StepTenInc/bpoc-mono-ecosystem-turbo-sub015/internal/notification"
	"github.com/StepTenInc/bpoc-mono-ecosystem-turbo-sub015/internal/onboarding"
	"github.com/StepTenInc/bpoc-mono-ecosystem-turbo-sub015/internal/repository"
	"github.com/StepTenInc/bpoc-mono-ecosystem-turbo-sub015/internal/service"
	"github.com/StepTenInc/bpoc-mono-ecosystem-turbo-sub015/internal/utils"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var (
	candidate      = onboarding.Actor{ID: "cand-1", Role: onboarding.RoleCandidate}
	otherCandidate = onboarding.Actor{ID: "cand-2", Role: onboarding.RoleCandidate}
	recruiter      = onboarding.Actor{ID: "recruiter-1", Role: onboarding.RoleRecruiter, AgencyID: "agency-1"}
	colleague      = onboarding.Actor{ID: "recruiter-2", Role: onboarding.RoleRecruiter}
	outsider       = onboarding.Actor{ID: "recruiter-9", Role: onboarding.RoleRecruiter, AgencyID: "agency-2"}
	admin          = onboarding.Actor{ID: "admin-1", Role: onboarding.RoleAdmin}
)

// recorder 记录发出的通知
type recorder struct {
	mu    sync.Mutex
	items []notification.Notification
}

func (r *recorder) Notify(_ context.Context, n notification.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, n)
	return nil
}

func (r *recorder) byType(t notification.Type) []notification.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []notification.Notification
	for _, n := range r.items {
		if n.Type == t {
			out = append(out, n)
		}
	}
	return out
}

type testEnv struct {
	db          *gorm.DB
	records     repository.OnboardingRepository
	activities  repository.ActivityEventRepository
	coordinator *service.Coordinator
	query       *service.QueryService
	dispatcher  *service.Dispatcher
	codec       *utils.PayloadCodec
	notes       *recorder
	logger      *logrus.Logger
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Connect(config.DatabaseConfig{
		Driver:       "sqlite",
		SQLitePath:   ":memory:",
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func newTestEnv(t *testing.T, encryptionKey string) *testEnv {
	t.Helper()
	db := setupTestDB(t)

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	codec, err := utils.NewPayloadCodec(encryptionKey)
	require.NoError(t, err)

	directory := repository.NewReviewerDirectory(db)
	ctx := context.Background()
	require.NoError(t, directory.Add(ctx, "agency-1", "recruiter-1"))
	require.NoError(t, directory.Add(ctx, "agency-1", "recruiter-2"))

	records := repository.NewOnboardingRepository(db)
	activities := repository.NewActivityEventRepository(db)
	notes := &recorder{}
	dispatcher := service.NewDispatcher(notes, directory)
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

	return &testEnv{
		db:          db,
		records:     records,
		activities:  activities,
		coordinator: coordinator,
		query:       service.NewQueryService(records, activities, reviewers, codec, logger),
		dispatcher:  dispatcher,
		codec:       codec,
		notes:       notes,
		logger:      logger,
	}
}

func (e *testEnv) createRecord(t *testing.T, candidateID, applicationID string, start *time.Time) *model.OnboardingRecordModel {
	t.Helper()
	rec, err := e.coordinator.CreateRecord(context.Background(), admin, service.CreateRecordRequest{
		CandidateID:      candidateID,
		JobApplicationID: applicationID,
		AgencyID:         "agency-1",
		Position:         "Customer Support Associate",
		StartDate:        start,
	})
	require.NoError(t, err)
	return rec
}

func (e *testEnv) actions(t *testing.T, recordID string) []string {
	t.Helper()
	events, err := e.activities.FindByRecordID(context.Background(), recordID)
	require.NoError(t, err)
	out := make([]string, 0, len(events))
	for _, ev := range events {
		out = append(out, ev.Action)
	}
	return out
}

// validPayload 各 section 的合法提交
func validPayload(s onboarding.Section) onboarding.Payload {
	switch s {
	case onboarding.SectionPersonalInfo:
		return onboarding.Payload{"first_name": "Maria", "last_name": "Santos", "email": "maria@example.com", "contact_no": "+639171234567"}
	case onboarding.SectionEmergencyContact:
		return onboarding.Payload{"name": "Jose Santos", "relationship": "Father", "phone": "+639181234567"}
	case onboarding.SectionDataPrivacy:
		return onboarding.Payload{"accepted": true}
	case onboarding.SectionSignature:
		return onboarding.Payload{"signature_url": "onboarding/rec/signature/sig.png"}
	}
	return onboarding.Payload{onboarding.DocumentsKey: []string{"onboarding/rec/" + s.Key() + "/doc.pdf"}}
}

// approveAll 提交并通过全部 section
func (e *testEnv) approveAll(t *testing.T, recordID string) *model.OnboardingRecordModel {
	t.Helper()
	ctx := context.Background()
	var rec *model.OnboardingRecordModel
	var err error
	for _, s := range onboarding.AllSections {
		rec, err = e.coordinator.SubmitSection(ctx, candidate, recordID, s, validPayload(s))
		require.NoError(t, err, s.Key())
		if s.AutoApproves() {
			continue
		}
		rec, err = e.coordinator.ReviewSection(ctx, recruiter, recordID, s, onboarding.DecisionApproved, "")
		require.NoError(t, err, s.Key())
	}
	return rec
}
