//go:build integration

package repository_test

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/StepTenInc/bpoc-mono-ecosystem-turbo-sub015/internal/database"
	"github.com/StepTenInc/bpoc-mono-ecosystem-turbo-sub015/internal/onboarding"
	"github.com/StepTenInc/bpoc-mono-ecosystem-turbo-sub015/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// setupPostgres 启动 PostgreSQL 16 容器，ONBOARDING_TEST_PG_DSN 已设置时复用该库
func setupPostgres(t *testing.T) *gorm.DB {
	t.Helper()
	ctx := context.Background()

	dsn := os.Getenv("ONBOARDING_TEST_PG_DSN")
	if dsn == "" {
		pgC, err := tcpostgres.Run(ctx,
			"postgres:16",
			tcpostgres.WithDatabase("onboarding"),
			tcpostgres.WithUsername("onboarding"),
			tcpostgres.WithPassword("onboarding"),
			tcpostgres.BasicWaitStrategies(),
		)
		require.NoError(t, err)
		t.Cleanup(func() { _ = pgC.Terminate(ctx) })

		dsn, err = pgC.ConnectionString(ctx, "sslmode=disable")
		require.NoError(t, err)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

// TestPostgres_ConcurrentReview 测试行锁下冲突审核只有一个成功
func TestPostgres_ConcurrentReview(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewOnboardingRepository(setupPostgres(t))
	require.NoError(t, repo.Create(ctx, newRecord("pg-rec-1", "cand-1", "app-1", "agency-1")))
	_, err := repo.ApplySectionChange(ctx, repository.SectionChange{
		RecordID: "pg-rec-1", Section: onboarding.SectionMedical,
		From: onboarding.StatusPending, To: onboarding.StatusSubmitted,
	})
	require.NoError(t, err)

	targets := []onboarding.Status{onboarding.StatusApproved, onboarding.StatusRejected}
	errs := make([]error, len(targets))
	var wg sync.WaitGroup
	for i, to := range targets {
		wg.Add(1)
		go func(i int, to onboarding.Status) {
			defer wg.Done()
			_, errs[i] = repo.ApplySectionChange(ctx, repository.SectionChange{
				RecordID: "pg-rec-1", Section: onboarding.SectionMedical,
				From: onboarding.StatusSubmitted, To: to,
			})
		}(i, to)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, onboarding.ErrConcurrentModification)
		}
	}
	assert.Equal(t, 1, succeeded)
}

// TestPostgres_UniqueViolation 测试 23505 映射为 ErrAlreadyExists
func TestPostgres_UniqueViolation(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewOnboardingRepository(setupPostgres(t))
	require.NoError(t, repo.Create(ctx, newRecord("pg-rec-2", "cand-2", "app-2", "agency-1")))
	err := repo.Create(ctx, newRecord("pg-rec-3", "cand-2", "app-2", "agency-1"))
	assert.ErrorIs(t, err, onboarding.ErrAlreadyExists)
}
