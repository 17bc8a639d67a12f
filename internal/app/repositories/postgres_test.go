package repositories_test

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/scholarstream/api/internal/app/migrations"
	"github.com/scholarstream/api/internal/app/models"
	"github.com/scholarstream/api/internal/app/repositories"
	"github.com/scholarstream/api/internal/pkg/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openTestDB connects to TEST_DATABASE_URL, migrates it and empties the tables
func openTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, migrations.NewMigrator(pool).Migrate(ctx, migrations.Files()))
	_, err = pool.Exec(ctx, "TRUNCATE applications, reviews, scholarships, users")
	require.NoError(t, err)
	return pool
}

func TestPostgres_UserLifecycle(t *testing.T) {
	pool := openTestDB(t)
	ctx := context.Background()
	repo := repositories.NewUserRepository(pool)

	u := &models.User{Email: "Ada@Example.com", DisplayName: "Ada", Role: models.RoleStudent}
	created, err := repo.CreateIfNotExists(ctx, u)
	require.NoError(t, err)
	assert.True(t, created)

	dup := &models.User{Email: "ada@example.com", DisplayName: "Other", Role: models.RoleAdmin}
	created, err = repo.CreateIfNotExists(ctx, dup)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, u.ID, dup.ID)
	assert.Equal(t, models.RoleStudent, dup.Role)

	users, total, err := repo.List(ctx, models.UserFilter{Search: "ADA"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Len(t, users, 1)

	updated, err := repo.UpdateRole(ctx, u.ID, models.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, updated.Role)

	require.NoError(t, repo.Delete(ctx, u.ID))
	_, err = repo.GetByID(ctx, u.ID)
	assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
}

func TestPostgres_ScholarshipListAndPatch(t *testing.T) {
	pool := openTestDB(t)
	ctx := context.Background()
	repo := repositories.NewScholarshipRepository(pool)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, name := range []string{"Alpha", "Beta", "Gamma"} {
		require.NoError(t, repo.Create(ctx, &models.Scholarship{
			ScholarshipName:     name,
			UniversityName:      name + " University",
			UniversityCountry:   "Canada",
			Degree:              "Masters",
			ApplicationFees:     float64(30 - i*10),
			ApplicationDeadline: base.AddDate(0, 6, 0),
			ScholarshipPostDate: base.AddDate(0, 0, i),
		}))
	}

	items, total, err := repo.List(ctx, models.ScholarshipFilter{SortBy: models.ScholarshipSortFees, Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, items, 2)
	assert.Equal(t, "Gamma", items[0].ScholarshipName)

	city := "Toronto"
	updated, err := repo.Update(ctx, items[0].ID, models.ScholarshipPatch{UniversityCity: &city})
	require.NoError(t, err)
	assert.Equal(t, "Toronto", updated.UniversityCity)
	assert.Equal(t, "Gamma", updated.ScholarshipName)

	_, err = repo.Update(ctx, uuid.New(), models.ScholarshipPatch{UniversityCity: &city})
	assert.ErrorIs(t, err, apperrors.ErrScholarshipNotFound)
}

func TestPostgres_ConcurrentApplicationCreate(t *testing.T) {
	pool := openTestDB(t)
	ctx := context.Background()
	repo := repositories.NewApplicationRepository(pool)
	sid := uuid.New()

	const workers = 16
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- repo.Create(ctx, &models.Application{
				ScholarshipID:     sid,
				StudentEmail:      "race@example.com",
				ApplicationStatus: models.ApplicationStatusPending,
				PaymentStatus:     models.PaymentStatusUnpaid,
			})
		}()
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, apperrors.ErrAlreadyApplied)
	}
	assert.Equal(t, 1, succeeded)

	apps, err := repo.ListByStudent(ctx, "race@example.com")
	require.NoError(t, err)
	require.Len(t, apps, 1)

	paid, changed, err := repo.MarkPaid(ctx, apps[0].ID)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, models.ApplicationStatusCompleted, paid.ApplicationStatus)

	late, changed, err := repo.MarkPaymentCancelled(ctx, apps[0].ID)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, models.PaymentStatusPaid, late.PaymentStatus)
}
