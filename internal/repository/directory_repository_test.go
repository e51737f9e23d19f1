package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/faculty-scheduler-api/internal/models"
	appErrors "github.com/noah-isme/faculty-scheduler-api/pkg/errors"
)

func TestSpaceRepositoryList(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSpaceRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "name", "type", "capacity", "equipment", "status", "created_at", "updated_at"}).
		AddRow("room-a", "Room A", "CLASSROOM", 40, "{projector,whiteboard}", "AVAILABLE", now, now).
		AddRow("room-b", "Room B", "LAB", 20, "{}", "MAINTENANCE", now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM spaces ORDER BY id")).WillReturnRows(rows)

	spaces, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, spaces, 2)
	assert.True(t, spaces[0].HasEquipment([]string{"projector"}))
	assert.False(t, spaces[1].Available())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSpaceRepositoryFindByIDsEmpty(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSpaceRepository(db)

	spaces, err := repo.FindByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, spaces)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHorizonRepositoryFindByIDParsesBlackouts(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewHorizonRepository(db)

	start := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "name", "start_date", "end_date", "days", "day_start", "period_minutes",
		"periods_per_day", "break_minutes", "blackout_dates", "allow_biweekly", "created_at"}).
		AddRow("h-1", "Spring", start, start.AddDate(0, 0, 25), "{1,2,3}", 480, 90, 4, 15, "{2026-01-12}", true, start)
	mock.ExpectQuery(regexp.QuoteMeta("FROM horizons WHERE id = $1")).
		WithArgs("h-1").
		WillReturnRows(rows)

	h, err := repo.FindByID(context.Background(), "h-1")
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, []int64(h.Days))
	assert.Equal(t, models.MustClock("08:00"), h.DayStart)
	require.Len(t, h.BlackoutDates, 1)
	assert.Equal(t, time.Date(2026, 1, 12, 0, 0, 0, 0, time.UTC), h.BlackoutDates[0])
	assert.True(t, h.AllowBiweekly)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHorizonRepositoryFindByIDRejectsBadBlackout(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewHorizonRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "name", "start_date", "end_date", "days", "day_start", "period_minutes",
		"periods_per_day", "break_minutes", "blackout_dates", "allow_biweekly", "created_at"}).
		AddRow("h-1", "Spring", now, now, "{1}", 480, 90, 4, 15, "{not-a-date}", false, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM horizons WHERE id = $1")).WithArgs("h-1").WillReturnRows(rows)

	_, err := repo.FindByID(context.Background(), "h-1")
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHorizonRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewHorizonRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO horizons")).
		WithArgs("h-1", "Spring", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), 480, 90, 4, 15, "{\"2026-01-12\"}", false, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	h := &models.Horizon{
		ID: "h-1", Name: "Spring", Days: []int64{1, 2}, DayStart: 480, PeriodMinutes: 90, PeriodsPerDay: 4, BreakMinutes: 15,
		BlackoutDates: []time.Time{time.Date(2026, 1, 12, 0, 0, 0, 0, time.UTC)},
	}
	require.NoError(t, repo.Create(context.Background(), h))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDemandRepositoryListByHorizon(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewDemandRepository(db)

	rows := sqlmock.NewRows([]string{"id", "horizon_id", "section_id", "course_code", "teacher_id", "expected_headcount",
		"required_equipment", "weekly_occurrences", "priority", "biweekly", "preferred_slots", "created_at"}).
		AddRow("d-1", "h-1", "sec-1", "CS101", "t-1", 35, "{projector}", 2, 1, false, "{1-08:00}", time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM demand_units WHERE horizon_id = $1 ORDER BY id")).
		WithArgs("h-1").
		WillReturnRows(rows)

	demands, err := repo.ListByHorizon(context.Background(), "h-1")
	require.NoError(t, err)
	require.Len(t, demands, 1)
	assert.Equal(t, 2, demands[0].WeeklyOccurrences)
	assert.Equal(t, []string{"1-08:00"}, []string(demands[0].PreferredSlots))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDemandRepositoryAvailability(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewDemandRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM teacher_availability WHERE horizon_id = $1")).
		WithArgs("h-1").
		WillReturnRows(sqlmock.NewRows([]string{"teacher_id", "horizon_id", "blocked_slots", "max_load_per_day", "updated_at"}).
			AddRow("t-1", "h-1", "{1-08:00}", 2, time.Now()))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO teacher_availability")).
		WithArgs("t-2", "h-1", "{}", 3, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	availability, err := repo.ListAvailability(context.Background(), "h-1")
	require.NoError(t, err)
	require.Len(t, availability, 1)
	assert.Equal(t, 2, availability[0].MaxLoadPerDay)

	require.NoError(t, repo.UpsertAvailability(context.Background(), &models.TeacherAvailability{TeacherID: "t-2", HorizonID: "h-1", MaxLoadPerDay: 3}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCacheRepositoryWithoutClient(t *testing.T) {
	repo := NewCacheRepository(nil, nil)

	_, err := repo.GetPublished(context.Background(), "h-1")
	assert.ErrorIs(t, err, appErrors.ErrCacheMiss)
	assert.NoError(t, repo.Set(context.Background(), "k", map[string]int{"a": 1}, time.Minute))
	repo.InvalidatePublished(context.Background(), "h-1")
	assert.NoError(t, repo.Close())
	assert.Equal(t, "schedule:published:h-1", PublishedScheduleKey("h-1"))
}
