package service

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/faculty-scheduler-api/internal/models"
	"github.com/noah-isme/faculty-scheduler-api/internal/repository"
	appErrors "github.com/noah-isme/faculty-scheduler-api/pkg/errors"
)

// --- transaction providers ---

type noopTxProvider struct{}

func (noopTxProvider) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return nil, appErrors.Clone(appErrors.ErrInternal, "transaction provider unavailable")
}

type txProviderMock struct {
	db *sqlx.DB
}

func newTxProviderMock(t *testing.T) (txProvider, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	t.Cleanup(func() { db.Close() })
	return &txProviderMock{db: sqlxdb}, mock
}

func (t *txProviderMock) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return t.db.BeginTxx(ctx, opts)
}

// --- directory stubs ---

type horizonStub map[string]models.Horizon

func (s horizonStub) FindByID(ctx context.Context, id string) (*models.Horizon, error) {
	h, ok := s[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &h, nil
}

type spaceStub []models.Space

func (s spaceStub) List(ctx context.Context) ([]models.Space, error) {
	return append([]models.Space(nil), s...), nil
}

type demandStub struct {
	demands      []models.DemandUnit
	availability []models.TeacherAvailability
}

func (s demandStub) ListByHorizon(ctx context.Context, horizonID string) ([]models.DemandUnit, error) {
	return s.demands, nil
}

func (s demandStub) ListAvailability(ctx context.Context, horizonID string) ([]models.TeacherAvailability, error) {
	return s.availability, nil
}

type cacheStub struct {
	stored      map[string]*models.Schedule
	invalidated []string
}

func newCacheStub() *cacheStub {
	return &cacheStub{stored: make(map[string]*models.Schedule)}
}

func (c *cacheStub) GetPublished(ctx context.Context, horizonID string) (*models.Schedule, error) {
	if s, ok := c.stored[horizonID]; ok {
		return s, nil
	}
	return nil, appErrors.ErrCacheMiss
}

func (c *cacheStub) SetPublished(ctx context.Context, schedule *models.Schedule, ttl time.Duration) {
	c.stored[schedule.HorizonID] = schedule
}

func (c *cacheStub) InvalidatePublished(ctx context.Context, horizonID string) {
	delete(c.stored, horizonID)
	c.invalidated = append(c.invalidated, horizonID)
}

type emitterStub struct {
	mu     sync.Mutex
	events []models.Event
	err    error
}

func (e *emitterStub) Emit(ctx context.Context, event models.Event) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, event)
	return e.err
}

func (e *emitterStub) actions() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	result := make([]string, 0, len(e.events))
	for _, ev := range e.events {
		result = append(result, ev.Action)
	}
	return result
}

// --- in-memory schedule store ---

type memoryScheduleStore struct {
	mu          sync.Mutex
	schedules   map[string]models.Schedule
	order       []string
	assignments map[string][]models.Assignment
}

func newMemoryScheduleStore() *memoryScheduleStore {
	return &memoryScheduleStore{
		schedules:   make(map[string]models.Schedule),
		assignments: make(map[string][]models.Assignment),
	}
}

func (m *memoryScheduleStore) seedPublished(id, horizonID string, version int, assignments []models.Assignment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m.schedules[id] = models.Schedule{
		ID:          id,
		HorizonID:   horizonID,
		Status:      models.ScheduleStatusPublished,
		Version:     version,
		CreatedAt:   now,
		UpdatedAt:   now,
		PublishedAt: &now,
	}
	m.order = append(m.order, id)
	for _, a := range assignments {
		a.ScheduleID = id
		m.assignments[id] = append(m.assignments[id], a)
	}
}

func (m *memoryScheduleStore) Create(ctx context.Context, exec sqlx.ExtContext, schedule *models.Schedule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.schedules[schedule.ID]; exists {
		return &pq.Error{Code: "23505"}
	}
	if schedule.Status == "" {
		schedule.Status = models.ScheduleStatusCandidate
	}
	header := *schedule
	header.Assignments = nil
	m.schedules[schedule.ID] = header
	m.order = append(m.order, schedule.ID)
	for _, a := range schedule.Assignments {
		a.ScheduleID = schedule.ID
		m.assignments[schedule.ID] = append(m.assignments[schedule.ID], a)
	}
	return nil
}

func (m *memoryScheduleStore) InsertAssignments(ctx context.Context, exec sqlx.ExtContext, scheduleID string, assignments []models.Assignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing := make(map[string]struct{})
	for _, a := range m.assignments[scheduleID] {
		existing[a.ID] = struct{}{}
	}
	for _, a := range assignments {
		if _, dup := existing[a.ID]; dup {
			return &pq.Error{Code: "23505"}
		}
	}
	for _, a := range assignments {
		a.ScheduleID = scheduleID
		m.assignments[scheduleID] = append(m.assignments[scheduleID], a)
	}
	return nil
}

func (m *memoryScheduleStore) MoveAssignment(ctx context.Context, exec sqlx.ExtContext, scheduleID string, assignment models.Assignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.assignments[scheduleID]
	for i := range list {
		if list[i].ID == assignment.ID {
			list[i].SpaceID = assignment.SpaceID
			list[i].Slot = assignment.Slot
			return nil
		}
	}
	return sql.ErrNoRows
}

func (m *memoryScheduleStore) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.schedules[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &s, nil
}

func (m *memoryScheduleStore) FindPublished(ctx context.Context, exec sqlx.ExtContext, horizonID string) (*models.Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range m.order {
		s := m.schedules[id]
		if s.HorizonID == horizonID && s.Status == models.ScheduleStatusPublished {
			return &s, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memoryScheduleStore) ListAssignments(ctx context.Context, exec sqlx.ExtContext, scheduleID string) ([]models.Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Assignment(nil), m.assignments[scheduleID]...), nil
}

func (m *memoryScheduleStore) List(ctx context.Context, filter models.ScheduleFilter) ([]models.Schedule, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []models.Schedule
	for _, id := range m.order {
		s := m.schedules[id]
		if filter.HorizonID != "" && s.HorizonID != filter.HorizonID {
			continue
		}
		result = append(result, s)
	}
	return result, len(result), nil
}

func (m *memoryScheduleStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.schedules[id]
	if !ok || s.Status != models.ScheduleStatusCandidate {
		return sql.ErrNoRows
	}
	delete(m.schedules, id)
	delete(m.assignments, id)
	return nil
}

func (m *memoryScheduleStore) Supersede(ctx context.Context, exec sqlx.ExtContext, id string, expected int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.schedules[id]
	if !ok || s.Status != models.ScheduleStatusPublished || s.Version != expected {
		return repository.ErrVersionConflict
	}
	s.Status = models.ScheduleStatusSuperseded
	m.schedules[id] = s
	return nil
}

func (m *memoryScheduleStore) Publish(ctx context.Context, exec sqlx.ExtContext, id string, version int, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.schedules[id]
	if !ok || s.Status != models.ScheduleStatusCandidate {
		return sql.ErrNoRows
	}
	s.Status = models.ScheduleStatusPublished
	s.Version = version
	s.PublishedAt = &at
	s.UpdatedAt = at
	m.schedules[id] = s
	return nil
}

func (m *memoryScheduleStore) BumpVersion(ctx context.Context, exec sqlx.ExtContext, id string, expected int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.schedules[id]
	if !ok || s.Status != models.ScheduleStatusPublished || s.Version != expected {
		return 0, repository.ErrVersionConflict
	}
	s.Version++
	m.schedules[id] = s
	return s.Version, nil
}

func (m *memoryScheduleStore) status(id string) models.ScheduleStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.schedules[id].Status
}

func (m *memoryScheduleStore) version(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.schedules[id].Version
}

// --- in-memory reservation store ---

type memoryReservationStore struct {
	mu    sync.Mutex
	items map[string]models.ReservationRequest
	order []string
}

func newMemoryReservationStore() *memoryReservationStore {
	return &memoryReservationStore{items: make(map[string]models.ReservationRequest)}
}

func cloneRequest(req models.ReservationRequest) models.ReservationRequest {
	req.Slots = append([]models.TimeSlot(nil), req.Slots...)
	req.History = append([]models.ValidationStep(nil), req.History...)
	req.LastConflicts = append([]models.Conflict(nil), req.LastConflicts...)
	return req
}

func (m *memoryReservationStore) Create(ctx context.Context, exec sqlx.ExtContext, req *models.ReservationRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if req.ID == "" {
		req.ID = fmt.Sprintf("req-%d", len(m.order)+1)
	}
	m.items[req.ID] = cloneRequest(*req)
	m.order = append(m.order, req.ID)
	return nil
}

func (m *memoryReservationStore) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.ReservationRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := cloneRequest(req)
	return &clone, nil
}

func (m *memoryReservationStore) ListActive(ctx context.Context, exec sqlx.ExtContext, horizonID string) ([]models.ReservationRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []models.ReservationRequest
	for _, id := range m.order {
		req := m.items[id]
		if req.HorizonID == horizonID && req.Status.Active() {
			result = append(result, cloneRequest(req))
		}
	}
	return result, nil
}

func (m *memoryReservationStore) List(ctx context.Context, filter models.ReservationFilter) ([]models.ReservationRequest, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []models.ReservationRequest
	for _, id := range m.order {
		req := m.items[id]
		if filter.HorizonID != "" && req.HorizonID != filter.HorizonID {
			continue
		}
		if filter.RequesterID != "" && req.RequesterID != filter.RequesterID {
			continue
		}
		result = append(result, cloneRequest(req))
	}
	return result, len(result), nil
}

func (m *memoryReservationStore) UpdateState(ctx context.Context, exec sqlx.ExtContext, req *models.ReservationRequest, expected models.ReservationStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.items[req.ID]
	if !ok || current.Status != expected {
		return repository.ErrStateChanged
	}
	m.items[req.ID] = cloneRequest(*req)
	return nil
}

func (m *memoryReservationStore) get(id string) models.ReservationRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneRequest(m.items[id])
}

// --- fixtures ---

func fixtureHorizon() models.Horizon {
	return models.Horizon{
		ID:            "horizon-1",
		Name:          "Spring",
		StartDate:     time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
		EndDate:       time.Date(2026, 1, 30, 0, 0, 0, 0, time.UTC),
		Days:          pq.Int64Array{1, 2},
		DayStart:      models.MustClock("08:00"),
		PeriodMinutes: 90,
		PeriodsPerDay: 2,
		BreakMinutes:  15,
	}
}

func fixtureSpace(id string, capacity int, equipment ...string) models.Space {
	return models.Space{
		ID:        id,
		Name:      id,
		Type:      models.SpaceTypeClassroom,
		Capacity:  capacity,
		Equipment: equipment,
		Status:    models.SpaceStatusAvailable,
	}
}

func fixtureSlot(day int, start, end string) models.TimeSlot {
	return models.TimeSlot{
		DayOfWeek: day,
		Start:     models.MustClock(start),
		End:       models.MustClock(end),
		Parity:    models.ParityEvery,
	}
}

func fixtureAssignment(id, spaceID, teacherID string, slot models.TimeSlot) models.Assignment {
	return models.Assignment{
		ID:        id,
		DemandID:  "demand-" + id,
		SectionID: "section-" + id,
		TeacherID: teacherID,
		SpaceID:   spaceID,
		Slot:      slot,
		Headcount: 20,
		Source:    models.AssignmentSourceGenerated,
	}
}

// steppingClock returns a clock advancing one minute per call.
func steppingClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	current := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		current = current.Add(time.Minute)
		return current
	}
}

func requireAppError(t *testing.T, err error, expected *appErrors.Error) {
	t.Helper()
	require.Error(t, err)
	require.ErrorIs(t, err, expected, "got %v", err)
}
