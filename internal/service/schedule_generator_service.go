package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/noah-isme/faculty-scheduler-api/internal/dto"
	"github.com/noah-isme/faculty-scheduler-api/internal/models"
	"github.com/noah-isme/faculty-scheduler-api/internal/repository"
	"github.com/noah-isme/faculty-scheduler-api/internal/scheduler"
	appErrors "github.com/noah-isme/faculty-scheduler-api/pkg/errors"
	"github.com/noah-isme/faculty-scheduler-api/pkg/jobs"
)

const generationJobType = "schedule.generate"

type horizonReader interface {
	FindByID(ctx context.Context, id string) (*models.Horizon, error)
}

type spaceDirectory interface {
	List(ctx context.Context) ([]models.Space, error)
}

type demandDirectory interface {
	ListByHorizon(ctx context.Context, horizonID string) ([]models.DemandUnit, error)
	ListAvailability(ctx context.Context, horizonID string) ([]models.TeacherAvailability, error)
}

type scheduleStore interface {
	Create(ctx context.Context, exec sqlx.ExtContext, schedule *models.Schedule) error
	InsertAssignments(ctx context.Context, exec sqlx.ExtContext, scheduleID string, assignments []models.Assignment) error
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Schedule, error)
	FindPublished(ctx context.Context, exec sqlx.ExtContext, horizonID string) (*models.Schedule, error)
	ListAssignments(ctx context.Context, exec sqlx.ExtContext, scheduleID string) ([]models.Assignment, error)
	List(ctx context.Context, filter models.ScheduleFilter) ([]models.Schedule, int, error)
	Delete(ctx context.Context, id string) error
	Supersede(ctx context.Context, exec sqlx.ExtContext, id string, expected int) error
	Publish(ctx context.Context, exec sqlx.ExtContext, id string, version int, at time.Time) error
}

type publishedScheduleCache interface {
	GetPublished(ctx context.Context, horizonID string) (*models.Schedule, error)
	SetPublished(ctx context.Context, schedule *models.Schedule, ttl time.Duration)
	InvalidatePublished(ctx context.Context, horizonID string)
}

type generationQueue interface {
	Enqueue(job jobs.Job) error
	Status(id string) (jobs.Record, bool)
}

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type generationPayload struct {
	HorizonID string
	Actor     string
}

type generationResult struct {
	ScheduleID string `json:"scheduleId"`
	HorizonID  string `json:"horizonId"`
}

// ScheduleGeneratorConfig governs generator behaviour.
type ScheduleGeneratorConfig struct {
	Engine       scheduler.Config
	CacheEnabled bool
	CacheTTL     time.Duration
}

// ScheduleGeneratorService builds candidate schedules and publishes them.
type ScheduleGeneratorService struct {
	horizons  horizonReader
	spaces    spaceDirectory
	demands   demandDirectory
	schedules scheduleStore
	cache     publishedScheduleCache
	queue     generationQueue
	tx        txProvider
	engine    *scheduler.Engine
	emitter   eventEmitter
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       ScheduleGeneratorConfig
	now       func() time.Time
}

// NewScheduleGeneratorService wires generator dependencies.
func NewScheduleGeneratorService(
	horizons horizonReader,
	spaces spaceDirectory,
	demands demandDirectory,
	schedules scheduleStore,
	cache publishedScheduleCache,
	tx txProvider,
	emitter eventEmitter,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg ScheduleGeneratorConfig,
) *ScheduleGeneratorService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	return &ScheduleGeneratorService{
		horizons:  horizons,
		spaces:    spaces,
		demands:   demands,
		schedules: schedules,
		cache:     cache,
		tx:        tx,
		engine:    scheduler.NewEngine(cfg.Engine),
		emitter:   emitter,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}
}

// AttachQueue enables asynchronous generation through the given queue.
func (s *ScheduleGeneratorService) AttachQueue(queue generationQueue) {
	s.queue = queue
}

// Generate runs the engine for a horizon and stores the result as a private candidate.
func (s *ScheduleGeneratorService) Generate(ctx context.Context, horizonID, actor string) (*models.Schedule, error) {
	if strings.TrimSpace(horizonID) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "horizon id is required")
	}
	started := s.now()
	schedule, err := s.generate(ctx, horizonID)
	elapsed := s.now().Sub(started)
	if err != nil {
		s.metrics.ObserveGeneration(nil, elapsed)
		s.logger.Warn("schedule generation failed", zap.String("horizon_id", horizonID), zap.Error(err))
		return nil, err
	}
	s.metrics.ObserveGeneration(schedule, elapsed)
	s.logger.Info("schedule generated",
		zap.String("schedule_id", schedule.ID),
		zap.String("horizon_id", horizonID),
		zap.String("actor_id", actor),
		zap.Int("placed", schedule.Stats.Placed),
		zap.Int("requested", schedule.Stats.Requested),
		zap.Int("unplaced", len(schedule.Unplaced)),
		zap.Int("iterations", schedule.Stats.Iterations),
		zap.Float64("score", schedule.Score),
		zap.Duration("elapsed", elapsed))
	return schedule, nil
}

func (s *ScheduleGeneratorService) generate(ctx context.Context, horizonID string) (*models.Schedule, error) {
	horizon, err := s.loadHorizon(ctx, horizonID)
	if err != nil {
		return nil, err
	}
	spaces, err := s.spaces.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load spaces")
	}
	demands, err := s.demands.ListByHorizon(ctx, horizonID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load demand units")
	}
	availability, err := s.demands.ListAvailability(ctx, horizonID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher availability")
	}
	fixed, err := s.reservedAssignments(ctx, horizonID)
	if err != nil {
		return nil, err
	}

	scheduleID := uuid.NewString()
	outcome, err := s.engine.Generate(ctx, scheduler.Input{
		ScheduleID:   scheduleID,
		Horizon:      *horizon,
		Spaces:       spaces,
		Demands:      demands,
		Availability: availability,
		Fixed:        fixed,
	})
	if err != nil {
		return nil, engineError(err)
	}

	schedule := &models.Schedule{
		ID:          scheduleID,
		HorizonID:   horizonID,
		Status:      models.ScheduleStatusCandidate,
		Score:       outcome.Score.Total,
		Stats:       outcome.Stats,
		Assignments: outcome.Assignments,
		Unplaced:    outcome.Unplaced,
	}
	if err := ctx.Err(); err != nil {
		return nil, engineError(err)
	}
	if err := s.withTx(ctx, "failed to store candidate schedule", func(tx *sqlx.Tx) error {
		return s.schedules.Create(ctx, tx, schedule)
	}); err != nil {
		return nil, err
	}
	return schedule, nil
}

// reservedAssignments returns approved reservations materialised in the published schedule.
func (s *ScheduleGeneratorService) reservedAssignments(ctx context.Context, horizonID string) ([]models.Assignment, error) {
	published, err := s.schedules.FindPublished(ctx, nil, horizonID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load published schedule")
	}
	assignments, err := s.schedules.ListAssignments(ctx, nil, published.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load published assignments")
	}
	return reservationSourced(assignments), nil
}

func reservationSourced(assignments []models.Assignment) []models.Assignment {
	var result []models.Assignment
	for _, a := range assignments {
		if a.Source == models.AssignmentSourceReservation {
			result = append(result, a)
		}
	}
	return result
}

// Enqueue schedules a generation run on the background queue.
func (s *ScheduleGeneratorService) Enqueue(ctx context.Context, horizonID, actor string) (*dto.GenerationJobResponse, error) {
	if s.queue == nil {
		return nil, appErrors.Clone(appErrors.ErrServiceUnavailable, "background generation is disabled")
	}
	if strings.TrimSpace(horizonID) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "horizon id is required")
	}
	if _, err := s.loadHorizon(ctx, horizonID); err != nil {
		return nil, err
	}
	job := jobs.Job{
		ID:      uuid.NewString(),
		Type:    generationJobType,
		Payload: generationPayload{HorizonID: horizonID, Actor: actor},
	}
	if err := s.queue.Enqueue(job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrServiceUnavailable.Code, appErrors.ErrServiceUnavailable.Status, "generation queue unavailable")
	}
	now := s.now().UTC()
	return &dto.GenerationJobResponse{
		JobID:      job.ID,
		HorizonID:  horizonID,
		State:      jobs.StateQueued,
		EnqueuedAt: now,
		UpdatedAt:  now,
	}, nil
}

// HandleJob runs a queued generation. Validation failures are not retried.
func (s *ScheduleGeneratorService) HandleJob(ctx context.Context, job jobs.Job) (interface{}, error) {
	payload, ok := job.Payload.(generationPayload)
	if !ok {
		return nil, jobs.Permanent(fmt.Errorf("unexpected payload %T for job %s", job.Payload, job.ID))
	}
	schedule, err := s.Generate(ctx, payload.HorizonID, payload.Actor)
	if err != nil {
		if appErr := appErrors.FromError(err); appErr.Status < 500 {
			return nil, jobs.Permanent(err)
		}
		return nil, err
	}
	return generationResult{ScheduleID: schedule.ID, HorizonID: schedule.HorizonID}, nil
}

// JobStatus reports the state of an asynchronous generation.
func (s *ScheduleGeneratorService) JobStatus(id string) (*dto.GenerationJobResponse, error) {
	if s.queue == nil {
		return nil, appErrors.Clone(appErrors.ErrServiceUnavailable, "background generation is disabled")
	}
	record, ok := s.queue.Status(id)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "generation job not found")
	}
	resp := &dto.GenerationJobResponse{
		JobID:      record.ID,
		State:      record.State,
		Attempt:    record.Attempt,
		Error:      record.Error,
		EnqueuedAt: record.EnqueuedAt,
		UpdatedAt:  record.UpdatedAt,
	}
	if result, ok := record.Result.(generationResult); ok {
		resp.ScheduleID = result.ScheduleID
		resp.HorizonID = result.HorizonID
	}
	return resp, nil
}

// Publish makes a candidate the horizon's published schedule, superseding the previous one.
// Approved reservations published after the candidate was generated are carried over.
func (s *ScheduleGeneratorService) Publish(ctx context.Context, scheduleID, actor string) (*dto.PublishResponse, error) {
	candidate, err := s.schedules.FindByID(ctx, nil, scheduleID)
	if err != nil {
		return nil, notFoundOr(err, "schedule not found", "failed to load schedule")
	}
	if candidate.Status != models.ScheduleStatusCandidate {
		return nil, appErrors.Clone(appErrors.ErrConflict, "only candidate schedules can be published")
	}
	assignments, err := s.schedules.ListAssignments(ctx, nil, candidate.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule assignments")
	}
	spaces, err := s.spaces.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load spaces")
	}

	var previous *models.Schedule
	publishedAt := s.now().UTC()
	err = s.withTx(ctx, "failed to publish schedule", func(tx *sqlx.Tx) error {
		prev, findErr := s.schedules.FindPublished(ctx, tx, candidate.HorizonID)
		if findErr != nil && !errors.Is(findErr, sql.ErrNoRows) {
			return findErr
		}
		var carried []models.Assignment
		if prev != nil {
			prevAssignments, listErr := s.schedules.ListAssignments(ctx, tx, prev.ID)
			if listErr != nil {
				return listErr
			}
			carried = missingReservations(assignments, prevAssignments, candidate.ID)
		}

		combined := append(append([]models.Assignment(nil), assignments...), carried...)
		violations, auditErr := scheduler.Audit(spaces, combined)
		if auditErr != nil {
			return appErrors.Wrap(auditErr, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "schedule cannot be audited")
		}
		if blocking := scheduler.Blocking(violations); len(blocking) > 0 {
			s.metrics.ObserveConflicts(blocking)
			return appErrors.Clone(appErrors.ErrSchedulingConflict,
				fmt.Sprintf("schedule has %d hard violation(s): %s", len(blocking), blocking[0].Message))
		}
		if len(carried) > 0 {
			if insertErr := s.schedules.InsertAssignments(ctx, tx, candidate.ID, carried); insertErr != nil {
				return insertErr
			}
		}

		version := 1
		if prev != nil {
			if supErr := s.schedules.Supersede(ctx, tx, prev.ID, prev.Version); supErr != nil {
				return supErr
			}
			version = prev.Version + 1
		}
		if pubErr := s.schedules.Publish(ctx, tx, candidate.ID, version, publishedAt); pubErr != nil {
			return pubErr
		}
		previous = prev
		candidate.Version = version
		candidate.Assignments = combined
		return nil
	})
	if err != nil {
		return nil, err
	}

	candidate.Status = models.ScheduleStatusPublished
	candidate.PublishedAt = &publishedAt
	candidate.UpdatedAt = publishedAt
	scheduler.SortAssignments(candidate.Assignments)

	s.refreshCache(ctx, candidate)

	resp := &dto.PublishResponse{Schedule: candidate}
	if previous != nil {
		resp.SupersededID = previous.ID
	}
	emitEvent(ctx, s.emitter, s.logger, models.EventActionSchedulePublish, "schedule", candidate.ID, actor, map[string]interface{}{
		"horizonId":    candidate.HorizonID,
		"version":      candidate.Version,
		"supersededId": resp.SupersededID,
		"assignments":  len(candidate.Assignments),
	})
	s.logger.Info("schedule published",
		zap.String("schedule_id", candidate.ID),
		zap.String("horizon_id", candidate.HorizonID),
		zap.Int("version", candidate.Version),
		zap.String("superseded_id", resp.SupersededID),
		zap.String("actor_id", actor))
	return resp, nil
}

func missingReservations(candidate, previous []models.Assignment, scheduleID string) []models.Assignment {
	present := make(map[string]struct{}, len(candidate))
	for _, a := range candidate {
		present[a.ID] = struct{}{}
	}
	var missing []models.Assignment
	for _, a := range reservationSourced(previous) {
		if _, ok := present[a.ID]; ok {
			continue
		}
		a.ScheduleID = scheduleID
		missing = append(missing, a)
	}
	return missing
}

// Get returns a schedule with its assignments.
func (s *ScheduleGeneratorService) Get(ctx context.Context, id string) (*models.Schedule, error) {
	schedule, err := s.schedules.FindByID(ctx, nil, id)
	if err != nil {
		return nil, notFoundOr(err, "schedule not found", "failed to load schedule")
	}
	assignments, err := s.schedules.ListAssignments(ctx, nil, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule assignments")
	}
	schedule.Assignments = assignments
	return schedule, nil
}

// Published returns the horizon's published schedule, served from cache when enabled.
func (s *ScheduleGeneratorService) Published(ctx context.Context, horizonID string) (*models.Schedule, bool, error) {
	if s.cfg.CacheEnabled && s.cache != nil {
		start := time.Now()
		cached, err := s.cache.GetPublished(ctx, horizonID)
		s.metrics.RecordCacheOperation(err == nil, time.Since(start))
		if err == nil {
			return cached, true, nil
		}
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("published schedule cache read failed", zap.String("horizon_id", horizonID), zap.Error(err))
		}
	}

	schedule, err := s.schedules.FindPublished(ctx, nil, horizonID)
	if err != nil {
		return nil, false, notFoundOr(err, "no published schedule for horizon", "failed to load published schedule")
	}
	assignments, err := s.schedules.ListAssignments(ctx, nil, schedule.ID)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule assignments")
	}
	schedule.Assignments = assignments
	if s.cfg.CacheEnabled && s.cache != nil {
		s.cache.SetPublished(ctx, schedule, s.cfg.CacheTTL)
	}
	return schedule, false, nil
}

// List returns schedule headers for a horizon.
func (s *ScheduleGeneratorService) List(ctx context.Context, query dto.ScheduleQuery) ([]models.Schedule, *models.Pagination, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule query")
	}
	filter := models.ScheduleFilter{HorizonID: query.HorizonID, Limit: query.Limit, Offset: query.Offset}
	for _, status := range query.Status {
		filter.Status = append(filter.Status, models.ScheduleStatus(status))
	}
	schedules, total, err := s.schedules.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schedules")
	}
	return schedules, pagination(query.Limit, query.Offset, total), nil
}

// Delete removes a candidate schedule.
func (s *ScheduleGeneratorService) Delete(ctx context.Context, id string) error {
	schedule, err := s.schedules.FindByID(ctx, nil, id)
	if err != nil {
		return notFoundOr(err, "schedule not found", "failed to load schedule")
	}
	if schedule.Status != models.ScheduleStatusCandidate {
		return appErrors.Clone(appErrors.ErrConflict, "only candidate schedules can be deleted")
	}
	if err := s.schedules.Delete(ctx, id); err != nil {
		return notFoundOr(err, "schedule not found", "failed to delete schedule")
	}
	return nil
}

func (s *ScheduleGeneratorService) loadHorizon(ctx context.Context, horizonID string) (*models.Horizon, error) {
	horizon, err := s.horizons.FindByID(ctx, horizonID)
	if err != nil {
		return nil, notFoundOr(err, "horizon not found", "failed to load horizon")
	}
	return horizon, nil
}

func (s *ScheduleGeneratorService) refreshCache(ctx context.Context, schedule *models.Schedule) {
	if s.cache == nil {
		return
	}
	s.cache.InvalidatePublished(ctx, schedule.HorizonID)
	if s.cfg.CacheEnabled {
		s.cache.SetPublished(ctx, schedule, s.cfg.CacheTTL)
	}
}

func (s *ScheduleGeneratorService) withTx(ctx context.Context, failure string, fn func(tx *sqlx.Tx) error) error {
	return runInTx(ctx, s.tx, failure, fn)
}

// runInTx executes fn in a transaction, translating storage errors into API errors.
func runInTx(ctx context.Context, provider txProvider, failure string, fn func(tx *sqlx.Tx) error) (err error) {
	if provider == nil {
		return appErrors.Clone(appErrors.ErrInternal, "transaction provider missing")
	}
	tx, err := provider.BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return storageError(err, failure)
	}
	if err = tx.Commit(); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit transaction")
	}
	return nil
}

func storageError(err error, failure string) error {
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return err
	}
	var pqErr *pq.Error
	switch {
	case errors.Is(err, repository.ErrVersionConflict), errors.Is(err, repository.ErrStateChanged):
		return appErrors.Wrap(err, appErrors.ErrConcurrentModification.Code, appErrors.ErrConcurrentModification.Status, appErrors.ErrConcurrentModification.Message)
	case errors.Is(err, sql.ErrNoRows):
		return appErrors.Wrap(err, appErrors.ErrConcurrentModification.Code, appErrors.ErrConcurrentModification.Status, "record changed or disappeared during the update")
	case errors.As(err, &pqErr) && pqErr.Code == "23505":
		return appErrors.Wrap(err, appErrors.ErrConcurrentModification.Code, appErrors.ErrConcurrentModification.Status, appErrors.ErrConcurrentModification.Message)
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, failure)
}

func notFoundOr(err error, notFound, failure string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, notFound)
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, failure)
}

func engineError(err error) error {
	switch {
	case errors.Is(err, scheduler.ErrInvalidHorizon),
		errors.Is(err, scheduler.ErrInvalidSpace),
		errors.Is(err, scheduler.ErrInvalidDemand):
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return appErrors.Wrap(err, appErrors.ErrServiceUnavailable.Code, appErrors.ErrServiceUnavailable.Status, "schedule generation cancelled")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "schedule generation failed")
}
