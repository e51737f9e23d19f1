package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/faculty-scheduler-api/internal/dto"
	"github.com/noah-isme/faculty-scheduler-api/internal/models"
	"github.com/noah-isme/faculty-scheduler-api/internal/scheduler"
	appErrors "github.com/noah-isme/faculty-scheduler-api/pkg/errors"
)

const (
	validationOutcomeApplied = "applied"
	validationOutcomeRefused = "refused"
	validationOutcomeStale   = "stale"

	previewRequestID = "preview"
)

type reservationStore interface {
	Create(ctx context.Context, exec sqlx.ExtContext, req *models.ReservationRequest) error
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.ReservationRequest, error)
	ListActive(ctx context.Context, exec sqlx.ExtContext, horizonID string) ([]models.ReservationRequest, error)
	List(ctx context.Context, filter models.ReservationFilter) ([]models.ReservationRequest, int, error)
	UpdateState(ctx context.Context, exec sqlx.ExtContext, req *models.ReservationRequest, expected models.ReservationStatus) error
}

type publishedScheduleWriter interface {
	FindPublished(ctx context.Context, exec sqlx.ExtContext, horizonID string) (*models.Schedule, error)
	ListAssignments(ctx context.Context, exec sqlx.ExtContext, scheduleID string) ([]models.Assignment, error)
	BumpVersion(ctx context.Context, exec sqlx.ExtContext, id string, expected int) (int, error)
	InsertAssignments(ctx context.Context, exec sqlx.ExtContext, scheduleID string, assignments []models.Assignment) error
	MoveAssignment(ctx context.Context, exec sqlx.ExtContext, scheduleID string, assignment models.Assignment) error
}

// ReservationConfig tunes conflict reporting.
type ReservationConfig struct {
	SuggestionLimit int
}

// ApprovalPlan is the read phase of an approval: the request, the published
// schedule version it was checked against, and the mutation to apply.
type ApprovalPlan struct {
	Request    *models.ReservationRequest
	ScheduleID string
	Version    int
	// Conflicts holds blocking conflicts; a plan with conflicts is refused on commit.
	Conflicts []models.Conflict
	Insert    []models.Assignment
	Move      *models.Assignment
}

// Refused reports whether the plan cannot be applied.
func (p *ApprovalPlan) Refused() bool {
	return len(p.Conflicts) > 0
}

// ReservationService governs reservation and schedule-change requests.
type ReservationService struct {
	horizons     horizonReader
	spaces       spaceDirectory
	schedules    publishedScheduleWriter
	reservations reservationStore
	cache        publishedScheduleCache
	tx           txProvider
	emitter      eventEmitter
	metrics      *MetricsService
	validator    *validator.Validate
	logger       *zap.Logger
	cfg          ReservationConfig
	now          func() time.Time
}

// NewReservationService wires the workflow dependencies.
func NewReservationService(
	horizons horizonReader,
	spaces spaceDirectory,
	schedules publishedScheduleWriter,
	reservations reservationStore,
	cache publishedScheduleCache,
	tx txProvider,
	emitter eventEmitter,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg ReservationConfig,
) *ReservationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SuggestionLimit < 0 {
		cfg.SuggestionLimit = 0
	}
	return &ReservationService{
		horizons:     horizons,
		spaces:       spaces,
		schedules:    schedules,
		reservations: reservations,
		cache:        cache,
		tx:           tx,
		emitter:      emitter,
		metrics:      metrics,
		validator:    validate,
		logger:       logger,
		cfg:          cfg,
		now:          time.Now,
	}
}

// bookingState is everything a candidate booking is checked against.
type bookingState struct {
	grid        *scheduler.Grid
	catalog     *scheduler.Catalog
	detector    *scheduler.Detector
	snapshot    *scheduler.Snapshot
	published   *models.Schedule
	assignments []models.Assignment
}

func (s *ReservationService) loadState(ctx context.Context, exec sqlx.ExtContext, horizonID string) (*bookingState, error) {
	horizon, err := s.horizons.FindByID(ctx, horizonID)
	if err != nil {
		return nil, notFoundOr(err, "horizon not found", "failed to load horizon")
	}
	grid, err := scheduler.BuildGrid(*horizon)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	spaces, err := s.spaces.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load spaces")
	}
	catalog, err := scheduler.NewCatalog(spaces)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}

	state := &bookingState{
		grid:     grid,
		catalog:  catalog,
		detector: scheduler.NewDetector(catalog, grid, s.cfg.SuggestionLimit),
	}
	published, err := s.schedules.FindPublished(ctx, exec, horizonID)
	switch {
	case err == nil:
		state.published = published
		state.assignments, err = s.schedules.ListAssignments(ctx, exec, published.ID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule assignments")
		}
	case !errors.Is(err, sql.ErrNoRows):
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load published schedule")
	}

	active, err := s.reservations.ListActive(ctx, exec, horizonID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load active requests")
	}
	state.snapshot = scheduler.NewSnapshot(state.assignments, active)
	return state, nil
}

func (b *bookingState) version() int {
	if b.published == nil {
		return 0
	}
	return b.published.Version
}

func (b *bookingState) assignment(id string) (models.Assignment, bool) {
	return b.snapshot.Assignment(id)
}

// candidates expands a request into one detector candidate per slot.
func (b *bookingState) candidates(req *models.ReservationRequest) []scheduler.Candidate {
	teacherID := req.TeacherID
	headcount := req.Headcount
	equipment := req.RequiredEquipment
	targetID := ""
	if req.Kind == models.ReservationKindScheduleChange && req.TargetAssignmentID != nil {
		targetID = *req.TargetAssignmentID
		if target, ok := b.assignment(targetID); ok {
			// the move keeps the assignment's teacher
			teacherID = target.TeacherID
			if headcount < target.Headcount {
				headcount = target.Headcount
			}
			equipment = mergeEquipment(target.Equipment, equipment)
		}
	}

	result := make([]scheduler.Candidate, 0, len(req.Slots))
	for i, slot := range req.Slots {
		id := req.ID
		if len(req.Slots) > 1 {
			id = fmt.Sprintf("%s#%d", req.ID, i+1)
		}
		result = append(result, scheduler.Candidate{
			ID:           id,
			AssignmentID: targetID,
			RequestID:    req.ID,
			SpaceID:      req.SpaceID,
			Slot:         slot,
			TeacherID:    teacherID,
			Headcount:    headcount,
			Equipment:    equipment,
			Reservation:  true,
			Priority:     req.PriorityClass,
			SubmittedAt:  req.SubmittedAt,
		})
	}
	return result
}

// detect checks every slot of req. Earlier slots are provisionally booked so
// overlapping slots within one request are reported too.
func (b *bookingState) detect(req *models.ReservationRequest) []models.Conflict {
	var conflicts []models.Conflict
	reservationID := req.ID
	var provisional []string
	for _, c := range b.candidates(req) {
		conflicts = append(conflicts, b.detector.DetectWithSuggestions(b.snapshot, c)...)
		if c.AssignmentID != "" {
			continue
		}
		b.snapshot.Add(models.Assignment{
			ID:            c.ID,
			SpaceID:       c.SpaceID,
			Slot:          c.Slot,
			TeacherID:     c.TeacherID,
			Headcount:     c.Headcount,
			Source:        models.AssignmentSourceReservation,
			ReservationID: &reservationID,
		})
		provisional = append(provisional, c.ID)
	}
	for _, id := range provisional {
		b.snapshot.Remove(id)
	}
	return conflicts
}

// Preview reports the conflicts a booking would meet without persisting anything.
func (s *ReservationService) Preview(ctx context.Context, input dto.ConflictPreviewRequest) (*dto.ConflictPreviewResult, error) {
	if err := s.validator.Struct(input); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid conflict preview payload")
	}
	slots, err := parseSlots(input.Slots)
	if err != nil {
		return nil, err
	}
	state, err := s.loadState(ctx, nil, input.HorizonID)
	if err != nil {
		return nil, err
	}
	draft := &models.ReservationRequest{
		ID:                previewRequestID,
		HorizonID:         input.HorizonID,
		Kind:              models.ReservationKindBooking,
		SpaceID:           input.SpaceID,
		Slots:             slots,
		TeacherID:         input.TeacherID,
		Headcount:         input.Headcount,
		RequiredEquipment: input.RequiredEquipment,
		PriorityClass:     priorityOrDefault(input.PriorityClass),
		SubmittedAt:       s.now().UTC(),
	}
	if input.TargetAssignmentID != "" {
		if _, ok := state.assignment(input.TargetAssignmentID); !ok {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "target assignment not found in published schedule")
		}
		target := input.TargetAssignmentID
		draft.Kind = models.ReservationKindScheduleChange
		draft.TargetAssignmentID = &target
	}
	conflicts := state.detect(draft)
	if conflicts == nil {
		conflicts = []models.Conflict{}
	}
	s.metrics.ObserveConflicts(conflicts)
	return &dto.ConflictPreviewResult{
		Conflicts:       conflicts,
		Admissible:      !scheduler.HasBlocking(conflicts),
		ScheduleVersion: state.version(),
	}, nil
}

// Submit records a new pending request. Conflicts at submission are advisory only.
func (s *ReservationService) Submit(ctx context.Context, input dto.SubmitReservationRequest, actor string) (*dto.SubmitResult, error) {
	if err := s.validator.Struct(input); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid reservation payload")
	}
	if strings.TrimSpace(actor) == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "requester identity is required")
	}
	slots, err := parseSlots(input.Slots)
	if err != nil {
		return nil, err
	}
	kind := models.ReservationKind(input.Kind)
	if kind == "" {
		kind = models.ReservationKindBooking
	}
	if kind == models.ReservationKindScheduleChange && len(slots) != 1 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "a schedule change moves exactly one slot")
	}

	state, err := s.loadState(ctx, nil, input.HorizonID)
	if err != nil {
		return nil, err
	}
	if _, ok := state.catalog.Space(input.SpaceID); !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "space not found")
	}
	sessions := 0
	for _, slot := range slots {
		dates := state.grid.SessionDates(slot)
		if len(dates) == 0 {
			return nil, appErrors.Clone(appErrors.ErrValidation,
				fmt.Sprintf("slot %s %s-%s has no teaching date in the horizon", models.DayName(slot.DayOfWeek), slot.Start, slot.End))
		}
		sessions += len(dates)
	}

	now := s.now().UTC()
	req := &models.ReservationRequest{
		HorizonID:         input.HorizonID,
		Kind:              kind,
		SpaceID:           input.SpaceID,
		Slots:             slots,
		RequesterID:       actor,
		TeacherID:         input.TeacherID,
		Purpose:           input.Purpose,
		Headcount:         input.Headcount,
		RequiredEquipment: input.RequiredEquipment,
		PriorityClass:     priorityOrDefault(input.PriorityClass),
		Status:            models.ReservationPending,
		History: []models.ValidationStep{{
			At:     now,
			Actor:  actor,
			Action: models.ActionSubmit,
			To:     models.ReservationPending,
		}},
		SubmittedAt: now,
		UpdatedAt:   now,
	}
	if kind == models.ReservationKindScheduleChange {
		target, ok := state.assignment(input.TargetAssignmentID)
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "target assignment not found in published schedule")
		}
		if req.TeacherID != "" && req.TeacherID != target.TeacherID {
			return nil, appErrors.Clone(appErrors.ErrValidation, "a schedule change cannot reassign the teacher")
		}
		targetID := target.ID
		req.TargetAssignmentID = &targetID
		req.TeacherID = target.TeacherID
	}

	if err := s.reservations.Create(ctx, nil, req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store reservation request")
	}

	conflicts := state.detect(req)
	if conflicts == nil {
		conflicts = []models.Conflict{}
	}
	s.metrics.ObserveConflicts(conflicts)
	emitEvent(ctx, s.emitter, s.logger, models.EventActionReservationSubmit, "reservation", req.ID, actor, map[string]interface{}{
		"kind":      req.Kind,
		"spaceId":   req.SpaceID,
		"priority":  req.PriorityClass,
		"conflicts": len(conflicts),
	})
	return &dto.SubmitResult{Request: req, Conflicts: conflicts, Sessions: sessions}, nil
}

// Validate applies an approver or requester action to a request.
func (s *ReservationService) Validate(ctx context.Context, id string, input dto.ValidateRequest, actor string) (*dto.ValidationResult, error) {
	if err := s.validator.Struct(input); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid validation payload")
	}
	action := models.ValidationAction(input.Action)
	if action == models.ActionApprove {
		plan, err := s.PrepareApproval(ctx, id)
		if err != nil {
			return nil, err
		}
		return s.CommitApproval(ctx, plan, actor, input.Comment, input.ExpectedVersion)
	}

	req, err := s.reservations.FindByID(ctx, nil, id)
	if err != nil {
		return nil, notFoundOr(err, "reservation request not found", "failed to load reservation request")
	}
	from := req.Status
	if err := scheduler.Transition(req, action, actor, input.Comment, s.now()); err != nil {
		return nil, transitionError(err)
	}
	if err := s.reservations.UpdateState(ctx, nil, req, from); err != nil {
		s.metrics.ObserveValidation(action, validationOutcomeStale)
		return nil, storageError(err, "failed to update reservation request")
	}
	s.metrics.ObserveValidation(action, validationOutcomeApplied)
	emitEvent(ctx, s.emitter, s.logger, eventActionFor(action), "reservation", req.ID, actor, map[string]interface{}{
		"from":    from,
		"to":      req.Status,
		"comment": input.Comment,
	})
	return &dto.ValidationResult{
		Request:        req,
		Status:         req.Status,
		Conflicts:      []models.Conflict{},
		AllowedActions: scheduler.Allowed(req.Status),
	}, nil
}

// PrepareApproval checks a pending request against the currently published schedule
// and computes the schedule mutation an approval would apply.
func (s *ReservationService) PrepareApproval(ctx context.Context, id string) (*ApprovalPlan, error) {
	req, err := s.reservations.FindByID(ctx, nil, id)
	if err != nil {
		return nil, notFoundOr(err, "reservation request not found", "failed to load reservation request")
	}
	if _, err := scheduler.NextStatus(req.Status, models.ActionApprove); err != nil {
		return nil, transitionError(err)
	}
	state, err := s.loadState(ctx, nil, req.HorizonID)
	if err != nil {
		return nil, err
	}
	if state.published == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "horizon has no published schedule to apply the request to")
	}

	plan := &ApprovalPlan{
		Request:    req,
		ScheduleID: state.published.ID,
		Version:    state.published.Version,
		Conflicts:  scheduler.Blocking(state.detect(req)),
	}
	if plan.Refused() {
		return plan, nil
	}

	switch req.Kind {
	case models.ReservationKindScheduleChange:
		if req.TargetAssignmentID == nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "schedule change has no target assignment")
		}
		target, ok := state.assignment(*req.TargetAssignmentID)
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrConflict, "target assignment is no longer in the published schedule")
		}
		moved := target
		moved.SpaceID = req.SpaceID
		moved.Slot = req.Slots[0]
		plan.Move = &moved
	default:
		candidates := state.candidates(req)
		reservationID := req.ID
		for _, c := range candidates {
			plan.Insert = append(plan.Insert, models.Assignment{
				ID:            c.ID,
				ScheduleID:    state.published.ID,
				TeacherID:     c.TeacherID,
				SpaceID:       c.SpaceID,
				Slot:          c.Slot,
				Headcount:     c.Headcount,
				Equipment:     c.Equipment,
				Source:        models.AssignmentSourceReservation,
				ReservationID: &reservationID,
			})
		}
	}
	return plan, nil
}

// CommitApproval applies a prepared plan. The published version is compared and
// bumped in the same transaction that writes assignments and the request, so a
// concurrent change between prepare and commit yields CONCURRENT_MODIFICATION.
// A refused plan leaves the request pending with its conflicts attached.
func (s *ReservationService) CommitApproval(ctx context.Context, plan *ApprovalPlan, actor, comment string, expectedVersion *int) (*dto.ValidationResult, error) {
	if plan == nil || plan.Request == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "approval plan is required")
	}
	req := plan.Request
	if expectedVersion != nil && *expectedVersion != plan.Version {
		s.metrics.ObserveValidation(models.ActionApprove, validationOutcomeStale)
		return nil, appErrors.Clone(appErrors.ErrConcurrentModification,
			fmt.Sprintf("schedule is at version %d, approval was reviewed against version %d", plan.Version, *expectedVersion))
	}

	if plan.Refused() {
		req.LastConflicts = plan.Conflicts
		req.UpdatedAt = s.now().UTC()
		if err := s.reservations.UpdateState(ctx, nil, req, models.ReservationPending); err != nil {
			return nil, storageError(err, "failed to record approval conflicts")
		}
		s.metrics.ObserveValidation(models.ActionApprove, validationOutcomeRefused)
		s.metrics.ObserveConflicts(plan.Conflicts)
		s.logger.Info("approval refused",
			zap.String("request_id", req.ID),
			zap.String("actor_id", actor),
			zap.Int("conflicts", len(plan.Conflicts)),
			zap.Int("schedule_version", plan.Version))
		return &dto.ValidationResult{
			Request:         req,
			Status:          req.Status,
			Conflicts:       plan.Conflicts,
			ScheduleVersion: plan.Version,
			AllowedActions:  scheduler.Allowed(req.Status),
		}, nil
	}

	if err := scheduler.Transition(req, models.ActionApprove, actor, comment, s.now()); err != nil {
		return nil, transitionError(err)
	}

	var newVersion int
	err := runInTx(ctx, s.tx, "failed to apply approval", func(tx *sqlx.Tx) error {
		version, err := s.schedules.BumpVersion(ctx, tx, plan.ScheduleID, plan.Version)
		if err != nil {
			return err
		}
		if plan.Move != nil {
			if err := s.schedules.MoveAssignment(ctx, tx, plan.ScheduleID, *plan.Move); err != nil {
				return err
			}
		}
		if len(plan.Insert) > 0 {
			if err := s.schedules.InsertAssignments(ctx, tx, plan.ScheduleID, plan.Insert); err != nil {
				return err
			}
		}
		if err := s.reservations.UpdateState(ctx, tx, req, models.ReservationPending); err != nil {
			return err
		}
		newVersion = version
		return nil
	})
	if err != nil {
		if errors.Is(err, appErrors.ErrConcurrentModification) {
			s.metrics.ObserveValidation(models.ActionApprove, validationOutcomeStale)
		}
		return nil, err
	}

	if s.cache != nil {
		s.cache.InvalidatePublished(ctx, req.HorizonID)
	}
	s.metrics.ObserveValidation(models.ActionApprove, validationOutcomeApplied)
	emitEvent(ctx, s.emitter, s.logger, models.EventActionReservationApprove, "reservation", req.ID, actor, map[string]interface{}{
		"scheduleId":      plan.ScheduleID,
		"scheduleVersion": newVersion,
		"kind":            req.Kind,
		"comment":         comment,
	})
	s.logger.Info("reservation approved",
		zap.String("request_id", req.ID),
		zap.String("schedule_id", plan.ScheduleID),
		zap.Int("schedule_version", newVersion),
		zap.String("actor_id", actor))
	return &dto.ValidationResult{
		Request:         req,
		Status:          req.Status,
		Conflicts:       []models.Conflict{},
		ScheduleVersion: newVersion,
		AllowedActions:  scheduler.Allowed(req.Status),
	}, nil
}

// Get returns a single request.
func (s *ReservationService) Get(ctx context.Context, id string) (*models.ReservationRequest, error) {
	req, err := s.reservations.FindByID(ctx, nil, id)
	if err != nil {
		return nil, notFoundOr(err, "reservation request not found", "failed to load reservation request")
	}
	return req, nil
}

// List returns requests matching the query.
func (s *ReservationService) List(ctx context.Context, query dto.ReservationQuery) ([]models.ReservationRequest, *models.Pagination, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid reservation query")
	}
	filter := models.ReservationFilter{
		HorizonID:   query.HorizonID,
		SpaceID:     query.SpaceID,
		RequesterID: query.RequesterID,
		Limit:       query.Limit,
		Offset:      query.Offset,
	}
	for _, status := range query.Status {
		filter.Status = append(filter.Status, models.ReservationStatus(status))
	}
	requests, total, err := s.reservations.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list reservation requests")
	}
	return requests, pagination(query.Limit, query.Offset, total), nil
}

func parseSlots(inputs []dto.SlotInput) ([]models.TimeSlot, error) {
	slots := make([]models.TimeSlot, 0, len(inputs))
	for i, in := range inputs {
		start, err := models.ParseClock(in.Start)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, fmt.Sprintf("slots[%d].start: %v", i, err))
		}
		end, err := models.ParseClock(in.End)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, fmt.Sprintf("slots[%d].end: %v", i, err))
		}
		parity := models.WeekParity(in.Parity)
		if parity == "" {
			parity = models.ParityEvery
		}
		slot := models.TimeSlot{DayOfWeek: in.DayOfWeek, Start: start, End: end, Parity: parity}
		if err := slot.Validate(); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, fmt.Sprintf("slots[%d]: %v", i, err))
		}
		slots = append(slots, slot)
	}
	return slots, nil
}

func priorityOrDefault(raw string) models.PriorityClass {
	p := models.PriorityClass(raw)
	if !p.Valid() {
		return models.PriorityNormal
	}
	return p
}

func mergeEquipment(base, extra []string) []string {
	seen := make(map[string]struct{}, len(base)+len(extra))
	var merged []string
	for _, tag := range append(append([]string(nil), base...), extra...) {
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		merged = append(merged, tag)
	}
	return merged
}

func transitionError(err error) error {
	if errors.Is(err, scheduler.ErrInvalidTransition) {
		return appErrors.Wrap(err, appErrors.ErrInvalidTransition.Code, appErrors.ErrInvalidTransition.Status, err.Error())
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to apply transition")
}

func eventActionFor(action models.ValidationAction) string {
	switch action {
	case models.ActionApprove:
		return models.EventActionReservationApprove
	case models.ActionReject:
		return models.EventActionReservationReject
	case models.ActionDefer:
		return models.EventActionReservationDefer
	case models.ActionResubmit:
		return models.EventActionReservationResubmit
	}
	return models.EventActionReservationSubmit
}
