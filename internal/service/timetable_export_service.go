package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/faculty-scheduler-api/internal/dto"
	"github.com/noah-isme/faculty-scheduler-api/internal/models"
	"github.com/noah-isme/faculty-scheduler-api/pkg/export"
	"github.com/noah-isme/faculty-scheduler-api/pkg/storage"
	appErrors "github.com/noah-isme/faculty-scheduler-api/pkg/errors"
)

type scheduleReader interface {
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Schedule, error)
	ListAssignments(ctx context.Context, exec sqlx.ExtContext, scheduleID string) ([]models.Assignment, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type urlSigner interface {
	Generate(exportID, relPath string) (string, time.Time, error)
	Parse(token string, allowExpired bool) (storage.Claims, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix       string
	ResultTTL       time.Duration
	CleanupInterval time.Duration
}

// ExportDownload is an opened export ready to stream.
type ExportDownload struct {
	File        *os.File
	Filename    string
	ContentType string
	SizeBytes   int64
}

var timetableHeaders = []string{"Day", "Start", "End", "Parity", "Space", "Teacher", "Section", "Headcount", "Source"}

// TimetableExportService renders schedules to CSV or PDF and hands out signed download links.
type TimetableExportService struct {
	schedules scheduleReader
	storage   fileStorage
	signer    urlSigner
	validator *validator.Validate
	logger    *zap.Logger
	cfg       ExportConfig
	now       func() time.Time
}

// NewTimetableExportService constructs a TimetableExportService.
func NewTimetableExportService(schedules scheduleReader, store fileStorage, signer urlSigner, validate *validator.Validate, cfg ExportConfig, logger *zap.Logger) *TimetableExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	return &TimetableExportService{
		schedules: schedules,
		storage:   store,
		signer:    signer,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Export renders a schedule timetable and stores it behind a signed URL.
func (s *TimetableExportService) Export(ctx context.Context, scheduleID string, req dto.ExportScheduleRequest) (*dto.ExportResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid export payload")
	}
	format, err := export.ParseFormat(req.Format)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}

	schedule, err := s.schedules.FindByID(ctx, nil, scheduleID)
	if err != nil {
		return nil, notFoundOr(err, "schedule not found", "failed to load schedule")
	}
	assignments, err := s.schedules.ListAssignments(ctx, nil, scheduleID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule assignments")
	}

	dataset := timetableDataset(schedule, filterAssignments(assignments, req.SpaceID, req.TeacherID), req)
	payload, err := export.RendererFor(format).Render(dataset)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	exportID := uuid.NewString()
	relPath, err := s.storage.Save(s.filename(schedule, exportID, format), payload)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store export")
	}
	token, expiresAt, err := s.signer.Generate(exportID, relPath)
	if err != nil {
		_ = s.storage.Delete(relPath)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign export link")
	}

	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}
	s.logger.Info("schedule exported",
		zap.String("schedule_id", schedule.ID),
		zap.String("export_id", exportID),
		zap.String("format", string(format)),
		zap.Int("rows", len(dataset.Rows)))
	return &dto.ExportResponse{
		ExportID:  exportID,
		Format:    string(format),
		URL:       fmt.Sprintf("%s/exports/%s", prefix, token),
		Rows:      len(dataset.Rows),
		ExpiresAt: expiresAt,
	}, nil
}

// Download resolves a signed token to the stored file.
func (s *TimetableExportService) Download(token string) (*ExportDownload, error) {
	claims, err := s.signer.Parse(token, false)
	if err != nil {
		if errors.Is(err, storage.ErrTokenExpired) {
			return nil, appErrors.Clone(appErrors.ErrExportLinkExpired, "download link expired")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "export not found")
	}
	file, err := s.storage.Open(claims.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) || errors.Is(err, storage.ErrInvalidPath) {
			return nil, appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "export not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open export")
	}
	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to stat export")
	}
	format := export.FormatCSV
	if strings.EqualFold(filepath.Ext(claims.Path), ".pdf") {
		format = export.FormatPDF
	}
	return &ExportDownload{
		File:        file,
		Filename:    filepath.Base(claims.Path),
		ContentType: format.ContentType(),
		SizeBytes:   info.Size(),
	}, nil
}

// Cleanup removes files older than ttl (defaults to configured ResultTTL when ttl <= 0).
func (s *TimetableExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

// StartCleanup boots a goroutine that purges expired exports periodically.
func (s *TimetableExportService) StartCleanup(ctx context.Context) {
	if s.cfg.CleanupInterval <= 0 {
		return
	}
	ticker := time.NewTicker(s.cfg.CleanupInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				removed, err := s.Cleanup(0)
				if err != nil {
					s.logger.Sugar().Warnw("export cleanup failed", "error", err)
					continue
				}
				if len(removed) > 0 {
					s.logger.Sugar().Infow("expired exports removed", "count", len(removed))
				}
			}
		}
	}()
}

func (s *TimetableExportService) filename(schedule *models.Schedule, exportID string, format export.Format) string {
	timestamp := s.now().UTC().Format("20060102_150405")
	return fmt.Sprintf("%s/timetable_%s_%s.%s", sanitizeFilename(schedule.HorizonID), timestamp, exportID[:8], format)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}

func filterAssignments(assignments []models.Assignment, spaceID, teacherID string) []models.Assignment {
	if spaceID == "" && teacherID == "" {
		return assignments
	}
	filtered := make([]models.Assignment, 0, len(assignments))
	for _, a := range assignments {
		if spaceID != "" && a.SpaceID != spaceID {
			continue
		}
		if teacherID != "" && a.TeacherID != teacherID {
			continue
		}
		filtered = append(filtered, a)
	}
	return filtered
}

func timetableDataset(schedule *models.Schedule, assignments []models.Assignment, req dto.ExportScheduleRequest) export.Dataset {
	sorted := append([]models.Assignment(nil), assignments...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i].Slot, sorted[j].Slot
		if a.DayOfWeek != b.DayOfWeek {
			return a.DayOfWeek < b.DayOfWeek
		}
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		return sorted[i].SpaceID < sorted[j].SpaceID
	})

	rows := make([]map[string]string, 0, len(sorted))
	for _, a := range sorted {
		section := a.SectionID
		if section == "" && a.ReservationID != nil {
			section = "reservation " + *a.ReservationID
		}
		rows = append(rows, map[string]string{
			"Day":       models.DayName(a.Slot.DayOfWeek),
			"Start":     a.Slot.Start.String(),
			"End":       a.Slot.End.String(),
			"Parity":    string(a.Slot.Parity),
			"Space":     a.SpaceID,
			"Teacher":   a.TeacherID,
			"Section":   section,
			"Headcount": strconv.Itoa(a.Headcount),
			"Source":    string(a.Source),
		})
	}

	subtitle := []string{
		fmt.Sprintf("Horizon: %s", schedule.HorizonID),
		fmt.Sprintf("Status: %s (version %d)", schedule.Status, schedule.Version),
	}
	if req.SpaceID != "" {
		subtitle = append(subtitle, "Space: "+req.SpaceID)
	}
	if req.TeacherID != "" {
		subtitle = append(subtitle, "Teacher: "+req.TeacherID)
	}
	return export.Dataset{
		Title:    fmt.Sprintf("Timetable %s", schedule.ID),
		Subtitle: subtitle,
		Headers:  timetableHeaders,
		Rows:     rows,
	}
}
