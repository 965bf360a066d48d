package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/evan-hart/studyplan-api/internal/dto"
	"github.com/evan-hart/studyplan-api/internal/models"
	"github.com/evan-hart/studyplan-api/internal/scheduler"
	appErrors "github.com/evan-hart/studyplan-api/pkg/errors"
	"github.com/evan-hart/studyplan-api/pkg/jobs"
)

type timetableStore interface {
	FindByID(ctx context.Context, id string) (*models.Timetable, error)
	ListByUser(ctx context.Context, userID string) ([]models.Timetable, error)
	Create(ctx context.Context, tt *models.Timetable) error
	UpdateScheduleVersioned(ctx context.Context, id string, schedule types.JSONText, expectedVersion int) error
	ReplaceDocument(ctx context.Context, id string, snapshot, schedule types.JSONText, mode string, expectedVersion int) error
	Delete(ctx context.Context, id string) error
}

type scheduleCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// NoteDispatcher enqueues background enrichment jobs.
type NoteDispatcher interface {
	Enqueue(job jobs.Job) error
}

type plannerMetrics interface {
	ObserveGeneration(outcome string, elapsed time.Duration)
	AddUnplaced(count int)
	IncScheduleCache(hit bool)
}

// PlannerConfig bounds the planning service.
type PlannerConfig struct {
	MinViableSessionMin int
	MaxWindowDays       int
	MaxPlacementsPerDay int
	CacheTTL            time.Duration
}

func (c PlannerConfig) withDefaults() PlannerConfig {
	if c.MinViableSessionMin <= 0 {
		c.MinViableSessionMin = 15
	}
	if c.MaxWindowDays <= 0 {
		c.MaxWindowDays = 28
	}
	if c.MaxPlacementsPerDay <= 0 {
		c.MaxPlacementsPerDay = 96
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = 5 * time.Minute
	}
	return c
}

// PlannerService orchestrates schedule generation, estimation, moves and
// day replanning over persisted timetable documents.
type PlannerService struct {
	timetables timetableStore
	cache      scheduleCache
	notes      NoteDispatcher
	metrics    plannerMetrics
	validator  *validator.Validate
	logger     *zap.Logger
	cfg        PlannerConfig
}

// NewPlannerService wires planner dependencies.
func NewPlannerService(
	timetables timetableStore,
	cache scheduleCache,
	notes NoteDispatcher,
	metrics plannerMetrics,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg PlannerConfig,
) *PlannerService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PlannerService{
		timetables: timetables,
		cache:      cache,
		notes:      notes,
		metrics:    metrics,
		validator:  validate,
		logger:     logger,
		cfg:        cfg.withDefaults(),
	}
}

// snapshotDoc is the persisted form of a generation snapshot. Preferences
// stay raw so legacy documents are upgraded on read, not rewritten in place.
type snapshotDoc struct {
	Start       string            `json:"start_date"`
	End         string            `json:"end_date"`
	Mode        models.Mode       `json:"mode"`
	Subjects    []models.Subject  `json:"subjects"`
	Topics      []models.Topic    `json:"topics"`
	TestDates   []models.TestDate `json:"test_dates"`
	Homework    []models.Homework `json:"homework"`
	Events      []models.Event    `json:"events"`
	Preferences json.RawMessage   `json:"preferences"`
}

// scheduleDocument is the cached read model for a timetable's schedule.
type scheduleDocument struct {
	Schedule models.ScheduleMap `json:"schedule"`
	Version  int                `json:"version"`
}

// Generate runs the full pipeline for a timetable: validate the payload,
// compute availability, allocate sessions, sanitize the result and persist
// it as a new document version. Work the window cannot absorb is returned
// alongside the schedule rather than failing the call.
func (s *PlannerService) Generate(ctx context.Context, timetableID, userID string, req dto.GenerationRequest) (*dto.GenerateScheduleResponse, error) {
	started := time.Now()
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule generation payload")
	}

	snap, err := s.buildSnapshot(req)
	if err != nil {
		return nil, err
	}

	items := scheduler.BuildWorkItems(snap)
	avail := scheduler.DailyAvailability(snap, s.cfg.MinViableSessionMin)

	result, err := scheduler.Allocate(snap, avail, items, scheduler.Config{
		MinViableSessionMin: s.cfg.MinViableSessionMin,
		MaxPlacementsPerDay: s.cfg.MaxPlacementsPerDay,
	})
	if err != nil {
		if errors.Is(err, scheduler.ErrPlacementBudget) {
			s.observeGeneration("timeout", started, 0)
			return nil, appErrors.Clone(appErrors.ErrGenerationTimeout, "schedule generation exceeded its placement budget")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "schedule generation failed")
	}

	schedule, warnings := scheduler.Sanitize(result.Schedule, snap)
	report := scheduler.EstimateFeasibility(snap, s.cfg.MinViableSessionMin)

	version, err := s.persistGeneration(ctx, timetableID, userID, snap, req.Preferences, schedule)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, timetableID)
	s.enqueueNotes(timetableID, schedule)
	s.observeGeneration("ok", started, len(result.Unplaced))

	s.logger.Info("schedule generated",
		zap.String("timetable_id", timetableID),
		zap.Int("version", version),
		zap.Int("days", len(schedule)),
		zap.Int("unplaced", len(result.Unplaced)),
		zap.Int("warnings", len(warnings)))

	return &dto.GenerateScheduleResponse{
		Schedule: schedule,
		Unplaced: result.Unplaced,
		Warnings: warnings,
		Report:   report,
		Version:  version,
	}, nil
}

// Estimate computes the feasibility report without allocating or persisting
// anything. Calling it twice with the same payload yields the same report.
func (s *PlannerService) Estimate(ctx context.Context, req dto.GenerationRequest) (*scheduler.FeasibilityReport, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid feasibility payload")
	}
	snap, err := s.buildSnapshot(req)
	if err != nil {
		return nil, err
	}
	report := scheduler.EstimateFeasibility(snap, s.cfg.MinViableSessionMin)
	return &report, nil
}

// GetSchedule returns the stored schedule document, served from cache when
// possible, with any enrichment notes merged in.
func (s *PlannerService) GetSchedule(ctx context.Context, timetableID string) (*ScheduleDocument, error) {
	key := scheduleCacheKey(timetableID)
	var cached scheduleDocument
	if s.cache != nil {
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			s.recordCache(true)
			return s.withNotes(ctx, timetableID, &cached), nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("schedule cache read failed", zap.String("timetable_id", timetableID), zap.Error(err))
		}
	}
	s.recordCache(false)

	tt, err := s.loadTimetable(ctx, timetableID)
	if err != nil {
		return nil, err
	}
	schedule, err := decodeSchedule(tt.Schedule)
	if err != nil {
		return nil, err
	}
	doc := scheduleDocument{Schedule: schedule, Version: tt.Version}
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, doc, s.cfg.CacheTTL); err != nil {
			s.logger.Warn("schedule cache write failed", zap.String("timetable_id", timetableID), zap.Error(err))
		}
	}
	return s.withNotes(ctx, timetableID, &doc), nil
}

// ScheduleDocument is what GetSchedule hands to the transport layer.
type ScheduleDocument struct {
	Schedule models.ScheduleMap `json:"schedule"`
	Version  int                `json:"version"`
}

// MoveSession relocates one session to the earliest free gap on the target
// day, leaving the rest of the plan untouched. Moving it back restores an
// equivalent placement.
func (s *PlannerService) MoveSession(ctx context.Context, timetableID string, req dto.MoveSessionRequest) (*dto.MoveSessionResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid move payload")
	}

	tt, err := s.loadTimetable(ctx, timetableID)
	if err != nil {
		return nil, err
	}
	snap, err := decodeSnapshot(tt.Snapshot)
	if err != nil {
		return nil, err
	}
	schedule, err := decodeSchedule(tt.Schedule)
	if err != nil {
		return nil, err
	}

	if !withinWindow(snap, req.TargetDate) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("target date %s is outside the planning window", req.TargetDate))
	}

	date, idx, ok := schedule.FindSession(req.SessionID)
	if !ok || date != req.SourceDate {
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("session %s not found on %s", req.SessionID, req.SourceDate))
	}
	sess := schedule[date][idx]
	if sess.Type == models.SessionBreak {
		return nil, appErrors.Clone(appErrors.ErrValidation, "breaks cannot be moved")
	}
	if sess.DueDate != "" && req.TargetDate >= sess.DueDate {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("homework must stay before its due date %s", sess.DueDate))
	}

	avail := scheduler.DayAvailability(snap, req.TargetDate, s.cfg.MinViableSessionMin)
	existing := schedule[req.TargetDate]
	gaps := scheduler.FreeGaps(avail, existing)
	start, ok := scheduler.FirstFit(gaps, sess.DurationMin, sess.Type)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("no free slot of %d minutes on %s", sess.DurationMin, req.TargetDate))
	}

	schedule[date] = append(schedule[date][:idx], schedule[date][idx+1:]...)
	sess.Date = req.TargetDate
	sess.StartTime = scheduler.FormatClock(start)
	schedule[req.TargetDate] = append(schedule[req.TargetDate], sess)
	models.SortDay(schedule[req.TargetDate])

	version, err := s.persistSchedule(ctx, timetableID, schedule, tt.Version)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, timetableID)

	s.logger.Info("session moved",
		zap.String("timetable_id", timetableID),
		zap.String("session_id", req.SessionID),
		zap.String("from", req.SourceDate),
		zap.String("to", req.TargetDate))

	return &dto.MoveSessionResponse{Schedule: schedule, Version: version}, nil
}

// ReplanDay rebuilds a single day from a user-ordered topic list plus any
// still-open homework. Completed sessions on that day keep their slots;
// everything else is replaced.
func (s *PlannerService) ReplanDay(ctx context.Context, timetableID, date string, req dto.ReplanDayRequest) (*dto.ReplanDayResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid replan payload")
	}
	if _, err := time.Parse(scheduler.DateLayout, date); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid date %q", date))
	}

	tt, err := s.loadTimetable(ctx, timetableID)
	if err != nil {
		return nil, err
	}
	snap, err := decodeSnapshot(tt.Snapshot)
	if err != nil {
		return nil, err
	}
	schedule, err := decodeSchedule(tt.Schedule)
	if err != nil {
		return nil, err
	}
	if !withinWindow(snap, date) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("date %s is outside the planning window", date))
	}

	items, err := s.replanItems(snap, schedule, date, req.Priorities)
	if err != nil {
		return nil, err
	}

	var kept []models.Session
	for _, sess := range schedule[date] {
		if sess.Completed {
			kept = append(kept, sess)
		}
	}

	avail := scheduler.DayAvailability(snap, date, s.cfg.MinViableSessionMin)
	gaps := scheduler.FreeGaps(avail, kept)

	placed, unplaced, err := scheduler.AllocateDay(snap, date, gaps, items, scheduler.Config{
		MinViableSessionMin: s.cfg.MinViableSessionMin,
		MaxPlacementsPerDay: s.cfg.MaxPlacementsPerDay,
	})
	if err != nil {
		if errors.Is(err, scheduler.ErrPlacementBudget) {
			return nil, appErrors.Clone(appErrors.ErrGenerationTimeout, "day replanning exceeded its placement budget")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "day replanning failed")
	}

	day := append(kept, placed...)
	models.SortDay(day)
	schedule[date] = day

	version, err := s.persistSchedule(ctx, timetableID, schedule, tt.Version)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, timetableID)

	if req.Reflection != "" && s.notes != nil {
		if err := s.notes.Enqueue(jobs.Job{
			Type: jobTypeReflection,
			Payload: reflectionPayload{
				TimetableID: timetableID,
				Date:        date,
				Reflection:  req.Reflection,
			},
		}); err != nil {
			s.logger.Warn("failed to enqueue reflection", zap.String("timetable_id", timetableID), zap.Error(err))
		}
	}

	s.logger.Info("day replanned",
		zap.String("timetable_id", timetableID),
		zap.String("date", date),
		zap.Int("placed", len(placed)),
		zap.Int("kept", len(kept)))

	return &dto.ReplanDayResponse{Date: date, Sessions: day, Unplaced: unplaced, Version: version}, nil
}

// SetCompletion toggles a session's completed flag.
func (s *PlannerService) SetCompletion(ctx context.Context, timetableID, sessionID string, completed bool) (*dto.MoveSessionResponse, error) {
	tt, err := s.loadTimetable(ctx, timetableID)
	if err != nil {
		return nil, err
	}
	schedule, err := decodeSchedule(tt.Schedule)
	if err != nil {
		return nil, err
	}
	date, idx, ok := schedule.FindSession(sessionID)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("session %s not found", sessionID))
	}
	schedule[date][idx].Completed = completed

	version, err := s.persistSchedule(ctx, timetableID, schedule, tt.Version)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, timetableID)
	return &dto.MoveSessionResponse{Schedule: schedule, Version: version}, nil
}

// ListTimetables returns summaries of a user's stored documents, newest
// first. Rows with unreadable snapshots are skipped rather than failing the
// whole listing.
func (s *PlannerService) ListTimetables(ctx context.Context, userID string) ([]dto.TimetableSummary, error) {
	timetables, err := s.timetables.ListByUser(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list timetables")
	}
	summaries := make([]dto.TimetableSummary, 0, len(timetables))
	for _, tt := range timetables {
		var doc snapshotDoc
		if err := json.Unmarshal(tt.Snapshot, &doc); err != nil {
			s.logger.Warn("skipping timetable with unreadable snapshot", zap.String("timetable_id", tt.ID), zap.Error(err))
			continue
		}
		summaries = append(summaries, dto.TimetableSummary{
			ID:        tt.ID,
			Mode:      tt.Mode,
			StartDate: doc.Start,
			EndDate:   doc.End,
			Version:   tt.Version,
			UpdatedAt: tt.UpdatedAt,
		})
	}
	return summaries, nil
}

// DeleteTimetable removes a stored document and every cached read derived
// from it.
func (s *PlannerService) DeleteTimetable(ctx context.Context, timetableID string) error {
	if _, err := s.loadTimetable(ctx, timetableID); err != nil {
		return err
	}
	if err := s.timetables.Delete(ctx, timetableID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete timetable")
	}
	s.invalidate(ctx, timetableID)
	s.logger.Info("timetable deleted", zap.String("timetable_id", timetableID))
	return nil
}

// --- Snapshot assembly ---

func (s *PlannerService) buildSnapshot(req dto.GenerationRequest) (scheduler.Snapshot, error) {
	start, err := time.Parse(scheduler.DateLayout, req.StartDate)
	if err != nil {
		return scheduler.Snapshot{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid start date %q", req.StartDate))
	}
	end, err := time.Parse(scheduler.DateLayout, req.EndDate)
	if err != nil {
		return scheduler.Snapshot{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid end date %q", req.EndDate))
	}
	if end.Before(start) {
		return scheduler.Snapshot{}, appErrors.Clone(appErrors.ErrValidation, "end date must not precede start date")
	}
	if days := int(end.Sub(start).Hours()/24) + 1; days > s.cfg.MaxWindowDays {
		return scheduler.Snapshot{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("planning window of %d days exceeds the %d day limit", days, s.cfg.MaxWindowDays))
	}

	mode := models.Mode(req.TimetableMode)
	if !mode.Valid() {
		return scheduler.Snapshot{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown timetable mode %q", req.TimetableMode))
	}

	subjects := make([]models.Subject, 0, len(req.Subjects))
	known := make(map[string]bool, len(req.Subjects))
	for _, sub := range req.Subjects {
		m := models.Mode(sub.Mode)
		if !m.Valid() {
			return scheduler.Snapshot{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("subject %s has unknown mode %q", sub.ID, sub.Mode))
		}
		subjects = append(subjects, models.Subject{ID: sub.ID, Name: sub.Name, ExamBoard: sub.ExamBoard, Mode: m})
		known[sub.ID] = true
	}

	topics := make([]models.Topic, 0, len(req.Topics))
	for _, t := range req.Topics {
		if !known[t.SubjectID] {
			return scheduler.Snapshot{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("topic %s references unknown subject %s", t.ID, t.SubjectID))
		}
		topics = append(topics, models.Topic{ID: t.ID, SubjectID: t.SubjectID, Name: t.Name, Confidence: t.Confidence, Focus: t.Focus})
	}

	tests := make([]models.TestDate, 0, len(req.TestDates))
	for _, td := range req.TestDates {
		if !known[td.SubjectID] {
			return scheduler.Snapshot{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("test date references unknown subject %s", td.SubjectID))
		}
		tests = append(tests, models.TestDate{SubjectID: td.SubjectID, Date: td.Date, Type: td.Type})
	}

	homework := make([]models.Homework, 0, len(req.Homework))
	for _, hw := range req.Homework {
		if !known[hw.SubjectID] {
			return scheduler.Snapshot{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("homework %s references unknown subject %s", hw.ID, hw.SubjectID))
		}
		homework = append(homework, models.Homework{ID: hw.ID, SubjectID: hw.SubjectID, Title: hw.Title, DueDate: hw.DueDate, DurationMin: hw.DurationMin})
	}

	events := make([]models.Event, 0, len(req.Events))
	for _, ev := range req.Events {
		if !ev.EndsAt.After(ev.StartsAt) {
			return scheduler.Snapshot{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("event %s must end after it starts", ev.ID))
		}
		events = append(events, models.Event{ID: ev.ID, Title: ev.Title, StartsAt: ev.StartsAt, EndsAt: ev.EndsAt})
	}

	prefs, err := convertPreferences(req.Preferences)
	if err != nil {
		return scheduler.Snapshot{}, err
	}

	return scheduler.Snapshot{
		Start:     start,
		End:       end,
		Mode:      mode,
		Subjects:  subjects,
		Topics:    topics,
		TestDates: tests,
		Homework:  homework,
		Events:    events,
		Prefs:     prefs,
	}, nil
}

func convertPreferences(p dto.PreferencesPayload) (models.StudyPreferences, error) {
	prefs := models.StudyPreferences{
		SchemaVersion:   2,
		Weekdays:        make(map[string]models.TimeWindow, len(p.Weekdays)),
		SessionDuration: p.SessionDuration,
		BreakDuration:   p.BreakDuration,
		DurationMode:    models.DurationMode(p.DurationMode),
	}
	for day, window := range p.Weekdays {
		if _, err := scheduler.ParseClock(window.Start); window.Enabled && err != nil {
			return models.StudyPreferences{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid %s window start %q", day, window.Start))
		}
		if _, err := scheduler.ParseClock(window.End); window.Enabled && err != nil {
			return models.StudyPreferences{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid %s window end %q", day, window.End))
		}
		prefs.Weekdays[day] = models.TimeWindow{Enabled: window.Enabled, Start: window.Start, End: window.End, HomeworkOnly: window.HomeworkOnly}
	}
	prefs.SchoolHours = convertWindow(p.SchoolHours)
	prefs.BeforeSchool = convertWindow(p.BeforeSchool)
	prefs.Lunch = convertWindow(p.Lunch)
	prefs.FreePeriod = convertWindow(p.FreePeriod)
	return prefs, nil
}

func convertWindow(w *dto.TimeWindowPayload) *models.TimeWindow {
	if w == nil {
		return nil
	}
	return &models.TimeWindow{Enabled: w.Enabled, Start: w.Start, End: w.End, HomeworkOnly: w.HomeworkOnly}
}

func (s *PlannerService) replanItems(snap scheduler.Snapshot, schedule models.ScheduleMap, date string, priorities []dto.ReplanTopic) ([]scheduler.WorkItem, error) {
	byID := make(map[string]models.Topic, len(snap.Topics))
	for _, t := range snap.Topics {
		byID[t.ID] = t
	}

	sub := snap
	sub.Topics = make([]models.Topic, 0, len(priorities))
	sub.Homework = openHomework(snap, schedule, date)
	position := make(map[string]int, len(priorities))
	for i, p := range priorities {
		topic, ok := byID[p.TopicID]
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("topic %s is not part of this timetable", p.TopicID))
		}
		if p.Confidence != nil {
			topic.Confidence = *p.Confidence
		}
		if p.Focus != nil {
			topic.Focus = *p.Focus
		}
		sub.Topics = append(sub.Topics, topic)
		position[p.TopicID] = i
	}

	items := scheduler.BuildWorkItems(sub)
	// The user's ordering wins over computed priority for a single-day
	// replan, and each topic is placed at most once. Homework keeps its
	// due-date priority so the topic list cannot starve it.
	for i := range items {
		if items[i].Kind != scheduler.KindTopic {
			continue
		}
		items[i].Priority = float64(len(position) - position[items[i].TopicID])
		items[i].Reps = 1
	}
	return items, nil
}

// openHomework returns snapshot homework still due after the replanned date,
// reduced by the minutes that stay on the schedule: sessions on other days
// and completed sessions on the day being rebuilt. Incomplete homework on the
// replanned day is re-placed rather than dropped.
func openHomework(snap scheduler.Snapshot, schedule models.ScheduleMap, date string) []models.Homework {
	var open []models.Homework
	for _, hw := range snap.Homework {
		if hw.DueDate <= date {
			continue
		}
		remaining := hw.DurationMin
		for day, sessions := range schedule {
			for _, sess := range sessions {
				if sess.Type != models.SessionHomework || sess.SubjectID != hw.SubjectID || sess.Topic != hw.Title {
					continue
				}
				if day != date || sess.Completed {
					remaining -= sess.DurationMin
				}
			}
		}
		if remaining > 0 {
			hw.DurationMin = remaining
			open = append(open, hw)
		}
	}
	return open
}

// --- Persistence helpers ---

func (s *PlannerService) loadTimetable(ctx context.Context, id string) (*models.Timetable, error) {
	tt, err := s.timetables.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "timetable not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable")
	}
	return tt, nil
}

func (s *PlannerService) persistGeneration(ctx context.Context, timetableID, userID string, snap scheduler.Snapshot, prefs dto.PreferencesPayload, schedule models.ScheduleMap) (int, error) {
	snapJSON, err := encodeSnapshot(snap)
	if err != nil {
		return 0, err
	}
	schedJSON, err := json.Marshal(schedule)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode schedule")
	}

	existing, err := s.timetables.FindByID(ctx, timetableID)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable")
		}
		tt := &models.Timetable{
			ID:       timetableID,
			UserID:   userID,
			Mode:     snap.Mode,
			Snapshot: types.JSONText(snapJSON),
			Schedule: types.JSONText(schedJSON),
		}
		if err := s.timetables.Create(ctx, tt); err != nil {
			return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create timetable")
		}
		return tt.Version, nil
	}

	if err := s.timetables.ReplaceDocument(ctx, timetableID, types.JSONText(snapJSON), types.JSONText(schedJSON), string(snap.Mode), existing.Version); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, appErrors.Clone(appErrors.ErrConflict, "timetable was modified concurrently, reload and retry")
		}
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to replace timetable document")
	}
	return existing.Version + 1, nil
}

func (s *PlannerService) persistSchedule(ctx context.Context, timetableID string, schedule models.ScheduleMap, expectedVersion int) (int, error) {
	payload, err := json.Marshal(schedule)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode schedule")
	}
	if err := s.timetables.UpdateScheduleVersioned(ctx, timetableID, types.JSONText(payload), expectedVersion); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, appErrors.Clone(appErrors.ErrConflict, "timetable was modified concurrently, reload and retry")
		}
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist schedule")
	}
	return expectedVersion + 1, nil
}

func encodeSnapshot(snap scheduler.Snapshot) ([]byte, error) {
	prefsJSON, err := json.Marshal(snap.Prefs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode preferences")
	}
	doc := snapshotDoc{
		Start:       snap.Start.Format(scheduler.DateLayout),
		End:         snap.End.Format(scheduler.DateLayout),
		Mode:        snap.Mode,
		Subjects:    snap.Subjects,
		Topics:      snap.Topics,
		TestDates:   snap.TestDates,
		Homework:    snap.Homework,
		Events:      snap.Events,
		Preferences: prefsJSON,
	}
	payload, err := json.Marshal(doc)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode snapshot")
	}
	return payload, nil
}

func decodeSnapshot(raw types.JSONText) (scheduler.Snapshot, error) {
	var doc snapshotDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return scheduler.Snapshot{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to decode snapshot")
	}
	start, err := time.Parse(scheduler.DateLayout, doc.Start)
	if err != nil {
		return scheduler.Snapshot{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "snapshot has invalid start date")
	}
	end, err := time.Parse(scheduler.DateLayout, doc.End)
	if err != nil {
		return scheduler.Snapshot{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "snapshot has invalid end date")
	}
	prefs, err := models.MigratePreferences(doc.Preferences)
	if err != nil {
		return scheduler.Snapshot{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "snapshot has invalid preferences")
	}
	return scheduler.Snapshot{
		Start:     start,
		End:       end,
		Mode:      doc.Mode,
		Subjects:  doc.Subjects,
		Topics:    doc.Topics,
		TestDates: doc.TestDates,
		Homework:  doc.Homework,
		Events:    doc.Events,
		Prefs:     prefs,
	}, nil
}

func decodeSchedule(raw types.JSONText) (models.ScheduleMap, error) {
	schedule := models.ScheduleMap{}
	if len(raw) == 0 {
		return schedule, nil
	}
	if err := json.Unmarshal(raw, &schedule); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to decode schedule")
	}
	return schedule, nil
}

func withinWindow(snap scheduler.Snapshot, dateKey string) bool {
	d, err := time.Parse(scheduler.DateLayout, dateKey)
	if err != nil {
		return false
	}
	return !d.Before(snap.Start) && !d.After(snap.End)
}

// --- Cache, notes, metrics ---

func scheduleCacheKey(timetableID string) string {
	return fmt.Sprintf("timetable:%s:schedule", timetableID)
}

func (s *PlannerService) invalidate(ctx context.Context, timetableID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, fmt.Sprintf("timetable:%s:*", timetableID)); err != nil {
		s.logger.Warn("failed to invalidate schedule cache", zap.String("timetable_id", timetableID), zap.Error(err))
	}
}

func (s *PlannerService) enqueueNotes(timetableID string, schedule models.ScheduleMap) {
	if s.notes == nil {
		return
	}
	for date, sessions := range schedule {
		for _, sess := range sessions {
			if sess.Type == models.SessionBreak {
				continue
			}
			job := jobs.Job{
				Type: jobTypeSessionNote,
				Payload: noteRequest{
					TimetableID: timetableID,
					SessionID:   sess.ID,
					Date:        date,
					Subject:     sess.Subject,
					Topic:       sess.Topic,
					SessionType: string(sess.Type),
				},
			}
			if err := s.notes.Enqueue(job); err != nil {
				s.logger.Warn("failed to enqueue session note", zap.String("session_id", sess.ID), zap.Error(err))
				return
			}
		}
	}
}

func (s *PlannerService) withNotes(ctx context.Context, timetableID string, doc *scheduleDocument) *ScheduleDocument {
	view := &ScheduleDocument{Schedule: doc.Schedule, Version: doc.Version}
	if s.cache == nil {
		return view
	}
	for date, sessions := range view.Schedule {
		for i := range sessions {
			if sessions[i].Notes != "" {
				continue
			}
			var note string
			if err := s.cache.Get(ctx, noteCacheKey(timetableID, sessions[i].ID), &note); err == nil {
				sessions[i].Notes = note
			}
		}
		view.Schedule[date] = sessions
	}
	return view
}

func (s *PlannerService) observeGeneration(outcome string, started time.Time, unplaced int) {
	if s.metrics == nil {
		return
	}
	s.metrics.ObserveGeneration(outcome, time.Since(started))
	if unplaced > 0 {
		s.metrics.AddUnplaced(unplaced)
	}
}

func (s *PlannerService) recordCache(hit bool) {
	if s.metrics != nil {
		s.metrics.IncScheduleCache(hit)
	}
}
