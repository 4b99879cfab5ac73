package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/longtq2501/Tutor-Pro-sub000/internal/dto"
	"github.com/longtq2501/Tutor-Pro-sub000/internal/lifecycle"
	"github.com/longtq2501/Tutor-Pro-sub000/internal/models"
	"github.com/longtq2501/Tutor-Pro-sub000/internal/repository"
	appErrors "github.com/longtq2501/Tutor-Pro-sub000/pkg/errors"
	"github.com/longtq2501/Tutor-Pro-sub000/pkg/money"
)

const (
	dateLayout  = "2006-01-02"
	monthLayout = "2006-01"
	clockLayout = "15:04"

	duplicateAfterDays = 7
)

type sessionStore interface {
	Create(ctx context.Context, session *models.Session) error
	GetByID(ctx context.Context, id string) (*models.Session, error)
	GetVersion(ctx context.Context, id string) (int, error)
	ListAttachments(ctx context.Context, sessionID string) ([]models.Attachment, error)
	List(ctx context.Context, filter models.SessionFilter) ([]models.Session, int, error)
	ListUnpaid(ctx context.Context) ([]models.Session, error)
	DistinctMonths(ctx context.Context) ([]string, error)
	Update(ctx context.Context, params repository.UpdateSessionParams) error
	Delete(ctx context.Context, id string) error
	DeleteByMonth(ctx context.Context, month string) (int64, error)
}

type studentDirectory interface {
	GetByID(ctx context.Context, id string) (*models.Student, error)
}

type statsInvalidator interface {
	InvalidateStats(ctx context.Context) error
}

// AttachmentResolver turns attachment references into display metadata. It is
// consulted for the detail view only.
type AttachmentResolver interface {
	Resolve(ctx context.Context, attachments []models.Attachment) ([]models.ResolvedAttachment, error)
}

// AttachmentResolverFunc allows using plain functions.
type AttachmentResolverFunc func(ctx context.Context, attachments []models.Attachment) ([]models.ResolvedAttachment, error)

// Resolve implements AttachmentResolver.
func (f AttachmentResolverFunc) Resolve(ctx context.Context, attachments []models.Attachment) ([]models.ResolvedAttachment, error) {
	return f(ctx, attachments)
}

// SessionService owns every session mutation. Writes are compare-and-swap on
// the version column; a lost race is reported, never retried.
type SessionService struct {
	store     sessionStore
	students  studentDirectory
	events    SessionEventPublisher
	resolver  AttachmentResolver
	stats     statsInvalidator
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// SessionServiceOption configures the service.
type SessionServiceOption func(*SessionService)

// WithSessionEvents sets the notification publisher.
func WithSessionEvents(events SessionEventPublisher) SessionServiceOption {
	return func(s *SessionService) {
		if events != nil {
			s.events = events
		}
	}
}

// WithAttachmentResolver overrides the placeholder resolver.
func WithAttachmentResolver(resolver AttachmentResolver) SessionServiceOption {
	return func(s *SessionService) {
		if resolver != nil {
			s.resolver = resolver
		}
	}
}

// WithStatsInvalidator evicts cached statistics after each write.
func WithStatsInvalidator(stats statsInvalidator) SessionServiceOption {
	return func(s *SessionService) {
		if stats != nil {
			s.stats = stats
		}
	}
}

// WithSessionMetrics records mutation outcomes.
func WithSessionMetrics(metrics *MetricsService) SessionServiceOption {
	return func(s *SessionService) {
		s.metrics = metrics
	}
}

// WithSessionClock overrides time.Now, for tests.
func WithSessionClock(now func() time.Time) SessionServiceOption {
	return func(s *SessionService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewSessionService constructs the service with defaults.
func NewSessionService(store sessionStore, students studentDirectory, validate *validator.Validate, logger *zap.Logger, opts ...SessionServiceOption) *SessionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &SessionService{
		store:     store,
		students:  students,
		events:    noopPublisher{},
		resolver:  AttachmentResolverFunc(placeholderAttachments),
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// Create records a new session for an existing student, snapshotting the
// student's current hourly rate.
func (s *SessionService) Create(ctx context.Context, req dto.CreateSessionRequest) (session *models.Session, err error) {
	defer func() { s.metrics.RecordSessionMutation("create", outcome(err)) }()

	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid session payload")
	}
	date, err := time.Parse(dateLayout, req.SessionDate)
	if err != nil {
		return nil, validationError("invalid session date %q", req.SessionDate)
	}
	start, err := normaliseClock(req.StartTime)
	if err != nil {
		return nil, err
	}
	end, err := normaliseClock(req.EndTime)
	if err != nil {
		return nil, err
	}
	status := models.SessionStatusScheduled
	if req.Status != "" {
		if status, err = lifecycle.Parse(req.Status); err != nil {
			return nil, statusError(err)
		}
	}

	student, err := s.students.GetByID(ctx, req.StudentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	count := req.Sessions
	if count == 0 {
		count = 1
	}
	hours := money.MulHours(req.HoursPerSession, count)
	amount := money.Amount(hours, student.PricePerHour)
	if minutes, ok, err := spanMinutes(start, end); err != nil {
		return nil, err
	} else if ok {
		hours = money.HoursFromMinutes(minutes)
		amount = money.AmountForMinutes(minutes, student.PricePerHour)
	}
	if hours <= 0 {
		return nil, validationError("hours must be positive: set hoursPerSession or a start and end time")
	}

	month := req.Month
	if month == "" {
		month = date.Format(monthLayout)
	}

	session = &models.Session{
		StudentID:    student.ID,
		StudentName:  student.Name,
		BillingMonth: month,
		SessionDate:  date,
		StartTime:    start,
		EndTime:      end,
		Sessions:     count,
		Hours:        hours,
		PricePerHour: student.PricePerHour,
		TotalAmount:  amount,
		Status:       models.SessionStatusScheduled,
		Subject:      strings.TrimSpace(req.Subject),
		Notes:        req.Notes,
		Attachments:  mergeAttachments(nil, &req.LessonIDs, &req.DocumentIDs),
	}
	s.enterStatus(session, status)

	if err := s.store.Create(ctx, session); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create session")
	}
	s.afterWrite(ctx)
	s.logger.Info("session created",
		zap.String("session_id", session.ID),
		zap.String("student_id", session.StudentID),
		zap.String("month", session.BillingMonth),
		zap.Float64("hours", session.Hours),
		zap.Int64("total_amount", session.TotalAmount))
	s.publish(ctx, models.EventSessionCreated, session, nil)
	return session, nil
}

// Get returns the detail view with attachments resolved.
func (s *SessionService) Get(ctx context.Context, id string) (*models.SessionDetail, error) {
	session, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, sessionNotFound(err)
	}
	attachments, err := s.store.ListAttachments(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session attachments")
	}
	session.Attachments = attachments

	resolved, err := s.resolver.Resolve(ctx, attachments)
	if err != nil {
		s.logger.Warn("attachment resolution failed", zap.String("session_id", id), zap.Error(err))
		resolved, _ = placeholderAttachments(ctx, attachments)
	}
	return &models.SessionDetail{
		Session:             *session,
		ResolvedAttachments: resolved,
		AllowedTransitions:  lifecycle.Allowed(session.Status),
	}, nil
}

// List returns one page of sessions filtered by month and/or student.
func (s *SessionService) List(ctx context.Context, query dto.SessionQuery) ([]models.Session, *models.Pagination, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid session query")
	}
	filter := models.SessionFilter{StudentID: query.StudentID, Month: query.Month, Page: query.Page, PageSize: query.Limit}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 50
	}
	sessions, total, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sessions")
	}
	return sessions, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// ListUnpaid returns every unpaid session, latest session date first.
func (s *SessionService) ListUnpaid(ctx context.Context) ([]models.Session, error) {
	sessions, err := s.store.ListUnpaid(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list unpaid sessions")
	}
	return sessions, nil
}

// Months lists the distinct billing months, latest first.
func (s *SessionService) Months(ctx context.Context) ([]string, error) {
	months, err := s.store.DistinctMonths(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list billing months")
	}
	return months, nil
}

// TogglePayment flips the paid flag. Marking paid moves the session to PAID;
// unmarking reverts it to COMPLETED and clears paidAt.
func (s *SessionService) TogglePayment(ctx context.Context, id string, expectedVersion *int) (*models.Session, error) {
	return s.mutate(ctx, "toggle_payment", id, expectedVersion, func(session *models.Session) (mutation, error) {
		if !session.Paid {
			s.enterStatus(session, models.SessionStatusPaid)
		} else {
			s.enterStatus(session, models.SessionStatusCompleted)
			session.Paid = false
			session.PaidAt = nil
		}
		return mutation{}, nil
	})
}

// UpdateStatus moves the session along the status graph. Asking for the
// current status is a no-op and does not bump the version.
func (s *SessionService) UpdateStatus(ctx context.Context, id string, req dto.UpdateStatusRequest) (*models.Session, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid status payload")
	}
	next, err := lifecycle.Parse(req.Status)
	if err != nil {
		return nil, statusError(err)
	}
	return s.mutate(ctx, "update_status", id, req.Version, func(session *models.Session) (mutation, error) {
		if session.Status == next {
			return mutation{skip: true}, nil
		}
		if err := lifecycle.Validate(session.Status, next); err != nil {
			return mutation{}, statusError(err)
		}
		s.enterStatus(session, next)
		return mutation{changes: []string{"status"}}, nil
	})
}

// Edit applies a partial update. Hours follow the session count unless both
// times are set, in which case the time span wins.
func (s *SessionService) Edit(ctx context.Context, id string, req dto.UpdateSessionRequest) (*models.Session, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid session payload")
	}
	var next models.SessionStatus
	if req.Status != nil {
		parsed, err := lifecycle.Parse(*req.Status)
		if err != nil {
			return nil, statusError(err)
		}
		next = parsed
	}

	return s.mutate(ctx, "edit", id, req.Version, func(session *models.Session) (mutation, error) {
		var m mutation
		if req.Month != nil {
			session.BillingMonth = *req.Month
		}
		if req.SessionDate != nil {
			date, err := time.Parse(dateLayout, *req.SessionDate)
			if err != nil {
				return m, validationError("invalid session date %q", *req.SessionDate)
			}
			if !date.Equal(session.SessionDate) {
				m.changes = append(m.changes, "sessionDate")
			}
			session.SessionDate = date
		}
		if req.Notes != nil {
			session.Notes = *req.Notes
		}
		if req.Subject != nil {
			session.Subject = strings.TrimSpace(*req.Subject)
		}

		if req.Sessions != nil || req.HoursPerSession != nil {
			ratio := money.DivHours(session.Hours, session.Sessions)
			if req.HoursPerSession != nil {
				ratio = *req.HoursPerSession
			}
			if req.Sessions != nil {
				session.Sessions = *req.Sessions
			}
			session.Hours = money.MulHours(ratio, session.Sessions)
		}

		if req.StartTime != nil {
			start, err := normaliseClock(*req.StartTime)
			if err != nil {
				return m, err
			}
			if !sameClock(start, session.StartTime) {
				m.changes = append(m.changes, "startTime")
			}
			session.StartTime = start
		}
		if req.EndTime != nil {
			end, err := normaliseClock(*req.EndTime)
			if err != nil {
				return m, err
			}
			if !sameClock(end, session.EndTime) {
				m.changes = append(m.changes, "endTime")
			}
			session.EndTime = end
		}
		minutes, ok, err := spanMinutes(session.StartTime, session.EndTime)
		if err != nil {
			return m, err
		}
		if ok {
			session.Hours = money.HoursFromMinutes(minutes)
		}
		if session.Hours <= 0 {
			return m, validationError("hours must be positive")
		}
		if ok {
			session.TotalAmount = money.AmountForMinutes(minutes, session.PricePerHour)
		} else {
			session.TotalAmount = money.Amount(session.Hours, session.PricePerHour)
		}

		if req.Status != nil && next != session.Status {
			if err := lifecycle.Validate(session.Status, next); err != nil {
				return m, statusError(err)
			}
			s.enterStatus(session, next)
			m.changes = append(m.changes, "status")
		}

		if req.LessonIDs != nil || req.DocumentIDs != nil {
			current, err := s.store.ListAttachments(ctx, session.ID)
			if err != nil {
				return m, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session attachments")
			}
			session.Attachments = mergeAttachments(current, req.LessonIDs, req.DocumentIDs)
			m.replaceAttachments = true
		}
		return m, nil
	})
}

// Duplicate copies a session one week later as a fresh, unpaid, scheduled record.
func (s *SessionService) Duplicate(ctx context.Context, id string) (dup *models.Session, err error) {
	defer func() { s.metrics.RecordSessionMutation("duplicate", outcome(err)) }()

	original, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, sessionNotFound(err)
	}
	attachments, err := s.store.ListAttachments(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session attachments")
	}

	dup = &models.Session{
		StudentID:    original.StudentID,
		StudentName:  original.StudentName,
		BillingMonth: original.BillingMonth,
		SessionDate:  original.SessionDate.AddDate(0, 0, duplicateAfterDays),
		StartTime:    copyClock(original.StartTime),
		EndTime:      copyClock(original.EndTime),
		Sessions:     original.Sessions,
		Hours:        original.Hours,
		PricePerHour: original.PricePerHour,
		TotalAmount:  original.TotalAmount,
		Status:       models.SessionStatusScheduled,
		Subject:      original.Subject,
		Notes:        original.Notes,
	}
	for _, a := range attachments {
		dup.Attachments = append(dup.Attachments, models.Attachment{ResourceType: a.ResourceType, ResourceID: a.ResourceID})
	}

	if err := s.store.Create(ctx, dup); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to duplicate session")
	}
	s.afterWrite(ctx)
	s.logger.Info("session duplicated", zap.String("source_id", id), zap.String("session_id", dup.ID))
	s.publish(ctx, models.EventSessionCreated, dup, nil)
	return dup, nil
}

// Delete removes one session.
func (s *SessionService) Delete(ctx context.Context, id string) (err error) {
	defer func() { s.metrics.RecordSessionMutation("delete", outcome(err)) }()

	if err := s.store.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete session")
	}
	s.afterWrite(ctx)
	s.logger.Info("session deleted", zap.String("session_id", id))
	return nil
}

// DeleteByMonth removes every session of a billing month regardless of status.
func (s *SessionService) DeleteByMonth(ctx context.Context, month string) (deleted int64, err error) {
	defer func() { s.metrics.RecordSessionMutation("delete_month", outcome(err)) }()

	if _, perr := time.Parse(monthLayout, month); perr != nil {
		return 0, validationError("month must be YYYY-MM, got %q", month)
	}
	deleted, err = s.store.DeleteByMonth(ctx, month)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete sessions")
	}
	s.afterWrite(ctx)
	s.logger.Warn("sessions deleted by month", zap.String("month", month), zap.Int64("deleted", deleted))
	return deleted, nil
}

type mutation struct {
	changes            []string
	replaceAttachments bool
	skip               bool
}

// mutate runs one read-check-apply-write cycle. The write only lands if the
// stored version still equals the version read here.
func (s *SessionService) mutate(ctx context.Context, op, id string, expected *int, apply func(*models.Session) (mutation, error)) (session *models.Session, err error) {
	defer func() { s.metrics.RecordSessionMutation(op, outcome(err)) }()

	session, err = s.store.GetByID(ctx, id)
	if err != nil {
		return nil, sessionNotFound(err)
	}
	if expected != nil && *expected != session.Version {
		s.metrics.RecordVersionConflict(op)
		return nil, concurrentModification(id, *expected, session.Version)
	}
	read := session.Version

	m, err := apply(session)
	if err != nil {
		return nil, err
	}
	if m.skip {
		return session, nil
	}

	err = s.store.Update(ctx, repository.UpdateSessionParams{Session: session, ExpectedVersion: read, ReplaceAttachments: m.replaceAttachments})
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update session")
		}
		current, verr := s.store.GetVersion(ctx, id)
		if verr != nil {
			return nil, sessionNotFound(verr)
		}
		s.metrics.RecordVersionConflict(op)
		return nil, concurrentModification(id, read, current)
	}

	s.afterWrite(ctx)
	s.logger.Info("session updated",
		zap.String("op", op),
		zap.String("session_id", id),
		zap.String("status", string(session.Status)),
		zap.Int("version", session.Version))
	if len(m.changes) > 0 {
		s.publish(ctx, models.EventSessionRescheduled, session, m.changes)
	}
	return session, nil
}

// enterStatus applies the flags implied by a status.
func (s *SessionService) enterStatus(session *models.Session, status models.SessionStatus) {
	session.Status = status
	switch status {
	case models.SessionStatusPaid:
		session.Paid = true
		session.Completed = true
		if session.PaidAt == nil {
			now := s.now().UTC()
			session.PaidAt = &now
		}
	case models.SessionStatusCompleted, models.SessionStatusPendingPayment:
		session.Completed = true
	}
}

func (s *SessionService) afterWrite(ctx context.Context) {
	if s.stats == nil {
		return
	}
	if err := s.stats.InvalidateStats(ctx); err != nil {
		s.logger.Warn("stats cache eviction failed", zap.Error(err))
	}
}

func (s *SessionService) publish(ctx context.Context, kind models.EventType, session *models.Session, changes []string) {
	s.events.Publish(ctx, models.SessionEvent{
		Type:        kind,
		SessionID:   session.ID,
		StudentID:   session.StudentID,
		SessionDate: session.SessionDate,
		StartTime:   copyClock(session.StartTime),
		EndTime:     copyClock(session.EndTime),
		Status:      session.Status,
		Changes:     changes,
		OccurredAt:  s.now().UTC(),
	})
}

// normaliseClock accepts HH:MM or HH:MM:SS and returns HH:MM. Blank means unset.
func normaliseClock(raw string) (*string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{clockLayout, "15:04:05"} {
		if t, err := time.Parse(layout, raw); err == nil {
			out := t.Format(clockLayout)
			return &out, nil
		}
	}
	return nil, validationError("invalid time %q, expected HH:MM", raw)
}

// spanMinutes measures a start/end pair in whole minutes. An end before the
// start is taken as the next day. ok is false when either side is missing or
// the span is empty.
func spanMinutes(start, end *string) (minutes int64, ok bool, err error) {
	if start == nil || end == nil {
		return 0, false, nil
	}
	from, err := time.Parse(clockLayout, *start)
	if err != nil {
		return 0, false, validationError("invalid start time %q", *start)
	}
	to, err := time.Parse(clockLayout, *end)
	if err != nil {
		return 0, false, validationError("invalid end time %q", *end)
	}
	d := to.Sub(from)
	if d < 0 {
		d += 24 * time.Hour
	}
	if d == 0 {
		return 0, false, nil
	}
	return int64(d / time.Minute), true, nil
}

func sameClock(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func copyClock(v *string) *string {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}

// mergeAttachments replaces the lesson and/or document part of current with the
// provided id lists. A nil list keeps that part as is.
func mergeAttachments(current []models.Attachment, lessonIDs, documentIDs *[]string) []models.Attachment {
	out := make([]models.Attachment, 0, len(current))
	keep := func(kind models.AttachmentType, ids *[]string) {
		if ids == nil {
			for _, a := range current {
				if a.ResourceType == kind {
					out = append(out, models.Attachment{ResourceType: kind, ResourceID: a.ResourceID})
				}
			}
			return
		}
		seen := make(map[string]struct{}, len(*ids))
		for _, id := range *ids {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, models.Attachment{ResourceType: kind, ResourceID: id})
		}
	}
	keep(models.AttachmentLesson, lessonIDs)
	keep(models.AttachmentDocument, documentIDs)
	return out
}

func placeholderAttachments(_ context.Context, attachments []models.Attachment) ([]models.ResolvedAttachment, error) {
	out := make([]models.ResolvedAttachment, 0, len(attachments))
	for _, a := range attachments {
		title := fmt.Sprintf("%s %s", strings.ToLower(string(a.ResourceType)), a.ResourceID)
		out = append(out, models.ResolvedAttachment{Attachment: a, Title: title})
	}
	return out, nil
}
