package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/longtq2501/Tutor-Pro-sub000/internal/dto"
	"github.com/longtq2501/Tutor-Pro-sub000/internal/lifecycle"
	"github.com/longtq2501/Tutor-Pro-sub000/internal/models"
	appErrors "github.com/longtq2501/Tutor-Pro-sub000/pkg/errors"
)

const (
	calendarProductID = "-//Tutor Pro//Sessions//VI"
	calendarUIDDomain = "tutor-pro"
)

// CalendarService publishes a month of sessions as an iCalendar feed.
type CalendarService struct {
	sessions  reportSessionSource
	name      string
	location  *time.Location
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewCalendarService constructs the feed builder. Clock times are read in loc.
func NewCalendarService(sessions reportSessionSource, name string, loc *time.Location, validate *validator.Validate, logger *zap.Logger) *CalendarService {
	if loc == nil {
		loc = time.UTC
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CalendarService{
		sessions:  sessions,
		name:      name,
		location:  loc,
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
}

// Feed serialises the month's non-cancelled sessions. Sessions without both
// clock times become all-day events.
func (s *CalendarService) Feed(ctx context.Context, query dto.CalendarQuery) (string, error) {
	if err := s.validator.Struct(query); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid calendar query")
	}
	sessions, err := s.sessions.FindByMonth(ctx, query.Month)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load sessions for calendar")
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(calendarProductID)
	if s.name != "" {
		cal.SetXWRCalName(s.name)
	}
	cal.SetXWRTimezone(s.location.String())

	stamp := s.now().UTC()
	published := 0
	for i := range sessions {
		session := &sessions[i]
		if lifecycle.IsCancelled(session.Status) {
			continue
		}
		s.addEvent(cal, session, stamp)
		published++
	}
	s.logger.Debug("calendar feed built", zap.String("month", query.Month), zap.Int("events", published))
	return cal.Serialize(), nil
}

func (s *CalendarService) addEvent(cal *ics.Calendar, session *models.Session, stamp time.Time) {
	event := cal.AddEvent(session.ID + "@" + calendarUIDDomain)
	event.SetDtStampTime(stamp)
	event.SetModifiedAt(session.UpdatedAt)
	event.SetSummary(eventSummary(session))
	event.SetDescription(eventDescription(session))
	if session.Status == models.SessionStatusScheduled {
		event.SetStatus(ics.ObjectStatusTentative)
	} else {
		event.SetStatus(ics.ObjectStatusConfirmed)
	}

	start, end, timed := s.eventSpan(session)
	if !timed {
		event.SetAllDayStartAt(start)
		event.SetAllDayEndAt(start.AddDate(0, 0, 1))
		return
	}
	event.SetStartAt(start)
	event.SetEndAt(end)
}

// eventSpan places the clock times on the session date in the feed location.
// An end at or before the start rolls over to the next day.
func (s *CalendarService) eventSpan(session *models.Session) (time.Time, time.Time, bool) {
	y, m, d := session.SessionDate.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, s.location)
	if session.StartTime == nil || session.EndTime == nil {
		return day, day, false
	}
	start, okStart := clockOn(day, *session.StartTime)
	end, okEnd := clockOn(day, *session.EndTime)
	if !okStart || !okEnd {
		return day, day, false
	}
	if !end.After(start) {
		end = end.AddDate(0, 0, 1)
	}
	return start, end, true
}

func clockOn(day time.Time, clock string) (time.Time, bool) {
	normalised, err := normaliseClock(clock)
	if err != nil || normalised == nil {
		return time.Time{}, false
	}
	parsed, err := time.Parse(clockLayout, *normalised)
	if err != nil {
		return time.Time{}, false
	}
	return day.Add(time.Duration(parsed.Hour())*time.Hour + time.Duration(parsed.Minute())*time.Minute), true
}

func eventSummary(session *models.Session) string {
	subject := strings.TrimSpace(session.Subject)
	if subject == "" {
		return session.StudentName
	}
	return fmt.Sprintf("%s - %s", subject, session.StudentName)
}

func eventDescription(session *models.Session) string {
	lines := []string{
		fmt.Sprintf("Số buổi: %d", session.Sessions),
		fmt.Sprintf("Số giờ: %s", strconv.FormatFloat(session.Hours, 'f', -1, 64)),
		fmt.Sprintf("Trạng thái: %s", session.Status),
	}
	if session.Notes != "" {
		lines = append(lines, session.Notes)
	}
	return strings.Join(lines, "\n")
}
