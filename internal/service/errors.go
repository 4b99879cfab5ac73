package service

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/longtq2501/Tutor-Pro-sub000/internal/lifecycle"
	appErrors "github.com/longtq2501/Tutor-Pro-sub000/pkg/errors"
)

// ConcurrentModificationError is returned when a write was based on a stale
// version of a session.
type ConcurrentModificationError struct {
	SessionID string
	Expected  int
	Current   int
}

func (e *ConcurrentModificationError) Error() string {
	return fmt.Sprintf("session %s was modified by someone else: expected version %d, current version %d",
		e.SessionID, e.Expected, e.Current)
}

// NoBillableSessionsError means an invoice request resolved to nothing billable.
type NoBillableSessionsError struct {
	Criteria string
}

func (e *NoBillableSessionsError) Error() string {
	return fmt.Sprintf("no billable sessions for %s", e.Criteria)
}

func concurrentModification(id string, expected, current int) error {
	cause := &ConcurrentModificationError{SessionID: id, Expected: expected, Current: current}
	return appErrors.WithDetails(appErrors.ErrConcurrentModification, cause, cause.Error(), map[string]interface{}{
		"expectedVersion": expected,
		"currentVersion":  current,
	})
}

func noBillableSessions(criteria string) error {
	cause := &NoBillableSessionsError{Criteria: criteria}
	return appErrors.WithDetails(appErrors.ErrNoBillableSessions, cause, cause.Error(), map[string]interface{}{
		"criteria": criteria,
	})
}

// statusError maps lifecycle failures onto API errors.
func statusError(err error) error {
	var transition *lifecycle.InvalidTransitionError
	if errors.As(err, &transition) {
		allowed := make([]string, len(transition.Allowed))
		for i, s := range transition.Allowed {
			allowed[i] = string(s)
		}
		return appErrors.WithDetails(appErrors.ErrInvalidTransition, transition, transition.Error(), map[string]interface{}{
			"from":    string(transition.From),
			"to":      string(transition.To),
			"allowed": allowed,
		})
	}
	var unknown *lifecycle.UnknownStatusError
	if errors.As(err, &unknown) {
		return appErrors.WithDetails(appErrors.ErrValidation, unknown, unknown.Error(), nil)
	}
	return err
}

func validationError(format string, args ...interface{}) error {
	return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf(format, args...))
}

func sessionNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, "session not found")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
}

// outcome labels a result for metrics.
func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return appErrors.FromError(err).Code
}
