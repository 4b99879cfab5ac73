// Package lifecycle holds the status graph of a teaching session. The table
// below is the only place legal transitions are defined.
package lifecycle

import (
	"fmt"
	"strings"

	"github.com/longtq2501/Tutor-Pro-sub000/internal/models"
)

var transitionsTable = []struct {
	From models.SessionStatus
	To   []models.SessionStatus
}{
	{
		From: models.SessionStatusScheduled,
		To: []models.SessionStatus{
			models.SessionStatusConfirmed,
			models.SessionStatusCompleted,
			models.SessionStatusPaid,
			models.SessionStatusCancelledByTutor,
			models.SessionStatusCancelledByStudent,
		},
	},
	{
		From: models.SessionStatusConfirmed,
		To: []models.SessionStatus{
			models.SessionStatusCompleted,
			models.SessionStatusPaid,
			models.SessionStatusCancelledByTutor,
			models.SessionStatusCancelledByStudent,
		},
	},
	{
		From: models.SessionStatusCompleted,
		To: []models.SessionStatus{
			models.SessionStatusPaid,
			models.SessionStatusPendingPayment,
			models.SessionStatusCancelledByTutor,
			models.SessionStatusCancelledByStudent,
			models.SessionStatusConfirmed,
		},
	},
	{
		From: models.SessionStatusPendingPayment,
		To: []models.SessionStatus{
			models.SessionStatusPaid,
			models.SessionStatusCompleted,
			models.SessionStatusCancelledByTutor,
			models.SessionStatusCancelledByStudent,
		},
	},
	{
		From: models.SessionStatusPaid,
		To: []models.SessionStatus{
			models.SessionStatusCompleted,
			models.SessionStatusCancelledByTutor,
			models.SessionStatusCancelledByStudent,
		},
	},
	// Re-booking is the only way out of a cancellation.
	{From: models.SessionStatusCancelledByStudent, To: []models.SessionStatus{models.SessionStatusScheduled}},
	{From: models.SessionStatusCancelledByTutor, To: []models.SessionStatus{models.SessionStatusScheduled}},
}

var edges = buildEdges()

func buildEdges() map[models.SessionStatus]map[models.SessionStatus]struct{} {
	out := make(map[models.SessionStatus]map[models.SessionStatus]struct{}, len(transitionsTable))
	for _, row := range transitionsTable {
		targets := make(map[models.SessionStatus]struct{}, len(row.To))
		for _, to := range row.To {
			targets[to] = struct{}{}
		}
		out[row.From] = targets
	}
	return out
}

// InvalidTransitionError reports an edge missing from the status graph.
type InvalidTransitionError struct {
	From    models.SessionStatus
	To      models.SessionStatus
	Allowed []models.SessionStatus
}

func (e *InvalidTransitionError) Error() string {
	allowed := make([]string, len(e.Allowed))
	for i, s := range e.Allowed {
		allowed[i] = string(s)
	}
	return fmt.Sprintf("cannot change status from %s to %s (allowed: %s)", e.From, e.To, strings.Join(allowed, ", "))
}

// UnknownStatusError is returned for a value outside the status set.
type UnknownStatusError struct {
	Value string
}

func (e *UnknownStatusError) Error() string {
	return fmt.Sprintf("unknown session status %q", e.Value)
}

// Statuses lists every state in table order.
func Statuses() []models.SessionStatus {
	out := make([]models.SessionStatus, len(transitionsTable))
	for i, row := range transitionsTable {
		out[i] = row.From
	}
	return out
}

// IsKnown reports whether status is part of the graph.
func IsKnown(status models.SessionStatus) bool {
	_, ok := edges[status]
	return ok
}

// Parse normalises raw input into a known status.
func Parse(raw string) (models.SessionStatus, error) {
	status := models.SessionStatus(strings.ToUpper(strings.TrimSpace(raw)))
	if !IsKnown(status) {
		return "", &UnknownStatusError{Value: raw}
	}
	return status, nil
}

// Allowed returns the targets reachable from one step away, in table order.
// The result is a copy and may be modified by the caller.
func Allowed(from models.SessionStatus) []models.SessionStatus {
	for _, row := range transitionsTable {
		if row.From == from {
			return append([]models.SessionStatus(nil), row.To...)
		}
	}
	return nil
}

// Validate checks a single status change. A self-loop is a legal no-op.
func Validate(from, to models.SessionStatus) error {
	if !IsKnown(from) {
		return &UnknownStatusError{Value: string(from)}
	}
	if !IsKnown(to) {
		return &UnknownStatusError{Value: string(to)}
	}
	if from == to {
		return nil
	}
	if _, ok := edges[from][to]; ok {
		return nil
	}
	return &InvalidTransitionError{From: from, To: to, Allowed: Allowed(from)}
}

// IsCancelled reports whether status means the session never happened for billing.
func IsCancelled(status models.SessionStatus) bool {
	return status == models.SessionStatusCancelledByTutor || status == models.SessionStatusCancelledByStudent
}

// CancelledStatuses lists the states excluded from billing.
func CancelledStatuses() []models.SessionStatus {
	return []models.SessionStatus{models.SessionStatusCancelledByTutor, models.SessionStatusCancelledByStudent}
}
