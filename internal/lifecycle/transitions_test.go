package lifecycle

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/longtq2501/Tutor-Pro-sub000/internal/models"
)

var expectedGraph = map[models.SessionStatus][]models.SessionStatus{
	models.SessionStatusScheduled:          {"CONFIRMED", "COMPLETED", "PAID", "CANCELLED_BY_TUTOR", "CANCELLED_BY_STUDENT"},
	models.SessionStatusConfirmed:          {"COMPLETED", "PAID", "CANCELLED_BY_TUTOR", "CANCELLED_BY_STUDENT"},
	models.SessionStatusCompleted:          {"PAID", "PENDING_PAYMENT", "CANCELLED_BY_TUTOR", "CANCELLED_BY_STUDENT", "CONFIRMED"},
	models.SessionStatusPendingPayment:     {"PAID", "COMPLETED", "CANCELLED_BY_TUTOR", "CANCELLED_BY_STUDENT"},
	models.SessionStatusPaid:               {"COMPLETED", "CANCELLED_BY_TUTOR", "CANCELLED_BY_STUDENT"},
	models.SessionStatusCancelledByStudent: {"SCHEDULED"},
	models.SessionStatusCancelledByTutor:   {"SCHEDULED"},
}

func TestValidateEveryPair(t *testing.T) {
	require.Len(t, Statuses(), 7)
	for _, from := range Statuses() {
		allowed := map[models.SessionStatus]bool{}
		for _, to := range expectedGraph[from] {
			allowed[to] = true
		}
		for _, to := range Statuses() {
			err := Validate(from, to)
			switch {
			case from == to:
				assert.NoError(t, err, "%s self-loop", from)
			case allowed[to]:
				assert.NoError(t, err, "%s -> %s", from, to)
			default:
				var transitionErr *InvalidTransitionError
				require.True(t, errors.As(err, &transitionErr), "%s -> %s", from, to)
				assert.Equal(t, from, transitionErr.From)
				assert.Equal(t, to, transitionErr.To)
				assert.Equal(t, expectedGraph[from], transitionErr.Allowed)
			}
		}
	}
}

func TestValidateUnknownStatus(t *testing.T) {
	var unknown *UnknownStatusError
	assert.True(t, errors.As(Validate("SCHEDULED", "ARCHIVED"), &unknown))
	assert.Equal(t, "ARCHIVED", unknown.Value)
	assert.True(t, errors.As(Validate("", "PAID"), &unknown))
}

func TestAllowedReturnsCopy(t *testing.T) {
	first := Allowed(models.SessionStatusPaid)
	first[0] = "MUTATED"
	assert.Equal(t, models.SessionStatusCompleted, Allowed(models.SessionStatusPaid)[0])
	assert.Nil(t, Allowed("NOPE"))
}

func TestParse(t *testing.T) {
	status, err := Parse(" pending_payment ")
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusPendingPayment, status)

	_, err = Parse("done")
	assert.Error(t, err)
}

func TestCancelledBookingOnlyReschedules(t *testing.T) {
	assert.NoError(t, Validate(models.SessionStatusCancelledByTutor, models.SessionStatusScheduled))
	err := Validate(models.SessionStatusCancelledByTutor, models.SessionStatusPaid)
	assert.Contains(t, err.Error(), "allowed: SCHEDULED")
	assert.True(t, IsCancelled(models.SessionStatusCancelledByStudent))
	assert.False(t, IsCancelled(models.SessionStatusPaid))
}
