package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAmount(t *testing.T) {
	cases := []struct {
		name  string
		hours float64
		rate  int64
		want  int64
	}{
		{"whole hours", 2, 200000, 400000},
		{"half hour", 1.5, 150000, 225000},
		{"rounds half up", 0.5, 3, 2},
		{"rounds down", 1.33, 100, 133},
		{"float drift", 0.1 * 3, 1000000, 300000},
		{"zero", 0, 200000, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Amount(tc.hours, tc.rate))
		})
	}
}

func TestHourHelpers(t *testing.T) {
	assert.Equal(t, 4.5, MulHours(1.5, 3))
	assert.Equal(t, 0.6667, DivHours(2, 3))
	assert.Equal(t, 2.0, DivHours(2, 0))
	assert.Equal(t, 0.3, SumHours(0.1, 0.2))
	assert.Equal(t, 1.33, RoundHours(1.333))
}

func TestAmountForMinutes(t *testing.T) {
	cases := []struct {
		minutes int64
		want    int64
	}{
		{100, 333333},
		{50, 166667},
		{80, 266667},
		{40, 133333},
		{90, 300000},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, AmountForMinutes(tc.minutes, 200000), "%d minutes", tc.minutes)
	}
	assert.Equal(t, 1.6667, HoursFromMinutes(100))
	assert.Equal(t, 1.5, HoursFromMinutes(90))
}
