// Package money holds the VND arithmetic used for session pricing. Amounts are
// whole dong. Hours are stored to four decimal places and shown to two.
package money

import "github.com/shopspring/decimal"

const hourPlaces = 4

var minutesPerHour = decimal.NewFromInt(60)

// Amount returns round(hours * rate) in whole dong, half away from zero.
func Amount(hours float64, pricePerHour int64) int64 {
	return decimal.NewFromFloat(hours).
		Mul(decimal.NewFromInt(pricePerHour)).
		Round(0).
		IntPart()
}

// AmountForMinutes returns round(minutes * rate / 60) without passing through a
// rounded hour value.
func AmountForMinutes(minutes, pricePerHour int64) int64 {
	return decimal.NewFromInt(minutes).
		Mul(decimal.NewFromInt(pricePerHour)).
		Div(minutesPerHour).
		Round(0).
		IntPart()
}

// HoursFromMinutes converts a span to stored hours.
func HoursFromMinutes(minutes int64) float64 {
	return decimal.NewFromInt(minutes).Div(minutesPerHour).Round(hourPlaces).InexactFloat64()
}

// RoundHours normalises an hour value to two decimal places for display.
func RoundHours(hours float64) float64 {
	return decimal.NewFromFloat(hours).Round(2).InexactFloat64()
}

// MulHours returns perSession * count at storage precision.
func MulHours(perSession float64, count int) float64 {
	return decimal.NewFromFloat(perSession).Mul(decimal.NewFromInt(int64(count))).Round(hourPlaces).InexactFloat64()
}

// DivHours returns total / count at storage precision. A non-positive count
// yields total unchanged.
func DivHours(total float64, count int) float64 {
	if count <= 0 {
		return decimal.NewFromFloat(total).Round(hourPlaces).InexactFloat64()
	}
	return decimal.NewFromFloat(total).Div(decimal.NewFromInt(int64(count))).Round(hourPlaces).InexactFloat64()
}

// SumHours adds hour values without float drift and rounds the total for display.
func SumHours(values ...float64) float64 {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(decimal.NewFromFloat(v))
	}
	return total.Round(2).InexactFloat64()
}
