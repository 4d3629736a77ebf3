// Package intensity holds the effort scoring formulas. Everything in here is
// a pure function over a session and an athlete profile, so the same inputs
// always produce the same score.
package intensity

import (
	"math"
	"time"
)

const (
	// DefaultScale puts plain scores in a human readable 0-100 range.
	DefaultScale = 100

	// banisterExponent is the weighting factor from the Banister TRIMP model.
	banisterExponent = 1.92
)

// Profile carries the athlete constants the formulas need. MaxHeartRate may
// be left at zero, in which case the Tanaka estimate from Age is used.
type Profile struct {
	Age              int
	RestingHeartRate float64
	MaxHeartRate     float64
	Scale            float64
}

// EffectiveMaxHR returns the measured max heart rate, falling back to the
// Tanaka estimate when no measured value is configured.
func (p Profile) EffectiveMaxHR() float64 {
	if p.MaxHeartRate > 0 {
		return p.MaxHeartRate
	}
	return EstimateMaxHR(p.Age)
}

func (p Profile) scale() float64 {
	if p.Scale > 0 {
		return p.Scale
	}
	return DefaultScale
}

// Session is the slice of an activity the formulas care about. The average
// heart rate is optional: the tracker omits it for sessions recorded without
// a HR monitor, and a missing reading must degrade to a zero contribution
// instead of failing the whole computation.
type Session struct {
	AverageHeartRate *float64
	MovingTime       time.Duration
	ElapsedTime      time.Duration
}

// Score computes the effort score of a session:
//
//	hrRatio = avgHR / maxHR   (0 when avgHR is absent)
//	density = movingTime / elapsedTime   (0 when elapsedTime is 0)
//	score   = hrRatio * density * scale
//
// The result is always >= 0 and never an error.
func Score(s Session, p Profile) float64 {
	hrRatio := 0.0
	if s.AverageHeartRate != nil && p.EffectiveMaxHR() > 0 {
		hrRatio = *s.AverageHeartRate / p.EffectiveMaxHR()
	}

	density := 0.0
	if s.ElapsedTime > 0 {
		density = s.MovingTime.Seconds() / s.ElapsedTime.Seconds()
	}

	score := hrRatio * density * p.scale()
	if score < 0 {
		return 0
	}
	return score
}

// TRIMP computes the Banister training impulse of a session:
//
//	minutes * reserveRatio * exp(1.92 * reserveRatio)
//
// with the Karvonen heart rate reserve ratio
// (avgHR - restHR) / (maxHR - restHR), clamped at zero.
// Sessions without a HR reading score zero.
func TRIMP(s Session, p Profile) float64 {
	minutes := s.MovingTime.Minutes()
	if minutes <= 0 || s.AverageHeartRate == nil {
		return 0
	}

	r := reserveRatio(*s.AverageHeartRate, p)
	trimp := minutes * r * math.Exp(banisterExponent*r)
	if trimp < 0 {
		return 0
	}
	return trimp
}

// Zone maps an average heart rate to the Karvonen zones 1-5, cut off at
// reserve ratios 0.6 / 0.7 / 0.8 / 0.9. Returns 0 when the reading is absent.
func Zone(avgHR *float64, p Profile) int {
	if avgHR == nil {
		return 0
	}

	r := reserveRatio(*avgHR, p)
	switch {
	case r < 0.6:
		return 1
	case r < 0.7:
		return 2
	case r < 0.8:
		return 3
	case r < 0.9:
		return 4
	default:
		return 5
	}
}

// EstimateMaxHR estimates the max heart rate using the Tanaka formula.
func EstimateMaxHR(age int) float64 {
	return 208 - 0.7*float64(age)
}

func reserveRatio(avgHR float64, p Profile) float64 {
	reserve := p.EffectiveMaxHR() - p.RestingHeartRate
	if reserve <= 0 {
		return 0
	}
	r := (avgHR - p.RestingHeartRate) / reserve
	if r < 0 {
		return 0
	}
	return r
}
