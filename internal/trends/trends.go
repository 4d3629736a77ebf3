// Package trends buckets scored activities into calendar series and
// computes the summary numbers the dashboard renders. All functions are
// pure: they take a slice of scored activities and return fresh values.
package trends

import (
	"sort"
	"time"
)

// ScoredActivity is the slice of an activity the aggregations need.
// The caller scores activities up front so bucketing stays decoupled
// from where the activities came from.
type ScoredActivity struct {
	StartDate  time.Time     `json:"startDate"`
	Score      float64       `json:"score"`
	TRIMP      float64       `json:"trimp"`
	Zone       int           `json:"zone"`
	MovingTime time.Duration `json:"movingTime"`
}

// Point is one chart sample: the bucket start and the aggregated value.
type Point struct {
	BucketStart time.Time `json:"bucketStart"`
	Value       float64   `json:"value"`
}

// Daily returns the unweighted mean score per calendar day (UTC midnight
// keys). Days without activities are omitted. Empty input yields an
// empty map.
func Daily(scored []ScoredActivity) map[time.Time]float64 {
	day2scored := make(map[time.Time][]ScoredActivity)
	for _, sa := range scored {
		day := dayOf(sa.StartDate)
		day2scored[day] = append(day2scored[day], sa)
	}

	daily := make(map[time.Time]float64, len(day2scored))
	for day, dayScored := range day2scored {
		daily[day] = meanScore(dayScored)
	}
	return daily
}

// Weekly returns the unweighted mean score per ISO week, keyed by the
// Monday of the week (UTC midnight). Weeks without activities are
// omitted. Empty input yields an empty map.
func Weekly(scored []ScoredActivity) map[time.Time]float64 {
	week2scored := make(map[time.Time][]ScoredActivity)
	for _, sa := range scored {
		week := weekStartOf(sa.StartDate)
		week2scored[week] = append(week2scored[week], sa)
	}

	weekly := make(map[time.Time]float64, len(week2scored))
	for week, weekScored := range week2scored {
		weekly[week] = meanScore(weekScored)
	}
	return weekly
}

// WeeklyTRIMPTotals sums the training impulse per ISO week, keyed by the
// Monday of the week.
func WeeklyTRIMPTotals(scored []ScoredActivity) map[time.Time]float64 {
	totals := make(map[time.Time]float64)
	for _, sa := range scored {
		totals[weekStartOf(sa.StartDate)] += sa.TRIMP
	}
	return totals
}

// MonthlyTRIMPTotals sums the training impulse per calendar month, keyed
// by the first of the month (UTC midnight).
func MonthlyTRIMPTotals(scored []ScoredActivity) map[time.Time]float64 {
	totals := make(map[time.Time]float64)
	for _, sa := range scored {
		totals[monthStartOf(sa.StartDate)] += sa.TRIMP
	}
	return totals
}

// ZoneDistribution counts sessions per heart rate zone. Zone 0 holds the
// sessions recorded without a heart rate reading.
func ZoneDistribution(scored []ScoredActivity) map[int]int {
	dist := make(map[int]int)
	for _, sa := range scored {
		dist[sa.Zone]++
	}
	return dist
}

// Series turns a bucket map into a chronologically ordered slice of
// points, the shape the chart consumer expects.
func Series(buckets map[time.Time]float64) []Point {
	points := make([]Point, 0, len(buckets))
	for bucketStart, value := range buckets {
		points = append(points, Point{BucketStart: bucketStart, Value: value})
	}
	sort.Slice(points, func(i, j int) bool {
		return points[i].BucketStart.Before(points[j].BucketStart)
	})
	return points
}

// RollingAverage smooths an ordered series with a trailing window mean.
// The first window-1 points average whatever is available so far, the
// way the original rolling trend lines behave. A window below 2 returns
// the input unchanged.
func RollingAverage(points []Point, window int) []Point {
	if window < 2 || len(points) == 0 {
		return points
	}

	smoothed := make([]Point, len(points))
	for i := range points {
		from := i - window + 1
		if from < 0 {
			from = 0
		}
		var sum float64
		for _, p := range points[from : i+1] {
			sum += p.Value
		}
		smoothed[i] = Point{
			BucketStart: points[i].BucketStart,
			Value:       sum / float64(i+1-from),
		}
	}
	return smoothed
}

// Streaks returns the longest run of consecutive training days and the
// streak still running at now. The current streak survives a rest day
// only if the last training day was today or yesterday.
func Streaks(scored []ScoredActivity, now time.Time) (longest, current int) {
	if len(scored) == 0 {
		return 0, 0
	}

	daySet := make(map[time.Time]struct{})
	for _, sa := range scored {
		daySet[dayOf(sa.StartDate)] = struct{}{}
	}
	days := make([]time.Time, 0, len(daySet))
	for day := range daySet {
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	run := 1
	longest = 1
	for i := 1; i < len(days); i++ {
		if days[i].Sub(days[i-1]) == 24*time.Hour {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
	}

	lastDay := days[len(days)-1]
	if dayOf(now).Sub(lastDay) > 24*time.Hour {
		return longest, 0
	}
	return longest, run
}

// Summary is the KPI block shown at the top of the dashboard.
type Summary struct {
	TotalWorkouts     int           `json:"totalWorkouts"`
	MeanScore         float64       `json:"meanScore"`
	MaxScore          float64       `json:"maxScore"`
	TotalTRIMP        float64       `json:"totalTrimp"`
	TotalMovingTime   time.Duration `json:"totalMovingTime"`
	LongestSession    time.Duration `json:"longestSession"`
	LongestStreakDays int           `json:"longestStreakDays"`
	CurrentStreakDays int           `json:"currentStreakDays"`
}

// Summarize computes the KPI block over all scored activities.
func Summarize(scored []ScoredActivity, now time.Time) Summary {
	summary := Summary{TotalWorkouts: len(scored)}
	if len(scored) == 0 {
		return summary
	}

	for _, sa := range scored {
		summary.TotalTRIMP += sa.TRIMP
		summary.TotalMovingTime += sa.MovingTime
		if sa.Score > summary.MaxScore {
			summary.MaxScore = sa.Score
		}
		if sa.MovingTime > summary.LongestSession {
			summary.LongestSession = sa.MovingTime
		}
	}
	summary.MeanScore = meanScore(scored)
	summary.LongestStreakDays, summary.CurrentStreakDays = Streaks(scored, now)

	return summary
}

func meanScore(scored []ScoredActivity) float64 {
	var sum float64
	for _, sa := range scored {
		sum += sa.Score
	}
	return sum / float64(len(scored))
}

func dayOf(t time.Time) time.Time {
	return t.UTC().Truncate(24 * time.Hour)
}

func monthStartOf(t time.Time) time.Time {
	day := t.UTC()
	return time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// weekStartOf returns the Monday (UTC midnight) of the ISO week t falls in.
func weekStartOf(t time.Time) time.Time {
	day := dayOf(t)
	weekday := int(day.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	return day.AddDate(0, 0, 1-weekday)
}
