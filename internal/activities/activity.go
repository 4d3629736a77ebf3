package activities

import (
	"time"

	"github.com/andrewwb/trainsight/internal/intensity"
	"github.com/andrewwb/trainsight/internal/strava"
	"github.com/andrewwb/trainsight/internal/trends"
)

// Activity is a stored training session. StravaID is unique, syncing the
// same activity twice keeps a single row.
type Activity struct {
	ID               int           `json:"id"`
	StravaID         int64         `json:"stravaId"`
	Name             string        `json:"name"`
	SportType        string        `json:"sportType"`
	StartDate        time.Time     `json:"startDate"`
	ElapsedTime      time.Duration `json:"elapsedTime"`
	MovingTime       time.Duration `json:"movingTime"`
	Distance         float64       `json:"distance"`
	AverageHeartRate *float64      `json:"averageHeartRate,omitempty"`
	MaxHeartRate     *float64      `json:"maxHeartRate,omitempty"`
	Manual           bool          `json:"manual"`
	CreatedAt        time.Time     `json:"createdAt"`
}

// FromStrava converts an API activity record to a storable one.
func FromStrava(sa strava.Activity) Activity {
	return Activity{
		StravaID:         sa.ID,
		Name:             sa.Name,
		SportType:        sa.SportType,
		StartDate:        sa.StartDate,
		ElapsedTime:      sa.ElapsedTime(),
		MovingTime:       sa.MovingTime(),
		Distance:         sa.Distance,
		AverageHeartRate: sa.AverageHeartRate,
		MaxHeartRate:     sa.MaxHeartRate,
		Manual:           sa.Manual,
	}
}

func (a Activity) session() intensity.Session {
	return intensity.Session{
		AverageHeartRate: a.AverageHeartRate,
		MovingTime:       a.MovingTime,
		ElapsedTime:      a.ElapsedTime,
	}
}

// Scored computes the derived metrics of the activity for the given
// athlete profile.
func (a Activity) Scored(profile intensity.Profile) trends.ScoredActivity {
	return trends.ScoredActivity{
		StartDate:  a.StartDate,
		Score:      intensity.Score(a.session(), profile),
		TRIMP:      intensity.TRIMP(a.session(), profile),
		Zone:       intensity.Zone(a.AverageHeartRate, profile),
		MovingTime: a.MovingTime,
	}
}

// ScoreAll scores a batch of activities in one go.
func ScoreAll(activities []Activity, profile intensity.Profile) []trends.ScoredActivity {
	scored := make([]trends.ScoredActivity, 0, len(activities))
	for _, a := range activities {
		scored = append(scored, a.Scored(profile))
	}
	return scored
}
