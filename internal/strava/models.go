package strava

import "time"

// Activity is a summary record from the activity listing endpoint,
// trimmed to the fields the intensity pipeline needs. Heart rate fields
// are pointers: sessions recorded without a monitor come back without
// them.
type Activity struct {
	ID               int64     `json:"id"`
	Name             string    `json:"name"`
	SportType        string    `json:"sport_type"`
	StartDate        time.Time `json:"start_date"`
	ElapsedTimeSecs  int       `json:"elapsed_time"`
	MovingTimeSecs   int       `json:"moving_time"`
	Distance         float64   `json:"distance"`
	AverageHeartRate *float64  `json:"average_heartrate,omitempty"`
	MaxHeartRate     *float64  `json:"max_heartrate,omitempty"`
	HasHeartRate     bool      `json:"has_heartrate"`
	Manual           bool      `json:"manual"`
}

// ElapsedTime returns the elapsed duration of the activity.
func (a Activity) ElapsedTime() time.Duration {
	return time.Duration(a.ElapsedTimeSecs) * time.Second
}

// MovingTime returns the moving duration of the activity.
func (a Activity) MovingTime() time.Duration {
	return time.Duration(a.MovingTimeSecs) * time.Second
}

// Athlete is the authenticated athlete's profile.
type Athlete struct {
	ID        int64   `json:"id"`
	Username  string  `json:"username"`
	FirstName string  `json:"firstname"`
	LastName  string  `json:"lastname"`
	City      string  `json:"city"`
	Country   string  `json:"country"`
	Sex       string  `json:"sex"`
	Weight    float64 `json:"weight"`
}
