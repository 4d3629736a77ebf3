package test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/andrewwb/trainsight/internal/activities"
	"github.com/andrewwb/trainsight/internal/trends"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (s *IntegrationTestSuite) getReport(ctx context.Context, path string, target any) {
	req, err := http.NewRequestWithContext(
		ctx,
		"GET", fmt.Sprintf("%s/trainsight/report/%s", serverEndpoint, path),
		nil,
	)
	require.NoError(s.T(), err)
	req.Header.Set("User-Agent", "test-agent")

	resp, err := s.httpClient.Do(req)
	require.NoError(s.T(), err)
	require.Equal(s.T(), http.StatusOK, resp.StatusCode)
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	require.NoError(s.T(), err)
	require.NoError(s.T(), json.Unmarshal(respBytes, target))
}

func (s *IntegrationTestSuite) TestReports() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.deleteAllActivities(ctx)
	token := doLogin(ctx, t)

	// two workouts on the same day, one heart-rate-less the day after
	s.newActivityRequest(ctx, token, activities.Activity{
		StravaID:         201,
		Name:             "Push Day",
		SportType:        "WeightTraining",
		StartDate:        time.Date(2024, 3, 11, 8, 0, 0, 0, time.UTC),
		ElapsedTime:      time.Hour,
		MovingTime:       time.Hour,
		AverageHeartRate: testHR(150),
	})
	s.newActivityRequest(ctx, token, activities.Activity{
		StravaID:         202,
		Name:             "Pull Day",
		SportType:        "WeightTraining",
		StartDate:        time.Date(2024, 3, 11, 18, 0, 0, 0, time.UTC),
		ElapsedTime:      time.Hour,
		MovingTime:       30 * time.Minute,
		AverageHeartRate: testHR(150),
	})
	s.newActivityRequest(ctx, token, activities.Activity{
		StravaID:    203,
		Name:        "Mobility",
		SportType:   "Workout",
		StartDate:   time.Date(2024, 3, 12, 8, 0, 0, 0, time.UTC),
		ElapsedTime: 30 * time.Minute,
		MovingTime:  30 * time.Minute,
	})

	t.Run("daily", func(t *testing.T) {
		var series activities.SeriesResponse
		s.getReport(ctx, "daily", &series)

		require.Len(t, series.Points, 2)
		assert.Equal(t, time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC), series.Points[0].BucketStart)
		// day mean of 78.947 and 39.474
		assert.InDelta(t, 59.21, series.Points[0].Value, 0.01)
		// no heart rate data, scores zero
		assert.Zero(t, series.Points[1].Value)
		assert.Len(t, series.Rolling, 2)
	})

	t.Run("weekly", func(t *testing.T) {
		var series activities.SeriesResponse
		s.getReport(ctx, "weekly", &series)

		// both days fall into the week starting Monday 2024-03-11
		require.Len(t, series.Points, 1)
		assert.Equal(t, time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC), series.Points[0].BucketStart)
	})

	t.Run("trimp weekly", func(t *testing.T) {
		var series activities.SeriesResponse
		s.getReport(ctx, "trimp/weekly", &series)

		// 90 min at avg HR 150 plus the HR-less session, banister
		// trimp 60*r*exp(1.92r) + 30*r*exp(1.92r) with r = 90/130
		require.Len(t, series.Points, 1)
		assert.Equal(t, time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC), series.Points[0].BucketStart)
		assert.InDelta(t, 235.4, series.Points[0].Value, 0.1)
	})

	t.Run("trimp monthly", func(t *testing.T) {
		var series activities.SeriesResponse
		s.getReport(ctx, "trimp/monthly", &series)

		require.Len(t, series.Points, 1)
		assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), series.Points[0].BucketStart)
		assert.InDelta(t, 235.4, series.Points[0].Value, 0.1)
	})

	t.Run("summary", func(t *testing.T) {
		var summary trends.Summary
		s.getReport(ctx, "summary", &summary)

		assert.Equal(t, 3, summary.TotalWorkouts)
		assert.InDelta(t, 78.947, summary.MaxScore, 0.01)
		assert.Equal(t, 2, summary.LongestStreakDays)
		assert.Equal(t, time.Hour, summary.LongestSession)
	})

	t.Run("zones", func(t *testing.T) {
		var zones activities.ZonesResponse
		s.getReport(ctx, "zones", &zones)

		// reserve ratio (150-60)/130 lands in zone 2, no-HR lands in zone 0
		assert.Equal(t, map[int]int{0: 1, 2: 2}, zones.Zones)
	})

	t.Run("filtered by type", func(t *testing.T) {
		var series activities.SeriesResponse
		s.getReport(ctx, "daily?type=Workout", &series)

		require.Len(t, series.Points, 1)
		assert.Equal(t, time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC), series.Points[0].BucketStart)
	})
}
