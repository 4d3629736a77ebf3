package test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/andrewwb/trainsight/internal/activities"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (s *IntegrationTestSuite) deleteAllActivities(ctx context.Context) {
	_, err := s.dbPool.Exec(ctx, "DELETE FROM activity")
	require.NoError(s.T(), err)
}

func (s *IntegrationTestSuite) newActivityRequest(
	ctx context.Context,
	token string,
	activity activities.Activity,
) activities.Activity {
	activityJson, err := json.Marshal(activity)
	require.NoError(s.T(), err)

	req, err := http.NewRequestWithContext(
		ctx,
		"POST", fmt.Sprintf("%s/trainsight/activities", serverEndpoint),
		bytes.NewReader(activityJson),
	)
	require.NoError(s.T(), err)
	req.Header.Set("User-Agent", "test-agent")
	req.Header.Set("X-TRAINSIGHT-TOKEN", token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	require.NoError(s.T(), err)
	require.Equal(s.T(), http.StatusCreated, resp.StatusCode)
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	require.NoError(s.T(), err)

	var addedActivity activities.Activity
	require.NoError(s.T(), json.Unmarshal(respBytes, &addedActivity))

	return addedActivity
}

func (s *IntegrationTestSuite) getActivityRequest(ctx context.Context, token string, id int) activities.Activity {
	req, err := http.NewRequestWithContext(
		ctx,
		"GET", fmt.Sprintf("%s/trainsight/activities/%d", serverEndpoint, id),
		nil,
	)
	require.NoError(s.T(), err)
	req.Header.Set("User-Agent", "test-agent")
	req.Header.Set("X-TRAINSIGHT-TOKEN", token)

	resp, err := s.httpClient.Do(req)
	require.NoError(s.T(), err)
	require.Equal(s.T(), http.StatusOK, resp.StatusCode)
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	require.NoError(s.T(), err)

	var activity activities.Activity
	require.NoError(s.T(), json.Unmarshal(respBytes, &activity))
	return activity
}

func (s *IntegrationTestSuite) deleteActivityRequest(ctx context.Context, token string, id int) activities.DeleteActivityResponse {
	req, err := http.NewRequestWithContext(
		ctx,
		"DELETE", fmt.Sprintf("%s/trainsight/activities/%d", serverEndpoint, id),
		nil,
	)
	require.NoError(s.T(), err)
	req.Header.Set("User-Agent", "test-agent")
	req.Header.Set("X-TRAINSIGHT-TOKEN", token)

	resp, err := s.httpClient.Do(req)
	require.NoError(s.T(), err)
	require.Equal(s.T(), http.StatusOK, resp.StatusCode)
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	require.NoError(s.T(), err)

	var deleteResp activities.DeleteActivityResponse
	require.NoError(s.T(), json.Unmarshal(respBytes, &deleteResp))
	return deleteResp
}

func (s *IntegrationTestSuite) listActivitiesRequest(ctx context.Context, page, size int) activities.ActivitiesListResponse {
	req, err := http.NewRequestWithContext(
		ctx,
		"GET", fmt.Sprintf("%s/trainsight/activities/list/page/%d/size/%d", serverEndpoint, page, size),
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

	var listResp activities.ActivitiesListResponse
	require.NoError(s.T(), json.Unmarshal(respBytes, &listResp))
	return listResp
}

func testHR(hr float64) *float64 {
	return &hr
}

func (s *IntegrationTestSuite) TestActivities_CRUD() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.deleteAllActivities(ctx)
	token := doLogin(ctx, t)

	activity := activities.Activity{
		StravaID:         12345,
		Name:             "Leg Day",
		SportType:        "WeightTraining",
		StartDate:        time.Date(2024, 3, 11, 8, 0, 0, 0, time.UTC),
		ElapsedTime:      time.Hour,
		MovingTime:       50 * time.Minute,
		AverageHeartRate: testHR(150),
		MaxHeartRate:     testHR(171),
	}

	added := s.newActivityRequest(ctx, token, activity)
	require.NotZero(t, added.ID)
	assert.Equal(t, activity.StravaID, added.StravaID)
	assert.Equal(t, activity.SportType, added.SportType)

	got := s.getActivityRequest(ctx, token, added.ID)
	assert.Equal(t, added.ID, got.ID)
	assert.Equal(t, "Leg Day", got.Name)
	assert.Equal(t, 50*time.Minute, got.MovingTime)
	require.NotNil(t, got.AverageHeartRate)
	assert.InDelta(t, 150, *got.AverageHeartRate, 0.001)

	listResp := s.listActivitiesRequest(ctx, 1, 10)
	assert.Equal(t, 1, listResp.Total)
	require.Len(t, listResp.Activities, 1)

	deleteResp := s.deleteActivityRequest(ctx, token, added.ID)
	assert.Equal(t, added.ID, deleteResp.DeletedID)

	listResp = s.listActivitiesRequest(ctx, 1, 10)
	assert.Equal(t, 0, listResp.Total)
}

func (s *IntegrationTestSuite) TestActivities_DuplicateStravaID() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.deleteAllActivities(ctx)
	token := doLogin(ctx, t)

	activity := activities.Activity{
		StravaID:  777,
		Name:      gofakeit.Name(),
		SportType: "Workout",
		StartDate: time.Date(2024, 3, 11, 8, 0, 0, 0, time.UTC),
	}
	s.newActivityRequest(ctx, token, activity)

	activityJson, err := json.Marshal(activity)
	require.NoError(t, err)
	req, err := http.NewRequestWithContext(
		ctx,
		"POST", fmt.Sprintf("%s/trainsight/activities", serverEndpoint),
		bytes.NewReader(activityJson),
	)
	require.NoError(t, err)
	req.Header.Set("User-Agent", "test-agent")
	req.Header.Set("X-TRAINSIGHT-TOKEN", token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func (s *IntegrationTestSuite) TestActivities_Unauthorized() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	activityJson, err := json.Marshal(activities.Activity{
		SportType: "Workout",
		StartDate: time.Now(),
	})
	require.NoError(t, err)

	req, err := http.NewRequestWithContext(
		ctx,
		"POST", fmt.Sprintf("%s/trainsight/activities", serverEndpoint),
		bytes.NewReader(activityJson),
	)
	require.NoError(t, err)
	req.Header.Set("User-Agent", "test-agent")
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func (s *IntegrationTestSuite) TestActivities_Sync() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.deleteAllActivities(ctx)
	token := doLogin(ctx, t)

	syncRequest := func() activities.SyncResult {
		req, err := http.NewRequestWithContext(
			ctx,
			"POST", fmt.Sprintf("%s/trainsight/activities/sync", serverEndpoint),
			nil,
		)
		require.NoError(t, err)
		req.Header.Set("User-Agent", "test-agent")
		req.Header.Set("X-TRAINSIGHT-TOKEN", token)

		resp, err := s.httpClient.Do(req)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		defer resp.Body.Close()

		respBytes, err := io.ReadAll(resp.Body)
		require.NoError(t, err)

		var syncResult activities.SyncResult
		require.NoError(t, json.Unmarshal(respBytes, &syncResult))
		return syncResult
	}

	// first pass pulls the two fixture activities
	result := syncRequest()
	assert.Equal(t, 2, result.Fetched)
	assert.Equal(t, 2, result.Inserted)
	assert.Equal(t, 0, result.Skipped)

	listResp := s.listActivitiesRequest(ctx, 1, 10)
	assert.Equal(t, 2, listResp.Total)

	// second pass sees the same fixtures again and skips them
	result = syncRequest()
	assert.Equal(t, 2, result.Fetched)
	assert.Equal(t, 0, result.Inserted)
	assert.Equal(t, 2, result.Skipped)

	listResp = s.listActivitiesRequest(ctx, 1, 10)
	assert.Equal(t, 2, listResp.Total)
}
