package test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"testing"

	"github.com/andrewwb/trainsight/internal/athlete"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (s *IntegrationTestSuite) TestAthleteProfile() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	token := doLogin(ctx, t)

	req, err := http.NewRequestWithContext(
		ctx,
		"GET", fmt.Sprintf("%s/trainsight/athlete", serverEndpoint),
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

	var profile athlete.Profile
	require.NoError(t, json.Unmarshal(respBytes, &profile))

	// strava identity merged with the configured training constants
	assert.Equal(t, int64(134815), profile.StravaID)
	assert.Equal(t, "Test", profile.FirstName)
	assert.Equal(t, 30, profile.Age)
	assert.Equal(t, float64(190), profile.MaxHeartRate)
	assert.False(t, profile.MaxHeartRateEstimated)

	t.Run("unauthorized", func(t *testing.T) {
		req, err := http.NewRequestWithContext(
			ctx,
			"GET", fmt.Sprintf("%s/trainsight/athlete", serverEndpoint),
			nil,
		)
		require.NoError(t, err)
		req.Header.Set("User-Agent", "test-agent")

		resp, err := s.httpClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}
