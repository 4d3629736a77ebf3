package strava

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/andrewwb/trainsight/internal/telemetry/tracing"

	"github.com/coocood/freecache"
	log "github.com/sirupsen/logrus"
)

const (
	athleteCacheKey    = "athlete"
	athleteCacheExpire = 60 * 60 // seconds

	// DefaultPageSize is the per_page value used when none is configured.
	DefaultPageSize = 100

	// maxPages is a sanity cutoff for the pagination loop.
	maxPages = 1000
)

// Client talks to the Strava API on behalf of a single athlete. Listing
// activities filters to the configured sport types; the athlete profile
// is cached for an hour.
type Client struct {
	baseURL     string
	tokenSource TokenSource
	sportTypes  map[string]struct{}
	cache       *freecache.Cache
	httpClient  *http.Client
}

type NewClientParams struct {
	BaseURL     string
	TokenSource TokenSource
	SportTypes  []string
	HTTPClient  *http.Client
}

func NewClient(params NewClientParams) *Client {
	megabyte := 1024 * 1024
	cacheSize := 1 * megabyte

	httpClient := params.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	sportTypes := make(map[string]struct{}, len(params.SportTypes))
	for _, st := range params.SportTypes {
		sportTypes[st] = struct{}{}
	}

	return &Client{
		baseURL:     params.BaseURL,
		tokenSource: params.TokenSource,
		sportTypes:  sportTypes,
		cache:       freecache.NewCache(cacheSize),
		httpClient:  httpClient,
	}
}

// ListActivities fetches one page of the athlete's activities, filtered
// to the configured sport types. Zero after/before skip the date filter.
func (c *Client) ListActivities(
	ctx context.Context,
	after, before time.Time,
	page, perPage int,
) (_ []Activity, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "stravaClient.listActivities")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	pageActivities, err := c.listPage(ctx, after, before, page, perPage)
	if err != nil {
		return nil, err
	}
	return c.filterSportTypes(pageActivities), nil
}

// ListAllActivities pages through the activity listing until a short
// page comes back and returns all matching activities.
func (c *Client) ListAllActivities(
	ctx context.Context,
	after, before time.Time,
	perPage int,
) (_ []Activity, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "stravaClient.listAllActivities")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if perPage <= 0 {
		perPage = DefaultPageSize
	}

	var all []Activity
	for page := 1; page <= maxPages; page++ {
		pageActivities, err := c.listPage(ctx, after, before, page, perPage)
		if err != nil {
			return nil, fmt.Errorf("list activities page %d: %w", page, err)
		}

		matching := c.filterSportTypes(pageActivities)
		all = append(all, matching...)

		log.Debugf("strava: page %d, %d activities, %d matching", page, len(pageActivities), len(matching))

		// the short page check runs on the raw page: a filtered page
		// can be empty while more pages are still waiting
		if len(pageActivities) < perPage {
			break
		}
	}

	return all, nil
}

// GetAthlete returns the authenticated athlete's profile, served from
// cache when a fresh copy is available.
func (c *Client) GetAthlete(ctx context.Context) (athlete *Athlete, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "stravaClient.getAthlete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	athlete = &Athlete{}
	if athleteBytes, err := c.cache.Get([]byte(athleteCacheKey)); err == nil {
		if err = json.Unmarshal(athleteBytes, athlete); err == nil {
			log.Tracef("strava: athlete profile served from cache")
			return athlete, nil
		}
		log.Errorf("failed to unmarshal cached athlete profile: %s", err)
	}

	if err := c.getJSON(ctx, "/athlete", nil, athlete); err != nil {
		return nil, err
	}

	athleteBytes, err := json.Marshal(athlete)
	if err == nil {
		if err = c.cache.Set([]byte(athleteCacheKey), athleteBytes, athleteCacheExpire); err != nil {
			log.Errorf("failed to cache athlete profile: %s", err)
		}
	}

	return athlete, nil
}

func (c *Client) listPage(
	ctx context.Context,
	after, before time.Time,
	page, perPage int,
) ([]Activity, error) {
	params := url.Values{}
	if !after.IsZero() {
		params.Set("after", strconv.FormatInt(after.Unix(), 10))
	}
	if !before.IsZero() {
		params.Set("before", strconv.FormatInt(before.Unix(), 10))
	}
	if page > 0 {
		params.Set("page", strconv.Itoa(page))
	}
	if perPage > 0 {
		params.Set("per_page", strconv.Itoa(perPage))
	}

	var payload []Activity
	if err := c.getJSON(ctx, "/athlete/activities", params, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

func (c *Client) filterSportTypes(activities []Activity) []Activity {
	if len(c.sportTypes) == 0 {
		return activities
	}
	matching := make([]Activity, 0, len(activities))
	for _, a := range activities {
		if _, ok := c.sportTypes[a.SportType]; ok {
			matching = append(matching, a)
		}
	}
	return matching
}

func (c *Client) getJSON(ctx context.Context, path string, params url.Values, target interface{}) error {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return err
	}
	joined, err := url.JoinPath(u.Path, path)
	if err != nil {
		return err
	}
	u.Path = joined
	if params != nil {
		u.RawQuery = params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return err
	}

	if c.tokenSource != nil {
		token, err := c.tokenSource.GetAccessToken(ctx)
		if err != nil {
			return fmt.Errorf("get access token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http client do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("strava api error %d: %s", resp.StatusCode, string(body))
	}

	return json.NewDecoder(resp.Body).Decode(target)
}
