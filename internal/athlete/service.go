// Package athlete merges the configured training profile with the
// athlete record from Strava and serves the combined view.
package athlete

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/andrewwb/trainsight/internal/intensity"
	"github.com/andrewwb/trainsight/internal/strava"
	"github.com/andrewwb/trainsight/internal/telemetry/tracing"

	"github.com/go-redis/redis/v8"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

const (
	profileRedisKey = "trainsight-athlete-profile"
	profileCacheTTL = time.Hour
)

// Profile is the combined athlete view: identity from Strava, training
// constants from the service configuration.
type Profile struct {
	StravaID  int64   `json:"stravaId"`
	FirstName string  `json:"firstName"`
	LastName  string  `json:"lastName"`
	City      string  `json:"city"`
	Country   string  `json:"country"`
	Sex       string  `json:"sex"`
	Weight    float64 `json:"weight"`

	Age                   int     `json:"age"`
	RestingHeartRate      float64 `json:"restingHeartRate"`
	MaxHeartRate          float64 `json:"maxHeartRate"`
	MaxHeartRateEstimated bool    `json:"maxHeartRateEstimated"`
	IntensityScale        float64 `json:"intensityScale"`
}

//go:generate mockgen -source=$GOFILE -destination=service_mocks_test.go -package=athlete_test

type stravaAthleteGetter interface {
	GetAthlete(ctx context.Context) (*strava.Athlete, error)
}

type Service struct {
	mu          sync.Mutex
	getter      stravaAthleteGetter
	redisClient *redis.Client
	profile     intensity.Profile
}

func NewService(
	getter stravaAthleteGetter,
	redisClient *redis.Client,
	profile intensity.Profile,
) *Service {
	return &Service{
		getter:      getter,
		redisClient: redisClient,
		profile:     profile,
	}
}

// GetProfile returns the combined profile, served from redis when a
// cached copy exists. A failing Strava call degrades to the configured
// training constants instead of failing the whole request.
func (s *Service) GetProfile(ctx context.Context) (*Profile, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "athlete.getProfile")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	cmd := s.redisClient.Get(ctx, profileRedisKey)
	profile := &Profile{}
	if profileBytes := cmd.Val(); profileBytes != "" {
		span.SetAttributes(attribute.Bool("profile.from-cache", true))
		if err := json.Unmarshal([]byte(profileBytes), profile); err == nil {
			return profile, nil
		} else {
			log.Errorf("failed to unmarshal cached athlete profile: %s", err)
		}
	} else {
		span.SetAttributes(attribute.Bool("profile.from-cache", false))
	}

	profile = s.configuredProfile()

	stravaAthlete, err := s.getter.GetAthlete(ctx)
	if err != nil {
		log.Errorf("failed to get strava athlete, serving configured profile only: %s", err)
		return profile, nil
	}

	profile.StravaID = stravaAthlete.ID
	profile.FirstName = stravaAthlete.FirstName
	profile.LastName = stravaAthlete.LastName
	profile.City = stravaAthlete.City
	profile.Country = stravaAthlete.Country
	profile.Sex = stravaAthlete.Sex
	profile.Weight = stravaAthlete.Weight

	profileBytes, err := json.Marshal(profile)
	if err == nil {
		if err := s.redisClient.Set(ctx, profileRedisKey, profileBytes, profileCacheTTL).Err(); err != nil {
			log.Errorf("failed to cache athlete profile in redis: %s", err)
		}
	}

	return profile, nil
}

func (s *Service) configuredProfile() *Profile {
	return &Profile{
		Age:                   s.profile.Age,
		RestingHeartRate:      s.profile.RestingHeartRate,
		MaxHeartRate:          s.profile.EffectiveMaxHR(),
		MaxHeartRateEstimated: s.profile.MaxHeartRate <= 0,
		IntensityScale:        s.profile.Scale,
	}
}
