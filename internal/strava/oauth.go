package strava

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/andrewwb/trainsight/internal/telemetry/tracing"

	log "github.com/sirupsen/logrus"
)

var ErrMissingCredentials = errors.New("missing strava client credentials")

// TokenSource yields a valid access token for outgoing API calls.
type TokenSource interface {
	GetAccessToken(ctx context.Context) (string, error)
}

// TokenResponse is the payload of a successful authorization code
// exchange. The athlete block is only present on the initial exchange.
type TokenResponse struct {
	AccessToken  string  `json:"access_token"`
	RefreshToken string  `json:"refresh_token"`
	ExpiresAt    int64   `json:"expires_at"`
	Athlete      Athlete `json:"athlete"`
}

type refreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    int64  `json:"expires_at"`
}

// RefreshTokenSource keeps a single athlete's access token fresh via the
// OAuth2 refresh token grant. The refresh token comes from the service
// configuration and gets rotated in memory when the API returns a new one.
type RefreshTokenSource struct {
	oauthBaseURL string
	clientID     string
	clientSecret string
	httpClient   *http.Client

	mutex        sync.Mutex
	refreshToken string
	accessToken  string
	expiresAt    time.Time
}

type NewRefreshTokenSourceParams struct {
	OAuthBaseURL string
	ClientID     string
	ClientSecret string
	RefreshToken string
	HTTPClient   *http.Client
}

func NewRefreshTokenSource(params NewRefreshTokenSourceParams) *RefreshTokenSource {
	httpClient := params.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &RefreshTokenSource{
		oauthBaseURL: params.OAuthBaseURL,
		clientID:     params.ClientID,
		clientSecret: params.ClientSecret,
		refreshToken: params.RefreshToken,
		httpClient:   httpClient,
	}
}

// GetAccessToken returns the cached access token, refreshing it when it
// is missing or within a minute of expiry.
func (s *RefreshTokenSource) GetAccessToken(ctx context.Context) (_ string, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "strava.tokenSource.getAccessToken")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.accessToken != "" && time.Now().Before(s.expiresAt.Add(-time.Minute)) {
		return s.accessToken, nil
	}

	if s.refreshToken == "" {
		return "", errors.New("missing refresh token")
	}

	refreshed, err := s.refresh(ctx, s.refreshToken)
	if err != nil {
		return "", err
	}

	s.accessToken = refreshed.AccessToken
	s.expiresAt = time.Unix(refreshed.ExpiresAt, 0)
	if refreshed.RefreshToken != "" {
		s.refreshToken = refreshed.RefreshToken
	}

	log.Debugf("strava access token refreshed, expires at %s", s.expiresAt)

	return s.accessToken, nil
}

func (s *RefreshTokenSource) refresh(ctx context.Context, refreshToken string) (refreshResponse, error) {
	if s.clientID == "" || s.clientSecret == "" {
		return refreshResponse{}, ErrMissingCredentials
	}

	form := url.Values{}
	form.Set("client_id", s.clientID)
	form.Set("client_secret", s.clientSecret)
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)

	var payload refreshResponse
	if err := postTokenForm(ctx, s.httpClient, s.oauthBaseURL, form, &payload); err != nil {
		return refreshResponse{}, err
	}

	if payload.AccessToken == "" {
		return refreshResponse{}, errors.New("refresh response missing access_token")
	}

	return payload, nil
}

// ExchangeAuthorizationCode trades the one-time authorization code from
// the OAuth redirect for the initial access and refresh token pair.
func ExchangeAuthorizationCode(
	ctx context.Context,
	oauthBaseURL, clientID, clientSecret, code string,
	httpClient *http.Client,
) (TokenResponse, error) {
	if clientID == "" || clientSecret == "" {
		return TokenResponse{}, ErrMissingCredentials
	}
	if code == "" {
		return TokenResponse{}, errors.New("missing authorization code")
	}

	form := url.Values{}
	form.Set("client_id", clientID)
	form.Set("client_secret", clientSecret)
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)

	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	var payload TokenResponse
	if err := postTokenForm(ctx, httpClient, oauthBaseURL, form, &payload); err != nil {
		return TokenResponse{}, err
	}

	if payload.AccessToken == "" {
		return TokenResponse{}, errors.New("exchange response missing access_token")
	}
	if payload.RefreshToken == "" {
		return TokenResponse{}, errors.New("exchange response missing refresh_token")
	}

	return payload, nil
}

func postTokenForm(
	ctx context.Context,
	httpClient *http.Client,
	oauthBaseURL string,
	form url.Values,
	target interface{},
) error {
	endpoint, err := url.JoinPath(oauthBaseURL, "/oauth/token")
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http client do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("strava token endpoint error %d: %s", resp.StatusCode, string(body))
	}

	return json.NewDecoder(resp.Body).Decode(target)
}
