// internal/garmin/client.go
package garmin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/oauth2"
)

const (
	BackendHeader = "DI-Backend"
	BackendHost   = "connectapi.garmin.com"

	pageSegment    = "modern"
	serviceSegment = "activity-service"

	maxErrorBodySize = 500
)

// ErrUnexpectedPayload marks replies that arrived fine but could not be decoded.
var ErrUnexpectedPayload = errors.New("garmin: unexpected payload")

// StatusError is returned for any non-2xx reply from Garmin Connect.
type StatusError struct {
	StatusCode int
	Status     string
	Body       string
	URL        string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("garmin: %s returned %d: %s", e.URL, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("garmin: %s returned %d", e.URL, e.StatusCode)
}

type Client struct {
	httpClient *http.Client
	authURL    string
}

// ActivityDetails is the subset of the activity-service reply we read.
// Pointer fields are nil when the key is absent or null.
type ActivityDetails struct {
	ActivityName *string  `json:"activityName"`
	Summary      *Summary `json:"summaryDTO"`
}

type Summary struct {
	Distance     *Number `json:"distance"`
	Duration     *Number `json:"duration"`
	AverageSpeed *Number `json:"averageSpeed"`
	AverageHR    *Number `json:"averageHR"`
	StartTimeGMT *string `json:"startTimeGMT"`

	// Absent for indoor activities.
	StartLatitude  Number `json:"startLatitude"`
	StartLongitude Number `json:"startLongitude"`
	ElevationGain  Number `json:"elevationGain"`
}

// Number accepts JSON numbers as well as numeric strings; Garmin uses both.
type Number float64

func (n *Number) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "" || s == "null" {
		*n = 0
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid number %s", b)
	}
	*n = Number(f)
	return nil
}

// NewClient creates a Garmin Connect client. Timeouts and transport come from httpClient.
func NewClient(httpClient *http.Client, authURL string) *Client {
	return &Client{
		httpClient: httpClient,
		authURL:    authURL,
	}
}

// ServiceURL maps a public activity page URL onto the activity-service API.
func ServiceURL(activityURL string) string {
	return strings.ReplaceAll(activityURL, pageSegment, serviceSegment)
}

// PublicToken requests an anonymous bearer token from the public auth endpoint.
func (c *Client) PublicToken(ctx context.Context) (*oauth2.Token, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.authURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp, c.authURL); err != nil {
		return nil, err
	}

	var payload struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: auth token: %v", ErrUnexpectedPayload, err)
	}
	if payload.AccessToken == "" {
		return nil, fmt.Errorf("%w: auth token: missing access_token", ErrUnexpectedPayload)
	}

	// The activity service only accepts the Bearer scheme, whatever token_type says.
	return &oauth2.Token{AccessToken: payload.AccessToken, TokenType: "Bearer"}, nil
}

// GetActivityDetails fetches a token and then the activity-service record for activityURL.
// Every call performs both requests.
func (c *Client) GetActivityDetails(ctx context.Context, activityURL string) (*ActivityDetails, error) {
	serviceURL := ServiceURL(activityURL)

	authed := &http.Client{
		Transport: &oauth2.Transport{
			Source: &publicTokenSource{ctx: ctx, client: c},
			Base:   c.httpClient.Transport,
		},
		Timeout: c.httpClient.Timeout,
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, serviceURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set(BackendHeader, BackendHost)

	resp, err := authed.Do(req)
	if err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) {
			return nil, statusErr
		}
		if errors.Is(err, ErrUnexpectedPayload) {
			return nil, err
		}
		return nil, fmt.Errorf("get activity: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp, serviceURL); err != nil {
		return nil, err
	}

	var details ActivityDetails
	if err := json.NewDecoder(resp.Body).Decode(&details); err != nil {
		return nil, fmt.Errorf("%w: activity: %v", ErrUnexpectedPayload, err)
	}

	return &details, nil
}

type publicTokenSource struct {
	ctx    context.Context
	client *Client
}

func (s *publicTokenSource) Token() (*oauth2.Token, error) {
	return s.client.PublicToken(s.ctx)
}

func checkStatus(resp *http.Response, url string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
	return &StatusError{
		StatusCode: resp.StatusCode,
		Status:     http.StatusText(resp.StatusCode),
		Body:       strings.TrimSpace(string(body)),
		URL:        url,
	}
}
