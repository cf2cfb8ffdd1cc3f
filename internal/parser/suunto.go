package parser

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/sstent/activity-lookup/internal/models"
)

const (
	suuntoPageSegment = "/move/"
	suuntoDataSegment = "/api/move/"
)

// SuuntoParser takes the name from the shared HTML page and everything else
// from the JSON endpoint next to it.
type SuuntoParser struct {
	lazyRecord
	httpClient *http.Client
}

func NewSuuntoParser(activityURL string, httpClient *http.Client) *SuuntoParser {
	p := &SuuntoParser{httpClient: httpClient}
	p.lazyRecord = lazyRecord{url: activityURL, fetch: p.fetch}
	return p
}

func (p *SuuntoParser) Vendor() Vendor { return VendorSuunto }

// Pointer fields are required; nil means the key was absent or null.
type suuntoWorkout struct {
	TotalDistance *float64 `json:"totalDistance"`
	TotalTime     *float64 `json:"totalTime"`
	AvgSpeed      *float64 `json:"avgSpeed"`
	StartTime     *float64 `json:"startTime"`
	TotalAscent   float64  `json:"totalAscent"`
	HRData        struct {
		Avg float64 `json:"avg"`
	} `json:"hrdata"`
	// x is longitude, y is latitude. Absent for indoor workouts.
	StartPosition struct {
		X float64 `json:"x"`
		Y float64 `json:"y"`
	} `json:"startPosition"`
}

func (w *suuntoWorkout) missing() string {
	switch {
	case w.TotalDistance == nil:
		return "totalDistance"
	case w.TotalTime == nil:
		return "totalTime"
	case w.AvgSpeed == nil:
		return "avgSpeed"
	case w.StartTime == nil:
		return "startTime"
	}
	return ""
}

// decodeSuuntoWorkout reads the workout, unwrapping the payload envelope the
// API sometimes uses. A present but null payload is an error reply.
func decodeSuuntoWorkout(activityURL string, data []byte) (*suuntoWorkout, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, &MalformedResponseError{URL: activityURL, Reason: "workout JSON", Err: err}
	}

	body := data
	if payload, ok := top["payload"]; ok {
		payload = bytes.TrimSpace(payload)
		if len(payload) == 0 || string(payload) == "null" {
			reason := "payload missing"
			var apiErr string
			if json.Unmarshal(top["error"], &apiErr) == nil && apiErr != "" {
				reason += ": " + apiErr
			}
			return nil, &MalformedResponseError{URL: activityURL, Reason: reason}
		}
		body = payload
	}

	var w suuntoWorkout
	if err := json.Unmarshal(body, &w); err != nil {
		return nil, &MalformedResponseError{URL: activityURL, Reason: "workout JSON", Err: err}
	}
	if key := w.missing(); key != "" {
		return nil, &MalformedResponseError{URL: activityURL, Reason: key + " missing"}
	}
	return &w, nil
}

func suuntoDataURL(activityURL string) string {
	return strings.Replace(activityURL, suuntoPageSegment, suuntoDataSegment, 1)
}

func (p *SuuntoParser) fetch(ctx context.Context) (models.ActivityRecord, error) {
	page, err := getBody(ctx, p.httpClient, p.url, p.url, nil)
	if err != nil {
		return models.ActivityRecord{}, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return models.ActivityRecord{}, &MalformedResponseError{URL: p.url, Reason: "activity page HTML", Err: err}
	}
	title := doc.Find("title").First()
	if title.Length() == 0 {
		return models.ActivityRecord{}, &MalformedResponseError{URL: p.url, Reason: "activity page has no title"}
	}
	name := strings.TrimSpace(title.Text())

	data, err := getBody(ctx, p.httpClient, p.url, suuntoDataURL(p.url), nil)
	if err != nil {
		return models.ActivityRecord{}, err
	}

	w, err := decodeSuuntoWorkout(p.url, data)
	if err != nil {
		return models.ActivityRecord{}, err
	}

	return models.ActivityRecord{
		Name:           name,
		StartTime:      int64(*w.StartTime),
		Duration:       int(*w.TotalTime),
		Distance:       int(*w.TotalDistance),
		AverageSpeed:   *w.AvgSpeed,
		AverageRate:    int(w.HRData.Avg),
		StartLatitude:  w.StartPosition.Y,
		StartLongitude: w.StartPosition.X,
		TotalAscent:    w.TotalAscent,
	}, nil
}
