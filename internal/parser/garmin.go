package parser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sstent/activity-lookup/internal/garmin"
	"github.com/sstent/activity-lookup/internal/models"
)

// garminSpeedFactor converts Garmin's averageSpeed into the unit we report.
const garminSpeedFactor = 3.78

var garminTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// GarminParser reads an activity from the Garmin Connect activity-service API.
type GarminParser struct {
	lazyRecord
	client *garmin.Client
}

func NewGarminParser(activityURL string, client *garmin.Client) *GarminParser {
	p := &GarminParser{client: client}
	p.lazyRecord = lazyRecord{url: activityURL, fetch: p.fetch}
	return p
}

func (p *GarminParser) Vendor() Vendor { return VendorGarmin }

func (p *GarminParser) fetch(ctx context.Context) (models.ActivityRecord, error) {
	details, err := p.client.GetActivityDetails(ctx, p.url)
	if err != nil {
		return models.ActivityRecord{}, p.wrapError(err)
	}

	s := details.Summary
	if s == nil {
		return models.ActivityRecord{}, &MalformedResponseError{URL: p.url, Reason: "summaryDTO missing"}
	}
	if details.ActivityName == nil {
		return models.ActivityRecord{}, &MalformedResponseError{URL: p.url, Reason: "activityName missing"}
	}
	for _, f := range []struct {
		key   string
		value *garmin.Number
	}{
		{"distance", s.Distance},
		{"duration", s.Duration},
		{"averageSpeed", s.AverageSpeed},
		{"averageHR", s.AverageHR},
	} {
		if f.value == nil {
			return models.ActivityRecord{}, &MalformedResponseError{URL: p.url, Reason: "summaryDTO." + f.key + " missing"}
		}
	}
	if s.StartTimeGMT == nil || *s.StartTimeGMT == "" {
		return models.ActivityRecord{}, &MalformedResponseError{URL: p.url, Reason: "summaryDTO.startTimeGMT missing"}
	}

	startTime, err := parseGarminTime(*s.StartTimeGMT)
	if err != nil {
		return models.ActivityRecord{}, &MalformedResponseError{URL: p.url, Reason: "start time", Err: err}
	}

	return models.ActivityRecord{
		Name:           *details.ActivityName,
		StartTime:      startTime.Unix(),
		Duration:       int(*s.Duration),
		Distance:       int(*s.Distance),
		AverageSpeed:   float64(*s.AverageSpeed) * garminSpeedFactor,
		AverageRate:    int(*s.AverageHR),
		StartLatitude:  float64(s.StartLatitude),
		StartLongitude: float64(s.StartLongitude),
		TotalAscent:    float64(s.ElevationGain),
	}, nil
}

func (p *GarminParser) wrapError(err error) error {
	var statusErr *garmin.StatusError
	switch {
	case errors.As(err, &statusErr):
		return &ConnectionError{URL: p.url, StatusCode: statusErr.StatusCode, Err: err}
	case errors.Is(err, garmin.ErrUnexpectedPayload):
		return &MalformedResponseError{URL: p.url, Reason: "activity-service reply", Err: err}
	default:
		return &ConnectionError{URL: p.url, Err: err}
	}
}

// parseGarminTime reads startTimeGMT. Values without a zone are taken as UTC.
func parseGarminTime(v string) (time.Time, error) {
	for _, layout := range garminTimeLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", v)
}
