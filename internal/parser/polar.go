package parser

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sstent/activity-lookup/internal/models"
)

const (
	polarAcceptLanguage = "ru-RU,ru;q=0.8,en-US;q=0.5,en;q=0.3"

	// The session JSON sits in a script block between these two tokens.
	polarOpenMarker  = "trainingSessionData = {"
	polarCloseMarker = "/*** Analyse view mode ***/"
)

// PolarParser reads an activity from the JSON embedded in a Polar Flow training page.
type PolarParser struct {
	lazyRecord
	httpClient *http.Client
}

func NewPolarParser(activityURL string, httpClient *http.Client) *PolarParser {
	p := &PolarParser{httpClient: httpClient}
	p.lazyRecord = lazyRecord{url: activityURL, fetch: p.fetch}
	return p
}

func (p *PolarParser) Vendor() Vendor { return VendorPolar }

type polarSession struct {
	CurveData struct {
		Exercises []polarExercise `json:"exercises"`
	} `json:"curveData"`
	MapData struct {
		Samples [][]polarPoint `json:"samples"`
	} `json:"mapData"`
}

// Pointer fields are required; nil means the key was absent or null.
type polarExercise struct {
	Sport *struct {
		Name *string `json:"name"`
	} `json:"sport"`
	StartTime     *float64                  `json:"startTime"`
	StopTime      *float64                  `json:"stopTime"`
	StartDistance *float64                  `json:"startDistance"`
	StopDistance  *float64                  `json:"stopDistance"`
	Statistics    map[string]polarStatistic `json:"statistics"`
	Samples       map[string][][]*float64   `json:"samples"`
}

type polarStatistic struct {
	Avg *float64 `json:"avg"`
}

type polarPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

func (p *PolarParser) fetch(ctx context.Context) (models.ActivityRecord, error) {
	header := http.Header{}
	header.Set("Accept-Language", polarAcceptLanguage)

	body, err := getBody(ctx, p.httpClient, p.url, p.url, header)
	if err != nil {
		return models.ActivityRecord{}, err
	}

	chunk, err := extractSessionJSON(body)
	if err != nil {
		return models.ActivityRecord{}, &MalformedResponseError{URL: p.url, Reason: err.Error()}
	}

	var session polarSession
	if err := json.Unmarshal(chunk, &session); err != nil {
		return models.ActivityRecord{}, &MalformedResponseError{URL: p.url, Reason: "session JSON", Err: err}
	}
	if len(session.CurveData.Exercises) == 0 {
		return models.ActivityRecord{}, &MalformedResponseError{URL: p.url, Reason: "no exercises in session"}
	}

	ex := session.CurveData.Exercises[0]
	if reason := ex.missing(); reason != "" {
		return models.ActivityRecord{}, &MalformedResponseError{URL: p.url, Reason: reason + " missing"}
	}
	ascent, _ := TotalAscent(altitudeSamples(ex.Samples["ALTITUDE"]))

	record := models.ActivityRecord{
		Name:         *ex.Sport.Name,
		StartTime:    int64(*ex.StartTime),
		Distance:     int(*ex.StopDistance - *ex.StartDistance),
		Duration:     int((*ex.StopTime - *ex.StartTime) / 1000),
		AverageSpeed: *ex.Statistics["SPEED"].Avg,
		AverageRate:  int(*ex.Statistics["HEART_RATE"].Avg),
		TotalAscent:  ascent,
	}

	// Indoor sessions carry no map samples; coordinates stay zero.
	if len(session.MapData.Samples) > 0 && len(session.MapData.Samples[0]) > 0 {
		start := session.MapData.Samples[0][0]
		record.StartLatitude = start.Lat
		record.StartLongitude = start.Lon
	}

	return record, nil
}

// missing names the first required exercise key that is absent, or "".
func (ex *polarExercise) missing() string {
	switch {
	case ex.Sport == nil || ex.Sport.Name == nil:
		return "sport.name"
	case ex.StartTime == nil:
		return "startTime"
	case ex.StopTime == nil:
		return "stopTime"
	case ex.StartDistance == nil:
		return "startDistance"
	case ex.StopDistance == nil:
		return "stopDistance"
	}
	for _, key := range []string{"SPEED", "HEART_RATE"} {
		if stat, ok := ex.Statistics[key]; !ok || stat.Avg == nil {
			return "statistics." + key
		}
	}
	return ""
}

// extractSessionJSON cuts the object literal out of the page script.
func extractSessionJSON(page []byte) ([]byte, error) {
	open := bytes.Index(page, []byte(polarOpenMarker))
	if open < 0 {
		return nil, errors.New("session data marker not found")
	}
	start := open + len(polarOpenMarker) - 1 // keep the opening brace

	end := bytes.Index(page[start:], []byte(polarCloseMarker))
	if end < 0 {
		return nil, errors.New("analyse view marker not found")
	}

	chunk := bytes.TrimSpace(page[start : start+end])
	chunk = bytes.TrimSpace(bytes.TrimRight(chunk, ";"))
	if len(chunk) == 0 {
		return nil, errors.New("empty session data")
	}
	return chunk, nil
}

// altitudeSamples drops points that lack a timestamp or an altitude reading.
func altitudeSamples(raw [][]*float64) []AltitudeSample {
	samples := make([]AltitudeSample, 0, len(raw))
	for _, pair := range raw {
		if len(pair) < 2 || pair[0] == nil || pair[1] == nil {
			continue
		}
		samples = append(samples, AltitudeSample{Timestamp: int64(*pair[0]), Altitude: *pair[1]})
	}
	return samples
}
