package parser

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sstent/activity-lookup/internal/models"
)

const polarSessionJSON = `{
	"curveData": {
		"exercises": [{
			"sport": {"name": "Running"},
			"startTime": 20000,
			"stopTime": 50000,
			"startDistance": 10.2,
			"stopDistance": 5010.9,
			"statistics": {
				"SPEED": {"avg": 10.5, "max": 14.1},
				"HEART_RATE": {"avg": 151.7, "max": 180}
			},
			"samples": {
				"ALTITUDE": [[20000, 100], [21000, 95], [22000, null], [23000, 110], [24000, 108]]
			}
		}]
	},
	"mapData": {
		"samples": [[{"lat": 55.7512, "lon": 37.6184}, {"lat": 55.7513, "lon": 37.6185}]]
	}
}`

func polarPage(session string) string {
	return `<!DOCTYPE html>
<html><head><title>Polar Flow</title></head>
<body>
<script type="text/javascript">
	var locale = "ru";
	trainingSessionData = ` + session + `;

	/*** Analyse view mode ***/
	initAnalyseView();
</script>
</body></html>`
}

func newPolarServer(t *testing.T, status int, page string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.Header.Get("Accept-Language") != polarAcceptLanguage {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(page))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestPolarParserInfo(t *testing.T) {
	srv, calls := newPolarServer(t, http.StatusOK, polarPage(polarSessionJSON))
	p := NewPolarParser(srv.URL+"/training/analysis/7654321", NewHTTPClient(5*time.Second))

	record, err := p.Info(context.Background())
	require.NoError(t, err)

	assert.Equal(t, models.ActivityRecord{
		Name:           "Running",
		StartTime:      20000,
		Duration:       30,
		Distance:       5000,
		AverageSpeed:   10.5,
		AverageRate:    151,
		StartLatitude:  55.7512,
		StartLongitude: 37.6184,
		TotalAscent:    15,
	}, record)

	_, err = p.Info(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, calls.Load())
}

func TestPolarDurationInSeconds(t *testing.T) {
	session := `{"curveData":{"exercises":[{
		"sport":{"name":"Cycling"},
		"startTime":20000,"stopTime":50000,
		"startDistance":0,"stopDistance":12000,
		"statistics":{"SPEED":{"avg":28.8},"HEART_RATE":{"avg":132}}
	}]}}`
	srv, _ := newPolarServer(t, http.StatusOK, polarPage(session))
	p := NewPolarParser(srv.URL+"/training/analysis/1", NewHTTPClient(5*time.Second))

	duration, err := p.Duration(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 30, duration)

	record, err := p.Info(context.Background())
	require.NoError(t, err)
	assert.Zero(t, record.StartLatitude)
	assert.Zero(t, record.StartLongitude)
	assert.Zero(t, record.TotalAscent)
}

func TestPolarParserMalformed(t *testing.T) {
	tests := []struct {
		name string
		page string
	}{
		{"no open marker", `<html><script>var data = {};</script></html>`},
		{"no close marker", `<script>trainingSessionData = {"curveData":{}};</script>`},
		{"invalid json", polarPage(`{"curveData": {"exercises": [}`)},
		{"no exercises", polarPage(`{"curveData": {"exercises": []}}`)},
		{"login page", `<html><body>Please sign in</body></html>`},
		{"empty exercise", polarPage(`{"curveData":{"exercises":[{}]}}`)},
		{"no sport name", polarPage(strings.Replace(polarSessionJSON, `"name": "Running"`, `"label": "Running"`, 1))},
		{"no start time", polarPage(strings.Replace(polarSessionJSON, `"startTime": 20000,`, ``, 1))},
		{"no stop time", polarPage(strings.Replace(polarSessionJSON, `"stopTime": 50000,`, ``, 1))},
		{"no start distance", polarPage(strings.Replace(polarSessionJSON, `"startDistance": 10.2,`, ``, 1))},
		{"null stop distance", polarPage(strings.Replace(polarSessionJSON, `5010.9`, `null`, 1))},
		{"no speed statistic", polarPage(strings.Replace(polarSessionJSON, `"SPEED": {"avg": 10.5, "max": 14.1},`, ``, 1))},
		{"no heart rate avg", polarPage(strings.Replace(polarSessionJSON, `"avg": 151.7, `, ``, 1))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newPolarServer(t, http.StatusOK, tt.page)
			p := NewPolarParser(srv.URL+"/training/analysis/1", NewHTTPClient(5*time.Second))

			record, err := p.Info(context.Background())
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedResponse), "got %v", err)
			assert.Equal(t, models.ActivityRecord{}, record)
		})
	}
}

func TestPolarParserMissingKeyReason(t *testing.T) {
	session := strings.Replace(polarSessionJSON, `"HEART_RATE": {"avg": 151.7, "max": 180}`, `"CADENCE": {"avg": 80}`, 1)
	srv, _ := newPolarServer(t, http.StatusOK, polarPage(session))
	p := NewPolarParser(srv.URL+"/training/analysis/1", NewHTTPClient(5*time.Second))

	_, err := p.Info(context.Background())

	var malformed *MalformedResponseError
	require.True(t, errors.As(err, &malformed))
	assert.Equal(t, "statistics.HEART_RATE missing", malformed.Reason)
}

func TestPolarParserUpstreamStatus(t *testing.T) {
	srv, _ := newPolarServer(t, http.StatusNotFound, "gone")
	activityURL := srv.URL + "/training/analysis/404"
	p := NewPolarParser(activityURL, NewHTTPClient(5*time.Second))

	_, err := p.Info(context.Background())

	var connErr *ConnectionError
	require.True(t, errors.As(err, &connErr))
	assert.Equal(t, activityURL, connErr.URL)
	assert.Equal(t, http.StatusNotFound, connErr.StatusCode)
}

func TestExtractSessionJSON(t *testing.T) {
	chunk, err := extractSessionJSON([]byte(polarPage(`{"a": 1}`)))
	require.NoError(t, err)
	assert.Equal(t, `{"a": 1}`, string(chunk))

	chunk, err = extractSessionJSON([]byte("trainingSessionData = {\"b\":[1,2]}\n/*** Analyse view mode ***/"))
	require.NoError(t, err)
	assert.Equal(t, `{"b":[1,2]}`, string(chunk))

	_, err = extractSessionJSON([]byte("/*** Analyse view mode ***/ trainingSessionData = {}"))
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "analyse view"))
}
