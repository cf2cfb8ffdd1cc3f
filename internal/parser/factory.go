package parser

import (
	"net/http"
	"time"

	"github.com/sstent/activity-lookup/internal/garmin"
)

// Factory builds a parser for an activity URL. All parsers share one HTTP client.
type Factory struct {
	httpClient *http.Client
	garmin     *garmin.Client
}

func NewFactory(httpClient *http.Client, garminAuthURL string) *Factory {
	return &Factory{
		httpClient: httpClient,
		garmin:     garmin.NewClient(httpClient, garminAuthURL),
	}
}

// NewHTTPClient returns the outbound client; timeout bounds every single call.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
	}
}

// New returns an unfetched parser for activityURL, or an *UnsupportedVendorError.
func (f *Factory) New(activityURL string) (Parser, error) {
	switch DetectVendor(activityURL) {
	case VendorGarmin:
		return NewGarminParser(activityURL, f.garmin), nil
	case VendorPolar:
		return NewPolarParser(activityURL, f.httpClient), nil
	case VendorSuunto:
		return NewSuuntoParser(activityURL, f.httpClient), nil
	default:
		return nil, &UnsupportedVendorError{URL: activityURL}
	}
}
