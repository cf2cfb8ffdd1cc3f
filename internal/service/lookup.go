package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/sstent/activity-lookup/internal/database"
	"github.com/sstent/activity-lookup/internal/logger"
	"github.com/sstent/activity-lookup/internal/models"
	"github.com/sstent/activity-lookup/internal/parser"
)

const (
	OutcomeOK                = "ok"
	OutcomeUnsupportedVendor = "unsupported_vendor"
	OutcomeConnectionError   = "connection_error"
	OutcomeMalformedResponse = "malformed_response"
	OutcomeCanceled          = "canceled"
	OutcomeError             = "error"
)

type ParserFactory interface {
	New(activityURL string) (parser.Parser, error)
}

// LookupLog receives one entry per lookup.
type LookupLog interface {
	CreateLookup(lookup *database.Lookup) error
}

type Result struct {
	Vendor parser.Vendor
	Record models.ActivityRecord
}

// Start is the record's start_time as an absolute time.
func (r *Result) Start() time.Time {
	return r.Vendor.StartTime(r.Record.StartTime)
}

type LookupService struct {
	parsers ParserFactory
	log     LookupLog
	now     func() time.Time
}

// NewLookupService wires the factory and an optional log; pass a nil log to
// disable it.
func NewLookupService(parsers ParserFactory, log LookupLog) *LookupService {
	return &LookupService{
		parsers: parsers,
		log:     log,
		now:     time.Now,
	}
}

// Lookup fetches the activity at activityURL with a fresh parser. Errors keep
// their parser kinds, so callers can match them with errors.Is.
func (s *LookupService) Lookup(ctx context.Context, activityURL string) (*Result, error) {
	started := s.now()

	vendor := parser.VendorUnknown
	result, err := func() (*Result, error) {
		p, err := s.parsers.New(activityURL)
		if err != nil {
			return nil, err
		}
		vendor = p.Vendor()

		record, err := p.Info(ctx)
		if err != nil {
			return nil, err
		}
		return &Result{Vendor: vendor, Record: record}, nil
	}()

	elapsed := s.now().Sub(started)
	outcome := Outcome(err)

	var event *zerolog.Event
	if err != nil {
		event = logger.Log.Warn().Err(err)
	} else {
		event = logger.Log.Info()
	}
	event.
		Str("vendor", string(vendor)).
		Str("url", activityURL).
		Str("outcome", outcome).
		Dur("elapsed", elapsed).
		Msg("activity lookup")

	s.record(activityURL, vendor, outcome, err, elapsed, started)

	return result, err
}

func (s *LookupService) record(activityURL string, vendor parser.Vendor, outcome string, lookupErr error, elapsed time.Duration, at time.Time) {
	if s.log == nil {
		return
	}

	entry := &database.Lookup{
		URL:        activityURL,
		Outcome:    outcome,
		DurationMs: elapsed.Milliseconds(),
		CreatedAt:  at,
	}
	if vendor != parser.VendorUnknown {
		entry.Vendor = string(vendor)
	}
	if lookupErr != nil {
		entry.Error = lookupErr.Error()
	}

	// The caller still gets its record when the log is unavailable.
	if err := s.log.CreateLookup(entry); err != nil {
		logger.Log.Warn().Err(err).Str("url", activityURL).Msg("failed to store lookup")
	}
}

// Outcome names the kind of a lookup error for the log.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, parser.ErrUnsupportedVendor):
		return OutcomeUnsupportedVendor
	case errors.Is(err, context.Canceled):
		return OutcomeCanceled
	case errors.Is(err, parser.ErrConnection):
		return OutcomeConnectionError
	case errors.Is(err, parser.ErrMalformedResponse):
		return OutcomeMalformedResponse
	default:
		return OutcomeError
	}
}
