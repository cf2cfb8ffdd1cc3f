package parser

import (
	"context"

	"github.com/sstent/activity-lookup/internal/models"
)

// Parser fetches one activity lazily. The first accessor call performs the
// fetch; later calls reuse the result. A failed fetch is final for the
// instance: every accessor keeps returning the same error and no partial
// record is exposed. Parsers are not safe for concurrent use.
type Parser interface {
	Vendor() Vendor
	URL() string
	Info(ctx context.Context) (models.ActivityRecord, error)
	Distance(ctx context.Context) (int, error)
	StartTime(ctx context.Context) (int64, error)
	Duration(ctx context.Context) (int, error)
	AverageSpeed(ctx context.Context) (float64, error)
}

type fetchState int

const (
	stateUnfetched fetchState = iota
	stateFetched
	stateFailed
)

// lazyRecord holds the lifecycle shared by all vendor parsers.
type lazyRecord struct {
	url    string
	fetch  func(ctx context.Context) (models.ActivityRecord, error)
	state  fetchState
	record models.ActivityRecord
	err    error
}

func (l *lazyRecord) URL() string {
	return l.url
}

func (l *lazyRecord) load(ctx context.Context) error {
	switch l.state {
	case stateFetched:
		return nil
	case stateFailed:
		return l.err
	}

	record, err := l.fetch(ctx)
	if err != nil {
		l.state = stateFailed
		l.err = err
		return err
	}

	l.record = record
	l.state = stateFetched
	return nil
}

func (l *lazyRecord) Info(ctx context.Context) (models.ActivityRecord, error) {
	if err := l.load(ctx); err != nil {
		return models.ActivityRecord{}, err
	}
	return l.record, nil
}

func (l *lazyRecord) Distance(ctx context.Context) (int, error) {
	if err := l.load(ctx); err != nil {
		return 0, err
	}
	return l.record.Distance, nil
}

func (l *lazyRecord) StartTime(ctx context.Context) (int64, error) {
	if err := l.load(ctx); err != nil {
		return 0, err
	}
	return l.record.StartTime, nil
}

func (l *lazyRecord) Duration(ctx context.Context) (int, error) {
	if err := l.load(ctx); err != nil {
		return 0, err
	}
	return l.record.Duration, nil
}

func (l *lazyRecord) AverageSpeed(ctx context.Context) (float64, error) {
	if err := l.load(ctx); err != nil {
		return 0, err
	}
	return l.record.AverageSpeed, nil
}
