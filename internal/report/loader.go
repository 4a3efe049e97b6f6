package report

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// FirstReportDate is the first day the daily report series was published.
var FirstReportDate = time.Date(2020, time.January, 22, 0, 0, 0, 0, time.UTC)

// Loader resolves dates to snapshots through a Source and a Cache.
type Loader struct {
	source Source
	base   string
	cache  *Cache
	log    *zap.Logger
	now    func() time.Time
}

// Option configures a Loader.
type Option func(*Loader)

// WithCache shares an existing cache.
func WithCache(c *Cache) Option {
	return func(l *Loader) {
		if c != nil {
			l.cache = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(l *Loader) {
		if log != nil {
			l.log = log
		}
	}
}

// WithClock injects the clock used to reject dates in the future.
func WithClock(now func() time.Time) Option {
	return func(l *Loader) {
		if now != nil {
			l.now = now
		}
	}
}

// NewLoader builds a loader reading from src under base. An empty base uses
// DefaultBaseURL.
func NewLoader(src Source, base string, opts ...Option) *Loader {
	if base == "" {
		base = DefaultBaseURL
	}
	l := &Loader{
		source: src,
		base:   base,
		cache:  NewCache(),
		log:    zap.NewNop(),
		now:    time.Now,
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Cache exposes the loader's cache.
func (l *Loader) Cache() *Cache { return l.cache }

// Location returns the source location for date.
func (l *Loader) Location(date time.Time) string { return Location(l.base, date) }

// Load returns the snapshot for date, fetching it on the first request only.
func (l *Loader) Load(ctx context.Context, date time.Time) (*Snapshot, error) {
	key := DateKey(date)
	// The shared fetch must outlive any single caller's cancellation.
	fetchCtx := context.WithoutCancel(ctx)
	snap, hit, err := l.cache.Do(ctx, key, func() (*Snapshot, error) {
		return l.fetch(fetchCtx, date)
	})
	if err != nil {
		l.log.Warn("snapshot load failed",
			zap.String("date", key),
			zap.String("kind", Kind(err)),
			zap.Error(err),
		)
		return nil, err
	}
	if hit {
		l.log.Debug("snapshot cache hit", zap.String("date", key))
	}
	return snap, nil
}

func (l *Loader) fetch(ctx context.Context, date time.Time) (*Snapshot, error) {
	key := DateKey(date)
	location := l.Location(date)
	today := DateKey(l.now())
	if key > today {
		return nil, &DataUnavailableError{Date: key, Location: location, Err: fmt.Errorf("date is after %s", today)}
	}
	if key < DateKey(FirstReportDate) {
		return nil, &DataUnavailableError{Date: key, Location: location, Err: fmt.Errorf("series starts on %s", DateKey(FirstReportDate))}
	}

	fetchID := uuid.NewString()
	log := l.log.With(zap.String("date", key), zap.String("fetch_id", fetchID))
	log.Info("fetching snapshot", zap.String("location", location))
	start := time.Now()

	content, err := l.source.Fetch(ctx, location)
	if err != nil {
		return nil, stampDate(err, key, location)
	}
	snap, err := newSnapshot(date, location, content)
	if err != nil {
		return nil, err
	}
	snap.FetchID = fetchID
	snap.FetchedAt = l.now()
	log.Info("snapshot loaded",
		zap.Int("bytes", len(content)),
		zap.Int("rows", snap.Rows()),
		zap.Int("columns", len(snap.header)),
		zap.Stringer("columns_index", snap.columns),
		zap.Duration("elapsed", time.Since(start)),
	)
	return snap, nil
}

// stampDate fills in the date on typed source errors and classifies
// anything untyped as unavailable.
func stampDate(err error, key, location string) error {
	var du *DataUnavailableError
	if errors.As(err, &du) {
		du.Date = key
		return du
	}
	var md *MalformedDataError
	if errors.As(err, &md) {
		md.Date = key
		return md
	}
	return &DataUnavailableError{Date: key, Location: location, Err: err}
}
