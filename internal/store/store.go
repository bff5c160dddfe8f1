package store

import (
	"context"
	"fmt"
	"time"

	"github.com/coldchain/fridgewatch/internal/telemetry"
)

// Sentinel errors for the two load failure classes. Both are fatal for
// the cycle that triggered the load; the controller retains the prior
// output and flags it stale.
var (
	ErrDataUnavailable = fmt.Errorf("telemetry source unavailable")
	ErrSchema          = fmt.Errorf("telemetry source schema error")
)

// Provider reads the full set of readings from the external source.
// Every call is a complete re-read; there is no incremental append.
type Provider interface {
	ReadAll(ctx context.Context) ([]telemetry.Reading, error)
}

// Store owns the currently loaded Series. The series is replaced, never
// mutated, on each load; the previous one stays valid for whoever still
// holds it. Access is serialized by the controller's cycle, so the
// store itself carries no locking.
type Store struct {
	provider Provider
	ref      *time.Location
	current  *telemetry.Series
}

// New creates a Store over a provider. ref is the fixed reference
// offset that all source timestamps are converted to before their
// offset is stripped; it is set once at startup and never mixed across
// reloads.
func New(provider Provider, ref *time.Location) *Store {
	if ref == nil {
		ref = time.UTC
	}
	return &Store{provider: provider, ref: ref}
}

// Load re-reads the entire series from the provider, normalizes the
// timestamps and replaces the current series. The cost is O(series
// size) on every call, which is why the controller only loads when the
// liveness flag says so.
func (s *Store) Load(ctx context.Context) (*telemetry.Series, error) {
	readings, err := s.provider.ReadAll(ctx)
	if err != nil {
		return nil, err
	}
	if len(readings) == 0 {
		return nil, fmt.Errorf("%w: source returned no readings", ErrDataUnavailable)
	}

	for i := range readings {
		readings[i].Timestamp = s.normalize(readings[i].Timestamp)
	}

	s.current = telemetry.NewSeries(readings)
	return s.current, nil
}

// Current returns the most recently loaded series, or nil before the
// first successful load.
func (s *Store) Current() *telemetry.Series { return s.current }

// normalize converts t to the reference offset and strips the offset,
// yielding the canonical timezone-naive representation. Epoch seconds
// derived from the result count from the Unix epoch on the naive wall
// clock, matching the source's own range axis.
func (s *Store) normalize(t time.Time) time.Time {
	t = t.In(s.ref)
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}
