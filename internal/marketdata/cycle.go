package marketdata

import (
	"fmt"
	"time"
)

// Cycle defaults for the 15-minute up/down market series.
const (
	DefaultCycleDuration  = 15 * time.Minute
	DefaultCycleTolerance = 90 * time.Second
)

// CycleSpec describes a recurring fixed-duration market series. One market
// exists per cycle; its slug encodes the cycle start and it expires at the
// cycle end.
type CycleSpec struct {
	Duration  time.Duration
	Tolerance time.Duration // clock-skew window around cycle boundaries
}

func (s CycleSpec) withDefaults() CycleSpec {
	if s.Duration <= 0 {
		s.Duration = DefaultCycleDuration
	}
	if s.Tolerance <= 0 {
		s.Tolerance = DefaultCycleTolerance
	}
	return s
}

// CycleStart floors now to the cycle boundary, in UTC. When now is within
// Tolerance of the next boundary it snaps forward: the current cycle's
// market is already closing there, and two callers straddling the boundary
// by less than the skew window must resolve the same market.
func (s CycleSpec) CycleStart(now time.Time) time.Time {
	s = s.withDefaults()
	start := now.UTC().Truncate(s.Duration)
	if s.Duration-now.UTC().Sub(start) <= s.Tolerance {
		start = start.Add(s.Duration)
	}
	return start
}

// CycleEnd returns the expiry of the cycle containing now.
func (s CycleSpec) CycleEnd(now time.Time) time.Time {
	return s.CycleStart(now).Add(s.withDefaults().Duration)
}

// Slug builds the series slug for the cycle containing now, e.g.
// "15min-up-down-20260831-1445". The timestamp is the cycle start in UTC;
// no wall-clock string matching is involved.
func (s CycleSpec) Slug(seriesPrefix string, now time.Time) string {
	return fmt.Sprintf("%s-%s", seriesPrefix, s.CycleStart(now).Format("20060102-1504"))
}

// ExpiryMatches reports whether a fetched market's expiry agrees with the
// computed cycle end within the tolerance window.
func (s CycleSpec) ExpiryMatches(expiry time.Time, now time.Time) bool {
	s = s.withDefaults()
	diff := expiry.Sub(s.CycleEnd(now))
	if diff < 0 {
		diff = -diff
	}
	return diff <= s.Tolerance
}
