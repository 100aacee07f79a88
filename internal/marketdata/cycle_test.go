package marketdata

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCycleStartFloorsToBoundary(t *testing.T) {
	spec := CycleSpec{Duration: 15 * time.Minute, Tolerance: 90 * time.Second}

	now := time.Date(2026, 8, 31, 14, 7, 12, 0, time.UTC)
	want := time.Date(2026, 8, 31, 14, 0, 0, 0, time.UTC)

	assert.Equal(t, want, spec.CycleStart(now))
	assert.Equal(t, want.Add(15*time.Minute), spec.CycleEnd(now))
}

func TestCycleStartSnapsForwardNearBoundary(t *testing.T) {
	spec := CycleSpec{Duration: 15 * time.Minute, Tolerance: 90 * time.Second}

	// 14:14:30 is 30s before the 14:15 boundary, inside the skew window.
	now := time.Date(2026, 8, 31, 14, 14, 30, 0, time.UTC)
	want := time.Date(2026, 8, 31, 14, 15, 0, 0, time.UTC)

	assert.Equal(t, want, spec.CycleStart(now))
}

func TestCycleStableAcrossBoundarySkew(t *testing.T) {
	spec := CycleSpec{Duration: 15 * time.Minute, Tolerance: 90 * time.Second}
	boundary := time.Date(2026, 8, 31, 14, 15, 0, 0, time.UTC)

	// Two clocks straddling the boundary by less than the tolerance must
	// agree on the cycle, and therefore on the slug.
	before := boundary.Add(-30 * time.Second)
	after := boundary.Add(30 * time.Second)

	assert.Equal(t, spec.CycleStart(before), spec.CycleStart(after))
	assert.Equal(t, spec.Slug("15min-up-down", before), spec.Slug("15min-up-down", after))
}

func TestCycleSlugFormat(t *testing.T) {
	spec := CycleSpec{Duration: 15 * time.Minute, Tolerance: 90 * time.Second}

	now := time.Date(2026, 8, 31, 14, 31, 0, 0, time.UTC)
	assert.Equal(t, "15min-up-down-20260831-1430", spec.Slug("15min-up-down", now))
}

func TestExpiryMatchesWithinTolerance(t *testing.T) {
	spec := CycleSpec{Duration: 15 * time.Minute, Tolerance: 90 * time.Second}

	now := time.Date(2026, 8, 31, 14, 5, 0, 0, time.UTC)
	end := time.Date(2026, 8, 31, 14, 15, 0, 0, time.UTC)

	assert.True(t, spec.ExpiryMatches(end, now))
	assert.True(t, spec.ExpiryMatches(end.Add(60*time.Second), now))
	assert.True(t, spec.ExpiryMatches(end.Add(-60*time.Second), now))
	assert.False(t, spec.ExpiryMatches(end.Add(2*time.Minute), now))
	assert.False(t, spec.ExpiryMatches(end.Add(15*time.Minute), now))
}

func TestCycleSpecDefaults(t *testing.T) {
	spec := CycleSpec{}.withDefaults()

	assert.Equal(t, DefaultCycleDuration, spec.Duration)
	assert.Equal(t, DefaultCycleTolerance, spec.Tolerance)
}
