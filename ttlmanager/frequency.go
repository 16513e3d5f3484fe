package ttlmanager

import (
	"math"
	"time"
)

// windowDuration is how long an UpdateFrequencyRecord's running statistics
// remain valid before being reset to start a fresh observation window.
const windowDuration = 7 * 24 * time.Hour

// minAdaptiveSamples is the minimum observed update count before ADAPTIVE
// trusts the running mean/variance instead of falling back to base TTL.
const minAdaptiveSamples = 3

// UpdateFrequencyRecord tracks how often an entity type's data changes,
// feeding the ADAPTIVE strategy. Stats use Welford's online algorithm so
// no history buffer is retained.
type UpdateFrequencyRecord struct {
	EntityType   string
	LastUpdate   time.Time
	MeanInterval time.Duration
	varianceM2   float64 // Welford running sum of squared deviations, in seconds^2
	SampleCount  int
	WindowStart  time.Time
}

// recordUpdate folds an observed update at `at` into the record, resetting
// the running window if it has aged past windowDuration.
func (r *UpdateFrequencyRecord) recordUpdate(at time.Time) {
	if r.WindowStart.IsZero() || at.Sub(r.WindowStart) > windowDuration {
		r.WindowStart = at
		r.MeanInterval = 0
		r.varianceM2 = 0
		r.SampleCount = 0
		r.LastUpdate = time.Time{}
	}

	if !r.LastUpdate.IsZero() {
		interval := at.Sub(r.LastUpdate)
		r.SampleCount++
		r.welfordUpdate(interval.Seconds())
	}
	r.LastUpdate = at
}

func (r *UpdateFrequencyRecord) welfordUpdate(x float64) {
	n := float64(r.SampleCount)
	meanSeconds := r.MeanInterval.Seconds()
	delta := x - meanSeconds
	meanSeconds += delta / n
	delta2 := x - meanSeconds
	r.varianceM2 += delta * delta2
	r.MeanInterval = time.Duration(meanSeconds * float64(time.Second))
}

// varianceProxy returns a standard-deviation-like value (same units as
// MeanInterval) over the samples observed so far.
func (r *UpdateFrequencyRecord) varianceProxy() time.Duration {
	if r.SampleCount < 2 {
		return 0
	}
	variance := r.varianceM2 / float64(r.SampleCount-1)
	return time.Duration(math.Sqrt(variance) * float64(time.Second))
}
