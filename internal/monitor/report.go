package monitor

import (
	"fmt"
	"slices"
	"time"
)

const (
	dominantModelShare      = 0.8
	dominantModelMinSamples = 10
)

// Report is a stats snapshot with recommendations derived from it.
type Report struct {
	Stats           Stats     `json:"stats"`
	Recommendations []string  `json:"recommendations"`
	GeneratedAt     time.Time `json:"generatedAt"`
}

// Report returns current statistics and threshold-driven recommendations.
// It has no side effects.
func (m *Monitor) Report() Report {
	s := m.Stats()
	return Report{
		Stats:           s,
		Recommendations: recommend(s, m.cfg.ResponseTimeThresholdMs, m.cfg.ErrorRateThreshold, m.cfg.CacheHitRateThreshold),
		GeneratedAt:     m.now(),
	}
}

func recommend(s Stats, maxResponseMs, maxErrorRate, minCacheHitRate float64) []string {
	recs := []string{}

	if s.AverageResponseTimeMs > maxResponseMs {
		recs = append(recs, fmt.Sprintf(
			"average response time %.0fms exceeds %.0fms: prefer faster models or lower task latency limits",
			s.AverageResponseTimeMs, maxResponseMs))
	}
	if s.ErrorRate > maxErrorRate {
		recs = append(recs, fmt.Sprintf(
			"error rate %.1f%% exceeds %.1f%%: check model availability and processor failures",
			s.ErrorRate*100, maxErrorRate*100))
	}
	if s.TotalRequests > 0 && s.CacheHitRate < minCacheHitRate {
		recs = append(recs, fmt.Sprintf(
			"cache hit rate %.1f%% is below %.1f%%: consider a larger cache or a better similarity function",
			s.CacheHitRate*100, minCacheHitRate*100))
	}
	if name, share, ok := dominantModel(s.ModelUsage); ok {
		recs = append(recs, fmt.Sprintf(
			"model %s serves %.0f%% of tasks: register alternatives to spread load",
			name, share*100))
	}

	return recs
}

func dominantModel(usage map[string]int) (string, float64, bool) {
	total := 0
	for _, n := range usage {
		total += n
	}
	if total < dominantModelMinSamples {
		return "", 0, false
	}

	names := make([]string, 0, len(usage))
	for name := range usage {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		share := float64(usage[name]) / float64(total)
		if share > dominantModelShare {
			return name, share, true
		}
	}
	return "", 0, false
}
