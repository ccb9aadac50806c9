package seo

import "math"

// MetricKey names a snapshot metric by its column name.
type MetricKey string

// Snapshot metric columns.
const (
	MetricOverallScore MetricKey = "overall_score"
	MetricClicks       MetricKey = "gsc_clicks"
	MetricImpressions  MetricKey = "gsc_impressions"
	MetricCTR          MetricKey = "gsc_ctr"
	MetricMobileScore  MetricKey = "psi_mobile_score"
	MetricLCP          MetricKey = "psi_lcp"
)

// DeltaMetrics are the integer-valued metrics that receive a delta.
var DeltaMetrics = []MetricKey{
	MetricOverallScore,
	MetricClicks,
	MetricImpressions,
	MetricMobileScore,
}

// Deltas holds the change of each delta metric between the two newest snapshots.
type Deltas map[MetricKey]int64

// Get returns the delta for key, 0 when absent.
func (d Deltas) Get(key MetricKey) int64 {
	return d[key]
}

// ComputeDeltas compares snapshots[0] (newest) with snapshots[1]. With fewer
// than two snapshots every delta is zero.
func ComputeDeltas(snapshots []Snapshot) Deltas {
	out := make(Deltas, len(DeltaMetrics))
	for _, key := range DeltaMetrics {
		out[key] = 0
	}
	if len(snapshots) < 2 {
		return out
	}
	latest, previous := snapshots[0], snapshots[1]
	for _, key := range DeltaMetrics {
		out[key] = saturatingSub(latest.Metric(key).Int(), previous.Metric(key).Int())
	}
	return out
}

func saturatingSub(a, b int64) int64 {
	d := a - b
	switch {
	case b < 0 && d < a:
		return math.MaxInt64
	case b > 0 && d > a:
		return math.MinInt64
	}
	return d
}

// DeltaColor tells the presentation which direction of change is good.
type DeltaColor string

// Delta colors.
const (
	DeltaNormal  DeltaColor = "normal"
	DeltaInverse DeltaColor = "inverse"
)

// DefaultLCPThresholdSeconds is the largest-contentful-paint budget.
const DefaultLCPThresholdSeconds = 2.5

// ThresholdPolicy classifies metric values whose lower values are desirable.
// Metrics without a threshold are always normal.
type ThresholdPolicy struct {
	limits map[MetricKey]float64
}

// NewThresholdPolicy builds a policy with the given upper limits.
func NewThresholdPolicy(limits map[MetricKey]float64) ThresholdPolicy {
	cp := make(map[MetricKey]float64, len(limits))
	for k, v := range limits {
		cp[k] = v
	}
	return ThresholdPolicy{limits: cp}
}

// DefaultThresholdPolicy flags LCP above 2.5 seconds.
func DefaultThresholdPolicy() ThresholdPolicy {
	return NewThresholdPolicy(map[MetricKey]float64{MetricLCP: DefaultLCPThresholdSeconds})
}

// Classify returns DeltaInverse when value exceeds the metric's limit.
// A missing value is coerced to zero first.
func (p ThresholdPolicy) Classify(key MetricKey, value Metric) DeltaColor {
	limit, ok := p.limits[key]
	if !ok {
		return DeltaNormal
	}
	if value.Float() > limit {
		return DeltaInverse
	}
	return DeltaNormal
}

// Limit reports the configured limit for key.
func (p ThresholdPolicy) Limit(key MetricKey) (float64, bool) {
	limit, ok := p.limits[key]
	return limit, ok
}
