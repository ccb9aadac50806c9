package seo

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Metric is a nullable numeric measurement read from the store.
type Metric struct {
	Value float64
	Valid bool
}

// NewMetric returns a valid metric holding v.
func NewMetric(v float64) Metric {
	return ParseMetric(v)
}

// NullMetric returns a metric with no value.
func NullMetric() Metric {
	return Metric{}
}

// MetricFromPtr converts a scanned nullable column into a Metric.
func MetricFromPtr(v *float64) Metric {
	if v == nil {
		return Metric{}
	}
	return ParseMetric(*v)
}

// ParseMetric is the single coercion point between raw store values and Metric.
// Nil, NaN, infinities, booleans and anything that is not a number or a
// numeric string yield an invalid metric.
func ParseMetric(raw any) Metric {
	var f float64
	switch v := raw.(type) {
	case nil:
		return Metric{}
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int32:
		f = float64(v)
	case int64:
		f = float64(v)
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return Metric{}
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return Metric{}
		}
		f = parsed
	case *float64:
		return MetricFromPtr(v)
	default:
		return Metric{}
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Metric{}
	}
	return Metric{Value: f, Valid: true}
}

// Int truncates the value toward zero, saturating at the int64 bounds.
// A missing value counts as 0.
func (m Metric) Int() int64 {
	if !m.Valid {
		return 0
	}
	switch {
	case m.Value >= math.MaxInt64:
		return math.MaxInt64
	case m.Value <= math.MinInt64:
		return math.MinInt64
	}
	return int64(m.Value)
}

// Float returns the value, or 0 when missing.
func (m Metric) Float() float64 {
	if !m.Valid {
		return 0
	}
	return m.Value
}

// Ptr returns nil for a missing value, used when writing rows back.
func (m Metric) Ptr() *float64 {
	if !m.Valid {
		return nil
	}
	v := m.Value
	return &v
}

// String renders the metric for display; missing values render as "-".
func (m Metric) String() string {
	if !m.Valid {
		return "-"
	}
	return strconv.FormatFloat(m.Value, 'f', -1, 64)
}

// MarshalJSON encodes a missing value as null.
func (m Metric) MarshalJSON() ([]byte, error) {
	if !m.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(m.Value)
}

// UnmarshalJSON accepts numbers, numeric strings and null.
func (m *Metric) UnmarshalJSON(data []byte) error {
	var raw any
	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		*m = Metric{}
		return nil //nolint:nilerr // malformed metric values are treated as missing
	}
	*m = ParseMetric(raw)
	return nil
}
