package analytics

import "time"

// Confidence labels attached to every aggregate.
const (
	ConfidenceLow    = "low"
	ConfidenceMedium = "medium"
	ConfidenceHigh   = "high"
)

// Warning names emitted with a DataQuality annotation.
const (
	WarnLowSampleSize       = "low_sample_size"
	WarnSegmentFiltered     = "segment_filtered"
	WarnDateRangeNarrow     = "date_range_narrow"
	WarnStaleLastSubmission = "stale_last_submission"
)

// Sample-size and recency thresholds behind the confidence label and
// warnings.
const (
	highConfidenceSample   = 150
	mediumConfidenceSample = 50
	lowSampleWarning       = 30
	narrowRangeDays        = 7
	staleAfter             = 30 * 24 * time.Hour
)

// DataQuality annotates an aggregate with how trustworthy it is. It is
// recomputed per request and never persisted.
type DataQuality struct {
	SampleSize int      `json:"sample_size"`
	Confidence string   `json:"confidence"`
	Warnings   []string `json:"warnings"`
}

// HasWarning reports whether the named warning was emitted.
func (q DataQuality) HasWarning(name string) bool {
	for _, w := range q.Warnings {
		if w == name {
			return true
		}
	}
	return false
}

// QualityInput carries the request facts the assessment is derived from.
type QualityInput struct {
	SampleSize      int
	SegmentFiltered bool
	From            *time.Time
	To              *time.Time
	LastSubmission  *time.Time
	Now             time.Time
}

// AssessQuality scores one aggregation request. Confidence is high at 150+
// samples, medium at 50+, low below; warnings flag small samples, active
// segment filters, narrow date ranges (7 days or less), and stale data (no
// submission within 30 days).
func AssessQuality(in QualityInput) DataQuality {
	q := DataQuality{SampleSize: in.SampleSize, Warnings: []string{}}

	switch {
	case in.SampleSize >= highConfidenceSample:
		q.Confidence = ConfidenceHigh
	case in.SampleSize >= mediumConfidenceSample:
		q.Confidence = ConfidenceMedium
	default:
		q.Confidence = ConfidenceLow
	}

	if in.SampleSize < lowSampleWarning {
		q.Warnings = append(q.Warnings, WarnLowSampleSize)
	}
	if in.SegmentFiltered {
		q.Warnings = append(q.Warnings, WarnSegmentFiltered)
	}
	if in.From != nil && in.To != nil && !in.To.Before(*in.From) {
		if in.To.Sub(*in.From) <= narrowRangeDays*24*time.Hour {
			q.Warnings = append(q.Warnings, WarnDateRangeNarrow)
		}
	}
	if in.LastSubmission == nil || in.Now.Sub(*in.LastSubmission) > staleAfter {
		q.Warnings = append(q.Warnings, WarnStaleLastSubmission)
	}
	return q
}
