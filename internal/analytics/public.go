package analytics

// GateConfig holds the k-anonymity-style thresholds of the public-facing
// privacy gate.
type GateConfig struct {
	// MinSample is the total sample size below which the entire payload is
	// replaced by an insufficient-sample status.
	MinSample int
	// MinBucket is the per-bucket count below which a segmentation bucket
	// is dropped from public output.
	MinBucket int
}

// StatusInsufficientSample is the public payload status returned when the
// total sample is below the gate minimum; only counts survive, no
// breakdowns.
const StatusInsufficientSample = "insufficient_sample"

// StatusOK marks a public payload that passed the gate.
const StatusOK = "ok"

// Eligible reports whether a sample is large enough for any public
// breakdown at all.
func (g GateConfig) Eligible(sampleSize int) bool {
	return sampleSize >= g.MinSample
}

// GateDimensions applies per-bucket suppression to segment dimensions for
// public exposure:
//
//   - respondent-derived dimensions are dropped entirely (identity-adjacent,
//     never public)
//   - buckets with a count below MinBucket are dropped
//   - dimensions left with zero buckets are omitted
//
// Surviving buckets are re-ordered for display (count descending, ties by
// collated label). The input slice is not modified.
func (g GateConfig) GateDimensions(dims []Dimension) []Dimension {
	out := make([]Dimension, 0, len(dims))
	for _, d := range dims {
		if d.Source != DimensionSourceField {
			continue
		}
		kept := make([]Bucket, 0, len(d.Buckets))
		for _, b := range d.Buckets {
			if b.Count >= g.MinBucket {
				kept = append(kept, b)
			}
		}
		if len(kept) == 0 {
			continue
		}
		d.Buckets = kept
		out = append(out, d)
	}
	SortBucketsForDisplay(out)
	return out
}
