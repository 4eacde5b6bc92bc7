package analytics

import (
	"testing"
)

func TestGateConfig_Eligible(t *testing.T) {
	g := GateConfig{MinSample: 30, MinBucket: 10}
	if g.Eligible(29) {
		t.Fatalf("29 responses must not be publicly eligible")
	}
	if !g.Eligible(30) {
		t.Fatalf("30 responses must be publicly eligible")
	}
}

func TestGateDimensions_SuppressesSmallBucketsAndRespondentDims(t *testing.T) {
	g := GateConfig{MinSample: 30, MinBucket: 10}
	dims := []Dimension{
		{
			ID: "team", Source: DimensionSourceField, Drilldown: true,
			Buckets: []Bucket{
				{Value: "eng", Count: 25},
				{Value: "ops", Count: 9}, // below MinBucket
				{Value: "sales", Count: 12},
			},
		},
		{
			ID: "office", Source: DimensionSourceField,
			Buckets: []Bucket{{Value: "hq", Count: 3}}, // all buckets suppressed
		},
		{
			ID: "respondent.department", Source: DimensionSourceRespondent,
			Buckets: []Bucket{{Value: "eng", Count: 100}},
		},
	}

	out := g.GateDimensions(dims)

	if len(out) != 1 || out[0].ID != "team" {
		t.Fatalf("gated dimensions = %+v", out)
	}
	// ops suppressed; survivors ordered count-descending.
	if len(out[0].Buckets) != 2 || out[0].Buckets[0].Value != "eng" || out[0].Buckets[1].Value != "sales" {
		t.Fatalf("gated buckets = %+v", out[0].Buckets)
	}

	// Input is not mutated.
	if len(dims[0].Buckets) != 3 {
		t.Fatalf("input dimensions were mutated: %+v", dims[0].Buckets)
	}
}

func TestGateDimensions_TieBreakByLabel(t *testing.T) {
	g := GateConfig{MinBucket: 1}
	dims := []Dimension{{
		ID: "team", Source: DimensionSourceField,
		Buckets: []Bucket{
			{Value: "zulu", Count: 10},
			{Value: "alpha", Count: 10},
		},
	}}
	out := g.GateDimensions(dims)
	if out[0].Buckets[0].Value != "alpha" || out[0].Buckets[1].Value != "zulu" {
		t.Fatalf("tie-break ordering wrong: %+v", out[0].Buckets)
	}
}
