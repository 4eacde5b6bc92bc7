package analytics

import (
	"errors"
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/formbeat/go-survey-backend/internal/domain"
)

// Dimension sources. Field-derived dimensions come from a categorical
// question; respondent-derived dimensions come from an identity attribute
// and are neither drilldown-eligible nor publicly exposable.
const (
	DimensionSourceField      = "field"
	DimensionSourceRespondent = "respondent"
)

// respondentDimensionKeys are the respondent attributes promoted to segment
// dimensions when present in the data. Free-text identity values (name,
// email) never become dimensions.
var respondentDimensionKeys = []string{"department", "role"}

// respondentDimensionPrefix namespaces respondent-derived dimension ids so
// they cannot collide with field names.
const respondentDimensionPrefix = "respondent."

// Segmentation errors returned by drilldown resolution.
var (
	// ErrUnknownDimension indicates the dimension id does not resolve
	// against the version's field list or respondent attributes.
	ErrUnknownDimension = errors.New("unknown segment dimension")

	// ErrDrilldownNotSupported indicates the dimension exists but is not
	// drilldown-eligible (respondent-derived dimensions).
	ErrDrilldownNotSupported = errors.New("segment dimension does not support drilldown")
)

// Bucket is one value of a dimension with its aggregate count and, when the
// version has scale questions, the running average scale score of the
// responses in the bucket.
type Bucket struct {
	Value    string  `json:"value"`
	Count    int     `json:"count"`
	AvgScale float64 `json:"avg_scale,omitempty"`

	scaleSum float64
	scaleN   int
}

// Dimension groups responses by one categorical field's value or one
// respondent attribute. Buckets are in first-seen order of the scan, which
// is deterministic because storage returns responses in descending creation
// order.
type Dimension struct {
	ID        string   `json:"id"`
	Label     string   `json:"label"`
	Source    string   `json:"source"`
	Drilldown bool     `json:"drilldown"`
	Buckets   []Bucket `json:"buckets"`
}

// DiscoverDimensions builds every eligible segment dimension and buckets the
// responses in a single scan. A radio/checkbox field yields a dimension when
// its effective segmentation role is "dimension" or "auto"; sensitive fields
// never do. Respondent attributes in respondentDimensionKeys yield
// additional non-drilldown dimensions when any response carries them.
func DiscoverDimensions(fields domain.FieldList, responses []domain.Response) []Dimension {
	type dimState struct {
		dim    *Dimension
		bucket map[string]int
	}

	var order []*dimState
	fieldDims := make(map[string]*dimState)

	for _, f := range fields {
		if f.EffectiveSegmentRole() == domain.SegmentRoleExclude {
			continue
		}
		label := f.SegmentLabel
		if label == "" {
			label = f.Label
		}
		ds := &dimState{
			dim: &Dimension{
				ID:        f.Name,
				Label:     label,
				Source:    DimensionSourceField,
				Drilldown: true,
			},
			bucket: map[string]int{},
		}
		fieldDims[f.Name] = ds
		order = append(order, ds)
	}

	respondentDims := make(map[string]*dimState)
	for _, key := range respondentDimensionKeys {
		ds := &dimState{
			dim: &Dimension{
				ID:        respondentDimensionPrefix + key,
				Label:     key,
				Source:    DimensionSourceRespondent,
				Drilldown: false,
			},
			bucket: map[string]int{},
		}
		respondentDims[key] = ds
	}

	scaleFields := scaleFieldNames(fields)

	add := func(ds *dimState, value string, score float64, hasScore bool) {
		j, ok := ds.bucket[value]
		if !ok {
			j = len(ds.dim.Buckets)
			ds.bucket[value] = j
			ds.dim.Buckets = append(ds.dim.Buckets, Bucket{Value: value})
		}
		b := &ds.dim.Buckets[j]
		b.Count++
		if hasScore {
			b.scaleSum += score
			b.scaleN++
		}
	}

	for _, r := range responses {
		score, hasScore := responseScaleMean(scaleFields, r)

		for _, f := range fields {
			ds, ok := fieldDims[f.Name]
			if !ok {
				continue
			}
			v, ok := r.Answers[f.Name]
			if !ok || v == nil {
				continue
			}
			switch f.Type {
			case domain.FieldTypeRadio:
				if s, ok := AnswerString(v); ok {
					add(ds, s, score, hasScore)
				}
			case domain.FieldTypeCheckbox:
				if vals, ok := AnswerStrings(v); ok {
					for _, s := range vals {
						add(ds, s, score, hasScore)
					}
				}
			}
		}

		for _, key := range respondentDimensionKeys {
			if v, ok := r.Respondent[key]; ok && v != "" {
				add(respondentDims[key], v, score, hasScore)
			}
		}
	}

	for _, key := range respondentDimensionKeys {
		if ds := respondentDims[key]; len(ds.dim.Buckets) > 0 {
			order = append(order, ds)
		}
	}

	out := make([]Dimension, 0, len(order))
	for _, ds := range order {
		for i := range ds.dim.Buckets {
			b := &ds.dim.Buckets[i]
			if b.scaleN > 0 {
				b.AvgScale = Round2(b.scaleSum / float64(b.scaleN))
			}
		}
		out = append(out, *ds.dim)
	}
	return out
}

// FilterBySegment returns the responses whose answer for the dimension's
// field matches value (for checkbox fields: contains it). Only field-derived
// dimensions support drilldown; respondent-derived ids fail with
// ErrDrilldownNotSupported.
func FilterBySegment(fields domain.FieldList, responses []domain.Response, dimensionID, value string) ([]domain.Response, error) {
	field, err := resolveDrilldownField(fields, dimensionID)
	if err != nil {
		return nil, err
	}

	out := make([]domain.Response, 0, len(responses))
	for _, r := range responses {
		v, ok := r.Answers[field.Name]
		if !ok || v == nil {
			continue
		}
		switch field.Type {
		case domain.FieldTypeRadio:
			if s, ok := AnswerString(v); ok && s == value {
				out = append(out, r)
			}
		case domain.FieldTypeCheckbox:
			if vals, ok := AnswerStrings(v); ok {
				for _, s := range vals {
					if s == value {
						out = append(out, r)
						break
					}
				}
			}
		}
	}
	return out, nil
}

// BucketValues returns the distinct values of a drilldown-eligible dimension
// in first-seen order, used by segment comparison.
func BucketValues(fields domain.FieldList, responses []domain.Response, dimensionID string) ([]string, error) {
	if _, err := resolveDrilldownField(fields, dimensionID); err != nil {
		return nil, err
	}
	for _, d := range DiscoverDimensions(fields, responses) {
		if d.ID == dimensionID {
			values := make([]string, len(d.Buckets))
			for i, b := range d.Buckets {
				values[i] = b.Value
			}
			return values, nil
		}
	}
	return nil, nil
}

// SortBucketsForDisplay orders each dimension's buckets by count descending
// with ties broken by collated label, so public dashboards see a stable,
// intentional ordering instead of scan-order artifacts.
func SortBucketsForDisplay(dims []Dimension) {
	c := collate.New(language.English)
	for i := range dims {
		b := dims[i].Buckets
		sort.SliceStable(b, func(x, y int) bool {
			if b[x].Count != b[y].Count {
				return b[x].Count > b[y].Count
			}
			return c.CompareString(b[x].Value, b[y].Value) < 0
		})
	}
}

func resolveDrilldownField(fields domain.FieldList, dimensionID string) (domain.Field, error) {
	for _, f := range fields {
		if f.Name != dimensionID {
			continue
		}
		// The name resolves to a real field; it just cannot be drilled
		// into. Unknown is reserved for names resolving to nothing.
		if f.EffectiveSegmentRole() == domain.SegmentRoleExclude {
			return domain.Field{}, ErrDrilldownNotSupported
		}
		return f, nil
	}
	for _, key := range respondentDimensionKeys {
		if respondentDimensionPrefix+key == dimensionID {
			return domain.Field{}, ErrDrilldownNotSupported
		}
	}
	return domain.Field{}, ErrUnknownDimension
}

func scaleFieldNames(fields domain.FieldList) []string {
	var out []string
	for _, f := range fields {
		if f.Type == domain.FieldTypeScale {
			out = append(out, f.Name)
		}
	}
	return out
}

// responseScaleMean is the mean of one response's scale answers, used as the
// score contribution of that response to the buckets it lands in.
func responseScaleMean(scaleFields []string, r domain.Response) (float64, bool) {
	var sum float64
	var n int
	for _, name := range scaleFields {
		if v, ok := r.Answers[name]; ok && v != nil {
			if score, ok := AnswerScale(v); ok {
				sum += float64(score)
				n++
			}
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}
