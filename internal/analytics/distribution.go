// Package analytics provides the pure in-memory aggregation engines of the
// survey backend: per-field distributions, criteria rollups, segment
// discovery and drilldown, data-quality scoring, privacy gating, and trend
// series. It is intentionally free of I/O and logging:
//
//   - No persistence or network calls (callers load the response set)
//   - Deterministic output for a given response set in any order, achieved
//     by aggregating with commutative sums/counts and dividing only at the
//     end
//   - Safe for concurrent use (all functions are stateless)
//
// The service layer resolves questionnaire context, loads responses from
// storage, and composes these engines into API payloads.
package analytics

import (
	"math"

	"github.com/formbeat/go-survey-backend/internal/domain"
)

// ScalePoints is the number of score buckets on the fixed 1..5 scale.
const ScalePoints = 5

// OptionCount is the tally for one radio/checkbox option, in the option
// order declared by the field.
type OptionCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// QuestionStats holds the per-type statistics of one field over a response
// set. Only the portions relevant to the field's type are populated.
type QuestionStats struct {
	Name      string `json:"name"`
	Label     string `json:"label"`
	Type      string `json:"type"`
	Criterion string `json:"criterion,omitempty"`
	// Answered is the number of responses with a non-null answer.
	Answered int `json:"answered"`

	// Radio/checkbox: ordered per-option counts and the total number of
	// selections (for checkbox each selected option counts independently).
	OptionCounts  []OptionCount `json:"option_counts,omitempty"`
	TotalSelected int           `json:"total_selected,omitempty"`

	// Scale: arithmetic mean rounded to 2 decimals and per-score counts
	// (index 0 = score 1).
	Average     float64 `json:"average,omitempty"`
	ScoreCounts []int   `json:"score_counts,omitempty"`

	sum float64
}

// ScaleAverage is the headline average of one scale question.
type ScaleAverage struct {
	Name     string  `json:"name"`
	Label    string  `json:"label"`
	Average  float64 `json:"average"`
	Answered int     `json:"answered"`
}

// CriterionSummary rolls up all fields sharing one criterion tag.
type CriterionSummary struct {
	Criterion          string  `json:"criterion"`
	QuestionCount      int     `json:"question_count"`
	ScaleQuestionCount int     `json:"scale_question_count"`
	TotalScaleAnswers  int     `json:"total_scale_answers"`
	// AvgScore is the mean of the per-question scale averages.
	AvgScore float64 `json:"avg_score"`
}

// Distribution is the full aggregation of one response set against one
// version's field list.
type Distribution struct {
	TotalResponses      int                `json:"total_responses"`
	Questions           []QuestionStats    `json:"questions"`
	ScaleAverages       []ScaleAverage     `json:"scale_averages"`
	CriteriaSummary     []CriterionSummary `json:"criteria_summary"`
	QuestionAverages    map[string]float64 `json:"question_averages"`
	AvgScaleOverall     float64            `json:"avg_scale_overall"`
	TotalScaleQuestions int                `json:"total_scale_questions"`
}

// Aggregate computes per-field statistics and criteria rollups over the
// responses. Responses missing an answer for a field simply do not count
// toward that field. Output is identical for any ordering of the input.
func Aggregate(fields domain.FieldList, responses []domain.Response) Distribution {
	stats := make([]QuestionStats, len(fields))
	optIndex := make([]map[string]int, len(fields))

	for i, f := range fields {
		stats[i] = QuestionStats{Name: f.Name, Label: f.Label, Type: f.Type, Criterion: f.Criterion}
		switch f.Type {
		case domain.FieldTypeRadio, domain.FieldTypeCheckbox:
			stats[i].OptionCounts = make([]OptionCount, len(f.Options))
			idx := make(map[string]int, len(f.Options))
			for j, o := range f.Options {
				stats[i].OptionCounts[j] = OptionCount{Label: o}
				idx[o] = j
			}
			optIndex[i] = idx
		case domain.FieldTypeScale:
			stats[i].ScoreCounts = make([]int, ScalePoints)
		}
	}

	for _, r := range responses {
		for i, f := range fields {
			v, ok := r.Answers[f.Name]
			if !ok || v == nil {
				continue
			}
			switch f.Type {
			case domain.FieldTypeText:
				stats[i].Answered++
			case domain.FieldTypeRadio:
				s, ok := AnswerString(v)
				if !ok {
					continue
				}
				stats[i].Answered++
				if j, ok := optIndex[i][s]; ok {
					stats[i].OptionCounts[j].Count++
					stats[i].TotalSelected++
				}
			case domain.FieldTypeCheckbox:
				vals, ok := AnswerStrings(v)
				if !ok || len(vals) == 0 {
					continue
				}
				stats[i].Answered++
				for _, s := range vals {
					if j, ok := optIndex[i][s]; ok {
						stats[i].OptionCounts[j].Count++
						stats[i].TotalSelected++
					}
				}
			case domain.FieldTypeScale:
				score, ok := AnswerScale(v)
				if !ok || score < 1 || score > ScalePoints {
					continue
				}
				stats[i].Answered++
				stats[i].sum += float64(score)
				stats[i].ScoreCounts[score-1]++
			}
		}
	}

	out := Distribution{
		TotalResponses:   len(responses),
		Questions:        stats,
		QuestionAverages: map[string]float64{},
	}

	var overallSum float64
	var overallN int
	for i, f := range fields {
		if f.Type != domain.FieldTypeScale {
			continue
		}
		out.TotalScaleQuestions++
		if stats[i].Answered == 0 {
			continue
		}
		avg := stats[i].sum / float64(stats[i].Answered)
		stats[i].Average = Round2(avg)
		out.QuestionAverages[f.Name] = stats[i].Average
		out.ScaleAverages = append(out.ScaleAverages, ScaleAverage{
			Name:     f.Name,
			Label:    f.Label,
			Average:  stats[i].Average,
			Answered: stats[i].Answered,
		})
		overallSum += avg
		overallN++
	}
	if overallN > 0 {
		out.AvgScaleOverall = Round2(overallSum / float64(overallN))
	}

	out.CriteriaSummary = summarizeCriteria(fields, stats)
	out.Questions = stats
	return out
}

// summarizeCriteria groups fields sharing a non-empty criterion tag, in
// first-declared order of the criteria.
func summarizeCriteria(fields domain.FieldList, stats []QuestionStats) []CriterionSummary {
	var order []string
	byTag := map[string]*CriterionSummary{}
	avgSum := map[string]float64{}
	avgN := map[string]int{}

	for i, f := range fields {
		if f.Criterion == "" {
			continue
		}
		cs, ok := byTag[f.Criterion]
		if !ok {
			cs = &CriterionSummary{Criterion: f.Criterion}
			byTag[f.Criterion] = cs
			order = append(order, f.Criterion)
		}
		cs.QuestionCount++
		if f.Type == domain.FieldTypeScale {
			cs.ScaleQuestionCount++
			cs.TotalScaleAnswers += stats[i].Answered
			if stats[i].Answered > 0 {
				avgSum[f.Criterion] += stats[i].sum / float64(stats[i].Answered)
				avgN[f.Criterion]++
			}
		}
	}

	out := make([]CriterionSummary, 0, len(order))
	for _, tag := range order {
		cs := byTag[tag]
		if n := avgN[tag]; n > 0 {
			cs.AvgScore = Round2(avgSum[tag] / float64(n))
		}
		out = append(out, *cs)
	}
	return out
}

// Round2 rounds to 2 decimal places, half away from zero.
func Round2(x float64) float64 {
	return math.Round(x*100) / 100
}

// AnswerString reads a normalized radio/text answer, tolerating the shapes
// produced by a JSON round-trip through storage.
func AnswerString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

// AnswerStrings reads a normalized checkbox answer. After storage the slice
// surfaces as []any; fresh from the validator it is []string.
func AnswerStrings(v any) ([]string, bool) {
	switch t := v.(type) {
	case []string:
		return t, true
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			s, ok := e.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	case string:
		return []string{t}, true
	default:
		return nil, false
	}
}

// AnswerScale reads a normalized scale answer (float64 from the validator or
// from JSON; int tolerated for callers constructing responses in code).
func AnswerScale(v any) (int, bool) {
	switch t := v.(type) {
	case float64:
		n := int(t)
		if float64(n) != t {
			return 0, false
		}
		return n, true
	case int:
		return t, true
	default:
		return 0, false
	}
}
