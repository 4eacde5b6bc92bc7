package analytics

import (
	"math/rand"
	"reflect"
	"testing"
	"time"

	"github.com/formbeat/go-survey-backend/internal/domain"
)

func pulseFields() domain.FieldList {
	return domain.FieldList{
		{Type: domain.FieldTypeScale, Name: "mood", Label: "Mood", Criterion: "wellbeing"},
		{Type: domain.FieldTypeScale, Name: "workload", Label: "Workload", Criterion: "wellbeing"},
		{Type: domain.FieldTypeRadio, Name: "team", Label: "Team", Options: []string{"eng", "ops", "sales"}},
		{Type: domain.FieldTypeCheckbox, Name: "tools", Label: "Tools", Options: []string{"slack", "email", "jira"}},
		{Type: domain.FieldTypeText, Name: "comment", Label: "Comment"},
	}
}

func resp(answers domain.AnswerMap, respondent domain.Respondent, createdAt time.Time) domain.Response {
	return domain.Response{Answers: answers, Respondent: respondent, CreatedAt: createdAt}
}

func TestAggregate_ScaleAverageRoundsToTwoDecimals(t *testing.T) {
	fields := domain.FieldList{{Type: domain.FieldTypeScale, Name: "mood", Label: "Mood"}}
	responses := []domain.Response{
		resp(domain.AnswerMap{"mood": float64(5)}, nil, time.Time{}),
		resp(domain.AnswerMap{"mood": float64(4)}, nil, time.Time{}),
		resp(domain.AnswerMap{"mood": float64(2)}, nil, time.Time{}),
	}

	d := Aggregate(fields, responses)
	// (5+4+2)/3 = 3.666... -> 3.67
	if d.QuestionAverages["mood"] != 3.67 {
		t.Fatalf("mood average = %v; want 3.67", d.QuestionAverages["mood"])
	}
	if d.Questions[0].Answered != 3 {
		t.Fatalf("answered = %d; want 3", d.Questions[0].Answered)
	}
	if !reflect.DeepEqual(d.Questions[0].ScoreCounts, []int{0, 1, 0, 1, 1}) {
		t.Fatalf("score counts = %v", d.Questions[0].ScoreCounts)
	}
	if d.AvgScaleOverall != 3.67 {
		t.Fatalf("overall average = %v; want 3.67", d.AvgScaleOverall)
	}
}

func TestAggregate_OptionCountsAndNullSkipping(t *testing.T) {
	fields := pulseFields()
	responses := []domain.Response{
		resp(domain.AnswerMap{"mood": float64(4), "team": "eng", "tools": []any{"slack", "jira"}, "comment": "fine"}, nil, time.Time{}),
		resp(domain.AnswerMap{"mood": float64(2), "team": "eng"}, nil, time.Time{}),
		resp(domain.AnswerMap{"team": "ops", "tools": []any{"email"}}, nil, time.Time{}),
	}

	d := Aggregate(fields, responses)
	if d.TotalResponses != 3 {
		t.Fatalf("total = %d; want 3", d.TotalResponses)
	}

	var team, tools, comment QuestionStats
	for _, q := range d.Questions {
		switch q.Name {
		case "team":
			team = q
		case "tools":
			tools = q
		case "comment":
			comment = q
		}
	}

	// Option order follows the field declaration, not the data.
	wantTeam := []OptionCount{{Label: "eng", Count: 2}, {Label: "ops", Count: 1}, {Label: "sales", Count: 0}}
	if !reflect.DeepEqual(team.OptionCounts, wantTeam) {
		t.Fatalf("team option counts = %+v", team.OptionCounts)
	}
	if team.Answered != 3 || team.TotalSelected != 3 {
		t.Fatalf("team answered/selected = %d/%d", team.Answered, team.TotalSelected)
	}

	// Checkbox selections count per option; the response counts once.
	wantTools := []OptionCount{{Label: "slack", Count: 1}, {Label: "email", Count: 1}, {Label: "jira", Count: 1}}
	if !reflect.DeepEqual(tools.OptionCounts, wantTools) {
		t.Fatalf("tools option counts = %+v", tools.OptionCounts)
	}
	if tools.Answered != 2 || tools.TotalSelected != 3 {
		t.Fatalf("tools answered/selected = %d/%d", tools.Answered, tools.TotalSelected)
	}

	if comment.Answered != 1 {
		t.Fatalf("comment answered = %d; want 1", comment.Answered)
	}

	// A response without the workload answer does not drag the average down.
	if d.QuestionAverages["mood"] != 3.0 {
		t.Fatalf("mood average = %v; want 3.0", d.QuestionAverages["mood"])
	}
	if _, ok := d.QuestionAverages["workload"]; ok {
		t.Fatalf("workload has no answers and must have no average")
	}
}

func TestAggregate_CriteriaRollup(t *testing.T) {
	fields := domain.FieldList{
		{Type: domain.FieldTypeScale, Name: "mood", Label: "Mood", Criterion: "wellbeing"},
		{Type: domain.FieldTypeScale, Name: "workload", Label: "Workload", Criterion: "wellbeing"},
		{Type: domain.FieldTypeRadio, Name: "team", Label: "Team", Criterion: "context", Options: []string{"eng"}},
	}
	responses := []domain.Response{
		resp(domain.AnswerMap{"mood": float64(5), "workload": float64(2), "team": "eng"}, nil, time.Time{}),
		resp(domain.AnswerMap{"mood": float64(4), "workload": float64(3)}, nil, time.Time{}),
	}

	d := Aggregate(fields, responses)
	if len(d.CriteriaSummary) != 2 {
		t.Fatalf("criteria = %+v", d.CriteriaSummary)
	}
	wb := d.CriteriaSummary[0]
	if wb.Criterion != "wellbeing" || wb.QuestionCount != 2 || wb.ScaleQuestionCount != 2 || wb.TotalScaleAnswers != 4 {
		t.Fatalf("wellbeing rollup = %+v", wb)
	}
	// mean(mean(5,4), mean(2,3)) = mean(4.5, 2.5) = 3.5
	if wb.AvgScore != 3.5 {
		t.Fatalf("wellbeing avg = %v; want 3.5", wb.AvgScore)
	}
	ctx := d.CriteriaSummary[1]
	if ctx.Criterion != "context" || ctx.ScaleQuestionCount != 0 || ctx.AvgScore != 0 {
		t.Fatalf("context rollup = %+v", ctx)
	}
}

func TestAggregate_DeterministicAcrossOrderings(t *testing.T) {
	fields := pulseFields()
	rng := rand.New(rand.NewSource(42))

	responses := make([]domain.Response, 0, 40)
	for i := 0; i < 40; i++ {
		responses = append(responses, resp(domain.AnswerMap{
			"mood":     float64(1 + rng.Intn(5)),
			"workload": float64(1 + rng.Intn(5)),
			"team":     []string{"eng", "ops", "sales"}[rng.Intn(3)],
			"tools":    []any{[]string{"slack", "email", "jira"}[rng.Intn(3)]},
		}, nil, time.Time{}))
	}

	base := Aggregate(fields, responses)
	for trial := 0; trial < 5; trial++ {
		shuffled := make([]domain.Response, len(responses))
		copy(shuffled, responses)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

		got := Aggregate(fields, shuffled)
		if !reflect.DeepEqual(got, base) {
			t.Fatalf("aggregation depends on response order (trial %d)", trial)
		}
	}
}

func TestAnswerReaders(t *testing.T) {
	if v, ok := AnswerScale(float64(4)); !ok || v != 4 {
		t.Fatalf("AnswerScale(4.0) = %d, %v", v, ok)
	}
	if _, ok := AnswerScale(4.5); ok {
		t.Fatalf("AnswerScale must reject fractional values")
	}
	if _, ok := AnswerScale("4"); ok {
		t.Fatalf("AnswerScale must reject strings (validator already normalized)")
	}

	if vals, ok := AnswerStrings([]any{"a", "b"}); !ok || !reflect.DeepEqual(vals, []string{"a", "b"}) {
		t.Fatalf("AnswerStrings([]any) = %v, %v", vals, ok)
	}
	if vals, ok := AnswerStrings([]string{"a"}); !ok || len(vals) != 1 {
		t.Fatalf("AnswerStrings([]string) = %v, %v", vals, ok)
	}
	if vals, ok := AnswerStrings("solo"); !ok || vals[0] != "solo" {
		t.Fatalf("AnswerStrings(string) = %v, %v", vals, ok)
	}
	if _, ok := AnswerStrings([]any{"a", 3}); ok {
		t.Fatalf("AnswerStrings must reject mixed slices")
	}
}

func TestRound2(t *testing.T) {
	cases := map[float64]float64{
		3.666666: 3.67,
		3.664:    3.66,
		2.0:      2.0,
		-3.666:   -3.67,
	}
	for in, want := range cases {
		if got := Round2(in); got != want {
			t.Fatalf("Round2(%v) = %v; want %v", in, got, want)
		}
	}
}
