package narrative

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tbourn/go-couple-reports/internal/analytics"
	"github.com/tbourn/go-couple-reports/internal/domain"
	"github.com/tbourn/go-couple-reports/internal/genai"
)

func diary(day, hour int, comment, emotion string, triggers ...string) domain.ActivityRecord {
	return domain.ActivityRecord{
		Kind: domain.KindDiaryEntry, SubjectID: "u1",
		At:      time.Date(2025, 3, day, hour, 0, 0, 0, time.UTC),
		Comment: comment, Emotion: emotion, Triggers: triggers,
	}
}

func sampleInput() Input {
	m := analytics.ComputeMonthly([]domain.ActivityRecord{
		diary(3, 21, "산책하면서 이야기 나눴어", "행복", "데이트"),
		diary(4, 22, "저녁 먹고 산책 또 산책", "행복", "데이트"),
		diary(12, 9, "회의가 길어서 지쳤다", "짜증", "일"),
	}, time.UTC)
	return Input{UserID: "u1", Month: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), Current: m}
}

func assertComplete(t *testing.T, n domain.Narrative) {
	t.Helper()
	if strings.TrimSpace(n.Summary) == "" {
		t.Fatalf("summary must be non-empty")
	}
	if len(n.Suggestions) != SuggestionCount {
		t.Fatalf("expected %d suggestions, got %v", SuggestionCount, n.Suggestions)
	}
	for _, s := range n.Suggestions {
		if strings.TrimSpace(s) == "" {
			t.Fatalf("blank suggestion in %v", n.Suggestions)
		}
	}
	if n.Metrics.EmotionStats == nil || n.Metrics.TriggerStats == nil {
		t.Fatalf("metrics must carry emotion and trigger stats: %+v", n.Metrics)
	}
}

// ---- fallback ----

func TestFallback_ZeroDiaries(t *testing.T) {
	in := Input{Current: analytics.ComputeMonthly(nil, time.UTC)}
	n := Fallback(in)
	assertComplete(t, n)
	if n.Summary != summaryNoData || n.Comparison != comparisonNoPrior {
		t.Fatalf("unexpected texts: %+v", n)
	}
	for i, s := range n.Suggestions {
		if s != genericSuggestions[i] {
			t.Fatalf("expected generic padding, got %v", n.Suggestions)
		}
	}

	// Even a zero-value MonthlyMetrics must produce complete metrics.
	assertComplete(t, Fallback(Input{}))
}

func TestFallback_SummaryAndSuggestionsFromSignals(t *testing.T) {
	n := Fallback(sampleInput())
	assertComplete(t, n)
	if !strings.Contains(n.Summary, "행복") || !strings.Contains(n.Summary, "데이트") {
		t.Fatalf("summary should name top emotion and trigger: %q", n.Summary)
	}
	if n.Suggestions[0] != timeSuggestions[analytics.BucketNight] {
		t.Fatalf("first suggestion should come from time of day: %q", n.Suggestions[0])
	}
	if !strings.HasPrefix(n.Suggestions[1], "월요일") {
		t.Fatalf("second suggestion should come from weekday: %q", n.Suggestions[1])
	}
	if !strings.Contains(n.Suggestions[2], "'산책'") {
		t.Fatalf("third suggestion should use the top keyword: %q", n.Suggestions[2])
	}
}

func TestFallback_Comparison(t *testing.T) {
	in := sampleInput()

	in.PriorEmotionStats = map[string]int{"행복": 4}
	in.PriorTriggerStats = map[string]int{"데이트": 1}
	if got := Fallback(in).Comparison; got != comparisonSame {
		t.Fatalf("same tops should yield no-change sentence, got %q", got)
	}

	in.PriorEmotionStats = map[string]int{"불안": 3, "행복": 1}
	in.PriorTriggerStats = map[string]int{"일": 2}
	got := Fallback(in).Comparison
	if !strings.Contains(got, "'불안'에서 '행복'") || !strings.Contains(got, "'일'에서 '데이트'") {
		t.Fatalf("comparison should name both changes, got %q", got)
	}

	in.PriorEmotionStats = map[string]int{"불안": 0}
	in.PriorTriggerStats = nil
	if got := Fallback(in).Comparison; got != comparisonNoPrior {
		t.Fatalf("all-zero prior counts mean no prior data, got %q", got)
	}
}

// ---- parse ----

func TestParse_Variants(t *testing.T) {
	ok := `{"summary":"요약","comparison":"비교","suggestions":["a","b","c"],"metrics":{}}`
	p, err := Parse("```json\n" + ok + "\n```")
	if err != nil {
		t.Fatalf("Parse structured: %v", err)
	}
	s, isStructured := p.(Structured)
	if !isStructured || s.Summary != "요약" || len(s.Suggestions) != 3 {
		t.Fatalf("unexpected parse: %#v", p)
	}

	p, err = Parse("이번 달은 전반적으로 평온했어요.")
	if err != nil {
		t.Fatalf("Parse freeform: %v", err)
	}
	if f, isFree := p.(Freeform); !isFree || !strings.HasPrefix(f.Text, "이번 달") {
		t.Fatalf("expected Freeform, got %#v", p)
	}

	bad := []string{
		``,
		`{"summary":"x"`,
		`{"summary":"","suggestions":["a","b","c"]}`,
		`{"summary":"x","suggestions":["a","b"]}`,
		`{"summary":"x","suggestions":["a"," ","c"]}`,
		`["a","b","c"]`,
	}
	for _, in := range bad {
		if _, err := Parse(in); genai.KindOf(err) != genai.KindSchemaMismatch {
			t.Fatalf("Parse(%q) err = %v; want schema mismatch", in, err)
		}
	}
}

func TestNormalize_OverwritesMetricsAndFillsGaps(t *testing.T) {
	in := sampleInput()
	n, src := Normalize(Structured{Summary: "s", Suggestions: []string{"1", "2", "3"}}, in)
	if src != domain.NarrativeSourceGenerated {
		t.Fatalf("source = %q", src)
	}
	if n.Comparison != comparisonNoPrior {
		t.Fatalf("empty comparison should be filled from fallback, got %q", n.Comparison)
	}
	if n.Metrics.EmotionStats["행복"] != 2 {
		t.Fatalf("metrics must be the local ones: %+v", n.Metrics)
	}

	n, src = Normalize(Freeform{Text: "그냥 글"}, in)
	if src != domain.NarrativeSourceFreeform || n.Summary != "그냥 글" {
		t.Fatalf("freeform normalize = %+v %q", n, src)
	}
	assertComplete(t, n)
}

// ---- generator ----

func TestGenerator_StructuredPath(t *testing.T) {
	var gotPrompt string
	client := genai.ClientFunc(func(_ context.Context, p string) (string, error) {
		gotPrompt = p
		return `{"summary":"AI 요약","comparison":"AI 비교","suggestions":["x","y","z"],"metrics":{"bogus":1}}`, nil
	})
	in := sampleInput()
	in.PriorEmotionStats = map[string]int{"불안": 1}

	res := New(client).Generate(context.Background(), in)
	if res.Source != domain.NarrativeSourceGenerated || res.Narrative.Summary != "AI 요약" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.Narrative.Metrics.TriggerStats["데이트"] != 2 {
		t.Fatalf("model metrics must be replaced by local metrics: %+v", res.Narrative.Metrics)
	}
	for _, want := range []string{"2025-03", "행복", "지난달 감정 통계", "산책하면서"} {
		if !strings.Contains(gotPrompt, want) {
			t.Fatalf("prompt missing %q:\n%s", want, gotPrompt)
		}
	}
}

func TestGenerator_FallsBackOnEveryFailureKind(t *testing.T) {
	cases := []struct {
		name string
		err  error
		text string
		want string
	}{
		{"quota", genai.Wrap(genai.KindRateLimited, 429, errors.New("quota")), "", "rate_limited"},
		{"timeout", context.DeadlineExceeded, "", "timeout"},
		{"other", errors.New("boom"), "", "other"},
		{"bad json", nil, `{"summary":"x"}`, "schema_mismatch"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			before := testutil.ToFloat64(narrativeFailures.WithLabelValues(tc.want))
			client := genai.ClientFunc(func(context.Context, string) (string, error) { return tc.text, tc.err })

			res := New(client).Generate(context.Background(), sampleInput())
			if res.Source != domain.NarrativeSourceFallback || res.Failure != tc.want {
				t.Fatalf("result = %+v", res)
			}
			assertComplete(t, res.Narrative)
			if got := testutil.ToFloat64(narrativeFailures.WithLabelValues(tc.want)); got != before+1 {
				t.Fatalf("failure counter = %v; want %v", got, before+1)
			}
		})
	}
}

func TestGenerator_TimeoutIsEnforced(t *testing.T) {
	client := genai.ClientFunc(func(ctx context.Context, _ string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	start := time.Now()
	res := New(client, WithTimeout(20*time.Millisecond)).Generate(context.Background(), sampleInput())
	if time.Since(start) > 2*time.Second {
		t.Fatalf("timeout not applied")
	}
	if res.Failure != "timeout" {
		t.Fatalf("failure = %q", res.Failure)
	}
}

func TestGenerator_NilClientUsesFallback(t *testing.T) {
	before := testutil.ToFloat64(narrativeTotal.WithLabelValues(domain.NarrativeSourceFallback))
	res := New(nil).Generate(context.Background(), sampleInput())
	if res.Source != domain.NarrativeSourceFallback || res.Failure != "" {
		t.Fatalf("result = %+v", res)
	}
	if got := testutil.ToFloat64(narrativeTotal.WithLabelValues(domain.NarrativeSourceFallback)); got != before+1 {
		t.Fatalf("source counter not incremented")
	}
}

func TestBuildPrompt_NoPriorAndTruncation(t *testing.T) {
	long := strings.Repeat("가", maxCommentRunes+50)
	in := Input{
		Month:   time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		Current: analytics.ComputeMonthly([]domain.ActivityRecord{diary(1, 1, long, "")}, time.UTC),
	}
	p := BuildPrompt(in)
	if !strings.Contains(p, "지난달 데이터: 없음") {
		t.Fatalf("prompt should state missing prior data")
	}
	if strings.Contains(p, long) || !strings.Contains(p, "…") {
		t.Fatalf("long comments should be truncated")
	}
}
