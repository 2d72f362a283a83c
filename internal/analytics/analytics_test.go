package analytics

import (
	"reflect"
	"testing"
	"time"

	"github.com/tbourn/go-couple-reports/internal/domain"
	"github.com/tbourn/go-couple-reports/internal/periods"
)

func at(day, hour int) time.Time {
	return time.Date(2025, 3, day, hour, 0, 0, 0, time.UTC)
}

func diary(t time.Time, comment, emotion string, triggers ...string) domain.ActivityRecord {
	return domain.ActivityRecord{
		Kind: domain.KindDiaryEntry, SubjectID: "u1", At: t,
		Comment: comment, Emotion: emotion, Triggers: triggers,
	}
}

func TestComputeWeekly_CountsInsideWindow(t *testing.T) {
	w := periods.WeekWindow(time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC), time.UTC)
	rec := func(k domain.ActivityKind, ts time.Time) domain.ActivityRecord {
		return domain.ActivityRecord{Kind: k, SubjectID: "c1", At: ts}
	}
	records := []domain.ActivityRecord{
		rec(domain.KindCardSent, at(3, 1)),
		rec(domain.KindCardSent, at(4, 1)),
		rec(domain.KindChallengeCompleted, at(5, 1)),
		rec(domain.KindChallengeFailed, at(6, 1)),
		rec(domain.KindChallengeFailed, at(7, 1)),
		rec(domain.KindAssessmentSubmitted, at(8, 1)),
		rec(domain.KindCardSent, at(10, 0)),         // next week
		rec(domain.KindCardSent, time.Time{}),       // no timestamp
		rec(domain.KindDiaryEntry, at(4, 2)),        // not a couple kind
		rec(domain.ActivityKind("bogus"), at(4, 2)), // unknown
	}
	got := ComputeWeekly(records, w)
	want := WeeklyMetrics{CardsSent: 2, ChallengesCompleted: 1, ChallengesFailed: 2, DiagnosisCount: 1, NoChallengeActivity: true}
	if got != want {
		t.Fatalf("ComputeWeekly = %+v; want %+v", got, want)
	}

	records = append(records, rec(domain.KindChallengeStarted, at(4, 3)))
	if ComputeWeekly(records, w).NoChallengeActivity {
		t.Fatalf("a started challenge must clear NoChallengeActivity")
	}
}

func TestIsQualifying(t *testing.T) {
	cases := []struct {
		name string
		rec  domain.ActivityRecord
		want bool
	}{
		{"long comment", diary(at(1, 1), "다섯글자요", ""), true},
		{"short comment", diary(at(1, 1), " 넷글자 ", ""), false},
		{"padded short comment", diary(at(1, 1), "   abcd   ", ""), false},
		{"emotion only", diary(at(1, 1), "", "기쁨"), true},
		{"trigger only", diary(at(1, 1), "", "", "일"), true},
		{"blank trigger", diary(at(1, 1), "", " ", " "), false},
		{"empty", diary(at(1, 1), "", ""), false},
	}
	for _, tc := range cases {
		if got := IsQualifying(tc.rec); got != tc.want {
			t.Fatalf("%s: IsQualifying = %v; want %v", tc.name, got, tc.want)
		}
	}
}

func TestComputeMonthly_Stats(t *testing.T) {
	entries := []domain.ActivityRecord{
		diary(at(3, 2), "산책 산책 좋았어 😊😊!", "기쁨", "날씨"),           // Mon dawn
		diary(at(3, 9), "Coffee with partner ☕", "행복", "데이트", "날씨"), // Mon morning
		diary(at(5, 20), "야근 때문에 피곤", "짜증", "일"),                // Wed night
		diary(at(9, 13), "", "설렘"),                                // Sun afternoon, emotion only
		diary(at(9, 14), "hi", ""),                                 // not qualifying
		{Kind: domain.KindCardSent, At: at(4, 4)},                  // ignored kind
	}
	m := ComputeMonthly(entries, time.UTC)

	if m.TotalCount != 5 || m.QualifyingCount != 4 || len(m.Qualifying) != 4 {
		t.Fatalf("counts = total %d qualifying %d", m.TotalCount, m.QualifyingCount)
	}
	if !reflect.DeepEqual(m.EmotionStats, map[string]int{"기쁨": 1, "행복": 1, "짜증": 1, "설렘": 1}) {
		t.Fatalf("EmotionStats = %v", m.EmotionStats)
	}
	if !reflect.DeepEqual(m.TriggerStats, map[string]int{"날씨": 2, "데이트": 1, "일": 1}) {
		t.Fatalf("TriggerStats = %v", m.TriggerStats)
	}

	x := m.Extended
	if x.DayOfWeekStats["mon"] != 2 || x.DayOfWeekStats["wed"] != 1 || x.DayOfWeekStats["sun"] != 1 || len(x.DayOfWeekStats) != 7 {
		t.Fatalf("DayOfWeekStats = %v", x.DayOfWeekStats)
	}
	if !reflect.DeepEqual(x.TimeOfDayStats, map[string]int{"dawn": 1, "morning": 1, "afternoon": 1, "night": 1}) {
		t.Fatalf("TimeOfDayStats = %v", x.TimeOfDayStats)
	}
	// comments: 13, 21 and 9 runes
	if x.AverageCommentLength != 14.3 {
		t.Fatalf("AverageCommentLength = %v", x.AverageCommentLength)
	}
	// 3 positive, 1 negative
	if x.PositivityRatio != 0.75 {
		t.Fatalf("PositivityRatio = %v", x.PositivityRatio)
	}
	if len(x.TopKeywords) == 0 || x.TopKeywords[0] != (domain.TermCount{Term: "산책", Count: 2}) {
		t.Fatalf("TopKeywords = %v", x.TopKeywords)
	}
	for _, kw := range x.TopKeywords {
		if kw.Term == "때문에" || kw.Term == "with" {
			t.Fatalf("stop word leaked into keywords: %v", x.TopKeywords)
		}
	}
	if !reflect.DeepEqual(x.TopEmojis, []domain.TermCount{{Term: "😊", Count: 2}, {Term: "☕", Count: 1}}) {
		t.Fatalf("TopEmojis = %v", x.TopEmojis)
	}
}

func TestComputeMonthly_LocationShiftsBuckets(t *testing.T) {
	loc := time.FixedZone("KST", 9*3600)
	// Sunday 20:00 UTC is Monday 05:00 KST.
	m := ComputeMonthly([]domain.ActivityRecord{diary(at(9, 20), "", "기쁨")}, loc)
	if m.Extended.DayOfWeekStats["mon"] != 1 || m.Extended.TimeOfDayStats["dawn"] != 1 {
		t.Fatalf("expected Monday dawn in KST, got %v %v", m.Extended.DayOfWeekStats, m.Extended.TimeOfDayStats)
	}
}

func TestComputeMonthly_PositivityEdges(t *testing.T) {
	none := ComputeMonthly([]domain.ActivityRecord{diary(at(1, 1), "그냥 평범한 하루", "무덤덤")}, time.UTC)
	if none.Extended.PositivityRatio != 0 {
		t.Fatalf("unclassified emotions must yield 0, got %v", none.Extended.PositivityRatio)
	}
	all := ComputeMonthly([]domain.ActivityRecord{
		diary(at(1, 1), "", "기쁨"), diary(at(2, 1), "", "Love"), diary(at(3, 1), "", "무덤덤"),
	}, time.UTC)
	if all.Extended.PositivityRatio != 1.0 {
		t.Fatalf("all-positive classified entries must yield 1.0, got %v", all.Extended.PositivityRatio)
	}
	third := ComputeMonthly([]domain.ActivityRecord{
		diary(at(1, 1), "", "기쁨"), diary(at(2, 1), "", "슬픔"), diary(at(3, 1), "", "분노"),
	}, time.UTC)
	if third.Extended.PositivityRatio != 0.33 {
		t.Fatalf("expected 0.33, got %v", third.Extended.PositivityRatio)
	}
}

func TestComputeMonthly_EmptyInputHasAllBuckets(t *testing.T) {
	m := ComputeMonthly(nil, nil)
	if len(m.Extended.DayOfWeekStats) != 7 || len(m.Extended.TimeOfDayStats) != 4 {
		t.Fatalf("empty metrics must still carry every bucket: %+v", m.Extended)
	}
	if m.Extended.TopKeywords == nil || m.Extended.TopEmojis == nil || m.EmotionStats == nil || m.TriggerStats == nil {
		t.Fatalf("empty metrics must not carry nil collections")
	}
}

func TestTopKeywords_TieBreakAndLimit(t *testing.T) {
	m := ComputeMonthly([]domain.ActivityRecord{
		diary(at(1, 1), "zeta alpha gamma beta delta epsilon eta", ""),
	}, time.UTC)
	got := m.Extended.TopKeywords
	want := []domain.TermCount{
		{Term: "alpha", Count: 1}, {Term: "beta", Count: 1}, {Term: "delta", Count: 1},
		{Term: "epsilon", Count: 1}, {Term: "eta", Count: 1},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("TopKeywords = %v; want %v", got, want)
	}
}

func TestTokenizer(t *testing.T) {
	tok := NewTokenizer()
	got := tok.Tokens("Hello, WORLD! a 1 산책-했다 x2 CAFÉ")
	want := []string{"hello", "world", "산책", "x2", "café"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Tokens = %#v; want %#v", got, want)
	}
	custom := NewTokenizer(WithStopwords([]string{"Hello"}), WithMinTokenRunes(3))
	if got := custom.Tokens("hello abc de"); !reflect.DeepEqual(got, []string{"abc"}) {
		t.Fatalf("custom Tokens = %#v", got)
	}
	if tok.Tokens("   ") != nil {
		t.Fatalf("blank input should yield nil")
	}
}

func TestIsEmoji(t *testing.T) {
	for _, r := range []rune{'😊', '☕', '🚀', '🥰', '⭐', '✅', '⚽'} {
		if !IsEmoji(r) {
			t.Fatalf("IsEmoji(%q) = false", r)
		}
	}
	// Text-default symbols and plain dingbats only count with U+FE0F.
	for _, r := range []rune{'a', '가', '1', '!', '★', '♥', '✓', '☺', '❤', 0x1F3FB, 0xFE0F, 0x200D} {
		if IsEmoji(r) {
			t.Fatalf("IsEmoji(%U) = true", r)
		}
	}
}

func TestEmojis(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want []string
	}{
		{"skin tone and selector", "👍🏻 ok ❤️", []string{"👍", "❤"}},
		{"text-style symbols in korean text", "오늘 최고★ 사랑해♥ 완료✓ ☺", nil},
		{"explicit emoji request", "사랑해♥️ ☺️", []string{"♥", "☺"}},
		{"explicit text request", "☕\uFE0E 커피", nil},
		{"selector after hangul", "좋아\uFE0F", nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Emojis(tc.in); !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("Emojis(%q) = %q; want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestTopEntry(t *testing.T) {
	if _, _, ok := TopEntry(nil); ok {
		t.Fatalf("empty map has no top entry")
	}
	if _, _, ok := TopEntry(map[string]int{"a": 0}); ok {
		t.Fatalf("zero counts have no top entry")
	}
	k, n, ok := TopEntry(map[string]int{"b": 2, "a": 2, "c": 1})
	if !ok || k != "a" || n != 2 {
		t.Fatalf("TopEntry = %q %d %v", k, n, ok)
	}
}
