package narrative

import (
	"fmt"
	"strings"

	"github.com/tbourn/go-couple-reports/internal/analytics"
	"github.com/tbourn/go-couple-reports/internal/domain"
)

// SuggestionCount is the exact number of suggestion lines in a narrative.
const SuggestionCount = 3

const (
	summaryNoData     = "이번 달에는 분석할 감정 기록이 충분하지 않았어요."
	comparisonNoPrior = "지난달 기록이 없어 비교할 수 없어요."
	comparisonSame    = "지난달과 비교해 큰 변화가 없어요."
)

var genericSuggestions = [SuggestionCount]string{
	"하루 한 줄이라도 감정 일기를 꾸준히 남겨 보세요.",
	"감정이 크게 움직인 순간을 구체적으로 적어 보세요.",
	"한 주를 돌아보며 고마웠던 일을 세 가지 적어 보세요.",
}

var timeSuggestions = map[string]string{
	analytics.BucketDawn:      "새벽에 기록이 많았어요. 잠들기 전 5분 호흡으로 마음을 가라앉혀 보세요.",
	analytics.BucketMorning:   "아침 기록이 많았어요. 하루를 시작하며 오늘의 감정을 한 줄로 남겨 보세요.",
	analytics.BucketAfternoon: "오후 기록이 많았어요. 점심 뒤 짧은 산책으로 감정을 환기해 보세요.",
	analytics.BucketNight:     "저녁 기록이 많았어요. 하루를 마무리하며 파트너와 감정을 나눠 보세요.",
}

var dayNames = map[string]string{
	"mon": "월", "tue": "화", "wed": "수", "thu": "목", "fri": "금", "sat": "토", "sun": "일",
}

// Fallback builds the deterministic narrative for in. It never fails and
// always yields a non-empty summary, exactly three suggestions, and metrics
// carrying both emotion and trigger stats.
func Fallback(in Input) domain.Narrative {
	return domain.Narrative{
		Summary:     fallbackSummary(in.Current),
		Comparison:  fallbackComparison(in),
		Suggestions: fallbackSuggestions(in.Current),
		Metrics:     localMetrics(in.Current),
	}
}

func fallbackSummary(m analytics.MonthlyMetrics) string {
	emo, _, hasEmo := analytics.TopEntry(m.EmotionStats)
	trig, _, hasTrig := analytics.TopEntry(m.TriggerStats)
	switch {
	case hasEmo && hasTrig:
		return fmt.Sprintf("이번 달에는 '%s' 감정을 가장 많이 기록했고, '%s' 때문에 마음이 움직인 날이 많았어요.", emo, trig)
	case hasEmo:
		return fmt.Sprintf("이번 달에는 '%s' 감정을 가장 많이 기록했어요.", emo)
	case hasTrig:
		return fmt.Sprintf("이번 달에는 '%s'와(과) 관련된 기록이 가장 많았어요.", trig)
	default:
		return summaryNoData
	}
}

func fallbackComparison(in Input) string {
	if !in.HasPrior() {
		return comparisonNoPrior
	}
	var clauses []string

	curEmo, _, okCur := analytics.TopEntry(in.Current.EmotionStats)
	prevEmo, _, okPrev := analytics.TopEntry(in.PriorEmotionStats)
	if okCur && okPrev && curEmo != prevEmo {
		clauses = append(clauses, fmt.Sprintf("가장 많이 느낀 감정이 '%s'에서 '%s'(으)로 바뀌었어요.", prevEmo, curEmo))
	}

	curTrig, _, okCur := analytics.TopEntry(in.Current.TriggerStats)
	prevTrig, _, okPrev := analytics.TopEntry(in.PriorTriggerStats)
	if okCur && okPrev && curTrig != prevTrig {
		clauses = append(clauses, fmt.Sprintf("가장 큰 감정 요인이 '%s'에서 '%s'(으)로 바뀌었어요.", prevTrig, curTrig))
	}

	if len(clauses) == 0 {
		return comparisonSame
	}
	return strings.Join(clauses, " ")
}

// fallbackSuggestions derives lines from the busiest time of day, the busiest
// weekday and the top keyword, then pads with generic journaling lines.
func fallbackSuggestions(m analytics.MonthlyMetrics) []string {
	out := make([]string, 0, SuggestionCount)

	if k, ok := topBucket(m.Extended.TimeOfDayStats, analytics.TimeKeys[:]); ok {
		out = append(out, timeSuggestions[k])
	}
	if k, ok := topBucket(m.Extended.DayOfWeekStats, analytics.DayKeys[:]); ok {
		out = append(out, fmt.Sprintf("%s요일에 감정 기록이 가장 많았어요. 그날은 서로에게 조금 더 여유를 주세요.", dayNames[k]))
	}
	if len(m.Extended.TopKeywords) > 0 {
		out = append(out, fmt.Sprintf("'%s' 이야기가 자주 등장했어요. 이 주제로 파트너와 대화해 보세요.", m.Extended.TopKeywords[0].Term))
	}
	for _, g := range genericSuggestions {
		if len(out) >= SuggestionCount {
			break
		}
		out = append(out, g)
	}
	return out[:SuggestionCount]
}

// topBucket returns the key with the highest positive count; ties resolve to
// the earliest key in order.
func topBucket(stats map[string]int, order []string) (string, bool) {
	best, bestN := "", 0
	for _, k := range order {
		if n := stats[k]; n > bestN {
			best, bestN = k, n
		}
	}
	return best, bestN > 0
}

func localMetrics(m analytics.MonthlyMetrics) domain.NarrativeMetrics {
	nm := domain.NarrativeMetrics{
		EmotionStats:  m.EmotionStats,
		TriggerStats:  m.TriggerStats,
		ExtendedStats: m.Extended,
	}
	if nm.EmotionStats == nil {
		nm.EmotionStats = map[string]int{}
	}
	if nm.TriggerStats == nil {
		nm.TriggerStats = map[string]int{}
	}
	return nm
}
