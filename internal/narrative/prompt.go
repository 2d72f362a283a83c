package narrative

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	maxPromptEntries = 60
	maxCommentRunes  = 200
)

type promptEntry struct {
	Date     string   `json:"date"`
	Emotion  string   `json:"emotion,omitempty"`
	Triggers []string `json:"triggers,omitempty"`
	Comment  string   `json:"comment,omitempty"`
}

// BuildPrompt renders the single request sent to the generative service:
// current stats, prior-month stats, extended stats, and a compact per-entry
// summary of the most recent qualifying diaries.
func BuildPrompt(in Input) string {
	loc := in.Location
	if loc == nil {
		loc = time.UTC
	}

	entries := in.Current.Qualifying
	if len(entries) > maxPromptEntries {
		entries = entries[len(entries)-maxPromptEntries:]
	}
	summaries := make([]promptEntry, 0, len(entries))
	for _, e := range entries {
		summaries = append(summaries, promptEntry{
			Date:     e.At.In(loc).Format(time.DateOnly),
			Emotion:  strings.TrimSpace(e.Emotion),
			Triggers: e.Triggers,
			Comment:  truncate(strings.TrimSpace(e.Comment), maxCommentRunes),
		})
	}

	var b strings.Builder
	b.WriteString("당신은 커플 관계 상담가입니다. 아래는 한 사용자의 한 달 감정 일기 통계입니다.\n")
	b.WriteString("다음 JSON 스키마와 정확히 일치하는 JSON만 반환하세요. 다른 텍스트는 쓰지 마세요.\n")
	b.WriteString(`{"summary": string, "comparison": string, "suggestions": [string, string, string], "metrics": object}`)
	b.WriteString("\n- summary: 이번 달 감정 흐름 요약 (2~3문장)\n")
	b.WriteString("- comparison: 지난달과의 비교 (지난달 데이터가 없으면 비교할 수 없다고 쓰기)\n")
	b.WriteString("- suggestions: 실천 가능한 제안 정확히 3개\n\n")

	fmt.Fprintf(&b, "기간: %s\n", in.Month.Format("2006-01"))
	writeJSON(&b, "이번 달 감정 통계", in.Current.EmotionStats)
	writeJSON(&b, "이번 달 감정 요인 통계", in.Current.TriggerStats)
	writeJSON(&b, "확장 통계", in.Current.Extended)
	if in.HasPrior() {
		writeJSON(&b, "지난달 감정 통계", in.PriorEmotionStats)
		writeJSON(&b, "지난달 감정 요인 통계", in.PriorTriggerStats)
	} else {
		b.WriteString("지난달 데이터: 없음\n")
	}
	writeJSON(&b, "일기 요약", summaries)
	return b.String()
}

func writeJSON(b *strings.Builder, label string, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		raw = []byte("null")
	}
	fmt.Fprintf(b, "%s: %s\n", label, raw)
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + "…"
}
