package analytics

import (
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/tbourn/go-couple-reports/internal/domain"
)

// MinCommentRunes is the trimmed comment length that alone qualifies a diary.
const MinCommentRunes = 5

const topN = 5

// Day-of-week bucket keys, Monday first.
var DayKeys = [7]string{"mon", "tue", "wed", "thu", "fri", "sat", "sun"}

// Time-of-day bucket keys.
const (
	BucketDawn      = "dawn"      // 00-06
	BucketMorning   = "morning"   // 06-12
	BucketAfternoon = "afternoon" // 12-18
	BucketNight     = "night"     // 18-24
)

// TimeKeys lists the time-of-day buckets in clock order.
var TimeKeys = [4]string{BucketDawn, BucketMorning, BucketAfternoon, BucketNight}

// MonthlyMetrics is the monthly diary analysis of one user.
type MonthlyMetrics struct {
	EmotionStats map[string]int
	TriggerStats map[string]int
	Extended     domain.ExtendedStats

	// TotalCount is every diary entry seen; QualifyingCount only those that
	// passed IsQualifying and fed the statistics above.
	TotalCount      int
	QualifyingCount int

	// Qualifying holds the entries the statistics were computed from, in
	// input order. The narrative prompt summarizes them.
	Qualifying []domain.ActivityRecord
}

// IsQualifying reports whether a diary entry has enough content to count:
// a comment of at least MinCommentRunes, a named emotion, or a named trigger.
func IsQualifying(r domain.ActivityRecord) bool {
	if utf8.RuneCountInString(strings.TrimSpace(r.Comment)) >= MinCommentRunes {
		return true
	}
	if strings.TrimSpace(r.Emotion) != "" {
		return true
	}
	for _, t := range r.Triggers {
		if strings.TrimSpace(t) != "" {
			return true
		}
	}
	return false
}

// Polarity classifies named emotions as positive or negative. Unknown names
// are unclassified and do not affect the positivity ratio.
type Polarity struct {
	positive map[string]struct{}
	negative map[string]struct{}
}

// NewPolarity builds a polarity table from two allow-lists.
func NewPolarity(positive, negative []string) Polarity {
	return Polarity{positive: toSet(positive), negative: toSet(negative)}
}

// DefaultPolarity is the product allow-list of emotion names.
var DefaultPolarity = NewPolarity(
	[]string{"기쁨", "행복", "설렘", "감사", "편안", "사랑", "joy", "happy", "excited", "grateful", "calm", "love"},
	[]string{"슬픔", "분노", "불안", "서운", "외로움", "짜증", "sad", "angry", "anxious", "hurt", "lonely", "annoyed"},
)

// Classify returns +1, -1 or 0 for positive, negative and unclassified.
func (p Polarity) Classify(emotion string) int {
	e := fold(strings.TrimSpace(emotion))
	if e == "" {
		return 0
	}
	if _, ok := p.positive[e]; ok {
		return 1
	}
	if _, ok := p.negative[e]; ok {
		return -1
	}
	return 0
}

// Calculator computes monthly metrics in a report location.
type Calculator struct {
	loc       *time.Location
	tokenizer *Tokenizer
	polarity  Polarity
}

// Option configures a Calculator.
type Option func(*Calculator)

// WithTokenizer overrides the keyword tokenizer.
func WithTokenizer(t *Tokenizer) Option {
	return func(c *Calculator) {
		if t != nil {
			c.tokenizer = t
		}
	}
}

// WithPolarity overrides the emotion allow-lists.
func WithPolarity(p Polarity) Option {
	return func(c *Calculator) { c.polarity = p }
}

// NewCalculator returns a calculator bucketing timestamps in loc (UTC if nil).
func NewCalculator(loc *time.Location, opts ...Option) *Calculator {
	if loc == nil {
		loc = time.UTC
	}
	c := &Calculator{loc: loc, tokenizer: NewTokenizer(), polarity: DefaultPolarity}
	for _, o := range opts {
		o(c)
	}
	return c
}

// ComputeMonthly is Calculator.Monthly with the default tokenizer and polarity.
func ComputeMonthly(entries []domain.ActivityRecord, loc *time.Location) MonthlyMetrics {
	return NewCalculator(loc).Monthly(entries)
}

// Monthly analyzes diary entries. Non-diary records are ignored; only
// qualifying entries contribute to any statistic.
func (c *Calculator) Monthly(entries []domain.ActivityRecord) MonthlyMetrics {
	m := MonthlyMetrics{
		EmotionStats: map[string]int{},
		TriggerStats: map[string]int{},
		Extended:     emptyExtended(),
	}

	var (
		commentRunes, commentCount int
		pos, neg                   int
		keywords                   = counter{}
		emojis                     = counter{}
	)
	for _, e := range entries {
		if e.Kind != "" && e.Kind != domain.KindDiaryEntry {
			continue
		}
		m.TotalCount++
		if !IsQualifying(e) {
			continue
		}
		m.QualifyingCount++
		m.Qualifying = append(m.Qualifying, e)

		if em := strings.TrimSpace(e.Emotion); em != "" {
			m.EmotionStats[em]++
		}
		for _, t := range e.Triggers {
			if t = strings.TrimSpace(t); t != "" {
				m.TriggerStats[t]++
			}
		}
		switch c.polarity.Classify(e.Emotion) {
		case 1:
			pos++
		case -1:
			neg++
		}

		if !e.At.IsZero() {
			lt := e.At.In(c.loc)
			m.Extended.DayOfWeekStats[DayKeys[(int(lt.Weekday())+6)%7]]++
			m.Extended.TimeOfDayStats[TimeKeys[lt.Hour()/6]]++
		}

		if comment := strings.TrimSpace(e.Comment); comment != "" {
			commentRunes += utf8.RuneCountInString(comment)
			commentCount++
			keywords.addAll(c.tokenizer.Tokens(comment))
			emojis.addAll(Emojis(comment))
		}
	}

	if commentCount > 0 {
		m.Extended.AverageCommentLength = round(float64(commentRunes)/float64(commentCount), 1)
	}
	if pos+neg > 0 {
		m.Extended.PositivityRatio = round(float64(pos)/float64(pos+neg), 2)
	}
	m.Extended.TopKeywords = keywords.top(topN)
	m.Extended.TopEmojis = emojis.top(topN)
	return m
}

func emptyExtended() domain.ExtendedStats {
	x := domain.ExtendedStats{
		DayOfWeekStats: make(map[string]int, len(DayKeys)),
		TimeOfDayStats: make(map[string]int, len(TimeKeys)),
		TopKeywords:    []domain.TermCount{},
		TopEmojis:      []domain.TermCount{},
	}
	for _, k := range DayKeys {
		x.DayOfWeekStats[k] = 0
	}
	for _, k := range TimeKeys {
		x.TimeOfDayStats[k] = 0
	}
	return x
}

// TopEntry returns the key with the highest count; ties go to the smaller
// key so the result is stable. ok is false for an empty or all-zero map.
func TopEntry(stats map[string]int) (key string, count int, ok bool) {
	for k, n := range stats {
		if n <= 0 {
			continue
		}
		if !ok || n > count || (n == count && k < key) {
			key, count, ok = k, n, true
		}
	}
	return key, count, ok
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
