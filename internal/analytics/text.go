package analytics

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"github.com/tbourn/go-couple-reports/internal/domain"
)

// Tokenizer splits diary comments into keyword tokens. It is immutable after
// construction and safe for concurrent use.
type Tokenizer struct {
	minRunes  int
	stopwords map[string]struct{}
}

// TokenizerOption configures a Tokenizer.
type TokenizerOption func(*Tokenizer)

// WithMinTokenRunes drops tokens shorter than n runes. Values < 1 are ignored.
func WithMinTokenRunes(n int) TokenizerOption {
	return func(t *Tokenizer) {
		if n >= 1 {
			t.minRunes = n
		}
	}
}

// WithStopwords replaces the default stop-word list.
func WithStopwords(words []string) TokenizerOption {
	return func(t *Tokenizer) {
		t.stopwords = toSet(words)
	}
}

// NewTokenizer returns a tokenizer with the default stop words and a 2-rune
// minimum token length.
func NewTokenizer(opts ...TokenizerOption) *Tokenizer {
	t := &Tokenizer{
		minRunes:  2,
		stopwords: toSet(defaultStopwords),
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// wordRE keeps runs of letters and digits; everything else separates tokens.
var wordRE = regexp.MustCompile(`[\p{L}\p{N}]+`)

// Tokens returns the keyword tokens of s in order of appearance.
func (t *Tokenizer) Tokens(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	s = fold(s)
	words := wordRE.FindAllString(s, -1)
	out := words[:0]
	for _, w := range words {
		if utf8.RuneCountInString(w) < t.minRunes {
			continue
		}
		if _, skip := t.stopwords[w]; skip {
			continue
		}
		out = append(out, w)
	}
	return out
}

// emojiPresentation lists the Emoji_Presentation=Yes code points of
// Unicode 15.1 emoji-data.txt. Symbols that are emoji but default to text
// (♥ U+2665, ☺ U+263A) and plain symbols (★ U+2605, ✓ U+2713) are absent.
var emojiPresentation = &unicode.RangeTable{
	R16: []unicode.Range16{
		{Lo: 0x231A, Hi: 0x231B, Stride: 1},
		{Lo: 0x23E9, Hi: 0x23EC, Stride: 1},
		{Lo: 0x23F0, Hi: 0x23F3, Stride: 3},
		{Lo: 0x25FD, Hi: 0x25FE, Stride: 1},
		{Lo: 0x2614, Hi: 0x2615, Stride: 1},
		{Lo: 0x2648, Hi: 0x2653, Stride: 1},
		{Lo: 0x267F, Hi: 0x2693, Stride: 0x14},
		{Lo: 0x26A1, Hi: 0x26A1, Stride: 1},
		{Lo: 0x26AA, Hi: 0x26AB, Stride: 1},
		{Lo: 0x26BD, Hi: 0x26BE, Stride: 1},
		{Lo: 0x26C4, Hi: 0x26C5, Stride: 1},
		{Lo: 0x26CE, Hi: 0x26D4, Stride: 6},
		{Lo: 0x26EA, Hi: 0x26EA, Stride: 1},
		{Lo: 0x26F2, Hi: 0x26F3, Stride: 1},
		{Lo: 0x26F5, Hi: 0x26FA, Stride: 5},
		{Lo: 0x26FD, Hi: 0x26FD, Stride: 1},
		{Lo: 0x2705, Hi: 0x2705, Stride: 1},
		{Lo: 0x270A, Hi: 0x270B, Stride: 1},
		{Lo: 0x2728, Hi: 0x2728, Stride: 1},
		{Lo: 0x274C, Hi: 0x274E, Stride: 2},
		{Lo: 0x2753, Hi: 0x2755, Stride: 1},
		{Lo: 0x2757, Hi: 0x2757, Stride: 1},
		{Lo: 0x2795, Hi: 0x2797, Stride: 1},
		{Lo: 0x27B0, Hi: 0x27BF, Stride: 0xF},
		{Lo: 0x2B1B, Hi: 0x2B1C, Stride: 1},
		{Lo: 0x2B50, Hi: 0x2B55, Stride: 5},
	},
	R32: []unicode.Range32{
		{Lo: 0x1F004, Hi: 0x1F0CF, Stride: 0xCB},
		{Lo: 0x1F18E, Hi: 0x1F18E, Stride: 1},
		{Lo: 0x1F191, Hi: 0x1F19A, Stride: 1},
		{Lo: 0x1F201, Hi: 0x1F21A, Stride: 0x19},
		{Lo: 0x1F22F, Hi: 0x1F22F, Stride: 1},
		{Lo: 0x1F232, Hi: 0x1F236, Stride: 1},
		{Lo: 0x1F238, Hi: 0x1F23A, Stride: 1},
		{Lo: 0x1F250, Hi: 0x1F251, Stride: 1},
		{Lo: 0x1F300, Hi: 0x1F320, Stride: 1},
		{Lo: 0x1F32D, Hi: 0x1F335, Stride: 1},
		{Lo: 0x1F337, Hi: 0x1F37C, Stride: 1},
		{Lo: 0x1F37E, Hi: 0x1F393, Stride: 1},
		{Lo: 0x1F3A0, Hi: 0x1F3CA, Stride: 1},
		{Lo: 0x1F3CF, Hi: 0x1F3D3, Stride: 1},
		{Lo: 0x1F3E0, Hi: 0x1F3F0, Stride: 1},
		{Lo: 0x1F3F4, Hi: 0x1F3F4, Stride: 1},
		{Lo: 0x1F3F8, Hi: 0x1F43E, Stride: 1},
		{Lo: 0x1F440, Hi: 0x1F440, Stride: 1},
		{Lo: 0x1F442, Hi: 0x1F4FC, Stride: 1},
		{Lo: 0x1F4FF, Hi: 0x1F53D, Stride: 1},
		{Lo: 0x1F54B, Hi: 0x1F54E, Stride: 1},
		{Lo: 0x1F550, Hi: 0x1F567, Stride: 1},
		{Lo: 0x1F57A, Hi: 0x1F57A, Stride: 1},
		{Lo: 0x1F595, Hi: 0x1F596, Stride: 1},
		{Lo: 0x1F5A4, Hi: 0x1F5A4, Stride: 1},
		{Lo: 0x1F5FB, Hi: 0x1F64F, Stride: 1},
		{Lo: 0x1F680, Hi: 0x1F6C5, Stride: 1},
		{Lo: 0x1F6CC, Hi: 0x1F6CC, Stride: 1},
		{Lo: 0x1F6D0, Hi: 0x1F6D2, Stride: 1},
		{Lo: 0x1F6D5, Hi: 0x1F6D7, Stride: 1},
		{Lo: 0x1F6DC, Hi: 0x1F6DF, Stride: 1},
		{Lo: 0x1F6EB, Hi: 0x1F6EC, Stride: 1},
		{Lo: 0x1F6F4, Hi: 0x1F6FC, Stride: 1},
		{Lo: 0x1F7E0, Hi: 0x1F7EB, Stride: 1},
		{Lo: 0x1F7F0, Hi: 0x1F7F0, Stride: 1},
		{Lo: 0x1F90C, Hi: 0x1F93A, Stride: 1},
		{Lo: 0x1F93C, Hi: 0x1F945, Stride: 1},
		{Lo: 0x1F947, Hi: 0x1F9FF, Stride: 1},
		{Lo: 0x1FA70, Hi: 0x1FA7C, Stride: 1},
		{Lo: 0x1FA80, Hi: 0x1FA88, Stride: 1},
		{Lo: 0x1FA90, Hi: 0x1FABD, Stride: 1},
		{Lo: 0x1FABF, Hi: 0x1FAC5, Stride: 1},
		{Lo: 0x1FACE, Hi: 0x1FADB, Stride: 1},
		{Lo: 0x1FAE0, Hi: 0x1FAE8, Stride: 1},
		{Lo: 0x1FAF0, Hi: 0x1FAF8, Stride: 1},
	},
}

const (
	textSelector  = '\uFE0E'
	emojiSelector = '\uFE0F'
)

// IsEmoji reports whether r renders with emoji presentation by default.
// Skin-tone modifiers are joiners, not emoji of their own.
func IsEmoji(r rune) bool {
	if r >= 0x1F3FB && r <= 0x1F3FF {
		return false
	}
	return unicode.Is(emojiPresentation, r)
}

// Emojis returns the emoji of s in order of appearance, one base rune each.
// A default-emoji rune followed by U+FE0E is text and skipped; any other
// non-ASCII symbol followed by U+FE0F (❤️, ☺️) is an explicit emoji request
// and counted.
func Emojis(s string) []string {
	var out []string
	runes := []rune(s)
	for i, r := range runes {
		var next rune
		if i+1 < len(runes) {
			next = runes[i+1]
		}
		switch {
		case next == textSelector:
		case IsEmoji(r), next == emojiSelector && r >= utf8.RuneSelf && !unicode.IsLetter(r):
			out = append(out, string(r))
		}
	}
	return out
}

// counter accumulates frequencies and ranks them deterministically.
type counter map[string]int

func (c counter) addAll(terms []string) {
	for _, t := range terms {
		c[t]++
	}
}

// top returns up to k terms by count desc; ties are broken by term asc.
func (c counter) top(k int) []domain.TermCount {
	out := make([]domain.TermCount, 0, len(c))
	for term, n := range c {
		out = append(out, domain.TermCount{Term: term, Count: n})
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].Count != out[b].Count {
			return out[a].Count > out[b].Count
		}
		return out[a].Term < out[b].Term
	})
	if k >= 0 && len(out) > k {
		out = out[:k]
	}
	return out
}

// fold lowercases s after NFC composition. A Caser keeps state, so each call
// gets its own.
func fold(s string) string {
	return cases.Lower(language.Und).String(norm.NFC.String(s))
}

func toSet(words []string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		w = fold(strings.TrimSpace(w))
		if w != "" {
			m[w] = struct{}{}
		}
	}
	return m
}

var defaultStopwords = []string{
	// ko
	"그리고", "그래서", "하지만", "그런데", "그러나", "그냥", "정말", "진짜", "너무", "조금",
	"많이", "오늘", "어제", "내일", "이번", "우리", "나는", "내가", "너는", "네가", "그는",
	"그녀", "했다", "했어", "한다", "하는", "하고", "해서", "있다", "있어", "없다", "없어",
	"같다", "같아", "것", "것이", "거야", "에서", "에게", "으로", "이랑", "때문에", "좀", "또",
	// en
	"the", "and", "for", "with", "that", "this", "was", "were", "are", "you", "but",
	"not", "have", "has", "had", "just", "very", "today", "really", "from", "about",
	"what", "when", "then", "they", "them", "our", "his", "her", "she", "him", "its",
	"it's", "i'm", "me", "my", "we", "to", "of", "in", "on", "is", "it", "so", "at",
}
