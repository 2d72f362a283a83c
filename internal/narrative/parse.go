package narrative

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tbourn/go-couple-reports/internal/domain"
	"github.com/tbourn/go-couple-reports/internal/genai"
)

// Parsed is the tagged result of reading model output: either Structured or
// Freeform. It is normalized into a domain.Narrative before anything else
// sees it.
type Parsed interface {
	isParsed()
}

// Structured is output that matched the narrative schema.
type Structured struct {
	Summary     string
	Comparison  string
	Suggestions []string
}

// Freeform is plain prose.
type Freeform struct {
	Text string
}

func (Structured) isParsed() {}
func (Freeform) isParsed()   {}

type schemaPayload struct {
	Summary     *string         `json:"summary"`
	Comparison  *string         `json:"comparison"`
	Suggestions []string        `json:"suggestions"`
	Metrics     json.RawMessage `json:"metrics"`
}

var (
	errMissingSummary  = errors.New("summary is empty")
	errSuggestionCount = errors.New("suggestions must have exactly 3 non-empty lines")
)

// Parse classifies raw model text. Text that looks like JSON must satisfy the
// schema (non-empty summary, exactly 3 suggestions) or Parse returns a
// KindSchemaMismatch error; anything else is Freeform.
func Parse(text string) (Parsed, error) {
	s := stripFences(strings.TrimSpace(text))
	if s == "" {
		return nil, genai.Wrap(genai.KindSchemaMismatch, 0, genai.ErrEmptyResponse)
	}
	if !strings.HasPrefix(s, "{") && !strings.HasPrefix(s, "[") {
		return Freeform{Text: s}, nil
	}

	var p schemaPayload
	if err := json.Unmarshal([]byte(s), &p); err != nil {
		return nil, genai.Wrap(genai.KindSchemaMismatch, 0, fmt.Errorf("decode narrative: %w", err))
	}
	if p.Summary == nil || strings.TrimSpace(*p.Summary) == "" {
		return nil, genai.Wrap(genai.KindSchemaMismatch, 0, errMissingSummary)
	}
	if len(p.Suggestions) != SuggestionCount {
		return nil, genai.Wrap(genai.KindSchemaMismatch, 0, errSuggestionCount)
	}
	out := Structured{Summary: strings.TrimSpace(*p.Summary)}
	for _, line := range p.Suggestions {
		line = strings.TrimSpace(line)
		if line == "" {
			return nil, genai.Wrap(genai.KindSchemaMismatch, 0, errSuggestionCount)
		}
		out.Suggestions = append(out.Suggestions, line)
	}
	if p.Comparison != nil {
		out.Comparison = strings.TrimSpace(*p.Comparison)
	}
	return out, nil
}

// Normalize turns a parsed variant into the persisted shape. Missing parts
// come from the fallback and metrics are always the locally computed ones.
func Normalize(p Parsed, in Input) (domain.Narrative, string) {
	fb := Fallback(in)
	switch v := p.(type) {
	case Structured:
		n := domain.Narrative{
			Summary:     v.Summary,
			Comparison:  v.Comparison,
			Suggestions: v.Suggestions,
			Metrics:     fb.Metrics,
		}
		if n.Comparison == "" {
			n.Comparison = fb.Comparison
		}
		return n, domain.NarrativeSourceGenerated
	case Freeform:
		fb.Summary = v.Text
		return fb, domain.NarrativeSourceFreeform
	default:
		return fb, domain.NarrativeSourceFallback
	}
}

// stripFences removes a surrounding ``` or ```json code fence.
func stripFences(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
