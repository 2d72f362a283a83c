package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"
)

const maxResponseBytes = 1 << 20

// GeminiConfig configures the Gemini generateContent client.
type GeminiConfig struct {
	APIKey  string
	BaseURL string // e.g. https://generativelanguage.googleapis.com/v1beta/models
	Model   string
	Timeout time.Duration
	RPS     float64 // outbound request budget; <= 0 means unthrottled
}

// Endpoint returns the generateContent URL for the configured model.
func (c GeminiConfig) Endpoint() string {
	return strings.TrimRight(c.BaseURL, "/") + "/" + c.Model + ":generateContent"
}

// Gemini is a Client backed by the Gemini REST API. It asks for JSON output
// but returns whatever text the model produced; parsing is the caller's job.
type Gemini struct {
	cfg     GeminiConfig
	hc      *http.Client
	limiter *rate.Limiter
}

// GeminiOption customizes a Gemini client.
type GeminiOption func(*Gemini)

// WithHTTPClient swaps the underlying HTTP client (tests, custom transports).
func WithHTTPClient(hc *http.Client) GeminiOption {
	return func(g *Gemini) {
		if hc != nil {
			g.hc = hc
		}
	}
}

// NewGemini builds a client. A non-positive Timeout defaults to 12s.
func NewGemini(cfg GeminiConfig, opts ...GeminiOption) *Gemini {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 12 * time.Second
	}
	g := &Gemini{
		cfg: cfg,
		hc:  &http.Client{Timeout: cfg.Timeout},
	}
	if cfg.RPS > 0 {
		burst := int(cfg.RPS)
		if burst < 1 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Limit(cfg.RPS), burst)
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig map[string]interface{} `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

type geminiErrorBody struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Generate sends prompt and returns the concatenated candidate text.
func (g *Gemini) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, span := otel.Tracer("genai/gemini").Start(ctx, "Gemini.Generate")
	defer span.End()
	span.SetAttributes(
		attribute.String("genai.model", g.cfg.Model),
		attribute.Int("genai.prompt_len", len(prompt)),
	)

	text, err := g.generate(ctx, prompt)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, KindOf(err).String())
		return "", err
	}
	return text, nil
}

func (g *Gemini) generate(ctx context.Context, prompt string) (string, error) {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
				return "", Wrap(KindTimeout, 0, err)
			}
			// The limiter refuses up front when the wait would outlast ctx.
			return "", Wrap(KindRateLimited, 0, err)
		}
	}

	body, err := json.Marshal(geminiRequest{
		Contents:         []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
		GenerationConfig: map[string]interface{}{"responseMimeType": "application/json"},
	})
	if err != nil {
		return "", Wrap(KindOther, 0, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.Endpoint(), bytes.NewReader(body))
	if err != nil {
		return "", Wrap(KindOther, 0, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.cfg.APIKey)

	resp, err := g.hc.Do(req)
	if err != nil {
		return "", Wrap(KindOf(err), 0, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", Wrap(KindOf(err), resp.StatusCode, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", statusError(resp.StatusCode, raw)
	}

	var env geminiResponse
	if err := json.Unmarshal(raw, &env); err != nil {
		return "", Wrap(KindSchemaMismatch, resp.StatusCode, fmt.Errorf("decode envelope: %w", err))
	}
	var sb strings.Builder
	if len(env.Candidates) > 0 {
		for _, p := range env.Candidates[0].Content.Parts {
			sb.WriteString(p.Text)
		}
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", Wrap(KindSchemaMismatch, resp.StatusCode, ErrEmptyResponse)
	}
	return text, nil
}

func statusError(code int, raw []byte) error {
	kind := kindForStatus(code)
	msg := http.StatusText(code)

	var eb geminiErrorBody
	if json.Unmarshal(raw, &eb) == nil && eb.Error.Message != "" {
		msg = eb.Error.Message
		if eb.Error.Status == "RESOURCE_EXHAUSTED" {
			kind = KindRateLimited
		}
		if eb.Error.Status == "DEADLINE_EXCEEDED" {
			kind = KindTimeout
		}
	}
	return Wrap(kind, code, errors.New(msg))
}
