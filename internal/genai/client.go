// Package genai talks to the external generative text service.
//
// A Client takes one prompt and returns the raw text the model produced.
// Every failure comes back as an *Error whose Kind is decided here, from the
// HTTP status, transport error, or envelope decoding, so callers never have
// to inspect error strings.
package genai

import "context"

// Client generates text for a single prompt.
type Client interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ClientFunc adapts a function to Client.
type ClientFunc func(ctx context.Context, prompt string) (string, error)

// Generate calls f.
func (f ClientFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}
