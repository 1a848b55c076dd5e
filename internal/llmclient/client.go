// Package llmclient answers worksheets and questions with a hosted language model.
package llmclient

import (
	"context"
	"errors"
)

// ErrEmptyResponse is returned when the provider produced no usable content.
var ErrEmptyResponse = errors.New("model returned an empty response")

// ReasoningEffort hints how long a reasoning model should think.
type ReasoningEffort string

const (
	EffortDefault ReasoningEffort = ""
	EffortLow     ReasoningEffort = "low"
	EffortMedium  ReasoningEffort = "medium"
	EffortHigh    ReasoningEffort = "high"
)

// File is a document attachment.
type File struct {
	Name      string
	MediaType string
	Data      []byte
}

// TextRequest asks for free text.
type TextRequest struct {
	System string
	User   string
	Files  []File
}

// ObjectRequest asks for a JSON object conforming to Schema. Image, when set,
// is a PNG screenshot that accompanies the prompt.
type ObjectRequest struct {
	Prompt          string
	Image           []byte
	Schema          Schema
	ReasoningEffort ReasoningEffort
}

// Client is the answering service the automation depends on.
type Client interface {
	GenerateText(ctx context.Context, req TextRequest) (string, error)
	GenerateObject(ctx context.Context, req ObjectRequest) (map[string]any, error)
	Close() error
}
