// Package agent is a small tool-calling loop over the Gemini generate-content API.
// An Agent carries an instruction and tools; a Runner drives the conversation
// until the model answers in text or the turn budget runs out.
package agent

import (
	"context"
	"errors"

	"google.golang.org/genai"

	"stock-analyst/internal/interfaces"
	"stock-analyst/internal/types"
)

const DefaultMaxTurns = 10

var (
	ErrMaxTurns      = errors.New("agent exceeded max turns")
	ErrEmptyResponse = errors.New("model returned no candidates")
)

// Model is the generate-content call of *genai.Models
type Model interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type Agent struct {
	Name        string
	Description string
	Instruction string
	Model       string
	Tools       []Tool
	// GoogleSearch grounds answers with web search. Gemini rejects search
	// grounding combined with function declarations, so Tools must be empty.
	GoogleSearch bool
	Temperature  *float32
	MaxTurns     int
}

func (a *Agent) tool(name string) Tool {
	for _, t := range a.Tools {
		if t.Name() == name {
			return t
		}
	}
	return nil
}

func (a *Agent) config() *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{Temperature: a.Temperature}
	if a.Instruction != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: a.Instruction}}}
	}
	switch {
	case a.GoogleSearch:
		cfg.Tools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
	case len(a.Tools) > 0:
		decls := make([]*genai.FunctionDeclaration, 0, len(a.Tools))
		for _, t := range a.Tools {
			decls = append(decls, t.Declaration())
		}
		cfg.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
	}
	return cfg
}

type sinkKey struct{}

// WithEventSink attaches sink to ctx; runs under ctx, including nested agent
// tools, report their steps to it.
func WithEventSink(ctx context.Context, sink interfaces.EventSink) context.Context {
	if sink == nil {
		return ctx
	}
	return context.WithValue(ctx, sinkKey{}, sink)
}

func emit(ctx context.Context, ev types.AgentEvent) {
	if sink, ok := ctx.Value(sinkKey{}).(interfaces.EventSink); ok && sink != nil {
		sink(ev)
	}
}
