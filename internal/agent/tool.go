package agent

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"google.golang.org/genai"
)

// Tool is a function the model may call
type Tool interface {
	Name() string
	Description() string
	Declaration() *genai.FunctionDeclaration
	Call(ctx context.Context, args map[string]any) (map[string]any, error)
}

type FunctionTool struct {
	name        string
	description string
	params      *genai.Schema
	fn          func(ctx context.Context, args map[string]any) (map[string]any, error)
}

var _ Tool = (*FunctionTool)(nil)

func NewFunctionTool(name, description string, params *genai.Schema, fn func(ctx context.Context, args map[string]any) (map[string]any, error)) *FunctionTool {
	return &FunctionTool{name: name, description: description, params: params, fn: fn}
}

func (t *FunctionTool) Name() string        { return t.name }
func (t *FunctionTool) Description() string { return t.description }

func (t *FunctionTool) Declaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{Name: t.name, Description: t.description, Parameters: t.params}
}

func (t *FunctionTool) Call(ctx context.Context, args map[string]any) (map[string]any, error) {
	return t.fn(ctx, args)
}

// StringParams builds an object schema of required string properties
func StringParams(props map[string]string) *genai.Schema {
	s := &genai.Schema{Type: genai.TypeObject, Properties: map[string]*genai.Schema{}}
	for name, desc := range props {
		s.Properties[name] = &genai.Schema{Type: genai.TypeString, Description: desc}
		s.Required = append(s.Required, name)
	}
	sort.Strings(s.Required)
	return s
}

// StringArg reads a required non-empty string argument
func StringArg(args map[string]any, name string) (string, error) {
	v, ok := args[name]
	if !ok {
		return "", fmt.Errorf("missing argument %q", name)
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", fmt.Errorf("argument %q must be a non-empty string", name)
	}
	return s, nil
}

// AgentTool exposes a sub-agent as a tool taking {"request": string}
type AgentTool struct {
	agent  *Agent
	runner *Runner
}

var _ Tool = (*AgentTool)(nil)

func NewAgentTool(a *Agent, r *Runner) *AgentTool {
	return &AgentTool{agent: a, runner: r}
}

func (t *AgentTool) Name() string        { return t.agent.Name }
func (t *AgentTool) Description() string { return t.agent.Description }

func (t *AgentTool) Declaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        t.agent.Name,
		Description: t.agent.Description,
		Parameters:  StringParams(map[string]string{"request": "What to research"}),
	}
}

func (t *AgentTool) Call(ctx context.Context, args map[string]any) (map[string]any, error) {
	req, err := StringArg(args, "request")
	if err != nil {
		return nil, err
	}
	res, err := t.runner.Run(ctx, t.agent, req)
	if err != nil {
		return nil, err
	}
	if res.Text == "" {
		return nil, errors.New(t.agent.Name + " returned no text")
	}
	return map[string]any{"result": res.Text}, nil
}
