package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"stock-analyst/internal/logger"
	"stock-analyst/internal/trace"
	"stock-analyst/internal/types"
)

type Citation struct {
	Title string `json:"title"`
	URI   string `json:"uri"`
}

type Result struct {
	Text      string
	Turns     int
	ToolCalls int
	Citations []Citation
}

// Runner executes agents against a Model
type Runner struct {
	model Model
	now   func() time.Time
}

func NewRunner(model Model) *Runner {
	return &Runner{model: model, now: time.Now}
}

// Run sends input to the agent and executes the function calls it asks for,
// feeding their responses back, until the model replies without calls.
// Tool failures are returned to the model as {"error": ...} rather than
// aborting the run.
func (r *Runner) Run(ctx context.Context, a *Agent, input string) (*Result, error) {
	ctx, span := trace.StartSpan(ctx, "agent.Run."+a.Name)
	defer span.End()

	maxTurns := a.MaxTurns
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}
	cfg := a.config()
	contents := []*genai.Content{genai.NewContentFromText(input, genai.RoleUser)}
	res := &Result{}

	for turn := 1; turn <= maxTurns; turn++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res.Turns = turn

		resp, err := r.model.GenerateContent(ctx, a.Model, contents, cfg)
		if err != nil {
			r.event(ctx, a, types.EventError, turn, "", err.Error())
			return nil, fmt.Errorf("%s turn %d: %w", a.Name, turn, err)
		}
		if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
			return nil, fmt.Errorf("%s turn %d: %w", a.Name, turn, ErrEmptyResponse)
		}
		cand := resp.Candidates[0]
		content := cand.Content
		if content.Role == "" {
			content.Role = genai.RoleModel
		}
		contents = append(contents, content)

		text, calls := split(content)
		r.event(ctx, a, types.EventModelTurn, turn, "", text)

		if len(calls) == 0 {
			res.Citations = citations(cand.GroundingMetadata)
			res.Text = withCitations(text, res.Citations)
			return res, nil
		}

		parts := make([]*genai.Part, 0, len(calls))
		for _, call := range calls {
			res.ToolCalls++
			parts = append(parts, &genai.Part{FunctionResponse: r.call(ctx, a, turn, call)})
		}
		contents = append(contents, genai.NewContentFromParts(parts, genai.RoleUser))
	}

	r.event(ctx, a, types.EventError, maxTurns, "", ErrMaxTurns.Error())
	return nil, fmt.Errorf("%s: %w (%d)", a.Name, ErrMaxTurns, maxTurns)
}

func (r *Runner) call(ctx context.Context, a *Agent, turn int, call *genai.FunctionCall) *genai.FunctionResponse {
	r.event(ctx, a, types.EventToolCall, turn, call.Name, "")
	start := r.now()

	var (
		out map[string]any
		err error
	)
	if t := a.tool(call.Name); t == nil {
		err = fmt.Errorf("unknown tool %q", call.Name)
	} else {
		out, err = t.Call(ctx, call.Args)
	}
	logger.ToolCall(ctx, a.Name, call.Name, r.now().Sub(start), err)

	if err != nil {
		out = map[string]any{"error": err.Error()}
		r.event(ctx, a, types.EventToolResult, turn, call.Name, "error: "+err.Error())
	} else {
		r.event(ctx, a, types.EventToolResult, turn, call.Name, "ok")
	}
	return &genai.FunctionResponse{ID: call.ID, Name: call.Name, Response: out}
}

func (r *Runner) event(ctx context.Context, a *Agent, typ string, turn int, tool, text string) {
	emit(ctx, types.AgentEvent{Type: typ, Agent: a.Name, Turn: turn, Tool: tool, Text: text, Time: r.now().UTC()})
}

// split separates the answer text from function calls, skipping thought parts
func split(c *genai.Content) (string, []*genai.FunctionCall) {
	var (
		sb    strings.Builder
		calls []*genai.FunctionCall
	)
	for _, p := range c.Parts {
		if p == nil {
			continue
		}
		if p.FunctionCall != nil {
			calls = append(calls, p.FunctionCall)
			continue
		}
		if p.Text != "" && !p.Thought {
			sb.WriteString(p.Text)
		}
	}
	return strings.TrimSpace(sb.String()), calls
}

func citations(gm *genai.GroundingMetadata) []Citation {
	if gm == nil {
		return nil
	}
	var out []Citation
	seen := map[string]bool{}
	for _, ch := range gm.GroundingChunks {
		if ch == nil || ch.Web == nil || ch.Web.URI == "" || seen[ch.Web.URI] {
			continue
		}
		seen[ch.Web.URI] = true
		out = append(out, Citation{Title: ch.Web.Title, URI: ch.Web.URI})
	}
	return out
}

func withCitations(text string, cites []Citation) string {
	if len(cites) == 0 {
		return text
	}
	var sb strings.Builder
	sb.WriteString(text)
	sb.WriteString("\n\nSources:")
	for _, c := range cites {
		title := c.Title
		if title == "" {
			title = c.URI
		}
		fmt.Fprintf(&sb, "\n- %s (%s)", title, c.URI)
	}
	return sb.String()
}
