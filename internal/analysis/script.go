package analysis

import (
	"encoding/json"
	"strings"
	"text/template"
	"time"

	"stock-analyst/internal/types"
)

type ScriptInput struct {
	Symbol      string
	Company     string
	Metrics     types.Metrics
	Headlines   []string
	Sentiment   float64
	GeneratedAt time.Time
	ServiceURL  string
}

var scriptTmpl = template.Must(template.New("script").Funcs(template.FuncMap{
	"shellsafe": shellSafe,
	"oneline":   oneLine,
}).Parse(`#!/usr/bin/env sh
# Analysis for {{shellsafe .Symbol}} ({{oneline .Company}})
# Generated {{.GeneratedAt.Format "2006-01-02T15:04:05Z07:00"}}
#
# News sentiment: {{printf "%.2f" .Sentiment}}
# Headlines:
{{- range .Headlines}}
#   - {{oneline .}}
{{- else}}
#   (none)
{{- end}}
#
# Re-run against a live service with SERVICE_URL=<url> sh <this file>
set -eu

SERVICE_URL="${SERVICE_URL:-{{shellsafe .ServiceURL}}}"

cat <<'METRICS'
{{.MetricsJSON}}
METRICS

curl -sS -X POST "$SERVICE_URL/v1/analyse-ticker/" \
  -H 'Content-Type: application/json' \
  -d '{"ticker": "{{shellsafe .Symbol}}"}'
`))

// BuildScript renders a shell script that documents the snapshot an analysis was
// based on and re-requests the same analysis from the service.
func BuildScript(in ScriptInput) (string, error) {
	if in.ServiceURL == "" {
		in.ServiceURL = DefaultServiceURL
	}
	mj, err := json.MarshalIndent(in.Metrics, "", "  ")
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	err = scriptTmpl.Execute(&sb, struct {
		ScriptInput
		MetricsJSON string
	}{in, string(mj)})
	if err != nil {
		return "", err
	}
	return sb.String(), nil
}

// shellSafe keeps only characters that are inert inside double and single quotes
func shellSafe(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case strings.ContainsRune(".:-_^=/", r):
			return r
		}
		return -1
	}, s)
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
