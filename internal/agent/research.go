package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Samuel-Adeyeye/Interview-copilot/internal/llm"
	"github.com/Samuel-Adeyeye/Interview-copilot/pkg/models"
)

const researchSystemPrompt = "You are an expert at structuring interview research. " +
	"Respond with a single JSON object containing exactly these keys: " +
	"company_overview (string), interview_process (string), tech_stack (array of strings), " +
	"recent_news (array of strings), preparation_tips (array of strings). No other text."

// Research gathers company and interview-process information for a session.
// With no LLM configured (or an unusable response) it produces a generic
// packet built from the inputs, marked "source": "fallback".
type Research struct {
	LLM llm.Client
}

// NewResearch builds the research agent. client may be nil.
func NewResearch(client llm.Client) *Research {
	return &Research{LLM: client}
}

func (a *Research) Name() string { return models.AgentResearch }

// Execute produces the research packet for the company and job description in
// the input. Missing inputs fail the run; LLM trouble never does.
func (a *Research) Execute(ctx context.Context, c Context) (Result, error) {
	company := stringInput(c.Input, "company_name")
	jd := stringInput(c.Input, "job_description")
	if company == "" {
		return failure("validation error: company_name is required"), nil
	}
	if jd == "" {
		return failure("validation error: job_description is required"), nil
	}

	packet, source := a.buildPacket(ctx, company, jd)
	return Result{
		Success:  true,
		Output:   packet,
		Metadata: map[string]any{"source": source, "company_name": company},
	}, nil
}

func (a *Research) buildPacket(ctx context.Context, company, jd string) (map[string]any, string) {
	if a.LLM == nil {
		return fallbackPacket(company), "fallback"
	}
	prompt := fmt.Sprintf(`Create a structured research packet for an interview at %s.

Job Description:
%s

Cover the company overview, the typical interview process, the technology stack,
recent news, and concrete preparation tips. If information is not available,
provide reasonable defaults based on the job description and company name.`, company, truncate(jd, 2000))

	raw, err := a.LLM.Complete(ctx, llm.Request{System: researchSystemPrompt, Prompt: prompt})
	if err != nil {
		slog.Warn("research completion failed, using fallback packet", "company", company, "error", err)
		return fallbackPacket(company), "fallback"
	}
	packet, err := parsePacket(raw)
	if err != nil {
		slog.Warn("research response unusable, using fallback packet", "company", company, "error", err)
		return fallbackPacket(company), "fallback"
	}
	return packet, "llm"
}

// parsePacket decodes the model's JSON, tolerating markdown code fences, and
// requires every packet field to be present.
func parsePacket(raw string) (map[string]any, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	var packet map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &packet); err != nil {
		return nil, err
	}
	for _, field := range []string{"company_overview", "interview_process", "tech_stack", "recent_news", "preparation_tips"} {
		if _, ok := packet[field]; !ok {
			return nil, fmt.Errorf("packet missing field %s", field)
		}
	}
	return packet, nil
}

func fallbackPacket(company string) map[string]any {
	return map[string]any{
		"company_overview":  fmt.Sprintf("Information about %s based on job description", company),
		"interview_process": "Standard technical interview process (details to be researched)",
		"tech_stack":        []string{},
		"recent_news":       []string{},
		"preparation_tips": []string{
			"Review the job description requirements",
			"Practice relevant technical skills",
		},
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
