package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"welding-recommender-be/internal/pkg/logger"
	"welding-recommender-be/pkg/guide"
	"welding-recommender-be/pkg/llm"
)

// Extractor turns a free-text user message into per-category structured
// specifications for that single utterance. The orchestrator treats this
// as an opaque upstream step, merges the update into the session's
// requirements itself, and only consumes spec presence/absence per
// category. Current requirements are passed for context (pronouns,
// follow-ups) but the return value covers this message only.
type Extractor interface {
	Extract(ctx context.Context, message string, current guide.Requirements) (guide.Requirements, error)
}

// LLMExtractor prompts an LLM to emit a JSON object keyed by category
// name with key/value specification pairs. Category names coming back
// from the model are normalized through the central parser; unknown keys
// are dropped, never guessed.
type LLMExtractor struct {
	provider llm.LLMProvider
	rulebook *guide.Rulebook
	logger   logger.ILogger
}

func NewLLMExtractor(provider llm.LLMProvider, rulebook *guide.Rulebook, log logger.ILogger) *LLMExtractor {
	return &LLMExtractor{provider: provider, rulebook: rulebook, logger: log}
}

const extractionPrompt = `You extract welding equipment specifications from a customer message.
Known categories: %s.
Reply with ONLY a JSON object. Keys are category names, values are objects
of specification key/value string pairs (for example name, model, power,
current, cooling, process). Omit categories the message says nothing about.

Message: %s`

func (e *LLMExtractor) Extract(ctx context.Context, message string, current guide.Requirements) (guide.Requirements, error) {
	names := make([]string, 0)
	for _, c := range e.rulebook.Sequence() {
		if !e.rulebook.Terminal(c) {
			names = append(names, string(c))
		}
	}

	prompt := fmt.Sprintf(extractionPrompt, strings.Join(names, ", "), message)
	if len(current) > 0 {
		if known, err := json.Marshal(current); err == nil {
			prompt += "\n\nAlready known (context only, do not repeat): " + string(known)
		}
	}
	reply, err := e.provider.Generate(ctx, prompt, llm.WithTemperature(0))
	if err != nil {
		return nil, fmt.Errorf("extraction call failed: %w", err)
	}

	update, err := parseReply(reply)
	if err != nil {
		if e.logger != nil {
			e.logger.Warn("EXTRACT", "Unparseable extraction reply, treating message as unspecific", map[string]interface{}{
				"error": err.Error(),
			})
		}
		return guide.Requirements{}, nil
	}
	return update, nil
}

// parseReply decodes the model output, tolerating prose around the JSON
// object.
func parseReply(reply string) (guide.Requirements, error) {
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in reply")
	}

	var raw map[string]map[string]string
	if err := json.Unmarshal([]byte(reply[start:end+1]), &raw); err != nil {
		return nil, fmt.Errorf("decode extraction JSON: %w", err)
	}

	out := make(guide.Requirements)
	for name, spec := range raw {
		cat, ok := guide.ParseCategory(name)
		if !ok || len(spec) == 0 {
			continue
		}
		s := make(guide.Spec, len(spec))
		for k, v := range spec {
			if strings.TrimSpace(v) == "" {
				continue
			}
			s[guide.Canon(k)] = v
		}
		if len(s) > 0 {
			out[cat] = s
		}
	}
	return out, nil
}
