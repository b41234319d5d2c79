package drafter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/LiboWorks/task-automator/internal/backend"
	"github.com/LiboWorks/task-automator/internal/logger"
	"github.com/LiboWorks/task-automator/internal/workflow"
)

const promptTemplate = `You turn one line of an automation task list into a workflow step.
Answer with a single JSON object {"kind": ..., "params": {...}} and nothing else.
kind is one of: %s, or "" when none fits.
load-data params: "file" (path), optional "format" ("csv" or "json"), optional "delimiter".
filter params: optional "source" (step id), "condition" (a Python expression over the dict "row").
export params: "output" (path), optional "format" ("csv" or "json"), optional "source".

Task: %s
`

// LLMClassifier asks a language model for a suggestion and falls back to
// another classifier when the backend fails or answers with something
// unusable.
type LLMClassifier struct {
	Backend   backend.LLMBackend
	Model     string
	MaxTokens int

	// Fallback defaults to KeywordClassifier.
	Fallback Classifier

	Logger *zap.Logger
}

// Classify implements Classifier.
func (c *LLMClassifier) Classify(ctx context.Context, title string) (Suggestion, error) {
	log := logger.OrNop(c.Logger)
	fallback := c.Fallback
	if fallback == nil {
		fallback = KeywordClassifier{}
	}
	if c.Backend == nil {
		return fallback.Classify(ctx, title)
	}

	prompt := fmt.Sprintf(promptTemplate, strings.Join(kinds(), ", "), title)
	answer, err := c.Backend.Generate(ctx, prompt, c.Model, c.MaxTokens)
	if err != nil {
		log.Warn("llm classification failed, using fallback", zap.String("backend", c.Backend.Name()), zap.Error(err))
		return fallback.Classify(ctx, title)
	}

	s, err := decodeSuggestion(answer)
	if err != nil {
		log.Warn("unusable llm answer, using fallback", zap.String("answer", answer), zap.Error(err))
		return fallback.Classify(ctx, title)
	}
	log.Debug("llm classified task", zap.String("title", title), zap.String("kind", string(s.Kind)))
	return s, nil
}

// decodeSuggestion reads a JSON object, tolerating a surrounding markdown
// code fence.
func decodeSuggestion(answer string) (Suggestion, error) {
	text := strings.TrimSpace(answer)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(text)))
	dec.UseNumber()
	var s Suggestion
	if err := dec.Decode(&s); err != nil {
		return Suggestion{}, fmt.Errorf("decode suggestion: %w", err)
	}
	switch s.Kind {
	case "", workflow.KindLoadData, workflow.KindFilter, workflow.KindExport:
	default:
		return Suggestion{}, fmt.Errorf("unsupported kind %q", s.Kind)
	}
	return s, nil
}
