package query

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"

	"github.com/ibeckermayer/portalpilot/internal/store"
)

const outlineLimit = 300

// Completer sends a prompt to a language model. The model's answer is
// expected to continue from prefill.
type Completer interface {
	Complete(ctx context.Context, prompt, prefill string) (string, error)
}

// AnthropicCompleter implements Completer using Anthropic's Messages API
type AnthropicCompleter struct {
	client *anthropic.Client
	model  string
	logger *zap.Logger
}

// NewAnthropicCompleter creates a completer for the given model
func NewAnthropicCompleter(apiKey, model string, logger *zap.Logger) *AnthropicCompleter {
	client := anthropic.NewClient(
		option.WithAPIKey(apiKey),
	)
	return &AnthropicCompleter{
		client: &client,
		model:  model,
		logger: logger,
	}
}

// Complete implements Completer.
func (c *AnthropicCompleter) Complete(ctx context.Context, prompt, prefill string) (string, error) {
	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: 1024,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
			anthropic.NewAssistantMessage(anthropic.NewTextBlock(prefill)),
		},
	})
	lookup := store.ModelLookup{At: time.Now(), Model: c.model, Prompt: prompt}
	if err != nil {
		lookup.Err = err.Error()
		c.keep(lookup)
		return "", fmt.Errorf("failed to call Claude API: %w", err)
	}

	var responseText string
	for _, block := range message.Content {
		if block.Type == "text" {
			responseText = block.Text
			break
		}
	}
	lookup.Answer = responseText
	c.keep(lookup)

	if responseText == "" {
		return "", fmt.Errorf("Claude returned empty response")
	}
	return responseText, nil
}

func (c *AnthropicCompleter) keep(l store.ModelLookup) {
	path, err := store.SaveModelLookup(l)
	if err != nil {
		c.logger.Warn("Failed to keep model lookup", zap.Error(err))
		return
	}
	c.logger.Debug("Kept model lookup", zap.String("path", path))
}

// LLMResolver runs a base resolver first and asks a language model for
// selectors of the fields the base resolver could not locate. Model failures
// are logged and the base response is returned unchanged.
type LLMResolver struct {
	base      Resolver
	completer Completer
	logger    *zap.Logger
}

// NewLLMResolver wraps base with model-assisted lookup.
func NewLLMResolver(base Resolver, completer Completer, logger *zap.Logger) *LLMResolver {
	return &LLMResolver{base: base, completer: completer, logger: logger}
}

// Resolve implements Resolver.
func (l *LLMResolver) Resolve(ctx context.Context, ev Evaluator, q *Query) (*Response, error) {
	resp, err := l.base.Resolve(ctx, ev, q)
	if err != nil {
		return nil, err
	}

	missing := resp.Missing(q)
	if len(missing) == 0 {
		return resp, nil
	}

	matches, err := l.lookup(ctx, ev, q, missing)
	if err != nil {
		l.logger.Warn("Model-assisted lookup failed", zap.Strings("fields", missing), zap.Error(err))
		return resp, nil
	}
	resp.merge(matches)
	return resp, nil
}

func (l *LLMResolver) lookup(ctx context.Context, ev Evaluator, q *Query, missing []string) ([]Match, error) {
	outlineExpr, err := Call(outlineJS, outlineLimit)
	if err != nil {
		return nil, err
	}
	var outline string
	if err := ev.Evaluate(ctx, outlineExpr, &outline); err != nil {
		return nil, fmt.Errorf("failed to outline page: %w", err)
	}

	answer, err := l.completer.Complete(ctx, buildPrompt(q, missing, outline), "{")
	if err != nil {
		return nil, err
	}

	selectors, err := parseSelectors("{"+answer, missing)
	if err != nil {
		return nil, err
	}
	if len(selectors) == 0 {
		return nil, nil
	}

	tagExpr, err := Call(tagJS, selectors, RefAttr)
	if err != nil {
		return nil, err
	}
	var matches []Match
	if err := ev.Evaluate(ctx, tagExpr, &matches); err != nil {
		return nil, fmt.Errorf("failed to apply model selectors: %w", err)
	}
	for i := range matches {
		matches[i].Source = "llm"
	}
	return matches, nil
}

func buildPrompt(q *Query, missing []string, outline string) string {
	var b strings.Builder
	b.WriteString("You locate elements on a web page for a browser automation script.\n\n")
	b.WriteString("Query:\n")
	b.WriteString(q.String())
	b.WriteString("\n\nFields that still need a CSS selector:\n")
	for _, m := range missing {
		b.WriteString("- ")
		b.WriteString(m)
		b.WriteString("\n")
	}
	b.WriteString("\nVisible interactive elements, one per line:\n")
	b.WriteString(outline)
	b.WriteString("\n\nAnswer with a single JSON object mapping each field path to a CSS selector ")
	b.WriteString("that matches exactly one element. Omit fields that are not on the page.")
	return b.String()
}

var jsonObject = regexp.MustCompile(`(?s)\{.*\}`)

// parseSelectors extracts the path->selector object from a model answer and
// keeps only the requested paths.
func parseSelectors(text string, wanted []string) (map[string]string, error) {
	raw := jsonObject.FindString(text)
	if raw == "" {
		return nil, fmt.Errorf("no JSON object in model response: %s", text)
	}

	var all map[string]string
	if err := json.Unmarshal([]byte(raw), &all); err != nil {
		return nil, fmt.Errorf("failed to parse model response JSON: %w", err)
	}

	keep := make(map[string]bool, len(wanted))
	for _, w := range wanted {
		keep[w] = true
	}
	selectors := make(map[string]string)
	for path, sel := range all {
		if keep[path] && strings.TrimSpace(sel) != "" {
			selectors[path] = sel
		}
	}
	return selectors, nil
}
