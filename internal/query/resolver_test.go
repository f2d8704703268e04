package query

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeEvaluator answers each script by the function it invokes.
type fakeEvaluator struct {
	resolve []Match
	outline string
	tag     func(selectors map[string]string) []Match

	exprs []string
	err   error
}

func (f *fakeEvaluator) Evaluate(_ context.Context, expr string, out any) error {
	f.exprs = append(f.exprs, expr)
	if f.err != nil {
		return f.err
	}

	var result any
	switch {
	case strings.HasPrefix(expr, "("+resolveJS+")"):
		result = f.resolve
	case strings.HasPrefix(expr, "("+outlineJS+")"):
		result = f.outline
	case strings.HasPrefix(expr, "("+tagJS+")"):
		args := strings.TrimSuffix(strings.TrimPrefix(expr, "("+tagJS+")("), `, "`+RefAttr+`")`)
		var selectors map[string]string
		if err := json.Unmarshal([]byte(args), &selectors); err != nil {
			return err
		}
		result = f.tag(selectors)
	default:
		return errors.New("unexpected script")
	}

	b, err := json.Marshal(result)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}

type fakeCompleter struct {
	answer  string
	err     error
	prompts []string
}

func (f *fakeCompleter) Complete(_ context.Context, prompt, prefill string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.answer, f.err
}

func TestCall(t *testing.T) {
	expr, err := Call("function (a, b) { return a + b; }", 1, "x")
	require.NoError(t, err)
	assert.Equal(t, `(function (a, b) { return a + b; })(1, "x")`, expr)
}

func TestDOMResolver_Resolve(t *testing.T) {
	q := MustParse(`{ body { username_field "#username" password_field "#password" } }`)
	ev := &fakeEvaluator{resolve: []Match{
		{Path: "body", Found: true},
		{Path: "body.username_field", Found: true},
		{Path: "body.password_field", Found: false},
	}}

	resp, err := NewDOMResolver().Resolve(context.Background(), ev, q)

	require.NoError(t, err)
	require.Len(t, ev.exprs, 1)
	assert.Contains(t, ev.exprs[0], `"path":"body.username_field"`)
	assert.Contains(t, ev.exprs[0], `"kind":"selector"`)

	sel, ok := resp.Element("body.username_field")
	assert.True(t, ok)
	assert.Equal(t, RefSelector("body.username_field"), sel)
	assert.Equal(t, []string{"body.password_field"}, resp.Missing(q))
}

func TestDOMResolver_EvaluateError(t *testing.T) {
	q := MustParse(`{ close_btn }`)
	ev := &fakeEvaluator{err: errors.New("target closed")}

	_, err := NewDOMResolver().Resolve(context.Background(), ev, q)
	assert.Error(t, err)
}

func TestLLMResolver_FillsMissing(t *testing.T) {
	q := MustParse(`{ popup_form { close_btn } banner }`)
	ev := &fakeEvaluator{
		resolve: []Match{
			{Path: "popup_form", Found: false},
			{Path: "popup_form.close_btn", Found: false},
			{Path: "banner", Found: true},
		},
		outline: `<button class="modal-x">×`,
		tag: func(selectors map[string]string) []Match {
			var out []Match
			for path := range selectors {
				out = append(out, Match{Path: path, Found: true, Text: "×"})
			}
			return out
		},
	}
	completer := &fakeCompleter{answer: "\"popup_form.close_btn\": \"button.modal-x\", \"banner\": \"header\"}"}

	resp, err := NewLLMResolver(NewDOMResolver(), completer, zap.NewNop()).Resolve(context.Background(), ev, q)

	require.NoError(t, err)
	_, ok := resp.Element("popup_form.close_btn")
	assert.True(t, ok)
	require.Len(t, completer.prompts, 1)
	assert.Contains(t, completer.prompts[0], "- popup_form.close_btn")
	assert.Contains(t, completer.prompts[0], `<button class="modal-x">×`)
	assert.Empty(t, resp.Missing(q))
}

func TestLLMResolver_ModelFailureKeepsBase(t *testing.T) {
	q := MustParse(`{ close_btn }`)
	ev := &fakeEvaluator{resolve: []Match{{Path: "close_btn", Found: false}}}
	completer := &fakeCompleter{err: errors.New("rate limited")}

	resp, err := NewLLMResolver(NewDOMResolver(), completer, zap.NewNop()).Resolve(context.Background(), ev, q)

	require.NoError(t, err)
	assert.Equal(t, []string{"close_btn"}, resp.Missing(q))
}

func TestLLMResolver_NothingMissingSkipsModel(t *testing.T) {
	q := MustParse(`{ close_btn }`)
	ev := &fakeEvaluator{resolve: []Match{{Path: "close_btn", Found: true}}}
	completer := &fakeCompleter{}

	_, err := NewLLMResolver(NewDOMResolver(), completer, zap.NewNop()).Resolve(context.Background(), ev, q)

	require.NoError(t, err)
	assert.Empty(t, completer.prompts)
}

func TestParseSelectors(t *testing.T) {
	got, err := parseSelectors("```json\n{\"a\": \"#a\", \"b\": \"\", \"c\": \"#c\"}\n```", []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": "#a"}, got)

	_, err = parseSelectors("no idea", []string{"a"})
	assert.Error(t, err)
}
