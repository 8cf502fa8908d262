// Package llmtest provides a scripted Oracle for tests.
package llmtest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/ppiankov/veritas/internal/llm"
)

// Response is one scripted answer: raw JSON or an error
type Response struct {
	JSON string
	Err  error
}

// JSON scripts an answer encoding v
func JSON(v any) Response {
	data, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("llmtest: marshal answer: %v", err))
	}
	return Response{JSON: string(data)}
}

// Raw scripts a literal answer
func Raw(text string) Response {
	return Response{JSON: text}
}

// Fail scripts a transport failure
func Fail(err error) Response {
	return Response{Err: err}
}

// Call records one Complete invocation
type Call struct {
	Prompt string
	Text   string
	Vars   map[string]any
}

// Oracle answers prompts from a script. Answers for a prompt are consumed in
// order and the last one repeats. Unscripted prompts fail.
type Oracle struct {
	mu        sync.Mutex
	scripts   map[string][]Response
	funcs     map[string]func(vars map[string]any) Response
	calls     []Call
	validator *validator.Validate
}

// New returns an oracle with no answers
func New() *Oracle {
	return &Oracle{
		scripts:   make(map[string][]Response),
		funcs:     make(map[string]func(map[string]any) Response),
		validator: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// On scripts answers for the named prompt
func (o *Oracle) On(prompt string, answers ...Response) *Oracle {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.scripts[prompt] = append(o.scripts[prompt], answers...)
	return o
}

// OnFunc answers the named prompt by calling fn with the prompt vars
func (o *Oracle) OnFunc(prompt string, fn func(vars map[string]any) Response) *Oracle {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.funcs[prompt] = fn
	return o
}

// Complete renders the prompt, picks the scripted answer and decodes it into out
func (o *Oracle) Complete(ctx context.Context, p llm.Prompt, vars map[string]any, out any) error {
	fail := func(kind llm.ErrorKind, err error) error {
		return &llm.OracleError{Kind: kind, Prompt: p.Name, Err: err}
	}

	text, err := p.Render(vars)
	if err != nil {
		return fail(llm.KindPrompt, err)
	}

	resp, ok := o.next(p.Name, text, vars)
	if !ok {
		return fail(llm.KindTransport, errors.New("no scripted answer"))
	}
	if err := ctx.Err(); err != nil {
		return fail(llm.KindTransport, err)
	}
	if resp.Err != nil {
		return fail(llm.KindTransport, resp.Err)
	}

	payload, err := llm.ExtractJSON(resp.JSON)
	if err != nil {
		return fail(llm.KindParse, err)
	}
	if err := json.Unmarshal([]byte(payload), out); err != nil {
		return fail(llm.KindParse, err)
	}
	if err := o.validator.Struct(out); err != nil {
		var invalid *validator.InvalidValidationError
		if !errors.As(err, &invalid) {
			return fail(llm.KindSchema, err)
		}
	}
	return nil
}

func (o *Oracle) next(prompt, text string, vars map[string]any) (Response, bool) {
	o.mu.Lock()
	o.calls = append(o.calls, Call{Prompt: prompt, Text: text, Vars: vars})
	fn := o.funcs[prompt]
	script := o.scripts[prompt]
	var resp Response
	found := len(script) > 0
	if found {
		resp = script[0]
		if len(script) > 1 {
			o.scripts[prompt] = script[1:]
		}
	}
	o.mu.Unlock()

	if fn != nil {
		return fn(vars), true
	}
	return resp, found
}

// Calls returns the recorded calls for the named prompt, or all calls when prompt is empty
func (o *Oracle) Calls(prompt string) []Call {
	o.mu.Lock()
	defer o.mu.Unlock()

	var out []Call
	for _, c := range o.calls {
		if prompt == "" || c.Prompt == prompt {
			out = append(out, c)
		}
	}
	return out
}
