// Package tools maps board capabilities to named commands with JSON-schema
// validated arguments. Every invocation produces a Result; handler faults
// never escape.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"voicehal/errcode"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/rs/zerolog"
)

// DefaultTimeout bounds a single handler run.
const DefaultTimeout = 5 * time.Second

// Result is the reply to one invocation. Failures carry an "error" key.
type Result map[string]any

func errResult(msg string) Result { return Result{"error": msg} }

// Err returns the error message of a failed result.
func (r Result) Err() (string, bool) {
	s, ok := r["error"].(string)
	return s, ok
}

// Handler runs a tool with already validated JSON arguments.
type Handler func(ctx context.Context, args json.RawMessage) (Result, error)

// Tool is a named command. Schema nil means "no arguments".
type Tool struct {
	Name        string
	Description string
	Schema      *jsonschema.Schema
	Handler     Handler
}

// Descriptor is the public view of a tool.
type Descriptor struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Schema      *jsonschema.Schema `json:"inputSchema"`
}

type entry struct {
	Tool
	resolved *jsonschema.Resolved
}

type Option func(*Registry)

func WithTimeout(d time.Duration) Option { return func(r *Registry) { r.timeout = d } }

func WithLogger(l zerolog.Logger) Option { return func(r *Registry) { r.log = l } }

// Registry is append-only; tools cannot be replaced or removed.
type Registry struct {
	timeout time.Duration
	log     zerolog.Logger

	mu    sync.RWMutex
	tools map[string]*entry
	order []string
}

func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		timeout: DefaultTimeout,
		log:     zerolog.Nop(),
		tools:   map[string]*entry{},
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

func emptyObject() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:                 "object",
		Properties:           map[string]*jsonschema.Schema{},
		AdditionalProperties: &jsonschema.Schema{Not: &jsonschema.Schema{}},
	}
}

// RegisterTool adds t. Names are unique; the schema is resolved here so
// broken schemas fail at registration rather than on first call.
func (r *Registry) RegisterTool(t Tool) error {
	const op = "tools.register"
	if t.Name == "" || t.Handler == nil {
		return errcode.New(errcode.InvalidParams, op, "name and handler required")
	}
	if t.Schema == nil {
		t.Schema = emptyObject()
	}
	rs, err := t.Schema.Resolve(nil)
	if err != nil {
		return errcode.Wrap(errcode.InvalidParams, op, fmt.Errorf("%s: %w", t.Name, err))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.tools[t.Name]; dup {
		return errcode.New(errcode.DuplicateTool, op, t.Name)
	}
	r.tools[t.Name] = &entry{Tool: t, resolved: rs}
	r.order = append(r.order, t.Name)
	r.log.Debug().Str("tool", t.Name).Msg("Tool registered")
	return nil
}

// Register adds a tool whose arguments decode into T. The schema is
// derived from T; tune may adjust it (enums, bounds) before resolution.
func Register[T any](r *Registry, name, description string, fn func(ctx context.Context, args T) (Result, error), tune ...func(*jsonschema.Schema)) error {
	s, err := jsonschema.For[T](nil)
	if err != nil {
		return errcode.Wrap(errcode.InvalidParams, "tools.register", fmt.Errorf("%s: %w", name, err))
	}
	if s.AdditionalProperties == nil {
		s.AdditionalProperties = &jsonschema.Schema{Not: &jsonschema.Schema{}}
	}
	for _, f := range tune {
		f(s)
	}
	return r.RegisterTool(Tool{
		Name:        name,
		Description: description,
		Schema:      s,
		Handler: func(ctx context.Context, raw json.RawMessage) (Result, error) {
			var v T
			if err := json.Unmarshal(raw, &v); err != nil {
				return nil, err
			}
			return fn(ctx, v)
		},
	})
}

// List returns the tools in registration order.
func (r *Registry) List() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Descriptor, 0, len(r.order))
	for _, n := range r.order {
		e := r.tools[n]
		out = append(out, Descriptor{Name: e.Name, Description: e.Description, Schema: e.Schema})
	}
	return out
}

// Invoke runs the named tool. It never panics and never returns an error;
// every failure is reported in the Result.
func (r *Registry) Invoke(ctx context.Context, name string, args json.RawMessage) Result {
	r.mu.RLock()
	e, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		return errResult("unknown tool")
	}

	if len(args) == 0 || string(args) == "null" {
		args = json.RawMessage("{}")
	}
	var inst any
	if err := json.Unmarshal(args, &inst); err != nil {
		return errResult("invalid arguments: " + err.Error())
	}
	if err := e.resolved.Validate(inst); err != nil {
		return errResult("invalid arguments: " + err.Error())
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	type outcome struct {
		res Result
		err error
	}
	// cap 1: a handler that outlives the timeout must not block.
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				r.log.Error().
					Str("tool", name).
					Interface("panic", p).
					Msg("Tool handler panicked")
				done <- outcome{err: errPanic}
			}
		}()
		res, err := e.Handler(ctx, args)
		done <- outcome{res, err}
	}()

	select {
	case o := <-done:
		switch {
		case o.err == errPanic:
			return errResult("internal error")
		case o.err != nil:
			ev := r.log.Error()
			if errcode.IsTransport(o.err) {
				ev = r.log.Warn()
			}
			ev.Err(o.err).Str("tool", name).Msg("Tool failed")
			return errResult(o.err.Error())
		case o.res == nil:
			return Result{"success": true}
		}
		return o.res
	case <-ctx.Done():
		r.log.Warn().Str("tool", name).Dur("timeout", r.timeout).Msg("Tool timed out")
		return errResult("timeout")
	}
}

var errPanic = errcode.New(errcode.Error, "tools.invoke", "handler panic")
