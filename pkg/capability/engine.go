// Copyright 2026 Manifold Works
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package capability

import (
	"context"
	"fmt"
	"math"

	"github.com/spf13/cast"
	"go.uber.org/zap"
)

// Engine validates raw wire arguments against a capability's schema,
// invokes the handler, and classifies the outcome. It performs no I/O of
// its own, never retries, and is safe for concurrent use from any number
// of in-flight requests.
type Engine struct {
	logger *zap.Logger
}

// NewEngine creates an invocation engine. A nil logger is replaced with a
// no-op logger.
func NewEngine(logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{logger: logger}
}

// CallTool validates args against the tool's schema and invokes it.
func (e *Engine) CallTool(ctx context.Context, t *Tool, args map[string]interface{}) (interface{}, error) {
	return e.invoke(ctx, KindTool, t.Name, t, args)
}

// ReadResource invokes a literal resource's handler. Literal resources
// usually declare no parameters; any declared ones are validated the same
// way as tool arguments.
func (e *Engine) ReadResource(ctx context.Context, r *Resource, args map[string]interface{}) (interface{}, error) {
	return e.invoke(ctx, KindResource, r.Name, r, args)
}

// ReadTemplate invokes a resource template's handler with the placeholder
// bindings extracted from a concrete URI (or supplied directly). Bindings
// are strings on the wire; the schema coercion step converts them to the
// declared parameter types.
func (e *Engine) ReadTemplate(ctx context.Context, rt *ResourceTemplate, params map[string]string) (interface{}, error) {
	args := make(map[string]interface{}, len(params))
	for k, v := range params {
		args[k] = v
	}
	return e.invoke(ctx, KindTemplate, rt.Name, rt, args)
}

// GetPrompt invokes a prompt generator and normalizes its return into a
// message sequence.
func (e *Engine) GetPrompt(ctx context.Context, p *Prompt, args map[string]interface{}) ([]Message, error) {
	value, err := e.invoke(ctx, KindPrompt, p.Name, p, args)
	if err != nil {
		return nil, err
	}
	switch msgs := value.(type) {
	case []Message:
		return msgs, nil
	case Message:
		return []Message{msgs}, nil
	case string:
		return []Message{TextMessage(RoleUser, msgs)}, nil
	default:
		return nil, fmt.Errorf("prompt %q returned %T, want []capability.Message", p.Name, value)
	}
}

// invoke is the single dispatch path shared by every capability kind:
// validate and coerce, call the handler, classify the failure. Validation
// strictly precedes invocation; a handler is never called with an invalid
// argument bag.
func (e *Engine) invoke(ctx context.Context, kind Kind, name string, cap invocable, raw map[string]interface{}) (value interface{}, err error) {
	args, err := e.validate(cap.schema(), raw)
	if err != nil {
		e.logger.Debug("argument validation failed",
			zap.String("kind", string(kind)),
			zap.String("name", name),
			zap.Error(err),
		)
		return nil, err
	}

	// A panicking handler is an unexpected failure, not a process fault.
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("handler panic",
				zap.String("kind", string(kind)),
				zap.String("name", name),
				zap.Any("panic", r),
			)
			value = nil
			err = fmt.Errorf("%s %q panicked: %v", kind, name, r)
		}
	}()

	value, err = cap.handler()(ctx, args)
	if err != nil {
		e.logger.Warn("handler error",
			zap.String("kind", string(kind)),
			zap.String("name", name),
			zap.Stringer("mode", cap.mode()),
			zap.Error(err),
		)
		return nil, err
	}
	e.logger.Debug("handler completed",
		zap.String("kind", string(kind)),
		zap.String("name", name),
		zap.Stringer("mode", cap.mode()),
	)
	return value, nil
}

// validate checks the raw argument bag against the schema and returns the
// coerced bag the handler will see. Required-and-absent fails fast;
// optional-and-absent fills the default; unknown extra keys are dropped
// for forward compatibility.
func (e *Engine) validate(schema *ParameterSchema, raw map[string]interface{}) (map[string]interface{}, error) {
	args := make(map[string]interface{}, schema.Len())
	for _, p := range schema.Parameters() {
		v, present := raw[p.Name]
		if !present {
			if p.Required {
				return nil, &MissingParameterError{Parameter: p.Name}
			}
			if p.Default != nil {
				args[p.Name] = p.Default
			}
			continue
		}
		coerced, err := coerce(v, p.Type)
		if err != nil {
			return nil, &InvalidParameterError{Parameter: p.Name, Expected: p.Type, Cause: err}
		}
		args[p.Name] = coerced
	}
	return args, nil
}

// coerce converts a wire value to its declared schema primitive. Numeric
// strings convert to numbers; floats convert to integers only when
// integral. Object and array accept their JSON-decoded Go shapes.
func coerce(v interface{}, tag TypeTag) (interface{}, error) {
	switch tag {
	case TypeInteger:
		if f, ok := v.(float64); ok {
			// JSON numbers decode as float64; reject fractional values
			// instead of silently truncating.
			if f != math.Trunc(f) {
				return nil, fmt.Errorf("value %v has a fractional part", f)
			}
			return int64(f), nil
		}
		return cast.ToInt64E(v)
	case TypeNumber:
		return cast.ToFloat64E(v)
	case TypeString:
		return cast.ToStringE(v)
	case TypeBoolean:
		return cast.ToBoolE(v)
	case TypeArray:
		switch v.(type) {
		case []interface{}, []string, []int, []float64:
			return v, nil
		}
		return nil, fmt.Errorf("value of type %T is not an array", v)
	case TypeObject:
		// Accept-anything fallback: object parameters are permissive.
		return v, nil
	}
	return nil, fmt.Errorf("unknown type tag %q", tag)
}
