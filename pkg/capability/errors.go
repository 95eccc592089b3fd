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

import "fmt"

// NotFoundError reports a lookup miss: no capability with the given name
// (or URI, for resources) exists in the namespace.
type NotFoundError struct {
	Kind Kind
	Name string // name or URI, depending on the lookup
}

func (e *NotFoundError) Error() string {
	switch e.Kind {
	case KindTool:
		return fmt.Sprintf("Tool '%s' not found", e.Name)
	case KindResource:
		return fmt.Sprintf("Resource '%s' not found", e.Name)
	case KindPrompt:
		return fmt.Sprintf("Prompt '%s' not found", e.Name)
	case KindTemplate:
		return fmt.Sprintf("Resource template '%s' not found", e.Name)
	}
	return fmt.Sprintf("Capability '%s' not found", e.Name)
}

// DuplicateNameError reports a registration collision within a namespace.
type DuplicateNameError struct {
	Kind Kind
	Name string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("%s %q is already registered", e.Kind, e.Name)
}

// DuplicateURIError reports a URI or URI-template collision. URIs are
// unique globally across literal resources and templates.
type DuplicateURIError struct {
	URI string
}

func (e *DuplicateURIError) Error() string {
	return fmt.Sprintf("resource URI %q is already registered", e.URI)
}

// MissingParameterError reports a required parameter absent from the raw
// argument bag. Produced by the engine before the handler runs.
type MissingParameterError struct {
	Parameter string
}

func (e *MissingParameterError) Error() string {
	return fmt.Sprintf("missing required parameter %q", e.Parameter)
}

// InvalidParameterError reports a value that could not be coerced to the
// parameter's declared type.
type InvalidParameterError struct {
	Parameter string
	Expected  TypeTag
	Cause     error
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("invalid value for parameter %q: expected %s", e.Parameter, e.Expected)
}

func (e *InvalidParameterError) Unwrap() error { return e.Cause }

// SchemaInferenceError reports a structurally invalid explicit override
// schema at registration time. Inference from a handler prototype never
// produces this error.
type SchemaInferenceError struct {
	Reason string
}

func (e *SchemaInferenceError) Error() string {
	return "invalid parameter schema: " + e.Reason
}

// UserError is raised by a handler to signal an intentional, domain-level
// failure. Its message is surfaced to the caller verbatim on every
// transport; any other error escaping a handler is classified as internal.
type UserError struct {
	Message string
}

func (e *UserError) Error() string { return e.Message }

// Userf builds a UserError with a formatted message.
func Userf(format string, args ...interface{}) *UserError {
	return &UserError{Message: fmt.Sprintf(format, args...)}
}
