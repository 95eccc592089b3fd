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

import "strings"

// templateSegment is one slash-delimited piece of a URI template: either a
// literal that must match exactly, or a {placeholder} that binds one
// non-empty segment.
type templateSegment struct {
	literal string
	param   string // non-empty when this segment is a placeholder
}

// parseTemplate splits a URI template into segments. Matching is by exact
// segment substitution: no regex, no globbing, and a placeholder must span
// a whole segment ("file://a/{id}" is valid, "file://a/x{id}" treats the
// segment as a literal).
func parseTemplate(uriTemplate string) []templateSegment {
	parts := strings.Split(uriTemplate, "/")
	segments := make([]templateSegment, len(parts))
	for i, part := range parts {
		if len(part) > 2 && strings.HasPrefix(part, "{") && strings.HasSuffix(part, "}") {
			segments[i] = templateSegment{param: part[1 : len(part)-1]}
		} else {
			segments[i] = templateSegment{literal: part}
		}
	}
	return segments
}

// Match tests a concrete URI against the template. A URI matches when it
// has the same segment count, every literal segment is equal, and every
// placeholder segment is non-empty. On success it returns the extracted
// placeholder bindings.
func (rt *ResourceTemplate) Match(uri string) (map[string]string, bool) {
	parts := strings.Split(uri, "/")
	if len(parts) != len(rt.segments) {
		return nil, false
	}
	params := make(map[string]string)
	for i, seg := range rt.segments {
		if seg.param != "" {
			if parts[i] == "" {
				return nil, false
			}
			params[seg.param] = parts[i]
			continue
		}
		if parts[i] != seg.literal {
			return nil, false
		}
	}
	return params, true
}

// ResolveURI substitutes placeholder values back into the template,
// producing the concrete URI a binding corresponds to.
func (rt *ResourceTemplate) ResolveURI(params map[string]string) string {
	out := make([]string, len(rt.segments))
	for i, seg := range rt.segments {
		if seg.param != "" {
			out[i] = params[seg.param]
		} else {
			out[i] = seg.literal
		}
	}
	return strings.Join(out, "/")
}

// ParamNames returns the placeholder names in template order.
func (rt *ResourceTemplate) ParamNames() []string {
	var names []string
	for _, seg := range rt.segments {
		if seg.param != "" {
			names = append(names, seg.param)
		}
	}
	return names
}
