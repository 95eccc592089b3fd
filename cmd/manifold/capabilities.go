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
package main

import (
	"context"
	"fmt"
	"runtime"

	"github.com/manifold-works/manifold/internal/version"
	"github.com/manifold-works/manifold/pkg/capability"
)

type addArgs struct {
	A int `json:"a" description:"First addend"`
	B int `json:"b" description:"Second addend"`
}

type multiplyArgs struct {
	X int `json:"x" description:"First factor"`
	Y int `json:"y" description:"Second factor"`
}

type echoArgs struct {
	Message string `json:"message" description:"Text to echo back"`
}

type projectFileArgs struct {
	ProjectID string `json:"project_id" description:"Project identifier"`
	FileName  string `json:"file_name" description:"File name within the project"`
}

type codeReviewArgs struct {
	Language string `json:"language" description:"Programming language"`
}

// registerCapabilities installs the built-in capability set.
func registerCapabilities(reg *capability.Registry) error {
	if err := reg.RegisterTool(&capability.Tool{
		Name:        "add",
		Description: "Add two numbers together",
		Schema:      capability.InferSchema(addArgs{}),
		Handler: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			return args["a"].(int64) + args["b"].(int64), nil
		},
	}); err != nil {
		return err
	}

	if err := reg.RegisterTool(&capability.Tool{
		Name:        "multiply",
		Description: "Multiply two numbers together",
		Schema:      capability.InferSchema(multiplyArgs{}),
		Handler: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			return args["x"].(int64) * args["y"].(int64), nil
		},
	}); err != nil {
		return err
	}

	if err := reg.RegisterTool(&capability.Tool{
		Name:        "echo",
		Description: "Echo a message back to the caller",
		Schema:      capability.InferSchema(echoArgs{}),
		Handler: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			return args["message"].(string), nil
		},
	}); err != nil {
		return err
	}

	if err := reg.RegisterResource(&capability.Resource{
		Name:        "greeting",
		URI:         "greeting://hello",
		Description: "A friendly greeting",
		MIMEType:    "text/plain",
		Handler: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			return "Hello from Manifold!", nil
		},
	}); err != nil {
		return err
	}

	if err := reg.RegisterResource(&capability.Resource{
		Name:        "server-info",
		URI:         "config://server-info",
		Description: "Server runtime information",
		MIMEType:    "application/json",
		Handler: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			return map[string]interface{}{
				"version":    version.Get(),
				"go_version": runtime.Version(),
				"os":         runtime.GOOS,
				"arch":       runtime.GOARCH,
			}, nil
		},
	}); err != nil {
		return err
	}

	if err := reg.RegisterTemplate(&capability.ResourceTemplate{
		Name:        "project-file",
		URITemplate: "file://project/{project_id}/file/{file_name}",
		Description: "A file within a project",
		MIMEType:    "text/plain",
		Schema:      capability.InferSchema(projectFileArgs{}),
		Handler: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			return fmt.Sprintf("Contents of %s in project %s",
				args["file_name"], args["project_id"]), nil
		},
	}); err != nil {
		return err
	}

	return reg.RegisterPrompt(&capability.Prompt{
		Name:        "code_review",
		Description: "Generate a code review prompt",
		Schema:      capability.InferSchema(codeReviewArgs{}),
		Handler: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			language := args["language"].(string)
			return []capability.Message{
				capability.TextMessage(capability.RoleUser, fmt.Sprintf(
					"Please review this %s code for best practices, potential bugs, and suggest improvements.",
					language)),
			}, nil
		},
	})
}
